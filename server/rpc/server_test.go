/*
 * Copyright 2026 The CanvasAI Collab Authors. All rights reserved.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package rpc_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	gotime "time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/canvasai/collab/api/converter"
	"github.com/canvasai/collab/api/types"
	"github.com/canvasai/collab/pkg/document/operations"
	"github.com/canvasai/collab/server/auth"
	"github.com/canvasai/collab/server/backend/background"
	"github.com/canvasai/collab/server/backend/database/memory"
	"github.com/canvasai/collab/server/profiling/prometheus"
	"github.com/canvasai/collab/server/projects"
	"github.com/canvasai/collab/server/rooms"
	"github.com/canvasai/collab/server/rpc"
)

type testServer struct {
	http    *httptest.Server
	rpc     *rpc.Server
	tokens  *auth.TokenManager
	metrics *prometheus.Metrics
}

func newTestServer(t *testing.T, enableAdmin bool, opts ...func(*rooms.Config)) *testServer {
	metrics, err := prometheus.NewMetrics()
	require.NoError(t, err)
	store, err := memory.New()
	require.NoError(t, err)
	bg := background.New(metrics)

	roomsConf := &rooms.Config{}
	for _, opt := range opts {
		opt(roomsConf)
	}
	roomsConf.EnsureDefaultValue()
	manager, err := rooms.NewManager(roomsConf, rooms.Backends{
		Store:      store,
		StoreName:  "memory",
		Projects:   projects.NewStatic(types.RoleEditor),
		Metrics:    metrics,
		Background: bg,
	})
	require.NoError(t, err)

	authConf := &auth.Config{Secret: "test-secret"}
	authConf.EnsureDefaultValue()
	tokens, err := auth.NewTokenManager(authConf)
	require.NoError(t, err)

	conf := &rpc.Config{Port: 1, EnableAdmin: enableAdmin}
	conf.EnsureDefaultValue()
	server, err := rpc.NewServer(conf, manager, tokens, metrics)
	require.NoError(t, err)

	ts := httptest.NewServer(server.Handler())
	t.Cleanup(func() {
		ts.Close()
		assert.NoError(t, manager.Shutdown(context.Background()))
		bg.Close()
	})

	return &testServer{http: ts, rpc: server, tokens: tokens, metrics: metrics}
}

// drops returns the count of document messages dropped under backpressure.
func (s *testServer) drops(t *testing.T) float64 {
	families, err := s.metrics.Registry().Gather()
	require.NoError(t, err)
	for _, family := range families {
		if family.GetName() != "collab_broadcast_drops_total" {
			continue
		}
		for _, metric := range family.GetMetric() {
			for _, label := range metric.GetLabel() {
				if label.GetValue() == "document" {
					return metric.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func (s *testServer) dial(t *testing.T) *websocket.Conn {
	url := "ws" + strings.TrimPrefix(s.http.URL, "http") + "/ws"
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ws.Close() })
	return ws
}

func (s *testServer) token(t *testing.T, userID string) string {
	token, err := s.tokens.Generate(&types.Identity{UserID: userID, Name: userID})
	require.NoError(t, err)
	return token
}

func send(t *testing.T, ws *websocket.Conn, msgType types.MessageType, id string, payload interface{}) {
	data, err := converter.ToEnvelope(msgType, id, payload)
	require.NoError(t, err)
	require.NoError(t, ws.WriteMessage(websocket.TextMessage, data))
}

// receive reads messages until one of the given type arrives.
func receive(t *testing.T, ws *websocket.Conn, msgType types.MessageType) *types.Envelope {
	require.NoError(t, ws.SetReadDeadline(gotime.Now().Add(5*gotime.Second)))
	for {
		_, data, err := ws.ReadMessage()
		require.NoError(t, err)
		env, err := converter.FromEnvelope(data)
		require.NoError(t, err)
		if env.Type == msgType {
			return env
		}
	}
}

func join(t *testing.T, s *testServer, ws *websocket.Conn, roomID, userID string) *types.JoinAck {
	send(t, ws, types.MessageJoin, "join-1", &types.JoinRequest{
		RoomID:    roomID,
		AuthToken: s.token(t, userID),
	})
	env := receive(t, ws, types.MessageJoinAck)
	assert.Equal(t, "join-1", env.ID)
	ack, err := converter.DecodePayload[types.JoinAck](env)
	require.NoError(t, err)
	return ack
}

func TestSync(t *testing.T) {
	t.Run("join and broadcast test", func(t *testing.T) {
		s := newTestServer(t, false)
		ws1, ws2 := s.dial(t), s.dial(t)

		ack := join(t, s, ws1, "room-1", "alice")
		assert.Equal(t, "alice", ack.Participant.ID.String())
		join(t, s, ws2, "room-1", "bob")

		send(t, ws1, types.MessageOpSubmit, "op-1", &types.OpSubmit{Operation: &operations.Operation{
			ID:     operations.ID{Actor: "alice"},
			Kind:   operations.Insert,
			Target: "rect-1",
			Props:  map[string]json.RawMessage{"x": json.RawMessage(`1`)},
		}})

		env := receive(t, ws1, types.MessageOpAck)
		assert.Equal(t, "op-1", env.ID)
		opAck, err := converter.DecodePayload[types.OpAck](env)
		require.NoError(t, err)
		assert.Equal(t, int64(1), opAck.ID.Seq)

		env = receive(t, ws2, types.MessageOpDelta)
		delta, err := converter.DecodePayload[types.OpDelta](env)
		require.NoError(t, err)
		assert.Equal(t, "rect-1", delta.Operation.Target)
	})

	t.Run("message before join is refused test", func(t *testing.T) {
		s := newTestServer(t, false)
		ws := s.dial(t)

		send(t, ws, types.MessageHeartbeat, "hb-1", nil)
		env := receive(t, ws, types.MessageError)
		payload, err := converter.DecodePayload[types.Error](env)
		require.NoError(t, err)
		assert.Equal(t, "ErrJoinRequired", payload.Code)

		_, _, err = ws.ReadMessage()
		assert.Error(t, err)
	})

	t.Run("invalid token is refused test", func(t *testing.T) {
		s := newTestServer(t, false)
		ws := s.dial(t)

		send(t, ws, types.MessageJoin, "join-1", &types.JoinRequest{RoomID: "room-1", AuthToken: "invalid"})
		env := receive(t, ws, types.MessageError)
		assert.Equal(t, "join-1", env.ID)
		payload, err := converter.DecodePayload[types.Error](env)
		require.NoError(t, err)
		assert.Equal(t, "unauthenticated", payload.Status)
	})

	t.Run("error is reported with the request id test", func(t *testing.T) {
		s := newTestServer(t, false)
		ws := s.dial(t)
		join(t, s, ws, "room-1", "alice")

		send(t, ws, types.MessageOpSubmit, "op-1", &types.OpSubmit{Operation: &operations.Operation{
			ID:     operations.ID{Actor: "alice"},
			Kind:   operations.Update,
			Target: "missing",
		}})
		env := receive(t, ws, types.MessageError)
		assert.Equal(t, "op-1", env.ID)

		send(t, ws, types.MessageHeartbeat, "hb-1", nil)
		env = receive(t, ws, types.MessageHeartbeatAck)
		assert.Equal(t, "hb-1", env.ID)
	})

	t.Run("overflowed queue is recovered with a resync test", func(t *testing.T) {
		s := newTestServer(t, false, func(c *rooms.Config) { c.OutboundQueueSize = 1 })
		ws1, ws2 := s.dial(t), s.dial(t)
		join(t, s, ws1, "room-1", "alice")
		join(t, s, ws2, "room-1", "bob")

		// bob does not read until his socket buffers are full and the queue
		// behind them overflowed.
		fill := json.RawMessage(strconv.Quote(strings.Repeat("x", 64<<10)))
		for i := 0; i < 1000 && s.drops(t) == 0; i++ {
			send(t, ws1, types.MessageOpSubmit, "", &types.OpSubmit{Operation: &operations.Operation{
				ID:     operations.ID{Actor: "alice"},
				Kind:   operations.Insert,
				Target: fmt.Sprintf("rect-%d", i),
				Props:  map[string]json.RawMessage{"fill": fill},
			}})
		}
		assert.Eventually(t, func() bool {
			return s.drops(t) > 0
		}, 5*gotime.Second, 10*gotime.Millisecond)

		env := receive(t, ws2, types.MessageResync)
		resync, err := converter.DecodePayload[types.Resync](env)
		require.NoError(t, err)
		assert.Contains(t, resync.Document.Live(), "rect-0")

		send(t, ws2, types.MessageHeartbeat, "hb-1", nil)
		env = receive(t, ws2, types.MessageHeartbeatAck)
		assert.Equal(t, "hb-1", env.ID)
	})

	t.Run("second join on a connection is rejected test", func(t *testing.T) {
		s := newTestServer(t, false)
		ws := s.dial(t)
		join(t, s, ws, "room-1", "alice")

		send(t, ws, types.MessageJoin, "join-2", &types.JoinRequest{RoomID: "room-2", AuthToken: s.token(t, "alice")})
		env := receive(t, ws, types.MessageError)
		payload, err := converter.DecodePayload[types.Error](env)
		require.NoError(t, err)
		assert.Equal(t, "ErrAlreadyJoined", payload.Code)
	})
}

func TestHealth(t *testing.T) {
	t.Run("serving test", func(t *testing.T) {
		s := newTestServer(t, false)

		resp, err := http.Get(s.http.URL + "/healthz")
		require.NoError(t, err)
		defer func() { assert.NoError(t, resp.Body.Close()) }()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("admin is disabled by default test", func(t *testing.T) {
		s := newTestServer(t, false)

		resp, err := http.Get(s.http.URL + "/admin/rooms")
		require.NoError(t, err)
		defer func() { assert.NoError(t, resp.Body.Close()) }()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("admin lists rooms test", func(t *testing.T) {
		s := newTestServer(t, true)

		resp, err := http.Get(s.http.URL + "/admin/rooms")
		require.NoError(t, err)
		defer func() { assert.NoError(t, resp.Body.Close()) }()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})
}
