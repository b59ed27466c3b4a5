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

package client_test

import (
	"context"
	"encoding/json"
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
	"github.com/canvasai/collab/client"
	"github.com/canvasai/collab/pkg/document"
	"github.com/canvasai/collab/pkg/document/operations"
	"github.com/canvasai/collab/server/auth"
	"github.com/canvasai/collab/server/backend/background"
	"github.com/canvasai/collab/server/backend/database/memory"
	"github.com/canvasai/collab/server/profiling/prometheus"
	"github.com/canvasai/collab/server/projects"
	"github.com/canvasai/collab/server/rooms"
	"github.com/canvasai/collab/server/rpc"
)

type testEnv struct {
	url    string
	tokens *auth.TokenManager
}

func newTestEnv(t *testing.T) *testEnv {
	return newTestEnvWithRole(t, types.RoleEditor)
}

func newTestEnvWithRole(t *testing.T, role types.Role) *testEnv {
	metrics, err := prometheus.NewMetrics()
	require.NoError(t, err)
	store, err := memory.New()
	require.NoError(t, err)
	bg := background.New(metrics)

	roomsConf := &rooms.Config{}
	roomsConf.EnsureDefaultValue()
	manager, err := rooms.NewManager(roomsConf, rooms.Backends{
		Store:      store,
		StoreName:  "memory",
		Projects:   projects.NewStatic(role),
		Metrics:    metrics,
		Background: bg,
	})
	require.NoError(t, err)

	authConf := &auth.Config{Secret: "test-secret"}
	authConf.EnsureDefaultValue()
	tokens, err := auth.NewTokenManager(authConf)
	require.NoError(t, err)

	rpcConf := &rpc.Config{Port: 1}
	rpcConf.EnsureDefaultValue()
	server, err := rpc.NewServer(rpcConf, manager, tokens, metrics)
	require.NoError(t, err)

	ts := httptest.NewServer(server.Handler())
	t.Cleanup(func() {
		server.Shutdown(false)
		ts.Close()
		assert.NoError(t, manager.Shutdown(context.Background()))
		bg.Close()
	})

	return &testEnv{
		url:    "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws",
		tokens: tokens,
	}
}

func (e *testEnv) join(ctx context.Context, t *testing.T, roomID, userID string) *client.Client {
	token, err := e.tokens.Generate(&types.Identity{UserID: userID, Name: userID})
	require.NoError(t, err)

	cli, err := client.Dial(ctx, e.url, client.WithToken(token), client.WithHeartbeatInterval(0))
	require.NoError(t, err)
	_, err = cli.Join(ctx, roomID, "")
	require.NoError(t, err)

	t.Cleanup(func() { assert.NoError(t, cli.Close()) })
	return cli
}

func insert(target, props string) *operations.Operation {
	m := make(map[string]json.RawMessage)
	if err := json.Unmarshal([]byte(props), &m); err != nil {
		panic(err)
	}
	return &operations.Operation{Kind: operations.Insert, Target: target, Props: m}
}

// newResyncServer serves one scripted participant "alice". Every submitted
// operation is answered with a resync that already carries it, then with
// its ack, the way the server recovers an overflowed queue.
func newResyncServer(t *testing.T) string {
	upgrader := websocket.Upgrader{}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer func() { _ = ws.Close() }()

		doc := document.New()
		_, err = doc.ApplyLocal(&operations.Operation{
			ID:     operations.ID{Actor: "bob"},
			Kind:   operations.Insert,
			Target: "bob-1",
			Props:  map[string]json.RawMessage{"x": json.RawMessage(`7`)},
		})
		assert.NoError(t, err)

		write := func(msgType types.MessageType, id string, payload interface{}) {
			data, err := converter.ToEnvelope(msgType, id, payload)
			assert.NoError(t, err)
			assert.NoError(t, ws.WriteMessage(websocket.TextMessage, data))
		}

		for {
			_, data, err := ws.ReadMessage()
			if err != nil {
				return
			}
			env, err := converter.FromEnvelope(data)
			assert.NoError(t, err)

			switch env.Type {
			case types.MessageJoin:
				write(types.MessageJoinAck, env.ID, &types.JoinAck{
					Participant: &types.Participant{ID: "alice", Role: types.RoleEditor},
					Document:    document.New().Snapshot(),
				})
			case types.MessageOpSubmit:
				submit, err := converter.DecodePayload[types.OpSubmit](env)
				assert.NoError(t, err)
				delta, err := doc.ApplyLocal(submit.Operation)
				assert.NoError(t, err)
				write(types.MessageResync, "", &types.Resync{Document: doc.Snapshot()})
				write(types.MessageOpAck, env.ID, &types.OpAck{ID: delta.Operation.ID})
			}
		}
	}))
	t.Cleanup(ts.Close)

	return "ws" + strings.TrimPrefix(ts.URL, "http")
}

func TestClient(t *testing.T) {
	ctx := context.Background()

	t.Run("operations before join test", func(t *testing.T) {
		e := newTestEnv(t)
		cli, err := client.Dial(ctx, e.url)
		require.NoError(t, err)
		defer func() { assert.NoError(t, cli.Close()) }()

		_, err = cli.Edit(ctx, insert("rect-1", `{}`))
		assert.ErrorIs(t, err, client.ErrNotJoined)
		_, err = cli.Heartbeat(ctx)
		assert.ErrorIs(t, err, client.ErrNotJoined)
	})

	t.Run("edit is stamped and acknowledged test", func(t *testing.T) {
		e := newTestEnv(t)
		c1 := e.join(ctx, t, "room-1", "alice")
		c2 := e.join(ctx, t, "room-1", "bob")

		stamped, err := c1.Edit(ctx, insert("rect-1", `{"x":1}`))
		require.NoError(t, err)
		assert.Equal(t, c1.ID(), stamped.ID.Actor)
		assert.Equal(t, int64(1), stamped.ID.Seq)
		assert.Equal(t, 0, c1.Pending())

		assert.Eventually(t, func() bool {
			return c1.Marshal() == c2.Marshal()
		}, 5*gotime.Second, 10*gotime.Millisecond)
	})

	t.Run("events of other participants test", func(t *testing.T) {
		e := newTestEnv(t)
		c1 := e.join(ctx, t, "room-1", "alice")
		c2 := e.join(ctx, t, "room-1", "bob")

		var event client.Event
		for event = range c1.Events() {
			if event.Type == client.ParticipantJoined {
				break
			}
		}
		assert.Equal(t, c2.ID(), event.Participant.ID)

		_, err := c2.Edit(ctx, insert("rect-1", `{"x":1}`))
		require.NoError(t, err)
		for event = range c1.Events() {
			if event.Type == client.DocumentChanged {
				break
			}
		}
		assert.Equal(t, "rect-1", event.Operation.Target)
	})

	t.Run("pending operation is replayed after reconnect test", func(t *testing.T) {
		e := newTestEnv(t)
		c1 := e.join(ctx, t, "room-1", "alice")
		c2 := e.join(ctx, t, "room-1", "bob")

		// a second connection of the same user takes over the session.
		e.join(ctx, t, "room-1", "alice")
		assert.Eventually(t, func() bool {
			hbCtx, cancel := context.WithTimeout(ctx, 100*gotime.Millisecond)
			defer cancel()
			_, err := c1.Heartbeat(hbCtx)
			return err != nil
		}, 5*gotime.Second, 10*gotime.Millisecond)

		editCtx, cancel := context.WithTimeout(ctx, 100*gotime.Millisecond)
		defer cancel()
		_, err := c1.Edit(editCtx, insert("rect-1", `{"x":1}`))
		assert.Error(t, err)
		assert.Equal(t, 1, c1.Pending())
		assert.Contains(t, c1.Snapshot().Live(), "rect-1")

		require.NoError(t, c1.Reconnect(ctx))
		assert.Eventually(t, func() bool {
			_, ok := c2.Snapshot().Live()["rect-1"]
			return c1.Pending() == 0 && ok
		}, 5*gotime.Second, 10*gotime.Millisecond)
	})

	t.Run("edit rejected by the server is taken out of the replica test", func(t *testing.T) {
		e := newTestEnvWithRole(t, types.RoleViewer)
		cli := e.join(ctx, t, "room-1", "carol")

		_, err := cli.Edit(ctx, insert("rect-1", `{"x":1}`))
		var serverErr *client.ServerError
		require.ErrorAs(t, err, &serverErr)
		assert.Equal(t, "ErrPermissionDenied", serverErr.Code)
		assert.Equal(t, 0, cli.Pending())
		assert.Equal(t, `{}`, cli.Marshal())
	})

	t.Run("concurrent inserts of one id converge test", func(t *testing.T) {
		e := newTestEnv(t)
		c1 := e.join(ctx, t, "room-1", "alice")
		c2 := e.join(ctx, t, "room-1", "bob")

		for i := range 10 {
			id := "rect-" + strconv.Itoa(i)
			errs := make(chan error, 2)
			go func() {
				_, err := c1.Edit(ctx, insert(id, `{"who":"alice"}`))
				errs <- err
			}()
			go func() {
				_, err := c2.Edit(ctx, insert(id, `{"who":"bob"}`))
				errs <- err
			}()
			assert.NoError(t, <-errs)
			assert.NoError(t, <-errs)
		}

		assert.Eventually(t, func() bool {
			return c1.Pending() == 0 && c2.Pending() == 0 && c1.Marshal() == c2.Marshal()
		}, 5*gotime.Second, 10*gotime.Millisecond)
		assert.Len(t, c1.Snapshot().Live(), 10)
	})

	t.Run("resync reloads the replica and completes the pending edit test", func(t *testing.T) {
		url := newResyncServer(t)
		cli, err := client.Dial(ctx, url, client.WithHeartbeatInterval(0))
		require.NoError(t, err)
		defer func() { assert.NoError(t, cli.Close()) }()
		_, err = cli.Join(ctx, "room-1", "")
		require.NoError(t, err)

		editCtx, cancel := context.WithTimeout(ctx, 5*gotime.Second)
		defer cancel()
		stamped, err := cli.Edit(editCtx, insert("rect-1", `{"x":1}`))
		require.NoError(t, err)
		assert.Equal(t, int64(1), stamped.ID.Seq)
		assert.Equal(t, 0, cli.Pending())
		assert.Equal(t, `{"bob-1":{"x":7},"rect-1":{"x":1}}`, cli.Marshal())

		var event client.Event
		for event = range cli.Events() {
			if event.Type == client.Resynced {
				break
			}
		}
		assert.Equal(t, client.Resynced, event.Type)
	})

	t.Run("lock state is tracked test", func(t *testing.T) {
		e := newTestEnv(t)
		c1 := e.join(ctx, t, "room-1", "alice")
		c2 := e.join(ctx, t, "room-1", "bob")

		result, err := c1.AcquireLock(ctx, "rect-1", "move", gotime.Second)
		require.NoError(t, err)
		assert.True(t, result.Granted)
		lock, ok := c1.Lock("rect-1")
		assert.True(t, ok)
		assert.Equal(t, c1.ID(), lock.Holder)

		assert.Eventually(t, func() bool {
			lock, ok := c2.Lock("rect-1")
			return ok && lock.Holder == c1.ID()
		}, 5*gotime.Second, 10*gotime.Millisecond)

		require.NoError(t, c1.ReleaseLock(ctx, "rect-1"))
		_, ok = c1.Lock("rect-1")
		assert.False(t, ok)
		assert.Eventually(t, func() bool {
			_, ok := c2.Lock("rect-1")
			return !ok
		}, 5*gotime.Second, 10*gotime.Millisecond)
	})
}
