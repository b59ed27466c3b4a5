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

// Package helper provides helper functions for testing.
package helper

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"strings"
	"testing"
	gotime "time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/canvasai/collab/api/types"
	"github.com/canvasai/collab/client"
	"github.com/canvasai/collab/pkg/document/operations"
	"github.com/canvasai/collab/server"
	"github.com/canvasai/collab/server/auth"
	"github.com/canvasai/collab/server/backend"
	"github.com/canvasai/collab/server/backend/housekeeping"
	"github.com/canvasai/collab/server/profiling"
	"github.com/canvasai/collab/server/rooms"
	"github.com/canvasai/collab/server/rpc"
)

var logger *zap.Logger

// Below are the values of the collab config used in the test.
var (
	RPCPort = 11101

	ProfilingPort = 11102

	HousekeepingInterval = 50 * gotime.Millisecond

	GracePeriod       = 300 * gotime.Millisecond
	PresenceTTL       = 5 * gotime.Second
	HeartbeatTimeout  = 5 * gotime.Second
	LockTTL           = 2 * gotime.Second
	LockMaxTTL        = 10 * gotime.Second
	OutboundQueueSize = 64
	StorageTimeout    = 2 * gotime.Second

	SecretKey = "test-secret"
)

func init() {
	var err error
	logger, err = zap.NewDevelopment()
	if err != nil {
		log.Fatal(err)
	}
}

var portOffset = 0

// TestConfig returns config for creating a collab instance. Every call
// moves the ports so servers of a package do not collide.
func TestConfig() *server.Config {
	portOffset += 100
	return &server.Config{
		RPC: &rpc.Config{
			Port:         RPCPort + portOffset,
			PingInterval: "1s",
			EnableAdmin:  true,
		},
		Profiling: &profiling.Config{
			Port: ProfilingPort + portOffset,
		},
		Housekeeping: &housekeeping.Config{
			Interval: HousekeepingInterval.String(),
		},
		Rooms: &rooms.Config{
			GracePeriod:       GracePeriod.String(),
			PresenceTTL:       PresenceTTL.String(),
			HeartbeatTimeout:  HeartbeatTimeout.String(),
			LockTTL:           LockTTL.String(),
			LockMaxTTL:        LockMaxTTL.String(),
			OutboundQueueSize: OutboundQueueSize,
			StorageTimeout:    StorageTimeout.String(),
		},
		Auth: &auth.Config{
			Secret: SecretKey,
		},
		Backend: &backend.Config{
			StoreType:   backend.StoreMemory,
			DefaultRole: types.RoleEditor,
		},
	}
}

// TestServer returns a new instance of collab for testing.
func TestServer() *server.Collab {
	svr, err := server.New(EnsureDefaults(TestConfig()))
	if err != nil {
		log.Fatal(err)
	}
	return svr
}

// EnsureDefaults fills the sections of the config left empty.
func EnsureDefaults(conf *server.Config) *server.Config {
	conf.RPC.EnsureDefaultValue()
	conf.Rooms.EnsureDefaultValue()
	conf.Auth.EnsureDefaultValue()
	conf.Backend.EnsureDefaultValue()
	return conf
}

// StartServer starts a server built from the given config and shuts it down
// when the test ends.
func StartServer(t testing.TB, conf *server.Config) *server.Collab {
	svr, err := server.New(EnsureDefaults(conf))
	assert.NoError(t, err)
	assert.NoError(t, svr.Start())
	assert.NoError(t, WaitForServerToStart(svr.RPCAddr()))
	t.Cleanup(func() {
		assert.NoError(t, svr.Shutdown(true))
	})
	return svr
}

// SyncURL returns the websocket url of the server.
func SyncURL(svr *server.Collab) string {
	return fmt.Sprintf("ws://%s/ws", svr.RPCAddr())
}

// AdminURL returns the url of the room listing of the server.
func AdminURL(svr *server.Collab) string {
	return fmt.Sprintf("http://%s/admin/rooms", svr.RPCAddr())
}

// TestRoomID returns a room id derived from the name of the test.
func TestRoomID(t testing.TB, prefix ...int) string {
	name := t.Name()
	if len(prefix) > 0 {
		name = fmt.Sprintf("%d-%s", prefix[0], name)
	}
	if len(name) > 100 {
		name = name[:100]
	}

	sb := strings.Builder{}
	for _, c := range name {
		if c >= 'A' && c <= 'Z' {
			sb.WriteRune(c + ('a' - 'A'))
		} else if c >= 'a' && c <= 'z' {
			sb.WriteRune(c)
		} else if c >= '0' && c <= '9' {
			sb.WriteRune(c)
		} else {
			sb.WriteRune('-')
		}
	}
	return sb.String()
}

// TestToken signs a token of the given user.
func TestToken(t testing.TB, svr *server.Collab, userID string) string {
	token, err := svr.IssueToken(&types.Identity{
		UserID: userID,
		Name:   userID,
		Email:  userID + "@example.com",
	})
	assert.NoError(t, err)
	return token
}

// JoinedClient dials the server as the given user and joins the room.
func JoinedClient(
	ctx context.Context,
	t testing.TB,
	svr *server.Collab,
	roomID, userID string,
	opts ...client.Option,
) *client.Client {
	opts = append([]client.Option{
		client.WithToken(TestToken(t, svr, userID)),
		client.WithLogger(logger),
	}, opts...)

	cli, err := client.Dial(ctx, SyncURL(svr), opts...)
	assert.NoError(t, err)
	_, err = cli.Join(ctx, roomID, "")
	assert.NoError(t, err)

	t.Cleanup(func() {
		assert.NoError(t, cli.Close())
	})
	return cli
}

// JoinedClients creates n clients joined to the room.
func JoinedClients(ctx context.Context, t testing.TB, svr *server.Collab, roomID string, n int) []*client.Client {
	var clients []*client.Client
	for i := range n {
		clients = append(clients, JoinedClient(ctx, t, svr, roomID, fmt.Sprintf("user-%d", i)))
	}
	return clients
}

// Insert returns an operation inserting the element with the given JSON
// properties.
func Insert(target, props string) *operations.Operation {
	return &operations.Operation{Kind: operations.Insert, Target: target, Props: Props(props)}
}

// Update returns an operation updating the element with the given JSON
// properties.
func Update(target, props string) *operations.Operation {
	return &operations.Operation{Kind: operations.Update, Target: target, Props: Props(props)}
}

// Delete returns an operation deleting the element.
func Delete(target string) *operations.Operation {
	return &operations.Operation{Kind: operations.Delete, Target: target}
}

// Props decodes the JSON object of properties.
func Props(props string) map[string]json.RawMessage {
	m := make(map[string]json.RawMessage)
	if err := json.Unmarshal([]byte(props), &m); err != nil {
		panic(err)
	}
	return m
}

// WaitForServerToStart waits for the server to start.
func WaitForServerToStart(addr string) error {
	maxRetries := 10
	initialDelay := 50 * gotime.Millisecond
	maxDelay := 2 * gotime.Second

	for attempt := range maxRetries {
		delay := initialDelay * gotime.Duration(1<<uint(attempt))
		delay = min(delay, maxDelay)

		conn, err := net.DialTimeout("tcp", addr, 1*gotime.Second)
		if err != nil {
			gotime.Sleep(delay)
			continue
		}

		if err := conn.Close(); err != nil {
			return fmt.Errorf("close connection: %w", err)
		}
		return nil
	}

	return fmt.Errorf("timeout for server to start: %s", addr)
}

// Converged asserts that every client reaches the same document.
func Converged(t *testing.T, clients ...*client.Client) {
	assert.Eventually(t, func() bool {
		expected := clients[0].Marshal()
		for _, cli := range clients[1:] {
			if cli.Marshal() != expected {
				return false
			}
		}
		return true
	}, 5*gotime.Second, 10*gotime.Millisecond)
}
