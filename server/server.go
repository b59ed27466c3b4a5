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

// Package server provides the collab server which is the main entry point of
// the collaboration engine. The server is responsible for starting the
// websocket server, the housekeeping and the profiling server.
package server

import (
	"context"
	"errors"
	"net/http"
	gosync "sync"
	"time"

	"github.com/canvasai/collab/api/types"
	"github.com/canvasai/collab/server/auth"
	"github.com/canvasai/collab/server/backend"
	"github.com/canvasai/collab/server/backend/housekeeping"
	"github.com/canvasai/collab/server/logging"
	"github.com/canvasai/collab/server/profiling"
	"github.com/canvasai/collab/server/profiling/prometheus"
	"github.com/canvasai/collab/server/rooms"
	"github.com/canvasai/collab/server/rpc"
)

// shutdownTimeout bounds the final checkpoints of the rooms.
const shutdownTimeout = 30 * time.Second

// Collab is a server of the collaboration engine. The server admits
// participants into rooms, merges their edits and checkpoints the rooms into
// the snapshot store.
type Collab struct {
	lock gosync.Mutex

	conf            *Config
	backend         *backend.Backend
	tokens          *auth.TokenManager
	manager         *rooms.Manager
	housekeeping    *housekeeping.Housekeeping
	rpcServer       *rpc.Server
	profilingServer *profiling.Server

	shutdown   bool
	shutdownCh chan struct{}
}

// New creates a new instance of Collab.
func New(conf *Config) (*Collab, error) {
	if err := conf.Validate(); err != nil {
		return nil, err
	}

	metrics, err := prometheus.NewMetrics()
	if err != nil {
		return nil, err
	}

	be, err := backend.New(conf.Backend, conf.Mongo, conf.Redis, conf.Postgres, metrics)
	if err != nil {
		return nil, err
	}

	tokens, err := auth.NewTokenManager(conf.Auth)
	if err != nil {
		return nil, errors.Join(err, be.Shutdown())
	}

	manager, err := rooms.NewManager(conf.Rooms, rooms.Backends{
		Store:      be.Store,
		StoreName:  be.StoreName,
		Projects:   be.Projects,
		Metrics:    metrics,
		Background: be.Background,
	})
	if err != nil {
		return nil, errors.Join(err, be.Shutdown())
	}

	housekeeper, err := housekeeping.New(conf.Housekeeping, manager)
	if err != nil {
		return nil, errors.Join(err, be.Shutdown())
	}

	rpcServer, err := rpc.NewServer(conf.RPC, manager, tokens, metrics)
	if err != nil {
		return nil, errors.Join(err, be.Shutdown())
	}

	var profilingServer *profiling.Server
	if conf.Profiling != nil {
		profilingServer = profiling.NewServer(conf.Profiling, metrics)
	}

	return &Collab{
		conf:            conf,
		backend:         be,
		tokens:          tokens,
		manager:         manager,
		housekeeping:    housekeeper,
		rpcServer:       rpcServer,
		profilingServer: profilingServer,
		shutdownCh:      make(chan struct{}),
	}, nil
}

// Start starts the server by opening the rpc port.
func (r *Collab) Start() error {
	r.lock.Lock()
	defer r.lock.Unlock()

	if err := r.housekeeping.Start(); err != nil {
		return err
	}

	if r.profilingServer != nil {
		if err := r.profilingServer.Start(); err != nil {
			return err
		}
	}

	return r.rpcServer.Start()
}

// Shutdown shuts down this server. Connections are closed first, then every
// room is checkpointed and the backend is released.
func (r *Collab) Shutdown(graceful bool) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	if r.shutdown {
		return nil
	}

	r.rpcServer.Shutdown(graceful)
	if r.profilingServer != nil {
		r.profilingServer.Shutdown(graceful)
	}

	var errs []error
	if err := r.housekeeping.Stop(); err != nil {
		errs = append(errs, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := r.manager.Shutdown(ctx); err != nil {
		logging.DefaultLogger().Errorf("checkpoint rooms: %v", err)
		errs = append(errs, err)
	}

	if err := r.backend.Shutdown(); err != nil {
		errs = append(errs, err)
	}

	close(r.shutdownCh)
	r.shutdown = true
	return errors.Join(errs...)
}

// ShutdownCh returns the shutdown channel.
func (r *Collab) ShutdownCh() <-chan struct{} {
	return r.shutdownCh
}

// RPCAddr returns the address of the RPC.
func (r *Collab) RPCAddr() string {
	return r.conf.RPCAddr()
}

// Handler returns the handler of the websocket server. It is used for
// testing.
func (r *Collab) Handler() http.Handler {
	return r.rpcServer.Handler()
}

// Rooms returns the summaries of the rooms.
func (r *Collab) Rooms(ctx context.Context) ([]types.RoomSummary, error) {
	return r.manager.Rooms(ctx)
}

// Sweep runs one housekeeping pass. It is used for testing.
func (r *Collab) Sweep(ctx context.Context) error {
	return r.manager.Sweep(ctx)
}

// IssueToken signs a token for the identity. It is used for testing and
// development.
func (r *Collab) IssueToken(identity *types.Identity) (string, error) {
	return r.tokens.Generate(identity)
}

// Backend returns the backend of this server. It is used for testing.
func (r *Collab) Backend() *backend.Backend {
	return r.backend
}
