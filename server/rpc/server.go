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

// Package rpc provides the websocket server speaking the sync protocol to
// participants, with the health and admin endpoints.
package rpc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	gotime "time"

	"github.com/gorilla/websocket"

	"github.com/canvasai/collab/server/auth"
	"github.com/canvasai/collab/server/logging"
	"github.com/canvasai/collab/server/profiling/prometheus"
	"github.com/canvasai/collab/server/rooms"
)

const (
	httpPathSync   = "/ws"
	httpPathHealth = "/healthz"
	httpPathRooms  = "/admin/rooms"

	shutdownTimeout = 10 * gotime.Second
)

// Server is the websocket server that processes the requests of
// participants.
type Server struct {
	conf     *Config
	manager  *rooms.Manager
	verifier auth.Verifier
	metrics  *prometheus.Metrics

	joinTimeout  gotime.Duration
	writeTimeout gotime.Duration
	pingInterval gotime.Duration

	upgrader   websocket.Upgrader
	serveMux   *http.ServeMux
	httpServer *http.Server

	serviceCtx    context.Context
	serviceCancel context.CancelFunc
	shuttingDown  atomic.Bool
	connections   sync.WaitGroup
}

// NewServer creates a new instance of Server.
func NewServer(
	conf *Config,
	manager *rooms.Manager,
	verifier auth.Verifier,
	metrics *prometheus.Metrics,
) (*Server, error) {
	if err := conf.Validate(); err != nil {
		return nil, err
	}

	serviceCtx, serviceCancel := context.WithCancel(context.Background())
	s := &Server{
		conf:          conf,
		manager:       manager,
		verifier:      verifier,
		metrics:       metrics,
		joinTimeout:   mustParseDuration(conf.JoinTimeout),
		writeTimeout:  mustParseDuration(conf.WriteTimeout),
		pingInterval:  mustParseDuration(conf.PingInterval),
		serviceCtx:    serviceCtx,
		serviceCancel: serviceCancel,
	}
	s.upgrader = websocket.Upgrader{
		HandshakeTimeout: s.joinTimeout,
		CheckOrigin:      newOriginChecker(conf.AllowedOrigins),
	}

	s.serveMux = http.NewServeMux()
	s.serveMux.HandleFunc(httpPathSync, s.handleSync)
	s.serveMux.HandleFunc(httpPathHealth, s.handleHealth)
	if conf.EnableAdmin {
		s.serveMux.HandleFunc(httpPathRooms, s.handleRooms)
	}
	s.httpServer = &http.Server{
		Handler:           s.serveMux,
		ReadHeaderTimeout: s.joinTimeout,
	}

	return s, nil
}

// Handler returns the handler of this server.
func (s *Server) Handler() http.Handler {
	return s.serveMux
}

// Start starts this server by opening the rpc port.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", s.conf.Port))
	if err != nil {
		logging.DefaultLogger().Error(err)
		return err
	}

	go func() {
		logging.DefaultLogger().Infof("serving RPC on %d", s.conf.Port)

		var err error
		if s.conf.CertFile != "" && s.conf.KeyFile != "" {
			err = s.httpServer.ServeTLS(listener, s.conf.CertFile, s.conf.KeyFile)
		} else {
			err = s.httpServer.Serve(listener)
		}
		if !errors.Is(err, http.ErrServerClosed) {
			logging.DefaultLogger().Error(err)
		}
	}()

	return nil
}

// Shutdown shuts down this server. Open connections are closed with a
// going away frame; a graceful shutdown waits for them to leave their rooms.
func (s *Server) Shutdown(graceful bool) {
	s.shuttingDown.Store(true)
	s.serviceCancel()

	if !graceful {
		if err := s.httpServer.Close(); err != nil {
			logging.DefaultLogger().Errorf("rpc server close: %v", err)
		}
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		logging.DefaultLogger().Errorf("rpc server shutdown: %v", err)
	}

	done := make(chan struct{})
	go func() {
		s.connections.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		logging.DefaultLogger().Warn("rpc server shutdown: connections still open")
	}
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	if s.shuttingDown.Load() {
		http.Error(w, "server is shutting down", http.StatusServiceUnavailable)
		return
	}

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.From(r.Context()).Debugf("upgrade: %v", err)
		return
	}

	s.connections.Add(1)
	defer s.connections.Done()

	newConnection(s, ws).serve(s.serviceCtx)
}

// newOriginChecker allows the given origins, or any origin when none is
// given.
func newOriginChecker(origins []string) func(r *http.Request) bool {
	if len(origins) == 0 {
		return func(r *http.Request) bool { return true }
	}

	allowed := make(map[string]struct{}, len(origins))
	for _, origin := range origins {
		allowed[origin] = struct{}{}
	}
	return func(r *http.Request) bool {
		_, ok := allowed[r.Header.Get("Origin")]
		return ok
	}
}
