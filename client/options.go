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

package client

import (
	"time"

	"go.uber.org/zap"
)

// DefaultHeartbeatInterval is the default interval of heartbeats.
const DefaultHeartbeatInterval = 10 * time.Second

// Option configures Options.
type Option func(*Options)

// Options configures how we set up the client.
type Options struct {
	// Token is the auth token presented on join.
	Token string

	// HeartbeatInterval is the interval of heartbeats. Zero disables them.
	HeartbeatInterval time.Duration

	// EventBufferSize is the capacity of the event channel.
	EventBufferSize int

	// Logger is the Logger of the client.
	Logger *zap.Logger
}

// WithToken configures the token of the client.
func WithToken(token string) Option {
	return func(o *Options) { o.Token = token }
}

// WithHeartbeatInterval configures the interval of heartbeats.
func WithHeartbeatInterval(interval time.Duration) Option {
	return func(o *Options) { o.HeartbeatInterval = interval }
}

// WithEventBufferSize configures the capacity of the event channel.
func WithEventBufferSize(size int) Option {
	return func(o *Options) { o.EventBufferSize = size }
}

// WithLogger configures the Logger of the client.
func WithLogger(logger *zap.Logger) Option {
	return func(o *Options) { o.Logger = logger }
}
