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

package rpc

import (
	"errors"
	"fmt"
	"os"
	"time"
)

const (
	// DefaultPort is the default port of the RPC server.
	DefaultPort = 8080

	// DefaultMaxMessageBytes is the default limit of an inbound message.
	DefaultMaxMessageBytes = 1 << 20

	// DefaultJoinTimeout is the default time a connection has to send its
	// join.
	DefaultJoinTimeout = 10 * time.Second

	// DefaultWriteTimeout is the default deadline of a single write.
	DefaultWriteTimeout = 10 * time.Second

	// DefaultPingInterval is the default interval of websocket pings.
	DefaultPingInterval = 15 * time.Second
)

var (
	// ErrInvalidRPCPort occurs when the port in the config is invalid.
	ErrInvalidRPCPort = errors.New("invalid port number for RPC server")
	// ErrInvalidCertFile occurs when the certificate file is invalid.
	ErrInvalidCertFile = errors.New("invalid cert file for RPC server")
	// ErrInvalidKeyFile occurs when the key file is invalid.
	ErrInvalidKeyFile = errors.New("invalid key file for RPC server")
	// ErrInvalidMaxMessageBytes occurs when the message limit is invalid.
	ErrInvalidMaxMessageBytes = errors.New("invalid max message bytes for RPC server")
	// ErrInvalidTimeout occurs when a timeout or interval is invalid.
	ErrInvalidTimeout = errors.New("invalid timeout for RPC server")
)

// Config is the configuration for creating a Server instance.
type Config struct {
	// Port is the port number for the RPC server.
	Port int `yaml:"Port"`

	// CertFile is the path to the certificate file.
	CertFile string `yaml:"CertFile"`

	// KeyFile is the path to the key file.
	KeyFile string `yaml:"KeyFile"`

	// MaxMessageBytes is the maximum size of a message the server will
	// accept.
	MaxMessageBytes int64 `yaml:"MaxMessageBytes"`

	// JoinTimeout is how long a new connection may wait before joining.
	JoinTimeout string `yaml:"JoinTimeout"`

	// WriteTimeout is the deadline of a single write to a participant.
	WriteTimeout string `yaml:"WriteTimeout"`

	// PingInterval is the interval of websocket pings keeping idle
	// connections open.
	PingInterval string `yaml:"PingInterval"`

	// AllowedOrigins are the origins allowed to open a websocket. Empty
	// allows any origin.
	AllowedOrigins []string `yaml:"AllowedOrigins"`

	// EnableAdmin serves the room listing on /admin/rooms.
	EnableAdmin bool `yaml:"EnableAdmin"`
}

// EnsureDefaultValue sets the default values of empty fields.
func (c *Config) EnsureDefaultValue() {
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.MaxMessageBytes == 0 {
		c.MaxMessageBytes = DefaultMaxMessageBytes
	}
	if c.JoinTimeout == "" {
		c.JoinTimeout = DefaultJoinTimeout.String()
	}
	if c.WriteTimeout == "" {
		c.WriteTimeout = DefaultWriteTimeout.String()
	}
	if c.PingInterval == "" {
		c.PingInterval = DefaultPingInterval.String()
	}
}

// Validate validates the port number and the files for certification.
func (c *Config) Validate() error {
	if c.Port < 1 || 65535 < c.Port {
		return fmt.Errorf("must be between 1 and 65535, given %d: %w", c.Port, ErrInvalidRPCPort)
	}

	// when specific cert or key file are configured
	if c.CertFile != "" {
		if _, err := os.Stat(c.CertFile); err != nil {
			return fmt.Errorf("%s: %w", c.CertFile, ErrInvalidCertFile)
		}
	}

	if c.KeyFile != "" {
		if _, err := os.Stat(c.KeyFile); err != nil {
			return fmt.Errorf("%s: %w", c.KeyFile, ErrInvalidKeyFile)
		}
	}

	if c.MaxMessageBytes <= 0 {
		return fmt.Errorf("given %d: %w", c.MaxMessageBytes, ErrInvalidMaxMessageBytes)
	}

	for _, value := range []string{c.JoinTimeout, c.WriteTimeout, c.PingInterval} {
		d, err := time.ParseDuration(value)
		if err != nil || d <= 0 {
			return fmt.Errorf("%q: %w", value, ErrInvalidTimeout)
		}
	}

	return nil
}

func mustParseDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		panic(fmt.Sprintf("parse %q: %v", value, err))
	}
	return d
}
