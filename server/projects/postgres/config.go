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

package postgres

import (
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DefaultConnectTimeout is the default timeout of connecting the database.
const DefaultConnectTimeout = 5 * time.Second

// ErrEmptyDSN is returned when the DSN is empty.
var ErrEmptyDSN = errors.New("postgres DSN is empty")

// Config is the configuration of the project database.
type Config struct {
	DSN            string `yaml:"DSN"`
	ConnectTimeout string `yaml:"ConnectTimeout"`
}

// EnsureDefaultValue fills the empty fields with their default values.
func (c *Config) EnsureDefaultValue() {
	if c.ConnectTimeout == "" {
		c.ConnectTimeout = DefaultConnectTimeout.String()
	}
}

// Validate validates this config.
func (c *Config) Validate() error {
	if c.DSN == "" {
		return ErrEmptyDSN
	}
	if _, err := pgxpool.ParseConfig(c.DSN); err != nil {
		return fmt.Errorf(`invalid argument for "--postgres-dsn" flag: %w`, err)
	}
	if _, err := time.ParseDuration(c.ConnectTimeout); err != nil {
		return fmt.Errorf(`invalid argument "%s" for "--postgres-connect-timeout" flag: %w`, c.ConnectTimeout, err)
	}
	return nil
}

// ParseConnectTimeout returns the connect timeout.
func (c *Config) ParseConnectTimeout() time.Duration {
	d, err := time.ParseDuration(c.ConnectTimeout)
	if err != nil {
		return DefaultConnectTimeout
	}
	return d
}
