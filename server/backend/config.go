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

package backend

import (
	"fmt"

	"github.com/canvasai/collab/api/types"
)

// DefaultRole is the role of every user when no project database is
// configured.
const DefaultRole = types.RoleEditor

// Config is the configuration for creating a Backend instance.
type Config struct {
	// StoreType selects the snapshot store: "memory", "mongo" or "redis".
	// Empty picks mongo or redis when their section is given, memory
	// otherwise.
	StoreType string `yaml:"StoreType"`

	// DefaultRole is the role of every user when no Postgres section is
	// given. Empty refuses users.
	DefaultRole types.Role `yaml:"DefaultRole"`
}

// Store types.
const (
	StoreMemory = "memory"
	StoreMongo  = "mongo"
	StoreRedis  = "redis"
)

// EnsureDefaultValue sets the default values of empty fields.
func (c *Config) EnsureDefaultValue() {
	if c.DefaultRole == "" {
		c.DefaultRole = DefaultRole
	}
}

// Validate validates this config.
func (c *Config) Validate() error {
	switch c.StoreType {
	case "", StoreMemory, StoreMongo, StoreRedis:
	default:
		return fmt.Errorf("unknown store type %q", c.StoreType)
	}

	if c.DefaultRole != "" {
		if _, err := types.ParseRole(string(c.DefaultRole)); err != nil {
			return fmt.Errorf("default role: %w", err)
		}
	}
	return nil
}
