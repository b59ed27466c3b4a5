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

package server

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/canvasai/collab/server/auth"
	"github.com/canvasai/collab/server/backend"
	"github.com/canvasai/collab/server/backend/database/mongo"
	"github.com/canvasai/collab/server/backend/database/redis"
	"github.com/canvasai/collab/server/backend/housekeeping"
	"github.com/canvasai/collab/server/profiling"
	"github.com/canvasai/collab/server/projects/postgres"
	"github.com/canvasai/collab/server/rooms"
	"github.com/canvasai/collab/server/rpc"
)

// Below are the values of the default values of collab config.
const (
	DefaultRPCPort       = rpc.DefaultPort
	DefaultProfilingPort = profiling.DefaultPort

	DefaultHousekeepingInterval = 5 * time.Second

	DefaultSecretKey = "collab-secret"
)

// Config is the configuration for creating a Collab instance.
type Config struct {
	RPC          *rpc.Config          `yaml:"RPC"`
	Profiling    *profiling.Config    `yaml:"Profiling"`
	Housekeeping *housekeeping.Config `yaml:"Housekeeping"`
	Rooms        *rooms.Config        `yaml:"Rooms"`
	Auth         *auth.Config         `yaml:"Auth"`
	Backend      *backend.Config      `yaml:"Backend"`
	Mongo        *mongo.Config        `yaml:"Mongo"`
	Redis        *redis.Config        `yaml:"Redis"`
	Postgres     *postgres.Config     `yaml:"Postgres"`
}

// NewConfig returns a Config struct that contains reasonable defaults
// for most of the configurations.
func NewConfig() *Config {
	return newConfig(DefaultRPCPort, DefaultProfilingPort)
}

// NewConfigFromFile returns a Config struct for the given conf file.
func NewConfigFromFile(path string) (*Config, error) {
	conf := &Config{}
	bytes, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	if err = yaml.Unmarshal(bytes, conf); err != nil {
		return nil, fmt.Errorf("unmarshal config file: %w", err)
	}

	conf.ensureDefaultValue()
	return conf, nil
}

// RPCAddr returns the RPC address.
func (c *Config) RPCAddr() string {
	return fmt.Sprintf("localhost:%d", c.RPC.Port)
}

// Validate returns an error if the provided Config is invalidated.
func (c *Config) Validate() error {
	if err := c.RPC.Validate(); err != nil {
		return err
	}

	if c.Profiling != nil {
		if err := c.Profiling.Validate(); err != nil {
			return err
		}
	}

	if err := c.Housekeeping.Validate(); err != nil {
		return err
	}

	if err := c.Rooms.Validate(); err != nil {
		return err
	}

	if err := c.Auth.Validate(); err != nil {
		return err
	}

	if err := c.Backend.Validate(); err != nil {
		return err
	}

	if c.Mongo != nil {
		if err := c.Mongo.Validate(); err != nil {
			return err
		}
	}

	if c.Redis != nil {
		if err := c.Redis.Validate(); err != nil {
			return err
		}
	}

	if c.Postgres != nil {
		if err := c.Postgres.Validate(); err != nil {
			return err
		}
	}

	return nil
}

// ensureDefaultValue sets the value of the option to which the default value
// should be applied when the user does not input it.
func (c *Config) ensureDefaultValue() {
	if c.RPC == nil {
		c.RPC = &rpc.Config{}
	}
	c.RPC.EnsureDefaultValue()

	if c.Profiling != nil && c.Profiling.Port == 0 {
		c.Profiling.Port = DefaultProfilingPort
	}

	if c.Housekeeping == nil {
		c.Housekeeping = &housekeeping.Config{}
	}
	if c.Housekeeping.Interval == "" {
		c.Housekeeping.Interval = DefaultHousekeepingInterval.String()
	}

	if c.Rooms == nil {
		c.Rooms = &rooms.Config{}
	}
	c.Rooms.EnsureDefaultValue()

	if c.Auth == nil {
		c.Auth = &auth.Config{}
	}
	if c.Auth.Secret == "" {
		c.Auth.Secret = DefaultSecretKey
	}
	c.Auth.EnsureDefaultValue()

	if c.Backend == nil {
		c.Backend = &backend.Config{}
	}
	c.Backend.EnsureDefaultValue()

	if c.Mongo != nil {
		c.Mongo.EnsureDefaultValue()
	}
	if c.Redis != nil {
		c.Redis.EnsureDefaultValue()
	}
	if c.Postgres != nil {
		c.Postgres.EnsureDefaultValue()
	}
}

func newConfig(port int, profilingPort int) *Config {
	conf := &Config{
		RPC: &rpc.Config{
			Port: port,
		},
		Profiling: &profiling.Config{
			Port: profilingPort,
		},
	}
	conf.ensureDefaultValue()
	return conf
}
