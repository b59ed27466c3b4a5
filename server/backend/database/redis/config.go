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

package redis

import (
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Default values of the configuration.
const (
	DefaultKeyPrefix   = "collab:snapshot:"
	DefaultDialTimeout = 5 * time.Second
)

// ErrEmptyURL is returned when the redis URL is empty.
var ErrEmptyURL = errors.New("redis URL is empty")

// Config is the configuration for creating a Store instance.
type Config struct {
	URL         string `yaml:"URL"`
	KeyPrefix   string `yaml:"KeyPrefix"`
	DialTimeout string `yaml:"DialTimeout"`
}

// Validate returns an error if the provided Config is invalidated.
func (c *Config) Validate() error {
	if c.URL == "" {
		return ErrEmptyURL
	}

	if _, err := redis.ParseURL(c.URL); err != nil {
		return fmt.Errorf(`invalid argument "%s" for "--redis-url" flag: %w`, c.URL, err)
	}

	if _, err := time.ParseDuration(c.DialTimeout); err != nil {
		return fmt.Errorf(`invalid argument "%s" for "--redis-dial-timeout" flag: %w`, c.DialTimeout, err)
	}

	return nil
}

// EnsureDefaultValue fills the empty fields with their default values.
func (c *Config) EnsureDefaultValue() {
	if c.KeyPrefix == "" {
		c.KeyPrefix = DefaultKeyPrefix
	}
	if c.DialTimeout == "" {
		c.DialTimeout = DefaultDialTimeout.String()
	}
}

// ParseDialTimeout returns the dial timeout duration.
func (c *Config) ParseDialTimeout() time.Duration {
	result, err := time.ParseDuration(c.DialTimeout)
	if err != nil {
		return DefaultDialTimeout
	}
	return result
}
