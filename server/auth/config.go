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

package auth

import (
	"errors"
	"fmt"
	"time"
)

// Default values of the configuration.
const (
	DefaultIssuer        = "canvasai"
	DefaultTokenDuration = 24 * time.Hour
	DefaultCacheSize     = 5000
	DefaultCacheTTL      = 10 * time.Second
)

// ErrEmptySecret is returned when no secret is configured.
var ErrEmptySecret = errors.New("auth secret is empty")

// Config is the configuration for verifying participant tokens.
type Config struct {
	// Secret is the HMAC secret shared with the token issuer.
	Secret string `yaml:"Secret"`

	// Issuer is the expected issuer of tokens.
	Issuer string `yaml:"Issuer"`

	// TokenDuration is the lifetime of tokens signed by `collab token`.
	TokenDuration string `yaml:"TokenDuration"`

	// CacheSize is the number of verified tokens cached.
	CacheSize int `yaml:"CacheSize"`

	// CacheTTL is how long a verified token stays cached.
	CacheTTL string `yaml:"CacheTTL"`
}

// EnsureDefaultValue fills the empty fields with their default values.
func (c *Config) EnsureDefaultValue() {
	if c.Issuer == "" {
		c.Issuer = DefaultIssuer
	}
	if c.TokenDuration == "" {
		c.TokenDuration = DefaultTokenDuration.String()
	}
	if c.CacheSize == 0 {
		c.CacheSize = DefaultCacheSize
	}
	if c.CacheTTL == "" {
		c.CacheTTL = DefaultCacheTTL.String()
	}
}

// Validate validates this config.
func (c *Config) Validate() error {
	if c.Secret == "" {
		return ErrEmptySecret
	}

	if _, err := time.ParseDuration(c.TokenDuration); err != nil {
		return fmt.Errorf(`invalid argument "%s" for "--auth-token-duration" flag: %w`, c.TokenDuration, err)
	}

	if c.CacheSize < 1 {
		return fmt.Errorf(`invalid argument "%d" for "--auth-cache-size" flag: must be positive`, c.CacheSize)
	}

	if _, err := time.ParseDuration(c.CacheTTL); err != nil {
		return fmt.Errorf(`invalid argument "%s" for "--auth-cache-ttl" flag: %w`, c.CacheTTL, err)
	}

	return nil
}

// ParseTokenDuration returns the lifetime of signed tokens.
func (c *Config) ParseTokenDuration() time.Duration {
	d, err := time.ParseDuration(c.TokenDuration)
	if err != nil {
		return DefaultTokenDuration
	}
	return d
}

// ParseCacheTTL returns the lifetime of cached verifications.
func (c *Config) ParseCacheTTL() time.Duration {
	d, err := time.ParseDuration(c.CacheTTL)
	if err != nil {
		return DefaultCacheTTL
	}
	return d
}
