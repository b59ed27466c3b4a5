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

package rooms

import (
	"fmt"
	"time"
)

// Default values of the configuration.
const (
	DefaultGracePeriod            = 30 * time.Second
	DefaultPresenceTTL            = 30 * time.Second
	DefaultHeartbeatTimeout       = 30 * time.Second
	DefaultLockTTL                = 10 * time.Second
	DefaultLockMaxTTL             = 60 * time.Second
	DefaultCommandQueueSize       = 256
	DefaultOutboundQueueSize      = 256
	DefaultCheckpointMaxRetries   = 5
	DefaultCheckpointBaseInterval = 200 * time.Millisecond
	DefaultCheckpointMaxInterval  = 5 * time.Second
	DefaultStorageTimeout         = 10 * time.Second
)

// Config is the configuration of rooms.
type Config struct {
	// GracePeriod is how long an empty room is kept before it is closed.
	GracePeriod string `yaml:"GracePeriod"`

	// PresenceTTL is how long a presence record lives without refresh.
	PresenceTTL string `yaml:"PresenceTTL"`

	// HeartbeatTimeout is how long a participant may stay silent before it
	// is removed from the room.
	HeartbeatTimeout string `yaml:"HeartbeatTimeout"`

	// LockTTL is the lease of a lock requested without a TTL.
	LockTTL string `yaml:"LockTTL"`

	// LockMaxTTL caps the lease of a lock.
	LockMaxTTL string `yaml:"LockMaxTTL"`

	// CommandQueueSize is the capacity of the command queue of a room.
	CommandQueueSize int `yaml:"CommandQueueSize"`

	// OutboundQueueSize is the capacity of the outbound queue of a
	// participant.
	OutboundQueueSize int `yaml:"OutboundQueueSize"`

	// CheckpointMaxRetries is the number of retries of a failed checkpoint.
	CheckpointMaxRetries uint64 `yaml:"CheckpointMaxRetries"`

	// CheckpointBaseInterval is the wait before the first retry.
	CheckpointBaseInterval string `yaml:"CheckpointBaseInterval"`

	// CheckpointMaxInterval caps the wait between retries.
	CheckpointMaxInterval string `yaml:"CheckpointMaxInterval"`

	// StorageTimeout bounds a single load or save of a snapshot.
	StorageTimeout string `yaml:"StorageTimeout"`
}

// EnsureDefaultValue fills the empty fields with their default values.
func (c *Config) EnsureDefaultValue() {
	if c.GracePeriod == "" {
		c.GracePeriod = DefaultGracePeriod.String()
	}
	if c.PresenceTTL == "" {
		c.PresenceTTL = DefaultPresenceTTL.String()
	}
	if c.HeartbeatTimeout == "" {
		c.HeartbeatTimeout = DefaultHeartbeatTimeout.String()
	}
	if c.LockTTL == "" {
		c.LockTTL = DefaultLockTTL.String()
	}
	if c.LockMaxTTL == "" {
		c.LockMaxTTL = DefaultLockMaxTTL.String()
	}
	if c.CommandQueueSize == 0 {
		c.CommandQueueSize = DefaultCommandQueueSize
	}
	if c.OutboundQueueSize == 0 {
		c.OutboundQueueSize = DefaultOutboundQueueSize
	}
	if c.CheckpointMaxRetries == 0 {
		c.CheckpointMaxRetries = DefaultCheckpointMaxRetries
	}
	if c.CheckpointBaseInterval == "" {
		c.CheckpointBaseInterval = DefaultCheckpointBaseInterval.String()
	}
	if c.CheckpointMaxInterval == "" {
		c.CheckpointMaxInterval = DefaultCheckpointMaxInterval.String()
	}
	if c.StorageTimeout == "" {
		c.StorageTimeout = DefaultStorageTimeout.String()
	}
}

// Validate validates this config.
func (c *Config) Validate() error {
	durations := []struct {
		flag  string
		value string
	}{
		{"--room-grace-period", c.GracePeriod},
		{"--presence-ttl", c.PresenceTTL},
		{"--heartbeat-timeout", c.HeartbeatTimeout},
		{"--lock-ttl", c.LockTTL},
		{"--lock-max-ttl", c.LockMaxTTL},
		{"--checkpoint-base-interval", c.CheckpointBaseInterval},
		{"--checkpoint-max-interval", c.CheckpointMaxInterval},
		{"--storage-timeout", c.StorageTimeout},
	}
	for _, d := range durations {
		parsed, err := time.ParseDuration(d.value)
		if err != nil {
			return fmt.Errorf(`invalid argument "%s" for "%s" flag: %w`, d.value, d.flag, err)
		}
		if parsed <= 0 {
			return fmt.Errorf(`invalid argument "%s" for "%s" flag: must be positive`, d.value, d.flag)
		}
	}

	if c.mustParse(c.LockTTL) > c.mustParse(c.LockMaxTTL) {
		return fmt.Errorf(`lock ttl "%s" exceeds lock max ttl "%s"`, c.LockTTL, c.LockMaxTTL)
	}

	if c.CommandQueueSize < 1 {
		return fmt.Errorf(`invalid argument "%d" for "--room-command-queue-size" flag: must be positive`, c.CommandQueueSize)
	}
	if c.OutboundQueueSize < 1 {
		return fmt.Errorf(`invalid argument "%d" for "--outbound-queue-size" flag: must be positive`, c.OutboundQueueSize)
	}

	return nil
}

func (c *Config) mustParse(value string) time.Duration {
	d, _ := time.ParseDuration(value)
	return d
}

// options is the parsed form of Config.
type options struct {
	gracePeriod       time.Duration
	presenceTTL       time.Duration
	heartbeatTimeout  time.Duration
	lockTTL           time.Duration
	lockMaxTTL        time.Duration
	commandQueueSize  int
	outboundQueueSize int
	checkpointRetries uint64
	checkpointBase    time.Duration
	checkpointMax     time.Duration
	storageTimeout    time.Duration
}

func (c *Config) options() options {
	return options{
		gracePeriod:       c.mustParse(c.GracePeriod),
		presenceTTL:       c.mustParse(c.PresenceTTL),
		heartbeatTimeout:  c.mustParse(c.HeartbeatTimeout),
		lockTTL:           c.mustParse(c.LockTTL),
		lockMaxTTL:        c.mustParse(c.LockMaxTTL),
		commandQueueSize:  c.CommandQueueSize,
		outboundQueueSize: c.OutboundQueueSize,
		checkpointRetries: c.CheckpointMaxRetries,
		checkpointBase:    c.mustParse(c.CheckpointBaseInterval),
		checkpointMax:     c.mustParse(c.CheckpointMaxInterval),
		storageTimeout:    c.mustParse(c.StorageTimeout),
	}
}
