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

// Package redis implements the snapshot store using Redis hashes.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/canvasai/collab/server/backend/database"
	"github.com/canvasai/collab/server/logging"
)

const (
	fieldProjectRef = "project_ref"
	fieldSnapshot   = "snapshot"
	fieldRevision   = "revision"
	fieldUpdatedAt  = "updated_at"
)

// saveScript stores the snapshot unless the stored one has a higher revision.
var saveScript = redis.NewScript(`
local current = redis.call('HGET', KEYS[1], 'revision')
if current and tonumber(current) > tonumber(ARGV[1]) then
  return 0
end
redis.call('HSET', KEYS[1], 'revision', ARGV[1], 'project_ref', ARGV[2], 'snapshot', ARGV[3], 'updated_at', ARGV[4])
return 1
`)

// Store is a snapshot store backed by Redis.
type Store struct {
	client *redis.Client
	prefix string
}

// Dial creates a new instance of Store and checks the connection.
func Dial(conf *Config) (*Store, error) {
	opts, err := redis.ParseURL(conf.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), conf.ParseDialTimeout())
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	logging.DefaultLogger().Infof("Redis connected, addr: %s", opts.Addr)

	return NewWithClient(client, conf.KeyPrefix), nil
}

// NewWithClient creates a store from an existing Redis client.
func NewWithClient(client *redis.Client, prefix string) *Store {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &Store{
		client: client,
		prefix: prefix,
	}
}

func (s *Store) key(roomID string) string {
	return s.prefix + roomID
}

// Load returns the latest snapshot of the room.
func (s *Store) Load(ctx context.Context, roomID string) (*database.SnapshotInfo, error) {
	fields, err := s.client.HGetAll(ctx, s.key(roomID)).Result()
	if err != nil {
		return nil, fmt.Errorf("load snapshot of %s: %w", roomID, err)
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("%s: %w", roomID, database.ErrSnapshotNotFound)
	}

	revision, err := strconv.ParseInt(fields[fieldRevision], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse revision of %s: %w", roomID, err)
	}
	updatedAt, err := time.Parse(time.RFC3339Nano, fields[fieldUpdatedAt])
	if err != nil {
		return nil, fmt.Errorf("parse updated_at of %s: %w", roomID, err)
	}

	return &database.SnapshotInfo{
		RoomID:     roomID,
		ProjectRef: fields[fieldProjectRef],
		Snapshot:   []byte(fields[fieldSnapshot]),
		Revision:   revision,
		UpdatedAt:  updatedAt,
	}, nil
}

// Save stores the snapshot unless a newer one is already stored.
func (s *Store) Save(ctx context.Context, info *database.SnapshotInfo) error {
	if err := info.Validate(); err != nil {
		return err
	}

	err := saveScript.Run(ctx, s.client, []string{s.key(info.RoomID)},
		info.Revision,
		info.ProjectRef,
		info.Snapshot,
		info.UpdatedAt.UTC().Format(time.RFC3339Nano),
	).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("save snapshot of %s: %w", info.RoomID, err)
	}

	return nil
}

// Ping checks if Redis is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (s *Store) Close() error {
	return s.client.Close()
}
