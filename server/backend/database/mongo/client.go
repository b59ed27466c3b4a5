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

// Package mongo implements the snapshot store using MongoDB.
package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/canvasai/collab/server/backend/database"
	"github.com/canvasai/collab/server/logging"
)

// Client is a client that connects to Mongo DB and stores snapshots.
type Client struct {
	config *Config
	client *mongo.Client
}

// Dial creates an instance of Client and dials the given MongoDB.
func Dial(conf *Config) (*Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), conf.ParseConnectionTimeout())
	defer cancel()

	client, err := mongo.Connect(
		ctx,
		options.Client().ApplyURI(conf.ConnectionURI),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to mongo: %w", err)
	}

	ctxPing, cancelPing := context.WithTimeout(ctx, conf.ParsePingTimeout())
	defer cancelPing()

	if err := client.Ping(ctxPing, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	if err := ensureIndexes(ctx, client.Database(conf.Database)); err != nil {
		return nil, err
	}

	logging.DefaultLogger().Infof("MongoDB connected, URI: %s, DB: %s", conf.ConnectionURI, conf.Database)

	return &Client{
		config: conf,
		client: client,
	}, nil
}

// Close all resources of this client.
func (c *Client) Close() error {
	if err := c.client.Disconnect(context.Background()); err != nil {
		return fmt.Errorf("close mongo client: %w", err)
	}

	return nil
}

func (c *Client) collection(name string) *mongo.Collection {
	return c.client.Database(c.config.Database).Collection(name)
}

// Load returns the latest snapshot of the room.
func (c *Client) Load(ctx context.Context, roomID string) (*database.SnapshotInfo, error) {
	result := c.collection(ColSnapshots).FindOne(ctx, bson.M{
		"room_id": roomID,
	})

	info := &database.SnapshotInfo{}
	if err := result.Decode(info); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("%s: %w", roomID, database.ErrSnapshotNotFound)
		}
		return nil, fmt.Errorf("find snapshot of %s: %w", roomID, err)
	}

	return info, nil
}

// Save upserts the snapshot. The filter only matches a stored snapshot with
// a lower or equal revision, so a stale save turns into an insert that the
// unique index on room_id rejects.
func (c *Client) Save(ctx context.Context, info *database.SnapshotInfo) error {
	if err := info.Validate(); err != nil {
		return err
	}

	// A duplicate key error on the first attempt can also come from a
	// concurrent insert of the same room, so the upsert is tried once more.
	for attempt := 0; attempt < 2; attempt++ {
		_, err := c.collection(ColSnapshots).UpdateOne(ctx, bson.M{
			"room_id":  info.RoomID,
			"revision": bson.M{"$lte": info.Revision},
		}, bson.M{
			"$set": bson.M{
				"project_ref": info.ProjectRef,
				"snapshot":    info.Snapshot,
				"revision":    info.Revision,
				"updated_at":  info.UpdatedAt,
			},
		}, options.Update().SetUpsert(true))
		if err == nil {
			return nil
		}
		if !mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("upsert snapshot of %s: %w", info.RoomID, err)
		}
	}

	return nil
}
