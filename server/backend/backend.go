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

// Package backend provides the backend of the collab server: the snapshot
// store, the project bootstrapper and the background task manager shared by
// the rooms.
package backend

import (
	"context"
	"errors"
	"fmt"

	"github.com/canvasai/collab/server/backend/background"
	"github.com/canvasai/collab/server/backend/database"
	memdb "github.com/canvasai/collab/server/backend/database/memory"
	"github.com/canvasai/collab/server/backend/database/mongo"
	"github.com/canvasai/collab/server/backend/database/redis"
	"github.com/canvasai/collab/server/logging"
	"github.com/canvasai/collab/server/profiling/prometheus"
	"github.com/canvasai/collab/server/projects"
	"github.com/canvasai/collab/server/projects/postgres"
)

// Backend manages the resources the rooms depend on.
type Backend struct {
	Config *Config

	// Store persists room snapshots.
	Store database.SnapshotStore
	// StoreName is the type of Store.
	StoreName string

	// Projects bootstraps new rooms and resolves roles.
	Projects projects.Bootstrapper

	// Background is used to manage background tasks.
	Background *background.Background

	// Metrics is used to expose metrics.
	Metrics *prometheus.Metrics
}

// New creates a new instance of Backend.
func New(
	conf *Config,
	mongoConf *mongo.Config,
	redisConf *redis.Config,
	postgresConf *postgres.Config,
	metrics *prometheus.Metrics,
) (*Backend, error) {
	// 01. Create the snapshot store. An explicit store type wins; otherwise
	// MongoDB, then Redis, then memory.
	storeType := conf.StoreType
	if storeType == "" {
		switch {
		case mongoConf != nil:
			storeType = StoreMongo
		case redisConf != nil:
			storeType = StoreRedis
		default:
			storeType = StoreMemory
		}
	}

	store, err := newStore(storeType, mongoConf, redisConf)
	if err != nil {
		return nil, err
	}

	// 02. Create the project bootstrapper. Without a Postgres section every
	// user gets the default role on an empty canvas.
	var bootstrapper projects.Bootstrapper
	if postgresConf != nil {
		bootstrapper, err = postgres.Dial(context.Background(), postgresConf)
		if err != nil {
			_ = store.Close()
			return nil, err
		}
	} else {
		bootstrapper = projects.NewStatic(conf.DefaultRole)
	}

	// 03. Create the background task manager.
	bg := background.New(metrics)

	logging.DefaultLogger().Infof("backend created: %s store", storeType)
	return &Backend{
		Config:     conf,
		Store:      store,
		StoreName:  storeType,
		Projects:   bootstrapper,
		Background: bg,
		Metrics:    metrics,
	}, nil
}

func newStore(storeType string, mongoConf *mongo.Config, redisConf *redis.Config) (database.SnapshotStore, error) {
	switch storeType {
	case StoreMongo:
		if mongoConf == nil {
			return nil, errors.New("mongo store requires a Mongo section")
		}
		client, err := mongo.Dial(mongoConf)
		if err != nil {
			return nil, err
		}
		return client, nil
	case StoreRedis:
		if redisConf == nil {
			return nil, errors.New("redis store requires a Redis section")
		}
		store, err := redis.Dial(redisConf)
		if err != nil {
			return nil, err
		}
		return store, nil
	case StoreMemory:
		db, err := memdb.New()
		if err != nil {
			return nil, err
		}
		return db, nil
	}
	return nil, fmt.Errorf("unknown store type %q", storeType)
}

// Shutdown closes all resources of this instance. It waits for the
// background tasks, such as checkpoints, to finish first.
func (b *Backend) Shutdown() error {
	var errs []error

	b.Background.Close()

	if err := b.Projects.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := b.Store.Close(); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	logging.DefaultLogger().Infof("backend stopped")
	return nil
}
