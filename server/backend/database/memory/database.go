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

// Package memory implements the snapshot store using an in-memory database.
package memory

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-memdb"

	"github.com/canvasai/collab/server/backend/database"
)

// DB is an in-memory snapshot store backed by go-memdb.
type DB struct {
	db *memdb.MemDB
}

// New returns a new in-memory database.
func New() (*DB, error) {
	memDB, err := memdb.NewMemDB(schema)
	if err != nil {
		return nil, fmt.Errorf("new memdb: %w", err)
	}

	return &DB{
		db: memDB,
	}, nil
}

// Close closes the database.
func (d *DB) Close() error {
	return nil
}

// Load returns the latest snapshot of the room.
func (d *DB) Load(_ context.Context, roomID string) (*database.SnapshotInfo, error) {
	txn := d.db.Txn(false)
	defer txn.Abort()

	raw, err := txn.First(tblSnapshots, "id", roomID)
	if err != nil {
		return nil, fmt.Errorf("find snapshot of %s: %w", roomID, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("%s: %w", roomID, database.ErrSnapshotNotFound)
	}

	return raw.(*database.SnapshotInfo).DeepCopy(), nil
}

// Save stores the snapshot unless a newer one is already stored.
func (d *DB) Save(_ context.Context, info *database.SnapshotInfo) error {
	if err := info.Validate(); err != nil {
		return err
	}

	txn := d.db.Txn(true)
	defer txn.Abort()

	raw, err := txn.First(tblSnapshots, "id", info.RoomID)
	if err != nil {
		return fmt.Errorf("find snapshot of %s: %w", info.RoomID, err)
	}
	if raw != nil && raw.(*database.SnapshotInfo).Revision > info.Revision {
		return nil
	}

	if err := txn.Insert(tblSnapshots, info.DeepCopy()); err != nil {
		return fmt.Errorf("insert snapshot of %s: %w", info.RoomID, err)
	}
	txn.Commit()
	return nil
}

// FindSnapshotsByProject returns the snapshots of every room editing the
// project.
func (d *DB) FindSnapshotsByProject(_ context.Context, projectRef string) ([]*database.SnapshotInfo, error) {
	txn := d.db.Txn(false)
	defer txn.Abort()

	iter, err := txn.Get(tblSnapshots, "project_ref", projectRef)
	if err != nil {
		return nil, fmt.Errorf("find snapshots of %s: %w", projectRef, err)
	}

	var infos []*database.SnapshotInfo
	for raw := iter.Next(); raw != nil; raw = iter.Next() {
		infos = append(infos, raw.(*database.SnapshotInfo).DeepCopy())
	}
	return infos, nil
}
