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

// Package database provides the snapshot persistence adapters of rooms.
package database

import (
	"context"
	"fmt"
	gotime "time"

	"github.com/canvasai/collab/pkg/errors"
)

var (
	// ErrSnapshotNotFound is returned when no snapshot is stored for a room.
	ErrSnapshotNotFound = errors.NotFound("snapshot not found").WithCode("ErrSnapshotNotFound")

	// ErrInvalidSnapshotInfo is returned when the snapshot info is malformed.
	ErrInvalidSnapshotInfo = errors.InvalidArgument("invalid snapshot info").WithCode("ErrInvalidSnapshotInfo")
)

// SnapshotInfo is a structure representing the persisted document of a room.
type SnapshotInfo struct {
	// RoomID is the id of the room the snapshot belongs to.
	RoomID string `bson:"room_id" json:"room_id"`

	// ProjectRef is the reference of the project the room edits.
	ProjectRef string `bson:"project_ref" json:"project_ref"`

	// Snapshot is the encoded document snapshot.
	Snapshot []byte `bson:"snapshot" json:"snapshot"`

	// Revision counts the operations applied to the room document. It
	// orders snapshots of the same room.
	Revision int64 `bson:"revision" json:"revision"`

	// UpdatedAt is the time when the snapshot was saved.
	UpdatedAt gotime.Time `bson:"updated_at" json:"updated_at"`
}

// Validate validates the snapshot info before it is saved.
func (i *SnapshotInfo) Validate() error {
	if i == nil || i.RoomID == "" {
		return fmt.Errorf("room id is empty: %w", ErrInvalidSnapshotInfo)
	}
	if len(i.Snapshot) == 0 {
		return fmt.Errorf("snapshot of %s is empty: %w", i.RoomID, ErrInvalidSnapshotInfo)
	}
	if i.Revision < 0 {
		return fmt.Errorf("revision of %s is negative: %w", i.RoomID, ErrInvalidSnapshotInfo)
	}
	return nil
}

// DeepCopy returns a deep copy of the snapshot info.
func (i *SnapshotInfo) DeepCopy() *SnapshotInfo {
	if i == nil {
		return nil
	}

	snapshot := make([]byte, len(i.Snapshot))
	copy(snapshot, i.Snapshot)
	return &SnapshotInfo{
		RoomID:     i.RoomID,
		ProjectRef: i.ProjectRef,
		Snapshot:   snapshot,
		Revision:   i.Revision,
		UpdatedAt:  i.UpdatedAt,
	}
}

// SnapshotStore stores the latest snapshot of each room.
type SnapshotStore interface {
	// Load returns the latest snapshot of the room. ErrSnapshotNotFound is
	// returned when the room has never been checkpointed.
	Load(ctx context.Context, roomID string) (*SnapshotInfo, error)

	// Save stores the snapshot. A stored snapshot with a higher revision is
	// kept.
	Save(ctx context.Context, info *SnapshotInfo) error

	// Close closes the store.
	Close() error
}
