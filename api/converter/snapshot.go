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

package converter

import (
	"encoding/json"
	"fmt"

	"github.com/canvasai/collab/api/types"
	"github.com/canvasai/collab/pkg/document"
	"github.com/canvasai/collab/pkg/locker"
)

// SnapshotToBytes encodes the snapshot for storage.
func SnapshotToBytes(snap *document.Snapshot) ([]byte, error) {
	bytes, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}
	return bytes, nil
}

// BytesToSnapshot decodes and validates a stored snapshot.
func BytesToSnapshot(bytes []byte) (*document.Snapshot, error) {
	snap := &document.Snapshot{}
	if err := json.Unmarshal(bytes, snap); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %s: %w", err.Error(), document.ErrCorruptSnapshot)
	}
	if err := snap.Validate(); err != nil {
		return nil, err
	}
	return snap, nil
}

// CanvasToSnapshot converts a saved canvas payload, a JSON object mapping
// element ids to property objects, into a bootstrap snapshot. An empty
// payload is an empty canvas.
func CanvasToSnapshot(canvas []byte) (*document.Snapshot, error) {
	if len(canvas) == 0 || string(canvas) == "null" {
		return document.NewBootstrapSnapshot(nil), nil
	}

	var payload struct {
		Elements map[string]map[string]json.RawMessage `json:"elements"`
	}
	if err := json.Unmarshal(canvas, &payload); err != nil {
		return nil, fmt.Errorf("unmarshal canvas: %s: %w", err.Error(), document.ErrCorruptSnapshot)
	}
	return document.NewBootstrapSnapshot(payload.Elements), nil
}

// ToLockInfo converts the lock for participants.
func ToLockInfo(lock locker.Lock) types.LockInfo {
	return types.LockInfo{
		ElementID: lock.ElementID,
		Holder:    lock.Holder,
		Kind:      string(lock.Kind),
		ExpiresAt: lock.ExpiresAt,
	}
}

// ToLockInfos converts the locks for participants.
func ToLockInfos(locks []locker.Lock) []types.LockInfo {
	infos := make([]types.LockInfo, 0, len(locks))
	for _, lock := range locks {
		infos = append(infos, ToLockInfo(lock))
	}
	return infos
}
