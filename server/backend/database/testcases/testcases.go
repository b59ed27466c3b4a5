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

// Package testcases contains the test cases shared by every snapshot store.
package testcases

import (
	"context"
	"fmt"
	"sync"
	"testing"
	gotime "time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/canvasai/collab/server/backend/database"
)

// RunSnapshotStoreTest runs the shared scenarios against the given store.
func RunSnapshotStoreTest(t *testing.T, store database.SnapshotStore) {
	ctx := context.Background()

	t.Run("load missing snapshot test", func(t *testing.T) {
		_, err := store.Load(ctx, "missing-room")
		assert.ErrorIs(t, err, database.ErrSnapshotNotFound)
	})

	t.Run("save and load test", func(t *testing.T) {
		now := gotime.Now().UTC().Truncate(gotime.Millisecond)
		info := &database.SnapshotInfo{
			RoomID:     "room-save",
			ProjectRef: "project-1",
			Snapshot:   []byte(`{"revision":3}`),
			Revision:   3,
			UpdatedAt:  now,
		}
		require.NoError(t, store.Save(ctx, info))

		loaded, err := store.Load(ctx, "room-save")
		require.NoError(t, err)
		assert.Equal(t, info.RoomID, loaded.RoomID)
		assert.Equal(t, info.ProjectRef, loaded.ProjectRef)
		assert.Equal(t, info.Snapshot, loaded.Snapshot)
		assert.Equal(t, info.Revision, loaded.Revision)
		assert.True(t, now.Equal(loaded.UpdatedAt))
	})

	t.Run("stale snapshot does not overwrite newer test", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, &database.SnapshotInfo{
			RoomID: "room-stale", Snapshot: []byte(`{"revision":10}`), Revision: 10, UpdatedAt: gotime.Now(),
		}))
		require.NoError(t, store.Save(ctx, &database.SnapshotInfo{
			RoomID: "room-stale", Snapshot: []byte(`{"revision":4}`), Revision: 4, UpdatedAt: gotime.Now(),
		}))

		loaded, err := store.Load(ctx, "room-stale")
		require.NoError(t, err)
		assert.Equal(t, int64(10), loaded.Revision)
		assert.Equal(t, `{"revision":10}`, string(loaded.Snapshot))

		require.NoError(t, store.Save(ctx, &database.SnapshotInfo{
			RoomID: "room-stale", Snapshot: []byte(`{"revision":12}`), Revision: 12, UpdatedAt: gotime.Now(),
		}))
		loaded, err = store.Load(ctx, "room-stale")
		require.NoError(t, err)
		assert.Equal(t, int64(12), loaded.Revision)
	})

	t.Run("invalid snapshot info test", func(t *testing.T) {
		err := store.Save(ctx, &database.SnapshotInfo{RoomID: "room-invalid"})
		assert.ErrorIs(t, err, database.ErrInvalidSnapshotInfo)
	})

	t.Run("concurrent save test", func(t *testing.T) {
		const n = 10
		wg := sync.WaitGroup{}
		for i := 1; i <= n; i++ {
			wg.Add(1)
			go func(revision int64) {
				defer wg.Done()
				assert.NoError(t, store.Save(ctx, &database.SnapshotInfo{
					RoomID:    "room-concurrent",
					Snapshot:  []byte(fmt.Sprintf(`{"revision":%d}`, revision)),
					Revision:  revision,
					UpdatedAt: gotime.Now(),
				}))
			}(int64(i))
		}
		wg.Wait()

		loaded, err := store.Load(ctx, "room-concurrent")
		require.NoError(t, err)
		assert.Equal(t, int64(n), loaded.Revision)
	})
}
