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

package memory_test

import (
	"context"
	"testing"
	gotime "time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/canvasai/collab/server/backend/database"
	"github.com/canvasai/collab/server/backend/database/memory"
	"github.com/canvasai/collab/server/backend/database/testcases"
)

func TestDB(t *testing.T) {
	db, err := memory.New()
	require.NoError(t, err)
	defer func() {
		assert.NoError(t, db.Close())
	}()

	testcases.RunSnapshotStoreTest(t, db)

	t.Run("find snapshots by project test", func(t *testing.T) {
		ctx := context.Background()
		for _, roomID := range []string{"room-a", "room-b"} {
			require.NoError(t, db.Save(ctx, &database.SnapshotInfo{
				RoomID: roomID, ProjectRef: "project-x", Snapshot: []byte("{}"), Revision: 1, UpdatedAt: gotime.Now(),
			}))
		}

		infos, err := db.FindSnapshotsByProject(ctx, "project-x")
		require.NoError(t, err)
		assert.Len(t, infos, 2)
	})

	t.Run("loaded snapshot is detached test", func(t *testing.T) {
		ctx := context.Background()
		require.NoError(t, db.Save(ctx, &database.SnapshotInfo{
			RoomID: "room-detached", Snapshot: []byte("{}"), Revision: 1, UpdatedAt: gotime.Now(),
		}))

		loaded, err := db.Load(ctx, "room-detached")
		require.NoError(t, err)
		loaded.Snapshot[0] = '['

		again, err := db.Load(ctx, "room-detached")
		require.NoError(t, err)
		assert.Equal(t, "{}", string(again.Snapshot))
	})
}
