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

package locker_test

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	gotime "time"

	"github.com/stretchr/testify/assert"

	"github.com/canvasai/collab/pkg/document/time"
	"github.com/canvasai/collab/pkg/locker"
)

func TestTable(t *testing.T) {
	now := gotime.Date(2026, 1, 1, 0, 0, 0, 0, gotime.UTC)

	t.Run("acquire and release test", func(t *testing.T) {
		table := locker.NewTable()

		lock, ok := table.Acquire("e1", "alice", locker.KindMove, 5*gotime.Second, now)
		assert.True(t, ok)
		assert.Equal(t, now.Add(5*gotime.Second), lock.ExpiresAt)

		current, ok := table.Acquire("e1", "bob", locker.KindResize, 5*gotime.Second, now)
		assert.False(t, ok)
		assert.Equal(t, time.ActorID("alice"), current.Holder)

		assert.False(t, table.Release("e1", "bob"))
		assert.True(t, table.Release("e1", "alice"))
		assert.False(t, table.Release("e1", "alice"))

		_, ok = table.Acquire("e1", "bob", locker.KindResize, 5*gotime.Second, now)
		assert.True(t, ok)
	})

	t.Run("holder extends its own lease test", func(t *testing.T) {
		table := locker.NewTable()
		_, ok := table.Acquire("e1", "alice", locker.KindMove, 5*gotime.Second, now)
		assert.True(t, ok)

		lock, ok := table.Acquire("e1", "alice", locker.KindMove, 5*gotime.Second, now.Add(3*gotime.Second))
		assert.True(t, ok)
		assert.Equal(t, now, lock.AcquiredAt)
		assert.Equal(t, now.Add(8*gotime.Second), lock.ExpiresAt)
	})

	t.Run("expired lock can be taken over test", func(t *testing.T) {
		table := locker.NewTable()
		_, ok := table.Acquire("e1", "alice", locker.KindMove, gotime.Second, now)
		assert.True(t, ok)

		_, held := table.Holder("e1", now.Add(gotime.Second))
		assert.False(t, held)

		lock, ok := table.Acquire("e1", "bob", locker.KindMove, gotime.Second, now.Add(2*gotime.Second))
		assert.True(t, ok)
		assert.Equal(t, time.ActorID("bob"), lock.Holder)
	})

	t.Run("sweep and release all test", func(t *testing.T) {
		table := locker.NewTable()
		table.Acquire("e1", "alice", locker.KindMove, gotime.Second, now)
		table.Acquire("e2", "alice", locker.KindMove, gotime.Minute, now)
		table.Acquire("e3", "bob", locker.KindEdit, gotime.Minute, now)

		expired := table.SweepExpired(now.Add(2 * gotime.Second))
		assert.Len(t, expired, 1)
		assert.Equal(t, "e1", expired[0].ElementID)

		released := table.ReleaseAll("alice")
		assert.Len(t, released, 1)
		assert.Equal(t, "e2", released[0].ElementID)

		locks := table.Locks(now)
		assert.Len(t, locks, 1)
		assert.Equal(t, time.ActorID("bob"), locks[0].Holder)
		assert.Equal(t, 1, table.Len())
	})

	t.Run("concurrent acquire yields exactly one holder test", func(t *testing.T) {
		for round := 0; round < 50; round++ {
			table := locker.NewTable()

			var wg sync.WaitGroup
			var granted int32
			for i := 0; i < 16; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					holder := time.ActorID(fmt.Sprintf("user-%d", i))
					if _, ok := table.Acquire("e1", holder, locker.KindMove, gotime.Minute, now); ok {
						atomic.AddInt32(&granted, 1)
					}
				}(i)
			}
			wg.Wait()

			assert.Equal(t, int32(1), atomic.LoadInt32(&granted))
		}
	})

	t.Run("kind validation test", func(t *testing.T) {
		assert.True(t, locker.KindRotate.IsValid())
		assert.False(t, locker.Kind("paint").IsValid())
	})
}
