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

//go:build integration

package integration

import (
	"context"
	"testing"
	gotime "time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/canvasai/collab/test/helper"
)

func TestLock(t *testing.T) {
	ctx := context.Background()

	t.Run("second holder is refused test", func(t *testing.T) {
		clients := helper.JoinedClients(ctx, t, defaultServer, helper.TestRoomID(t), 2)
		c1, c2 := clients[0], clients[1]

		result, err := c1.AcquireLock(ctx, "rect-1", "move", gotime.Second)
		require.NoError(t, err)
		assert.True(t, result.Granted)

		result, err = c2.AcquireLock(ctx, "rect-1", "resize", gotime.Second)
		require.NoError(t, err)
		assert.False(t, result.Granted)
		assert.Equal(t, c1.ID(), result.Holder)

		assert.Eventually(t, func() bool {
			lock, ok := c2.Lock("rect-1")
			return ok && lock.Holder == c1.ID()
		}, 5*gotime.Second, 10*gotime.Millisecond)
	})

	t.Run("released lock can be taken test", func(t *testing.T) {
		clients := helper.JoinedClients(ctx, t, defaultServer, helper.TestRoomID(t), 2)
		c1, c2 := clients[0], clients[1]

		result, err := c1.AcquireLock(ctx, "rect-1", "edit", 0)
		require.NoError(t, err)
		require.True(t, result.Granted)
		require.NoError(t, c1.ReleaseLock(ctx, "rect-1"))

		assert.Eventually(t, func() bool {
			result, err := c2.AcquireLock(ctx, "rect-1", "edit", 0)
			return err == nil && result.Granted
		}, 5*gotime.Second, 10*gotime.Millisecond)
	})

	t.Run("lock of a leaving participant is released test", func(t *testing.T) {
		roomID := helper.TestRoomID(t)
		c1 := helper.JoinedClient(ctx, t, defaultServer, roomID, "alice")
		c2 := helper.JoinedClient(ctx, t, defaultServer, roomID, "bob")

		result, err := c2.AcquireLock(ctx, "rect-1", "rotate", 5*gotime.Second)
		require.NoError(t, err)
		require.True(t, result.Granted)

		assert.Eventually(t, func() bool {
			_, ok := c1.Lock("rect-1")
			return ok
		}, 5*gotime.Second, 10*gotime.Millisecond)

		require.NoError(t, c2.Close())
		assert.Eventually(t, func() bool {
			_, ok := c1.Lock("rect-1")
			return !ok
		}, 5*gotime.Second, 10*gotime.Millisecond)
	})

	t.Run("invalid kind is rejected test", func(t *testing.T) {
		cli := helper.JoinedClient(ctx, t, defaultServer, helper.TestRoomID(t), "alice")

		_, err := cli.AcquireLock(ctx, "rect-1", "spin", 0)
		assert.Error(t, err)
	})
}
