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

package types_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/canvasai/collab/api/types"
	"github.com/canvasai/collab/pkg/document/operations"
	"github.com/canvasai/collab/pkg/errors"
)

func TestMessageValidation(t *testing.T) {
	t.Run("join request test", func(t *testing.T) {
		req := &types.JoinRequest{RoomID: "room-1", AuthToken: "token"}
		assert.NoError(t, req.Validate())

		req = &types.JoinRequest{RoomID: "room 1", AuthToken: "token"}
		err := req.Validate()
		assert.ErrorIs(t, err, types.ErrInvalidPayload)
		assert.Equal(t, errors.ErrCodeInvalidArgument, errors.StatusOf(err))

		req = &types.JoinRequest{RoomID: "room-1"}
		assert.ErrorIs(t, req.Validate(), types.ErrInvalidPayload)
	})

	t.Run("lock request test", func(t *testing.T) {
		req := &types.LockRequest{ElementID: "e1", Kind: "move", TTLMillis: 1500}
		assert.NoError(t, req.Validate())
		assert.Equal(t, int64(1500), req.TTL().Milliseconds())

		req = &types.LockRequest{ElementID: "e1", Kind: "paint"}
		err := req.Validate()
		assert.ErrorIs(t, err, types.ErrInvalidPayload)
		assert.Contains(t, err.Error(), "move, resize, rotate, edit")

		assert.ErrorIs(t, (&types.LockRelease{}).Validate(), types.ErrInvalidPayload)
	})

	t.Run("op submit test", func(t *testing.T) {
		assert.ErrorIs(t, (&types.OpSubmit{}).Validate(), types.ErrInvalidPayload)

		submit := &types.OpSubmit{Operation: &operations.Operation{
			ID:     operations.ID{Actor: "alice"},
			Kind:   operations.Delete,
			Target: "e1",
		}}
		assert.NoError(t, submit.Validate())

		submit.Operation.Kind = "paint"
		assert.ErrorIs(t, submit.Validate(), operations.ErrInvalidKind)
	})

	t.Run("presence update test", func(t *testing.T) {
		var update types.PresenceUpdate
		assert.NoError(t, json.Unmarshal([]byte(`{"cursor":{"x":1,"y":2},"selection":[]}`), &update))
		assert.NoError(t, update.Validate())

		delta := update.Delta()
		assert.Equal(t, 1.0, delta.Cursor.X)
		assert.NotNil(t, delta.Selection)
		assert.Empty(t, *delta.Selection)

		selection := []string{""}
		update = types.PresenceUpdate{Selection: &selection}
		assert.ErrorIs(t, update.Validate(), types.ErrInvalidPayload)
	})

	t.Run("lossy lane test", func(t *testing.T) {
		assert.True(t, types.MessagePresenceDelta.IsLossy())
		assert.False(t, types.MessageOpDelta.IsLossy())
		assert.False(t, types.MessageLockChanged.IsLossy())
		assert.False(t, types.MessageHeartbeatAck.IsLossy())
	})

	t.Run("reply test", func(t *testing.T) {
		assert.True(t, types.MessageOpAck.IsReply())
		assert.True(t, types.MessageJoinAck.IsReply())
		assert.True(t, types.MessageHeartbeatAck.IsReply())
		assert.False(t, types.MessageOpDelta.IsReply())
		assert.False(t, types.MessagePresenceDelta.IsReply())
	})
}

func TestRole(t *testing.T) {
	role, err := types.ParseRole("editor")
	assert.NoError(t, err)
	assert.True(t, role.CanEdit())
	assert.True(t, types.RoleOwner.CanEdit())
	assert.False(t, types.RoleViewer.CanEdit())
	assert.False(t, types.RoleCommenter.CanEdit())

	_, err = types.ParseRole("admin")
	assert.ErrorIs(t, err, types.ErrInvalidRole)
}
