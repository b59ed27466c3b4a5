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

package converter_test

import (
	"encoding/json"
	"fmt"
	"testing"
	gotime "time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/canvasai/collab/api/converter"
	"github.com/canvasai/collab/api/types"
	"github.com/canvasai/collab/pkg/document"
	"github.com/canvasai/collab/pkg/document/operations"
	"github.com/canvasai/collab/pkg/errors"
	"github.com/canvasai/collab/pkg/locker"
)

func TestEnvelope(t *testing.T) {
	t.Run("payload round trip test", func(t *testing.T) {
		bytes, err := converter.ToEnvelope(types.MessageLockRequest, "7", &types.LockRequest{
			ElementID: "e1",
			Kind:      "move",
		})
		require.NoError(t, err)

		env, err := converter.FromEnvelope(bytes)
		require.NoError(t, err)
		assert.Equal(t, types.MessageLockRequest, env.Type)
		assert.Equal(t, "7", env.ID)

		req, err := converter.DecodePayload[types.LockRequest](env)
		require.NoError(t, err)
		assert.Equal(t, "e1", req.ElementID)
	})

	t.Run("operation props round trip exactly test", func(t *testing.T) {
		op := &operations.Operation{
			ID:     operations.ID{Actor: "alice", Seq: 1, Lamport: 2},
			Kind:   operations.Insert,
			Target: "e1",
			Props:  map[string]json.RawMessage{"points": json.RawMessage(`[[0,1.5],[2,3]]`)},
		}
		bytes, err := converter.ToEnvelope(types.MessageOpDelta, "", &types.OpDelta{Operation: op})
		require.NoError(t, err)

		env, err := converter.FromEnvelope(bytes)
		require.NoError(t, err)
		delta, err := converter.DecodePayload[types.OpDelta](env)
		require.NoError(t, err)
		assert.Equal(t, op, delta.Operation)
	})

	t.Run("invalid frames test", func(t *testing.T) {
		_, err := converter.FromEnvelope([]byte(`{`))
		assert.ErrorIs(t, err, converter.ErrInvalidEnvelope)

		_, err = converter.FromEnvelope([]byte(`{"payload":{}}`))
		assert.ErrorIs(t, err, converter.ErrInvalidEnvelope)

		env := &types.Envelope{Type: types.MessageJoin, Payload: json.RawMessage(`{"roomId":3}`)}
		_, err = converter.DecodePayload[types.JoinRequest](env)
		assert.ErrorIs(t, err, converter.ErrInvalidEnvelope)

		env = &types.Envelope{Type: types.MessageJoin, Payload: json.RawMessage(`{"roomId":"r"}`)}
		_, err = converter.DecodePayload[types.JoinRequest](env)
		assert.ErrorIs(t, err, types.ErrInvalidPayload)
	})

	t.Run("error payload test", func(t *testing.T) {
		payload := converter.ToErrorPayload(fmt.Errorf("submit: %w", document.ErrUnknownElement))
		assert.Equal(t, "ErrUnknownElement", payload.Code)
		assert.Equal(t, errors.ErrCodeInvalidArgument.String(), payload.Status)

		payload = converter.ToErrorPayload(fmt.Errorf("plain"))
		assert.Equal(t, errors.ErrCodeInternal.String(), payload.Status)
		assert.Equal(t, "internal", payload.Code)
	})
}

func TestSnapshotBytes(t *testing.T) {
	doc := document.New()
	_, err := doc.ApplyLocal(&operations.Operation{
		ID:     operations.ID{Actor: "alice"},
		Kind:   operations.Insert,
		Target: "e1",
		Props:  map[string]json.RawMessage{"fill": json.RawMessage(`"red"`)},
	})
	require.NoError(t, err)

	bytes, err := converter.SnapshotToBytes(doc.Snapshot())
	require.NoError(t, err)
	snap, err := converter.BytesToSnapshot(bytes)
	require.NoError(t, err)

	loaded, err := document.NewFromSnapshot(snap)
	require.NoError(t, err)
	assert.Equal(t, doc.Marshal(), loaded.Marshal())

	_, err = converter.BytesToSnapshot([]byte(`not json`))
	assert.ErrorIs(t, err, document.ErrCorruptSnapshot)
}

func TestCanvasToSnapshot(t *testing.T) {
	snap, err := converter.CanvasToSnapshot([]byte(`{"elements":{"e1":{"type":"rect","x":1}}}`))
	require.NoError(t, err)
	doc, err := document.NewFromSnapshot(snap)
	require.NoError(t, err)
	assert.Equal(t, `{"e1":{"type":"rect","x":1}}`, doc.Marshal())

	snap, err = converter.CanvasToSnapshot(nil)
	require.NoError(t, err)
	assert.Empty(t, snap.Elements)

	_, err = converter.CanvasToSnapshot([]byte(`[`))
	assert.ErrorIs(t, err, document.ErrCorruptSnapshot)
}

func TestLockInfo(t *testing.T) {
	now := gotime.Now()
	infos := converter.ToLockInfos([]locker.Lock{{ElementID: "e1", Holder: "alice", Kind: locker.KindMove, ExpiresAt: now}})
	assert.Equal(t, []types.LockInfo{{ElementID: "e1", Holder: "alice", Kind: "move", ExpiresAt: now}}, infos)
}
