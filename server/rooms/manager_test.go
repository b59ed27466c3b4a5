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

package rooms_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	gotime "time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/canvasai/collab/api/converter"
	"github.com/canvasai/collab/api/types"
	"github.com/canvasai/collab/pkg/document"
	"github.com/canvasai/collab/pkg/document/operations"
	"github.com/canvasai/collab/pkg/document/time"
	pkgerrors "github.com/canvasai/collab/pkg/errors"
	"github.com/canvasai/collab/pkg/presence"
	"github.com/canvasai/collab/server/backend/background"
	"github.com/canvasai/collab/server/backend/database"
	"github.com/canvasai/collab/server/backend/database/memory"
	"github.com/canvasai/collab/server/backend/pubsub"
	"github.com/canvasai/collab/server/profiling/prometheus"
	"github.com/canvasai/collab/server/projects"
	"github.com/canvasai/collab/server/rooms"
)

var (
	alice = &types.Identity{UserID: "alice", Name: "Alice"}
	bob   = &types.Identity{UserID: "bob", Name: "Bob"}
	carol = &types.Identity{UserID: "carol", Name: "Carol"}
)

type clock struct {
	mu  sync.Mutex
	now gotime.Time
}

func (c *clock) Now() gotime.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d gotime.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type env struct {
	manager    *rooms.Manager
	store      database.SnapshotStore
	projects   *projects.Static
	background *background.Background
	clock      *clock
}

func newEnv(t *testing.T, store database.SnapshotStore, configure func(conf *rooms.Config)) *env {
	if store == nil {
		db, err := memory.New()
		require.NoError(t, err)
		store = db
	}

	conf := &rooms.Config{
		GracePeriod:            "1h",
		CheckpointMaxRetries:   2,
		CheckpointBaseInterval: "1ms",
		CheckpointMaxInterval:  "5ms",
	}
	if configure != nil {
		configure(conf)
	}
	conf.EnsureDefaultValue()

	metrics, err := prometheus.NewMetrics()
	require.NoError(t, err)
	bg := background.New(metrics)
	static := projects.NewStatic(types.RoleEditor)

	manager, err := rooms.NewManager(conf, rooms.Backends{
		Store:      store,
		StoreName:  "memory",
		Projects:   static,
		Metrics:    metrics,
		Background: bg,
	})
	require.NoError(t, err)

	c := &clock{now: gotime.Date(2026, 1, 1, 0, 0, 0, 0, gotime.UTC)}
	manager.SetNow(c.Now)

	t.Cleanup(func() {
		assert.NoError(t, manager.Shutdown(context.Background()))
		bg.Close()
	})

	return &env{manager: manager, store: store, projects: static, background: bg, clock: c}
}

func drain(t *testing.T, sub *pubsub.Subscription) []*types.Envelope {
	msgs, _ := sub.Drain()
	envs := make([]*types.Envelope, 0, len(msgs))
	for _, msg := range msgs {
		e, err := converter.FromEnvelope(msg.Data)
		require.NoError(t, err)
		envs = append(envs, e)
	}
	return envs
}

func typesOf(envs []*types.Envelope) []types.MessageType {
	var msgTypes []types.MessageType
	for _, e := range envs {
		msgTypes = append(msgTypes, e.Type)
	}
	return msgTypes
}

func insert(target string, props string) *operations.Operation {
	var m map[string]json.RawMessage
	if err := json.Unmarshal([]byte(props), &m); err != nil {
		panic(err)
	}
	return &operations.Operation{Kind: operations.Insert, Target: target, Props: m}
}

func update(target string, props string) *operations.Operation {
	o := insert(target, props)
	o.Kind = operations.Update
	return o
}

func TestJoin(t *testing.T) {
	ctx := context.Background()

	t.Run("join bootstraps the participant test", func(t *testing.T) {
		e := newEnv(t, nil, nil)
		e.projects.SetCanvas("project-1", []byte(`{"elements":{"rect-1":{"x":1}}}`))

		result, err := e.manager.Join(ctx, "room-1", "project-1", alice, "req-1")
		require.NoError(t, err)
		assert.Equal(t, time.ActorID("alice"), result.Session.ParticipantID)
		assert.Equal(t, presence.Palette[0], result.Ack.Color)
		assert.Len(t, result.Ack.Participants, 1)
		assert.Contains(t, result.Ack.Document.Live(), "rect-1")

		envs := drain(t, result.Subscription)
		require.Len(t, envs, 1)
		assert.Equal(t, types.MessageJoinAck, envs[0].Type)
		assert.Equal(t, "req-1", envs[0].ID)

		second, err := e.manager.Join(ctx, "room-1", "project-1", bob, "req-2")
		require.NoError(t, err)
		assert.Equal(t, presence.Palette[1], second.Ack.Color)
		assert.Len(t, second.Ack.Participants, 2)
		assert.Len(t, second.Ack.Presence, 2)

		assert.Equal(t, []types.MessageType{types.MessageParticipantJoined}, typesOf(drain(t, result.Subscription)))

		summaries, err := e.manager.Rooms(ctx)
		require.NoError(t, err)
		require.Len(t, summaries, 1)
		assert.Equal(t, types.RoomActive, summaries[0].State)
		assert.Equal(t, 2, summaries[0].Participants)
		assert.Equal(t, 1, summaries[0].Elements)
	})

	t.Run("project defaults to the room id test", func(t *testing.T) {
		e := newEnv(t, nil, nil)
		e.projects.SetCanvas("room-1", []byte(`{"elements":{"circle-1":{"r":3}}}`))

		result, err := e.manager.Join(ctx, "room-1", "", alice, "")
		require.NoError(t, err)
		assert.Contains(t, result.Ack.Document.Live(), "circle-1")

		_, err = e.manager.Join(ctx, "room-1", "project-2", bob, "")
		assert.ErrorIs(t, err, rooms.ErrProjectMismatch)
	})

	t.Run("non collaborator is refused test", func(t *testing.T) {
		metrics, err := prometheus.NewMetrics()
		require.NoError(t, err)
		db, err := memory.New()
		require.NoError(t, err)
		bg := background.New(metrics)
		defer bg.Close()

		conf := &rooms.Config{}
		conf.EnsureDefaultValue()
		manager, err := rooms.NewManager(conf, rooms.Backends{
			Store: db, Projects: projects.NewStatic(""), Metrics: metrics, Background: bg,
		})
		require.NoError(t, err)

		_, err = manager.Join(ctx, "room-1", "", alice, "")
		assert.ErrorIs(t, err, projects.ErrNotCollaborator)
		assert.Equal(t, 0, manager.Len())
	})

	t.Run("storage failure refuses the join test", func(t *testing.T) {
		e := newEnv(t, &failingStore{}, nil)

		_, err := e.manager.Join(ctx, "room-1", "", alice, "")
		assert.ErrorIs(t, err, rooms.ErrStorageUnavailable)
		assert.Equal(t, pkgerrors.ErrCodeUnavailable, pkgerrors.StatusOf(err))
		assert.Eventually(t, func() bool { return e.manager.Len() == 0 }, gotime.Second, 5*gotime.Millisecond)
	})

	t.Run("reconnect replaces the previous session test", func(t *testing.T) {
		e := newEnv(t, nil, nil)

		first, err := e.manager.Join(ctx, "room-1", "", alice, "")
		require.NoError(t, err)
		second, err := e.manager.Join(ctx, "room-1", "", alice, "")
		require.NoError(t, err)

		assert.True(t, first.Subscription.IsClosed())
		assert.Equal(t, first.Participant.Color, second.Participant.Color)

		_, err = e.manager.SubmitOperation(ctx, first.Session, insert("rect-1", `{"x":1}`))
		assert.ErrorIs(t, err, rooms.ErrNotJoined)

		assert.NoError(t, e.manager.Leave(ctx, first.Session, types.LeaveDisconnect))
		summaries, err := e.manager.Rooms(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, summaries[0].Participants)
	})
}

func TestSubmitOperation(t *testing.T) {
	ctx := context.Background()

	t.Run("operation is broadcast to the other participants test", func(t *testing.T) {
		e := newEnv(t, nil, nil)
		a, err := e.manager.Join(ctx, "room-1", "", alice, "")
		require.NoError(t, err)
		b, err := e.manager.Join(ctx, "room-1", "", bob, "")
		require.NoError(t, err)
		drain(t, a.Subscription)
		drain(t, b.Subscription)

		delta, err := e.manager.SubmitOperation(ctx, a.Session, insert("rect-1", `{"x":1}`))
		require.NoError(t, err)
		assert.False(t, delta.Duplicate)
		assert.Equal(t, time.ActorID("alice"), delta.Operation.ID.Actor)
		assert.Equal(t, int64(1), delta.Operation.ID.Seq)

		assert.Empty(t, drain(t, a.Subscription))
		envs := drain(t, b.Subscription)
		require.Len(t, envs, 1)
		assert.Equal(t, types.MessageOpDelta, envs[0].Type)

		payload, err := converter.DecodePayload[types.OpDelta](envs[0])
		require.NoError(t, err)
		assert.Equal(t, delta.Operation.ID, payload.Operation.ID)

		dup, err := e.manager.SubmitOperation(ctx, a.Session, delta.Operation)
		require.NoError(t, err)
		assert.True(t, dup.Duplicate)
		assert.Empty(t, drain(t, b.Subscription))
	})

	t.Run("invalid operation is reported to the sender only test", func(t *testing.T) {
		e := newEnv(t, nil, nil)
		a, err := e.manager.Join(ctx, "room-1", "", alice, "")
		require.NoError(t, err)
		b, err := e.manager.Join(ctx, "room-1", "", bob, "")
		require.NoError(t, err)
		drain(t, b.Subscription)

		_, err = e.manager.SubmitOperation(ctx, a.Session, update("missing", `{"x":1}`))
		assert.ErrorIs(t, err, document.ErrUnknownElement)
		assert.Equal(t, pkgerrors.ErrCodeInvalidArgument, pkgerrors.StatusOf(err))
		assert.Empty(t, drain(t, b.Subscription))

		_, err = e.manager.SubmitOperation(ctx, a.Session, nil)
		assert.ErrorIs(t, err, rooms.ErrInvalidOperation)
	})

	t.Run("read only roles are denied test", func(t *testing.T) {
		e := newEnv(t, nil, nil)
		e.projects.SetRole("room-1", "carol", types.RoleViewer)

		c, err := e.manager.Join(ctx, "room-1", "", carol, "")
		require.NoError(t, err)

		_, err = e.manager.SubmitOperation(ctx, c.Session, insert("rect-1", `{"x":1}`))
		assert.ErrorIs(t, err, rooms.ErrPermissionDenied)

		_, err = e.manager.AcquireLock(ctx, c.Session, &types.LockRequest{ElementID: "rect-1", Kind: "move"})
		assert.ErrorIs(t, err, rooms.ErrPermissionDenied)

		_, err = e.manager.UpdatePresence(ctx, c.Session, presence.Delta{Cursor: &presence.Point{X: 1, Y: 2}})
		assert.NoError(t, err)
	})

	t.Run("operations of another actor are denied test", func(t *testing.T) {
		e := newEnv(t, nil, nil)
		a, err := e.manager.Join(ctx, "room-1", "", alice, "")
		require.NoError(t, err)

		forged := insert("rect-1", `{"x":1}`)
		forged.ID.Actor = "bob"
		_, err = e.manager.SubmitOperation(ctx, a.Session, forged)
		assert.ErrorIs(t, err, rooms.ErrPermissionDenied)
	})

	t.Run("unknown session test", func(t *testing.T) {
		e := newEnv(t, nil, nil)
		_, err := e.manager.SubmitOperation(ctx, &rooms.Session{RoomID: "none", ParticipantID: "alice"}, insert("a", `{}`))
		assert.ErrorIs(t, err, rooms.ErrNotJoined)
	})
}

func TestPresenceAndLocks(t *testing.T) {
	ctx := context.Background()

	t.Run("presence is broadcast on the lossy lane test", func(t *testing.T) {
		e := newEnv(t, nil, nil)
		a, err := e.manager.Join(ctx, "room-1", "", alice, "")
		require.NoError(t, err)
		b, err := e.manager.Join(ctx, "room-1", "", bob, "")
		require.NoError(t, err)
		drain(t, b.Subscription)

		record, err := e.manager.UpdatePresence(ctx, a.Session, presence.Delta{Cursor: &presence.Point{X: 3, Y: 4}})
		require.NoError(t, err)
		assert.Equal(t, &presence.Point{X: 3, Y: 4}, record.Cursor)

		msgs, _ := b.Subscription.Drain()
		require.Len(t, msgs, 1)
		assert.True(t, msgs[0].Lossy())
	})

	t.Run("lock conflict is a negative result test", func(t *testing.T) {
		e := newEnv(t, nil, nil)
		a, err := e.manager.Join(ctx, "room-1", "", alice, "")
		require.NoError(t, err)
		b, err := e.manager.Join(ctx, "room-1", "", bob, "")
		require.NoError(t, err)
		drain(t, b.Subscription)

		result, err := e.manager.AcquireLock(ctx, a.Session, &types.LockRequest{ElementID: "rect-1", Kind: "move"})
		require.NoError(t, err)
		assert.True(t, result.Granted)
		assert.Equal(t, time.ActorID("alice"), result.Holder)
		assert.Equal(t, e.clock.Now().Add(rooms.DefaultLockTTL), result.ExpiresAt)
		assert.Equal(t, []types.MessageType{types.MessageLockChanged}, typesOf(drain(t, b.Subscription)))

		result, err = e.manager.AcquireLock(ctx, b.Session, &types.LockRequest{ElementID: "rect-1", Kind: "resize"})
		require.NoError(t, err)
		assert.False(t, result.Granted)
		assert.Equal(t, time.ActorID("alice"), result.Holder)

		released, err := e.manager.ReleaseLock(ctx, b.Session, "rect-1")
		require.NoError(t, err)
		assert.False(t, released)

		released, err = e.manager.ReleaseLock(ctx, a.Session, "rect-1")
		require.NoError(t, err)
		assert.True(t, released)
		assert.Equal(t, []types.MessageType{types.MessageLockChanged}, typesOf(drain(t, b.Subscription)))

		result, err = e.manager.AcquireLock(ctx, b.Session, &types.LockRequest{ElementID: "rect-1", Kind: "resize"})
		require.NoError(t, err)
		assert.True(t, result.Granted)
		assert.Equal(t, time.ActorID("bob"), result.Holder)
	})

	t.Run("lock ttl is capped and expires test", func(t *testing.T) {
		e := newEnv(t, nil, nil)
		a, err := e.manager.Join(ctx, "room-1", "", alice, "")
		require.NoError(t, err)
		b, err := e.manager.Join(ctx, "room-1", "", bob, "")
		require.NoError(t, err)
		drain(t, b.Subscription)

		result, err := e.manager.AcquireLock(ctx, a.Session, &types.LockRequest{
			ElementID: "rect-1", Kind: "move", TTLMillis: int64(gotime.Hour / gotime.Millisecond),
		})
		require.NoError(t, err)
		assert.Equal(t, e.clock.Now().Add(rooms.DefaultLockMaxTTL), result.ExpiresAt)
		drain(t, b.Subscription)

		e.clock.Advance(rooms.DefaultLockMaxTTL)
		_, err = e.manager.Heartbeat(ctx, a.Session)
		require.NoError(t, err)
		_, err = e.manager.Heartbeat(ctx, b.Session)
		require.NoError(t, err)
		require.NoError(t, e.manager.Sweep(ctx))

		envs := drain(t, b.Subscription)
		require.NotEmpty(t, envs)
		assert.Equal(t, types.MessageLockChanged, envs[0].Type)
		changed, err := converter.DecodePayload[types.LockChanged](envs[0])
		require.NoError(t, err)
		assert.Equal(t, "rect-1", changed.ElementID)
		assert.Empty(t, changed.Holder)
	})

	t.Run("leave releases locks and presence test", func(t *testing.T) {
		e := newEnv(t, nil, nil)
		a, err := e.manager.Join(ctx, "room-1", "", alice, "")
		require.NoError(t, err)
		b, err := e.manager.Join(ctx, "room-1", "", bob, "")
		require.NoError(t, err)

		_, err = e.manager.AcquireLock(ctx, a.Session, &types.LockRequest{ElementID: "rect-1", Kind: "move"})
		require.NoError(t, err)
		drain(t, b.Subscription)

		require.NoError(t, e.manager.Leave(ctx, a.Session, types.LeaveExplicit))
		assert.True(t, a.Subscription.IsClosed())
		assert.Equal(t,
			[]types.MessageType{types.MessageLockChanged, types.MessageParticipantLeft},
			typesOf(drain(t, b.Subscription)),
		)

		resync, err := e.manager.Resync(ctx, b.Session)
		require.NoError(t, err)
		assert.Empty(t, resync.Locks)
		assert.Len(t, resync.Presence, 1)
		assert.Len(t, resync.Participants, 1)
	})
}

func TestSweep(t *testing.T) {
	ctx := context.Background()

	t.Run("silent participant times out test", func(t *testing.T) {
		e := newEnv(t, nil, nil)
		a, err := e.manager.Join(ctx, "room-1", "", alice, "")
		require.NoError(t, err)
		b, err := e.manager.Join(ctx, "room-1", "", bob, "")
		require.NoError(t, err)
		drain(t, b.Subscription)

		e.clock.Advance(rooms.DefaultHeartbeatTimeout / 2)
		_, err = e.manager.Heartbeat(ctx, b.Session)
		require.NoError(t, err)
		e.clock.Advance(rooms.DefaultHeartbeatTimeout / 2)
		require.NoError(t, e.manager.Sweep(ctx))

		assert.True(t, a.Subscription.IsClosed())
		envs := drain(t, b.Subscription)
		require.Len(t, envs, 1)
		left, err := converter.DecodePayload[types.ParticipantLeft](envs[0])
		require.NoError(t, err)
		assert.Equal(t, time.ActorID("alice"), left.ParticipantID)
		assert.Equal(t, types.LeaveTimeout, left.Reason)
	})

	t.Run("stale presence is purged test", func(t *testing.T) {
		e := newEnv(t, nil, func(conf *rooms.Config) {
			conf.PresenceTTL = "5s"
		})
		a, err := e.manager.Join(ctx, "room-1", "", alice, "")
		require.NoError(t, err)
		b, err := e.manager.Join(ctx, "room-1", "", bob, "")
		require.NoError(t, err)
		drain(t, a.Subscription)

		e.clock.Advance(5 * gotime.Second)
		_, err = e.manager.Heartbeat(ctx, a.Session)
		require.NoError(t, err)
		require.NoError(t, e.manager.Sweep(ctx))

		envs := drain(t, a.Subscription)
		require.Len(t, envs, 1)
		removed, err := converter.DecodePayload[types.PresenceDelta](envs[0])
		require.NoError(t, err)
		assert.Equal(t, time.ActorID("bob"), removed.ParticipantID)
		assert.True(t, removed.Removed)

		_, err = e.manager.Heartbeat(ctx, b.Session)
		require.NoError(t, err)
		envs = drain(t, a.Subscription)
		require.Len(t, envs, 1)
		assert.Equal(t, types.MessagePresenceDelta, envs[0].Type)
	})
}

func TestLifecycle(t *testing.T) {
	ctx := context.Background()

	t.Run("reconnect within the grace period keeps the document test", func(t *testing.T) {
		e := newEnv(t, nil, nil)
		a, err := e.manager.Join(ctx, "room-1", "", alice, "")
		require.NoError(t, err)
		_, err = e.manager.SubmitOperation(ctx, a.Session, insert("rect-1", `{"x":1}`))
		require.NoError(t, err)

		require.NoError(t, e.manager.Leave(ctx, a.Session, types.LeaveDisconnect))
		summaries, err := e.manager.Rooms(ctx)
		require.NoError(t, err)
		require.Len(t, summaries, 1)
		assert.Equal(t, types.RoomDraining, summaries[0].State)

		again, err := e.manager.Join(ctx, "room-1", "", alice, "")
		require.NoError(t, err)
		assert.Contains(t, again.Ack.Document.Live(), "rect-1")

		doc, err := document.NewFromSnapshot(again.Ack.Document)
		require.NoError(t, err)
		next := doc.NextTicketFor("alice")
		assert.Equal(t, int64(2), next.Seq)

		summaries, err = e.manager.Rooms(ctx)
		require.NoError(t, err)
		assert.Equal(t, types.RoomActive, summaries[0].State)
	})

	t.Run("empty room is checkpointed and closed after the grace period test", func(t *testing.T) {
		e := newEnv(t, nil, func(conf *rooms.Config) {
			conf.GracePeriod = "20ms"
		})
		a, err := e.manager.Join(ctx, "room-1", "", alice, "")
		require.NoError(t, err)
		_, err = e.manager.SubmitOperation(ctx, a.Session, insert("rect-1", `{"x":1}`))
		require.NoError(t, err)
		require.NoError(t, e.manager.Leave(ctx, a.Session, types.LeaveExplicit))

		assert.Eventually(t, func() bool { return e.manager.Len() == 0 }, 2*gotime.Second, 5*gotime.Millisecond)

		info, err := e.store.Load(ctx, "room-1")
		require.NoError(t, err)
		assert.Equal(t, int64(1), info.Revision)

		e.projects.SetCanvas("room-1", []byte(`{"elements":{"ignored":{}}}`))
		again, err := e.manager.Join(ctx, "room-1", "", bob, "")
		require.NoError(t, err)
		live := again.Ack.Document.Live()
		assert.Contains(t, live, "rect-1")
		assert.NotContains(t, live, "ignored")
	})

	t.Run("shutdown checkpoints active rooms test", func(t *testing.T) {
		e := newEnv(t, nil, nil)
		a, err := e.manager.Join(ctx, "room-1", "", alice, "")
		require.NoError(t, err)
		_, err = e.manager.SubmitOperation(ctx, a.Session, insert("rect-1", `{"x":1}`))
		require.NoError(t, err)

		require.NoError(t, e.manager.Shutdown(ctx))
		assert.True(t, a.Subscription.IsClosed())
		assert.Equal(t, 0, e.manager.Len())

		info, err := e.store.Load(ctx, "room-1")
		require.NoError(t, err)
		snap, err := converter.BytesToSnapshot(info.Snapshot)
		require.NoError(t, err)
		assert.Contains(t, snap.Live(), "rect-1")

		_, err = e.manager.Join(ctx, "room-1", "", alice, "")
		assert.ErrorIs(t, err, rooms.ErrShuttingDown)
	})

	t.Run("concurrent edits in many rooms test", func(t *testing.T) {
		e := newEnv(t, nil, nil)
		roomIDs := []string{"room-a", "room-b", "room-c"}

		wg := sync.WaitGroup{}
		for _, roomID := range roomIDs {
			for _, identity := range []*types.Identity{alice, bob} {
				wg.Add(1)
				go func(roomID string, identity *types.Identity) {
					defer wg.Done()
					result, err := e.manager.Join(ctx, roomID, "", identity, "")
					if !assert.NoError(t, err) {
						return
					}
					for i := 0; i < 20; i++ {
						target := identity.UserID + "-" + string(rune('a'+i))
						_, err := e.manager.SubmitOperation(ctx, result.Session, insert(target, `{"x":1}`))
						assert.NoError(t, err)
					}
				}(roomID, identity)
			}
		}
		wg.Wait()

		summaries, err := e.manager.Rooms(ctx)
		require.NoError(t, err)
		require.Len(t, summaries, len(roomIDs))
		for _, summary := range summaries {
			assert.Equal(t, 40, summary.Elements)
			assert.Equal(t, 2, summary.Participants)
		}
	})
}

// failingStore is a snapshot store whose storage is down.
type failingStore struct{}

func (s *failingStore) Load(context.Context, string) (*database.SnapshotInfo, error) {
	return nil, errors.New("connection refused")
}

func (s *failingStore) Save(context.Context, *database.SnapshotInfo) error {
	return errors.New("connection refused")
}

func (s *failingStore) Close() error {
	return nil
}
