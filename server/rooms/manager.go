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

// Package rooms provides the session manager. It admits participants into
// rooms, sequences every mutation of a room on the room's own goroutine and
// fans the results out to the other participants.
package rooms

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	gotime "time"

	"golang.org/x/sync/errgroup"

	"github.com/canvasai/collab/api/types"
	"github.com/canvasai/collab/pkg/cmap"
	"github.com/canvasai/collab/pkg/document"
	"github.com/canvasai/collab/pkg/document/operations"
	"github.com/canvasai/collab/pkg/document/time"
	pkgerrors "github.com/canvasai/collab/pkg/errors"
	"github.com/canvasai/collab/pkg/presence"
	"github.com/canvasai/collab/pkg/retry"
	"github.com/canvasai/collab/server/backend/background"
	"github.com/canvasai/collab/server/backend/database"
	"github.com/canvasai/collab/server/backend/pubsub"
	"github.com/canvasai/collab/server/logging"
	"github.com/canvasai/collab/server/profiling/prometheus"
	"github.com/canvasai/collab/server/projects"
)

// maxJoinAttempts bounds the retries of a join racing with the close of
// its room.
const maxJoinAttempts = 3

var (
	// ErrNotJoined is returned when the session is not a participant of the
	// room.
	ErrNotJoined = pkgerrors.NotFound("not joined").WithCode("ErrNotJoined")

	// ErrPermissionDenied is returned when the participant's role does not
	// allow the request.
	ErrPermissionDenied = pkgerrors.PermissionDenied("permission denied").WithCode("ErrPermissionDenied")

	// ErrRoomClosed is returned when the room was closed.
	ErrRoomClosed = pkgerrors.FailedPrecond("room closed").WithCode("ErrRoomClosed")

	// ErrProjectMismatch is returned when joining a room with another
	// project than the one it edits.
	ErrProjectMismatch = pkgerrors.FailedPrecond("room edits another project").WithCode("ErrProjectMismatch")

	// ErrStorageUnavailable is returned when the snapshot of a room cannot
	// be loaded.
	ErrStorageUnavailable = pkgerrors.Unavailable("snapshot storage unavailable").WithCode("ErrStorageUnavailable")

	// ErrShuttingDown is returned when the manager is shutting down.
	ErrShuttingDown = pkgerrors.Unavailable("server is shutting down").WithCode("ErrShuttingDown")

	// ErrInvalidOperation is returned when no operation was submitted.
	ErrInvalidOperation = pkgerrors.InvalidArgument("operation is required").WithCode("ErrInvalidOperation")
)

// Session identifies one connection of a participant to a room. A
// participant reconnecting replaces its previous session.
type Session struct {
	RoomID         string
	ParticipantID  time.ActorID
	SubscriptionID string
}

// JoinResult is the result of a join.
type JoinResult struct {
	Session      *Session
	Participant  *types.Participant
	Ack          *types.JoinAck
	Subscription *pubsub.Subscription
}

// Manager holds the rooms of this server.
type Manager struct {
	opts       options
	store      database.SnapshotStore
	storeName  string
	projects   projects.Bootstrapper
	metrics    *prometheus.Metrics
	background *background.Background
	logger     logging.Logger

	rooms   *cmap.Map[*Room]
	closing atomic.Bool
	now     func() gotime.Time
}

// Backends are the collaborators of the manager.
type Backends struct {
	// Store persists room snapshots.
	Store database.SnapshotStore

	// StoreName labels the checkpoint metrics.
	StoreName string

	// Projects bootstraps new rooms and resolves roles.
	Projects projects.Bootstrapper

	Metrics    *prometheus.Metrics
	Background *background.Background
}

// NewManager creates a new instance of Manager.
func NewManager(conf *Config, backends Backends) (*Manager, error) {
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	if backends.Store == nil || backends.Projects == nil || backends.Metrics == nil || backends.Background == nil {
		return nil, errors.New("rooms: store, projects, metrics and background are required")
	}

	return &Manager{
		opts:       conf.options(),
		store:      backends.Store,
		storeName:  backends.StoreName,
		projects:   backends.Projects,
		metrics:    backends.Metrics,
		background: backends.Background,
		logger:     logging.New("rooms"),
		rooms:      cmap.New[*Room](),
		now:        gotime.Now,
	}, nil
}

func (m *Manager) retryConfig() retry.Config {
	return retry.Config{
		MaxRetries:   m.opts.checkpointRetries,
		BaseInterval: m.opts.checkpointBase,
		MaxInterval:  m.opts.checkpointMax,
	}
}

// checkpoint saves the snapshot, retrying with exponential backoff.
func (m *Manager) checkpoint(ctx context.Context, info *database.SnapshotInfo) error {
	start := gotime.Now()
	err := retry.WithExponentialBackoff(ctx, m.retryConfig(), func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, m.opts.storageTimeout)
		defer cancel()

		err := m.store.Save(ctx, info)
		if errors.Is(err, database.ErrInvalidSnapshotInfo) {
			return retry.Permanent(err)
		}
		return err
	}, func(attempt uint64, err error) {
		m.metrics.AddCheckpointFailure(m.storeName)
		m.logger.Warnf("checkpoint %s, attempt %d: %v", info.RoomID, attempt, err)
	})
	if err != nil {
		m.metrics.AddCheckpointFailure(m.storeName)
		return fmt.Errorf("checkpoint %s: %w", info.RoomID, err)
	}

	m.metrics.ObserveCheckpoint(m.storeName, gotime.Since(start))
	return nil
}

func (m *Manager) getOrCreate(roomID, projectRef string) *Room {
	var created *Room
	room := m.rooms.Upsert(roomID, func(r *Room, exists bool) *Room {
		if exists {
			return r
		}
		created = newRoom(m, roomID, projectRef)
		return created
	})

	if created != nil {
		go created.run()
		m.metrics.SetActiveRooms(m.rooms.Len())
	}
	return room
}

// remove removes the room unless another room already took its id.
func (m *Manager) remove(room *Room) {
	m.rooms.Delete(room.id, func(r *Room, exists bool) bool {
		return exists && r == room
	})
	m.metrics.SetActiveRooms(m.rooms.Len())
}

func (m *Manager) withRoom(ctx context.Context, sess *Session, fn func(r *Room)) error {
	room, ok := m.rooms.Get(sess.RoomID)
	if !ok {
		return fmt.Errorf("room %s: %w", sess.RoomID, ErrNotJoined)
	}
	if err := room.do(ctx, func() { fn(room) }); err != nil {
		if errors.Is(err, ErrRoomClosed) {
			return fmt.Errorf("room %s: %w", sess.RoomID, ErrNotJoined)
		}
		return err
	}
	return nil
}

// Join admits the identity into the room, creating the room on first join.
// The room edits projectRef, which defaults to the room id.
func (m *Manager) Join(
	ctx context.Context,
	roomID, projectRef string,
	identity *types.Identity,
	reqID string,
) (*JoinResult, error) {
	if m.closing.Load() {
		return nil, ErrShuttingDown
	}
	if projectRef == "" {
		projectRef = roomID
	}

	role, err := m.projects.Role(ctx, projectRef, identity.UserID)
	if err != nil {
		return nil, err
	}

	for attempt := 0; attempt < maxJoinAttempts; attempt++ {
		room := m.getOrCreate(roomID, projectRef)
		if room.projectRef != projectRef {
			return nil, fmt.Errorf("%s edits %s: %w", roomID, room.projectRef, ErrProjectMismatch)
		}

		var result *JoinResult
		var joinErr error
		err := room.do(ctx, func() {
			result, joinErr = room.join(identity, role, reqID)
		})
		if errors.Is(err, ErrRoomClosed) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if joinErr != nil {
			return nil, joinErr
		}

		m.logger.Infof("%s joined %s as %s", identity.UserID, roomID, role)
		return result, nil
	}

	return nil, fmt.Errorf("join %s: %w", roomID, ErrRoomClosed)
}

// SubmitOperation merges the operation of the session's participant and
// broadcasts it to the other participants. A duplicate is acknowledged
// without broadcast.
func (m *Manager) SubmitOperation(
	ctx context.Context,
	sess *Session,
	op *operations.Operation,
) (*document.Delta, error) {
	if op == nil {
		return nil, ErrInvalidOperation
	}

	var delta *document.Delta
	var opErr error
	if err := m.withRoom(ctx, sess, func(r *Room) {
		delta, opErr = r.submit(sess, op)
	}); err != nil {
		return nil, err
	}
	return delta, opErr
}

// UpdatePresence applies the presence delta and broadcasts it on the lossy
// lane.
func (m *Manager) UpdatePresence(ctx context.Context, sess *Session, delta presence.Delta) (presence.Record, error) {
	var record presence.Record
	var presenceErr error
	if err := m.withRoom(ctx, sess, func(r *Room) {
		record, presenceErr = r.updatePresence(sess, delta)
	}); err != nil {
		return presence.Record{}, err
	}
	return record, presenceErr
}

// AcquireLock requests the lock of an element. A lock held by another
// participant is a result with Granted false, not an error.
func (m *Manager) AcquireLock(ctx context.Context, sess *Session, req *types.LockRequest) (*types.LockResult, error) {
	var result *types.LockResult
	var lockErr error
	if err := m.withRoom(ctx, sess, func(r *Room) {
		result, lockErr = r.acquireLock(sess, req)
	}); err != nil {
		return nil, err
	}
	return result, lockErr
}

// ReleaseLock releases the lock of an element held by the participant.
func (m *Manager) ReleaseLock(ctx context.Context, sess *Session, elementID string) (bool, error) {
	var released bool
	var lockErr error
	if err := m.withRoom(ctx, sess, func(r *Room) {
		released, lockErr = r.releaseLock(sess, elementID)
	}); err != nil {
		return false, err
	}
	return released, lockErr
}

// Heartbeat refreshes the liveness of the participant.
func (m *Manager) Heartbeat(ctx context.Context, sess *Session) (*types.HeartbeatAck, error) {
	var ack *types.HeartbeatAck
	var heartbeatErr error
	if err := m.withRoom(ctx, sess, func(r *Room) {
		ack, heartbeatErr = r.heartbeat(sess)
	}); err != nil {
		return nil, err
	}
	return ack, heartbeatErr
}

// Leave removes the participant of the session from the room. Leaving with
// a replaced session does nothing.
func (m *Manager) Leave(ctx context.Context, sess *Session, reason types.LeaveReason) error {
	err := m.withRoom(ctx, sess, func(r *Room) {
		r.leave(sess, reason)
	})
	if errors.Is(err, ErrNotJoined) {
		return nil
	}
	return err
}

// Resync returns a fresh state of the room for a participant whose
// outbound queue overflowed.
func (m *Manager) Resync(ctx context.Context, sess *Session) (*types.Resync, error) {
	var resync *types.Resync
	var resyncErr error
	if err := m.withRoom(ctx, sess, func(r *Room) {
		resync, resyncErr = r.resync(sess)
	}); err != nil {
		return nil, err
	}
	return resync, resyncErr
}

// Sweep expires locks, removes participants whose heartbeat timed out,
// purges stale presence and checkpoints changed rooms.
func (m *Manager) Sweep(ctx context.Context) error {
	now := m.now()
	for _, room := range m.rooms.Values() {
		err := room.do(ctx, func() {
			room.sweep(now)
		})
		if err != nil && !errors.Is(err, ErrRoomClosed) {
			return fmt.Errorf("sweep %s: %w", room.id, err)
		}
	}
	return nil
}

// Rooms returns the summaries of the rooms in order of id.
func (m *Manager) Rooms(ctx context.Context) ([]types.RoomSummary, error) {
	var summaries []types.RoomSummary
	for _, room := range m.rooms.Values() {
		var summary types.RoomSummary
		err := room.do(ctx, func() {
			summary = room.summary()
		})
		if errors.Is(err, ErrRoomClosed) {
			continue
		}
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// Len returns the number of rooms.
func (m *Manager) Len() int {
	return m.rooms.Len()
}

// Shutdown checkpoints and closes every room concurrently.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.closing.Store(true)

	g := errgroup.Group{}
	for _, room := range m.rooms.Values() {
		room := room
		g.Go(func() error {
			var shutdownErr error
			err := room.do(ctx, func() {
				shutdownErr = room.shutdown(ctx)
			})
			if err != nil && !errors.Is(err, ErrRoomClosed) {
				return fmt.Errorf("shutdown %s: %w", room.id, err)
			}
			return shutdownErr
		})
	}

	return g.Wait()
}
