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

package rooms

import (
	"context"
	"errors"
	"fmt"
	"sort"
	gotime "time"

	"github.com/canvasai/collab/api/converter"
	"github.com/canvasai/collab/api/types"
	"github.com/canvasai/collab/pkg/document"
	"github.com/canvasai/collab/pkg/document/operations"
	"github.com/canvasai/collab/pkg/document/time"
	"github.com/canvasai/collab/pkg/locker"
	"github.com/canvasai/collab/pkg/presence"
	"github.com/canvasai/collab/pkg/retry"
	"github.com/canvasai/collab/server/backend/database"
	"github.com/canvasai/collab/server/backend/pubsub"
	"github.com/canvasai/collab/server/logging"
	"github.com/canvasai/collab/server/profiling/prometheus"
)

// member is a participant connected to a room.
type member struct {
	participant *types.Participant
	sub         *pubsub.Subscription
	lastSeen    gotime.Time
}

// command is a function run by the room goroutine.
type command struct {
	fn   func()
	done chan struct{}
}

// Room is a collaboration session on one document. Every mutation of the
// document, the presence store and the lock table runs on the room
// goroutine, in the order the commands were queued.
type Room struct {
	id         string
	projectRef string
	manager    *Manager
	logger     logging.Logger

	commands chan command
	closed   chan struct{}

	// err is the reason the room stopped. It is set before closed is closed.
	err error

	// Fields below are owned by the room goroutine.
	state          types.RoomState
	doc            *document.Document
	presences      *presence.Store
	locks          *locker.Table
	hub            *pubsub.Hub
	members        map[time.ActorID]*member
	createdAt      gotime.Time
	lastActivityAt gotime.Time
	revision       int64
	savedRevision  int64
	checkpointing  bool
	grace          *gotime.Timer
	stopped        bool
}

func newRoom(manager *Manager, id, projectRef string) *Room {
	now := manager.now()
	return &Room{
		id:             id,
		projectRef:     projectRef,
		manager:        manager,
		logger:         logging.New("room", logging.RoomField(id), logging.NewField("project", projectRef)),
		commands:       make(chan command, manager.opts.commandQueueSize),
		closed:         make(chan struct{}),
		state:          types.RoomWarming,
		presences:      presence.NewStore(manager.opts.presenceTTL),
		locks:          locker.NewTable(),
		hub:            pubsub.NewHub(),
		members:        make(map[time.ActorID]*member),
		createdAt:      now,
		lastActivityAt: now,
	}
}

// ID returns the id of this room.
func (r *Room) ID() string {
	return r.id
}

// do runs fn on the room goroutine and waits for it.
func (r *Room) do(ctx context.Context, fn func()) error {
	cmd := command{fn: fn, done: make(chan struct{})}

	select {
	case r.commands <- cmd:
	case <-r.closed:
		return r.err
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-cmd.done:
		return nil
	case <-r.closed:
		select {
		case <-cmd.done:
			return nil
		default:
			return r.err
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Room) run() {
	defer close(r.closed)

	if err := r.hydrate(); err != nil {
		r.logger.Warnf("hydrate: %v", err)
		r.err = err
		r.state = types.RoomClosed
		r.manager.remove(r)
		return
	}
	r.grace = gotime.NewTimer(r.manager.opts.gracePeriod)

	for !r.stopped {
		select {
		case cmd := <-r.commands:
			cmd.fn()
			close(cmd.done)
		case <-r.graceC():
			r.closeIfIdle()
		}
	}
}

func (r *Room) graceC() <-chan gotime.Time {
	if r.grace == nil {
		return nil
	}
	return r.grace.C
}

func (r *Room) stopGrace() {
	if r.grace != nil {
		r.grace.Stop()
		r.grace = nil
	}
}

// hydrate loads the latest snapshot of the room, or the saved canvas of the
// project when the room was never checkpointed.
func (r *Room) hydrate() error {
	ctx := context.Background()
	store := r.manager.store

	var info *database.SnapshotInfo
	err := retry.WithExponentialBackoff(ctx, r.manager.retryConfig(), func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, r.manager.opts.storageTimeout)
		defer cancel()

		loaded, err := store.Load(ctx, r.id)
		if errors.Is(err, database.ErrSnapshotNotFound) {
			return retry.Permanent(err)
		}
		if err != nil {
			return err
		}
		info = loaded
		return nil
	}, func(attempt uint64, err error) {
		r.logger.Warnf("load snapshot, attempt %d: %v", attempt, err)
	})

	switch {
	case err == nil:
		snap, err := converter.BytesToSnapshot(info.Snapshot)
		if err != nil {
			return fmt.Errorf("decode snapshot of %s: %w", r.id, err)
		}
		if r.doc, err = document.NewFromSnapshot(snap); err != nil {
			return fmt.Errorf("restore snapshot of %s: %w", r.id, err)
		}
		r.revision = info.Revision
		r.savedRevision = info.Revision
		r.logger.Infof("hydrated from snapshot, revision %d", info.Revision)
		return nil
	case errors.Is(err, database.ErrSnapshotNotFound):
		ctx, cancel := context.WithTimeout(ctx, r.manager.opts.storageTimeout)
		defer cancel()

		snap, err := r.manager.projects.InitialDocument(ctx, r.projectRef)
		if err != nil {
			return fmt.Errorf("bootstrap %s: %w", r.id, err)
		}
		if r.doc, err = document.NewFromSnapshot(snap); err != nil {
			return fmt.Errorf("bootstrap %s: %w", r.id, err)
		}
		r.logger.Infof("bootstrapped from project, %d elements", r.doc.Len())
		return nil
	default:
		return fmt.Errorf("load snapshot of %s: %s: %w", r.id, err.Error(), ErrStorageUnavailable)
	}
}

func (r *Room) metrics() *prometheus.Metrics {
	return r.manager.metrics
}

// member returns the member of the session and refreshes its liveness.
func (r *Room) member(sess *Session) (*member, error) {
	m, ok := r.members[sess.ParticipantID]
	if !ok || m.sub.ID() != sess.SubscriptionID {
		return nil, fmt.Errorf("%s in %s: %w", sess.ParticipantID, r.id, ErrNotJoined)
	}
	m.lastSeen = r.manager.now()
	return m, nil
}

func (r *Room) editor(sess *Session) (*member, error) {
	m, err := r.member(sess)
	if err != nil {
		return nil, err
	}
	if !m.participant.Role.CanEdit() {
		return nil, fmt.Errorf("%s is %s: %w", sess.ParticipantID, m.participant.Role, ErrPermissionDenied)
	}
	return m, nil
}

func (r *Room) broadcast(msgType types.MessageType, payload interface{}, except time.ActorID) {
	data, err := converter.ToEnvelope(msgType, "", payload)
	if err != nil {
		r.logger.Errorf("encode %s: %v", msgType, err)
		return
	}
	r.hub.Broadcast(pubsub.Message{Type: msgType, Data: data}, except)
}

func (r *Room) participants() []*types.Participant {
	participants := make([]*types.Participant, 0, len(r.members))
	for _, m := range r.members {
		participants = append(participants, m.participant.DeepCopy())
	}
	sort.Slice(participants, func(i, j int) bool {
		return participants[i].ID < participants[j].ID
	})
	return participants
}

func (r *Room) colors() map[string]struct{} {
	colors := make(map[string]struct{}, len(r.members))
	for _, m := range r.members {
		colors[m.participant.Color] = struct{}{}
	}
	return colors
}

func (r *Room) sortedMembers() []time.ActorID {
	actors := make([]time.ActorID, 0, len(r.members))
	for actor := range r.members {
		actors = append(actors, actor)
	}
	sort.Slice(actors, func(i, j int) bool {
		return actors[i] < actors[j]
	})
	return actors
}

// join admits the participant. The join_ack is queued on the new
// subscription before it receives any broadcast, so the snapshot it carries
// precedes every delta the participant will see.
func (r *Room) join(identity *types.Identity, role types.Role, reqID string) (*JoinResult, error) {
	now := r.manager.now()
	actor := identity.ActorID()

	color := ""
	if prev, ok := r.members[actor]; ok {
		color = prev.participant.Color
	} else {
		color = presence.PickColor(r.colors())
	}

	participant := types.NewParticipant(identity, role, now)
	participant.Color = color
	sub := pubsub.NewSubscription(actor, r.manager.opts.outboundQueueSize, r.metrics().AddBroadcastDrop)

	r.sweepLocks(now)
	r.presences.Join(actor, color, now)
	_, rejoined := r.members[actor]
	r.members[actor] = &member{
		participant: participant,
		sub:         sub,
		lastSeen:    now,
	}

	ack := &types.JoinAck{
		Participant:  participant.DeepCopy(),
		Document:     r.doc.Snapshot(),
		Presence:     r.presences.Snapshot(),
		Participants: r.participants(),
		Locks:        converter.ToLockInfos(r.locks.Locks(now)),
		Color:        color,
	}
	data, err := converter.ToEnvelope(types.MessageJoinAck, reqID, ack)
	if err != nil {
		return nil, fmt.Errorf("encode join ack: %w", err)
	}
	sub.Publish(pubsub.Message{Type: types.MessageJoinAck, Data: data})

	if replaced := r.hub.Add(sub); replaced != nil {
		r.logger.Infof("%s reconnected, previous connection replaced", actor)
	}
	if !rejoined {
		r.metrics().AddParticipants(1)
	}

	r.broadcast(types.MessageParticipantJoined, &types.ParticipantJoined{
		Participant: participant.DeepCopy(),
	}, actor)

	r.stopGrace()
	r.state = types.RoomActive
	r.lastActivityAt = now

	return &JoinResult{
		Session: &Session{
			RoomID:         r.id,
			ParticipantID:  actor,
			SubscriptionID: sub.ID(),
		},
		Participant:  participant,
		Ack:          ack,
		Subscription: sub,
	}, nil
}

func (r *Room) submit(sess *Session, op *operations.Operation) (*document.Delta, error) {
	if _, err := r.editor(sess); err != nil {
		return nil, err
	}

	op = op.DeepCopy()
	if op.ID.Actor == time.InitialActorID {
		op.ID.Actor = sess.ParticipantID
	} else if op.ID.Actor != sess.ParticipantID {
		return nil, fmt.Errorf("%s submitted as %s: %w", sess.ParticipantID, op.ID.Actor, ErrPermissionDenied)
	}

	delta, err := r.doc.ApplyLocal(op)
	if err != nil {
		r.metrics().AddOperation(string(op.Kind), prometheus.ResultRejected)
		return nil, err
	}
	if delta.Duplicate {
		r.metrics().AddOperation(string(op.Kind), prometheus.ResultDuplicate)
		return delta, nil
	}

	r.metrics().AddOperation(string(op.Kind), prometheus.ResultApplied)
	r.revision++
	r.lastActivityAt = r.manager.now()
	r.broadcast(types.MessageOpDelta, &types.OpDelta{Operation: delta.Operation}, sess.ParticipantID)

	return delta, nil
}

func (r *Room) updatePresence(sess *Session, delta presence.Delta) (presence.Record, error) {
	m, err := r.member(sess)
	if err != nil {
		return presence.Record{}, err
	}

	now := r.manager.now()
	if _, ok := r.presences.Get(sess.ParticipantID); !ok {
		r.presences.Join(sess.ParticipantID, m.participant.Color, now)
	}
	record := r.presences.Upsert(sess.ParticipantID, delta, now)
	r.broadcastPresence(record)

	return record, nil
}

func (r *Room) broadcastPresence(record presence.Record) {
	r.broadcast(types.MessagePresenceDelta, &types.PresenceDelta{
		ParticipantID: record.Actor,
		Cursor:        record.Cursor,
		Selection:     record.Selection,
		Color:         record.Color,
	}, record.Actor)
}

func (r *Room) acquireLock(sess *Session, req *types.LockRequest) (*types.LockResult, error) {
	if _, err := r.editor(sess); err != nil {
		return nil, err
	}

	ttl := req.TTL()
	if ttl <= 0 {
		ttl = r.manager.opts.lockTTL
	}
	if ttl > r.manager.opts.lockMaxTTL {
		ttl = r.manager.opts.lockMaxTTL
	}

	now := r.manager.now()
	r.sweepLocks(now)
	lock, granted := r.locks.Acquire(req.ElementID, sess.ParticipantID, locker.Kind(req.Kind), ttl, now)
	r.metrics().AddLockResult(granted)

	result := &types.LockResult{
		ElementID: req.ElementID,
		Granted:   granted,
		Holder:    lock.Holder,
		ExpiresAt: lock.ExpiresAt,
	}
	if !granted {
		return result, nil
	}

	expiresAt := lock.ExpiresAt
	r.broadcast(types.MessageLockChanged, &types.LockChanged{
		ElementID: lock.ElementID,
		Holder:    lock.Holder,
		Kind:      string(lock.Kind),
		ExpiresAt: &expiresAt,
	}, sess.ParticipantID)

	return result, nil
}

func (r *Room) releaseLock(sess *Session, elementID string) (bool, error) {
	if _, err := r.member(sess); err != nil {
		return false, err
	}

	if !r.locks.Release(elementID, sess.ParticipantID) {
		return false, nil
	}
	r.broadcast(types.MessageLockChanged, &types.LockChanged{ElementID: elementID}, sess.ParticipantID)
	return true, nil
}

// sweepLocks drops the expired locks and announces their release.
func (r *Room) sweepLocks(now gotime.Time) {
	for _, lock := range r.locks.SweepExpired(now) {
		r.broadcast(types.MessageLockChanged, &types.LockChanged{ElementID: lock.ElementID}, "")
	}
}

func (r *Room) heartbeat(sess *Session) (*types.HeartbeatAck, error) {
	m, err := r.member(sess)
	if err != nil {
		return nil, err
	}

	now := r.manager.now()
	if !r.presences.Touch(sess.ParticipantID, now) {
		r.broadcastPresence(r.presences.Join(sess.ParticipantID, m.participant.Color, now))
	}
	return &types.HeartbeatAck{ServerTime: now}, nil
}

func (r *Room) leave(sess *Session, reason types.LeaveReason) {
	m, ok := r.members[sess.ParticipantID]
	if !ok || m.sub.ID() != sess.SubscriptionID {
		return
	}
	r.removeMember(sess.ParticipantID, reason)
}

// removeMember removes the participant with its presence and locks. The
// room starts draining when the last participant leaves.
func (r *Room) removeMember(actor time.ActorID, reason types.LeaveReason) {
	m, ok := r.members[actor]
	if !ok {
		return
	}

	delete(r.members, actor)
	r.hub.Remove(actor, m.sub.ID())
	r.presences.Remove(actor)
	r.metrics().AddParticipants(-1)

	for _, lock := range r.locks.ReleaseAll(actor) {
		r.broadcast(types.MessageLockChanged, &types.LockChanged{ElementID: lock.ElementID}, "")
	}
	r.broadcast(types.MessageParticipantLeft, &types.ParticipantLeft{
		ParticipantID: actor,
		Reason:        reason,
	}, "")
	r.logger.Infof("%s left: %s", actor, reason)

	if len(r.members) == 0 {
		r.state = types.RoomDraining
		r.stopGrace()
		r.grace = gotime.NewTimer(r.manager.opts.gracePeriod)
		r.checkpointAsync()
	}
}

func (r *Room) resync(sess *Session) (*types.Resync, error) {
	if _, err := r.member(sess); err != nil {
		return nil, err
	}

	r.metrics().AddResync()
	return &types.Resync{
		Document:     r.doc.Snapshot(),
		Presence:     r.presences.Snapshot(),
		Participants: r.participants(),
		Locks:        converter.ToLockInfos(r.locks.Locks(r.manager.now())),
	}, nil
}

// sweep expires locks, removes silent participants and stale presence, and
// checkpoints a changed document.
func (r *Room) sweep(now gotime.Time) {
	r.sweepLocks(now)

	for _, actor := range r.sortedMembers() {
		if now.Sub(r.members[actor].lastSeen) >= r.manager.opts.heartbeatTimeout {
			r.removeMember(actor, types.LeaveTimeout)
		}
	}

	for _, actor := range r.presences.SweepStale(now) {
		r.broadcast(types.MessagePresenceDelta, &types.PresenceDelta{
			ParticipantID: actor,
			Removed:       true,
		}, actor)
	}

	r.checkpointAsync()
}

func (r *Room) summary() types.RoomSummary {
	return types.RoomSummary{
		ID:             r.id,
		ProjectRef:     r.projectRef,
		State:          r.state,
		Participants:   len(r.members),
		Elements:       r.doc.Len(),
		Locks:          r.locks.Len(),
		Lamport:        r.doc.Lamport(),
		CreatedAt:      r.createdAt,
		LastActivityAt: r.lastActivityAt,
	}
}

func (r *Room) snapshotInfo() (*database.SnapshotInfo, error) {
	bytes, err := converter.SnapshotToBytes(r.doc.Snapshot())
	if err != nil {
		return nil, err
	}
	return &database.SnapshotInfo{
		RoomID:     r.id,
		ProjectRef: r.projectRef,
		Snapshot:   bytes,
		Revision:   r.revision,
		UpdatedAt:  r.manager.now(),
	}, nil
}

func (r *Room) isDirty() bool {
	return r.revision > r.savedRevision
}

// checkpointAsync saves the document on a background goroutine when it
// changed since the last checkpoint. At most one save runs per room.
func (r *Room) checkpointAsync() {
	if !r.isDirty() || r.checkpointing {
		return
	}

	info, err := r.snapshotInfo()
	if err != nil {
		r.logger.Errorf("capture snapshot: %v", err)
		return
	}

	r.checkpointing = true
	started := r.manager.background.AttachGoroutine(func(ctx context.Context) {
		err := r.manager.checkpoint(ctx, info)
		_ = r.do(ctx, func() {
			r.checkpointing = false
			if err != nil {
				r.logger.Errorf("checkpoint revision %d: %v", info.Revision, err)
				return
			}
			if info.Revision > r.savedRevision {
				r.savedRevision = info.Revision
			}
		})
	}, "checkpoint")
	if !started {
		r.checkpointing = false
	}
}

// checkpointSync saves the document on the room goroutine.
func (r *Room) checkpointSync(ctx context.Context) error {
	if !r.isDirty() {
		return nil
	}

	info, err := r.snapshotInfo()
	if err != nil {
		return err
	}
	if err := r.manager.checkpoint(ctx, info); err != nil {
		return err
	}
	r.savedRevision = info.Revision
	return nil
}

// closeIfIdle closes the room when the grace period ended without a
// participant. A failed checkpoint keeps the room and restarts the grace
// period.
func (r *Room) closeIfIdle() {
	r.grace = nil
	if len(r.members) > 0 {
		return
	}

	if err := r.checkpointSync(context.Background()); err != nil {
		r.logger.Errorf("final checkpoint: %v", err)
		r.grace = gotime.NewTimer(r.manager.opts.gracePeriod)
		return
	}

	r.stop()
	r.logger.Infof("closed")
}

// shutdown checkpoints and closes the room regardless of its participants.
func (r *Room) shutdown(ctx context.Context) error {
	err := r.checkpointSync(ctx)
	for _, actor := range r.sortedMembers() {
		delete(r.members, actor)
		r.metrics().AddParticipants(-1)
	}
	r.stop()
	return err
}

func (r *Room) stop() {
	r.stopGrace()
	r.state = types.RoomClosed
	r.err = ErrRoomClosed
	r.stopped = true
	r.hub.Close()
	r.manager.remove(r)
}
