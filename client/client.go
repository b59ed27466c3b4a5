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

// Package client provides the Go client of the collab server. A client joins
// one room, keeps a replica of the room's document and merges the
// operations of the other participants into it.
package client

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"
	gotime "time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/canvasai/collab/api/converter"
	"github.com/canvasai/collab/api/types"
	"github.com/canvasai/collab/pkg/document"
	"github.com/canvasai/collab/pkg/document/operations"
	"github.com/canvasai/collab/pkg/document/time"
	"github.com/canvasai/collab/pkg/presence"
)

var (
	// ErrNotJoined occurs when the client has not joined a room.
	ErrNotJoined = errors.New("client is not joined")

	// ErrClosed occurs when the client is closed.
	ErrClosed = errors.New("client is closed")

	// ErrConnectionClosed occurs when the connection closed before the
	// reply arrived.
	ErrConnectionClosed = errors.New("connection closed")
)

// ServerError is an error reported by the server.
type ServerError struct {
	Code    string
	Status  string
	Message string
}

// Error returns the message of the error.
func (e *ServerError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// EventType is the type of an event.
type EventType string

// The events a client delivers.
const (
	DocumentChanged   EventType = "document-changed"
	PresenceChanged   EventType = "presence-changed"
	LockChanged       EventType = "lock-changed"
	ParticipantJoined EventType = "participant-joined"
	ParticipantLeft   EventType = "participant-left"
	Resynced          EventType = "resynced"
)

// Event is a change made by another participant.
type Event struct {
	Type        EventType
	Operation   *operations.Operation
	Presence    *types.PresenceDelta
	Lock        *types.LockChanged
	Participant *types.Participant
	Left        *types.ParticipantLeft
}

// Client is a normal client that can communicate with the server. It keeps
// the local operations not yet acknowledged and replays them after a resync
// or a reconnect. The replica is the confirmed state of the room with the
// pending operations on top; an operation the server rejects is taken out
// of it again.
type Client struct {
	url     string
	options Options
	logger  *zap.Logger
	events  chan Event

	// submitMu keeps operations on the wire in the order they were stamped.
	submitMu sync.Mutex
	writeMu  sync.Mutex

	mu           sync.Mutex
	ws           *websocket.Conn
	done         chan struct{}
	closed       bool
	roomID       string
	projectRef   string
	participant  *types.Participant
	base         *document.Document
	doc          *document.Document
	pending      []*operations.Operation
	presences    map[time.ActorID]presence.Record
	participants map[time.ActorID]*types.Participant
	locks        map[string]types.LockInfo
	waiters      map[string]chan *types.Envelope
	nextID       uint64
	stopBeat     context.CancelFunc
}

// Dial creates an instance of Client connected to the websocket url of the
// server, e.g. ws://localhost:8080/ws.
func Dial(ctx context.Context, url string, opts ...Option) (*Client, error) {
	options := Options{
		HeartbeatInterval: DefaultHeartbeatInterval,
		EventBufferSize:   256,
	}
	for _, opt := range opts {
		opt(&options)
	}

	logger := options.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &Client{
		url:          url,
		options:      options,
		logger:       logger,
		events:       make(chan Event, options.EventBufferSize),
		presences:    make(map[time.ActorID]presence.Record),
		participants: make(map[time.ActorID]*types.Participant),
		locks:        make(map[string]types.LockInfo),
		waiters:      make(map[string]chan *types.Envelope),
	}
	if err := c.connect(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) connect(ctx context.Context) error {
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", c.url, err)
	}

	done := make(chan struct{})
	c.mu.Lock()
	c.ws = ws
	c.done = done
	c.mu.Unlock()

	go c.read(ws, done)
	return nil
}

// Join joins the room editing the given project and bootstraps the local
// replica from the snapshot the server sends. An empty project edits the
// project of the room's id.
func (c *Client) Join(ctx context.Context, roomID, projectRef string) (*types.JoinAck, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	c.roomID = roomID
	c.projectRef = projectRef
	c.mu.Unlock()

	env, err := c.request(ctx, types.MessageJoin, &types.JoinRequest{
		RoomID:     roomID,
		ProjectRef: projectRef,
		AuthToken:  c.options.Token,
	})
	if err != nil {
		return nil, err
	}
	ack, err := converter.DecodePayload[types.JoinAck](env)
	if err != nil {
		return nil, err
	}

	if c.options.HeartbeatInterval > 0 {
		c.startHeartbeat()
	}
	return ack, nil
}

// Reconnect opens a new connection and joins the same room again. Local
// operations not acknowledged before the disconnect are replayed.
func (c *Client) Reconnect(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.roomID == "" {
		c.mu.Unlock()
		return ErrNotJoined
	}
	roomID, projectRef := c.roomID, c.projectRef
	ws, done := c.ws, c.done
	c.mu.Unlock()

	c.stopHeartbeat()
	if err := ws.Close(); err != nil {
		c.logger.Debug("close previous connection", zap.Error(err))
	}
	<-done

	if err := c.connect(ctx); err != nil {
		return err
	}
	_, err := c.Join(ctx, roomID, projectRef)
	return err
}

// Edit applies the operation to the local replica first, then submits it and
// waits for the acknowledgement. It returns the operation stamped with its
// id. An operation rejected by the server is not retried and is removed from
// the replica.
func (c *Client) Edit(ctx context.Context, op *operations.Operation) (*operations.Operation, error) {
	c.submitMu.Lock()
	c.mu.Lock()
	if c.doc == nil {
		c.mu.Unlock()
		c.submitMu.Unlock()
		return nil, ErrNotJoined
	}

	op = op.DeepCopy()
	op.ID.Actor = c.participant.ID
	delta, err := c.doc.ApplyLocal(op)
	if err != nil {
		c.mu.Unlock()
		c.submitMu.Unlock()
		return nil, err
	}
	stamped := delta.Operation
	c.pending = append(c.pending, stamped)
	id, ch := c.register()
	c.mu.Unlock()

	err = c.send(types.MessageOpSubmit, id, &types.OpSubmit{Operation: stamped})
	c.submitMu.Unlock()
	if err != nil {
		c.unregister(id)
		return nil, err
	}

	if _, err := c.wait(ctx, types.MessageOpSubmit, id, ch); err != nil {
		var serverErr *ServerError
		if errors.As(err, &serverErr) {
			c.reject(stamped.ID)
		}
		return nil, err
	}
	return stamped, nil
}

// UpdatePresence sends the cursor and selection of this participant.
func (c *Client) UpdatePresence(_ context.Context, update *types.PresenceUpdate) error {
	if err := c.joined(); err != nil {
		return err
	}
	return c.send(types.MessagePresenceUpdate, "", update)
}

// AcquireLock requests the lock of an element. A lock held by another
// participant is a result with Granted false.
func (c *Client) AcquireLock(
	ctx context.Context,
	elementID, kind string,
	ttl gotime.Duration,
) (*types.LockResult, error) {
	if err := c.joined(); err != nil {
		return nil, err
	}

	env, err := c.request(ctx, types.MessageLockRequest, &types.LockRequest{
		ElementID: elementID,
		Kind:      kind,
		TTLMillis: ttl.Milliseconds(),
	})
	if err != nil {
		return nil, err
	}
	return converter.DecodePayload[types.LockResult](env)
}

// ReleaseLock releases the lock of an element held by this participant.
func (c *Client) ReleaseLock(_ context.Context, elementID string) error {
	if err := c.joined(); err != nil {
		return err
	}

	c.mu.Lock()
	if lock, ok := c.locks[elementID]; ok && lock.Holder == c.participant.ID {
		delete(c.locks, elementID)
	}
	c.mu.Unlock()

	return c.send(types.MessageLockRelease, "", &types.LockRelease{ElementID: elementID})
}

// Heartbeat refreshes the liveness of this participant.
func (c *Client) Heartbeat(ctx context.Context) (*types.HeartbeatAck, error) {
	if err := c.joined(); err != nil {
		return nil, err
	}

	env, err := c.request(ctx, types.MessageHeartbeat, nil)
	if err != nil {
		return nil, err
	}
	return converter.DecodePayload[types.HeartbeatAck](env)
}

// Leave leaves the room and closes the client.
func (c *Client) Leave(_ context.Context) error {
	if err := c.joined(); err != nil {
		return err
	}
	if err := c.send(types.MessageLeave, "", nil); err != nil {
		return err
	}
	return c.Close()
}

// Close closes all resources of this client.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	ws, done := c.ws, c.done
	c.mu.Unlock()

	c.stopHeartbeat()

	c.writeMu.Lock()
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = ws.WriteControl(websocket.CloseMessage, msg, gotime.Now().Add(gotime.Second))
	c.writeMu.Unlock()

	err := ws.Close()
	<-done
	close(c.events)
	return err
}

// Events returns the channel of the changes made by other participants.
// Events are dropped when the channel is full.
func (c *Client) Events() <-chan Event {
	return c.events
}

// ID returns the participant id of this client.
func (c *Client) ID() time.ActorID {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.participant == nil {
		return time.InitialActorID
	}
	return c.participant.ID
}

// Participant returns this participant.
func (c *Client) Participant() *types.Participant {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.participant.DeepCopy()
}

// Snapshot returns the snapshot of the local replica.
func (c *Client) Snapshot() *document.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.doc == nil {
		return nil
	}
	return c.doc.Snapshot()
}

// Marshal returns the JSON encoding of the local replica.
func (c *Client) Marshal() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.doc == nil {
		return ""
	}
	return c.doc.Marshal()
}

// Presences returns the presence of every participant in order of id.
func (c *Client) Presences() []presence.Record {
	c.mu.Lock()
	defer c.mu.Unlock()

	records := make([]presence.Record, 0, len(c.presences))
	for _, record := range c.presences {
		records = append(records, record.DeepCopy())
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Actor < records[j].Actor })
	return records
}

// Participants returns the participants of the room in order of id.
func (c *Client) Participants() []*types.Participant {
	c.mu.Lock()
	defer c.mu.Unlock()

	participants := make([]*types.Participant, 0, len(c.participants))
	for _, p := range c.participants {
		participants = append(participants, p.DeepCopy())
	}
	sort.Slice(participants, func(i, j int) bool { return participants[i].ID < participants[j].ID })
	return participants
}

// Lock returns the lock of the element.
func (c *Client) Lock(elementID string) (types.LockInfo, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	lock, ok := c.locks[elementID]
	return lock, ok
}

// Pending returns the number of local operations not yet acknowledged.
func (c *Client) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.pending)
}

func (c *Client) joined() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	if c.participant == nil {
		return ErrNotJoined
	}
	return nil
}

func (c *Client) startHeartbeat() {
	ctx, cancel := context.WithCancel(context.Background())
	c.mu.Lock()
	if c.stopBeat != nil {
		c.stopBeat()
	}
	c.stopBeat = cancel
	c.mu.Unlock()

	go func() {
		ticker := gotime.NewTicker(c.options.HeartbeatInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				hbCtx, hbCancel := context.WithTimeout(ctx, c.options.HeartbeatInterval)
				if _, err := c.Heartbeat(hbCtx); err != nil && ctx.Err() == nil {
					c.logger.Warn("heartbeat", zap.Error(err))
				}
				hbCancel()
			}
		}
	}()
}

func (c *Client) stopHeartbeat() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopBeat != nil {
		c.stopBeat()
		c.stopBeat = nil
	}
}

// request sends a message and waits for the reply carrying its id.
func (c *Client) request(ctx context.Context, msgType types.MessageType, payload interface{}) (*types.Envelope, error) {
	c.mu.Lock()
	id, ch := c.register()
	c.mu.Unlock()

	if err := c.send(msgType, id, payload); err != nil {
		c.unregister(id)
		return nil, err
	}
	return c.wait(ctx, msgType, id, ch)
}

// register creates the waiter of a new request id. c.mu must be held.
func (c *Client) register() (string, chan *types.Envelope) {
	c.nextID++
	id := strconv.FormatUint(c.nextID, 10)
	ch := make(chan *types.Envelope, 1)
	c.waiters[id] = ch
	return id, ch
}

func (c *Client) wait(
	ctx context.Context,
	msgType types.MessageType,
	id string,
	ch chan *types.Envelope,
) (*types.Envelope, error) {
	select {
	case env, ok := <-ch:
		if !ok {
			return nil, fmt.Errorf("%s: %w", msgType, ErrConnectionClosed)
		}
		if env.Type == types.MessageError {
			return nil, toServerError(env)
		}
		return env, nil
	case <-ctx.Done():
		c.unregister(id)
		return nil, ctx.Err()
	}
}

func (c *Client) unregister(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.waiters, id)
}

func (c *Client) send(msgType types.MessageType, id string, payload interface{}) error {
	data, err := converter.ToEnvelope(msgType, id, payload)
	if err != nil {
		return err
	}

	c.mu.Lock()
	ws := c.ws
	c.mu.Unlock()

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := ws.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("send %s: %w", msgType, err)
	}
	return nil
}

func (c *Client) read(ws *websocket.Conn, done chan struct{}) {
	defer close(done)

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			c.logger.Debug("read", zap.Error(err))
			c.failWaiters()
			return
		}

		env, err := converter.FromEnvelope(data)
		if err != nil {
			c.logger.Warn("decode message", zap.Error(err))
			continue
		}
		if err := c.handle(env); err != nil {
			c.logger.Warn("handle message", zap.String("type", string(env.Type)), zap.Error(err))
		}
	}
}

func (c *Client) failWaiters() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for id, ch := range c.waiters {
		close(ch)
		delete(c.waiters, id)
	}
}

// deliver hands the reply to the request waiting for it.
func (c *Client) deliver(env *types.Envelope) {
	if env.ID == "" {
		if env.Type == types.MessageError {
			c.logger.Warn("server error", zap.Error(toServerError(env)))
		}
		return
	}

	c.mu.Lock()
	ch, ok := c.waiters[env.ID]
	delete(c.waiters, env.ID)
	c.mu.Unlock()

	if ok {
		ch <- env
	}
}

// emit queues the event. It must be called from the read goroutine.
func (c *Client) emit(event Event) {
	select {
	case c.events <- event:
	default:
		c.logger.Warn("event dropped", zap.String("type", string(event.Type)))
	}
}

// confirm moves the acknowledged operation from the pending operations into
// the confirmed state.
func (c *Client) confirm(id operations.ID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	op := c.takePending(id)
	if op == nil || c.base == nil {
		return
	}
	if _, err := c.base.ApplyRemote(op); err != nil {
		c.logger.Warn("confirm operation", zap.Stringer("id", op.ID), zap.Error(err))
	}
}

// reject drops the operation the server refused and rebuilds the replica
// without it.
func (c *Client) reject(id operations.ID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.takePending(id) == nil || c.base == nil {
		return
	}
	if err := c.rebuild(); err != nil {
		c.logger.Warn("rebuild replica", zap.Error(err))
	}
}

// takePending removes the operation from the pending operations. c.mu must
// be held.
func (c *Client) takePending(id operations.ID) *operations.Operation {
	for i, op := range c.pending {
		if op.ID.Actor == id.Actor && op.ID.Seq == id.Seq {
			c.pending = append(c.pending[:i], c.pending[i+1:]...)
			return op
		}
	}
	return nil
}

// rebuild replaces the replica with a copy of the confirmed state and the
// pending operations on top of it. c.mu must be held.
func (c *Client) rebuild() error {
	doc, err := document.NewFromSnapshot(c.base.Snapshot())
	if err != nil {
		return err
	}

	pending := c.pending[:0]
	for _, op := range c.pending {
		if _, err := doc.ApplyRemote(op); err != nil {
			c.logger.Warn("drop pending operation", zap.Stringer("id", op.ID), zap.Error(err))
			continue
		}
		pending = append(pending, op)
	}
	c.doc = doc
	c.pending = pending
	return nil
}

func toServerError(env *types.Envelope) error {
	payload, err := converter.DecodePayload[types.Error](env)
	if err != nil {
		return err
	}
	return &ServerError{
		Code:    payload.Code,
		Status:  payload.Status,
		Message: payload.Message,
	}
}

func (c *Client) handle(env *types.Envelope) error {
	switch env.Type {
	case types.MessageJoinAck:
		ack, err := converter.DecodePayload[types.JoinAck](env)
		if err != nil {
			return err
		}
		c.submitMu.Lock()
		defer c.submitMu.Unlock()
		c.mu.Lock()
		c.participant = ack.Participant.DeepCopy()
		replay, err := c.load(ack.Document, ack.Presence, ack.Participants, ack.Locks)
		c.mu.Unlock()
		c.deliver(env)
		if err != nil {
			return err
		}
		return c.resubmit(replay)
	case types.MessageResync:
		resync, err := converter.DecodePayload[types.Resync](env)
		if err != nil {
			return err
		}
		c.submitMu.Lock()
		defer c.submitMu.Unlock()
		c.mu.Lock()
		replay, err := c.load(resync.Document, resync.Presence, resync.Participants, resync.Locks)
		c.mu.Unlock()
		if err != nil {
			return err
		}
		c.emit(Event{Type: Resynced})
		return c.resubmit(replay)
	case types.MessageOpAck:
		ack, err := converter.DecodePayload[types.OpAck](env)
		if err != nil {
			return err
		}
		c.confirm(ack.ID)
		c.deliver(env)
	case types.MessageOpDelta:
		delta, err := converter.DecodePayload[types.OpDelta](env)
		if err != nil {
			return err
		}
		c.mu.Lock()
		if c.doc == nil {
			c.mu.Unlock()
			return ErrNotJoined
		}
		if _, err := c.base.ApplyRemote(delta.Operation); err != nil {
			c.mu.Unlock()
			return err
		}
		applied, err := c.doc.ApplyRemote(delta.Operation)
		c.mu.Unlock()
		if err != nil {
			return err
		}
		if applied {
			c.emit(Event{Type: DocumentChanged, Operation: delta.Operation})
		}
	case types.MessagePresenceDelta:
		delta, err := converter.DecodePayload[types.PresenceDelta](env)
		if err != nil {
			return err
		}
		c.mu.Lock()
		if delta.Removed {
			delete(c.presences, delta.ParticipantID)
		} else {
			c.presences[delta.ParticipantID] = presence.Record{
				Actor:     delta.ParticipantID,
				Color:     delta.Color,
				Cursor:    delta.Cursor,
				Selection: append([]string{}, delta.Selection...),
			}
		}
		c.mu.Unlock()
		c.emit(Event{Type: PresenceChanged, Presence: delta})
	case types.MessageLockChanged:
		changed, err := converter.DecodePayload[types.LockChanged](env)
		if err != nil {
			return err
		}
		c.mu.Lock()
		if changed.Holder == time.InitialActorID {
			delete(c.locks, changed.ElementID)
		} else {
			lock := types.LockInfo{
				ElementID: changed.ElementID,
				Holder:    changed.Holder,
				Kind:      changed.Kind,
			}
			if changed.ExpiresAt != nil {
				lock.ExpiresAt = *changed.ExpiresAt
			}
			c.locks[changed.ElementID] = lock
		}
		c.mu.Unlock()
		c.emit(Event{Type: LockChanged, Lock: changed})
	case types.MessageLockResult:
		result, err := converter.DecodePayload[types.LockResult](env)
		if err != nil {
			return err
		}
		if result.Granted {
			c.mu.Lock()
			c.locks[result.ElementID] = types.LockInfo{
				ElementID: result.ElementID,
				Holder:    result.Holder,
				ExpiresAt: result.ExpiresAt,
			}
			c.mu.Unlock()
		}
		c.deliver(env)
	case types.MessageParticipantJoined:
		joined, err := converter.DecodePayload[types.ParticipantJoined](env)
		if err != nil {
			return err
		}
		c.mu.Lock()
		c.participants[joined.Participant.ID] = joined.Participant
		c.mu.Unlock()
		c.emit(Event{Type: ParticipantJoined, Participant: joined.Participant})
	case types.MessageParticipantLeft:
		left, err := converter.DecodePayload[types.ParticipantLeft](env)
		if err != nil {
			return err
		}
		c.mu.Lock()
		delete(c.participants, left.ParticipantID)
		delete(c.presences, left.ParticipantID)
		c.mu.Unlock()
		c.emit(Event{Type: ParticipantLeft, Left: left})
	case types.MessageHeartbeatAck, types.MessageError:
		c.deliver(env)
	default:
		return fmt.Errorf("unexpected message %s", env.Type)
	}

	return nil
}

// load replaces the confirmed state and the room state with the given
// snapshot and reapplies the pending operations on top of it. It returns
// the pending operations the snapshot has not merged yet. c.mu must be held.
func (c *Client) load(
	snap *document.Snapshot,
	records []presence.Record,
	participants []*types.Participant,
	locks []types.LockInfo,
) ([]*operations.Operation, error) {
	base, err := document.NewFromSnapshot(snap)
	if err != nil {
		return nil, err
	}

	var pending []*operations.Operation
	for _, op := range c.pending {
		if !base.IsApplied(op.ID) {
			pending = append(pending, op)
		}
	}
	c.base = base
	c.pending = pending
	if err := c.rebuild(); err != nil {
		return nil, err
	}
	replay := append([]*operations.Operation{}, c.pending...)

	c.presences = make(map[time.ActorID]presence.Record, len(records))
	for _, record := range records {
		c.presences[record.Actor] = record.DeepCopy()
	}
	c.participants = make(map[time.ActorID]*types.Participant, len(participants))
	for _, p := range participants {
		c.participants[p.ID] = p.DeepCopy()
	}
	c.locks = make(map[string]types.LockInfo, len(locks))
	for _, lock := range locks {
		c.locks[lock.ElementID] = lock
	}

	return replay, nil
}

// resubmit sends the replayed operations again. Nobody waits on their
// replies: an ack confirms the operation, an error rejects it. c.submitMu
// must be held.
func (c *Client) resubmit(ops []*operations.Operation) error {
	for _, op := range ops {
		c.mu.Lock()
		id, ch := c.register()
		c.mu.Unlock()

		if err := c.send(types.MessageOpSubmit, id, &types.OpSubmit{Operation: op}); err != nil {
			c.unregister(id)
			return err
		}
		go c.awaitReplay(op.ID, ch)
	}
	return nil
}

func (c *Client) awaitReplay(id operations.ID, ch chan *types.Envelope) {
	env, ok := <-ch
	if !ok || env.Type != types.MessageError {
		return
	}
	c.logger.Warn("replayed operation rejected", zap.Stringer("id", id), zap.Error(toServerError(env)))
	c.reject(id)
}
