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

package types

import (
	"encoding/json"
	gotime "time"

	"github.com/canvasai/collab/pkg/document"
	"github.com/canvasai/collab/pkg/document/operations"
	"github.com/canvasai/collab/pkg/document/time"
	"github.com/canvasai/collab/pkg/presence"
)

// MessageType is the type of a message exchanged with a participant.
type MessageType string

// Messages sent by participants.
const (
	MessageJoin           MessageType = "join"
	MessageOpSubmit       MessageType = "op_submit"
	MessagePresenceUpdate MessageType = "presence_update"
	MessageLockRequest    MessageType = "lock_request"
	MessageLockRelease    MessageType = "lock_release"
	MessageHeartbeat      MessageType = "heartbeat"
	MessageLeave          MessageType = "leave"
)

// Messages sent by the server.
const (
	MessageJoinAck           MessageType = "join_ack"
	MessageOpAck             MessageType = "op_ack"
	MessageOpDelta           MessageType = "op_delta"
	MessagePresenceDelta     MessageType = "presence_delta"
	MessageLockResult        MessageType = "lock_result"
	MessageLockChanged       MessageType = "lock_changed"
	MessageHeartbeatAck      MessageType = "heartbeat_ack"
	MessageParticipantJoined MessageType = "participant_joined"
	MessageParticipantLeft   MessageType = "participant_left"
	MessageResync            MessageType = "resync"
	MessageError             MessageType = "error"
)

// IsLossy returns whether the message may be dropped under backpressure.
func (t MessageType) IsLossy() bool {
	return t == MessagePresenceDelta
}

// IsReply returns whether the message answers a request of the participant
// it is sent to. Replies are never dropped.
func (t MessageType) IsReply() bool {
	switch t {
	case MessageJoinAck, MessageOpAck, MessageLockResult, MessageHeartbeatAck, MessageError:
		return true
	}
	return false
}

// Envelope frames every message.
type Envelope struct {
	Type    MessageType     `json:"type"`
	ID      string          `json:"id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// JoinRequest admits the sender into a room.
type JoinRequest struct {
	RoomID     string `json:"roomId" validate:"required,identifier,max=128"`
	ProjectRef string `json:"projectRef,omitempty" validate:"omitempty,identifier,max=128"`
	AuthToken  string `json:"authToken" validate:"required"`
}

// Validate validates the JoinRequest.
func (r *JoinRequest) Validate() error {
	return validate(r)
}

// LockInfo is a lock as seen by participants.
type LockInfo struct {
	ElementID string       `json:"elementId"`
	Holder    time.ActorID `json:"holder"`
	Kind      string       `json:"kind"`
	ExpiresAt gotime.Time  `json:"expiresAt"`
}

// JoinAck bootstraps a participant.
type JoinAck struct {
	Participant  *Participant       `json:"participant"`
	Document     *document.Snapshot `json:"document"`
	Presence     []presence.Record  `json:"presence"`
	Participants []*Participant     `json:"participants"`
	Locks        []LockInfo         `json:"locks"`
	Color        string             `json:"color"`
}

// OpSubmit carries a local operation of the sender.
type OpSubmit struct {
	Operation *operations.Operation `json:"op" validate:"required"`
}

// Validate validates the OpSubmit.
func (r *OpSubmit) Validate() error {
	if err := validate(r); err != nil {
		return err
	}
	return r.Operation.Validate()
}

// OpAck acknowledges an operation merged room-side.
type OpAck struct {
	ID        operations.ID `json:"id"`
	Duplicate bool          `json:"duplicate,omitempty"`
}

// OpDelta carries an operation of another participant.
type OpDelta struct {
	Operation *operations.Operation `json:"op"`
}

// PresenceUpdate changes the sender's presence.
type PresenceUpdate struct {
	Cursor     *presence.Point `json:"cursor,omitempty"`
	HideCursor bool            `json:"hideCursor,omitempty"`
	Selection  *[]string       `json:"selection,omitempty" validate:"omitempty,max=1000,dive,required,max=256"`
}

// Validate validates the PresenceUpdate.
func (r *PresenceUpdate) Validate() error {
	return validate(r)
}

// Delta returns the presence delta of the update.
func (r *PresenceUpdate) Delta() presence.Delta {
	return presence.Delta{
		Cursor:     r.Cursor,
		HideCursor: r.HideCursor,
		Selection:  r.Selection,
	}
}

// PresenceDelta carries the presence of another participant. Removed is set
// when the record was purged.
type PresenceDelta struct {
	ParticipantID time.ActorID    `json:"participantId"`
	Cursor        *presence.Point `json:"cursor,omitempty"`
	Selection     []string        `json:"selection,omitempty"`
	Color         string          `json:"color,omitempty"`
	Removed       bool            `json:"removed,omitempty"`
}

// LockRequest asks for the lock of an element.
type LockRequest struct {
	ElementID string `json:"elementId" validate:"required,max=256"`
	Kind      string `json:"kind" validate:"required,lock_kind"`
	TTLMillis int64  `json:"ttlMillis,omitempty" validate:"gte=0"`
}

// Validate validates the LockRequest.
func (r *LockRequest) Validate() error {
	return validate(r)
}

// TTL returns the requested lease.
func (r *LockRequest) TTL() gotime.Duration {
	return gotime.Duration(r.TTLMillis) * gotime.Millisecond
}

// LockResult answers a LockRequest. Holder is the current holder when the
// lock was not granted.
type LockResult struct {
	ElementID string       `json:"elementId"`
	Granted   bool         `json:"granted"`
	Holder    time.ActorID `json:"holder,omitempty"`
	ExpiresAt gotime.Time  `json:"expiresAt"`
}

// LockRelease releases the lock of an element.
type LockRelease struct {
	ElementID string `json:"elementId" validate:"required,max=256"`
}

// Validate validates the LockRelease.
func (r *LockRelease) Validate() error {
	return validate(r)
}

// LockChanged announces a lock state change. An empty holder means the lock
// was released.
type LockChanged struct {
	ElementID string       `json:"elementId"`
	Holder    time.ActorID `json:"holder,omitempty"`
	Kind      string       `json:"kind,omitempty"`
	ExpiresAt *gotime.Time `json:"expiresAt,omitempty"`
}

// HeartbeatAck answers a heartbeat.
type HeartbeatAck struct {
	ServerTime gotime.Time `json:"serverTime"`
}

// ParticipantJoined announces a new participant.
type ParticipantJoined struct {
	Participant *Participant `json:"participant"`
}

// LeaveReason is why a participant left.
type LeaveReason string

// Leave reasons.
const (
	LeaveExplicit   LeaveReason = "leave"
	LeaveDisconnect LeaveReason = "disconnect"
	LeaveTimeout    LeaveReason = "timeout"
)

// ParticipantLeft announces a departure.
type ParticipantLeft struct {
	ParticipantID time.ActorID `json:"participantId"`
	Reason        LeaveReason  `json:"reason"`
}

// Resync replaces the receiver's state after its outbound queue overflowed.
type Resync struct {
	Document     *document.Snapshot `json:"document"`
	Presence     []presence.Record  `json:"presence"`
	Participants []*Participant     `json:"participants"`
	Locks        []LockInfo         `json:"locks"`
}

// Error reports a failed request to its sender only.
type Error struct {
	Code    string `json:"code"`
	Status  string `json:"status"`
	Message string `json:"message"`
}
