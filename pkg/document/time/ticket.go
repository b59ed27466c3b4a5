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

// Package time provides the logical clock used to order operations.
package time

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

const (
	// InitialLamport is the initial value of Lamport timestamp.
	InitialLamport = 0

	// MaxLamport is the maximum value stored in lamport.
	MaxLamport = math.MaxInt64
)

var (
	// InitialTicket is the ticket of bootstrapped state. Every operation
	// issued by a participant is after it.
	InitialTicket = NewTicket(InitialLamport, InitialActorID)
)

// Ticket is the composite key used for last-writer-wins resolution. Tickets
// are ordered by lamport first and actor second, never by wall clock.
type Ticket struct {
	lamport int64
	actorID ActorID

	// cachedKey is the cache of the string representation of the ticket.
	cachedKey string
}

// NewTicket creates an instance of Ticket.
func NewTicket(lamport int64, actorID ActorID) *Ticket {
	return &Ticket{
		lamport: lamport,
		actorID: actorID,
	}
}

// ToTestString returns a string containing the metadata of the ticket
// for debugging purpose.
func (t *Ticket) ToTestString() string {
	return fmt.Sprintf("%d:%s", t.lamport, t.actorID)
}

// Key returns the key string for this Ticket.
func (t *Ticket) Key() string {
	if t.cachedKey == "" {
		t.cachedKey = strconv.FormatInt(t.lamport, 10) + ":" + t.actorID.String()
	}

	return t.cachedKey
}

// Lamport returns the lamport value.
func (t *Ticket) Lamport() int64 {
	return t.lamport
}

// ActorID returns the actorID value.
func (t *Ticket) ActorID() ActorID {
	return t.actorID
}

// After returns whether the given ticket was created later. A nil ticket is
// before every ticket.
func (t *Ticket) After(other *Ticket) bool {
	if other == nil {
		return true
	}

	return t.Compare(other) > 0
}

// Compare returns an integer comparing two Ticket.
// The result will be 0 if id==other, -1 if id < other, and +1 if id > other.
// If the receiver or argument is nil, it would panic at runtime.
func (t *Ticket) Compare(other *Ticket) int {
	if t.lamport > other.lamport {
		return 1
	} else if t.lamport < other.lamport {
		return -1
	}

	return t.actorID.Compare(other.actorID)
}

type ticketJSON struct {
	Lamport int64   `json:"lamport"`
	Actor   ActorID `json:"actor"`
}

// MarshalJSON ensures that when calling json.Marshal(),
// it is marshaled including private fields.
func (t *Ticket) MarshalJSON() ([]byte, error) {
	result, err := json.Marshal(ticketJSON{Lamport: t.lamport, Actor: t.actorID})
	if err != nil {
		return nil, fmt.Errorf("marshal ticket: %w", err)
	}

	return result, nil
}

// UnmarshalJSON ensures that when calling json.Unmarshal(),
// it is unmarshalled including private fields.
func (t *Ticket) UnmarshalJSON(bytes []byte) error {
	temp := ticketJSON{}
	if err := json.Unmarshal(bytes, &temp); err != nil {
		return fmt.Errorf("unmarshal ticket: %w", err)
	}
	if temp.Lamport < InitialLamport {
		return fmt.Errorf("unmarshal ticket: negative lamport %d", temp.Lamport)
	}

	t.lamport = temp.Lamport
	t.actorID = temp.Actor
	t.cachedKey = ""
	return nil
}
