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

package time

import (
	"errors"
	"strings"
)

var (
	// InitialActorID is the actor of state that predates every participant,
	// e.g. a canvas bootstrapped from a project's last saved payload.
	InitialActorID = ActorID("")

	// ErrInvalidActorID is returned when the given ID is not valid.
	ErrInvalidActorID = errors.New("invalid actor id")
)

// maxActorIDLength bounds the size of actor ids embedded in every ticket.
const maxActorIDLength = 128

// ActorID identifies the replica that issued an operation. Participants use
// the user id given by the auth collaborator.
type ActorID string

// NewActorID validates the given string and returns it as an ActorID.
func NewActorID(id string) (ActorID, error) {
	if id == "" || len(id) > maxActorIDLength {
		return InitialActorID, ErrInvalidActorID
	}
	if strings.TrimSpace(id) != id {
		return InitialActorID, ErrInvalidActorID
	}

	return ActorID(id), nil
}

// String returns the string form of the ActorID.
func (id ActorID) String() string {
	return string(id)
}

// Compare returns an integer comparing two ActorIDs lexicographically.
// The result will be 0 if id==other, -1 if id < other, and +1 if id > other.
func (id ActorID) Compare(other ActorID) int {
	return strings.Compare(string(id), string(other))
}
