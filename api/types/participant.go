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
	gotime "time"

	"github.com/canvasai/collab/pkg/document/time"
)

// Identity is the user given by the auth collaborator.
type Identity struct {
	UserID string `json:"userId"`
	Email  string `json:"email,omitempty"`
	Name   string `json:"name,omitempty"`
}

// ActorID returns the document actor of the user.
func (i *Identity) ActorID() time.ActorID {
	return time.ActorID(i.UserID)
}

// Participant is a user connected to a room.
type Participant struct {
	ID       time.ActorID `json:"id"`
	Name     string       `json:"name,omitempty"`
	Email    string       `json:"email,omitempty"`
	Role     Role         `json:"role"`
	Color    string       `json:"color"`
	JoinedAt gotime.Time  `json:"joinedAt"`
}

// NewParticipant creates a participant of the given identity.
func NewParticipant(identity *Identity, role Role, joinedAt gotime.Time) *Participant {
	return &Participant{
		ID:       identity.ActorID(),
		Name:     identity.Name,
		Email:    identity.Email,
		Role:     role,
		JoinedAt: joinedAt,
	}
}

// DeepCopy copies the participant.
func (p *Participant) DeepCopy() *Participant {
	if p == nil {
		return nil
	}
	copied := *p
	return &copied
}
