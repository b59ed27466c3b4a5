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
)

// RoomState is the lifecycle state of a room.
type RoomState string

const (
	// RoomWarming is a room being hydrated from storage.
	RoomWarming RoomState = "warming"

	// RoomActive is a room with at least one participant.
	RoomActive RoomState = "active"

	// RoomDraining is a room without participants waiting for the grace
	// period to end.
	RoomDraining RoomState = "draining"

	// RoomClosed is a room whose state was checkpointed and released.
	RoomClosed RoomState = "closed"
)

// RoomSummary is the admin view of a room.
type RoomSummary struct {
	ID             string      `json:"id"`
	ProjectRef     string      `json:"projectRef,omitempty"`
	State          RoomState   `json:"state"`
	Participants   int         `json:"participants"`
	Elements       int         `json:"elements"`
	Locks          int         `json:"locks"`
	Lamport        int64       `json:"lamport"`
	CreatedAt      gotime.Time `json:"createdAt"`
	LastActivityAt gotime.Time `json:"lastActivityAt"`
}
