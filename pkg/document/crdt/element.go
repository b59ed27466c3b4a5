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

package crdt

import (
	"encoding/json"

	"github.com/canvasai/collab/pkg/document/time"
)

// Element is a node of the canvas scene graph. Besides its property
// registers it carries a liveness register: insert, update and move write
// true and delete writes false, all ordered by the same tickets as the
// properties. A deleted element stays in the arena as a tombstone.
type Element struct {
	id     string
	live   bool
	liveAt *time.Ticket
	props  *RHT
}

// NewElement creates a new instance of Element. It is neither live nor
// deleted until a liveness is written.
func NewElement(id string) *Element {
	return &Element{
		id:    id,
		props: NewRHT(),
	}
}

// ID returns the id of this element.
func (e *Element) ID() string {
	return e.id
}

// IsLive returns whether the element is visible in the document.
func (e *Element) IsLive() bool {
	return e.live
}

// IsRemoved returns whether the element is a tombstone.
func (e *Element) IsRemoved() bool {
	return e.liveAt != nil && !e.live
}

// LiveAt returns the ticket of the last liveness write.
func (e *Element) LiveAt() *time.Ticket {
	return e.liveAt
}

// Props returns the property registers of this element.
func (e *Element) Props() *RHT {
	return e.props
}

// Get returns the value of the given property.
func (e *Element) Get(key string) json.RawMessage {
	return e.props.Get(key)
}

// SetLive writes the liveness register. It returns whether it changed.
func (e *Element) SetLive(live bool, executedAt *time.Ticket) bool {
	if e.liveAt != nil && !executedAt.After(e.liveAt) {
		return false
	}

	changed := e.live != live
	e.live = live
	e.liveAt = executedAt
	return changed
}

// SetLiveInternal restores the liveness register from a snapshot.
func (e *Element) SetLiveInternal(live bool, liveAt *time.Ticket) {
	e.live = live
	e.liveAt = liveAt
}

// Marshal returns the JSON encoding of the element's properties.
func (e *Element) Marshal() string {
	return e.props.Marshal()
}

// DeepCopy copies itself deeply.
func (e *Element) DeepCopy() *Element {
	copied := &Element{
		id:    e.id,
		live:  e.live,
		props: e.props.DeepCopy(),
	}
	if e.liveAt != nil {
		copied.liveAt = time.NewTicket(e.liveAt.Lamport(), e.liveAt.ActorID())
	}
	return copied
}
