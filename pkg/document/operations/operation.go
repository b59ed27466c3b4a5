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

// Package operations implements the change records that are applied to the
// replicated document.
package operations

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/canvasai/collab/pkg/document/time"
	"github.com/canvasai/collab/pkg/errors"
)

// Kind is the kind of an operation.
type Kind string

const (
	// Insert creates an element with a full property snapshot.
	Insert Kind = "insert"

	// Update changes a subset of an element's properties.
	Update Kind = "update"

	// Delete marks an element as removed.
	Delete Kind = "delete"

	// Move changes the positional properties of an element.
	Move Kind = "move"
)

// Positional properties carried by Move.
const (
	PropParentID = "parentId"
	PropOrder    = "order"
)

const (
	maxTargetLength = 256
	maxPropKeyLen   = 128
)

var (
	// ErrInvalidKind is returned when the kind of the operation is unknown.
	ErrInvalidKind = errors.InvalidArgument("invalid operation kind").WithCode("ErrInvalidKind")

	// ErrMissingTarget is returned when the operation has no target element.
	ErrMissingTarget = errors.InvalidArgument("missing target element").WithCode("ErrMissingTarget")

	// ErrInvalidProps is returned when the properties do not fit the kind.
	ErrInvalidProps = errors.InvalidArgument("invalid operation properties").WithCode("ErrInvalidProps")

	// ErrInvalidID is returned when the operation id is malformed.
	ErrInvalidID = errors.InvalidArgument("invalid operation id").WithCode("ErrInvalidID")
)

// ID identifies an operation. (Actor, Seq) is unique per operation and is
// used for idempotent replay. Lamport is the causal clock used to order
// concurrent writes.
type ID struct {
	Actor   time.ActorID `json:"actor"`
	Seq     int64        `json:"seq"`
	Lamport int64        `json:"lamport"`
}

// Ticket returns the LWW key of the operation.
func (id ID) Ticket() *time.Ticket {
	return time.NewTicket(id.Lamport, id.Actor)
}

// IsStamped returns whether both clocks of the id are assigned.
func (id ID) IsStamped() bool {
	return id.Seq > 0 && id.Lamport > 0
}

// String returns a debug form of the id.
func (id ID) String() string {
	return fmt.Sprintf("%s/%d@%d", id.Actor, id.Seq, id.Lamport)
}

// Operation is an atomic change to one element of the document.
type Operation struct {
	ID     ID                         `json:"id"`
	Kind   Kind                       `json:"kind"`
	Target string                     `json:"target"`
	Props  map[string]json.RawMessage `json:"props,omitempty"`
}

// Validate checks the shape of the operation without looking at any
// document state.
func (o *Operation) Validate() error {
	if o == nil {
		return fmt.Errorf("nil operation: %w", ErrInvalidProps)
	}
	if o.ID.Actor == time.InitialActorID {
		return fmt.Errorf("operation without actor: %w", ErrInvalidID)
	}
	if o.ID.Seq < 0 || o.ID.Lamport < 0 {
		return fmt.Errorf("negative clock in %s: %w", o.ID, ErrInvalidID)
	}
	if o.Target == "" || len(o.Target) > maxTargetLength {
		return fmt.Errorf("target %q: %w", o.Target, ErrMissingTarget)
	}

	for key, val := range o.Props {
		if key == "" || len(key) > maxPropKeyLen {
			return fmt.Errorf("property key %q: %w", key, ErrInvalidProps)
		}
		if len(val) == 0 || !json.Valid(val) {
			return fmt.Errorf("property %q is not valid json: %w", key, ErrInvalidProps)
		}
	}

	switch o.Kind {
	case Insert, Update:
		if len(o.Props) == 0 {
			return fmt.Errorf("%s without properties: %w", o.Kind, ErrInvalidProps)
		}
	case Move:
		if len(o.Props) == 0 {
			return fmt.Errorf("move without position: %w", ErrInvalidProps)
		}
		for key := range o.Props {
			if key != PropParentID && key != PropOrder {
				return fmt.Errorf("move carries non positional %q: %w", key, ErrInvalidProps)
			}
		}
	case Delete:
		if len(o.Props) != 0 {
			return fmt.Errorf("delete with properties: %w", ErrInvalidProps)
		}
	default:
		return fmt.Errorf("kind %q: %w", o.Kind, ErrInvalidKind)
	}

	return nil
}

// Keys returns the property keys of the operation in sorted order.
func (o *Operation) Keys() []string {
	keys := make([]string, 0, len(o.Props))
	for k := range o.Props {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// DeepCopy copies the operation including its property values.
func (o *Operation) DeepCopy() *Operation {
	copied := &Operation{
		ID:     o.ID,
		Kind:   o.Kind,
		Target: o.Target,
	}
	if o.Props != nil {
		copied.Props = make(map[string]json.RawMessage, len(o.Props))
		for k, v := range o.Props {
			copied.Props[k] = append(json.RawMessage(nil), v...)
		}
	}
	return copied
}
