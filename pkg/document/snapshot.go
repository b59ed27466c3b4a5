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

package document

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/canvasai/collab/pkg/document/crdt"
	"github.com/canvasai/collab/pkg/document/time"
)

// Snapshot is a self-contained copy of a document: registers, tombstones,
// clocks and the applied set. Its JSON encoding is deterministic.
type Snapshot struct {
	Lamport  int64                  `json:"lamport"`
	Clocks   map[time.ActorID]int64 `json:"clocks,omitempty"`
	Applied  []AppliedRange         `json:"applied,omitempty"`
	Elements []ElementSnapshot      `json:"elements"`
}

// AppliedRange is the applied sequences of one actor.
type AppliedRange struct {
	Actor time.ActorID `json:"actor"`
	Floor int64        `json:"floor"`
	Extra []int64      `json:"extra,omitempty"`
}

// ElementSnapshot is the state of one element.
type ElementSnapshot struct {
	ID     string             `json:"id"`
	Live   bool               `json:"live"`
	LiveAt *time.Ticket       `json:"liveAt,omitempty"`
	Props  []PropertySnapshot `json:"props,omitempty"`
}

// PropertySnapshot is the state of one property register.
type PropertySnapshot struct {
	Key       string          `json:"key"`
	Value     json.RawMessage `json:"value"`
	UpdatedAt *time.Ticket    `json:"updatedAt"`
}

// NewBootstrapSnapshot builds a snapshot from plain element property bags,
// e.g. a project's last saved canvas. Every register is stamped with the
// initial ticket so any participant edit wins over it.
func NewBootstrapSnapshot(elements map[string]map[string]json.RawMessage) *Snapshot {
	snap := &Snapshot{Lamport: time.InitialLamport}
	for id, props := range elements {
		elem := ElementSnapshot{
			ID:     id,
			Live:   true,
			LiveAt: time.InitialTicket,
		}
		for key, val := range props {
			elem.Props = append(elem.Props, PropertySnapshot{
				Key:       key,
				Value:     append(json.RawMessage(nil), val...),
				UpdatedAt: time.InitialTicket,
			})
		}
		sort.Slice(elem.Props, func(i, j int) bool { return elem.Props[i].Key < elem.Props[j].Key })
		snap.Elements = append(snap.Elements, elem)
	}
	sort.Slice(snap.Elements, func(i, j int) bool { return snap.Elements[i].ID < snap.Elements[j].ID })
	return snap
}

// Live returns the live elements of the snapshot as plain property bags.
func (s *Snapshot) Live() map[string]map[string]json.RawMessage {
	result := make(map[string]map[string]json.RawMessage)
	for _, elem := range s.Elements {
		if !elem.Live {
			continue
		}
		props := make(map[string]json.RawMessage, len(elem.Props))
		for _, prop := range elem.Props {
			props[prop.Key] = prop.Value
		}
		result[elem.ID] = props
	}
	return result
}

// Validate checks that the snapshot can be loaded.
func (s *Snapshot) Validate() error {
	if s.Lamport < time.InitialLamport {
		return fmt.Errorf("negative lamport %d: %w", s.Lamport, ErrCorruptSnapshot)
	}

	seen := make(map[string]struct{}, len(s.Elements))
	for _, elem := range s.Elements {
		if elem.ID == "" {
			return fmt.Errorf("element without id: %w", ErrCorruptSnapshot)
		}
		if _, ok := seen[elem.ID]; ok {
			return fmt.Errorf("duplicated element %s: %w", elem.ID, ErrCorruptSnapshot)
		}
		seen[elem.ID] = struct{}{}

		for _, prop := range elem.Props {
			if prop.UpdatedAt == nil || !json.Valid(prop.Value) {
				return fmt.Errorf("property %s of %s: %w", prop.Key, elem.ID, ErrCorruptSnapshot)
			}
		}
	}
	for _, rng := range s.Applied {
		if rng.Floor < 0 {
			return fmt.Errorf("applied range of %s: %w", rng.Actor, ErrCorruptSnapshot)
		}
	}

	return nil
}

func copyTicket(t *time.Ticket) *time.Ticket {
	if t == nil {
		return nil
	}
	return time.NewTicket(t.Lamport(), t.ActorID())
}

func snapshotElement(elem *crdt.Element) ElementSnapshot {
	snap := ElementSnapshot{
		ID:     elem.ID(),
		Live:   elem.IsLive(),
		LiveAt: copyTicket(elem.LiveAt()),
	}
	for _, node := range elem.Props().Nodes() {
		snap.Props = append(snap.Props, PropertySnapshot{
			Key:       node.Key(),
			Value:     append(json.RawMessage(nil), node.Value()...),
			UpdatedAt: copyTicket(node.UpdatedAt()),
		})
	}
	return snap
}

func restoreElement(snap ElementSnapshot) *crdt.Element {
	elem := crdt.NewElement(snap.ID)
	elem.SetLiveInternal(snap.Live, copyTicket(snap.LiveAt))
	for _, prop := range snap.Props {
		elem.Props().SetInternal(
			prop.Key,
			append(json.RawMessage(nil), prop.Value...),
			copyTicket(prop.UpdatedAt),
		)
	}
	return elem
}
