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

// Package crdt provides the replicated data structures of the canvas
// document: last-writer-wins registers grouped into elements, held in a flat
// arena keyed by element id.
package crdt

import (
	"sort"
)

// Root is the arena of every element ever observed by the replica,
// tombstones included. Elements refer to each other only by id.
type Root struct {
	elementMapByID map[string]*Element
}

// NewRoot creates a new instance of Root.
func NewRoot() *Root {
	return &Root{
		elementMapByID: make(map[string]*Element),
	}
}

// Find returns the element of the given id, or nil.
func (r *Root) Find(id string) *Element {
	return r.elementMapByID[id]
}

// FindOrCreate returns the element of the given id, creating an empty one
// when the replica has not seen it yet.
func (r *Root) FindOrCreate(id string) *Element {
	if elem, ok := r.elementMapByID[id]; ok {
		return elem
	}

	elem := NewElement(id)
	r.elementMapByID[id] = elem
	return elem
}

// Register adds the given element to the arena, replacing any other.
func (r *Root) Register(elem *Element) {
	r.elementMapByID[elem.ID()] = elem
}

// Elements returns every element sorted by id, tombstones included.
func (r *Root) Elements() []*Element {
	elems := make([]*Element, 0, len(r.elementMapByID))
	for _, elem := range r.elementMapByID {
		elems = append(elems, elem)
	}
	sort.Slice(elems, func(i, j int) bool {
		return elems[i].ID() < elems[j].ID()
	})
	return elems
}

// Len returns the number of elements in the arena.
func (r *Root) Len() int {
	return len(r.elementMapByID)
}

// LiveLen returns the number of live elements.
func (r *Root) LiveLen() int {
	count := 0
	for _, elem := range r.elementMapByID {
		if elem.IsLive() {
			count++
		}
	}
	return count
}

// DeepCopy copies itself deeply.
func (r *Root) DeepCopy() *Root {
	copied := NewRoot()
	for _, elem := range r.elementMapByID {
		copied.Register(elem.DeepCopy())
	}
	return copied
}
