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

// Package presence provides the ephemeral per-participant state of a room:
// cursor, selection and color. Presence does not take part in document
// convergence.
package presence

import (
	"sort"
	"sync"
	gotime "time"

	"github.com/canvasai/collab/pkg/document/time"
)

// Point is a cursor position in canvas coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Record is the presence of one participant.
type Record struct {
	Actor     time.ActorID `json:"participantId"`
	Color     string       `json:"color"`
	Cursor    *Point       `json:"cursor,omitempty"`
	Selection []string     `json:"selection"`
	UpdatedAt gotime.Time  `json:"updatedAt"`
}

// DeepCopy copies the record.
func (r Record) DeepCopy() Record {
	copied := r
	if r.Cursor != nil {
		cursor := *r.Cursor
		copied.Cursor = &cursor
	}
	copied.Selection = append([]string{}, r.Selection...)
	return copied
}

// Delta is a partial update of a record. Nil fields are left unchanged.
type Delta struct {
	Cursor     *Point
	HideCursor bool
	Selection  *[]string
}

// Store holds the presence records of a room.
type Store struct {
	mu      sync.RWMutex
	ttl     gotime.Duration
	records map[time.ActorID]*Record
}

// NewStore creates a store whose records are stale after ttl without
// refresh.
func NewStore(ttl gotime.Duration) *Store {
	return &Store{
		ttl:     ttl,
		records: make(map[time.ActorID]*Record),
	}
}

// Join creates the record of the participant, replacing any previous one.
func (s *Store) Join(actor time.ActorID, color string, now gotime.Time) Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	record := &Record{
		Actor:     actor,
		Color:     color,
		Selection: []string{},
		UpdatedAt: now,
	}
	s.records[actor] = record
	return record.DeepCopy()
}

// Upsert applies the delta to the participant's record and refreshes it.
func (s *Store) Upsert(actor time.ActorID, delta Delta, now gotime.Time) Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[actor]
	if !ok {
		record = &Record{Actor: actor, Selection: []string{}}
		s.records[actor] = record
	}

	if delta.HideCursor {
		record.Cursor = nil
	} else if delta.Cursor != nil {
		cursor := *delta.Cursor
		record.Cursor = &cursor
	}
	if delta.Selection != nil {
		record.Selection = append([]string{}, (*delta.Selection)...)
	}
	record.UpdatedAt = now

	return record.DeepCopy()
}

// Touch refreshes the record without changing it. It returns false when the
// participant has no record.
func (s *Store) Touch(actor time.ActorID, now gotime.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[actor]
	if !ok {
		return false
	}
	record.UpdatedAt = now
	return true
}

// Remove deletes the record of the participant.
func (s *Store) Remove(actor time.ActorID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[actor]; !ok {
		return false
	}
	delete(s.records, actor)
	return true
}

// Get returns the record of the participant.
func (s *Store) Get(actor time.ActorID) (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[actor]
	if !ok {
		return Record{}, false
	}
	return record.DeepCopy(), true
}

// Snapshot returns a copy of every record sorted by participant.
func (s *Store) Snapshot() []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]Record, 0, len(s.records))
	for _, record := range s.records {
		records = append(records, record.DeepCopy())
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].Actor < records[j].Actor
	})
	return records
}

// SweepStale removes the records not refreshed within the ttl and returns
// their participants.
func (s *Store) SweepStale(now gotime.Time) []time.ActorID {
	s.mu.Lock()
	defer s.mu.Unlock()

	var stale []time.ActorID
	for actor, record := range s.records {
		if now.Sub(record.UpdatedAt) >= s.ttl {
			stale = append(stale, actor)
			delete(s.records, actor)
		}
	}
	sort.Slice(stale, func(i, j int) bool { return stale[i] < stale[j] })
	return stale
}

// Colors returns the colors in use.
func (s *Store) Colors() map[string]struct{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	colors := make(map[string]struct{}, len(s.records))
	for _, record := range s.records {
		colors[record.Color] = struct{}{}
	}
	return colors
}

// Len returns the number of records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.records)
}
