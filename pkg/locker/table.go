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

// Package locker provides the advisory element lock table of a room. Locks
// never block document operations; they tell other participants that an
// element is being manipulated.
package locker

import (
	"sort"
	"sync"
	gotime "time"

	"github.com/canvasai/collab/pkg/document/time"
)

// Kind is the kind of manipulation a lock is taken for.
type Kind string

const (
	// KindMove is taken while dragging an element.
	KindMove Kind = "move"

	// KindResize is taken while resizing an element.
	KindResize Kind = "resize"

	// KindRotate is taken while rotating an element.
	KindRotate Kind = "rotate"

	// KindEdit is taken while editing the content of an element.
	KindEdit Kind = "edit"
)

// IsValid returns whether the kind is known.
func (k Kind) IsValid() bool {
	switch k {
	case KindMove, KindResize, KindRotate, KindEdit:
		return true
	}
	return false
}

// Lock is a lease on one element.
type Lock struct {
	ElementID  string
	Holder     time.ActorID
	Kind       Kind
	AcquiredAt gotime.Time
	ExpiresAt  gotime.Time
}

// IsExpired returns whether the lock is expired at the given time.
func (l Lock) IsExpired(now gotime.Time) bool {
	return !now.Before(l.ExpiresAt)
}

// Table holds at most one lock per element.
type Table struct {
	mu    sync.Mutex
	locks map[string]Lock
}

// NewTable creates a new instance of Table.
func NewTable() *Table {
	return &Table{
		locks: make(map[string]Lock),
	}
}

// Acquire takes the lock of the element if it is free, expired or already
// held by the holder, in which case the lease is extended. It returns false
// when another holder has a live lock.
func (t *Table) Acquire(
	elementID string,
	holder time.ActorID,
	kind Kind,
	ttl gotime.Duration,
	now gotime.Time,
) (Lock, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.sweepLocked(now)

	if current, ok := t.locks[elementID]; ok && current.Holder != holder {
		return current, false
	}

	lock := Lock{
		ElementID:  elementID,
		Holder:     holder,
		Kind:       kind,
		AcquiredAt: now,
		ExpiresAt:  now.Add(ttl),
	}
	if current, ok := t.locks[elementID]; ok {
		lock.AcquiredAt = current.AcquiredAt
	}
	t.locks[elementID] = lock

	return lock, true
}

// Release drops the lock of the element if the caller holds it.
func (t *Table) Release(elementID string, holder time.ActorID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	current, ok := t.locks[elementID]
	if !ok || current.Holder != holder {
		return false
	}

	delete(t.locks, elementID)
	return true
}

// ReleaseAll drops every lock of the holder and returns them.
func (t *Table) ReleaseAll(holder time.ActorID) []Lock {
	t.mu.Lock()
	defer t.mu.Unlock()

	var released []Lock
	for id, lock := range t.locks {
		if lock.Holder == holder {
			released = append(released, lock)
			delete(t.locks, id)
		}
	}

	sortLocks(released)
	return released
}

// SweepExpired drops the expired locks and returns them.
func (t *Table) SweepExpired(now gotime.Time) []Lock {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.sweepLocked(now)
}

func (t *Table) sweepLocked(now gotime.Time) []Lock {
	var expired []Lock
	for id, lock := range t.locks {
		if lock.IsExpired(now) {
			expired = append(expired, lock)
			delete(t.locks, id)
		}
	}

	sortLocks(expired)
	return expired
}

// Holder returns the live lock of the element.
func (t *Table) Holder(elementID string, now gotime.Time) (Lock, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	lock, ok := t.locks[elementID]
	if !ok || lock.IsExpired(now) {
		return Lock{}, false
	}
	return lock, true
}

// Locks returns the live locks sorted by element id.
func (t *Table) Locks(now gotime.Time) []Lock {
	t.mu.Lock()
	defer t.mu.Unlock()

	locks := make([]Lock, 0, len(t.locks))
	for _, lock := range t.locks {
		if !lock.IsExpired(now) {
			locks = append(locks, lock)
		}
	}

	sortLocks(locks)
	return locks
}

// Len returns the number of locks in the table, expired ones included.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return len(t.locks)
}

func sortLocks(locks []Lock) {
	sort.Slice(locks, func(i, j int) bool {
		return locks[i].ElementID < locks[j].ElementID
	})
}
