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

// Package cmap provides a sharded concurrent map keyed by string. It holds
// the room registry and the connection registry.
package cmap

import (
	"hash/fnv"
	"sort"
	"sync"
)

const numShards = 32

type shard[V any] struct {
	sync.RWMutex
	items map[string]V
}

// Map is a concurrent map that is safe for multiple routines.
type Map[V any] struct {
	shards [numShards]shard[V]
}

// New creates a new Map.
func New[V any]() *Map[V] {
	m := &Map[V]{}
	for i := range m.shards {
		m.shards[i].items = make(map[string]V)
	}
	return m
}

func (m *Map[V]) shardFor(key string) *shard[V] {
	hash := fnv.New32a()
	_, _ = hash.Write([]byte(key))
	return &m.shards[hash.Sum32()%numShards]
}

// Get retrieves a value from the map.
func (m *Map[V]) Get(key string) (V, bool) {
	s := m.shardFor(key)
	s.RLock()
	defer s.RUnlock()

	v, ok := s.items[key]
	return v, ok
}

// Set sets a key-value pair.
func (m *Map[V]) Set(key string, value V) {
	s := m.shardFor(key)
	s.Lock()
	defer s.Unlock()

	s.items[key] = value
}

// UpsertFunc is a function to insert or update a key-value pair.
type UpsertFunc[V any] func(value V, exists bool) V

// Upsert inserts or updates a key-value pair under the shard lock, so
// concurrent upserts of the same key are serialized.
func (m *Map[V]) Upsert(key string, upsertFunc UpsertFunc[V]) V {
	s := m.shardFor(key)
	s.Lock()
	defer s.Unlock()

	v, exists := s.items[key]
	res := upsertFunc(v, exists)
	s.items[key] = res
	return res
}

// DeleteFunc decides whether the existing value is deleted.
type DeleteFunc[V any] func(value V, exists bool) bool

// Delete removes the value if deleteFunc agrees. It returns whether a value
// was removed.
func (m *Map[V]) Delete(key string, deleteFunc DeleteFunc[V]) bool {
	s := m.shardFor(key)
	s.Lock()
	defer s.Unlock()

	value, exists := s.items[key]
	if !deleteFunc(value, exists) || !exists {
		return false
	}

	delete(s.items, key)
	return true
}

// Len returns the number of items in the map.
func (m *Map[V]) Len() int {
	count := 0
	for i := range m.shards {
		s := &m.shards[i]
		s.RLock()
		count += len(s.items)
		s.RUnlock()
	}
	return count
}

// Keys returns the keys of the map in sorted order.
func (m *Map[V]) Keys() []string {
	var keys []string
	for i := range m.shards {
		s := &m.shards[i]
		s.RLock()
		for k := range s.items {
			keys = append(keys, k)
		}
		s.RUnlock()
	}
	sort.Strings(keys)
	return keys
}

// Values returns the values of the map ordered by key.
func (m *Map[V]) Values() []V {
	var values []V
	for _, key := range m.Keys() {
		if v, ok := m.Get(key); ok {
			values = append(values, v)
		}
	}
	return values
}
