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
	"sort"

	"github.com/canvasai/collab/pkg/document/time"
)

// appliedRange is the set of sequences applied for one actor: every
// sequence up to floor plus the sparse ones above it.
type appliedRange struct {
	floor int64
	max   int64
	extra map[int64]struct{}
}

func (r *appliedRange) has(seq int64) bool {
	if seq <= r.floor {
		return true
	}
	_, ok := r.extra[seq]
	return ok
}

func (r *appliedRange) add(seq int64) {
	if seq > r.max {
		r.max = seq
	}
	if seq != r.floor+1 {
		if r.extra == nil {
			r.extra = make(map[int64]struct{})
		}
		r.extra[seq] = struct{}{}
		return
	}

	r.floor = seq
	for {
		if _, ok := r.extra[r.floor+1]; !ok {
			break
		}
		delete(r.extra, r.floor+1)
		r.floor++
	}
}

// appliedSet deduplicates operations by (actor, seq).
type appliedSet struct {
	ranges map[time.ActorID]*appliedRange
}

func newAppliedSet() *appliedSet {
	return &appliedSet{ranges: make(map[time.ActorID]*appliedRange)}
}

func (s *appliedSet) has(actor time.ActorID, seq int64) bool {
	r, ok := s.ranges[actor]
	return ok && r.has(seq)
}

func (s *appliedSet) add(actor time.ActorID, seq int64) {
	r, ok := s.ranges[actor]
	if !ok {
		r = &appliedRange{}
		s.ranges[actor] = r
	}
	r.add(seq)
}

// next returns the sequence to assign to a new operation of the actor.
func (s *appliedSet) next(actor time.ActorID) int64 {
	if r, ok := s.ranges[actor]; ok {
		return r.max + 1
	}
	return 1
}

func (s *appliedSet) snapshot() []AppliedRange {
	result := make([]AppliedRange, 0, len(s.ranges))
	for actor, r := range s.ranges {
		extra := make([]int64, 0, len(r.extra))
		for seq := range r.extra {
			extra = append(extra, seq)
		}
		sort.Slice(extra, func(i, j int) bool { return extra[i] < extra[j] })
		result = append(result, AppliedRange{Actor: actor, Floor: r.floor, Extra: extra})
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Actor < result[j].Actor
	})
	return result
}

func appliedSetFromSnapshot(ranges []AppliedRange) *appliedSet {
	s := newAppliedSet()
	for _, rng := range ranges {
		r := &appliedRange{floor: rng.Floor, max: rng.Floor}
		s.ranges[rng.Actor] = r
		for _, seq := range rng.Extra {
			r.add(seq)
		}
	}
	return s
}
