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

package time

import (
	"sort"
	"strconv"
	"strings"
)

// VersionVector records, per actor, the highest lamport observed from that
// actor. It is used to reject clock regressions from a participant.
type VersionVector map[ActorID]int64

// NewVersionVector creates a new instance of VersionVector.
func NewVersionVector() VersionVector {
	return make(VersionVector)
}

// VersionOf returns the version of the given actor.
func (v VersionVector) VersionOf(id ActorID) int64 {
	return v[id]
}

// Observe raises the version of the given actor to lamport if it is higher.
func (v VersionVector) Observe(id ActorID, lamport int64) {
	if lamport > v[id] {
		v[id] = lamport
	}
}

// Max returns the highest lamport in the vector.
func (v VersionVector) Max() int64 {
	var max int64
	for _, lamport := range v {
		if lamport > max {
			max = lamport
		}
	}
	return max
}

// DeepCopy creates a deep copy of this VersionVector.
func (v VersionVector) DeepCopy() VersionVector {
	copied := NewVersionVector()
	for k, lamport := range v {
		copied[k] = lamport
	}
	return copied
}

// Marshal returns a deterministic string form of this VersionVector.
func (v VersionVector) Marshal() string {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k.String())
	}
	sort.Strings(keys)

	builder := strings.Builder{}
	builder.WriteRune('{')
	for i, k := range keys {
		if i > 0 {
			builder.WriteRune(',')
		}
		builder.WriteString(k)
		builder.WriteRune(':')
		builder.WriteString(strconv.FormatInt(v[ActorID(k)], 10))
	}
	builder.WriteRune('}')

	return builder.String()
}
