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
	"sort"
	"strconv"
	"strings"

	"github.com/canvasai/collab/pkg/document/time"
)

// RHTNode is a node of RHT(Replicated Hashtable).
type RHTNode struct {
	key       string
	val       json.RawMessage
	updatedAt *time.Ticket
}

func newRHTNode(key string, val json.RawMessage, updatedAt *time.Ticket) *RHTNode {
	return &RHTNode{
		key:       key,
		val:       val,
		updatedAt: updatedAt,
	}
}

// Key returns the key of this node.
func (n *RHTNode) Key() string {
	return n.key
}

// Value returns the value of this node.
func (n *RHTNode) Value() json.RawMessage {
	return n.val
}

// UpdatedAt returns the last update time.
func (n *RHTNode) UpdatedAt() *time.Ticket {
	return n.updatedAt
}

// RHT is a hashtable of last-writer-wins registers, one per property. A
// register only accepts a write whose ticket is after its current one, so
// the final value does not depend on the order writes arrive in.
type RHT struct {
	nodeMapByKey map[string]*RHTNode
}

// NewRHT creates a new instance of RHT.
func NewRHT() *RHT {
	return &RHT{
		nodeMapByKey: make(map[string]*RHTNode),
	}
}

// Get returns the value of the given key.
func (rht *RHT) Get(key string) json.RawMessage {
	if node, ok := rht.nodeMapByKey[key]; ok {
		return node.val
	}

	return nil
}

// Has returns whether the element exists of the given key or not.
func (rht *RHT) Has(key string) bool {
	_, ok := rht.nodeMapByKey[key]
	return ok
}

// Node returns the register of the given key.
func (rht *RHT) Node(key string) *RHTNode {
	return rht.nodeMapByKey[key]
}

// Set sets the value of the given key if executedAt wins over the current
// register. It returns whether the register changed.
func (rht *RHT) Set(k string, v json.RawMessage, executedAt *time.Ticket) bool {
	node := rht.nodeMapByKey[k]
	if node != nil && !executedAt.After(node.updatedAt) {
		return false
	}

	rht.nodeMapByKey[k] = newRHTNode(k, append(json.RawMessage(nil), v...), executedAt)
	return true
}

// SetInternal sets the value of the given key regardless of its ticket. It
// is used when restoring a snapshot.
func (rht *RHT) SetInternal(k string, v json.RawMessage, updatedAt *time.Ticket) {
	rht.nodeMapByKey[k] = newRHTNode(k, v, updatedAt)
}

// Elements returns a map of elements because the map easy to use for loop.
func (rht *RHT) Elements() map[string]json.RawMessage {
	members := make(map[string]json.RawMessage, len(rht.nodeMapByKey))
	for _, node := range rht.nodeMapByKey {
		members[node.key] = node.val
	}

	return members
}

// Nodes returns the registers sorted by key.
func (rht *RHT) Nodes() []*RHTNode {
	nodes := make([]*RHTNode, 0, len(rht.nodeMapByKey))
	for _, node := range rht.nodeMapByKey {
		nodes = append(nodes, node)
	}
	sort.Slice(nodes, func(i, j int) bool {
		return nodes[i].key < nodes[j].key
	})

	return nodes
}

// Len returns the number of elements.
func (rht *RHT) Len() int {
	return len(rht.nodeMapByKey)
}

// DeepCopy copies itself deeply.
func (rht *RHT) DeepCopy() *RHT {
	instance := NewRHT()

	for _, node := range rht.nodeMapByKey {
		instance.SetInternal(
			node.key,
			append(json.RawMessage(nil), node.val...),
			time.NewTicket(node.updatedAt.Lamport(), node.updatedAt.ActorID()),
		)
	}

	return instance
}

// Marshal returns the JSON encoding of this hashtable.
func (rht *RHT) Marshal() string {
	sb := strings.Builder{}
	sb.WriteString("{")
	for idx, node := range rht.Nodes() {
		if idx > 0 {
			sb.WriteString(",")
		}
		sb.WriteString(strconv.Quote(node.key))
		sb.WriteString(":")
		sb.Write(node.val)
	}
	sb.WriteString("}")

	return sb.String()
}
