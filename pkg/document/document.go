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

// Package document provides the replicated canvas document. A Document
// merges operations from any number of replicas, in any order and with any
// duplication, into the same state.
package document

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/canvasai/collab/pkg/document/crdt"
	"github.com/canvasai/collab/pkg/document/operations"
	"github.com/canvasai/collab/pkg/document/time"
	"github.com/canvasai/collab/pkg/errors"
)

var (
	// ErrUnknownElement is returned when an operation targets an element
	// the replica has never seen.
	ErrUnknownElement = errors.InvalidArgument("unknown element").WithCode("ErrUnknownElement")

	// ErrClockRegression is returned when an actor issues a lamport that is
	// not after its previous one.
	ErrClockRegression = errors.InvalidArgument("clock regression").WithCode("ErrClockRegression")

	// ErrUnstampedOperation is returned when a remote operation has no clock.
	ErrUnstampedOperation = errors.InvalidArgument("unstamped remote operation").WithCode("ErrUnstampedOperation")

	// ErrCorruptSnapshot is returned when a snapshot cannot be loaded.
	ErrCorruptSnapshot = errors.Internal("corrupt snapshot").WithCode("ErrCorruptSnapshot")
)

// Delta is the result of applying a local operation.
type Delta struct {
	// Operation is the stamped operation to broadcast to other replicas.
	Operation *operations.Operation

	// Duplicate is true when the operation was already applied. Duplicates
	// change nothing and are not broadcast.
	Duplicate bool

	// Changed is true when a register took the operation's value.
	Changed bool
}

// Document is a replica of the canvas. It is not safe for concurrent use;
// callers serialize access to it.
type Document struct {
	root    *crdt.Root
	lamport int64
	clocks  time.VersionVector
	applied *appliedSet
}

// New creates an empty document.
func New() *Document {
	return &Document{
		root:    crdt.NewRoot(),
		lamport: time.InitialLamport,
		clocks:  time.NewVersionVector(),
		applied: newAppliedSet(),
	}
}

// NewFromSnapshot creates a document from the given snapshot.
func NewFromSnapshot(snap *Snapshot) (*Document, error) {
	doc := New()
	if err := doc.LoadSnapshot(snap); err != nil {
		return nil, err
	}
	return doc, nil
}

// Lamport returns the highest lamport observed by this replica.
func (d *Document) Lamport() int64 {
	return d.lamport
}

// NextTicketFor returns the id the next local operation of the actor would
// be stamped with.
func (d *Document) NextTicketFor(actor time.ActorID) operations.ID {
	return operations.ID{
		Actor:   actor,
		Seq:     d.applied.next(actor),
		Lamport: d.nextLamport(actor),
	}
}

func (d *Document) nextLamport(actor time.ActorID) int64 {
	lamport := d.lamport
	if v := d.clocks.VersionOf(actor); v > lamport {
		lamport = v
	}
	return lamport + 1
}

// IsApplied returns whether the operation of the given id was applied.
func (d *Document) IsApplied(id operations.ID) bool {
	return d.applied.has(id.Actor, id.Seq)
}

// ApplyLocal validates the operation against the current state, stamps the
// clocks it lacks and applies it. The returned delta carries the stamped
// operation. A resubmitted operation returns a duplicate delta. An insert of
// a live element merges into it like an update, so concurrent inserts of the
// same id converge on the later clock.
func (d *Document) ApplyLocal(op *operations.Operation) (*Delta, error) {
	if err := op.Validate(); err != nil {
		return nil, err
	}

	stamped := op.DeepCopy()
	if stamped.ID.Seq > 0 && d.applied.has(stamped.ID.Actor, stamped.ID.Seq) {
		return &Delta{Operation: stamped, Duplicate: true}, nil
	}

	if stamped.Kind != operations.Insert && d.root.Find(stamped.Target) == nil {
		return nil, fmt.Errorf("%s %s: %w", stamped.Kind, stamped.Target, ErrUnknownElement)
	}

	if stamped.ID.Seq == 0 {
		stamped.ID.Seq = d.applied.next(stamped.ID.Actor)
	}
	if stamped.ID.Lamport == 0 {
		stamped.ID.Lamport = d.nextLamport(stamped.ID.Actor)
	} else if prev := d.clocks.VersionOf(stamped.ID.Actor); stamped.ID.Lamport <= prev {
		return nil, fmt.Errorf(
			"lamport %d of %s is not after %d: %w",
			stamped.ID.Lamport, stamped.ID.Actor, prev, ErrClockRegression,
		)
	}

	changed := d.apply(stamped)
	return &Delta{Operation: stamped, Changed: changed}, nil
}

// ApplyRemote applies an operation issued by another replica. It returns
// false when the operation was already applied. A malformed operation is
// rejected before any register is touched.
func (d *Document) ApplyRemote(op *operations.Operation) (bool, error) {
	if err := op.Validate(); err != nil {
		return false, err
	}
	if !op.ID.IsStamped() {
		return false, fmt.Errorf("%s: %w", op.ID, ErrUnstampedOperation)
	}
	if d.applied.has(op.ID.Actor, op.ID.Seq) {
		return false, nil
	}

	d.apply(op.DeepCopy())
	return true, nil
}

// apply writes the stamped operation to the registers and records it.
func (d *Document) apply(op *operations.Operation) bool {
	ticket := op.ID.Ticket()
	elem := d.root.FindOrCreate(op.Target)

	changed := elem.SetLive(op.Kind != operations.Delete, ticket)
	for _, key := range op.Keys() {
		if elem.Props().Set(key, op.Props[key], ticket) {
			changed = true
		}
	}

	d.applied.add(op.ID.Actor, op.ID.Seq)
	d.clocks.Observe(op.ID.Actor, op.ID.Lamport)
	if op.ID.Lamport > d.lamport {
		d.lamport = op.ID.Lamport
	}

	return changed
}

// Element returns the live element of the given id.
func (d *Document) Element(id string) (*crdt.Element, bool) {
	elem := d.root.Find(id)
	if elem == nil || !elem.IsLive() {
		return nil, false
	}
	return elem, true
}

// Elements returns the live elements sorted by id.
func (d *Document) Elements() []*crdt.Element {
	var elems []*crdt.Element
	for _, elem := range d.root.Elements() {
		if elem.IsLive() {
			elems = append(elems, elem)
		}
	}
	return elems
}

// Len returns the number of live elements.
func (d *Document) Len() int {
	return d.root.LiveLen()
}

// Snapshot returns a deep copy of the document that shares nothing with it.
func (d *Document) Snapshot() *Snapshot {
	snap := &Snapshot{
		Lamport: d.lamport,
		Clocks:  d.clocks.DeepCopy(),
		Applied: d.applied.snapshot(),
	}
	for _, elem := range d.root.Elements() {
		snap.Elements = append(snap.Elements, snapshotElement(elem))
	}
	return snap
}

// LoadSnapshot replaces the state of the document with the snapshot. Clocks
// never move backwards: the document keeps the highest lamport it has seen.
func (d *Document) LoadSnapshot(snap *Snapshot) error {
	if snap == nil {
		return fmt.Errorf("nil snapshot: %w", ErrCorruptSnapshot)
	}
	if err := snap.Validate(); err != nil {
		return err
	}

	root := crdt.NewRoot()
	for _, elem := range snap.Elements {
		root.Register(restoreElement(elem))
	}

	clocks := time.NewVersionVector()
	for actor, lamport := range snap.Clocks {
		clocks.Observe(actor, lamport)
	}
	for actor, lamport := range d.clocks {
		clocks.Observe(actor, lamport)
	}

	lamport := snap.Lamport
	if d.lamport > lamport {
		lamport = d.lamport
	}
	if m := clocks.Max(); m > lamport {
		lamport = m
	}

	d.root = root
	d.clocks = clocks
	d.lamport = lamport
	d.applied = appliedSetFromSnapshot(snap.Applied)
	return nil
}

// Marshal returns the deterministic JSON encoding of the live elements.
func (d *Document) Marshal() string {
	sb := strings.Builder{}
	sb.WriteString("{")
	for idx, elem := range d.Elements() {
		if idx > 0 {
			sb.WriteString(",")
		}
		sb.WriteString(strconv.Quote(elem.ID()))
		sb.WriteString(":")
		sb.WriteString(elem.Marshal())
	}
	sb.WriteString("}")
	return sb.String()
}

// MarshalJSON encodes the live elements.
func (d *Document) MarshalJSON() ([]byte, error) {
	result := d.Marshal()
	if !json.Valid([]byte(result)) {
		return nil, fmt.Errorf("marshal document: %w", ErrCorruptSnapshot)
	}
	return []byte(result), nil
}
