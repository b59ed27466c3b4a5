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

// Package pubsub provides the outbound side of the room broadcast: a bounded
// queue per connection and a hub fanning messages out to every queue of a
// room. Publishing never blocks, so one slow connection cannot delay the
// others.
package pubsub

import (
	"sync"

	"github.com/rs/xid"

	"github.com/canvasai/collab/api/types"
	"github.com/canvasai/collab/pkg/document/time"
)

// Lanes of dropped messages.
const (
	LanePresence = "presence"
	LaneDocument = "document"
)

// Message is an encoded envelope ready to be written to a connection.
type Message struct {
	Type types.MessageType
	Data []byte
}

// Lossy returns whether the message may be dropped under backpressure.
func (m Message) Lossy() bool {
	return m.Type.IsLossy()
}

// DropFunc is called with the lane of every dropped message.
type DropFunc func(lane string)

// Subscription is the bounded outbound queue of one connection. When the
// queue is full the oldest lossy message is dropped first. When no lossy
// message is left, queued broadcasts are discarded and the subscription is
// flagged for resynchronization: the writer must send a fresh snapshot before
// anything else. Replies to the subscriber's own requests are kept and do
// not count against the capacity; they are bounded by the requests in flight.
type Subscription struct {
	id         string
	subscriber time.ActorID
	capacity   int
	onDrop     DropFunc

	mu          sync.Mutex
	queue       []Message
	needsResync bool
	closed      bool

	notify chan struct{}
	done   chan struct{}
}

// NewSubscription creates a new instance of Subscription with the given
// capacity.
func NewSubscription(subscriber time.ActorID, capacity int, onDrop DropFunc) *Subscription {
	if capacity < 1 {
		capacity = 1
	}
	return &Subscription{
		id:         xid.New().String(),
		subscriber: subscriber,
		capacity:   capacity,
		onDrop:     onDrop,
		notify:     make(chan struct{}, 1),
		done:       make(chan struct{}),
	}
}

// ID returns the id of this subscription.
func (s *Subscription) ID() string {
	return s.id
}

// Subscriber returns the subscriber of this subscription.
func (s *Subscription) Subscriber() time.ActorID {
	return s.subscriber
}

// Notify is signalled when messages are queued or a resync is needed.
func (s *Subscription) Notify() <-chan struct{} {
	return s.notify
}

// Done is closed when the subscription is closed.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Publish queues the message. It returns false when the message itself was
// not queued.
func (s *Subscription) Publish(msg Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}

	if !msg.Type.IsReply() && s.broadcasts() >= s.capacity && !s.dropOldestLossy() {
		if msg.Lossy() {
			s.drop(LanePresence)
			return false
		}

		s.discardBroadcasts()
		s.drop(LaneDocument)
		s.needsResync = true
		s.signal()
		return false
	}

	s.queue = append(s.queue, msg)
	s.signal()
	return true
}

func (s *Subscription) broadcasts() int {
	count := 0
	for _, queued := range s.queue {
		if !queued.Type.IsReply() {
			count++
		}
	}
	return count
}

// discardBroadcasts keeps only the replies of the queue.
func (s *Subscription) discardBroadcasts() {
	replies := s.queue[:0]
	for _, queued := range s.queue {
		if queued.Type.IsReply() {
			replies = append(replies, queued)
			continue
		}
		s.drop(LaneDocument)
	}
	s.queue = replies
}

func (s *Subscription) dropOldestLossy() bool {
	for i, queued := range s.queue {
		if queued.Lossy() {
			s.queue = append(s.queue[:i], s.queue[i+1:]...)
			s.drop(LanePresence)
			return true
		}
	}
	return false
}

func (s *Subscription) drop(lane string) {
	if s.onDrop != nil {
		s.onDrop(lane)
	}
}

func (s *Subscription) signal() {
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// Drain takes every queued message. resync is true when the queue
// overflowed since the last drain; the caller must then send a snapshot
// before the returned messages.
func (s *Subscription) Drain() (msgs []Message, resync bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msgs = s.queue
	s.queue = nil
	resync = s.needsResync
	s.needsResync = false
	return msgs, resync
}

// Len returns the number of queued messages.
func (s *Subscription) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.queue)
}

// Close closes the subscription. Queued messages are discarded.
func (s *Subscription) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.closed {
		s.closed = true
		s.queue = nil
		close(s.done)
	}
}

// IsClosed returns whether the subscription is closed.
func (s *Subscription) IsClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.closed
}
