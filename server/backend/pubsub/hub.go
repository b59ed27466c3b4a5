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

package pubsub

import (
	"github.com/canvasai/collab/pkg/cmap"
	"github.com/canvasai/collab/pkg/document/time"
)

// Hub holds the subscriptions of one room, one per participant.
type Hub struct {
	subs *cmap.Map[*Subscription]
}

// NewHub creates a new instance of Hub.
func NewHub() *Hub {
	return &Hub{
		subs: cmap.New[*Subscription](),
	}
}

// Add registers the subscription of its subscriber. A previous subscription
// of the same subscriber is closed and returned.
func (h *Hub) Add(sub *Subscription) *Subscription {
	var replaced *Subscription
	h.subs.Upsert(sub.Subscriber().String(), func(prev *Subscription, exists bool) *Subscription {
		if exists && prev != sub {
			replaced = prev
		}
		return sub
	})

	if replaced != nil {
		replaced.Close()
	}
	return replaced
}

// Remove closes and removes the subscription of the subscriber. When id is
// not empty only the subscription of that id is removed.
func (h *Hub) Remove(subscriber time.ActorID, id string) bool {
	return h.subs.Delete(subscriber.String(), func(sub *Subscription, exists bool) bool {
		if !exists || (id != "" && sub.ID() != id) {
			return false
		}
		sub.Close()
		return true
	})
}

// Get returns the subscription of the subscriber.
func (h *Hub) Get(subscriber time.ActorID) (*Subscription, bool) {
	return h.subs.Get(subscriber.String())
}

// Send queues the message for one subscriber.
func (h *Hub) Send(subscriber time.ActorID, msg Message) bool {
	sub, ok := h.subs.Get(subscriber.String())
	if !ok {
		return false
	}
	return sub.Publish(msg)
}

// Broadcast queues the message for every subscriber except the given one
// and returns the number of subscriptions that accepted it.
func (h *Hub) Broadcast(msg Message, except time.ActorID) int {
	delivered := 0
	for _, sub := range h.subs.Values() {
		if sub.Subscriber() == except {
			continue
		}
		if sub.Publish(msg) {
			delivered++
		}
	}
	return delivered
}

// Subscribers returns the subscribers in order.
func (h *Hub) Subscribers() []time.ActorID {
	keys := h.subs.Keys()
	subscribers := make([]time.ActorID, 0, len(keys))
	for _, key := range keys {
		subscribers = append(subscribers, time.ActorID(key))
	}
	return subscribers
}

// Len returns the number of subscriptions.
func (h *Hub) Len() int {
	return h.subs.Len()
}

// Close closes every subscription.
func (h *Hub) Close() {
	for _, key := range h.subs.Keys() {
		h.subs.Delete(key, func(sub *Subscription, exists bool) bool {
			if exists {
				sub.Close()
			}
			return exists
		})
	}
}
