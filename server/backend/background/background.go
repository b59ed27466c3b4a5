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

// Package background runs the detached work of the rooms, such as
// asynchronous checkpoints, and lets shutdown wait for it to finish.
package background

import (
	"context"
	"fmt"
	"sync"

	"github.com/canvasai/collab/server/logging"
	"github.com/canvasai/collab/server/profiling/prometheus"
)

// Background tracks the goroutines started on behalf of the rooms.
type Background struct {
	mu      sync.Mutex
	closed  bool
	seq     uint64
	running map[string]int
	wg      sync.WaitGroup

	// metrics may be nil in tests.
	metrics *prometheus.Metrics
}

// New creates a new background service.
func New(metrics *prometheus.Metrics) *Background {
	return &Background{
		running: make(map[string]int),
		metrics: metrics,
	}
}

// AttachGoroutine runs f on a new goroutine tagged with the task type. The
// context carries a logger named after the task. It returns false once Close
// was called; f is not run then.
func (b *Background) AttachGoroutine(
	f func(ctx context.Context),
	taskType string,
) bool {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		logging.DefaultLogger().Warnf("background closed, %s not started", taskType)
		return false
	}
	b.wg.Add(1)
	b.seq++
	b.running[taskType]++
	name := fmt.Sprintf("%s-%d", taskType, b.seq)
	b.mu.Unlock()

	if b.metrics != nil {
		b.metrics.AddBackgroundGoroutines(taskType)
	}

	ctx := logging.With(context.Background(), logging.New(name, logging.NewField("task", taskType)))
	go func() {
		defer b.finish(taskType)
		f(ctx)
	}()
	return true
}

func (b *Background) finish(taskType string) {
	b.mu.Lock()
	if b.running[taskType]--; b.running[taskType] == 0 {
		delete(b.running, taskType)
	}
	b.mu.Unlock()

	if b.metrics != nil {
		b.metrics.RemoveBackgroundGoroutines(taskType)
	}
	b.wg.Done()
}

// Running returns the number of goroutines of the task type still running.
func (b *Background) Running(taskType string) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.running[taskType]
}

// Close refuses new goroutines and waits for the running ones. Rooms
// checkpointing at shutdown finish their saves before Close returns.
func (b *Background) Close() {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()

	b.wg.Wait()
}
