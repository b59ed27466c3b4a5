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

package housekeeping

import (
	"context"
	"fmt"
	"time"

	"github.com/canvasai/collab/server/logging"
)

// Sweeper is the task run on every tick.
type Sweeper interface {
	Sweep(ctx context.Context) error
}

// Housekeeping is the housekeeping service. It periodically runs the
// sweeper until stopped.
type Housekeeping struct {
	sweeper  Sweeper
	interval time.Duration
	logger   logging.Logger

	ctx        context.Context
	cancelFunc context.CancelFunc
	done       chan struct{}
}

// New creates a new housekeeping instance.
func New(conf *Config, sweeper Sweeper) (*Housekeeping, error) {
	interval, err := conf.ParseInterval()
	if err != nil {
		return nil, err
	}
	if interval <= 0 {
		return nil, fmt.Errorf("housekeeping interval %s: must be positive", conf.Interval)
	}

	ctx, cancelFunc := context.WithCancel(context.Background())

	return &Housekeeping{
		sweeper:    sweeper,
		interval:   interval,
		logger:     logging.New("hskp"),
		ctx:        ctx,
		cancelFunc: cancelFunc,
		done:       make(chan struct{}),
	}, nil
}

// Start starts the housekeeping loop.
func (h *Housekeeping) Start() error {
	go h.run()
	return nil
}

// Stop stops the housekeeping loop and waits for it to exit.
func (h *Housekeeping) Stop() error {
	h.cancelFunc()
	<-h.done

	return nil
}

func (h *Housekeeping) run() {
	defer close(h.done)

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			start := time.Now()
			if err := h.sweeper.Sweep(logging.With(h.ctx, h.logger)); err != nil {
				h.logger.Errorf("HSKP: sweep: %v", err)
				continue
			}
			if elapsed := time.Since(start); elapsed > h.interval {
				h.logger.Warnf("HSKP: sweep took %s, longer than interval %s", elapsed, h.interval)
			}
		case <-h.ctx.Done():
			return
		}
	}
}
