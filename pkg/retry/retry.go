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

// Package retry runs fallible calls with exponential backoff.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	gotime "time"
)

// ErrExhausted is returned when every attempt failed.
var ErrExhausted = errors.New("retries exhausted")

// Permanent marks an error that must not be retried.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return permanentError{err: err}
}

type permanentError struct {
	err error
}

func (e permanentError) Error() string { return e.err.Error() }
func (e permanentError) Unwrap() error { return e.err }

// Config is the backoff policy.
type Config struct {
	MaxRetries   uint64
	BaseInterval gotime.Duration
	MaxInterval  gotime.Duration
}

// WithExponentialBackoff calls fn until it succeeds, returns a permanent
// error, the context is done or MaxRetries retries have been made. The wait
// before retry n is 2^n * BaseInterval capped at MaxInterval. onRetry, when
// not nil, is called with every error that is about to be retried.
func WithExponentialBackoff(
	ctx context.Context,
	conf Config,
	fn func(ctx context.Context) error,
	onRetry func(attempt uint64, err error),
) error {
	var lastErr error
	for retries := uint64(0); retries <= conf.MaxRetries; retries++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}

		var perm permanentError
		if errors.As(err, &perm) {
			return perm.err
		}
		lastErr = err

		if retries == conf.MaxRetries {
			break
		}
		if onRetry != nil {
			onRetry(retries+1, err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-gotime.After(WaitInterval(retries, conf.BaseInterval, conf.MaxInterval)):
		}
	}

	return fmt.Errorf("%d attempts, last error %v: %w", conf.MaxRetries+1, lastErr, ErrExhausted)
}

// WaitInterval returns the interval of given retries. It returns
// maxWaitInterval when the exponential interval exceeds it.
func WaitInterval(retries uint64, baseInterval, maxWaitInterval gotime.Duration) gotime.Duration {
	interval := gotime.Duration(math.Pow(2, float64(retries))) * baseInterval
	if maxWaitInterval < interval {
		return maxWaitInterval
	}

	return interval
}
