// Copyright (c) 2026 John Earle
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package resilience provides the generic guards wrapped around every
// external call in the pipeline: a deadline wrapper and a per-dependency
// circuit breaker. Both accept arbitrary fallible operations so the
// logic is never duplicated per call site.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// TimeoutError reports that an operation exceeded its deadline. It is
// tagged with the operation name so timeouts stay distinguishable from
// ordinary stage failures in logs and counters.
type TimeoutError struct {
	Op      string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s timed out after %s", e.Op, e.Timeout)
}

// IsTimeout reports whether err is (or wraps) a TimeoutError.
func IsTimeout(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}

// WithTimeout races fn against the deadline. On expiry the operation is
// abandoned — its goroutine may still be running, but the result is
// discarded — and a TimeoutError is returned. fn receives a context that
// is cancelled at the deadline so cooperative operations can stop early.
func WithTimeout[T any](ctx context.Context, op string, timeout time.Duration, fn func(ctx context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		value T
		err   error
	}

	// Buffered so the abandoned goroutine can exit after a timeout.
	ch := make(chan outcome, 1)

	go func() {
		v, err := fn(ctx)
		ch <- outcome{value: v, err: err}
	}()

	select {
	case out := <-ch:
		return out.value, out.err
	case <-ctx.Done():
		var zero T
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return zero, &TimeoutError{Op: op, Timeout: timeout}
		}
		return zero, ctx.Err()
	}
}
