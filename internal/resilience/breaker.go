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

package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// CircuitState is the breaker's current disposition toward its dependency.
type CircuitState int

const (
	StateClosed CircuitState = iota
	StateOpen
	StateHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

const (
	// DefaultFailureThreshold is the consecutive-failure count that opens
	// the circuit.
	DefaultFailureThreshold = 5

	// DefaultResetWindow is how long the circuit stays open before one
	// probe call is allowed through.
	DefaultResetWindow = 60 * time.Second
)

// OpenError reports that a call was refused because the circuit for the
// named dependency is open. Callers should treat it as a skip, not retry.
type OpenError struct {
	Dependency string
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("circuit open for %s", e.Dependency)
}

// IsCircuitOpen reports whether err is (or wraps) an OpenError.
func IsCircuitOpen(err error) bool {
	var oe *OpenError
	return errors.As(err, &oe)
}

// Breaker is a circuit breaker scoped to one logical downstream
// dependency. Safe for concurrent use by the message pipelines of a batch.
type Breaker struct {
	name      string
	threshold int
	window    time.Duration

	mu          sync.Mutex
	state       CircuitState
	failures    int
	lastFailure time.Time

	// probing is set while the single half-open probe is in flight;
	// other callers are refused until record clears it.
	probing bool
}

// NewBreaker creates a breaker for the named dependency. Zero threshold
// or window fall back to the defaults.
func NewBreaker(name string, threshold int, window time.Duration) *Breaker {
	if threshold <= 0 {
		threshold = DefaultFailureThreshold
	}
	if window <= 0 {
		window = DefaultResetWindow
	}
	return &Breaker{
		name:      name,
		threshold: threshold,
		window:    window,
		state:     StateClosed,
	}
}

// State returns the breaker's current state, accounting for reset-window
// expiry (an open breaker past its window reports half-open).
func (b *Breaker) State() CircuitState {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == StateOpen && time.Since(b.lastFailure) >= b.window {
		return StateHalfOpen
	}
	return b.state
}

// allow decides whether a call may proceed, transitioning to half-open
// when the reset window has elapsed.
func (b *Breaker) allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return nil
	case StateHalfOpen:
		// Exactly one probe at a time; concurrent callers fail fast
		// until the probe's result is recorded.
		if b.probing {
			return &OpenError{Dependency: b.name}
		}
		b.probing = true
		return nil
	case StateOpen:
		if time.Since(b.lastFailure) >= b.window {
			b.state = StateHalfOpen
			b.probing = true
			slog.Info("circuit half-open, allowing probe", "dependency", b.name)
			return nil
		}
		return &OpenError{Dependency: b.name}
	}
	return nil
}

// record updates breaker state after a call completes.
func (b *Breaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.probing = false

	if err == nil {
		if b.state != StateClosed {
			slog.Info("circuit closed", "dependency", b.name)
		}
		b.state = StateClosed
		b.failures = 0
		return
	}

	b.failures++
	b.lastFailure = time.Now()

	// A half-open probe failure re-opens immediately; closed-state
	// failures open only at the threshold.
	if b.state == StateHalfOpen || b.failures >= b.threshold {
		if b.state != StateOpen {
			slog.Warn("circuit opened",
				"dependency", b.name,
				"failures", b.failures,
				"reset_window", b.window,
			)
		}
		b.state = StateOpen
	}
}

// Execute runs fn under the breaker. When the circuit is open the call
// fails fast with an OpenError and fn is never invoked.
func Execute[T any](ctx context.Context, b *Breaker, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	if err := b.allow(); err != nil {
		return zero, err
	}

	v, err := fn(ctx)
	b.record(err)
	if err != nil {
		return zero, err
	}
	return v, nil
}
