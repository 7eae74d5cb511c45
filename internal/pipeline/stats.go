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

package pipeline

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/hireloop/intake/internal/models"
)

// Stats aggregates one run's counters. The counters are incremented by
// concurrent message pipelines within a batch, so they are atomic; the
// run timestamps are written only by the orchestrator goroutine between
// runs, guarded by a mutex against snapshot readers.
type Stats struct {
	processed atomic.Int64
	created   atomic.Int64
	skipped   atomic.Int64
	errors    atomic.Int64

	mu         sync.Mutex
	lastRunAt  time.Time
	lastRunDur time.Duration
	running    bool
}

// reset clears the counters at the start of a run.
func (s *Stats) reset() {
	s.processed.Store(0)
	s.created.Store(0)
	s.skipped.Store(0)
	s.errors.Store(0)

	s.mu.Lock()
	s.running = true
	s.mu.Unlock()
}

// finish records the run's wall clock.
func (s *Stats) finish(startedAt time.Time) {
	s.mu.Lock()
	s.lastRunAt = startedAt
	s.lastRunDur = time.Since(startedAt)
	s.running = false
	s.mu.Unlock()
}

// Snapshot returns a read-only view for operators.
func (s *Stats) Snapshot() models.RunSnapshot {
	s.mu.Lock()
	lastAt, lastDur, running := s.lastRunAt, s.lastRunDur, s.running
	s.mu.Unlock()

	return models.RunSnapshot{
		EmailsProcessed:     s.processed.Load(),
		ApplicationsCreated: s.created.Load(),
		Skipped:             s.skipped.Load(),
		Errors:              s.errors.Load(),
		LastRunAt:           lastAt,
		LastRunDuration:     lastDur,
		Running:             running,
	}
}
