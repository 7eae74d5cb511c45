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

package ops

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hireloop/intake/internal/models"
)

type stubRunner struct {
	snap models.RunSnapshot
	runs chan struct{}
}

func (s *stubRunner) Run(ctx context.Context) error {
	if s.runs != nil {
		s.runs <- struct{}{}
	}
	return nil
}

func (s *stubRunner) Snapshot() models.RunSnapshot { return s.snap }

func TestServeHealth(t *testing.T) {
	tests := []struct {
		name       string
		pingers    map[string]Pinger
		wantStatus int
		wantState  string
	}{
		{
			name: "all healthy",
			pingers: map[string]Pinger{
				"postgres": func(ctx context.Context) error { return nil },
				"redis":    func(ctx context.Context) error { return nil },
			},
			wantStatus: http.StatusOK,
			wantState:  "healthy",
		},
		{
			name: "one dependency down",
			pingers: map[string]Pinger{
				"postgres": func(ctx context.Context) error { return nil },
				"redis":    func(ctx context.Context) error { return errors.New("connection refused") },
			},
			wantStatus: http.StatusServiceUnavailable,
			wantState:  "degraded",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler(&stubRunner{}, tt.pingers)

			req := httptest.NewRequest(http.MethodGet, "/health", nil)
			rec := httptest.NewRecorder()
			h.ServeHealth(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}

			var body struct {
				Status       string            `json:"status"`
				Dependencies map[string]string `json:"dependencies"`
			}
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			if body.Status != tt.wantState {
				t.Errorf("status field = %q, want %q", body.Status, tt.wantState)
			}
			if len(body.Dependencies) != len(tt.pingers) {
				t.Errorf("dependencies = %v", body.Dependencies)
			}
		})
	}
}

func TestServeStats(t *testing.T) {
	runner := &stubRunner{snap: models.RunSnapshot{
		EmailsProcessed:     10,
		ApplicationsCreated: 6,
		Skipped:             3,
		Errors:              1,
		LastRunAt:           time.Date(2026, 8, 26, 9, 0, 0, 0, time.UTC),
		LastRunDuration:     42 * time.Second,
	}}
	h := NewHandler(runner, nil)

	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	rec := httptest.NewRecorder()
	h.ServeStats(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if got := body["emails_processed"].(float64); got != 10 {
		t.Errorf("emails_processed = %v, want 10", got)
	}
	if got := body["applications_created"].(float64); got != 6 {
		t.Errorf("applications_created = %v, want 6", got)
	}
	if got := body["last_run_duration"].(string); got != "42s" {
		t.Errorf("last_run_duration = %q, want 42s", got)
	}
	if got := body["running"].(bool); got {
		t.Error("running = true, want false")
	}
}

func TestServeRunTriggersBackgroundRun(t *testing.T) {
	runner := &stubRunner{runs: make(chan struct{}, 1)}
	h := NewHandler(runner, nil)

	req := httptest.NewRequest(http.MethodPost, "/run", nil)
	rec := httptest.NewRecorder()
	h.ServeRun(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Errorf("status = %d, want 202", rec.Code)
	}

	select {
	case <-runner.runs:
	case <-time.After(time.Second):
		t.Fatal("run never triggered")
	}
}

func TestServeRunRejectsWhileRunning(t *testing.T) {
	runner := &stubRunner{snap: models.RunSnapshot{Running: true}}
	h := NewHandler(runner, nil)

	req := httptest.NewRequest(http.MethodPost, "/run", nil)
	rec := httptest.NewRecorder()
	h.ServeRun(rec, req)

	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rec.Code)
	}
}

func TestServeRunRejectsGet(t *testing.T) {
	h := NewHandler(&stubRunner{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/run", nil)
	rec := httptest.NewRecorder()
	h.ServeRun(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}
