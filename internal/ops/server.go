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

// Package ops exposes the service's operational HTTP surface: liveness,
// run statistics, and a manual intake trigger.
package ops

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"github.com/hireloop/intake/internal/models"
	"github.com/hireloop/intake/internal/pipeline"
)

// Runner is the orchestrator surface the handler needs.
type Runner interface {
	Run(ctx context.Context) error
	Snapshot() models.RunSnapshot
}

// Pinger checks one dependency's reachability.
type Pinger func(ctx context.Context) error

// Handler serves the operational endpoints.
type Handler struct {
	runner  Runner
	pingers map[string]Pinger
}

// NewHandler creates the handler. pingers maps a dependency name (shown
// in the health payload) to its reachability check.
func NewHandler(runner Runner, pingers map[string]Pinger) *Handler {
	return &Handler{runner: runner, pingers: pingers}
}

// ServeHealth reports liveness plus per-dependency reachability. Any
// failing dependency degrades the response to 503.
func (h *Handler) ServeHealth(w http.ResponseWriter, r *http.Request) {
	deps := make(map[string]string, len(h.pingers))
	healthy := true
	for name, ping := range h.pingers {
		if err := ping(r.Context()); err != nil {
			deps[name] = err.Error()
			healthy = false
		} else {
			deps[name] = "ok"
		}
	}

	status := http.StatusOK
	state := "healthy"
	if !healthy {
		status = http.StatusServiceUnavailable
		state = "degraded"
	}

	writeJSON(w, status, map[string]any{
		"status":       state,
		"dependencies": deps,
	})
}

// ServeStats returns the most recent run's statistics.
func (h *Handler) ServeStats(w http.ResponseWriter, r *http.Request) {
	snap := h.runner.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"emails_processed":     snap.EmailsProcessed,
		"applications_created": snap.ApplicationsCreated,
		"skipped":              snap.Skipped,
		"errors":               snap.Errors,
		"last_run_at":          snap.LastRunAt,
		"last_run_duration":    snap.LastRunDuration.String(),
		"running":              snap.Running,
	})
}

// ServeRun triggers an intake run out of band. The run happens in the
// background; an already-active run answers 409 without queueing.
func (h *Handler) ServeRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	if h.runner.Snapshot().Running {
		writeJSON(w, http.StatusConflict, map[string]any{"error": "run already in progress"})
		return
	}

	go func() {
		err := h.runner.Run(context.Background())
		if err != nil && !errors.Is(err, pipeline.ErrRunInProgress) {
			slog.Error("manually triggered run failed", "error", err)
		}
	}()

	writeJSON(w, http.StatusAccepted, map[string]any{"status": "started"})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to write response", "error", err)
	}
}

// Serve starts the operational HTTP server on the given port. It binds
// the port immediately and signals readiness via the returned channel
// before starting to accept connections.
func Serve(ctx context.Context, port int, handler *Handler) (<-chan struct{}, error) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", handler.ServeHealth)
	mux.HandleFunc("/stats", handler.ServeStats)
	mux.HandleFunc("/run", handler.ServeRun)

	server := &http.Server{
		Handler: mux,
	}

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return nil, fmt.Errorf("bind ops port %d: %w", port, err)
	}

	ready := make(chan struct{})

	go func() {
		<-ctx.Done()
		slog.Info("ops server shutting down")
		server.Close()
	}()

	go func() {
		slog.Info("ops server listening", "port", port)
		close(ready)
		if err := server.Serve(ln); err != http.ErrServerClosed {
			slog.Error("ops server error", "error", err)
		}
	}()

	return ready, nil
}
