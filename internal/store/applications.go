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

// Package store provides the Postgres-backed stores the pipeline depends
// on: application records (with the duplicate guard) and mailbox account
// configuration with its last-checked watermark.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hireloop/intake/internal/models"
)

// ErrAlreadyExists reports that an application for the same
// (sender email, job) pair already exists. The loser of a concurrent
// create race gets this error; the orchestrator treats it as a benign
// skip, not a failure.
var ErrAlreadyExists = errors.New("application already exists for this sender and job")

// ApplicationStore persists application records in Postgres.
type ApplicationStore struct {
	pool *pgxpool.Pool
}

// NewApplicationStore creates the store and ensures its schema exists.
func NewApplicationStore(ctx context.Context, pool *pgxpool.Pool) (*ApplicationStore, error) {
	s := &ApplicationStore{pool: pool}
	if err := s.ensureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure application schema: %w", err)
	}
	slog.Info("application store initialised")
	return s, nil
}

func (s *ApplicationStore) ensureSchema(ctx context.Context) error {
	// Two partial unique indexes implement the dedup key: NULL job is
	// its own key, so unassigned applications dedupe against other
	// unassigned ones from the same sender, never against job-bound ones.
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS applications (
			id               UUID PRIMARY KEY,
			candidate_name   TEXT NOT NULL DEFAULT '',
			candidate_email  TEXT NOT NULL,
			resume_url       TEXT DEFAULT '',
			raw_text         TEXT DEFAULT '',
			parsed           JSONB,
			valid            BOOLEAN NOT NULL DEFAULT FALSE,
			score            INT NOT NULL DEFAULT 0,
			score_reason     TEXT DEFAULT '',
			video_url        TEXT DEFAULT '',
			job_id           UUID,
			source           TEXT NOT NULL,
			source_mailbox   TEXT NOT NULL DEFAULT '',
			status           TEXT NOT NULL DEFAULT 'pending',
			needs_review     BOOLEAN NOT NULL DEFAULT FALSE,
			created_at       TIMESTAMPTZ DEFAULT NOW()
		);
		CREATE UNIQUE INDEX IF NOT EXISTS idx_apps_email_job
			ON applications(candidate_email, job_id) WHERE job_id IS NOT NULL;
		CREATE UNIQUE INDEX IF NOT EXISTS idx_apps_email_nojob
			ON applications(candidate_email) WHERE job_id IS NULL;
		CREATE INDEX IF NOT EXISTS idx_apps_status ON applications(status);
	`)
	return err
}

// normalizeEmail is the canonical form of the dedup key's email half.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Exists is the duplicate guard: true iff an application matches the
// exact (email, job) pair. Runs before any extraction or AI parsing.
func (s *ApplicationStore) Exists(ctx context.Context, email string, jobID *uuid.UUID) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM applications
			WHERE candidate_email = $1 AND job_id IS NOT DISTINCT FROM $2
		)
	`, normalizeEmail(email), jobID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("duplicate check: %w", err)
	}
	return exists, nil
}

// Create inserts a new application record. A uniqueness violation on the
// (email, job) key — the loser of a concurrent race — returns
// ErrAlreadyExists.
func (s *ApplicationStore) Create(ctx context.Context, rec *models.ApplicationRecord) (uuid.UUID, error) {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.Status == "" {
		rec.Status = models.StatusPending
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	var parsedJSON []byte
	if rec.Parsed != nil {
		var err error
		parsedJSON, err = json.Marshal(rec.Parsed)
		if err != nil {
			return uuid.Nil, fmt.Errorf("marshal parsed resume: %w", err)
		}
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO applications
			(id, candidate_name, candidate_email, resume_url, raw_text, parsed,
			 valid, score, score_reason, video_url, job_id, source,
			 source_mailbox, status, needs_review, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`,
		rec.ID, rec.CandidateName, normalizeEmail(rec.CandidateEmail),
		rec.ResumeURL, rec.RawText, parsedJSON,
		rec.Validation.Valid, rec.Validation.Score, rec.Validation.Reason,
		rec.VideoURL, rec.JobID, rec.Source,
		rec.SourceMailbox, rec.Status, rec.NeedsReview, rec.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return uuid.Nil, ErrAlreadyExists
		}
		return uuid.Nil, fmt.Errorf("insert application: %w", err)
	}

	return rec.ID, nil
}

// isUniqueViolation reports whether err is a Postgres unique_violation.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
