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

// Package pipeline drives the end-to-end resume intake run: poll each
// active mailbox, push its unread messages through classify → dedupe →
// extract → parse → validate → persist in bounded-size concurrent
// batches, and aggregate run statistics. A process-wide single-flight
// guard makes overlapping triggers a no-op.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/hireloop/intake/internal/classify"
	"github.com/hireloop/intake/internal/mailbox"
	"github.com/hireloop/intake/internal/models"
	"github.com/hireloop/intake/internal/objstore"
	"github.com/hireloop/intake/internal/queue"
	"github.com/hireloop/intake/internal/resilience"
	"github.com/hireloop/intake/internal/store"
	"github.com/hireloop/intake/internal/validate"
)

// Defaults for the batching knobs.
const (
	DefaultBatchSize      = 5
	DefaultMessageTimeout = 60 * time.Second
	DefaultBatchDelay     = 2 * time.Second
	DefaultRunInterval    = 15 * time.Minute
)

// ErrRunInProgress reports that a trigger fired while a run was already
// active. The trigger is skipped, not queued.
var ErrRunInProgress = errors.New("intake run already in progress")

// MailSession is one account's live mailbox connection.
type MailSession interface {
	FetchUnread() ([]models.MailMessage, error)
	MarkProcessed(uids []uint32) error
	Close() error
}

// Connector opens a mailbox session for an account's credentials.
type Connector func(creds mailbox.Credentials) (MailSession, error)

// AccountSource lists pollable accounts and advances their watermarks.
type AccountSource interface {
	ListActive(ctx context.Context) ([]store.Account, error)
	TouchLastChecked(ctx context.Context, id int64) error
}

// ApplicationStore is the persistence boundary: the duplicate guard and
// the single authoritative create.
type ApplicationStore interface {
	Exists(ctx context.Context, email string, jobID *uuid.UUID) (bool, error)
	Create(ctx context.Context, rec *models.ApplicationRecord) (uuid.UUID, error)
}

// Extractor produces plain text from a resume attachment.
type Extractor interface {
	Extract(ctx context.Context, a models.Attachment) (models.ExtractionResult, error)
}

// ResumeParser structures extracted text via the provider failover chain.
type ResumeParser interface {
	Parse(ctx context.Context, text string) (*models.ParsedResume, error)
}

// Uploader stores artifacts in object storage.
type Uploader interface {
	Upload(ctx context.Context, content []byte, filename string, kind objstore.Kind) (string, error)
}

// DedupFilter is the cheap message-ID first gate. IsNew atomically
// claims a message ID; Forget releases a claim so a failed message can
// be retried on a later poll.
type DedupFilter interface {
	IsNew(ctx context.Context, messageID string) (bool, error)
	Forget(ctx context.Context, messageID string) error
}

// EventPublisher emits application-created events.
type EventPublisher interface {
	PublishApplicationCreated(ctx context.Context, event queue.ApplicationCreated) error
}

// CredentialFunc turns a stored account into live connection credentials
// (decrypting the password).
type CredentialFunc func(a store.Account) (mailbox.Credentials, error)

// Config wires the orchestrator's dependencies and knobs.
type Config struct {
	Accounts    AccountSource
	Apps        ApplicationStore
	Extractor   Extractor
	Parser      ResumeParser
	Uploader    Uploader
	Dedup       DedupFilter
	Publisher   EventPublisher
	Connect     Connector
	Credentials CredentialFunc

	BatchSize      int
	MessageTimeout time.Duration
	BatchDelay     time.Duration
}

// Orchestrator owns the run loop and its statistics.
type Orchestrator struct {
	cfg   Config
	stats Stats

	// running is the single-flight guard: a trigger while a run is
	// active is skipped, never queued.
	running atomic.Bool

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates an orchestrator, filling zero knobs with the defaults.
func New(cfg Config) *Orchestrator {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.MessageTimeout <= 0 {
		cfg.MessageTimeout = DefaultMessageTimeout
	}
	if cfg.BatchDelay < 0 {
		cfg.BatchDelay = DefaultBatchDelay
	}
	return &Orchestrator{cfg: cfg}
}

// Snapshot exposes the run statistics for operators.
func (o *Orchestrator) Snapshot() models.RunSnapshot {
	return o.stats.Snapshot()
}

// Run executes one intake pass over all active accounts. Returns
// ErrRunInProgress when another run holds the single-flight guard.
func (o *Orchestrator) Run(ctx context.Context) error {
	if !o.running.CompareAndSwap(false, true) {
		slog.Info("intake trigger skipped, run already in progress")
		return ErrRunInProgress
	}
	defer o.running.Store(false)

	start := time.Now()
	o.stats.reset()
	defer o.stats.finish(start)

	accounts, err := o.cfg.Accounts.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("list accounts: %w", err)
	}

	slog.Info("intake run starting", "accounts", len(accounts))

	// Accounts are sequential; only messages within a batch run
	// concurrently. One account's connection failure never aborts the
	// others.
	for _, account := range accounts {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := o.processAccount(ctx, account); err != nil {
			slog.Error("account processing failed",
				"mailbox", account.Address,
				"error", err,
			)
			o.stats.errors.Add(1)
		}
	}

	snap := o.stats.Snapshot()
	slog.Info("intake run complete",
		"processed", snap.EmailsProcessed,
		"created", snap.ApplicationsCreated,
		"skipped", snap.Skipped,
		"errors", snap.Errors,
		"elapsed", time.Since(start),
	)

	return nil
}

// processAccount polls one mailbox and pushes its unread mail through
// the pipeline in batches.
func (o *Orchestrator) processAccount(ctx context.Context, account store.Account) error {
	creds, err := o.cfg.Credentials(account)
	if err != nil {
		return fmt.Errorf("credentials for %s: %w", account.Address, err)
	}

	session, err := o.cfg.Connect(creds)
	if err != nil {
		return fmt.Errorf("connect %s: %w", account.Address, err)
	}
	defer session.Close()

	messages, err := session.FetchUnread()
	if err != nil {
		return fmt.Errorf("fetch unread for %s: %w", account.Address, err)
	}

	if len(messages) == 0 {
		return o.cfg.Accounts.TouchLastChecked(ctx, account.ID)
	}

	for offset := 0; offset < len(messages); offset += o.cfg.BatchSize {
		end := offset + o.cfg.BatchSize
		if end > len(messages) {
			end = len(messages)
		}
		batch := messages[offset:end]

		done := o.processBatch(ctx, account, batch)

		// Mark completed and skipped messages read; failed messages
		// stay unread for a later attempt.
		if err := session.MarkProcessed(done); err != nil {
			slog.Warn("failed to mark messages read",
				"mailbox", account.Address,
				"count", len(done),
				"error", err,
			)
		}

		if err := o.cfg.Accounts.TouchLastChecked(ctx, account.ID); err != nil {
			slog.Warn("failed to advance watermark",
				"mailbox", account.Address,
				"error", err,
			)
		}

		// Pace the AI provider and the mail server between batches.
		if end < len(messages) {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(o.cfg.BatchDelay):
			}
		}
	}

	return nil
}

// processBatch runs a batch's messages concurrently, each under the
// per-message timeout. Returns the UIDs that reached a confirmed
// terminal state (completed or skipped).
func (o *Orchestrator) processBatch(ctx context.Context, account store.Account, batch []models.MailMessage) []uint32 {
	var (
		mu   sync.Mutex
		done []uint32
	)

	g := new(errgroup.Group)
	for _, msg := range batch {
		g.Go(func() error {
			outcome := o.runMessage(ctx, account, msg)

			o.stats.processed.Add(1)
			switch outcome {
			case outcomeCompleted:
				o.stats.created.Add(1)
			case outcomeSkipped:
				o.stats.skipped.Add(1)
			case outcomeFailed:
				o.stats.errors.Add(1)
			}

			if outcome != outcomeFailed {
				mu.Lock()
				done = append(done, msg.UID)
				mu.Unlock()
			}
			return nil
		})
	}
	g.Wait()

	return done
}

type outcome int

const (
	outcomeCompleted outcome = iota
	outcomeSkipped
	outcomeFailed
)

// runMessage wraps one message's pipeline in the hard per-message
// timeout. A timeout marks the message failed without stalling its
// batch siblings, and is tagged distinctly in the log.
func (o *Orchestrator) runMessage(ctx context.Context, account store.Account, msg models.MailMessage) outcome {
	result, err := resilience.WithTimeout(ctx, "message pipeline", o.cfg.MessageTimeout,
		func(ctx context.Context) (outcome, error) {
			return o.processMessage(ctx, account, msg)
		})
	if err != nil {
		if resilience.IsTimeout(err) {
			slog.Error("message pipeline timed out",
				"mailbox", account.Address,
				"sender", msg.FromAddress,
				"timeout", o.cfg.MessageTimeout,
			)
		} else {
			slog.Error("message pipeline failed",
				"mailbox", account.Address,
				"sender", msg.FromAddress,
				"error", err,
			)
		}
		// Release the dedup claim: the message stays unread, and the
		// next poll must not skip it as already seen.
		o.forgetMessage(ctx, msg)
		return outcomeFailed
	}
	return result
}

// forgetMessage drops a failed message's dedup claim. Deleting a key
// that was never set is a no-op, so this is safe even when the failure
// happened before the gate.
func (o *Orchestrator) forgetMessage(ctx context.Context, msg models.MailMessage) {
	if o.cfg.Dedup == nil || msg.MessageID == "" {
		return
	}
	if err := o.cfg.Dedup.Forget(ctx, msg.MessageID); err != nil {
		slog.Warn("failed to release dedup claim",
			"message_id", msg.MessageID,
			"error", err,
		)
	}
}

// processMessage is the per-message state machine:
// Received → Skipped(duplicate|no-attachments|noise-only) | Extracting →
// Parsing → Validating → Persisting → Completed.
func (o *Orchestrator) processMessage(ctx context.Context, account store.Account, msg models.MailMessage) (outcome, error) {
	if len(msg.Attachments) == 0 {
		slog.Debug("skipping message without attachments", "sender", msg.FromAddress)
		return outcomeSkipped, nil
	}

	parts := classify.Partition(msg.Attachments)
	if len(parts.Resumes) == 0 {
		slog.Debug("skipping message with no resume attachments",
			"sender", msg.FromAddress,
			"subject", msg.Subject,
		)
		return outcomeSkipped, nil
	}

	// Cheap first gate: the same message seen by an overlapping poll.
	if o.cfg.Dedup != nil && msg.MessageID != "" {
		isNew, err := o.cfg.Dedup.IsNew(ctx, msg.MessageID)
		if err != nil {
			slog.Warn("dedup check failed, proceeding", "error", err)
		} else if !isNew {
			return outcomeSkipped, nil
		}
	}

	jobID := jobFromSubject(msg.Subject)

	// The authoritative duplicate guard runs before any expensive work.
	exists, err := o.cfg.Apps.Exists(ctx, msg.FromAddress, jobID)
	if err != nil {
		return outcomeFailed, fmt.Errorf("duplicate check: %w", err)
	}
	if exists {
		slog.Info("skipping duplicate application",
			"sender", msg.FromAddress,
			"job_id", jobID,
		)
		return outcomeSkipped, nil
	}

	// Extracting: walk the resume attachments until one yields text.
	var (
		extraction models.ExtractionResult
		resumeFile models.Attachment
		lastErr    error
	)
	for _, attachment := range parts.Resumes {
		extraction, lastErr = o.cfg.Extractor.Extract(ctx, attachment)
		if lastErr == nil {
			resumeFile = attachment
			break
		}
	}
	if lastErr != nil {
		return outcomeFailed, fmt.Errorf("extraction failed for %s: %w", msg.FromAddress, lastErr)
	}

	// Parsing through the provider failover chain.
	parsed, err := o.cfg.Parser.Parse(ctx, extraction.Text)
	if err != nil {
		return outcomeFailed, fmt.Errorf("parse resume from %s: %w", msg.FromAddress, err)
	}

	// Validating: advisory, never blocks creation.
	validation := validate.Score(extraction.Text)

	// Persisting: artifacts first, then the record.
	resumeURL, err := o.cfg.Uploader.Upload(ctx, resumeFile.Content, resumeFile.Filename, objstore.KindResume)
	if err != nil {
		return outcomeFailed, fmt.Errorf("upload resume: %w", err)
	}

	videoURL := o.uploadVideo(ctx, parts)

	name := parsed.Name
	if name == "" {
		name = msg.FromName
	}

	rec := &models.ApplicationRecord{
		CandidateName:  name,
		CandidateEmail: msg.FromAddress,
		ResumeURL:      resumeURL,
		RawText:        extraction.Text,
		Parsed:         parsed,
		Validation:     validation,
		VideoURL:       videoURL,
		JobID:          jobID,
		Source:         models.SourceEmailAutomation,
		SourceMailbox:  account.Address,
		Status:         models.StatusPending,
		NeedsReview:    !validation.Valid,
	}

	id, err := o.cfg.Apps.Create(ctx, rec)
	if err != nil {
		// The loser of a concurrent create race: benign skip.
		if errors.Is(err, store.ErrAlreadyExists) {
			slog.Info("application created concurrently elsewhere, skipping",
				"sender", msg.FromAddress,
				"job_id", jobID,
			)
			return outcomeSkipped, nil
		}
		return outcomeFailed, fmt.Errorf("create application: %w", err)
	}

	slog.Info("application created",
		"application_id", id,
		"sender", msg.FromAddress,
		"job_id", jobID,
		"provider", parsed.Provider,
		"extraction_method", extraction.Method,
		"score", validation.Score,
		"needs_review", rec.NeedsReview,
	)

	if o.cfg.Publisher != nil {
		event := queue.ApplicationCreated{
			ApplicationID:  id,
			CandidateEmail: rec.CandidateEmail,
			CandidateName:  rec.CandidateName,
			JobID:          jobID,
			SourceMailbox:  account.Address,
			NeedsReview:    rec.NeedsReview,
			CreatedAt:      rec.CreatedAt,
		}
		if err := o.cfg.Publisher.PublishApplicationCreated(ctx, event); err != nil {
			// The record exists; losing the event is log-worthy only.
			slog.Warn("failed to publish application event",
				"application_id", id,
				"error", err,
			)
		}
	}

	return outcomeCompleted, nil
}

// uploadVideo stores the candidate's video, preferring an introduction
// over a video resume. Video is optional: an upload failure is logged
// and the application proceeds without it.
func (o *Orchestrator) uploadVideo(ctx context.Context, parts classify.Result) string {
	var video *models.Attachment
	if len(parts.VideoIntros) > 0 {
		video = &parts.VideoIntros[0]
	} else if len(parts.VideoCVs) > 0 {
		video = &parts.VideoCVs[0]
	}
	if video == nil {
		return ""
	}

	url, err := o.cfg.Uploader.Upload(ctx, video.Content, video.Filename, objstore.KindVideo)
	if err != nil {
		slog.Warn("video upload failed, continuing without it",
			"filename", video.Filename,
			"error", err,
		)
		return ""
	}
	return url
}

// jobFromSubject extracts an explicit job reference from the subject
// line, e.g. "Application [job:550e8400-e29b-41d4-a716-446655440000]".
// Most unsolicited mail carries no tag and stays unassigned.
func jobFromSubject(subject string) *uuid.UUID {
	lower := strings.ToLower(subject)
	idx := strings.Index(lower, "job:")
	if idx < 0 {
		return nil
	}

	// Slice the lowered string, not the original: lowering can change a
	// rune's byte length, so offsets into lower are not valid in subject.
	// UUIDs parse fine in lowercase.
	rest := lower[idx+len("job:"):]
	end := strings.IndexAny(rest, "] \t")
	if end < 0 {
		end = len(rest)
	}

	id, err := uuid.Parse(strings.TrimSpace(rest[:end]))
	if err != nil {
		return nil
	}
	return &id
}
