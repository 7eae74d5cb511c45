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

// Package models defines the data structures shared across the intake service.
package models

import (
	"time"

	"github.com/google/uuid"
)

// MailMessage is one inbound email with its attachments fully materialised.
// It lives only for the duration of a single pipeline run and is never
// persisted directly.
type MailMessage struct {
	UID         uint32       `json:"uid"`
	MessageID   string       `json:"message_id"`
	FromAddress string       `json:"from_address"`
	FromName    string       `json:"from_name,omitempty"`
	Subject     string       `json:"subject"`
	ReceivedAt  time.Time    `json:"received_at"`
	Attachments []Attachment `json:"attachments"`
}

// Attachment is a file attached to a MailMessage. Content is held in
// memory so downstream stages can run independently of the live IMAP
// connection.
type Attachment struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Size        int    `json:"size"`
	Content     []byte `json:"-"`
}

// AttachmentClass is the pipeline's classification of one attachment.
type AttachmentClass string

const (
	ClassResume     AttachmentClass = "resume"
	ClassVideoIntro AttachmentClass = "video-introduction"
	ClassVideoCV    AttachmentClass = "video-resume"
	ClassNoise      AttachmentClass = "noise"
)

// ExtractionResult is the outcome of running the text extraction chain
// over one resume attachment. Success requires the extracted text to
// clear the plausibility threshold; a short result is a failure even if
// the extractor itself reported none.
type ExtractionResult struct {
	Text    string `json:"text"`
	Method  string `json:"method"`
	Success bool   `json:"success"`
}

// ExperienceEntry is one position in a parsed resume.
type ExperienceEntry struct {
	Company     string `json:"company"`
	Title       string `json:"title"`
	Duration    string `json:"duration,omitempty"`
	Description string `json:"description,omitempty"`
}

// EducationEntry is one education record in a parsed resume.
type EducationEntry struct {
	Institution string `json:"institution"`
	Degree      string `json:"degree,omitempty"`
	Field       string `json:"field,omitempty"`
	Year        string `json:"year,omitempty"`
}

// ParsedResume is the normalised structure produced by exactly one
// parsing provider per message. Provider records which one, for audit.
type ParsedResume struct {
	Name            string            `json:"name"`
	Email           string            `json:"email"`
	Phone           string            `json:"phone,omitempty"`
	Location        string            `json:"location,omitempty"`
	Links           []string          `json:"links,omitempty"`
	CurrentTitle    string            `json:"current_title,omitempty"`
	CurrentCompany  string            `json:"current_company,omitempty"`
	YearsExperience int               `json:"years_experience"`
	Summary         string            `json:"summary,omitempty"`
	Skills          []string          `json:"skills"`
	Experience      []ExperienceEntry `json:"experience"`
	Education       []EducationEntry  `json:"education"`
	Certifications  []string          `json:"certifications,omitempty"`
	Languages       []string          `json:"languages,omitempty"`
	Provider        string            `json:"provider"`
}

// ValidationResult scores the raw extracted text for structural
// plausibility, independent of the structured parse. Advisory only:
// a low score flags the application for review, never rejects it.
type ValidationResult struct {
	Valid  bool   `json:"valid"`
	Score  int    `json:"score"`
	Reason string `json:"reason"`
}

// ApplicationRecord is the record this pipeline creates, exactly once per
// (sender email, job) pair. After creation it is owned by the CRUD layer.
type ApplicationRecord struct {
	ID             uuid.UUID        `json:"id"`
	CandidateName  string           `json:"candidate_name"`
	CandidateEmail string           `json:"candidate_email"`
	ResumeURL      string           `json:"resume_url,omitempty"`
	RawText        string           `json:"raw_text,omitempty"`
	Parsed         *ParsedResume    `json:"parsed,omitempty"`
	Validation     ValidationResult `json:"validation"`
	VideoURL       string           `json:"video_url,omitempty"`
	JobID          *uuid.UUID       `json:"job_id,omitempty"`
	Source         string           `json:"source"`
	SourceMailbox  string           `json:"source_mailbox"`
	Status         string           `json:"status"`
	NeedsReview    bool             `json:"needs_review"`
	CreatedAt      time.Time        `json:"created_at"`
}

// Application lifecycle and source tags.
const (
	SourceEmailAutomation = "email-automation"
	StatusPending         = "pending"
)

// RunSnapshot is the read-only view of the orchestrator's run statistics,
// exposed to operators after each run.
type RunSnapshot struct {
	EmailsProcessed     int64         `json:"emails_processed"`
	ApplicationsCreated int64         `json:"applications_created"`
	Skipped             int64         `json:"skipped"`
	Errors              int64         `json:"errors"`
	LastRunAt           time.Time     `json:"last_run_at"`
	LastRunDuration     time.Duration `json:"last_run_duration"`
	Running             bool          `json:"running"`
}
