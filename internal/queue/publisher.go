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

// Package queue publishes application-created events to Redis. This is
// the bridge between the intake pipeline and the downstream workers that
// own candidate notification and CRM sync; those collaborators are
// outside this service.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Publisher sends application events to a Redis list.
type Publisher struct {
	rdb       *redis.Client
	queueName string
}

// NewPublisher creates a new Redis publisher targeting the specified queue.
func NewPublisher(rdb *redis.Client, queueName string) *Publisher {
	return &Publisher{
		rdb:       rdb,
		queueName: queueName,
	}
}

// ApplicationCreated is the event emitted once per created application.
type ApplicationCreated struct {
	ApplicationID  uuid.UUID  `json:"application_id"`
	CandidateEmail string     `json:"candidate_email"`
	CandidateName  string     `json:"candidate_name,omitempty"`
	JobID          *uuid.UUID `json:"job_id,omitempty"`
	SourceMailbox  string     `json:"source_mailbox"`
	NeedsReview    bool       `json:"needs_review"`
	CreatedAt      time.Time  `json:"created_at"`
}

// envelope wraps an event for Redis transport with routing metadata the
// downstream workers expect.
type envelope struct {
	ID      string             `json:"id"`
	Kind    string             `json:"kind"`
	Payload ApplicationCreated `json:"payload"`
	SentAt  string             `json:"sent_at"`
}

// PublishApplicationCreated serialises the event and pushes it onto the
// queue. Consumers pop with BRPOP, so LPUSH preserves FIFO order.
func (p *Publisher) PublishApplicationCreated(ctx context.Context, event ApplicationCreated) error {
	msg := envelope{
		ID:      uuid.New().String(),
		Kind:    "application.created",
		Payload: event,
		SentAt:  time.Now().UTC().Format(time.RFC3339),
	}

	msgJSON, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal application event: %w", err)
	}

	if err := p.rdb.LPush(ctx, p.queueName, string(msgJSON)).Err(); err != nil {
		return fmt.Errorf("redis LPUSH: %w", err)
	}

	slog.Info("published application event",
		"event_id", msg.ID,
		"application_id", event.ApplicationID,
		"candidate", event.CandidateEmail,
		"queue", p.queueName,
	)

	return nil
}

// Ping checks the Redis connection.
func (p *Publisher) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return p.rdb.Ping(ctx).Err()
}
