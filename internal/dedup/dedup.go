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

// Package dedup provides message deduplication using a Redis SET with TTL.
// This prevents the same email from re-entering the pipeline when two
// near-simultaneous polls of the same mailbox both see it as unread.
// It is the cheap first gate; the authoritative (sender, job) duplicate
// guard lives in the application store.
package dedup

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// DefaultTTL is how long we remember a seen message ID. Unread mail
	// is re-offered on every poll until marked read, so a few days of
	// memory covers any realistic processing backlog.
	DefaultTTL = 72 * time.Hour

	// keyPrefix namespaces dedup keys in Redis.
	keyPrefix = "intake:seen:"
)

// Filter tracks which message IDs have already entered the pipeline.
type Filter struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewFilter creates a dedup filter backed by Redis. A zero ttl uses
// DefaultTTL.
func NewFilter(rdb *redis.Client, ttl time.Duration) *Filter {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Filter{
		rdb: rdb,
		ttl: ttl,
	}
}

// IsNew returns true if the message ID has NOT been seen before.
// If true, the message is marked as seen atomically (SETNX).
func (f *Filter) IsNew(ctx context.Context, messageID string) (bool, error) {
	key := fmt.Sprintf("%s%s", keyPrefix, messageID)

	// SET NX = set only if key does not exist. Returns true if the key was set.
	set, err := f.rdb.SetNX(ctx, key, 1, f.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("dedup SETNX: %w", err)
	}

	return set, nil
}

// Forget releases a message ID so a later poll can retry it. Called when
// a message fails after passing the gate; without this the failed
// message would stay unread but be skipped as a duplicate forever.
func (f *Filter) Forget(ctx context.Context, messageID string) error {
	key := fmt.Sprintf("%s%s", keyPrefix, messageID)
	if err := f.rdb.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("dedup DEL: %w", err)
	}
	return nil
}
