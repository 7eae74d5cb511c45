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

package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Account is one configured mailbox polled for incoming resumes.
// Passwords are stored encrypted; decryption happens at connection time.
type Account struct {
	ID            int64
	Address       string
	Host          string
	Port          int
	Username      string
	PasswordEnc   string
	UseTLS        bool
	Active        bool
	AutoProcess   bool
	LastCheckedAt *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// AccountStore reads mailbox accounts and advances their watermarks.
type AccountStore struct {
	pool *pgxpool.Pool
}

// NewAccountStore creates the store and ensures its schema exists.
func NewAccountStore(ctx context.Context, pool *pgxpool.Pool) (*AccountStore, error) {
	s := &AccountStore{pool: pool}
	if err := s.ensureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure account schema: %w", err)
	}
	return s, nil
}

func (s *AccountStore) ensureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS email_accounts (
			id              BIGSERIAL PRIMARY KEY,
			address         TEXT NOT NULL UNIQUE,
			host            TEXT NOT NULL,
			port            INT NOT NULL DEFAULT 993,
			username        TEXT NOT NULL,
			password_enc    TEXT NOT NULL,
			use_tls         BOOLEAN NOT NULL DEFAULT TRUE,
			active          BOOLEAN NOT NULL DEFAULT TRUE,
			auto_process    BOOLEAN NOT NULL DEFAULT TRUE,
			last_checked_at TIMESTAMPTZ,
			created_at      TIMESTAMPTZ DEFAULT NOW(),
			updated_at      TIMESTAMPTZ DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_accounts_active ON email_accounts(active);
	`)
	return err
}

// ListActive returns the accounts the orchestrator should poll: active
// with auto-processing enabled.
func (s *AccountStore) ListActive(ctx context.Context) ([]Account, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, address, host, port, username, password_enc, use_tls,
		       active, auto_process, last_checked_at, created_at, updated_at
		FROM email_accounts
		WHERE active AND auto_process
		ORDER BY address
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAccounts(rows)
}

// Get returns one account by address, or nil when not found.
func (s *AccountStore) Get(ctx context.Context, address string) (*Account, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, address, host, port, username, password_enc, use_tls,
		       active, auto_process, last_checked_at, created_at, updated_at
		FROM email_accounts
		WHERE address = $1
	`, address)

	var a Account
	err := scanAccount(row, &a)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// TouchLastChecked advances the account's watermark after a batch
// completes.
func (s *AccountStore) TouchLastChecked(ctx context.Context, id int64) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE email_accounts
		SET last_checked_at = NOW(), updated_at = NOW()
		WHERE id = $1
	`, id)
	return err
}

func scanAccount(row pgx.Row, a *Account) error {
	return row.Scan(
		&a.ID, &a.Address, &a.Host, &a.Port, &a.Username, &a.PasswordEnc,
		&a.UseTLS, &a.Active, &a.AutoProcess, &a.LastCheckedAt,
		&a.CreatedAt, &a.UpdatedAt,
	)
}

func collectAccounts(rows pgx.Rows) ([]Account, error) {
	var accounts []Account
	for rows.Next() {
		var a Account
		if err := scanAccount(rows, &a); err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}
