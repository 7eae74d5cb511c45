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

// Hireloop Intake — One-Shot Run Command
//
// Standalone CLI tool that executes a single intake pass and exits.
// Intended for cron-driven deployments and manual re-drives after an
// incident.
//
// Usage:
//
//	go run ./cmd/runonce/ [--account jobs@example.com]
package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/hireloop/intake/internal/config"
	"github.com/hireloop/intake/internal/dedup"
	"github.com/hireloop/intake/internal/extract"
	"github.com/hireloop/intake/internal/mailbox"
	"github.com/hireloop/intake/internal/objstore"
	"github.com/hireloop/intake/internal/parse"
	"github.com/hireloop/intake/internal/pipeline"
	"github.com/hireloop/intake/internal/queue"
	"github.com/hireloop/intake/internal/store"
)

func main() {
	// Structured JSON logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// --- CLI Flags ---
	accountFlag := flag.String("account", "", "Process a single mailbox address (optional; empty = all active accounts)")
	flag.Parse()

	slog.Info("starting one-shot intake run", "account", *accountFlag)

	// --- Load Configuration ---
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// --- Connect to PostgreSQL ---
	pgPool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to create Postgres pool", "error", err)
		os.Exit(1)
	}
	defer pgPool.Close()

	// --- Connect to Redis ---
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		slog.Error("invalid REDIS_URL", "error", err)
		os.Exit(1)
	}
	rdb := redis.NewClient(opt)
	defer rdb.Close()

	publisher := queue.NewPublisher(rdb, cfg.EventsQueue)
	if err := publisher.Ping(ctx); err != nil {
		slog.Error("failed to connect to Redis", "error", err)
		os.Exit(1)
	}

	filter := dedup.NewFilter(rdb, cfg.DedupTTL)

	// --- Stores ---
	apps, err := store.NewApplicationStore(ctx, pgPool)
	if err != nil {
		slog.Error("failed to initialise application store", "error", err)
		os.Exit(1)
	}
	accounts, err := store.NewAccountStore(ctx, pgPool)
	if err != nil {
		slog.Error("failed to initialise account store", "error", err)
		os.Exit(1)
	}

	decrypter, err := config.NewDecrypter(cfg.CredentialKey)
	if err != nil {
		slog.Error("invalid credential key", "error", err)
		os.Exit(1)
	}

	// --- AI Parsing Providers ---
	var providers []parse.Provider
	if cfg.GeminiAPIKey != "" {
		gemini, err := parse.NewGeminiProvider(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			slog.Error("failed to initialise Gemini provider", "error", err)
			os.Exit(1)
		}
		defer gemini.Close()
		providers = append(providers, gemini)
	}
	if cfg.ParseAPIURL != "" {
		providers = append(providers,
			parse.NewHTTPProvider(&http.Client{Timeout: 30 * time.Second}, cfg.ParseAPIURL, cfg.ParseAPIKey))
	}
	parser := parse.NewParser(providers, cfg.BreakerThreshold, cfg.BreakerReset)

	// --- Artifact Storage Gateway ---
	artifacts := objstore.NewClient(ctx, objstore.Config{
		BaseURL:      cfg.Artifacts.BaseURL,
		TokenURL:     cfg.Artifacts.TokenURL,
		ClientID:     cfg.Artifacts.ClientID,
		ClientSecret: cfg.Artifacts.ClientSecret,
	}, cfg.BreakerThreshold)

	// --- Resolve account scope ---
	var source pipeline.AccountSource = accounts
	if *accountFlag != "" {
		account, err := accounts.Get(ctx, *accountFlag)
		if err != nil {
			slog.Error("failed to look up account", "address", *accountFlag, "error", err)
			os.Exit(1)
		}
		if account == nil {
			slog.Error("account not found", "address", *accountFlag)
			os.Exit(1)
		}
		source = singleAccount{account: *account, touch: accounts.TouchLastChecked}
	}

	// --- Run ---
	orch := pipeline.New(pipeline.Config{
		Accounts:  source,
		Apps:      apps,
		Extractor: extract.NewChain(),
		Parser:    parser,
		Uploader:  artifacts,
		Dedup:     filter,
		Publisher: publisher,
		Connect: func(creds mailbox.Credentials) (pipeline.MailSession, error) {
			return mailbox.Connect(creds)
		},
		Credentials: func(a store.Account) (mailbox.Credentials, error) {
			password, err := decrypter.Decrypt(a.PasswordEnc)
			if err != nil {
				return mailbox.Credentials{}, err
			}
			return mailbox.Credentials{
				Address:  a.Address,
				Host:     a.Host,
				Port:     a.Port,
				Username: a.Username,
				Password: password,
				UseTLS:   a.UseTLS,
			}, nil
		},
		BatchSize:      cfg.BatchSize,
		MessageTimeout: cfg.MessageTimeout,
		BatchDelay:     cfg.BatchDelay,
	})

	if err := orch.Run(ctx); err != nil {
		slog.Error("intake run failed", "error", err)
		os.Exit(1)
	}

	// --- Summary ---
	snap := orch.Snapshot()
	slog.Info("intake run complete",
		"processed", snap.EmailsProcessed,
		"created", snap.ApplicationsCreated,
		"skipped", snap.Skipped,
		"errors", snap.Errors,
		"elapsed", snap.LastRunDuration,
	)

	if snap.Errors > 0 {
		os.Exit(1)
	}
}

// singleAccount narrows the orchestrator's account scope to one mailbox.
type singleAccount struct {
	account store.Account
	touch   func(ctx context.Context, id int64) error
}

func (s singleAccount) ListActive(ctx context.Context) ([]store.Account, error) {
	return []store.Account{s.account}, nil
}

func (s singleAccount) TouchLastChecked(ctx context.Context, id int64) error {
	return s.touch(ctx, id)
}
