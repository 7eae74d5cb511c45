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

// Hireloop Intake — Resume Intake Service
//
// Entry point for the intake service. It:
//  1. Loads configuration from config.yaml and the environment
//  2. Connects to PostgreSQL and Redis
//  3. Builds the extraction chain, AI parser failover and artifact client
//  4. Runs the periodic intake loop over all active mailbox accounts
//  5. Serves the operational endpoints (/health, /stats, /run)
//  6. Handles graceful shutdown on SIGTERM/SIGINT
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/hireloop/intake/internal/config"
	"github.com/hireloop/intake/internal/dedup"
	"github.com/hireloop/intake/internal/extract"
	"github.com/hireloop/intake/internal/mailbox"
	"github.com/hireloop/intake/internal/objstore"
	"github.com/hireloop/intake/internal/ops"
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

	slog.Info("starting hireloop intake service")

	// --- Load Configuration ---
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("configuration loaded",
		"run_interval", cfg.RunInterval,
		"batch_size", cfg.BatchSize,
		"message_timeout", cfg.MessageTimeout,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// --- Connect to PostgreSQL ---
	pgPool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to create Postgres pool", "error", err)
		os.Exit(1)
	}
	defer pgPool.Close()

	if err := pgPool.Ping(ctx); err != nil {
		slog.Error("failed to connect to PostgreSQL", "error", err)
		os.Exit(1)
	}
	slog.Info("connected to PostgreSQL")

	// --- Connect to Redis ---
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		slog.Error("invalid REDIS_URL", "error", err)
		os.Exit(1)
	}
	rdb := redis.NewClient(opt)

	publisher := queue.NewPublisher(rdb, cfg.EventsQueue)
	if err := publisher.Ping(ctx); err != nil {
		slog.Error("failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	slog.Info("connected to Redis")

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

	// --- Credential Decryption ---
	decrypter, err := config.NewDecrypter(cfg.CredentialKey)
	if err != nil {
		slog.Error("invalid credential key", "error", err)
		os.Exit(1)
	}

	// --- AI Parsing Providers (failover order: Gemini, then HTTP API) ---
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
	slog.Info("parsing providers ready", "count", len(providers))

	// --- Artifact Storage Gateway ---
	artifacts := objstore.NewClient(ctx, objstore.Config{
		BaseURL:      cfg.Artifacts.BaseURL,
		TokenURL:     cfg.Artifacts.TokenURL,
		ClientID:     cfg.Artifacts.ClientID,
		ClientSecret: cfg.Artifacts.ClientSecret,
	}, cfg.BreakerThreshold)

	// --- Orchestrator ---
	orch := pipeline.New(pipeline.Config{
		Accounts:  accounts,
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

	orch.Start(ctx, cfg.RunInterval)

	// --- Operational Endpoints ---
	handler := ops.NewHandler(orch, map[string]ops.Pinger{
		"postgres": pgPool.Ping,
		"redis":    publisher.Ping,
	})
	ready, err := ops.Serve(ctx, cfg.Port, handler)
	if err != nil {
		slog.Error("failed to start ops server", "error", err)
		os.Exit(1)
	}
	<-ready

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	sig := <-sigCh

	slog.Info("received shutdown signal", "signal", sig)

	// Stop the scheduler first so an in-flight run can finish cleanly,
	// then tear down the ops server and connections.
	orch.Stop()
	cancel()

	rdb.Close()
	pgPool.Close()

	slog.Info("intake service stopped")
}
