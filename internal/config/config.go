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

// Package config loads configuration from config.yaml and environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the intake service.
type Config struct {
	// Pipeline knobs
	RunInterval    time.Duration
	BatchSize      int
	MessageTimeout time.Duration
	BatchDelay     time.Duration

	// Circuit breakers
	BreakerThreshold int
	BreakerReset     time.Duration

	// Postgres
	DatabaseURL string

	// Redis
	RedisURL    string
	EventsQueue string
	DedupTTL    time.Duration

	// Mailbox credential decryption
	CredentialKey string

	// AI parsing providers, in failover order
	GeminiAPIKey string
	GeminiModel  string
	ParseAPIURL  string
	ParseAPIKey  string

	// Artifact storage gateway
	Artifacts ArtifactsConfig

	// Server (health, stats, manual trigger)
	Port int
}

// ArtifactsConfig holds the object storage gateway's OAuth2 client
// credentials.
type ArtifactsConfig struct {
	BaseURL      string `yaml:"base_url"`
	TokenURL     string `yaml:"token_url"`
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
}

// rawConfig mirrors the YAML structure for unmarshalling.
type rawConfig struct {
	Database struct {
		URL string `yaml:"url"`
	} `yaml:"database"`
	Redis struct {
		URL    string `yaml:"url"`
		Queues struct {
			Events string `yaml:"events"`
		} `yaml:"queues"`
	} `yaml:"redis"`
	Parsing struct {
		GeminiAPIKey string `yaml:"gemini_api_key"`
		GeminiModel  string `yaml:"gemini_model"`
		ParseAPIURL  string `yaml:"parse_api_url"`
		ParseAPIKey  string `yaml:"parse_api_key"`
	} `yaml:"parsing"`
	Artifacts ArtifactsConfig `yaml:"artifacts"`
}

// Load reads configuration from config.yaml (with env var expansion) and
// environment variables for non-YAML settings. The YAML file is optional;
// everything it carries can come from the environment instead.
func Load() (*Config, error) {
	cfg := &Config{
		RunInterval:      envOrDefaultDuration("RUN_INTERVAL", 15*time.Minute),
		BatchSize:        envOrDefaultInt("BATCH_SIZE", 5),
		MessageTimeout:   envOrDefaultDuration("MESSAGE_TIMEOUT", 60*time.Second),
		BatchDelay:       envOrDefaultDuration("BATCH_DELAY", 2*time.Second),
		BreakerThreshold: envOrDefaultInt("BREAKER_THRESHOLD", 5),
		BreakerReset:     envOrDefaultDuration("BREAKER_RESET", 60*time.Second),
		DedupTTL:         envOrDefaultDuration("DEDUP_TTL", 72*time.Hour),
		CredentialKey:    os.Getenv("CREDENTIAL_KEY"),
		Port:             envOrDefaultInt("PORT", 8080),
	}

	raw, err := loadYAML(envOrDefault("CONFIG_PATH", "/app/config/config.yaml"))
	if err != nil {
		return nil, err
	}

	cfg.DatabaseURL = firstNonEmpty(raw.Database.URL, os.Getenv("DATABASE_URL"))
	cfg.RedisURL = firstNonEmpty(raw.Redis.URL, envOrDefault("REDIS_URL", "redis://localhost:6379/0"))
	cfg.EventsQueue = firstNonEmpty(raw.Redis.Queues.Events, envOrDefault("EVENTS_QUEUE", "applications"))

	cfg.GeminiAPIKey = firstNonEmpty(raw.Parsing.GeminiAPIKey, os.Getenv("GEMINI_API_KEY"))
	cfg.GeminiModel = firstNonEmpty(raw.Parsing.GeminiModel, envOrDefault("GEMINI_MODEL", "gemini-1.5-flash"))
	cfg.ParseAPIURL = firstNonEmpty(raw.Parsing.ParseAPIURL, os.Getenv("PARSE_API_URL"))
	cfg.ParseAPIKey = firstNonEmpty(raw.Parsing.ParseAPIKey, os.Getenv("PARSE_API_KEY"))

	cfg.Artifacts = ArtifactsConfig{
		BaseURL:      firstNonEmpty(raw.Artifacts.BaseURL, os.Getenv("ARTIFACTS_BASE_URL")),
		TokenURL:     firstNonEmpty(raw.Artifacts.TokenURL, os.Getenv("ARTIFACTS_TOKEN_URL")),
		ClientID:     firstNonEmpty(raw.Artifacts.ClientID, os.Getenv("ARTIFACTS_CLIENT_ID")),
		ClientSecret: firstNonEmpty(raw.Artifacts.ClientSecret, os.Getenv("ARTIFACTS_CLIENT_SECRET")),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("no database configured — set database.url or DATABASE_URL")
	}
	if cfg.GeminiAPIKey == "" && cfg.ParseAPIURL == "" {
		return nil, fmt.Errorf("no parsing provider configured — set a Gemini key or a parse API URL")
	}
	if cfg.Artifacts.BaseURL == "" {
		return nil, fmt.Errorf("no artifact gateway configured — set artifacts.base_url or ARTIFACTS_BASE_URL")
	}
	if cfg.CredentialKey == "" {
		return nil, fmt.Errorf("CREDENTIAL_KEY is required to decrypt mailbox passwords")
	}

	return cfg, nil
}

// loadYAML reads and expands the YAML file. A missing file is not an
// error: the environment alone can carry the full configuration.
func loadYAML(path string) (*rawConfig, error) {
	var raw rawConfig

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &raw, nil
		}
		return nil, fmt.Errorf("read config file %s: %w", path, err)
	}

	// Expand ${VAR} references in the YAML
	expanded := os.ExpandEnv(string(data))

	if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
		return nil, fmt.Errorf("parse config YAML: %w", err)
	}

	return &raw, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envOrDefaultInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envOrDefaultDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
