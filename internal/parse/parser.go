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

// Package parse sends extracted resume text to an AI-backed structuring
// provider and normalises the response. Providers sit behind one
// interface and are tried in priority order: any failure — including an
// empty-result response — falls over to the next provider. Each provider
// gets its own circuit breaker so a degraded service fails fast instead
// of stalling every message in a batch.
package parse

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hireloop/intake/internal/models"
	"github.com/hireloop/intake/internal/resilience"
)

// Provider is one AI parsing backend.
type Provider interface {
	// Name identifies the provider for audit and breaker scoping.
	Name() string
	// Parse structures raw resume text into a normalised record.
	Parse(ctx context.Context, text string) (*models.ParsedResume, error)
}

// Parser walks a priority-ordered provider list with per-provider
// circuit breakers.
type Parser struct {
	providers []Provider
	breakers  map[string]*resilience.Breaker
}

// NewParser creates a parser over the given providers, highest priority
// first. Breaker settings of zero use the resilience defaults.
func NewParser(providers []Provider, failureThreshold int, resetWindow time.Duration) *Parser {
	breakers := make(map[string]*resilience.Breaker, len(providers))
	for _, p := range providers {
		breakers[p.Name()] = resilience.NewBreaker("parser:"+p.Name(), failureThreshold, resetWindow)
	}
	return &Parser{providers: providers, breakers: breakers}
}

// Parse tries each provider in order. Fallback is success, not failure:
// no error is recorded when a later provider succeeds. Only when every
// provider fails does the terminal parsing error propagate.
func (p *Parser) Parse(ctx context.Context, text string) (*models.ParsedResume, error) {
	if len(p.providers) == 0 {
		return nil, errors.New("no parsing providers configured")
	}

	var errs []error
	for _, provider := range p.providers {
		breaker := p.breakers[provider.Name()]

		parsed, err := resilience.Execute(ctx, breaker, func(ctx context.Context) (*models.ParsedResume, error) {
			return provider.Parse(ctx, text)
		})
		if err != nil {
			if resilience.IsCircuitOpen(err) {
				slog.Debug("skipping provider, circuit open", "provider", provider.Name())
			} else {
				slog.Warn("parsing provider failed, trying next",
					"provider", provider.Name(),
					"error", err,
				)
			}
			errs = append(errs, fmt.Errorf("%s: %w", provider.Name(), err))
			continue
		}

		parsed.Provider = provider.Name()
		return parsed, nil
	}

	return nil, fmt.Errorf("all parsing providers failed: %w", errors.Join(errs...))
}

// resumePrompt is the instruction both providers share. The response
// must be a single JSON object matching the rawResume shape.
const resumePrompt = `Extract the following resume into a single JSON object with these fields:
name, email, phone, location, links (list of strings), current_title,
current_company, years_experience (number), summary, skills (list of
strings), experience (list of {company, title, duration, description}),
education (list of {institution, degree, field, year}), certifications
(list of strings), languages (list of strings).
Return only the JSON object, no commentary.

Resume text:
`
