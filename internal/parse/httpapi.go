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

package parse

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/hireloop/intake/internal/models"
)

// HTTPProvider is the default structuring provider: a resume-parsing
// service reached over plain HTTP. Submit text, receive a resume-shaped
// JSON object or an error within a bounded time.
type HTTPProvider struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	name       string
}

// NewHTTPProvider creates the default provider against the given parse
// endpoint base URL.
func NewHTTPProvider(httpClient *http.Client, baseURL, apiKey string) *HTTPProvider {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &HTTPProvider{
		httpClient: httpClient,
		baseURL:    baseURL,
		apiKey:     apiKey,
		name:       "parse-api",
	}
}

func (h *HTTPProvider) Name() string { return h.name }

type parseRequest struct {
	Text string `json:"text"`
}

// Parse submits the resume text and decodes the structured response.
func (h *HTTPProvider) Parse(ctx context.Context, text string) (*models.ParsedResume, error) {
	body, err := json.Marshal(parseRequest{Text: text})
	if err != nil {
		return nil, fmt.Errorf("marshal parse request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.baseURL+"/v1/parse", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build parse request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if h.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+h.apiKey)
	}

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("parse request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("parse API returned HTTP %d: %s", resp.StatusCode, bytes.TrimSpace(snippet))
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read parse response: %w", err)
	}

	return decodeResume(payload, h.name)
}
