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

// Package objstore uploads resume and video artifacts to the object
// storage gateway before the application record is created. The gateway
// is an external collaborator; this client owns only the wire contract:
// upload(bytes, filename, kind) -> url.
package objstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"golang.org/x/oauth2/clientcredentials"

	"github.com/hireloop/intake/internal/resilience"
)

// Kind tags what an uploaded artifact is.
type Kind string

const (
	KindResume Kind = "resume"
	KindVideo  Kind = "video"
)

// Client talks to the storage gateway over HTTP with OAuth2
// client-credentials auth, behind its own circuit breaker.
type Client struct {
	httpClient *http.Client
	baseURL    string
	breaker    *resilience.Breaker
}

// Config holds the gateway endpoint and credentials.
type Config struct {
	BaseURL      string
	TokenURL     string
	ClientID     string
	ClientSecret string
}

// NewClient builds the gateway client. Breaker settings of zero use the
// resilience defaults.
func NewClient(ctx context.Context, cfg Config, failureThreshold int) *Client {
	creds := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.TokenURL,
	}

	return &Client{
		httpClient: creds.Client(ctx),
		baseURL:    cfg.BaseURL,
		breaker:    resilience.NewBreaker("objstore", failureThreshold, 0),
	}
}

// uploadResponse is the gateway's reply.
type uploadResponse struct {
	URL string `json:"url"`
}

// Upload stores the artifact and returns its public URL. Fails fast with
// a circuit-open error while the gateway is degraded.
func (c *Client) Upload(ctx context.Context, content []byte, filename string, kind Kind) (string, error) {
	return resilience.Execute(ctx, c.breaker, func(ctx context.Context) (string, error) {
		return c.upload(ctx, content, filename, kind)
	})
}

func (c *Client) upload(ctx context.Context, content []byte, filename string, kind Kind) (string, error) {
	endpoint := fmt.Sprintf("%s/v1/artifacts?%s", c.baseURL, url.Values{
		"filename": {filename},
		"kind":     {string(kind)},
	}.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, bytes.NewReader(content))
	if err != nil {
		return "", fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	req.ContentLength = int64(len(content))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", filename, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("storage gateway returned HTTP %d: %s", resp.StatusCode, bytes.TrimSpace(snippet))
	}

	var out uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode upload response: %w", err)
	}
	if out.URL == "" {
		return "", fmt.Errorf("storage gateway returned empty URL for %s", filename)
	}

	return out.URL, nil
}
