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

package objstore

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hireloop/intake/internal/resilience"
)

func testClient(srv *httptest.Server) *Client {
	return &Client{
		httpClient: srv.Client(),
		baseURL:    srv.URL,
		breaker:    resilience.NewBreaker("objstore", 0, 0),
	}
}

func TestUpload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("method = %s, want PUT", r.Method)
		}
		if got := r.URL.Query().Get("filename"); got != "resume.pdf" {
			t.Errorf("filename = %q", got)
		}
		if got := r.URL.Query().Get("kind"); got != "resume" {
			t.Errorf("kind = %q", got)
		}
		body, _ := io.ReadAll(r.Body)
		if string(body) != "%PDF-content" {
			t.Errorf("body = %q", body)
		}
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"url": "https://artifacts.example.com/resumes/abc123.pdf"}`))
	}))
	defer srv.Close()

	url, err := testClient(srv).Upload(context.Background(), []byte("%PDF-content"), "resume.pdf", KindResume)
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if url != "https://artifacts.example.com/resumes/abc123.pdf" {
		t.Errorf("url = %q", url)
	}
}

func TestUploadGatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bucket unavailable", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := testClient(srv).Upload(context.Background(), []byte("x"), "resume.pdf", KindResume)
	if err == nil {
		t.Fatal("expected error for HTTP 502")
	}
}

func TestUploadEmptyURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	_, err := testClient(srv).Upload(context.Background(), []byte("x"), "intro.mp4", KindVideo)
	if err == nil {
		t.Fatal("expected error for empty URL")
	}
}

func TestUploadFailsFastWhenBreakerOpen(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := &Client{
		httpClient: srv.Client(),
		baseURL:    srv.URL,
		breaker:    resilience.NewBreaker("objstore", 2, 0),
	}

	for i := 0; i < 2; i++ {
		if _, err := c.Upload(context.Background(), []byte("x"), "resume.pdf", KindResume); err == nil {
			t.Fatal("expected failure")
		}
	}

	_, err := c.Upload(context.Background(), []byte("x"), "resume.pdf", KindResume)
	if !resilience.IsCircuitOpen(err) {
		t.Fatalf("err = %v, want circuit-open", err)
	}
	if hits != 2 {
		t.Errorf("gateway hit %d times, want 2; open breaker must not call through", hits)
	}
}
