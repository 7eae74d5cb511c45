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

// Package extract turns resume attachments into plain text through an
// ordered chain of format-specific extractors. Each extractor in the
// chain runs only after the previous one failed or produced implausibly
// short output.
package extract

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/hireloop/intake/internal/models"
)

const (
	// MinPlausibleLength is the minimum extracted text length, in
	// characters, for a result to count as a success. Shorter output is
	// treated as a failure regardless of the extractor's own success
	// signal.
	MinPlausibleLength = 50

	// popplerTimeout bounds the tolerant PDF extractor so a pathological
	// document cannot stall a message past its own budget.
	popplerTimeout = 30 * time.Second
)

// extractor is one attempt in a fallback chain.
type extractor struct {
	name string
	fn   func(ctx context.Context, content []byte) (string, error)
}

// Chain extracts plain text from one resume attachment, dispatching on
// file extension and walking the extension's extractor list in order.
type Chain struct {
	pdf  []extractor
	docx []extractor
	doc  []extractor
}

// NewChain builds the default extraction chain: in-process PDF parsing
// first, poppler's pdftotext as the malformed-PDF fallback, and a single
// dedicated extractor per word-processor format.
func NewChain() *Chain {
	return &Chain{
		pdf: []extractor{
			{name: "pdf-native", fn: extractPDFNative},
			{name: "pdftotext", fn: extractPDFPoppler},
		},
		docx: []extractor{
			{name: "docx", fn: extractDocx},
		},
		doc: []extractor{
			{name: "antiword", fn: extractDocAntiword},
		},
	}
}

// Extract runs the chain for the attachment's extension. The returned
// ExtractionResult records which extractor produced the text.
func (c *Chain) Extract(ctx context.Context, a models.Attachment) (models.ExtractionResult, error) {
	ext := strings.ToLower(filepath.Ext(a.Filename))

	var chain []extractor
	switch ext {
	case ".pdf":
		chain = c.pdf
	case ".docx":
		chain = c.docx
	case ".doc":
		chain = c.doc
	default:
		return models.ExtractionResult{}, fmt.Errorf("unsupported format: %s", ext)
	}

	var lastErr error
	for _, e := range chain {
		text, err := e.fn(ctx, a.Content)
		if err != nil {
			lastErr = fmt.Errorf("%s: %w", e.name, err)
			slog.Debug("extractor failed, trying next",
				"extractor", e.name,
				"filename", a.Filename,
				"error", err,
			)
			continue
		}

		text = strings.TrimSpace(text)
		if n := utf8.RuneCountInString(text); n <= MinPlausibleLength {
			lastErr = fmt.Errorf("%s: extracted only %d characters", e.name, n)
			continue
		}

		return models.ExtractionResult{
			Text:    text,
			Method:  e.name,
			Success: true,
		}, nil
	}

	return models.ExtractionResult{}, fmt.Errorf("all extractors exhausted for %s: %w", a.Filename, lastErr)
}
