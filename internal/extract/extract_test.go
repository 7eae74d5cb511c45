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

package extract

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/hireloop/intake/internal/models"
)

const plausibleText = "Jane Doe\njane@example.com\nExperience: Senior Engineer at Example Corp for five years."

// TestChain_UnsupportedExtension verifies immediate failure for unknown formats.
func TestChain_UnsupportedExtension(t *testing.T) {
	c := NewChain()
	_, err := c.Extract(context.Background(), models.Attachment{
		Filename: "resume.txt",
		Content:  []byte(plausibleText),
	})
	if err == nil || !strings.Contains(err.Error(), "unsupported format") {
		t.Errorf("err = %v, want unsupported format", err)
	}
}

// TestChain_FallbackOrder verifies the second extractor runs only after the
// first fails, and that its result is attributed correctly.
func TestChain_FallbackOrder(t *testing.T) {
	var order []string
	c := &Chain{
		pdf: []extractor{
			{name: "first", fn: func(ctx context.Context, b []byte) (string, error) {
				order = append(order, "first")
				return "", errors.New("broken xref")
			}},
			{name: "second", fn: func(ctx context.Context, b []byte) (string, error) {
				order = append(order, "second")
				return plausibleText, nil
			}},
		},
	}

	res, err := c.Extract(context.Background(), models.Attachment{Filename: "cv.pdf", Content: []byte("x")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Method != "second" {
		t.Errorf("Method = %q, want second", res.Method)
	}
	if !res.Success {
		t.Error("Success = false, want true")
	}
	if len(order) != 2 {
		t.Errorf("extractors invoked = %v, want [first second]", order)
	}
}

// TestChain_ShortOutputIsFailure verifies the plausibility threshold: text
// at or below 50 characters fails even when the extractor reports success.
func TestChain_ShortOutputIsFailure(t *testing.T) {
	secondCalled := false
	c := &Chain{
		pdf: []extractor{
			{name: "first", fn: func(ctx context.Context, b []byte) (string, error) {
				return "only thirty characters of junk", nil
			}},
			{name: "second", fn: func(ctx context.Context, b []byte) (string, error) {
				secondCalled = true
				return plausibleText, nil
			}},
		},
	}

	res, err := c.Extract(context.Background(), models.Attachment{Filename: "cv.pdf", Content: []byte("x")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !secondCalled {
		t.Error("short output did not trigger the fallback extractor")
	}
	if res.Method != "second" {
		t.Errorf("Method = %q, want second", res.Method)
	}
}

// TestChain_ThresholdCountsRunes verifies the plausibility length is
// measured in characters, so multibyte text is not passed on byte count.
func TestChain_ThresholdCountsRunes(t *testing.T) {
	// 40 two-byte runes: 80 bytes, but only 40 characters.
	short := strings.Repeat("é", 40)
	secondCalled := false
	c := &Chain{
		pdf: []extractor{
			{name: "first", fn: func(ctx context.Context, b []byte) (string, error) {
				return short, nil
			}},
			{name: "second", fn: func(ctx context.Context, b []byte) (string, error) {
				secondCalled = true
				return plausibleText, nil
			}},
		},
	}

	res, err := c.Extract(context.Background(), models.Attachment{Filename: "cv.pdf", Content: []byte("x")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !secondCalled {
		t.Error("multibyte short output did not trigger the fallback extractor")
	}
	if res.Method != "second" {
		t.Errorf("Method = %q, want second", res.Method)
	}
}

// TestChain_AllExtractorsFail verifies the terminal error names the last failure.
func TestChain_AllExtractorsFail(t *testing.T) {
	c := &Chain{
		pdf: []extractor{
			{name: "first", fn: func(ctx context.Context, b []byte) (string, error) {
				return "", errors.New("bad header")
			}},
			{name: "second", fn: func(ctx context.Context, b []byte) (string, error) {
				return "tiny", nil
			}},
		},
	}

	_, err := c.Extract(context.Background(), models.Attachment{Filename: "cv.pdf", Content: []byte("x")})
	if err == nil {
		t.Fatal("expected error when all extractors fail")
	}
	if !strings.Contains(err.Error(), "second") {
		t.Errorf("error %q does not name the last failing extractor", err)
	}
}

// TestChain_GarbledPDF verifies that bytes which are not a PDF fail through
// both real extractors without producing a result.
func TestChain_GarbledPDF(t *testing.T) {
	c := NewChain()
	res, err := c.Extract(context.Background(), models.Attachment{
		Filename: "cv.pdf",
		Content:  []byte("%PDF-1.4 garbled beyond repair"),
	})
	if err == nil {
		t.Fatalf("expected failure, got result via %s", res.Method)
	}
	if res.Success {
		t.Error("Success = true for garbled input")
	}
}

// TestStageTempFile verifies the staging artifact is removed by cleanup.
func TestStageTempFile(t *testing.T) {
	path, cleanup, err := stageTempFile([]byte("content"), "*.pdf")
	if err != nil {
		t.Fatalf("stageTempFile: %v", err)
	}

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("staged file missing before cleanup: %v", err)
	}

	cleanup()

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("staged file still present after cleanup: %v", err)
	}
}

// TestFlattenDocumentXML verifies markup stripping and paragraph breaks.
func TestFlattenDocumentXML(t *testing.T) {
	raw := `<w:document><w:body><w:p><w:r><w:t>Jane Doe</w:t></w:r></w:p><w:p><w:r><w:t>Engineer</w:t></w:r></w:p></w:body></w:document>`
	got := flattenDocumentXML(raw)
	if !strings.Contains(got, "Jane Doe\n") {
		t.Errorf("flattened text %q missing paragraph break after name", got)
	}
	if !strings.Contains(got, "Engineer") {
		t.Errorf("flattened text %q missing second paragraph", got)
	}
	if strings.Contains(got, "<") {
		t.Errorf("flattened text %q still contains markup", got)
	}
}
