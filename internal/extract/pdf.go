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
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/ledongthuc/pdf"
)

// extractPDFNative parses the PDF in-process. Fast, but strict about
// document structure; malformed files fall through to pdftotext.
func extractPDFNative(_ context.Context, content []byte) (text string, err error) {
	// The parser panics on some malformed documents; convert that into
	// an ordinary failure so the chain can move on.
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("pdf parse panic: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", fmt.Errorf("copy pdf text: %w", err)
	}

	return buf.String(), nil
}

// extractPDFPoppler shells out to poppler's pdftotext, which tolerates
// broken cross-reference tables and other structural damage. Bounded by
// a hard timeout; the staged temp file is removed on every exit path.
func extractPDFPoppler(ctx context.Context, content []byte) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, popplerTimeout)
	defer cancel()

	path, cleanup, err := stageTempFile(content, "*.pdf")
	if err != nil {
		return "", err
	}
	defer cleanup()

	cmd := exec.CommandContext(ctx, "pdftotext", "-layout", path, "-")
	var out, stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", fmt.Errorf("pdftotext exceeded %s", popplerTimeout)
		}
		return "", fmt.Errorf("pdftotext: %w (%s)", err, bytes.TrimSpace(stderr.Bytes()))
	}

	return out.String(), nil
}

// stageTempFile writes content to a temp file and returns its path along
// with a cleanup func. Callers must invoke cleanup on every exit path.
func stageTempFile(content []byte, pattern string) (string, func(), error) {
	f, err := os.CreateTemp("", pattern)
	if err != nil {
		return "", nil, fmt.Errorf("stage temp file: %w", err)
	}

	path := f.Name()
	cleanup := func() { os.Remove(path) }

	if _, err := f.Write(content); err != nil {
		f.Close()
		cleanup()
		return "", nil, fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("close temp file: %w", err)
	}

	return path, cleanup, nil
}
