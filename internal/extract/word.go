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
	"os/exec"
	"strings"

	"github.com/nguyenthenguyen/docx"
)

// extractDocx reads a .docx container in memory. Word-processor formats
// get a single dedicated extractor; failure is terminal for the message.
func extractDocx(_ context.Context, content []byte) (string, error) {
	if !bytes.HasPrefix(content, []byte("PK")) {
		return "", fmt.Errorf("not a docx container")
	}

	r, err := docx.ReadDocxFromMemory(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("open docx: %w", err)
	}
	defer r.Close()

	return flattenDocumentXML(r.Editable().GetContent()), nil
}

// extractDocAntiword handles legacy binary .doc files via antiword. Like
// the poppler path, the staged temp file is removed on every exit path.
func extractDocAntiword(ctx context.Context, content []byte) (string, error) {
	path, cleanup, err := stageTempFile(content, "*.doc")
	if err != nil {
		return "", err
	}
	defer cleanup()

	cmd := exec.CommandContext(ctx, "antiword", path)
	var out, stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("antiword: %w (%s)", err, bytes.TrimSpace(stderr.Bytes()))
	}

	return out.String(), nil
}

// flattenDocumentXML strips WordprocessingML markup, emitting a newline
// per paragraph so section structure survives for the validator.
func flattenDocumentXML(raw string) string {
	var b strings.Builder
	inTag := false

	for i := 0; i < len(raw); i++ {
		switch raw[i] {
		case '<':
			inTag = true
			// Paragraph and line-break elements become newlines.
			if strings.HasPrefix(raw[i:], "</w:p>") || strings.HasPrefix(raw[i:], "<w:br/>") {
				b.WriteByte('\n')
			}
		case '>':
			inTag = false
		default:
			if !inTag {
				b.WriteByte(raw[i])
			}
		}
	}

	return b.String()
}
