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

package mailbox

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-message"
	"github.com/emersion/go-message/mail"

	"github.com/hireloop/intake/internal/models"
)

// buildMessage converts one fetched IMAP message into the pipeline's
// canonical MailMessage, with attachment bytes fully read.
func buildMessage(uid imap.UID, env *imap.Envelope, raw []byte) (models.MailMessage, error) {
	if env == nil {
		return models.MailMessage{}, fmt.Errorf("missing envelope")
	}

	msg := models.MailMessage{
		UID:        uint32(uid),
		MessageID:  env.MessageID,
		Subject:    env.Subject,
		ReceivedAt: env.Date,
	}

	if len(env.From) > 0 {
		msg.FromAddress = strings.ToLower(strings.TrimSpace(env.From[0].Addr()))
		msg.FromName = env.From[0].Name
	}
	if msg.FromAddress == "" {
		return models.MailMessage{}, fmt.Errorf("message %s has no sender address", env.MessageID)
	}

	attachments, err := readAttachments(raw)
	if err != nil {
		return models.MailMessage{}, fmt.Errorf("read attachments: %w", err)
	}
	msg.Attachments = attachments

	return msg, nil
}

// readAttachments walks the MIME structure and materialises every
// attachment part. Inline body parts are skipped.
func readAttachments(raw []byte) ([]models.Attachment, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("parse MIME: %w", err)
	}

	var attachments []models.Attachment
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if message.IsUnknownCharset(err) {
			// An exotic charset in one part should not lose the rest
			// of the message; attachments are read as raw bytes anyway.
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("walk MIME parts: %w", err)
		}

		header, ok := part.Header.(*mail.AttachmentHeader)
		if !ok {
			continue
		}

		filename, err := header.Filename()
		if err != nil || filename == "" {
			continue
		}

		contentType, _, err := header.ContentType()
		if err != nil {
			contentType = "application/octet-stream"
		}

		content, err := io.ReadAll(part.Body)
		if err != nil {
			return nil, fmt.Errorf("read attachment %s: %w", filename, err)
		}

		attachments = append(attachments, models.Attachment{
			Filename:    filename,
			ContentType: contentType,
			Size:        len(content),
			Content:     content,
		})
	}

	return attachments, nil
}
