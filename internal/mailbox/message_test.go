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
	"strings"
	"testing"
	"time"

	"github.com/emersion/go-imap/v2"
)

// rawMessage builds a multipart email with one text body and one PDF
// attachment.
const rawMessage = "From: Jane Doe <jane@example.com>\r\n" +
	"To: jobs@hireloop.dev\r\n" +
	"Subject: Application\r\n" +
	"MIME-Version: 1.0\r\n" +
	"Content-Type: multipart/mixed; boundary=\"BOUNDARY\"\r\n" +
	"\r\n" +
	"--BOUNDARY\r\n" +
	"Content-Type: text/plain\r\n" +
	"\r\n" +
	"Please find my resume attached.\r\n" +
	"--BOUNDARY\r\n" +
	"Content-Type: application/pdf\r\n" +
	"Content-Disposition: attachment; filename=\"resume.pdf\"\r\n" +
	"Content-Transfer-Encoding: base64\r\n" +
	"\r\n" +
	"JVBERi0xLjQKJSByZXN1bWUgY29udGVudA==\r\n" +
	"--BOUNDARY--\r\n"

func testEnvelope() *imap.Envelope {
	return &imap.Envelope{
		Date:      time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		Subject:   "Application",
		MessageID: "<msg-1@example.com>",
		From: []imap.Address{
			{Name: "Jane Doe", Mailbox: "Jane", Host: "Example.COM"},
		},
	}
}

// TestBuildMessage verifies envelope mapping and attachment materialisation.
func TestBuildMessage(t *testing.T) {
	msg, err := buildMessage(42, testEnvelope(), []byte(rawMessage))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if msg.UID != 42 {
		t.Errorf("UID = %d, want 42", msg.UID)
	}
	if msg.FromAddress != "jane@example.com" {
		t.Errorf("FromAddress = %q, want lower-cased jane@example.com", msg.FromAddress)
	}
	if msg.FromName != "Jane Doe" {
		t.Errorf("FromName = %q", msg.FromName)
	}
	if msg.MessageID != "<msg-1@example.com>" {
		t.Errorf("MessageID = %q", msg.MessageID)
	}

	if len(msg.Attachments) != 1 {
		t.Fatalf("attachments = %d, want 1", len(msg.Attachments))
	}
	a := msg.Attachments[0]
	if a.Filename != "resume.pdf" {
		t.Errorf("Filename = %q, want resume.pdf", a.Filename)
	}
	if !strings.HasPrefix(string(a.Content), "%PDF-1.4") {
		t.Errorf("attachment content not decoded: %q", a.Content[:min(len(a.Content), 16)])
	}
	if a.Size != len(a.Content) {
		t.Errorf("Size = %d, want %d", a.Size, len(a.Content))
	}
}

// TestBuildMessage_NoSender verifies messages without a sender are rejected.
func TestBuildMessage_NoSender(t *testing.T) {
	env := testEnvelope()
	env.From = nil

	if _, err := buildMessage(1, env, []byte(rawMessage)); err == nil {
		t.Error("expected error for message without sender")
	}
}

// TestReadAttachments_NoAttachments verifies a plain text message yields none.
func TestReadAttachments_NoAttachments(t *testing.T) {
	plain := "From: a@b.com\r\nTo: c@d.com\r\nSubject: Hi\r\nContent-Type: text/plain\r\n\r\nJust text.\r\n"
	attachments, err := readAttachments([]byte(plain))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(attachments) != 0 {
		t.Errorf("attachments = %d, want 0", len(attachments))
	}
}
