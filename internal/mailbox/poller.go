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

// Package mailbox polls IMAP accounts for unread mail and materialises
// each message's attachments in memory, so downstream stages never
// depend on the live connection. Messages are marked read only after
// the orchestrator confirms processing: a crash mid-batch leaves
// unprocessed mail unread for the next poll.
package mailbox

import (
	"fmt"
	"log/slog"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"

	"github.com/hireloop/intake/internal/models"
)

// Credentials connect one mailbox account.
type Credentials struct {
	Address  string // mailbox address, used for logging and watermarks
	Host     string
	Port     int
	Username string
	Password string
	UseTLS   bool
}

// Session is one live IMAP connection with INBOX selected. Callers must
// Close it when the account's batch finishes.
type Session struct {
	client  *imapclient.Client
	address string
}

// Connect dials and authenticates one account. A failure here aborts
// only this account; the orchestrator continues with the others.
func Connect(creds Credentials) (*Session, error) {
	addr := fmt.Sprintf("%s:%d", creds.Host, creds.Port)

	var (
		client *imapclient.Client
		err    error
	)
	if creds.UseTLS {
		client, err = imapclient.DialTLS(addr, nil)
	} else {
		client, err = imapclient.DialStartTLS(addr, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}

	if err := client.Login(creds.Username, creds.Password).Wait(); err != nil {
		client.Close()
		return nil, fmt.Errorf("login %s: %w", creds.Address, err)
	}

	if _, err := client.Select("INBOX", nil).Wait(); err != nil {
		client.Close()
		return nil, fmt.Errorf("select INBOX for %s: %w", creds.Address, err)
	}

	return &Session{client: client, address: creds.Address}, nil
}

// FetchUnread returns all currently-unread messages with their
// attachment bytes fully materialised.
func (s *Session) FetchUnread() ([]models.MailMessage, error) {
	criteria := &imap.SearchCriteria{
		NotFlag: []imap.Flag{imap.FlagSeen},
	}

	data, err := s.client.UIDSearch(criteria, nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("search unseen: %w", err)
	}

	uids := data.AllUIDs()
	if len(uids) == 0 {
		return nil, nil
	}

	var uidSet imap.UIDSet
	uidSet.AddNum(uids...)

	bodySection := &imap.FetchItemBodySection{}
	fetchOptions := &imap.FetchOptions{
		UID:         true,
		Envelope:    true,
		BodySection: []*imap.FetchItemBodySection{bodySection},
	}

	buffers, err := s.client.Fetch(uidSet, fetchOptions).Collect()
	if err != nil {
		return nil, fmt.Errorf("fetch messages: %w", err)
	}

	messages := make([]models.MailMessage, 0, len(buffers))
	for _, buf := range buffers {
		raw := buf.FindBodySection(bodySection)
		msg, err := buildMessage(buf.UID, buf.Envelope, raw)
		if err != nil {
			slog.Warn("skipping unparseable message",
				"mailbox", s.address,
				"uid", buf.UID,
				"error", err,
			)
			continue
		}
		messages = append(messages, msg)
	}

	slog.Info("fetched unread mail",
		"mailbox", s.address,
		"unread", len(uids),
		"parsed", len(messages),
	)

	return messages, nil
}

// MarkProcessed flags the given messages as read. Called by the
// orchestrator only for confirmed terminal states (completed or
// skipped); failed messages stay unread for the next poll.
func (s *Session) MarkProcessed(uids []uint32) error {
	if len(uids) == 0 {
		return nil
	}

	var uidSet imap.UIDSet
	for _, uid := range uids {
		uidSet.AddNum(imap.UID(uid))
	}

	storeFlags := &imap.StoreFlags{
		Op:     imap.StoreFlagsAdd,
		Flags:  []imap.Flag{imap.FlagSeen},
		Silent: true,
	}

	if err := s.client.Store(uidSet, storeFlags, nil).Close(); err != nil {
		return fmt.Errorf("mark seen: %w", err)
	}
	return nil
}

// Close logs out and tears down the connection.
func (s *Session) Close() error {
	if err := s.client.Logout().Wait(); err != nil {
		return s.client.Close()
	}
	return s.client.Close()
}
