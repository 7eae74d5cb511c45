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

package config

import (
	"encoding/base64"
	"strings"
	"testing"
)

const testKey = "6368616e676520746869732070617373776f726420746f2061207365637265" + "74"

func TestDecrypterRoundTrip(t *testing.T) {
	d, err := NewDecrypter(testKey)
	if err != nil {
		t.Fatalf("NewDecrypter: %v", err)
	}

	enc, err := d.Encrypt("app-specific-password")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	got, err := d.Decrypt(enc)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if got != "app-specific-password" {
		t.Errorf("Decrypt = %q", got)
	}
}

func TestDecrypterRejectsBadInput(t *testing.T) {
	d, err := NewDecrypter(testKey)
	if err != nil {
		t.Fatalf("NewDecrypter: %v", err)
	}

	tests := []struct {
		name    string
		encoded string
	}{
		{"not base64", "%%%"},
		{"too short", base64.StdEncoding.EncodeToString([]byte("abc"))},
		{"tampered", func() string {
			enc, _ := d.Encrypt("secret")
			raw, _ := base64.StdEncoding.DecodeString(enc)
			raw[len(raw)-1] ^= 0xff
			return base64.StdEncoding.EncodeToString(raw)
		}()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := d.Decrypt(tt.encoded); err == nil {
				t.Error("expected error, got none")
			}
		})
	}
}

func TestNewDecrypterRejectsBadKeys(t *testing.T) {
	if _, err := NewDecrypter("zz"); err == nil {
		t.Error("non-hex key accepted")
	}
	if _, err := NewDecrypter(strings.Repeat("ab", 16)); err == nil {
		t.Error("16-byte key accepted; AES-256 requires 32")
	}
}
