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

package parse

import (
	"strings"
	"testing"
)

// TestDecodeResume_ExplicitYears verifies a positive upstream figure wins
// over the derived count.
func TestDecodeResume_ExplicitYears(t *testing.T) {
	payload := `{"name": "Jane", "email": "jane@example.com", "years_experience": 12,
		"experience": [{"company": "A", "title": "B"}]}`

	parsed, err := decodeResume([]byte(payload), "test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if parsed.YearsExperience != 12 {
		t.Errorf("YearsExperience = %d, want 12", parsed.YearsExperience)
	}
}

// TestDecodeResume_DerivedYears verifies the max(1, entries) fallback for
// missing, zero, and negative upstream values.
func TestDecodeResume_DerivedYears(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    int
	}{
		{"missing with three entries", `{"name": "J", "experience": [{}, {}, {}]}`, 3},
		{"zero with no entries", `{"name": "J", "email": "j@x.com", "years_experience": 0}`, 1},
		{"negative", `{"name": "J", "years_experience": -4, "experience": [{}]}`, 1},
		{"numeric string", `{"name": "J", "years_experience": "7", "experience": [{}]}`, 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parsed, err := decodeResume([]byte(tt.payload), "test")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if parsed.YearsExperience != tt.want {
				t.Errorf("YearsExperience = %d, want %d", parsed.YearsExperience, tt.want)
			}
		})
	}
}

// TestDecodeResume_EmptyResult verifies an empty parse is an error so the
// caller falls over to the next provider.
func TestDecodeResume_EmptyResult(t *testing.T) {
	_, err := decodeResume([]byte(`{"skills": ["Go"]}`), "test")
	if err == nil || !strings.Contains(err.Error(), "empty result") {
		t.Errorf("err = %v, want empty result error", err)
	}
}

// TestDecodeResume_FlexibleShapes verifies list-or-string normalisation
// across the flexible fields.
func TestDecodeResume_FlexibleShapes(t *testing.T) {
	payload := `{
		"name": "Jane",
		"email": " Jane@Example.COM ",
		"skills": "Go, SQL, , Kubernetes",
		"certifications": [null, 42, "CKA", ["nested"]],
		"languages": ["English", "", "French"]
	}`

	parsed, err := decodeResume([]byte(payload), "test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(parsed.Skills) != 3 {
		t.Errorf("Skills = %v, want 3 comma-split entries", parsed.Skills)
	}
	if len(parsed.Certifications) != 1 || parsed.Certifications[0] != "CKA" {
		t.Errorf("Certifications = %v, want [CKA]", parsed.Certifications)
	}
	if len(parsed.Languages) != 2 {
		t.Errorf("Languages = %v, want empties dropped", parsed.Languages)
	}
	if parsed.Email != "jane@example.com" {
		t.Errorf("Email = %q, want trimmed lower-case", parsed.Email)
	}
}

// TestDecodeResume_InvalidJSON verifies malformed payloads fail cleanly.
func TestDecodeResume_InvalidJSON(t *testing.T) {
	if _, err := decodeResume([]byte("not json"), "test"); err == nil {
		t.Error("expected error for invalid JSON")
	}
}

// TestCleanJSONBlock verifies markdown fences are stripped.
func TestCleanJSONBlock(t *testing.T) {
	in := "```json\n{\"name\": \"x\"}\n```"
	if got := cleanJSONBlock(in); got != `{"name": "x"}` {
		t.Errorf("cleanJSONBlock = %q", got)
	}
}
