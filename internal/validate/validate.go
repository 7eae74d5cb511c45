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

// Package validate scores raw extracted text for structural plausibility.
// It is a second signal, independent of the structured parse: a badly
// parsed resume can still contain plausible text, and a "successful"
// parse can be garbage. A low score flags the application for manual
// review; it never blocks creation.
package validate

import (
	"regexp"
	"strings"

	"github.com/hireloop/intake/internal/models"
)

// DefaultReviewThreshold is the score below which an application is
// flagged for manual review.
const DefaultReviewThreshold = 40

var (
	emailRe = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	phoneRe = regexp.MustCompile(`(\+?\d[\d\s().\-]{7,}\d)`)
)

// sectionMarkers are headers that real resumes tend to carry.
var sectionMarkers = []string{
	"experience", "employment", "work history",
	"education", "qualification",
	"skills", "competencies",
	"summary", "objective", "profile",
	"certification", "project",
}

// Score inspects raw text for markers of a real resume and yields a
// 0–100 plausibility score with a human-readable reason.
func Score(text string) models.ValidationResult {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return models.ValidationResult{Valid: false, Score: 0, Reason: "empty text"}
	}

	lower := strings.ToLower(trimmed)
	score := 0
	var reasons []string

	// Contact information: the strongest single signal.
	if emailRe.MatchString(trimmed) {
		score += 25
	} else {
		reasons = append(reasons, "no email address")
	}
	if phoneRe.MatchString(trimmed) {
		score += 10
	}

	// Section headers.
	sections := 0
	for _, marker := range sectionMarkers {
		if strings.Contains(lower, marker) {
			sections++
		}
	}
	switch {
	case sections >= 4:
		score += 40
	case sections >= 2:
		score += 25
	case sections == 1:
		score += 10
		reasons = append(reasons, "few resume sections")
	default:
		reasons = append(reasons, "no resume sections")
	}

	// Length: enough substance for a career history.
	switch n := len(trimmed); {
	case n >= 1500:
		score += 25
	case n >= 500:
		score += 15
	case n >= 200:
		score += 5
		reasons = append(reasons, "short text")
	default:
		reasons = append(reasons, "very short text")
	}

	if score > 100 {
		score = 100
	}

	reason := "looks like a resume"
	if len(reasons) > 0 {
		reason = strings.Join(reasons, "; ")
	}

	return models.ValidationResult{
		Valid:  score >= DefaultReviewThreshold,
		Score:  score,
		Reason: reason,
	}
}
