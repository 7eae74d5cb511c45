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
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/hireloop/intake/internal/models"
)

// flexStrings tolerates the heterogeneous shapes providers return for
// list fields: a JSON array (whose non-string entries are discarded
// silently), or a single delimited string.
type flexStrings []string

func (f *flexStrings) UnmarshalJSON(data []byte) error {
	var arr []any
	if err := json.Unmarshal(data, &arr); err == nil {
		out := make([]string, 0, len(arr))
		for _, v := range arr {
			if s, ok := v.(string); ok {
				if s = strings.TrimSpace(s); s != "" {
					out = append(out, s)
				}
			}
		}
		*f = out
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		var out []string
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		*f = out
		return nil
	}

	// Unknown shape: drop it rather than failing the whole parse.
	*f = nil
	return nil
}

// flexInt tolerates numbers arriving as JSON numbers or numeric strings.
type flexInt int

func (f *flexInt) UnmarshalJSON(data []byte) error {
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*f = flexInt(n)
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if n, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			*f = flexInt(n)
		}
		return nil
	}

	*f = 0
	return nil
}

// rawResume mirrors the resume-shaped JSON both providers return before
// normalisation.
type rawResume struct {
	Name            string      `json:"name"`
	Email           string      `json:"email"`
	Phone           string      `json:"phone"`
	Location        string      `json:"location"`
	Links           flexStrings `json:"links"`
	CurrentTitle    string      `json:"current_title"`
	CurrentCompany  string      `json:"current_company"`
	YearsExperience flexInt     `json:"years_experience"`
	Summary         string      `json:"summary"`
	Skills          flexStrings `json:"skills"`
	Experience      []struct {
		Company     string `json:"company"`
		Title       string `json:"title"`
		Duration    string `json:"duration"`
		Description string `json:"description"`
	} `json:"experience"`
	Education []struct {
		Institution string `json:"institution"`
		Degree      string `json:"degree"`
		Field       string `json:"field"`
		Year        string `json:"year"`
	} `json:"education"`
	Certifications flexStrings `json:"certifications"`
	Languages      flexStrings `json:"languages"`
}

// decodeResume parses a provider's JSON payload and normalises it.
// An empty result — no name, no email, no experience — is an error so
// the caller falls over to the next provider.
func decodeResume(payload []byte, provider string) (*models.ParsedResume, error) {
	var raw rawResume
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("decode resume payload: %w", err)
	}

	if raw.Name == "" && raw.Email == "" && len(raw.Experience) == 0 {
		return nil, fmt.Errorf("provider %s returned empty result", provider)
	}

	parsed := &models.ParsedResume{
		Name:           strings.TrimSpace(raw.Name),
		Email:          strings.ToLower(strings.TrimSpace(raw.Email)),
		Phone:          strings.TrimSpace(raw.Phone),
		Location:       strings.TrimSpace(raw.Location),
		Links:          raw.Links,
		CurrentTitle:   strings.TrimSpace(raw.CurrentTitle),
		CurrentCompany: strings.TrimSpace(raw.CurrentCompany),
		Summary:        strings.TrimSpace(raw.Summary),
		Skills:         raw.Skills,
		Certifications: raw.Certifications,
		Languages:      raw.Languages,
		Provider:       provider,
	}

	for _, e := range raw.Experience {
		parsed.Experience = append(parsed.Experience, models.ExperienceEntry{
			Company:     e.Company,
			Title:       e.Title,
			Duration:    e.Duration,
			Description: e.Description,
		})
	}
	for _, e := range raw.Education {
		parsed.Education = append(parsed.Education, models.EducationEntry{
			Institution: e.Institution,
			Degree:      e.Degree,
			Field:       e.Field,
			Year:        e.Year,
		})
	}

	// Prefer the explicit upstream figure when positive; otherwise
	// derive from the experience entries themselves.
	if raw.YearsExperience > 0 {
		parsed.YearsExperience = int(raw.YearsExperience)
	} else {
		parsed.YearsExperience = max(1, len(parsed.Experience))
	}

	return parsed, nil
}
