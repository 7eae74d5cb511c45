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

// Package classify partitions a message's attachments into resume
// candidates, video candidates, and noise (invoices, receipts) by
// filename heuristics. Pure functions, no side effects.
package classify

import (
	"path/filepath"
	"strings"

	"github.com/hireloop/intake/internal/models"
)

// noiseKeywords mark attachments that must be excluded before any
// resume/video classification. The noise check runs first so a filename
// like "invoice_resume.pdf" is still dropped.
var noiseKeywords = []string{
	"invoice", "receipt", "statement", "bill", "order", "confirmation",
}

// introKeywords distinguish a video introduction from a video resume.
var introKeywords = []string{
	"intro", "hello", "greeting", "pitch", "about-me", "aboutme",
}

// recordingKeywords are recording-platform hints, also treated as
// introductions.
var recordingKeywords = []string{
	"loom", "zoom", "recording",
}

var documentExts = map[string]bool{
	".pdf":  true,
	".doc":  true,
	".docx": true,
}

var videoExts = map[string]bool{
	".mp4":  true,
	".mov":  true,
	".avi":  true,
	".webm": true,
	".mkv":  true,
}

// Result groups a message's attachments by class. Noise attachments are
// dropped entirely.
type Result struct {
	Resumes     []models.Attachment
	VideoIntros []models.Attachment
	VideoCVs    []models.Attachment
}

// Classify returns the class of a single attachment by filename.
func Classify(filename string) models.AttachmentClass {
	lower := strings.ToLower(filename)
	ext := filepath.Ext(lower)

	for _, kw := range noiseKeywords {
		if strings.Contains(lower, kw) {
			return models.ClassNoise
		}
	}

	if documentExts[ext] {
		return models.ClassResume
	}

	if videoExts[ext] {
		for _, kw := range introKeywords {
			if strings.Contains(lower, kw) {
				return models.ClassVideoIntro
			}
		}
		for _, kw := range recordingKeywords {
			if strings.Contains(lower, kw) {
				return models.ClassVideoIntro
			}
		}
		return models.ClassVideoCV
	}

	return models.ClassNoise
}

// Partition classifies every attachment of a message and groups the
// survivors. Attachments classified as noise do not appear in the result.
func Partition(attachments []models.Attachment) Result {
	var r Result
	for _, a := range attachments {
		switch Classify(a.Filename) {
		case models.ClassResume:
			r.Resumes = append(r.Resumes, a)
		case models.ClassVideoIntro:
			r.VideoIntros = append(r.VideoIntros, a)
		case models.ClassVideoCV:
			r.VideoCVs = append(r.VideoCVs, a)
		}
	}
	return r
}
