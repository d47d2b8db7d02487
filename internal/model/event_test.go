// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"testing"
	"time"
)

func TestEventCategoryConstants(t *testing.T) {
	tests := []struct {
		name     string
		constant string
		expected string
	}{
		{"auth", EventCategoryAuth, "auth"},
		{"feedback", EventCategoryFeedback, "feedback"},
		{"security", EventCategorySecurity, "security"},
		{"system", EventCategorySystem, "system"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.constant != tt.expected {
				t.Errorf("constant = %q, want %q", tt.constant, tt.expected)
			}
		})
	}
}

func TestFeedbackHasTimestamp(t *testing.T) {
	var f Feedback
	if f.HasTimestamp() {
		t.Error("zero Feedback should not have a timestamp")
	}
	f.CreatedAt = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	if !f.HasTimestamp() {
		t.Error("Feedback with CreatedAt should have a timestamp")
	}
}
