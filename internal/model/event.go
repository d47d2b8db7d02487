// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import "time"

// Event levels
const (
	EventLevelInfo    = "info"
	EventLevelWarning = "warning"
	EventLevelError   = "error"
)

// Event categories
const (
	EventCategoryAuth     = "auth"
	EventCategoryFeedback = "feedback"
	EventCategorySecurity = "security"
	EventCategorySystem   = "system"
)

// Event represents a persisted log entry.
type Event struct {
	ID         int64
	Level      string
	Category   string
	Message    string
	UserID     string // empty when no principal was involved
	Metadata   string // JSON string
	IPAddress  string
	RequestURL string
	CreatedAt  time.Time
}
