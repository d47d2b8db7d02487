// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import "time"

// Feedback field limits.
const (
	FeedbackNameMaxLen = 50
	FeedbackTextMaxLen = 5000
)

// ClientInfo describes the client that submitted a request.
// All fields are best effort and may be empty.
type ClientInfo struct {
	IP      string `json:"-"`
	Country string `json:"country,omitempty"`
	Browser string `json:"browser,omitempty"`
	OS      string `json:"os,omitempty"`
	Device  string `json:"device,omitempty"`
}

// Feedback is a single submission from the feedback form. Records are
// append-only.
type Feedback struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	Text      string     `json:"feedback"`
	Client    ClientInfo `json:"client"`
	CreatedAt time.Time  `json:"timestamp"`
}

// HasTimestamp reports whether the record carries a server timestamp.
func (f *Feedback) HasTimestamp() bool {
	return !f.CreatedAt.IsZero()
}
