// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package auth

import (
	"net/mail"
	"strings"

	"github.com/olegiv/inequality-dashboard/internal/dashboard"
)

// MinPasswordLength matches the identity provider's minimum.
const MinPasswordLength = 6

// ErrInvalidCredentials is the only Verify error counted as a failed login.
var ErrInvalidCredentials = dashboard.ErrInvalidCredentials

// Gateway refusals. Their messages are shown to users as signup failure
// reasons, so they carry no internal detail.
var (
	ErrEmailExists     error = &dashboard.RejectedError{Reason: "an account with this email already exists"}
	ErrInvalidEmail    error = &dashboard.RejectedError{Reason: "the email address is badly formatted"}
	ErrWeakPassword    error = &dashboard.RejectedError{Reason: "password should be at least 6 characters"}
	ErrTooManyAttempts error = &dashboard.RejectedError{Reason: "too many attempts, try again later"}
)

// ProviderError is an identity provider failure without a specific mapping.
type ProviderError struct {
	Code   string
	Status int
}

func (e *ProviderError) Error() string {
	return "identity provider error: " + e.Code
}

// NormalizeEmail trims and lowercases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateEmail(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || addr.Name != "" {
		return ErrInvalidEmail
	}
	return nil
}

func validatePassword(password string) error {
	if len([]rune(password)) < MinPasswordLength {
		return ErrWeakPassword
	}
	return nil
}
