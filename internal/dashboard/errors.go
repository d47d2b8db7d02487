// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package dashboard

import (
	"errors"
	"fmt"
	"strings"
)

// Failure categories returned in Outcome.Err.
var (
	// ErrInvalidCredentials is returned when the gateway rejects the email
	// and password. Gateways return it for both unknown emails and wrong
	// passwords.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrGatewayUnavailable wraps any other gateway failure during login.
	// The user sees the same notice as for invalid credentials.
	ErrGatewayUnavailable = errors.New("auth gateway unavailable")

	// ErrAccountCreationFailed matches every *AccountCreationError.
	ErrAccountCreationFailed = errors.New("account creation failed")

	// ErrValidation matches every *ValidationError.
	ErrValidation = errors.New("validation failed")

	// ErrStoreUnavailable wraps any failure of the role or feedback store.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrNotPermitted is returned for actions attempted outside the state
	// that allows them. The session is left untouched.
	ErrNotPermitted = errors.New("action not permitted")

	// ErrNotFound is returned by RoleStore.Get for unknown principals.
	ErrNotFound = errors.New("record not found")
)

// RejectedError is a gateway refusal whose text is safe to show to users.
// Any other gateway error is reported with a generic reason.
type RejectedError struct {
	Reason string
}

func (e *RejectedError) Error() string {
	return e.Reason
}

// AccountCreationError reports why the auth gateway refused a signup.
type AccountCreationError struct {
	Reason string
	Err    error
}

func (e *AccountCreationError) Error() string {
	return "could not create account: " + e.Reason
}

// Is makes errors.Is(err, ErrAccountCreationFailed) hold.
func (e *AccountCreationError) Is(target error) bool {
	return target == ErrAccountCreationFailed
}

func (e *AccountCreationError) Unwrap() error {
	return e.Err
}

// ValidationError lists the form fields that failed validation.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "invalid fields: " + strings.Join(e.Fields, ", ")
}

// Is makes errors.Is(err, ErrValidation) hold.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func gatewayUnavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrGatewayUnavailable, err)
}

func storeUnavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
}
