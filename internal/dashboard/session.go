// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package dashboard

import "github.com/olegiv/inequality-dashboard/internal/model"

// AuthView selects the form shown to a logged-out client.
type AuthView int

// Auth sub-views.
const (
	AuthViewLogin AuthView = iota
	AuthViewSignup
)

// Session is the per-client navigation and authentication state.
//
// Role is set iff Authenticated is true, and Page is always allowed for
// Role. Only Controller methods and Normalize mutate a Session.
type Session struct {
	Authenticated bool
	Principal     model.Principal
	Role          model.Role
	Page          Page
	AuthView      AuthView
}

// NewSession returns the initial LoggedOut state.
func NewSession() Session {
	return Session{Page: PageHome, AuthView: AuthViewLogin}
}

// IsAdmin reports whether the session belongs to a logged-in admin.
func (s *Session) IsAdmin() bool {
	return s.Authenticated && s.Role == model.RoleAdmin
}

// Pages returns the navigation options to present. Logged-out sessions
// have none.
func (s *Session) Pages() []Page {
	if !s.Authenticated {
		return nil
	}
	return Available(s.Role)
}

// Normalize repairs a session decoded from storage so that the state
// invariants hold. It reports whether anything was changed.
func (s *Session) Normalize() bool {
	before := *s

	if !s.Authenticated {
		*s = Session{Page: PageHome, AuthView: s.AuthView}
	} else if s.Role != model.RoleAdmin && s.Role != model.RoleUser {
		s.Role = model.RoleUser
	}
	if s.AuthView != AuthViewLogin && s.AuthView != AuthViewSignup {
		s.AuthView = AuthViewLogin
	}
	if s.Authenticated && !Allowed(s.Role, s.Page) {
		s.Page = PageHome
	}

	return *s != before
}
