// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package session persists each client's dashboard.Session between
// requests using scs. State lives server side and is keyed by an HttpOnly
// cookie.
package session

import (
	"context"
	"database/sql"
	"encoding/gob"
	"net/http"
	"time"

	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
	"github.com/alexedwards/scs/v2/memstore"

	"github.com/olegiv/inequality-dashboard/internal/dashboard"
	"github.com/olegiv/inequality-dashboard/internal/store"
)

const (
	keyState = "dashboard"
	keyFlash = "flash"
)

func init() {
	gob.Register(dashboard.Session{})
	gob.Register(dashboard.Notice{})
}

// Options configures the session manager.
type Options struct {
	Lifetime time.Duration
	IsDev    bool
}

// New creates a scs session manager. SQLite databases keep sessions in the
// sessions table; other drivers fall back to process memory.
func New(db *sql.DB, driver store.Driver, opts Options) *scs.SessionManager {
	sm := scs.New()

	if driver == store.DriverSQLite {
		sm.Store = sqlite3store.New(db)
	} else {
		sm.Store = memstore.New()
	}

	sm.Lifetime = opts.Lifetime
	if sm.Lifetime <= 0 {
		sm.Lifetime = 24 * time.Hour
	}
	sm.Cookie.HttpOnly = true
	sm.Cookie.SameSite = http.SameSiteLaxMode
	sm.Cookie.Path = "/"
	sm.Cookie.Secure = !opts.IsDev // Secure cookies in production only
	if !opts.IsDev {
		sm.Cookie.Name = "__Host-session"
	}

	return sm
}

// Manager reads and writes the dashboard state stored in a scs session.
type Manager struct {
	sm *scs.SessionManager
}

// NewManager wraps a scs session manager.
func NewManager(sm *scs.SessionManager) *Manager {
	return &Manager{sm: sm}
}

// LoadAndSave is the scs middleware that loads and commits session data.
func (m *Manager) LoadAndSave(next http.Handler) http.Handler {
	return m.sm.LoadAndSave(next)
}

// Load returns the client's state, or a fresh LoggedOut session. Stored
// values that violate the state invariants are repaired.
func (m *Manager) Load(ctx context.Context) dashboard.Session {
	s, ok := m.sm.Get(ctx, keyState).(dashboard.Session)
	if !ok {
		return dashboard.NewSession()
	}
	s.Normalize()
	return s
}

// Save stores the client's state.
func (m *Manager) Save(ctx context.Context, s dashboard.Session) {
	m.sm.Put(ctx, keyState, s)
}

// RenewToken issues a new session token, keeping the data. Call it when
// the privilege level changes.
func (m *Manager) RenewToken(ctx context.Context) error {
	return m.sm.RenewToken(ctx)
}

// Destroy deletes the session data and expires the cookie.
func (m *Manager) Destroy(ctx context.Context) error {
	return m.sm.Destroy(ctx)
}

// Flash stores a notice to show on the next rendered page.
func (m *Manager) Flash(ctx context.Context, n *dashboard.Notice) {
	if n == nil {
		return
	}
	m.sm.Put(ctx, keyFlash, *n)
}

// PopFlash returns and clears the pending notice, if any.
func (m *Manager) PopFlash(ctx context.Context) *dashboard.Notice {
	n, ok := m.sm.Pop(ctx, keyFlash).(dashboard.Notice)
	if !ok {
		return nil
	}
	return &n
}
