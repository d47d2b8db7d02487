// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/olegiv/inequality-dashboard/internal/model"
	"github.com/olegiv/inequality-dashboard/internal/store"
)

// LocalGateway verifies and creates accounts against the credentials table.
type LocalGateway struct {
	q      *store.Queries
	logger *slog.Logger
	now    func() time.Time
	newID  func() string
}

// NewLocalGateway creates a gateway over db.
func NewLocalGateway(db store.DBTX, logger *slog.Logger) *LocalGateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &LocalGateway{
		q:      store.New(db),
		logger: logger,
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// dummyHash is verified against when the email is unknown so that both
// failure paths cost one argon2 derivation.
var dummyHash = sync.OnceValue(func() string {
	h, err := HashPassword("dashboard-timing-equalizer")
	if err != nil {
		return ""
	}
	return h
})

// Verify checks an email and password. Unknown emails and wrong passwords
// both return ErrInvalidCredentials.
func (g *LocalGateway) Verify(ctx context.Context, email, password string) (model.Principal, error) {
	email = NormalizeEmail(email)

	cred, err := g.q.GetCredentialByEmail(ctx, email)
	if errors.Is(err, sql.ErrNoRows) {
		_, _ = CheckPassword(password, dummyHash())
		return model.Principal{}, ErrInvalidCredentials
	}
	if err != nil {
		return model.Principal{}, fmt.Errorf("looking up credential: %w", err)
	}

	ok, err := CheckPassword(password, cred.PasswordHash)
	if err != nil {
		return model.Principal{}, fmt.Errorf("checking password: %w", err)
	}
	if !ok {
		return model.Principal{}, ErrInvalidCredentials
	}

	if NeedsRehash(cred.PasswordHash) {
		g.rehash(ctx, cred.ID, password)
	}

	return model.Principal{ID: cred.ID, Email: cred.Email}, nil
}

func (g *LocalGateway) rehash(ctx context.Context, id, password string) {
	hash, err := HashPassword(password)
	if err == nil {
		err = g.q.UpdateCredentialHash(ctx, id, hash)
	}
	if err != nil {
		g.logger.Warn("failed to upgrade password hash", "user_id", id, "error", err)
		return
	}
	g.logger.Info("upgraded password hash", "user_id", id)
}

// Create registers a new account with a random UUID as principal id.
func (g *LocalGateway) Create(ctx context.Context, email, password string) (model.Principal, error) {
	email = NormalizeEmail(email)
	if err := validateEmail(email); err != nil {
		return model.Principal{}, err
	}
	if err := validatePassword(password); err != nil {
		return model.Principal{}, err
	}

	if _, err := g.q.GetCredentialByEmail(ctx, email); err == nil {
		return model.Principal{}, ErrEmailExists
	} else if !errors.Is(err, sql.ErrNoRows) {
		return model.Principal{}, fmt.Errorf("looking up credential: %w", err)
	}

	hash, err := HashPassword(password)
	if err != nil {
		return model.Principal{}, err
	}

	cred := store.Credential{
		ID:           g.newID(),
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    g.now(),
	}
	if err := g.q.CreateCredential(ctx, cred); err != nil {
		// A concurrent signup may have taken the email between the check
		// and the insert.
		if _, lookupErr := g.q.GetCredentialByEmail(ctx, email); lookupErr == nil {
			return model.Principal{}, ErrEmailExists
		}
		return model.Principal{}, fmt.Errorf("creating credential: %w", err)
	}

	return model.Principal{ID: cred.ID, Email: cred.Email}, nil
}
