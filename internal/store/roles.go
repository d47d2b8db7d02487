// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/olegiv/inequality-dashboard/internal/dashboard"
	"github.com/olegiv/inequality-dashboard/internal/model"
)

var _ dashboard.RoleStore = (*RoleStore)(nil)

// RoleStore keeps role records in the users table.
type RoleStore struct {
	db  *sql.DB
	q   *Queries
	now func() time.Time
}

// NewRoleStore creates a RoleStore over db.
func NewRoleStore(db *sql.DB) *RoleStore {
	return &RoleStore{db: db, q: New(db), now: time.Now}
}

// CountAll returns the number of role records.
func (s *RoleStore) CountAll(ctx context.Context) (int, error) {
	n, err := s.q.CountUsers(ctx)
	if err != nil {
		return 0, fmt.Errorf("counting users: %w", err)
	}
	return int(n), nil
}

// Get returns dashboard.ErrNotFound for unknown ids.
func (s *RoleStore) Get(ctx context.Context, id string) (model.User, error) {
	u, err := s.q.GetUserByID(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, dashboard.ErrNotFound
	}
	if err != nil {
		return model.User{}, fmt.Errorf("getting user %s: %w", id, err)
	}
	return model.User{
		ID:        u.ID,
		Email:     u.Email,
		Role:      model.ParseRole(u.Role),
		CreatedAt: u.CreatedAt,
	}, nil
}

// Put writes the role record for a new principal.
func (s *RoleStore) Put(ctx context.Context, u model.User) error {
	return insertUserRecord(ctx, s.q, u, model.ParseRole(string(u.Role)), s.now())
}

// PutFirstAdmin claims the first_admin row and writes the user record in
// one transaction. The primary key makes concurrent claims serialize; the
// loser finds the row owned by someone else and is written as a user. A
// failed write rolls the claim back.
func (s *RoleStore) PutFirstAdmin(ctx context.Context, u model.User) (won bool, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("beginning first admin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	qtx := s.q.WithTx(tx)

	if insertErr := qtx.InsertFirstAdmin(ctx, u.ID, s.now()); insertErr == nil {
		won = true
	} else {
		owner, err := qtx.GetFirstAdmin(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			return false, fmt.Errorf("claiming first admin: %w", insertErr)
		}
		if err != nil {
			return false, fmt.Errorf("reading first admin: %w", err)
		}
		won = owner == u.ID
	}

	role := model.RoleUser
	if won {
		role = model.RoleAdmin
	}
	if err = insertUserRecord(ctx, qtx, u, role, s.now()); err != nil {
		return false, err
	}
	if err = tx.Commit(); err != nil {
		return false, fmt.Errorf("committing first admin: %w", err)
	}
	return won, nil
}

func insertUserRecord(ctx context.Context, q *Queries, u model.User, role model.Role, now time.Time) error {
	created := u.CreatedAt
	if created.IsZero() {
		created = now
	}
	err := q.CreateUser(ctx, CreateUserParams{
		ID:        u.ID,
		Email:     u.Email,
		Role:      string(role),
		CreatedAt: created,
	})
	if err != nil {
		return fmt.Errorf("creating user %s: %w", u.ID, err)
	}
	return nil
}
