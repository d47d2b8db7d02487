// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"time"
)

// User is a row of the users table.
type User struct {
	ID        string
	Email     string
	Role      string
	CreatedAt time.Time
}

const countUsers = `SELECT COUNT(*) FROM users`

// CountUsers returns the number of role records.
func (q *Queries) CountUsers(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, countUsers).Scan(&n)
	return n, err
}

const getUserByID = `SELECT id, email, role, created_at FROM users WHERE id = ?`

// GetUserByID returns sql.ErrNoRows for unknown ids.
func (q *Queries) GetUserByID(ctx context.Context, id string) (User, error) {
	var (
		u       User
		created int64
	)
	err := q.db.QueryRowContext(ctx, getUserByID, id).Scan(&u.ID, &u.Email, &u.Role, &created)
	u.CreatedAt = fromUnix(created)
	return u, err
}

const createUser = `INSERT INTO users (id, email, role, created_at) VALUES (?, ?, ?, ?)`

// CreateUserParams holds the columns of a new users row.
type CreateUserParams struct {
	ID        string
	Email     string
	Role      string
	CreatedAt time.Time
}

// CreateUser inserts a role record.
func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) error {
	_, err := q.db.ExecContext(ctx, createUser, arg.ID, arg.Email, arg.Role, toUnix(arg.CreatedAt))
	return err
}

const insertFirstAdmin = `INSERT INTO first_admin (slot, user_id, claimed_at) VALUES (1, ?, ?)`

// InsertFirstAdmin inserts the single first_admin row. It fails with a
// constraint error once the slot is taken.
func (q *Queries) InsertFirstAdmin(ctx context.Context, userID string, at time.Time) error {
	_, err := q.db.ExecContext(ctx, insertFirstAdmin, userID, toUnix(at))
	return err
}

const getFirstAdmin = `SELECT user_id FROM first_admin WHERE slot = 1`

// GetFirstAdmin returns the id holding the first-admin slot, or
// sql.ErrNoRows when it is free.
func (q *Queries) GetFirstAdmin(ctx context.Context) (string, error) {
	var id string
	err := q.db.QueryRowContext(ctx, getFirstAdmin).Scan(&id)
	return id, err
}
