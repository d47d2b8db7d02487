// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"time"
)

// Credential is a row of the credentials table used by the local auth
// gateway.
type Credential struct {
	ID           string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

const getCredentialByEmail = `SELECT id, email, password_hash, created_at FROM credentials WHERE email = ?`

// GetCredentialByEmail returns sql.ErrNoRows for unknown emails.
func (q *Queries) GetCredentialByEmail(ctx context.Context, email string) (Credential, error) {
	var (
		c       Credential
		created int64
	)
	err := q.db.QueryRowContext(ctx, getCredentialByEmail, email).Scan(&c.ID, &c.Email, &c.PasswordHash, &created)
	c.CreatedAt = fromUnix(created)
	return c, err
}

const createCredential = `INSERT INTO credentials (id, email, password_hash, created_at) VALUES (?, ?, ?, ?)`

// CreateCredential inserts a credential. The email column is unique.
func (q *Queries) CreateCredential(ctx context.Context, c Credential) error {
	_, err := q.db.ExecContext(ctx, createCredential, c.ID, c.Email, c.PasswordHash, toUnix(c.CreatedAt))
	return err
}

const updateCredentialHash = `UPDATE credentials SET password_hash = ? WHERE id = ?`

// UpdateCredentialHash replaces a stored password hash.
func (q *Queries) UpdateCredentialHash(ctx context.Context, id, hash string) error {
	_, err := q.db.ExecContext(ctx, updateCredentialHash, hash, id)
	return err
}
