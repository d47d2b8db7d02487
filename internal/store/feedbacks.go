// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"time"
)

// Feedback is a row of the feedbacks table.
type Feedback struct {
	ID        int64
	Name      string
	Email     string
	Body      string
	Country   string
	Browser   string
	OS        string
	Device    string
	CreatedAt time.Time
}

const createFeedback = `INSERT INTO feedbacks (name, email, body, country, browser, os, device, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

// CreateFeedback inserts a feedback row and returns its id.
func (q *Queries) CreateFeedback(ctx context.Context, f Feedback) (int64, error) {
	res, err := q.db.ExecContext(ctx, createFeedback,
		f.Name, f.Email, f.Body, f.Country, f.Browser, f.OS, f.Device, toUnix(f.CreatedAt))
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

const listFeedbacksNewestFirst = `SELECT id, name, email, body, country, browser, os, device, created_at
FROM feedbacks
ORDER BY created_at DESC, id DESC`

// ListFeedbacksNewestFirst opens a cursor over all feedback rows. The
// caller must close the rows.
func (q *Queries) ListFeedbacksNewestFirst(ctx context.Context) (*sql.Rows, error) {
	return q.db.QueryContext(ctx, listFeedbacksNewestFirst)
}

// ScanFeedback reads the current row of a ListFeedbacksNewestFirst cursor.
func ScanFeedback(rows *sql.Rows) (Feedback, error) {
	var (
		f       Feedback
		created int64
	)
	err := rows.Scan(&f.ID, &f.Name, &f.Email, &f.Body, &f.Country, &f.Browser, &f.OS, &f.Device, &created)
	f.CreatedAt = fromUnix(created)
	return f, err
}

const countFeedbacks = `SELECT COUNT(*) FROM feedbacks`

// CountFeedbacks returns the number of feedback rows.
func (q *Queries) CountFeedbacks(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, countFeedbacks).Scan(&n)
	return n, err
}
