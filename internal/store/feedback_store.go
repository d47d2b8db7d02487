// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"fmt"
	"iter"
	"strconv"

	"github.com/olegiv/inequality-dashboard/internal/dashboard"
	"github.com/olegiv/inequality-dashboard/internal/model"
)

var _ dashboard.FeedbackStore = (*FeedbackStore)(nil)

// FeedbackStore keeps feedback in the feedbacks table.
type FeedbackStore struct {
	q *Queries
}

// NewFeedbackStore creates a FeedbackStore over db.
func NewFeedbackStore(db DBTX) *FeedbackStore {
	return &FeedbackStore{q: New(db)}
}

// Append inserts a feedback record.
func (s *FeedbackStore) Append(ctx context.Context, f model.Feedback) error {
	_, err := s.q.CreateFeedback(ctx, Feedback{
		Name:      f.Name,
		Email:     f.Email,
		Body:      f.Text,
		Country:   f.Client.Country,
		Browser:   f.Client.Browser,
		OS:        f.Client.OS,
		Device:    f.Client.Device,
		CreatedAt: f.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("creating feedback: %w", err)
	}
	return nil
}

// ListNewestFirst runs a fresh query each time the sequence is iterated
// and streams rows from the cursor.
func (s *FeedbackStore) ListNewestFirst(ctx context.Context) iter.Seq2[model.Feedback, error] {
	return func(yield func(model.Feedback, error) bool) {
		rows, err := s.q.ListFeedbacksNewestFirst(ctx)
		if err != nil {
			yield(model.Feedback{}, fmt.Errorf("listing feedback: %w", err))
			return
		}
		defer func() { _ = rows.Close() }()

		for rows.Next() {
			row, err := ScanFeedback(rows)
			if err != nil {
				yield(model.Feedback{}, fmt.Errorf("scanning feedback: %w", err))
				return
			}
			if !yield(toModelFeedback(row), nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(model.Feedback{}, fmt.Errorf("iterating feedback: %w", err))
		}
	}
}

func toModelFeedback(f Feedback) model.Feedback {
	return model.Feedback{
		ID:    strconv.FormatInt(f.ID, 10),
		Name:  f.Name,
		Email: f.Email,
		Text:  f.Body,
		Client: model.ClientInfo{
			Country: f.Country,
			Browser: f.Browser,
			OS:      f.OS,
			Device:  f.Device,
		},
		CreatedAt: f.CreatedAt,
	}
}
