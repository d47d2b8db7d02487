// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/olegiv/inequality-dashboard/internal/model"
	"github.com/olegiv/inequality-dashboard/internal/store"
	"github.com/olegiv/inequality-dashboard/internal/testutil"
)

func TestNew(t *testing.T) {
	logger := testutil.TestLoggerSilent()

	s := New(nil, logger, 30)
	if s == nil {
		t.Fatal("New() returned nil")
	}
	if s.cron == nil {
		t.Error("New() scheduler has nil cron")
	}
	if s.retention != 30*24*time.Hour {
		t.Errorf("retention = %v", s.retention)
	}
}

func TestScheduler_StartStop(t *testing.T) {
	s := New(nil, testutil.TestLoggerSilent(), 30)

	if err := s.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if n := len(s.cron.Entries()); n != 1 {
		t.Errorf("expected 1 job, got %d", n)
	}
	s.Stop()
}

func TestScheduler_NoRetentionNoJobs(t *testing.T) {
	s := New(nil, testutil.TestLoggerSilent(), 0)

	if err := s.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if n := len(s.cron.Entries()); n != 0 {
		t.Errorf("expected no jobs, got %d", n)
	}
	s.Stop()

	n, err := s.PruneEvents(context.Background())
	if err != nil || n != 0 {
		t.Errorf("PruneEvents() = %d, %v", n, err)
	}
}

type countingSweeper struct{ n int }

func (c *countingSweeper) Sweep() { c.n++ }

func TestScheduler_Sweepers(t *testing.T) {
	s := New(nil, testutil.TestLoggerSilent(), 0)
	a, b := &countingSweeper{}, &countingSweeper{}
	s.AddSweeper(a)
	s.AddSweeper(b)

	if err := s.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if n := len(s.cron.Entries()); n != 1 {
		t.Errorf("expected 1 sweep job, got %d", n)
	}
	s.Stop()

	s.Sweep()
	if a.n != 1 || b.n != 1 {
		t.Errorf("sweep counts = %d, %d, want 1, 1", a.n, b.n)
	}
}

func TestPruneEvents(t *testing.T) {
	db := testutil.TestMemoryDB(t)
	ctx := context.Background()
	q := store.New(db)

	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	for _, age := range []time.Duration{time.Hour, 10 * 24 * time.Hour, 40 * 24 * time.Hour, 90 * 24 * time.Hour} {
		err := q.CreateEvent(ctx, store.CreateEventParams{
			Level:     model.EventLevelWarning,
			Category:  model.EventCategoryAuth,
			Message:   "login failed",
			CreatedAt: now.Add(-age),
		})
		if err != nil {
			t.Fatalf("CreateEvent: %v", err)
		}
	}

	s := New(db, testutil.TestLoggerSilent(), 30)
	s.now = func() time.Time { return now }

	n, err := s.PruneEvents(ctx)
	if err != nil {
		t.Fatalf("PruneEvents: %v", err)
	}
	if n != 2 {
		t.Errorf("deleted %d events, want 2", n)
	}

	events, err := q.ListRecentEvents(ctx, 10)
	if err != nil {
		t.Fatalf("ListRecentEvents: %v", err)
	}
	// Two survivors plus the prune record.
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	if events[0].Category != model.EventCategorySystem {
		t.Errorf("newest event should be the prune record, got %+v", events[0])
	}

	n, err = s.PruneEvents(ctx)
	if err != nil || n != 0 {
		t.Errorf("second PruneEvents() = %d, %v", n, err)
	}
}
