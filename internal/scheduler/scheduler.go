// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package scheduler runs housekeeping jobs on a cron schedule.
package scheduler

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/olegiv/inequality-dashboard/internal/model"
	"github.com/olegiv/inequality-dashboard/internal/store"
)

// PruneSchedule runs the event log cleanup once a night.
const PruneSchedule = "30 3 * * *"

// SweepSchedule runs in-memory cache sweeps.
const SweepSchedule = "@every 10m"

// Sweeper drops stale in-memory state, such as rate limiter entries.
type Sweeper interface {
	Sweep()
}

// Scheduler prunes the event log and sweeps registered caches on a schedule.
type Scheduler struct {
	queries   *store.Queries
	cron      *cron.Cron
	logger    *slog.Logger
	retention time.Duration
	now       func() time.Time
	sweepers  []Sweeper
}

// New creates a scheduler that keeps events for retentionDays days.
// A non-positive retention disables pruning.
func New(db store.DBTX, logger *slog.Logger, retentionDays int) *Scheduler {
	return &Scheduler{
		queries:   store.New(db),
		cron:      cron.New(),
		logger:    logger,
		retention: time.Duration(retentionDays) * 24 * time.Hour,
		now:       time.Now,
	}
}

// AddSweeper registers a cache to sweep on SweepSchedule. It must be
// called before Start.
func (s *Scheduler) AddSweeper(sw Sweeper) {
	s.sweepers = append(s.sweepers, sw)
}

// Sweep runs every registered sweeper once.
func (s *Scheduler) Sweep() {
	for _, sw := range s.sweepers {
		sw.Sweep()
	}
}

// Start registers the jobs and starts the cron runner.
func (s *Scheduler) Start() error {
	if len(s.sweepers) > 0 {
		if _, err := s.cron.AddFunc(SweepSchedule, s.Sweep); err != nil {
			return err
		}
	}
	if s.retention > 0 {
		_, err := s.cron.AddFunc(PruneSchedule, func() {
			if _, err := s.PruneEvents(context.Background()); err != nil {
				s.logger.Error("failed to prune event log", "error", err)
			}
		})
		if err != nil {
			return err
		}
	}

	s.cron.Start()
	s.logger.Info("scheduler started", "jobs", len(s.cron.Entries()))
	return nil
}

// Stop waits for running jobs and stops the scheduler.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("scheduler stopped")
}

// PruneEvents deletes events older than the retention period and records
// the cleanup as an info event.
func (s *Scheduler) PruneEvents(ctx context.Context) (int64, error) {
	if s.retention <= 0 {
		return 0, nil
	}
	now := s.now()
	cutoff := now.Add(-s.retention)

	n, err := s.queries.DeleteEventsBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, nil
	}

	s.logger.Info("pruned event log", "deleted", n, "cutoff", cutoff.Format(time.RFC3339))

	metadata, _ := json.Marshal(map[string]any{
		"deleted": n,
		"cutoff":  cutoff.Format(time.RFC3339),
	})
	err = s.queries.CreateEvent(ctx, store.CreateEventParams{
		Level:     model.EventLevelInfo,
		Category:  model.EventCategorySystem,
		Message:   "Event log pruned by scheduler",
		Metadata:  string(metadata),
		CreatedAt: now,
	})
	if err != nil {
		s.logger.Warn("failed to log prune event", "error", err)
	}
	return n, nil
}
