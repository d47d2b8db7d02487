// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package redisstore

import (
	"context"
	"fmt"
	"iter"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/olegiv/inequality-dashboard/internal/dashboard"
	"github.com/olegiv/inequality-dashboard/internal/model"
)

var _ dashboard.FeedbackStore = (*FeedbackStore)(nil)

// listBatch is how many feedback hashes one pipeline round trip reads.
const listBatch = 100

// memberWidth zero-pads feedback ids so that members with equal scores
// sort by append order.
const memberWidth = 20

// FeedbackStore keeps feedback hashes indexed by a sorted set.
type FeedbackStore struct {
	c *Client
}

// NewFeedbackStore creates a FeedbackStore on c.
func NewFeedbackStore(c *Client) *FeedbackStore {
	return &FeedbackStore{c: c}
}

// Append allocates an id and writes the record and its index entry.
func (s *FeedbackStore) Append(ctx context.Context, f model.Feedback) error {
	id, err := s.c.rdb.Incr(ctx, s.c.key("feedback", "seq")).Result()
	if err != nil {
		return fmt.Errorf("allocating feedback id: %w", err)
	}
	member := feedbackMember(id)
	created := f.CreatedAt.UTC()

	_, err = s.c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, s.c.key("feedback", member), map[string]any{
			"name":       f.Name,
			"email":      f.Email,
			"text":       f.Text,
			"country":    f.Client.Country,
			"browser":    f.Client.Browser,
			"os":         f.Client.OS,
			"device":     f.Client.Device,
			"created_at": strconv.FormatInt(created.UnixNano(), 10),
		})
		pipe.ZAdd(ctx, s.c.key("feedbacks"), redis.Z{
			Score:  float64(created.UnixMicro()),
			Member: member,
		})
		return nil
	})
	if err != nil {
		return fmt.Errorf("creating feedback: %w", err)
	}
	return nil
}

// ListNewestFirst snapshots the index on each iteration and then reads
// the hashes in pipelined batches.
func (s *FeedbackStore) ListNewestFirst(ctx context.Context) iter.Seq2[model.Feedback, error] {
	return func(yield func(model.Feedback, error) bool) {
		ids, err := s.c.rdb.ZRevRange(ctx, s.c.key("feedbacks"), 0, -1).Result()
		if err != nil {
			yield(model.Feedback{}, fmt.Errorf("listing feedback: %w", err))
			return
		}

		for start := 0; start < len(ids); start += listBatch {
			batch := ids[start:min(start+listBatch, len(ids))]

			cmds := make([]*redis.MapStringStringCmd, len(batch))
			_, err := s.c.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
				for i, id := range batch {
					cmds[i] = pipe.HGetAll(ctx, s.c.key("feedback", id))
				}
				return nil
			})
			if err != nil {
				yield(model.Feedback{}, fmt.Errorf("reading feedback: %w", err))
				return
			}

			for i, cmd := range cmds {
				fields := cmd.Val()
				if len(fields) == 0 {
					continue
				}
				if !yield(toFeedback(batch[i], fields), nil) {
					return
				}
			}
		}
	}
}

func feedbackMember(id int64) string {
	return fmt.Sprintf("%0*d", memberWidth, id)
}

func toFeedback(id string, fields map[string]string) model.Feedback {
	return model.Feedback{
		ID:    strings.TrimLeft(id, "0"),
		Name:  fields["name"],
		Email: fields["email"],
		Text:  fields["text"],
		Client: model.ClientInfo{
			Country: fields["country"],
			Browser: fields["browser"],
			OS:      fields["os"],
			Device:  fields["device"],
		},
		CreatedAt: parseNanos(fields["created_at"]),
	}
}
