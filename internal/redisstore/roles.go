// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package redisstore

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/olegiv/inequality-dashboard/internal/dashboard"
	"github.com/olegiv/inequality-dashboard/internal/model"
)

var _ dashboard.RoleStore = (*RoleStore)(nil)

// RoleStore keeps one hash per principal plus an index set for counting.
type RoleStore struct {
	c   *Client
	now func() time.Time
}

// NewRoleStore creates a RoleStore on c.
func NewRoleStore(c *Client) *RoleStore {
	return &RoleStore{c: c, now: time.Now}
}

// CountAll returns the size of the users set.
func (s *RoleStore) CountAll(ctx context.Context) (int, error) {
	n, err := s.c.rdb.SCard(ctx, s.c.key("users")).Result()
	if err != nil {
		return 0, fmt.Errorf("counting users: %w", err)
	}
	return int(n), nil
}

// Get returns dashboard.ErrNotFound for unknown ids.
func (s *RoleStore) Get(ctx context.Context, id string) (model.User, error) {
	fields, err := s.c.rdb.HGetAll(ctx, s.c.key("user", id)).Result()
	if err != nil {
		return model.User{}, fmt.Errorf("getting user %s: %w", id, err)
	}
	if len(fields) == 0 {
		return model.User{}, dashboard.ErrNotFound
	}
	return model.User{
		ID:        id,
		Email:     fields["email"],
		Role:      model.ParseRole(fields["role"]),
		CreatedAt: parseNanos(fields["created_at"]),
	}, nil
}

// Put writes the user hash and indexes it in one MULTI/EXEC.
func (s *RoleStore) Put(ctx context.Context, u model.User) error {
	created := u.CreatedAt
	if created.IsZero() {
		created = s.now()
	}
	_, err := s.c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, s.c.key("user", u.ID), map[string]any{
			"email":      u.Email,
			"role":       string(model.ParseRole(string(u.Role))),
			"created_at": strconv.FormatInt(created.UTC().UnixNano(), 10),
		})
		pipe.SAdd(ctx, s.c.key("users"), u.ID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("creating user %s: %w", u.ID, err)
	}
	return nil
}

// putFirstAdmin claims KEYS[1] for ARGV[1] with SETNX and writes the user
// hash and index with the resulting role. Scripts run without interleaving,
// so no other client sees the claim without the record.
var putFirstAdmin = redis.NewScript(`
redis.call('SETNX', KEYS[1], ARGV[1])
local role = 'user'
if redis.call('GET', KEYS[1]) == ARGV[1] then
	role = 'admin'
end
redis.call('HSET', KEYS[2], 'email', ARGV[2], 'role', role, 'created_at', ARGV[3])
redis.call('SADD', KEYS[3], ARGV[1])
if role == 'admin' then
	return 1
end
return 0
`)

// PutFirstAdmin claims the first_admin key and writes the user in one
// script run.
func (s *RoleStore) PutFirstAdmin(ctx context.Context, u model.User) (bool, error) {
	created := u.CreatedAt
	if created.IsZero() {
		created = s.now()
	}
	keys := []string{s.c.key("first_admin"), s.c.key("user", u.ID), s.c.key("users")}
	won, err := putFirstAdmin.Run(ctx, s.c.rdb, keys,
		u.ID, u.Email, strconv.FormatInt(created.UTC().UnixNano(), 10)).Int()
	if err != nil {
		return false, fmt.Errorf("creating first user %s: %w", u.ID, err)
	}
	return won == 1, nil
}

func parseNanos(s string) time.Time {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}
