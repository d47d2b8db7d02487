// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package dashboard

import (
	"context"
	"fmt"
	"iter"
	"sort"
	"sync"

	"github.com/olegiv/inequality-dashboard/internal/model"
)

var errEmailExists error = &RejectedError{Reason: "EMAIL_EXISTS"}

type fakeAccount struct {
	id       string
	password string
}

type fakeGateway struct {
	mu        sync.Mutex
	accounts  map[string]fakeAccount
	nextID    int
	verifyErr error
	createErr error
	calls     int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{accounts: make(map[string]fakeAccount)}
}

func (g *fakeGateway) Verify(_ context.Context, email, password string) (model.Principal, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	if g.verifyErr != nil {
		return model.Principal{}, g.verifyErr
	}
	acc, ok := g.accounts[email]
	if !ok {
		return model.Principal{}, fmt.Errorf("EMAIL_NOT_FOUND: %w", ErrInvalidCredentials)
	}
	if acc.password != password {
		return model.Principal{}, fmt.Errorf("INVALID_PASSWORD: %w", ErrInvalidCredentials)
	}
	return model.Principal{ID: acc.id, Email: email}, nil
}

func (g *fakeGateway) Create(_ context.Context, email, password string) (model.Principal, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	if g.createErr != nil {
		return model.Principal{}, g.createErr
	}
	if _, ok := g.accounts[email]; ok {
		return model.Principal{}, errEmailExists
	}
	g.nextID++
	id := fmt.Sprintf("uid-%d", g.nextID)
	g.accounts[email] = fakeAccount{id: id, password: password}
	return model.Principal{ID: id, Email: email}, nil
}

type fakeRoles struct {
	mu       sync.Mutex
	users    map[string]model.User
	admin    string
	countErr error
	getErr   error
	putErr   error
	// countHook runs after CountAll has read the count, before returning.
	countHook func()
}

func newFakeRoles() *fakeRoles {
	return &fakeRoles{users: make(map[string]model.User)}
}

func (r *fakeRoles) CountAll(context.Context) (int, error) {
	r.mu.Lock()
	if r.countErr != nil {
		r.mu.Unlock()
		return 0, r.countErr
	}
	n := len(r.users)
	hook := r.countHook
	r.mu.Unlock()
	if hook != nil {
		hook()
	}
	return n, nil
}

func (r *fakeRoles) Get(_ context.Context, id string) (model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getErr != nil {
		return model.User{}, r.getErr
	}
	u, ok := r.users[id]
	if !ok {
		return model.User{}, ErrNotFound
	}
	return u, nil
}

func (r *fakeRoles) Put(_ context.Context, u model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.putErr != nil {
		return r.putErr
	}
	r.users[u.ID] = u
	return nil
}

// PutFirstAdmin keeps neither the claim nor the record when putErr is set.
func (r *fakeRoles) PutFirstAdmin(_ context.Context, u model.User) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.putErr != nil {
		return false, r.putErr
	}
	won := r.admin == ""
	if won {
		r.admin = u.ID
		u.Role = model.RoleAdmin
	} else {
		u.Role = model.RoleUser
	}
	r.users[u.ID] = u
	return won, nil
}

func (r *fakeRoles) admins() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []string
	for id, u := range r.users {
		if u.Role == model.RoleAdmin {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

type fakeFeedback struct {
	mu        sync.Mutex
	records   []model.Feedback
	appendErr error
	// failAfter makes listing fail after yielding this many records (when >= 0).
	failAfter int
	listErr   error
}

func newFakeFeedback() *fakeFeedback {
	return &fakeFeedback{failAfter: -1}
}

func (f *fakeFeedback) Append(_ context.Context, fb model.Feedback) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.appendErr != nil {
		return f.appendErr
	}
	fb.ID = fmt.Sprintf("fb-%d", len(f.records)+1)
	f.records = append(f.records, fb)
	return nil
}

func (f *fakeFeedback) ListNewestFirst(context.Context) iter.Seq2[model.Feedback, error] {
	f.mu.Lock()
	sorted := append([]model.Feedback(nil), f.records...)
	failAfter, listErr := f.failAfter, f.listErr
	f.mu.Unlock()

	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})

	return func(yield func(model.Feedback, error) bool) {
		for i, fb := range sorted {
			if failAfter >= 0 && i == failAfter {
				yield(model.Feedback{}, listErr)
				return
			}
			if !yield(fb, nil) {
				return
			}
		}
		if failAfter >= len(sorted) {
			yield(model.Feedback{}, listErr)
		}
	}
}

func (f *fakeFeedback) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.records)
}
