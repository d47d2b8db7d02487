// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/olegiv/inequality-dashboard/internal/store"
)

func testGateway(t *testing.T) (*LocalGateway, *sql.DB) {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	if err := store.Migrate(db, store.DriverSQLite); err != nil {
		t.Fatalf("Migrate: %v", err)
	}

	g := NewLocalGateway(db, slog.New(slog.NewTextHandler(io.Discard, nil)))
	n := 0
	g.newID = func() string {
		n++
		return fmt.Sprintf("principal-%d", n)
	}
	return g, db
}

func TestLocalGatewayCreateAndVerify(t *testing.T) {
	g, _ := testGateway(t)
	ctx := context.Background()

	p, err := g.Create(ctx, "  Alice@Example.com ", "secret1")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if p.ID != "principal-1" || p.Email != "alice@example.com" {
		t.Errorf("Create() = %+v", p)
	}

	got, err := g.Verify(ctx, "alice@example.com", "secret1")
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if got != p {
		t.Errorf("Verify() = %+v, want %+v", got, p)
	}

	// Case-insensitive email.
	if _, err := g.Verify(ctx, "ALICE@example.com", "secret1"); err != nil {
		t.Errorf("Verify with uppercase email: %v", err)
	}
}

func TestLocalGatewayVerifyFailures(t *testing.T) {
	g, _ := testGateway(t)
	ctx := context.Background()
	if _, err := g.Create(ctx, "bob@example.com", "secret1"); err != nil {
		t.Fatalf("Create: %v", err)
	}

	tests := []struct {
		name     string
		email    string
		password string
	}{
		{"wrong password", "bob@example.com", "secret2"},
		{"unknown email", "nobody@example.com", "secret1"},
		{"empty password", "bob@example.com", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := g.Verify(ctx, tt.email, tt.password)
			if !errors.Is(err, ErrInvalidCredentials) {
				t.Errorf("Verify error = %v, want ErrInvalidCredentials", err)
			}
		})
	}
}

func TestLocalGatewayCreateFailures(t *testing.T) {
	g, _ := testGateway(t)
	ctx := context.Background()
	if _, err := g.Create(ctx, "taken@example.com", "secret1"); err != nil {
		t.Fatalf("Create: %v", err)
	}

	tests := []struct {
		name     string
		email    string
		password string
		want     error
	}{
		{"duplicate", "taken@example.com", "secret1", ErrEmailExists},
		{"duplicate different case", "TAKEN@example.com", "secret1", ErrEmailExists},
		{"bad email", "not-an-email", "secret1", ErrInvalidEmail},
		{"display name", "Bob <bob@example.com>", "secret1", ErrInvalidEmail},
		{"empty email", "", "secret1", ErrInvalidEmail},
		{"short password", "new@example.com", "12345", ErrWeakPassword},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := g.Create(ctx, tt.email, tt.password)
			if !errors.Is(err, tt.want) {
				t.Errorf("Create error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestLocalGatewayUpgradesHash(t *testing.T) {
	g, db := testGateway(t)
	ctx := context.Background()

	weak := Params{Memory: 8 * 1024, Time: 1, Threads: 1, KeyLen: 32, SaltLen: 16}
	hash, err := HashPasswordWith("secret1", weak)
	if err != nil {
		t.Fatalf("HashPasswordWith: %v", err)
	}
	q := store.New(db)
	if err := q.CreateCredential(ctx, store.Credential{ID: "legacy", Email: "old@example.com", PasswordHash: hash}); err != nil {
		t.Fatalf("CreateCredential: %v", err)
	}

	if _, err := g.Verify(ctx, "old@example.com", "secret1"); err != nil {
		t.Fatalf("Verify: %v", err)
	}

	cred, err := q.GetCredentialByEmail(ctx, "old@example.com")
	if err != nil {
		t.Fatalf("GetCredentialByEmail: %v", err)
	}
	if NeedsRehash(cred.PasswordHash) {
		t.Error("hash was not upgraded to default parameters")
	}
}

func TestLocalGatewayStoreFailure(t *testing.T) {
	g, db := testGateway(t)
	_ = db.Close()

	_, err := g.Verify(context.Background(), "a@example.com", "secret1")
	if err == nil || errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Verify on closed DB error = %v, want a store error", err)
	}
}
