// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/olegiv/inequality-dashboard/internal/testutil"
)

// fakeClock is a manually advanced clock.
type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

// testLoginProtection returns a protector with a fake clock and a high IP rate.
func testLoginProtection(maxAttempts int, lockoutDuration, attemptWindow time.Duration) (*LoginProtection, *fakeClock) {
	lp := NewLoginProtection(LoginProtectionConfig{
		IPRateLimit:       10,
		IPBurst:           100,
		MaxFailedAttempts: maxAttempts,
		LockoutDuration:   lockoutDuration,
		AttemptWindow:     attemptWindow,
		Logger:            testutil.TestLoggerSilent(),
	})
	clock := &fakeClock{t: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	lp.now = clock.Now
	return lp, clock
}

func TestNewLoginProtectionDefaultValues(t *testing.T) {
	lp := NewLoginProtection(LoginProtectionConfig{})
	def := DefaultLoginProtectionConfig()

	if lp.maxFailedAttempts != def.MaxFailedAttempts {
		t.Errorf("maxFailedAttempts = %d, want %d", lp.maxFailedAttempts, def.MaxFailedAttempts)
	}
	if lp.lockoutDuration != def.LockoutDuration {
		t.Errorf("lockoutDuration = %v, want %v", lp.lockoutDuration, def.LockoutDuration)
	}
	if lp.attemptWindow != def.AttemptWindow {
		t.Errorf("attemptWindow = %v, want %v", lp.attemptWindow, def.AttemptWindow)
	}
	if lp.logger == nil {
		t.Error("logger should default to slog.Default()")
	}
}

func TestLoginProtectionLockout(t *testing.T) {
	lp, clock := testLoginProtection(3, time.Minute, 10*time.Minute)
	email := "test@example.com"

	if locked, _ := lp.IsAccountLocked(email); locked {
		t.Fatal("account should not be locked initially")
	}

	for i := 1; i < 3; i++ {
		if locked, _ := lp.RecordFailedAttempt(email); locked {
			t.Fatalf("locked after %d attempts, want 3", i)
		}
	}
	locked, d := lp.RecordFailedAttempt(email)
	if !locked || d != time.Minute {
		t.Fatalf("third failure = (%v, %v), want (true, 1m)", locked, d)
	}

	// Emails are compared case-insensitively.
	locked, remaining := lp.IsAccountLocked("  Test@Example.com ")
	if !locked || remaining != time.Minute {
		t.Errorf("IsAccountLocked = (%v, %v), want (true, 1m)", locked, remaining)
	}

	clock.Advance(time.Minute + time.Second)
	if locked, _ := lp.IsAccountLocked(email); locked {
		t.Error("lock should expire")
	}
}

func TestLoginProtectionExponentialBackoff(t *testing.T) {
	lp, clock := testLoginProtection(1, 10*time.Hour, time.Hour)
	email := "backoff@example.com"

	want := []time.Duration{10 * time.Hour, 20 * time.Hour, 24 * time.Hour, 24 * time.Hour}
	for i, w := range want {
		// The first failure only opens the window.
		if i == 0 {
			lp.RecordFailedAttempt(email)
		}
		_, d := lp.RecordFailedAttempt(email)
		if d != w {
			t.Errorf("lockout %d = %v, want %v", i+1, d, w)
		}
		clock.Advance(time.Minute)
	}
}

func TestLoginProtectionAttemptWindowReset(t *testing.T) {
	lp, clock := testLoginProtection(3, time.Minute, 5*time.Minute)
	email := "window@example.com"

	lp.RecordFailedAttempt(email)
	lp.RecordFailedAttempt(email)
	if got := lp.RemainingAttempts(email); got != 1 {
		t.Errorf("RemainingAttempts = %d, want 1", got)
	}

	clock.Advance(6 * time.Minute)
	if got := lp.RemainingAttempts(email); got != 3 {
		t.Errorf("RemainingAttempts after window = %d, want 3", got)
	}
	if locked, _ := lp.RecordFailedAttempt(email); locked {
		t.Error("counter should restart after the window")
	}
}

func TestLoginProtectionRecordSuccessfulLogin(t *testing.T) {
	lp, _ := testLoginProtection(3, time.Minute, time.Minute)
	email := "ok@example.com"

	lp.RecordFailedAttempt(email)
	lp.RecordFailedAttempt(email)
	lp.RecordSuccessfulLogin(email)

	if got := lp.RemainingAttempts(email); got != 3 {
		t.Errorf("RemainingAttempts = %d, want 3", got)
	}
}

func TestLoginProtectionSweep(t *testing.T) {
	lp, clock := testLoginProtection(2, 5*time.Minute, time.Minute)

	lp.RecordFailedAttempt("stale@example.com")
	lp.RecordFailedAttempt("locked@example.com")
	lp.RecordFailedAttempt("locked@example.com")

	clock.Advance(30 * time.Second)
	lp.RecordFailedAttempt("fresh@example.com")

	clock.Advance(45 * time.Second)
	lp.Sweep()

	lp.attemptsMu.RLock()
	defer lp.attemptsMu.RUnlock()
	if _, ok := lp.failedAttempts["stale@example.com"]; ok {
		t.Error("stale entry should be swept")
	}
	if _, ok := lp.failedAttempts["fresh@example.com"]; !ok {
		t.Error("entry inside the window should be kept")
	}
	if _, ok := lp.failedAttempts["locked@example.com"]; !ok {
		t.Error("entry locked until after now should be kept")
	}
}

func TestLoginProtectionMiddleware(t *testing.T) {
	lp := NewLoginProtection(LoginProtectionConfig{
		IPRateLimit: 0.001,
		IPBurst:     2,
		Catalog:     testCatalog(t),
		Logger:      testutil.TestLoggerSilent(),
	})
	handler := lp.Middleware()(okHandler())

	post := func(ip string) int {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = ip + ":4242"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	for i := range 2 {
		if code := post("203.0.113.7"); code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want 200", i+1, code)
		}
	}
	if code := post("203.0.113.7"); code != http.StatusTooManyRequests {
		t.Errorf("over limit: status = %d, want 429", code)
	}
	if code := post("198.51.100.1"); code != http.StatusOK {
		t.Errorf("other IP: status = %d, want 200", code)
	}

	// GET requests are never limited.
	for range 5 {
		req := httptest.NewRequest(http.MethodGet, "/login", nil)
		req.RemoteAddr = "203.0.113.7:4242"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("GET status = %d, want 200", rec.Code)
		}
	}
}

func TestFormatLockout(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "1m"},
		{10 * time.Second, "1m"},
		{15 * time.Minute, "15m"},
		{14*time.Minute + time.Second, "15m"},
		{10 * time.Minute, "10m"},
		{time.Hour, "1h"},
		{90 * time.Minute, "1h30m"},
		{24 * time.Hour, "24h"},
	}
	for _, tt := range tests {
		if got := FormatLockout(tt.in); got != tt.want {
			t.Errorf("FormatLockout(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
