// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package config

import (
	"strings"
	"testing"
	"time"
)

const testSecret = "test-secret-key-32-bytes-long!!!"

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DASH_SESSION_SECRET", testSecret)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.DBPath != "./data/dashboard.db" {
		t.Errorf("DBPath = %q, want %q", cfg.DBPath, "./data/dashboard.db")
	}
	if cfg.ServerAddr() != "localhost:8080" {
		t.Errorf("ServerAddr() = %q, want %q", cfg.ServerAddr(), "localhost:8080")
	}
	if !cfg.IsDevelopment() {
		t.Error("default env should be development")
	}
	if cfg.SessionLifetime != 24*time.Hour {
		t.Errorf("SessionLifetime = %v, want 24h", cfg.SessionLifetime)
	}
	if cfg.RequestTimeout != 30*time.Second {
		t.Errorf("RequestTimeout = %v, want 30s", cfg.RequestTimeout)
	}
	if cfg.ReportURL != DefaultReportURL {
		t.Errorf("ReportURL = %q, want the default report", cfg.ReportURL)
	}
	if cfg.ReportTitle != "Dashboard 3" || cfg.ReportWidth != "100%" || cfg.ReportHeight != 612 || cfg.ReportScrolling != "no" {
		t.Errorf("report frame = %q %q %d %q", cfg.ReportTitle, cfg.ReportWidth, cfg.ReportHeight, cfg.ReportScrolling)
	}
	if !cfg.FirstAdminGuard {
		t.Error("FirstAdminGuard should default to true")
	}
	if cfg.UseRedisStore() || cfg.GeoIPEnabled() {
		t.Error("optional backends should be off by default")
	}
	if cfg.DBSource() != cfg.DBPath {
		t.Errorf("DBSource() = %q, want DB path", cfg.DBSource())
	}
}

func TestLoad_CustomValues(t *testing.T) {
	t.Setenv("DASH_SESSION_SECRET", "custom-secret-key-32-bytes-long!")
	t.Setenv("DASH_ENV", "production")
	t.Setenv("DASH_SERVER_HOST", "0.0.0.0")
	t.Setenv("DASH_SERVER_PORT", "3000")
	t.Setenv("DASH_DB_DRIVER", "mysql")
	t.Setenv("DASH_DB_DSN", "dash:pw@tcp(db:3306)/dash")
	t.Setenv("DASH_STORE_BACKEND", "redis")
	t.Setenv("DASH_REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("DASH_AUTH_PROVIDER", "firebase")
	t.Setenv("DASH_FIREBASE_API_KEY", "api-key")
	t.Setenv("DASH_FIRST_ADMIN_GUARD", "false")
	t.Setenv("DASH_SESSION_LIFETIME", "2h")
	t.Setenv("DASH_TRUSTED_ORIGINS", "a.example.com,b.example.com")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.IsDevelopment() {
		t.Error("IsDevelopment() should be false in production")
	}
	if cfg.ServerAddr() != "0.0.0.0:3000" {
		t.Errorf("ServerAddr() = %q", cfg.ServerAddr())
	}
	if cfg.DBSource() != "dash:pw@tcp(db:3306)/dash" {
		t.Errorf("DBSource() = %q", cfg.DBSource())
	}
	if !cfg.UseRedisStore() {
		t.Error("UseRedisStore() should be true")
	}
	if cfg.FirstAdminGuard {
		t.Error("FirstAdminGuard should be false")
	}
	if cfg.SessionLifetime != 2*time.Hour {
		t.Errorf("SessionLifetime = %v", cfg.SessionLifetime)
	}
	if len(cfg.TrustedOrigins) != 2 || cfg.TrustedOrigins[1] != "b.example.com" {
		t.Errorf("TrustedOrigins = %v", cfg.TrustedOrigins)
	}
}

func TestLoad_MissingSecret(t *testing.T) {
	t.Setenv("DASH_SESSION_SECRET", "")

	if _, err := Load(); err == nil {
		t.Error("Load() should fail without a session secret")
	}
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Env:             "development",
			DBDriver:        "sqlite",
			SessionSecret:   testSecret,
			SessionLifetime: time.Hour,
			RequestTimeout:  time.Second,
			StoreBackend:    BackendSQL,
			AuthProvider:    AuthLocal,
			ReportURL:       DefaultReportURL,
			ReportHeight:    612,
			ReportScrolling: "no",
			RateLimitRPS:    10,
			RateLimitBurst:  20,
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"short secret", func(c *Config) { c.SessionSecret = "short" }, "at least 32 bytes"},
		{"weak secret", func(c *Config) { c.SessionSecret = "change-me-to-32-byte-secret-key!" }, "known default"},
		{"bad env", func(c *Config) { c.Env = "staging" }, "DASH_ENV"},
		{"mysql without dsn", func(c *Config) { c.DBDriver = "mysql" }, "DASH_DB_DSN"},
		{"unknown driver", func(c *Config) { c.DBDriver = "postgres" }, "DASH_DB_DRIVER"},
		{"redis without url", func(c *Config) { c.StoreBackend = BackendRedis }, "DASH_REDIS_URL"},
		{"unknown backend", func(c *Config) { c.StoreBackend = "firestore" }, "DASH_STORE_BACKEND"},
		{"firebase without key", func(c *Config) { c.AuthProvider = AuthFirebase }, "DASH_FIREBASE_API_KEY"},
		{"unknown provider", func(c *Config) { c.AuthProvider = "ldap" }, "DASH_AUTH_PROVIDER"},
		{"http report", func(c *Config) { c.ReportURL = "http://example.com" }, "https"},
		{"zero height", func(c *Config) { c.ReportHeight = 0 }, "DASH_REPORT_HEIGHT"},
		{"auto scrolling", func(c *Config) { c.ReportScrolling = "auto" }, ""},
		{"bad scrolling", func(c *Config) { c.ReportScrolling = "sometimes" }, "DASH_REPORT_SCROLLING"},
		{"negative retention", func(c *Config) { c.EventRetentionDays = -1 }, "RETENTION"},
		{"zero rate", func(c *Config) { c.RateLimitRPS = 0 }, "RATE_LIMIT"},
		{"zero request timeout", func(c *Config) { c.RequestTimeout = 0 }, "DASH_REQUEST_TIMEOUT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want it to mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestHasMinimumEntropy(t *testing.T) {
	tests := []struct {
		secret string
		want   bool
	}{
		{"aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", false},
		{"aaaaaaaaaaaaaaaaAAAAAAAAAAAAAAAA", false},
		{"aaaaaaaaaaaaaaaaAAAAAAAAAAAA1234", true},
		{"test-secret-key-32-bytes-long!!!", true},
	}
	for _, tt := range tests {
		if got := hasMinimumEntropy(tt.secret); got != tt.want {
			t.Errorf("hasMinimumEntropy(%q) = %v, want %v", tt.secret, got, tt.want)
		}
	}
}
