// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package config loads the dashboard configuration from DASH_* environment
// variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// DefaultReportURL is the public Power BI report embedded on the Dashboard page.
const DefaultReportURL = "https://app.powerbi.com/view?r=eyJrIjoiYTc1NWU0MTItMGRhZS00YjY5LWJjNWMtMjc0OWQyOTdiNWJjIiwidCI6ImNlYjVhMDZjLTY2ZjEtNGE3NC1iZDExLTVmZDEwNTQwYTVlYSJ9"

// Store backends.
const (
	BackendSQL   = "sql"
	BackendRedis = "redis"
)

// Auth providers.
const (
	AuthLocal    = "local"
	AuthFirebase = "firebase"
)

// knownWeakSecrets contains default/example secrets that must be rejected.
var knownWeakSecrets = []string{
	"change-me-to-32-byte-secret-key!",
	"REPLACE_WITH_YOUR_OWN_SECRET_KEY!",
}

// Config holds the application configuration loaded from environment variables.
type Config struct {
	Env        string `env:"DASH_ENV" envDefault:"development"`
	ServerHost string `env:"DASH_SERVER_HOST" envDefault:"localhost"`
	ServerPort int    `env:"DASH_SERVER_PORT" envDefault:"8080"`
	LogLevel   string `env:"DASH_LOG_LEVEL" envDefault:"info"`

	// Database
	DBDriver string `env:"DASH_DB_DRIVER" envDefault:"sqlite"` // sqlite or mysql
	DBPath   string `env:"DASH_DB_PATH" envDefault:"./data/dashboard.db"`
	DBDSN    string `env:"DASH_DB_DSN"` // MySQL DSN

	// Sessions
	SessionSecret   string        `env:"DASH_SESSION_SECRET,required"`
	SessionLifetime time.Duration `env:"DASH_SESSION_LIFETIME" envDefault:"24h"`
	TrustedOrigins  []string      `env:"DASH_TRUSTED_ORIGINS" envSeparator:","`
	RequestTimeout  time.Duration `env:"DASH_REQUEST_TIMEOUT" envDefault:"30s"`

	// Role and feedback stores
	StoreBackend string `env:"DASH_STORE_BACKEND" envDefault:"sql"` // sql or redis
	RedisURL     string `env:"DASH_REDIS_URL"`
	RedisPrefix  string `env:"DASH_REDIS_PREFIX" envDefault:"dash:"`

	// Auth gateway
	AuthProvider     string `env:"DASH_AUTH_PROVIDER" envDefault:"local"` // local or firebase
	FirebaseAPIKey   string `env:"DASH_FIREBASE_API_KEY"`
	FirebaseEndpoint string `env:"DASH_FIREBASE_ENDPOINT" envDefault:"https://identitytoolkit.googleapis.com"`
	FirstAdminGuard  bool   `env:"DASH_FIRST_ADMIN_GUARD" envDefault:"true"`

	// Embedded report
	ReportURL       string `env:"DASH_REPORT_URL" envDefault:"https://app.powerbi.com/view?r=eyJrIjoiYTc1NWU0MTItMGRhZS00YjY5LWJjNWMtMjc0OWQyOTdiNWJjIiwidCI6ImNlYjVhMDZjLTY2ZjEtNGE3NC1iZDExLTVmZDEwNTQwYTVlYSJ9"`
	ReportTitle     string `env:"DASH_REPORT_TITLE" envDefault:"Dashboard 3"`
	ReportWidth     string `env:"DASH_REPORT_WIDTH" envDefault:"100%"`
	ReportHeight    int    `env:"DASH_REPORT_HEIGHT" envDefault:"612"`
	ReportScrolling string `env:"DASH_REPORT_SCROLLING" envDefault:"no"` // yes, no or auto

	// Presentation and metadata
	BackgroundImage string `env:"DASH_BACKGROUND_IMAGE"`
	GeoIPDBPath     string `env:"DASH_GEOIP_DB_PATH"` // Path to GeoLite2-Country.mmdb file

	// Housekeeping and limits
	EventRetentionDays int     `env:"DASH_EVENT_RETENTION_DAYS" envDefault:"30"`
	RateLimitRPS       float64 `env:"DASH_RATE_LIMIT_RPS" envDefault:"10"`
	RateLimitBurst     int     `env:"DASH_RATE_LIMIT_BURST" envDefault:"20"`
}

// IsDevelopment returns true if the application is running in development mode.
func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

// ServerAddr returns the full server address in host:port format.
func (c Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

// UseRedisStore returns true if role and feedback records live in Redis.
func (c Config) UseRedisStore() bool {
	return c.StoreBackend == BackendRedis
}

// GeoIPEnabled returns true if GeoIP database is configured.
func (c Config) GeoIPEnabled() bool {
	return c.GeoIPDBPath != ""
}

// DBSource returns the file path or DSN for the configured driver.
func (c Config) DBSource() string {
	if c.DBDriver == "mysql" {
		return c.DBDSN
	}
	return c.DBPath
}

// MinSessionSecretLength is the minimum required length for the session secret.
const MinSessionSecretLength = 32

// Load parses environment variables and returns a validated Config.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if !hasMinimumEntropy(cfg.SessionSecret) {
		slog.Warn("DASH_SESSION_SECRET has low character diversity; " +
			"consider generating a random secret with: openssl rand -base64 32")
	}

	return cfg, nil
}

// Validate checks cross-field constraints. All problems are reported at once.
func (c *Config) Validate() error {
	var errs []error

	if len(c.SessionSecret) < MinSessionSecretLength {
		errs = append(errs, fmt.Errorf("DASH_SESSION_SECRET must be at least %d bytes long, got %d bytes; "+
			"generate a secure secret with: openssl rand -base64 32",
			MinSessionSecretLength, len(c.SessionSecret)))
	}
	for _, weak := range knownWeakSecrets {
		if c.SessionSecret == weak {
			errs = append(errs, errors.New("DASH_SESSION_SECRET is a known default value and must not be used"))
		}
	}

	switch c.Env {
	case "development", "production":
	default:
		errs = append(errs, fmt.Errorf("DASH_ENV must be development or production, got %q", c.Env))
	}

	switch c.DBDriver {
	case "sqlite":
	case "mysql":
		if c.DBDSN == "" {
			errs = append(errs, errors.New("DASH_DB_DSN is required when DASH_DB_DRIVER=mysql"))
		}
	default:
		errs = append(errs, fmt.Errorf("DASH_DB_DRIVER must be sqlite or mysql, got %q", c.DBDriver))
	}

	switch c.StoreBackend {
	case BackendSQL:
	case BackendRedis:
		if c.RedisURL == "" {
			errs = append(errs, errors.New("DASH_REDIS_URL is required when DASH_STORE_BACKEND=redis"))
		}
	default:
		errs = append(errs, fmt.Errorf("DASH_STORE_BACKEND must be sql or redis, got %q", c.StoreBackend))
	}

	switch c.AuthProvider {
	case AuthLocal:
	case AuthFirebase:
		if c.FirebaseAPIKey == "" {
			errs = append(errs, errors.New("DASH_FIREBASE_API_KEY is required when DASH_AUTH_PROVIDER=firebase"))
		}
	default:
		errs = append(errs, fmt.Errorf("DASH_AUTH_PROVIDER must be local or firebase, got %q", c.AuthProvider))
	}

	if !strings.HasPrefix(c.ReportURL, "https://") {
		errs = append(errs, errors.New("DASH_REPORT_URL must be an https URL"))
	}
	if c.ReportHeight <= 0 {
		errs = append(errs, errors.New("DASH_REPORT_HEIGHT must be positive"))
	}
	switch c.ReportScrolling {
	case "yes", "no", "auto":
	default:
		errs = append(errs, fmt.Errorf("DASH_REPORT_SCROLLING must be yes, no or auto, got %q", c.ReportScrolling))
	}
	if c.SessionLifetime <= 0 {
		errs = append(errs, errors.New("DASH_SESSION_LIFETIME must be positive"))
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, errors.New("DASH_REQUEST_TIMEOUT must be positive"))
	}
	if c.EventRetentionDays < 0 {
		errs = append(errs, errors.New("DASH_EVENT_RETENTION_DAYS must not be negative"))
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0 {
		errs = append(errs, errors.New("DASH_RATE_LIMIT_RPS and DASH_RATE_LIMIT_BURST must be positive"))
	}

	return errors.Join(errs...)
}

// hasMinimumEntropy checks that a secret contains at least 3 character classes
// (lowercase, uppercase, digits, special characters).
func hasMinimumEntropy(s string) bool {
	charTypes := 0
	if strings.ContainsAny(s, "abcdefghijklmnopqrstuvwxyz") {
		charTypes++
	}
	if strings.ContainsAny(s, "ABCDEFGHIJKLMNOPQRSTUVWXYZ") {
		charTypes++
	}
	if strings.ContainsAny(s, "0123456789") {
		charTypes++
	}
	if strings.ContainsAny(s, "!@#$%^&*()-_=+[]{}|;:,.<>?/~`'\"\\") {
		charTypes++
	}
	return charTypes >= 3
}
