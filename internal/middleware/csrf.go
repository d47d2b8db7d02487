// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"log/slog"
	"net/http"

	"filippo.io/csrf/gorilla"

	"github.com/olegiv/inequality-dashboard/internal/i18n"
	"github.com/olegiv/inequality-dashboard/internal/model"
)

// CSRFConfig holds configuration for CSRF protection.
// filippo.io/csrf/gorilla checks Fetch metadata headers, so forms carry no token.
type CSRFConfig struct {
	// AuthKey is the 32-byte session secret.
	AuthKey []byte

	// ErrorHandler is called when CSRF validation fails.
	ErrorHandler http.Handler

	// TrustedOrigins are host[:port] values allowed to post cross-origin.
	TrustedOrigins []string
}

// DefaultCSRFConfig returns a CSRFConfig trusting extra plus, in development,
// the local listen addresses.
func DefaultCSRFConfig(authKey []byte, isDev bool, extra ...string) CSRFConfig {
	cfg := CSRFConfig{AuthKey: authKey}

	// The csrf library expects host-only values, not full URLs.
	if isDev {
		cfg.TrustedOrigins = append(cfg.TrustedOrigins, "localhost:8080", "127.0.0.1:8080")
	}
	for _, origin := range extra {
		if origin != "" {
			cfg.TrustedOrigins = append(cfg.TrustedOrigins, origin)
		}
	}

	return cfg
}

// CSRF returns a middleware that rejects cross-origin state-changing requests.
func CSRF(cfg CSRFConfig) func(http.Handler) http.Handler {
	var opts []csrf.Option

	if cfg.ErrorHandler != nil {
		opts = append(opts, csrf.ErrorHandler(cfg.ErrorHandler))
	} else {
		opts = append(opts, csrf.ErrorHandler(CSRFErrorHandler(slog.Default(), nil)))
	}

	if len(cfg.TrustedOrigins) > 0 {
		opts = append(opts, csrf.TrustedOrigins(cfg.TrustedOrigins))
	}

	return csrf.Protect(cfg.AuthKey, opts...)
}

// CSRFErrorHandler logs a security event and answers 403 with a localized
// message when catalog is set.
func CSRFErrorHandler(logger *slog.Logger, catalog *i18n.Catalog) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reasonStr := "unknown"
		if reason := csrf.FailureReason(r); reason != nil {
			reasonStr = reason.Error()
		}
		logger.Warn("CSRF validation failed",
			"category", model.EventCategorySecurity,
			"reason", reasonStr,
			"method", r.Method,
			"url", r.URL.Path,
			"origin", r.Header.Get("Origin"),
			"sec_fetch_site", r.Header.Get("Sec-Fetch-Site"),
		)

		msg := "Forbidden - CSRF validation failed"
		if catalog != nil {
			msg = catalog.T(GetLang(r), "error.csrf")
		}
		http.Error(w, msg, http.StatusForbidden)
	})
}
