// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"log/slog"
	"net/http"
	"sync"

	"golang.org/x/time/rate"

	"github.com/olegiv/inequality-dashboard/internal/i18n"
	"github.com/olegiv/inequality-dashboard/internal/model"
	"github.com/olegiv/inequality-dashboard/internal/util"
)

// maxLimiterEntries bounds the per-key limiter maps.
const maxLimiterEntries = 10000

// limiterCache is a generic rate limiter cache with double-check locking.
type limiterCache[K comparable] struct {
	limiters map[K]*rate.Limiter
	mu       sync.RWMutex
	rate     rate.Limit
	burst    int
}

func newLimiterCache[K comparable](rps float64, burst int) *limiterCache[K] {
	return &limiterCache[K]{
		limiters: make(map[K]*rate.Limiter),
		rate:     rate.Limit(rps),
		burst:    burst,
	}
}

// get returns the rate limiter for a specific key, creating one if needed.
func (lc *limiterCache[K]) get(key K) *rate.Limiter {
	lc.mu.RLock()
	limiter, exists := lc.limiters[key]
	lc.mu.RUnlock()

	if exists {
		return limiter
	}

	lc.mu.Lock()
	defer lc.mu.Unlock()

	// Double-check after acquiring write lock
	if limiter, exists = lc.limiters[key]; exists {
		return limiter
	}

	limiter = rate.NewLimiter(lc.rate, lc.burst)
	lc.limiters[key] = limiter
	return limiter
}

// size returns the number of tracked keys.
func (lc *limiterCache[K]) size() int {
	lc.mu.RLock()
	defer lc.mu.RUnlock()
	return len(lc.limiters)
}

// clearIfExceeds clears all entries if the cache exceeds maxSize.
// Returns true if the cache was cleared.
func (lc *limiterCache[K]) clearIfExceeds(maxSize int) bool {
	lc.mu.Lock()
	defer lc.mu.Unlock()

	if len(lc.limiters) > maxSize {
		lc.limiters = make(map[K]*rate.Limiter)
		return true
	}
	return false
}

// GlobalRateLimiter limits every client IP to a fixed request rate.
type GlobalRateLimiter struct {
	cache   *limiterCache[string]
	catalog *i18n.Catalog
	logger  *slog.Logger
}

// NewGlobalRateLimiter creates a per-IP limiter allowing rps requests per
// second with the given burst. catalog may be nil.
func NewGlobalRateLimiter(rps float64, burst int, catalog *i18n.Catalog, logger *slog.Logger) *GlobalRateLimiter {
	if logger == nil {
		logger = slog.Default()
	}
	return &GlobalRateLimiter{
		cache:   newLimiterCache[string](rps, burst),
		catalog: catalog,
		logger:  logger,
	}
}

// Sweep drops all limiters once more than maxLimiterEntries IPs are tracked.
func (rl *GlobalRateLimiter) Sweep() {
	if rl.cache.clearIfExceeds(maxLimiterEntries) {
		rl.logger.Info("cleared global rate limiters due to size")
	}
}

// Middleware answers 429 with plain text once an IP exceeds its rate.
func (rl *GlobalRateLimiter) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := util.ClientIP(r)
			if !rl.cache.get(ip).Allow() {
				rl.logger.Warn("rate limit exceeded",
					"category", model.EventCategorySecurity,
					"ip", ip,
					"url", r.URL.Path)
				msg := "Too many requests. Please wait a moment and try again."
				if rl.catalog != nil {
					msg = rl.catalog.T(GetLang(r), "error.rate_limited")
				}
				w.Header().Set("Retry-After", "1")
				http.Error(w, msg, http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
