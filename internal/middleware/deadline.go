// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"context"
	"log/slog"
	"maps"
	"net/http"
	"sync"
	"time"

	"github.com/olegiv/inequality-dashboard/internal/model"
)

// DeadlineBody is sent with the 503 when a request runs past its deadline.
const DeadlineBody = "The dashboard took too long to respond. Please try again."

// RequestDeadline bounds every request by limit. A handler that has not
// started its response when the deadline passes is answered with 503, and
// whatever it writes afterwards is discarded.
//
// Handlers write headers into a private map that is copied to the client
// only when the response is committed, so the 503 never races with a
// handler still setting headers.
func RequestDeadline(limit time.Duration, logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), limit)
			defer cancel()

			dw := &deadlineWriter{w: w, header: make(http.Header)}
			finished := make(chan struct{})
			go func() {
				defer close(finished)
				next.ServeHTTP(dw, r.WithContext(ctx))
			}()

			select {
			case <-finished:
			case <-ctx.Done():
				if dw.expire() {
					logger.Warn("request deadline exceeded",
						"category", model.EventCategorySystem,
						"method", r.Method,
						"path", r.URL.Path,
						"limit", limit)
				}
			}
		})
	}
}

type responseState int

const (
	statePending responseState = iota
	stateCommitted
	stateExpired
)

// deadlineWriter lets exactly one of the handler and the deadline own the
// response.
type deadlineWriter struct {
	w      http.ResponseWriter
	header http.Header

	mu    sync.Mutex
	state responseState
}

func (dw *deadlineWriter) Header() http.Header {
	return dw.header
}

func (dw *deadlineWriter) WriteHeader(code int) {
	dw.mu.Lock()
	defer dw.mu.Unlock()
	dw.commitLocked(code)
}

func (dw *deadlineWriter) Write(b []byte) (int, error) {
	dw.mu.Lock()
	defer dw.mu.Unlock()
	if !dw.commitLocked(http.StatusOK) {
		return 0, http.ErrHandlerTimeout
	}
	return dw.w.Write(b)
}

// Unwrap exposes the client writer to http.ResponseController.
func (dw *deadlineWriter) Unwrap() http.ResponseWriter {
	return dw.w
}

// commitLocked sends the status line once and reports whether the handler
// still owns the response.
func (dw *deadlineWriter) commitLocked(code int) bool {
	switch dw.state {
	case stateExpired:
		return false
	case stateCommitted:
		return true
	}
	dw.state = stateCommitted
	maps.Copy(dw.w.Header(), dw.header)
	dw.w.WriteHeader(code)
	return true
}

// expire answers 503 unless the handler already committed. It reports
// whether the 503 was sent.
func (dw *deadlineWriter) expire() bool {
	dw.mu.Lock()
	defer dw.mu.Unlock()
	if dw.state != statePending {
		return false
	}
	dw.state = stateExpired
	h := dw.w.Header()
	h.Set("Content-Type", "text/plain; charset=utf-8")
	h.Set("Cache-Control", "no-store")
	h.Set("Retry-After", "5")
	dw.w.WriteHeader(http.StatusServiceUnavailable)
	_, _ = dw.w.Write([]byte(DeadlineBody))
	return true
}
