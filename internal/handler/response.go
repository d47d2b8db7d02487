// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/olegiv/inequality-dashboard/internal/dashboard"
)

// RouteHome is where every action redirects to.
const RouteHome = "/"

// redirectHome answers a form POST with 303 See Other to the current view.
func redirectHome(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, RouteHome, http.StatusSeeOther)
}

// flashAndRedirect stores n as the next view's notice and redirects home.
func (h *Dashboard) flashAndRedirect(w http.ResponseWriter, r *http.Request, n *dashboard.Notice) {
	h.sessions.Flash(r.Context(), n)
	redirectHome(w, r)
}

// logAndHTTPError logs an error and writes an HTTP error response.
func logAndHTTPError(w http.ResponseWriter, logger *slog.Logger, message string, statusCode int, logMsg string, args ...any) {
	logger.Error(logMsg, args...)
	http.Error(w, message, statusCode)
}

// logAndInternalError logs an error and writes a 500 Internal Server Error response.
func logAndInternalError(w http.ResponseWriter, logger *slog.Logger, logMsg string, args ...any) {
	logAndHTTPError(w, logger, "Internal Server Error", http.StatusInternalServerError, logMsg, args...)
}

// writeJSON writes v as a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
