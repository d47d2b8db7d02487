// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/olegiv/inequality-dashboard/internal/i18n"
)

// ContextKey is the type of request context keys set by this package.
type ContextKey string

// ContextKeyLanguage holds the UI language code of the request.
const ContextKeyLanguage ContextKey = "language"

// LanguageCookieName is the cookie name for language preference.
const LanguageCookieName = "dash_lang"

const languageCookieMaxAge = 365 * 24 * 60 * 60

// Language creates middleware that picks the UI language of the request.
// Priority order:
// 1. Query parameter ?lang=XX (explicit switch, remembered in a cookie)
// 2. Language cookie
// 3. Accept-Language header
func Language(catalog *i18n.Catalog, secureCookie bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			lang := ""

			if q := strings.ToLower(r.URL.Query().Get("lang")); q != "" && i18n.IsSupported(q) {
				lang = q
				http.SetCookie(w, &http.Cookie{
					Name:     LanguageCookieName,
					Value:    lang,
					Path:     "/",
					MaxAge:   languageCookieMaxAge,
					HttpOnly: true,
					Secure:   secureCookie,
					SameSite: http.SameSiteLaxMode,
				})
			}

			if lang == "" {
				if c, err := r.Cookie(LanguageCookieName); err == nil && i18n.IsSupported(c.Value) {
					lang = c.Value
				}
			}

			if lang == "" {
				lang = catalog.Match(r.Header.Get("Accept-Language"))
			}

			next.ServeHTTP(w, r.WithContext(WithLang(r.Context(), lang)))
		})
	}
}

// WithLang returns a copy of ctx carrying lang.
func WithLang(ctx context.Context, lang string) context.Context {
	return context.WithValue(ctx, ContextKeyLanguage, lang)
}

// GetLang returns the request language, or the default language when the
// Language middleware did not run.
func GetLang(r *http.Request) string {
	if lang, ok := r.Context().Value(ContextKeyLanguage).(string); ok && lang != "" {
		return lang
	}
	return i18n.DefaultLanguage
}
