// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package render

import (
	"html/template"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"github.com/olegiv/inequality-dashboard/internal/dashboard"
	"github.com/olegiv/inequality-dashboard/internal/geoip"
)

// TimestampLayout is how feedback timestamps are shown.
const TimestampLayout = "2006-01-02 15:04:05"

func (r *Renderer) templateFuncs() template.FuncMap {
	return template.FuncMap{
		"T": func(lang, key string, args ...any) string {
			return r.catalog.T(lang, key, args...)
		},
		"notice": func(lang string, n *dashboard.Notice) string {
			return r.NoticeText(lang, n)
		},
		"pageLabel": func(lang string, p dashboard.Page) string {
			return r.catalog.T(lang, "page."+p.Slug())
		},
		"timestamp": func(lang string, t time.Time) string {
			if t.IsZero() {
				return r.catalog.T(lang, "admin.na")
			}
			return t.UTC().Format(TimestampLayout)
		},
		"countryName": CountryName,
		"client": func(browser, os string) string {
			parts := make([]string, 0, 2)
			for _, s := range []string{browser, os} {
				if s != "" {
					parts = append(parts, s)
				}
			}
			return strings.Join(parts, " / ")
		},
	}
}

// NoticeText renders a notice in lang.
func (r *Renderer) NoticeText(lang string, n *dashboard.Notice) string {
	if n == nil {
		return ""
	}
	args := make([]any, len(n.Args))
	for i, a := range n.Args {
		args[i] = a
	}
	return r.catalog.T(lang, n.Key, args...)
}

// CountryName returns the localized name of an ISO country code, the code
// itself when unknown, and "" for an empty code.
func CountryName(lang, code string) string {
	if code == "" || code == geoip.Local {
		return code
	}
	region, err := language.ParseRegion(code)
	if err != nil {
		return code
	}
	tag, err := language.Parse(lang)
	if err != nil {
		tag = language.English
	}
	if name := display.Regions(tag).Name(region); name != "" {
		return name
	}
	return code
}
