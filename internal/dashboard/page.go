// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package dashboard

import "github.com/olegiv/inequality-dashboard/internal/model"

// Page is one of the statically known dashboard pages.
type Page int

// Pages in sidebar order. pageCount must stay last.
const (
	PageHome Page = iota
	PageAbout
	PageDashboard
	PageFeedback
	PageAdmin
	pageCount
)

var pageMeta = [pageCount]struct {
	slug  string
	label string
}{
	PageHome:      {"home", "Home"},
	PageAbout:     {"about", "About"},
	PageDashboard: {"dashboard", "Dashboard"},
	PageFeedback:  {"feedback", "Feedback"},
	PageAdmin:     {"admin", "Admin Page"},
}

var (
	userPages  = []Page{PageHome, PageAbout, PageDashboard, PageFeedback}
	adminPages = []Page{PageHome, PageAbout, PageDashboard, PageFeedback, PageAdmin}
)

// Valid reports whether p is a known page.
func (p Page) Valid() bool {
	return p >= 0 && p < pageCount
}

// Slug returns the stable identifier used in forms and URLs.
func (p Page) Slug() string {
	if !p.Valid() {
		return ""
	}
	return pageMeta[p].slug
}

// Label returns the sidebar label.
func (p Page) Label() string {
	if !p.Valid() {
		return ""
	}
	return pageMeta[p].label
}

func (p Page) String() string {
	if !p.Valid() {
		return "page(invalid)"
	}
	return pageMeta[p].slug
}

// ParsePage resolves a slug to a Page.
func ParsePage(slug string) (Page, bool) {
	for p := PageHome; p < pageCount; p++ {
		if pageMeta[p].slug == slug {
			return p, true
		}
	}
	return PageHome, false
}

// AllPages returns every known page in sidebar order.
func AllPages() []Page {
	return append([]Page(nil), adminPages...)
}

// Available returns the pages a role may see, in sidebar order.
// The result is a fresh slice owned by the caller.
func Available(role model.Role) []Page {
	if role == model.RoleAdmin {
		return append([]Page(nil), adminPages...)
	}
	return append([]Page(nil), userPages...)
}

// Allowed reports whether page is in Available(role).
func Allowed(role model.Role, page Page) bool {
	if !page.Valid() {
		return false
	}
	if page == PageAdmin {
		return role == model.RoleAdmin
	}
	return true
}
