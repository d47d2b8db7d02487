// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/inequality-dashboard/internal/auth"
	"github.com/olegiv/inequality-dashboard/internal/dashboard"
	"github.com/olegiv/inequality-dashboard/internal/middleware"
	"github.com/olegiv/inequality-dashboard/internal/model"
	"github.com/olegiv/inequality-dashboard/internal/store"
	"github.com/olegiv/inequality-dashboard/internal/testutil"
)

func TestPageTemplatesExhaustive(t *testing.T) {
	renderer, _ := newTestRenderer(t)

	all := dashboard.AllPages()
	require.Len(t, pageTemplates, len(all))
	for _, p := range all {
		name := pageTemplates[p]
		assert.NotEmpty(t, name, "page %s has no template", p)
		assert.True(t, renderer.Has(name), "template %s for page %s is not parsed", name, p)
	}
	assert.True(t, renderer.Has("auth/login"))
	assert.True(t, renderer.Has("auth/signup"))
}

func TestLoggedOutViews(t *testing.T) {
	env := newTestEnv(t, nil)
	c := env.newClient(t)

	body := c.view()
	assert.Contains(t, body, env.text("auth.login_title"))
	assert.Contains(t, body, `action="/login"`)
	assert.NotContains(t, body, `action="/navigate"`, "logged-out view must not offer navigation")

	code, _ := c.get(RouteSignup)
	require.Equal(t, http.StatusSeeOther, code)
	body = c.view()
	assert.Contains(t, body, env.text("auth.signup_title"))
	assert.Contains(t, body, `action="/signup"`)

	c.get(RouteLogin)
	assert.Contains(t, c.view(), env.text("auth.login_title"))
}

func TestSignupLoginFlow(t *testing.T) {
	env := newTestEnv(t, nil)
	admin := env.newClient(t)

	admin.signup("first@example.com")
	body := admin.view()
	assert.Contains(t, body, env.text("auth.signup_success"))
	assert.Contains(t, body, env.text("auth.login_title"), "signup returns to the login view")

	// Flash notices are shown once.
	assert.NotContains(t, admin.view(), env.text("auth.signup_success"))

	admin.login("first@example.com")
	body = admin.view()
	assert.Contains(t, body, "first@example.com")
	assert.Contains(t, body, "Inequality in Income Across the Globe")
	assert.Contains(t, body, `value="admin"`, "first account is admin")

	user := env.newClient(t)
	user.signup("second@example.com")
	user.login("Second@Example.com")
	body = user.view()
	assert.Contains(t, body, "second@example.com")
	assert.NotContains(t, body, `value="admin"`, "later accounts are plain users")

	u, err := store.NewRoleStore(env.db).Get(context.Background(), mustPrincipalID(t, env, "second@example.com"))
	require.NoError(t, err)
	assert.Equal(t, model.RoleUser, u.Role)
}

func mustPrincipalID(t *testing.T, env *testEnv, email string) string {
	t.Helper()
	p, err := auth.NewLocalGateway(env.db, testutil.TestLoggerSilent()).Verify(context.Background(), email, testPassword)
	require.NoError(t, err)
	return p.ID
}

func TestLoginFailure(t *testing.T) {
	env := newTestEnv(t, nil)
	c := env.newClient(t)
	c.signup("known@example.com")
	c.view()

	for _, form := range []url.Values{
		{"email": {"known@example.com"}, "password": {"wrong password"}},
		{"email": {"unknown@example.com"}, "password": {testPassword}},
		{"email": {""}, "password": {""}},
	} {
		c.post(RouteLogin, form)
		body := c.view()
		assert.Contains(t, body, env.text("auth.login_failed"))
		assert.Contains(t, body, `action="/login"`)
	}
}

func TestSignupFailureShowsReason(t *testing.T) {
	env := newTestEnv(t, nil)
	c := env.newClient(t)
	c.signup("dup@example.com")
	c.view()

	c.get(RouteSignup)
	c.signup("dup@example.com")
	body := c.view()
	assert.Contains(t, body, env.text("auth.signup_failed", auth.ErrEmailExists.Error()))
	assert.Contains(t, body, `action="/signup"`, "failed signup stays on the signup view")

	c.post(RouteSignup, url.Values{"email": {"short@example.com"}, "password": {"123"}})
	assert.Contains(t, c.view(), env.text("auth.signup_failed", auth.ErrWeakPassword.Error()))
}

func TestNavigation(t *testing.T) {
	env := newTestEnv(t, nil)
	admin := env.newClient(t)
	admin.signup("admin@example.com")
	admin.login("admin@example.com")

	user := env.newClient(t)
	user.signup("user@example.com")
	user.login("user@example.com")

	user.navigate(dashboard.PageDashboard)
	body := user.view()
	assert.Contains(t, body, env.text("dashboard.title"))
	assert.Contains(t, body, `src="https://app.powerbi.com/view?r=test"`)

	user.navigate(dashboard.PageAbout)
	assert.Contains(t, user.view(), `value="about" checked`)

	// A forged request for the admin page is a no-op.
	user.navigate(dashboard.PageAdmin)
	body = user.view()
	assert.Contains(t, body, `value="about" checked`)
	assert.NotContains(t, body, env.text("admin.title"))

	user.post(RouteNavigate, url.Values{"page": {"settings"}})
	assert.Contains(t, user.view(), `value="about" checked`)

	admin.navigate(dashboard.PageAdmin)
	body = admin.view()
	assert.Contains(t, body, env.text("admin.empty"))
	assert.Contains(t, body, `value="admin" checked`)
}

func TestNavigateLoggedOut(t *testing.T) {
	env := newTestEnv(t, nil)
	c := env.newClient(t)

	c.navigate(dashboard.PageDashboard)
	body := c.view()
	assert.Contains(t, body, `action="/login"`)
	assert.NotContains(t, body, env.text("dashboard.title"))
}

func TestFeedbackFlow(t *testing.T) {
	env := newTestEnv(t, nil)
	admin := env.newClient(t)
	admin.signup("admin@example.com")
	admin.login("admin@example.com")

	user := env.newClient(t)
	user.signup("user@example.com")
	user.login("user@example.com")

	// Feedback is only accepted from the feedback page.
	user.post(RouteFeedback, url.Values{"name": {"Early"}, "feedback": {"too soon"}})

	user.navigate(dashboard.PageFeedback)
	body := user.view()
	assert.Contains(t, body, env.text("feedback.title"))
	assert.Contains(t, body, `value="user@example.com" disabled`)
	assert.Contains(t, body, `maxlength="50"`)

	user.post(RouteFeedback, url.Values{"name": {"  "}, "feedback": {"text"}})
	assert.Contains(t, user.view(), env.text("feedback.fields_required"))

	user.post(RouteFeedback, url.Values{"name": {strings.Repeat("n", 51)}, "feedback": {"text"}})
	assert.Contains(t, user.view(), env.text("feedback.name_too_long", "50"))

	user.post(RouteFeedback, url.Values{"name": {"Ann"}, "feedback": {"Great dashboard"}})
	assert.Contains(t, user.view(), env.text("feedback.thanks"))

	admin.navigate(dashboard.PageAdmin)
	body = admin.view()
	assert.Contains(t, body, "Ann")
	assert.Contains(t, body, "user@example.com")
	assert.Contains(t, body, "Great dashboard")
	assert.Contains(t, body, time.Now().UTC().Format("2006-01-02"))
	assert.NotContains(t, body, "too soon")
	assert.NotContains(t, body, env.text("admin.empty"))
}

func TestLogout(t *testing.T) {
	env := newTestEnv(t, nil)
	c := env.newClient(t)
	c.signup("bye@example.com")
	c.login("bye@example.com")
	c.navigate(dashboard.PageFeedback)

	u, err := url.Parse(env.server.URL)
	require.NoError(t, err)
	oldCookies := c.http.Jar.Cookies(u)
	require.NotEmpty(t, oldCookies)

	c.post(RouteLogout, nil)
	body := c.view()
	assert.Contains(t, body, `action="/login"`)
	assert.NotContains(t, body, "bye@example.com")

	// The pre-logout token no longer resolves to a session.
	replay := env.newClient(t)
	replay.http.Jar.SetCookies(u, oldCookies)
	assert.Contains(t, replay.view(), `action="/login"`)

	// Logging back in starts from the Home page.
	c.login("bye@example.com")
	assert.Contains(t, c.view(), `value="home" checked`)
}

func TestLoginRenewsToken(t *testing.T) {
	env := newTestEnv(t, nil)
	c := env.newClient(t)
	c.signup("renew@example.com")

	u, err := url.Parse(env.server.URL)
	require.NoError(t, err)
	before := c.http.Jar.Cookies(u)
	require.NotEmpty(t, before)

	c.login("renew@example.com")
	after := c.http.Jar.Cookies(u)
	require.NotEmpty(t, after)
	assert.NotEqual(t, before[0].Value, after[0].Value)
}

func TestLoginLockout(t *testing.T) {
	guard := middleware.NewLoginProtection(middleware.LoginProtectionConfig{
		IPRateLimit:       100,
		IPBurst:           100,
		MaxFailedAttempts: 2,
		LockoutDuration:   15 * time.Minute,
		Logger:            testutil.TestLoggerSilent(),
	})
	env := newTestEnv(t, guard)
	c := env.newClient(t)
	c.signup("locked@example.com")
	c.view()

	bad := url.Values{"email": {"locked@example.com"}, "password": {"nope nope"}}
	c.post(RouteLogin, bad)
	assert.Contains(t, c.view(), env.text("auth.login_failed"))

	c.post(RouteLogin, bad)
	assert.Contains(t, c.view(), env.text("auth.too_many_attempts", "15m"))

	// Even the right password is refused while locked.
	c.login("locked@example.com")
	body := c.view()
	assert.Contains(t, body, env.text("auth.too_many_attempts", "15m"))
	assert.Contains(t, body, `action="/login"`)
}

func TestLoginGatewayOutageDoesNotLockOut(t *testing.T) {
	guard := middleware.NewLoginProtection(middleware.LoginProtectionConfig{
		IPRateLimit:       100,
		IPBurst:           100,
		MaxFailedAttempts: 2,
		LockoutDuration:   15 * time.Minute,
		Logger:            testutil.TestLoggerSilent(),
	})
	env := newTestEnv(t, guard)
	c := env.newClient(t)
	c.signup("steady@example.com")
	c.view()

	env.gateway.setOutage(errors.New("dial tcp 10.0.0.7:443: connection refused"))
	for range 3 {
		c.login("steady@example.com")
		body := c.view()
		assert.Contains(t, body, env.text("auth.login_failed"))
		assert.NotContains(t, body, "connection refused")
	}
	assert.Equal(t, 2, guard.RemainingAttempts("steady@example.com"))

	env.gateway.setOutage(nil)
	c.login("steady@example.com")
	assert.Contains(t, c.view(), `action="/logout"`)
}

func TestSignupGatewayOutageHidesDetail(t *testing.T) {
	env := newTestEnv(t, nil)
	c := env.newClient(t)
	env.gateway.setOutage(errors.New(`provider INTERNAL key="AIza-secret"`))

	c.signup("new@example.com")
	body := c.view()
	assert.Contains(t, body, env.text("auth.signup_unavailable"))
	assert.NotContains(t, body, "AIza-secret")
}

func TestIndexLanguage(t *testing.T) {
	env := newTestEnv(t, nil)
	c := env.newClient(t)

	code, body := c.get(RouteHome + "?lang=ru")
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, `<html lang="ru">`)
	assert.Contains(t, body, env.catalog.T("ru", "auth.login_title"))
}

func TestIsAdmin(t *testing.T) {
	env := newTestEnv(t, nil)
	admin := env.newClient(t)
	admin.signup("root@example.com")
	admin.login("root@example.com")

	isAdmin := func(c *client) bool {
		var got bool
		h := env.handler.sessions.LoadAndSave(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got = env.handler.IsAdmin(r)
		}))
		u, _ := url.Parse(env.server.URL)
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		for _, ck := range c.http.Jar.Cookies(u) {
			req.AddCookie(ck)
		}
		h.ServeHTTP(httptest.NewRecorder(), req)
		return got
	}

	assert.True(t, isAdmin(admin))
	assert.False(t, isAdmin(env.newClient(t)))
}
