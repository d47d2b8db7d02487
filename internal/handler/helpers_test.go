// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"database/sql"
	"io"
	"io/fs"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/inequality-dashboard/internal/auth"
	"github.com/olegiv/inequality-dashboard/internal/dashboard"
	"github.com/olegiv/inequality-dashboard/internal/i18n"
	"github.com/olegiv/inequality-dashboard/internal/middleware"
	"github.com/olegiv/inequality-dashboard/internal/model"
	"github.com/olegiv/inequality-dashboard/internal/render"
	"github.com/olegiv/inequality-dashboard/internal/session"
	"github.com/olegiv/inequality-dashboard/internal/store"
	"github.com/olegiv/inequality-dashboard/internal/testutil"
	"github.com/olegiv/inequality-dashboard/internal/visitor"
	"github.com/olegiv/inequality-dashboard/web"
)

const testPassword = "correct horse"

// outageGateway fails every call with err while err is set.
type outageGateway struct {
	dashboard.AuthGateway
	mu  sync.Mutex
	err error
}

func (g *outageGateway) setOutage(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.err = err
}

func (g *outageGateway) outage() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.err
}

func (g *outageGateway) Verify(ctx context.Context, email, password string) (model.Principal, error) {
	if err := g.outage(); err != nil {
		return model.Principal{}, err
	}
	return g.AuthGateway.Verify(ctx, email, password)
}

func (g *outageGateway) Create(ctx context.Context, email, password string) (model.Principal, error) {
	if err := g.outage(); err != nil {
		return model.Principal{}, err
	}
	return g.AuthGateway.Create(ctx, email, password)
}

// testEnv is a dashboard served over a real SQLite store.
type testEnv struct {
	db       *sql.DB
	gateway  *outageGateway
	renderer *render.Renderer
	catalog  *i18n.Catalog
	handler  *Dashboard
	server   *httptest.Server
}

func newTestRenderer(t *testing.T) (*render.Renderer, *i18n.Catalog) {
	t.Helper()

	catalog, err := i18n.Load(testutil.TestLoggerSilent())
	require.NoError(t, err)

	templates, err := fs.Sub(web.Templates, "templates")
	require.NoError(t, err)
	content, err := fs.Sub(web.Content, "content")
	require.NoError(t, err)

	r, err := render.New(render.Config{
		TemplatesFS: templates,
		ContentFS:   content,
		Catalog:     catalog,
		Report: render.Report{
			URL:    "https://app.powerbi.com/view?r=test",
			Title:  "Dashboard 3",
			Width:  "100%",
			Height: 612,
		},
	})
	require.NoError(t, err)
	return r, catalog
}

func newTestEnv(t *testing.T, guard *middleware.LoginProtection) *testEnv {
	t.Helper()

	db := testutil.TestMemoryDB(t)
	logger := testutil.TestLoggerSilent()
	renderer, catalog := newTestRenderer(t)

	gateway := &outageGateway{AuthGateway: auth.NewLocalGateway(db, logger)}
	ctrl := dashboard.NewController(
		gateway,
		store.NewRoleStore(db),
		store.NewFeedbackStore(db),
		dashboard.WithLogger(logger),
	)
	sessions := session.NewManager(session.New(db, store.DriverSQLite, session.Options{IsDev: true}))

	h := NewDashboard(DashboardConfig{
		Controller: ctrl,
		Sessions:   sessions,
		Renderer:   renderer,
		Describer:  visitor.NewDescriber(nil),
		Guard:      guard,
		Logger:     logger,
	})

	r := chi.NewRouter()
	r.Use(sessions.LoadAndSave)
	r.Use(middleware.Language(catalog, false))
	h.Routes(r)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	return &testEnv{db: db, gateway: gateway, renderer: renderer, catalog: catalog, handler: h, server: srv}
}

// client is a browser-like client with its own cookie jar that does not
// follow redirects.
type client struct {
	t    *testing.T
	env  *testEnv
	http *http.Client
}

func (e *testEnv) newClient(t *testing.T) *client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &client{
		t:   t,
		env: e,
		http: &http.Client{
			Jar: jar,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// post submits a form and asserts the post/redirect/get response.
func (c *client) post(path string, form url.Values) {
	c.t.Helper()
	resp, err := c.http.PostForm(c.env.server.URL+path, form)
	require.NoError(c.t, err)
	defer func() { _ = resp.Body.Close() }()

	require.Equal(c.t, http.StatusSeeOther, resp.StatusCode, "POST %s", path)
	require.Equal(c.t, RouteHome, resp.Header.Get("Location"))
}

// get requests path and returns the status and body.
func (c *client) get(path string) (int, string) {
	c.t.Helper()
	resp, err := c.http.Get(c.env.server.URL + path)
	require.NoError(c.t, err)
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	require.NoError(c.t, err)
	return resp.StatusCode, string(body)
}

// view returns the body of GET /.
func (c *client) view() string {
	c.t.Helper()
	code, body := c.get(RouteHome)
	require.Equal(c.t, http.StatusOK, code)
	return body
}

func (c *client) signup(email string) {
	c.t.Helper()
	c.post(RouteSignup, url.Values{"email": {email}, "password": {testPassword}})
}

func (c *client) login(email string) {
	c.t.Helper()
	c.post(RouteLogin, url.Values{"email": {email}, "password": {testPassword}})
}

func (c *client) navigate(page dashboard.Page) {
	c.t.Helper()
	c.post(RouteNavigate, url.Values{"page": {page.Slug()}})
}

// text returns the English catalog text of key, HTML-escaped the way
// templates print it.
func (e *testEnv) text(key string, args ...any) string {
	r := strings.NewReplacer("'", "&#39;", `"`, "&#34;", "&", "&amp;", "<", "&lt;", ">", "&gt;")
	return r.Replace(e.catalog.T("en", key, args...))
}
