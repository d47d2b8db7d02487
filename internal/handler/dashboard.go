// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package handler provides the dashboard's HTTP handlers: one per session
// action, the view renderer behind GET / and the health endpoints.
package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/inequality-dashboard/internal/dashboard"
	"github.com/olegiv/inequality-dashboard/internal/middleware"
	"github.com/olegiv/inequality-dashboard/internal/model"
	"github.com/olegiv/inequality-dashboard/internal/render"
	"github.com/olegiv/inequality-dashboard/internal/session"
	"github.com/olegiv/inequality-dashboard/internal/util"
)

// Routes served by Dashboard.
const (
	RouteLogin    = "/login"
	RouteSignup   = "/signup"
	RouteLogout   = "/logout"
	RouteNavigate = "/navigate"
	RouteFeedback = "/feedback"
)

// msgTooManyAttempts is shown while an account is locked out.
const msgTooManyAttempts = "auth.too_many_attempts"

// pageTemplates maps every page to its template.
var pageTemplates = [...]string{
	dashboard.PageHome:      "pages/home",
	dashboard.PageAbout:     "pages/about",
	dashboard.PageDashboard: "pages/dashboard",
	dashboard.PageFeedback:  "pages/feedback",
	dashboard.PageAdmin:     "pages/admin",
}

// ClientDescriber extracts feedback metadata from a request.
type ClientDescriber interface {
	Describe(r *http.Request) model.ClientInfo
}

// feedbackForm is the template data of the feedback page.
type feedbackForm struct {
	NameMaxLen int
	TextMaxLen int
}

// Dashboard handles every session action and renders the current view.
type Dashboard struct {
	ctrl      *dashboard.Controller
	sessions  *session.Manager
	renderer  *render.Renderer
	describer ClientDescriber
	guard     *middleware.LoginProtection
	logger    *slog.Logger
}

// DashboardConfig holds the Dashboard collaborators. Guard is optional.
type DashboardConfig struct {
	Controller *dashboard.Controller
	Sessions   *session.Manager
	Renderer   *render.Renderer
	Describer  ClientDescriber
	Guard      *middleware.LoginProtection
	Logger     *slog.Logger
}

// NewDashboard creates the dashboard handler.
func NewDashboard(cfg DashboardConfig) *Dashboard {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Dashboard{
		ctrl:      cfg.Controller,
		sessions:  cfg.Sessions,
		renderer:  cfg.Renderer,
		describer: cfg.Describer,
		guard:     cfg.Guard,
		logger:    cfg.Logger,
	}
}

// Routes registers the dashboard routes on r. Session loading, CSRF and
// language middleware are expected to wrap r.
func (h *Dashboard) Routes(r chi.Router) {
	r.Get(RouteHome, h.Index)
	r.Get(RouteLogin, h.ShowLogin)
	r.Get(RouteSignup, h.ShowSignup)

	r.Group(func(r chi.Router) {
		if h.guard != nil {
			r.Use(h.guard.Middleware())
		}
		r.Post(RouteLogin, h.Login)
		r.Post(RouteSignup, h.Signup)
	})

	r.Post(RouteLogout, h.Logout)
	r.Post(RouteNavigate, h.Navigate)
	r.Post(RouteFeedback, h.SubmitFeedback)
}

// Index handles GET /: the auth form when logged out, the current page
// otherwise.
func (h *Dashboard) Index(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	lang := middleware.GetLang(r)
	s := h.sessions.Load(ctx)

	data := render.TemplateData{
		Lang:    lang,
		Session: s,
		Pages:   s.Pages(),
		Notice:  h.sessions.PopFlash(ctx),
	}
	catalog := h.renderer.Catalog()

	if !s.Authenticated {
		name, title := "auth/login", "auth.login_title"
		if s.AuthView == dashboard.AuthViewSignup {
			name, title = "auth/signup", "auth.signup_title"
		}
		data.Title = catalog.T(lang, title)
		h.render(w, name, data)
		return
	}

	data.Title = catalog.T(lang, "page."+s.Page.Slug())
	switch s.Page {
	case dashboard.PageHome, dashboard.PageAbout:
		data.Content = h.renderer.Content(s.Page.Slug())
	case dashboard.PageFeedback:
		data.Data = feedbackForm{NameMaxLen: model.FeedbackNameMaxLen, TextMaxLen: model.FeedbackTextMaxLen}
	case dashboard.PageAdmin:
		panel, out := h.ctrl.ViewAdminPanel(ctx, &s)
		if errors.Is(out.Err, dashboard.ErrNotPermitted) {
			h.logger.Warn("admin panel requested without admin role",
				"category", model.EventCategorySecurity,
				"user_id", s.Principal.ID)
			redirectHome(w, r)
			return
		}
		data.Data = panel
		if out.Notice != nil {
			data.Notice = out.Notice
		}
	}

	h.render(w, pageTemplates[s.Page], data)
}

// IsAdmin reports whether the request's session belongs to a logged-in
// admin. The session must already be loaded into the request context.
func (h *Dashboard) IsAdmin(r *http.Request) bool {
	s := h.sessions.Load(r.Context())
	return s.IsAdmin()
}

func (h *Dashboard) render(w http.ResponseWriter, name string, data render.TemplateData) {
	if err := h.renderer.Render(w, name, data); err != nil {
		logAndInternalError(w, h.logger, "failed to render view", "template", name, "error", err)
	}
}

// ShowLogin handles GET /login.
func (h *Dashboard) ShowLogin(w http.ResponseWriter, r *http.Request) {
	s := h.sessions.Load(r.Context())
	h.ctrl.ShowLogin(&s)
	h.sessions.Save(r.Context(), s)
	redirectHome(w, r)
}

// ShowSignup handles GET /signup.
func (h *Dashboard) ShowSignup(w http.ResponseWriter, r *http.Request) {
	s := h.sessions.Load(r.Context())
	h.ctrl.ShowSignup(&s)
	h.sessions.Save(r.Context(), s)
	redirectHome(w, r)
}

// Login handles POST /login.
func (h *Dashboard) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := r.ParseForm(); err != nil {
		h.flashAndRedirect(w, r, &dashboard.Notice{Kind: dashboard.NoticeError, Key: dashboard.MsgLoginFailed})
		return
	}
	email := r.PostForm.Get("email")
	password := r.PostForm.Get("password")

	if h.guard != nil {
		if locked, remaining := h.guard.IsAccountLocked(email); locked {
			h.logger.Warn("login attempt on locked account",
				"category", model.EventCategorySecurity,
				"email", email,
				"ip", util.ClientIP(r))
			h.flashAndRedirect(w, r, &dashboard.Notice{
				Kind: dashboard.NoticeError,
				Key:  msgTooManyAttempts,
				Args: []string{middleware.FormatLockout(remaining)},
			})
			return
		}
	}

	s := h.sessions.Load(ctx)
	out := h.ctrl.SubmitLogin(ctx, &s, email, password)

	switch {
	case out.OK():
		if h.guard != nil {
			h.guard.RecordSuccessfulLogin(email)
		}
		if err := h.sessions.RenewToken(ctx); err != nil {
			logAndInternalError(w, h.logger, "failed to renew session token", "error", err)
			return
		}
	case errors.Is(out.Err, dashboard.ErrInvalidCredentials):
		if h.guard != nil {
			if locked, d := h.guard.RecordFailedAttempt(email); locked {
				out.Notice = &dashboard.Notice{
					Kind: dashboard.NoticeError,
					Key:  msgTooManyAttempts,
					Args: []string{middleware.FormatLockout(d)},
				}
			} else {
				h.logger.Info("login failed",
					"category", model.EventCategoryAuth,
					"ip", util.ClientIP(r),
					"remaining_attempts", h.guard.RemainingAttempts(email))
			}
		}
	case errors.Is(out.Err, dashboard.ErrNotPermitted):
		redirectHome(w, r)
		return
	}

	h.sessions.Save(ctx, s)
	h.flashAndRedirect(w, r, out.Notice)
}

// Signup handles POST /signup.
func (h *Dashboard) Signup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := r.ParseForm(); err != nil {
		h.flashAndRedirect(w, r, &dashboard.Notice{
			Kind: dashboard.NoticeError,
			Key:  dashboard.MsgSignupFailed,
			Args: []string{"invalid form data"},
		})
		return
	}

	s := h.sessions.Load(ctx)
	out := h.ctrl.SubmitSignup(ctx, &s, r.PostForm.Get("email"), r.PostForm.Get("password"))
	if errors.Is(out.Err, dashboard.ErrNotPermitted) {
		redirectHome(w, r)
		return
	}

	h.sessions.Save(ctx, s)
	h.flashAndRedirect(w, r, out.Notice)
}

// Logout handles POST /logout. The server-side session is destroyed; the
// next request starts from a fresh logged-out session.
func (h *Dashboard) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	s := h.sessions.Load(ctx)
	h.ctrl.Logout(&s)

	if err := h.sessions.Destroy(ctx); err != nil {
		logAndInternalError(w, h.logger, "failed to destroy session", "error", err)
		return
	}
	redirectHome(w, r)
}

// Navigate handles POST /navigate. Unknown or forbidden pages leave the
// session unchanged.
func (h *Dashboard) Navigate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	s := h.sessions.Load(ctx)

	slug := r.PostFormValue("page")
	page, ok := dashboard.ParsePage(slug)
	if !ok {
		h.logger.Warn("navigation to unknown page",
			"category", model.EventCategorySecurity,
			"user_id", s.Principal.ID,
			"page", slug,
			"ip", util.ClientIP(r))
		redirectHome(w, r)
		return
	}

	if out := h.ctrl.Navigate(&s, page); !out.OK() {
		if s.Authenticated {
			h.logger.Warn("navigation not permitted",
				"category", model.EventCategorySecurity,
				"user_id", s.Principal.ID,
				"role", string(s.Role),
				"page", slug,
				"ip", util.ClientIP(r))
		}
		redirectHome(w, r)
		return
	}

	h.sessions.Save(ctx, s)
	redirectHome(w, r)
}

// SubmitFeedback handles POST /feedback.
func (h *Dashboard) SubmitFeedback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	s := h.sessions.Load(ctx)

	in := dashboard.FeedbackInput{
		Name: r.PostFormValue("name"),
		Text: r.PostFormValue("feedback"),
	}
	if h.describer != nil {
		in.Client = h.describer.Describe(r)
	}

	out := h.ctrl.SubmitFeedback(ctx, &s, in)
	if errors.Is(out.Err, dashboard.ErrNotPermitted) {
		if s.Authenticated {
			h.logger.Warn("feedback submitted outside the feedback page",
				"category", model.EventCategorySecurity,
				"user_id", s.Principal.ID,
				"ip", util.ClientIP(r))
		}
		redirectHome(w, r)
		return
	}

	h.flashAndRedirect(w, r, out.Notice)
}
