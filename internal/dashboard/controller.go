// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package dashboard implements the session and navigation controller of the
// income inequality dashboard: the page set, the per-client Session state
// machine and the actions that move it (login, signup, navigation, logout,
// feedback submission and the admin feedback listing).
//
// The controller never panics on collaborator failures and never retries.
// Every failure is converted to an Outcome carrying one of the package's
// error categories and a user-visible Notice.
package dashboard

import (
	"context"
	"errors"
	"iter"
	"log/slog"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/olegiv/inequality-dashboard/internal/model"
)

// AuthGateway verifies credentials and creates accounts.
type AuthGateway interface {
	Verify(ctx context.Context, email, password string) (model.Principal, error)
	Create(ctx context.Context, email, password string) (model.Principal, error)
}

// RoleStore holds one role record per principal.
type RoleStore interface {
	CountAll(ctx context.Context) (int, error)
	// Get returns ErrNotFound when the principal has no record.
	Get(ctx context.Context, id string) (model.User, error)
	Put(ctx context.Context, u model.User) error
	// PutFirstAdmin claims the single first-admin slot for u and writes its
	// record in one atomic step: as admin when the claim is won, as user
	// otherwise. On error neither the claim nor the record is kept.
	PutFirstAdmin(ctx context.Context, u model.User) (bool, error)
}

// FeedbackStore is an append-only feedback collection.
type FeedbackStore interface {
	Append(ctx context.Context, f model.Feedback) error
	// ListNewestFirst yields records by timestamp, newest first. Iteration
	// stops after the first error.
	ListNewestFirst(ctx context.Context) iter.Seq2[model.Feedback, error]
}

// FeedbackInput is the feedback form as submitted by the client.
type FeedbackInput struct {
	Name   string
	Text   string
	Client model.ClientInfo
}

// AdminPanel is the data shown on the admin page.
type AdminPanel struct {
	Feedbacks []model.Feedback
	// Partial is set when listing failed; Feedbacks then holds the records
	// read before the failure.
	Partial bool
}

// Controller mediates every Session transition.
type Controller struct {
	auth            AuthGateway
	roles           RoleStore
	feedback        FeedbackStore
	logger          *slog.Logger
	now             func() time.Time
	firstAdminGuard bool
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the controller logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithClock overrides the clock used for feedback timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		if now != nil {
			c.now = now
		}
	}
}

// WithFirstAdminGuard toggles the atomic first-admin claim. When disabled,
// two concurrent first signups may both become admin.
func WithFirstAdminGuard(enabled bool) Option {
	return func(c *Controller) {
		c.firstAdminGuard = enabled
	}
}

// NewController creates a controller. The first-admin guard is on by default.
func NewController(auth AuthGateway, roles RoleStore, feedback FeedbackStore, opts ...Option) *Controller {
	c := &Controller{
		auth:            auth,
		roles:           roles,
		feedback:        feedback,
		logger:          slog.Default(),
		now:             time.Now,
		firstAdminGuard: true,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ShowLogin switches a logged-out session to the login form.
func (c *Controller) ShowLogin(s *Session) {
	if !s.Authenticated {
		s.AuthView = AuthViewLogin
	}
}

// ShowSignup switches a logged-out session to the signup form.
func (c *Controller) ShowSignup(s *Session) {
	if !s.Authenticated {
		s.AuthView = AuthViewSignup
	}
}

// SubmitLogin verifies credentials and logs the session in on the Home page.
// Failures leave the session logged out with a message that does not say
// whether the email is registered.
func (c *Controller) SubmitLogin(ctx context.Context, s *Session, email, password string) Outcome {
	if s.Authenticated {
		return Outcome{Err: ErrNotPermitted}
	}

	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return failed(ErrInvalidCredentials, NoticeError, MsgLoginFailed)
	}

	principal, err := c.auth.Verify(ctx, email, password)
	switch {
	case errors.Is(err, ErrInvalidCredentials):
		c.logger.Warn("login failed",
			"category", model.EventCategoryAuth,
			"email", email,
			"reason", err.Error())
		return failed(ErrInvalidCredentials, NoticeError, MsgLoginFailed)
	case err != nil:
		c.logger.Error("auth gateway failed during login",
			"category", model.EventCategoryAuth,
			"email", email,
			"error", err)
		return failed(gatewayUnavailable("verify", err), NoticeError, MsgLoginFailed)
	}

	role, err := c.resolveRole(ctx, principal.ID)
	if err != nil {
		c.logger.Error("role lookup failed",
			"category", model.EventCategoryAuth,
			"user_id", principal.ID,
			"error", err)
		return failed(storeUnavailable("role lookup", err), NoticeError, MsgStoreUnavailable)
	}

	*s = Session{
		Authenticated: true,
		Principal:     principal,
		Role:          role,
		Page:          PageHome,
		AuthView:      AuthViewLogin,
	}

	c.logger.Info("user logged in",
		"category", model.EventCategoryAuth,
		"user_id", principal.ID,
		"role", string(role))
	return Outcome{}
}

func (c *Controller) resolveRole(ctx context.Context, id string) (model.Role, error) {
	u, err := c.roles.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return model.RoleUser, nil
	}
	if err != nil {
		return "", err
	}
	return model.ParseRole(string(u.Role)), nil
}

// SubmitSignup creates an account and its role record, then returns the
// session to the login form. The session is never logged in by signup.
//
// Whether the new account is the first one is decided by counting role
// records before the account is created. With the first-admin guard on,
// a first-user candidate is written through PutFirstAdmin and is admin
// only if it wins the slot.
func (c *Controller) SubmitSignup(ctx context.Context, s *Session, email, password string) Outcome {
	if s.Authenticated {
		return Outcome{Err: ErrNotPermitted}
	}
	s.AuthView = AuthViewSignup

	count, err := c.roles.CountAll(ctx)
	if err != nil {
		c.logger.Error("counting users failed", "category", model.EventCategoryAuth, "error", err)
		return failed(storeUnavailable("count users", err), NoticeError, MsgStoreUnavailable)
	}
	isFirstUser := count == 0

	principal, err := c.auth.Create(ctx, strings.TrimSpace(email), password)
	if err != nil {
		var rejected *RejectedError
		if errors.As(err, &rejected) {
			c.logger.Warn("signup rejected",
				"category", model.EventCategoryAuth,
				"email", strings.TrimSpace(email),
				"reason", rejected.Reason)
			return failed(&AccountCreationError{Reason: rejected.Reason, Err: err}, NoticeError, MsgSignupFailed, rejected.Reason)
		}
		c.logger.Error("auth gateway failed during signup",
			"category", model.EventCategoryAuth,
			"email", strings.TrimSpace(email),
			"error", err)
		return failed(&AccountCreationError{Reason: ErrGatewayUnavailable.Error(), Err: err}, NoticeError, MsgSignupUnavailable)
	}

	user := model.User{
		ID:        principal.ID,
		Email:     principal.Email,
		Role:      model.RoleUser,
		CreatedAt: c.now().UTC(),
	}
	switch {
	case isFirstUser && c.firstAdminGuard:
		user.Role = model.RoleAdmin
		won, err := c.roles.PutFirstAdmin(ctx, user)
		if err != nil {
			c.logger.Error("writing first role record failed",
				"category", model.EventCategoryAuth,
				"user_id", principal.ID,
				"error", err)
			return failed(storeUnavailable("put first admin", err), NoticeError, MsgStoreUnavailable)
		}
		if !won {
			user.Role = model.RoleUser
			c.logger.Info("first admin slot already taken",
				"category", model.EventCategoryAuth,
				"user_id", principal.ID)
		}
	default:
		if isFirstUser {
			user.Role = model.RoleAdmin
		}
		if err := c.roles.Put(ctx, user); err != nil {
			c.logger.Error("writing role record failed",
				"category", model.EventCategoryAuth,
				"user_id", principal.ID,
				"error", err)
			return failed(storeUnavailable("put role", err), NoticeError, MsgStoreUnavailable)
		}
	}

	s.AuthView = AuthViewLogin
	c.logger.Info("account created",
		"category", model.EventCategoryAuth,
		"user_id", principal.ID,
		"role", string(user.Role))
	return Outcome{Notice: notice(NoticeSuccess, MsgSignupSuccess)}
}

// Navigate selects a page. Pages outside the role's page set are a no-op.
func (c *Controller) Navigate(s *Session, page Page) Outcome {
	if !s.Authenticated || !Allowed(s.Role, page) {
		return Outcome{Err: ErrNotPermitted}
	}
	s.Page = page
	return Outcome{}
}

// Logout returns the session to its initial logged-out state.
func (c *Controller) Logout(s *Session) Outcome {
	if s.Authenticated {
		c.logger.Info("user logged out",
			"category", model.EventCategoryAuth,
			"user_id", s.Principal.ID)
	}
	*s = NewSession()
	return Outcome{}
}

// SubmitFeedback validates and appends a feedback record stamped with the
// server clock and the session's own email.
func (c *Controller) SubmitFeedback(ctx context.Context, s *Session, in FeedbackInput) Outcome {
	if !s.Authenticated || s.Page != PageFeedback {
		return Outcome{Err: ErrNotPermitted}
	}

	name := strings.TrimSpace(in.Name)
	text := strings.TrimSpace(in.Text)

	var missing []string
	if name == "" {
		missing = append(missing, "name")
	}
	if text == "" {
		missing = append(missing, "feedback")
	}
	if len(missing) > 0 {
		return failed(&ValidationError{Fields: missing}, NoticeWarning, MsgFeedbackRequired)
	}
	if utf8.RuneCountInString(name) > model.FeedbackNameMaxLen {
		return failed(&ValidationError{Fields: []string{"name"}}, NoticeWarning,
			MsgFeedbackNameTooLong, strconv.Itoa(model.FeedbackNameMaxLen))
	}
	if utf8.RuneCountInString(text) > model.FeedbackTextMaxLen {
		return failed(&ValidationError{Fields: []string{"feedback"}}, NoticeWarning,
			MsgFeedbackTextTooLong, strconv.Itoa(model.FeedbackTextMaxLen))
	}

	fb := model.Feedback{
		Name:      name,
		Email:     s.Principal.Email,
		Text:      text,
		Client:    in.Client,
		CreatedAt: c.now().UTC(),
	}
	if err := c.feedback.Append(ctx, fb); err != nil {
		c.logger.Error("storing feedback failed",
			"category", model.EventCategoryFeedback,
			"user_id", s.Principal.ID,
			"error", err)
		return failed(storeUnavailable("append feedback", err), NoticeError, MsgFeedbackSubmitFailed)
	}

	c.logger.Info("feedback submitted",
		"category", model.EventCategoryFeedback,
		"user_id", s.Principal.ID,
		"country", in.Client.Country)
	return Outcome{Notice: notice(NoticeSuccess, MsgFeedbackThanks)}
}

// ViewAdminPanel lists all feedback newest first. It is available to
// admins only. A store failure keeps the rows read so far and is reported
// as a non-fatal notice.
func (c *Controller) ViewAdminPanel(ctx context.Context, s *Session) (AdminPanel, Outcome) {
	if !s.IsAdmin() {
		return AdminPanel{}, Outcome{Err: ErrNotPermitted}
	}

	var panel AdminPanel
	for fb, err := range c.feedback.ListNewestFirst(ctx) {
		if err != nil {
			panel.Partial = true
			c.logger.Error("listing feedback failed",
				"category", model.EventCategoryFeedback,
				"read", len(panel.Feedbacks),
				"error", err)
			return panel, failed(storeUnavailable("list feedback", err), NoticeError, MsgAdminFetchFailed)
		}
		panel.Feedbacks = append(panel.Feedbacks, fb)
	}
	return panel, Outcome{}
}
