// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package dashboard

// NoticeKind is the severity of a user-visible message.
type NoticeKind string

// Notice kinds, matching the flash styles of the UI.
const (
	NoticeSuccess NoticeKind = "success"
	NoticeInfo    NoticeKind = "info"
	NoticeWarning NoticeKind = "warning"
	NoticeError   NoticeKind = "error"
)

// Message catalog keys used in notices.
const (
	MsgLoginFailed          = "auth.login_failed"
	MsgSignupFailed         = "auth.signup_failed"
	MsgSignupUnavailable    = "auth.signup_unavailable"
	MsgSignupSuccess        = "auth.signup_success"
	MsgStoreUnavailable     = "error.store_unavailable"
	MsgFeedbackRequired     = "feedback.fields_required"
	MsgFeedbackNameTooLong  = "feedback.name_too_long"
	MsgFeedbackTextTooLong  = "feedback.text_too_long"
	MsgFeedbackThanks       = "feedback.thanks"
	MsgFeedbackSubmitFailed = "feedback.submit_failed"
	MsgAdminFetchFailed     = "admin.fetch_failed"
)

// Notice is a user-visible message produced by an action. Key is a
// message catalog key and Args its format arguments.
type Notice struct {
	Kind NoticeKind
	Key  string
	Args []string
}

// Outcome is the result of a controller action. A nil Err means the
// action succeeded; Notice may be set either way.
type Outcome struct {
	Notice *Notice
	Err    error
}

// OK reports whether the action succeeded.
func (o Outcome) OK() bool {
	return o.Err == nil
}

func notice(kind NoticeKind, key string, args ...string) *Notice {
	return &Notice{Kind: kind, Key: key, Args: args}
}

func failed(err error, kind NoticeKind, key string, args ...string) Outcome {
	return Outcome{Notice: notice(kind, key, args...), Err: err}
}
