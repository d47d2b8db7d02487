// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/olegiv/inequality-dashboard/internal/model"
)

// DefaultFirebaseEndpoint is the Identity Toolkit base URL.
const DefaultFirebaseEndpoint = "https://identitytoolkit.googleapis.com"

const maxProviderResponse = 1 << 20

// FirebaseGateway authenticates against Firebase Authentication using the
// email/password REST endpoints.
type FirebaseGateway struct {
	apiKey   string
	endpoint string
	client   *http.Client
}

// NewFirebaseGateway creates a gateway. An empty endpoint selects
// DefaultFirebaseEndpoint; a nil client gets a 10s timeout.
func NewFirebaseGateway(apiKey, endpoint string, client *http.Client) *FirebaseGateway {
	if endpoint == "" {
		endpoint = DefaultFirebaseEndpoint
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &FirebaseGateway{
		apiKey:   apiKey,
		endpoint: strings.TrimRight(endpoint, "/"),
		client:   client,
	}
}

type passwordRequest struct {
	Email             string `json:"email"`
	Password          string `json:"password"`
	ReturnSecureToken bool   `json:"returnSecureToken"`
}

// Verify signs in with email and password.
func (g *FirebaseGateway) Verify(ctx context.Context, email, password string) (model.Principal, error) {
	p, err := g.call(ctx, "accounts:signInWithPassword", NormalizeEmail(email), password)
	if err != nil {
		var pe *ProviderError
		if errors.As(err, &pe) {
			switch pe.Code {
			case "EMAIL_NOT_FOUND", "INVALID_PASSWORD", "INVALID_LOGIN_CREDENTIALS", "USER_DISABLED", "INVALID_EMAIL", "MISSING_PASSWORD":
				return model.Principal{}, ErrInvalidCredentials
			case "TOO_MANY_ATTEMPTS_TRY_LATER":
				return model.Principal{}, ErrTooManyAttempts
			}
		}
		return model.Principal{}, err
	}
	return p, nil
}

// Create signs up a new account.
func (g *FirebaseGateway) Create(ctx context.Context, email, password string) (model.Principal, error) {
	p, err := g.call(ctx, "accounts:signUp", NormalizeEmail(email), password)
	if err != nil {
		var pe *ProviderError
		if errors.As(err, &pe) {
			switch pe.Code {
			case "EMAIL_EXISTS":
				return model.Principal{}, ErrEmailExists
			case "INVALID_EMAIL", "MISSING_EMAIL":
				return model.Principal{}, ErrInvalidEmail
			case "WEAK_PASSWORD", "MISSING_PASSWORD":
				return model.Principal{}, ErrWeakPassword
			case "TOO_MANY_ATTEMPTS_TRY_LATER":
				return model.Principal{}, ErrTooManyAttempts
			}
		}
		return model.Principal{}, err
	}
	return p, nil
}

func (g *FirebaseGateway) call(ctx context.Context, method, email, password string) (model.Principal, error) {
	body, err := json.Marshal(passwordRequest{Email: email, Password: password, ReturnSecureToken: true})
	if err != nil {
		return model.Principal{}, fmt.Errorf("encoding request: %w", err)
	}

	u := g.endpoint + "/v1/" + method + "?key=" + url.QueryEscape(g.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return model.Principal{}, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return model.Principal{}, fmt.Errorf("identity provider request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxProviderResponse))
	if err != nil {
		return model.Principal{}, fmt.Errorf("reading identity provider response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return model.Principal{}, &ProviderError{Code: errorCode(data), Status: resp.StatusCode}
	}

	res := gjson.ParseBytes(data)
	id := res.Get("localId").String()
	if id == "" {
		return model.Principal{}, &ProviderError{Code: "MISSING_LOCAL_ID", Status: resp.StatusCode}
	}
	respEmail := res.Get("email").String()
	if respEmail == "" {
		respEmail = email
	}
	return model.Principal{ID: id, Email: respEmail}, nil
}

// errorCode extracts the code from {"error":{"message":"CODE : detail"}}.
func errorCode(data []byte) string {
	msg := gjson.GetBytes(data, "error.message").String()
	if msg == "" {
		return "UNKNOWN"
	}
	code, _, _ := strings.Cut(msg, " : ")
	return strings.TrimSpace(code)
}
