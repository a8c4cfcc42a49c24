// Package client is a small Go consumer of the InvoiceFlow auth API. It
// drives the authentication endpoints and keeps the resulting tokens in a
// file-backed SessionCache so callers survive process restarts without
// logging in again.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// APIError carries the error envelope returned by the server.
type APIError struct {
	Status  int      `json:"-"`
	Code    string   `json:"code"`
	Message string   `json:"message"`
	Details []string `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (%d): %s", e.Code, e.Status, e.Message)
}

// Client talks to the InvoiceFlow HTTP API.
type Client struct {
	baseURL string
	http    *http.Client
	cache   *SessionCache
}

// New constructs a Client against baseURL, persisting session state in cache.
func New(baseURL string, cache *SessionCache) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
		cache:   cache,
	}
}

// Session returns the current cached session.
func (c *Client) Session() Session {
	return c.cache.Current()
}

type tokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int64  `json:"expiresIn"`
	TokenType    string `json:"tokenType"`
}

type sessionInfo struct {
	SessionID string `json:"sessionId"`
}

type authPayload struct {
	User             *User       `json:"user"`
	Tokens           tokenPair   `json:"tokens"`
	Session          sessionInfo `json:"session"`
	PasswordStrength string      `json:"passwordStrength"`
}

// Register creates an account and stores the issued tokens.
func (c *Client) Register(ctx context.Context, name, email, password string) (*User, error) {
	var payload authPayload
	err := c.call(ctx, http.MethodPost, "/api/auth/register", map[string]any{
		"name":            name,
		"email":           email,
		"password":        password,
		"confirmPassword": password,
		"acceptTerms":     true,
	}, false, &payload)
	if err != nil {
		return nil, err
	}
	if err := c.storeSession(payload); err != nil {
		return nil, err
	}
	return payload.User, nil
}

// Login authenticates and stores the issued tokens.
func (c *Client) Login(ctx context.Context, email, password string) (*User, error) {
	var payload authPayload
	err := c.call(ctx, http.MethodPost, "/api/auth/login", map[string]any{
		"email":    email,
		"password": password,
	}, false, &payload)
	if err != nil {
		return nil, err
	}
	if err := c.storeSession(payload); err != nil {
		return nil, err
	}
	return payload.User, nil
}

// Logout tells the server and clears the local session either way. The server
// call is best-effort: tokens are stateless, so the local wipe is what ends
// the session.
func (c *Client) Logout(ctx context.Context) error {
	callErr := c.call(ctx, http.MethodPost, "/api/auth/logout", nil, true, nil)
	if err := c.cache.Clear(); err != nil {
		return err
	}
	return callErr
}

// Refresh exchanges the cached refresh token for a new pair.
func (c *Client) Refresh(ctx context.Context) error {
	sess := c.cache.Current()
	if sess.RefreshToken == "" {
		return &APIError{Status: http.StatusUnauthorized, Code: "INVALID_REFRESH_TOKEN", Message: "No refresh token cached"}
	}
	var payload authPayload
	err := c.call(ctx, http.MethodPost, "/api/auth/refresh", map[string]any{
		"refreshToken": sess.RefreshToken,
	}, false, &payload)
	if err != nil {
		return err
	}
	return c.cache.UpdateTokens(payload.Tokens.AccessToken, payload.Tokens.RefreshToken, payload.Session.SessionID)
}

// ForgotPassword requests a password reset email.
func (c *Client) ForgotPassword(ctx context.Context, email string) error {
	return c.call(ctx, http.MethodPost, "/api/auth/forgot-password", map[string]any{
		"email": email,
	}, false, nil)
}

// ResetPassword completes a reset with the emailed token.
func (c *Client) ResetPassword(ctx context.Context, token, email, password string) error {
	return c.call(ctx, http.MethodPost, "/api/auth/reset-password", map[string]any{
		"token":    token,
		"email":    email,
		"password": password,
	}, false, nil)
}

// Me fetches the authenticated profile.
func (c *Client) Me(ctx context.Context) (*User, error) {
	var payload struct {
		User *User `json:"user"`
	}
	if err := c.call(ctx, http.MethodGet, "/api/users/me", nil, true, &payload); err != nil {
		return nil, err
	}
	if payload.User == nil {
		return nil, fmt.Errorf("me: response missing user")
	}
	return payload.User, nil
}

func (c *Client) storeSession(payload authPayload) error {
	return c.cache.Store(Session{
		User:         payload.User,
		AccessToken:  payload.Tokens.AccessToken,
		RefreshToken: payload.Tokens.RefreshToken,
		SessionID:    payload.Session.SessionID,
		LoggedIn:     true,
	})
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *APIError       `json:"error"`
}

// call performs one JSON request/response cycle. When authed is set the
// cached access token is attached as a Bearer header.
func (c *Client) call(ctx context.Context, method, path string, body any, authed bool, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authed {
		sess := c.cache.Current()
		if sess.AccessToken == "" {
			return &APIError{Status: http.StatusUnauthorized, Code: "MISSING_TOKEN", Message: "No access token cached"}
		}
		req.Header.Set("Authorization", "Bearer "+sess.AccessToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if !env.Success {
		apiErr := env.Error
		if apiErr == nil {
			apiErr = &APIError{Code: "SERVER_ERROR", Message: "Unexpected response"}
		}
		apiErr.Status = resp.StatusCode
		return apiErr
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decode payload: %w", err)
		}
	}
	return nil
}
