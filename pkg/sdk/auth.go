package sdk

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// LoginResponse is the body of a successful POST /auth/login.
type LoginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
	SessionID   string `json:"session_id"`
}

// ExpiresInDuration converts ExpiresIn seconds to a Duration.
func (r *LoginResponse) ExpiresInDuration() time.Duration {
	return time.Duration(r.ExpiresIn) * time.Second
}

// LogoutResponse is the body of POST /auth/logout.
type LogoutResponse struct {
	Message             string `json:"message"`
	SessionsInvalidated int    `json:"sessions_invalidated"`
}

// SessionInfo describes one of the caller's own server-side sessions.
type SessionInfo struct {
	SessionID string    `json:"session_id"`
	IssuedAt  Timestamp `json:"issued_at"`
	LastSeen  Timestamp `json:"last_seen"`
	IPAddress string    `json:"ip_address,omitempty"`
	UserAgent string    `json:"user_agent,omitempty"`
	IsCurrent bool      `json:"is_current"`
}

// SessionList is the body of GET /auth/sessions.
type SessionList struct {
	Sessions []SessionInfo `json:"sessions"`
	Total    int           `json:"total"`
}

// MessageResponse is the generic {"message": ...} acknowledgement.
type MessageResponse struct {
	Message string `json:"message"`
	UserID  string `json:"user_id,omitempty"`
}

// AuthClient wraps the /auth endpoints. Session orchestration lives in
// Session; AuthClient only performs the calls.
type AuthClient struct {
	rc *RequestClient
}

// NewAuthClient returns an AuthClient using rc.
func NewAuthClient(rc *RequestClient) *AuthClient {
	return &AuthClient{rc: rc}
}

// Login exchanges an email and password for a credential. It never attaches a
// stored credential. A 401 maps to ErrInvalidCredentials.
func (a *AuthClient) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, fmt.Errorf("%w: email and password are required", ErrInvalidCredentials)
	}

	body := map[string]string{"email": email, "password": password}
	var resp LoginResponse
	if err := a.rc.SendUnauthenticated(ctx, http.MethodPost, "/auth/login", body, &resp); err != nil {
		var reqErr *RequestError
		if errors.As(err, &reqErr) && reqErr.StatusCode == http.StatusUnauthorized {
			return nil, fmt.Errorf("%w: %s", ErrInvalidCredentials, reqErr.Message)
		}
		return nil, err
	}
	if resp.AccessToken == "" || resp.SessionID == "" || resp.ExpiresIn <= 0 {
		return nil, fmt.Errorf("login response is missing access_token, session_id or expires_in")
	}
	return &resp, nil
}

// Me resolves the user bound to the stored credential.
func (a *AuthClient) Me(ctx context.Context) (*User, error) {
	var user User
	if err := a.rc.Send(ctx, http.MethodGet, "/auth/me", nil, &user); err != nil {
		return nil, err
	}
	if user.ID == "" {
		return nil, fmt.Errorf("GET /auth/me: response is missing user id")
	}
	return &user, nil
}

// Logout invalidates the current session on the backend, or every session of
// the user when all is true.
func (a *AuthClient) Logout(ctx context.Context, all bool) (*LogoutResponse, error) {
	var body any
	if all {
		body = map[string]bool{"all_sessions": true}
	}
	var resp LogoutResponse
	if err := a.rc.Send(ctx, http.MethodPost, "/auth/logout", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListSessions lists the caller's active sessions.
func (a *AuthClient) ListSessions(ctx context.Context) (*SessionList, error) {
	var resp SessionList
	if err := a.rc.Send(ctx, http.MethodGet, "/auth/sessions", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// RevokeSession invalidates one of the caller's sessions.
func (a *AuthClient) RevokeSession(ctx context.Context, sessionID string) (*MessageResponse, error) {
	if err := ValidateID("session id", sessionID); err != nil {
		return nil, err
	}
	var resp MessageResponse
	if err := a.rc.Send(ctx, http.MethodDelete, "/auth/sessions/"+url.PathEscape(sessionID), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
