package sdk

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

const (
	defaultAuditPageSize = 50
	minAuditPageSize     = 10
	maxAuditPageSize     = 100

	minPasswordLength = 8
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9_.+-]+@[a-zA-Z0-9-]+\.[a-zA-Z0-9-.]+$`)

// AuditLogEntry is a single backend audit event.
type AuditLogEntry struct {
	EventID   string         `json:"event_id"`
	Timestamp Timestamp      `json:"timestamp"`
	EventType string         `json:"event_type"`
	UserID    string         `json:"user_id"`
	UserEmail string         `json:"user_email,omitempty"`
	Action    string         `json:"action"`
	RequestID string         `json:"request_id,omitempty"`
	Details   map[string]any `json:"details"`
}

// AuditLogPage is one page of audit events.
type AuditLogPage struct {
	Logs     []AuditLogEntry `json:"logs"`
	Total    int             `json:"total"`
	Page     int             `json:"page"`
	PageSize int             `json:"page_size"`
}

// AuditLogQuery filters the audit log listing.
type AuditLogQuery struct {
	// Page is 1-based; zero means the first page.
	Page int
	// PageSize defaults to 50 and must be within 10-100.
	PageSize  int
	EventType string
	UserID    string
}

// ManagedUser is a user as listed by the admin API.
type ManagedUser struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	RawRole   string    `json:"role"`
	IsActive  bool      `json:"is_active"`
	CreatedAt Timestamp `json:"created_at"`
	LastLogin Timestamp `json:"last_login"`
}

// Role returns the parsed role.
func (u *ManagedUser) Role() Role {
	return ParseRole(u.RawRole)
}

// UserList is the body of GET /admin/users.
type UserList struct {
	Users []ManagedUser `json:"users"`
	Total int           `json:"total"`
}

// UserUpdate changes a user's status or role. Nil fields are left unchanged.
type UserUpdate struct {
	IsActive *bool   `json:"is_active,omitempty"`
	Role     *string `json:"role,omitempty"`
}

// NewUser is the body of POST /auth/users.
type NewUser struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	// Role defaults to researcher when empty.
	Role string `json:"role"`
}

// Validate normalises the email and role and applies the backend's password
// rules.
func (u *NewUser) Validate() error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	if !emailPattern.MatchString(u.Email) {
		return fmt.Errorf("invalid email %q", u.Email)
	}
	if err := checkPassword(u.Password); err != nil {
		return err
	}
	if strings.TrimSpace(u.Role) == "" {
		u.Role = RoleResearcher.String()
	}
	role := ParseRole(u.Role)
	if role == RoleUnknown {
		return fmt.Errorf("invalid role %q", u.Role)
	}
	u.Role = role.String()
	return nil
}

func checkPassword(pw string) error {
	if len([]rune(pw)) < minPasswordLength {
		return fmt.Errorf("password must be at least %d characters", minPasswordLength)
	}
	var upper, lower, digit bool
	for _, r := range pw {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	switch {
	case !upper:
		return fmt.Errorf("password must contain at least one uppercase letter")
	case !lower:
		return fmt.Errorf("password must contain at least one lowercase letter")
	case !digit:
		return fmt.Errorf("password must contain at least one digit")
	}
	return nil
}

// CreatedUser is the 201 body of POST /auth/users.
type CreatedUser struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	RawRole   string    `json:"role"`
	CreatedAt Timestamp `json:"created_at"`
}

// Role returns the parsed role.
func (u *CreatedUser) Role() Role {
	return ParseRole(u.RawRole)
}

// ActiveSession is a live session as listed by the admin API.
type ActiveSession struct {
	SessionID string    `json:"session_id"`
	UserEmail string    `json:"user_email"`
	IssuedAt  Timestamp `json:"issued_at"`
	ExpiresAt Timestamp `json:"expires_at"`
	LastSeen  Timestamp `json:"last_seen"`
	IPAddress string    `json:"ip_address,omitempty"`
}

// ActiveSessionList is the body of GET /admin/sessions.
type ActiveSessionList struct {
	Sessions []ActiveSession `json:"sessions"`
	Total    int             `json:"total"`
}

// AdminClient wraps the /admin endpoints. The backend enforces the admin
// role; callers should also gate on Route before offering these operations.
type AdminClient struct {
	rc *RequestClient
}

// NewAdminClient returns an AdminClient using rc.
func NewAdminClient(rc *RequestClient) *AdminClient {
	return &AdminClient{rc: rc}
}

// Encode validates q and renders it as a query string.
func (q AuditLogQuery) Encode() (string, error) {
	page := q.Page
	if page == 0 {
		page = 1
	}
	if page < 1 {
		return "", fmt.Errorf("page must be at least 1")
	}
	size := q.PageSize
	if size == 0 {
		size = defaultAuditPageSize
	}
	if size < minAuditPageSize || size > maxAuditPageSize {
		return "", fmt.Errorf("page size must be between %d and %d", minAuditPageSize, maxAuditPageSize)
	}

	values := url.Values{}
	values.Set("page", strconv.Itoa(page))
	values.Set("page_size", strconv.Itoa(size))
	if q.EventType != "" {
		values.Set("event_type", q.EventType)
	}
	if q.UserID != "" {
		values.Set("user_id", q.UserID)
	}
	return values.Encode(), nil
}

// AuditLogs lists audit events.
func (a *AdminClient) AuditLogs(ctx context.Context, query AuditLogQuery) (*AuditLogPage, error) {
	qs, err := query.Encode()
	if err != nil {
		return nil, err
	}
	var out AuditLogPage
	if err := a.rc.Send(ctx, http.MethodGet, "/admin/audit/logs?"+qs, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListUsers lists every user.
func (a *AdminClient) ListUsers(ctx context.Context) (*UserList, error) {
	var out UserList
	if err := a.rc.Send(ctx, http.MethodGet, "/admin/users", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateUser activates, deactivates or re-roles a user.
func (a *AdminClient) UpdateUser(ctx context.Context, userID string, update UserUpdate) (*MessageResponse, error) {
	if err := ValidateID("user id", userID); err != nil {
		return nil, err
	}
	if update.IsActive == nil && update.Role == nil {
		return nil, fmt.Errorf("update requires a status or role change")
	}
	if update.Role != nil {
		role := ParseRole(*update.Role)
		if role == RoleUnknown {
			return nil, fmt.Errorf("invalid role %q", *update.Role)
		}
		name := role.String()
		update.Role = &name
	}
	var out MessageResponse
	if err := a.rc.Send(ctx, http.MethodPut, "/admin/users/"+url.PathEscape(userID), update, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateUser registers a new active account. Input is validated before
// anything is sent.
func (a *AdminClient) CreateUser(ctx context.Context, user NewUser) (*CreatedUser, error) {
	if err := user.Validate(); err != nil {
		return nil, err
	}
	var out CreatedUser
	if err := a.rc.Send(ctx, http.MethodPost, "/auth/users", user, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RevokeUserSessions invalidates every session of a user.
func (a *AdminClient) RevokeUserSessions(ctx context.Context, userID string) (*MessageResponse, error) {
	if err := ValidateID("user id", userID); err != nil {
		return nil, err
	}
	var out MessageResponse
	if err := a.rc.Send(ctx, http.MethodPost, "/admin/users/"+url.PathEscape(userID)+"/revoke-sessions", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListActiveSessions lists live sessions across all users.
func (a *AdminClient) ListActiveSessions(ctx context.Context) (*ActiveSessionList, error) {
	var out ActiveSessionList
	if err := a.rc.Send(ctx, http.MethodGet, "/admin/sessions", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RevokeSession invalidates any user's session.
func (a *AdminClient) RevokeSession(ctx context.Context, sessionID string) (*MessageResponse, error) {
	if err := ValidateID("session id", sessionID); err != nil {
		return nil, err
	}
	var out MessageResponse
	if err := a.rc.Send(ctx, http.MethodDelete, "/admin/sessions/"+url.PathEscape(sessionID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
