package sdk

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// SessionState is the tri-state lifecycle of a Session.
type SessionState int

const (
	StateLoading SessionState = iota
	StateUnauthenticated
	StateAuthenticated
)

func (s SessionState) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "unauthenticated"
	}
}

// Session orchestrates login, logout and user resolution on top of a
// RequestClient and its TokenStore. It owns the resolved user; the credential
// belongs to the TokenStore. A Session is created once per process and passed
// to whatever needs it.
type Session struct {
	client *RequestClient
	tokens *TokenStore
	auth   *AuthClient
	logger zerolog.Logger

	mu      sync.RWMutex
	state   SessionState
	user    *User
	lastErr error

	initOnce sync.Once
	initErr  error
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithSessionLogger sets the logger used for lifecycle events.
func WithSessionLogger(logger zerolog.Logger) SessionOption {
	return func(s *Session) {
		s.logger = logger
	}
}

// NewSession creates a Session in StateLoading. The session shares the
// TokenStore of client and subscribes to its 401 notifications.
func NewSession(client *RequestClient, opts ...SessionOption) *Session {
	s := &Session{
		client: client,
		tokens: client.Tokens(),
		auth:   NewAuthClient(client),
		logger: zerolog.Nop(),
		state:  StateLoading,
	}
	for _, opt := range opts {
		opt(s)
	}
	client.OnUnauthenticated(s.dropUser)
	return s
}

// Client returns the RequestClient backing the session.
func (s *Session) Client() *RequestClient {
	return s.client
}

// State returns the current lifecycle state.
func (s *Session) State() SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// User returns a copy of the resolved user, or nil when unauthenticated.
func (s *Session) User() *User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// IsAuthenticated reports whether a user is resolved.
func (s *Session) IsAuthenticated() bool {
	return s.State() == StateAuthenticated
}

// View routes the resolved user to a top-level view.
func (s *Session) View() ViewKind {
	return Route(s.User())
}

// LastError returns the failure that last moved the session to
// StateUnauthenticated, if any.
func (s *Session) LastError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

// Initialize resolves the stored credential into a user. It runs once; later
// calls return the first result. Resolution failures leave the session
// unauthenticated and are reported through LastError rather than returned:
// a rejected credential has been cleared by the RequestClient, while a
// network failure keeps the credential so a later Refresh can retry.
// Only local storage failures are returned.
func (s *Session) Initialize(ctx context.Context) error {
	s.initOnce.Do(func() {
		s.initErr = s.initialize(ctx)
	})
	return s.initErr
}

func (s *Session) initialize(ctx context.Context) error {
	cred, err := s.tokens.Read()
	if err != nil {
		s.setUnauthenticated(err)
		return err
	}
	if cred == nil {
		s.setUnauthenticated(nil)
		return nil
	}

	user, err := s.auth.Me(ctx)
	if err != nil {
		switch {
		case errors.Is(err, ErrUnauthenticated):
			s.logger.Debug().Err(err).Msg("stored credential rejected; login required")
		case errors.Is(err, ErrNetwork):
			s.logger.Debug().Err(err).Msg("could not reach backend; keeping stored credential")
		default:
			s.logger.Debug().Err(err).Msg("failed to resolve stored credential")
		}
		s.setUnauthenticated(err)
		return nil
	}

	s.setAuthenticated(user)
	return nil
}

// Login authenticates with email and password, stores the returned
// credential and resolves the user. The credential is only written after the
// backend accepts the login, and it is fully stored before the user lookup
// is sent.
func (s *Session) Login(ctx context.Context, email, password string) (*User, error) {
	s.mu.Lock()
	prevState, prevUser := s.state, s.user
	s.state = StateLoading
	s.mu.Unlock()

	resp, err := s.auth.Login(ctx, email, password)
	if err != nil {
		s.restore(prevState, prevUser)
		return nil, err
	}

	if _, err := s.tokens.Store(resp.AccessToken, resp.SessionID, resp.ExpiresInDuration()); err != nil {
		s.restore(prevState, prevUser)
		return nil, err
	}

	user, err := s.auth.Me(ctx)
	if err != nil {
		wrapped := fmt.Errorf("%w: %w", ErrProfileResolutionFailed, err)
		s.setUnauthenticated(wrapped)
		return nil, wrapped
	}

	s.setAuthenticated(user)
	s.logger.Debug().Str("user_id", user.ID).Str("role", user.Role().String()).Msg("login succeeded")
	return s.User(), nil
}

// Logout notifies the backend (best effort) and then clears the local
// credential. The backend call's failure is logged and discarded; only a
// failure to clear local storage is returned.
func (s *Session) Logout(ctx context.Context) error {
	return s.logout(ctx, false)
}

// LogoutEverywhere behaves like Logout but asks the backend to invalidate
// every session of the user.
func (s *Session) LogoutEverywhere(ctx context.Context) error {
	return s.logout(ctx, true)
}

func (s *Session) logout(ctx context.Context, all bool) error {
	cred, err := s.tokens.Read()
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to read credential before logout")
	}
	if cred != nil {
		if _, err := s.auth.Logout(ctx, all); err != nil {
			s.logger.Warn().Err(err).Bool("all_sessions", all).Msg("backend logout failed; clearing local session anyway")
		}
	}

	clearErr := s.tokens.Clear()
	s.setUnauthenticated(nil)
	return clearErr
}

// Refresh re-resolves the user against the backend. A rejected credential
// moves the session to StateUnauthenticated; other failures leave the state
// unchanged.
func (s *Session) Refresh(ctx context.Context) (*User, error) {
	cred, err := s.tokens.Read()
	if err != nil {
		return nil, err
	}
	if cred == nil {
		s.setUnauthenticated(nil)
		return nil, ErrNotLoggedIn
	}

	user, err := s.auth.Me(ctx)
	if err != nil {
		return nil, err
	}
	s.setAuthenticated(user)
	return s.User(), nil
}

// Auth returns the AuthClient used by the session, for session listing and
// revocation.
func (s *Session) Auth() *AuthClient {
	return s.auth
}

func (s *Session) setAuthenticated(user *User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = user
	s.state = StateAuthenticated
	s.lastErr = nil
}

func (s *Session) setUnauthenticated(cause error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = nil
	s.state = StateUnauthenticated
	s.lastErr = cause
}

func (s *Session) restore(state SessionState, user *User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if state == StateLoading {
		state = StateUnauthenticated
	}
	if state == StateAuthenticated && user == nil {
		state = StateUnauthenticated
	}
	s.state = state
	s.user = user
}

// dropUser runs after the RequestClient cleared a rejected credential.
func (s *Session) dropUser() {
	s.setUnauthenticated(ErrUnauthenticated)
}
