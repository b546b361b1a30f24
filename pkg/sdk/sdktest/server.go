// Package sdktest provides an in-process fake of the BioMind Nexus backend
// for exercising the SDK and CLI against real HTTP.
package sdktest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/Ayushhgit/biomind-nexus/pkg/sdk"
)

// APIPrefix is where the fake mounts the API, mirroring the real backend.
const APIPrefix = "/api/v1"

type fakeUser struct {
	ID           string
	Email        string
	Role         string
	IsActive     bool
	PasswordHash []byte
	CreatedAt    time.Time
}

type fakeSession struct {
	ID        string
	UserID    string
	IssuedAt  time.Time
	ExpiresAt time.Time
	LastSeen  time.Time
	Valid     bool
	UserAgent string
}

type fault struct {
	status int
	detail string
	delay  time.Duration
}

// Server is a fake backend. Routes are keyed as "METHOD /path" relative to
// APIPrefix, e.g. "POST /auth/logout".
type Server struct {
	*httptest.Server

	// TokenTTL is the expires_in returned by login.
	TokenTTL time.Duration

	secret []byte

	mu       sync.Mutex
	users    map[string]*fakeUser
	sessions map[string]*fakeSession
	queries  map[string]*sdk.QueryResult
	faults   map[string]fault
	calls    map[string]int
	headers  map[string]http.Header
}

type ctxKey struct{}

// NewServer starts a fake backend and stops it when t finishes.
func NewServer(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		TokenTTL: time.Hour,
		secret:   []byte(uuid.NewString()),
		users:    map[string]*fakeUser{},
		sessions: map[string]*fakeSession{},
		queries:  map[string]*sdk.QueryResult{},
		faults:   map[string]fault{},
		calls:    map[string]int{},
		headers:  map[string]http.Header{},
	}
	s.Server = httptest.NewServer(s.routes())
	t.Cleanup(s.Close)
	return s
}

// BaseURL returns the API root to hand to sdk.NewRequestClient.
func (s *Server) BaseURL() string {
	return s.URL + APIPrefix
}

// AddUser registers an active user and returns its id.
func (s *Server) AddUser(email, password, role string) string {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	u := &fakeUser{
		ID:           uuid.NewString(),
		Email:        strings.ToLower(email),
		Role:         role,
		IsActive:     true,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}
	s.mu.Lock()
	s.users[u.Email] = u
	s.mu.Unlock()
	return u.ID
}

// Fail makes route answer with status and detail until cleared with
// Fail(route, 0, "").
func (s *Server) Fail(route string, status int, detail string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if status == 0 {
		delete(s.faults, route)
		return
	}
	s.faults[route] = fault{status: status, detail: detail}
}

// Delay makes route sleep for d (or until the request is cancelled) before
// answering.
func (s *Server) Delay(route string, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f := s.faults[route]
	f.delay = d
	s.faults[route] = f
}

// Calls returns how many times route was requested.
func (s *Server) Calls(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[route]
}

// TotalCalls returns the number of requests received on any route.
func (s *Server) TotalCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		n += c
	}
	return n
}

// LastHeaders returns the headers of the most recent request to route.
func (s *Server) LastHeaders(route string) http.Header {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.headers[route].Clone()
}

// RevokeAllSessions invalidates every server-side session.
func (s *Server) RevokeAllSessions() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sess := range s.sessions {
		sess.Valid = false
	}
}

// SessionValid reports whether the session exists and is still valid.
func (s *Server) SessionValid(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	return ok && sess.Valid
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.intercept)
	r.Get("/health", s.handleHealth)

	r.Route(APIPrefix, func(r chi.Router) {
		r.Post("/auth/login", s.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)
			r.Post("/auth/logout", s.handleLogout)
			r.Get("/auth/me", s.handleMe)
			r.Get("/auth/sessions", s.handleListOwnSessions)
			r.Delete("/auth/sessions/{sessionID}", s.handleRevokeOwnSession)
			r.With(s.requireAdmin).Post("/auth/users", s.handleCreateUser)

			r.Post("/agents/query", s.handleQuery)
			r.Get("/agents/examples", s.handleExamples)
			r.Get("/agents/entities/types", s.handleEntityTypes)

			r.Get("/reports/{queryID}/audit", s.handleAudit)
			r.Get("/reports/{queryID}/graph", s.handleGraph)
			r.Get("/reports/{queryID}/citations", s.handleCitations)
			r.Get("/reports/{queryID}/pdf", s.handlePDF)

			r.Route("/admin", func(r chi.Router) {
				r.Use(s.requireAdmin)
				r.Get("/audit/logs", s.handleAuditLogs)
				r.Get("/users", s.handleListUsers)
				r.Put("/users/{userID}", s.handleUpdateUser)
				r.Post("/users/{userID}/revoke-sessions", s.handleRevokeUserSessions)
				r.Get("/sessions", s.handleListSessions)
				r.Delete("/sessions/{sessionID}", s.handleRevokeSession)
			})
		})
	})
	return r
}

// intercept records calls and applies injected faults.
func (s *Server) intercept(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := r.Method + " " + strings.TrimPrefix(r.URL.Path, APIPrefix)

		s.mu.Lock()
		s.calls[route]++
		s.headers[route] = r.Header.Clone()
		f, faulty := s.faults[route]
		s.mu.Unlock()

		if faulty && f.delay > 0 {
			select {
			case <-time.After(f.delay):
			case <-r.Context().Done():
				return
			}
		}
		if faulty && f.status != 0 {
			writeDetail(w, f.status, f.detail)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || raw == "" {
			writeDetail(w, http.StatusUnauthorized, "Missing authentication token")
			return
		}
		sessionID := r.Header.Get(sdk.HeaderSessionID)
		if sessionID == "" {
			writeDetail(w, http.StatusUnauthorized, "Missing session ID")
			return
		}

		claims := &sdk.TokenClaims{}
		_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
			return s.secret, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil {
			writeDetail(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}
		if claims.SessionID != sessionID {
			writeDetail(w, http.StatusUnauthorized, "Session mismatch")
			return
		}

		s.mu.Lock()
		sess, ok := s.sessions[sessionID]
		valid := ok && sess.Valid && time.Now().Before(sess.ExpiresAt)
		if valid {
			sess.LastSeen = time.Now().UTC()
		}
		s.mu.Unlock()
		if !valid {
			writeDetail(w, http.StatusUnauthorized, "Session expired or invalid")
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, sess)))
	})
}

func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := s.currentUser(r)
		if user == nil || sdk.ParseRole(user.Role) != sdk.RoleAdmin {
			writeDetail(w, http.StatusForbidden, "Admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) currentSession(r *http.Request) *fakeSession {
	sess, _ := r.Context().Value(ctxKey{}).(*fakeSession)
	return sess
}

func (s *Server) currentUser(r *http.Request) *fakeUser {
	sess := s.currentSession(r)
	if sess == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userByIDLocked(sess.UserID)
}

func (s *Server) userByIDLocked(id string) *fakeUser {
	for _, u := range s.users {
		if u.ID == id {
			return u
		}
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	if detail == "" {
		w.WriteHeader(status)
		return
	}
	writeJSON(w, status, map[string]string{"detail": detail})
}
