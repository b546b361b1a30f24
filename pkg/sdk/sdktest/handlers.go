package sdktest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/Ayushhgit/biomind-nexus/pkg/sdk"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, sdk.HealthStatus{
		Status:   "healthy",
		Version:  "0.1.0",
		Services: map[string]bool{"database": true, "neo4j": false, "cassandra": false},
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "Invalid request body")
		return
	}

	s.mu.Lock()
	user := s.users[strings.ToLower(body.Email)]
	s.mu.Unlock()
	if user == nil || bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(body.Password)) != nil {
		writeDetail(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	if !user.IsActive {
		writeDetail(w, http.StatusUnauthorized, "Account is inactive")
		return
	}

	now := time.Now().UTC()
	sess := &fakeSession{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.TokenTTL),
		LastSeen:  now,
		Valid:     true,
		UserAgent: r.UserAgent(),
	}
	token, err := s.issueToken(user, sess)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, "Failed to issue token")
		return
	}

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, sdk.LoginResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   int64(s.TokenTTL / time.Second),
		SessionID:   sess.ID,
	})
}

func (s *Server) issueToken(user *fakeUser, sess *fakeSession) (string, error) {
	claims := sdk.TokenClaims{
		Role:      user.Role,
		SessionID: sess.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(sess.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(sess.ExpiresAt),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	var body struct {
		AllSessions bool `json:"all_sessions"`
	}
	if r.ContentLength > 0 {
		_ = json.NewDecoder(r.Body).Decode(&body)
	}
	current := s.currentSession(r)

	s.mu.Lock()
	count := 0
	for _, sess := range s.sessions {
		if !sess.Valid {
			continue
		}
		if sess.ID == current.ID || (body.AllSessions && sess.UserID == current.UserID) {
			sess.Valid = false
			count++
		}
	}
	s.mu.Unlock()

	msg := "Session invalidated"
	if body.AllSessions {
		msg = "All sessions invalidated"
	}
	writeJSON(w, http.StatusOK, sdk.LogoutResponse{Message: msg, SessionsInvalidated: count})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	user := s.currentUser(r)
	if user == nil {
		writeDetail(w, http.StatusNotFound, "User not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":         user.ID,
		"email":      user.Email,
		"role":       user.Role,
		"is_active":  user.IsActive,
		"created_at": user.CreatedAt.Format("2006-01-02T15:04:05.000000"),
	})
}

func (s *Server) handleListOwnSessions(w http.ResponseWriter, r *http.Request) {
	current := s.currentSession(r)
	s.mu.Lock()
	list := sdk.SessionList{Sessions: []sdk.SessionInfo{}}
	for _, sess := range s.sessions {
		if !sess.Valid || sess.UserID != current.UserID {
			continue
		}
		list.Sessions = append(list.Sessions, sdk.SessionInfo{
			SessionID: sess.ID,
			IssuedAt:  sdk.Timestamp{Time: sess.IssuedAt},
			LastSeen:  sdk.Timestamp{Time: sess.LastSeen},
			UserAgent: sess.UserAgent,
			IsCurrent: sess.ID == current.ID,
		})
	}
	s.mu.Unlock()
	sort.Slice(list.Sessions, func(i, j int) bool {
		return list.Sessions[i].IssuedAt.Before(list.Sessions[j].IssuedAt.Time)
	})
	list.Total = len(list.Sessions)
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleRevokeOwnSession(w http.ResponseWriter, r *http.Request) {
	current := s.currentSession(r)
	user := s.currentUser(r)
	target := chi.URLParam(r, "sessionID")

	s.mu.Lock()
	sess, ok := s.sessions[target]
	if !ok {
		s.mu.Unlock()
		writeDetail(w, http.StatusNotFound, "Session not found")
		return
	}
	if sess.UserID != current.UserID && sdk.ParseRole(user.Role) != sdk.RoleAdmin {
		s.mu.Unlock()
		writeDetail(w, http.StatusForbidden, "Cannot revoke another user's session")
		return
	}
	sess.Valid = false
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, sdk.MessageResponse{Message: "Session revoked"})
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Query               string  `json:"query"`
		MaxCandidates       int     `json:"max_candidates"`
		MinConfidence       float64 `json:"min_confidence"`
		IncludeExperimental bool    `json:"include_experimental"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || len(body.Query) < 3 {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"detail": []map[string]any{{"loc": []string{"body", "query"}, "msg": "String should have at least 3 characters"}},
		})
		return
	}

	id := "q-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	result := &sdk.QueryResult{
		QueryID:   id,
		Status:    "completed",
		Timestamp: sdk.Timestamp{Time: time.Now().UTC()},
		Entities: []sdk.Entity{
			{ID: "drug:metformin", Name: "Metformin", EntityType: "drug", Confidence: 0.95},
			{ID: "disease:breast_cancer", Name: "Breast Cancer", EntityType: "disease", Confidence: 0.9},
		},
		Candidates: []sdk.Candidate{{
			CandidateID:      "c-1",
			DrugName:         "Metformin",
			TargetDisease:    "Breast Cancer",
			Hypothesis:       "Metformin may inhibit tumour growth via AMPK activation",
			MechanismSummary: "AMPK activation suppresses mTOR signalling",
			OverallScore:     0.82,
			Confidence:       0.78,
			Rank:             1,
			EvidenceCount:    2,
			Citations:        []string{"12345678"},
		}},
		Safety:         &sdk.Safety{Passed: true},
		Approved:       true,
		StepsCompleted: []string{"entity_extraction", "literature", "reasoning", "ranking", "safety"},
	}
	if body.MaxCandidates > 0 && len(result.Candidates) > body.MaxCandidates {
		result.Candidates = result.Candidates[:body.MaxCandidates]
	}

	s.mu.Lock()
	s.queries[id] = result
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleExamples(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"examples": []sdk.ExampleQuery{
			{Query: "Can metformin be repurposed for breast cancer treatment?", Description: "Classic example"},
			{Query: "Can existing HIV medications be used for COVID-19?", Description: "Viral disease repurposing"},
		},
	})
}

func (s *Server) handleEntityTypes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"entity_types": []sdk.EntityType{
			{ID: "drug", Label: "Drug/Compound"},
			{ID: "disease", Label: "Disease/Condition"},
			{ID: "gene", Label: "Gene"},
		},
	})
}

func (s *Server) lookupQuery(w http.ResponseWriter, r *http.Request) *sdk.QueryResult {
	id := chi.URLParam(r, "queryID")
	s.mu.Lock()
	q := s.queries[id]
	s.mu.Unlock()
	if q == nil {
		writeDetail(w, http.StatusNotFound, fmt.Sprintf("Query %s not found", id))
	}
	return q
}

func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	q := s.lookupQuery(w, r)
	if q == nil {
		return
	}
	user := s.currentUser(r)
	steps := make([]sdk.AuditStep, 0, len(q.StepsCompleted))
	for _, step := range q.StepsCompleted {
		steps = append(steps, sdk.AuditStep{StepName: step, Status: "completed", Timestamp: q.Timestamp})
	}
	writeJSON(w, http.StatusOK, sdk.AuditTrail{
		WorkflowID:        q.QueryID,
		SessionID:         s.currentSession(r).ID,
		Timestamp:         q.Timestamp,
		UserRole:          user.Role,
		StepsExecuted:     steps,
		SafetyDecision:    "approved",
		ConfidenceSummary: 0.78,
		SystemVersion:     "1.0.0",
		ModelIdentifiers:  map[string]string{"encoder": "biobert"},
	})
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	q := s.lookupQuery(w, r)
	if q == nil {
		return
	}
	writeJSON(w, http.StatusOK, sdk.ReasoningGraph{
		QueryID: q.QueryID,
		Drug:    "Metformin",
		Disease: "Breast Cancer",
		Nodes: []sdk.GraphNode{
			{ID: "drug:metformin", Label: "Metformin", NodeType: "drug"},
			{ID: "target:ampk", Label: "AMPK", NodeType: "target"},
			{ID: "pathway:mtor", Label: "mTOR signalling", NodeType: "pathway"},
			{ID: "disease:breast_cancer", Label: "Breast Cancer", NodeType: "disease"},
		},
		Edges: []sdk.GraphEdge{
			{Source: "drug:metformin", Target: "target:ampk", Relation: "ACTIVATES", Confidence: 0.9, PMID: "12345678"},
			{Source: "target:ampk", Target: "pathway:mtor", Relation: "INHIBITS", Confidence: 0.8},
			{Source: "pathway:mtor", Target: "disease:breast_cancer", Relation: "IMPLICATED_IN", Confidence: 0.7},
		},
		PathCount:     1,
		MaxConfidence: 0.9,
	})
}

func (s *Server) handleCitations(w http.ResponseWriter, r *http.Request) {
	q := s.lookupQuery(w, r)
	if q == nil {
		return
	}
	year := 2019
	writeJSON(w, http.StatusOK, sdk.Citations{
		QueryID: q.QueryID,
		Citations: []sdk.Citation{{
			PMID:         "12345678",
			Title:        "Metformin and breast cancer outcomes",
			Year:         &year,
			Authors:      []string{"Smith J", "Doe A"},
			EvidenceRole: "ACTIVATES",
			Confidence:   0.9,
			URL:          "https://pubmed.ncbi.nlm.nih.gov/12345678/",
		}},
		TotalCount: 1,
	})
}

// PDFMagic is the body served by the fake PDF endpoint.
var PDFMagic = []byte("%PDF-1.4\n%fake report\n")

func (s *Server) handlePDF(w http.ResponseWriter, r *http.Request) {
	if q := s.lookupQuery(w, r); q == nil {
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(PDFMagic)
}

func (s *Server) handleAuditLogs(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	size, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
	if page < 1 || size < 10 || size > 100 {
		writeDetail(w, http.StatusUnprocessableEntity, "Invalid pagination")
		return
	}
	eventType := r.URL.Query().Get("event_type")
	entry := sdk.AuditLogEntry{
		EventID:   uuid.NewString(),
		Timestamp: sdk.Timestamp{Time: time.Now().UTC()},
		EventType: "auth.login.success",
		UserID:    s.currentSession(r).UserID,
		Action:    "success",
		Details:   map[string]any{"session_id": s.currentSession(r).ID},
	}
	logs := []sdk.AuditLogEntry{}
	if eventType == "" || eventType == entry.EventType {
		logs = append(logs, entry)
	}
	writeJSON(w, http.StatusOK, sdk.AuditLogPage{Logs: logs, Total: len(logs), Page: page, PageSize: size})
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	list := sdk.UserList{Users: []sdk.ManagedUser{}}
	for _, u := range s.users {
		list.Users = append(list.Users, sdk.ManagedUser{
			ID:        u.ID,
			Email:     u.Email,
			RawRole:   u.Role,
			IsActive:  u.IsActive,
			CreatedAt: sdk.Timestamp{Time: u.CreatedAt},
		})
	}
	s.mu.Unlock()
	sort.Slice(list.Users, func(i, j int) bool { return list.Users[i].Email < list.Users[j].Email })
	list.Total = len(list.Users)
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	target := chi.URLParam(r, "userID")
	var update sdk.UserUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "Invalid request body")
		return
	}
	admin := s.currentUser(r)

	s.mu.Lock()
	defer s.mu.Unlock()
	user := s.userByIDLocked(target)
	if user == nil {
		writeDetail(w, http.StatusNotFound, "User not found")
		return
	}
	if admin.ID == target && update.IsActive != nil && !*update.IsActive {
		writeDetail(w, http.StatusBadRequest, "Cannot deactivate your own account")
		return
	}
	if update.IsActive != nil {
		user.IsActive = *update.IsActive
	}
	if update.Role != nil {
		if sdk.ParseRole(*update.Role) == sdk.RoleUnknown {
			writeDetail(w, http.StatusBadRequest, "Invalid role: "+*update.Role)
			return
		}
		user.Role = *update.Role
	}
	writeJSON(w, http.StatusOK, sdk.MessageResponse{Message: "User updated", UserID: target})
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var body sdk.NewUser
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "Invalid request body")
		return
	}
	if len(body.Password) < 8 {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"detail": []map[string]any{{"loc": []string{"body", "password"}, "msg": "Password must be at least 8 characters"}},
		})
		return
	}
	if body.Role == "" {
		body.Role = "researcher"
	}

	email := strings.ToLower(body.Email)
	s.mu.Lock()
	_, exists := s.users[email]
	s.mu.Unlock()
	if exists {
		writeDetail(w, http.StatusConflict, "Email already registered")
		return
	}

	id := s.AddUser(email, body.Password, body.Role)
	s.mu.Lock()
	user := s.users[email]
	s.mu.Unlock()
	writeJSON(w, http.StatusCreated, sdk.CreatedUser{
		ID:        id,
		Email:     user.Email,
		RawRole:   user.Role,
		CreatedAt: sdk.Timestamp{Time: user.CreatedAt},
	})
}

func (s *Server) handleRevokeUserSessions(w http.ResponseWriter, r *http.Request) {
	target := chi.URLParam(r, "userID")
	s.mu.Lock()
	count := 0
	for _, sess := range s.sessions {
		if sess.UserID == target && sess.Valid {
			sess.Valid = false
			count++
		}
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, sdk.MessageResponse{Message: fmt.Sprintf("Revoked %d sessions", count), UserID: target})
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	list := sdk.ActiveSessionList{Sessions: []sdk.ActiveSession{}}
	now := time.Now()
	for _, sess := range s.sessions {
		if !sess.Valid || now.After(sess.ExpiresAt) {
			continue
		}
		email := ""
		if u := s.userByIDLocked(sess.UserID); u != nil {
			email = u.Email
		}
		list.Sessions = append(list.Sessions, sdk.ActiveSession{
			SessionID: sess.ID,
			UserEmail: email,
			IssuedAt:  sdk.Timestamp{Time: sess.IssuedAt},
			ExpiresAt: sdk.Timestamp{Time: sess.ExpiresAt},
			LastSeen:  sdk.Timestamp{Time: sess.LastSeen},
		})
	}
	s.mu.Unlock()
	sort.Slice(list.Sessions, func(i, j int) bool {
		return list.Sessions[i].LastSeen.After(list.Sessions[j].LastSeen.Time)
	})
	list.Total = len(list.Sessions)
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleRevokeSession(w http.ResponseWriter, r *http.Request) {
	target := chi.URLParam(r, "sessionID")
	s.mu.Lock()
	sess, ok := s.sessions[target]
	if ok {
		sess.Valid = false
	}
	s.mu.Unlock()
	if !ok {
		writeDetail(w, http.StatusNotFound, "Session not found")
		return
	}
	writeJSON(w, http.StatusOK, sdk.MessageResponse{Message: "Session revoked"})
}
