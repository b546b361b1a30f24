package sdk

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"
)

const (
	minQueryLength       = 3
	maxQueryLength       = 1000
	defaultMaxCandidates = 10
	maxCandidatesLimit   = 50
	defaultMinConfidence = 0.5
	queryStatusCompleted = "completed"
)

// QueryInput describes a drug repurposing question.
type QueryInput struct {
	Query string
	// MaxCandidates defaults to 10 when zero.
	MaxCandidates int
	// MinConfidence defaults to 0.5 when nil.
	MinConfidence       *float64
	IncludeExperimental bool
}

type queryRequest struct {
	Query               string  `json:"query"`
	MaxCandidates       int     `json:"max_candidates"`
	MinConfidence       float64 `json:"min_confidence"`
	IncludeExperimental bool    `json:"include_experimental"`
}

// Entity is a biomedical entity extracted from the query.
type Entity struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	EntityType string  `json:"entity_type"`
	Confidence float64 `json:"confidence"`
}

// Evidence is a single supporting evidence item.
type Evidence struct {
	EvidenceID   string  `json:"evidence_id"`
	Description  string  `json:"description"`
	EvidenceType string  `json:"evidence_type"`
	Confidence   float64 `json:"confidence"`
	Source       string  `json:"source,omitempty"`
}

// Candidate is a ranked repurposing hypothesis.
type Candidate struct {
	CandidateID      string   `json:"candidate_id"`
	DrugName         string   `json:"drug_name"`
	TargetDisease    string   `json:"target_disease"`
	Hypothesis       string   `json:"hypothesis"`
	MechanismSummary string   `json:"mechanism_summary"`
	OverallScore     float64  `json:"overall_score"`
	Confidence       float64  `json:"confidence"`
	Rank             int      `json:"rank"`
	EvidenceCount    int      `json:"evidence_count"`
	Citations        []string `json:"citations"`
}

// Safety summarises the safety agent's verdict.
type Safety struct {
	Passed        bool     `json:"passed"`
	FlagsCount    int      `json:"flags_count"`
	CriticalCount int      `json:"critical_count"`
	Warnings      []string `json:"warnings"`
}

// QueryResult is the response of POST /agents/query.
type QueryResult struct {
	QueryID        string      `json:"query_id"`
	Status         string      `json:"status"`
	Timestamp      Timestamp   `json:"timestamp"`
	Entities       []Entity    `json:"entities"`
	EvidenceItems  []Evidence  `json:"evidence_items"`
	Candidates     []Candidate `json:"candidates"`
	Safety         *Safety     `json:"safety,omitempty"`
	Approved       bool        `json:"approved"`
	StepsCompleted []string    `json:"steps_completed"`
	Errors         []string    `json:"errors"`
}

// Completed reports whether the workflow finished.
func (r *QueryResult) Completed() bool {
	return r.Status == queryStatusCompleted
}

// ExampleQuery is one of the canned queries offered to researchers.
type ExampleQuery struct {
	Query       string `json:"query"`
	Description string `json:"description,omitempty"`
}

// EntityType is a biomedical entity category the agents recognise.
type EntityType struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	Description string `json:"description,omitempty"`
}

// AgentsClient wraps the /agents endpoints.
type AgentsClient struct {
	rc *RequestClient
}

// NewAgentsClient returns an AgentsClient using rc.
func NewAgentsClient(rc *RequestClient) *AgentsClient {
	return &AgentsClient{rc: rc}
}

// Validate applies defaults and checks the bounds the backend enforces.
func (in *QueryInput) Validate() error {
	in.Query = strings.TrimSpace(in.Query)
	n := utf8.RuneCountInString(in.Query)
	if n < minQueryLength || n > maxQueryLength {
		return fmt.Errorf("query must be between %d and %d characters (got %d)", minQueryLength, maxQueryLength, n)
	}
	if in.MaxCandidates == 0 {
		in.MaxCandidates = defaultMaxCandidates
	}
	if in.MaxCandidates < 1 || in.MaxCandidates > maxCandidatesLimit {
		return fmt.Errorf("max candidates must be between 1 and %d", maxCandidatesLimit)
	}
	if in.MinConfidence == nil {
		v := defaultMinConfidence
		in.MinConfidence = &v
	}
	if *in.MinConfidence < 0 || *in.MinConfidence > 1 {
		return fmt.Errorf("min confidence must be between 0 and 1")
	}
	return nil
}

// SubmitQuery runs the repurposing workflow for input.
func (a *AgentsClient) SubmitQuery(ctx context.Context, input QueryInput) (*QueryResult, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}
	body := queryRequest{
		Query:               input.Query,
		MaxCandidates:       input.MaxCandidates,
		MinConfidence:       *input.MinConfidence,
		IncludeExperimental: input.IncludeExperimental,
	}
	var result QueryResult
	if err := a.rc.Send(ctx, http.MethodPost, "/agents/query", body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ExampleQueries returns the backend's sample queries.
func (a *AgentsClient) ExampleQueries(ctx context.Context) ([]ExampleQuery, error) {
	var resp struct {
		Examples []ExampleQuery `json:"examples"`
	}
	if err := a.rc.Send(ctx, http.MethodGet, "/agents/examples", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Examples, nil
}

// EntityTypes lists the supported entity categories.
func (a *AgentsClient) EntityTypes(ctx context.Context) ([]EntityType, error) {
	var resp struct {
		EntityTypes []EntityType `json:"entity_types"`
	}
	if err := a.rc.Send(ctx, http.MethodGet, "/agents/entities/types", nil, &resp); err != nil {
		return nil, err
	}
	return resp.EntityTypes, nil
}
