package sdk

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strings"
)

// AuditStep is one workflow step recorded for a query.
type AuditStep struct {
	StepName   string    `json:"step_name"`
	Status     string    `json:"status"`
	Timestamp  Timestamp `json:"timestamp"`
	DurationMs *int      `json:"duration_ms,omitempty"`
}

// AuditTrail is the governance record of a query.
type AuditTrail struct {
	WorkflowID        string            `json:"workflow_id"`
	SessionID         string            `json:"session_id,omitempty"`
	Timestamp         Timestamp         `json:"timestamp"`
	UserRole          string            `json:"user_role"`
	StepsExecuted     []AuditStep       `json:"steps_executed"`
	SafetyDecision    string            `json:"safety_decision"`
	SafetyReason      string            `json:"safety_reason,omitempty"`
	ConfidenceSummary float64           `json:"confidence_summary"`
	SystemVersion     string            `json:"system_version"`
	ModelIdentifiers  map[string]string `json:"model_identifiers"`
}

// GraphNode is a node of the reasoning subgraph.
type GraphNode struct {
	ID       string         `json:"id"`
	Label    string         `json:"label"`
	NodeType string         `json:"node_type"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// GraphEdge is a relation of the reasoning subgraph.
type GraphEdge struct {
	Source     string  `json:"source"`
	Target     string  `json:"target"`
	Relation   string  `json:"relation"`
	Confidence float64 `json:"confidence"`
	PMID       string  `json:"pmid,omitempty"`
}

// ReasoningGraph holds the accepted reasoning paths of a query.
type ReasoningGraph struct {
	QueryID       string      `json:"query_id"`
	Drug          string      `json:"drug"`
	Disease       string      `json:"disease"`
	Nodes         []GraphNode `json:"nodes"`
	Edges         []GraphEdge `json:"edges"`
	PathCount     int         `json:"path_count"`
	MaxConfidence float64     `json:"max_confidence"`
}

// Citation is a publication supporting a result.
type Citation struct {
	PMID         string   `json:"pmid"`
	Title        string   `json:"title"`
	Year         *int     `json:"year,omitempty"`
	Authors      []string `json:"authors"`
	EvidenceRole string   `json:"evidence_role"`
	Confidence   float64  `json:"confidence"`
	URL          string   `json:"url"`
}

// Citations is the body of GET /reports/{id}/citations.
type Citations struct {
	QueryID    string     `json:"query_id"`
	Citations  []Citation `json:"citations"`
	TotalCount int        `json:"total_count"`
}

// ReportsClient wraps the /reports endpoints.
type ReportsClient struct {
	rc *RequestClient
}

// NewReportsClient returns a ReportsClient using rc.
func NewReportsClient(rc *RequestClient) *ReportsClient {
	return &ReportsClient{rc: rc}
}

func reportPath(queryID, leaf string) (string, error) {
	queryID = strings.TrimSpace(queryID)
	if queryID == "" {
		return "", fmt.Errorf("query id is required")
	}
	return "/reports/" + url.PathEscape(queryID) + "/" + leaf, nil
}

// AuditTrail fetches the workflow audit record of a query.
func (r *ReportsClient) AuditTrail(ctx context.Context, queryID string) (*AuditTrail, error) {
	path, err := reportPath(queryID, "audit")
	if err != nil {
		return nil, err
	}
	var out AuditTrail
	if err := r.rc.Send(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ReasoningGraph fetches the reasoning subgraph of a query.
func (r *ReportsClient) ReasoningGraph(ctx context.Context, queryID string) (*ReasoningGraph, error) {
	path, err := reportPath(queryID, "graph")
	if err != nil {
		return nil, err
	}
	var out ReasoningGraph
	if err := r.rc.Send(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Citations fetches the citations supporting a query result.
func (r *ReportsClient) Citations(ctx context.Context, queryID string) (*Citations, error) {
	path, err := reportPath(queryID, "citations")
	if err != nil {
		return nil, err
	}
	var out Citations
	if err := r.rc.Send(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PDF downloads the PDF report of a query.
func (r *ReportsClient) PDF(ctx context.Context, queryID string) ([]byte, error) {
	path, err := reportPath(queryID, "pdf")
	if err != nil {
		return nil, err
	}
	data, contentType, err := r.rc.Download(ctx, path)
	if err != nil {
		return nil, err
	}
	if contentType != "" && !strings.HasPrefix(contentType, "application/pdf") {
		return nil, fmt.Errorf("GET %s: unexpected content type %q", path, contentType)
	}
	return data, nil
}

// Point is a 2D position.
type Point struct {
	X float64
	Y float64
}

// CircularLayout places the graph's nodes evenly on a circle of the given
// radius centred on the origin, in response order, starting at the top and
// moving clockwise. A single node sits at the centre.
func CircularLayout(graph *ReasoningGraph, radius float64) map[string]Point {
	if graph == nil || len(graph.Nodes) == 0 {
		return map[string]Point{}
	}
	positions := make(map[string]Point, len(graph.Nodes))
	if len(graph.Nodes) == 1 {
		positions[graph.Nodes[0].ID] = Point{}
		return positions
	}
	step := 2 * math.Pi / float64(len(graph.Nodes))
	for i, node := range graph.Nodes {
		angle := float64(i)*step - math.Pi/2
		positions[node.ID] = Point{
			X: radius * math.Cos(angle),
			Y: radius * math.Sin(angle),
		}
	}
	return positions
}
