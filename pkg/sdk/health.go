package sdk

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// HealthStatus is the body of GET /health, served outside the API prefix.
type HealthStatus struct {
	Status   string          `json:"status"`
	Version  string          `json:"version"`
	Services map[string]bool `json:"services"`
}

// Healthy reports whether the backend declared itself healthy.
func (h *HealthStatus) Healthy() bool {
	return h.Status == "healthy"
}

// Health checks the backend without credentials.
func (c *RequestClient) Health(ctx context.Context) (*HealthStatus, error) {
	resp, err := c.do(ctx, http.MethodGet, c.rootURL("/health"), "/health", nil, false, "application/json")
	if err != nil {
		return nil, err
	}
	var status HealthStatus
	if err := json.Unmarshal(resp.body, &status); err != nil {
		return nil, fmt.Errorf("failed to decode health response: %w", err)
	}
	return &status, nil
}
