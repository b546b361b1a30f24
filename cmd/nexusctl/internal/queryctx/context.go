package queryctx

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	// FileName is the name of the context file inside a profile directory
	FileName = "last_query.json"
	// FileVersion is the current schema version
	FileVersion = "1"
)

// QueryContext remembers the most recent query submitted from a profile so
// report commands can omit the query id.
type QueryContext struct {
	Version   string    `json:"version"`
	QueryID   string    `json:"query_id"`
	Query     string    `json:"query"`
	ServerURL string    `json:"server_url"`
	CreatedAt time.Time `json:"created_at"`
}

// Validate checks if the QueryContext is valid
func (qc *QueryContext) Validate() error {
	if qc.Version != FileVersion {
		return fmt.Errorf("unsupported %s version: %s (expected %s)", FileName, qc.Version, FileVersion)
	}
	if strings.TrimSpace(qc.QueryID) == "" {
		return fmt.Errorf("query_id is required")
	}
	if qc.ServerURL == "" {
		return fmt.Errorf("server_url is required")
	}
	return nil
}

// Read loads the context stored in dir.
// Returns nil, nil if the file doesn't exist
// Returns nil, error if the file is corrupted or invalid
func Read(dir string) (*QueryContext, error) {
	data, err := os.ReadFile(filepath.Join(dir, FileName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", FileName, err)
	}

	var qc QueryContext
	if err := json.Unmarshal(data, &qc); err != nil {
		return nil, fmt.Errorf("corrupted %s (invalid JSON): %w", FileName, err)
	}
	if err := qc.Validate(); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", FileName, err)
	}
	return &qc, nil
}

// Write stores qc in dir using a temp file and rename.
func Write(dir string, qc *QueryContext) error {
	if err := qc.Validate(); err != nil {
		return fmt.Errorf("invalid context: %w", err)
	}

	data, err := json.MarshalIndent(qc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal context: %w", err)
	}
	data = append(data, '\n')

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}
	path := filepath.Join(dir, FileName)
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename %s: %w", tmpPath, err)
	}
	return nil
}

// Resolve picks the query id for a report command:
// 1. An explicit argument takes priority
// 2. The stored context, if it was recorded against serverURL
// 3. Error if neither is available
func Resolve(explicit string, stored *QueryContext, serverURL string) (string, error) {
	if id := strings.TrimSpace(explicit); id != "" {
		return id, nil
	}
	if stored != nil && stored.ServerURL == serverURL {
		return stored.QueryID, nil
	}
	return "", fmt.Errorf("query id required: pass it as an argument or run 'nexusctl query submit' first")
}
