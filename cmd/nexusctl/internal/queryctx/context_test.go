package queryctx

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const testServer = "http://localhost:8000/api/v1"

func validContext() *QueryContext {
	return &QueryContext{
		Version:   FileVersion,
		QueryID:   "q-1a2b3c4d",
		Query:     "metformin for breast cancer",
		ServerURL: testServer,
		CreatedAt: time.Now().UTC(),
	}
}

func TestValidateValidContext(t *testing.T) {
	if err := validContext().Validate(); err != nil {
		t.Fatalf("expected valid context, got error: %v", err)
	}
}

func TestValidateErrors(t *testing.T) {
	cases := []struct {
		name string
		ctx  QueryContext
	}{
		{"wrong_version", QueryContext{Version: "999", QueryID: "q-1", ServerURL: testServer}},
		{"missing_query_id", QueryContext{Version: FileVersion, ServerURL: testServer}},
		{"blank_query_id", QueryContext{Version: FileVersion, QueryID: "  ", ServerURL: testServer}},
		{"missing_server", QueryContext{Version: FileVersion, QueryID: "q-1"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.ctx.Validate(); err == nil {
				t.Fatalf("expected error for %s", tc.name)
			}
		})
	}
}

func TestReadMissingReturnsNil(t *testing.T) {
	ctx, err := Read(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ctx != nil {
		t.Fatalf("expected nil context when %s missing", FileName)
	}
}

func TestWriteAndRead_RoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "default")
	qc := validContext()
	if err := Write(dir, qc); err != nil {
		t.Fatalf("write: %v", err)
	}

	info, err := os.Stat(filepath.Join(dir, FileName))
	if err != nil {
		t.Fatalf("%s not written: %v", FileName, err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("expected mode 0600, got %v", info.Mode().Perm())
	}
	if _, err := os.Stat(filepath.Join(dir, FileName+".tmp")); !os.IsNotExist(err) {
		t.Fatalf("temp file left behind")
	}

	got, err := Read(dir)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got == nil {
		t.Fatalf("expected non-nil context")
	}
	if got.QueryID != qc.QueryID || got.ServerURL != qc.ServerURL || got.Query != qc.Query {
		t.Fatalf("mismatch after round trip: %+v vs %+v", got, qc)
	}
}

func TestWriteRejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	if err := Write(dir, &QueryContext{Version: "bad"}); err == nil {
		t.Fatalf("expected error writing invalid context")
	}
	if _, err := os.Stat(filepath.Join(dir, FileName)); !os.IsNotExist(err) {
		t.Fatalf("invalid context should not be written")
	}
}

func TestReadCorruptedJSON(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte("{not-json}"), 0o600); err != nil {
		t.Fatalf("write corrupt: %v", err)
	}
	if ctx, err := Read(dir); err == nil || ctx != nil {
		t.Fatalf("expected error and nil context for corrupt JSON")
	}
}

func TestReadInvalidVersion(t *testing.T) {
	dir := t.TempDir()
	body := `{"version":"2","query_id":"q-1","server_url":"` + testServer + `"}`
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, err := Read(dir)
	if err == nil || !strings.Contains(err.Error(), "unsupported") {
		t.Fatalf("expected version error, got %v", err)
	}
}

func TestResolve(t *testing.T) {
	stored := validContext()

	cases := []struct {
		name     string
		explicit string
		stored   *QueryContext
		server   string
		want     string
		wantErr  bool
	}{
		{"explicit_wins", "q-explicit", stored, testServer, "q-explicit", false},
		{"falls_back_to_context", "", stored, testServer, stored.QueryID, false},
		{"blank_explicit_uses_context", "  ", stored, testServer, stored.QueryID, false},
		{"other_server_ignored", "", stored, "https://nexus.example.org/api/v1", "", true},
		{"nothing_available", "", nil, testServer, "", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Resolve(tc.explicit, tc.stored, tc.server)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("got %q, want %q", got, tc.want)
			}
		})
	}
}
