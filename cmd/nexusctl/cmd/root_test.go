package cmd_test

import (
	"bytes"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ayushhgit/biomind-nexus/cmd/nexusctl/cmd"
	"github.com/Ayushhgit/biomind-nexus/cmd/nexusctl/cmd/cmdutil"
	"github.com/Ayushhgit/biomind-nexus/pkg/sdk"
	"github.com/Ayushhgit/biomind-nexus/pkg/sdk/sdktest"
)

type harness struct {
	t         *testing.T
	srv       *sdktest.Server
	configDir string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("NEXUS_CONFIG_DIR", dir)
	t.Setenv("SHELL", "/bin/bash")
	return &harness{t: t, srv: sdktest.NewServer(t), configDir: dir}
}

// run executes nexusctl with args against the fake backend and returns stdout.
func (h *harness) run(stdin string, args ...string) (string, error) {
	h.t.Helper()
	root := cmd.NewRootCmd()
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append([]string{"--server", h.srv.BaseURL(), "--non-interactive"}, args...))
	err := root.Execute()
	return stdout.String(), err
}

func (h *harness) login(email, role string) {
	h.t.Helper()
	h.srv.AddUser(email, "s3cret", role)
	out, err := h.run("s3cret\n", "auth", "login", "--email", email, "--password-stdin")
	require.NoError(h.t, err)
	require.Contains(h.t, out, "Logged in as "+email)
}

func (h *harness) credentialsPath() string {
	return filepath.Join(h.configDir, "default", "credentials.json")
}

func TestLogin_StoresCredentials(t *testing.T) {
	h := newHarness(t)
	h.login("alice@example.com", "researcher")

	info, err := os.Stat(h.credentialsPath())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	out, err := h.run("", "auth", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "alice@example.com")
	assert.Contains(t, out, "researcher")
}

func TestLogin_InvalidPassword(t *testing.T) {
	h := newHarness(t)
	h.srv.AddUser("alice@example.com", "s3cret", "researcher")

	_, err := h.run("wrong\n", "auth", "login", "--email", "alice@example.com", "--password-stdin")
	require.Error(t, err)
	assert.ErrorIs(t, err, sdk.ErrInvalidCredentials)

	_, statErr := os.Stat(h.credentialsPath())
	assert.True(t, os.IsNotExist(statErr))
}

func TestLogin_NonInteractiveRequiresFlags(t *testing.T) {
	h := newHarness(t)

	_, err := h.run("", "auth", "login")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--email is required")

	_, err = h.run("", "auth", "login", "--email", "alice@example.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--password-stdin is required")
}

func TestStatus_NotLoggedIn(t *testing.T) {
	h := newHarness(t)

	_, err := h.run("", "auth", "status")
	assert.ErrorIs(t, err, cmdutil.ErrLoginRequired)
}

func TestLogout_RemovesCredentials(t *testing.T) {
	h := newHarness(t)
	h.login("alice@example.com", "researcher")

	out, err := h.run("", "auth", "logout")
	require.NoError(t, err)
	assert.Contains(t, out, "Logged out")
	assert.Equal(t, 1, h.srv.Calls("POST /auth/logout"))

	_, statErr := os.Stat(h.credentialsPath())
	assert.True(t, os.IsNotExist(statErr))
}

func TestLogout_ServerFailureStillClearsLocally(t *testing.T) {
	h := newHarness(t)
	h.login("alice@example.com", "researcher")
	h.srv.Fail("POST /auth/logout", http.StatusInternalServerError, "boom")

	_, err := h.run("", "auth", "logout", "--all")
	require.NoError(t, err)

	_, statErr := os.Stat(h.credentialsPath())
	assert.True(t, os.IsNotExist(statErr))
}

func TestHome_RoutesByRole(t *testing.T) {
	t.Run("admin", func(t *testing.T) {
		h := newHarness(t)
		h.login("root@example.com", "admin")

		out, err := h.run("", "home")
		require.NoError(t, err)
		assert.Contains(t, out, "Administration")
		assert.Contains(t, out, "nexusctl admin users list")
	})

	t.Run("researcher", func(t *testing.T) {
		h := newHarness(t)
		h.login("alice@example.com", "reviewer")

		out, err := h.run("", "home")
		require.NoError(t, err)
		assert.Contains(t, out, "Research")
		assert.NotContains(t, out, "nexusctl admin")
	})

	t.Run("logged out", func(t *testing.T) {
		h := newHarness(t)

		out, err := h.run("", "home")
		require.NoError(t, err)
		assert.Contains(t, out, "not logged in")
		assert.Zero(t, h.srv.TotalCalls())
	})

	t.Run("profile unavailable degrades to login", func(t *testing.T) {
		h := newHarness(t)
		h.login("alice@example.com", "researcher")
		h.srv.Fail("GET /auth/me", http.StatusInternalServerError, "database unavailable")

		out, err := h.run("", "home")
		require.NoError(t, err)
		assert.Contains(t, out, "not logged in")

		_, statErr := os.Stat(h.credentialsPath())
		assert.NoError(t, statErr)
	})
}

func TestHome_RevokedSessionLogsOut(t *testing.T) {
	h := newHarness(t)
	h.login("alice@example.com", "researcher")
	h.srv.RevokeAllSessions()

	out, err := h.run("", "home")
	require.NoError(t, err)
	assert.Contains(t, out, "not logged in")

	_, statErr := os.Stat(h.credentialsPath())
	assert.True(t, os.IsNotExist(statErr))
}

func TestAdmin_RequiresAdminRole(t *testing.T) {
	h := newHarness(t)
	h.login("alice@example.com", "researcher")

	_, err := h.run("", "admin", "users", "list")
	assert.ErrorIs(t, err, cmdutil.ErrAdminRequired)
	assert.Zero(t, h.srv.Calls("GET /admin/users"))
}

func TestAdmin_UserManagement(t *testing.T) {
	h := newHarness(t)
	h.login("root@example.com", "admin")
	bobID := h.srv.AddUser("bob@example.com", "pw", "researcher")

	out, err := h.run("", "admin", "users", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "bob@example.com")
	assert.Contains(t, out, "root@example.com")

	out, err = h.run("", "admin", "users", "update", bobID, "--role", "Reviewer")
	require.NoError(t, err)
	assert.NotEmpty(t, out)

	_, err = h.run("", "admin", "users", "update", bobID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nothing to update")

	_, err = h.run("", "admin", "users", "update", bobID, "--active", "--inactive")
	require.Error(t, err)

	out, err = h.run("", "admin", "users", "revoke-sessions", bobID)
	require.NoError(t, err)
	assert.Contains(t, out, "Revoked")
}

func TestAdmin_CreateUser(t *testing.T) {
	h := newHarness(t)
	h.login("root@example.com", "admin")

	_, err := h.run("", "admin", "users", "create", "--email", "carol@example.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--password-stdin is required")

	_, err = h.run("weakpass\n", "admin", "users", "create", "--email", "carol@example.com", "--password-stdin")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "uppercase")
	assert.Zero(t, h.srv.Calls("POST /auth/users"))

	out, err := h.run("Secret123\n", "admin", "users", "create",
		"--email", "Carol@Example.com", "--role", "reviewer", "--password-stdin")
	require.NoError(t, err)
	assert.Contains(t, out, "Created carol@example.com (reviewer)")

	_, err = h.run("Secret123\n", "admin", "users", "create", "--email", "carol@example.com", "--password-stdin")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Email already registered")

	out, err = h.run("", "admin", "users", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "carol@example.com")
}

func TestAdmin_AuditAndSessions(t *testing.T) {
	h := newHarness(t)
	h.login("root@example.com", "admin")

	out, err := h.run("", "admin", "audit")
	require.NoError(t, err)
	assert.Contains(t, out, "auth.login.success")

	_, err = h.run("", "admin", "audit", "--page-size", "500")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "page size")
	assert.Equal(t, 1, h.srv.Calls("GET /admin/audit/logs"))

	out, err = h.run("", "admin", "sessions", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "root@example.com")
	assert.Contains(t, out, "1 active sessions")
}

var queryIDPattern = regexp.MustCompile(`Query ID: (\S+)`)

func TestQueryAndReports(t *testing.T) {
	h := newHarness(t)
	h.login("alice@example.com", "researcher")

	out, err := h.run("", "query", "submit", "--max-candidates", "5", "Can metformin treat Alzheimer's disease?")
	require.NoError(t, err)
	assert.Contains(t, out, "Metformin")
	match := queryIDPattern.FindStringSubmatch(out)
	require.Len(t, match, 2)
	queryID := match[1]

	out, err = h.run("", "report", "audit", queryID)
	require.NoError(t, err)
	assert.Contains(t, out, "Steps")

	out, err = h.run("", "report", "graph", queryID)
	require.NoError(t, err)
	assert.Contains(t, out, "Nodes")
	assert.Contains(t, out, "Edges")

	out, err = h.run("", "report", "citations", queryID)
	require.NoError(t, err)
	assert.Contains(t, out, "2019")

	_, err = os.Stat(filepath.Join(h.configDir, "default", "last_query.json"))
	require.NoError(t, err)
	out, err = h.run("", "report", "citations")
	require.NoError(t, err)
	assert.Contains(t, out, "2019")
	assert.Equal(t, 2, h.srv.Calls("GET /reports/"+queryID+"/citations"))

	pdfPath := filepath.Join(t.TempDir(), "report.pdf")
	_, err = h.run("", "report", "pdf", queryID, "--output", pdfPath)
	require.NoError(t, err)
	data, err := os.ReadFile(pdfPath)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, sdktest.PDFMagic))

	_, err = h.run("", "report", "audit", "q-missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestQuery_ValidatesBeforeSending(t *testing.T) {
	h := newHarness(t)
	h.login("alice@example.com", "researcher")

	_, err := h.run("", "query", "submit", "ab")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "between 3 and 1000")
	assert.Zero(t, h.srv.Calls("POST /agents/query"))
}

func TestReport_RequiresQueryID(t *testing.T) {
	h := newHarness(t)
	h.login("alice@example.com", "researcher")

	_, err := h.run("", "report", "audit")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "query id required")
}

func TestQuery_RequiresLogin(t *testing.T) {
	h := newHarness(t)

	_, err := h.run("", "query", "examples")
	assert.ErrorIs(t, err, cmdutil.ErrLoginRequired)
}

func TestExport_Formats(t *testing.T) {
	h := newHarness(t)
	h.login("alice@example.com", "researcher")

	tests := []struct {
		shell  string
		prefix string
	}{
		{shell: "posix", prefix: "export NEXUS_ACCESS_TOKEN='"},
		{shell: "fish", prefix: "set -x NEXUS_ACCESS_TOKEN '"},
		{shell: "powershell", prefix: "$env:NEXUS_ACCESS_TOKEN='"},
	}
	for _, tt := range tests {
		t.Run(tt.shell, func(t *testing.T) {
			out, err := h.run("", "auth", "export", "--shell", tt.shell)
			require.NoError(t, err)
			lines := strings.Split(strings.TrimSpace(out), "\n")
			require.Len(t, lines, 2)
			assert.True(t, strings.HasPrefix(lines[0], tt.prefix), lines[0])
			assert.Contains(t, lines[1], "NEXUS_SESSION_ID")
		})
	}

	_, err := h.run("", "auth", "export", "--shell", "tcsh")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported shell format")
}

func TestSessions_ListAndRevoke(t *testing.T) {
	h := newHarness(t)
	h.login("alice@example.com", "researcher")

	out, err := h.run("", "auth", "sessions")
	require.NoError(t, err)
	assert.Contains(t, out, "*")

	_, err = h.run("", "auth", "revoke", "not-a-uuid")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid session id")
	assert.Zero(t, h.srv.Calls("DELETE /auth/sessions/not-a-uuid"))

	_, err = h.run("", "auth", "revoke", "00000000-0000-0000-0000-000000000000")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Session not found")
}
