package sdk_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ayushhgit/biomind-nexus/pkg/sdk"
	"github.com/Ayushhgit/biomind-nexus/pkg/sdk/sdktest"
)

func newTestSession(t *testing.T, srv *sdktest.Server, tokens *sdk.TokenStore) *sdk.Session {
	t.Helper()
	return sdk.NewSession(newTestClient(t, srv.BaseURL(), tokens))
}

func TestSession_StartsLoading(t *testing.T) {
	srv := sdktest.NewServer(t)
	session := newTestSession(t, srv, nil)

	assert.Equal(t, sdk.StateLoading, session.State())
	assert.Nil(t, session.User())
	assert.Equal(t, sdk.LoginView, session.View())
}

func TestSession_LoginResearcher(t *testing.T) {
	srv := sdktest.NewServer(t)
	srv.TokenTTL = 3600 * time.Second
	userID := srv.AddUser("a@b.com", "x", "researcher")

	clock := newFakeClock()
	tokens := sdk.NewTokenStore(nil, sdk.WithClock(clock.Now))
	session := newTestSession(t, srv, tokens)

	user, err := session.Login(context.Background(), "a@b.com", "x")
	require.NoError(t, err)
	assert.Equal(t, userID, user.ID)
	assert.Equal(t, "a@b.com", user.Email)
	assert.Equal(t, sdk.RoleResearcher, user.Role())
	assert.True(t, user.IsActive)

	assert.Equal(t, sdk.StateAuthenticated, session.State())
	assert.Equal(t, sdk.ResearcherView, session.View())

	cred, err := tokens.Read()
	require.NoError(t, err)
	require.NotNil(t, cred)
	assert.True(t, srv.SessionValid(cred.SessionID))
	assert.Equal(t, clock.Now().Add(time.Hour), cred.ExpiresAt)

	claims, err := sdk.InspectToken(cred.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.Subject)
	assert.Equal(t, cred.SessionID, claims.SessionID)
}

func TestSession_LoginAdminRoutesToAdminView(t *testing.T) {
	srv := sdktest.NewServer(t)
	srv.AddUser("root@b.com", "pw", "admin")
	session := newTestSession(t, srv, nil)

	_, err := session.Login(context.Background(), "  ROOT@b.com ", "pw")
	require.NoError(t, err)
	assert.Equal(t, sdk.AdminView, session.View())
}

func TestSession_LoginInvalidCredentials(t *testing.T) {
	srv := sdktest.NewServer(t)
	srv.AddUser("a@b.com", "x", "researcher")

	store := sdk.NewMemoryStore()
	session := newTestSession(t, srv, sdk.NewTokenStore(store))
	require.NoError(t, session.Initialize(context.Background()))

	_, err := session.Login(context.Background(), "a@b.com", "wrong")
	assert.ErrorIs(t, err, sdk.ErrInvalidCredentials)
	assert.ErrorContains(t, err, "Invalid credentials")
	assert.Equal(t, sdk.StateUnauthenticated, session.State())

	raw, err := store.Load()
	require.NoError(t, err)
	assert.Nil(t, raw, "a rejected login writes nothing")
	assert.Zero(t, srv.Calls("GET /auth/me"))
}

func TestSession_LoginInactiveAccount(t *testing.T) {
	srv := sdktest.NewServer(t)
	id := srv.AddUser("a@b.com", "x", "researcher")
	srv.AddUser("root@b.com", "pw", "admin")

	adminSession := newTestSession(t, srv, nil)
	_, err := adminSession.Login(context.Background(), "root@b.com", "pw")
	require.NoError(t, err)
	inactive := false
	_, err = sdk.NewAdminClient(adminSession.Client()).UpdateUser(context.Background(), id, sdk.UserUpdate{IsActive: &inactive})
	require.NoError(t, err)

	session := newTestSession(t, srv, nil)
	_, err = session.Login(context.Background(), "a@b.com", "x")
	assert.ErrorIs(t, err, sdk.ErrInvalidCredentials)
	assert.ErrorContains(t, err, "Account is inactive")
}

func TestSession_LoginEmptyInputNeverCallsBackend(t *testing.T) {
	srv := sdktest.NewServer(t)
	session := newTestSession(t, srv, nil)

	_, err := session.Login(context.Background(), "", "x")
	assert.ErrorIs(t, err, sdk.ErrInvalidCredentials)
	assert.Zero(t, srv.TotalCalls())
}

func TestSession_LoginNetworkError(t *testing.T) {
	srv := sdktest.NewServer(t)
	url := srv.BaseURL()
	srv.Close()

	session := sdk.NewSession(newTestClient(t, url, nil))
	_, err := session.Login(context.Background(), "a@b.com", "x")
	assert.ErrorIs(t, err, sdk.ErrNetwork)
	assert.NotErrorIs(t, err, sdk.ErrInvalidCredentials)
	assert.Equal(t, sdk.StateUnauthenticated, session.State())
}

func TestSession_LoginFailureKeepsExistingSession(t *testing.T) {
	srv := sdktest.NewServer(t)
	srv.AddUser("a@b.com", "x", "researcher")
	tokens := sdk.NewTokenStore(nil)
	session := newTestSession(t, srv, tokens)

	_, err := session.Login(context.Background(), "a@b.com", "x")
	require.NoError(t, err)
	before, err := tokens.Read()
	require.NoError(t, err)

	_, err = session.Login(context.Background(), "a@b.com", "wrong")
	assert.ErrorIs(t, err, sdk.ErrInvalidCredentials)
	assert.Equal(t, sdk.StateAuthenticated, session.State())
	require.NotNil(t, session.User())
	assert.Equal(t, "a@b.com", session.User().Email)

	after, err := tokens.Read()
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestSession_ProfileResolutionFailed(t *testing.T) {
	srv := sdktest.NewServer(t)
	srv.AddUser("a@b.com", "x", "researcher")
	srv.Fail("GET /auth/me", http.StatusInternalServerError, "database unavailable")

	tokens := sdk.NewTokenStore(nil)
	session := newTestSession(t, srv, tokens)

	user, err := session.Login(context.Background(), "a@b.com", "x")
	assert.Nil(t, user)
	assert.ErrorIs(t, err, sdk.ErrProfileResolutionFailed)
	assert.Equal(t, http.StatusInternalServerError, sdk.StatusCode(err))
	assert.Equal(t, sdk.StateUnauthenticated, session.State())
	assert.Equal(t, sdk.LoginView, session.View())
	assert.ErrorIs(t, session.LastError(), sdk.ErrProfileResolutionFailed)

	cred, err := tokens.Read()
	require.NoError(t, err)
	require.NotNil(t, cred, "stored credential is kept for a retry")

	srv.Fail("GET /auth/me", 0, "")
	user, err = session.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", user.Email)
	assert.Equal(t, sdk.StateAuthenticated, session.State())
}

func TestSession_InitializeWithoutCredential(t *testing.T) {
	srv := sdktest.NewServer(t)
	session := newTestSession(t, srv, nil)

	require.NoError(t, session.Initialize(context.Background()))
	assert.Equal(t, sdk.StateUnauthenticated, session.State())
	assert.Zero(t, srv.TotalCalls())
}

func TestSession_InitializeExpiredCredential(t *testing.T) {
	srv := sdktest.NewServer(t)
	clock := newFakeClock()
	store := sdk.NewMemoryStore()

	_, err := sdk.NewTokenStore(store, sdk.WithClock(clock.Now)).Store("T1", "S1", time.Hour)
	require.NoError(t, err)
	clock.Advance(2 * time.Hour)

	session := newTestSession(t, srv, sdk.NewTokenStore(store, sdk.WithClock(clock.Now)))
	require.NoError(t, session.Initialize(context.Background()))

	assert.Equal(t, sdk.StateUnauthenticated, session.State())
	assert.Zero(t, srv.TotalCalls(), "expiry is detected locally")
	raw, err := store.Load()
	require.NoError(t, err)
	assert.Nil(t, raw)
}

func TestSession_InitializeRestoresSession(t *testing.T) {
	srv := sdktest.NewServer(t)
	srv.AddUser("a@b.com", "x", "auditor")
	store := sdk.NewMemoryStore()

	first := newTestSession(t, srv, sdk.NewTokenStore(store))
	_, err := first.Login(context.Background(), "a@b.com", "x")
	require.NoError(t, err)

	second := newTestSession(t, srv, sdk.NewTokenStore(store))
	require.NoError(t, second.Initialize(context.Background()))
	assert.Equal(t, sdk.StateAuthenticated, second.State())
	assert.Equal(t, sdk.RoleAuditor, second.User().Role())
	assert.Equal(t, sdk.ResearcherView, second.View())
}

func TestSession_InitializeRevokedCredential(t *testing.T) {
	srv := sdktest.NewServer(t)
	srv.AddUser("a@b.com", "x", "researcher")
	store := sdk.NewMemoryStore()

	first := newTestSession(t, srv, sdk.NewTokenStore(store))
	_, err := first.Login(context.Background(), "a@b.com", "x")
	require.NoError(t, err)
	srv.RevokeAllSessions()

	second := newTestSession(t, srv, sdk.NewTokenStore(store))
	require.NoError(t, second.Initialize(context.Background()), "resolution failures are not returned")
	assert.Equal(t, sdk.StateUnauthenticated, second.State())
	assert.ErrorIs(t, second.LastError(), sdk.ErrUnauthenticated)

	raw, err := store.Load()
	require.NoError(t, err)
	assert.Nil(t, raw, "rejected credential is cleared")
}

func TestSession_InitializeNetworkErrorKeepsCredential(t *testing.T) {
	srv := sdktest.NewServer(t)
	url := srv.BaseURL()
	srv.Close()

	tokens := sdk.NewTokenStore(nil)
	_, err := tokens.Store("T1", "S1", time.Hour)
	require.NoError(t, err)

	session := sdk.NewSession(newTestClient(t, url, tokens))
	require.NoError(t, session.Initialize(context.Background()))
	assert.Equal(t, sdk.StateUnauthenticated, session.State())
	assert.ErrorIs(t, session.LastError(), sdk.ErrNetwork)

	cred, err := tokens.Read()
	require.NoError(t, err)
	assert.NotNil(t, cred)
}

func TestSession_InitializeRunsOnce(t *testing.T) {
	srv := sdktest.NewServer(t)
	srv.AddUser("a@b.com", "x", "researcher")
	store := sdk.NewMemoryStore()

	first := newTestSession(t, srv, sdk.NewTokenStore(store))
	_, err := first.Login(context.Background(), "a@b.com", "x")
	require.NoError(t, err)

	second := newTestSession(t, srv, sdk.NewTokenStore(store))
	require.NoError(t, second.Initialize(context.Background()))
	require.NoError(t, second.Initialize(context.Background()))
	assert.Equal(t, 2, srv.Calls("GET /auth/me"), "one lookup per session")
}

func TestSession_Logout(t *testing.T) {
	srv := sdktest.NewServer(t)
	srv.AddUser("a@b.com", "x", "researcher")
	tokens := sdk.NewTokenStore(nil)
	session := newTestSession(t, srv, tokens)

	_, err := session.Login(context.Background(), "a@b.com", "x")
	require.NoError(t, err)
	cred, err := tokens.Read()
	require.NoError(t, err)

	require.NoError(t, session.Logout(context.Background()))
	assert.Equal(t, sdk.StateUnauthenticated, session.State())
	assert.Equal(t, sdk.LoginView, session.View())
	assert.False(t, srv.SessionValid(cred.SessionID))

	got, err := tokens.Read()
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSession_LogoutClearsWhenBackendFails(t *testing.T) {
	tests := []struct {
		name  string
		setup func(srv *sdktest.Server)
		ctx   func() (context.Context, context.CancelFunc)
	}{
		{
			name: "server error",
			setup: func(srv *sdktest.Server) {
				srv.Fail("POST /auth/logout", http.StatusInternalServerError, "boom")
			},
			ctx: func() (context.Context, context.CancelFunc) { return context.WithCancel(context.Background()) },
		},
		{
			name: "timeout",
			setup: func(srv *sdktest.Server) {
				srv.Delay("POST /auth/logout", time.Second)
			},
			ctx: func() (context.Context, context.CancelFunc) {
				return context.WithTimeout(context.Background(), 50*time.Millisecond)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := sdktest.NewServer(t)
			srv.AddUser("a@b.com", "x", "researcher")
			tokens := sdk.NewTokenStore(nil)
			session := newTestSession(t, srv, tokens)

			_, err := session.Login(context.Background(), "a@b.com", "x")
			require.NoError(t, err)
			tt.setup(srv)

			ctx, cancel := tt.ctx()
			defer cancel()
			require.NoError(t, session.Logout(ctx))

			assert.Equal(t, 1, srv.Calls("POST /auth/logout"))
			assert.Equal(t, sdk.StateUnauthenticated, session.State())
			got, err := tokens.Read()
			require.NoError(t, err)
			assert.Nil(t, got)
		})
	}
}

func TestSession_LogoutWithoutCredentialSkipsBackend(t *testing.T) {
	srv := sdktest.NewServer(t)
	session := newTestSession(t, srv, nil)

	require.NoError(t, session.Logout(context.Background()))
	assert.Zero(t, srv.TotalCalls())
	assert.Equal(t, sdk.StateUnauthenticated, session.State())
}

func TestSession_LogoutEverywhere(t *testing.T) {
	srv := sdktest.NewServer(t)
	srv.AddUser("a@b.com", "x", "researcher")

	laptop := newTestSession(t, srv, nil)
	_, err := laptop.Login(context.Background(), "a@b.com", "x")
	require.NoError(t, err)
	phone := newTestSession(t, srv, nil)
	_, err = phone.Login(context.Background(), "a@b.com", "x")
	require.NoError(t, err)

	require.NoError(t, laptop.LogoutEverywhere(context.Background()))

	_, err = phone.Refresh(context.Background())
	assert.ErrorIs(t, err, sdk.ErrUnauthenticated)
	assert.Equal(t, sdk.StateUnauthenticated, phone.State())
}

func TestSession_UnauthorizedResponseDropsUser(t *testing.T) {
	srv := sdktest.NewServer(t)
	srv.AddUser("a@b.com", "x", "researcher")
	tokens := sdk.NewTokenStore(nil)
	session := newTestSession(t, srv, tokens)

	_, err := session.Login(context.Background(), "a@b.com", "x")
	require.NoError(t, err)
	srv.RevokeAllSessions()

	_, err = sdk.NewAgentsClient(session.Client()).ExampleQueries(context.Background())
	assert.ErrorIs(t, err, sdk.ErrUnauthenticated)

	assert.Equal(t, sdk.StateUnauthenticated, session.State())
	assert.Nil(t, session.User())
	got, err := tokens.Read()
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSession_RefreshWithoutCredential(t *testing.T) {
	srv := sdktest.NewServer(t)
	session := newTestSession(t, srv, nil)

	_, err := session.Refresh(context.Background())
	assert.ErrorIs(t, err, sdk.ErrNotLoggedIn)
	assert.Equal(t, sdk.StateUnauthenticated, session.State())
}

func TestSession_UserIsACopy(t *testing.T) {
	srv := sdktest.NewServer(t)
	srv.AddUser("a@b.com", "x", "researcher")
	session := newTestSession(t, srv, nil)

	user, err := session.Login(context.Background(), "a@b.com", "x")
	require.NoError(t, err)
	user.RawRole = "admin"
	assert.Equal(t, sdk.ResearcherView, session.View())
}
