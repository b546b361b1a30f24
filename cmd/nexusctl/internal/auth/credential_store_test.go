package auth

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ayushhgit/biomind-nexus/pkg/sdk"
)

func TestFileStore_RoundTrip(t *testing.T) {
	store, err := NewFileStore(filepath.Join(t.TempDir(), "default"))
	require.NoError(t, err)

	cred, err := store.Load()
	require.NoError(t, err)
	assert.Nil(t, cred, "missing file means no credential")

	expires := time.UnixMilli(time.Now().Add(time.Hour).UnixMilli())
	require.NoError(t, store.Save(&sdk.Credential{AccessToken: "T1", SessionID: "S1", ExpiresAt: expires}))

	cred, err = store.Load()
	require.NoError(t, err)
	require.NotNil(t, cred)
	assert.Equal(t, "T1", cred.AccessToken)
	assert.Equal(t, "S1", cred.SessionID)
	assert.True(t, expires.Equal(cred.ExpiresAt))

	data, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.Contains(t, string(data), `"expires_at_ms"`)

	entries, err := os.ReadDir(filepath.Dir(store.Path()))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files are renamed away")
}

func TestFileStore_Permissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("POSIX permissions only")
	}
	dir := filepath.Join(t.TempDir(), "default")
	store, err := NewFileStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.Save(&sdk.Credential{AccessToken: "T1", SessionID: "S1", ExpiresAt: time.Now().Add(time.Hour)}))

	info, err := os.Stat(store.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	dirInfo, err := os.Stat(dir)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0700), dirInfo.Mode().Perm())
}

func TestFileStore_Delete(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Delete(), "deleting a missing file is a no-op")

	require.NoError(t, store.Save(&sdk.Credential{AccessToken: "T1", SessionID: "S1", ExpiresAt: time.Now().Add(time.Hour)}))
	require.NoError(t, store.Delete())

	_, err = os.Stat(store.Path())
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestFileStore_CorruptedFile(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(store.Path(), []byte("{not json"), 0600))

	_, err = store.Load()
	assert.ErrorContains(t, err, "corrupted credentials file")
}

func TestFileStore_PartialRecordDiscardedByTokenStore(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(store.Path(), []byte(`{"access_token":"T1","expires_at_ms":4102444800000}`), 0600))

	cred, err := sdk.NewTokenStore(store).Read()
	require.NoError(t, err)
	assert.Nil(t, cred)

	_, err = os.Stat(store.Path())
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestNewFileStore_RequiresDir(t *testing.T) {
	_, err := NewFileStore("")
	assert.Error(t, err)
}
