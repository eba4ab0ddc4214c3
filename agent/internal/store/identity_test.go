package store

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentityMissingFileMeansUnlinked(t *testing.T) {
	s := NewIdentityStore(t.TempDir())
	id, err := s.Load()
	require.NoError(t, err)
	assert.Nil(t, id)
}

func TestIdentityRoundTrip(t *testing.T) {
	s := NewIdentityStore(t.TempDir())
	want := &Identity{
		ServerURL:   "https://insight.example.com",
		DeviceID:    "dev_1",
		DeviceToken: "jwt",
		LinkedAt:    time.Now().UTC().Truncate(time.Second),
	}
	require.NoError(t, s.Save(want))

	got, err := s.Load()
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, want.ServerURL, got.ServerURL)
	assert.Equal(t, want.DeviceID, got.DeviceID)
	assert.Equal(t, want.DeviceToken, got.DeviceToken)

	if runtime.GOOS != "windows" {
		info, err := os.Stat(s.Path())
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	}
}

func TestIdentityCorruptFileIsAnError(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte("{not json"), 0o600))

	_, err := NewIdentityStore(dir).Load()
	require.Error(t, err)
}

func TestIdentityIncompleteFileIsAnError(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte(`{"serverUrl":"https://x"}`), 0o600))

	_, err := NewIdentityStore(dir).Load()
	require.ErrorContains(t, err, "incomplete")
}

func TestIdentityClear(t *testing.T) {
	s := NewIdentityStore(t.TempDir())
	require.NoError(t, s.Clear())

	require.NoError(t, s.Save(&Identity{ServerURL: "https://x", DeviceID: "d", DeviceToken: "t"}))
	require.NoError(t, s.Clear())
	id, err := s.Load()
	require.NoError(t, err)
	assert.Nil(t, id)
}
