package session

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStorageRoundTrip(t *testing.T) {
	fs := NewFileStorage(filepath.Join(t.TempDir(), "nested"))

	got, err := fs.Load()
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, fs.Save(Session{UserID: 1, Username: "alice"}))

	info, err := os.Stat(fs.Path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	got, err = fs.Load()
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, Session{UserID: 1, Username: "alice"}, *got)

	require.NoError(t, fs.Clear())
	require.NoError(t, fs.Clear())
	got, err = fs.Load()
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestFileStorageCorrupt(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "session.json"), []byte("{"), 0600))

	_, err := NewFileStorage(dir).Load()
	assert.Error(t, err)
}
