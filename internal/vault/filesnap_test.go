package vault

import (
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileSnapshots_RoundTrip(t *testing.T) {
	t.Parallel()

	snaps := NewFileSnapshots(t.TempDir(), testLogger(t))

	sessions := map[string]Session{
		"docs":        {Path: "docs", Token: "T1", ExpiresAt: 1_700_000_900},
		"docs/secret": {Path: "docs/secret", Token: "T2", ExpiresAt: 1_700_000_500},
	}

	require.NoError(t, snaps.Save("hidden-folder", sessions))

	loaded, err := snaps.Load("hidden-folder")
	require.NoError(t, err)
	assert.Equal(t, sessions, loaded)
}

func TestFileSnapshots_MissingIsNil(t *testing.T) {
	t.Parallel()

	snaps := NewFileSnapshots(t.TempDir(), testLogger(t))

	loaded, err := snaps.Load("hidden-folder")
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestFileSnapshots_CorruptIsDiscarded(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	snaps := NewFileSnapshots(dir, testLogger(t))

	snapDir := filepath.Join(dir, snapshotSubdir)
	require.NoError(t, os.MkdirAll(snapDir, snapshotDirPerms))

	corruptPath := filepath.Join(snapDir, "hidden-folder.json")
	require.NoError(t, os.WriteFile(corruptPath, []byte("{not json"), snapshotFilePerms))

	// Corrupt snapshot is treated as absent, never as an error.
	loaded, err := snaps.Load("hidden-folder")
	require.NoError(t, err)
	assert.Nil(t, loaded)

	// And the corrupt file is gone.
	_, statErr := os.Stat(corruptPath)
	assert.True(t, os.IsNotExist(statErr), "corrupt snapshot should be deleted")
}

func TestFileSnapshots_NamespaceIsolation(t *testing.T) {
	t.Parallel()

	snaps := NewFileSnapshots(t.TempDir(), testLogger(t))

	require.NoError(t, snaps.Save("encrypted-folder", map[string]Session{
		"docs": {Path: "docs", Token: "ENC", ExpiresAt: 1_700_000_900},
	}))

	loaded, err := snaps.Load("hidden-folder")
	require.NoError(t, err)
	assert.Nil(t, loaded, "snapshot must not cross namespaces")
}

func TestFileSnapshots_Clear(t *testing.T) {
	t.Parallel()

	snaps := NewFileSnapshots(t.TempDir(), testLogger(t))

	require.NoError(t, snaps.Save("hidden-folder", map[string]Session{
		"docs": {Path: "docs", Token: "T1", ExpiresAt: 1_700_000_900},
	}))
	require.NoError(t, snaps.Clear("hidden-folder"))

	loaded, err := snaps.Load("hidden-folder")
	require.NoError(t, err)
	assert.Nil(t, loaded)

	// Clearing an already-absent namespace is not an error.
	require.NoError(t, snaps.Clear("hidden-folder"))
}

func TestFileSnapshots_FilePermissions(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	snaps := NewFileSnapshots(dir, testLogger(t))

	require.NoError(t, snaps.Save("hidden-folder", map[string]Session{}))

	info, err := os.Stat(filepath.Join(dir, snapshotSubdir, "hidden-folder.json"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(snapshotFilePerms), info.Mode().Perm())
}

func TestFileSnapshots_EscapesNamespaceKey(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	snaps := NewFileSnapshots(dir, testLogger(t))

	require.NoError(t, snaps.Save("weird/ns", map[string]Session{}))

	escaped := url.PathEscape("weird/ns") + ".json"
	_, err := os.Stat(filepath.Join(dir, snapshotSubdir, escaped))
	assert.NoError(t, err, "namespace key should be path-escaped into the filename")
}
