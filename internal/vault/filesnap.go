package vault

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
)

// snapshotSubdir is the subdirectory within the data dir for session
// snapshot files.
const snapshotSubdir = "vault-sessions"

// snapshotFilePerms restricts snapshot files to owner-only because they
// contain live session tokens.
const snapshotFilePerms = 0o600

// snapshotDirPerms for the snapshot directory itself.
const snapshotDirPerms = 0o700

// FileSnapshots is a Snapshotter that writes one JSON file per namespace
// under dataDir/vault-sessions. Writes are atomic (temp file + rename) so
// a crash mid-write never leaves a truncated snapshot at the final path.
type FileSnapshots struct {
	dir    string
	logger *slog.Logger
}

// NewFileSnapshots creates a FileSnapshots rooted at dataDir/vault-sessions.
func NewFileSnapshots(dataDir string, logger *slog.Logger) *FileSnapshots {
	if logger == nil {
		logger = slog.Default()
	}

	return &FileSnapshots{
		dir:    filepath.Join(dataDir, snapshotSubdir),
		logger: logger,
	}
}

// Load reads the persisted session map for a namespace. A missing file
// means no snapshot (nil, nil). A corrupt file is logged, deleted, and
// also treated as absent — the store starts empty rather than failing.
func (f *FileSnapshots) Load(namespace string) (map[string]Session, error) {
	path := f.filePath(namespace)

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("vault: reading snapshot %s: %w", path, err)
	}

	var sessions map[string]Session
	if err := json.Unmarshal(data, &sessions); err != nil {
		f.logger.Warn("corrupt session snapshot, discarding",
			slog.String("namespace", namespace),
			slog.String("path", path),
			slog.String("error", err.Error()),
		)

		if rmErr := os.Remove(path); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
			f.logger.Warn("failed to remove corrupt snapshot",
				slog.String("path", path),
				slog.String("error", rmErr.Error()),
			)
		}

		return nil, nil
	}

	return sessions, nil
}

// Save writes the session map for a namespace atomically with 0600
// permissions. Never logs token values.
func (f *FileSnapshots) Save(namespace string, sessions map[string]Session) error {
	if err := os.MkdirAll(f.dir, snapshotDirPerms); err != nil {
		return fmt.Errorf("vault: creating snapshot dir: %w", err)
	}

	data, err := json.Marshal(sessions)
	if err != nil {
		return fmt.Errorf("vault: encoding snapshot: %w", err)
	}

	path := f.filePath(namespace)
	tmpPath := path + ".tmp"

	if err := os.WriteFile(tmpPath, data, snapshotFilePerms); err != nil {
		return fmt.Errorf("vault: writing snapshot temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath) // best-effort cleanup
		return fmt.Errorf("vault: renaming snapshot temp file: %w", err)
	}

	return nil
}

// Clear removes the snapshot file for a namespace. No error if it does
// not exist.
func (f *FileSnapshots) Clear(namespace string) error {
	if err := os.Remove(f.filePath(namespace)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("vault: removing snapshot: %w", err)
	}

	return nil
}

// filePath returns the snapshot file for a namespace. The namespace is
// path-escaped so arbitrary keys cannot traverse out of the snapshot dir.
func (f *FileSnapshots) filePath(namespace string) string {
	return filepath.Join(f.dir, url.PathEscape(namespace)+".json")
}
