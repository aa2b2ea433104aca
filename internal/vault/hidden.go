package vault

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite" // Pure Go SQLite driver, registers as "sqlite".

	"github.com/tonimelisma/drivevault/internal/pathkey"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// HiddenPaths is the durable registry of folder paths the client has
// learned are hidden. It backs UI affordances ("this folder is hidden")
// and is independent of whether a live session exists for a path. Unlike
// session snapshots it survives restarts, so it lives in SQLite rather
// than the session-scoped snapshot files.
type HiddenPaths struct {
	db     *sql.DB
	logger *slog.Logger
}

// OpenHiddenPaths opens (or creates) the hidden-path database at dbPath
// and applies pending migrations. Use ":memory:" for tests.
func OpenHiddenPaths(ctx context.Context, dbPath string, logger *slog.Logger) (*HiddenPaths, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("vault: open sqlite: %w", err)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("vault: set WAL mode: %w", err)
	}

	if err := runHiddenPathMigrations(ctx, db, logger); err != nil {
		db.Close()
		return nil, err
	}

	return &HiddenPaths{db: db, logger: logger}, nil
}

// runHiddenPathMigrations applies embedded schema migrations.
// Uses the goose v3 Provider API (no global state, context-aware).
func runHiddenPathMigrations(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	subFS, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("vault: creating migration sub-filesystem: %w", err)
	}

	provider, err := goose.NewProvider(goose.DialectSQLite3, db, subFS)
	if err != nil {
		return fmt.Errorf("vault: creating migration provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("vault: running migrations: %w", err)
	}

	for _, r := range results {
		logger.Info("applied migration",
			slog.String("source", r.Source.Path),
			slog.Int64("duration_ms", r.Duration.Milliseconds()),
		)
	}

	return nil
}

// Add records a normalized path as hidden. Idempotent.
func (h *HiddenPaths) Add(ctx context.Context, namespace, path string) error {
	normalized := pathkey.Normalize(path)

	_, err := h.db.ExecContext(ctx,
		`INSERT INTO hidden_paths (namespace, path, created_at) VALUES (?, ?, ?)
		 ON CONFLICT (namespace, path) DO NOTHING`,
		namespace, normalized, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("vault: recording hidden path: %w", err)
	}

	return nil
}

// Contains reports whether a path is registered as hidden.
func (h *HiddenPaths) Contains(ctx context.Context, namespace, path string) (bool, error) {
	var one int

	err := h.db.QueryRowContext(ctx,
		`SELECT 1 FROM hidden_paths WHERE namespace = ? AND path = ?`,
		namespace, pathkey.Normalize(path),
	).Scan(&one)

	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}

	if err != nil {
		return false, fmt.Errorf("vault: querying hidden path: %w", err)
	}

	return true, nil
}

// Remove forgets a hidden path. No error if it was never registered.
func (h *HiddenPaths) Remove(ctx context.Context, namespace, path string) error {
	_, err := h.db.ExecContext(ctx,
		`DELETE FROM hidden_paths WHERE namespace = ? AND path = ?`,
		namespace, pathkey.Normalize(path),
	)
	if err != nil {
		return fmt.Errorf("vault: removing hidden path: %w", err)
	}

	return nil
}

// All returns every registered hidden path in a namespace, sorted.
func (h *HiddenPaths) All(ctx context.Context, namespace string) ([]string, error) {
	rows, err := h.db.QueryContext(ctx,
		`SELECT path FROM hidden_paths WHERE namespace = ? ORDER BY path`,
		namespace,
	)
	if err != nil {
		return nil, fmt.Errorf("vault: listing hidden paths: %w", err)
	}
	defer rows.Close()

	var paths []string

	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("vault: scanning hidden path: %w", err)
		}

		paths = append(paths, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("vault: iterating hidden paths: %w", err)
	}

	return paths, nil
}

// Close closes the underlying database.
func (h *HiddenPaths) Close() error {
	return h.db.Close()
}
