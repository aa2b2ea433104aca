// Package authstate tracks whether the user is signed in by observing the
// saved OAuth token file. The vault coordinator subscribes to it so that
// every cached session token is dropped the moment authentication ends —
// unlocked hidden content must never outlive the user's login.
package authstate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/oauth2"
)

// Status is the ambient authentication state.
type Status int

const (
	// StatusLoading is the initial state before the first token check.
	StatusLoading Status = iota

	// StatusAuthenticated means a usable token is present.
	StatusAuthenticated

	// StatusUnauthenticated means no usable token exists.
	StatusUnauthenticated
)

func (s Status) String() string {
	switch s {
	case StatusAuthenticated:
		return "authenticated"
	case StatusUnauthenticated:
		return "unauthenticated"
	default:
		return "loading"
	}
}

// tokenFile matches the on-disk token format: the OAuth token wrapped in a
// "token" field alongside optional cached metadata.
type tokenFile struct {
	Token *oauth2.Token `json:"token"`
}

// Watcher observes the token file and reports authentication status.
// Subscribers are notified on every status transition.
type Watcher struct {
	tokenPath string
	logger    *slog.Logger

	mu       sync.Mutex
	status   Status
	handlers map[int]func(Status)
	nextID   int
}

// NewWatcher creates a Watcher for the given token file and performs the
// initial status check.
func NewWatcher(tokenPath string, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}

	w := &Watcher{
		tokenPath: tokenPath,
		logger:    logger,
		status:    StatusLoading,
		handlers:  make(map[int]func(Status)),
	}

	w.Refresh()

	return w
}

// Status returns the current authentication status.
func (w *Watcher) Status() Status {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.status
}

// Subscribe registers a transition handler and returns its disposer.
// Handlers run synchronously on the goroutine that detected the change.
func (w *Watcher) Subscribe(h func(Status)) func() {
	w.mu.Lock()
	id := w.nextID
	w.nextID++
	w.handlers[id] = h
	w.mu.Unlock()

	return func() {
		w.mu.Lock()
		delete(w.handlers, id)
		w.mu.Unlock()
	}
}

// Refresh re-reads the token file and updates the status, notifying
// subscribers if it changed.
func (w *Watcher) Refresh() {
	next := w.check()

	w.mu.Lock()

	if next == w.status {
		w.mu.Unlock()
		return
	}

	prev := w.status
	w.status = next

	handlers := make([]func(Status), 0, len(w.handlers))
	for _, h := range w.handlers {
		handlers = append(handlers, h)
	}

	w.mu.Unlock()

	w.logger.Info("authentication status changed",
		slog.String("from", prev.String()),
		slog.String("to", next.String()),
	)

	for _, h := range handlers {
		h(next)
	}
}

// check reads the token file and classifies the result. A token with a
// refresh token counts as authenticated even when the access token has
// expired, because it can be silently renewed.
func (w *Watcher) check() Status {
	data, err := os.ReadFile(w.tokenPath)
	if errors.Is(err, fs.ErrNotExist) {
		return StatusUnauthenticated
	}

	if err != nil {
		w.logger.Warn("failed to read token file",
			slog.String("path", w.tokenPath),
			slog.String("error", err.Error()),
		)

		return StatusUnauthenticated
	}

	var tf tokenFile
	if err := json.Unmarshal(data, &tf); err != nil {
		w.logger.Warn("corrupt token file",
			slog.String("path", w.tokenPath),
			slog.String("error", err.Error()),
		)

		return StatusUnauthenticated
	}

	if tf.Token == nil {
		return StatusUnauthenticated
	}

	if tf.Token.Valid() || tf.Token.RefreshToken != "" {
		return StatusAuthenticated
	}

	return StatusUnauthenticated
}

// Run watches the token file's directory until ctx is done, refreshing the
// status whenever the file is created, rewritten, renamed, or removed.
// The directory (not the file) is watched because logout removes the file
// and atomic saves replace it by rename.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("authstate: creating watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(w.tokenPath)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("authstate: watching %s: %w", dir, err)
	}

	w.logger.Debug("watching token file", slog.String("path", w.tokenPath))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if event.Name != w.tokenPath {
				continue
			}

			if event.Has(fsnotify.Create) || event.Has(fsnotify.Write) ||
				event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				w.Refresh()
			}
		case watchErr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}

			w.logger.Warn("token file watch error", slog.String("error", watchErr.Error()))
		}
	}
}
