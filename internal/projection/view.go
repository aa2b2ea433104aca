// Package projection exposes the vault to UI consumers as a small set of
// derived queries plus change-driven watches. Watches re-derive their
// selected value on every store change and notify only when the value
// actually differs under shallow equality, so unrelated path or namespace
// churn never causes redundant UI work.
package projection

import (
	"context"
	"log/slog"

	"github.com/tonimelisma/drivevault/internal/reveal"
	"github.com/tonimelisma/drivevault/internal/vault"
)

// HiddenPathRegistry is the durable hidden-path set consumed by the view.
// Implemented by vault.HiddenPaths.
type HiddenPathRegistry interface {
	Add(ctx context.Context, namespace, path string) error
	Contains(ctx context.Context, namespace, path string) (bool, error)
}

// View is the query/command surface handed to UI layers. It owns no state
// of its own — everything derives from the registry and coordinator.
type View struct {
	registry *vault.Registry
	coord    *reveal.Coordinator
	hidden   HiddenPathRegistry
	logger   *slog.Logger
}

// NewView assembles the projection. hidden may be nil when the durable
// registry is not in use (RegisterHiddenPath becomes a no-op).
func NewView(registry *vault.Registry, coord *reveal.Coordinator, hidden HiddenPathRegistry, logger *slog.Logger) *View {
	if logger == nil {
		logger = slog.Default()
	}

	return &View{
		registry: registry,
		coord:    coord,
		hidden:   hidden,
		logger:   logger,
	}
}

// IsFolderRevealed reports whether an unexpired session covers the path,
// directly or via an ancestor.
func (v *View) IsFolderRevealed(namespace, path string) bool {
	_, ok := v.registry.Store(namespace).GetSession(path)
	return ok
}

// HiddenSessionToken resolves the token covering a path, or "".
func (v *View) HiddenSessionToken(namespace, path string) string {
	tok, _ := v.registry.Store(namespace).GetSession(path)
	return tok
}

// RegisterHiddenPath records that the UI learned a path is hidden.
// Failures are logged, not surfaced — this is a display affordance.
func (v *View) RegisterHiddenPath(ctx context.Context, namespace, path string) {
	if v.hidden == nil {
		return
	}

	if err := v.hidden.Add(ctx, namespace, path); err != nil {
		v.logger.Warn("failed to register hidden path",
			slog.String("namespace", namespace),
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
	}
}

// IsHiddenPath reports whether a path is registered as hidden,
// independent of whether a live session exists for it.
func (v *View) IsHiddenPath(ctx context.Context, namespace, path string) bool {
	if v.hidden == nil {
		return false
	}

	ok, err := v.hidden.Contains(ctx, namespace, path)
	if err != nil {
		v.logger.Warn("hidden path lookup failed",
			slog.String("namespace", namespace),
			slog.String("path", path),
			slog.String("error", err.Error()),
		)

		return false
	}

	return ok
}

// PromptReveal opens the namespace's passphrase prompt.
func (v *View) PromptReveal(namespace string, req reveal.PromptRequest) *reveal.Prompt {
	return v.coord.PromptReveal(namespace, req)
}

// ActivePrompt returns the namespace's open prompt, or nil.
func (v *View) ActivePrompt(namespace string) *reveal.Prompt {
	return v.coord.ActivePrompt(namespace)
}

// ClosePrompt dismisses the namespace's prompt.
func (v *View) ClosePrompt(namespace string) {
	v.coord.ClosePrompt(namespace)
}

// RevealFolder exchanges a passphrase for a session token.
func (v *View) RevealFolder(ctx context.Context, namespace, path, passphrase string) (string, error) {
	return v.coord.Reveal(ctx, namespace, path, passphrase)
}

// HideFolder re-locks a folder.
func (v *View) HideFolder(ctx context.Context, namespace, path, passphrase string) error {
	return v.coord.Hide(ctx, namespace, path, passphrase)
}

// ClearSession drops the session stored at exactly the given path.
func (v *View) ClearSession(namespace, path string) {
	v.registry.Store(namespace).ClearSession(path)
}

// ClearAllSessions empties every namespace.
func (v *View) ClearAllSessions() {
	v.registry.ClearAll()
}

// OnExpiry subscribes to the point-to-point expiry broadcast.
func (v *View) OnExpiry(h func(reveal.Expiry)) func() {
	return v.coord.Expiries().Subscribe(h)
}
