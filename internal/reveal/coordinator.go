// Package reveal orchestrates the unlock workflow for hidden and
// encrypted folders: passphrase prompts, the reveal/hide endpoints, the
// periodic expiry sweep, and the sign-out reaction that drops every
// cached session.
package reveal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tonimelisma/drivevault/internal/authstate"
	"github.com/tonimelisma/drivevault/internal/pathkey"
	"github.com/tonimelisma/drivevault/internal/revealapi"
	"github.com/tonimelisma/drivevault/internal/vault"
)

// ErrNoSessionToken is returned when the server answers a reveal with 2xx
// but no token. Treated as a failure, never a silent no-op.
var ErrNoSessionToken = errors.New("reveal: no session token returned")

// defaultSessionTTL applies when the server omits an expiry.
const defaultSessionTTL = 900 * time.Second

// defaultSweepInterval is how often the expiry sweep scans all namespaces.
// Fixed interval, independent of any individual session's expiry.
const defaultSweepInterval = 30 * time.Second

// genericRevealError is shown when nothing better can be extracted from a
// failed reveal.
const genericRevealError = "could not unlock folder"

// API is the endpoint surface the coordinator consumes. Implemented by
// revealapi.Client.
type API interface {
	Reveal(ctx context.Context, req revealapi.RevealRequest) (*revealapi.RevealResponse, error)
	Hide(ctx context.Context, req revealapi.HideRequest) error
}

// HiddenRegistrar records paths learned to be hidden, for UI affordance.
// Implemented by vault.HiddenPaths.
type HiddenRegistrar interface {
	Add(ctx context.Context, namespace, path string) error
}

// AuthStates exposes authentication transitions. Implemented by
// authstate.Watcher.
type AuthStates interface {
	Subscribe(func(authstate.Status)) func()
}

// Options configures optional coordinator collaborators.
type Options struct {
	// Hidden records server-reported canonical hidden paths. Optional.
	Hidden HiddenRegistrar

	// Auth triggers ClearAll on sign-out when provided.
	Auth AuthStates

	// Invalidate is called after a successful reveal or hide so the
	// data-fetch layer refetches directory listings. Optional.
	Invalidate func(namespace, path string)

	// RevocationURL is the websocket feed of server-pushed session
	// revocations. The feed is skipped when empty.
	RevocationURL string

	// SweepInterval overrides the expiry sweep cadence. Zero means the
	// default.
	SweepInterval time.Duration

	// DefaultTTL overrides the fallback session lifetime. Zero means the
	// default 900 seconds.
	DefaultTTL time.Duration
}

// Coordinator drives the reveal/hide workflow over the vault registry.
// It owns one prompt slot per namespace and the expiry sweep lifecycle.
type Coordinator struct {
	registry *vault.Registry
	api      API
	opts     Options
	notifier *ExpiryNotifier
	logger   *slog.Logger

	// nowFunc returns the current time. Tests override it to control expiry.
	nowFunc func() time.Time

	mu          sync.Mutex
	prompts     map[string]*Prompt
	unsubscribe func()
}

// NewCoordinator wires a coordinator over the registry and API client.
// When opts.Auth is provided, the coordinator immediately subscribes so a
// transition to unauthenticated clears every namespace.
func NewCoordinator(registry *vault.Registry, api API, opts Options, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}

	if opts.SweepInterval <= 0 {
		opts.SweepInterval = defaultSweepInterval
	}

	if opts.DefaultTTL <= 0 {
		opts.DefaultTTL = defaultSessionTTL
	}

	c := &Coordinator{
		registry: registry,
		api:      api,
		opts:     opts,
		notifier: NewExpiryNotifier(),
		logger:   logger,
		nowFunc:  time.Now,
		prompts:  make(map[string]*Prompt),
	}

	if opts.Auth != nil {
		c.unsubscribe = opts.Auth.Subscribe(c.handleAuthChange)
	}

	return c
}

// Expiries exposes the point-to-point expiry notifier.
func (c *Coordinator) Expiries() *ExpiryNotifier {
	return c.notifier
}

// Close detaches the coordinator from the auth provider.
func (c *Coordinator) Close() {
	if c.unsubscribe != nil {
		c.unsubscribe()
	}
}

// PromptReveal opens the passphrase prompt for a namespace, replacing any
// prior prompt outright — there is no queue, only the single slot. The
// replaced prompt's in-flight request (if any) is not cancelled; its late
// response will still write a session when it lands.
func (c *Coordinator) PromptReveal(namespace string, req PromptRequest) *Prompt {
	p := newPrompt(namespace, req)

	c.mu.Lock()
	prior := c.prompts[namespace]
	c.prompts[namespace] = p
	c.mu.Unlock()

	if prior != nil {
		c.logger.Debug("replaced active reveal prompt",
			slog.String("namespace", namespace),
			slog.String("prior_path", prior.Path),
			slog.String("path", p.Path),
		)
	}

	return p.snapshot()
}

// ActivePrompt returns a copy of the namespace's open prompt, or nil.
func (c *Coordinator) ActivePrompt(namespace string) *Prompt {
	c.mu.Lock()
	defer c.mu.Unlock()

	if p, ok := c.prompts[namespace]; ok {
		return p.snapshot()
	}

	return nil
}

// ClosePrompt dismisses the namespace's prompt without revealing.
func (c *Coordinator) ClosePrompt(namespace string) {
	c.mu.Lock()
	delete(c.prompts, namespace)
	c.mu.Unlock()
}

// Reveal exchanges a passphrase for a session token and caches it under
// the requested normalized path. Lookups during browsing are keyed by the
// path being browsed, so the requested path — not any server-reported
// canonical path — is the lookup key. A distinct canonical path is only
// recorded in the hidden-path registry for UI affordance.
//
// Concurrent reveals for the same path are not serialized: the last
// response to land overwrites the session.
func (c *Coordinator) Reveal(ctx context.Context, namespace, path, passphrase string) (string, error) {
	normalized := pathkey.Normalize(path)
	c.setPromptState(namespace, normalized, PromptSubmitting, "")

	resp, err := c.api.Reveal(ctx, revealapi.RevealRequest{
		Path:       wirePath(normalized),
		Passphrase: passphrase,
	})
	if err == nil && resp.SessionToken == "" {
		err = ErrNoSessionToken
	}

	if err != nil {
		// The prompt stays open with the error attached; the user must
		// resubmit — no automatic retry.
		c.setPromptState(namespace, normalized, PromptPending, userMessage(err))

		c.logger.Warn("reveal failed",
			slog.String("namespace", namespace),
			slog.String("path", normalized),
			slog.String("error", err.Error()),
		)

		return "", fmt.Errorf("reveal: unlocking %q: %w", normalized, err)
	}

	expiresAt := resp.ExpiresAt
	if expiresAt == 0 {
		expiresAt = c.nowFunc().Add(c.opts.DefaultTTL).Unix()
	}

	c.registry.Store(namespace).SetSession(normalized, resp.SessionToken, expiresAt)

	c.recordCanonicalPath(ctx, namespace, resp.HiddenFolderPath)
	c.finishPrompt(namespace, normalized, resp.SessionToken)
	c.invalidate(namespace, normalized)

	c.logger.Info("folder revealed",
		slog.String("namespace", namespace),
		slog.String("path", normalized),
		slog.Time("expires_at", time.Unix(expiresAt, 0)),
	)

	return resp.SessionToken, nil
}

// Hide re-locks a folder: the server invalidates the session, the cached
// entry is dropped, and the path is recorded as hidden.
func (c *Coordinator) Hide(ctx context.Context, namespace, path, passphrase string) error {
	normalized := pathkey.Normalize(path)

	err := c.api.Hide(ctx, revealapi.HideRequest{
		Path:       wirePath(normalized),
		Passphrase: passphrase,
	})
	if err != nil {
		return fmt.Errorf("reveal: hiding %q: %w", normalized, err)
	}

	c.registry.Store(namespace).ClearSession(normalized)
	c.recordCanonicalPath(ctx, namespace, normalized)
	c.invalidate(namespace, normalized)

	c.logger.Info("folder hidden",
		slog.String("namespace", namespace),
		slog.String("path", normalized),
	)

	return nil
}

// Run drives the coordinator's background work — the expiry sweep and,
// when configured, the revocation feed — until ctx is done.
func (c *Coordinator) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return c.runSweep(ctx) })

	if c.opts.RevocationURL != "" {
		g.Go(func() error { return c.runRevocationFeed(ctx, c.opts.RevocationURL) })
	}

	return g.Wait()
}

// handleAuthChange reacts to sign-out: every namespace is emptied and all
// prompts are dropped so unlocked content never outlives the login.
func (c *Coordinator) handleAuthChange(status authstate.Status) {
	if status != authstate.StatusUnauthenticated {
		return
	}

	c.logger.Info("signed out, clearing all vault sessions")

	c.mu.Lock()
	c.prompts = make(map[string]*Prompt)
	c.mu.Unlock()

	c.registry.ClearAll()
}

// setPromptState updates the active prompt when it matches the namespace
// and path being revealed. Reveals submitted without a prompt (or racing
// a replaced prompt) leave the slot untouched.
func (c *Coordinator) setPromptState(namespace, path string, state PromptState, lastError string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.prompts[namespace]
	if !ok || p.Path != path {
		return
	}

	p.State = state
	p.LastError = lastError
}

// finishPrompt closes the prompt after a successful reveal and fires its
// success callback.
func (c *Coordinator) finishPrompt(namespace, path, token string) {
	c.mu.Lock()

	p, ok := c.prompts[namespace]
	if !ok || p.Path != path {
		c.mu.Unlock()
		return
	}

	delete(c.prompts, namespace)
	c.mu.Unlock()

	if p.onSuccess != nil {
		p.onSuccess(token)
	}
}

// recordCanonicalPath stores a hidden path in the durable registry.
// Registration failures are logged, never surfaced — the registry is a UI
// affordance, not a correctness requirement.
func (c *Coordinator) recordCanonicalPath(ctx context.Context, namespace, path string) {
	if c.opts.Hidden == nil {
		return
	}

	normalized := pathkey.Normalize(path)
	if normalized == "" {
		return
	}

	if err := c.opts.Hidden.Add(ctx, namespace, normalized); err != nil {
		c.logger.Warn("failed to record hidden path",
			slog.String("namespace", namespace),
			slog.String("path", normalized),
			slog.String("error", err.Error()),
		)
	}
}

// invalidate signals the data-fetch layer to refetch listings for a path.
func (c *Coordinator) invalidate(namespace, path string) {
	if c.opts.Invalidate != nil {
		c.opts.Invalidate(namespace, path)
	}
}

// wirePath maps the normalized root (empty string) to "/" for the server.
func wirePath(normalized string) string {
	if normalized == "" {
		return "/"
	}

	return normalized
}

// userMessage extracts a single human-readable error for prompt display:
// the server's message field, else its title, else the raw error text,
// else a generic fallback.
func userMessage(err error) string {
	var apiErr *revealapi.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Message != "" {
			return apiErr.Message
		}

		if apiErr.Title != "" {
			return apiErr.Title
		}
	}

	if err != nil && err.Error() != "" {
		return err.Error()
	}

	return genericRevealError
}
