package reveal

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonimelisma/drivevault/internal/authstate"
	"github.com/tonimelisma/drivevault/internal/revealapi"
	"github.com/tonimelisma/drivevault/internal/vault"
)

const testNS = "hidden-folder"

// fakeAPI scripts reveal/hide responses per path.
type fakeAPI struct {
	mu       sync.Mutex
	reveals  map[string]*revealapi.RevealResponse
	err      error
	hideErr  error
	lastPath string
}

func (f *fakeAPI) Reveal(_ context.Context, req revealapi.RevealRequest) (*revealapi.RevealResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.lastPath = req.Path

	if f.err != nil {
		return nil, f.err
	}

	if resp, ok := f.reveals[req.Path]; ok {
		return resp, nil
	}

	return &revealapi.RevealResponse{SessionToken: "tok-" + req.Path, ExpiresAt: time.Now().Unix() + 900}, nil
}

func (f *fakeAPI) Hide(_ context.Context, req revealapi.HideRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.lastPath = req.Path

	return f.hideErr
}

// fakeHidden records Add calls.
type fakeHidden struct {
	mu    sync.Mutex
	added []string
}

func (f *fakeHidden) Add(_ context.Context, namespace, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.added = append(f.added, namespace+":"+path)

	return nil
}

// fakeAuth is a manually-driven AuthStates provider.
type fakeAuth struct {
	mu       sync.Mutex
	handlers []func(authstate.Status)
}

func (f *fakeAuth) Subscribe(h func(authstate.Status)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.handlers = append(f.handlers, h)

	return func() {}
}

func (f *fakeAuth) emit(s authstate.Status) {
	f.mu.Lock()
	handlers := append([]func(authstate.Status){}, f.handlers...)
	f.mu.Unlock()

	for _, h := range handlers {
		h(s)
	}
}

func newTestCoordinator(t *testing.T, api API, opts Options) (*Coordinator, *vault.Registry) {
	t.Helper()

	registry := vault.NewRegistry(vault.NewMemSnapshots(), slog.Default())
	c := NewCoordinator(registry, api, opts, slog.Default())
	t.Cleanup(c.Close)

	return c, registry
}

func TestCoordinator_RevealStoresUnderRequestedPath(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{reveals: map[string]*revealapi.RevealResponse{
		"docs/secret": {
			SessionToken: "tok-1",
			ExpiresAt:    time.Now().Unix() + 900,
			// Server reports a different canonical path.
			HiddenFolderPath: "Docs/Secret Folder",
		},
	}}

	hidden := &fakeHidden{}
	c, registry := newTestCoordinator(t, api, Options{Hidden: hidden})

	tok, err := c.Reveal(context.Background(), testNS, "/docs/secret/", "pw")
	require.NoError(t, err)
	assert.Equal(t, "tok-1", tok)

	// The session is keyed by the requested normalized path.
	got, ok := registry.Store(testNS).GetSession("docs/secret")
	require.True(t, ok)
	assert.Equal(t, "tok-1", got)

	// The canonical path is not a lookup key.
	_, ok = registry.Store(testNS).GetSession("Docs/Secret Folder")
	assert.False(t, ok)

	// But it is recorded for UI affordance.
	assert.Contains(t, hidden.added, testNS+":Docs/Secret Folder")
}

func TestCoordinator_RevealDefaultsExpiry(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{reveals: map[string]*revealapi.RevealResponse{
		"docs": {SessionToken: "tok-1"}, // no ExpiresAt from the server
	}}

	c, registry := newTestCoordinator(t, api, Options{})

	now := time.Unix(1_700_000_000, 0)
	c.nowFunc = func() time.Time { return now }

	_, err := c.Reveal(context.Background(), testNS, "docs", "pw")
	require.NoError(t, err)

	sessions := registry.Store(testNS).AllSessions()
	require.Contains(t, sessions, "docs")
	assert.Equal(t, now.Unix()+900, sessions["docs"].ExpiresAt)
}

func TestCoordinator_RevealMissingTokenIsFailure(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{reveals: map[string]*revealapi.RevealResponse{
		"docs": {SessionToken: ""},
	}}

	c, registry := newTestCoordinator(t, api, Options{})

	_, err := c.Reveal(context.Background(), testNS, "docs", "pw")
	require.ErrorIs(t, err, ErrNoSessionToken)

	assert.Empty(t, registry.Store(testNS).AllSessions())
}

func TestCoordinator_RevealRootSendsSlash(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{reveals: map[string]*revealapi.RevealResponse{
		"/": {SessionToken: "root-tok", ExpiresAt: time.Now().Unix() + 900},
	}}

	c, registry := newTestCoordinator(t, api, Options{})

	_, err := c.Reveal(context.Background(), testNS, "", "pw")
	require.NoError(t, err)
	assert.Equal(t, "/", api.lastPath)

	// Stored under the normalized root key.
	tok, ok := registry.Store(testNS).GetSession("/")
	require.True(t, ok)
	assert.Equal(t, "root-tok", tok)
}

func TestCoordinator_PromptLifecycle(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{}
	c, _ := newTestCoordinator(t, api, Options{})

	var gotToken string

	p := c.PromptReveal(testNS, PromptRequest{
		Path:      "/docs/secret/",
		OnSuccess: func(tok string) { gotToken = tok },
	})

	require.NotNil(t, p)
	assert.Equal(t, "docs/secret", p.Path)
	assert.Equal(t, "secret", p.DisplayName)
	assert.Equal(t, PromptPending, p.State)
	assert.NotEmpty(t, p.ID)

	active := c.ActivePrompt(testNS)
	require.NotNil(t, active)
	assert.Equal(t, p.ID, active.ID)

	_, err := c.Reveal(context.Background(), testNS, "docs/secret", "pw")
	require.NoError(t, err)

	// Success closes the prompt and fires the callback.
	assert.Nil(t, c.ActivePrompt(testNS))
	assert.Equal(t, "tok-docs/secret", gotToken)
}

func TestCoordinator_PromptLabelOverridesDisplayName(t *testing.T) {
	t.Parallel()

	c, _ := newTestCoordinator(t, &fakeAPI{}, Options{})

	p := c.PromptReveal(testNS, PromptRequest{Path: "docs/secret", Label: "My Vault"})
	assert.Equal(t, "My Vault", p.DisplayName)
}

func TestCoordinator_PromptReplacedOutright(t *testing.T) {
	t.Parallel()

	c, _ := newTestCoordinator(t, &fakeAPI{}, Options{})

	first := c.PromptReveal(testNS, PromptRequest{Path: "docs"})
	second := c.PromptReveal(testNS, PromptRequest{Path: "pics"})

	active := c.ActivePrompt(testNS)
	require.NotNil(t, active)
	assert.Equal(t, second.ID, active.ID)
	assert.NotEqual(t, first.ID, active.ID)
}

func TestCoordinator_PromptSlotPerNamespace(t *testing.T) {
	t.Parallel()

	c, _ := newTestCoordinator(t, &fakeAPI{}, Options{})

	c.PromptReveal("hidden-folder", PromptRequest{Path: "docs"})
	c.PromptReveal("encrypted-folder", PromptRequest{Path: "pics"})

	require.NotNil(t, c.ActivePrompt("hidden-folder"))
	require.NotNil(t, c.ActivePrompt("encrypted-folder"))
	assert.Equal(t, "docs", c.ActivePrompt("hidden-folder").Path)
	assert.Equal(t, "pics", c.ActivePrompt("encrypted-folder").Path)
}

func TestCoordinator_FailedRevealKeepsPromptOpenWithError(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{err: &revealapi.APIError{
		StatusCode: 403,
		Message:    "incorrect passphrase",
		Err:        revealapi.ErrForbidden,
	}}

	c, _ := newTestCoordinator(t, api, Options{})

	c.PromptReveal(testNS, PromptRequest{Path: "docs"})

	_, err := c.Reveal(context.Background(), testNS, "docs", "wrong")
	require.Error(t, err)
	require.ErrorIs(t, err, revealapi.ErrForbidden)

	// PromptPending again, error surfaced for retry.
	active := c.ActivePrompt(testNS)
	require.NotNil(t, active)
	assert.Equal(t, PromptPending, active.State)
	assert.Equal(t, "incorrect passphrase", active.LastError)
}

func TestCoordinator_ClosePrompt(t *testing.T) {
	t.Parallel()

	c, _ := newTestCoordinator(t, &fakeAPI{}, Options{})

	c.PromptReveal(testNS, PromptRequest{Path: "docs"})
	c.ClosePrompt(testNS)

	assert.Nil(t, c.ActivePrompt(testNS))
}

func TestCoordinator_RevealInvokesInvalidation(t *testing.T) {
	t.Parallel()

	var invalidated []string

	c, _ := newTestCoordinator(t, &fakeAPI{}, Options{
		Invalidate: func(ns, path string) { invalidated = append(invalidated, ns+":"+path) },
	})

	_, err := c.Reveal(context.Background(), testNS, "docs", "pw")
	require.NoError(t, err)

	assert.Equal(t, []string{testNS + ":docs"}, invalidated)
}

func TestCoordinator_HideClearsSession(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{}
	hidden := &fakeHidden{}
	c, registry := newTestCoordinator(t, api, Options{Hidden: hidden})

	_, err := c.Reveal(context.Background(), testNS, "docs", "pw")
	require.NoError(t, err)

	require.NoError(t, c.Hide(context.Background(), testNS, "docs", "pw"))

	_, ok := registry.Store(testNS).GetSession("docs")
	assert.False(t, ok)
	assert.Contains(t, hidden.added, testNS+":docs")
}

func TestCoordinator_SignOutClearsEverything(t *testing.T) {
	t.Parallel()

	auth := &fakeAuth{}
	c, registry := newTestCoordinator(t, &fakeAPI{}, Options{Auth: auth})

	_, err := c.Reveal(context.Background(), "hidden-folder", "docs", "pw")
	require.NoError(t, err)
	_, err = c.Reveal(context.Background(), "encrypted-folder", "pics", "pw")
	require.NoError(t, err)

	c.PromptReveal("hidden-folder", PromptRequest{Path: "more"})

	auth.emit(authstate.StatusUnauthenticated)

	assert.Empty(t, registry.Store("hidden-folder").AllSessions())
	assert.Empty(t, registry.Store("encrypted-folder").AllSessions())
	assert.Nil(t, c.ActivePrompt("hidden-folder"))
}

func TestCoordinator_SignInDoesNotClear(t *testing.T) {
	t.Parallel()

	auth := &fakeAuth{}
	c, registry := newTestCoordinator(t, &fakeAPI{}, Options{Auth: auth})

	_, err := c.Reveal(context.Background(), testNS, "docs", "pw")
	require.NoError(t, err)

	auth.emit(authstate.StatusAuthenticated)

	assert.Len(t, registry.Store(testNS).AllSessions(), 1)
}

func TestCoordinator_SweepEvictsAndNotifies(t *testing.T) {
	t.Parallel()

	c, registry := newTestCoordinator(t, &fakeAPI{}, Options{})

	now := time.Unix(1_700_000_000, 0)
	c.nowFunc = func() time.Time { return now }

	registry.Store(testNS).SetSession("fresh", "F", now.Unix()+900)
	registry.Store(testNS).SetSession("stale", "S", now.Unix()-10)

	var expiries []Expiry

	cancel := c.Expiries().Subscribe(func(e Expiry) { expiries = append(expiries, e) })
	defer cancel()

	c.sweepOnce()

	require.Len(t, expiries, 1)
	assert.Equal(t, Expiry{Namespace: testNS, Path: "stale"}, expiries[0])

	sessions := registry.Store(testNS).AllSessions()
	assert.Contains(t, sessions, "fresh")
	assert.NotContains(t, sessions, "stale")
}

func TestCoordinator_SweepSparesSessionsRenewedMidSweep(t *testing.T) {
	t.Parallel()

	c, registry := newTestCoordinator(t, &fakeAPI{}, Options{})

	// The store keeps its real clock, so the fixture clock must be the
	// present: a past epoch would make GetSession evict the renewed
	// session against wall time.
	now := time.Now()
	c.nowFunc = func() time.Time { return now }

	store := registry.Store(testNS)
	store.SetSession("a", "A", now.Unix()-10)
	store.SetSession("b", "B", now.Unix()-10)

	// A change handler renews "b" the instant the sweep's eviction lands,
	// standing in for a reveal response arriving mid-sweep. The sweep must
	// not evict the renewed session.
	var renewed bool

	cancel := store.Subscribe(func(map[string]vault.Session) {
		if renewed {
			return
		}

		renewed = true
		store.SetSession("b", "RENEWED", now.Unix()+900)
	})
	defer cancel()

	c.sweepOnce()

	sessions := store.AllSessions()
	require.Len(t, sessions, 1)
	assert.Equal(t, "RENEWED", sessions["b"].Token)

	tok, ok := store.GetSession("b")
	assert.True(t, ok)
	assert.Equal(t, "RENEWED", tok)
}

func TestCoordinator_SweepCoversAllNamespaces(t *testing.T) {
	t.Parallel()

	c, registry := newTestCoordinator(t, &fakeAPI{}, Options{})

	now := time.Unix(1_700_000_000, 0)
	c.nowFunc = func() time.Time { return now }

	registry.Store("hidden-folder").SetSession("a", "T", now.Unix()-1)
	registry.Store("encrypted-folder").SetSession("b", "T", now.Unix()-1)

	var expiries []Expiry

	cancel := c.Expiries().Subscribe(func(e Expiry) { expiries = append(expiries, e) })
	defer cancel()

	c.sweepOnce()

	assert.Len(t, expiries, 2)
}

func TestCoordinator_ApplyRevocation(t *testing.T) {
	t.Parallel()

	c, registry := newTestCoordinator(t, &fakeAPI{}, Options{})

	registry.Store(testNS).SetSession("docs", "T", time.Now().Unix()+900)

	var expiries []Expiry

	cancel := c.Expiries().Subscribe(func(e Expiry) { expiries = append(expiries, e) })
	defer cancel()

	c.applyRevocation(Revocation{Namespace: testNS, Path: "docs"})

	_, ok := registry.Store(testNS).GetSession("docs")
	assert.False(t, ok)
	require.Len(t, expiries, 1)
	assert.Equal(t, "docs", expiries[0].Path)
}

func TestUserMessage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			"message wins",
			&revealapi.APIError{Message: "bad passphrase", Title: "Denied"},
			"bad passphrase",
		},
		{
			"title fallback",
			&revealapi.APIError{Title: "Denied", StatusCode: 403},
			"Denied",
		},
		{
			"raw error",
			context.DeadlineExceeded,
			"context deadline exceeded",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, userMessage(tt.err))
		})
	}
}
