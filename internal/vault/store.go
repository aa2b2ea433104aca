package vault

import (
	"log/slog"
	"sync"
	"time"

	"github.com/tonimelisma/drivevault/internal/pathkey"
)

// ChangeHandler receives a snapshot of the full session map after every
// mutation. The snapshot is a copy — handlers may hold or mutate it freely.
type ChangeHandler func(sessions map[string]Session)

// Store is the session-token cache for one namespace. It is the single
// writer of its session map: the coordinator and UI layers request
// mutations through its operations and never touch session state directly.
//
// Lookups resolve by path specificity: a direct match wins, otherwise the
// deepest unexpired ancestor. Expired entries are evicted lazily by the
// lookup that discovers them.
type Store struct {
	namespace string
	snap      Snapshotter
	logger    *slog.Logger

	// nowFunc returns the current time. Tests override it to control expiry.
	nowFunc func() time.Time

	mu       sync.Mutex
	sessions map[string]Session
	handlers map[int]ChangeHandler
	nextID   int
}

// NewStore creates a Store for the given namespace, loading any persisted
// snapshot. A snapshot that cannot be loaded is logged and ignored — the
// store starts empty rather than failing construction.
func NewStore(namespace string, snap Snapshotter, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Store{
		namespace: namespace,
		snap:      snap,
		logger:    logger,
		nowFunc:   time.Now,
		sessions:  make(map[string]Session),
		handlers:  make(map[int]ChangeHandler),
	}

	loaded, err := snap.Load(namespace)
	if err != nil {
		logger.Warn("failed to load session snapshot, starting empty",
			slog.String("namespace", namespace),
			slog.String("error", err.Error()),
		)

		return s
	}

	if loaded != nil {
		s.sessions = loaded
		logger.Debug("restored session snapshot",
			slog.String("namespace", namespace),
			slog.Int("count", len(loaded)),
		)
	}

	return s
}

// Namespace returns the namespace key this store serves.
func (s *Store) Namespace() string {
	return s.namespace
}

// SetSession stores or overwrites the session for a path. Last write wins;
// there is no constraint on overlapping expiries. The change is persisted
// and subscribers are notified synchronously before SetSession returns.
func (s *Store) SetSession(path, token string, expiresAt int64) {
	normalized := pathkey.Normalize(path)

	s.mu.Lock()
	s.sessions[normalized] = Session{Path: normalized, Token: token, ExpiresAt: expiresAt}
	notify := s.persistAndSnapshotLocked()
	s.mu.Unlock()

	s.logger.Debug("session stored",
		slog.String("namespace", s.namespace),
		slog.String("path", normalized),
		slog.Time("expires_at", time.Unix(expiresAt, 0)),
	)

	notify()
}

// GetSession resolves the token covering a path. Resolution order:
//  1. Direct match at the normalized path, if unexpired.
//  2. Strict-prefix ancestors, deepest first. The empty root is never
//     treated as a universal ancestor — only non-empty prefixes count.
//
// Expired entries discovered along the way are evicted, and an expired
// direct match falls through to the ancestor scan rather than ending the
// lookup: the folder's own unlock may have lapsed while a parent folder
// is still unlocked. Returns ("", false) when nothing covers the path.
func (s *Store) GetSession(path string) (string, bool) {
	normalized := pathkey.Normalize(path)
	now := s.nowFunc()

	s.mu.Lock()

	token, found, evicted := s.resolveLocked(normalized, now)

	notify := func() {}
	if evicted > 0 {
		notify = s.persistAndSnapshotLocked()
	}

	s.mu.Unlock()

	if evicted > 0 {
		s.logger.Debug("evicted expired sessions during lookup",
			slog.String("namespace", s.namespace),
			slog.String("path", normalized),
			slog.Int("evicted", evicted),
		)
	}

	notify()

	return token, found
}

// resolveLocked performs the direct-then-ancestors lookup. Callers hold mu.
func (s *Store) resolveLocked(normalized string, now time.Time) (string, bool, int) {
	evicted := 0

	if sess, ok := s.sessions[normalized]; ok {
		if sess.ValidAt(now) {
			return sess.Token, true, evicted
		}

		delete(s.sessions, normalized)
		evicted++
	}

	for _, ancestor := range pathkey.Ancestors(normalized) {
		sess, ok := s.sessions[ancestor]
		if !ok {
			continue
		}

		if sess.ValidAt(now) {
			return sess.Token, true, evicted
		}

		delete(s.sessions, ancestor)
		evicted++
	}

	return "", false, evicted
}

// ClearSession removes the session stored at exactly the normalized path.
// No ancestor or descendant cascade. No-op (and no change emission) if
// nothing is stored there.
func (s *Store) ClearSession(path string) {
	normalized := pathkey.Normalize(path)

	s.mu.Lock()

	if _, ok := s.sessions[normalized]; !ok {
		s.mu.Unlock()
		return
	}

	delete(s.sessions, normalized)
	notify := s.persistAndSnapshotLocked()
	s.mu.Unlock()

	s.logger.Debug("session cleared",
		slog.String("namespace", s.namespace),
		slog.String("path", normalized),
	)

	notify()
}

// EvictExpired removes every session whose expiry has passed at the
// given instant. Expiry is re-checked under the store's lock, so a
// session renewed after the caller last observed the store is never
// evicted. Returns the evicted paths; persists and emits a single
// change when anything was evicted.
func (s *Store) EvictExpired(now time.Time) []string {
	s.mu.Lock()

	var evicted []string

	for path, sess := range s.sessions {
		if sess.ValidAt(now) {
			continue
		}

		delete(s.sessions, path)
		evicted = append(evicted, path)
	}

	if len(evicted) == 0 {
		s.mu.Unlock()
		return nil
	}

	notify := s.persistAndSnapshotLocked()
	s.mu.Unlock()

	s.logger.Debug("evicted expired sessions",
		slog.String("namespace", s.namespace),
		slog.Int("evicted", len(evicted)),
	)

	notify()

	return evicted
}

// ClearAll empties the namespace and removes its persisted snapshot.
func (s *Store) ClearAll() {
	s.mu.Lock()
	s.sessions = make(map[string]Session)

	if err := s.snap.Clear(s.namespace); err != nil {
		s.logger.Warn("failed to clear persisted snapshot",
			slog.String("namespace", s.namespace),
			slog.String("error", err.Error()),
		)
	}

	notify := s.notifyLocked(map[string]Session{})
	s.mu.Unlock()

	s.logger.Info("cleared all sessions", slog.String("namespace", s.namespace))

	notify()
}

// AllSessions returns a snapshot copy of the session map. Mutating the
// returned map does not affect the store.
func (s *Store) AllSessions() map[string]Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.copyLocked()
}

// Subscribe registers a change handler and returns its disposer. Handlers
// run synchronously after each mutation, outside the store's lock, so a
// handler may read back into the store and observes post-mutation state.
func (s *Store) Subscribe(h ChangeHandler) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.handlers[id] = h
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.handlers, id)
		s.mu.Unlock()
	}
}

// persistAndSnapshotLocked saves the current map (best-effort) and returns
// the pending notification closure. Callers hold mu and must invoke the
// returned closure after unlocking.
func (s *Store) persistAndSnapshotLocked() func() {
	if err := s.snap.Save(s.namespace, s.copyLocked()); err != nil {
		s.logger.Warn("failed to persist session snapshot",
			slog.String("namespace", s.namespace),
			slog.String("error", err.Error()),
		)
	}

	return s.notifyLocked(s.copyLocked())
}

// notifyLocked captures the current handler list and returns a closure
// that delivers the given snapshot to each handler.
func (s *Store) notifyLocked(snapshot map[string]Session) func() {
	handlers := make([]ChangeHandler, 0, len(s.handlers))
	for _, h := range s.handlers {
		handlers = append(handlers, h)
	}

	return func() {
		for _, h := range handlers {
			h(snapshot)
		}
	}
}

// copyLocked duplicates the session map. Callers hold mu.
func (s *Store) copyLocked() map[string]Session {
	out := make(map[string]Session, len(s.sessions))
	for k, v := range s.sessions {
		out[k] = v
	}

	return out
}
