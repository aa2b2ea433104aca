package vault

import (
	"log/slog"
	"slices"
	"sync"
)

// Registry maps namespace keys to their Store instances, get-or-create.
// It is constructed once at startup and handed to consumers explicitly —
// there is no package-level singleton. Two namespace keys are fully
// isolated: no path or token ever crosses between their stores.
type Registry struct {
	snap   Snapshotter
	logger *slog.Logger

	mu     sync.Mutex
	stores map[string]*Store
}

// NewRegistry creates a Registry whose stores share the given Snapshotter.
func NewRegistry(snap Snapshotter, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}

	return &Registry{
		snap:   snap,
		logger: logger,
		stores: make(map[string]*Store),
	}
}

// Store returns the Store for a namespace, creating it on first use.
func (r *Registry) Store(namespace string) *Store {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.stores[namespace]; ok {
		return s
	}

	s := NewStore(namespace, r.snap, r.logger)
	r.stores[namespace] = s

	return s
}

// Namespaces returns the keys of all instantiated stores, sorted.
func (r *Registry) Namespaces() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	keys := make([]string, 0, len(r.stores))
	for k := range r.stores {
		keys = append(keys, k)
	}

	slices.Sort(keys)

	return keys
}

// Stores returns all instantiated stores in namespace order.
func (r *Registry) Stores() []*Store {
	stores := make([]*Store, 0)
	for _, ns := range r.Namespaces() {
		stores = append(stores, r.Store(ns))
	}

	return stores
}

// ClearAll empties every instantiated namespace. Used on sign-out so
// unlocked content never outlives the user's session.
func (r *Registry) ClearAll() {
	for _, s := range r.Stores() {
		s.ClearAll()
	}
}
