package vault

import "sync"

// Snapshotter persists the session map of a namespace between runs. The
// store treats persistence as best-effort: Save and Clear failures are
// logged by the caller and never affect in-memory state, and a Load
// failure means the store simply starts empty.
type Snapshotter interface {
	// Load returns the persisted session map for a namespace, or nil if
	// no snapshot exists.
	Load(namespace string) (map[string]Session, error)

	// Save replaces the persisted snapshot for a namespace.
	Save(namespace string, sessions map[string]Session) error

	// Clear removes the persisted snapshot for a namespace.
	Clear(namespace string) error
}

// MemSnapshots is an in-memory Snapshotter. It backs tests and acts as the
// session-scoped storage tier: snapshots live exactly as long as the
// process, mirroring browser session storage semantics.
type MemSnapshots struct {
	mu        sync.Mutex
	snapshots map[string]map[string]Session
}

// NewMemSnapshots creates an empty in-memory snapshot store.
func NewMemSnapshots() *MemSnapshots {
	return &MemSnapshots{snapshots: make(map[string]map[string]Session)}
}

// Load returns a copy of the stored snapshot for the namespace.
func (m *MemSnapshots) Load(namespace string) (map[string]Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.snapshots[namespace]
	if !ok {
		return nil, nil
	}

	out := make(map[string]Session, len(stored))
	for k, v := range stored {
		out[k] = v
	}

	return out, nil
}

// Save stores a copy of the session map for the namespace.
func (m *MemSnapshots) Save(namespace string, sessions map[string]Session) error {
	copied := make(map[string]Session, len(sessions))
	for k, v := range sessions {
		copied[k] = v
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.snapshots[namespace] = copied

	return nil
}

// Clear drops the snapshot for the namespace.
func (m *MemSnapshots) Clear(namespace string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.snapshots, namespace)

	return nil
}
