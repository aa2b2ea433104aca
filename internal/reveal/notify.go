package reveal

import "sync"

// Expiry announces that the session covering a path has ended, whether by
// timer sweep or by a server-pushed revocation. It is delivered outside
// the store's change subscription so components that never subscribe to
// the store (a breadcrumb, a lock badge) can still react.
type Expiry struct {
	Namespace string
	Path      string
}

// ExpiryNotifier is a point-to-point broadcast of Expiry events with
// disposer-based subscriptions.
type ExpiryNotifier struct {
	mu       sync.Mutex
	handlers map[int]func(Expiry)
	nextID   int
}

// NewExpiryNotifier creates an empty notifier.
func NewExpiryNotifier() *ExpiryNotifier {
	return &ExpiryNotifier{handlers: make(map[int]func(Expiry))}
}

// Subscribe registers a handler and returns its disposer.
func (n *ExpiryNotifier) Subscribe(h func(Expiry)) func() {
	n.mu.Lock()
	id := n.nextID
	n.nextID++
	n.handlers[id] = h
	n.mu.Unlock()

	return func() {
		n.mu.Lock()
		delete(n.handlers, id)
		n.mu.Unlock()
	}
}

// publish delivers an event to every current subscriber.
func (n *ExpiryNotifier) publish(e Expiry) {
	n.mu.Lock()

	handlers := make([]func(Expiry), 0, len(n.handlers))
	for _, h := range n.handlers {
		handlers = append(handlers, h)
	}

	n.mu.Unlock()

	for _, h := range handlers {
		h(e)
	}
}
