package projection

import (
	"reflect"
	"sync"

	"github.com/tonimelisma/drivevault/internal/vault"
)

// Query gives a selector read access to one namespace's derived state at
// the moment of a change.
type Query struct {
	view      *View
	namespace string
}

// IsRevealed reports whether an unexpired session covers the path.
func (q Query) IsRevealed(path string) bool {
	return q.view.IsFolderRevealed(q.namespace, path)
}

// TokenFor resolves the covering token, or "".
func (q Query) TokenFor(path string) string {
	return q.view.HiddenSessionToken(q.namespace, path)
}

// Sessions returns a snapshot of the namespace's session map.
func (q Query) Sessions() map[string]string {
	all := q.view.registry.Store(q.namespace).AllSessions()

	tokens := make(map[string]string, len(all))
	for path, sess := range all {
		tokens[path] = sess.Token
	}

	return tokens
}

// Watch re-evaluates the selector against the namespace whenever its
// store changes, invoking handler only when the selected value differs
// from the previous one under shallow equality. The selector runs once at
// subscription time to establish the baseline without notifying. Returns
// a disposer.
func (v *View) Watch(namespace string, selector func(Query) any, handler func(any)) func() {
	q := Query{view: v, namespace: namespace}

	// Store mutations can come from any goroutine (a reveal on one, the
	// expiry sweep on another), so the compare-and-assign on last must be
	// serialized. The handler runs outside the lock — it may re-enter the
	// store, which would re-enter this closure.
	var mu sync.Mutex

	last := selector(q)

	return v.registry.Store(namespace).Subscribe(func(map[string]vault.Session) {
		next := selector(q)

		mu.Lock()
		if shallowEqual(last, next) {
			mu.Unlock()
			return
		}

		last = next
		mu.Unlock()

		handler(next)
	})
}

// shallowEqual compares two selected values one level deep: maps and
// slices are compared element-wise with ==, everything else directly.
// Differing types are never equal.
func shallowEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == b
	}

	av := reflect.ValueOf(a)
	bv := reflect.ValueOf(b)

	if av.Type() != bv.Type() {
		return false
	}

	switch av.Kind() {
	case reflect.Map:
		if av.Len() != bv.Len() {
			return false
		}

		iter := av.MapRange()
		for iter.Next() {
			other := bv.MapIndex(iter.Key())
			if !other.IsValid() || !scalarEqual(iter.Value(), other) {
				return false
			}
		}

		return true
	case reflect.Slice:
		if av.Len() != bv.Len() {
			return false
		}

		for i := range av.Len() {
			if !scalarEqual(av.Index(i), bv.Index(i)) {
				return false
			}
		}

		return true
	default:
		return scalarEqual(av, bv)
	}
}

// scalarEqual compares two reflect values with ==, treating uncomparable
// values as unequal rather than panicking.
func scalarEqual(a, b reflect.Value) bool {
	if !a.Comparable() || !b.Comparable() {
		return false
	}

	return a.Equal(b)
}
