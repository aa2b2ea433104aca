// Package vault implements the path-scoped session-token cache that gates
// access to hidden and encrypted folders. Each protection mechanism gets
// its own namespace: an isolated store mapping normalized folder paths to
// short-lived opaque session tokens. A token granted on a parent folder
// covers all of its descendants via ancestor-prefix lookup.
package vault

import "time"

// Session is one cached unlock: an opaque server-issued token scoped to a
// normalized folder path, valid until ExpiresAt (unix seconds).
type Session struct {
	Path      string `json:"path"`
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expires_at"`
}

// ValidAt reports whether the session is still usable at the given instant.
// Expiry is exclusive: a session whose ExpiresAt equals now is expired.
func (s Session) ValidAt(now time.Time) bool {
	return s.ExpiresAt > now.Unix()
}
