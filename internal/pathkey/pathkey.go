// Package pathkey provides the canonical path form used as the lookup key
// for vault sessions, plus ancestor enumeration for prefix-scoped lookups.
// This is a leaf package imported by vault/, reveal/, and projection/ to
// avoid duplicating normalization rules across consumers.
package pathkey

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Separator is the remote path separator. Remote paths always use forward
// slashes regardless of the local OS.
const Separator = "/"

// fallbackDisplayName is shown when a path has no usable segment (root).
const fallbackDisplayName = "folder"

// Normalize strips all leading and trailing separators from a path.
// Interior separators are preserved as-is — segments are not collapsed,
// cleaned, or case-folded. The empty string denotes the root.
func Normalize(path string) string {
	return strings.Trim(path, Separator)
}

// Ancestors returns every strict prefix of the normalized path, deepest
// first, excluding the path itself and excluding the empty root. Empty
// segments from repeated separators are dropped before prefixes are
// built. A single-segment path (or the root) has no ancestors.
//
// Ancestors("a/b/c") = ["a/b", "a"].
func Ancestors(path string) []string {
	normalized := Normalize(path)
	if normalized == "" {
		return nil
	}

	segments := splitSegments(normalized)
	if len(segments) < 2 {
		return nil
	}

	ancestors := make([]string, 0, len(segments)-1)
	for i := len(segments) - 1; i >= 1; i-- {
		ancestors = append(ancestors, strings.Join(segments[:i], Separator))
	}

	return ancestors
}

// splitSegments splits a normalized path into its non-empty segments.
func splitSegments(normalized string) []string {
	parts := strings.Split(normalized, Separator)

	segments := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			segments = append(segments, p)
		}
	}

	return segments
}

// DisplayName derives a human-readable name for a path. An explicit label
// wins; otherwise the last non-empty path segment is used, NFC-normalized
// so decomposed Unicode names from the server render consistently. The
// root (no segments) falls back to a generic literal.
func DisplayName(path, label string) string {
	if label != "" {
		return label
	}

	normalized := Normalize(path)
	if normalized == "" {
		return fallbackDisplayName
	}

	segments := strings.Split(normalized, Separator)
	last := segments[len(segments)-1]

	if last == "" {
		return fallbackDisplayName
	}

	return norm.NFC.String(last)
}
