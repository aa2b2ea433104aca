package pathkey

import (
	"testing"
)

func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"root slash", "/", ""},
		{"multiple root slashes", "///", ""},
		{"leading slash", "/docs", "docs"},
		{"trailing slash", "docs/", "docs"},
		{"both", "/docs/secret/", "docs/secret"},
		{"many leading and trailing", "//docs/secret//", "docs/secret"},
		{"interior preserved", "docs//secret", "docs//secret"},
		{"already normalized", "docs/secret/file.txt", "docs/secret/file.txt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := Normalize(tt.in); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestAncestors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"empty", "", nil},
		{"root", "/", nil},
		{"single segment", "docs", nil},
		{"two segments", "docs/secret", []string{"docs"}},
		{"three segments", "docs/secret/file.txt", []string{"docs/secret", "docs"}},
		{"unnormalized input", "/docs/secret/file.txt/", []string{"docs/secret", "docs"}},
		{"deep", "a/b/c/d", []string{"a/b/c", "a/b", "a"}},
		{"empty interior segments dropped", "a//b", []string{"a"}},
		{"repeated interior separators", "a//b///c", []string{"a/b", "a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := Ancestors(tt.in)
			if len(got) != len(tt.want) {
				t.Fatalf("Ancestors(%q) = %v, want %v", tt.in, got, tt.want)
			}

			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("Ancestors(%q)[%d] = %q, want %q", tt.in, i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestDisplayName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		path  string
		label string
		want  string
	}{
		{"explicit label wins", "docs/secret", "My Secrets", "My Secrets"},
		{"last segment", "docs/secret", "", "secret"},
		{"single segment", "docs", "", "docs"},
		{"trailing slash stripped first", "docs/secret/", "", "secret"},
		{"root falls back", "/", "", "folder"},
		{"empty falls back", "", "", "folder"},
		{"nfc normalization", "docs/Café", "", "Café"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := DisplayName(tt.path, tt.label); got != tt.want {
				t.Errorf("DisplayName(%q, %q) = %q, want %q", tt.path, tt.label, got, tt.want)
			}
		})
	}
}
