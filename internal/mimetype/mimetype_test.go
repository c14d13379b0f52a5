package mimetype

import "testing"

func TestLookup_Builtin(t *testing.T) {
	tests := []struct {
		ext  string
		want string
	}{
		{".html", "text/html"},
		{".htm", "text/html"},
		{".css", "text/css"},
		{".js", "text/javascript"},
		{".json", "application/json"},
		{".png", "image/png"},
		{".svg", "image/svg+xml"},
		{".txt", "text/plain"},
		{".woff2", "font/woff2"},
	}
	for _, tt := range tests {
		if got := Lookup(tt.ext, nil); got != tt.want {
			t.Errorf("Lookup(%q) = %q, want %q", tt.ext, got, tt.want)
		}
	}
}

func TestLookup_UnknownFallsBack(t *testing.T) {
	if got := Lookup(".xyz", nil); got != DefaultType {
		t.Fatalf("Lookup(.xyz) = %q, want %q", got, DefaultType)
	}
	if got := Lookup("", nil); got != DefaultType {
		t.Fatalf("Lookup(\"\") = %q, want %q", got, DefaultType)
	}
}

func TestLookup_CaseInsensitive(t *testing.T) {
	if got := Lookup(".HTML", nil); got != "text/html" {
		t.Fatalf("Lookup(.HTML) = %q, want text/html", got)
	}
	if got := Lookup(".Jpg", nil); got != "image/jpeg" {
		t.Fatalf("Lookup(.Jpg) = %q, want image/jpeg", got)
	}
}

func TestLookup_OverridesWin(t *testing.T) {
	overrides := map[string]string{
		".md":   "text/markdown",
		".html": "application/xhtml+xml",
	}

	if got := Lookup(".md", overrides); got != "text/markdown" {
		t.Fatalf("Lookup(.md, overrides) = %q", got)
	}
	// Override beats the builtin table
	if got := Lookup(".html", overrides); got != "application/xhtml+xml" {
		t.Fatalf("Lookup(.html, overrides) = %q", got)
	}
	// Non-overridden extensions still resolve
	if got := Lookup(".css", overrides); got != "text/css" {
		t.Fatalf("Lookup(.css, overrides) = %q", got)
	}
}
