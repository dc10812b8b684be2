package fallback

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestCatalog_GetMissingEntry(t *testing.T) {
	c := NewCatalog()

	value, ok := c.Get("matcher", "find_matches", nil)
	if ok {
		t.Error("expected no entry")
	}
	if value != nil {
		t.Errorf("expected nil value, got %v", value)
	}
}

func TestCatalog_ExactMatchOnly(t *testing.T) {
	c := NewCatalog()
	c.RegisterStatic("matcher", "find_matches", "degraded")

	if _, ok := c.Get("matcher", "rank_matches", nil); ok {
		t.Error("expected no entry for a different operation")
	}
	if _, ok := c.Get("scorer", "find_matches", nil); ok {
		t.Error("expected no entry for a different service")
	}

	value, ok := c.Get("matcher", "find_matches", nil)
	if !ok || value != "degraded" {
		t.Errorf("expected registered payload, got (%v, %v)", value, ok)
	}
}

func TestCatalog_GeneratorSeesMetadata(t *testing.T) {
	c := NewCatalog()
	c.Register("rewriter", "rewrite_section", func(meta map[string]any) any {
		// Degraded mode: echo the caller's original text untouched.
		return meta["original_text"]
	})

	value, ok := c.Get("rewriter", "rewrite_section", map[string]any{
		"original_text": "unchanged section",
	})
	if !ok {
		t.Fatal("expected entry")
	}
	if value != "unchanged section" {
		t.Errorf("expected generator output from metadata, got %v", value)
	}
}

func TestCatalog_LoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fallbacks.yaml")
	content := `
fallbacks:
  - service: matcher
    operation: find_matches
    payload:
      matches: []
      degraded: true
  - service: cache
    operation: lookup
    payload:
      hit: false
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	c := NewCatalog()
	if err := c.LoadFile(path); err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if c.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", c.Len())
	}

	value, ok := c.Get("matcher", "find_matches", nil)
	if !ok {
		t.Fatal("expected matcher entry")
	}
	want := map[string]any{"matches": []any{}, "degraded": true}
	if diff := cmp.Diff(want, value); diff != "" {
		t.Errorf("payload mismatch (-want +got):\n%s", diff)
	}
}

func TestCatalog_LoadFileRejectsIncompleteEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fallbacks.yaml")
	content := `
fallbacks:
  - service: matcher
    payload:
      degraded: true
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	c := NewCatalog()
	if err := c.LoadFile(path); err == nil {
		t.Error("expected error for entry missing operation")
	}
}

func TestCatalog_LoadFileMissing(t *testing.T) {
	c := NewCatalog()
	if err := c.LoadFile(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
