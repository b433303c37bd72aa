package relocate

import (
	"context"
	"strings"
	"testing"

	"github.com/starford/raido/internal/wikilink"
)

func scanDoc(t *testing.T, content string) []wikilink.Reference {
	t.Helper()
	refs := wikilink.Scan(content)
	if len(refs) == 0 {
		t.Fatalf("no references in %q", content)
	}
	return refs
}

func TestRewriteGroupsPerDocument(t *testing.T) {
	_, s := newTestVault(t)
	hub := "[[projects/alpha/a]] middle [[projects/alpha/b|B]] end"
	_ = s.Write("hub.md", []byte(hub))
	other := "see ![[projects/alpha/img.png]]"
	_ = s.Write("other.md", []byte(other))

	var matches []ReferenceMatch
	for _, r := range scanDoc(t, hub) {
		matches = append(matches, ReferenceMatch{Document: "hub.md", Ref: r})
	}
	for _, r := range scanDoc(t, other) {
		matches = append(matches, ReferenceMatch{Document: "other.md", Ref: r})
	}

	rw := NewRewriter(s, quietLogger())
	updated, warnings := rw.Rewrite(context.Background(), matches, "projects/alpha", "archive/alpha")
	if len(warnings) != 0 {
		t.Fatalf("warnings: %v", warnings)
	}
	if len(updated) != 2 {
		t.Fatalf("updated = %v", updated)
	}

	got, _ := s.Read("hub.md")
	want := "[[archive/alpha/a]] middle [[archive/alpha/b|B]] end"
	if string(got) != want {
		t.Errorf("hub.md = %q, want %q", got, want)
	}
	got, _ = s.Read("other.md")
	if string(got) != "see ![[archive/alpha/img.png]]" {
		t.Errorf("other.md = %q", got)
	}
}

func TestRewriteContinuesPastFailures(t *testing.T) {
	_, s := newTestVault(t)
	_ = s.Write("good.md", []byte("[[old/x]]"))
	ghost := "[[old/y]]"
	_ = s.Write("ghost.md", []byte(ghost))

	var matches []ReferenceMatch
	matches = append(matches, ReferenceMatch{Document: "ghost.md", Ref: scanDoc(t, ghost)[0]})
	matches = append(matches, ReferenceMatch{Document: "good.md", Ref: scanDoc(t, "[[old/x]]")[0]})

	// Make the first document unreadable after it was matched.
	if err := s.Delete("ghost.md"); err != nil {
		t.Fatal(err)
	}

	rw := NewRewriter(s, quietLogger())
	updated, warnings := rw.Rewrite(context.Background(), matches, "old", "new")
	if len(warnings) != 1 || !strings.Contains(warnings[0], "ghost.md") {
		t.Fatalf("warnings = %v", warnings)
	}
	if len(updated) != 1 || updated[0] != "good.md" {
		t.Fatalf("updated = %v", updated)
	}
	got, _ := s.Read("good.md")
	if string(got) != "[[new/x]]" {
		t.Errorf("good.md = %q", got)
	}
}

func TestRewriteHonorsCancellation(t *testing.T) {
	_, s := newTestVault(t)
	content := "[[old/x]]"
	_ = s.Write("a.md", []byte(content))

	matches := []ReferenceMatch{{Document: "a.md", Ref: scanDoc(t, content)[0]}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rw := NewRewriter(s, quietLogger())
	updated, warnings := rw.Rewrite(ctx, matches, "old", "new")
	if len(updated) != 0 {
		t.Errorf("updated = %v", updated)
	}
	if len(warnings) != 1 {
		t.Errorf("warnings = %v", warnings)
	}
	got, _ := s.Read("a.md")
	if string(got) != content {
		t.Errorf("document was modified after cancellation: %q", got)
	}
}

func TestRewriteLeavesNeighborsUntouched(t *testing.T) {
	_, s := newTestVault(t)
	content := "keep [[projects/alphabet/z]] move [[projects/alpha/z]]"
	_ = s.Write("mixed.md", []byte(content))

	var matches []ReferenceMatch
	for _, r := range scanDoc(t, content) {
		if wikilink.TargetsPrefix(r.Target, "projects/alpha") {
			matches = append(matches, ReferenceMatch{Document: "mixed.md", Ref: r})
		}
	}
	if len(matches) != 1 {
		t.Fatalf("matches = %d", len(matches))
	}

	rw := NewRewriter(s, quietLogger())
	rw.Rewrite(context.Background(), matches, "projects/alpha", "done/alpha")

	got, _ := s.Read("mixed.md")
	want := "keep [[projects/alphabet/z]] move [[done/alpha/z]]"
	if string(got) != want {
		t.Errorf("mixed.md = %q, want %q", got, want)
	}
}
