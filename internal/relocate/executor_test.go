package relocate

import (
	"context"
	"testing"

	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/storage"
)

func newExecutor(t *testing.T) (*Executor, *storage.FS) {
	t.Helper()
	g, s := newTestVault(t)
	return NewExecutor(g, s, jan22, 0, quietLogger()), s
}

func seedAlphaVault(t *testing.T, s *storage.FS) {
	t.Helper()
	_ = s.Write("projects/alpha/overview.md", []byte("# Alpha\n[[projects/alpha/tasks]]"))
	_ = s.Write("projects/alpha/tasks.md", []byte("- [ ] ship"))
	_ = s.Write("projects/alphabet/letters.md", []byte("abc"))
	_ = s.Write("index.md", []byte("Active: [[projects/alpha/overview]]\nDiagram: ![[projects/alpha/diagram.png]]\nAlso: [[projects/alphabet/letters]]"))
}

func TestExecuteMoveRewritesReferences(t *testing.T) {
	ex, s := newExecutor(t)
	seedAlphaVault(t, s)

	res, err := ex.Execute(context.Background(), Request{
		Kind:              Move,
		Source:            "projects/alpha",
		Destination:       "done",
		RewriteReferences: true,
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !res.Success || res.Destination != "done/alpha" {
		t.Fatalf("result = %+v", res)
	}
	if len(res.Warnings) != 0 {
		t.Errorf("warnings: %v", res.Warnings)
	}

	if ok, _ := s.Exists("projects/alpha"); ok {
		t.Error("source still present")
	}
	got, err := s.Read("done/alpha/overview.md")
	if err != nil {
		t.Fatalf("Read moved file: %v", err)
	}
	// Links inside the moved subtree keep their original targets; the
	// subtree itself is excluded from the rewrite scan.
	if string(got) != "# Alpha\n[[projects/alpha/tasks]]" {
		t.Errorf("moved file content = %q", got)
	}

	idx, _ := s.Read("index.md")
	want := "Active: [[done/alpha/overview]]\nDiagram: ![[done/alpha/diagram.png]]\nAlso: [[projects/alphabet/letters]]"
	if string(idx) != want {
		t.Errorf("index.md = %q, want %q", idx, want)
	}
	if res.ReferencesUpdated != 1 {
		t.Errorf("ReferencesUpdated = %d, want 1", res.ReferencesUpdated)
	}
}

func TestExecuteDryRunMutatesNothing(t *testing.T) {
	ex, s := newExecutor(t)
	seedAlphaVault(t, s)
	before, _ := s.Read("index.md")

	res, err := ex.Execute(context.Background(), Request{
		Kind:              Move,
		Source:            "projects/alpha",
		Destination:       "done",
		RewriteReferences: true,
		DryRun:            true,
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !res.DryRun || !res.Success {
		t.Fatalf("result = %+v", res)
	}
	if res.Destination != "done/alpha" {
		t.Errorf("Destination = %q", res.Destination)
	}
	if len(res.Documents) != 1 || res.Documents[0] != "index.md" {
		t.Errorf("Documents = %v", res.Documents)
	}
	if res.ReferencesUpdated != 0 {
		t.Errorf("ReferencesUpdated = %d", res.ReferencesUpdated)
	}

	if ok, _ := s.Exists("projects/alpha"); !ok {
		t.Error("source gone after dry run")
	}
	if ok, _ := s.Exists("done"); ok {
		t.Error("destination created by dry run")
	}
	after, _ := s.Read("index.md")
	if string(after) != string(before) {
		t.Error("dry run modified index.md")
	}
}

func TestExecuteRename(t *testing.T) {
	ex, s := newExecutor(t)
	seedAlphaVault(t, s)

	res, err := ex.Execute(context.Background(), Request{
		Kind:              Rename,
		Source:            "projects/alpha",
		NewName:           "omega",
		RewriteReferences: true,
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Destination != "projects/omega" {
		t.Errorf("Destination = %q", res.Destination)
	}
	idx, _ := s.Read("index.md")
	if got := string(idx); got != "Active: [[projects/omega/overview]]\nDiagram: ![[projects/omega/diagram.png]]\nAlso: [[projects/alphabet/letters]]" {
		t.Errorf("index.md = %q", got)
	}
}

func TestExecuteArchive(t *testing.T) {
	ex, s := newExecutor(t)
	_ = s.Write("old-idea/sketch.md", []byte("draft"))
	_ = s.Write("index.md", []byte("[[old-idea/sketch]]"))

	res, err := ex.Execute(context.Background(), Request{
		Kind:              Archive,
		Source:            "old-idea",
		ArchiveBase:       "old-drafts",
		RewriteReferences: true,
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Destination != "old-drafts/2025-01-22/old-idea" {
		t.Errorf("Destination = %q", res.Destination)
	}
	if _, err := s.Read("old-drafts/2025-01-22/old-idea/sketch.md"); err != nil {
		t.Errorf("archived file missing: %v", err)
	}
	idx, _ := s.Read("index.md")
	if string(idx) != "[[old-drafts/2025-01-22/old-idea/sketch]]" {
		t.Errorf("index.md = %q", idx)
	}
}

func TestExecuteWithoutRewrite(t *testing.T) {
	ex, s := newExecutor(t)
	seedAlphaVault(t, s)

	res, err := ex.Execute(context.Background(), Request{
		Kind:        Move,
		Source:      "projects/alpha",
		Destination: "done",
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.ReferencesScanned != 0 || res.ReferencesUpdated != 0 {
		t.Errorf("result = %+v", res)
	}
	// References are left dangling on purpose.
	idx, _ := s.Read("index.md")
	if got := string(idx); got != "Active: [[projects/alpha/overview]]\nDiagram: ![[projects/alpha/diagram.png]]\nAlso: [[projects/alphabet/letters]]" {
		t.Errorf("index.md = %q", got)
	}
}

func TestExecuteSourceMissing(t *testing.T) {
	ex, _ := newExecutor(t)
	_, err := ex.Execute(context.Background(), Request{Kind: Rename, Source: "nope", NewName: "x"})
	if !apperr.IsKind(err, apperr.SourceNotFound) {
		t.Errorf("kind = %v, want SourceNotFound", apperr.KindOf(err))
	}
}

func TestExecuteSourceIsFile(t *testing.T) {
	ex, s := newExecutor(t)
	_ = s.Write("notes/plain", []byte("no extension, still a file"))

	_, err := ex.Execute(context.Background(), Request{Kind: Rename, Source: "notes/plain", NewName: "x"})
	if !apperr.IsKind(err, apperr.WrongTargetKind) {
		t.Fatalf("kind = %v, want WrongTargetKind", apperr.KindOf(err))
	}
	if apperr.SuggestionOf(err) == "" {
		t.Error("expected a suggestion pointing at the note tooling")
	}
}

func TestExecuteNotIdempotent(t *testing.T) {
	ex, s := newExecutor(t)
	seedAlphaVault(t, s)

	req := Request{Kind: Move, Source: "projects/alpha", Destination: "done"}
	if _, err := ex.Execute(context.Background(), req); err != nil {
		t.Fatalf("first Execute: %v", err)
	}
	_, err := ex.Execute(context.Background(), req)
	if !apperr.IsKind(err, apperr.SourceNotFound) {
		t.Errorf("second call: kind = %v, want SourceNotFound", apperr.KindOf(err))
	}
}

func TestExecuteCollisionLeavesVaultIntact(t *testing.T) {
	ex, s := newExecutor(t)
	seedAlphaVault(t, s)
	_ = s.Write("done/alpha/existing.md", []byte("occupied"))

	_, err := ex.Execute(context.Background(), Request{
		Kind: Move, Source: "projects/alpha", Destination: "done", RewriteReferences: true,
	})
	if !apperr.IsKind(err, apperr.DestinationExists) {
		t.Fatalf("kind = %v, want DestinationExists", apperr.KindOf(err))
	}
	if ok, _ := s.Exists("projects/alpha"); !ok {
		t.Error("source disturbed by failed relocation")
	}
	got, _ := s.Read("done/alpha/existing.md")
	if string(got) != "occupied" {
		t.Errorf("destination content = %q", got)
	}
}

func TestExecuteScanBudgetSurfaces(t *testing.T) {
	g, s := newTestVault(t)
	_ = s.Write("target/note.md", []byte("x"))
	_ = s.Write("a.md", []byte("[[target/note]]"))
	_ = s.Write("b.md", []byte("[[target/note]]"))
	_ = s.Write("c.md", []byte("[[target/note]]"))
	ex := NewExecutor(g, s, jan22, 2, quietLogger())

	res, err := ex.Execute(context.Background(), Request{
		Kind: Rename, Source: "target", NewName: "renamed", RewriteReferences: true,
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !res.ScanTruncated {
		t.Error("expected ScanTruncated")
	}
	if res.ReferencesScanned != 2 {
		t.Errorf("ReferencesScanned = %d, want 2", res.ReferencesScanned)
	}
}
