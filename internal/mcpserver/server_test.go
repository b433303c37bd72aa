package mcpserver

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/raido/internal/api"
	"github.com/starford/raido/internal/pathguard"
	"github.com/starford/raido/internal/relocate"
	"github.com/starford/raido/internal/storage"
	"github.com/starford/raido/internal/testutil"
)

type fixedClock time.Time

func (c fixedClock) Now() time.Time { return time.Time(c) }

func testServer(t *testing.T) (*Server, storage.Provider) {
	t.Helper()

	vaultDir, store := testutil.TestVault(t)
	guard, err := pathguard.New(vaultDir)
	if err != nil {
		t.Fatal(err)
	}
	db := testutil.TestDB(t)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	clock := fixedClock(time.Date(2025, time.January, 22, 10, 0, 0, 0, time.UTC))
	exec := relocate.NewExecutor(guard, store, clock, 0, logger)
	svc := api.NewService(guard, store, db, exec, nil, logger)

	srv := New(svc, store, db)
	return srv, store
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go doesn't expose a direct "call tool" test helper, so we test
	// through the tool handler functions directly.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "relocate_folder":
		result, err = srv.relocateFolder(ctx, req)
	case "affected_documents":
		result, err = srv.affectedDocuments(ctx, req)
	case "manage_note":
		result, err = srv.manageNote(ctx, req)
	case "search_notes":
		result, err = srv.searchNotes(ctx, req)
	case "read_note":
		result, err = srv.readNote(ctx, req)
	case "list_notes":
		result, err = srv.listNotes(ctx, req)
	case "get_backlinks":
		result, err = srv.getBacklinks(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestRelocateFolder(t *testing.T) {
	srv, store := testServer(t)
	_ = store.Write("projects/alpha/overview.md", []byte("# Alpha"))
	_ = store.Write("index.md", []byte("[[projects/alpha/overview]]"))

	r := callTool(t, srv, "relocate_folder", map[string]interface{}{
		"operation":   "move",
		"path":        "projects/alpha",
		"destination": "done",
	})
	if r.IsError {
		t.Fatalf("relocate failed: %s", resultText(r))
	}
	text := resultText(r)
	if !strings.Contains(text, `"destination": "done/alpha"`) {
		t.Errorf("result = %q", text)
	}

	got, _ := store.Read("index.md")
	if string(got) != "[[done/alpha/overview]]" {
		t.Errorf("index.md = %q", got)
	}
}

func TestRelocateFolder_Archive(t *testing.T) {
	srv, store := testServer(t)
	_ = store.Write("old-idea/sketch.md", []byte("draft"))

	r := callTool(t, srv, "relocate_folder", map[string]interface{}{
		"operation":    "archive",
		"path":         "old-idea",
		"archive_base": "old-drafts",
	})
	if r.IsError {
		t.Fatalf("archive failed: %s", resultText(r))
	}
	if ok, _ := store.Exists("old-drafts/2025-01-22/old-idea/sketch.md"); !ok {
		t.Error("archived file missing")
	}
}

func TestRelocateFolder_DryRun(t *testing.T) {
	srv, store := testServer(t)
	_ = store.Write("projects/alpha/overview.md", []byte("# Alpha"))

	r := callTool(t, srv, "relocate_folder", map[string]interface{}{
		"operation": "rename",
		"path":      "projects/alpha",
		"new_name":  "beta",
		"dry_run":   true,
	})
	if r.IsError {
		t.Fatalf("dry run failed: %s", resultText(r))
	}
	if ok, _ := store.Exists("projects/beta"); ok {
		t.Error("dry run mutated the vault")
	}
}

func TestRelocateFolder_DocumentPathSuggestsManageNote(t *testing.T) {
	srv, store := testServer(t)
	_ = store.Write("notes/todo.md", []byte("x"))

	r := callTool(t, srv, "relocate_folder", map[string]interface{}{
		"operation": "rename",
		"path":      "notes/todo.md",
		"new_name":  "done.md",
	})
	if !r.IsError {
		t.Fatal("expected error for document path")
	}
	text := resultText(r)
	if !strings.Contains(text, "manage_note") {
		t.Errorf("error should carry the manage_note suggestion: %q", text)
	}
}

func TestAffectedDocuments(t *testing.T) {
	srv, store := testServer(t)
	_ = store.Write("projects/alpha/overview.md", []byte("# Alpha"))
	_ = callTool(t, srv, "manage_note", map[string]interface{}{
		"operation": "create",
		"path":      "hub.md",
		"content":   "see [[projects/alpha/overview]]",
	})

	r := callTool(t, srv, "affected_documents", map[string]interface{}{
		"path": "projects/alpha",
	})
	if resultText(r) != "hub.md" {
		t.Errorf("affected = %q", resultText(r))
	}
}

func TestManageNote_CreateAndRead(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "manage_note", map[string]interface{}{
		"operation": "create",
		"path":      "test.md",
		"content":   "# Test\nHello",
	})
	if resultText(r) != "created: test.md" {
		t.Errorf("create result = %q", resultText(r))
	}

	r = callTool(t, srv, "read_note", map[string]interface{}{"path": "test.md"})
	if resultText(r) != "# Test\nHello" {
		t.Errorf("read result = %q", resultText(r))
	}
}

func TestManageNote_MoveIntoFolder(t *testing.T) {
	srv, store := testServer(t)
	_ = store.Write("inbox/note.md", []byte("body"))

	r := callTool(t, srv, "manage_note", map[string]interface{}{
		"operation":   "move",
		"path":        "inbox/note.md",
		"destination": "archive/2025",
	})
	if r.IsError {
		t.Fatalf("move failed: %s", resultText(r))
	}
	if ok, _ := store.Exists("archive/2025/note.md"); !ok {
		t.Error("moved note missing")
	}
	if ok, _ := store.Exists("inbox/note.md"); ok {
		t.Error("old note still present")
	}
}

func TestManageNote_Delete(t *testing.T) {
	srv, store := testServer(t)
	_ = store.Write("bye.md", []byte("x"))

	r := callTool(t, srv, "manage_note", map[string]interface{}{
		"operation": "delete",
		"path":      "bye.md",
	})
	if r.IsError {
		t.Fatalf("delete failed: %s", resultText(r))
	}
	if ok, _ := store.Exists("bye.md"); ok {
		t.Error("note still present")
	}
}

func TestListNotes(t *testing.T) {
	srv, store := testServer(t)
	_ = store.Write("a.md", []byte("a"))
	_ = store.Write("b.md", []byte("b"))

	r := callTool(t, srv, "list_notes", map[string]interface{}{})
	if resultText(r) == "" {
		t.Error("list returned empty")
	}
}

func TestReadNoteMissing(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "read_note", map[string]interface{}{"path": "nope.md"})
	if !r.IsError {
		t.Error("expected error for missing note")
	}
}

func TestGetBacklinks(t *testing.T) {
	srv, _ := testServer(t)
	_ = callTool(t, srv, "manage_note", map[string]interface{}{
		"operation": "create",
		"path":      "a.md",
		"content":   "links to [[b]]",
	})

	r := callTool(t, srv, "get_backlinks", map[string]interface{}{"path": "b"})
	if resultText(r) != "a.md" {
		t.Errorf("backlinks = %q, want a.md", resultText(r))
	}
}
