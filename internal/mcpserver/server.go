// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Raido tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/raido/internal/api"
	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/index"
	"github.com/starford/raido/internal/parser"
	"github.com/starford/raido/internal/relocate"
	"github.com/starford/raido/internal/storage"
)

// Server wraps the MCP server with Raido tools.
type Server struct {
	mcp   *server.MCPServer
	svc   *api.Service
	store storage.Provider
	db    *index.DB
}

// New creates a new MCP server with all Raido tools registered.
func New(svc *api.Service, store storage.Provider, db *index.DB) *Server {
	s := &Server{svc: svc, store: store, db: db}

	s.mcp = server.NewMCPServer(
		"Raido",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("relocate_folder",
		mcp.WithDescription("Rename, move, or archive a folder inside the vault, updating all "+
			"[[wikilinks]] that point into it. Works on folders only; for individual documents "+
			"use the manage_note tool. Read the contract first via the get_relocation_contract "+
			"tool or the raido://folder-relocation resource."),
		mcp.WithString("operation", mcp.Required(), mcp.Description("One of: rename, move, archive")),
		mcp.WithString("path", mcp.Required(), mcp.Description("Folder path relative to the vault root")),
		mcp.WithString("new_name", mcp.Description("New final segment (rename only)")),
		mcp.WithString("destination", mcp.Description("Directory to move into (move only)")),
		mcp.WithString("archive_base", mcp.Description("Archive base folder (archive only, default: archive)")),
		mcp.WithString("date_format", mcp.Description("strftime date format for the archive bucket (default: %Y-%m-%d)")),
		mcp.WithBoolean("update_links", mcp.Description("Rewrite wikilinks into the moved folder (default: true)")),
		mcp.WithBoolean("dry_run", mcp.Description("Compute the outcome without touching the vault")),
	), s.relocateFolder)

	s.mcp.AddTool(mcp.NewTool("affected_documents",
		mcp.WithDescription("Preview which documents contain links into a folder, without moving anything."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Folder path relative to the vault root")),
	), s.affectedDocuments)

	s.mcp.AddTool(mcp.NewTool("manage_note",
		mcp.WithDescription("Create, move, or delete a single Markdown document. "+
			"For whole folders use the relocate_folder tool instead."),
		mcp.WithString("operation", mcp.Required(), mcp.Description("One of: create, move, delete")),
		mcp.WithString("path", mcp.Required(), mcp.Description("Document path relative to the vault root (e.g. folder/note.md)")),
		mcp.WithString("content", mcp.Description("Markdown content (create only)")),
		mcp.WithString("destination", mcp.Description("New path or target folder (move only)")),
	), s.manageNote)

	s.mcp.AddTool(mcp.NewTool("search_notes",
		mcp.WithDescription("Full-text search through notes content and titles."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchNotes)

	s.mcp.AddTool(mcp.NewTool("read_note",
		mcp.WithDescription("Read the full content of a Markdown note."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the note (e.g. folder/note.md)")),
	), s.readNote)

	s.mcp.AddTool(mcp.NewTool("list_notes",
		mcp.WithDescription("List all notes or notes in a specific folder."),
		mcp.WithString("folder", mcp.Description("Optional folder to list (empty for all)")),
	), s.listNotes)

	s.mcp.AddTool(mcp.NewTool("get_backlinks",
		mcp.WithDescription("Find all notes that link to the specified note."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Path of the note to find backlinks for")),
	), s.getBacklinks)

	s.mcp.AddTool(mcp.NewTool("get_relocation_contract",
		mcp.WithDescription("Returns the folder relocation contract. "+
			"Call this before relocating folders to pick the right operation and parameters."),
	), s.getRelocationContract)

	// Resource: folder relocation contract.
	s.mcp.AddResource(
		mcp.NewResource("raido://folder-relocation", "Folder Relocation Contract",
			mcp.WithResourceDescription("How folder rename, move, and archive operations behave."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readRelocationContractResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

// toolError formats an engine failure for the LLM, carrying the
// remediation suggestion through verbatim when one is attached.
func toolError(err error) *mcp.CallToolResult {
	msg := err.Error()
	if sug := apperr.SuggestionOf(err); sug != "" {
		msg += "\nSuggestion: " + sug
	}
	return mcp.NewToolResultError(msg)
}

func (s *Server) relocateFolder(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	op, err := req.RequireString("operation")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	engineReq := relocate.Request{
		Source:            path,
		NewName:           req.GetString("new_name", ""),
		Destination:       req.GetString("destination", ""),
		ArchiveBase:       req.GetString("archive_base", ""),
		DateFormat:        req.GetString("date_format", ""),
		RewriteReferences: req.GetBool("update_links", true),
		DryRun:            req.GetBool("dry_run", false),
	}
	switch op {
	case "rename":
		engineReq.Kind = relocate.Rename
		if engineReq.NewName == "" {
			return mcp.NewToolResultError("new_name is required for rename"), nil
		}
	case "move":
		engineReq.Kind = relocate.Move
		if engineReq.Destination == "" {
			return mcp.NewToolResultError("destination is required for move"), nil
		}
	case "archive":
		engineReq.Kind = relocate.Archive
	default:
		return mcp.NewToolResultError(fmt.Sprintf("unknown operation %q (expected rename, move, or archive)", op)), nil
	}

	res, err := s.svc.Relocate(ctx, engineReq)
	if err != nil {
		return toolError(err), nil
	}
	out, _ := json.MarshalIndent(res, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) affectedDocuments(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	prefix, docs, err := s.svc.AffectedDocuments(path)
	if err != nil {
		return toolError(err), nil
	}
	if len(docs) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("no documents link into %s", prefix)), nil
	}
	return mcp.NewToolResultText(strings.Join(docs, "\n")), nil
}

func (s *Server) manageNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	op, err := req.RequireString("operation")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	switch op {
	case "create":
		content := req.GetString("content", "")
		if content == "" {
			return mcp.NewToolResultError("content is required for create"), nil
		}
		if exists, _ := s.store.Exists(path); exists {
			return mcp.NewToolResultError(fmt.Sprintf("note already exists: %s", path)), nil
		}
		data := []byte(content)
		if err := s.store.Write(path, data); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		s.indexDocument(path, data)
		return mcp.NewToolResultText(fmt.Sprintf("created: %s", path)), nil

	case "move":
		dest := req.GetString("destination", "")
		if dest == "" {
			return mcp.NewToolResultError("destination is required for move"), nil
		}
		// A destination without an extension is treated as a folder to
		// move into, keeping the file name.
		if !strings.Contains(dest[strings.LastIndex(dest, "/")+1:], ".") {
			base := path[strings.LastIndex(path, "/")+1:]
			dest = strings.TrimSuffix(dest, "/") + "/" + base
		}
		if exists, _ := s.store.Exists(dest); exists {
			return mcp.NewToolResultError(fmt.Sprintf("destination already exists: %s", dest)), nil
		}
		if err := s.store.Move(path, dest); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		_ = s.db.DeleteNote(path)
		if data, readErr := s.store.Read(dest); readErr == nil {
			s.indexDocument(dest, data)
		}
		return mcp.NewToolResultText(fmt.Sprintf("moved: %s -> %s", path, dest)), nil

	case "delete":
		if err := s.store.Delete(path); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		_ = s.db.DeleteNote(path)
		return mcp.NewToolResultText(fmt.Sprintf("deleted: %s", path)), nil

	default:
		return mcp.NewToolResultError(fmt.Sprintf("unknown operation %q (expected create, move, or delete)", op)), nil
	}
}

// indexDocument parses and upserts one document, best-effort.
func (s *Server) indexDocument(path string, data []byte) {
	res, err := parser.Parse(data)
	if err != nil || res == nil {
		return
	}
	tags := res.Tags
	if tags == nil {
		tags = []string{}
	}
	_ = s.db.UpsertNote(index.NoteRow{
		Path:  path,
		Title: res.Title,
		Tags:  tags,
	}, res.Body, res.Links)
}

func (s *Server) searchNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.db.Search(query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(results, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) readNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	data, err := s.store.Read(path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", path)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) listNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	folder := req.GetString("folder", "")

	metas, err := s.store.List(folder)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var paths []string
	for _, m := range metas {
		paths = append(paths, m.Path)
	}
	return mcp.NewToolResultText(strings.Join(paths, "\n")), nil
}

func (s *Server) getBacklinks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	bl, err := s.db.Backlinks(path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(bl) == 0 {
		return mcp.NewToolResultText("no backlinks found"), nil
	}
	return mcp.NewToolResultText(strings.Join(bl, "\n")), nil
}

func (s *Server) getRelocationContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(RelocationContract), nil
}

func (s *Server) readRelocationContractResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "raido://folder-relocation",
			MIMEType: "text/markdown",
			Text:     RelocationContract,
		},
	}, nil
}
