package api

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/raido/internal/relocate"
)

// Relocation operations.
const (
	OpRename  = "rename"
	OpMove    = "move"
	OpArchive = "archive"
)

// Response verbosity tiers.
const (
	FormatMinimal  = "minimal"
	FormatConcise  = "concise"
	FormatDetailed = "detailed"
)

// RelocateRequest is the request body for POST /relocations.
type RelocateRequest struct {
	Operation   string `json:"operation" example:"move" validate:"required"`
	Path        string `json:"path" example:"projects/alpha" validate:"required"`
	NewName     string `json:"new_name,omitempty" example:"beta"`
	Destination string `json:"destination,omitempty" example:"done/2026"`
	ArchiveBase string `json:"archive_base,omitempty" example:"archive"`
	DateFormat  string `json:"date_format,omitempty" example:"%Y-%m-%d"`
	// UpdateLinks defaults to true when omitted.
	UpdateLinks    *bool  `json:"update_links,omitempty"`
	DryRun         bool   `json:"dry_run,omitempty"`
	ResponseFormat string `json:"response_format,omitempty" example:"concise"`
}

// Validate checks the request shape; path semantics are checked later by
// the engine.
func (r RelocateRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Operation, validation.Required, validation.In(OpRename, OpMove, OpArchive)),
		validation.Field(&r.Path, validation.Required),
		validation.Field(&r.NewName, validation.Required.When(r.Operation == OpRename)),
		validation.Field(&r.Destination, validation.Required.When(r.Operation == OpMove)),
		validation.Field(&r.ResponseFormat, validation.In(FormatMinimal, FormatConcise, FormatDetailed)),
	)
}

// toEngine converts the API request into an engine request.
func (r RelocateRequest) toEngine() relocate.Request {
	kind := relocate.Rename
	switch r.Operation {
	case OpMove:
		kind = relocate.Move
	case OpArchive:
		kind = relocate.Archive
	}
	updateLinks := true
	if r.UpdateLinks != nil {
		updateLinks = *r.UpdateLinks
	}
	return relocate.Request{
		Kind:              kind,
		Source:            r.Path,
		NewName:           r.NewName,
		Destination:       r.Destination,
		ArchiveBase:       r.ArchiveBase,
		DateFormat:        r.DateFormat,
		RewriteReferences: updateLinks,
		DryRun:            r.DryRun,
	}
}

// NoteDetail is the full note response type.
type NoteDetail struct {
	Path      string    `json:"path" example:"notes/hello.md" validate:"required"`
	Title     string    `json:"title" example:"Hello"`
	Checksum  string    `json:"checksum" example:"abc123..."`
	Tags      []string  `json:"tags"`
	UpdatedAt time.Time `json:"updated_at"`
	Content   string    `json:"content"`
}

// NoteListItem is a lightweight item in a list response.
type NoteListItem struct {
	Path      string    `json:"path" example:"notes/hello.md" validate:"required"`
	Title     string    `json:"title" example:"Hello"`
	Checksum  string    `json:"checksum" example:"abc123..."`
	Tags      []string  `json:"tags"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NoteListResponse wraps paginated note listings.
type NoteListResponse struct {
	Notes []NoteListItem `json:"notes" validate:"required"`
	Total int            `json:"total" example:"42" validate:"required"`
}

// SearchResult is a single search hit in the API response.
type SearchResult struct {
	Path    string `json:"path" example:"notes/hello.md" validate:"required"`
	Title   string `json:"title" example:"Hello" validate:"required"`
	Snippet string `json:"snippet" example:"...matched text..." validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []SearchResult `json:"results" validate:"required"`
}

// GraphNode is a node in the knowledge graph.
type GraphNode struct {
	ID    string `json:"id" example:"notes/hello.md" validate:"required"`
	Title string `json:"title,omitempty" example:"Hello"`
}

// GraphLink is an edge in the knowledge graph.
type GraphLink struct {
	Source string `json:"source" example:"notes/hello.md" validate:"required"`
	Target string `json:"target" example:"notes/world.md" validate:"required"`
}

// GraphResponse wraps the knowledge graph.
type GraphResponse struct {
	Nodes []GraphNode `json:"nodes" validate:"required"`
	Links []GraphLink `json:"links" validate:"required"`
}

// AffectedResponse lists documents whose links point into a prefix.
type AffectedResponse struct {
	Prefix    string   `json:"prefix" example:"projects/alpha" validate:"required"`
	Documents []string `json:"documents" validate:"required"`
}

// RelocationHistoryItem is one past relocation in the history listing.
type RelocationHistoryItem struct {
	ID                int64     `json:"id"`
	Operation         string    `json:"operation" example:"archive"`
	Source            string    `json:"source" example:"old-idea"`
	Destination       string    `json:"destination" example:"archive/2025-01-22/old-idea"`
	ReferencesUpdated int       `json:"references_updated"`
	ReferencesScanned int       `json:"references_scanned"`
	ScanTruncated     bool      `json:"scan_truncated"`
	DryRun            bool      `json:"dry_run"`
	Warnings          []string  `json:"warnings,omitempty"`
	ExecutedAt        time.Time `json:"executed_at"`
}
