// Package relocate implements the vault subtree relocation engine:
// moving, renaming, and archiving a directory while rewriting every
// wikilink that pointed into the moved subtree.
package relocate

import (
	"time"

	"github.com/starford/raido/internal/wikilink"
)

// Kind selects the relocation flavor.
type Kind int

const (
	Rename Kind = iota
	Move
	Archive
)

func (k Kind) String() string {
	switch k {
	case Move:
		return "move"
	case Archive:
		return "archive"
	default:
		return "rename"
	}
}

// Request describes one relocation. Source is always relative to the
// vault root and must resolve to a directory strictly inside it.
type Request struct {
	Kind   Kind
	Source string

	// NewName is the replacement final segment (Rename only).
	NewName string
	// Destination is the directory to move into (Move only).
	Destination string
	// ArchiveBase and DateFormat build the archive bucket
	// base/<formatted date>/<source base> (Archive only). DateFormat is
	// strftime-style, e.g. "%Y-%m-%d"; separators it yields become
	// nested directory levels.
	ArchiveBase string
	DateFormat  string

	// RewriteReferences controls whether wikilinks into the moved
	// subtree are patched after the move.
	RewriteReferences bool
	// DryRun computes the outcome without touching the filesystem.
	DryRun bool
}

// Result is the structured outcome of a completed relocation.
type Result struct {
	Success     bool   `json:"success"`
	Kind        string `json:"kind"`
	Source      string `json:"source"`
	Destination string `json:"destination"`

	// ReferencesUpdated counts documents actually rewritten;
	// ReferencesScanned counts documents examined by the scan.
	ReferencesUpdated int  `json:"references_updated"`
	ReferencesScanned int  `json:"references_scanned"`
	ScanTruncated     bool `json:"scan_truncated"`

	DryRun bool `json:"dry_run"`
	// Documents lists the rewritten documents, for detailed summaries.
	Documents []string `json:"documents,omitempty"`
	// Warnings records non-fatal rewrite failures. The move itself
	// succeeded whenever Success is true, even with warnings present.
	Warnings []string `json:"warnings,omitempty"`

	Duration time.Duration `json:"-"`
}

// ReferenceMatch ties one wikilink occurrence to its containing document.
// Matches live for a single request and are never persisted.
type ReferenceMatch struct {
	Document string
	Ref      wikilink.Reference
}

// Clock supplies the current time; injectable so archive date-bucketing
// is deterministic in tests.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns the wall clock.
func SystemClock() Clock { return systemClock{} }
