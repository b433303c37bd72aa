package relocate

import (
	"context"
	"log/slog"
	"time"

	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/pathguard"
	"github.com/starford/raido/internal/storage"
)

// Executor orchestrates one relocation through its phases: validate,
// plan, then either report a dry run or move and rewrite. The directory
// move is the only mutation that must be atomic; everything after it is
// best-effort. The executor holds no cross-call state, so callers
// serialize overlapping relocations.
type Executor struct {
	guard   *pathguard.Guard
	store   storage.Provider
	planner *Planner
	logger  *slog.Logger

	// ScanBudget caps the reference-discovery walk per request.
	ScanBudget int

	// ArchiveBase and DateFormat fill in archive requests that omit them.
	ArchiveBase string
	DateFormat  string
}

// NewExecutor wires an Executor. A nil clock uses the wall clock;
// scanBudget <= 0 falls back to the index default.
func NewExecutor(guard *pathguard.Guard, store storage.Provider, clock Clock, scanBudget int, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		guard:      guard,
		store:      store,
		planner:    NewPlanner(guard, store, clock),
		logger:     logger,
		ScanBudget: scanBudget,
	}
}

// Execute runs the relocation described by req. Pre-move failures return
// an error and leave the vault byte-for-byte untouched; after a
// successful move, rewrite failures surface as warnings on the result.
func (e *Executor) Execute(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()

	if req.Kind == Archive {
		if req.ArchiveBase == "" {
			req.ArchiveBase = e.ArchiveBase
		}
		if req.DateFormat == "" {
			req.DateFormat = e.DateFormat
		}
	}

	// Validating.
	src, err := e.resolveSource(req.Source)
	if err != nil {
		return nil, err
	}

	// Planning.
	dest, err := e.planner.Plan(req, src)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Kind:        req.Kind.String(),
		Source:      src.Rel,
		Destination: dest.Rel,
		DryRun:      req.DryRun,
	}

	if req.DryRun {
		if req.RewriteReferences {
			ix := NewIndex(e.store, e.ScanBudget, e.logger)
			ix.ExcludeUnder = src.Rel
			matches, scanned, truncated := ix.FindReferences(src.Rel)
			res.ReferencesScanned = scanned
			res.ScanTruncated = truncated
			res.ReferencesUpdated = 0
			res.Documents = documentsOf(matches)
		}
		res.Success = true
		res.Duration = time.Since(start)
		e.logger.Info("relocation dry run",
			slog.String("kind", res.Kind),
			slog.String("source", res.Source),
			slog.String("destination", res.Destination))
		return res, nil
	}

	// Moving. Re-verify the collision immediately before the rename to
	// keep the check-then-act window narrow, then perform the single
	// atomic mutation.
	if err := e.planner.CheckCollision(dest); err != nil {
		return nil, err
	}
	if err := e.store.MoveDir(src.Rel, dest.Rel); err != nil {
		return nil, apperr.Wrap(apperr.FilesystemFailure, err,
			"failed to move %q to %q", src.Rel, dest.Rel)
	}

	// Rewriting: best-effort, after the move, against post-move paths.
	if req.RewriteReferences {
		ix := NewIndex(e.store, e.ScanBudget, e.logger)
		ix.ExcludeUnder = dest.Rel
		matches, scanned, truncated := ix.FindReferences(src.Rel)
		res.ReferencesScanned = scanned
		res.ScanTruncated = truncated

		rw := NewRewriter(e.store, e.logger)
		updated, warnings := rw.Rewrite(ctx, matches, src.Rel, dest.Rel)
		res.ReferencesUpdated = len(updated)
		res.Documents = updated
		res.Warnings = warnings
	}

	res.Success = true
	res.Duration = time.Since(start)
	e.logger.Info("relocation completed",
		slog.String("kind", res.Kind),
		slog.String("source", res.Source),
		slog.String("destination", res.Destination),
		slog.Int("references_updated", res.ReferencesUpdated),
		slog.Int("references_scanned", res.ReferencesScanned),
		slog.Duration("duration", res.Duration))
	return res, nil
}

// resolveSource validates the source path and confirms it is an existing,
// non-symlinked directory inside the vault.
func (e *Executor) resolveSource(raw string) (pathguard.ResolvedPath, error) {
	src, err := e.guard.ResolveDir(raw)
	if err != nil {
		return pathguard.ResolvedPath{}, err
	}
	exists, err := e.store.Exists(src.Rel)
	if err != nil {
		return pathguard.ResolvedPath{}, apperr.Wrap(apperr.FilesystemFailure, err, "check source %q", src.Rel)
	}
	if !exists {
		return pathguard.ResolvedPath{}, apperr.New(apperr.SourceNotFound, "folder not found: %s", src.Rel)
	}
	isDir, err := e.store.IsDir(src.Rel)
	if err != nil {
		return pathguard.ResolvedPath{}, apperr.Wrap(apperr.FilesystemFailure, err, "check source %q", src.Rel)
	}
	if !isDir {
		return pathguard.ResolvedPath{}, apperr.New(apperr.WrongTargetKind,
			"%q is a file, but this operation works on folders", src.Rel).
			WithSuggestion(`use the note manager for files, e.g. manage_note {"operation": "move", "path": %q, "destination": "archive/2025"}`, src.Rel)
	}
	return src, nil
}

func documentsOf(matches []ReferenceMatch) []string {
	var out []string
	seen := make(map[string]struct{}, len(matches))
	for _, m := range matches {
		if _, ok := seen[m.Document]; ok {
			continue
		}
		seen[m.Document] = struct{}{}
		out = append(out, m.Document)
	}
	return out
}
