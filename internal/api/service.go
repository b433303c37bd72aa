package api

import (
	"context"
	"log/slog"
	"time"

	"github.com/starford/raido/internal/index"
	"github.com/starford/raido/internal/pathguard"
	"github.com/starford/raido/internal/relocate"
	"github.com/starford/raido/internal/sse"
	"github.com/starford/raido/internal/storage"
)

// Service is the application layer behind the REST handlers. It runs
// relocations through the engine and keeps the SQLite index and SSE
// clients in step with the vault.
type Service struct {
	guard  *pathguard.Guard
	store  storage.Provider
	db     index.NoteIndex
	exec   *relocate.Executor
	broker *sse.Broker
	logger *slog.Logger
}

// NewService wires a Service. broker may be nil when SSE is not used.
func NewService(guard *pathguard.Guard, store storage.Provider, db index.NoteIndex, exec *relocate.Executor, broker *sse.Broker, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{guard: guard, store: store, db: db, exec: exec, broker: broker, logger: logger}
}

// SetBroker attaches the SSE broker after construction. Entrypoints
// build the broker alongside the HTTP server, not with the service.
func (s *Service) SetBroker(b *sse.Broker) { s.broker = b }

// Store exposes the underlying vault storage.
func (s *Service) Store() storage.Provider { return s.store }

// Relocate executes one relocation and, when it mutated the vault,
// repoints the index and notifies SSE clients. Index bookkeeping is
// best-effort: a failure there is logged, not surfaced, because the
// filesystem move already succeeded and the watcher reconciles later.
func (s *Service) Relocate(ctx context.Context, req relocate.Request) (*relocate.Result, error) {
	res, err := s.exec.Execute(ctx, req)
	if err != nil {
		return nil, err
	}

	if !res.DryRun {
		if err := s.db.MoveSubtree(res.Source, res.Destination); err != nil {
			s.logger.Warn("index move failed",
				slog.String("source", res.Source),
				slog.String("destination", res.Destination),
				slog.String("error", err.Error()))
		}
		if s.broker != nil {
			s.broker.PublishRelocation(res.Source, res.Destination, res.ReferencesUpdated)
		}
	}

	if err := s.db.RecordRelocation(index.RelocationRow{
		Kind:        res.Kind,
		Source:      res.Source,
		Destination: res.Destination,
		RefsUpdated: res.ReferencesUpdated,
		RefsScanned: res.ReferencesScanned,
		Truncated:   res.ScanTruncated,
		DryRun:      res.DryRun,
		Warnings:    res.Warnings,
		ExecutedAt:  time.Now().UTC(),
	}); err != nil {
		s.logger.Warn("record relocation failed", slog.String("error", err.Error()))
	}

	return res, nil
}

// AffectedDocuments resolves prefix and returns the indexed documents
// whose links point into it, without touching the vault.
func (s *Service) AffectedDocuments(prefix string) (string, []string, error) {
	rp, err := s.guard.ResolveDir(prefix)
	if err != nil {
		return "", nil, err
	}
	docs, err := s.db.AffectedByPrefix(rp.Rel)
	if err != nil {
		return "", nil, err
	}
	return rp.Rel, docs, nil
}

// History returns the most recent relocations, newest first.
func (s *Service) History(limit int) ([]index.RelocationRow, error) {
	return s.db.ListRelocations(limit)
}

// GetNote returns one note with its content, or nil when it does not exist.
func (s *Service) GetNote(_ context.Context, path string) (*NoteDetail, error) {
	row, err := s.db.GetNote(path)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, nil
	}
	data, err := s.store.Read(path)
	if err != nil {
		return nil, err
	}
	return &NoteDetail{
		Path:      row.Path,
		Title:     row.Title,
		Checksum:  row.Checksum,
		Tags:      row.Tags,
		UpdatedAt: row.UpdatedAt,
		Content:   string(data),
	}, nil
}

// ListNotes returns a page of indexed notes.
func (s *Service) ListNotes(_ context.Context, limit, offset int, tag, sort string) ([]NoteListItem, int, error) {
	rows, total, err := s.db.ListNotes(limit, offset, tag, sort)
	if err != nil {
		return nil, 0, err
	}
	items := make([]NoteListItem, 0, len(rows))
	for _, r := range rows {
		items = append(items, NoteListItem{
			Path:      r.Path,
			Title:     r.Title,
			Checksum:  r.Checksum,
			Tags:      r.Tags,
			UpdatedAt: r.UpdatedAt,
		})
	}
	return items, total, nil
}

// Search runs a full-text query against the index.
func (s *Service) Search(_ context.Context, query string, limit int) ([]SearchResult, error) {
	rows, err := s.db.Search(query, limit)
	if err != nil {
		return nil, err
	}
	out := make([]SearchResult, 0, len(rows))
	for _, r := range rows {
		out = append(out, SearchResult{Path: r.Path, Title: r.Title, Snippet: r.Snippet})
	}
	return out, nil
}

// Backlinks returns paths of notes linking to target.
func (s *Service) Backlinks(_ context.Context, target string) ([]string, error) {
	return s.db.Backlinks(target)
}

// Graph returns the full link graph.
func (s *Service) Graph(_ context.Context) ([]GraphNode, []GraphLink, error) {
	nodes, links, err := s.db.Graph()
	if err != nil {
		return nil, nil, err
	}
	outNodes := make([]GraphNode, 0, len(nodes))
	for _, n := range nodes {
		outNodes = append(outNodes, GraphNode{ID: n.ID, Title: n.Title})
	}
	outLinks := make([]GraphLink, 0, len(links))
	for _, l := range links {
		outLinks = append(outLinks, GraphLink{Source: l.Source, Target: l.Target})
	}
	return outNodes, outLinks, nil
}
