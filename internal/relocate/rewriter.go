package relocate

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/starford/raido/internal/storage"
	"github.com/starford/raido/internal/wikilink"
)

// Rewriter patches matched references in place, substituting only the
// path component and leaving display text and anchors untouched.
type Rewriter struct {
	store  storage.Provider
	logger *slog.Logger
}

// NewRewriter creates a Rewriter.
func NewRewriter(store storage.Provider, logger *slog.Logger) *Rewriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Rewriter{store: store, logger: logger}
}

// Rewrite applies matches grouped per document: each document is read and
// written once with all of its spans patched, back to front so earlier
// offsets stay valid. A failing document becomes a warning and the rest
// continue; reference consistency is best-effort, never transactional.
// Cancellation is honored between documents, never mid-write.
func (rw *Rewriter) Rewrite(ctx context.Context, matches []ReferenceMatch, oldPrefix, newPrefix string) (updated []string, warnings []string) {
	byDoc := make(map[string][]wikilink.Reference)
	var order []string
	for _, m := range matches {
		if _, seen := byDoc[m.Document]; !seen {
			order = append(order, m.Document)
		}
		byDoc[m.Document] = append(byDoc[m.Document], m.Ref)
	}

	for _, doc := range order {
		if err := ctx.Err(); err != nil {
			warnings = append(warnings, fmt.Sprintf("rewrite cancelled before %s: %v", doc, err))
			return updated, warnings
		}
		if err := rw.rewriteDocument(doc, byDoc[doc], oldPrefix, newPrefix); err != nil {
			rw.logger.Warn("reference rewrite failed",
				slog.String("path", doc), slog.String("error", err.Error()))
			warnings = append(warnings, fmt.Sprintf("failed to update references in %s: %v", doc, err))
			continue
		}
		rw.logger.Debug("references updated", slog.String("path", doc))
		updated = append(updated, doc)
	}
	return updated, warnings
}

func (rw *Rewriter) rewriteDocument(doc string, refs []wikilink.Reference, oldPrefix, newPrefix string) error {
	data, err := rw.store.Read(doc)
	if err != nil {
		return err
	}
	content := string(data)

	sort.Slice(refs, func(i, j int) bool { return refs[i].Start > refs[j].Start })
	for _, ref := range refs {
		if ref.Start < 0 || ref.End > len(content) {
			return fmt.Errorf("stale reference span %d..%d", ref.Start, ref.End)
		}
		newTarget := wikilink.ReplacePrefix(ref.Target, oldPrefix, newPrefix)
		content = content[:ref.Start] + ref.Rewrite(newTarget) + content[ref.End:]
	}

	return rw.store.Write(doc, []byte(content))
}
