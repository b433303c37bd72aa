package relocate

import (
	"log/slog"

	"github.com/starford/raido/internal/storage"
	"github.com/starford/raido/internal/wikilink"
)

// Index discovers documents containing references into a path prefix.
// The scan is recomputed per request against the live filesystem: the
// vault mutates outside this engine's control between calls, so no
// cross-call state is kept.
type Index struct {
	store  storage.Provider
	logger *slog.Logger

	// Budget caps how many documents one scan may examine. Larger
	// corpora are truncated and reported as such; this is the documented
	// bound on worst-case scan duration, not an error.
	Budget int
	// ExcludeUnder skips documents inside the given prefix (the moved
	// subtree itself). Skipped documents still count toward the budget.
	ExcludeUnder string
}

// NewIndex creates an Index with the given scan budget.
func NewIndex(store storage.Provider, budget int, logger *slog.Logger) *Index {
	if logger == nil {
		logger = slog.Default()
	}
	return &Index{store: store, logger: logger, Budget: budget}
}

// FindReferences walks the vault and returns every reference whose target
// equals prefix or sits under it, plus the number of documents scanned
// and whether the budget truncated the walk. A prefix nothing points at
// yields zero matches, not an error.
func (ix *Index) FindReferences(prefix string) (matches []ReferenceMatch, scanned int, truncated bool) {
	budget := ix.Budget
	if budget <= 0 {
		budget = 1000
	}

	err := ix.store.WalkDocuments(func(rel string) error {
		if scanned >= budget {
			truncated = true
			return storage.ErrStopWalk
		}
		scanned++

		if ix.ExcludeUnder != "" && wikilink.TargetsPrefix(rel, ix.ExcludeUnder) {
			return nil
		}

		data, readErr := ix.store.Read(rel)
		if readErr != nil {
			// Best-effort scan: an unreadable document is skipped, not fatal.
			ix.logger.Warn("reference scan: read failed",
				slog.String("path", rel), slog.String("error", readErr.Error()))
			return nil
		}

		for _, ref := range wikilink.Scan(string(data)) {
			if wikilink.TargetsPrefix(ref.Target, prefix) {
				matches = append(matches, ReferenceMatch{Document: rel, Ref: ref})
			}
		}
		return nil
	})
	if err != nil {
		ix.logger.Warn("reference scan: walk failed", slog.String("error", err.Error()))
	}

	if truncated {
		ix.logger.Warn("reference scan: budget reached",
			slog.Int("scanned", scanned), slog.Int("budget", budget))
	}
	return matches, scanned, truncated
}
