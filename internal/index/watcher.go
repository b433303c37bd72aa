package index

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/raido/internal/storage"
)

// EventCallback is called after a watcher-driven index change.
// kind is one of "created", "updated", "deleted".
type EventCallback func(kind string, path string)

// watcher tracks out-of-band vault mutations and keeps the index
// current. Relocations performed through the engine repoint the index
// themselves; the watcher is the safety net for everything else, and
// for the rare case where that bookkeeping failed after a move.
type watcher struct {
	fsw    *fsnotify.Watcher
	db     *DB
	store  storage.Provider
	root   string
	logger *slog.Logger
	cb     EventCallback
}

// reconcileDelay debounces the full reconciliation pass after rename
// events. A directory move produces a burst of renames; one pass at the
// end is enough.
const reconcileDelay = 200 * time.Millisecond

// Watch starts an fsnotify watcher on the vault root and processes file
// change events until ctx is cancelled. It calls cb (if non-nil) after
// each successful index mutation.
//
// Directories created at runtime are added to the watch list. Rename
// events, which is how a relocation looks from the outside, trigger a
// debounced reconciliation pass that drops index rows without a backing
// file and indexes files the burst of events skipped.
func Watch(ctx context.Context, db *DB, store storage.Provider, vaultRoot string, logger *slog.Logger, cb EventCallback) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsw.Close()

	w := &watcher{fsw: fsw, db: db, store: store, root: vaultRoot, logger: logger, cb: cb}
	if err := w.watchTree(vaultRoot); err != nil {
		return err
	}
	logger.Info("watcher: started", slog.String("root", vaultRoot))
	return w.loop(ctx)
}

func (w *watcher) loop(ctx context.Context) error {
	var reconcileTimer *time.Timer
	var reconcileCh <-chan time.Time

	scheduleReconcile := func() {
		if reconcileTimer == nil {
			reconcileTimer = time.NewTimer(reconcileDelay)
			reconcileCh = reconcileTimer.C
		} else {
			reconcileTimer.Reset(reconcileDelay)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reconcileTimer != nil {
				reconcileTimer.Stop()
			}
			w.logger.Info("watcher: stopped")
			return nil

		case <-reconcileCh:
			w.reconcile()

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handle(ev, scheduleReconcile)

		case watchErr, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

func (w *watcher) handle(ev fsnotify.Event, scheduleReconcile func()) {
	absPath := ev.Name

	// A created directory needs watching, and may already hold documents
	// (editors and relocations both produce whole trees at once).
	if ev.Op&fsnotify.Create != 0 {
		if info, statErr := os.Stat(absPath); statErr == nil && info.IsDir() {
			if addErr := w.watchTree(absPath); addErr != nil {
				w.logger.Warn("watcher: add new dir failed",
					slog.String("path", absPath),
					slog.String("error", addErr.Error()))
			} else {
				w.logger.Debug("watcher: watching new dir", slog.String("path", absPath))
			}
			w.indexTree(absPath)
			return
		}
	}

	if !storage.IsMarkdown(absPath) {
		// A rename or remove of a directory leaves every row under it
		// stale; the event carries the old path only, so reconcile.
		if ev.Op&(fsnotify.Rename|fsnotify.Remove) != 0 {
			scheduleReconcile()
		}
		return
	}
	rel, relErr := filepath.Rel(w.root, absPath)
	if relErr != nil {
		return
	}
	rel = filepath.ToSlash(rel)

	switch {
	case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
		data, readErr := w.store.Read(rel)
		if readErr != nil {
			w.logger.Warn("watcher: read failed", slog.String("path", rel), slog.String("error", readErr.Error()))
			return
		}
		if idxErr := indexFile(w.db, rel, data); idxErr != nil {
			w.logger.Warn("watcher: index failed", slog.String("path", rel), slog.String("error", idxErr.Error()))
			return
		}
		kind := "updated"
		if ev.Op&fsnotify.Create != 0 {
			kind = "created"
		}
		w.logger.Debug("watcher: indexed", slog.String("path", rel), slog.String("op", kind))
		w.notify(kind, rel)

	case ev.Op&fsnotify.Remove != 0:
		if delErr := w.db.DeleteNote(rel); delErr != nil {
			w.logger.Warn("watcher: delete failed", slog.String("path", rel), slog.String("error", delErr.Error()))
			return
		}
		w.logger.Debug("watcher: deleted", slog.String("path", rel))
		w.notify("deleted", rel)

	case ev.Op&fsnotify.Rename != 0:
		// fsnotify fires Rename on the OLD path only; the new path
		// arrives as a separate Create event if it stays inside a
		// watched directory. Drop the old row now and reconcile soon
		// for the stragglers.
		if delErr := w.db.DeleteNote(rel); delErr != nil {
			w.logger.Warn("watcher: rename delete failed", slog.String("path", rel), slog.String("error", delErr.Error()))
		} else {
			w.logger.Debug("watcher: rename old deleted", slog.String("path", rel))
			w.notify("deleted", rel)
		}
		scheduleReconcile()
	}
}

func (w *watcher) notify(kind, rel string) {
	if w.cb != nil {
		w.cb(kind, rel)
	}
}

// reconcile diffs the index against the disk with batch lookups:
// index rows without a backing file are removed, and files whose
// checksum differs from the indexed one are re-indexed.
func (w *watcher) reconcile() {
	checksums, err := w.db.AllChecksums()
	if err != nil {
		w.logger.Warn("reconcile: all checksums failed", slog.String("error", err.Error()))
		return
	}

	metas, err := w.store.List("")
	if err != nil {
		w.logger.Warn("reconcile: list failed", slog.String("error", err.Error()))
		return
	}

	disk := make(map[string]string, len(metas))
	for _, m := range metas {
		disk[m.Path] = m.Checksum
	}

	for p := range checksums {
		if _, ok := disk[p]; !ok {
			if delErr := w.db.DeleteNote(p); delErr == nil {
				w.logger.Debug("reconcile: removed stale", slog.String("path", p))
				w.notify("deleted", p)
			}
		}
	}

	for p, cs := range disk {
		if checksums[p] == cs {
			continue
		}
		data, readErr := w.store.Read(p)
		if readErr != nil {
			continue
		}
		if idxErr := indexFile(w.db, p, data); idxErr == nil {
			w.logger.Debug("reconcile: indexed new", slog.String("path", p))
			w.notify("created", p)
		}
	}
}

// indexTree indexes every markdown file under dirPath.
func (w *watcher) indexTree(dirPath string) {
	_ = filepath.WalkDir(dirPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !storage.IsMarkdown(path) {
			return nil
		}
		rel, relErr := filepath.Rel(w.root, path)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		data, readErr := w.store.Read(rel)
		if readErr != nil {
			return nil
		}
		if idxErr := indexFile(w.db, rel, data); idxErr == nil {
			w.logger.Debug("watcher: indexed from new dir", slog.String("path", rel))
			w.notify("created", rel)
		}
		return nil
	})
}

// watchTree adds root and all its subdirectories to the fsnotify watch list.
func (w *watcher) watchTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.fsw.Add(path)
		}
		return nil
	})
}
