// Package pathguard resolves caller-supplied paths against the vault root
// and rejects anything that would escape or damage it: traversal, absolute
// paths, symlink escapes, protected subtrees, and reserved device names.
package pathguard

import (
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/starford/raido/internal/apperr"
)

// Windows reserved device names. Checked on every platform so that a vault
// authored on Linux stays openable on Windows.
var reservedNames = map[string]struct{}{
	"CON": {}, "PRN": {}, "AUX": {}, "NUL": {},
	"COM1": {}, "COM2": {}, "COM3": {}, "COM4": {}, "COM5": {},
	"COM6": {}, "COM7": {}, "COM8": {}, "COM9": {},
	"LPT1": {}, "LPT2": {}, "LPT3": {}, "LPT4": {}, "LPT5": {},
	"LPT6": {}, "LPT7": {}, "LPT8": {}, "LPT9": {},
}

const invalidNameChars = `<>:"|?*`

// DefaultProtectedDirs are subtrees no relocation may touch.
var DefaultProtectedDirs = []string{".obsidian", ".git", ".trash", "node_modules"}

// DefaultContentExtensions mark paths that belong to the document editor,
// not to folder operations.
var DefaultContentExtensions = []string{".md", ".markdown", ".txt"}

// ResolvedPath is the validated form of a caller-supplied path.
// Rel is forward-slash normalized, contains no ".." segments, and never
// starts with "/". All downstream components consume only Rel and Abs.
type ResolvedPath struct {
	Raw string
	Abs string
	Rel string
}

// Base returns the final path segment of the resolved relative path.
func (p ResolvedPath) Base() string { return path.Base(p.Rel) }

// Dir returns the parent of the resolved relative path ("" at vault root).
func (p ResolvedPath) Dir() string {
	d := path.Dir(p.Rel)
	if d == "." {
		return ""
	}
	return d
}

// Guard validates paths against a single vault root.
type Guard struct {
	root        string
	protected   map[string]struct{}
	contentExts map[string]struct{}
}

// Option configures a Guard.
type Option func(*Guard)

// WithProtectedDirs replaces the default protected-subtree blocklist.
func WithProtectedDirs(dirs []string) Option {
	return func(g *Guard) {
		g.protected = make(map[string]struct{}, len(dirs))
		for _, d := range dirs {
			g.protected[d] = struct{}{}
		}
	}
}

// WithContentExtensions replaces the extensions treated as documents.
// Extensions are matched case-insensitively and must include the dot.
func WithContentExtensions(exts []string) Option {
	return func(g *Guard) {
		g.contentExts = make(map[string]struct{}, len(exts))
		for _, e := range exts {
			g.contentExts[strings.ToLower(e)] = struct{}{}
		}
	}
}

// New creates a Guard rooted at dir. The directory must exist; its path is
// resolved through symlinks once so later escape checks compare like with like.
func New(dir string, opts ...Option) (*Guard, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, apperr.Wrap(apperr.InvalidPath, err, "resolve vault root %q", dir)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, apperr.Wrap(apperr.InvalidPath, err, "vault root %q is not accessible", dir)
	}
	info, err := os.Stat(resolved)
	if err != nil || !info.IsDir() {
		return nil, apperr.New(apperr.InvalidPath, "vault root %q is not a directory", dir)
	}

	g := &Guard{root: resolved}
	WithProtectedDirs(DefaultProtectedDirs)(g)
	WithContentExtensions(DefaultContentExtensions)(g)
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Root returns the absolute, symlink-resolved vault root.
func (g *Guard) Root() string { return g.root }

// Resolve validates raw against the vault root and returns its normalized
// forms. It performs no filesystem mutation and accepts paths that do not
// exist yet (destinations are resolved before they are created).
func (g *Guard) Resolve(raw string) (ResolvedPath, error) {
	if strings.TrimSpace(raw) == "" {
		return ResolvedPath{}, apperr.New(apperr.InvalidPath, "path is empty")
	}
	normalized := strings.ReplaceAll(raw, `\`, "/")
	if path.IsAbs(normalized) || filepath.IsAbs(raw) {
		return ResolvedPath{}, apperr.New(apperr.InvalidPath,
			"absolute paths are not allowed: %q (use a path relative to the vault root)", raw)
	}

	rel := path.Clean(normalized)
	if rel == "." {
		return ResolvedPath{}, apperr.New(apperr.InvalidPath,
			"the vault root itself cannot be the target of this operation")
	}
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return ResolvedPath{}, apperr.New(apperr.InvalidPath,
			"path %q escapes the vault root", raw)
	}

	for _, seg := range strings.Split(rel, "/") {
		if err := checkSegment(seg); err != nil {
			return ResolvedPath{}, err
		}
		if _, blocked := g.protected[seg]; blocked {
			return ResolvedPath{}, apperr.New(apperr.InvalidPath,
				"path %q is inside the protected directory %q", raw, seg)
		}
	}

	abs := filepath.Join(g.root, filepath.FromSlash(rel))
	if err := g.checkSymlinks(raw, abs); err != nil {
		return ResolvedPath{}, err
	}

	return ResolvedPath{Raw: raw, Abs: abs, Rel: rel}, nil
}

// ResolveDir is Resolve for operations that require a directory target.
// A path carrying a content-file extension is handed back with a pointer
// to the document tooling instead.
func (g *Guard) ResolveDir(raw string) (ResolvedPath, error) {
	rp, err := g.Resolve(raw)
	if err != nil {
		return ResolvedPath{}, err
	}
	ext := strings.ToLower(path.Ext(rp.Rel))
	if _, isContent := g.contentExts[ext]; isContent {
		return ResolvedPath{}, apperr.New(apperr.WrongTargetKind,
			"%q is a document path (%s), but this operation works on folders", raw, ext).
			WithSuggestion(`use the note manager for documents, e.g. manage_note {"operation": "move", "path": %q, "destination": "archive/2025"}`, rp.Rel)
	}
	return rp, nil
}

// ValidateName validates a single new path segment, as used by rename.
func (g *Guard) ValidateName(name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return apperr.New(apperr.InvalidPath, "name cannot be empty or whitespace-only")
	}
	if strings.ContainsAny(trimmed, "/\\") {
		return apperr.New(apperr.InvalidPath,
			"name %q contains a path separator; rename changes only the final segment (use a move for deeper targets)", name)
	}
	return checkSegment(trimmed)
}

// checkSegment enforces the per-segment rules: no reserved device names,
// no characters invalid on any supported platform.
func checkSegment(seg string) error {
	if seg == "" {
		return apperr.New(apperr.InvalidPath, "path contains an empty segment")
	}
	stem := seg
	if i := strings.IndexByte(stem, '.'); i > 0 {
		stem = stem[:i]
	}
	if _, reserved := reservedNames[strings.ToUpper(stem)]; reserved {
		return apperr.New(apperr.InvalidPath,
			"%q is a reserved device name and cannot be used in a vault path", seg)
	}
	if strings.ContainsAny(seg, invalidNameChars) {
		return apperr.New(apperr.InvalidPath,
			"%q contains characters that are invalid in vault paths (%s)", seg, invalidNameChars)
	}
	return nil
}

// checkSymlinks rejects paths that are themselves symlinks and paths whose
// existing ancestors resolve outside the vault root.
func (g *Guard) checkSymlinks(raw, abs string) error {
	if info, err := os.Lstat(abs); err == nil && info.Mode()&os.ModeSymlink != 0 {
		return apperr.New(apperr.InvalidPath,
			"%q is a symlink; symlinked paths are not followed by vault operations", raw)
	}

	// Resolve the deepest existing ancestor and verify containment.
	probe := abs
	for {
		resolved, err := filepath.EvalSymlinks(probe)
		if err == nil {
			if resolved != g.root && !strings.HasPrefix(resolved, g.root+string(os.PathSeparator)) {
				return apperr.New(apperr.InvalidPath, "path %q resolves outside the vault root", raw)
			}
			return nil
		}
		parent := filepath.Dir(probe)
		if parent == probe {
			return nil
		}
		probe = parent
	}
}
