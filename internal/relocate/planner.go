package relocate

import (
	"path"
	"strings"

	"github.com/ncruces/go-strftime"

	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/pathguard"
	"github.com/starford/raido/internal/storage"
)

// Planner computes and validates the destination of a relocation before
// any mutation happens.
type Planner struct {
	guard *pathguard.Guard
	store storage.Provider
	clock Clock
}

// NewPlanner creates a Planner. A nil clock falls back to the system clock.
func NewPlanner(guard *pathguard.Guard, store storage.Provider, clock Clock) *Planner {
	if clock == nil {
		clock = SystemClock()
	}
	return &Planner{guard: guard, store: store, clock: clock}
}

// Plan returns the validated destination for req, given its already
// resolved source. It fails on collisions and circular destinations
// without mutating anything.
func (p *Planner) Plan(req Request, src pathguard.ResolvedPath) (pathguard.ResolvedPath, error) {
	var destRel string

	switch req.Kind {
	case Rename:
		if err := p.guard.ValidateName(req.NewName); err != nil {
			return pathguard.ResolvedPath{}, err
		}
		destRel = path.Join(src.Dir(), strings.TrimSpace(req.NewName))

	case Move:
		destDir, err := p.guard.ResolveDir(req.Destination)
		if err != nil {
			return pathguard.ResolvedPath{}, err
		}
		destRel = path.Join(destDir.Rel, src.Base())

	case Archive:
		baseRaw := req.ArchiveBase
		if baseRaw == "" {
			baseRaw = "archive"
		}
		base, err := p.guard.ResolveDir(baseRaw)
		if err != nil {
			return pathguard.ResolvedPath{}, err
		}
		bucket, err := p.dateBucket(req.DateFormat)
		if err != nil {
			return pathguard.ResolvedPath{}, err
		}
		destRel = path.Join(base.Rel, bucket, src.Base())
	}

	dest, err := p.guard.Resolve(destRel)
	if err != nil {
		return pathguard.ResolvedPath{}, err
	}

	// Circularity: a directory cannot move into itself.
	if dest.Rel == src.Rel || strings.HasPrefix(dest.Rel, src.Rel+"/") {
		return pathguard.ResolvedPath{}, apperr.New(apperr.CircularDestination,
			"cannot relocate %q into itself (destination %q)", src.Rel, dest.Rel)
	}

	if err := p.CheckCollision(dest); err != nil {
		return pathguard.ResolvedPath{}, err
	}
	return dest, nil
}

// CheckCollision fails with DestinationExists when anything is already
// present at dest. The executor calls it again immediately before the
// move to keep the check-then-act window narrow.
func (p *Planner) CheckCollision(dest pathguard.ResolvedPath) error {
	exists, err := p.store.Exists(dest.Rel)
	if err != nil {
		return apperr.Wrap(apperr.FilesystemFailure, err, "check destination %q", dest.Rel)
	}
	if exists {
		return apperr.New(apperr.DestinationExists,
			"destination %q already exists; either pick a different name or base, remove the existing destination first, or use a move with an explicit non-conflicting path", dest.Rel)
	}
	return nil
}

// dateBucket renders the strftime format with the injected clock and
// normalizes it into zero or more nested path segments.
func (p *Planner) dateBucket(format string) (string, error) {
	if format == "" {
		format = "%Y-%m-%d"
	}
	rendered := strftime.Format(format, p.clock.Now())
	bucket := path.Clean(strings.ReplaceAll(rendered, `\`, "/"))
	if bucket == "." || bucket == ".." || strings.HasPrefix(bucket, "../") || path.IsAbs(bucket) {
		return "", apperr.New(apperr.InvalidPath,
			"archive date format %q renders to an unusable path segment %q", format, rendered)
	}
	return bucket, nil
}
