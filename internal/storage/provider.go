// Package storage defines the vault file-system abstraction.
package storage

import "time"

// DocumentInfo is a lightweight representation returned by list operations.
type DocumentInfo struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Provider is the interface for vault file and directory operations.
// All paths are relative to the vault root and forward-slash normalized.
type Provider interface {
	// List walks dir and returns metadata for every document under it.
	List(dir string) ([]DocumentInfo, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically writes content to path.
	Write(path string, content []byte) error
	// Delete removes the file at path.
	Delete(path string) error
	// Move renames a single file within the vault.
	Move(oldPath, newPath string) error

	// Exists reports whether anything is present at path.
	Exists(path string) (bool, error)
	// IsDir reports whether path exists and is a directory.
	IsDir(path string) (bool, error)
	// MoveDir relocates a whole directory in one rename call, creating
	// the destination's parent directories as needed.
	MoveDir(src, dst string) error
	// WalkDocuments visits every document under the vault root in
	// deterministic (lexicographic) order, pruning protected directories.
	// Returning ErrStopWalk from fn stops the walk without surfacing an
	// error; any other error stops it and is returned.
	WalkDocuments(fn func(rel string) error) error
	// Root returns the absolute vault root.
	Root() string
}
