package ports

import (
	"context"

	"github.com/bft-labs/snapship/internal/domain"
)

// SnapshotStore persists snapshots as files in a single directory.
// Snapshot files are immutable once written; the store never rewrites one.
type SnapshotStore interface {
	// Dir returns the directory snapshots are written to.
	Dir() string

	// EnsureDirectory creates path and its parents if missing.
	// An existing directory is not an error.
	EnsureDirectory(path string) error

	// Write serializes entities to path. A reader never observes a partially
	// written file.
	Write(ctx context.Context, entities []domain.Entity, path string) error

	// Read parses the snapshot at path.
	// Returns an error wrapping domain.ErrNotFound if the file does not exist
	// and domain.ErrFormat if its content is not a list of entities.
	Read(ctx context.Context, path string) ([]domain.Entity, error)

	// List returns the snapshot filenames in dir, sorted by name.
	List(ctx context.Context, dir string) ([]string, error)
}
