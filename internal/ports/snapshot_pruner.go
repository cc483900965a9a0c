package ports

import (
	"context"

	"github.com/bft-labs/snapship/internal/domain"
)

// SnapshotPruner exposes the corpus to the retention runner.
type SnapshotPruner interface {
	// Files returns the snapshot files in dir with their sizes, oldest first.
	Files(ctx context.Context, dir string) ([]domain.SnapshotFile, error)

	// Remove deletes the snapshot at path. A missing file is not an error.
	Remove(ctx context.Context, path string) error
}
