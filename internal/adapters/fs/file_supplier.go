package fs

import (
	"context"

	"github.com/bft-labs/snapship/internal/domain"
)

// FileSupplier implements ports.Supplier by re-reading a JSON source file on
// every call. The file uses the snapshot format and may contain comments, so
// it can be maintained by hand.
type FileSupplier struct {
	path  string
	store *SnapshotStore
}

// NewFileSupplier creates a supplier that reads entities from path.
func NewFileSupplier(path string) *FileSupplier {
	return &FileSupplier{path: path, store: NewSnapshotStore("")}
}

// Entities returns the current content of the source file.
func (f *FileSupplier) Entities(ctx context.Context) ([]domain.Entity, error) {
	return f.store.Read(ctx, f.path)
}

// Path returns the source file path.
func (f *FileSupplier) Path() string {
	return f.path
}
