package fs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/bft-labs/snapship/internal/domain"
)

// SnapshotStore implements ports.SnapshotStore using JSON files in one directory.
type SnapshotStore struct {
	dir string
}

// NewSnapshotStore creates a new SnapshotStore for the given directory.
func NewSnapshotStore(dir string) *SnapshotStore {
	return &SnapshotStore{dir: dir}
}

// Dir returns the snapshot directory.
func (s *SnapshotStore) Dir() string {
	return s.dir
}

// Path returns the full path of a snapshot file name inside the store directory.
func (s *SnapshotStore) Path(name string) string {
	return filepath.Join(s.dir, name)
}

// EnsureDirectory creates path and any missing parents.
func (s *SnapshotStore) EnsureDirectory(path string) error {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("%w: create directory %s: %v", domain.ErrStorage, path, err)
	}
	return nil
}

// Write persists entities atomically.
// Each entity is projected to its four canonical fields, encoded as indented
// JSON and written to a temp file in the target directory, which is then
// renamed over path.
func (s *SnapshotStore) Write(ctx context.Context, entities []domain.Entity, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	records := make([]domain.Entity, 0, len(entities))
	for _, e := range entities {
		records = append(records, domain.Entity{ID: e.ID, Name: e.Name, Age: e.Age, Group: e.Group})
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encode %s: %v", domain.ErrStorage, path, err)
	}

	// Temp files never carry the snapshot suffix, so a concurrent corpus scan
	// ignores them.
	tmp, err := os.CreateTemp(filepath.Dir(path), ".snapshot-*.tmp")
	if err != nil {
		return fmt.Errorf("%w: write %s: %v", domain.ErrStorage, path, err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("%w: write %s: %v", domain.ErrStorage, path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("%w: sync %s: %v", domain.ErrStorage, path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("%w: write %s: %v", domain.ErrStorage, path, err)
	}

	// Atomic rename
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("%w: rename %s: %v", domain.ErrStorage, path, err)
	}
	return nil
}

// Read loads the snapshot at path.
// Block and line comments are stripped before parsing so hand-edited files load.
func (s *SnapshotStore) Read(ctx context.Context, path string) ([]domain.Entity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, path)
		}
		return nil, fmt.Errorf("%w: read %s: %v", domain.ErrStorage, path, err)
	}

	entities, err := decodeEntities(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrFormat, path, err)
	}
	return entities, nil
}

// List returns the names of snapshot files in dir sorted by name, which is
// also their chronological order.
func (s *SnapshotStore) List(ctx context.Context, dir string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ents, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: list %s: directory does not exist", domain.ErrStorage, dir)
		}
		return nil, fmt.Errorf("%w: list %s: %v", domain.ErrStorage, dir, err)
	}

	var names []string
	for _, e := range ents {
		if e.IsDir() || !domain.IsSnapshotName(e.Name()) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// decodeEntities parses a top-level JSON array of entity objects.
func decodeEntities(data []byte) ([]domain.Entity, error) {
	clean := bytes.TrimSpace(stripComments(data))
	if len(clean) == 0 {
		return nil, errors.New("empty document")
	}
	if clean[0] != '[' {
		return nil, errors.New("top-level value must be an array of entities")
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(clean, &raw); err != nil {
		return nil, err
	}

	entities := make([]domain.Entity, 0, len(raw))
	for i, item := range raw {
		item = bytes.TrimSpace(item)
		if len(item) == 0 || item[0] != '{' {
			return nil, fmt.Errorf("element %d is not an object", i)
		}
		var e domain.Entity
		if err := json.Unmarshal(item, &e); err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		entities = append(entities, e)
	}
	return entities, nil
}

// Files returns the snapshot files in dir with their sizes, oldest first.
func (s *SnapshotStore) Files(ctx context.Context, dir string) ([]domain.SnapshotFile, error) {
	names, err := s.List(ctx, dir)
	if err != nil {
		return nil, err
	}

	files := make([]domain.SnapshotFile, 0, len(names))
	for _, name := range names {
		info, err := os.Stat(filepath.Join(dir, name))
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				// Removed between listing and stat.
				continue
			}
			return nil, fmt.Errorf("%w: stat %s: %v", domain.ErrStorage, name, err)
		}
		files = append(files, domain.SnapshotFile{Name: name, Size: info.Size()})
	}
	return files, nil
}

// Remove deletes the snapshot at path.
func (s *SnapshotStore) Remove(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: remove %s: %v", domain.ErrStorage, path, err)
	}
	return nil
}
