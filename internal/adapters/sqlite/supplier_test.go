package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/bft-labs/snapship/internal/domain"
	"github.com/bft-labs/snapship/internal/ports"
)

var _ ports.Supplier = (*Supplier)(nil)

func openTempSupplier(t *testing.T) *Supplier {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "students.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpenRequiresPath(t *testing.T) {
	t.Parallel()

	_, err := Open(context.Background(), "  ")
	if !errors.Is(err, domain.ErrConfig) {
		t.Fatalf("expected ErrConfig, got %v", err)
	}
}

func TestEntitiesEmptyTable(t *testing.T) {
	t.Parallel()

	s := openTempSupplier(t)
	got, err := s.Entities(context.Background())
	if err != nil {
		t.Fatalf("entities: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", got)
	}
}

func TestSeedAndRead(t *testing.T) {
	t.Parallel()

	s := openTempSupplier(t)
	n, err := s.Seed(context.Background(), SampleEntities)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if n != len(SampleEntities) {
		t.Fatalf("seeded %d rows, want %d", n, len(SampleEntities))
	}

	got, err := s.Entities(context.Background())
	if err != nil {
		t.Fatalf("entities: %v", err)
	}
	if len(got) != len(SampleEntities) {
		t.Fatalf("got %d entities, want %d", len(got), len(SampleEntities))
	}
	for i := range SampleEntities {
		if got[i] != SampleEntities[i] {
			t.Fatalf("entity %d = %+v, want %+v", i, got[i], SampleEntities[i])
		}
	}
}

func TestSeedUpserts(t *testing.T) {
	t.Parallel()

	s := openTempSupplier(t)
	ctx := context.Background()
	if _, err := s.Seed(ctx, []domain.Entity{{ID: "1", Name: "Old", Age: 1, Group: 1}}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Seed(ctx, []domain.Entity{{ID: "1", Name: "New", Age: 2, Group: 3}}); err != nil {
		t.Fatal(err)
	}

	got, err := s.Entities(ctx)
	if err != nil {
		t.Fatal(err)
	}
	want := domain.Entity{ID: "1", Name: "New", Age: 2, Group: 3}
	if len(got) != 1 || got[0] != want {
		t.Fatalf("got %+v, want [%+v]", got, want)
	}
}

func TestSeedRejectsEmptyID(t *testing.T) {
	t.Parallel()

	s := openTempSupplier(t)
	_, err := s.Seed(context.Background(), []domain.Entity{{ID: "ok"}, {ID: ""}})
	if !errors.Is(err, domain.ErrConfig) {
		t.Fatalf("expected ErrConfig, got %v", err)
	}

	got, err := s.Entities(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Fatalf("expected rolled back seed, got %+v", got)
	}
}

func TestReopenKeepsRows(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "students.db")
	s, err := Open(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Seed(context.Background(), SampleEntities[:2]); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	s, err = Open(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	got, err := s.Entities(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d entities after reopen, want 2", len(got))
	}
}
