package ports

import (
	"context"

	"github.com/bft-labs/snapship/internal/domain"
)

// Supplier returns the current full entity collection.
// It is called once per snapshot and may fail; a failure is reported for that
// snapshot only.
type Supplier interface {
	Entities(ctx context.Context) ([]domain.Entity, error)
}

// SupplierFunc adapts a plain function to Supplier.
type SupplierFunc func(ctx context.Context) ([]domain.Entity, error)

// Entities calls f.
func (f SupplierFunc) Entities(ctx context.Context) ([]domain.Entity, error) {
	return f(ctx)
}
