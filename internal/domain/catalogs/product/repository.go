package product

import (
	"context"

	"docflow/internal/core/id"
	"docflow/internal/domain"
)

// Repository defines data access for products.
// It never writes on_hand after the initial insert.
type Repository interface {
	Create(ctx context.Context, p *Product) error

	// Update persists reference, designation and prices (optimistic locking).
	Update(ctx context.Context, p *Product) error

	Delete(ctx context.Context, productID id.ID) error

	GetByID(ctx context.Context, productID id.ID) (*Product, error)

	// GetByIDs returns the products found, keyed by ID. Missing IDs are absent.
	GetByIDs(ctx context.Context, ids []id.ID) (map[id.ID]*Product, error)

	List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*Product], error)

	// IsReferenced reports whether any document line points at the product.
	IsReferenced(ctx context.Context, productID id.ID) (bool, error)

	ExistsByReference(ctx context.Context, reference string, excludeID *id.ID) (bool, error)
}
