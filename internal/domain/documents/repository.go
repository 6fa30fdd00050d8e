package documents

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"docflow/internal/core/id"
	"docflow/internal/domain"
	"docflow/internal/domain/catalogs/product"
)

// ListFilter narrows document lists.
type ListFilter struct {
	domain.ListFilter

	Family   Family
	Status   Status
	ClientID *id.ID
	DateFrom *time.Time
	DateTo   *time.Time
}

// Repository defines data access for documents of every family.
type Repository interface {
	// Create inserts the header and its lines.
	Create(ctx context.Context, doc *Document) error

	// Update persists the header with optimistic locking and bumps the version.
	Update(ctx context.Context, doc *Document) error

	// Delete removes the header and its lines.
	Delete(ctx context.Context, docID id.ID) error

	// GetByID returns the document with its lines.
	GetByID(ctx context.Context, docID id.ID) (*Document, error)

	// GetForUpdate returns the document with its lines, holding a row lock (SELECT ... FOR UPDATE).
	GetForUpdate(ctx context.Context, docID id.ID) (*Document, error)

	// ExistsBySource reports whether a document of the family was converted from sourceID.
	ExistsBySource(ctx context.Context, family Family, sourceID id.ID) (bool, error)

	// ReplaceLines deletes every line of the document and inserts the given set.
	ReplaceLines(ctx context.Context, docID id.ID, lines []Line) error

	List(ctx context.Context, filter ListFilter) (domain.ListResult[*Document], error)
}

// ClientDirectory answers client existence checks. Client master data lives elsewhere.
type ClientDirectory interface {
	Exists(ctx context.Context, clientID id.ID) (bool, error)
}

// ProductCatalog resolves line products.
type ProductCatalog interface {
	GetByIDs(ctx context.Context, ids []id.ID) (map[id.ID]*product.Product, error)
}

// LineInput is a requested document line.
type LineInput struct {
	ProductID id.ID `json:"productId" validate:"required"`
	Quantity  int64 `json:"quantity" validate:"gt=0"`

	// UnitPrice defaults to the catalog sale price when omitted
	UnitPrice *decimal.Decimal `json:"unitPrice,omitempty"`
	Discount  decimal.Decimal  `json:"discount"`
}

// CreateInput holds the fields shared by every family on creation.
type CreateInput struct {
	ClientID    id.ID           `json:"clientId" validate:"required"`
	Date        time.Time       `json:"date"`
	DueDate     *time.Time      `json:"dueDate,omitempty"`
	PaymentMode string          `json:"paymentMode" validate:"max=64"`
	Notes       string          `json:"notes" validate:"max=2000"`
	Discount    decimal.Decimal `json:"discount"`
	Lines       []LineInput     `json:"lines" validate:"required,min=1,dive"`
}

// UpdateInput edits a document. Nil fields are left unchanged; non-nil Lines
// replace every line.
type UpdateInput struct {
	Version     int              `json:"version"`
	DueDate     *time.Time       `json:"dueDate,omitempty"`
	PaymentMode *string          `json:"paymentMode,omitempty" validate:"omitempty,max=64"`
	Notes       *string          `json:"notes,omitempty" validate:"omitempty,max=2000"`
	Discount    *decimal.Decimal `json:"discount,omitempty"`
	Lines       []LineInput      `json:"lines,omitempty" validate:"omitempty,min=1,dive"`
}
