// Package stock provides the stock ledger: the only writer of product on-hand quantity.
package stock

import (
	"context"
	"time"

	"docflow/internal/core/id"
)

// RecordType defines movement direction.
type RecordType string

const (
	// RecordTypeReceipt increases on-hand (release, restock)
	RecordTypeReceipt RecordType = "receipt"
	// RecordTypeExpense decreases on-hand (reserve)
	RecordTypeExpense RecordType = "expense"
)

// Movement is one journal row of the ledger.
type Movement struct {
	ID id.ID `db:"id" json:"id"`

	// DocumentID is nil for restocking outside of any document
	DocumentID *id.ID `db:"document_id" json:"documentId,omitempty"`

	ProductID  id.ID      `db:"product_id" json:"productId"`
	RecordType RecordType `db:"record_type" json:"recordType"`

	// Quantity is always positive; RecordType carries the sign
	Quantity int64 `db:"quantity" json:"quantity"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// Signed returns the on-hand delta produced by the movement.
func (m Movement) Signed() int64 {
	if m.RecordType == RecordTypeExpense {
		return -m.Quantity
	}
	return m.Quantity
}

// Availability is the stock view of a product.
type Availability struct {
	ProductID   id.ID  `db:"id"`
	Designation string `db:"designation"`
	OnHand      int64  `db:"on_hand"`
}

// Repository defines the storage operations of the ledger.
// All methods run on the caller's transaction.
type Repository interface {
	// GetAvailability returns the stock view of a product (NOT_FOUND if missing).
	GetAvailability(ctx context.Context, productID id.ID) (Availability, error)

	// LockAvailability returns the stock view of the given products with
	// row locks (SELECT ... FOR UPDATE) taken in product ID order.
	// Missing products are absent from the result.
	LockAvailability(ctx context.Context, productIDs []id.ID) (map[id.ID]Availability, error)

	// Decrement atomically subtracts qty when on_hand >= qty.
	// ok is false when the row is missing or holds less than qty.
	Decrement(ctx context.Context, productID id.ID, qty int64) (onHand int64, ok bool, err error)

	// Increment atomically adds qty (NOT_FOUND if missing).
	Increment(ctx context.Context, productID id.ID, qty int64) (onHand int64, err error)

	// AppendMovements writes journal rows.
	AppendMovements(ctx context.Context, movements []Movement) error

	// GetMovementsByDocument returns the journal of one document, oldest first.
	GetMovementsByDocument(ctx context.Context, documentID id.ID) ([]Movement, error)
}
