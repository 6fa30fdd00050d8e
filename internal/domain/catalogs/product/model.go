// Package product provides the Product catalog.
// On-hand quantity is read here but only ever written by the stock ledger.
package product

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"docflow/internal/core/apperror"
	"docflow/internal/core/entity"
)

// Product is a sellable item with a single global stock counter.
type Product struct {
	entity.BaseEntity

	// Reference is the business code (unique)
	Reference string `db:"reference" json:"reference"`

	Designation string `db:"designation" json:"designation"`

	// UnitPrice is the current sale price. Document lines snapshot it.
	UnitPrice decimal.Decimal `db:"unit_price" json:"unitPrice"`

	UnitCost decimal.Decimal `db:"unit_cost" json:"unitCost"`

	// OnHand is the available quantity (never negative)
	OnHand int64 `db:"on_hand" json:"onHand"`
}

// NewProduct creates a new product with zero stock.
func NewProduct(reference, designation string, unitPrice, unitCost decimal.Decimal) *Product {
	return &Product{
		BaseEntity:  entity.NewBaseEntity(),
		Reference:   strings.TrimSpace(reference),
		Designation: strings.TrimSpace(designation),
		UnitPrice:   unitPrice,
		UnitCost:    unitCost,
	}
}

// Validate implements entity.Validatable.
func (p *Product) Validate(ctx context.Context) error {
	if p.Reference == "" {
		return apperror.NewValidation("reference is required").
			WithDetail("field", "reference")
	}
	if p.Designation == "" {
		return apperror.NewValidation("designation is required").
			WithDetail("field", "designation")
	}
	if p.UnitPrice.IsNegative() {
		return apperror.NewValidation("unit price cannot be negative").
			WithDetail("field", "unitPrice")
	}
	if p.UnitCost.IsNegative() {
		return apperror.NewValidation("unit cost cannot be negative").
			WithDetail("field", "unitCost")
	}
	if p.OnHand < 0 {
		return apperror.NewValidation("on hand quantity cannot be negative").
			WithDetail("field", "onHand")
	}
	return nil
}

var _ entity.Validatable = (*Product)(nil)
