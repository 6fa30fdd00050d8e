package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"docflow/internal/domain/catalogs/product"
)

// --- Request DTOs ---

// CreateProductRequest represents a request to create a product.
type CreateProductRequest struct {
	Reference    string          `json:"reference" binding:"required,max=64"`
	Designation  string          `json:"designation" binding:"required,max=255"`
	UnitPrice    decimal.Decimal `json:"unitPrice"`
	UnitCost     decimal.Decimal `json:"unitCost"`
	InitialStock int64           `json:"initialStock" binding:"min=0"`
}

// ToEntity converts request to domain entity.
func (r *CreateProductRequest) ToEntity() *product.Product {
	return product.NewProduct(r.Reference, r.Designation, r.UnitPrice, r.UnitCost)
}

// UpdateProductRequest represents a request to update a product.
// On-hand quantity is changed through restocking and documents only.
type UpdateProductRequest struct {
	Version     int              `json:"version" binding:"required,min=1"`
	Reference   *string          `json:"reference,omitempty" binding:"omitempty,max=64"`
	Designation *string          `json:"designation,omitempty" binding:"omitempty,max=255"`
	UnitPrice   *decimal.Decimal `json:"unitPrice,omitempty"`
	UnitCost    *decimal.Decimal `json:"unitCost,omitempty"`
}

// ToInput converts request to the service input.
func (r *UpdateProductRequest) ToInput() product.UpdateInput {
	return product.UpdateInput{
		Version:     r.Version,
		Reference:   r.Reference,
		Designation: r.Designation,
		UnitPrice:   r.UnitPrice,
		UnitCost:    r.UnitCost,
	}
}

// RestockRequest adds quantity to a product.
type RestockRequest struct {
	Quantity int64 `json:"quantity" binding:"required,gt=0"`
}

// --- Response DTOs ---

// ProductResponse represents a product in API responses.
type ProductResponse struct {
	ID          string          `json:"id"`
	Version     int             `json:"version"`
	Reference   string          `json:"reference"`
	Designation string          `json:"designation"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	UnitCost    decimal.Decimal `json:"unitCost"`
	OnHand      int64           `json:"onHand"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// FromProduct converts entity to response DTO.
func FromProduct(p *product.Product) ProductResponse {
	return ProductResponse{
		ID:          p.ID.String(),
		Version:     p.Version,
		Reference:   p.Reference,
		Designation: p.Designation,
		UnitPrice:   p.UnitPrice,
		UnitCost:    p.UnitCost,
		OnHand:      p.OnHand,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}
