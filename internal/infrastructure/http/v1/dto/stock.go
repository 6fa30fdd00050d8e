package dto

import (
	"time"

	"docflow/internal/domain/registers/stock"
)

// --- Response DTOs for the stock journal ---

// StockMovementResponse represents a journal row in API responses.
type StockMovementResponse struct {
	ID         string    `json:"id"`
	DocumentID string    `json:"documentId,omitempty"`
	ProductID  string    `json:"productId"`
	RecordType string    `json:"recordType"`
	Quantity   int64     `json:"quantity"`
	Delta      int64     `json:"delta"`
	CreatedAt  time.Time `json:"createdAt"`
}

// FromStockMovement converts entity to response DTO.
func FromStockMovement(m stock.Movement) StockMovementResponse {
	resp := StockMovementResponse{
		ID:         m.ID.String(),
		ProductID:  m.ProductID.String(),
		RecordType: string(m.RecordType),
		Quantity:   m.Quantity,
		Delta:      m.Signed(),
		CreatedAt:  m.CreatedAt,
	}
	if m.DocumentID != nil {
		resp.DocumentID = m.DocumentID.String()
	}
	return resp
}

// FromStockMovements converts a journal.
func FromStockMovements(list []stock.Movement) []StockMovementResponse {
	out := make([]StockMovementResponse, len(list))
	for i, m := range list {
		out[i] = FromStockMovement(m)
	}
	return out
}
