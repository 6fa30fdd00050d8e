package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"docflow/internal/domain/documents"
	"docflow/internal/domain/payments"
)

// PaymentRequest represents a payment in API requests.
type PaymentRequest struct {
	Amount    decimal.Decimal `json:"amount"`
	Method    string          `json:"method" binding:"required"`
	Date      time.Time       `json:"date"`
	Reference string          `json:"reference,omitempty" binding:"max=128"`
	Notes     string          `json:"notes,omitempty" binding:"max=2000"`
}

// ToInput converts request to the ledger input.
func (r PaymentRequest) ToInput() payments.Input {
	return payments.Input{
		Amount:    r.Amount,
		Method:    r.Method,
		Date:      r.Date,
		Reference: r.Reference,
		Notes:     r.Notes,
	}
}

// ToInputs converts a list of payment requests.
func ToInputs(list []PaymentRequest) []payments.Input {
	if len(list) == 0 {
		return nil
	}
	out := make([]payments.Input, len(list))
	for i, r := range list {
		out[i] = r.ToInput()
	}
	return out
}

// PaymentResponse represents a payment row in API responses.
type PaymentResponse struct {
	ID         string          `json:"id"`
	DocumentID string          `json:"documentId"`
	Kind       string          `json:"kind"`
	Amount     decimal.Decimal `json:"amount"`
	Date       time.Time       `json:"date"`
	Method     string          `json:"method"`
	Reference  string          `json:"reference,omitempty"`
	Notes      string          `json:"notes,omitempty"`
	CreatedAt  time.Time       `json:"createdAt"`
}

// FromPayment converts entity to response DTO.
func FromPayment(p *payments.Payment) PaymentResponse {
	return PaymentResponse{
		ID:         p.ID.String(),
		DocumentID: p.DocumentID.String(),
		Kind:       string(p.Kind),
		Amount:     p.Amount,
		Date:       p.Date,
		Method:     string(p.Method),
		Reference:  p.Reference,
		Notes:      p.Notes,
		CreatedAt:  p.CreatedAt,
	}
}

// PaymentHistoryResponse lists the payment rows of a document with their net sum.
type PaymentHistoryResponse struct {
	Items    []PaymentResponse `json:"items"`
	Paid     decimal.Decimal   `json:"paid"`
	Credited decimal.Decimal   `json:"credited"`
	Net      decimal.Decimal   `json:"net"`
}

// FromPayments converts a payment history.
func FromPayments(list []*payments.Payment) PaymentHistoryResponse {
	sum := payments.Summarize(list)
	items := make([]PaymentResponse, len(list))
	for i, p := range list {
		items[i] = FromPayment(p)
	}
	return PaymentHistoryResponse{
		Items:    items,
		Paid:     sum.Paid,
		Credited: sum.Credited,
		Net:      sum.Net(),
	}
}

// AddPaymentResponse returns the recorded payment and the updated document.
type AddPaymentResponse struct {
	Payment  PaymentResponse  `json:"payment"`
	Document DocumentResponse `json:"document"`
}

// NewAddPaymentResponse builds the response of a recorded payment.
func NewAddPaymentResponse(p *payments.Payment, doc *documents.Document) AddPaymentResponse {
	return AddPaymentResponse{Payment: FromPayment(p), Document: FromDocument(doc)}
}
