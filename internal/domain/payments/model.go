// Package payments provides the payment ledger of delivery notes and invoices.
package payments

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"docflow/internal/core/apperror"
	"docflow/internal/core/id"
	"docflow/internal/core/types"
)

// Method is how a payment was made.
type Method string

const (
	MethodCash       Method = "cash"
	MethodCheck      Method = "check"
	MethodTransfer   Method = "transfer"
	MethodCard       Method = "card"
	MethodCreditNote Method = "credit_note"
)

// ParseMethod validates a payment method.
func ParseMethod(s string) (Method, error) {
	m := Method(strings.ToLower(strings.TrimSpace(s)))
	switch m {
	case MethodCash, MethodCheck, MethodTransfer, MethodCard, MethodCreditNote:
		return m, nil
	case "":
		return "", apperror.NewInvalidPayment("payment method is required").
			WithDetail("field", "method")
	}
	return "", apperror.NewInvalidPayment("unknown payment method").
		WithDetail("field", "method").
		WithDetail("method", s)
}

// Kind tells payments from credits.
type Kind string

const (
	KindPayment Kind = "payment"
	// KindCredit offsets earlier payments (invoice cancellation)
	KindCredit Kind = "credit"
)

// Payment is an amount applied against exactly one document.
type Payment struct {
	ID         id.ID           `db:"id" json:"id"`
	DocumentID id.ID           `db:"document_id" json:"documentId"`
	Kind       Kind            `db:"kind" json:"kind"`
	Amount     decimal.Decimal `db:"amount" json:"amount"`
	Date       time.Time       `db:"paid_at" json:"date"`
	Method     Method          `db:"method" json:"method"`
	Reference  string          `db:"reference" json:"reference,omitempty"`
	Notes      string          `db:"notes" json:"notes,omitempty"`
	CreatedAt  time.Time       `db:"created_at" json:"createdAt"`
}

// Signed returns the amount counted towards the net paid amount.
func (p *Payment) Signed() decimal.Decimal {
	if p.Kind == KindCredit {
		return p.Amount.Neg()
	}
	return p.Amount
}

// Input is a requested payment.
type Input struct {
	Amount    decimal.Decimal `json:"amount"`
	Method    string          `json:"method"`
	Date      time.Time       `json:"date"`
	Reference string          `json:"reference" validate:"max=128"`
	Notes     string          `json:"notes" validate:"max=2000"`
}

// Summary aggregates the payment rows of a document.
type Summary struct {
	Paid     decimal.Decimal
	Credited decimal.Decimal
	Count    int
}

// Net returns payments minus credits.
func (s Summary) Net() decimal.Decimal {
	return types.Round2(s.Paid.Sub(s.Credited))
}

// Summarize folds payment rows into a Summary.
func Summarize(payments []*Payment) Summary {
	s := Summary{Paid: decimal.Zero, Credited: decimal.Zero}
	for _, p := range payments {
		if p.Kind == KindCredit {
			s.Credited = s.Credited.Add(p.Amount)
		} else {
			s.Paid = s.Paid.Add(p.Amount)
		}
		s.Count++
	}
	s.Paid = types.Round2(s.Paid)
	s.Credited = types.Round2(s.Credited)
	return s
}

// Repository defines data access for payments.
type Repository interface {
	Create(ctx context.Context, p *Payment) error

	// ListByDocument returns the rows owned by a document, oldest first.
	ListByDocument(ctx context.Context, documentID id.ID) ([]*Payment, error)

	// Reassign moves every row of one document to another and returns the row count.
	Reassign(ctx context.Context, fromDocumentID, toDocumentID id.ID) (int64, error)
}
