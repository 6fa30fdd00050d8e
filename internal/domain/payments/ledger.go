package payments

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"docflow/internal/core/apperror"
	"docflow/internal/core/id"
	"docflow/internal/core/types"
	"docflow/internal/core/validate"
	"docflow/internal/domain/documents"
)

// Ledger holds the payment primitives used inside document transactions.
// It never opens a transaction itself.
type Ledger struct {
	repo Repository
}

// NewLedger creates a new payment ledger.
func NewLedger(repo Repository) *Ledger {
	return &Ledger{repo: repo}
}

// Validate checks a payment input and returns its normalized method.
func (l *Ledger) Validate(in Input) (Method, error) {
	if in.Amount.Sign() <= 0 {
		return "", apperror.NewInvalidPayment("payment amount must be positive").
			WithDetail("field", "amount").
			WithDetail("amount", in.Amount.String())
	}
	method, err := ParseMethod(in.Method)
	if err != nil {
		return "", err
	}
	if err := validate.Struct(in); err != nil {
		return "", err
	}
	return method, nil
}

// Summary aggregates the payment rows of a document.
func (l *Ledger) Summary(ctx context.Context, documentID id.ID) (Summary, error) {
	rows, err := l.repo.ListByDocument(ctx, documentID)
	if err != nil {
		return Summary{}, fmt.Errorf("list payments: %w", err)
	}
	return Summarize(rows), nil
}

// Apply recomputes paid and remaining amounts and the derived status of doc
// from its own payment rows. The caller saves the document.
func (l *Ledger) Apply(ctx context.Context, doc *documents.Document) (Summary, error) {
	s, err := l.Summary(ctx, doc.ID)
	if err != nil {
		return Summary{}, err
	}
	if s.Net().GreaterThan(doc.Total) {
		return s, overpaid(doc, s.Net(), decimal.Zero)
	}
	doc.ApplyPaid(s.Net(), s.Count > 0)
	return s, nil
}

// CheckBound fails with INVARIANT_VIOLATION when paid + amount exceeds the total.
// The raw remaining amount is used, not the floored one.
func CheckBound(doc *documents.Document, paid, amount decimal.Decimal) error {
	if doc.Total.Sub(paid.Add(amount)).Sign() < 0 {
		return overpaid(doc, paid, amount)
	}
	return nil
}

// Add validates and inserts one payment against doc and re-applies the balance.
// The document must be locked by the caller.
func (l *Ledger) Add(ctx context.Context, doc *documents.Document, in Input) (*Payment, error) {
	method, err := l.Validate(in)
	if err != nil {
		return nil, err
	}
	if err := checkPayable(doc); err != nil {
		return nil, err
	}

	s, err := l.Summary(ctx, doc.ID)
	if err != nil {
		return nil, err
	}
	amount := types.Round2(in.Amount)
	if err := CheckBound(doc, s.Net(), amount); err != nil {
		return nil, err
	}

	p := newPayment(doc.ID, KindPayment, amount, method, in)
	if err := l.repo.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("create payment: %w", err)
	}

	s.Paid = types.Round2(s.Paid.Add(amount))
	s.Count++
	doc.ApplyPaid(s.Net(), true)
	return p, nil
}

// RecordAdvancements inserts creation-time payments. Every input is validated
// and the sum is checked against the total before the first write.
func (l *Ledger) RecordAdvancements(ctx context.Context, doc *documents.Document, inputs []Input) ([]*Payment, error) {
	if len(inputs) == 0 {
		return nil, nil
	}
	if err := l.ValidateAdvancements(doc, inputs); err != nil {
		return nil, err
	}

	out := make([]*Payment, 0, len(inputs))
	sum := decimal.Zero
	for _, in := range inputs {
		method, _ := ParseMethod(in.Method)
		amount := types.Round2(in.Amount)
		p := newPayment(doc.ID, KindPayment, amount, method, in)
		if err := l.repo.Create(ctx, p); err != nil {
			return nil, fmt.Errorf("create advancement: %w", err)
		}
		sum = sum.Add(amount)
		out = append(out, p)
	}

	doc.ApplyPaid(sum, true)
	return out, nil
}

// ValidateAdvancements checks inputs without writing anything.
func (l *Ledger) ValidateAdvancements(doc *documents.Document, inputs []Input) error {
	sum := decimal.Zero
	for i, in := range inputs {
		if _, err := l.Validate(in); err != nil {
			if appErr, ok := apperror.AsAppError(err); ok {
				return appErr.WithDetail("advancement", i+1)
			}
			return err
		}
		sum = sum.Add(types.Round2(in.Amount))
	}
	return CheckBound(doc, decimal.Zero, sum)
}

// Credit records a credit offsetting the net paid amount of doc.
// It returns nil when nothing is paid. The caller sets the final status.
func (l *Ledger) Credit(ctx context.Context, doc *documents.Document, reason string) (*Payment, error) {
	s, err := l.Summary(ctx, doc.ID)
	if err != nil {
		return nil, err
	}
	net := s.Net()
	if net.Sign() <= 0 {
		return nil, nil
	}

	p := newPayment(doc.ID, KindCredit, net, MethodCreditNote, Input{
		Date:      time.Now().UTC(),
		Reference: doc.Code,
		Notes:     reason,
	})
	if err := l.repo.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("create credit: %w", err)
	}

	s.Credited = types.Round2(s.Credited.Add(net))
	s.Count++
	doc.ApplyPaid(s.Net(), true)
	return p, nil
}

// Transfer re-owns every payment row of from to to and re-applies both balances.
// from keeps the status it had before the transfer; only its amounts change.
func (l *Ledger) Transfer(ctx context.Context, from, to *documents.Document) (int64, error) {
	n, err := l.repo.Reassign(ctx, from.ID, to.ID)
	if err != nil {
		return 0, fmt.Errorf("reassign payments: %w", err)
	}
	if _, err := l.Apply(ctx, to); err != nil {
		return 0, err
	}

	status, workflow := from.Status, from.WorkflowStatus
	if _, err := l.Apply(ctx, from); err != nil {
		return 0, err
	}
	from.Status, from.WorkflowStatus = status, workflow
	return n, nil
}

// History returns the payment rows of a document.
func (l *Ledger) History(ctx context.Context, documentID id.ID) ([]*Payment, error) {
	return l.repo.ListByDocument(ctx, documentID)
}

func checkPayable(doc *documents.Document) error {
	if !doc.Lifecycle().Payable || doc.Status == documents.StatusCancelled {
		return apperror.NewInvalidTransition(string(doc.Family), string(doc.Status), string(documents.StatusPaid)).
			WithDetail("operation", "payment")
	}
	if doc.Family == documents.FamilyDeliveryNote && doc.Converted {
		return apperror.NewInvalidTransition(string(doc.Family), documents.StateInvoiced, string(documents.StatusPaid)).
			WithDetail("operation", "payment")
	}
	return nil
}

func overpaid(doc *documents.Document, paid, amount decimal.Decimal) error {
	return apperror.NewInvariantViolation("payments cannot exceed the document total").
		WithDetail("total", doc.Total.String()).
		WithDetail("paid", paid.String()).
		WithDetail("amount", amount.String()).
		WithDetail("remaining", doc.Total.Sub(paid).String())
}

func newPayment(documentID id.ID, kind Kind, amount decimal.Decimal, method Method, in Input) *Payment {
	date := in.Date
	if date.IsZero() {
		date = time.Now().UTC()
	}
	return &Payment{
		ID:         id.New(),
		DocumentID: documentID,
		Kind:       kind,
		Amount:     amount,
		Date:       date,
		Method:     method,
		Reference:  in.Reference,
		Notes:      in.Notes,
		CreatedAt:  time.Now().UTC(),
	}
}
