package documents

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"docflow/internal/core/apperror"
	"docflow/internal/core/entity"
	"docflow/internal/core/id"
	"docflow/internal/core/types"
	"docflow/internal/domain/pricing"
	"docflow/internal/domain/registers/stock"
)

// Document is the shape shared by every family.
type Document struct {
	entity.BaseEntity

	Family Family `db:"family" json:"family"`

	// Code is the human-readable number (QUO-0001, DN-0001, INV-2026-0001)
	Code string `db:"code" json:"code"`

	ClientID id.ID     `db:"client_id" json:"clientId"`
	Date     time.Time `db:"doc_date" json:"date"`

	// DueDate is the validity date of a quote, the delivery date of a
	// delivery note and the payment due date of an invoice.
	DueDate *time.Time `db:"due_date" json:"dueDate,omitempty"`

	PaymentMode string `db:"payment_mode" json:"paymentMode,omitempty"`
	Notes       string `db:"notes" json:"notes,omitempty"`

	// Subtotal is the pre-tax amount net of the global discount
	Subtotal decimal.Decimal `db:"subtotal" json:"subtotal"`
	Discount decimal.Decimal `db:"discount" json:"discount"`

	// TaxRate is a percentage, set on invoices only
	TaxRate   *decimal.Decimal `db:"tax_rate" json:"taxRate,omitempty"`
	TaxAmount decimal.Decimal  `db:"tax_amount" json:"taxAmount"`
	Total     decimal.Decimal  `db:"total" json:"total"`

	AmountPaid      decimal.Decimal `db:"amount_paid" json:"amountPaid"`
	AmountRemaining decimal.Decimal `db:"amount_remaining" json:"amountRemaining"`

	Status Status `db:"status" json:"status"`

	// WorkflowStatus is the last status not derived from payments.
	// Status falls back to it when no payment is recorded.
	WorkflowStatus Status `db:"workflow_status" json:"workflowStatus"`

	// SourceID points at the document this one was converted from
	SourceID *id.ID `db:"source_id" json:"sourceId,omitempty"`
	// TargetID points at the document this one was converted to
	TargetID *id.ID `db:"target_id" json:"targetId,omitempty"`

	// Converted marks a quote turned into a delivery note, or an invoiced delivery note
	Converted bool `db:"converted" json:"converted"`

	// StockReserved is true while the lines hold stock
	StockReserved bool `db:"stock_reserved" json:"stockReserved"`

	Lines []Line `db:"-" json:"lines"`
}

// Line is one product line of a document.
type Line struct {
	ID         id.ID `db:"id" json:"id"`
	DocumentID id.ID `db:"document_id" json:"documentId"`
	LineNo     int   `db:"line_no" json:"lineNo"`

	ProductID   id.ID  `db:"product_id" json:"productId"`
	Designation string `db:"designation" json:"designation"`
	Quantity    int64  `db:"quantity" json:"quantity"`

	// UnitPrice is a snapshot taken when the line is built
	UnitPrice decimal.Decimal `db:"unit_price" json:"unitPrice"`
	Discount  decimal.Decimal `db:"discount" json:"discount"`

	Total        decimal.Decimal `db:"total" json:"total"`
	TaxAmount    decimal.Decimal `db:"tax_amount" json:"taxAmount"`
	TotalWithTax decimal.Decimal `db:"total_with_tax" json:"totalWithTax"`
}

// New creates a document of the given family in its initial status.
func New(family Family, clientID id.ID, date time.Time) *Document {
	lc, _ := LifecycleOf(family)
	if date.IsZero() {
		date = time.Now().UTC()
	}
	return &Document{
		BaseEntity:      entity.NewBaseEntity(),
		Family:          family,
		ClientID:        clientID,
		Date:            date,
		Subtotal:        decimal.Zero,
		Discount:        decimal.Zero,
		TaxAmount:       decimal.Zero,
		Total:           decimal.Zero,
		AmountPaid:      decimal.Zero,
		AmountRemaining: decimal.Zero,
		Status:          lc.Initial,
		WorkflowStatus:  lc.Initial,
		Lines:           make([]Line, 0),
	}
}

// Lifecycle returns the state machine of the document's family.
func (d *Document) Lifecycle() Lifecycle {
	lc, _ := LifecycleOf(d.Family)
	return lc
}

// SetLines replaces the lines, numbering them from 1.
func (d *Document) SetLines(lines []Line) {
	d.Lines = make([]Line, len(lines))
	for i, l := range lines {
		if id.IsNil(l.ID) {
			l.ID = id.New()
		}
		l.DocumentID = d.ID
		l.LineNo = i + 1
		d.Lines[i] = l
	}
}

// Recalculate derives every monetary total from the lines and the global discount.
func (d *Document) Recalculate() error {
	inputs := make([]pricing.LineInput, len(d.Lines))
	for i, l := range d.Lines {
		inputs[i] = pricing.LineInput{
			UnitPrice: l.UnitPrice,
			Quantity:  decimal.NewFromInt(l.Quantity),
			Discount:  l.Discount,
		}
	}

	res, err := pricing.Compute(inputs, d.Discount, d.TaxRate)
	if err != nil {
		return err
	}

	for i := range d.Lines {
		d.Lines[i].Total = res.Lines[i].Total
		d.Lines[i].TaxAmount = res.Lines[i].TaxAmount
		d.Lines[i].TotalWithTax = res.Lines[i].TotalWithTax
	}
	d.Discount = res.Discount
	d.Subtotal = res.Subtotal
	d.TaxAmount = res.TaxAmount
	d.Total = res.Total
	d.AmountRemaining = types.FloorZero(types.Round2(d.Total.Sub(d.AmountPaid)))
	return nil
}

// SetStatus applies a lifecycle status.
// Payment driven statuses never replace WorkflowStatus.
func (d *Document) SetStatus(s Status) {
	d.Status = s
	if !s.IsPaymentDriven() {
		d.WorkflowStatus = s
	}
}

// DeriveStatus returns paid when nothing remains, partially_paid when some amount
// is paid and the workflow status otherwise.
func DeriveStatus(total, paid decimal.Decimal, workflow Status) Status {
	if total.Sub(paid).Sign() <= 0 {
		return StatusPaid
	}
	if paid.Sign() > 0 {
		return StatusPartiallyPaid
	}
	return workflow
}

// ApplyPaid stores the net paid amount and re-derives the status.
// hasPayments is false when no payment row belongs to the document; the status
// then returns to WorkflowStatus. Cancelled documents keep their status.
func (d *Document) ApplyPaid(paid decimal.Decimal, hasPayments bool) {
	d.AmountPaid = types.Round2(paid)
	d.AmountRemaining = types.FloorZero(types.Round2(d.Total.Sub(d.AmountPaid)))

	if !d.Lifecycle().Payable || d.Status == StatusCancelled {
		return
	}
	if !hasPayments {
		d.Status = d.WorkflowStatus
		return
	}
	d.Status = DeriveStatus(d.Total, d.AmountPaid, d.WorkflowStatus)
}

// Reservations returns the stock held by the lines.
func (d *Document) Reservations() []stock.Reservation {
	out := make([]stock.Reservation, len(d.Lines))
	for i, l := range d.Lines {
		out[i] = stock.Reservation{ProductID: l.ProductID, Quantity: l.Quantity}
	}
	return out
}

// ProductIDs returns the distinct products of the lines.
func (d *Document) ProductIDs() []id.ID {
	seen := make(map[id.ID]struct{}, len(d.Lines))
	out := make([]id.ID, 0, len(d.Lines))
	for _, l := range d.Lines {
		if _, ok := seen[l.ProductID]; ok {
			continue
		}
		seen[l.ProductID] = struct{}{}
		out = append(out, l.ProductID)
	}
	return out
}

// CanModify fails with INVALID_STATE_TRANSITION when lines cannot be edited.
func (d *Document) CanModify() error {
	if !d.Lifecycle().IsEditable(d.Status) {
		return apperror.NewInvalidTransition(string(d.Family), string(d.Status), "")
	}
	return d.CheckNotInvoiced("")
}

// CheckNotInvoiced fails with INVALID_STATE_TRANSITION on a delivery note that
// has an invoice. Such a note is frozen until the invoice is cancelled.
func (d *Document) CheckNotInvoiced(to Status) error {
	if d.Family == FamilyDeliveryNote && d.Converted {
		return apperror.NewInvalidTransition(string(d.Family), StateInvoiced, string(to))
	}
	return nil
}

// Validate implements entity.Validatable.
func (d *Document) Validate(ctx context.Context) error {
	lc, ok := LifecycleOf(d.Family)
	if !ok {
		return apperror.NewValidation("unknown document family").
			WithDetail("field", "family")
	}
	if !lc.Knows(d.Status) {
		return apperror.NewValidation("unknown status").
			WithDetail("field", "status").
			WithDetail("status", string(d.Status))
	}
	if id.IsNil(d.ClientID) {
		return apperror.NewValidation("client is required").
			WithDetail("field", "clientId")
	}
	if len(d.Lines) == 0 {
		return apperror.NewValidation("document must have at least one line").
			WithDetail("field", "lines")
	}
	for i, l := range d.Lines {
		if id.IsNil(l.ProductID) {
			return apperror.NewValidation("product is required").
				WithDetail("field", "productId").
				WithDetail("line", i+1)
		}
		if l.Quantity <= 0 {
			return apperror.NewValidation("quantity must be positive").
				WithDetail("field", "quantity").
				WithDetail("line", i+1)
		}
	}
	if d.Discount.IsNegative() {
		return apperror.NewValidation("discount cannot be negative").
			WithDetail("field", "discount")
	}
	return nil
}

var _ entity.Validatable = (*Document)(nil)
