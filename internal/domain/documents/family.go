// Package documents provides the document shape shared by quotes, delivery notes
// and invoices, together with the per-family lifecycle tables.
package documents

import (
	"slices"

	"docflow/internal/core/apperror"
)

// Family identifies a document kind.
type Family string

const (
	FamilyQuote        Family = "quote"
	FamilyDeliveryNote Family = "delivery_note"
	FamilyInvoice      Family = "invoice"
)

// Status is a document status. The valid set depends on the family.
type Status string

const (
	StatusDraft         Status = "draft"
	StatusSent          Status = "sent"
	StatusPending       Status = "pending"
	StatusAccepted      Status = "accepted"
	StatusRefused       Status = "refused"
	StatusExpired       Status = "expired"
	StatusConverted     Status = "converted"
	StatusDelivered     Status = "delivered"
	StatusPartiallyPaid Status = "partially_paid"
	StatusPaid          Status = "paid"
	StatusCancelled     Status = "cancelled"
)

// StateInvoiced is reported in errors for a delivery note frozen by its invoice.
const StateInvoiced = "invoiced"

// IsPaymentDriven reports whether the status is derived from payments.
func (s Status) IsPaymentDriven() bool {
	return s == StatusPartiallyPaid || s == StatusPaid
}

// Lifecycle describes the state machine of one family.
type Lifecycle struct {
	Family   Family
	Initial  Status
	Statuses []Status

	// Transitions lists manual transitions.
	// Conversion and payment driven statuses are not listed here.
	Transitions map[Status][]Status

	Editable  []Status
	Terminal  []Status
	Deletable []Status

	// Payable families accept payments and derive their status from them.
	Payable bool

	// HoldsStock families reserve stock for their lines.
	HoldsStock bool
}

// QuoteLifecycle: draft -> sent -> accepted -> converted, with refusal and expiry branches.
var QuoteLifecycle = Lifecycle{
	Family:  FamilyQuote,
	Initial: StatusDraft,
	Statuses: []Status{
		StatusDraft, StatusSent, StatusPending, StatusAccepted,
		StatusRefused, StatusExpired, StatusConverted,
	},
	Transitions: map[Status][]Status{
		StatusDraft:    {StatusSent, StatusPending, StatusAccepted, StatusRefused, StatusExpired},
		StatusSent:     {StatusPending, StatusAccepted, StatusRefused, StatusExpired},
		StatusPending:  {StatusDraft, StatusSent, StatusAccepted, StatusRefused, StatusExpired},
		StatusAccepted: {StatusPending, StatusRefused, StatusExpired},
		StatusRefused:  {StatusDraft, StatusPending},
		StatusExpired:  {StatusDraft, StatusPending},
	},
	Editable: []Status{StatusDraft, StatusPending, StatusRefused, StatusExpired},
	Terminal: []Status{StatusConverted},
	Deletable: []Status{
		StatusDraft, StatusSent, StatusPending, StatusAccepted, StatusRefused, StatusExpired,
	},
}

// DeliveryNoteLifecycle: draft -> delivered -> (partially_paid) -> paid, cancellable and re-activatable.
var DeliveryNoteLifecycle = Lifecycle{
	Family:  FamilyDeliveryNote,
	Initial: StatusDraft,
	Statuses: []Status{
		StatusDraft, StatusDelivered, StatusPartiallyPaid, StatusPaid, StatusCancelled,
	},
	Transitions: map[Status][]Status{
		StatusDraft:         {StatusDelivered, StatusCancelled},
		StatusDelivered:     {StatusCancelled},
		StatusPartiallyPaid: {StatusDelivered, StatusCancelled},
		StatusCancelled:     {StatusDraft, StatusDelivered},
	},
	Editable:   []Status{StatusDraft, StatusPartiallyPaid},
	Terminal:   []Status{StatusPaid},
	Deletable:  []Status{StatusDraft, StatusCancelled},
	Payable:    true,
	HoldsStock: true,
}

// InvoiceLifecycle: draft -> partially_paid -> paid, cancellable until paid.
var InvoiceLifecycle = Lifecycle{
	Family:   FamilyInvoice,
	Initial:  StatusDraft,
	Statuses: []Status{StatusDraft, StatusPartiallyPaid, StatusPaid, StatusCancelled},
	Transitions: map[Status][]Status{
		StatusDraft:         {StatusCancelled},
		StatusPartiallyPaid: {StatusCancelled},
	},
	Editable:   []Status{StatusDraft},
	Terminal:   []Status{StatusPaid, StatusCancelled},
	Deletable:  []Status{StatusDraft, StatusCancelled},
	Payable:    true,
	HoldsStock: true,
}

// LifecycleOf returns the lifecycle of a family.
func LifecycleOf(f Family) (Lifecycle, bool) {
	switch f {
	case FamilyQuote:
		return QuoteLifecycle, true
	case FamilyDeliveryNote:
		return DeliveryNoteLifecycle, true
	case FamilyInvoice:
		return InvoiceLifecycle, true
	}
	return Lifecycle{}, false
}

// ParseFamily validates a family name.
func ParseFamily(s string) (Family, error) {
	f := Family(s)
	if _, ok := LifecycleOf(f); !ok {
		return "", apperror.NewValidation("unknown document family").
			WithDetail("family", s)
	}
	return f, nil
}

// Knows reports whether s belongs to the family.
func (l Lifecycle) Knows(s Status) bool {
	return slices.Contains(l.Statuses, s)
}

// CanTransition reports whether a manual move from -> to is allowed.
func (l Lifecycle) CanTransition(from, to Status) bool {
	return slices.Contains(l.Transitions[from], to)
}

func (l Lifecycle) IsEditable(s Status) bool  { return slices.Contains(l.Editable, s) }
func (l Lifecycle) IsTerminal(s Status) bool  { return slices.Contains(l.Terminal, s) }
func (l Lifecycle) IsDeletable(s Status) bool { return slices.Contains(l.Deletable, s) }

// CheckTransition validates a manual transition request.
func (l Lifecycle) CheckTransition(from, to Status) error {
	if !l.Knows(to) {
		return apperror.NewValidation("unknown status").
			WithDetail("family", string(l.Family)).
			WithDetail("status", string(to))
	}
	if !l.CanTransition(from, to) {
		return apperror.NewInvalidTransition(string(l.Family), string(from), string(to))
	}
	return nil
}
