// Package conversion turns accepted quotes into delivery notes and delivery notes into invoices.
package conversion

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"docflow/internal/core/apperror"
	"docflow/internal/core/id"
	"docflow/internal/domain/documents"
	"docflow/internal/domain/documents/delivery_note"
	"docflow/internal/domain/documents/quote"
	"docflow/internal/domain/payments"
	"docflow/internal/domain/pricing"
	"docflow/internal/domain/registers/stock"
	"docflow/pkg/logger"
)

var tracer = otel.Tracer("docflow/conversion")

// StockLedger reserves the stock of a whole document.
type StockLedger interface {
	ReserveLines(ctx context.Context, documentID id.ID, items []stock.Reservation) error
}

// DeliveryOptions tunes quote to delivery note conversion.
type DeliveryOptions struct {
	DeliveryDate *time.Time `json:"deliveryDate,omitempty"`

	// Notes replace the quote notes when set
	Notes *string `json:"notes,omitempty"`
}

// InvoiceOptions tunes delivery note to invoice conversion.
type InvoiceOptions struct {
	// TaxRate is a percentage; the service default applies when nil
	TaxRate *decimal.Decimal `json:"taxRate,omitempty"`
	DueDate *time.Time       `json:"dueDate,omitempty"`
}

// Service runs conversions. Each conversion is one transaction, number allocation included.
type Service struct {
	quotes   *documents.Base
	notes    *documents.Base
	invoices *documents.Base
	stock    StockLedger
	ledger   *payments.Ledger
	taxRate  decimal.Decimal
}

// NewService creates a new conversion service. taxRate applies to invoices
// created without an explicit rate; zero is a valid rate.
func NewService(deps documents.Deps, stock StockLedger, ledger *payments.Ledger, taxRate decimal.Decimal) *Service {
	return &Service{
		quotes:   documents.NewBase(documents.FamilyQuote, deps),
		notes:    documents.NewBase(documents.FamilyDeliveryNote, deps),
		invoices: documents.NewBase(documents.FamilyInvoice, deps),
		stock:    stock,
		ledger:   ledger,
		taxRate:  taxRate,
	}
}

// ConvertQuoteToDeliveryNote creates a delivery note from an accepted quote.
// Stock is checked again and reserved for every line.
func (s *Service) ConvertQuoteToDeliveryNote(ctx context.Context, quoteID id.ID, opts DeliveryOptions) (*documents.Document, error) {
	ctx, span := tracer.Start(ctx, "conversion.quote_to_delivery_note",
		trace.WithAttributes(attribute.String("quote.id", quoteID.String())))
	defer span.End()

	var q, dn *documents.Document
	err := s.quotes.TxManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		q, err = s.quotes.Lock(ctx, quoteID)
		if err != nil {
			return err
		}
		if err := quote.IsConvertible(q); err != nil {
			return err
		}

		dn = documents.New(documents.FamilyDeliveryNote, q.ClientID, time.Now().UTC())
		dn.DueDate = opts.DeliveryDate
		dn.PaymentMode = q.PaymentMode
		dn.Notes = q.Notes
		if opts.Notes != nil {
			dn.Notes = *opts.Notes
		}
		dn.Discount = q.Discount
		dn.SetLines(copyLines(q.Lines))
		dn.SourceID = id.Ptr(q.ID)
		dn.StockReserved = true

		// Quote totals are trusted and carried over; the lines mirror them.
		if err := dn.Recalculate(); err != nil {
			return err
		}
		dn.Subtotal = q.Subtotal
		dn.TaxAmount = q.TaxAmount
		dn.Total = q.Total
		dn.AmountRemaining = q.Total

		if err := s.notes.Insert(ctx, dn); err != nil {
			return err
		}
		if err := s.stock.ReserveLines(ctx, dn.ID, dn.Reservations()); err != nil {
			return err
		}

		q.SetStatus(documents.StatusConverted)
		q.Converted = true
		q.TargetID = id.Ptr(dn.ID)
		if err := s.quotes.Save(ctx, q); err != nil {
			return err
		}
		return s.quotes.Record(ctx, q, documents.EventConverted, map[string]any{
			"targetId":   dn.ID.String(),
			"targetCode": dn.Code,
		})
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	span.SetAttributes(attribute.String("delivery_note.code", dn.Code))
	logger.Info(ctx, "quote converted",
		"quote_id", q.ID,
		"quote_code", q.Code,
		"delivery_note_id", dn.ID,
		"delivery_note_code", dn.Code,
	)
	return dn, nil
}

// CreateInvoiceFromDeliveryNote invoices a delivery note.
//
// Tax is derived from the note's pre-tax subtotal, lines are copied one to one
// and every payment of the note moves to the invoice. No stock is reserved.
func (s *Service) CreateInvoiceFromDeliveryNote(ctx context.Context, noteID id.ID, opts InvoiceOptions) (*documents.Document, error) {
	ctx, span := tracer.Start(ctx, "conversion.delivery_note_to_invoice",
		trace.WithAttributes(attribute.String("delivery_note.id", noteID.String())))
	defer span.End()

	rate := s.taxRate
	if opts.TaxRate != nil {
		rate = *opts.TaxRate
	}

	var dn, inv *documents.Document
	var moved int64
	err := s.notes.TxManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		dn, err = s.notes.Lock(ctx, noteID)
		if err != nil {
			return err
		}
		if err := delivery_note.CanInvoice(dn); err != nil {
			return err
		}
		exists, err := s.invoices.Repo.ExistsBySource(ctx, documents.FamilyInvoice, dn.ID)
		if err != nil {
			return fmt.Errorf("check existing invoice: %w", err)
		}
		if exists {
			return apperror.NewDuplicateInvoice(dn.ID.String())
		}

		inv = documents.New(documents.FamilyInvoice, dn.ClientID, time.Now().UTC())
		inv.DueDate = opts.DueDate
		inv.PaymentMode = dn.PaymentMode
		inv.Notes = dn.Notes
		inv.Discount = dn.Discount
		inv.TaxRate = &rate
		inv.SetLines(copyLines(dn.Lines))
		inv.SourceID = id.Ptr(dn.ID)

		if err := inv.Recalculate(); err != nil {
			return err
		}
		tax, total, err := pricing.ApplyTax(dn.Subtotal, rate)
		if err != nil {
			return err
		}
		inv.Subtotal = dn.Subtotal
		inv.TaxAmount = tax
		inv.Total = total
		inv.AmountRemaining = total

		if err := s.invoices.Insert(ctx, inv); err != nil {
			return err
		}

		dn.Converted = true
		dn.TargetID = id.Ptr(inv.ID)
		moved, err = s.ledger.Transfer(ctx, dn, inv)
		if err != nil {
			return err
		}

		if err := s.invoices.Save(ctx, inv); err != nil {
			return err
		}
		if err := s.notes.Save(ctx, dn); err != nil {
			return err
		}
		return s.notes.Record(ctx, dn, documents.EventConverted, map[string]any{
			"targetId":      inv.ID.String(),
			"targetCode":    inv.Code,
			"movedPayments": moved,
		})
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	span.SetAttributes(attribute.String("invoice.code", inv.Code))
	logger.Info(ctx, "delivery note invoiced",
		"delivery_note_id", dn.ID,
		"delivery_note_code", dn.Code,
		"invoice_id", inv.ID,
		"invoice_code", inv.Code,
		"moved_payments", moved,
	)
	return inv, nil
}

func copyLines(src []documents.Line) []documents.Line {
	out := make([]documents.Line, len(src))
	for i, l := range src {
		l.ID = id.New()
		out[i] = l
	}
	return out
}
