// Package invoice provides the invoice lifecycle.
package invoice

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"docflow/internal/core/apperror"
	"docflow/internal/core/id"
	"docflow/internal/domain/documents"
	"docflow/internal/domain/payments"
	"docflow/internal/domain/registers/stock"
	"docflow/pkg/logger"
)

// StockLedger reserves and releases the stock of a whole document.
type StockLedger interface {
	ReserveLines(ctx context.Context, documentID id.ID, items []stock.Reservation) error
	ReleaseLines(ctx context.Context, documentID id.ID, items []stock.Reservation) error
}

// CreateInput creates an invoice directly from products. DueDate is the payment due date.
type CreateInput struct {
	documents.CreateInput

	// TaxRate is a percentage; the configured default applies when nil
	TaxRate *decimal.Decimal `json:"taxRate,omitempty"`
}

// Service provides business operations for invoices.
type Service struct {
	*documents.Base
	stock   StockLedger
	ledger  *payments.Ledger
	taxRate decimal.Decimal
}

// NewService creates a new invoice service. taxRate applies to invoices created
// without an explicit rate; zero is a valid rate.
func NewService(deps documents.Deps, stock StockLedger, ledger *payments.Ledger, taxRate decimal.Decimal) *Service {
	return &Service{
		Base:    documents.NewBase(documents.FamilyInvoice, deps),
		stock:   stock,
		ledger:  ledger,
		taxRate: taxRate,
	}
}

// DefaultTaxRate returns the rate applied when a request carries none.
func (s *Service) DefaultTaxRate() decimal.Decimal {
	return s.taxRate
}

// Create creates a draft invoice from products and reserves its stock.
func (s *Service) Create(ctx context.Context, in CreateInput) (*documents.Document, error) {
	rate := s.taxRate
	if in.TaxRate != nil {
		rate = *in.TaxRate
	}

	doc, err := s.Prepare(ctx, in.CreateInput)
	if err != nil {
		return nil, err
	}
	doc.TaxRate = &rate
	if err := doc.Recalculate(); err != nil {
		return nil, err
	}

	err = s.TxManager.RunInTransaction(ctx, func(ctx context.Context) error {
		doc.StockReserved = true
		if err := s.Insert(ctx, doc); err != nil {
			return err
		}
		return s.stock.ReserveLines(ctx, doc.ID, doc.Reservations())
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "invoice created",
		"id", doc.ID,
		"code", doc.Code,
		"total", doc.Total.String(),
		"tax", doc.TaxAmount.String(),
	)
	return doc, nil
}

// Update edits a draft invoice. Stock moves only for invoices holding stock.
func (s *Service) Update(ctx context.Context, docID id.ID, in documents.UpdateInput) (*documents.Document, error) {
	var doc *documents.Document
	err := s.TxManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		doc, err = s.Lock(ctx, docID)
		if err != nil {
			return err
		}
		if err := doc.CanModify(); err != nil {
			return err
		}

		old := doc.Reservations()
		linesChanged, err := s.ApplyUpdate(ctx, doc, in)
		if err != nil {
			return err
		}
		if err := doc.Recalculate(); err != nil {
			return err
		}

		if linesChanged && doc.StockReserved {
			if err := s.stock.ReleaseLines(ctx, doc.ID, old); err != nil {
				return err
			}
			if err := s.stock.ReserveLines(ctx, doc.ID, doc.Reservations()); err != nil {
				return err
			}
		}
		if _, err := s.ledger.Apply(ctx, doc); err != nil {
			return err
		}

		if linesChanged {
			if err := s.Repo.ReplaceLines(ctx, doc.ID, doc.Lines); err != nil {
				return fmt.Errorf("replace lines: %w", err)
			}
		}
		if err := s.Save(ctx, doc); err != nil {
			return err
		}
		return s.Record(ctx, doc, documents.EventUpdated, documents.Snapshot(doc))
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "invoice updated", "id", doc.ID, "code", doc.Code, "total", doc.Total.String())
	return doc, nil
}

// ChangeStatus applies a manual transition. cancelled runs Cancel, payment driven
// statuses are answered with the status derived from payments.
func (s *Service) ChangeStatus(ctx context.Context, docID id.ID, to documents.Status) (*documents.Document, error) {
	if to == documents.StatusCancelled {
		return s.Cancel(ctx, docID)
	}

	var doc *documents.Document
	err := s.TxManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		doc, err = s.Lock(ctx, docID)
		if err != nil {
			return err
		}
		from := doc.Status

		if !to.IsPaymentDriven() {
			return s.Lifecycle().CheckTransition(from, to)
		}
		if _, err := s.ledger.Apply(ctx, doc); err != nil {
			return err
		}
		if err := s.Save(ctx, doc); err != nil {
			return err
		}
		return s.Record(ctx, doc, documents.EventStatusChanged, map[string]any{
			"from":      string(from),
			"requested": string(to),
			"to":        string(doc.Status),
		})
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// Cancel cancels an unpaid or partially paid invoice.
//
// A credit offsetting the net paid amount is recorded first, held stock is
// released and a source delivery note is unlinked so it can be invoiced again.
func (s *Service) Cancel(ctx context.Context, docID id.ID) (*documents.Document, error) {
	var (
		doc    *documents.Document
		credit *payments.Payment
	)
	err := s.TxManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		doc, err = s.Lock(ctx, docID)
		if err != nil {
			return err
		}
		from := doc.Status
		if err := s.Lifecycle().CheckTransition(from, documents.StatusCancelled); err != nil {
			return err
		}

		credit, err = s.ledger.Credit(ctx, doc, "invoice cancelled")
		if err != nil {
			return err
		}
		if credit != nil {
			if err := s.Record(ctx, doc, documents.EventCredited, map[string]any{
				"paymentId": credit.ID.String(),
				"amount":    credit.Amount.String(),
			}); err != nil {
				return err
			}
		}

		if doc.StockReserved {
			if err := s.stock.ReleaseLines(ctx, doc.ID, doc.Reservations()); err != nil {
				return err
			}
			doc.StockReserved = false
		}

		if err := s.unlinkSource(ctx, doc); err != nil {
			return err
		}

		doc.SetStatus(documents.StatusCancelled)
		if err := s.Save(ctx, doc); err != nil {
			return err
		}
		return s.Record(ctx, doc, documents.EventStatusChanged, map[string]any{
			"from": string(from),
			"to":   string(documents.StatusCancelled),
		})
	})
	if err != nil {
		return nil, err
	}

	fields := []any{"id", doc.ID, "code", doc.Code}
	if credit != nil {
		fields = append(fields, "credit", credit.Amount.String())
	}
	logger.Info(ctx, "invoice cancelled", fields...)
	return doc, nil
}

// Delete removes a draft or cancelled invoice that never had a payment row.
func (s *Service) Delete(ctx context.Context, docID id.ID) error {
	var code string
	err := s.TxManager.RunInTransaction(ctx, func(ctx context.Context) error {
		doc, err := s.Lock(ctx, docID)
		if err != nil {
			return err
		}

		summary, err := s.ledger.Summary(ctx, doc.ID)
		if err != nil {
			return err
		}
		if summary.Count > 0 {
			return apperror.NewInvalidTransition(string(doc.Family), string(doc.Status), "").
				WithDetail("operation", "delete").
				WithDetail("reason", "payments recorded")
		}
		if err := s.CheckDelete(doc); err != nil {
			return err
		}

		if doc.StockReserved {
			if err := s.stock.ReleaseLines(ctx, doc.ID, doc.Reservations()); err != nil {
				return err
			}
		}
		if err := s.unlinkSource(ctx, doc); err != nil {
			return err
		}
		if err := s.Repo.Delete(ctx, doc.ID); err != nil {
			return fmt.Errorf("delete invoice: %w", err)
		}
		code = doc.Code
		return s.Record(ctx, doc, documents.EventDeleted, nil)
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, "invoice deleted", "id", docID, "code", code)
	return nil
}

// unlinkSource clears the invoiced marker of the delivery note the invoice came from.
func (s *Service) unlinkSource(ctx context.Context, doc *documents.Document) error {
	if doc.SourceID == nil {
		return nil
	}

	dn, err := s.Repo.GetForUpdate(ctx, *doc.SourceID)
	if apperror.IsNotFound(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load source delivery note: %w", err)
	}
	if dn.TargetID == nil || *dn.TargetID != doc.ID {
		return nil
	}

	dn.Converted = false
	dn.TargetID = nil
	if _, err := s.ledger.Apply(ctx, dn); err != nil {
		return err
	}
	dn.Touch()
	if err := s.Repo.Update(ctx, dn); err != nil {
		return fmt.Errorf("update source delivery note: %w", err)
	}

	logger.Debug(ctx, "delivery note unlinked", "id", dn.ID, "invoice_id", doc.ID)
	return s.Record(ctx, dn, documents.EventUnlinked, map[string]any{
		"invoiceId": doc.ID.String(),
	})
}
