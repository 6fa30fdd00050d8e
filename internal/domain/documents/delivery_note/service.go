// Package delivery_note provides the delivery note lifecycle.
// A delivery note holds stock for its lines from creation until it is cancelled or deleted.
package delivery_note

import (
	"context"
	"fmt"

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

// CreateInput creates a delivery note. DueDate is the delivery date.
type CreateInput struct {
	documents.CreateInput

	// Advancements are payments received when the note is issued
	Advancements []payments.Input `json:"advancements,omitempty" validate:"omitempty,dive"`
}

// Service provides business operations for delivery notes.
type Service struct {
	*documents.Base
	stock  StockLedger
	ledger *payments.Ledger
}

// NewService creates a new delivery note service.
func NewService(deps documents.Deps, stock StockLedger, ledger *payments.Ledger) *Service {
	return &Service{
		Base:   documents.NewBase(documents.FamilyDeliveryNote, deps),
		stock:  stock,
		ledger: ledger,
	}
}

// Create creates a draft delivery note, reserves its stock and records advancements.
func (s *Service) Create(ctx context.Context, in CreateInput) (*documents.Document, error) {
	doc, err := s.Prepare(ctx, in.CreateInput)
	if err != nil {
		return nil, err
	}
	if err := s.ledger.ValidateAdvancements(doc, in.Advancements); err != nil {
		return nil, err
	}

	err = s.TxManager.RunInTransaction(ctx, func(ctx context.Context) error {
		doc.StockReserved = true
		if err := s.Insert(ctx, doc); err != nil {
			return err
		}
		if err := s.stock.ReserveLines(ctx, doc.ID, doc.Reservations()); err != nil {
			return err
		}
		if len(in.Advancements) == 0 {
			return nil
		}
		if _, err := s.ledger.RecordAdvancements(ctx, doc, in.Advancements); err != nil {
			return err
		}
		return s.Save(ctx, doc)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "delivery note created",
		"id", doc.ID,
		"code", doc.Code,
		"total", doc.Total.String(),
		"status", doc.Status,
	)
	return doc, nil
}

// Update edits a delivery note in draft or partially_paid that is not yet invoiced.
// Replacing lines releases the old stock and reserves the new set.
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

		// A smaller total must still cover what was already paid.
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

	logger.Info(ctx, "delivery note updated", "id", doc.ID, "code", doc.Code, "total", doc.Total.String())
	return doc, nil
}

// ChangeStatus applies a manual transition.
//
// Entering cancelled releases the stock, leaving it reserves the stock again
// and fails with INSUFFICIENT_STOCK when it is gone. Requests for paid or
// partially_paid are answered with the status derived from payments.
// An invoiced note refuses every transition: its invoice owns the stock.
func (s *Service) ChangeStatus(ctx context.Context, docID id.ID, to documents.Status) (*documents.Document, error) {
	var doc *documents.Document
	err := s.TxManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		doc, err = s.Lock(ctx, docID)
		if err != nil {
			return err
		}
		if err := doc.CheckNotInvoiced(to); err != nil {
			return err
		}
		from := doc.Status

		if to.IsPaymentDriven() {
			if _, err := s.ledger.Apply(ctx, doc); err != nil {
				return err
			}
		} else {
			if err := s.Lifecycle().CheckTransition(from, to); err != nil {
				return err
			}
			if err := s.moveStock(ctx, doc, from, to); err != nil {
				return err
			}
			doc.SetStatus(to)
			if to != documents.StatusCancelled {
				if _, err := s.ledger.Apply(ctx, doc); err != nil {
					return err
				}
			}
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

	logger.Info(ctx, "delivery note status changed", "id", doc.ID, "code", doc.Code, "status", doc.Status)
	return doc, nil
}

func (s *Service) moveStock(ctx context.Context, doc *documents.Document, from, to documents.Status) error {
	switch {
	case to == documents.StatusCancelled && doc.StockReserved:
		if err := s.stock.ReleaseLines(ctx, doc.ID, doc.Reservations()); err != nil {
			return err
		}
		doc.StockReserved = false
	case from == documents.StatusCancelled && !doc.StockReserved:
		if err := s.stock.ReserveLines(ctx, doc.ID, doc.Reservations()); err != nil {
			return err
		}
		doc.StockReserved = true
	}
	return nil
}

// Delete removes a draft or cancelled delivery note without payments that was not invoiced.
func (s *Service) Delete(ctx context.Context, docID id.ID) error {
	var code string
	err := s.TxManager.RunInTransaction(ctx, func(ctx context.Context) error {
		doc, err := s.Lock(ctx, docID)
		if err != nil {
			return err
		}
		if err := s.CheckDelete(doc); err != nil {
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

		if doc.StockReserved {
			if err := s.stock.ReleaseLines(ctx, doc.ID, doc.Reservations()); err != nil {
				return err
			}
		}
		if err := s.Repo.Delete(ctx, doc.ID); err != nil {
			return fmt.Errorf("delete delivery note: %w", err)
		}
		code = doc.Code
		return s.Record(ctx, doc, documents.EventDeleted, nil)
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, "delivery note deleted", "id", docID, "code", code)
	return nil
}

// CanInvoice fails when the note cannot be turned into an invoice.
func CanInvoice(doc *documents.Document) error {
	if doc.Converted || doc.TargetID != nil {
		return apperror.NewDuplicateInvoice(doc.ID.String())
	}
	if doc.Status == documents.StatusCancelled {
		return apperror.NewInvalidConversion(string(doc.Family), string(doc.Status))
	}
	return nil
}
