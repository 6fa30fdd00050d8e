package payments

import (
	"context"

	"docflow/internal/core/apperror"
	"docflow/internal/core/id"
	"docflow/internal/core/tx"
	"docflow/internal/domain/documents"
	"docflow/pkg/logger"
)

// Service exposes payment operations that run in their own transaction.
type Service struct {
	ledger    *Ledger
	docs      documents.Repository
	history   documents.HistoryRecorder
	txManager tx.Manager
}

// NewService creates a new payment service.
func NewService(ledger *Ledger, docs documents.Repository, history documents.HistoryRecorder, txManager tx.Manager) *Service {
	return &Service{
		ledger:    ledger,
		docs:      docs,
		history:   history,
		txManager: txManager,
	}
}

// AddPayment records a payment against a delivery note or an invoice and
// re-derives the document status.
func (s *Service) AddPayment(ctx context.Context, family documents.Family, documentID id.ID, in Input) (*Payment, *documents.Document, error) {
	// Reject malformed input before touching the store.
	if _, err := s.ledger.Validate(in); err != nil {
		return nil, nil, err
	}

	var (
		payment *Payment
		doc     *documents.Document
	)
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		doc, err = s.docs.GetForUpdate(ctx, documentID)
		if err != nil {
			return notFound(err, family, documentID)
		}
		if family != "" && doc.Family != family {
			return apperror.NewNotFound(string(family), documentID.String())
		}

		payment, err = s.ledger.Add(ctx, doc, in)
		if err != nil {
			return err
		}

		doc.Touch()
		if err := s.docs.Update(ctx, doc); err != nil {
			return err
		}

		if s.history != nil {
			return s.history.Record(ctx, documents.NewEvent(doc, documents.EventPaymentAdded, map[string]any{
				"paymentId": payment.ID.String(),
				"amount":    payment.Amount.String(),
				"method":    string(payment.Method),
			}))
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	logger.Info(ctx, "payment recorded",
		"document_id", doc.ID,
		"code", doc.Code,
		"amount", payment.Amount.String(),
		"status", doc.Status,
		"remaining", doc.AmountRemaining.String(),
	)
	return payment, doc, nil
}

// History returns the payment rows of a document of the given family.
func (s *Service) History(ctx context.Context, family documents.Family, documentID id.ID) ([]*Payment, error) {
	doc, err := s.docs.GetByID(ctx, documentID)
	if err != nil {
		return nil, notFound(err, family, documentID)
	}
	if family != "" && doc.Family != family {
		return nil, apperror.NewNotFound(string(family), documentID.String())
	}
	return s.ledger.History(ctx, documentID)
}

func notFound(err error, family documents.Family, documentID id.ID) error {
	if apperror.IsNotFound(err) && family != "" {
		return apperror.NewNotFound(string(family), documentID.String())
	}
	return err
}
