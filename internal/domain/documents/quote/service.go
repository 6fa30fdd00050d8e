// Package quote provides the quote lifecycle. Quotes hold no stock and accept no payments.
package quote

import (
	"context"
	"fmt"

	"docflow/internal/core/apperror"
	"docflow/internal/core/id"
	"docflow/internal/domain/documents"
	"docflow/pkg/logger"
)

// CreateInput creates a quote. DueDate is the validity date.
type CreateInput struct {
	documents.CreateInput
}

// Service provides business operations for quotes.
type Service struct {
	*documents.Base
}

// NewService creates a new quote service.
func NewService(deps documents.Deps) *Service {
	return &Service{Base: documents.NewBase(documents.FamilyQuote, deps)}
}

// Create creates a draft quote.
func (s *Service) Create(ctx context.Context, in CreateInput) (*documents.Document, error) {
	doc, err := s.Prepare(ctx, in.CreateInput)
	if err != nil {
		return nil, err
	}

	err = s.TxManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.Insert(ctx, doc)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "quote created", "id", doc.ID, "code", doc.Code, "total", doc.Total.String())
	return doc, nil
}

// Update edits an editable quote. New lines replace the old ones.
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

		linesChanged, err := s.ApplyUpdate(ctx, doc, in)
		if err != nil {
			return err
		}
		if err := doc.Recalculate(); err != nil {
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

	logger.Info(ctx, "quote updated", "id", doc.ID, "code", doc.Code, "total", doc.Total.String())
	return doc, nil
}

// ChangeStatus applies a manual transition. converted is reachable only by conversion.
func (s *Service) ChangeStatus(ctx context.Context, docID id.ID, to documents.Status) (*documents.Document, error) {
	var doc *documents.Document
	err := s.TxManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		doc, err = s.Lock(ctx, docID)
		if err != nil {
			return err
		}
		from := doc.Status
		if err := s.Lifecycle().CheckTransition(from, to); err != nil {
			return err
		}

		doc.SetStatus(to)
		if err := s.Save(ctx, doc); err != nil {
			return err
		}
		return s.Record(ctx, doc, documents.EventStatusChanged, map[string]any{
			"from": string(from),
			"to":   string(to),
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "quote status changed", "id", doc.ID, "code", doc.Code, "status", doc.Status)
	return doc, nil
}

// Delete removes a quote that was not converted.
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
		if err := s.Repo.Delete(ctx, doc.ID); err != nil {
			return fmt.Errorf("delete quote: %w", err)
		}
		code = doc.Code
		return s.Record(ctx, doc, documents.EventDeleted, nil)
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, "quote deleted", "id", docID, "code", code)
	return nil
}

// IsConvertible reports whether the quote can be turned into a delivery note.
func IsConvertible(doc *documents.Document) error {
	if doc.Converted || doc.Status == documents.StatusConverted {
		return apperror.NewDuplicateConversion(string(documents.FamilyQuote), doc.ID.String())
	}
	if doc.Status != documents.StatusAccepted {
		return apperror.NewInvalidConversion(string(documents.FamilyQuote), string(doc.Status))
	}
	return nil
}
