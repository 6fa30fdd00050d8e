package product

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"docflow/internal/core/apperror"
	"docflow/internal/core/id"
	"docflow/internal/core/tx"
	"docflow/internal/domain"
	"docflow/pkg/logger"
)

// StockReceiver records restocking through the stock ledger.
type StockReceiver interface {
	Receive(ctx context.Context, productID id.ID, qty int64) (int64, error)
}

// Service provides business logic for the product catalog.
type Service struct {
	repo      Repository
	stock     StockReceiver
	txManager tx.Manager
}

// NewService creates a new product service.
func NewService(repo Repository, stock StockReceiver, txManager tx.Manager) *Service {
	return &Service{
		repo:      repo,
		stock:     stock,
		txManager: txManager,
	}
}

func normalizeGetErr(err error, productID id.ID) error {
	if err == nil {
		return nil
	}
	if apperror.IsNotFound(err) {
		return apperror.NewNotFound("product", productID.String())
	}
	if apperror.IsAppError(err) {
		return err
	}
	return apperror.NewInternal(err).WithDetail("entity", "product").WithDetail("id", productID.String())
}

// Create inserts a product. A positive initialStock is recorded as a receipt movement.
func (s *Service) Create(ctx context.Context, p *Product, initialStock int64) error {
	if initialStock < 0 {
		return apperror.NewValidation("initial stock cannot be negative").
			WithDetail("field", "initialStock")
	}
	p.OnHand = 0
	if err := p.Validate(ctx); err != nil {
		return err
	}

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.ensureUniqueReference(ctx, p.Reference, nil); err != nil {
			return err
		}
		if err := s.repo.Create(ctx, p); err != nil {
			return fmt.Errorf("create product: %w", err)
		}
		if initialStock > 0 {
			onHand, err := s.stock.Receive(ctx, p.ID, initialStock)
			if err != nil {
				return err
			}
			p.OnHand = onHand
		}
		return nil
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, "product created", "id", p.ID, "reference", p.Reference, "on_hand", p.OnHand)
	return nil
}

// GetByID retrieves a product.
func (s *Service) GetByID(ctx context.Context, productID id.ID) (*Product, error) {
	p, err := s.repo.GetByID(ctx, productID)
	if err != nil {
		return nil, normalizeGetErr(err, productID)
	}
	return p, nil
}

// List retrieves products with filtering.
func (s *Service) List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*Product], error) {
	filter.Normalize()
	return s.repo.List(ctx, filter)
}

// UpdateInput carries editable master data. Nil fields are left unchanged.
type UpdateInput struct {
	Version     int
	Reference   *string
	Designation *string
	UnitPrice   *decimal.Decimal
	UnitCost    *decimal.Decimal
}

// Update edits master data. Document lines keep their price snapshot.
func (s *Service) Update(ctx context.Context, productID id.ID, in UpdateInput) (*Product, error) {
	var out *Product
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		p, err := s.repo.GetByID(ctx, productID)
		if err != nil {
			return normalizeGetErr(err, productID)
		}
		if in.Version != 0 && in.Version != p.Version {
			return apperror.NewConcurrentModification("product", productID.String())
		}

		if in.Reference != nil {
			p.Reference = *in.Reference
		}
		if in.Designation != nil {
			p.Designation = *in.Designation
		}
		if in.UnitPrice != nil {
			p.UnitPrice = *in.UnitPrice
		}
		if in.UnitCost != nil {
			p.UnitCost = *in.UnitCost
		}
		if err := p.Validate(ctx); err != nil {
			return err
		}
		if in.Reference != nil {
			if err := s.ensureUniqueReference(ctx, p.Reference, &p.ID); err != nil {
				return err
			}
		}

		p.Touch()
		if err := s.repo.Update(ctx, p); err != nil {
			return fmt.Errorf("update product: %w", err)
		}
		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "product updated", "id", out.ID, "unit_price", out.UnitPrice.String())
	return out, nil
}

// Restock adds quantity to on-hand through the stock ledger.
func (s *Service) Restock(ctx context.Context, productID id.ID, qty int64) (*Product, error) {
	var out *Product
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		p, err := s.repo.GetByID(ctx, productID)
		if err != nil {
			return normalizeGetErr(err, productID)
		}
		onHand, err := s.stock.Receive(ctx, productID, qty)
		if err != nil {
			return err
		}
		p.OnHand = onHand
		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "product restocked", "id", productID, "quantity", qty, "on_hand", out.OnHand)
	return out, nil
}

// Delete removes a product that no document line references.
func (s *Service) Delete(ctx context.Context, productID id.ID) error {
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.repo.GetByID(ctx, productID); err != nil {
			return normalizeGetErr(err, productID)
		}
		used, err := s.repo.IsReferenced(ctx, productID)
		if err != nil {
			return fmt.Errorf("check references: %w", err)
		}
		if used {
			return apperror.NewBusinessRule(apperror.CodeProductInUse,
				"product is referenced by document lines and cannot be deleted").
				WithDetail("product_id", productID.String())
		}
		return s.repo.Delete(ctx, productID)
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, "product deleted", "id", productID)
	return nil
}

func (s *Service) ensureUniqueReference(ctx context.Context, reference string, excludeID *id.ID) error {
	exists, err := s.repo.ExistsByReference(ctx, reference, excludeID)
	if err != nil {
		return fmt.Errorf("check reference: %w", err)
	}
	if exists {
		return apperror.NewDuplicate("product", "reference", reference)
	}
	return nil
}
