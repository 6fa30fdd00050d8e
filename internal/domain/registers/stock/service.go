package stock

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"time"

	"docflow/internal/core/apperror"
	"docflow/internal/core/id"
	"docflow/pkg/logger"
)

// Reservation is the quantity of one product held by a document.
type Reservation struct {
	ProductID id.ID
	Quantity  int64
}

// Service provides the ledger operations.
// Transactions are managed by the caller (document services).
type Service struct {
	repo Repository
}

// NewService creates a new stock ledger service.
func NewService(repo Repository) *Service {
	return &Service{
		repo: repo,
	}
}

// Reserve decrements on-hand by qty or fails with INSUFFICIENT_STOCK.
func (s *Service) Reserve(ctx context.Context, documentID, productID id.ID, qty int64) error {
	if qty <= 0 {
		return apperror.NewValidation("reserved quantity must be positive").
			WithDetail("product_id", productID.String())
	}

	if _, ok, err := s.repo.Decrement(ctx, productID, qty); err != nil {
		return fmt.Errorf("decrement %s: %w", productID, err)
	} else if !ok {
		return s.shortage(ctx, productID, qty)
	}

	return s.repo.AppendMovements(ctx, []Movement{
		newMovement(&documentID, productID, RecordTypeExpense, qty),
	})
}

// Release increments on-hand by qty unconditionally.
// Over-release is a caller bug and is not checked here.
func (s *Service) Release(ctx context.Context, documentID, productID id.ID, qty int64) error {
	if qty <= 0 {
		return apperror.NewValidation("released quantity must be positive").
			WithDetail("product_id", productID.String())
	}

	if _, err := s.repo.Increment(ctx, productID, qty); err != nil {
		return fmt.Errorf("increment %s: %w", productID, err)
	}

	return s.repo.AppendMovements(ctx, []Movement{
		newMovement(&documentID, productID, RecordTypeReceipt, qty),
	})
}

// ReserveLines reserves the stock of a whole document.
//
// Availability of every product is checked under row locks before any
// decrement is applied, so a shortage on a later line leaves earlier lines
// untouched even before the enclosing transaction rolls back.
func (s *Service) ReserveLines(ctx context.Context, documentID id.ID, items []Reservation) error {
	agg, err := Aggregate(items)
	if err != nil {
		return err
	}
	if len(agg) == 0 {
		return nil
	}

	ids := make([]id.ID, len(agg))
	for i, r := range agg {
		ids[i] = r.ProductID
	}

	avail, err := s.repo.LockAvailability(ctx, ids)
	if err != nil {
		return fmt.Errorf("lock stock: %w", err)
	}

	for _, r := range agg {
		a, ok := avail[r.ProductID]
		if !ok {
			return apperror.NewNotFound("product", r.ProductID.String())
		}
		if a.OnHand < r.Quantity {
			logger.Warn(ctx, "insufficient stock",
				"product_id", r.ProductID,
				"requested", r.Quantity,
				"on_hand", a.OnHand,
			)
			return apperror.NewInsufficientStock(r.ProductID.String(), a.Designation, r.Quantity, a.OnHand)
		}
	}

	movements := make([]Movement, 0, len(agg))
	for _, r := range agg {
		if _, ok, err := s.repo.Decrement(ctx, r.ProductID, r.Quantity); err != nil {
			return fmt.Errorf("decrement %s: %w", r.ProductID, err)
		} else if !ok {
			return s.shortage(ctx, r.ProductID, r.Quantity)
		}
		movements = append(movements, newMovement(&documentID, r.ProductID, RecordTypeExpense, r.Quantity))
	}

	if err := s.repo.AppendMovements(ctx, movements); err != nil {
		return fmt.Errorf("append movements: %w", err)
	}

	logger.Debug(ctx, "reserved stock", "document_id", documentID, "products", len(agg))
	return nil
}

// ReleaseLines returns the stock of a whole document.
func (s *Service) ReleaseLines(ctx context.Context, documentID id.ID, items []Reservation) error {
	agg, err := Aggregate(items)
	if err != nil {
		return err
	}

	movements := make([]Movement, 0, len(agg))
	for _, r := range agg {
		if _, err := s.repo.Increment(ctx, r.ProductID, r.Quantity); err != nil {
			return fmt.Errorf("increment %s: %w", r.ProductID, err)
		}
		movements = append(movements, newMovement(&documentID, r.ProductID, RecordTypeReceipt, r.Quantity))
	}
	if len(movements) == 0 {
		return nil
	}

	if err := s.repo.AppendMovements(ctx, movements); err != nil {
		return fmt.Errorf("append movements: %w", err)
	}

	logger.Debug(ctx, "released stock", "document_id", documentID, "products", len(agg))
	return nil
}

// Receive adds restocked quantity outside of any document.
func (s *Service) Receive(ctx context.Context, productID id.ID, qty int64) (int64, error) {
	if qty <= 0 {
		return 0, apperror.NewValidation("received quantity must be positive").
			WithDetail("field", "quantity")
	}

	onHand, err := s.repo.Increment(ctx, productID, qty)
	if err != nil {
		return 0, fmt.Errorf("increment %s: %w", productID, err)
	}

	if err := s.repo.AppendMovements(ctx, []Movement{
		newMovement(nil, productID, RecordTypeReceipt, qty),
	}); err != nil {
		return 0, fmt.Errorf("append movements: %w", err)
	}

	return onHand, nil
}

// Journal returns the movements recorded for a document.
func (s *Service) Journal(ctx context.Context, documentID id.ID) ([]Movement, error) {
	return s.repo.GetMovementsByDocument(ctx, documentID)
}

// Aggregate sums quantities per product and sorts by product ID.
// Sorting keeps row lock order stable across concurrent documents.
func Aggregate(items []Reservation) ([]Reservation, error) {
	sums := make(map[id.ID]int64, len(items))
	for _, it := range items {
		if it.Quantity <= 0 {
			return nil, apperror.NewValidation("quantity must be positive").
				WithDetail("product_id", it.ProductID.String())
		}
		sums[it.ProductID] += it.Quantity
	}

	out := make([]Reservation, 0, len(sums))
	for pid, qty := range sums {
		out = append(out, Reservation{ProductID: pid, Quantity: qty})
	}
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i].ProductID[:], out[j].ProductID[:]) < 0
	})
	return out, nil
}

func (s *Service) shortage(ctx context.Context, productID id.ID, qty int64) error {
	a, err := s.repo.GetAvailability(ctx, productID)
	if err != nil {
		return err
	}
	logger.Warn(ctx, "insufficient stock",
		"product_id", productID,
		"requested", qty,
		"on_hand", a.OnHand,
	)
	return apperror.NewInsufficientStock(productID.String(), a.Designation, qty, a.OnHand)
}

func newMovement(documentID *id.ID, productID id.ID, rt RecordType, qty int64) Movement {
	return Movement{
		ID:         id.New(),
		DocumentID: documentID,
		ProductID:  productID,
		RecordType: rt,
		Quantity:   qty,
		CreatedAt:  time.Now().UTC(),
	}
}
