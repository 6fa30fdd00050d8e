package reports

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"docflow/internal/core/apperror"
	"docflow/internal/core/tx"
	"docflow/internal/domain/documents"
)

const (
	defaultReportLimit = 100
	maxReportLimit     = 1000
)

// Service provides report generation operations.
type Service struct {
	repo      Repository
	txManager tx.ReadOnlyManager
	now       func() time.Time
}

// NewService creates a new reports service.
// Every report runs in a read-only transaction of txManager.
func NewService(repo Repository, txManager tx.ReadOnlyManager) *Service {
	return &Service{
		repo:      repo,
		txManager: txManager,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultReportLimit
	}
	if limit > maxReportLimit {
		return maxReportLimit
	}
	return limit
}

// GetStockBalance generates stock balance report.
func (s *Service) GetStockBalance(ctx context.Context, filter StockBalanceReportFilter) (*StockBalanceReport, error) {
	filter.Limit = clampLimit(filter.Limit)
	if filter.BelowQuantity != nil && *filter.BelowQuantity < 0 {
		return nil, apperror.NewValidation("belowQuantity cannot be negative").
			WithDetail("field", "belowQuantity")
	}

	var items []StockBalanceReportItem
	err := s.txManager.ReadOnly(ctx, func(ctx context.Context) error {
		var err error
		items, err = s.repo.GetStockBalanceReport(ctx, filter)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get stock balance report: %w", err)
	}

	report := &StockBalanceReport{
		AsOf:           s.now(),
		Items:          items,
		TotalItems:     len(items),
		TotalValuation: decimal.Zero,
	}
	for _, item := range items {
		report.TotalQuantity += item.OnHand
		report.TotalValuation = report.TotalValuation.Add(item.Valuation)
	}
	return report, nil
}

// GetStockTurnover generates stock turnover report.
func (s *Service) GetStockTurnover(ctx context.Context, filter StockTurnoverReportFilter) (*StockTurnoverReport, error) {
	if filter.FromDate.IsZero() || filter.ToDate.IsZero() {
		return nil, apperror.NewValidation("fromDate and toDate are required")
	}
	if !filter.FromDate.Before(filter.ToDate) {
		return nil, apperror.NewValidation("fromDate must be before toDate")
	}
	filter.Limit = clampLimit(filter.Limit)

	var items []StockTurnoverReportItem
	err := s.txManager.ReadOnly(ctx, func(ctx context.Context) error {
		var err error
		items, err = s.repo.GetStockTurnoverReport(ctx, filter)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get stock turnover report: %w", err)
	}

	report := &StockTurnoverReport{
		FromDate: filter.FromDate,
		ToDate:   filter.ToDate,
		Items:    items,
	}
	for _, item := range items {
		report.TotalReceipts += item.Receipts
		report.TotalExpenses += item.Expenses
	}
	return report, nil
}

// GetDocumentSummary aggregates documents per family and status.
// Outstanding sums what remains on open delivery notes and invoices.
// Invoiced delivery notes are left out by the repository; their invoice carries the amount.
func (s *Service) GetDocumentSummary(ctx context.Context, filter DocumentSummaryFilter) (*DocumentSummary, error) {
	if filter.DateFrom != nil && filter.DateTo != nil && filter.DateFrom.After(*filter.DateTo) {
		return nil, apperror.NewValidation("dateFrom must be before dateTo")
	}

	var items []DocumentSummaryItem
	err := s.txManager.ReadOnly(ctx, func(ctx context.Context) error {
		var err error
		items, err = s.repo.GetDocumentSummary(ctx, filter)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get document summary: %w", err)
	}

	summary := &DocumentSummary{Items: items, Outstanding: decimal.Zero}
	for _, item := range items {
		if item.Family == string(documents.FamilyQuote) || item.Status == string(documents.StatusCancelled) {
			continue
		}
		summary.Outstanding = summary.Outstanding.Add(item.AmountRemaining)
	}
	return summary, nil
}
