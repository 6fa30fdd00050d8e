// Package report_repo provides PostgreSQL implementations for report repositories.
package report_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"docflow/internal/domain/reports"
	"docflow/internal/infrastructure/storage/postgres"
)

// ReportRepo implements reports.Repository.
type ReportRepo struct {
	txm *postgres.TxManager
}

var _ reports.Repository = (*ReportRepo)(nil)

// NewReportRepo creates a new report repository.
func NewReportRepo(txm *postgres.TxManager) *ReportRepo {
	return &ReportRepo{txm: txm}
}

// GetStockBalanceReport lists on-hand quantities valued at unit cost.
func (r *ReportRepo) GetStockBalanceReport(ctx context.Context, filter reports.StockBalanceReportFilter) ([]reports.StockBalanceReportItem, error) {
	return selectAll[reports.StockBalanceReportItem](ctx, r.txm, stockBalanceQuery(filter), "stock balance report")
}

// GetStockTurnoverReport sums the stock journal per product over the period.
func (r *ReportRepo) GetStockTurnoverReport(ctx context.Context, filter reports.StockTurnoverReportFilter) ([]reports.StockTurnoverReportItem, error) {
	return selectAll[reports.StockTurnoverReportItem](ctx, r.txm, stockTurnoverQuery(filter), "stock turnover report")
}

// GetDocumentSummary aggregates documents per family and status.
func (r *ReportRepo) GetDocumentSummary(ctx context.Context, filter reports.DocumentSummaryFilter) ([]reports.DocumentSummaryItem, error) {
	return selectAll[reports.DocumentSummaryItem](ctx, r.txm, documentSummaryQuery(filter), "document summary")
}

func selectAll[T any](ctx context.Context, txm *postgres.TxManager, q squirrel.SelectBuilder, name string) ([]T, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build %s: %w", name, err)
	}
	items := make([]T, 0)
	if err := pgxscan.Select(ctx, txm.GetQuerier(ctx), &items, sql, args...); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return items, nil
}

func stockBalanceQuery(filter reports.StockBalanceReportFilter) squirrel.SelectBuilder {
	q := postgres.Builder().
		Select(
			"id AS product_id",
			"reference",
			"designation",
			"on_hand",
			"unit_cost",
			"on_hand * unit_cost AS valuation",
		).
		From("products")

	if len(filter.ProductIDs) > 0 {
		q = q.Where(squirrel.Eq{"id": filter.ProductIDs})
	}
	if filter.BelowQuantity != nil {
		q = q.Where(squirrel.Lt{"on_hand": *filter.BelowQuantity})
	}
	if filter.ExcludeZero {
		q = q.Where(squirrel.Gt{"on_hand": 0})
	}

	q = q.OrderBy("reference")
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}
	return q
}

func stockTurnoverQuery(filter reports.StockTurnoverReportFilter) squirrel.SelectBuilder {
	q := postgres.Builder().
		Select(
			"p.id AS product_id",
			"p.reference",
			"p.designation",
			"COALESCE(SUM(m.quantity) FILTER (WHERE m.record_type = 'receipt'), 0) AS receipts",
			"COALESCE(SUM(m.quantity) FILTER (WHERE m.record_type = 'expense'), 0) AS expenses",
		).
		From("stock_movements m").
		Join("products p ON p.id = m.product_id").
		Where(squirrel.GtOrEq{"m.created_at": filter.FromDate}).
		Where(squirrel.Lt{"m.created_at": filter.ToDate})

	if len(filter.ProductIDs) > 0 {
		q = q.Where(squirrel.Eq{"m.product_id": filter.ProductIDs})
	}

	q = q.GroupBy("p.id", "p.reference", "p.designation").OrderBy("p.reference")
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}
	return q
}

func documentSummaryQuery(filter reports.DocumentSummaryFilter) squirrel.SelectBuilder {
	q := postgres.Builder().
		Select(
			"family",
			"status",
			"COUNT(*) AS doc_count",
			"COALESCE(SUM(total), 0) AS total",
			"COALESCE(SUM(amount_paid), 0) AS amount_paid",
			"COALESCE(SUM(amount_remaining), 0) AS amount_remaining",
		).
		From("documents").
		// Invoiced delivery notes are reported through their invoice.
		Where("NOT (family = 'delivery_note' AND converted)")

	if len(filter.Families) > 0 {
		q = q.Where(squirrel.Eq{"family": filter.Families})
	}
	if filter.ClientID != nil {
		q = q.Where(squirrel.Eq{"client_id": *filter.ClientID})
	}
	if filter.DateFrom != nil {
		q = q.Where(squirrel.GtOrEq{"doc_date": *filter.DateFrom})
	}
	if filter.DateTo != nil {
		q = q.Where(squirrel.LtOrEq{"doc_date": *filter.DateTo})
	}

	return q.GroupBy("family", "status").OrderBy("family", "status")
}
