package reports

import (
	"context"
)

// Repository defines report data access interface.
type Repository interface {
	// Stock reports
	GetStockBalanceReport(ctx context.Context, filter StockBalanceReportFilter) ([]StockBalanceReportItem, error)
	GetStockTurnoverReport(ctx context.Context, filter StockTurnoverReportFilter) ([]StockTurnoverReportItem, error)

	// Document aggregates grouped by family and status
	GetDocumentSummary(ctx context.Context, filter DocumentSummaryFilter) ([]DocumentSummaryItem, error)
}
