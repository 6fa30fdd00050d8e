// Package reports provides read-only reports over stock and documents.
package reports

import (
	"time"

	"github.com/shopspring/decimal"

	"docflow/internal/core/id"
)

// --- Stock Balance Report ---

// StockBalanceReportFilter defines filter for stock balance report.
type StockBalanceReportFilter struct {
	ProductIDs []id.ID

	// BelowQuantity keeps products holding strictly less than the value
	BelowQuantity *int64

	// Exclude zero balances
	ExcludeZero bool

	Limit  int
	Offset int
}

// StockBalanceReportItem represents a single row in stock balance report.
type StockBalanceReportItem struct {
	ProductID   id.ID           `db:"product_id" json:"productId"`
	Reference   string          `db:"reference" json:"reference"`
	Designation string          `db:"designation" json:"designation"`
	OnHand      int64           `db:"on_hand" json:"onHand"`
	UnitCost    decimal.Decimal `db:"unit_cost" json:"unitCost"`
	Valuation   decimal.Decimal `db:"valuation" json:"valuation"`
}

// StockBalanceReport represents the full stock balance report.
type StockBalanceReport struct {
	AsOf       time.Time                `json:"asOf"`
	Items      []StockBalanceReportItem `json:"items"`
	TotalItems int                      `json:"totalItems"`

	TotalQuantity  int64           `json:"totalQuantity"`
	TotalValuation decimal.Decimal `json:"totalValuation"`
}

// --- Stock Turnover Report ---

// StockTurnoverReportFilter defines filter for stock turnover report.
type StockTurnoverReportFilter struct {
	// Period (required, end exclusive)
	FromDate time.Time
	ToDate   time.Time

	ProductIDs []id.ID

	Limit  int
	Offset int
}

// StockTurnoverReportItem sums the journal of one product over the period.
type StockTurnoverReportItem struct {
	ProductID   id.ID  `db:"product_id" json:"productId"`
	Reference   string `db:"reference" json:"reference"`
	Designation string `db:"designation" json:"designation"`
	Receipts    int64  `db:"receipts" json:"receipts"`
	Expenses    int64  `db:"expenses" json:"expenses"`
}

// Net returns receipts minus expenses.
func (i StockTurnoverReportItem) Net() int64 {
	return i.Receipts - i.Expenses
}

// StockTurnoverReport represents the full stock turnover report.
type StockTurnoverReport struct {
	FromDate time.Time                 `json:"fromDate"`
	ToDate   time.Time                 `json:"toDate"`
	Items    []StockTurnoverReportItem `json:"items"`

	TotalReceipts int64 `json:"totalReceipts"`
	TotalExpenses int64 `json:"totalExpenses"`
}

// --- Document Summary ---

// DocumentSummaryFilter defines filter for the document summary.
type DocumentSummaryFilter struct {
	Families []string
	ClientID *id.ID
	DateFrom *time.Time
	DateTo   *time.Time
}

// DocumentSummaryItem aggregates documents of one family and status.
type DocumentSummaryItem struct {
	Family          string          `db:"family" json:"family"`
	Status          string          `db:"status" json:"status"`
	Count           int64           `db:"doc_count" json:"count"`
	Total           decimal.Decimal `db:"total" json:"total"`
	AmountPaid      decimal.Decimal `db:"amount_paid" json:"amountPaid"`
	AmountRemaining decimal.Decimal `db:"amount_remaining" json:"amountRemaining"`
}

// DocumentSummary lists the aggregates with the outstanding receivables.
type DocumentSummary struct {
	Items []DocumentSummaryItem `json:"items"`

	// Outstanding is the remaining amount of payable documents still open
	Outstanding decimal.Decimal `json:"outstanding"`
}
