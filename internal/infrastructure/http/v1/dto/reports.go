package dto

import (
	"time"

	"docflow/internal/core/apperror"
	"docflow/internal/core/id"
	"docflow/internal/domain/reports"
)

// StockBalanceReportRequest represents request for stock balance report.
type StockBalanceReportRequest struct {
	ProductIDs    []string `form:"productId"`
	BelowQuantity *int64   `form:"below"`
	ExcludeZero   bool     `form:"excludeZero"`
	Limit         int      `form:"limit"`
	Offset        int      `form:"offset"`
}

// ToFilter converts request to a stock balance filter.
func (r *StockBalanceReportRequest) ToFilter() (reports.StockBalanceReportFilter, error) {
	ids, err := parseIDs(r.ProductIDs, "productId")
	return reports.StockBalanceReportFilter{
		ProductIDs:    ids,
		BelowQuantity: r.BelowQuantity,
		ExcludeZero:   r.ExcludeZero,
		Limit:         r.Limit,
		Offset:        r.Offset,
	}, err
}

// StockTurnoverReportRequest represents request for stock turnover report.
// Both dates are inclusive days.
type StockTurnoverReportRequest struct {
	FromDate   time.Time `form:"fromDate" time_format:"2006-01-02" binding:"required"`
	ToDate     time.Time `form:"toDate" time_format:"2006-01-02" binding:"required"`
	ProductIDs []string  `form:"productId"`
	Limit      int       `form:"limit"`
	Offset     int       `form:"offset"`
}

// ToFilter converts request to a stock turnover filter.
func (r *StockTurnoverReportRequest) ToFilter() (reports.StockTurnoverReportFilter, error) {
	ids, err := parseIDs(r.ProductIDs, "productId")
	return reports.StockTurnoverReportFilter{
		FromDate:   r.FromDate,
		ToDate:     r.ToDate.AddDate(0, 0, 1),
		ProductIDs: ids,
		Limit:      r.Limit,
		Offset:     r.Offset,
	}, err
}

// DocumentSummaryRequest represents request for the document summary.
type DocumentSummaryRequest struct {
	Families []string   `form:"family"`
	ClientID string     `form:"clientId"`
	DateFrom *time.Time `form:"dateFrom" time_format:"2006-01-02"`
	DateTo   *time.Time `form:"dateTo" time_format:"2006-01-02"`
}

// ToFilter converts request to a document summary filter.
func (r *DocumentSummaryRequest) ToFilter() (reports.DocumentSummaryFilter, error) {
	f := reports.DocumentSummaryFilter{
		Families: r.Families,
		DateFrom: r.DateFrom,
		DateTo:   r.DateTo,
	}
	if r.ClientID != "" {
		clientID, err := id.Parse(r.ClientID)
		if err != nil {
			return f, apperror.NewValidation("invalid client id").WithDetail("field", "clientId")
		}
		f.ClientID = &clientID
	}
	if f.DateTo != nil {
		end := f.DateTo.Add(24*time.Hour - time.Nanosecond)
		f.DateTo = &end
	}
	return f, nil
}

func parseIDs(raw []string, field string) ([]id.ID, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	ids := make([]id.ID, 0, len(raw))
	for _, s := range raw {
		v, err := id.Parse(s)
		if err != nil {
			return nil, apperror.NewValidation("invalid id").
				WithDetail("field", field).
				WithDetail("value", s)
		}
		ids = append(ids, v)
	}
	return ids, nil
}
