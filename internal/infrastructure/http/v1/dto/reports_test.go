package dto

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docflow/internal/core/apperror"
	"docflow/internal/core/id"
)

func TestStockTurnoverReportRequest_ToDateInclusive(t *testing.T) {
	req := StockTurnoverReportRequest{
		FromDate: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		ToDate:   time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC),
	}

	f, err := req.ToFilter()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), f.ToDate)
	assert.Nil(t, f.ProductIDs)
}

func TestStockBalanceReportRequest_InvalidProduct(t *testing.T) {
	req := StockBalanceReportRequest{ProductIDs: []string{id.New().String(), "nope"}}

	_, err := req.ToFilter()
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
}

func TestDocumentSummaryRequest_ToFilter(t *testing.T) {
	clientID := id.New()
	req := DocumentSummaryRequest{Families: []string{"invoice"}, ClientID: clientID.String()}

	f, err := req.ToFilter()
	require.NoError(t, err)
	assert.Equal(t, []string{"invoice"}, f.Families)
	require.NotNil(t, f.ClientID)
	assert.Equal(t, clientID, *f.ClientID)
	assert.Nil(t, f.DateTo)
}
