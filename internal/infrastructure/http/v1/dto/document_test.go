package dto

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docflow/internal/core/apperror"
	"docflow/internal/core/id"
	"docflow/internal/domain"
	"docflow/internal/domain/documents"
)

func TestDocumentListRequest_ToFilter(t *testing.T) {
	clientID := id.New()
	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)

	req := DocumentListRequest{
		PaginationRequest: PaginationRequest{Search: "DN-00", Limit: 10},
		Status:            "delivered",
		ClientID:          clientID.String(),
		DateFrom:          &from,
		DateTo:            &to,
	}

	f, err := req.ToFilter()
	require.NoError(t, err)
	assert.Equal(t, documents.StatusDelivered, f.Status)
	require.NotNil(t, f.ClientID)
	assert.Equal(t, clientID, *f.ClientID)
	assert.Equal(t, from, *f.DateFrom)
	assert.True(t, f.DateTo.After(to))
	assert.Equal(t, 31, f.DateTo.Day())
	assert.Equal(t, "DN-00", f.Search)
}

func TestDocumentListRequest_InvalidClient(t *testing.T) {
	req := DocumentListRequest{ClientID: "not-a-uuid"}
	_, err := req.ToFilter()
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
}

func TestUpdateDocumentRequest_KeepsLinesNil(t *testing.T) {
	notes := "call before delivery"
	req := UpdateDocumentRequest{Version: 3, Notes: &notes}

	in := req.ToInput()
	assert.Nil(t, in.Lines)
	assert.Equal(t, 3, in.Version)
	assert.Equal(t, &notes, in.Notes)
}

func TestFromDocument(t *testing.T) {
	doc := documents.New(documents.FamilyInvoice, id.New(), time.Now())
	doc.Code = "INV-2026-0001"
	source := id.New()
	doc.SourceID = &source
	doc.SetLines([]documents.Line{{
		ProductID:   id.New(),
		Designation: "Cable",
		Quantity:    2,
		UnitPrice:   decimal.RequireFromString("50"),
	}})
	require.NoError(t, doc.Recalculate())

	resp := FromDocument(doc)
	assert.Equal(t, "invoice", resp.Family)
	assert.Equal(t, source.String(), resp.SourceID)
	assert.Empty(t, resp.TargetID)
	require.Len(t, resp.Lines, 1)
	assert.Equal(t, 1, resp.Lines[0].LineNo)
	assert.True(t, resp.Lines[0].Total.Equal(decimal.RequireFromString("100")))
}

func TestNewListResponse(t *testing.T) {
	res := domain.ListResult[*documents.Document]{
		Items:      []*documents.Document{documents.New(documents.FamilyQuote, id.New(), time.Now())},
		TotalCount: 7,
		Limit:      1,
		Offset:     3,
	}

	out := NewListResponse(res, FromDocument)
	items, ok := out.Items.([]DocumentResponse)
	require.True(t, ok)
	assert.Len(t, items, 1)
	assert.Equal(t, int64(7), out.TotalCount)
	assert.Equal(t, 3, out.Offset)
}
