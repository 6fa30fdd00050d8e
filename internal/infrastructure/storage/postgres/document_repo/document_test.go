package document_repo

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docflow/internal/core/apperror"
	"docflow/internal/core/id"
	"docflow/internal/domain"
	"docflow/internal/domain/documents"
)

func TestDocumentRepo_FilteredSQL(t *testing.T) {
	repo := NewDocumentRepo(nil)
	clientID := id.New()
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	sql, args, err := repo.filtered(documents.ListFilter{
		ListFilter: domain.ListFilter{Search: "DN-"},
		Family:     documents.FamilyDeliveryNote,
		Status:     documents.StatusDraft,
		ClientID:   &clientID,
		DateFrom:   &from,
	}).ToSql()
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(sql, "SELECT id, version, created_at, updated_at, family, code,"))
	assert.True(t, strings.HasSuffix(sql,
		"FROM documents WHERE family = $1 AND status = $2 AND client_id = $3 AND doc_date >= $4 AND code ILIKE $5"))
	assert.Equal(t, []any{documents.FamilyDeliveryNote, documents.StatusDraft, clientID, from, "%DN-%"}, args)
}

func TestDocumentRepo_SourceQuery(t *testing.T) {
	repo := NewDocumentRepo(nil)
	src := id.New()

	sql, args, err := repo.sourceQuery(documents.FamilyInvoice, src).ToSql()
	require.NoError(t, err)

	assert.Equal(t,
		"SELECT EXISTS ( SELECT 1 FROM documents WHERE family = $1 AND source_id = $2 AND status <> $3 )",
		sql)
	assert.Equal(t, []any{documents.FamilyInvoice, src, documents.StatusCancelled}, args)
}

func TestDocumentRepo_ForUpdateSQL(t *testing.T) {
	repo := NewDocumentRepo(nil)

	sql, _, err := repo.byID(id.New()).Suffix("FOR UPDATE").ToSql()
	require.NoError(t, err)

	assert.True(t, strings.HasSuffix(sql, "FROM documents WHERE id = $1 LIMIT 1 FOR UPDATE"))
}

func TestDocumentRepo_InsertLinesSQL(t *testing.T) {
	repo := NewDocumentRepo(nil)
	doc := documents.New(documents.FamilyQuote, id.New(), time.Now())
	doc.SetLines([]documents.Line{
		{ProductID: id.New(), Designation: "A", Quantity: 1, UnitPrice: decimal.NewFromInt(10)},
		{ProductID: id.New(), Designation: "B", Quantity: 2, UnitPrice: decimal.NewFromInt(20)},
	})

	sql, args, err := repo.insertLinesQuery(doc.Lines).ToSql()
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(sql,
		"INSERT INTO document_lines (id,document_id,line_no,product_id,designation,quantity,unit_price,discount,total,tax_amount,total_with_tax) VALUES "))
	assert.Len(t, args, 22)
	assert.Equal(t, doc.Lines[0].ID, args[0])
	assert.Equal(t, doc.ID, args[1])
	assert.Equal(t, 2, args[13])
}

func TestDocumentRepo_LinesQuery(t *testing.T) {
	repo := NewDocumentRepo(nil)
	a, b := id.New(), id.New()

	sql, args, err := repo.linesQuery([]id.ID{a, b}).ToSql()
	require.NoError(t, err)

	assert.True(t, strings.HasSuffix(sql, "FROM document_lines WHERE document_id IN ($1,$2) ORDER BY document_id, line_no"))
	assert.Equal(t, []any{a, b}, args)
}

func TestDocumentRepo_MapWriteError(t *testing.T) {
	repo := NewDocumentRepo(nil)
	src := id.New()
	inv := documents.New(documents.FamilyInvoice, id.New(), time.Now())
	inv.Code = "INV-2026-0001"
	inv.SourceID = &src

	err := repo.mapWriteError(&pgconn.PgError{Code: "23505", ConstraintName: familySourceKey}, inv)
	assert.True(t, apperror.HasCode(err, apperror.CodeDuplicateConversion))

	err = repo.mapWriteError(&pgconn.PgError{Code: "23505", ConstraintName: familyCodeKey}, inv)
	assert.True(t, apperror.HasCode(err, apperror.CodeDuplicate))

	err = repo.mapWriteError(errors.New("boom"), inv)
	assert.False(t, apperror.IsAppError(err))
	assert.Contains(t, err.Error(), "boom")
}
