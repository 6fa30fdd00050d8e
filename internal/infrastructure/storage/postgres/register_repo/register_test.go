package register_repo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docflow/internal/core/id"
	"docflow/internal/domain/registers/stock"
)

func TestLockQuery_SortsIDs(t *testing.T) {
	a := id.MustParse("00000000-0000-7000-8000-000000000001")
	b := id.MustParse("00000000-0000-7000-8000-000000000002")

	sql, args, err := lockQuery([]id.ID{b, a}).ToSql()
	require.NoError(t, err)

	assert.Equal(t,
		"SELECT id, designation, on_hand FROM products WHERE id IN ($1,$2) ORDER BY id FOR UPDATE",
		sql)
	assert.Equal(t, []any{a, b}, args)
}

func TestMovementRows_FollowColumns(t *testing.T) {
	docID := id.New()
	m := stock.Movement{
		ID:         id.New(),
		DocumentID: &docID,
		ProductID:  id.New(),
		RecordType: stock.RecordTypeExpense,
		Quantity:   3,
		CreatedAt:  time.Now().UTC(),
	}

	rows := movementRows([]stock.Movement{m})

	require.Len(t, rows, 1)
	assert.Equal(t, []string{"id", "document_id", "product_id", "record_type", "quantity", "created_at"}, movementCols)
	assert.Equal(t, []any{m.ID, &docID, m.ProductID, stock.RecordTypeExpense, int64(3), m.CreatedAt}, rows[0])
}

func TestPaymentColumns(t *testing.T) {
	assert.Equal(t, []string{
		"id", "document_id", "kind", "amount", "paid_at", "method", "reference", "notes", "created_at",
	}, paymentCols)
}
