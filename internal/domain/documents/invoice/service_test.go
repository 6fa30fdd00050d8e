package invoice_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docflow/internal/core/apperror"
	"docflow/internal/domain/documents"
	"docflow/internal/domain/documents/invoice"
	"docflow/internal/domain/payments"
	"docflow/internal/testutil/memstore"
)

func createInvoice(t *testing.T, env *memstore.Env, lines ...documents.LineInput) *documents.Document {
	t.Helper()
	inv, err := env.Invoices.Create(context.Background(), invoice.CreateInput{CreateInput: env.Input("0", lines...)})
	require.NoError(t, err)
	return inv
}

func TestCreate_DirectReservesAndTaxes(t *testing.T) {
	env := memstore.NewEnv()
	p := env.Store.AddProduct("Widget", "100", 5)

	inv := createInvoice(t, env, memstore.Line(p, 2))

	assert.Equal(t, fmt.Sprintf("INV-%d-0001", time.Now().UTC().Year()), inv.Code)
	assert.True(t, inv.StockReserved)
	assert.Equal(t, int64(3), env.Store.OnHand(p.ID))
	assert.Equal(t, "200", inv.Subtotal.String())
	assert.Equal(t, "40", inv.TaxAmount.String())
	assert.Equal(t, "240", inv.Total.String())
	require.NotNil(t, inv.TaxRate)
	assert.Equal(t, "20", inv.TaxRate.String())
	assert.Equal(t, "40", inv.Lines[0].TaxAmount.String())
}

func TestCreate_ExplicitTaxRate(t *testing.T) {
	env := memstore.NewEnv()
	p := env.Store.AddProduct("Widget", "100", 5)
	rate := decimal.NewFromInt(5)

	inv, err := env.Invoices.Create(context.Background(), invoice.CreateInput{
		CreateInput: env.Input("0", memstore.Line(p, 1)),
		TaxRate:     &rate,
	})
	require.NoError(t, err)
	assert.Equal(t, "105", inv.Total.String())
}

func TestCreate_InsufficientStock(t *testing.T) {
	env := memstore.NewEnv()
	p := env.Store.AddProduct("Widget", "100", 1)

	_, err := env.Invoices.Create(context.Background(), invoice.CreateInput{
		CreateInput: env.Input("0", memstore.Line(p, 2)),
	})
	assert.True(t, apperror.HasCode(err, apperror.CodeInsufficientStock))
	assert.Zero(t, env.Store.DocumentCount(documents.FamilyInvoice))
	assert.Equal(t, int64(1), env.Store.OnHand(p.ID))
}

func TestCancel_CreditsPaymentsAndReleasesStock(t *testing.T) {
	env := memstore.NewEnv()
	ctx := context.Background()
	p := env.Store.AddProduct("Widget", "100", 5)
	inv := createInvoice(t, env, memstore.Line(p, 1))

	inv, err := env.Pay(ctx, inv, "50")
	require.NoError(t, err)
	require.Equal(t, documents.StatusPartiallyPaid, inv.Status)

	inv, err = env.Invoices.Cancel(ctx, inv.ID)
	require.NoError(t, err)

	assert.Equal(t, documents.StatusCancelled, inv.Status)
	assert.False(t, inv.StockReserved)
	assert.True(t, inv.AmountPaid.IsZero())
	assert.Equal(t, int64(5), env.Store.OnHand(p.ID))

	rows := env.Store.PaymentsOf(inv.ID)
	require.Len(t, rows, 2)
	assert.Equal(t, payments.KindCredit, rows[1].Kind)
	assert.Equal(t, payments.MethodCreditNote, rows[1].Method)
	assert.Equal(t, "50", rows[1].Amount.String())
}

func TestCancel_WithoutPaymentsRecordsNoCredit(t *testing.T) {
	env := memstore.NewEnv()
	p := env.Store.AddProduct("Widget", "100", 5)
	inv := createInvoice(t, env, memstore.Line(p, 1))

	inv, err := env.Invoices.ChangeStatus(context.Background(), inv.ID, documents.StatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, documents.StatusCancelled, inv.Status)
	assert.Empty(t, env.Store.PaymentsOf(inv.ID))
}

func TestCancel_TerminalStatuses(t *testing.T) {
	env := memstore.NewEnv()
	ctx := context.Background()
	p := env.Store.AddProduct("Widget", "100", 5)

	paid := createInvoice(t, env, memstore.Line(p, 1))
	_, err := env.Pay(ctx, paid, "120")
	require.NoError(t, err)
	_, err = env.Invoices.Cancel(ctx, paid.ID)
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidTransition))

	cancelled := createInvoice(t, env, memstore.Line(p, 1))
	_, err = env.Invoices.Cancel(ctx, cancelled.ID)
	require.NoError(t, err)
	_, err = env.Invoices.Cancel(ctx, cancelled.ID)
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidTransition))
}

func TestDelete(t *testing.T) {
	env := memstore.NewEnv()
	ctx := context.Background()
	p := env.Store.AddProduct("Widget", "100", 5)

	draft := createInvoice(t, env, memstore.Line(p, 2))
	require.NoError(t, env.Invoices.Delete(ctx, draft.ID))
	assert.Equal(t, int64(5), env.Store.OnHand(p.ID))

	withPayment := createInvoice(t, env, memstore.Line(p, 1))
	_, err := env.Pay(ctx, withPayment, "10")
	require.NoError(t, err)
	_, err = env.Invoices.Cancel(ctx, withPayment.ID)
	require.NoError(t, err)

	err = env.Invoices.Delete(ctx, withPayment.ID)
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidTransition), "payment history blocks deletion")
	assert.Equal(t, 1, env.Store.DocumentCount(documents.FamilyInvoice))
}

func TestUpdate_DraftOnly(t *testing.T) {
	env := memstore.NewEnv()
	ctx := context.Background()
	p := env.Store.AddProduct("Widget", "100", 5)
	inv := createInvoice(t, env, memstore.Line(p, 1))

	discount := decimal.NewFromInt(10)
	inv, err := env.Invoices.Update(ctx, inv.ID, documents.UpdateInput{Discount: &discount})
	require.NoError(t, err)
	assert.Equal(t, "90", inv.Subtotal.String())
	assert.Equal(t, "108", inv.Total.String())

	_, err = env.Pay(ctx, inv, "8")
	require.NoError(t, err)
	_, err = env.Invoices.Update(ctx, inv.ID, documents.UpdateInput{Discount: &discount})
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidTransition))
}

func TestUpdate_StaleVersion(t *testing.T) {
	env := memstore.NewEnv()
	p := env.Store.AddProduct("Widget", "100", 5)
	inv := createInvoice(t, env, memstore.Line(p, 1))

	notes := "late"
	_, err := env.Invoices.Update(context.Background(), inv.ID, documents.UpdateInput{
		Version: inv.Version + 1,
		Notes:   &notes,
	})
	assert.True(t, apperror.IsConcurrentModification(err))
}
