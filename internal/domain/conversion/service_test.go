package conversion_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docflow/internal/core/apperror"
	"docflow/internal/core/id"
	"docflow/internal/domain/conversion"
	"docflow/internal/domain/documents"
	"docflow/internal/domain/documents/quote"
	"docflow/internal/domain/registers/stock"
	"docflow/internal/testutil/memstore"
)

func TestConvertQuoteToDeliveryNote(t *testing.T) {
	env := memstore.NewEnv()
	ctx := context.Background()
	p := env.Store.AddProduct("Widget", "100", 5)
	q := env.AcceptedQuote(t, "50", memstore.Line(p, 3))
	require.Equal(t, "250", q.Total.String())

	delivery := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	dn, err := env.Conversion.ConvertQuoteToDeliveryNote(ctx, q.ID, conversion.DeliveryOptions{DeliveryDate: &delivery})
	require.NoError(t, err)

	assert.Equal(t, documents.FamilyDeliveryNote, dn.Family)
	assert.Equal(t, "DN-0001", dn.Code)
	assert.Equal(t, documents.StatusDraft, dn.Status)
	assert.Equal(t, "250", dn.Total.String())
	assert.Equal(t, "250", dn.AmountRemaining.String())
	assert.Equal(t, "50", dn.Discount.String())
	assert.Equal(t, &delivery, dn.DueDate)
	require.NotNil(t, dn.SourceID)
	assert.Equal(t, q.ID, *dn.SourceID)
	require.Len(t, dn.Lines, 1)
	assert.NotEqual(t, q.Lines[0].ID, dn.Lines[0].ID)
	assert.Equal(t, q.Lines[0].ProductID, dn.Lines[0].ProductID)
	assert.Equal(t, int64(2), env.Store.OnHand(p.ID))

	stored, err := env.Quotes.GetByID(ctx, q.ID)
	require.NoError(t, err)
	assert.Equal(t, documents.StatusConverted, stored.Status)
	assert.True(t, stored.Converted)
	require.NotNil(t, stored.TargetID)
	assert.Equal(t, dn.ID, *stored.TargetID)

	moves := env.Store.Movements()
	require.Len(t, moves, 1)
	assert.Equal(t, stock.RecordTypeExpense, moves[0].RecordType)
	assert.Equal(t, int64(3), moves[0].Quantity)
	require.NotNil(t, moves[0].DocumentID)
	assert.Equal(t, dn.ID, *moves[0].DocumentID)
}

func TestConvertQuoteToDeliveryNote_Twice(t *testing.T) {
	env := memstore.NewEnv()
	ctx := context.Background()
	p := env.Store.AddProduct("Widget", "100", 10)
	q := env.AcceptedQuote(t, "0", memstore.Line(p, 2))

	_, err := env.Conversion.ConvertQuoteToDeliveryNote(ctx, q.ID, conversion.DeliveryOptions{})
	require.NoError(t, err)

	_, err = env.Conversion.ConvertQuoteToDeliveryNote(ctx, q.ID, conversion.DeliveryOptions{})
	assert.True(t, apperror.HasCode(err, apperror.CodeDuplicateConversion))
	assert.Equal(t, 1, env.Store.DocumentCount(documents.FamilyDeliveryNote))
	assert.Equal(t, int64(8), env.Store.OnHand(p.ID))
}

func TestConvertQuoteToDeliveryNote_NotAccepted(t *testing.T) {
	env := memstore.NewEnv()
	ctx := context.Background()
	p := env.Store.AddProduct("Widget", "100", 10)

	q, err := env.Quotes.Create(ctx, quote.CreateInput{CreateInput: env.Input("0", memstore.Line(p, 1))})
	require.NoError(t, err)

	_, err = env.Conversion.ConvertQuoteToDeliveryNote(ctx, q.ID, conversion.DeliveryOptions{})
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidConversion))

	_, err = env.Conversion.ConvertQuoteToDeliveryNote(ctx, id.New(), conversion.DeliveryOptions{})
	assert.True(t, apperror.IsNotFound(err))
	assert.Zero(t, env.Store.DocumentCount(documents.FamilyDeliveryNote))
}

func TestConvertQuoteToDeliveryNote_InsufficientStockRollsBack(t *testing.T) {
	env := memstore.NewEnv()
	ctx := context.Background()
	a := env.Store.AddProduct("A", "100", 5)
	b := env.Store.AddProduct("B", "100", 2)
	q := env.AcceptedQuote(t, "0", memstore.Line(a, 1), memstore.Line(b, 3))

	_, err := env.Conversion.ConvertQuoteToDeliveryNote(ctx, q.ID, conversion.DeliveryOptions{})
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeInsufficientStock, appErr.Code)
	assert.Equal(t, b.ID.String(), appErr.Details["product_id"])

	assert.Zero(t, env.Store.DocumentCount(documents.FamilyDeliveryNote))
	assert.Equal(t, int64(5), env.Store.OnHand(a.ID))
	assert.Equal(t, int64(2), env.Store.OnHand(b.ID))

	stored, err := env.Quotes.GetByID(ctx, q.ID)
	require.NoError(t, err)
	assert.Equal(t, documents.StatusAccepted, stored.Status)
	assert.False(t, stored.Converted)
}

func TestCreateInvoiceFromDeliveryNote(t *testing.T) {
	env := memstore.NewEnv()
	ctx := context.Background()
	p := env.Store.AddProduct("Widget", "100", 5)
	dn := env.DeliveryNote(t, memstore.Line(p, 1))

	dn, err := env.Pay(ctx, dn, "30")
	require.NoError(t, err)
	require.Equal(t, documents.StatusPartiallyPaid, dn.Status)

	inv, err := env.Conversion.CreateInvoiceFromDeliveryNote(ctx, dn.ID, conversion.InvoiceOptions{})
	require.NoError(t, err)

	assert.Equal(t, "100", inv.Subtotal.String())
	assert.Equal(t, "20", inv.TaxAmount.String())
	assert.Equal(t, "120", inv.Total.String())
	assert.Equal(t, "30", inv.AmountPaid.String())
	assert.Equal(t, "90", inv.AmountRemaining.String())
	assert.Equal(t, documents.StatusPartiallyPaid, inv.Status)
	assert.False(t, inv.StockReserved)
	require.NotNil(t, inv.SourceID)
	assert.Equal(t, dn.ID, *inv.SourceID)

	assert.Len(t, env.Store.PaymentsOf(inv.ID), 1)
	assert.Empty(t, env.Store.PaymentsOf(dn.ID))
	assert.Equal(t, int64(4), env.Store.OnHand(p.ID), "invoicing a delivery note moves no stock")

	stored, err := env.Notes.GetByID(ctx, dn.ID)
	require.NoError(t, err)
	assert.True(t, stored.Converted)
	assert.True(t, stored.AmountPaid.IsZero())
	assert.Equal(t, documents.StatusPartiallyPaid, stored.Status, "the note keeps the status it was invoiced in")
	require.NotNil(t, stored.TargetID)
	assert.Equal(t, inv.ID, *stored.TargetID)

	_, err = env.Pay(ctx, stored, "10")
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidTransition), "invoiced notes take no payments")
}

func TestCreateInvoiceFromDeliveryNote_TaxRate(t *testing.T) {
	env := memstore.NewEnv()
	p := env.Store.AddProduct("Widget", "33.33", 5)
	dn := env.DeliveryNote(t, memstore.Line(p, 3))
	rate := decimal.NewFromInt(10)

	inv, err := env.Conversion.CreateInvoiceFromDeliveryNote(context.Background(), dn.ID, conversion.InvoiceOptions{TaxRate: &rate})
	require.NoError(t, err)
	assert.Equal(t, "99.99", inv.Subtotal.String())
	assert.Equal(t, "10", inv.TaxAmount.String())
	assert.Equal(t, "109.99", inv.Total.String())
}

func TestCreateInvoiceFromDeliveryNote_Duplicate(t *testing.T) {
	env := memstore.NewEnv()
	ctx := context.Background()
	p := env.Store.AddProduct("Widget", "100", 5)
	dn := env.DeliveryNote(t, memstore.Line(p, 1))

	_, err := env.Conversion.CreateInvoiceFromDeliveryNote(ctx, dn.ID, conversion.InvoiceOptions{})
	require.NoError(t, err)

	_, err = env.Conversion.CreateInvoiceFromDeliveryNote(ctx, dn.ID, conversion.InvoiceOptions{})
	assert.True(t, apperror.HasCode(err, apperror.CodeDuplicateConversion))
	assert.Equal(t, 1, env.Store.DocumentCount(documents.FamilyInvoice))
}

func TestCreateInvoiceFromDeliveryNote_Cancelled(t *testing.T) {
	env := memstore.NewEnv()
	ctx := context.Background()
	p := env.Store.AddProduct("Widget", "100", 5)
	dn := env.DeliveryNote(t, memstore.Line(p, 1))
	_, err := env.Notes.ChangeStatus(ctx, dn.ID, documents.StatusCancelled)
	require.NoError(t, err)

	_, err = env.Conversion.CreateInvoiceFromDeliveryNote(ctx, dn.ID, conversion.InvoiceOptions{})
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidConversion))
}

func TestCancelledInvoiceFreesTheDeliveryNote(t *testing.T) {
	env := memstore.NewEnv()
	ctx := context.Background()
	p := env.Store.AddProduct("Widget", "100", 5)
	dn := env.DeliveryNote(t, memstore.Line(p, 1))
	_, err := env.Pay(ctx, dn, "30")
	require.NoError(t, err)

	first, err := env.Conversion.CreateInvoiceFromDeliveryNote(ctx, dn.ID, conversion.InvoiceOptions{})
	require.NoError(t, err)
	_, err = env.Invoices.Cancel(ctx, first.ID)
	require.NoError(t, err)

	freed, err := env.Notes.GetByID(ctx, dn.ID)
	require.NoError(t, err)
	assert.False(t, freed.Converted)
	assert.Nil(t, freed.TargetID)

	second, err := env.Conversion.CreateInvoiceFromDeliveryNote(ctx, dn.ID, conversion.InvoiceOptions{})
	require.NoError(t, err)
	assert.NotEqual(t, first.Code, second.Code)
	assert.True(t, second.AmountPaid.IsZero(), "payments stayed with the cancelled invoice")
	assert.Equal(t, documents.StatusDraft, second.Status)
	assert.Equal(t, int64(4), env.Store.OnHand(p.ID))
}

func TestInvoicedDeliveryNote_RefusesStatusChanges(t *testing.T) {
	env := memstore.NewEnv()
	ctx := context.Background()
	p := env.Store.AddProduct("Widget", "100", 5)
	dn := env.DeliveryNote(t, memstore.Line(p, 3))
	dn, err := env.Pay(ctx, dn, "300")
	require.NoError(t, err)
	require.Equal(t, documents.StatusPaid, dn.Status)

	inv, err := env.Conversion.CreateInvoiceFromDeliveryNote(ctx, dn.ID, conversion.InvoiceOptions{})
	require.NoError(t, err)
	require.Equal(t, documents.StatusPartiallyPaid, inv.Status)

	stored, err := env.Notes.GetByID(ctx, dn.ID)
	require.NoError(t, err)
	assert.Equal(t, documents.StatusPaid, stored.Status)
	assert.True(t, stored.AmountPaid.IsZero())

	for _, to := range []documents.Status{
		documents.StatusCancelled,
		documents.StatusDelivered,
		documents.StatusDraft,
		documents.StatusPaid,
	} {
		_, err := env.Notes.ChangeStatus(ctx, dn.ID, to)
		require.Error(t, err, to)
		appErr, ok := apperror.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, apperror.CodeInvalidTransition, appErr.Code)
		assert.Equal(t, documents.StateInvoiced, appErr.Details["status"])
	}

	stored, err = env.Notes.GetByID(ctx, dn.ID)
	require.NoError(t, err)
	assert.Equal(t, documents.StatusPaid, stored.Status)
	assert.True(t, stored.StockReserved)
	assert.Equal(t, int64(2), env.Store.OnHand(p.ID))
}

func TestInvoicedDeliveryNote_CancellableOnceInvoiceCancelled(t *testing.T) {
	env := memstore.NewEnv()
	ctx := context.Background()
	p := env.Store.AddProduct("Widget", "100", 5)
	dn := env.DeliveryNote(t, memstore.Line(p, 3))
	_, err := env.Pay(ctx, dn, "300")
	require.NoError(t, err)

	inv, err := env.Conversion.CreateInvoiceFromDeliveryNote(ctx, dn.ID, conversion.InvoiceOptions{})
	require.NoError(t, err)

	_, err = env.Notes.ChangeStatus(ctx, dn.ID, documents.StatusCancelled)
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidTransition))
	assert.Equal(t, int64(2), env.Store.OnHand(p.ID))

	_, err = env.Invoices.Cancel(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), env.Store.OnHand(p.ID), "an invoice made from a note holds no stock of its own")

	freed, err := env.Notes.GetByID(ctx, dn.ID)
	require.NoError(t, err)
	assert.False(t, freed.Converted)
	assert.Equal(t, documents.StatusDraft, freed.Status)

	cancelled, err := env.Notes.ChangeStatus(ctx, dn.ID, documents.StatusCancelled)
	require.NoError(t, err)
	assert.False(t, cancelled.StockReserved)
	assert.Equal(t, int64(5), env.Store.OnHand(p.ID))
}
