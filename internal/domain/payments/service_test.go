package payments_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docflow/internal/core/apperror"
	"docflow/internal/core/id"
	"docflow/internal/domain/documents"
	"docflow/internal/domain/documents/delivery_note"
	"docflow/internal/domain/documents/quote"
	"docflow/internal/domain/payments"
	"docflow/internal/testutil/memstore"
)

func TestAddPayment_PartialThenPaidThenOverpay(t *testing.T) {
	env := memstore.NewEnv()
	ctx := context.Background()
	p := env.Store.AddProduct("Widget", "250", 10)
	dn := env.DeliveryNote(t, memstore.Line(p, 1))
	require.Equal(t, "250", dn.Total.String())

	dn, err := env.Pay(ctx, dn, "100")
	require.NoError(t, err)
	assert.Equal(t, documents.StatusPartiallyPaid, dn.Status)
	assert.Equal(t, "150", dn.AmountRemaining.String())

	dn, err = env.Pay(ctx, dn, "150")
	require.NoError(t, err)
	assert.Equal(t, documents.StatusPaid, dn.Status)
	assert.True(t, dn.AmountRemaining.IsZero())

	_, err = env.Pay(ctx, dn, "1")
	assert.True(t, apperror.HasCode(err, apperror.CodeInvariantViolation))

	stored, err := env.Notes.GetByID(ctx, dn.ID)
	require.NoError(t, err)
	assert.Equal(t, "250", stored.AmountPaid.String())
	assert.Len(t, env.Store.PaymentsOf(dn.ID), 2)
}

func TestAddPayment_InvalidInput(t *testing.T) {
	env := memstore.NewEnv()
	ctx := context.Background()
	p := env.Store.AddProduct("Widget", "10", 10)
	dn := env.DeliveryNote(t, memstore.Line(p, 1))

	tests := []struct {
		name string
		in   payments.Input
	}{
		{"zero amount", payments.Input{Amount: decimal.Zero, Method: "cash"}},
		{"negative amount", payments.Input{Amount: decimal.NewFromInt(-5), Method: "cash"}},
		{"missing method", payments.Input{Amount: decimal.NewFromInt(5)}},
		{"unknown method", payments.Input{Amount: decimal.NewFromInt(5), Method: "barter"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := env.Payments.AddPayment(ctx, documents.FamilyDeliveryNote, dn.ID, tt.in)
			assert.True(t, apperror.HasCode(err, apperror.CodeInvalidPayment), err)
		})
	}
	assert.Empty(t, env.Store.PaymentsOf(dn.ID))
}

func TestAddPayment_RejectsQuotesAndCancelled(t *testing.T) {
	env := memstore.NewEnv()
	ctx := context.Background()
	p := env.Store.AddProduct("Widget", "10", 10)

	q, err := env.Quotes.Create(ctx, quote.CreateInput{CreateInput: env.Input("0", memstore.Line(p, 1))})
	require.NoError(t, err)
	_, err = env.Pay(ctx, q, "5")
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidTransition))

	dn := env.DeliveryNote(t, memstore.Line(p, 1))
	dn, err = env.Notes.ChangeStatus(ctx, dn.ID, documents.StatusCancelled)
	require.NoError(t, err)
	_, err = env.Pay(ctx, dn, "5")
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidTransition))
}

func TestAddPayment_WrongFamilyIsNotFound(t *testing.T) {
	env := memstore.NewEnv()
	p := env.Store.AddProduct("Widget", "10", 10)
	dn := env.DeliveryNote(t, memstore.Line(p, 1))

	_, _, err := env.Payments.AddPayment(context.Background(), documents.FamilyInvoice, dn.ID, payments.Input{
		Amount: decimal.NewFromInt(1), Method: "cash",
	})
	assert.True(t, apperror.IsNotFound(err))

	_, _, err = env.Payments.AddPayment(context.Background(), documents.FamilyInvoice, id.New(), payments.Input{
		Amount: decimal.NewFromInt(1), Method: "cash",
	})
	assert.True(t, apperror.IsNotFound(err))
}

func TestAdvancements_ValidatedBeforeWrite(t *testing.T) {
	env := memstore.NewEnv()
	ctx := context.Background()
	p := env.Store.AddProduct("Widget", "100", 5)

	_, err := env.Notes.Create(ctx, delivery_note.CreateInput{
		CreateInput: env.Input("0", memstore.Line(p, 1)),
		Advancements: []payments.Input{
			{Amount: decimal.NewFromInt(60), Method: "cash"},
			{Amount: decimal.NewFromInt(50), Method: "card"},
		},
	})
	assert.True(t, apperror.HasCode(err, apperror.CodeInvariantViolation))
	assert.Equal(t, int64(5), env.Store.OnHand(p.ID))
	assert.Zero(t, env.Store.DocumentCount(documents.FamilyDeliveryNote))

	dn, err := env.Notes.Create(ctx, delivery_note.CreateInput{
		CreateInput:  env.Input("0", memstore.Line(p, 1)),
		Advancements: []payments.Input{{Amount: decimal.NewFromInt(40), Method: "cash"}},
	})
	require.NoError(t, err)
	assert.Equal(t, documents.StatusPartiallyPaid, dn.Status)
	assert.Equal(t, "60", dn.AmountRemaining.String())

	history, err := env.Payments.History(ctx, documents.FamilyDeliveryNote, dn.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, payments.KindPayment, history[0].Kind)
}

func TestSummarize(t *testing.T) {
	s := payments.Summarize([]*payments.Payment{
		{Kind: payments.KindPayment, Amount: decimal.RequireFromString("100.10")},
		{Kind: payments.KindPayment, Amount: decimal.RequireFromString("49.90")},
		{Kind: payments.KindCredit, Amount: decimal.RequireFromString("150")},
	})

	assert.Equal(t, 3, s.Count)
	assert.Equal(t, "150", s.Paid.String())
	assert.True(t, s.Net().IsZero())
}

func TestParseMethod(t *testing.T) {
	m, err := payments.ParseMethod(" Transfer ")
	require.NoError(t, err)
	assert.Equal(t, payments.MethodTransfer, m)
}
