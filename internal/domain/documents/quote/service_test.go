package quote_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docflow/internal/core/apperror"
	"docflow/internal/core/id"
	"docflow/internal/domain/conversion"
	"docflow/internal/domain/documents"
	"docflow/internal/domain/documents/quote"
	"docflow/internal/testutil/memstore"
)

func TestCreate(t *testing.T) {
	env := memstore.NewEnv()
	p := env.Store.AddProduct("Widget", "100", 0)

	q, err := env.Quotes.Create(context.Background(), quote.CreateInput{
		CreateInput: env.Input("50", memstore.Line(p, 3)),
	})
	require.NoError(t, err)

	assert.Equal(t, "QUO-0001", q.Code)
	assert.Equal(t, documents.StatusDraft, q.Status)
	assert.Equal(t, "250", q.Total.String())
	assert.Nil(t, q.TaxRate)
	assert.True(t, q.TaxAmount.IsZero())
	assert.False(t, q.StockReserved)
	assert.Empty(t, env.Store.Movements(), "quotes never touch stock")
}

func TestCreate_Validation(t *testing.T) {
	env := memstore.NewEnv()
	ctx := context.Background()
	p := env.Store.AddProduct("Widget", "100", 0)

	_, err := env.Quotes.Create(ctx, quote.CreateInput{CreateInput: env.Input("0")})
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation), "at least one line")

	in := env.Input("0", memstore.Line(p, 1))
	in.ClientID = id.New()
	_, err = env.Quotes.Create(ctx, quote.CreateInput{CreateInput: in})
	assert.True(t, apperror.IsNotFound(err))

	_, err = env.Quotes.Create(ctx, quote.CreateInput{CreateInput: env.Input("0", documents.LineInput{
		ProductID: p.ID,
		Quantity:  0,
	})})
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))

	assert.Zero(t, env.Store.DocumentCount(documents.FamilyQuote))
}

func TestChangeStatus(t *testing.T) {
	env := memstore.NewEnv()
	ctx := context.Background()
	p := env.Store.AddProduct("Widget", "100", 0)
	q, err := env.Quotes.Create(ctx, quote.CreateInput{CreateInput: env.Input("0", memstore.Line(p, 1))})
	require.NoError(t, err)

	q, err = env.Quotes.ChangeStatus(ctx, q.ID, documents.StatusSent)
	require.NoError(t, err)
	assert.Equal(t, documents.StatusSent, q.Status)

	_, err = env.Quotes.ChangeStatus(ctx, q.ID, documents.StatusDraft)
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidTransition))

	_, err = env.Quotes.ChangeStatus(ctx, q.ID, documents.StatusConverted)
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidTransition))

	_, err = env.Quotes.ChangeStatus(ctx, q.ID, documents.StatusPaid)
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation), "paid is not a quote status")

	q, err = env.Quotes.ChangeStatus(ctx, q.ID, documents.StatusAccepted)
	require.NoError(t, err)
	assert.NoError(t, quote.IsConvertible(q))

	events, err := env.Quotes.History(ctx, q.ID)
	require.NoError(t, err)
	assert.Len(t, events, 3)
}

func TestUpdate(t *testing.T) {
	env := memstore.NewEnv()
	ctx := context.Background()
	a := env.Store.AddProduct("A", "10", 0)
	b := env.Store.AddProduct("B", "5", 0)
	q, err := env.Quotes.Create(ctx, quote.CreateInput{CreateInput: env.Input("0", memstore.Line(a, 1))})
	require.NoError(t, err)

	q, err = env.Quotes.Update(ctx, q.ID, documents.UpdateInput{
		Lines: []documents.LineInput{memstore.Line(a, 2), memstore.Line(b, 4)},
	})
	require.NoError(t, err)
	assert.Equal(t, "40", q.Total.String())
	require.Len(t, q.Lines, 2)
	assert.Equal(t, 2, q.Lines[1].LineNo)

	for _, status := range []documents.Status{documents.StatusSent, documents.StatusAccepted} {
		_, err = env.Quotes.ChangeStatus(ctx, q.ID, status)
		require.NoError(t, err)

		notes := "edited"
		_, err = env.Quotes.Update(ctx, q.ID, documents.UpdateInput{Notes: &notes})
		assert.True(t, apperror.HasCode(err, apperror.CodeInvalidTransition), status)
	}
}

func TestDelete(t *testing.T) {
	env := memstore.NewEnv()
	ctx := context.Background()
	p := env.Store.AddProduct("Widget", "100", 5)

	draft, err := env.Quotes.Create(ctx, quote.CreateInput{CreateInput: env.Input("0", memstore.Line(p, 1))})
	require.NoError(t, err)
	require.NoError(t, env.Quotes.Delete(ctx, draft.ID))
	_, err = env.Quotes.GetByID(ctx, draft.ID)
	assert.True(t, apperror.IsNotFound(err))

	accepted := env.AcceptedQuote(t, "0", memstore.Line(p, 1))
	_, err = env.Conversion.ConvertQuoteToDeliveryNote(ctx, accepted.ID, conversion.DeliveryOptions{})
	require.NoError(t, err)

	err = env.Quotes.Delete(ctx, accepted.ID)
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidTransition))
}

func TestIsConvertible(t *testing.T) {
	q := documents.New(documents.FamilyQuote, id.New(), time.Time{})

	assert.True(t, apperror.HasCode(quote.IsConvertible(q), apperror.CodeInvalidConversion))

	q.SetStatus(documents.StatusAccepted)
	assert.NoError(t, quote.IsConvertible(q))

	q.Converted = true
	assert.True(t, apperror.HasCode(quote.IsConvertible(q), apperror.CodeDuplicateConversion))
}
