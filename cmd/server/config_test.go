package main

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docflow/internal/core/numerator"
	"docflow/internal/domain/conversion"
	"docflow/internal/domain/documents"
	"docflow/internal/domain/documents/invoice"
	"docflow/internal/testutil/memstore"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/docflow")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, int32(25), cfg.DBMaxConns)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Empty(t, cfg.RedisAddr)

	rate, err := cfg.TaxRate()
	require.NoError(t, err)
	assert.True(t, rate.Equal(decimal.NewFromInt(20)))

	n := cfg.Numbering()
	assert.Equal(t, "quote", n[documents.FamilyQuote].Family)
	assert.Equal(t, numerator.StrategyLatest, n[documents.FamilyInvoice].Strategy)
}

func TestLoadConfig_RequiresDatabase(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestLoadConfig_SharedQuoteSequence(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/docflow")
	t.Setenv("QUOTE_SEQUENCE_FAMILY", "delivery_note")
	t.Setenv("NUMBERING_STRATEGY", "counter")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	n := cfg.Numbering()
	assert.Equal(t, "delivery_note", n[documents.FamilyQuote].Family)
	assert.Equal(t, "QUO", n[documents.FamilyQuote].Prefix)
	assert.Equal(t, numerator.StrategyCounter, n[documents.FamilyDeliveryNote].Strategy)
}

func TestLoadConfig_RejectsBadValues(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/docflow")

	t.Setenv("DEFAULT_TAX_RATE", "abc")
	_, err := LoadConfig()
	assert.Error(t, err)

	t.Setenv("DEFAULT_TAX_RATE", "150")
	_, err = LoadConfig()
	assert.Error(t, err)

	t.Setenv("DEFAULT_TAX_RATE", "20")
	t.Setenv("QUOTE_SEQUENCE_FAMILY", "order")
	_, err = LoadConfig()
	assert.Error(t, err)

	t.Setenv("QUOTE_SEQUENCE_FAMILY", "quote")
	t.Setenv("NUMBERING_STRATEGY", "countr")
	_, err = LoadConfig()
	assert.ErrorContains(t, err, "NUMBERING_STRATEGY")
}

func TestLoadConfig_ZeroTaxRateReachesInvoices(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/docflow")
	t.Setenv("DEFAULT_TAX_RATE", "0")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	rate, err := cfg.TaxRate()
	require.NoError(t, err)

	env := memstore.NewEnvWithTaxRate(rate)
	ctx := context.Background()
	p := env.Store.AddProduct("Widget", "100", 5)

	assert.True(t, env.Invoices.DefaultTaxRate().IsZero())

	inv, err := env.Invoices.Create(ctx, invoice.CreateInput{CreateInput: env.Input("0", memstore.Line(p, 2))})
	require.NoError(t, err)
	assert.True(t, inv.TaxAmount.IsZero())
	assert.Equal(t, "200", inv.Total.String())

	dn := env.DeliveryNote(t, memstore.Line(p, 1))
	fromNote, err := env.Conversion.CreateInvoiceFromDeliveryNote(ctx, dn.ID, conversion.InvoiceOptions{})
	require.NoError(t, err)
	assert.True(t, fromNote.TaxAmount.IsZero())
	assert.Equal(t, "100", fromNote.Total.String())
}
