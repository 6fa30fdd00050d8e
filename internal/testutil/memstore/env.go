package memstore

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"docflow/internal/core/id"
	"docflow/internal/domain/catalogs/product"
	"docflow/internal/domain/conversion"
	"docflow/internal/domain/documents"
	"docflow/internal/domain/documents/delivery_note"
	"docflow/internal/domain/documents/invoice"
	"docflow/internal/domain/documents/quote"
	"docflow/internal/domain/payments"
	"docflow/internal/domain/pricing"
	"docflow/internal/domain/registers/stock"
)

// Env wires every domain service over one Store.
type Env struct {
	Store *Store

	Stock      *stock.Service
	Ledger     *payments.Ledger
	Payments   *payments.Service
	Products   *product.Service
	Quotes     *quote.Service
	Notes      *delivery_note.Service
	Invoices   *invoice.Service
	Conversion *conversion.Service

	ClientID id.ID
}

// NewEnv creates services backed by a fresh store with one known client.
// Invoices default to pricing.DefaultTaxRate.
func NewEnv() *Env {
	return NewEnvWithTaxRate(pricing.DefaultTaxRate)
}

// NewEnvWithTaxRate is NewEnv with another default invoice tax rate.
func NewEnvWithTaxRate(taxRate decimal.Decimal) *Env {
	s := New()
	deps := s.Deps()

	stockSvc := stock.NewService(s.Stock())
	ledger := payments.NewLedger(s.Payments())

	return &Env{
		Store:      s,
		Stock:      stockSvc,
		Ledger:     ledger,
		Payments:   payments.NewService(ledger, s.Documents(), s.History(), s.TxManager()),
		Products:   product.NewService(s.Products(), stockSvc, s.TxManager()),
		Quotes:     quote.NewService(deps),
		Notes:      delivery_note.NewService(deps, stockSvc, ledger),
		Invoices:   invoice.NewService(deps, stockSvc, ledger, taxRate),
		Conversion: conversion.NewService(deps, stockSvc, ledger, taxRate),
		ClientID:   s.AddClient(),
	}
}

// Line builds a line input for a product at its catalog price.
func Line(p *product.Product, qty int64) documents.LineInput {
	return documents.LineInput{ProductID: p.ID, Quantity: qty}
}

// Input builds the shared creation input for the env's client.
func (e *Env) Input(discount string, lines ...documents.LineInput) documents.CreateInput {
	return documents.CreateInput{
		ClientID: e.ClientID,
		Discount: decimal.RequireFromString(discount),
		Lines:    lines,
	}
}

// DeliveryNote creates a delivery note and fails the test on error.
func (e *Env) DeliveryNote(t *testing.T, lines ...documents.LineInput) *documents.Document {
	t.Helper()
	doc, err := e.Notes.Create(context.Background(), delivery_note.CreateInput{CreateInput: e.Input("0", lines...)})
	require.NoError(t, err)
	return doc
}

// AcceptedQuote creates a quote and moves it to accepted.
func (e *Env) AcceptedQuote(t *testing.T, discount string, lines ...documents.LineInput) *documents.Document {
	t.Helper()
	ctx := context.Background()
	q, err := e.Quotes.Create(ctx, quote.CreateInput{CreateInput: e.Input(discount, lines...)})
	require.NoError(t, err)
	q, err = e.Quotes.ChangeStatus(ctx, q.ID, documents.StatusAccepted)
	require.NoError(t, err)
	return q
}

// Pay records a payment by transfer.
func (e *Env) Pay(ctx context.Context, doc *documents.Document, amount string) (*documents.Document, error) {
	_, updated, err := e.Payments.AddPayment(ctx, doc.Family, doc.ID, payments.Input{
		Amount: decimal.RequireFromString(amount),
		Method: string(payments.MethodTransfer),
	})
	return updated, err
}
