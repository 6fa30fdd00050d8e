// Package pricing computes line and document totals.
//
// Every monetary result is rounded to two decimals at each aggregation step
// (line, sum of lines, subtotal, tax, total), not only at the end.
package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"docflow/internal/core/apperror"
	"docflow/internal/core/types"
)

// DefaultTaxRate is the tax percentage applied to invoices when none is given.
var DefaultTaxRate = decimal.NewFromInt(20)

// LineInput holds the priced quantity of one line.
type LineInput struct {
	UnitPrice decimal.Decimal
	Quantity  decimal.Decimal
	Discount  decimal.Decimal
}

// LineAmounts is the computed result for one line.
type LineAmounts struct {
	Total        decimal.Decimal
	TaxAmount    decimal.Decimal
	TotalWithTax decimal.Decimal
}

// Result holds document totals.
type Result struct {
	Lines []LineAmounts

	// LinesTotal is round2(sum of line totals) before the global discount.
	LinesTotal decimal.Decimal
	Discount   decimal.Decimal

	// Subtotal is the pre-tax (HT) amount, clamped at zero.
	Subtotal decimal.Decimal

	// TaxRate is nil for documents without tax.
	TaxRate   *decimal.Decimal
	TaxAmount decimal.Decimal

	// Total is Subtotal + TaxAmount.
	Total decimal.Decimal
}

// LineTotal returns round2(unitPrice * quantity - discount), never negative.
func LineTotal(unitPrice, quantity, discount decimal.Decimal) (decimal.Decimal, error) {
	if unitPrice.IsNegative() {
		return decimal.Zero, apperror.NewValidation("unit price cannot be negative").
			WithDetail("unitPrice", unitPrice.String())
	}
	if quantity.IsNegative() {
		return decimal.Zero, apperror.NewValidation("quantity cannot be negative").
			WithDetail("quantity", quantity.String())
	}
	if discount.IsNegative() {
		return decimal.Zero, apperror.NewValidation("line discount cannot be negative").
			WithDetail("discount", discount.String())
	}

	return types.FloorZero(types.Round2(unitPrice.Mul(quantity).Sub(discount))), nil
}

// Compute derives every total of a document from its lines.
// A nil taxRate computes a tax-free document (quotes, delivery notes).
func Compute(lines []LineInput, discount decimal.Decimal, taxRate *decimal.Decimal) (Result, error) {
	if discount.IsNegative() {
		return Result{}, apperror.NewValidation("discount cannot be negative").
			WithDetail("discount", discount.String())
	}
	if taxRate != nil && taxRate.IsNegative() {
		return Result{}, apperror.NewValidation("tax rate cannot be negative").
			WithDetail("taxRate", taxRate.String())
	}

	res := Result{
		Lines:    make([]LineAmounts, len(lines)),
		Discount: types.Round2(discount),
		TaxRate:  taxRate,
	}

	totals := make([]decimal.Decimal, len(lines))
	for i, l := range lines {
		total, err := LineTotal(l.UnitPrice, l.Quantity, l.Discount)
		if err != nil {
			if appErr, ok := apperror.AsAppError(err); ok {
				return Result{}, appErr.WithDetail("line", i+1)
			}
			return Result{}, fmt.Errorf("line %d: %w", i+1, err)
		}
		totals[i] = total
		res.Lines[i] = LineAmounts{Total: total, TotalWithTax: total}
		if taxRate != nil {
			res.Lines[i].TaxAmount = types.Percent(total, *taxRate)
			res.Lines[i].TotalWithTax = types.Round2(total.Add(res.Lines[i].TaxAmount))
		}
	}

	res.LinesTotal = types.Sum(totals...)
	res.Subtotal = types.FloorZero(types.Round2(res.LinesTotal.Sub(res.Discount)))

	if taxRate != nil {
		res.TaxAmount = types.Percent(res.Subtotal, *taxRate)
	}
	res.Total = types.Round2(res.Subtotal.Add(res.TaxAmount))

	return res, nil
}

// ApplyTax re-derives tax and total from an already computed pre-tax subtotal.
// Used when an invoice is built from a delivery note whose HT amount is trusted.
func ApplyTax(subtotal decimal.Decimal, taxRate decimal.Decimal) (tax, total decimal.Decimal, err error) {
	if taxRate.IsNegative() {
		return decimal.Zero, decimal.Zero, apperror.NewValidation("tax rate cannot be negative").
			WithDetail("taxRate", taxRate.String())
	}
	tax = types.Percent(subtotal, taxRate)
	return tax, types.Round2(subtotal.Add(tax)), nil
}
