package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docflow/internal/core/apperror"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestLineTotal(t *testing.T) {
	tests := []struct {
		name     string
		price    string
		qty      string
		discount string
		want     string
	}{
		{"simple", "100", "3", "0", "300.00"},
		{"with discount", "19.99", "3", "5", "54.97"},
		{"rounds each line", "0.333", "3", "0", "1.00"},
		{"discount larger than amount", "10", "1", "25", "0.00"},
		{"zero quantity", "10", "0", "0", "0.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := LineTotal(d(tt.price), d(tt.qty), d(tt.discount))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.StringFixed(2))
			assert.False(t, got.IsNegative())
		})
	}
}

func TestLineTotal_RejectsNegatives(t *testing.T) {
	_, err := LineTotal(d("-1"), d("1"), decimal.Zero)
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))

	_, err = LineTotal(d("1"), d("-1"), decimal.Zero)
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))

	_, err = LineTotal(d("1"), d("1"), d("-0.01"))
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
}

func TestCompute_QuoteScenario(t *testing.T) {
	res, err := Compute([]LineInput{
		{UnitPrice: d("100"), Quantity: d("3"), Discount: decimal.Zero},
	}, d("50"), nil)
	require.NoError(t, err)

	assert.Equal(t, "300.00", res.LinesTotal.StringFixed(2))
	assert.Equal(t, "250.00", res.Subtotal.StringFixed(2))
	assert.True(t, res.TaxAmount.IsZero())
	assert.Equal(t, "250.00", res.Total.StringFixed(2))
}

func TestCompute_DiscountClampedAtZero(t *testing.T) {
	res, err := Compute([]LineInput{
		{UnitPrice: d("10"), Quantity: d("2")},
	}, d("100"), nil)
	require.NoError(t, err)

	assert.True(t, res.Subtotal.IsZero())
	assert.True(t, res.Total.IsZero())
}

func TestCompute_InvoiceTax(t *testing.T) {
	rate := d("20")
	res, err := Compute([]LineInput{
		{UnitPrice: d("100"), Quantity: d("3")},
		{UnitPrice: d("12.5"), Quantity: d("2"), Discount: d("1")},
	}, d("50"), &rate)
	require.NoError(t, err)

	assert.Equal(t, "324.00", res.LinesTotal.StringFixed(2))
	assert.Equal(t, "274.00", res.Subtotal.StringFixed(2))
	assert.Equal(t, "54.80", res.TaxAmount.StringFixed(2))
	assert.Equal(t, "328.80", res.Total.StringFixed(2))

	require.Len(t, res.Lines, 2)
	assert.Equal(t, "60.00", res.Lines[0].TaxAmount.StringFixed(2))
	assert.Equal(t, "360.00", res.Lines[0].TotalWithTax.StringFixed(2))
	assert.Equal(t, "24.00", res.Lines[1].Total.StringFixed(2))
}

func TestCompute_RoundsAtEachStep(t *testing.T) {
	// 3 lines of 0.335 round to 0.34 each; a single final rounding would give 1.01.
	res, err := Compute([]LineInput{
		{UnitPrice: d("0.335"), Quantity: d("1")},
		{UnitPrice: d("0.335"), Quantity: d("1")},
		{UnitPrice: d("0.335"), Quantity: d("1")},
	}, decimal.Zero, nil)
	require.NoError(t, err)

	assert.Equal(t, "1.02", res.Subtotal.StringFixed(2))
}

func TestCompute_LineErrorCarriesPosition(t *testing.T) {
	_, err := Compute([]LineInput{
		{UnitPrice: d("1"), Quantity: d("1")},
		{UnitPrice: d("-2"), Quantity: d("1")},
	}, decimal.Zero, nil)

	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, 2, appErr.Details["line"])
}

func TestCompute_NegativeGlobalDiscount(t *testing.T) {
	_, err := Compute(nil, d("-1"), nil)
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
}

func TestApplyTax(t *testing.T) {
	tax, total, err := ApplyTax(d("250"), DefaultTaxRate)
	require.NoError(t, err)

	assert.Equal(t, "50.00", tax.StringFixed(2))
	assert.Equal(t, "300.00", total.StringFixed(2))
}
