// Package types provides common type aliases and utilities.
package types

import (
	"github.com/shopspring/decimal"
)

// Money represents a monetary value with full precision.
// Uses decimal.Decimal to avoid floating-point errors.
type Money = decimal.Decimal

// MoneyScale is the number of fractional digits kept at every aggregation step.
const MoneyScale int32 = 2

// MustMoney creates a Money value from a string, panics on error.
// Use only for constants and tests.
func MustMoney(s string) Money {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Zero returns zero Money value.
func Zero() Money {
	return decimal.Zero
}

// Round2 rounds half away from zero to two decimals.
func Round2(m Money) Money {
	return m.Round(MoneyScale)
}

// FloorZero clamps negative values to zero.
func FloorZero(m Money) Money {
	if m.IsNegative() {
		return decimal.Zero
	}
	return m
}

// Sum adds all values and rounds once at the end of the step.
func Sum(values ...Money) Money {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return Round2(total)
}

// Percent returns round2(m * rate / 100).
func Percent(m Money, rate Money) Money {
	return Round2(m.Mul(rate).Div(decimal.NewFromInt(100)))
}
