package domain

import (
	"errors"

	"github.com/shopspring/decimal"
)

// ErrDivisionUndefined is returned when a return percentage cannot be
// computed because the initial price is zero. Such an asset's return stays
// undefined for every snapshot of its portfolio.
var ErrDivisionUndefined = errors.New("return undefined: initial price is zero")

var hundred = decimal.NewFromInt(100)

// ReturnPct computes (current - initial) / initial * 100.
func ReturnPct(initial, current decimal.Decimal) (decimal.Decimal, error) {
	if initial.IsZero() {
		return decimal.Decimal{}, ErrDivisionUndefined
	}
	return current.Sub(initial).Div(initial).Mul(hundred), nil
}

// Mean returns the arithmetic mean of the given values, or nil for an
// empty input.
func Mean(values []decimal.Decimal) *decimal.Decimal {
	if len(values) == 0 {
		return nil
	}
	sum := decimal.Zero
	for _, v := range values {
		sum = sum.Add(v)
	}
	mean := sum.Div(decimal.NewFromInt(int64(len(values))))
	return &mean
}

// EvenAllocation splits a portfolio size evenly across n assets.
func EvenAllocation(size decimal.Decimal, n int) decimal.Decimal {
	if n == 0 {
		return decimal.Zero
	}
	return size.Div(decimal.NewFromInt(int64(n)))
}
