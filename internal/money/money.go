// Package money holds two-decimal helpers and the money classifier that
// groups raw sale and credit records by payment channel.
package money

import (
	"github.com/shopspring/decimal"
)

// Epsilon is the tolerance under which two amounts are considered equal.
var Epsilon = decimal.New(1, -2)

// Round2 rounds half away from zero to two fractional digits.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Hundred is the percentage denominator.
var Hundred = decimal.NewFromInt(100)

// Readable returns the amount when it is present and non-negative.
func Readable(n decimal.NullDecimal) (decimal.Decimal, bool) {
	if !n.Valid || n.Decimal.IsNegative() {
		return decimal.Zero, false
	}
	return n.Decimal, true
}

// Or returns *p, or zero when p is nil.
func Or(p *decimal.Decimal) decimal.Decimal {
	if p == nil {
		return decimal.Zero
	}
	return *p
}
