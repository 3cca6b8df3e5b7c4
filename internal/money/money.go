// Package money holds the currency helpers shared by pricing, cart and checkout.
// Amounts are Vietnamese dong and carry no minor unit, so "rounding" always
// means rounding to a whole dong.
package money

import (
	"strings"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Zero is the additive identity, spelled out for readability at call sites.
var Zero = decimal.Zero

// Round rounds to the nearest whole currency unit, halves away from zero.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(0)
}

// Percent returns amount * percent / 100 without rounding.
func Percent(amount, percent decimal.Decimal) decimal.Decimal {
	return amount.Mul(percent).Div(hundred)
}

// Sum adds every amount.
func Sum(amounts ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}

// Format renders an amount the way the storefront shows it: dot thousands
// separators and a trailing dong sign, e.g. "117.000 ₫".
func Format(d decimal.Decimal) string {
	rounded := Round(d)
	neg := rounded.IsNegative()
	digits := rounded.Abs().String()

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	b.WriteString(" ₫")
	return b.String()
}
