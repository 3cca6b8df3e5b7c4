package checkout

import (
	"github.com/shopspring/decimal"

	"github.com/vasiliy-maslov/cafe-storefront/internal/cart"
	"github.com/vasiliy-maslov/cafe-storefront/internal/money"
)

// Subtotal is the unrounded sum of unit price times quantity.
func Subtotal(lines []cart.Line) decimal.Decimal {
	sum := money.Zero
	for _, l := range lines {
		sum = sum.Add(l.Total())
	}
	return sum
}

// Discount is percent of subtotal, rounded to whole dong.
func Discount(subtotal, percent decimal.Decimal) decimal.Decimal {
	return money.Round(money.Percent(subtotal, percent))
}

// Total rounds both operands before subtracting.
func Total(subtotal, discount decimal.Decimal) decimal.Decimal {
	return money.Round(subtotal).Sub(money.Round(discount))
}

type Summary struct {
	ItemCount       int             `json:"item_count"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	Discount        decimal.Decimal `json:"discount"`
	Total           decimal.Decimal `json:"total"`
}

func Summarize(lines []cart.Line, promo PromoState) Summary {
	subtotal := Subtotal(lines)
	discount := Discount(subtotal, promo.DiscountPercent)

	count := 0
	for _, l := range lines {
		count += l.Quantity
	}

	return Summary{
		ItemCount:       count,
		Subtotal:        money.Round(subtotal),
		DiscountPercent: promo.DiscountPercent,
		Discount:        discount,
		Total:           Total(subtotal, discount),
	}
}
