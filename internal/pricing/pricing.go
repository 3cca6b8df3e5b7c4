// Package pricing composes the unit price of a customized product.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/vasiliy-maslov/cafe-storefront/internal/catalog"
	"github.com/vasiliy-maslov/cafe-storefront/internal/selection"
)

// ComputePrice is base + size modifier + every selected milk, topping and
// upsell. Codes missing from opts add nothing. The result is not rounded.
func ComputePrice(base decimal.Decimal, sel selection.Selection, opts catalog.Options) decimal.Decimal {
	price := base

	if sel.Size != nil {
		if size, ok := opts.Size(*sel.Size); ok {
			price = price.Add(size.PriceModifier)
		}
	}
	for _, code := range sel.Milks {
		if o, ok := opts.Milk(code); ok {
			price = price.Add(o.Price)
		}
	}
	for _, code := range sel.Toppings {
		if o, ok := opts.Topping(code); ok {
			price = price.Add(o.Price)
		}
	}
	for _, code := range sel.Upsells {
		if o, ok := opts.Upsell(code); ok {
			price = price.Add(o.Price)
		}
	}
	return price
}

type Preview struct {
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	LineTotal decimal.Decimal `json:"line_total"`
}

// LinePreview is the live price shown while the customization is open.
func LinePreview(base decimal.Decimal, sel selection.Selection, opts catalog.Options) Preview {
	unit := ComputePrice(base, sel, opts)
	qty := max(sel.Quantity, 1)
	return Preview{
		UnitPrice: unit,
		Quantity:  qty,
		LineTotal: unit.Mul(decimal.NewFromInt(int64(qty))),
	}
}
