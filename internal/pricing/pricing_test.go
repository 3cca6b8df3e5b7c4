package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/vasiliy-maslov/cafe-storefront/internal/catalog"
	"github.com/vasiliy-maslov/cafe-storefront/internal/selection"
)

func d(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func options() catalog.Options {
	return catalog.Options{
		HasSize: true,
		Sizes: catalog.Sizes{
			{Code: "S", PriceModifier: d(-5000)},
			{Code: "M", PriceModifier: d(0)},
			{Code: "L", PriceModifier: d(10000)},
		},
		MilkOptions: catalog.PricedOptions{{Code: "oat", Price: d(10000)}, {Code: "condensed", Price: d(5000)}},
		Toppings:    catalog.PricedOptions{{Code: "pearl", Price: d(8000)}, {Code: "jelly", Price: decimal.RequireFromString("7000.5")}},
		Upsells:     catalog.PricedOptions{{Code: "extra_shot", Price: d(15000)}},
	}
}

func str(s string) *string { return &s }

func TestComputePrice(t *testing.T) {
	base := d(45000)

	tests := []struct {
		name string
		sel  selection.Selection
		want decimal.Decimal
	}{
		{"base only", selection.Selection{}, d(45000)},
		{"nil size adds nothing", selection.Selection{Milks: []string{"oat"}}, d(55000)},
		{"negative size modifier", selection.Selection{Size: str("S")}, d(40000)},
		{
			"everything",
			selection.Selection{Size: str("L"), Milks: []string{"oat", "condensed"}, Toppings: []string{"pearl"}, Upsells: []string{"extra_shot"}},
			d(45000 + 10000 + 10000 + 5000 + 8000 + 15000),
		},
		{"unknown codes add nothing", selection.Selection{Size: str("XL"), Toppings: []string{"cheese"}}, d(45000)},
		{"fractions are kept", selection.Selection{Toppings: []string{"jelly"}}, decimal.RequireFromString("52000.5")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputePrice(base, tt.sel, options())
			assert.True(t, tt.want.Equal(got), "want %s, got %s", tt.want, got)
		})
	}
}

func TestComputePrice_OrderIndependent(t *testing.T) {
	opts := options()
	a := selection.Selection{Toppings: []string{"pearl", "jelly"}, Milks: []string{"oat", "condensed"}}
	b := selection.Selection{Toppings: []string{"jelly", "pearl"}, Milks: []string{"condensed", "oat"}}

	assert.True(t, ComputePrice(d(30000), a, opts).Equal(ComputePrice(d(30000), b, opts)))
}

func TestLinePreview(t *testing.T) {
	sel := selection.Selection{Size: str("L"), Quantity: 3}

	p := LinePreview(d(45000), sel, options())
	assert.True(t, p.UnitPrice.Equal(d(55000)))
	assert.Equal(t, 3, p.Quantity)
	assert.True(t, p.LineTotal.Equal(d(165000)))

	p = LinePreview(d(45000), selection.Selection{}, options())
	assert.Equal(t, 1, p.Quantity)
	assert.True(t, p.LineTotal.Equal(d(45000)))
}
