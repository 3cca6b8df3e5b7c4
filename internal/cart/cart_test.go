package cart

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vasiliy-maslov/cafe-storefront/internal/catalog"
	"github.com/vasiliy-maslov/cafe-storefront/internal/selection"
)

func strPtr(s string) *string { return &s }
func intPtr(v int) *int       { return &v }

func line(id string, price int64, qty int, milks ...string) Line {
	return Line{
		ProductID: id,
		Name:      id,
		Size:      strPtr("M"),
		Sugar:     intPtr(50),
		Milks:     milks,
		UnitPrice: decimal.NewFromInt(price),
		Quantity:  qty,
	}
}

func TestNewLine(t *testing.T) {
	product := catalog.Product{ID: "cf_latte", Name: "Latte", Category: catalog.CategoryCoffee, BasePrice: decimal.NewFromInt(45000)}
	opts := catalog.Options{
		Sizes:       catalog.Sizes{{Code: "L", PriceModifier: decimal.NewFromInt(10000)}},
		MilkOptions: catalog.PricedOptions{{Code: "oat", Price: decimal.NewFromInt(10000)}},
		Toppings:    catalog.PricedOptions{{Code: "pearl", Price: decimal.NewFromInt(8000)}, {Code: "jelly", Price: decimal.NewFromInt(7000)}},
	}
	sel := selection.Selection{
		ProductID: "cf_latte",
		Size:      strPtr("L"),
		Sugar:     intPtr(25),
		Milks:     []string{"oat"},
		Toppings:  []string{"pearl", "jelly"},
		Quantity:  2,
	}

	l := NewLine(product, sel, opts)

	want := Line{
		ProductID: "cf_latte",
		Name:      "Latte",
		Category:  catalog.CategoryCoffee,
		Size:      strPtr("L"),
		Sugar:     intPtr(25),
		Milks:     []string{"oat"},
		Toppings:  []string{"jelly", "pearl"},
		Upsells:   []string{},
		UnitPrice: decimal.NewFromInt(80000),
		Quantity:  2,
	}
	if diff := cmp.Diff(want, l, cmp.Comparer(func(a, b decimal.Decimal) bool { return a.Equal(b) })); diff != "" {
		t.Errorf("NewLine mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []string{"pearl", "jelly"}, sel.Toppings, "selection must not be reordered")
}

func TestLine_KeyIgnoresSetOrder(t *testing.T) {
	a := line("cf_latte", 50000, 1, "oat", "condensed")
	b := line("cf_latte", 50000, 1, "condensed", "oat")
	assert.Equal(t, a.Key(), b.Key())

	c := line("cf_latte", 50000, 1, "oat")
	c.Sugar = intPtr(75)
	assert.NotEqual(t, a.Key(), c.Key())

	sizeless := line("fd_croissant", 30000, 1)
	sizeless.Size, sizeless.Sugar = nil, nil
	other := sizeless
	other.Size = strPtr("")
	assert.Equal(t, sizeless.Key(), other.Key())
}

func TestLine_KeySeparatorsInCodes(t *testing.T) {
	tests := []struct {
		name string
		a, b Line
	}{
		{
			name: "comma inside a milk code",
			a:    line("cf_latte", 50000, 1, "oat,soy"),
			b:    line("cf_latte", 50000, 1, "oat", "soy"),
		},
		{
			name: "pipe moves a code between groups",
			a:    line("cf_latte", 50000, 1, "oat|pearl"),
			b: func() Line {
				l := line("cf_latte", 50000, 1, "oat")
				l.Toppings = []string{"pearl|"}
				return l
			}(),
		},
		{
			name: "pipe inside the product id",
			a: func() Line {
				l := line("cf|M", 50000, 1)
				l.Size = strPtr("")
				return l
			}(),
			b: func() Line {
				l := line("cf", 50000, 1)
				l.Size = strPtr("M|")
				return l
			}(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotEqual(t, tt.a.Key(), tt.b.Key())

			c := New(tt.a)
			require.NoError(t, c.AddLine(tt.b))
			assert.Equal(t, 2, c.Len())
		})
	}
}

func TestCart_AddLine_Merges(t *testing.T) {
	c := New()

	require.NoError(t, c.AddLine(line("cf_latte", 50000, 1, "oat", "condensed")))
	require.NoError(t, c.AddLine(line("cf_latte", 50000, 1, "condensed", "oat")))

	require.Equal(t, 1, c.Len())
	assert.Equal(t, 2, c.Lines()[0].Quantity)
}

func TestCart_AddLine_AddsFullQuantity(t *testing.T) {
	c := New(line("cf_latte", 50000, 1))

	require.NoError(t, c.AddLine(line("cf_latte", 50000, 3)))
	assert.Equal(t, 4, c.Lines()[0].Quantity)

	require.NoError(t, c.AddLine(line("tea_peach", 39000, 1)))
	assert.Equal(t, 2, c.Len())
	assert.Equal(t, 5, c.ItemCount())

	assert.ErrorIs(t, c.AddLine(line("tea_peach", 39000, 0)), ErrInvalidQuantity)
}

func TestCart_ChangeQuantity(t *testing.T) {
	tests := []struct {
		name    string
		delta   int
		wantLen int
		wantQty int
	}{
		{"increment", 1, 2, 2},
		{"decrement to zero removes", -1, 1, 0},
		{"decrement below zero removes", -5, 1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(line("cf_latte", 50000, 1), line("tea_peach", 39000, 1))

			require.NoError(t, c.ChangeQuantity(0, tt.delta))
			assert.Equal(t, tt.wantLen, c.Len())
			if tt.wantQty > 0 {
				assert.Equal(t, tt.wantQty, c.Lines()[0].Quantity)
			} else {
				assert.Equal(t, "tea_peach", c.Lines()[0].ProductID)
			}
		})
	}
}

func TestCart_OutOfRange(t *testing.T) {
	c := New(line("cf_latte", 50000, 1))

	assert.ErrorIs(t, c.ChangeQuantity(1, 1), ErrLineNotFound)
	assert.ErrorIs(t, c.ChangeQuantity(-1, 1), ErrLineNotFound)
	assert.ErrorIs(t, c.RemoveLine(3), ErrLineNotFound)
	assert.Equal(t, 1, c.Len())
}

func TestCart_RemoveAndClear(t *testing.T) {
	c := New(line("cf_latte", 50000, 4), line("tea_peach", 39000, 1))

	require.NoError(t, c.RemoveLine(0))
	require.Equal(t, 1, c.Len())
	assert.Equal(t, "tea_peach", c.Lines()[0].ProductID)

	c.Clear()
	assert.True(t, c.IsEmpty())
	assert.Equal(t, 0, c.ItemCount())
}

func TestCart_LinesIsCopy(t *testing.T) {
	c := New(line("cf_latte", 50000, 1))
	lines := c.Lines()
	lines[0].Quantity = 99
	assert.Equal(t, 1, c.Lines()[0].Quantity)
}

func TestCart_JSON(t *testing.T) {
	c := New(line("cf_latte", 50000, 2, "oat"))

	data, err := json.Marshal(c)
	require.NoError(t, err)

	var restored Cart
	require.NoError(t, json.Unmarshal(data, &restored))
	require.Equal(t, 1, restored.Len())
	assert.Equal(t, c.Lines()[0].Key(), restored.Lines()[0].Key())
	assert.True(t, restored.Lines()[0].UnitPrice.Equal(decimal.NewFromInt(50000)))

	empty, err := json.Marshal(&Cart{})
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(empty))
}
