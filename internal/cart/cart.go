// Package cart is the per-session ordered list of priced, configured products.
package cart

import (
	"encoding/json"
	"errors"
	"slices"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/vasiliy-maslov/cafe-storefront/internal/catalog"
	"github.com/vasiliy-maslov/cafe-storefront/internal/pricing"
	"github.com/vasiliy-maslov/cafe-storefront/internal/selection"
)

var (
	ErrLineNotFound    = errors.New("cart: line not found")
	ErrInvalidQuantity = errors.New("cart: quantity must be at least 1")
)

type Line struct {
	ProductID string           `json:"product_id"`
	Name      string           `json:"name"`
	Category  catalog.Category `json:"category"`
	Size      *string          `json:"size"`
	Sugar     *int             `json:"sugar"`
	Milks     []string         `json:"milks"`
	Toppings  []string         `json:"toppings"`
	Upsells   []string         `json:"upsells"`
	UnitPrice decimal.Decimal  `json:"unit_price"`
	Quantity  int              `json:"quantity"`
}

// NewLine freezes the selection into a cart line priced at confirm time.
func NewLine(product catalog.Product, sel selection.Selection, opts catalog.Options) Line {
	return Line{
		ProductID: product.ID,
		Name:      product.Name,
		Category:  product.Category,
		Size:      sel.Size,
		Sugar:     sel.Sugar,
		Milks:     sorted(sel.Milks),
		Toppings:  sorted(sel.Toppings),
		Upsells:   sorted(sel.Upsells),
		UnitPrice: pricing.ComputePrice(product.BasePrice, sel, opts),
		Quantity:  max(sel.Quantity, 1),
	}
}

// Key identifies a configuration. Lines with equal keys merge. Every code is
// quoted, so separators inside codes cannot make two configurations collide.
func (l Line) Key() string {
	var b strings.Builder
	b.WriteString(strconv.Quote(l.ProductID))
	b.WriteByte('|')
	var size string
	if l.Size != nil {
		size = *l.Size
	}
	b.WriteString(strconv.Quote(size))
	b.WriteByte('|')
	if l.Sugar != nil {
		b.WriteString(strconv.Itoa(*l.Sugar))
	} else {
		b.WriteByte('-')
	}
	for _, set := range [][]string{l.Milks, l.Toppings, l.Upsells} {
		b.WriteByte('|')
		for i, code := range sorted(set) {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(strconv.Quote(code))
		}
	}
	return b.String()
}

func (l Line) Total() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Cart keeps lines in insertion order. The zero value is an empty cart.
type Cart struct {
	lines []Line
}

func New(lines ...Line) *Cart {
	c := &Cart{}
	for _, l := range lines {
		_ = c.AddLine(l)
	}
	return c
}

// AddLine merges candidate into a line with the same key, adding its full
// quantity, or appends it.
func (c *Cart) AddLine(candidate Line) error {
	if candidate.Quantity < 1 {
		return ErrInvalidQuantity
	}
	candidate.Milks = sorted(candidate.Milks)
	candidate.Toppings = sorted(candidate.Toppings)
	candidate.Upsells = sorted(candidate.Upsells)

	key := candidate.Key()
	for i := range c.lines {
		if c.lines[i].Key() == key {
			c.lines[i].Quantity += candidate.Quantity
			return nil
		}
	}
	c.lines = append(c.lines, candidate)
	return nil
}

// ChangeQuantity adds delta to a line, removing it when the result drops to 0 or below.
func (c *Cart) ChangeQuantity(index, delta int) error {
	if index < 0 || index >= len(c.lines) {
		return ErrLineNotFound
	}
	q := c.lines[index].Quantity + delta
	if q <= 0 {
		c.lines = slices.Delete(c.lines, index, index+1)
		return nil
	}
	c.lines[index].Quantity = q
	return nil
}

func (c *Cart) RemoveLine(index int) error {
	if index < 0 || index >= len(c.lines) {
		return ErrLineNotFound
	}
	c.lines = slices.Delete(c.lines, index, index+1)
	return nil
}

func (c *Cart) Clear() {
	c.lines = nil
}

// Lines returns a copy of the lines.
func (c *Cart) Lines() []Line {
	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

func (c *Cart) Len() int {
	return len(c.lines)
}

func (c *Cart) IsEmpty() bool {
	return len(c.lines) == 0
}

// ItemCount is the sum of quantities.
func (c *Cart) ItemCount() int {
	n := 0
	for _, l := range c.lines {
		n += l.Quantity
	}
	return n
}

func (c *Cart) MarshalJSON() ([]byte, error) {
	lines := c.lines
	if lines == nil {
		lines = []Line{}
	}
	return json.Marshal(lines)
}

func (c *Cart) UnmarshalJSON(data []byte) error {
	var lines []Line
	if err := json.Unmarshal(data, &lines); err != nil {
		return err
	}
	c.lines = nil
	for _, l := range lines {
		if l.Quantity < 1 {
			continue
		}
		c.lines = append(c.lines, l)
	}
	return nil
}

func sorted(set []string) []string {
	out := slices.Clone(set)
	if out == nil {
		out = []string{}
	}
	slices.Sort(out)
	return out
}
