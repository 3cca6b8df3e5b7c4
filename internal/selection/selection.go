// Package selection holds the in-progress customization of a single product
// before it is added to the cart. Every transition returns a new value.
package selection

import (
	"errors"
	"fmt"
	"slices"

	"github.com/vasiliy-maslov/cafe-storefront/internal/catalog"
)

type Field string

const (
	FieldToppings Field = "toppings"
	FieldUpsells  Field = "upsells"
)

var (
	ErrUnknownField = errors.New("selection: unknown field")
	ErrEmptyProduct = errors.New("selection: product id is empty")
)

type Selection struct {
	ProductID string   `json:"product_id"`
	Size      *string  `json:"size"`
	Sugar     *int     `json:"sugar"`
	Milks     []string `json:"milks"`
	Toppings  []string `json:"toppings"`
	Upsells   []string `json:"upsells"`
	Quantity  int      `json:"quantity"`
}

// Init builds the starting selection for a product: the zero-modifier size
// (else the first one), the product's default sugar, no extras, quantity 1.
func Init(product catalog.Product, opts catalog.Options) (Selection, error) {
	if product.ID == "" {
		return Selection{}, ErrEmptyProduct
	}

	sel := Selection{
		ProductID: product.ID,
		Size:      opts.DefaultSize(),
		Milks:     []string{},
		Toppings:  []string{},
		Upsells:   []string{},
		Quantity:  1,
	}
	if opts.HasSugar {
		sugar := 0
		if product.DefaultSugar != nil && catalog.ValidSugar(*product.DefaultSugar) {
			sugar = *product.DefaultSugar
		}
		sel.Sugar = &sugar
	}
	return sel, nil
}

func (s Selection) clone() Selection {
	out := s
	out.Milks = slices.Clone(nonNil(s.Milks))
	out.Toppings = slices.Clone(nonNil(s.Toppings))
	out.Upsells = slices.Clone(nonNil(s.Upsells))
	if s.Size != nil {
		size := *s.Size
		out.Size = &size
	}
	if s.Sugar != nil {
		sugar := *s.Sugar
		out.Sugar = &sugar
	}
	return out
}

// ToggleMilk flips one milk. At most one regular milk is kept: choosing a new
// one replaces the old. Condensed milk only rides along with a regular milk;
// selecting it alone is ignored and it is dropped when the last regular milk
// goes away.
func (s Selection) ToggleMilk(code string, isCondensed bool) Selection {
	out := s.clone()
	selected := slices.Contains(out.Milks, code)

	if isCondensed {
		switch {
		case selected:
			out.Milks = remove(out.Milks, code)
		case out.regularMilk() != "":
			out.Milks = append(out.Milks, code)
		}
		return out
	}

	if selected {
		out.Milks = remove(out.Milks, code)
		if out.regularMilk() == "" {
			out.Milks = []string{}
		}
		return out
	}

	if prev := out.regularMilk(); prev != "" {
		out.Milks = remove(out.Milks, prev)
	}
	out.Milks = append(out.Milks, code)
	return out
}

func (s Selection) regularMilk() string {
	for _, m := range s.Milks {
		if !catalog.IsCondensedMilk(m) {
			return m
		}
	}
	return ""
}

func (s Selection) ToggleSet(field Field, code string) (Selection, error) {
	out := s.clone()
	var set *[]string
	switch field {
	case FieldToppings:
		set = &out.Toppings
	case FieldUpsells:
		set = &out.Upsells
	default:
		return s, fmt.Errorf("%w: %q", ErrUnknownField, field)
	}

	if slices.Contains(*set, code) {
		*set = remove(*set, code)
	} else {
		*set = append(*set, code)
	}
	return out, nil
}

func (s Selection) SetSize(code string) Selection {
	out := s.clone()
	out.Size = &code
	return out
}

func (s Selection) SetSugar(level int) Selection {
	out := s.clone()
	out.Sugar = &level
	return out
}

func (s Selection) SetQuantity(n int) Selection {
	out := s.clone()
	out.Quantity = max(n, 1)
	return out
}

// Choice exposes the codes for catalog validation.
func (s Selection) Choice() catalog.Choice {
	return catalog.Choice{
		Size:     s.Size,
		Sugar:    s.Sugar,
		Milks:    s.Milks,
		Toppings: s.Toppings,
		Upsells:  s.Upsells,
	}
}

func remove(set []string, code string) []string {
	return slices.DeleteFunc(set, func(v string) bool { return v == code })
}

func nonNil(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}
