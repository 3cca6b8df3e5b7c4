package account

import (
	"slices"
	"strconv"

	"github.com/vasiliy-maslov/cafe-storefront/internal/catalog"
	"github.com/vasiliy-maslov/cafe-storefront/internal/selection"
)

// Apply carries a remembered customization onto a fresh selection. Choices the
// product no longer offers are skipped, so the result always passes
// opts.ValidateSelection when sel did.
func (c Customization) Apply(sel selection.Selection, opts catalog.Options) selection.Selection {
	if c.Size != "" && opts.HasSize {
		if _, ok := opts.Size(c.Size); ok {
			sel = sel.SetSize(c.Size)
		}
	}

	if c.Sugar != "" && opts.HasSugar {
		if level, err := strconv.Atoi(c.Sugar.String()); err == nil && catalog.ValidSugar(level) {
			sel = sel.SetSugar(level)
		}
	}

	if c.Milk != "" && !catalog.IsCondensedMilk(c.Milk) && !slices.Contains(sel.Milks, c.Milk) {
		if _, ok := opts.Milk(c.Milk); ok {
			sel = sel.ToggleMilk(c.Milk, false)
		}
	}

	for _, code := range c.Upsells {
		if slices.Contains(sel.Upsells, code) {
			continue
		}
		if _, ok := opts.Upsell(code); !ok {
			continue
		}
		if next, err := sel.ToggleSet(selection.FieldUpsells, code); err == nil {
			sel = next
		}
	}
	return sel
}
