package checkout

import (
	"slices"
	"strconv"

	"github.com/vasiliy-maslov/cafe-storefront/internal/backend"
	"github.com/vasiliy-maslov/cafe-storefront/internal/cart"
)

const (
	defaultSize  = "M"
	defaultSugar = "0"
)

// BuildOrderPayload maps cart lines to the order endpoint's shape. Upsells
// and toppings share the single toppings field, upsells first.
func BuildOrderPayload(userID string, lines []cart.Line, info CustomerInfo, promo PromoState) backend.OrderDraft {
	items := make([]backend.OrderLine, 0, len(lines))
	for _, l := range lines {
		size := defaultSize
		if l.Size != nil && *l.Size != "" {
			size = *l.Size
		}
		sugar := defaultSugar
		if l.Sugar != nil {
			sugar = strconv.Itoa(*l.Sugar)
		}

		items = append(items, backend.OrderLine{
			ProductID:   l.ProductID,
			ProductName: l.Name,
			Quantity:    l.Quantity,
			Size:        size,
			Sugar:       sugar,
			Milks:       nonNil(slices.Clone(l.Milks)),
			Toppings:    nonNil(slices.Concat(l.Upsells, l.Toppings)),
			Price:       l.UnitPrice.InexactFloat64(),
		})
	}

	return backend.OrderDraft{
		UserID:           userID,
		Items:            items,
		CustomerName:     info.Name,
		CustomerPhone:    info.Phone,
		CustomerEmail:    info.Email,
		DeliveryDistrict: info.District,
		DeliveryWard:     info.Ward,
		DeliveryStreet:   info.Street,
		PaymentMethod:    info.PaymentMethod,
		PromoCode:        promo.Code,
		SpecialNotes:     info.Notes,
	}
}

func nonNil(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}
