package order

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPendingPayment Status = "pending_payment"
	StatusPaid           Status = "paid"
	StatusConfirmed      Status = "confirmed"
	StatusPreparing      Status = "preparing"
	StatusDelivering     Status = "delivering"
	StatusInTransit      Status = "in_transit"
	StatusDelivered      Status = "delivered"
	StatusCompleted      Status = "completed"
	StatusCancelled      Status = "cancelled"
)

// IsActive reports whether the order is still on its way to the customer.
func (s Status) IsActive() bool {
	switch s {
	case StatusPendingPayment, StatusPaid, StatusConfirmed, StatusPreparing, StatusDelivering, StatusInTransit:
		return true
	}
	return false
}

// allowedTransitions lists the moves a customer can ask for.
var allowedTransitions = map[Status]map[Status]bool{
	StatusPendingPayment: {StatusCancelled: true, StatusDelivered: true},
	StatusPaid:           {StatusCancelled: true, StatusDelivered: true},
	StatusConfirmed:      {StatusCancelled: true, StatusDelivered: true},
	StatusPreparing:      {StatusCancelled: true, StatusDelivered: true},
	StatusDelivering:     {StatusCancelled: true, StatusDelivered: true},
	StatusInTransit:      {StatusCancelled: true, StatusDelivered: true},
	StatusDelivered:      {},
	StatusCompleted:      {},
	StatusCancelled:      {},
}

type Item struct {
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	Size        string          `json:"size,omitempty"`
	Sugar       flexString      `json:"sugar,omitempty"`
	Milks       []string        `json:"milks,omitempty"`
	Toppings    []string        `json:"toppings,omitempty"`
	Price       decimal.Decimal `json:"price"`
}

type Order struct {
	ID               string          `json:"id"`
	Status           Status          `json:"status"`
	Items            []Item          `json:"items"`
	Total            decimal.Decimal `json:"total"`
	Discount         decimal.Decimal `json:"discount"`
	ShippingFee      decimal.Decimal `json:"shipping_fee"`
	PromoCode        string          `json:"promo_code,omitempty"`
	PaymentMethod    string          `json:"payment_method"`
	SpecialNotes     string          `json:"special_notes,omitempty"`
	CustomerName     string          `json:"customer_name,omitempty"`
	CustomerPhone    string          `json:"customer_phone,omitempty"`
	DeliveryDistrict string          `json:"delivery_district,omitempty"`
	DeliveryWard     string          `json:"delivery_ward,omitempty"`
	DeliveryStreet   string          `json:"delivery_street,omitempty"`
	PaymentTime      *string         `json:"payment_time,omitempty"`
	CreatedAt        string          `json:"created_at"`
	DeliveredAt      *string         `json:"delivered_at,omitempty"`
}

// Address joins street, ward and district, or returns "" if any is missing.
func (o Order) Address() string {
	if o.DeliveryStreet == "" || o.DeliveryWard == "" || o.DeliveryDistrict == "" {
		return ""
	}
	return strings.Join([]string{o.DeliveryStreet, o.DeliveryWard, o.DeliveryDistrict}, ", ")
}

// flexString takes "50" or 50.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}
