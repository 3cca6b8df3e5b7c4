package backend

import (
	"context"
	"net/http"
	"net/url"

	"github.com/shopspring/decimal"
)

// OrderLine is one item of a checkout request. Toppings carries upsells and
// toppings together because the order endpoint has a single field for both.
type OrderLine struct {
	ProductID   string   `json:"product_id"`
	ProductName string   `json:"product_name"`
	Quantity    int      `json:"quantity"`
	Size        string   `json:"size"`
	Sugar       string   `json:"sugar"`
	Milks       []string `json:"milks"`
	Toppings    []string `json:"toppings"`
	Price       float64  `json:"price"`
}

// OrderDraft is the body of POST /checkout.
type OrderDraft struct {
	UserID           string      `json:"user_id"`
	Items            []OrderLine `json:"items"`
	CustomerName     string      `json:"customer_name"`
	CustomerPhone    string      `json:"customer_phone"`
	CustomerEmail    string      `json:"customer_email"`
	DeliveryDistrict string      `json:"delivery_district"`
	DeliveryWard     string      `json:"delivery_ward"`
	DeliveryStreet   string      `json:"delivery_street"`
	PaymentMethod    string      `json:"payment_method"`
	PromoCode        string      `json:"promo_code"`
	SpecialNotes     string      `json:"special_notes"`
}

type PlacedOrder struct {
	OrderID     string          `json:"order_id"`
	Total       decimal.Decimal `json:"total"`
	Discount    decimal.Decimal `json:"discount"`
	ShippingFee decimal.Decimal `json:"shipping_fee"`
	Message     string          `json:"message"`
}

type sendOTPRequest struct {
	UserID  string  `json:"user_id"`
	OrderID string  `json:"order_id"`
	Amount  float64 `json:"amount"`
}

type verifyOTPRequest struct {
	UserID  string `json:"user_id"`
	OrderID string `json:"order_id"`
	OTPCode string `json:"otp_code"`
}

// PaymentVerified is the answer to a successful OTP verification.
type PaymentVerified struct {
	NewBalance *decimal.Decimal `json:"new_balance,omitempty"`
}

type Promo struct {
	Code            string          `json:"code"`
	Status          string          `json:"status"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
}

func (c *Client) PlaceOrder(ctx context.Context, draft OrderDraft) (*PlacedOrder, error) {
	var placed PlacedOrder
	if err := c.Do(ctx, http.MethodPost, "/checkout", draft, &placed); err != nil {
		return nil, err
	}
	return &placed, nil
}

func (c *Client) SendPaymentOTP(ctx context.Context, userID, orderID string, amount decimal.Decimal) error {
	body := sendOTPRequest{UserID: userID, OrderID: orderID, Amount: amount.InexactFloat64()}
	return c.Do(ctx, http.MethodPost, "/payment/send-otp", body, nil)
}

func (c *Client) VerifyPaymentOTP(ctx context.Context, userID, orderID, otpCode string) (*PaymentVerified, error) {
	var verified PaymentVerified
	body := verifyOTPRequest{UserID: userID, OrderID: orderID, OTPCode: otpCode}
	if err := c.Do(ctx, http.MethodPost, "/payment/verify-otp", body, &verified); err != nil {
		return nil, err
	}
	return &verified, nil
}

func (c *Client) ValidatePromo(ctx context.Context, code string) (*Promo, error) {
	var promo Promo
	if err := c.Do(ctx, http.MethodPost, "/promo/validate", map[string]string{"code": code}, &promo); err != nil {
		return nil, err
	}
	return &promo, nil
}

func (c *Client) Districts(ctx context.Context, city string) ([]string, error) {
	if city == "" {
		city = "HCM"
	}
	var body struct {
		Districts []string `json:"districts"`
	}
	if err := c.Do(ctx, http.MethodGet, "/locations/districts?city="+url.QueryEscape(city), nil, &body); err != nil {
		return nil, err
	}
	return body.Districts, nil
}

func (c *Client) Wards(ctx context.Context, district string) ([]string, error) {
	var body struct {
		Wards []string `json:"wards"`
	}
	if err := c.Do(ctx, http.MethodGet, "/locations/wards?district="+url.QueryEscape(district), nil, &body); err != nil {
		return nil, err
	}
	return body.Wards, nil
}
