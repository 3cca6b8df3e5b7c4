package checkout

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/vasiliy-maslov/cafe-storefront/internal/cart"
)

const (
	PaymentCOD            = "cod"
	PaymentCash           = "cash"
	PaymentCashOnDelivery = "cash_on_delivery"
	PaymentBalance        = "balance"
)

var (
	ErrEmptyCart  = errors.New("checkout: cart is empty")
	ErrInvalidOTP = errors.New("checkout: otp must be 6 digits")
)

// ValidationError lists the fields that failed, keyed by their JSON name.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	return fmt.Sprintf("checkout: invalid fields: %s", strings.Join(names, ", "))
}

type CustomerInfo struct {
	Name          string `json:"customer_name" validate:"required"`
	Phone         string `json:"customer_phone" validate:"required"`
	Email         string `json:"customer_email" validate:"required,email"`
	District      string `json:"delivery_district" validate:"required"`
	Ward          string `json:"delivery_ward" validate:"required"`
	Street        string `json:"delivery_street" validate:"required"`
	PaymentMethod string `json:"payment_method" validate:"required,oneof=cod cash cash_on_delivery balance"`
	Notes         string `json:"special_notes"`
}

func (c CustomerInfo) trimmed() CustomerInfo {
	return CustomerInfo{
		Name:          strings.TrimSpace(c.Name),
		Phone:         strings.TrimSpace(c.Phone),
		Email:         strings.TrimSpace(c.Email),
		District:      strings.TrimSpace(c.District),
		Ward:          strings.TrimSpace(c.Ward),
		Street:        strings.TrimSpace(c.Street),
		PaymentMethod: strings.TrimSpace(c.PaymentMethod),
		Notes:         strings.TrimSpace(c.Notes),
	}
}

// RequiresOTP reports whether the order is paid from the account balance.
func (c CustomerInfo) RequiresOTP() bool {
	return c.PaymentMethod == PaymentBalance
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks the customer form, then the cart. Nothing here touches the network.
func Validate(info CustomerInfo, lines []cart.Line) (CustomerInfo, error) {
	info = info.trimmed()

	if err := validate.Struct(info); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return info, fmt.Errorf("checkout: validate customer: %w", err)
		}
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[fe.Field()] = describe(fe)
		}
		return info, &ValidationError{Fields: fields}
	}

	if len(lines) == 0 {
		return info, ErrEmptyCart
	}
	return info, nil
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "oneof":
		return "must be one of: " + fe.Param()
	default:
		return "is invalid"
	}
}

// ValidateOTP accepts exactly six ASCII digits.
func ValidateOTP(code string) error {
	if len(code) != 6 {
		return ErrInvalidOTP
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return ErrInvalidOTP
		}
	}
	return nil
}
