package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
)

type Category string

const (
	CategoryCoffee Category = "coffee"
	CategoryTea    Category = "tea"
	CategoryJuice  Category = "juice"
	CategoryFood   Category = "food"
)

func (c Category) Valid() bool {
	switch c {
	case CategoryCoffee, CategoryTea, CategoryJuice, CategoryFood:
		return true
	}
	return false
}

// SugarLevels are the sugar percentages a drink can be ordered with, in display order.
var SugarLevels = []int{0, 25, 50, 75, 100, 125, 150}

func ValidSugar(level int) bool {
	for _, l := range SugarLevels {
		if l == level {
			return true
		}
	}
	return false
}

// IsCondensedMilk reports whether code names condensed milk, the one milk
// exempt from the one-regular-milk rule.
func IsCondensedMilk(code string) bool {
	return code == "condensed" || code == "condensed_milk"
}

type Product struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Category     Category        `json:"category"`
	BasePrice    decimal.Decimal `json:"price"`
	Icon         string          `json:"icon,omitempty"`
	Type         string          `json:"type,omitempty"`
	DefaultSugar *int            `json:"defaultSugar,omitempty"`
}

func (p *Product) UnmarshalJSON(data []byte) error {
	type plain Product
	var aux struct {
		plain
		DefaultSugar looseInt `json:"defaultSugar"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*p = Product(aux.plain)
	p.DefaultSugar = aux.DefaultSugar.ptr()
	return nil
}

type SizeOption struct {
	Code          string          `json:"code"`
	Name          string          `json:"name"`
	PriceModifier decimal.Decimal `json:"priceModifier"`
}

// PricedOption is a milk, upsell or topping choice with an additive price.
type PricedOption struct {
	Code    string          `json:"code"`
	Name    string          `json:"name"`
	Price   decimal.Decimal `json:"price"`
	Default bool            `json:"default,omitempty"`
}

// Sizes keeps the order in which the API lists sizes; the first one is the
// fallback default.
type Sizes []SizeOption

func (s *Sizes) UnmarshalJSON(data []byte) error {
	var out Sizes
	err := decodeOrdered(data, func(code string, raw json.RawMessage) error {
		opt := SizeOption{Code: code}
		if err := json.Unmarshal(raw, &opt); err != nil {
			return err
		}
		opt.Code = code
		out = append(out, opt)
		return nil
	})
	*s = out
	return err
}

// MarshalJSON writes sizes back as an object keyed by code, in list order.
func (s Sizes) MarshalJSON() ([]byte, error) {
	return encodeOrdered(len(s), func(i int) (string, any) {
		return s[i].Code, s[i]
	})
}

type PricedOptions []PricedOption

func (p PricedOptions) MarshalJSON() ([]byte, error) {
	return encodeOrdered(len(p), func(i int) (string, any) {
		return p[i].Code, p[i]
	})
}

func (p *PricedOptions) UnmarshalJSON(data []byte) error {
	var out PricedOptions
	err := decodeOrdered(data, func(code string, raw json.RawMessage) error {
		var opt PricedOption
		if err := json.Unmarshal(raw, &opt); err != nil {
			return err
		}
		opt.Code = code
		out = append(out, opt)
		return nil
	})
	*p = out
	return err
}

func (p PricedOptions) find(code string) (PricedOption, bool) {
	for _, o := range p {
		if o.Code == code {
			return o, true
		}
	}
	return PricedOption{}, false
}

// Options is the customization menu of one product.
type Options struct {
	HasSize     bool          `json:"hasSize"`
	Sizes       Sizes         `json:"sizes"`
	MilkOptions PricedOptions `json:"milkOptions"`
	HasSugar    bool          `json:"hasSugar"`
	Upsells     PricedOptions `json:"upsells"`
	Toppings    PricedOptions `json:"toppings"`
}

func (o *Options) Size(code string) (SizeOption, bool) {
	for _, s := range o.Sizes {
		if s.Code == code {
			return s, true
		}
	}
	return SizeOption{}, false
}

func (o *Options) Milk(code string) (PricedOption, bool)    { return o.MilkOptions.find(code) }
func (o *Options) Upsell(code string) (PricedOption, bool)  { return o.Upsells.find(code) }
func (o *Options) Topping(code string) (PricedOption, bool) { return o.Toppings.find(code) }

// DefaultSize is the size with a zero modifier, else the first size. It is nil
// for products without a size dimension.
func (o *Options) DefaultSize() *string {
	if !o.HasSize && len(o.Sizes) == 0 {
		return nil
	}
	for _, s := range o.Sizes {
		if s.PriceModifier.IsZero() {
			code := s.Code
			return &code
		}
	}
	if len(o.Sizes) == 0 {
		return nil
	}
	code := o.Sizes[0].Code
	return &code
}

type ProductDetail struct {
	Product       Product `json:"product"`
	Customization Options `json:"customization"`
}

// decodeOrdered walks a JSON object key by key. null decodes to nothing.
func decodeOrdered(data []byte, fn func(key string, raw json.RawMessage) error) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("catalog: expected object, got %v", tok)
	}

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("catalog: expected object key, got %v", keyTok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		if err := fn(key, raw); err != nil {
			return fmt.Errorf("catalog: option %q: %w", key, err)
		}
	}

	_, err = dec.Token()
	return err
}

func encodeOrdered(n int, at func(i int) (string, any)) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i := 0; i < n; i++ {
		if i > 0 {
			buf.WriteByte(',')
		}
		code, v := at(i)
		key, err := json.Marshal(code)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// looseInt accepts 50, "50" or null.
type looseInt struct {
	set   bool
	value int
}

func (l *looseInt) UnmarshalJSON(data []byte) error {
	s := string(bytes.Trim(bytes.TrimSpace(data), `"`))
	if s == "" || s == "null" {
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("catalog: invalid integer %q", s)
	}
	l.set, l.value = true, v
	return nil
}

func (l looseInt) ptr() *int {
	if !l.set {
		return nil
	}
	v := l.value
	return &v
}

// Choice is the part of a selection the option set can check.
type Choice struct {
	Size     *string
	Sugar    *int
	Milks    []string
	Toppings []string
	Upsells  []string
}

var (
	ErrUnknownSize    = errors.New("catalog: unknown size")
	ErrUnknownOption  = errors.New("catalog: unknown option")
	ErrInvalidSugar   = errors.New("catalog: invalid sugar level")
	ErrMilkExclusive  = errors.New("catalog: at most one regular milk")
	ErrCondensedAlone = errors.New("catalog: condensed milk requires a regular milk")
)

// ValidateSelection checks that every code in c exists in the option set and
// that the milk combination is allowed.
func (o *Options) ValidateSelection(c Choice) error {
	if c.Size != nil {
		if _, ok := o.Size(*c.Size); !ok {
			return fmt.Errorf("%w: %s", ErrUnknownSize, *c.Size)
		}
	}
	if c.Sugar != nil && !ValidSugar(*c.Sugar) {
		return fmt.Errorf("%w: %d", ErrInvalidSugar, *c.Sugar)
	}

	regular, condensed := 0, 0
	for _, code := range c.Milks {
		if _, ok := o.Milk(code); !ok {
			return fmt.Errorf("%w: milk %s", ErrUnknownOption, code)
		}
		if IsCondensedMilk(code) {
			condensed++
		} else {
			regular++
		}
	}
	if regular > 1 {
		return ErrMilkExclusive
	}
	if condensed > 0 && regular == 0 {
		return ErrCondensedAlone
	}

	for _, code := range c.Toppings {
		if _, ok := o.Topping(code); !ok {
			return fmt.Errorf("%w: topping %s", ErrUnknownOption, code)
		}
	}
	for _, code := range c.Upsells {
		if _, ok := o.Upsell(code); !ok {
			return fmt.Errorf("%w: upsell %s", ErrUnknownOption, code)
		}
	}
	return nil
}
