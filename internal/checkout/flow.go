package checkout

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vasiliy-maslov/cafe-storefront/internal/cart"
)

type FlowState string

const (
	FlowDraft          FlowState = "draft"
	FlowSubmitted      FlowState = "submitted"
	FlowPendingPayment FlowState = "pending_payment"
	FlowPaid           FlowState = "paid"
	FlowPlaced         FlowState = "placed"
)

var allowedTransitions = map[FlowState]map[FlowState]bool{
	FlowDraft: {
		FlowSubmitted: true,
	},
	FlowSubmitted: {
		FlowPendingPayment: true,
		FlowPlaced:         true,
		FlowDraft:          true,
	},
	FlowPendingPayment: {
		FlowPaid:      true,
		FlowSubmitted: true,
	},
	FlowPaid: {
		FlowSubmitted: true,
	},
	FlowPlaced: {
		FlowSubmitted: true,
	},
}

var ErrInvalidTransition = errors.New("checkout: invalid flow transition")

func (s FlowState) orDraft() FlowState {
	if s == "" {
		return FlowDraft
	}
	return s
}

// Transition moves the flow to next if the table allows it.
func (st *State) Transition(next FlowState) error {
	current := st.Flow.orDraft()
	if !allowedTransitions[current][next] {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current, next)
	}
	st.Flow = next
	return nil
}

type PromoState struct {
	Code            string          `json:"code,omitempty"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
}

// PendingPayment is a balance order waiting for its OTP.
type PendingPayment struct {
	OrderID   string          `json:"order_id"`
	Amount    decimal.Decimal `json:"amount"`
	CreatedAt time.Time       `json:"created_at"`
}

// State is the part of a session the checkout flow reads and writes.
type State struct {
	UserID  string           `json:"user_id"`
	Balance *decimal.Decimal `json:"balance,omitempty"`
	Cart    *cart.Cart       `json:"cart"`
	Promo   PromoState       `json:"promo"`
	Pending *PendingPayment  `json:"pending_payment,omitempty"`
	Flow    FlowState        `json:"flow"`
}

// ClearCart empties the cart. The promo goes with it.
func (st *State) ClearCart() {
	if st.Cart == nil {
		st.Cart = cart.New()
	}
	st.Cart.Clear()
	st.Promo = PromoState{}
}

// ClearOrder resets the cart, promo and pending payment after a successful order.
func (st *State) ClearOrder() {
	st.ClearCart()
	st.Pending = nil
}

func (st *State) lines() []cart.Line {
	if st.Cart == nil {
		return nil
	}
	return st.Cart.Lines()
}
