package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/vasiliy-maslov/cafe-storefront/internal/backend"
)

// Guarded actions. A second request for the same action on the same session
// is refused while the first is in flight.
const (
	ActionSubmit = "checkout.submit"
	ActionVerify = "checkout.verify"
	ActionResend = "checkout.resend"
	ActionPromo  = "checkout.promo"
)

const promoValid = "valid"

var (
	ErrNoPendingPayment = errors.New("checkout: no payment awaiting otp")
	ErrPromoRejected    = errors.New("checkout: promo code rejected")
)

// PaymentAPI is the part of the café API used by checkout.
type PaymentAPI interface {
	PlaceOrder(ctx context.Context, draft backend.OrderDraft) (*backend.PlacedOrder, error)
	SendPaymentOTP(ctx context.Context, userID, orderID string, amount decimal.Decimal) error
	VerifyPaymentOTP(ctx context.Context, userID, orderID, otpCode string) (*backend.PaymentVerified, error)
	ValidatePromo(ctx context.Context, code string) (*backend.Promo, error)
}

// Sessions gives checkout serialized access to session state.
type Sessions interface {
	Guard(sessionID uuid.UUID, action string) (release func(), err error)
	Checkout(ctx context.Context, sessionID uuid.UUID) (State, error)
	UpdateCheckout(ctx context.Context, sessionID uuid.UUID, fn func(*State) error) error
}

// Receipt describes a placed order. For balance payments AwaitingOTP is set
// and the cart stays as it was until the OTP is verified.
type Receipt struct {
	OrderID       string          `json:"order_id"`
	Total         decimal.Decimal `json:"total"`
	PaymentMethod string          `json:"payment_method"`
	AwaitingOTP   bool            `json:"awaiting_otp"`
	OTPSent       bool            `json:"otp_sent"`
	OTPError      string          `json:"otp_error,omitempty"`
	Message       string          `json:"message,omitempty"`
}

type Payment struct {
	OrderID    string           `json:"order_id"`
	Amount     decimal.Decimal  `json:"amount"`
	NewBalance *decimal.Decimal `json:"new_balance,omitempty"`
}

type Service interface {
	Summary(ctx context.Context, sessionID uuid.UUID) (Summary, error)
	ApplyPromo(ctx context.Context, sessionID uuid.UUID, code string) (PromoState, error)
	Submit(ctx context.Context, sessionID uuid.UUID, info CustomerInfo) (*Receipt, error)
	VerifyPayment(ctx context.Context, sessionID uuid.UUID, otpCode string) (*Payment, error)
	ResendOTP(ctx context.Context, sessionID uuid.UUID) error
}

type service struct {
	api      PaymentAPI
	sessions Sessions
	now      func() time.Time
}

func NewService(api PaymentAPI, sessions Sessions) Service {
	return &service{
		api:      api,
		sessions: sessions,
		now:      time.Now,
	}
}

func (s *service) Summary(ctx context.Context, sessionID uuid.UUID) (Summary, error) {
	st, err := s.sessions.Checkout(ctx, sessionID)
	if err != nil {
		return Summary{}, err
	}
	return Summarize(st.lines(), st.Promo), nil
}

func (s *service) ApplyPromo(ctx context.Context, sessionID uuid.UUID, code string) (PromoState, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return PromoState{}, &ValidationError{Fields: map[string]string{"code": "is required"}}
	}

	release, err := s.sessions.Guard(sessionID, ActionPromo)
	if err != nil {
		return PromoState{}, err
	}
	defer release()

	promo, err := s.api.ValidatePromo(ctx, code)
	if err != nil {
		log.Warn().Err(err).Str("promo_code", code).Msg("service: promo validation failed")
		return PromoState{}, fmt.Errorf("service: validate promo: %w", err)
	}
	if promo.Status != promoValid {
		return PromoState{}, fmt.Errorf("%w: status %q", ErrPromoRejected, promo.Status)
	}

	applied := PromoState{Code: code, DiscountPercent: promo.DiscountPercent}
	if promo.Code != "" {
		applied.Code = promo.Code
	}

	err = s.sessions.UpdateCheckout(ctx, sessionID, func(st *State) error {
		st.Promo = applied
		return nil
	})
	if err != nil {
		return PromoState{}, err
	}

	log.Info().Str("session_id", sessionID.String()).Str("promo_code", applied.Code).Msg("service: promo applied")
	return applied, nil
}

func (s *service) Submit(ctx context.Context, sessionID uuid.UUID, info CustomerInfo) (*Receipt, error) {
	release, err := s.sessions.Guard(sessionID, ActionSubmit)
	if err != nil {
		return nil, err
	}
	defer release()

	var (
		draft  backend.OrderDraft
		clean  CustomerInfo
		userID string
		local  Summary
		prior  *PendingPayment
	)
	err = s.sessions.UpdateCheckout(ctx, sessionID, func(st *State) error {
		var verr error
		clean, verr = Validate(info, st.lines())
		if verr != nil {
			return verr
		}
		if st.Flow == FlowSubmitted {
			log.Warn().Str("session_id", sessionID.String()).Msg("service: resetting stale submitted checkout")
			st.Flow = FlowDraft
		}
		if err := st.Transition(FlowSubmitted); err != nil {
			return err
		}
		prior = st.Pending

		userID = st.UserID
		local = Summarize(st.lines(), st.Promo)
		draft = BuildOrderPayload(st.UserID, st.lines(), clean, st.Promo)
		return nil
	})
	if err != nil {
		log.Warn().Err(err).Str("session_id", sessionID.String()).Msg("service: checkout rejected before submit")
		return nil, err
	}

	placed, err := s.api.PlaceOrder(ctx, draft)
	if err != nil {
		log.Error().Err(err).Str("session_id", sessionID.String()).Msg("service: failed to place order")
		s.revert(ctx, sessionID, prior)
		return nil, fmt.Errorf("service: place order: %w", err)
	}

	amount := placed.Total
	if amount.IsZero() {
		amount = local.Total
	}
	receipt := &Receipt{
		OrderID:       placed.OrderID,
		Total:         amount,
		PaymentMethod: clean.PaymentMethod,
		AwaitingOTP:   clean.RequiresOTP(),
		Message:       placed.Message,
	}

	if !clean.RequiresOTP() {
		err = s.sessions.UpdateCheckout(context.WithoutCancel(ctx), sessionID, func(st *State) error {
			st.ClearOrder()
			return st.Transition(FlowPlaced)
		})
		if err != nil {
			return nil, fmt.Errorf("service: record placed order %s: %w", placed.OrderID, err)
		}
		log.Info().Str("session_id", sessionID.String()).Str("order_id", placed.OrderID).Msg("service: order placed")
		return receipt, nil
	}

	otpErr := s.api.SendPaymentOTP(ctx, userID, placed.OrderID, amount)
	receipt.OTPSent = otpErr == nil
	if otpErr != nil {
		log.Error().Err(otpErr).Str("order_id", placed.OrderID).Msg("service: failed to send payment otp")
		receipt.OTPError = backend.Message(otpErr)
	}

	err = s.sessions.UpdateCheckout(context.WithoutCancel(ctx), sessionID, func(st *State) error {
		st.Pending = &PendingPayment{OrderID: placed.OrderID, Amount: amount, CreatedAt: s.now()}
		return st.Transition(FlowPendingPayment)
	})
	if err != nil {
		return nil, fmt.Errorf("service: record pending payment %s: %w", placed.OrderID, err)
	}

	log.Info().Str("session_id", sessionID.String()).Str("order_id", placed.OrderID).Msg("service: order awaiting payment otp")
	return receipt, nil
}

// revert undoes the submitted state after a failed order. A balance order that
// was still waiting for its OTP stays pending.
func (s *service) revert(ctx context.Context, sessionID uuid.UUID, prior *PendingPayment) {
	err := s.sessions.UpdateCheckout(context.WithoutCancel(ctx), sessionID, func(st *State) error {
		st.Pending = prior
		if prior != nil {
			return st.Transition(FlowPendingPayment)
		}
		return st.Transition(FlowDraft)
	})
	if err != nil {
		log.Error().Err(err).Str("session_id", sessionID.String()).Msg("service: failed to reset checkout flow")
	}
}

func (s *service) VerifyPayment(ctx context.Context, sessionID uuid.UUID, otpCode string) (*Payment, error) {
	otpCode = strings.TrimSpace(otpCode)
	if err := ValidateOTP(otpCode); err != nil {
		return nil, err
	}

	release, err := s.sessions.Guard(sessionID, ActionVerify)
	if err != nil {
		return nil, err
	}
	defer release()

	st, err := s.sessions.Checkout(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if st.Pending == nil {
		return nil, ErrNoPendingPayment
	}
	pending := *st.Pending

	verified, err := s.api.VerifyPaymentOTP(ctx, st.UserID, pending.OrderID, otpCode)
	if err != nil {
		log.Warn().Err(err).Str("order_id", pending.OrderID).Msg("service: payment otp verification failed")
		return nil, fmt.Errorf("service: verify payment: %w", err)
	}

	err = s.sessions.UpdateCheckout(context.WithoutCancel(ctx), sessionID, func(st *State) error {
		st.ClearOrder()
		if verified.NewBalance != nil {
			balance := *verified.NewBalance
			st.Balance = &balance
		}
		return st.Transition(FlowPaid)
	})
	if err != nil {
		return nil, fmt.Errorf("service: record payment %s: %w", pending.OrderID, err)
	}

	log.Info().Str("session_id", sessionID.String()).Str("order_id", pending.OrderID).Msg("service: order paid from balance")
	return &Payment{OrderID: pending.OrderID, Amount: pending.Amount, NewBalance: verified.NewBalance}, nil
}

func (s *service) ResendOTP(ctx context.Context, sessionID uuid.UUID) error {
	release, err := s.sessions.Guard(sessionID, ActionResend)
	if err != nil {
		return err
	}
	defer release()

	st, err := s.sessions.Checkout(ctx, sessionID)
	if err != nil {
		return err
	}
	if st.Pending == nil {
		return ErrNoPendingPayment
	}

	if err := s.api.SendPaymentOTP(ctx, st.UserID, st.Pending.OrderID, st.Pending.Amount); err != nil {
		log.Error().Err(err).Str("order_id", st.Pending.OrderID).Msg("service: failed to resend payment otp")
		return fmt.Errorf("service: resend otp: %w", err)
	}
	return nil
}
