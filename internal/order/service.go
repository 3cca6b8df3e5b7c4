package order

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

const (
	ActionCancel   = "order.cancel"
	ActionReceived = "order.received"
)

var (
	ErrOrderNotFound           = errors.New("order not found")
	ErrStatusAlreadySet        = errors.New("status is already set to the desired value")
	ErrInvalidStatusTransition = errors.New("invalid order status transition")
)

// API is the slice of the backend client orders need.
type API interface {
	Do(ctx context.Context, method, path string, body, out any) error
}

// Guard refuses a second copy of an action while the first is in flight.
type Guard interface {
	Guard(sessionID uuid.UUID, action string) (release func(), err error)
}

// CancelResult carries the refreshed order and, when the backend refunded a
// balance payment, the refund and the balance after it.
type CancelResult struct {
	Order        *Order           `json:"order"`
	RefundAmount decimal.Decimal  `json:"refund_amount"`
	NewBalance   *decimal.Decimal `json:"new_balance,omitempty"`
}

type Service interface {
	History(ctx context.Context, userID string) ([]Order, error)
	Active(ctx context.Context, userID string) ([]Order, error)
	Cancel(ctx context.Context, sessionID uuid.UUID, userID, orderID string) (*CancelResult, error)
	MarkReceived(ctx context.Context, sessionID uuid.UUID, userID, orderID string) (*Order, error)
	Balance(ctx context.Context, userID string) (decimal.Decimal, error)
}

type service struct {
	api   API
	guard Guard
}

func NewService(api API, guard Guard) Service {
	return &service{api: api, guard: guard}
}

func (s *service) History(ctx context.Context, userID string) ([]Order, error) {
	var body struct {
		Orders []Order `json:"orders"`
	}
	if err := s.api.Do(ctx, http.MethodGet, "/orders?user_id="+url.QueryEscape(userID), nil, &body); err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("service: failed to fetch orders")
		return nil, fmt.Errorf("service: order history: %w", err)
	}
	if body.Orders == nil {
		body.Orders = []Order{}
	}
	return body.Orders, nil
}

func (s *service) Active(ctx context.Context, userID string) ([]Order, error) {
	all, err := s.History(ctx, userID)
	if err != nil {
		return nil, err
	}
	active := make([]Order, 0, len(all))
	for _, o := range all {
		if o.Status.IsActive() {
			active = append(active, o)
		}
	}
	return active, nil
}

func (s *service) find(ctx context.Context, userID, orderID string) (*Order, error) {
	orders, err := s.History(ctx, userID)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		if orders[i].ID == orderID {
			return &orders[i], nil
		}
	}
	return nil, ErrOrderNotFound
}

func checkTransition(current, next Status) error {
	if current == next {
		return ErrStatusAlreadySet
	}
	if !allowedTransitions[current][next] {
		log.Warn().Str("current_status", string(current)).Str("new_status", string(next)).Msg("service: invalid order status transition")
		return fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, current, next)
	}
	return nil
}

// Cancel asks the backend to cancel an order. The order is re-read afterwards
// instead of being patched locally.
func (s *service) Cancel(ctx context.Context, sessionID uuid.UUID, userID, orderID string) (*CancelResult, error) {
	release, err := s.guard.Guard(sessionID, ActionCancel+":"+orderID)
	if err != nil {
		return nil, err
	}
	defer release()

	current, err := s.find(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	if err := checkTransition(current.Status, StatusCancelled); err != nil {
		return nil, err
	}

	var resp struct {
		RefundAmount decimal.Decimal `json:"refund_amount"`
	}
	path := "/orders/" + url.PathEscape(orderID) + "/cancel"
	if err := s.api.Do(ctx, http.MethodPost, path, map[string]string{"user_id": userID}, &resp); err != nil {
		log.Error().Err(err).Str("order_id", orderID).Msg("service: failed to cancel order")
		return nil, fmt.Errorf("service: cancel order %s: %w", orderID, err)
	}

	result := &CancelResult{RefundAmount: resp.RefundAmount}
	if resp.RefundAmount.IsPositive() {
		balance, err := s.Balance(ctx, userID)
		if err != nil {
			log.Warn().Err(err).Str("user_id", userID).Msg("service: failed to refresh balance after refund")
		} else {
			result.NewBalance = &balance
		}
	}

	refreshed, err := s.find(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	result.Order = refreshed

	log.Info().Str("order_id", orderID).Str("status", string(refreshed.Status)).Msg("service: order cancelled")
	return result, nil
}

func (s *service) MarkReceived(ctx context.Context, sessionID uuid.UUID, userID, orderID string) (*Order, error) {
	release, err := s.guard.Guard(sessionID, ActionReceived+":"+orderID)
	if err != nil {
		return nil, err
	}
	defer release()

	current, err := s.find(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	if err := checkTransition(current.Status, StatusDelivered); err != nil {
		return nil, err
	}

	path := "/orders/" + url.PathEscape(orderID) + "/received"
	if err := s.api.Do(ctx, http.MethodPost, path, map[string]string{"user_id": userID}, nil); err != nil {
		log.Error().Err(err).Str("order_id", orderID).Msg("service: failed to mark order received")
		return nil, fmt.Errorf("service: mark order %s received: %w", orderID, err)
	}

	refreshed, err := s.find(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	log.Info().Str("order_id", orderID).Str("status", string(refreshed.Status)).Msg("service: order marked received")
	return refreshed, nil
}

func (s *service) Balance(ctx context.Context, userID string) (decimal.Decimal, error) {
	var body struct {
		Balance decimal.Decimal `json:"balance"`
	}
	if err := s.api.Do(ctx, http.MethodGet, "/user/balance?user_id="+url.QueryEscape(userID), nil, &body); err != nil {
		return decimal.Zero, fmt.Errorf("service: balance: %w", err)
	}
	return body.Balance, nil
}
