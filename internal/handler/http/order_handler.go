package http

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/vasiliy-maslov/cafe-storefront/internal/order"
	"github.com/vasiliy-maslov/cafe-storefront/internal/session"
)

// StatusStream serves the websocket that pushes order status changes.
type StatusStream interface {
	ServeWS(w http.ResponseWriter, r *http.Request, userID string)
}

type OrdersResponse struct {
	Orders []order.Order `json:"orders"`
}

type BalanceResponse struct {
	Balance decimal.Decimal `json:"balance"`
}

type OrderHandler struct {
	sessions Sessions
	orders   order.Service
	stream   StatusStream
}

func NewOrderHandler(sessions Sessions, orders order.Service, stream StatusStream) *OrderHandler {
	return &OrderHandler{sessions: sessions, orders: orders, stream: stream}
}

func (h *OrderHandler) RegisterRoutes(router chi.Router) {
	router.Get("/sessions/{sid}/orders", h.handleList)
	router.Get("/sessions/{sid}/orders/ws", h.handleStream)
	router.Post("/sessions/{sid}/orders/{oid}/cancel", h.handleCancel)
	router.Post("/sessions/{sid}/orders/{oid}/received", h.handleReceived)
	router.Get("/sessions/{sid}/balance", h.handleBalance)
}

// user resolves the session in the URL to its id and signed-in user.
func (h *OrderHandler) user(r *http.Request) (uuid.UUID, string, error) {
	id, err := sessionIDParam(r)
	if err != nil {
		return uuid.Nil, "", err
	}
	s, err := h.sessions.Get(r.Context(), id)
	if err != nil {
		return uuid.Nil, "", err
	}
	return id, s.UserID, nil
}

func (h *OrderHandler) handleList(w http.ResponseWriter, r *http.Request) {
	_, userID, err := h.user(r)
	if err != nil {
		respondWithServiceError(w, err, "Failed to load orders")
		return
	}

	activeOnly, _ := strconv.ParseBool(r.URL.Query().Get("active"))
	var orders []order.Order
	if activeOnly {
		orders, err = h.orders.Active(r.Context(), userID)
	} else {
		orders, err = h.orders.History(r.Context(), userID)
	}
	if err != nil {
		respondWithServiceError(w, err, "Failed to load orders")
		return
	}
	respondWithJSON(w, http.StatusOK, OrdersResponse{Orders: orders})
}

func (h *OrderHandler) handleCancel(w http.ResponseWriter, r *http.Request) {
	id, userID, err := h.user(r)
	if err != nil {
		respondWithServiceError(w, err, "Failed to cancel order")
		return
	}

	result, err := h.orders.Cancel(r.Context(), id, userID, chi.URLParam(r, "oid"))
	if err != nil {
		respondWithServiceError(w, err, "Failed to cancel order")
		return
	}

	if result.NewBalance != nil {
		h.storeBalance(r.Context(), id, *result.NewBalance)
	}
	respondWithJSON(w, http.StatusOK, result)
}

func (h *OrderHandler) handleReceived(w http.ResponseWriter, r *http.Request) {
	id, userID, err := h.user(r)
	if err != nil {
		respondWithServiceError(w, err, "Failed to confirm delivery")
		return
	}

	o, err := h.orders.MarkReceived(r.Context(), id, userID, chi.URLParam(r, "oid"))
	if err != nil {
		respondWithServiceError(w, err, "Failed to confirm delivery")
		return
	}
	respondWithJSON(w, http.StatusOK, o)
}

func (h *OrderHandler) handleBalance(w http.ResponseWriter, r *http.Request) {
	id, userID, err := h.user(r)
	if err != nil {
		respondWithServiceError(w, err, "Failed to load balance")
		return
	}

	balance, err := h.orders.Balance(r.Context(), userID)
	if err != nil {
		respondWithServiceError(w, err, "Failed to load balance")
		return
	}

	h.storeBalance(r.Context(), id, balance)
	respondWithJSON(w, http.StatusOK, BalanceResponse{Balance: balance})
}

func (h *OrderHandler) handleStream(w http.ResponseWriter, r *http.Request) {
	_, userID, err := h.user(r)
	if err != nil {
		respondWithServiceError(w, err, "Failed to open order stream")
		return
	}
	h.stream.ServeWS(w, r, userID)
}

// storeBalance keeps the session's balance in line with the backend. A failure
// here does not undo the action that produced the balance.
func (h *OrderHandler) storeBalance(ctx context.Context, id uuid.UUID, balance decimal.Decimal) {
	_, err := h.sessions.Update(ctx, id, func(s *session.Session) error {
		s.Balance = &balance
		return nil
	})
	if err != nil {
		log.Warn().Err(err).Stringer("session_id", id).Msg("Failed to store refreshed balance")
	}
}
