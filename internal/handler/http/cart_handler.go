package http

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/vasiliy-maslov/cafe-storefront/internal/cart"
	"github.com/vasiliy-maslov/cafe-storefront/internal/checkout"
	"github.com/vasiliy-maslov/cafe-storefront/internal/session"
)

type CartLineResponse struct {
	Index int `json:"index"`
	cart.Line
	LineTotal decimal.Decimal `json:"line_total"`
}

type CartResponse struct {
	Lines   []CartLineResponse  `json:"lines"`
	Promo   checkout.PromoState `json:"promo"`
	Summary checkout.Summary    `json:"summary"`
}

func newCartResponse(s *session.Session) CartResponse {
	lines := s.Cart.Lines()
	resp := CartResponse{
		Lines:   make([]CartLineResponse, 0, len(lines)),
		Promo:   s.Promo,
		Summary: checkout.Summarize(lines, s.Promo),
	}
	for i, l := range lines {
		resp.Lines = append(resp.Lines, CartLineResponse{Index: i, Line: l, LineTotal: l.Total()})
	}
	return resp
}

type ChangeQuantityRequest struct {
	Delta int `json:"delta" validate:"required"`
}

type CartHandler struct {
	sessions Sessions
	validate *validator.Validate
}

func NewCartHandler(sessions Sessions) *CartHandler {
	return &CartHandler{sessions: sessions, validate: newValidator()}
}

func (h *CartHandler) RegisterRoutes(router chi.Router) {
	router.Get("/sessions/{sid}/cart", h.handleGet)
	router.Delete("/sessions/{sid}/cart", h.handleClear)
	router.Patch("/sessions/{sid}/cart/lines/{index}", h.handleChangeQuantity)
	router.Delete("/sessions/{sid}/cart/lines/{index}", h.handleRemoveLine)
}

func (h *CartHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := sessionIDParam(r)
	if err != nil {
		respondWithServiceError(w, err, "Failed to get cart")
		return
	}

	s, err := h.sessions.Get(r.Context(), id)
	if err != nil {
		respondWithServiceError(w, err, "Failed to get cart")
		return
	}
	respondWithJSON(w, http.StatusOK, newCartResponse(s))
}

func (h *CartHandler) handleChangeQuantity(w http.ResponseWriter, r *http.Request) {
	var req ChangeQuantityRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}
	h.update(w, r, "Failed to change quantity", func(c *cart.Cart, index int) error {
		return c.ChangeQuantity(index, req.Delta)
	})
}

func (h *CartHandler) handleRemoveLine(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, "Failed to remove line", func(c *cart.Cart, index int) error {
		return c.RemoveLine(index)
	})
}

func (h *CartHandler) handleClear(w http.ResponseWriter, r *http.Request) {
	id, err := sessionIDParam(r)
	if err != nil {
		respondWithServiceError(w, err, "Failed to clear cart")
		return
	}

	s, err := h.sessions.Update(r.Context(), id, func(s *session.Session) error {
		s.ClearCart()
		return nil
	})
	if err != nil {
		respondWithServiceError(w, err, "Failed to clear cart")
		return
	}
	respondWithJSON(w, http.StatusOK, newCartResponse(s))
}

func (h *CartHandler) update(w http.ResponseWriter, r *http.Request, failure string, fn func(c *cart.Cart, index int) error) {
	id, err := sessionIDParam(r)
	if err != nil {
		respondWithServiceError(w, err, failure)
		return
	}

	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid line index")
		return
	}

	s, err := h.sessions.Update(r.Context(), id, func(s *session.Session) error {
		return fn(s.Cart, index)
	})
	if err != nil {
		respondWithServiceError(w, err, failure)
		return
	}
	respondWithJSON(w, http.StatusOK, newCartResponse(s))
}
