package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/vasiliy-maslov/cafe-storefront/internal/checkout"
	"github.com/vasiliy-maslov/cafe-storefront/internal/session"
)

// Sessions is the session manager as the handlers use it.
type Sessions interface {
	Create(ctx context.Context, userID string, profile session.Profile, balance *decimal.Decimal) (*session.Session, error)
	Get(ctx context.Context, id uuid.UUID) (*session.Session, error)
	Update(ctx context.Context, id uuid.UUID, fn func(*session.Session) error) (*session.Session, error)
	Logout(ctx context.Context, id uuid.UUID) error
	Guard(id uuid.UUID, action string) (func(), error)
}

type CreateSessionRequest struct {
	UserID  string           `json:"user_id" validate:"required"`
	Name    string           `json:"name" validate:"required"`
	Email   string           `json:"email" validate:"required,email"`
	Phone   string           `json:"phone"`
	Balance *decimal.Decimal `json:"balance,omitempty"`
}

type SessionResponse struct {
	ID        uuid.UUID                `json:"id"`
	UserID    string                   `json:"user_id"`
	Profile   session.Profile          `json:"profile"`
	Balance   *decimal.Decimal         `json:"balance,omitempty"`
	CartItems int                      `json:"cart_items"`
	Promo     checkout.PromoState      `json:"promo"`
	Pending   *checkout.PendingPayment `json:"pending_payment,omitempty"`
	Flow      checkout.FlowState       `json:"flow"`
	CreatedAt time.Time                `json:"created_at"`
}

func newSessionResponse(s *session.Session) SessionResponse {
	return SessionResponse{
		ID:        s.ID,
		UserID:    s.UserID,
		Profile:   s.Profile,
		Balance:   s.Balance,
		CartItems: s.Cart.ItemCount(),
		Promo:     s.Promo,
		Pending:   s.Pending,
		Flow:      s.Flow,
		CreatedAt: s.CreatedAt,
	}
}

type SessionHandler struct {
	sessions Sessions
	validate *validator.Validate
}

func NewSessionHandler(sessions Sessions) *SessionHandler {
	return &SessionHandler{sessions: sessions, validate: newValidator()}
}

func (h *SessionHandler) RegisterRoutes(router chi.Router) {
	router.Post("/sessions", h.handleCreate)
	router.Get("/sessions/{sid}", h.handleGet)
	router.Delete("/sessions/{sid}", h.handleLogout)
}

func (h *SessionHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	profile := session.Profile{Name: req.Name, Email: req.Email, Phone: req.Phone}
	s, err := h.sessions.Create(r.Context(), req.UserID, profile, req.Balance)
	if err != nil {
		respondWithServiceError(w, err, "Failed to create session")
		return
	}

	respondWithJSON(w, http.StatusCreated, newSessionResponse(s))
}

func (h *SessionHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := sessionIDParam(r)
	if err != nil {
		respondWithServiceError(w, err, "Failed to get session")
		return
	}

	s, err := h.sessions.Get(r.Context(), id)
	if err != nil {
		respondWithServiceError(w, err, "Failed to get session")
		return
	}

	respondWithJSON(w, http.StatusOK, newSessionResponse(s))
}

func (h *SessionHandler) handleLogout(w http.ResponseWriter, r *http.Request) {
	id, err := sessionIDParam(r)
	if err != nil {
		respondWithServiceError(w, err, "Failed to log out")
		return
	}

	if err := h.sessions.Logout(r.Context(), id); err != nil {
		respondWithServiceError(w, err, "Failed to log out")
		return
	}

	log.Info().Stringer("session_id", id).Msg("Session closed")
	w.WriteHeader(http.StatusNoContent)
}
