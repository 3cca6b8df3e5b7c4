package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"github.com/vasiliy-maslov/cafe-storefront/internal/account"
	"github.com/vasiliy-maslov/cafe-storefront/internal/cart"
	"github.com/vasiliy-maslov/cafe-storefront/internal/catalog"
	"github.com/vasiliy-maslov/cafe-storefront/internal/pricing"
	"github.com/vasiliy-maslov/cafe-storefront/internal/selection"
	"github.com/vasiliy-maslov/cafe-storefront/internal/session"
)

const actionOpenProduct = "selection.open"

// OpenSelectionRequest opens a product. Prefill carries a remembered
// configuration, such as a frequent item, onto the starting selection.
type OpenSelectionRequest struct {
	ProductID string                 `json:"product_id" validate:"required"`
	Prefill   *account.Customization `json:"prefill,omitempty"`
}

// UpdateSelectionRequest changes the scalar choices. Omitted fields stay as they are.
type UpdateSelectionRequest struct {
	Size     *string `json:"size,omitempty"`
	Sugar    *int    `json:"sugar,omitempty"`
	Quantity *int    `json:"quantity,omitempty"`
}

type SelectionResponse struct {
	Product       catalog.Product     `json:"product"`
	Customization catalog.Options     `json:"customization"`
	Selection     selection.Selection `json:"selection"`
	Preview       pricing.Preview     `json:"preview"`
}

func newSelectionResponse(d *session.Draft) SelectionResponse {
	return SelectionResponse{
		Product:       d.Product,
		Customization: d.Options,
		Selection:     d.Selection,
		Preview:       pricing.LinePreview(d.Product.BasePrice, d.Selection, d.Options),
	}
}

type SelectionHandler struct {
	sessions Sessions
	catalog  catalog.Service
	validate *validator.Validate
}

func NewSelectionHandler(sessions Sessions, svc catalog.Service) *SelectionHandler {
	return &SelectionHandler{sessions: sessions, catalog: svc, validate: newValidator()}
}

func (h *SelectionHandler) RegisterRoutes(router chi.Router) {
	router.Post("/sessions/{sid}/selection", h.handleOpen)
	router.Get("/sessions/{sid}/selection", h.handleGet)
	router.Put("/sessions/{sid}/selection", h.handleUpdate)
	router.Delete("/sessions/{sid}/selection", h.handleDiscard)
	router.Post("/sessions/{sid}/selection/confirm", h.handleConfirm)
	router.Post("/sessions/{sid}/selection/milks/{code}", h.handleToggleMilk)
	router.Post("/sessions/{sid}/selection/{field}/{code}", h.handleToggleSet)
}

// handleOpen fetches the product's option set and starts a fresh selection,
// replacing any selection that was open.
func (h *SelectionHandler) handleOpen(w http.ResponseWriter, r *http.Request) {
	id, err := sessionIDParam(r)
	if err != nil {
		respondWithServiceError(w, err, "Failed to open product")
		return
	}

	var req OpenSelectionRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	if _, err := h.sessions.Get(r.Context(), id); err != nil {
		respondWithServiceError(w, err, "Failed to open product")
		return
	}

	release, err := h.sessions.Guard(id, actionOpenProduct)
	if err != nil {
		respondWithServiceError(w, err, "Failed to open product")
		return
	}
	defer release()

	detail, err := h.catalog.OpenProduct(r.Context(), req.ProductID)
	if err != nil {
		respondWithServiceError(w, err, "Failed to open product")
		return
	}

	sel, err := selection.Init(detail.Product, detail.Customization)
	if err != nil {
		respondWithServiceError(w, err, "Failed to open product")
		return
	}
	if req.Prefill != nil {
		sel = req.Prefill.Apply(sel, detail.Customization)
	}

	var draft *session.Draft
	_, err = h.sessions.Update(r.Context(), id, func(s *session.Session) error {
		s.Draft = &session.Draft{Product: detail.Product, Options: detail.Customization, Selection: sel}
		draft = s.Draft
		return nil
	})
	if err != nil {
		respondWithServiceError(w, err, "Failed to open product")
		return
	}

	log.Debug().Stringer("session_id", id).Str("product_id", req.ProductID).Msg("Selection opened")
	respondWithJSON(w, http.StatusCreated, newSelectionResponse(draft))
}

func (h *SelectionHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := sessionIDParam(r)
	if err != nil {
		respondWithServiceError(w, err, "Failed to get selection")
		return
	}

	s, err := h.sessions.Get(r.Context(), id)
	if err != nil {
		respondWithServiceError(w, err, "Failed to get selection")
		return
	}
	if s.Draft == nil {
		respondWithServiceError(w, session.ErrNoDraft, "Failed to get selection")
		return
	}

	respondWithJSON(w, http.StatusOK, newSelectionResponse(s.Draft))
}

func (h *SelectionHandler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var req UpdateSelectionRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	h.mutate(w, r, func(d *session.Draft) (selection.Selection, error) {
		next := d.Selection
		if req.Size != nil {
			next = next.SetSize(*req.Size)
		}
		if req.Sugar != nil {
			next = next.SetSugar(*req.Sugar)
		}
		if req.Quantity != nil {
			next = next.SetQuantity(*req.Quantity)
		}
		return next, nil
	})
}

func (h *SelectionHandler) handleToggleMilk(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	h.mutate(w, r, func(d *session.Draft) (selection.Selection, error) {
		if _, ok := d.Options.Milk(code); !ok {
			return d.Selection, catalog.ErrUnknownOption
		}
		return d.Selection.ToggleMilk(code, catalog.IsCondensedMilk(code)), nil
	})
}

func (h *SelectionHandler) handleToggleSet(w http.ResponseWriter, r *http.Request) {
	field := selection.Field(chi.URLParam(r, "field"))
	code := chi.URLParam(r, "code")
	h.mutate(w, r, func(d *session.Draft) (selection.Selection, error) {
		return d.Selection.ToggleSet(field, code)
	})
}

// mutate applies fn to the open selection and keeps the result only if it
// is still valid for the product's option set.
func (h *SelectionHandler) mutate(w http.ResponseWriter, r *http.Request, fn func(*session.Draft) (selection.Selection, error)) {
	id, err := sessionIDParam(r)
	if err != nil {
		respondWithServiceError(w, err, "Failed to update selection")
		return
	}

	var draft *session.Draft
	_, err = h.sessions.Update(r.Context(), id, func(s *session.Session) error {
		if s.Draft == nil {
			return session.ErrNoDraft
		}
		next, err := fn(s.Draft)
		if err != nil {
			return err
		}
		if err := s.Draft.Options.ValidateSelection(next.Choice()); err != nil {
			return err
		}
		s.Draft.Selection = next
		draft = s.Draft
		return nil
	})
	if err != nil {
		respondWithServiceError(w, err, "Failed to update selection")
		return
	}

	respondWithJSON(w, http.StatusOK, newSelectionResponse(draft))
}

// handleConfirm freezes the selection into a cart line and closes it.
func (h *SelectionHandler) handleConfirm(w http.ResponseWriter, r *http.Request) {
	id, err := sessionIDParam(r)
	if err != nil {
		respondWithServiceError(w, err, "Failed to add to cart")
		return
	}

	s, err := h.sessions.Update(r.Context(), id, func(s *session.Session) error {
		if s.Draft == nil {
			return session.ErrNoDraft
		}
		if err := s.Draft.Options.ValidateSelection(s.Draft.Selection.Choice()); err != nil {
			return err
		}
		line := cart.NewLine(s.Draft.Product, s.Draft.Selection, s.Draft.Options)
		if err := s.Cart.AddLine(line); err != nil {
			return err
		}
		s.Draft = nil
		return nil
	})
	if err != nil {
		respondWithServiceError(w, err, "Failed to add to cart")
		return
	}

	log.Info().Stringer("session_id", id).Int("cart_items", s.Cart.ItemCount()).Msg("Item added to cart")
	respondWithJSON(w, http.StatusOK, newCartResponse(s))
}

func (h *SelectionHandler) handleDiscard(w http.ResponseWriter, r *http.Request) {
	id, err := sessionIDParam(r)
	if err != nil {
		respondWithServiceError(w, err, "Failed to discard selection")
		return
	}

	_, err = h.sessions.Update(r.Context(), id, func(s *session.Session) error {
		s.Draft = nil
		return nil
	})
	if err != nil {
		respondWithServiceError(w, err, "Failed to discard selection")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
