package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/vasiliy-maslov/cafe-storefront/internal/checkout"
)

type ApplyPromoRequest struct {
	Code string `json:"code"`
}

type PromoResponse struct {
	Promo   checkout.PromoState `json:"promo"`
	Summary checkout.Summary    `json:"summary"`
}

type VerifyOTPRequest struct {
	OTPCode string `json:"otp_code"`
}

type CheckoutHandler struct {
	checkout checkout.Service
	validate *validator.Validate
}

func NewCheckoutHandler(svc checkout.Service) *CheckoutHandler {
	return &CheckoutHandler{checkout: svc, validate: newValidator()}
}

func (h *CheckoutHandler) RegisterRoutes(router chi.Router) {
	router.Post("/sessions/{sid}/promo", h.handleApplyPromo)
	router.Post("/sessions/{sid}/checkout", h.handleSubmit)
	router.Post("/sessions/{sid}/checkout/otp", h.handleVerifyOTP)
	router.Post("/sessions/{sid}/checkout/otp/resend", h.handleResendOTP)
}

func (h *CheckoutHandler) handleApplyPromo(w http.ResponseWriter, r *http.Request) {
	id, err := sessionIDParam(r)
	if err != nil {
		respondWithServiceError(w, err, "Failed to apply promo code")
		return
	}

	var req ApplyPromoRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	promo, err := h.checkout.ApplyPromo(r.Context(), id, req.Code)
	if err != nil {
		respondWithServiceError(w, err, "Failed to apply promo code")
		return
	}

	summary, err := h.checkout.Summary(r.Context(), id)
	if err != nil {
		respondWithServiceError(w, err, "Failed to apply promo code")
		return
	}
	respondWithJSON(w, http.StatusOK, PromoResponse{Promo: promo, Summary: summary})
}

// handleSubmit takes the customer form. The service validates it so field
// errors and the empty-cart check come back in the same order as the UI
// shows them.
func (h *CheckoutHandler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	id, err := sessionIDParam(r)
	if err != nil {
		respondWithServiceError(w, err, "Failed to place order")
		return
	}

	var info checkout.CustomerInfo
	if !decodeJSON(w, r, &info) {
		return
	}

	receipt, err := h.checkout.Submit(r.Context(), id, info)
	if err != nil {
		respondWithServiceError(w, err, "Failed to place order")
		return
	}

	status := http.StatusCreated
	if receipt.AwaitingOTP {
		status = http.StatusAccepted
	}
	respondWithJSON(w, status, receipt)
}

func (h *CheckoutHandler) handleVerifyOTP(w http.ResponseWriter, r *http.Request) {
	id, err := sessionIDParam(r)
	if err != nil {
		respondWithServiceError(w, err, "Failed to verify payment")
		return
	}

	var req VerifyOTPRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	payment, err := h.checkout.VerifyPayment(r.Context(), id, req.OTPCode)
	if err != nil {
		respondWithServiceError(w, err, "Failed to verify payment")
		return
	}
	respondWithJSON(w, http.StatusOK, payment)
}

func (h *CheckoutHandler) handleResendOTP(w http.ResponseWriter, r *http.Request) {
	id, err := sessionIDParam(r)
	if err != nil {
		respondWithServiceError(w, err, "Failed to resend OTP")
		return
	}

	if err := h.checkout.ResendOTP(r.Context(), id); err != nil {
		respondWithServiceError(w, err, "Failed to resend OTP")
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "sent"})
}
