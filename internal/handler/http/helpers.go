package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"

	"github.com/vasiliy-maslov/cafe-storefront/internal/account"
	"github.com/vasiliy-maslov/cafe-storefront/internal/backend"
	"github.com/vasiliy-maslov/cafe-storefront/internal/cart"
	"github.com/vasiliy-maslov/cafe-storefront/internal/catalog"
	"github.com/vasiliy-maslov/cafe-storefront/internal/checkout"
	"github.com/vasiliy-maslov/cafe-storefront/internal/order"
	"github.com/vasiliy-maslov/cafe-storefront/internal/review"
	"github.com/vasiliy-maslov/cafe-storefront/internal/selection"
	"github.com/vasiliy-maslov/cafe-storefront/internal/session"
)

type ValidationErrorResponse struct {
	Error   string            `json:"error"`
	Details map[string]string `json:"details"`
}

var errInvalidSessionID = errors.New("invalid session id")

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload any) {
	response, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"Failed to marshal JSON response"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := w.Write(response); err != nil {
		log.Error().Err(err).Msg("Failed to write JSON response")
	}
}

func respondWithValidation(w http.ResponseWriter, details map[string]string) {
	respondWithJSON(w, http.StatusBadRequest, ValidationErrorResponse{
		Error:   "Validation failed",
		Details: details,
	})
}

func formatValidationErrors(errs validator.ValidationErrors) map[string]string {
	details := make(map[string]string, len(errs))
	for _, fe := range errs {
		name := fe.Field()
		switch fe.Tag() {
		case "required":
			details[name] = "is required"
		case "min":
			details[name] = "must be at least " + fe.Param()
		case "max":
			details[name] = "must be at most " + fe.Param()
		case "oneof":
			details[name] = "must be one of: " + fe.Param()
		case "len":
			details[name] = "must be exactly " + fe.Param() + " characters"
		default:
			details[name] = "is invalid"
		}
	}
	return details
}

// newValidator reports fields under their JSON names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// decodeJSON reads a JSON body into dst. It writes the error response itself
// and reports whether to continue.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		log.Warn().Err(err).Msg("Failed to decode request body")
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return false
	}
	return true
}

// decodeAndValidate is decodeJSON followed by the struct's validate tags.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, v *validator.Validate, dst any) bool {
	if !decodeJSON(w, r, dst) {
		return false
	}

	if err := v.Struct(dst); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			respondWithValidation(w, formatValidationErrors(validationErrors))
		} else {
			log.Error().Err(err).Type("validation_error_type", err).Msg("Unexpected error type during validation")
			respondWithError(w, http.StatusInternalServerError, "Internal validation error")
		}
		return false
	}
	return true
}

func sessionIDParam(r *http.Request) (uuid.UUID, error) {
	raw := chi.URLParam(r, "sid")
	id, err := uuid.FromString(raw)
	if err != nil {
		log.Warn().Err(err).Str("session_id", raw).Msg("Failed to parse session id from URL")
		return uuid.Nil, errInvalidSessionID
	}
	return id, nil
}

type errorRule struct {
	target  error
	status  int
	message string
}

// errorRules is checked in order; the first match wins.
var errorRules = []errorRule{
	{errInvalidSessionID, http.StatusBadRequest, "Invalid session id"},
	{session.ErrNotFound, http.StatusNotFound, "Session not found"},
	{session.ErrNoUser, http.StatusBadRequest, "User id is required"},
	{session.ErrActionInFlight, http.StatusConflict, "Request already in progress"},
	{session.ErrNoDraft, http.StatusConflict, "No product is being customized"},
	{catalog.ErrOptionsUnavailable, http.StatusServiceUnavailable, "Customization options are unavailable"},
	{catalog.ErrInvalidCategory, http.StatusBadRequest, "Unknown category"},
	{catalog.ErrUnknownSize, http.StatusBadRequest, "Unknown size"},
	{catalog.ErrUnknownOption, http.StatusBadRequest, "Unknown option"},
	{catalog.ErrInvalidSugar, http.StatusBadRequest, "Invalid sugar level"},
	{catalog.ErrMilkExclusive, http.StatusBadRequest, "Only one milk can be selected"},
	{catalog.ErrCondensedAlone, http.StatusBadRequest, "Condensed milk needs a regular milk"},
	{selection.ErrUnknownField, http.StatusNotFound, "Unknown option group"},
	{selection.ErrEmptyProduct, http.StatusBadRequest, "Product id is required"},
	{cart.ErrLineNotFound, http.StatusNotFound, "Cart line not found"},
	{cart.ErrInvalidQuantity, http.StatusBadRequest, "Quantity must be at least 1"},
	{checkout.ErrEmptyCart, http.StatusBadRequest, "Cart is empty"},
	{checkout.ErrInvalidOTP, http.StatusBadRequest, "OTP must be 6 digits"},
	{checkout.ErrNoPendingPayment, http.StatusConflict, "No payment is waiting for confirmation"},
	{checkout.ErrPromoRejected, http.StatusBadRequest, "Promo code is not valid"},
	{checkout.ErrInvalidTransition, http.StatusConflict, "Checkout is not in a state to do that"},
	{order.ErrOrderNotFound, http.StatusNotFound, "Order not found"},
	{order.ErrStatusAlreadySet, http.StatusConflict, "Order already has that status"},
	{order.ErrInvalidStatusTransition, http.StatusConflict, "Order can no longer be changed"},
	{review.ErrInvalidRating, http.StatusBadRequest, "Rating must be between 1 and 5"},
	{review.ErrMissingField, http.StatusBadRequest, "Product is required"},
	{account.ErrMissingProduct, http.StatusBadRequest, "Product is required"},
	{backend.ErrNetwork, http.StatusBadGateway, "Connection error"},
}

func mapErrorToStatusCode(err error) int {
	for _, rule := range errorRules {
		if errors.Is(err, rule.target) {
			return rule.status
		}
	}
	var apiErr *backend.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Status >= 400 && apiErr.Status < 500 {
			return apiErr.Status
		}
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// respondWithServiceError renders err the way the browser expects: field
// errors as a validation response, backend errors with the server's detail.
func respondWithServiceError(w http.ResponseWriter, err error, fallback string) {
	var validationErr *checkout.ValidationError
	if errors.As(err, &validationErr) {
		respondWithValidation(w, validationErr.Fields)
		return
	}

	status := mapErrorToStatusCode(err)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Msg(fallback)
	} else {
		log.Warn().Err(err).Int("status", status).Msg(fallback)
	}

	for _, rule := range errorRules {
		if errors.Is(err, rule.target) {
			respondWithError(w, status, rule.message)
			return
		}
	}
	var apiErr *backend.APIError
	if errors.As(err, &apiErr) {
		respondWithError(w, status, backend.Message(err))
		return
	}
	respondWithError(w, status, fallback)
}
