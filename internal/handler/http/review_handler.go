package http

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/vasiliy-maslov/cafe-storefront/internal/review"
)

type SubmitReviewRequest struct {
	ProductID  string `json:"product_id" validate:"required"`
	Rating     int    `json:"rating"`
	ReviewText string `json:"review_text"`
	OrderID    string `json:"order_id"`
}

type ReviewsResponse struct {
	Reviews []review.Review `json:"reviews"`
}

type ReviewHandler struct {
	sessions Sessions
	reviews  review.Service
	validate *validator.Validate
}

func NewReviewHandler(sessions Sessions, reviews review.Service) *ReviewHandler {
	return &ReviewHandler{sessions: sessions, reviews: reviews, validate: newValidator()}
}

func (h *ReviewHandler) RegisterRoutes(router chi.Router) {
	router.Get("/products/{pid}/reviews", h.handleProductReviews)
	router.Get("/sessions/{sid}/reviews", h.handleUserReviews)
	router.Post("/sessions/{sid}/reviews", h.handleSubmit)
	router.Delete("/sessions/{sid}/reviews/{rid}", h.handleDelete)
}

func (h *ReviewHandler) userID(r *http.Request) (string, error) {
	id, err := sessionIDParam(r)
	if err != nil {
		return "", err
	}
	s, err := h.sessions.Get(r.Context(), id)
	if err != nil {
		return "", err
	}
	return s.UserID, nil
}

func (h *ReviewHandler) handleProductReviews(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	reviews, err := h.reviews.ProductReviews(r.Context(), chi.URLParam(r, "pid"), limit)
	if err != nil {
		respondWithServiceError(w, err, "Failed to load reviews")
		return
	}
	respondWithJSON(w, http.StatusOK, reviews)
}

func (h *ReviewHandler) handleUserReviews(w http.ResponseWriter, r *http.Request) {
	userID, err := h.userID(r)
	if err != nil {
		respondWithServiceError(w, err, "Failed to load reviews")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	reviews, err := h.reviews.UserReviews(r.Context(), userID, limit)
	if err != nil {
		respondWithServiceError(w, err, "Failed to load reviews")
		return
	}
	respondWithJSON(w, http.StatusOK, ReviewsResponse{Reviews: reviews})
}

func (h *ReviewHandler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	userID, err := h.userID(r)
	if err != nil {
		respondWithServiceError(w, err, "Failed to submit review")
		return
	}

	var req SubmitReviewRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	err = h.reviews.Submit(r.Context(), review.Submission{
		UserID:     userID,
		ProductID:  req.ProductID,
		Rating:     req.Rating,
		ReviewText: req.ReviewText,
		OrderID:    req.OrderID,
	})
	if err != nil {
		respondWithServiceError(w, err, "Failed to submit review")
		return
	}
	respondWithJSON(w, http.StatusCreated, map[string]string{"status": "success"})
}

func (h *ReviewHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	userID, err := h.userID(r)
	if err != nil {
		respondWithServiceError(w, err, "Failed to delete review")
		return
	}

	reviewID, err := strconv.ParseInt(chi.URLParam(r, "rid"), 10, 64)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid review id")
		return
	}

	if err := h.reviews.Delete(r.Context(), userID, reviewID); err != nil {
		respondWithServiceError(w, err, "Failed to delete review")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
