package review

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

const DefaultLimit = 20

var (
	ErrInvalidRating = errors.New("review: rating must be between 1 and 5")
	ErrMissingField  = errors.New("review: user and product are required")
)

type API interface {
	Do(ctx context.Context, method, path string, body, out any) error
}

type Submission struct {
	UserID     string `json:"user_id"`
	ProductID  string `json:"product_id"`
	Rating     int    `json:"rating"`
	ReviewText string `json:"review_text"`
	OrderID    string `json:"order_id,omitempty"`
}

type Review struct {
	ID         int64  `json:"id"`
	UserID     string `json:"user_id"`
	ProductID  string `json:"product_id"`
	Rating     int    `json:"rating"`
	ReviewText string `json:"review_text"`
	CreatedAt  string `json:"created_at"`
}

type ProductReviews struct {
	ProductID     string   `json:"product_id"`
	AverageRating float64  `json:"average_rating"`
	TotalReviews  int      `json:"total_reviews"`
	Reviews       []Review `json:"reviews"`
}

type Service interface {
	Submit(ctx context.Context, sub Submission) error
	ProductReviews(ctx context.Context, productID string, limit int) (*ProductReviews, error)
	UserReviews(ctx context.Context, userID string, limit int) ([]Review, error)
	Delete(ctx context.Context, userID string, reviewID int64) error
}

type service struct {
	api API
}

func NewService(api API) Service {
	return &service{api: api}
}

// Submit checks the rating locally and only then posts the review.
func (s *service) Submit(ctx context.Context, sub Submission) error {
	sub.UserID = strings.TrimSpace(sub.UserID)
	sub.ProductID = strings.TrimSpace(sub.ProductID)
	sub.ReviewText = strings.TrimSpace(sub.ReviewText)

	if sub.UserID == "" || sub.ProductID == "" {
		return ErrMissingField
	}
	if sub.Rating < 1 || sub.Rating > 5 {
		log.Warn().Int("rating", sub.Rating).Str("product_id", sub.ProductID).Msg("service: rejected review rating")
		return ErrInvalidRating
	}

	if err := s.api.Do(ctx, http.MethodPost, "/reviews/submit", sub, nil); err != nil {
		log.Error().Err(err).Str("product_id", sub.ProductID).Msg("service: failed to submit review")
		return fmt.Errorf("service: submit review: %w", err)
	}

	log.Info().Str("user_id", sub.UserID).Str("product_id", sub.ProductID).Int("rating", sub.Rating).Msg("service: review submitted")
	return nil
}

func (s *service) ProductReviews(ctx context.Context, productID string, limit int) (*ProductReviews, error) {
	var out ProductReviews
	path := "/reviews/product/" + url.PathEscape(productID) + "?limit=" + strconv.Itoa(normalizeLimit(limit))
	if err := s.api.Do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, fmt.Errorf("service: product reviews: %w", err)
	}
	if out.Reviews == nil {
		out.Reviews = []Review{}
	}
	return &out, nil
}

func (s *service) UserReviews(ctx context.Context, userID string, limit int) ([]Review, error) {
	var out []Review
	path := "/reviews/user/" + url.PathEscape(userID) + "?limit=" + strconv.Itoa(normalizeLimit(limit))
	if err := s.api.Do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, fmt.Errorf("service: user reviews: %w", err)
	}
	if out == nil {
		out = []Review{}
	}
	return out, nil
}

// Delete removes a review. The backend refuses reviews written by someone else.
func (s *service) Delete(ctx context.Context, userID string, reviewID int64) error {
	path := "/reviews/" + strconv.FormatInt(reviewID, 10) + "?user_id=" + url.QueryEscape(userID)
	if err := s.api.Do(ctx, http.MethodDelete, path, nil, nil); err != nil {
		log.Error().Err(err).Int64("review_id", reviewID).Msg("service: failed to delete review")
		return fmt.Errorf("service: delete review %d: %w", reviewID, err)
	}
	return nil
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	return limit
}
