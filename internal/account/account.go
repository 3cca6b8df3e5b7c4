package account

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// DefaultFrequentLimit is how many frequent items are returned when no limit is given.
const DefaultFrequentLimit = 5

var ErrMissingProduct = errors.New("account: product id is required")

type API interface {
	Do(ctx context.Context, method, path string, body, out any) error
}

type productRequest struct {
	UserID    string `json:"user_id"`
	ProductID string `json:"product_id"`
	Notes     string `json:"notes,omitempty"`
}

type favorite struct {
	ProductID string `json:"product_id"`
}

type WishlistItem struct {
	ID        int64  `json:"id"`
	UserID    string `json:"user_id"`
	ProductID string `json:"product_id"`
	Notes     string `json:"notes,omitempty"`
	AddedAt   string `json:"added_at"`
}

// Transaction is one wallet movement: a balance payment or a refund.
type Transaction struct {
	ID            int64           `json:"id"`
	Type          string          `json:"type"`
	Amount        decimal.Decimal `json:"amount"`
	BalanceBefore decimal.Decimal `json:"balance_before"`
	BalanceAfter  decimal.Decimal `json:"balance_after"`
	OrderID       string          `json:"order_id,omitempty"`
	Description   string          `json:"description,omitempty"`
	CreatedAt     string          `json:"created_at"`
}

// Customization is the configuration a frequent item was last ordered with.
// Sugar arrives as a number or a numeric string.
type Customization struct {
	Size        string      `json:"size,omitempty"`
	Temperature string      `json:"temperature,omitempty"`
	Milk        string      `json:"milk,omitempty"`
	Sugar       json.Number `json:"sugar,omitempty"`
	Upsells     []string    `json:"upsells,omitempty"`
}

type FrequentItem struct {
	ProductID     string          `json:"product_id"`
	ProductName   string          `json:"product_name"`
	Icon          string          `json:"icon,omitempty"`
	Image         string          `json:"image,omitempty"`
	Price         decimal.Decimal `json:"price"`
	OrderCount    int             `json:"order_count"`
	Customization Customization   `json:"customization"`
	LastOrderedAt string          `json:"last_ordered_at,omitempty"`
}

type Service interface {
	Favorites(ctx context.Context, userID string) ([]string, error)
	AddFavorite(ctx context.Context, userID, productID string) error
	RemoveFavorite(ctx context.Context, userID, productID string) error

	Wishlist(ctx context.Context, userID string) ([]WishlistItem, error)
	AddToWishlist(ctx context.Context, userID, productID, notes string) error
	RemoveFromWishlist(ctx context.Context, userID, productID string) error
	ClearWishlist(ctx context.Context, userID string) error

	Transactions(ctx context.Context, userID string) ([]Transaction, error)
	FrequentItems(ctx context.Context, userID string, limit int) ([]FrequentItem, error)
}

type service struct {
	api API
}

func NewService(api API) Service {
	return &service{api: api}
}

func (s *service) Favorites(ctx context.Context, userID string) ([]string, error) {
	var rows []favorite
	if err := s.api.Do(ctx, http.MethodGet, "/favorites/"+url.PathEscape(userID), nil, &rows); err != nil {
		return nil, fmt.Errorf("service: favorites: %w", err)
	}
	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ProductID)
	}
	return ids, nil
}

func (s *service) AddFavorite(ctx context.Context, userID, productID string) error {
	return s.post(ctx, "/favorites/add", userID, productID, "", "add favorite")
}

func (s *service) RemoveFavorite(ctx context.Context, userID, productID string) error {
	return s.post(ctx, "/favorites/remove", userID, productID, "", "remove favorite")
}

func (s *service) Wishlist(ctx context.Context, userID string) ([]WishlistItem, error) {
	var items []WishlistItem
	if err := s.api.Do(ctx, http.MethodGet, "/wishlist/"+url.PathEscape(userID), nil, &items); err != nil {
		return nil, fmt.Errorf("service: wishlist: %w", err)
	}
	if items == nil {
		items = []WishlistItem{}
	}
	return items, nil
}

func (s *service) AddToWishlist(ctx context.Context, userID, productID, notes string) error {
	return s.post(ctx, "/wishlist/add", userID, productID, strings.TrimSpace(notes), "add to wishlist")
}

func (s *service) RemoveFromWishlist(ctx context.Context, userID, productID string) error {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return ErrMissingProduct
	}
	path := "/wishlist/" + url.PathEscape(productID) + "?user_id=" + url.QueryEscape(userID)
	if err := s.api.Do(ctx, http.MethodDelete, path, nil, nil); err != nil {
		log.Error().Err(err).Str("product_id", productID).Msg("service: failed to remove wishlist item")
		return fmt.Errorf("service: remove from wishlist: %w", err)
	}
	return nil
}

func (s *service) ClearWishlist(ctx context.Context, userID string) error {
	if err := s.api.Do(ctx, http.MethodPost, "/wishlist/clear?user_id="+url.QueryEscape(userID), nil, nil); err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("service: failed to clear wishlist")
		return fmt.Errorf("service: clear wishlist: %w", err)
	}
	return nil
}

func (s *service) Transactions(ctx context.Context, userID string) ([]Transaction, error) {
	var out struct {
		Transactions []Transaction `json:"transactions"`
	}
	if err := s.api.Do(ctx, http.MethodGet, "/transactions?user_id="+url.QueryEscape(userID), nil, &out); err != nil {
		return nil, fmt.Errorf("service: transactions: %w", err)
	}
	if out.Transactions == nil {
		out.Transactions = []Transaction{}
	}
	return out.Transactions, nil
}

// FrequentItems lists the configurations the user orders most, most ordered first.
func (s *service) FrequentItems(ctx context.Context, userID string, limit int) ([]FrequentItem, error) {
	if limit <= 0 {
		limit = DefaultFrequentLimit
	}
	var out struct {
		Items []FrequentItem `json:"items"`
	}
	path := "/frequent-items?user_id=" + url.QueryEscape(userID) + "&limit=" + strconv.Itoa(limit)
	if err := s.api.Do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, fmt.Errorf("service: frequent items: %w", err)
	}
	if out.Items == nil {
		out.Items = []FrequentItem{}
	}
	return out.Items, nil
}

func (s *service) post(ctx context.Context, path, userID, productID, notes, action string) error {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return ErrMissingProduct
	}
	body := productRequest{UserID: userID, ProductID: productID, Notes: notes}
	if err := s.api.Do(ctx, http.MethodPost, path, body, nil); err != nil {
		log.Error().Err(err).Str("product_id", productID).Msgf("service: failed to %s", action)
		return fmt.Errorf("service: %s: %w", action, err)
	}
	log.Debug().Str("user_id", userID).Str("product_id", productID).Msgf("service: %s", action)
	return nil
}
