package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
)

var (
	ErrOptionsUnavailable = errors.New("catalog: customization options unavailable")
	ErrInvalidCategory    = errors.New("catalog: invalid category")
)

// Fetcher is the slice of the backend client the catalog needs.
type Fetcher interface {
	Do(ctx context.Context, method, path string, body, out any) error
}

type Service interface {
	FetchOptions(ctx context.Context, productID string) (*ProductDetail, error)
	FetchGlobalOptions(ctx context.Context) (*Options, error)
	OpenProduct(ctx context.Context, productID string) (*ProductDetail, error)
	Menu(ctx context.Context) ([]Product, error)
	MenuByCategory(ctx context.Context, category Category) ([]Product, error)
	Search(ctx context.Context, query string) ([]Product, error)
}

type service struct {
	api Fetcher

	mu     sync.Mutex
	global *Options
}

func NewService(api Fetcher) Service {
	return &service{api: api}
}

func (s *service) FetchOptions(ctx context.Context, productID string) (*ProductDetail, error) {
	if productID == "" {
		return nil, fmt.Errorf("service: fetch options: %w: empty product id", ErrOptionsUnavailable)
	}

	var detail ProductDetail
	if err := s.api.Do(ctx, http.MethodGet, "/menu/product/"+url.PathEscape(productID), nil, &detail); err != nil {
		log.Error().Err(err).Str("product_id", productID).Msg("service: failed to fetch product options")
		return nil, fmt.Errorf("%w: %w", ErrOptionsUnavailable, err)
	}
	if detail.Product.ID == "" {
		detail.Product.ID = productID
	}
	return &detail, nil
}

// FetchGlobalOptions returns the shared option set. The first successful
// response is kept for the life of the process.
func (s *service) FetchGlobalOptions(ctx context.Context) (*Options, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.global != nil {
		log.Debug().Msg("service: global options served from cache")
		return s.global, nil
	}

	var opts Options
	if err := s.api.Do(ctx, http.MethodGet, "/menu/options/all", nil, &opts); err != nil {
		log.Error().Err(err).Msg("service: failed to fetch global options")
		return nil, fmt.Errorf("%w: %w", ErrOptionsUnavailable, err)
	}
	s.global = &opts
	return s.global, nil
}

func (s *service) OpenProduct(ctx context.Context, productID string) (*ProductDetail, error) {
	if _, err := s.FetchGlobalOptions(ctx); err != nil {
		log.Warn().Err(err).Msg("service: continuing without global options")
	}
	return s.FetchOptions(ctx, productID)
}

// menuResponse covers both list shapes the API returns: {items} for menu
// listings and {results} for search.
type menuResponse struct {
	Items   []Product `json:"items"`
	Results []Product `json:"results"`
}

// MinSearchLength is the shortest query forwarded to the API.
const MinSearchLength = 2

func (s *service) Menu(ctx context.Context) ([]Product, error) {
	return s.list(ctx, "/menu")
}

func (s *service) MenuByCategory(ctx context.Context, category Category) ([]Product, error) {
	if !category.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidCategory, category)
	}
	return s.list(ctx, "/menu/"+string(category))
}

func (s *service) Search(ctx context.Context, query string) ([]Product, error) {
	query = strings.TrimSpace(query)
	if len([]rune(query)) < MinSearchLength {
		return []Product{}, nil
	}
	return s.list(ctx, "/menu/search?q="+url.QueryEscape(query))
}

func (s *service) list(ctx context.Context, path string) ([]Product, error) {
	var resp menuResponse
	if err := s.api.Do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		log.Error().Err(err).Str("path", path).Msg("service: failed to fetch menu")
		return nil, fmt.Errorf("service: menu: %w", err)
	}
	products := resp.Items
	if products == nil {
		products = resp.Results
	}
	if products == nil {
		products = []Product{}
	}
	return products, nil
}
