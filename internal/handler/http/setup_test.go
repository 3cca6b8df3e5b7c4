package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/vasiliy-maslov/cafe-storefront/internal/account"
	"github.com/vasiliy-maslov/cafe-storefront/internal/catalog"
	"github.com/vasiliy-maslov/cafe-storefront/internal/checkout"
	handler "github.com/vasiliy-maslov/cafe-storefront/internal/handler/http"
	"github.com/vasiliy-maslov/cafe-storefront/internal/order"
	"github.com/vasiliy-maslov/cafe-storefront/internal/review"
	"github.com/vasiliy-maslov/cafe-storefront/internal/session"
)

type MockCatalogService struct {
	mock.Mock
}

func (m *MockCatalogService) FetchOptions(ctx context.Context, productID string) (*catalog.ProductDetail, error) {
	args := m.Called(ctx, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.ProductDetail), args.Error(1)
}

func (m *MockCatalogService) FetchGlobalOptions(ctx context.Context) (*catalog.Options, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Options), args.Error(1)
}

func (m *MockCatalogService) OpenProduct(ctx context.Context, productID string) (*catalog.ProductDetail, error) {
	args := m.Called(ctx, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.ProductDetail), args.Error(1)
}

func (m *MockCatalogService) Menu(ctx context.Context) ([]catalog.Product, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]catalog.Product), args.Error(1)
}

func (m *MockCatalogService) MenuByCategory(ctx context.Context, category catalog.Category) ([]catalog.Product, error) {
	args := m.Called(ctx, category)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]catalog.Product), args.Error(1)
}

func (m *MockCatalogService) Search(ctx context.Context, query string) ([]catalog.Product, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]catalog.Product), args.Error(1)
}

type MockCheckoutService struct {
	mock.Mock
}

func (m *MockCheckoutService) Summary(ctx context.Context, sessionID uuid.UUID) (checkout.Summary, error) {
	args := m.Called(ctx, sessionID)
	return args.Get(0).(checkout.Summary), args.Error(1)
}

func (m *MockCheckoutService) ApplyPromo(ctx context.Context, sessionID uuid.UUID, code string) (checkout.PromoState, error) {
	args := m.Called(ctx, sessionID, code)
	return args.Get(0).(checkout.PromoState), args.Error(1)
}

func (m *MockCheckoutService) Submit(ctx context.Context, sessionID uuid.UUID, info checkout.CustomerInfo) (*checkout.Receipt, error) {
	args := m.Called(ctx, sessionID, info)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*checkout.Receipt), args.Error(1)
}

func (m *MockCheckoutService) VerifyPayment(ctx context.Context, sessionID uuid.UUID, otpCode string) (*checkout.Payment, error) {
	args := m.Called(ctx, sessionID, otpCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*checkout.Payment), args.Error(1)
}

func (m *MockCheckoutService) ResendOTP(ctx context.Context, sessionID uuid.UUID) error {
	args := m.Called(ctx, sessionID)
	return args.Error(0)
}

type MockOrderService struct {
	mock.Mock
}

func (m *MockOrderService) History(ctx context.Context, userID string) ([]order.Order, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]order.Order), args.Error(1)
}

func (m *MockOrderService) Active(ctx context.Context, userID string) ([]order.Order, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]order.Order), args.Error(1)
}

func (m *MockOrderService) Cancel(ctx context.Context, sessionID uuid.UUID, userID, orderID string) (*order.CancelResult, error) {
	args := m.Called(ctx, sessionID, userID, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.CancelResult), args.Error(1)
}

func (m *MockOrderService) MarkReceived(ctx context.Context, sessionID uuid.UUID, userID, orderID string) (*order.Order, error) {
	args := m.Called(ctx, sessionID, userID, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderService) Balance(ctx context.Context, userID string) (decimal.Decimal, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

type MockReviewService struct {
	mock.Mock
}

func (m *MockReviewService) Submit(ctx context.Context, sub review.Submission) error {
	args := m.Called(ctx, sub)
	return args.Error(0)
}

func (m *MockReviewService) ProductReviews(ctx context.Context, productID string, limit int) (*review.ProductReviews, error) {
	args := m.Called(ctx, productID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*review.ProductReviews), args.Error(1)
}

func (m *MockReviewService) UserReviews(ctx context.Context, userID string, limit int) ([]review.Review, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]review.Review), args.Error(1)
}

func (m *MockReviewService) Delete(ctx context.Context, userID string, reviewID int64) error {
	args := m.Called(ctx, userID, reviewID)
	return args.Error(0)
}

type MockAccountService struct {
	mock.Mock
}

func (m *MockAccountService) Favorites(ctx context.Context, userID string) ([]string, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockAccountService) AddFavorite(ctx context.Context, userID, productID string) error {
	args := m.Called(ctx, userID, productID)
	return args.Error(0)
}

func (m *MockAccountService) RemoveFavorite(ctx context.Context, userID, productID string) error {
	args := m.Called(ctx, userID, productID)
	return args.Error(0)
}

func (m *MockAccountService) Wishlist(ctx context.Context, userID string) ([]account.WishlistItem, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]account.WishlistItem), args.Error(1)
}

func (m *MockAccountService) AddToWishlist(ctx context.Context, userID, productID, notes string) error {
	args := m.Called(ctx, userID, productID, notes)
	return args.Error(0)
}

func (m *MockAccountService) RemoveFromWishlist(ctx context.Context, userID, productID string) error {
	args := m.Called(ctx, userID, productID)
	return args.Error(0)
}

func (m *MockAccountService) ClearWishlist(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *MockAccountService) Transactions(ctx context.Context, userID string) ([]account.Transaction, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]account.Transaction), args.Error(1)
}

func (m *MockAccountService) FrequentItems(ctx context.Context, userID string, limit int) ([]account.FrequentItem, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]account.FrequentItem), args.Error(1)
}

type MockLocations struct {
	mock.Mock
}

func (m *MockLocations) Districts(ctx context.Context, city string) ([]string, error) {
	args := m.Called(ctx, city)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockLocations) Wards(ctx context.Context, district string) ([]string, error) {
	args := m.Called(ctx, district)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

type MockStatusStream struct {
	mock.Mock
}

func (m *MockStatusStream) ServeWS(w http.ResponseWriter, r *http.Request, userID string) {
	m.Called(userID)
	w.WriteHeader(http.StatusSwitchingProtocols)
}

type testEnv struct {
	router    *chi.Mux
	sessions  *session.Manager
	catalog   *MockCatalogService
	checkout  *MockCheckoutService
	orders    *MockOrderService
	reviews   *MockReviewService
	accounts  *MockAccountService
	locations *MockLocations
	stream    *MockStatusStream
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		router:    chi.NewRouter(),
		sessions:  session.NewManager(session.NewMemoryStore(), 0),
		catalog:   new(MockCatalogService),
		checkout:  new(MockCheckoutService),
		orders:    new(MockOrderService),
		reviews:   new(MockReviewService),
		accounts:  new(MockAccountService),
		locations: new(MockLocations),
		stream:    new(MockStatusStream),
	}

	handler.NewSessionHandler(env.sessions).RegisterRoutes(env.router)
	handler.NewMenuHandler(env.catalog).RegisterRoutes(env.router)
	handler.NewSelectionHandler(env.sessions, env.catalog).RegisterRoutes(env.router)
	handler.NewCartHandler(env.sessions).RegisterRoutes(env.router)
	handler.NewCheckoutHandler(env.checkout).RegisterRoutes(env.router)
	handler.NewOrderHandler(env.sessions, env.orders, env.stream).RegisterRoutes(env.router)
	handler.NewReviewHandler(env.sessions, env.reviews).RegisterRoutes(env.router)
	handler.NewAccountHandler(env.sessions, env.accounts).RegisterRoutes(env.router)
	handler.NewLocationHandler(env.locations).RegisterRoutes(env.router)

	t.Cleanup(func() {
		env.catalog.AssertExpectations(t)
		env.checkout.AssertExpectations(t)
		env.orders.AssertExpectations(t)
		env.reviews.AssertExpectations(t)
		env.accounts.AssertExpectations(t)
		env.locations.AssertExpectations(t)
		env.stream.AssertExpectations(t)
	})
	return env
}

func (e *testEnv) newSession(t *testing.T) *session.Session {
	t.Helper()
	balance := decimal.NewFromInt(500000)
	s, err := e.sessions.Create(context.Background(), "42", session.Profile{Name: "Lan", Email: "lan@example.com"}, &balance)
	require.NoError(t, err)
	return s
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var payload []byte
	switch b := body.(type) {
	case nil:
	case string:
		payload = []byte(b)
	default:
		var err error
		payload, err = json.Marshal(b)
		require.NoError(t, err)
	}

	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&out), rr.Body.String())
	return out
}

const latteDetail = `{
  "product": {"id": "cf_latte", "name": "Latte", "price": 45000, "category": "coffee", "defaultSugar": 50},
  "customization": {
    "hasSize": true,
    "sizes": {
      "S": {"name": "Small", "priceModifier": -5000},
      "M": {"name": "Medium", "priceModifier": 0},
      "L": {"name": "Large", "priceModifier": 10000}
    },
    "milkOptions": {
      "whole": {"name": "Whole milk", "price": 0},
      "oat": {"name": "Oat milk", "price": 10000},
      "condensed": {"name": "Condensed milk", "price": 5000}
    },
    "hasSugar": true,
    "upsells": {"extra_shot": {"name": "Extra shot", "price": 15000}},
    "toppings": {"pearl": {"name": "Pearl", "price": 8000}}
  }
}`

func latte(t *testing.T) *catalog.ProductDetail {
	t.Helper()
	var d catalog.ProductDetail
	require.NoError(t, json.Unmarshal([]byte(latteDetail), &d))
	return &d
}
