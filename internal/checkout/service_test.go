package checkout_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/vasiliy-maslov/cafe-storefront/internal/backend"
	"github.com/vasiliy-maslov/cafe-storefront/internal/cart"
	"github.com/vasiliy-maslov/cafe-storefront/internal/checkout"
)

type MockPaymentAPI struct {
	mock.Mock
}

func (m *MockPaymentAPI) PlaceOrder(ctx context.Context, draft backend.OrderDraft) (*backend.PlacedOrder, error) {
	args := m.Called(ctx, draft)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*backend.PlacedOrder), args.Error(1)
}

func (m *MockPaymentAPI) SendPaymentOTP(ctx context.Context, userID, orderID string, amount decimal.Decimal) error {
	args := m.Called(ctx, userID, orderID, amount)
	return args.Error(0)
}

func (m *MockPaymentAPI) VerifyPaymentOTP(ctx context.Context, userID, orderID, otpCode string) (*backend.PaymentVerified, error) {
	args := m.Called(ctx, userID, orderID, otpCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*backend.PaymentVerified), args.Error(1)
}

func (m *MockPaymentAPI) ValidatePromo(ctx context.Context, code string) (*backend.Promo, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*backend.Promo), args.Error(1)
}

// memorySessions keeps one JSON snapshot per session, like the real stores.
type memorySessions struct {
	mu       sync.Mutex
	states   map[uuid.UUID][]byte
	inFlight map[string]bool
}

func newMemorySessions() *memorySessions {
	return &memorySessions{states: map[uuid.UUID][]byte{}, inFlight: map[string]bool{}}
}

func (m *memorySessions) put(t *testing.T, st checkout.State) uuid.UUID {
	t.Helper()
	id := uuid.Must(uuid.NewV4())
	data, err := json.Marshal(st)
	require.NoError(t, err)
	m.states[id] = data
	return id
}

func (m *memorySessions) Guard(id uuid.UUID, action string) (func(), error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := id.String() + action
	if m.inFlight[key] {
		return nil, errInFlight
	}
	m.inFlight[key] = true
	return func() {
		m.mu.Lock()
		delete(m.inFlight, key)
		m.mu.Unlock()
	}, nil
}

func (m *memorySessions) Checkout(_ context.Context, id uuid.UUID) (checkout.State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var st checkout.State
	err := json.Unmarshal(m.states[id], &st)
	return st, err
}

func (m *memorySessions) UpdateCheckout(ctx context.Context, id uuid.UUID, fn func(*checkout.State) error) error {
	st, err := m.Checkout(ctx, id)
	if err != nil {
		return err
	}
	if err := fn(&st); err != nil {
		return err
	}
	data, err := json.Marshal(st)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.states[id] = data
	m.mu.Unlock()
	return nil
}

var errInFlight = assert.AnError

func latteLine() cart.Line {
	size, sugar := "M", 50
	return cart.Line{
		ProductID: "cf_latte",
		Name:      "Latte",
		Size:      &size,
		Sugar:     &sugar,
		Milks:     []string{"oat"},
		UnitPrice: decimal.NewFromInt(50000),
		Quantity:  2,
	}
}

func customer(method string) checkout.CustomerInfo {
	return checkout.CustomerInfo{
		Name:          "Nguyen Van A",
		Phone:         "0901234567",
		Email:         "a@example.com",
		District:      "Quận 1",
		Ward:          "Phường Bến Nghé",
		Street:        "12 Lê Lợi",
		PaymentMethod: method,
	}
}

func setup(t *testing.T) (checkout.Service, *MockPaymentAPI, *memorySessions, uuid.UUID) {
	t.Helper()
	api := new(MockPaymentAPI)
	sessions := newMemorySessions()
	id := sessions.put(t, checkout.State{
		UserID: "42",
		Cart:   cart.New(latteLine()),
		Promo:  checkout.PromoState{Code: "SAVE10", DiscountPercent: decimal.NewFromInt(10)},
	})
	return checkout.NewService(api, sessions), api, sessions, id
}

func TestService_Submit_MissingWardMakesNoCall(t *testing.T) {
	svc, api, sessions, id := setup(t)
	info := customer(checkout.PaymentCOD)
	info.Ward = ""

	_, err := svc.Submit(context.Background(), id, info)

	var verr *checkout.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "delivery_ward")
	api.AssertNotCalled(t, "PlaceOrder", mock.Anything, mock.Anything)

	st, err := sessions.Checkout(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, 1, st.Cart.Len())
	assert.Equal(t, checkout.FlowState(""), st.Flow)
}

func TestService_Submit_EmptyCart(t *testing.T) {
	api := new(MockPaymentAPI)
	sessions := newMemorySessions()
	id := sessions.put(t, checkout.State{UserID: "42", Cart: cart.New()})
	svc := checkout.NewService(api, sessions)

	_, err := svc.Submit(context.Background(), id, customer(checkout.PaymentCOD))
	assert.ErrorIs(t, err, checkout.ErrEmptyCart)
	api.AssertExpectations(t)
}

func TestService_Submit_CODClearsCart(t *testing.T) {
	svc, api, sessions, id := setup(t)
	ctx := context.Background()

	api.On("PlaceOrder", mock.Anything, mock.MatchedBy(func(d backend.OrderDraft) bool {
		return d.UserID == "42" && d.PromoCode == "SAVE10" && len(d.Items) == 1 && d.PaymentMethod == "cod"
	})).Return(&backend.PlacedOrder{OrderID: "ORD1", Total: decimal.NewFromInt(90000)}, nil).Once()

	receipt, err := svc.Submit(ctx, id, customer(checkout.PaymentCOD))
	require.NoError(t, err)
	assert.Equal(t, "ORD1", receipt.OrderID)
	assert.False(t, receipt.AwaitingOTP)

	st, err := sessions.Checkout(ctx, id)
	require.NoError(t, err)
	assert.True(t, st.Cart.IsEmpty())
	assert.Equal(t, "", st.Promo.Code)
	assert.True(t, st.Promo.DiscountPercent.IsZero())
	assert.Equal(t, checkout.FlowPlaced, st.Flow)

	api.AssertExpectations(t)
	api.AssertNotCalled(t, "SendPaymentOTP", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestService_Submit_BalanceKeepsCartUntilVerified(t *testing.T) {
	svc, api, sessions, id := setup(t)
	ctx := context.Background()
	total := decimal.NewFromInt(90000)

	api.On("PlaceOrder", mock.Anything, mock.Anything).
		Return(&backend.PlacedOrder{OrderID: "ORD2", Total: total}, nil).Once()
	api.On("SendPaymentOTP", mock.Anything, "42", "ORD2", total).Return(nil).Once()

	receipt, err := svc.Submit(ctx, id, customer(checkout.PaymentBalance))
	require.NoError(t, err)
	assert.True(t, receipt.AwaitingOTP)
	assert.True(t, receipt.OTPSent)

	st, err := sessions.Checkout(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 1, st.Cart.Len())
	assert.Equal(t, "SAVE10", st.Promo.Code)
	require.NotNil(t, st.Pending)
	assert.Equal(t, "ORD2", st.Pending.OrderID)
	assert.Equal(t, checkout.FlowPendingPayment, st.Flow)

	_, err = svc.VerifyPayment(ctx, id, "12")
	assert.ErrorIs(t, err, checkout.ErrInvalidOTP)

	api.On("VerifyPaymentOTP", mock.Anything, "42", "ORD2", "000000").
		Return(nil, &backend.APIError{Status: 400, Detail: "Invalid OTP"}).Once()
	_, err = svc.VerifyPayment(ctx, id, "000000")
	var apiErr *backend.APIError
	require.ErrorAs(t, err, &apiErr)

	st, err = sessions.Checkout(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 1, st.Cart.Len())

	newBalance := decimal.NewFromInt(410000)
	api.On("VerifyPaymentOTP", mock.Anything, "42", "ORD2", "123456").
		Return(&backend.PaymentVerified{NewBalance: &newBalance}, nil).Once()

	payment, err := svc.VerifyPayment(ctx, id, "123456")
	require.NoError(t, err)
	assert.Equal(t, "ORD2", payment.OrderID)

	st, err = sessions.Checkout(ctx, id)
	require.NoError(t, err)
	assert.True(t, st.Cart.IsEmpty())
	assert.Equal(t, checkout.PromoState{}.Code, st.Promo.Code)
	assert.Nil(t, st.Pending)
	require.NotNil(t, st.Balance)
	assert.True(t, st.Balance.Equal(newBalance))
	assert.Equal(t, checkout.FlowPaid, st.Flow)

	api.AssertExpectations(t)
}

func TestService_Submit_OTPSendFailureKeepsPending(t *testing.T) {
	svc, api, sessions, id := setup(t)
	ctx := context.Background()

	api.On("PlaceOrder", mock.Anything, mock.Anything).
		Return(&backend.PlacedOrder{OrderID: "ORD3"}, nil).Once()
	// Total missing from the response: the local total is used.
	api.On("SendPaymentOTP", mock.Anything, "42", "ORD3", mock.MatchedBy(func(a decimal.Decimal) bool {
		return a.Equal(decimal.NewFromInt(90000))
	})).
		Return(&backend.APIError{Status: 500, Detail: "Mail server down"}).Once()

	receipt, err := svc.Submit(ctx, id, customer(checkout.PaymentBalance))
	require.NoError(t, err)
	assert.False(t, receipt.OTPSent)
	assert.Equal(t, "Mail server down", receipt.OTPError)

	st, err := sessions.Checkout(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, st.Pending)

	api.On("SendPaymentOTP", mock.Anything, "42", "ORD3", mock.Anything).Return(nil).Once()
	require.NoError(t, svc.ResendOTP(ctx, id))
	api.AssertExpectations(t)
}

func TestService_Submit_NetworkFailureLeavesCart(t *testing.T) {
	svc, api, sessions, id := setup(t)
	ctx := context.Background()

	api.On("PlaceOrder", mock.Anything, mock.Anything).Return(nil, backend.ErrNetwork).Once()

	_, err := svc.Submit(ctx, id, customer(checkout.PaymentCOD))
	assert.ErrorIs(t, err, backend.ErrNetwork)

	st, err := sessions.Checkout(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 1, st.Cart.Len())
	assert.Equal(t, "SAVE10", st.Promo.Code)
	assert.Equal(t, checkout.FlowDraft, st.Flow)
}

func TestService_Submit_FailedResubmitKeepsPendingPayment(t *testing.T) {
	svc, api, sessions, id := setup(t)
	ctx := context.Background()
	total := decimal.NewFromInt(90000)

	api.On("PlaceOrder", mock.Anything, mock.Anything).
		Return(&backend.PlacedOrder{OrderID: "ORD1", Total: total}, nil).Once()
	api.On("SendPaymentOTP", mock.Anything, "42", "ORD1", total).Return(nil).Once()

	_, err := svc.Submit(ctx, id, customer(checkout.PaymentBalance))
	require.NoError(t, err)

	api.On("PlaceOrder", mock.Anything, mock.Anything).Return(nil, backend.ErrNetwork).Once()
	_, err = svc.Submit(ctx, id, customer(checkout.PaymentBalance))
	require.ErrorIs(t, err, backend.ErrNetwork)

	st, err := sessions.Checkout(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, st.Pending)
	assert.Equal(t, "ORD1", st.Pending.OrderID)
	assert.Equal(t, checkout.FlowPendingPayment, st.Flow)
	assert.Equal(t, 1, st.Cart.Len())
	assert.Equal(t, "SAVE10", st.Promo.Code)

	api.On("VerifyPaymentOTP", mock.Anything, "42", "ORD1", "123456").
		Return(&backend.PaymentVerified{}, nil).Once()
	payment, err := svc.VerifyPayment(ctx, id, "123456")
	require.NoError(t, err)
	assert.Equal(t, "ORD1", payment.OrderID)

	api.AssertExpectations(t)
}

func TestService_Submit_InFlight(t *testing.T) {
	svc, api, sessions, id := setup(t)

	release, err := sessions.Guard(id, checkout.ActionSubmit)
	require.NoError(t, err)
	defer release()

	_, err = svc.Submit(context.Background(), id, customer(checkout.PaymentCOD))
	assert.ErrorIs(t, err, errInFlight)
	api.AssertNotCalled(t, "PlaceOrder", mock.Anything, mock.Anything)
}

func TestService_VerifyAndResend_NoPending(t *testing.T) {
	svc, _, _, id := setup(t)

	_, err := svc.VerifyPayment(context.Background(), id, "123456")
	assert.ErrorIs(t, err, checkout.ErrNoPendingPayment)
	assert.ErrorIs(t, svc.ResendOTP(context.Background(), id), checkout.ErrNoPendingPayment)
}

func TestService_ApplyPromo(t *testing.T) {
	svc, api, sessions, id := setup(t)
	ctx := context.Background()

	_, err := svc.ApplyPromo(ctx, id, "  ")
	var verr *checkout.ValidationError
	require.ErrorAs(t, err, &verr)

	api.On("ValidatePromo", mock.Anything, "WELCOME20").
		Return(&backend.Promo{Code: "WELCOME20", Status: "valid", DiscountPercent: decimal.NewFromInt(20)}, nil).Once()

	promo, err := svc.ApplyPromo(ctx, id, "welcome20")
	require.NoError(t, err)
	assert.Equal(t, "WELCOME20", promo.Code)

	summary, err := svc.Summary(ctx, id)
	require.NoError(t, err)
	assert.True(t, summary.Discount.Equal(decimal.NewFromInt(20000)))
	assert.True(t, summary.Total.Equal(decimal.NewFromInt(80000)))

	api.On("ValidatePromo", mock.Anything, "OLD").
		Return(nil, &backend.APIError{Status: 400, Detail: "Promo code expired"}).Once()
	_, err = svc.ApplyPromo(ctx, id, "old")
	require.Error(t, err)

	st, err := sessions.Checkout(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "WELCOME20", st.Promo.Code)
	api.AssertExpectations(t)
}
