package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/semaphore"

	"github.com/vasiliy-maslov/cafe-storefront/internal/cart"
	"github.com/vasiliy-maslov/cafe-storefront/internal/checkout"
)

var (
	ErrActionInFlight = errors.New("session: action already in progress")
	ErrNoUser         = errors.New("session: user id is required")
	ErrNoDraft        = errors.New("session: no product is being customized")
)

// Manager serializes all changes to a session and guards its network actions.
type Manager struct {
	store Store
	ttl   time.Duration
	now   func() time.Time

	mu     sync.Mutex
	locks  map[uuid.UUID]*sync.Mutex
	guards map[guardKey]*semaphore.Weighted
}

type guardKey struct {
	id     uuid.UUID
	action string
}

func NewManager(store Store, ttl time.Duration) *Manager {
	return &Manager{
		store:  store,
		ttl:    ttl,
		now:    time.Now,
		locks:  make(map[uuid.UUID]*sync.Mutex),
		guards: make(map[guardKey]*semaphore.Weighted),
	}
}

// Create starts an empty session for a signed-in user.
func (m *Manager) Create(ctx context.Context, userID string, profile Profile, balance *decimal.Decimal) (*Session, error) {
	if userID == "" {
		return nil, ErrNoUser
	}

	id, err := uuid.NewV4()
	if err != nil {
		return nil, fmt.Errorf("session: failed to generate id: %w", err)
	}

	now := m.now().UTC()
	s := &Session{
		ID:      id,
		Profile: profile,
		State: checkout.State{
			UserID:  userID,
			Balance: balance,
			Cart:    cart.New(),
			Flow:    checkout.FlowDraft,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := m.store.Create(ctx, s); err != nil {
		return nil, fmt.Errorf("session: create: %w", err)
	}

	log.Info().Stringer("session_id", id).Str("user_id", userID).Msg("session: created")
	return s, nil
}

func (m *Manager) Get(ctx context.Context, id uuid.UUID) (*Session, error) {
	s, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.expired(m.ttl, m.now()) {
		log.Info().Stringer("session_id", id).Msg("session: expired")
		if err := m.store.Delete(ctx, id); err != nil && !errors.Is(err, ErrNotFound) {
			log.Error().Err(err).Stringer("session_id", id).Msg("session: failed to delete expired session")
		}
		m.forget(id)
		return nil, ErrNotFound
	}
	if s.Cart == nil {
		s.Cart = cart.New()
	}
	return s, nil
}

// Update loads the session, applies fn and saves the result. Calls for the
// same session run one at a time. Nothing is saved when fn fails.
func (m *Manager) Update(ctx context.Context, id uuid.UUID, fn func(*Session) error) (*Session, error) {
	lock := m.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	s, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(s); err != nil {
		return nil, err
	}
	s.UpdatedAt = m.now().UTC()
	if err := m.store.Save(ctx, s); err != nil {
		return nil, fmt.Errorf("session: save: %w", err)
	}
	return s, nil
}

// Logout drops the cart, promo and open selection and forgets the session.
func (m *Manager) Logout(ctx context.Context, id uuid.UUID) error {
	lock := m.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	err := m.store.Delete(ctx, id)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	m.forget(id)
	if err != nil {
		return err
	}

	log.Info().Stringer("session_id", id).Msg("session: logged out")
	return nil
}

// Guard marks action as in flight for the session. It fails immediately with
// ErrActionInFlight if the same action is already running.
func (m *Manager) Guard(id uuid.UUID, action string) (func(), error) {
	m.mu.Lock()
	key := guardKey{id: id, action: action}
	sem, ok := m.guards[key]
	if !ok {
		sem = semaphore.NewWeighted(1)
		m.guards[key] = sem
	}
	m.mu.Unlock()

	if !sem.TryAcquire(1) {
		log.Warn().Stringer("session_id", id).Str("action", action).Msg("session: duplicate action rejected")
		return nil, fmt.Errorf("%w: %s", ErrActionInFlight, action)
	}

	var once sync.Once
	return func() { once.Do(func() { sem.Release(1) }) }, nil
}

func (m *Manager) Checkout(ctx context.Context, id uuid.UUID) (checkout.State, error) {
	s, err := m.Get(ctx, id)
	if err != nil {
		return checkout.State{}, err
	}
	return s.State, nil
}

func (m *Manager) UpdateCheckout(ctx context.Context, id uuid.UUID, fn func(*checkout.State) error) error {
	_, err := m.Update(ctx, id, func(s *Session) error {
		return fn(&s.State)
	})
	return err
}

// Sweep removes sessions idle for longer than the TTL.
func (m *Manager) Sweep(ctx context.Context) (int64, error) {
	if m.ttl <= 0 {
		return 0, nil
	}
	n, err := m.store.DeleteExpired(ctx, m.now().Add(-m.ttl))
	if err != nil {
		return 0, fmt.Errorf("session: sweep: %w", err)
	}
	if n > 0 {
		log.Info().Int64("removed", n).Msg("session: expired sessions swept")
	}
	m.prune(ctx)
	return n, nil
}

// prune drops locks and guards of sessions the store no longer has.
func (m *Manager) prune(ctx context.Context) {
	m.mu.Lock()
	ids := make(map[uuid.UUID]struct{}, len(m.locks))
	for id := range m.locks {
		ids[id] = struct{}{}
	}
	for key := range m.guards {
		ids[key.id] = struct{}{}
	}
	m.mu.Unlock()

	for id := range ids {
		if _, err := m.store.Get(ctx, id); errors.Is(err, ErrNotFound) {
			m.forget(id)
		}
	}
}

func (m *Manager) forget(id uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locks, id)
	for key := range m.guards {
		if key.id == id {
			delete(m.guards, key)
		}
	}
}
