package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gofrs/uuid"
)

var (
	ErrNotFound  = errors.New("session not found")
	ErrDuplicate = errors.New("session already exists")
)

// Store persists whole sessions. Get returns a copy the caller may modify.
type Store interface {
	Create(ctx context.Context, s *Session) error
	Get(ctx context.Context, id uuid.UUID) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

type memoryStore struct {
	mu   sync.RWMutex
	data map[uuid.UUID]memoryEntry
}

type memoryEntry struct {
	snapshot  []byte
	updatedAt time.Time
}

// NewMemoryStore keeps JSON snapshots in process memory.
func NewMemoryStore() Store {
	return &memoryStore{data: make(map[uuid.UUID]memoryEntry)}
}

func (m *memoryStore) Create(_ context.Context, s *Session) error {
	snapshot, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("store: failed to encode session %s: %w", s.ID, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.data[s.ID]; ok {
		return ErrDuplicate
	}
	m.data[s.ID] = memoryEntry{snapshot: snapshot, updatedAt: s.UpdatedAt}
	return nil
}

func (m *memoryStore) Get(_ context.Context, id uuid.UUID) (*Session, error) {
	m.mu.RLock()
	entry, ok := m.data[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}

	var s Session
	if err := json.Unmarshal(entry.snapshot, &s); err != nil {
		return nil, fmt.Errorf("store: failed to decode session %s: %w", id, err)
	}
	return &s, nil
}

func (m *memoryStore) Save(_ context.Context, s *Session) error {
	snapshot, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("store: failed to encode session %s: %w", s.ID, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.data[s.ID]; !ok {
		return ErrNotFound
	}
	m.data[s.ID] = memoryEntry{snapshot: snapshot, updatedAt: s.UpdatedAt}
	return nil
}

func (m *memoryStore) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.data[id]; !ok {
		return ErrNotFound
	}
	delete(m.data, id)
	return nil
}

func (m *memoryStore) DeleteExpired(_ context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, entry := range m.data {
		if entry.updatedAt.Before(before) {
			delete(m.data, id)
			n++
		}
	}
	return n, nil
}
