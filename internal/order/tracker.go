package order

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Tracker polls the active orders of every user with an open socket and
// publishes status changes to the hub.
type Tracker struct {
	svc      Service
	hub      *Hub
	interval time.Duration

	mu   sync.Mutex
	last map[string]map[string]Status
}

func NewTracker(svc Service, hub *Hub, interval time.Duration) *Tracker {
	return &Tracker{
		svc:      svc,
		hub:      hub,
		interval: interval,
		last:     make(map[string]map[string]Status),
	}
}

// Run polls until ctx is cancelled.
func (t *Tracker) Run(ctx context.Context) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	log.Info().Dur("interval", t.interval).Msg("tracker: started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("tracker: stopped")
			return
		case <-ticker.C:
			t.Poll(ctx)
		}
	}
}

// Poll runs one pass over the connected users.
func (t *Tracker) Poll(ctx context.Context) {
	users := t.hub.Users()

	t.mu.Lock()
	connected := make(map[string]bool, len(users))
	for _, u := range users {
		connected[u] = true
	}
	for u := range t.last {
		if !connected[u] {
			delete(t.last, u)
		}
	}
	t.mu.Unlock()

	for _, userID := range users {
		orders, err := t.svc.History(ctx, userID)
		if err != nil {
			log.Warn().Err(err).Str("user_id", userID).Msg("tracker: poll failed")
			continue
		}
		for _, change := range t.diff(userID, orders) {
			t.hub.Publish(userID, change)
		}
	}
}

// diff records the latest statuses and returns what changed. The first poll
// for a user only records.
func (t *Tracker) diff(userID string, orders []Order) []StatusChange {
	t.mu.Lock()
	defer t.mu.Unlock()

	prev, seen := t.last[userID]
	next := make(map[string]Status, len(orders))
	var changes []StatusChange

	for _, o := range orders {
		old, known := prev[o.ID]
		// Finished orders are only tracked to report the move into that state.
		if !o.Status.IsActive() && (!known || !old.IsActive()) {
			continue
		}
		next[o.ID] = o.Status
		if seen && old != o.Status {
			changes = append(changes, StatusChange{
				Type:     "order_status",
				OrderID:  o.ID,
				Previous: old,
				Status:   o.Status,
				Order:    o,
			})
		}
	}
	t.last[userID] = next
	return changes
}
