package session

import (
	"time"

	"github.com/gofrs/uuid"

	"github.com/vasiliy-maslov/cafe-storefront/internal/catalog"
	"github.com/vasiliy-maslov/cafe-storefront/internal/checkout"
	"github.com/vasiliy-maslov/cafe-storefront/internal/selection"
)

// Profile is what the auth service told us about the signed-in user.
type Profile struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

// Draft is an open customization: the product, its option set and the
// choices made so far.
type Draft struct {
	Product   catalog.Product     `json:"product"`
	Options   catalog.Options     `json:"options"`
	Selection selection.Selection `json:"selection"`
}

// Session is the state of one signed-in browser: created at login, removed at
// logout.
type Session struct {
	ID      uuid.UUID `json:"id"`
	Profile Profile   `json:"profile"`
	checkout.State
	Draft     *Draft    `json:"draft,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (s *Session) expired(ttl time.Duration, now time.Time) bool {
	return ttl > 0 && now.Sub(s.UpdatedAt) > ttl
}
