package entities

import (
	"time"

	"github.com/google/uuid"
)

// EmailConfirmation is one issued confirmation code. Used flips false to true
// at most once; a user may hold several unused codes at the same time.
type EmailConfirmation struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"userId"`
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expiresAt"`
	Used      bool      `json:"used"`
	CreatedAt time.Time `json:"createdAt"`
}

// IsExpired reports whether the code is no longer accepted at now.
func (c *EmailConfirmation) IsExpired(now time.Time) bool {
	return c.ExpiresAt.Before(now)
}
