package models

import (
	"time"

	"github.com/google/uuid"
)

// PasswordResetTTL is how long a reset token stays valid.
const PasswordResetTTL = time.Hour

// PasswordResetToken is a single-use token emailed on forgot-password.
type PasswordResetToken struct {
	ID        uuid.UUID  `json:"id"`
	UserID    uuid.UUID  `json:"user_id"`
	Token     string     `json:"-"`
	ExpiresAt time.Time  `json:"expires_at"`
	UsedAt    *time.Time `json:"used_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}
