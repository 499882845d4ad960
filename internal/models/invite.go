package models

import (
	"time"

	"github.com/google/uuid"
)

// InviteTTL is how long an invite stays valid.
const InviteTTL = 7 * 24 * time.Hour

// Invite is an email invitation into a chapter, consumed once.
type Invite struct {
	ID         uuid.UUID  `json:"id"`
	ChapterID  uuid.UUID  `json:"chapter_id"`
	Email      string     `json:"email"`
	Role       Role       `json:"role"` // role granted on acceptance: member or admin
	Token      string     `json:"-"`
	InvitedBy  uuid.UUID  `json:"invited_by"`
	ExpiresAt  time.Time  `json:"expires_at"`
	AcceptedAt *time.Time `json:"accepted_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// Expired reports whether the invite is past its expiry.
func (i *Invite) Expired(now time.Time) bool {
	return now.After(i.ExpiresAt)
}
