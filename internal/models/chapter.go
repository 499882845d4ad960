package models

import (
	"time"

	"github.com/google/uuid"
)

// Chapter represents a tenant: one fraternity/sorority chapter.
// Slug is the immutable, URL-facing identity used in all tenant-scoped routes.
type Chapter struct {
	ID               uuid.UUID `json:"id"`
	Slug             string    `json:"slug"`
	Name             string    `json:"name"`
	JoinCode         string    `json:"-"` // shared secret for self-service join, admin-visible only
	StripeCustomerID string    `json:"-"`
	PrimaryColor     string    `json:"primary_color,omitempty"`
	LogoURL          string    `json:"logo_url,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// ChapterAdminView includes admin-only fields (join code).
type ChapterAdminView struct {
	Chapter
	JoinCode string `json:"join_code"`
}

// AdminView returns the chapter with the join code exposed.
func (ch *Chapter) AdminView() ChapterAdminView {
	return ChapterAdminView{Chapter: *ch, JoinCode: ch.JoinCode}
}

// ChapterPublic is the unauthenticated landing-page view of a chapter.
type ChapterPublic struct {
	Slug          string `json:"slug"`
	Name          string `json:"name"`
	PrimaryColor  string `json:"primary_color,omitempty"`
	LogoURL       string `json:"logo_url,omitempty"`
	UpcomingCount int    `json:"upcoming_event_count"`
}
