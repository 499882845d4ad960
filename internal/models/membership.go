package models

import (
	"time"

	"github.com/google/uuid"
)

// Role is the ordered membership role within a chapter.
type Role string

const (
	RolePending Role = "pending_member"
	RoleMember  Role = "member"
	RoleAdmin   Role = "admin"
	RoleOwner   Role = "owner"
)

// roleRank orders roles for threshold comparisons.
var roleRank = map[Role]int{
	RolePending: 0,
	RoleMember:  1,
	RoleAdmin:   2,
	RoleOwner:   3,
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	_, ok := roleRank[r]
	return ok
}

// AtLeast reports whether r meets or exceeds the threshold role.
// Unknown roles never satisfy any threshold.
func (r Role) AtLeast(threshold Role) bool {
	rank, ok := roleRank[r]
	if !ok {
		return false
	}
	want, ok := roleRank[threshold]
	if !ok {
		return false
	}
	return rank >= want
}

// Membership binds one user to one chapter with a role.
// Unique per (user_id, chapter_id).
type Membership struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	ChapterID uuid.UUID `json:"chapter_id"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MembershipSummary is the compact membership view embedded in JWT claims
// and returned by GET /api/me.
type MembershipSummary struct {
	MembershipID uuid.UUID `json:"membership_id"`
	ChapterID    uuid.UUID `json:"chapter_id"`
	ChapterSlug  string    `json:"chapter_slug"`
	Role         Role      `json:"role"`
}

// MemberDetail is a membership joined with its user for admin member lists.
type MemberDetail struct {
	ID       uuid.UUID `json:"id"`
	UserID   uuid.UUID `json:"user_id"`
	Email    string    `json:"email"`
	FullName string    `json:"full_name"`
	Phone    string    `json:"phone,omitempty"`
	Role     Role      `json:"role"`
	JoinedAt time.Time `json:"joined_at"`
}
