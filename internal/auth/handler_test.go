package auth

import (
	"testing"

	"github.com/cwbutler6/greekdash/internal/models"
)

func TestSelectDefaultChapter(t *testing.T) {
	tests := []struct {
		name        string
		memberships []models.MembershipSummary
		wantSlug    string
		wantPending bool
		wantOK      bool
	}{
		{
			name:   "no memberships",
			wantOK: false,
		},
		{
			name: "single active membership",
			memberships: []models.MembershipSummary{
				{ChapterSlug: "sigma", Role: models.RoleMember},
			},
			wantSlug: "sigma",
			wantOK:   true,
		},
		{
			name: "active wins over earlier pending",
			memberships: []models.MembershipSummary{
				{ChapterSlug: "alpha", Role: models.RolePending},
				{ChapterSlug: "sigma", Role: models.RoleOwner},
			},
			wantSlug: "sigma",
			wantOK:   true,
		},
		{
			name: "only pending memberships",
			memberships: []models.MembershipSummary{
				{ChapterSlug: "alpha", Role: models.RolePending},
				{ChapterSlug: "beta", Role: models.RolePending},
			},
			wantSlug:    "alpha",
			wantPending: true,
			wantOK:      true,
		},
		{
			name: "first active of several",
			memberships: []models.MembershipSummary{
				{ChapterSlug: "alpha", Role: models.RoleMember},
				{ChapterSlug: "beta", Role: models.RoleAdmin},
			},
			wantSlug: "alpha",
			wantOK:   true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			slug, pending, ok := SelectDefaultChapter(tt.memberships)
			if ok != tt.wantOK || slug != tt.wantSlug || pending != tt.wantPending {
				t.Fatalf("got (%q, %v, %v), want (%q, %v, %v)",
					slug, pending, ok, tt.wantSlug, tt.wantPending, tt.wantOK)
			}
		})
	}
}
