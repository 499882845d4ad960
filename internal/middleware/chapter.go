package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/cwbutler6/greekdash/internal/auth"
	"github.com/cwbutler6/greekdash/internal/models"
	"github.com/cwbutler6/greekdash/pkg/database"
	"github.com/cwbutler6/greekdash/pkg/response"
)

const (
	// ContextChapter is the gin context key for the resolved *models.Chapter.
	ContextChapter = "chapter"
	// ContextMembership is the gin context key for the caller's *models.Membership.
	ContextMembership = "membership"
	// ContextPlan is the gin context key for the chapter's models.Plan.
	ContextPlan = "plan"
)

// ChapterStore resolves chapters by slug.
type ChapterStore interface {
	GetBySlug(ctx context.Context, slug string) (*models.Chapter, error)
}

// MembershipStore resolves the caller's membership in a chapter.
type MembershipStore interface {
	GetByUserAndChapter(ctx context.Context, userID, chapterID uuid.UUID) (*models.Membership, error)
}

// SubscriptionStore resolves the chapter's subscription for plan gating.
type SubscriptionStore interface {
	GetByChapter(ctx context.Context, chapterID uuid.UUID) (*models.Subscription, error)
}

// Decision is the outcome of the tenant access check.
type Decision struct {
	Allow    bool
	Status   int
	Error    string
	Redirect string
}

// Decide applies the tenant access rules to a resolved membership.
// membership is nil when the authenticated user has no relation to the
// chapter. Absence is a normal branch: the caller is redirected, never crashed.
//
//   - no membership        -> 403, redirect to the chapter's join flow
//   - pending member       -> 403, redirect to the waiting page (unless the
//     route explicitly allows pending, e.g. the status check)
//   - role below threshold -> 403, uniform message regardless of resource
func Decide(membership *models.Membership, minRole models.Role, slug string, allowPending bool) Decision {
	if membership == nil {
		return Decision{Status: http.StatusForbidden, Error: "no membership for this chapter", Redirect: "/" + slug + "/join"}
	}
	if membership.Role == models.RolePending {
		if allowPending {
			return Decision{Allow: true}
		}
		return Decision{Status: http.StatusForbidden, Error: "membership pending approval", Redirect: "/" + slug + "/pending"}
	}
	if !membership.Role.AtLeast(minRole) {
		return Decision{Status: http.StatusForbidden, Error: "insufficient permissions"}
	}
	return Decision{Allow: true}
}

// ChapterAccess returns the tenant access middleware. It resolves the chapter
// from the :slug route param, loads the caller's membership for that chapter
// only (never a global query), and applies Decide with the given role
// threshold. On success the chapter and membership are stored in the context.
// Runs after JWT.
func ChapterAccess(chapters ChapterStore, memberships MembershipStore, minRole models.Role) gin.HandlerFunc {
	return chapterAccess(chapters, memberships, minRole, false)
}

// ChapterAccessAllowPending is ChapterAccess for the narrow routes a pending
// member may reach (the membership status check).
func ChapterAccessAllowPending(chapters ChapterStore, memberships MembershipStore) gin.HandlerFunc {
	return chapterAccess(chapters, memberships, models.RolePending, true)
}

func chapterAccess(chapters ChapterStore, memberships MembershipStore, minRole models.Role, allowPending bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		slug := c.Param("slug")
		if slug == "" {
			response.BadRequest(c, "missing chapter slug")
			c.Abort()
			return
		}

		chapter, err := chapters.GetBySlug(c.Request.Context(), slug)
		if err != nil {
			if database.IsNotFound(err) {
				response.NotFound(c, "chapter not found")
			} else {
				response.Internal(c, "failed to resolve chapter")
			}
			c.Abort()
			return
		}

		claims := auth.MustClaims(c)
		membership, err := memberships.GetByUserAndChapter(c.Request.Context(), claims.UserID, chapter.ID)
		if err != nil && !database.IsNotFound(err) {
			response.Internal(c, "failed to resolve membership")
			c.Abort()
			return
		}
		if database.IsNotFound(err) {
			membership = nil
		}

		d := Decide(membership, minRole, slug, allowPending)
		if !d.Allow {
			c.JSON(d.Status, response.Body{Success: false, Error: d.Error, Redirect: d.Redirect})
			c.Abort()
			return
		}

		c.Set(ContextChapter, chapter)
		c.Set(ContextMembership, membership)
		c.Next()
	}
}

// RequirePlan returns a middleware gating a route on a subscription feature.
// Runs after ChapterAccess. A chapter with no subscription row is on the free
// plan.
func RequirePlan(subscriptions SubscriptionStore, feature models.Feature) gin.HandlerFunc {
	return func(c *gin.Context) {
		chapter := MustChapter(c)

		plan := models.PlanFree
		sub, err := subscriptions.GetByChapter(c.Request.Context(), chapter.ID)
		if err != nil && !database.IsNotFound(err) {
			response.Internal(c, "failed to resolve subscription")
			c.Abort()
			return
		}
		if sub != nil && sub.Status == models.SubscriptionStatusActive {
			plan = sub.Plan
		}

		if !plan.HasFeature(feature) {
			response.ForbiddenRedirect(c, "upgrade required for "+string(feature), "/"+chapter.Slug+"/admin/upgrade")
			c.Abort()
			return
		}

		c.Set(ContextPlan, plan)
		c.Next()
	}
}

// MustChapter returns the chapter resolved by ChapterAccess.
func MustChapter(c *gin.Context) *models.Chapter {
	return c.MustGet(ContextChapter).(*models.Chapter)
}

// MustMembership returns the caller's membership resolved by ChapterAccess.
func MustMembership(c *gin.Context) *models.Membership {
	return c.MustGet(ContextMembership).(*models.Membership)
}

// PlanFrom returns the plan resolved by RequirePlan, defaulting to free.
func PlanFrom(c *gin.Context) models.Plan {
	if v, ok := c.Get(ContextPlan); ok {
		if p, ok := v.(models.Plan); ok {
			return p
		}
	}
	return models.PlanFree
}
