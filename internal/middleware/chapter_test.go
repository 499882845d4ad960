package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/cwbutler6/greekdash/internal/auth"
	"github.com/cwbutler6/greekdash/internal/models"
	"github.com/cwbutler6/greekdash/pkg/response"
)

func TestDecide(t *testing.T) {
	slug := "alpha-beta"
	tests := []struct {
		name         string
		membership   *models.Membership
		minRole      models.Role
		allowPending bool
		wantAllow    bool
		wantRedirect string
	}{
		{
			name:         "no membership redirects to join",
			membership:   nil,
			minRole:      models.RoleMember,
			wantAllow:    false,
			wantRedirect: "/alpha-beta/join",
		},
		{
			name:         "pending redirects to waiting page",
			membership:   &models.Membership{Role: models.RolePending},
			minRole:      models.RoleMember,
			wantAllow:    false,
			wantRedirect: "/alpha-beta/pending",
		},
		{
			name:         "pending allowed on status routes",
			membership:   &models.Membership{Role: models.RolePending},
			minRole:      models.RolePending,
			allowPending: true,
			wantAllow:    true,
		},
		{
			name:       "member below admin threshold",
			membership: &models.Membership{Role: models.RoleMember},
			minRole:    models.RoleAdmin,
			wantAllow:  false,
		},
		{
			name:       "admin passes admin threshold",
			membership: &models.Membership{Role: models.RoleAdmin},
			minRole:    models.RoleAdmin,
			wantAllow:  true,
		},
		{
			name:       "owner passes everything",
			membership: &models.Membership{Role: models.RoleOwner},
			minRole:    models.RoleOwner,
			wantAllow:  true,
		},
		{
			name:       "admin below owner threshold",
			membership: &models.Membership{Role: models.RoleAdmin},
			minRole:    models.RoleOwner,
			wantAllow:  false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Decide(tt.membership, tt.minRole, slug, tt.allowPending)
			require.Equal(t, tt.wantAllow, d.Allow)
			if !tt.wantAllow {
				require.Equal(t, http.StatusForbidden, d.Status)
			}
			require.Equal(t, tt.wantRedirect, d.Redirect)
		})
	}
}

type fakeChapterStore struct {
	chapter *models.Chapter
}

func (f *fakeChapterStore) GetBySlug(_ context.Context, slug string) (*models.Chapter, error) {
	if f.chapter == nil || f.chapter.Slug != slug {
		return nil, pgx.ErrNoRows
	}
	return f.chapter, nil
}

type fakeMembershipStore struct {
	membership *models.Membership
}

func (f *fakeMembershipStore) GetByUserAndChapter(_ context.Context, userID, chapterID uuid.UUID) (*models.Membership, error) {
	if f.membership == nil || f.membership.UserID != userID || f.membership.ChapterID != chapterID {
		return nil, pgx.ErrNoRows
	}
	return f.membership, nil
}

type fakeSubscriptionStore struct {
	sub *models.Subscription
}

func (f *fakeSubscriptionStore) GetByChapter(_ context.Context, chapterID uuid.UUID) (*models.Subscription, error) {
	if f.sub == nil || f.sub.ChapterID != chapterID {
		return nil, pgx.ErrNoRows
	}
	return f.sub, nil
}

func newAccessRouter(chapters ChapterStore, memberships MembershipStore, minRole models.Role, userID uuid.UUID) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(auth.ContextClaims, &auth.Claims{UserID: userID})
	})
	r.GET("/api/chapters/:slug/resource",
		ChapterAccess(chapters, memberships, minRole),
		func(c *gin.Context) {
			response.OK(c, gin.H{"chapter": MustChapter(c).Slug})
		})
	return r
}

func TestChapterAccessMiddleware(t *testing.T) {
	userID := uuid.New()
	chapter := &models.Chapter{ID: uuid.New(), Slug: "sigma", Name: "Sigma"}
	chapters := &fakeChapterStore{chapter: chapter}

	t.Run("unknown chapter is 404", func(t *testing.T) {
		r := newAccessRouter(chapters, &fakeMembershipStore{}, models.RoleMember, userID)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/chapters/nope/resource", nil))
		require.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("no membership is 403 with join redirect", func(t *testing.T) {
		r := newAccessRouter(chapters, &fakeMembershipStore{}, models.RoleMember, userID)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/chapters/sigma/resource", nil))
		require.Equal(t, http.StatusForbidden, w.Code)

		var body response.Body
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		require.False(t, body.Success)
		require.Equal(t, "/sigma/join", body.Redirect)
	})

	t.Run("pending member is 403 with pending redirect", func(t *testing.T) {
		memberships := &fakeMembershipStore{membership: &models.Membership{
			ID: uuid.New(), UserID: userID, ChapterID: chapter.ID, Role: models.RolePending,
		}}
		r := newAccessRouter(chapters, memberships, models.RoleMember, userID)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/chapters/sigma/resource", nil))
		require.Equal(t, http.StatusForbidden, w.Code)

		var body response.Body
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		require.Equal(t, "/sigma/pending", body.Redirect)
	})

	t.Run("member passes member threshold", func(t *testing.T) {
		memberships := &fakeMembershipStore{membership: &models.Membership{
			ID: uuid.New(), UserID: userID, ChapterID: chapter.ID, Role: models.RoleMember,
		}}
		r := newAccessRouter(chapters, memberships, models.RoleMember, userID)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/chapters/sigma/resource", nil))
		require.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("member blocked at admin threshold", func(t *testing.T) {
		memberships := &fakeMembershipStore{membership: &models.Membership{
			ID: uuid.New(), UserID: userID, ChapterID: chapter.ID, Role: models.RoleMember,
		}}
		r := newAccessRouter(chapters, memberships, models.RoleAdmin, userID)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/chapters/sigma/resource", nil))
		require.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestRequirePlan(t *testing.T) {
	gin.SetMode(gin.TestMode)
	chapter := &models.Chapter{ID: uuid.New(), Slug: "sigma"}

	newRouter := func(subs SubscriptionStore, feature models.Feature) *gin.Engine {
		r := gin.New()
		r.Use(func(c *gin.Context) {
			c.Set(ContextChapter, chapter)
		})
		r.GET("/finance", RequirePlan(subs, feature), func(c *gin.Context) {
			response.OK(c, gin.H{"plan": PlanFrom(c)})
		})
		return r
	}

	t.Run("no subscription row means free plan, blocked", func(t *testing.T) {
		r := newRouter(&fakeSubscriptionStore{}, models.FeatureBudgets)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/finance", nil))
		require.Equal(t, http.StatusForbidden, w.Code)

		var body response.Body
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		require.Equal(t, "/sigma/admin/upgrade", body.Redirect)
	})

	t.Run("inactive subscription treated as free", func(t *testing.T) {
		subs := &fakeSubscriptionStore{sub: &models.Subscription{
			ChapterID: chapter.ID, Plan: models.PlanPro, Status: models.SubscriptionStatusCanceled,
		}}
		r := newRouter(subs, models.FeatureBudgets)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/finance", nil))
		require.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("basic plan unlocks budgets", func(t *testing.T) {
		subs := &fakeSubscriptionStore{sub: &models.Subscription{
			ChapterID: chapter.ID, Plan: models.PlanBasic, Status: models.SubscriptionStatusActive,
		}}
		r := newRouter(subs, models.FeatureBudgets)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/finance", nil))
		require.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("basic plan blocked from advanced reporting", func(t *testing.T) {
		subs := &fakeSubscriptionStore{sub: &models.Subscription{
			ChapterID: chapter.ID, Plan: models.PlanBasic, Status: models.SubscriptionStatusActive,
		}}
		r := newRouter(subs, models.FeatureAdvancedReporting)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/finance", nil))
		require.Equal(t, http.StatusForbidden, w.Code)
	})
}
