package billing

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cwbutler6/greekdash/internal/middleware"
	"github.com/cwbutler6/greekdash/internal/models"
	"github.com/cwbutler6/greekdash/pkg/database"
	"github.com/cwbutler6/greekdash/pkg/response"
)

// Handler handles billing HTTP endpoints. Checkout and portal are owner-only;
// the subscription read is admin.
type Handler struct {
	repo    *Repository
	service *Service
	logger  *zap.Logger
}

// NewHandler creates a billing handler.
func NewHandler(repo *Repository, service *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, service: service, logger: logger}
}

// Get handles GET /api/chapters/:slug/billing/subscription (admin).
// Chapters with no subscription row are on the free plan.
func (h *Handler) Get(c *gin.Context) {
	chapter := middleware.MustChapter(c)

	sub, err := h.repo.GetByChapter(c.Request.Context(), chapter.ID)
	if err != nil {
		if database.IsNotFound(err) {
			response.OK(c, gin.H{"plan": models.PlanFree, "status": models.SubscriptionStatusActive})
			return
		}
		response.Internal(c, "failed to load subscription")
		return
	}
	response.OK(c, sub)
}

// CheckoutRequest is the body for POST /api/chapters/:slug/billing/checkout.
type CheckoutRequest struct {
	Plan models.Plan `json:"plan" binding:"required"`
}

// Checkout handles POST /api/chapters/:slug/billing/checkout (owner).
// Returns the Stripe-hosted checkout URL.
func (h *Handler) Checkout(c *gin.Context) {
	chapter := middleware.MustChapter(c)

	var req CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "plan required")
		return
	}
	if req.Plan != models.PlanBasic && req.Plan != models.PlanPro {
		response.BadRequest(c, "plan must be basic or pro")
		return
	}

	if sub, err := h.repo.GetByChapter(c.Request.Context(), chapter.ID); err == nil {
		if sub.Status == models.SubscriptionStatusActive && sub.Plan == req.Plan {
			response.Conflict(c, "chapter is already on this plan")
			return
		}
	} else if !database.IsNotFound(err) {
		response.Internal(c, "failed to load subscription")
		return
	}

	url, err := h.service.CreateCheckout(c.Request.Context(), chapter, req.Plan)
	if err != nil {
		h.logger.Error("create checkout failed", zap.Error(err), zap.String("chapter_id", chapter.ID.String()))
		response.Internal(c, "failed to start checkout")
		return
	}
	response.OK(c, gin.H{"checkout_url": url})
}

// Portal handles POST /api/chapters/:slug/billing/portal (owner). Returns the
// Stripe billing portal URL.
func (h *Handler) Portal(c *gin.Context) {
	chapter := middleware.MustChapter(c)

	url, err := h.service.CreatePortal(c.Request.Context(), chapter)
	if err != nil {
		h.logger.Error("create portal failed", zap.Error(err), zap.String("chapter_id", chapter.ID.String()))
		response.Internal(c, "failed to open billing portal")
		return
	}
	response.OK(c, gin.H{"portal_url": url})
}
