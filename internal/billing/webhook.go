package billing

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/subscription"
	"github.com/stripe/stripe-go/v76/webhook"
	"go.uber.org/zap"

	"github.com/cwbutler6/greekdash/internal/audit"
	"github.com/cwbutler6/greekdash/internal/models"
	"github.com/cwbutler6/greekdash/pkg/database"
	"github.com/cwbutler6/greekdash/pkg/response"
)

// maxWebhookBody bounds the request body read for signature verification.
const maxWebhookBody = int64(65536)

// WebhookHandler processes Stripe webhook deliveries. The route is public;
// authenticity comes from the signature check, never from a session.
type WebhookHandler struct {
	repo          *Repository
	service       *Service
	auditor       *audit.Repository
	webhookSecret string
	logger        *zap.Logger
}

// NewWebhookHandler creates the Stripe webhook handler.
func NewWebhookHandler(repo *Repository, service *Service, auditor *audit.Repository, webhookSecret string, logger *zap.Logger) *WebhookHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebhookHandler{repo: repo, service: service, auditor: auditor, webhookSecret: webhookSecret, logger: logger}
}

// Handle handles POST /webhooks/stripe. Unhandled event types are
// acknowledged with 200 so Stripe stops retrying them.
func (h *WebhookHandler) Handle(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		response.BadRequest(c, "failed to read payload")
		return
	}

	event, err := webhook.ConstructEvent(payload, c.GetHeader("Stripe-Signature"), h.webhookSecret)
	if err != nil {
		h.logger.Warn("stripe webhook signature verification failed", zap.Error(err))
		response.BadRequest(c, "invalid signature")
		return
	}

	switch event.Type {
	case "checkout.session.completed":
		err = h.handleCheckoutCompleted(c, event)
	case "customer.subscription.updated":
		err = h.handleSubscriptionChange(c, event, false)
	case "customer.subscription.deleted":
		err = h.handleSubscriptionChange(c, event, true)
	default:
		h.logger.Debug("ignoring stripe event", zap.String("type", string(event.Type)))
	}
	if err != nil {
		h.logger.Error("stripe webhook processing failed",
			zap.Error(err), zap.String("type", string(event.Type)), zap.String("event_id", event.ID))
		// Non-2xx makes Stripe redeliver; all handlers are idempotent upserts.
		c.JSON(http.StatusInternalServerError, response.Body{Success: false, Error: "processing failed"})
		return
	}

	response.OK(c, gin.H{"received": true})
}

func (h *WebhookHandler) handleCheckoutCompleted(c *gin.Context, event stripe.Event) error {
	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return err
	}
	if sess.Subscription == nil {
		h.logger.Warn("checkout session without subscription", zap.String("session_id", sess.ID))
		return nil
	}

	// The session only carries the subscription ID; fetch the full object for
	// price and period.
	sub, err := subscription.Get(sess.Subscription.ID, nil)
	if err != nil {
		return err
	}
	return h.syncSubscription(c, sub, false)
}

func (h *WebhookHandler) handleSubscriptionChange(c *gin.Context, event stripe.Event, deleted bool) error {
	var sub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		return err
	}
	return h.syncSubscription(c, &sub, deleted)
}

// syncSubscription upserts the chapter's subscription row from processor
// state and audits plan transitions. The chapter is identified by the
// metadata stamped at checkout.
func (h *WebhookHandler) syncSubscription(c *gin.Context, sub *stripe.Subscription, deleted bool) error {
	chapterID, err := uuid.Parse(sub.Metadata["chapter_id"])
	if err != nil {
		h.logger.Warn("stripe subscription missing chapter_id metadata", zap.String("subscription_id", sub.ID))
		return nil
	}

	var priceID string
	if sub.Items != nil && len(sub.Items.Data) > 0 && sub.Items.Data[0].Price != nil {
		priceID = sub.Items.Data[0].Price.ID
	}

	plan := h.service.PriceToPlan(priceID)
	status := MapStatus(sub.Status)
	if deleted {
		plan = models.PlanFree
		status = models.SubscriptionStatusCanceled
	}

	var periodEnd *time.Time
	if sub.CurrentPeriodEnd > 0 {
		t := time.Unix(sub.CurrentPeriodEnd, 0).UTC()
		periodEnd = &t
	}

	fromPlan := models.PlanFree
	if existing, err := h.repo.GetByChapter(c.Request.Context(), chapterID); err == nil {
		fromPlan = existing.Plan
	} else if !database.IsNotFound(err) {
		return err
	}

	if _, err := h.repo.UpsertFromStripe(c.Request.Context(), chapterID, plan, status, sub.ID, priceID, periodEnd); err != nil {
		return err
	}

	if fromPlan != plan {
		// System action: no human actor behind a webhook.
		if err := h.auditor.Record(c.Request.Context(), chapterID, uuid.Nil,
			models.AuditPlanChanged, models.PlanDetailPayload{FromPlan: fromPlan, ToPlan: plan}); err != nil {
			h.logger.Error("audit plan change failed", zap.Error(err), zap.String("chapter_id", chapterID.String()))
		}
		h.logger.Info("chapter plan changed",
			zap.String("chapter_id", chapterID.String()),
			zap.String("from", string(fromPlan)), zap.String("to", string(plan)))
	}
	return nil
}
