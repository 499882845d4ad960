package broadcast

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cwbutler6/greekdash/internal/audit"
	"github.com/cwbutler6/greekdash/internal/auth"
	"github.com/cwbutler6/greekdash/internal/middleware"
	"github.com/cwbutler6/greekdash/internal/models"
	"github.com/cwbutler6/greekdash/pkg/response"
)

// SendRequest is the body for POST /api/chapters/:slug/broadcasts.
type SendRequest struct {
	Channel string `json:"channel" binding:"required,oneof=email sms"`
	Subject string `json:"subject"`
	Body    string `json:"body" binding:"required"`
}

// Handler handles broadcast HTTP endpoints.
type Handler struct {
	repo     *Repository
	notifier *Notifier
	auditor  *audit.Repository
	logger   *zap.Logger
}

// NewHandler creates a broadcast handler.
func NewHandler(repo *Repository, notifier *Notifier, auditor *audit.Repository, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, notifier: notifier, auditor: auditor, logger: logger}
}

// Send handles POST /api/chapters/:slug/broadcasts (admin). Fans out one
// message per active member; delivery happens in the worker.
func (h *Handler) Send(c *gin.Context) {
	chapter := middleware.MustChapter(c)
	claims := auth.MustClaims(c)

	var req SendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	channel := models.MessageChannel(req.Channel)
	if channel == models.ChannelEmail && req.Subject == "" {
		response.BadRequest(c, "subject required for email broadcasts")
		return
	}

	recipients, err := h.repo.ListActiveRecipients(c.Request.Context(), chapter.ID)
	if err != nil {
		response.Internal(c, "failed to load recipients")
		return
	}

	sent := 0
	for _, rec := range recipients {
		var err error
		switch channel {
		case models.ChannelEmail:
			err = h.notifier.SendEmail(c.Request.Context(), &chapter.ID, models.MessageKindBroadcast, rec.Email, req.Subject, req.Body)
		case models.ChannelSMS:
			if rec.Phone == "" {
				continue
			}
			err = h.notifier.SendSMS(c.Request.Context(), &chapter.ID, models.MessageKindBroadcast, rec.Phone, req.Body)
		}
		if err != nil {
			h.logger.Error("broadcast enqueue failed", zap.Error(err),
				zap.String("chapter_id", chapter.ID.String()), zap.String("recipient", rec.Email))
			continue
		}
		sent++
	}

	if err := h.auditor.Record(c.Request.Context(), chapter.ID, claims.UserID, models.AuditBroadcastSent,
		models.BroadcastDetailPayload{Channel: req.Channel, Subject: req.Subject, Recipients: sent}); err != nil {
		h.logger.Error("audit broadcast failed", zap.Error(err))
	}

	response.OK(c, gin.H{"queued": sent, "recipients": len(recipients)})
}

// List handles GET /api/chapters/:slug/broadcasts (admin).
func (h *Handler) List(c *gin.Context) {
	chapter := middleware.MustChapter(c)

	logs, err := h.repo.ListByChapter(c.Request.Context(), chapter.ID, models.MessageKindBroadcast)
	if err != nil {
		response.Internal(c, "failed to load broadcasts")
		return
	}
	response.OK(c, logs)
}
