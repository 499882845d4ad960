package invites

import (
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/cwbutler6/greekdash/internal/audit"
	"github.com/cwbutler6/greekdash/internal/auth"
	"github.com/cwbutler6/greekdash/internal/broadcast"
	"github.com/cwbutler6/greekdash/internal/members"
	"github.com/cwbutler6/greekdash/internal/middleware"
	"github.com/cwbutler6/greekdash/internal/models"
	"github.com/cwbutler6/greekdash/pkg/database"
	"github.com/cwbutler6/greekdash/pkg/response"
	"github.com/cwbutler6/greekdash/pkg/utils"
)

// Handler handles invite HTTP endpoints. All admin operations live on one
// authorized path behind the chapter-access middleware.
type Handler struct {
	pool        *pgxpool.Pool
	repo        *Repository
	memberships *members.Repository
	notifier    *broadcast.Notifier
	auditor     *audit.Repository
	baseURL     string
	logger      *zap.Logger
}

// NewHandler creates an invites handler.
func NewHandler(pool *pgxpool.Pool, repo *Repository, memberships *members.Repository, notifier *broadcast.Notifier, auditor *audit.Repository, baseURL string, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{pool: pool, repo: repo, memberships: memberships, notifier: notifier, auditor: auditor, baseURL: baseURL, logger: logger}
}

// CreateRequest is the body for POST /api/chapters/:slug/invites.
type CreateRequest struct {
	Email string      `json:"email" binding:"required,email"`
	Role  models.Role `json:"role"`
}

// Create handles POST /api/chapters/:slug/invites (admin). Issues a 7-day
// single-use token and emails it to the invitee.
func (h *Handler) Create(c *gin.Context) {
	chapter := middleware.MustChapter(c)
	claims := auth.MustClaims(c)

	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	role := req.Role
	if role == "" {
		role = models.RoleMember
	}
	if role != models.RoleMember && role != models.RoleAdmin {
		response.BadRequest(c, "invite role must be member or admin")
		return
	}

	token, err := utils.GenerateToken()
	if err != nil {
		response.Internal(c, "failed to generate invite token")
		return
	}

	inv := &models.Invite{
		ChapterID: chapter.ID,
		Email:     strings.ToLower(strings.TrimSpace(req.Email)),
		Role:      role,
		Token:     token,
		InvitedBy: claims.UserID,
		ExpiresAt: time.Now().Add(models.InviteTTL),
	}
	if err := h.repo.Create(c.Request.Context(), inv); err != nil {
		h.logger.Error("create invite failed", zap.Error(err), zap.String("chapter_id", chapter.ID.String()))
		response.Internal(c, "failed to create invite")
		return
	}

	h.sendInviteEmail(c, chapter, inv)
	h.record(c, chapter.ID, claims.UserID, models.AuditInviteCreated, models.InviteDetailPayload{
		InviteID: inv.ID, Email: inv.Email, Role: inv.Role,
	})
	response.Created(c, inv)
}

// List handles GET /api/chapters/:slug/invites (admin).
func (h *Handler) List(c *gin.Context) {
	chapter := middleware.MustChapter(c)

	list, err := h.repo.List(c.Request.Context(), chapter.ID)
	if err != nil {
		response.Internal(c, "failed to load invites")
		return
	}
	response.OK(c, list)
}

// Resend handles POST /api/chapters/:slug/invites/:id/resend (admin).
// Extends the expiry window and re-emails the same token.
func (h *Handler) Resend(c *gin.Context) {
	chapter := middleware.MustChapter(c)

	inviteID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid invite id")
		return
	}

	inv, err := h.repo.GetByID(c.Request.Context(), chapter.ID, inviteID)
	if err != nil {
		if database.IsNotFound(err) {
			response.NotFound(c, "invite not found")
			return
		}
		response.Internal(c, "failed to load invite")
		return
	}
	if inv.AcceptedAt != nil {
		response.Conflict(c, "invite already accepted")
		return
	}

	inv.ExpiresAt = time.Now().Add(models.InviteTTL)
	if err := h.repo.ExtendExpiry(c.Request.Context(), chapter.ID, inviteID, inv.ExpiresAt); err != nil {
		response.Internal(c, "failed to resend invite")
		return
	}

	h.sendInviteEmail(c, chapter, inv)
	response.OK(c, inv)
}

// Revoke handles DELETE /api/chapters/:slug/invites/:id (admin).
func (h *Handler) Revoke(c *gin.Context) {
	chapter := middleware.MustChapter(c)
	claims := auth.MustClaims(c)

	inviteID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid invite id")
		return
	}

	inv, err := h.repo.GetByID(c.Request.Context(), chapter.ID, inviteID)
	if err != nil {
		if database.IsNotFound(err) {
			response.NotFound(c, "invite not found")
			return
		}
		response.Internal(c, "failed to load invite")
		return
	}

	if err := h.repo.Delete(c.Request.Context(), chapter.ID, inviteID); err != nil {
		if database.IsNotFound(err) {
			response.NotFound(c, "invite not found")
			return
		}
		response.Internal(c, "failed to revoke invite")
		return
	}

	h.record(c, chapter.ID, claims.UserID, models.AuditInviteRevoked, models.InviteDetailPayload{
		InviteID: inv.ID, Email: inv.Email, Role: inv.Role,
	})
	response.NoContent(c)
}

// Accept handles POST /api/invites/:token/accept (authenticated, not
// chapter-scoped: the caller has no membership yet). Consuming the token and
// creating the membership happen in one transaction.
func (h *Handler) Accept(c *gin.Context) {
	claims := auth.MustClaims(c)

	tokenStr := c.Param("token")
	if tokenStr == "" {
		response.BadRequest(c, "token required")
		return
	}

	inv, err := h.repo.GetByToken(c.Request.Context(), tokenStr)
	if err != nil {
		if database.IsNotFound(err) {
			response.NotFound(c, "invalid or expired invite")
			return
		}
		response.Internal(c, "failed to load invite")
		return
	}
	if inv.AcceptedAt != nil {
		response.Conflict(c, "invite already accepted")
		return
	}
	if inv.Expired(time.Now()) {
		response.BadRequest(c, "invite expired")
		return
	}
	if !strings.EqualFold(inv.Email, claims.Email) {
		response.Forbidden(c, "this invite was issued to a different email")
		return
	}

	if _, err := h.memberships.GetByUserAndChapter(c.Request.Context(), claims.UserID, inv.ChapterID); err == nil {
		response.Conflict(c, "you already have a membership in this chapter")
		return
	} else if !database.IsNotFound(err) {
		response.Internal(c, "failed to check membership")
		return
	}

	var membership *models.Membership
	err = database.WithTx(c.Request.Context(), h.pool, func(tx pgx.Tx) error {
		if err := h.repo.MarkAcceptedTx(c.Request.Context(), tx, inv.ID); err != nil {
			return err
		}
		m, err := h.memberships.CreateTx(c.Request.Context(), tx, claims.UserID, inv.ChapterID, inv.Role)
		if err != nil {
			return err
		}
		membership = m
		return h.auditor.RecordTx(c.Request.Context(), tx, inv.ChapterID, claims.UserID,
			models.AuditInviteAccepted, models.InviteDetailPayload{InviteID: inv.ID, Email: inv.Email, Role: inv.Role})
	})
	if err != nil {
		if database.IsNotFound(err) || database.IsUniqueViolation(err) {
			response.Conflict(c, "invite already accepted")
			return
		}
		h.logger.Error("accept invite failed", zap.Error(err), zap.String("invite_id", inv.ID.String()))
		response.Internal(c, "failed to accept invite")
		return
	}

	response.OK(c, gin.H{"membership": membership})
}

func (h *Handler) sendInviteEmail(c *gin.Context, chapter *models.Chapter, inv *models.Invite) {
	acceptURL := fmt.Sprintf("%s/invites/%s/accept", h.baseURL, inv.Token)
	body := fmt.Sprintf("<p>You have been invited to join %s on GreekDash as %s.</p><p><a href=%q>Accept invitation</a> (expires %s).</p>",
		chapter.Name, inv.Role, acceptURL, inv.ExpiresAt.Format("Jan 2, 2006"))
	if err := h.notifier.SendEmail(c.Request.Context(), &chapter.ID, models.MessageKindInvite, inv.Email,
		"You're invited to "+chapter.Name, body); err != nil {
		h.logger.Error("enqueue invite email failed", zap.Error(err), zap.String("invite_id", inv.ID.String()))
	}
}

func (h *Handler) record(c *gin.Context, chapterID, actorID uuid.UUID, action models.AuditAction, detail models.AuditDetail) {
	if err := h.auditor.Record(c.Request.Context(), chapterID, actorID, action, detail); err != nil {
		h.logger.Error("audit record failed", zap.Error(err), zap.String("action", string(action)))
	}
}
