package members

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cwbutler6/greekdash/internal/audit"
	"github.com/cwbutler6/greekdash/internal/auth"
	"github.com/cwbutler6/greekdash/internal/middleware"
	"github.com/cwbutler6/greekdash/internal/models"
	"github.com/cwbutler6/greekdash/pkg/database"
	"github.com/cwbutler6/greekdash/pkg/response"
)

// Handler handles member management HTTP endpoints (admin threshold).
type Handler struct {
	repo    *Repository
	auditor *audit.Repository
	logger  *zap.Logger
}

// NewHandler creates a members handler.
func NewHandler(repo *Repository, auditor *audit.Repository, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, auditor: auditor, logger: logger}
}

// List handles GET /api/chapters/:slug/members.
func (h *Handler) List(c *gin.Context) {
	chapter := middleware.MustChapter(c)

	list, err := h.repo.List(c.Request.Context(), chapter.ID)
	if err != nil {
		response.Internal(c, "failed to load members")
		return
	}
	response.OK(c, list)
}

// Approve handles POST /api/chapters/:slug/members/:id/approve.
// Transitions pending_member -> member.
func (h *Handler) Approve(c *gin.Context) {
	chapter := middleware.MustChapter(c)
	claims := auth.MustClaims(c)

	membershipID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid membership id")
		return
	}

	target, err := h.repo.GetByID(c.Request.Context(), chapter.ID, membershipID)
	if err != nil {
		if database.IsNotFound(err) {
			response.NotFound(c, "membership not found")
			return
		}
		response.Internal(c, "failed to load membership")
		return
	}

	if err := CanApprove(target); err != nil {
		response.Conflict(c, err.Error())
		return
	}

	updated, err := h.repo.UpdateRole(c.Request.Context(), chapter.ID, membershipID, models.RoleMember)
	if err != nil {
		response.Internal(c, "failed to approve member")
		return
	}

	h.record(c, chapter.ID, claims.UserID, models.AuditMemberApproved, models.MemberDetailPayload{
		MembershipID: target.ID, UserID: target.UserID, FromRole: models.RolePending, ToRole: models.RoleMember,
	})
	response.OK(c, updated)
}

// Remove handles DELETE /api/chapters/:slug/members/:id. Denies a pending
// membership or removes an approved one; either way the row is deleted, so
// repeating the call is a 404.
func (h *Handler) Remove(c *gin.Context) {
	chapter := middleware.MustChapter(c)
	claims := auth.MustClaims(c)
	caller := middleware.MustMembership(c)

	membershipID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid membership id")
		return
	}

	target, err := h.repo.GetByID(c.Request.Context(), chapter.ID, membershipID)
	if err != nil {
		if database.IsNotFound(err) {
			response.NotFound(c, "membership not found")
			return
		}
		response.Internal(c, "failed to load membership")
		return
	}

	if err := CanRemove(target, caller.ID); err != nil {
		response.Forbidden(c, err.Error())
		return
	}

	if err := h.repo.Delete(c.Request.Context(), chapter.ID, membershipID); err != nil {
		if database.IsNotFound(err) {
			response.NotFound(c, "membership not found")
			return
		}
		response.Internal(c, "failed to remove member")
		return
	}

	action := models.AuditMemberRemoved
	if target.Role == models.RolePending {
		action = models.AuditMemberDenied
	}
	h.record(c, chapter.ID, claims.UserID, action, models.MemberDetailPayload{
		MembershipID: target.ID, UserID: target.UserID, FromRole: target.Role,
	})
	response.NoContent(c)
}

// ChangeRoleRequest is the body for PATCH /api/chapters/:slug/members/:id/role.
type ChangeRoleRequest struct {
	Role models.Role `json:"role" binding:"required"`
}

// ChangeRole handles PATCH /api/chapters/:slug/members/:id/role.
// Promotes or demotes between member and admin.
func (h *Handler) ChangeRole(c *gin.Context) {
	chapter := middleware.MustChapter(c)
	claims := auth.MustClaims(c)
	caller := middleware.MustMembership(c)

	membershipID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid membership id")
		return
	}

	var req ChangeRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	target, err := h.repo.GetByID(c.Request.Context(), chapter.ID, membershipID)
	if err != nil {
		if database.IsNotFound(err) {
			response.NotFound(c, "membership not found")
			return
		}
		response.Internal(c, "failed to load membership")
		return
	}

	if err := CanChangeRole(target, caller.ID, req.Role); err != nil {
		switch {
		case errors.Is(err, ErrInvalidRole):
			response.BadRequest(c, err.Error())
		case errors.Is(err, ErrStillPending):
			response.Conflict(c, err.Error())
		default:
			response.Forbidden(c, err.Error())
		}
		return
	}

	updated, err := h.repo.UpdateRole(c.Request.Context(), chapter.ID, membershipID, req.Role)
	if err != nil {
		response.Internal(c, "failed to change role")
		return
	}

	h.record(c, chapter.ID, claims.UserID, models.AuditMemberRoleSet, models.MemberDetailPayload{
		MembershipID: target.ID, UserID: target.UserID, FromRole: target.Role, ToRole: req.Role,
	})
	response.OK(c, updated)
}

func (h *Handler) record(c *gin.Context, chapterID, actorID uuid.UUID, action models.AuditAction, detail models.AuditDetail) {
	if err := h.auditor.Record(c.Request.Context(), chapterID, actorID, action, detail); err != nil {
		h.logger.Error("audit record failed", zap.Error(err), zap.String("action", string(action)))
	}
}
