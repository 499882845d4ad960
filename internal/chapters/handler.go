package chapters

import (
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cwbutler6/greekdash/internal/audit"
	"github.com/cwbutler6/greekdash/internal/auth"
	"github.com/cwbutler6/greekdash/internal/members"
	"github.com/cwbutler6/greekdash/internal/middleware"
	"github.com/cwbutler6/greekdash/internal/models"
	"github.com/cwbutler6/greekdash/pkg/database"
	"github.com/cwbutler6/greekdash/pkg/response"
)

// Slug must be lowercase alphanumeric and hyphens only, 2–64 chars.
var slugRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{1,63}$`)

// Handler handles chapter HTTP endpoints.
type Handler struct {
	repo        *Repository
	memberships *members.Repository
	auditor     *audit.Repository
	logger      *zap.Logger
}

// NewHandler creates a chapters handler.
func NewHandler(repo *Repository, memberships *members.Repository, auditor *audit.Repository, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, memberships: memberships, auditor: auditor, logger: logger}
}

// CreateRequest is the body for POST /api/chapters.
type CreateRequest struct {
	Name         string `json:"name" binding:"required"`
	Slug         string `json:"slug" binding:"required"`
	PrimaryColor string `json:"primary_color"`
	LogoURL      string `json:"logo_url"`
}

// Create handles POST /api/chapters. The creator becomes OWNER; the chapter
// starts on the free plan.
func (h *Handler) Create(c *gin.Context) {
	claims := auth.MustClaims(c)

	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "name and slug required")
		return
	}
	req.Slug = strings.ToLower(strings.TrimSpace(req.Slug))
	if !slugRegex.MatchString(req.Slug) {
		response.BadRequest(c, "slug must be 2–64 chars, lowercase letters, numbers, hyphens only")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if len(req.Name) < 1 || len(req.Name) > 255 {
		response.BadRequest(c, "name must be 1–255 characters")
		return
	}

	ch := &models.Chapter{
		Slug:         req.Slug,
		Name:         req.Name,
		PrimaryColor: req.PrimaryColor,
		LogoURL:      req.LogoURL,
	}
	membership, err := h.repo.CreateWithOwner(c.Request.Context(), ch, claims.UserID)
	if err != nil {
		if database.IsUniqueViolation(err) {
			response.Conflict(c, "a chapter with this slug already exists")
			return
		}
		h.logger.Error("create chapter failed", zap.Error(err), zap.String("slug", req.Slug))
		response.Internal(c, "failed to create chapter")
		return
	}

	response.Created(c, gin.H{"chapter": ch.AdminView(), "membership": membership})
}

// JoinRequest is the body for POST /api/chapters/:slug/join.
type JoinRequest struct {
	JoinCode string `json:"join_code" binding:"required"`
}

// Join handles POST /api/chapters/:slug/join. A correct join code creates a
// pending membership. A user already holding any membership for the chapter,
// pending or active, is rejected.
func (h *Handler) Join(c *gin.Context) {
	claims := auth.MustClaims(c)
	slug := c.Param("slug")

	ch, err := h.repo.GetBySlug(c.Request.Context(), slug)
	if err != nil {
		if database.IsNotFound(err) {
			response.NotFound(c, "chapter not found")
			return
		}
		response.Internal(c, "failed to resolve chapter")
		return
	}

	var req JoinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "join_code required")
		return
	}
	if !strings.EqualFold(strings.TrimSpace(req.JoinCode), ch.JoinCode) {
		response.Forbidden(c, "incorrect join code")
		return
	}

	if _, err := h.memberships.GetByUserAndChapter(c.Request.Context(), claims.UserID, ch.ID); err == nil {
		response.Conflict(c, "you already have a membership in this chapter")
		return
	} else if !database.IsNotFound(err) {
		response.Internal(c, "failed to check membership")
		return
	}

	membership, err := h.memberships.Create(c.Request.Context(), claims.UserID, ch.ID, models.RolePending)
	if err != nil {
		// Concurrent joins race on the (user, chapter) unique constraint.
		if database.IsUniqueViolation(err) {
			response.Conflict(c, "you already have a membership in this chapter")
			return
		}
		response.Internal(c, "failed to join chapter")
		return
	}

	response.Created(c, gin.H{
		"membership": membership,
		"redirect":   "/" + ch.Slug + "/pending",
	})
}

// MyMembership handles GET /api/chapters/:slug/membership. This is the one
// read a pending member may perform: their own status in the chapter.
func (h *Handler) MyMembership(c *gin.Context) {
	chapter := middleware.MustChapter(c)
	membership := middleware.MustMembership(c)

	response.OK(c, gin.H{
		"chapter_slug": chapter.Slug,
		"chapter_name": chapter.Name,
		"membership":   membership,
	})
}

// Get handles GET /api/chapters/:slug (member). Admins additionally see the
// join code.
func (h *Handler) Get(c *gin.Context) {
	chapter := middleware.MustChapter(c)
	membership := middleware.MustMembership(c)

	if membership.Role.AtLeast(models.RoleAdmin) {
		response.OK(c, chapter.AdminView())
		return
	}
	response.OK(c, chapter)
}

// UpdateSettingsRequest is the body for PATCH /api/chapters/:slug/settings.
type UpdateSettingsRequest struct {
	Name           *string `json:"name"`
	PrimaryColor   *string `json:"primary_color"`
	LogoURL        *string `json:"logo_url"`
	RotateJoinCode bool    `json:"rotate_join_code"`
}

// UpdateSettings handles PATCH /api/chapters/:slug/settings (admin).
// The slug is immutable.
func (h *Handler) UpdateSettings(c *gin.Context) {
	chapter := middleware.MustChapter(c)
	claims := auth.MustClaims(c)

	var req UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if req.Name != nil {
		trimmed := strings.TrimSpace(*req.Name)
		if len(trimmed) < 1 || len(trimmed) > 255 {
			response.BadRequest(c, "name must be 1–255 characters")
			return
		}
		req.Name = &trimmed
	}

	updated, err := h.repo.UpdateSettings(c.Request.Context(), chapter.ID, req.Name, req.PrimaryColor, req.LogoURL)
	if err != nil {
		response.Internal(c, "failed to update settings")
		return
	}

	var fields []string
	if req.Name != nil {
		fields = append(fields, "name")
	}
	if req.PrimaryColor != nil {
		fields = append(fields, "primary_color")
	}
	if req.LogoURL != nil {
		fields = append(fields, "logo_url")
	}
	if len(fields) > 0 {
		h.record(c, chapter, claims, models.AuditSettingsUpdated, models.SettingsDetailPayload{Fields: fields})
	}

	if req.RotateJoinCode {
		code, err := h.repo.RotateJoinCode(c.Request.Context(), chapter.ID)
		if err != nil {
			response.Internal(c, "failed to rotate join code")
			return
		}
		updated.JoinCode = code
		h.record(c, chapter, claims, models.AuditJoinCodeRotated, models.SettingsDetailPayload{Fields: []string{"join_code"}})
	}

	response.OK(c, updated.AdminView())
}

// Public handles GET /chapters/:slug/public. Unauthenticated landing view.
func (h *Handler) Public(c *gin.Context) {
	slug := c.Param("slug")
	p, err := h.repo.GetPublic(c.Request.Context(), slug)
	if err != nil {
		if database.IsNotFound(err) {
			response.NotFound(c, "chapter not found")
			return
		}
		response.Internal(c, "failed to load chapter")
		return
	}
	response.OK(c, p)
}

func (h *Handler) record(c *gin.Context, chapter *models.Chapter, claims *auth.Claims, action models.AuditAction, detail models.AuditDetail) {
	if err := h.auditor.Record(c.Request.Context(), chapter.ID, claims.UserID, action, detail); err != nil {
		h.logger.Error("audit record failed", zap.Error(err), zap.String("action", string(action)))
	}
}
