package events

import (
	"context"
	"time"

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

// rsvpStore is the slice of Repository the RSVP flow touches, split out so the
// capacity rule can be driven with a fake.
type rsvpStore interface {
	GetByID(ctx context.Context, chapterID, eventID uuid.UUID) (*models.Event, error)
	CountGoingOthers(ctx context.Context, eventID, userID uuid.UUID) (int, error)
	UpsertRSVP(ctx context.Context, eventID, userID uuid.UUID, status models.RSVPStatus) (*models.RSVP, error)
}

// Handler handles event and RSVP HTTP endpoints.
type Handler struct {
	repo    *Repository
	rsvps   rsvpStore
	auditor *audit.Repository
	logger  *zap.Logger
}

// NewHandler creates an events handler.
func NewHandler(repo *Repository, auditor *audit.Repository, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, rsvps: repo, auditor: auditor, logger: logger}
}

// CreateRequest is the body for POST /api/chapters/:slug/events.
type CreateRequest struct {
	Title       string     `json:"title" binding:"required"`
	Description string     `json:"description"`
	Location    string     `json:"location"`
	StartsAt    time.Time  `json:"starts_at" binding:"required"`
	EndsAt      *time.Time `json:"ends_at"`
	Capacity    *int       `json:"capacity"`
}

// Create handles POST /api/chapters/:slug/events (admin).
func (h *Handler) Create(c *gin.Context) {
	chapter := middleware.MustChapter(c)
	claims := auth.MustClaims(c)

	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "title and starts_at required")
		return
	}
	if req.EndsAt != nil && !req.EndsAt.After(req.StartsAt) {
		response.BadRequest(c, "ends_at must be after starts_at")
		return
	}
	if req.Capacity != nil && *req.Capacity < 1 {
		response.BadRequest(c, "capacity must be at least 1")
		return
	}

	e := &models.Event{
		ChapterID:   chapter.ID,
		Title:       req.Title,
		Description: req.Description,
		Location:    req.Location,
		StartsAt:    req.StartsAt,
		EndsAt:      req.EndsAt,
		Capacity:    req.Capacity,
		CreatedBy:   claims.UserID,
	}
	if err := h.repo.Create(c.Request.Context(), e); err != nil {
		h.logger.Error("create event failed", zap.Error(err), zap.String("chapter_id", chapter.ID.String()))
		response.Internal(c, "failed to create event")
		return
	}

	h.record(c, chapter.ID, claims.UserID, models.AuditEventCreated, models.EventDetailPayload{
		EventID: e.ID, Title: e.Title,
	})
	response.Created(c, e)
}

// List handles GET /api/chapters/:slug/events (member).
func (h *Handler) List(c *gin.Context) {
	chapter := middleware.MustChapter(c)

	list, err := h.repo.List(c.Request.Context(), chapter.ID)
	if err != nil {
		response.Internal(c, "failed to load events")
		return
	}
	response.OK(c, list)
}

// Get handles GET /api/chapters/:slug/events/:id (member). Includes the
// current "going" count.
func (h *Handler) Get(c *gin.Context) {
	chapter := middleware.MustChapter(c)

	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}

	e, err := h.repo.GetByID(c.Request.Context(), chapter.ID, eventID)
	if err != nil {
		if database.IsNotFound(err) {
			response.NotFound(c, "event not found")
			return
		}
		response.Internal(c, "failed to load event")
		return
	}

	going, err := h.repo.CountGoing(c.Request.Context(), e.ID)
	if err != nil {
		response.Internal(c, "failed to load event")
		return
	}
	response.OK(c, gin.H{"event": e, "going_count": going})
}

// UpdateRequest is the body for PATCH /api/chapters/:slug/events/:id.
type UpdateRequest struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	Location    *string    `json:"location"`
	StartsAt    *time.Time `json:"starts_at"`
	EndsAt      *time.Time `json:"ends_at"`
	Capacity    *int       `json:"capacity"`
}

// Update handles PATCH /api/chapters/:slug/events/:id (admin).
func (h *Handler) Update(c *gin.Context) {
	chapter := middleware.MustChapter(c)

	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}

	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if req.Title != nil && *req.Title == "" {
		response.BadRequest(c, "title cannot be empty")
		return
	}
	if req.Capacity != nil && *req.Capacity < 1 {
		response.BadRequest(c, "capacity must be at least 1")
		return
	}

	e, err := h.repo.Update(c.Request.Context(), chapter.ID, eventID, UpdateParams{
		Title:       req.Title,
		Description: req.Description,
		Location:    req.Location,
		StartsAt:    req.StartsAt,
		EndsAt:      req.EndsAt,
		Capacity:    req.Capacity,
	})
	if err != nil {
		if database.IsNotFound(err) {
			response.NotFound(c, "event not found")
			return
		}
		response.Internal(c, "failed to update event")
		return
	}
	response.OK(c, e)
}

// Delete handles DELETE /api/chapters/:slug/events/:id (admin).
func (h *Handler) Delete(c *gin.Context) {
	chapter := middleware.MustChapter(c)
	claims := auth.MustClaims(c)

	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}

	e, err := h.repo.GetByID(c.Request.Context(), chapter.ID, eventID)
	if err != nil {
		if database.IsNotFound(err) {
			response.NotFound(c, "event not found")
			return
		}
		response.Internal(c, "failed to load event")
		return
	}

	if err := h.repo.Delete(c.Request.Context(), chapter.ID, eventID); err != nil {
		if database.IsNotFound(err) {
			response.NotFound(c, "event not found")
			return
		}
		response.Internal(c, "failed to delete event")
		return
	}

	h.record(c, chapter.ID, claims.UserID, models.AuditEventDeleted, models.EventDetailPayload{
		EventID: e.ID, Title: e.Title,
	})
	response.NoContent(c)
}

// RSVPRequest is the body for PUT /api/chapters/:slug/events/:id/rsvp.
type RSVPRequest struct {
	Status models.RSVPStatus `json:"status" binding:"required"`
}

// UpsertRSVP handles PUT /api/chapters/:slug/events/:id/rsvp (member).
// A member may only set their own RSVP; repeating the call updates it.
func (h *Handler) UpsertRSVP(c *gin.Context) {
	chapter := middleware.MustChapter(c)
	claims := auth.MustClaims(c)

	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}

	var req RSVPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "status required")
		return
	}
	if !req.Status.Valid() {
		response.BadRequest(c, "status must be going, maybe or not_going")
		return
	}

	e, err := h.rsvps.GetByID(c.Request.Context(), chapter.ID, eventID)
	if err != nil {
		if database.IsNotFound(err) {
			response.NotFound(c, "event not found")
			return
		}
		response.Internal(c, "failed to load event")
		return
	}

	// The caller's own RSVP never counts against them, so re-submitting
	// "going" at a full event stays a no-op instead of a conflict.
	if req.Status == models.RSVPGoing && e.Capacity != nil {
		going, err := h.rsvps.CountGoingOthers(c.Request.Context(), e.ID, claims.UserID)
		if err != nil {
			response.Internal(c, "failed to check capacity")
			return
		}
		if going >= *e.Capacity {
			response.Conflict(c, "event is at capacity")
			return
		}
	}

	rsvp, err := h.rsvps.UpsertRSVP(c.Request.Context(), e.ID, claims.UserID, req.Status)
	if err != nil {
		response.Internal(c, "failed to save RSVP")
		return
	}
	response.OK(c, rsvp)
}

// ListRSVPs handles GET /api/chapters/:slug/events/:id/rsvps (admin).
func (h *Handler) ListRSVPs(c *gin.Context) {
	chapter := middleware.MustChapter(c)

	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}

	if _, err := h.repo.GetByID(c.Request.Context(), chapter.ID, eventID); err != nil {
		if database.IsNotFound(err) {
			response.NotFound(c, "event not found")
			return
		}
		response.Internal(c, "failed to load event")
		return
	}

	list, err := h.repo.ListRSVPs(c.Request.Context(), eventID)
	if err != nil {
		response.Internal(c, "failed to load RSVPs")
		return
	}
	response.OK(c, list)
}

func (h *Handler) record(c *gin.Context, chapterID, actorID uuid.UUID, action models.AuditAction, detail models.AuditDetail) {
	if err := h.auditor.Record(c.Request.Context(), chapterID, actorID, action, detail); err != nil {
		h.logger.Error("audit record failed", zap.Error(err), zap.String("action", string(action)))
	}
}
