package audit

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/cwbutler6/greekdash/internal/middleware"
	"github.com/cwbutler6/greekdash/pkg/response"
)

// Handler handles audit log HTTP endpoints.
type Handler struct {
	repo *Repository
}

// NewHandler creates an audit handler.
func NewHandler(repo *Repository) *Handler {
	return &Handler{repo: repo}
}

// List handles GET /api/chapters/:slug/audit (admin).
func (h *Handler) List(c *gin.Context) {
	chapter := middleware.MustChapter(c)
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	entries, err := h.repo.List(c.Request.Context(), chapter.ID, limit)
	if err != nil {
		response.Internal(c, "failed to load audit log")
		return
	}
	response.OK(c, entries)
}
