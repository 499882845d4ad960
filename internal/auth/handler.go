package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cwbutler6/greekdash/internal/models"
	"github.com/cwbutler6/greekdash/pkg/database"
	"github.com/cwbutler6/greekdash/pkg/response"
	"github.com/cwbutler6/greekdash/pkg/utils"
)

// Notifier enqueues outbound mail. chapterID is nil for account-level mail
// (password resets). Satisfied by the broadcast notifier, injected in main.
type Notifier interface {
	SendEmail(ctx context.Context, chapterID *uuid.UUID, kind, recipient, subject, bodyHTML string) error
}

// SignupRequest is the body for POST /auth/signup.
type SignupRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	FullName string `json:"full_name" binding:"required"`
	Phone    string `json:"phone"`
}

// LoginRequest is the body for POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// ForgotPasswordRequest is the body for POST /auth/forgot-password.
type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// ResetPasswordRequest is the body for POST /auth/reset-password.
type ResetPasswordRequest struct {
	Token    string `json:"token" binding:"required"`
	Password string `json:"password" binding:"required,min=8"`
}

// TokenResponse is the auth response with JWT.
type TokenResponse struct {
	Token       string                     `json:"token"`
	User        models.UserPublic          `json:"user"`
	Memberships []models.MembershipSummary `json:"memberships"`
}

// Handler handles auth HTTP endpoints.
type Handler struct {
	repo     *Repository
	jwt      *JWTService
	notifier Notifier
	baseURL  string
	logger   *zap.Logger
}

// NewHandler creates an auth handler.
func NewHandler(repo *Repository, jwt *JWTService, notifier Notifier, baseURL string, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, jwt: jwt, notifier: notifier, baseURL: baseURL, logger: logger}
}

// Signup handles POST /auth/signup.
func (h *Handler) Signup(c *gin.Context) {
	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		response.Internal(c, "failed to hash password")
		return
	}

	user, err := h.repo.Create(c.Request.Context(), req.Email, hash, req.FullName, req.Phone)
	if err != nil {
		if database.IsUniqueViolation(err) {
			response.Conflict(c, "email already registered")
			return
		}
		h.logger.Error("create user failed", zap.Error(err))
		response.Internal(c, "failed to create user")
		return
	}

	token, err := h.jwt.Generate(user, nil)
	if err != nil {
		response.Internal(c, "failed to generate token")
		return
	}

	response.Created(c, TokenResponse{Token: token, User: user.ToPublic()})
}

// Login handles POST /auth/login.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	user, err := h.repo.GetByEmail(c.Request.Context(), req.Email)
	if err != nil {
		response.Unauthorized(c, "invalid email or password")
		return
	}

	if user.Password == "" || !utils.CheckPassword(req.Password, user.Password) {
		response.Unauthorized(c, "invalid email or password")
		return
	}

	memberships, err := h.repo.ListMemberships(c.Request.Context(), user.ID)
	if err != nil {
		h.logger.Error("list memberships failed", zap.Error(err), zap.String("user_id", user.ID.String()))
		response.Internal(c, "failed to load memberships")
		return
	}

	token, err := h.jwt.Generate(user, memberships)
	if err != nil {
		response.Internal(c, "failed to generate token")
		return
	}

	response.OK(c, TokenResponse{Token: token, User: user.ToPublic(), Memberships: memberships})
}

// ForgotPassword handles POST /auth/forgot-password. Always reports success
// so the response does not reveal whether the email exists.
func (h *Handler) ForgotPassword(c *gin.Context) {
	var req ForgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	user, err := h.repo.GetByEmail(c.Request.Context(), req.Email)
	if err == nil {
		tokenStr, err := utils.GenerateToken()
		if err == nil {
			expiresAt := time.Now().Add(models.PasswordResetTTL)
			if err := h.repo.CreateResetToken(c.Request.Context(), user.ID, tokenStr, expiresAt); err == nil {
				resetURL := fmt.Sprintf("%s/reset-password?token=%s", h.baseURL, tokenStr)
				body := fmt.Sprintf("<p>Hi %s,</p><p>Reset your GreekDash password: <a href=%q>%s</a></p><p>This link expires in one hour.</p>",
					user.FullName, resetURL, resetURL)
				if err := h.notifier.SendEmail(c.Request.Context(), nil, models.MessageKindPasswordReset, user.Email, "Reset your password", body); err != nil {
					h.logger.Error("enqueue reset email failed", zap.Error(err), zap.String("user_id", user.ID.String()))
				}
			} else {
				h.logger.Error("create reset token failed", zap.Error(err))
			}
		}
	}

	response.OK(c, gin.H{"message": "if that email exists, a reset link has been sent"})
}

// ResetPassword handles POST /auth/reset-password.
func (h *Handler) ResetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	tok, err := h.repo.GetResetToken(c.Request.Context(), req.Token)
	if err != nil {
		response.BadRequest(c, "invalid or expired token")
		return
	}
	if tok.UsedAt != nil || time.Now().After(tok.ExpiresAt) {
		response.BadRequest(c, "invalid or expired token")
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		response.Internal(c, "failed to hash password")
		return
	}
	if err := h.repo.UpdatePassword(c.Request.Context(), tok.UserID, hash); err != nil {
		response.Internal(c, "failed to update password")
		return
	}
	if err := h.repo.MarkResetTokenUsed(c.Request.Context(), tok.ID); err != nil {
		h.logger.Error("mark reset token used failed", zap.Error(err), zap.String("token_id", tok.ID.String()))
	}

	response.OK(c, gin.H{"message": "password updated"})
}

// Me handles GET /api/me. Returns the profile and current memberships.
func (h *Handler) Me(c *gin.Context) {
	claims := MustClaims(c)

	user, err := h.repo.GetByID(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Unauthorized(c, "account no longer exists")
		return
	}
	memberships, err := h.repo.ListMemberships(c.Request.Context(), user.ID)
	if err != nil {
		response.Internal(c, "failed to load memberships")
		return
	}
	response.OK(c, gin.H{"user": user.ToPublic(), "memberships": memberships})
}

// DefaultChapter handles GET /api/me/default-chapter. Picks the tenant a user
// lands on when none is in the request: first non-pending membership, else
// first pending membership, else the global join entry point.
func (h *Handler) DefaultChapter(c *gin.Context) {
	claims := MustClaims(c)

	memberships, err := h.repo.ListMemberships(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Internal(c, "failed to load memberships")
		return
	}

	slug, pending, ok := SelectDefaultChapter(memberships)
	if !ok {
		response.OK(c, gin.H{"redirect": "/join"})
		return
	}
	target := "/" + slug + "/portal"
	if pending {
		target = "/" + slug + "/pending"
	}
	response.OK(c, gin.H{"chapter_slug": slug, "pending": pending, "redirect": target})
}

// SelectDefaultChapter returns the slug of the preferred tenant: the first
// non-pending membership wins, then the first pending one. ok is false when
// the user has no memberships at all.
func SelectDefaultChapter(memberships []models.MembershipSummary) (slug string, pending bool, ok bool) {
	for _, m := range memberships {
		if m.Role != models.RolePending {
			return m.ChapterSlug, false, true
		}
	}
	for _, m := range memberships {
		if m.Role == models.RolePending {
			return m.ChapterSlug, true, true
		}
	}
	return "", false, false
}
