package finance

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/cwbutler6/greekdash/internal/audit"
	"github.com/cwbutler6/greekdash/internal/auth"
	"github.com/cwbutler6/greekdash/internal/members"
	"github.com/cwbutler6/greekdash/internal/middleware"
	"github.com/cwbutler6/greekdash/internal/models"
	"github.com/cwbutler6/greekdash/pkg/database"
	"github.com/cwbutler6/greekdash/pkg/response"
	"github.com/cwbutler6/greekdash/pkg/storage"
)

// ledgerStore is the slice of Repository the pay flows touch, split out so the
// once-only payment guards can be driven with a fake.
type ledgerStore interface {
	PayExpenseTx(ctx context.Context, tx pgx.Tx, chapterID, expenseID uuid.UUID) (*models.Expense, error)
	PayDuesTx(ctx context.Context, tx pgx.Tx, chapterID, duesID uuid.UUID) (*models.DuesPayment, error)
	CreateTransactionTx(ctx context.Context, tx pgx.Tx, t *models.Transaction) error
	GetExpense(ctx context.Context, chapterID, expenseID uuid.UUID) (*models.Expense, error)
	GetDues(ctx context.Context, chapterID, duesID uuid.UUID) (*models.DuesPayment, error)
}

// auditRecorder writes audit rows inside the payment transaction.
type auditRecorder interface {
	RecordTx(ctx context.Context, tx pgx.Tx, chapterID, actorID uuid.UUID, action models.AuditAction, detail models.AuditDetail) error
}

// Handler handles finance HTTP endpoints (admin threshold, plan gated).
type Handler struct {
	pool        *pgxpool.Pool
	repo        *Repository
	ledger      ledgerStore
	memberships *members.Repository
	s3          *storage.S3
	auditor     auditRecorder
	runTx       func(ctx context.Context, fn func(pgx.Tx) error) error
	logger      *zap.Logger
}

// NewHandler creates a finance handler. s3 may be nil when receipt storage is
// not configured; the receipt endpoints then report the feature unavailable.
func NewHandler(pool *pgxpool.Pool, repo *Repository, memberships *members.Repository, s3 *storage.S3, auditor *audit.Repository, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Handler{pool: pool, repo: repo, ledger: repo, memberships: memberships, s3: s3, auditor: auditor, logger: logger}
	h.runTx = func(ctx context.Context, fn func(pgx.Tx) error) error {
		return database.WithTxRetry(ctx, pool, fn)
	}
	return h
}

// --- budgets ---

// BudgetRequest is the body for creating a budget.
type BudgetRequest struct {
	Name        string              `json:"name" binding:"required"`
	AmountCents int64               `json:"amount_cents" binding:"required"`
	Period      models.BudgetPeriod `json:"period" binding:"required"`
}

// CreateBudget handles POST /api/chapters/:slug/finance/budgets.
func (h *Handler) CreateBudget(c *gin.Context) {
	chapter := middleware.MustChapter(c)
	claims := auth.MustClaims(c)

	var req BudgetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "name, amount_cents and period required")
		return
	}
	if req.AmountCents <= 0 {
		response.BadRequest(c, "amount_cents must be positive")
		return
	}
	if req.Period != models.BudgetPeriodSemester && req.Period != models.BudgetPeriodAnnual {
		response.BadRequest(c, "period must be semester or annual")
		return
	}

	b := &models.Budget{
		ChapterID:   chapter.ID,
		Name:        strings.TrimSpace(req.Name),
		AmountCents: req.AmountCents,
		Period:      req.Period,
		CreatedBy:   claims.UserID,
	}
	if err := h.repo.CreateBudget(c.Request.Context(), b); err != nil {
		response.Internal(c, "failed to create budget")
		return
	}
	response.Created(c, b)
}

// ListBudgets handles GET /api/chapters/:slug/finance/budgets. Each budget is
// returned with the total of paid expenses charged against it.
func (h *Handler) ListBudgets(c *gin.Context) {
	chapter := middleware.MustChapter(c)

	list, err := h.repo.ListBudgets(c.Request.Context(), chapter.ID)
	if err != nil {
		response.Internal(c, "failed to load budgets")
		return
	}

	type budgetView struct {
		*models.Budget
		SpentCents int64 `json:"spent_cents"`
	}
	out := make([]budgetView, 0, len(list))
	for _, b := range list {
		spent, err := h.repo.BudgetSpent(c.Request.Context(), b.ID)
		if err != nil {
			response.Internal(c, "failed to load budgets")
			return
		}
		out = append(out, budgetView{Budget: b, SpentCents: spent})
	}
	response.OK(c, out)
}

// UpdateBudgetRequest is the body for PATCH .../finance/budgets/:id.
type UpdateBudgetRequest struct {
	Name        *string              `json:"name"`
	AmountCents *int64               `json:"amount_cents"`
	Period      *models.BudgetPeriod `json:"period"`
}

// UpdateBudget handles PATCH /api/chapters/:slug/finance/budgets/:id.
func (h *Handler) UpdateBudget(c *gin.Context) {
	chapter := middleware.MustChapter(c)

	budgetID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid budget id")
		return
	}

	var req UpdateBudgetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if req.AmountCents != nil && *req.AmountCents <= 0 {
		response.BadRequest(c, "amount_cents must be positive")
		return
	}
	if req.Period != nil && *req.Period != models.BudgetPeriodSemester && *req.Period != models.BudgetPeriodAnnual {
		response.BadRequest(c, "period must be semester or annual")
		return
	}

	b, err := h.repo.UpdateBudget(c.Request.Context(), chapter.ID, budgetID, req.Name, req.AmountCents, req.Period)
	if err != nil {
		if database.IsNotFound(err) {
			response.NotFound(c, "budget not found")
			return
		}
		response.Internal(c, "failed to update budget")
		return
	}
	response.OK(c, b)
}

// DeleteBudget handles DELETE /api/chapters/:slug/finance/budgets/:id.
func (h *Handler) DeleteBudget(c *gin.Context) {
	chapter := middleware.MustChapter(c)

	budgetID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid budget id")
		return
	}

	if err := h.repo.DeleteBudget(c.Request.Context(), chapter.ID, budgetID); err != nil {
		if database.IsNotFound(err) {
			response.NotFound(c, "budget not found")
			return
		}
		response.Internal(c, "failed to delete budget")
		return
	}
	response.NoContent(c)
}

// --- expenses ---

// ExpenseRequest is the body for creating an expense.
type ExpenseRequest struct {
	BudgetID    *uuid.UUID `json:"budget_id"`
	Description string     `json:"description" binding:"required"`
	AmountCents int64      `json:"amount_cents" binding:"required"`
}

// CreateExpense handles POST /api/chapters/:slug/finance/expenses. Expenses
// start pending; no ledger entry is written until payment.
func (h *Handler) CreateExpense(c *gin.Context) {
	chapter := middleware.MustChapter(c)
	claims := auth.MustClaims(c)

	var req ExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "description and amount_cents required")
		return
	}
	if req.AmountCents <= 0 {
		response.BadRequest(c, "amount_cents must be positive")
		return
	}
	if req.BudgetID != nil {
		if _, err := h.repo.GetBudget(c.Request.Context(), chapter.ID, *req.BudgetID); err != nil {
			if database.IsNotFound(err) {
				response.BadRequest(c, "budget not found in this chapter")
				return
			}
			response.Internal(c, "failed to resolve budget")
			return
		}
	}

	e := &models.Expense{
		ChapterID:   chapter.ID,
		BudgetID:    req.BudgetID,
		Description: strings.TrimSpace(req.Description),
		AmountCents: req.AmountCents,
		Status:      models.ExpenseStatusPending,
		CreatedBy:   claims.UserID,
	}
	if err := h.repo.CreateExpense(c.Request.Context(), e); err != nil {
		response.Internal(c, "failed to create expense")
		return
	}
	response.Created(c, e)
}

// ListExpenses handles GET /api/chapters/:slug/finance/expenses?status=.
func (h *Handler) ListExpenses(c *gin.Context) {
	chapter := middleware.MustChapter(c)

	status := models.ExpenseStatus(c.Query("status"))
	switch status {
	case "", models.ExpenseStatusPending, models.ExpenseStatusApproved, models.ExpenseStatusPaid:
	default:
		response.BadRequest(c, "status must be pending, approved or paid")
		return
	}

	list, err := h.repo.ListExpenses(c.Request.Context(), chapter.ID, status)
	if err != nil {
		response.Internal(c, "failed to load expenses")
		return
	}
	response.OK(c, list)
}

// ApproveExpense handles POST .../finance/expenses/:id/approve. Only pending
// expenses can be approved; anything else is a conflict.
func (h *Handler) ApproveExpense(c *gin.Context) {
	chapter := middleware.MustChapter(c)

	expenseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid expense id")
		return
	}

	e, err := h.repo.ApproveExpense(c.Request.Context(), chapter.ID, expenseID)
	if err != nil {
		if database.IsNotFound(err) {
			if _, getErr := h.repo.GetExpense(c.Request.Context(), chapter.ID, expenseID); getErr == nil {
				response.Conflict(c, "expense is not pending")
				return
			}
			response.NotFound(c, "expense not found")
			return
		}
		response.Internal(c, "failed to approve expense")
		return
	}
	response.OK(c, e)
}

// PayExpense handles POST .../finance/expenses/:id/pay. Marking the expense
// paid and appending the negative ledger entry happen in one transaction, and
// the transaction is retried once on serialization failure. Paying twice is a
// conflict: the once-only guard in the UPDATE means the second payer writes
// nothing.
func (h *Handler) PayExpense(c *gin.Context) {
	chapter := middleware.MustChapter(c)
	claims := auth.MustClaims(c)

	expenseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid expense id")
		return
	}

	var paid *models.Expense
	var entry *models.Transaction
	err = h.runTx(c.Request.Context(), func(tx pgx.Tx) error {
		e, err := h.ledger.PayExpenseTx(c.Request.Context(), tx, chapter.ID, expenseID)
		if err != nil {
			return err
		}
		paid = e
		t := &models.Transaction{
			ChapterID:   chapter.ID,
			Type:        models.TransactionTypeExpense,
			AmountCents: -e.AmountCents,
			ReferenceID: &e.ID,
			Description: e.Description,
			CreatedBy:   claims.UserID,
		}
		if err := h.ledger.CreateTransactionTx(c.Request.Context(), tx, t); err != nil {
			return err
		}
		entry = t
		return h.auditor.RecordTx(c.Request.Context(), tx, chapter.ID, claims.UserID,
			models.AuditExpensePaid, models.FinanceDetailPayload{
				ReferenceID: e.ID, TransactionID: t.ID, AmountCents: t.AmountCents,
			})
	})
	if err != nil {
		if database.IsNotFound(err) {
			if e, getErr := h.ledger.GetExpense(c.Request.Context(), chapter.ID, expenseID); getErr == nil {
				if e.Status == models.ExpenseStatusPaid {
					response.Conflict(c, "expense already paid")
				} else {
					response.Conflict(c, "expense must be approved before payment")
				}
				return
			}
			response.NotFound(c, "expense not found")
			return
		}
		h.logger.Error("pay expense failed", zap.Error(err), zap.String("expense_id", expenseID.String()))
		response.Internal(c, "failed to pay expense")
		return
	}

	response.OK(c, gin.H{"expense": paid, "transaction": entry})
}

// --- receipts ---

// ReceiptUploadRequest is the body for POST .../expenses/:id/receipt-upload-url.
type ReceiptUploadRequest struct {
	Filename    string `json:"filename" binding:"required"`
	ContentType string `json:"content_type" binding:"required"`
	SizeBytes   int64  `json:"size_bytes"`
}

// ReceiptUploadURL handles POST .../finance/expenses/:id/receipt-upload-url.
// Returns a pre-signed PUT URL and records the object key on the expense.
func (h *Handler) ReceiptUploadURL(c *gin.Context) {
	chapter := middleware.MustChapter(c)

	if h.s3 == nil {
		response.Internal(c, "receipt storage is not configured")
		return
	}

	expenseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid expense id")
		return
	}

	var req ReceiptUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "filename and content_type required")
		return
	}
	if !storage.ValidateReceiptFileType(req.ContentType, req.Filename) {
		response.BadRequest(c, "receipt must be a JPEG, PNG, WebP or PDF")
		return
	}
	if req.SizeBytes > storage.MaxReceiptFileSize {
		response.BadRequest(c, "receipt exceeds the 10MB limit")
		return
	}

	if _, err := h.repo.GetExpense(c.Request.Context(), chapter.ID, expenseID); err != nil {
		if database.IsNotFound(err) {
			response.NotFound(c, "expense not found")
			return
		}
		response.Internal(c, "failed to load expense")
		return
	}

	key := storage.ReceiptKey(chapter.ID.String(), expenseID.String(), req.Filename)
	url, err := h.s3.PresignUpload(c.Request.Context(), key, req.ContentType)
	if err != nil {
		h.logger.Error("presign receipt upload failed", zap.Error(err), zap.String("key", key))
		response.Internal(c, "failed to create upload URL")
		return
	}
	if err := h.repo.SetReceiptKey(c.Request.Context(), chapter.ID, expenseID, key); err != nil {
		response.Internal(c, "failed to save receipt reference")
		return
	}

	response.OK(c, gin.H{"upload_url": url, "key": key})
}

// ReceiptURL handles GET .../finance/expenses/:id/receipt-url. Returns a
// pre-signed GET URL for the stored receipt.
func (h *Handler) ReceiptURL(c *gin.Context) {
	chapter := middleware.MustChapter(c)

	if h.s3 == nil {
		response.Internal(c, "receipt storage is not configured")
		return
	}

	expenseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid expense id")
		return
	}

	e, err := h.repo.GetExpense(c.Request.Context(), chapter.ID, expenseID)
	if err != nil {
		if database.IsNotFound(err) {
			response.NotFound(c, "expense not found")
			return
		}
		response.Internal(c, "failed to load expense")
		return
	}
	if e.ReceiptKey == "" {
		response.NotFound(c, "no receipt uploaded for this expense")
		return
	}

	url, err := h.s3.PresignDownload(c.Request.Context(), e.ReceiptKey)
	if err != nil {
		response.Internal(c, "failed to create download URL")
		return
	}
	response.OK(c, gin.H{"download_url": url})
}

// --- dues ---

// DuesRequest is the body for creating a dues charge.
type DuesRequest struct {
	MembershipID uuid.UUID `json:"membership_id" binding:"required"`
	AmountCents  int64     `json:"amount_cents" binding:"required"`
	DueDate      time.Time `json:"due_date" binding:"required"`
}

// CreateDues handles POST /api/chapters/:slug/finance/dues.
func (h *Handler) CreateDues(c *gin.Context) {
	chapter := middleware.MustChapter(c)

	var req DuesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "membership_id, amount_cents and due_date required")
		return
	}
	if req.AmountCents <= 0 {
		response.BadRequest(c, "amount_cents must be positive")
		return
	}
	if _, err := h.memberships.GetByID(c.Request.Context(), chapter.ID, req.MembershipID); err != nil {
		if database.IsNotFound(err) {
			response.BadRequest(c, "membership not found in this chapter")
			return
		}
		response.Internal(c, "failed to resolve membership")
		return
	}

	d := &models.DuesPayment{
		ChapterID:    chapter.ID,
		MembershipID: req.MembershipID,
		AmountCents:  req.AmountCents,
		DueDate:      req.DueDate,
	}
	if err := h.repo.CreateDues(c.Request.Context(), d); err != nil {
		response.Internal(c, "failed to create dues charge")
		return
	}
	response.Created(c, d)
}

// ListDues handles GET /api/chapters/:slug/finance/dues.
func (h *Handler) ListDues(c *gin.Context) {
	chapter := middleware.MustChapter(c)

	list, err := h.repo.ListDues(c.Request.Context(), chapter.ID)
	if err != nil {
		response.Internal(c, "failed to load dues")
		return
	}
	response.OK(c, list)
}

// PayDues handles POST .../finance/dues/:id/pay. Same shape as PayExpense:
// one transaction writes the paid marker, the positive ledger entry and the
// audit row, retried once on serialization failure.
func (h *Handler) PayDues(c *gin.Context) {
	chapter := middleware.MustChapter(c)
	claims := auth.MustClaims(c)

	duesID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid dues id")
		return
	}

	var paid *models.DuesPayment
	var entry *models.Transaction
	err = h.runTx(c.Request.Context(), func(tx pgx.Tx) error {
		d, err := h.ledger.PayDuesTx(c.Request.Context(), tx, chapter.ID, duesID)
		if err != nil {
			return err
		}
		paid = d
		t := &models.Transaction{
			ChapterID:   chapter.ID,
			Type:        models.TransactionTypeDuesPayment,
			AmountCents: d.AmountCents,
			ReferenceID: &d.ID,
			CreatedBy:   claims.UserID,
		}
		if err := h.ledger.CreateTransactionTx(c.Request.Context(), tx, t); err != nil {
			return err
		}
		entry = t
		return h.auditor.RecordTx(c.Request.Context(), tx, chapter.ID, claims.UserID,
			models.AuditDuesPaid, models.FinanceDetailPayload{
				ReferenceID: d.ID, TransactionID: t.ID, AmountCents: t.AmountCents,
			})
	})
	if err != nil {
		if database.IsNotFound(err) {
			if _, getErr := h.ledger.GetDues(c.Request.Context(), chapter.ID, duesID); getErr == nil {
				response.Conflict(c, "dues charge already paid")
				return
			}
			response.NotFound(c, "dues charge not found")
			return
		}
		h.logger.Error("pay dues failed", zap.Error(err), zap.String("dues_id", duesID.String()))
		response.Internal(c, "failed to record dues payment")
		return
	}

	response.OK(c, gin.H{"dues_payment": paid, "transaction": entry})
}

// --- ledger ---

// TransactionRequest is the body for a manual ledger adjustment.
type TransactionRequest struct {
	AmountCents int64  `json:"amount_cents" binding:"required"`
	Description string `json:"description" binding:"required"`
}

// CreateTransaction handles POST /api/chapters/:slug/finance/transactions.
// Manual adjustments may be positive or negative but never zero.
func (h *Handler) CreateTransaction(c *gin.Context) {
	chapter := middleware.MustChapter(c)
	claims := auth.MustClaims(c)

	var req TransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "amount_cents and description required")
		return
	}
	if req.AmountCents == 0 {
		response.BadRequest(c, "amount_cents cannot be zero")
		return
	}

	t := &models.Transaction{
		ChapterID:   chapter.ID,
		Type:        models.TransactionTypeManual,
		AmountCents: req.AmountCents,
		Description: strings.TrimSpace(req.Description),
		CreatedBy:   claims.UserID,
	}
	if err := h.repo.CreateTransaction(c.Request.Context(), t); err != nil {
		response.Internal(c, "failed to record transaction")
		return
	}
	response.Created(c, t)
}

// ListTransactions handles GET /api/chapters/:slug/finance/transactions?limit=.
func (h *Handler) ListTransactions(c *gin.Context) {
	chapter := middleware.MustChapter(c)

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	list, err := h.repo.ListTransactions(c.Request.Context(), chapter.ID, limit)
	if err != nil {
		response.Internal(c, "failed to load transactions")
		return
	}
	response.OK(c, list)
}

// Summary handles GET /api/chapters/:slug/finance/summary. The per-type
// breakdown is included only on plans with advanced reporting.
func (h *Handler) Summary(c *gin.Context) {
	chapter := middleware.MustChapter(c)
	plan := middleware.PlanFrom(c)

	s, err := h.repo.Summary(c.Request.Context(), chapter.ID, plan.HasFeature(models.FeatureAdvancedReporting))
	if err != nil {
		response.Internal(c, "failed to load summary")
		return
	}
	response.OK(c, s)
}
