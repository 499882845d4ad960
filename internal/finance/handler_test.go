package finance

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cwbutler6/greekdash/internal/auth"
	"github.com/cwbutler6/greekdash/internal/middleware"
	"github.com/cwbutler6/greekdash/internal/models"
	"github.com/cwbutler6/greekdash/pkg/response"
)

type fakeLedger struct {
	expense *models.Expense
	dues    *models.DuesPayment
	entries []*models.Transaction
}

func (f *fakeLedger) PayExpenseTx(_ context.Context, _ pgx.Tx, chapterID, expenseID uuid.UUID) (*models.Expense, error) {
	e := f.expense
	if e == nil || e.ID != expenseID || e.ChapterID != chapterID {
		return nil, pgx.ErrNoRows
	}
	if e.Status != models.ExpenseStatusApproved || e.PaidAt != nil {
		return nil, pgx.ErrNoRows
	}
	now := time.Now()
	e.Status = models.ExpenseStatusPaid
	e.PaidAt = &now
	return e, nil
}

func (f *fakeLedger) PayDuesTx(_ context.Context, _ pgx.Tx, chapterID, duesID uuid.UUID) (*models.DuesPayment, error) {
	d := f.dues
	if d == nil || d.ID != duesID || d.ChapterID != chapterID || d.PaidAt != nil {
		return nil, pgx.ErrNoRows
	}
	now := time.Now()
	d.PaidAt = &now
	return d, nil
}

func (f *fakeLedger) CreateTransactionTx(_ context.Context, _ pgx.Tx, t *models.Transaction) error {
	t.ID = uuid.New()
	t.CreatedAt = time.Now()
	f.entries = append(f.entries, t)
	return nil
}

func (f *fakeLedger) GetExpense(_ context.Context, chapterID, expenseID uuid.UUID) (*models.Expense, error) {
	if f.expense == nil || f.expense.ID != expenseID || f.expense.ChapterID != chapterID {
		return nil, pgx.ErrNoRows
	}
	return f.expense, nil
}

func (f *fakeLedger) GetDues(_ context.Context, chapterID, duesID uuid.UUID) (*models.DuesPayment, error) {
	if f.dues == nil || f.dues.ID != duesID || f.dues.ChapterID != chapterID {
		return nil, pgx.ErrNoRows
	}
	return f.dues, nil
}

type fakeAuditor struct {
	actions []models.AuditAction
}

func (f *fakeAuditor) RecordTx(_ context.Context, _ pgx.Tx, _, _ uuid.UUID, action models.AuditAction, _ models.AuditDetail) error {
	f.actions = append(f.actions, action)
	return nil
}

func newPayRouter(ledger ledgerStore, auditor auditRecorder, chapter *models.Chapter, actorID uuid.UUID) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := &Handler{
		ledger:  ledger,
		auditor: auditor,
		runTx: func(_ context.Context, fn func(pgx.Tx) error) error {
			return fn(nil)
		},
		logger: zap.NewNop(),
	}
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(middleware.ContextChapter, chapter)
		c.Set(auth.ContextClaims, &auth.Claims{UserID: actorID})
	})
	r.POST("/api/chapters/:slug/finance/expenses/:id/pay", h.PayExpense)
	r.POST("/api/chapters/:slug/finance/dues/:id/pay", h.PayDues)
	return r
}

func payBody(t *testing.T, w *httptest.ResponseRecorder) response.Body {
	t.Helper()
	var body response.Body
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestPayExpense(t *testing.T) {
	chapter := &models.Chapter{ID: uuid.New(), Slug: "sigma"}
	actor := uuid.New()

	t.Run("approved expense writes one negative ledger entry", func(t *testing.T) {
		ledger := &fakeLedger{expense: &models.Expense{
			ID: uuid.New(), ChapterID: chapter.ID, AmountCents: 5000,
			Status: models.ExpenseStatusApproved,
		}}
		auditor := &fakeAuditor{}
		r := newPayRouter(ledger, auditor, chapter, actor)

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost,
			"/api/chapters/sigma/finance/expenses/"+ledger.expense.ID.String()+"/pay", nil))
		require.Equal(t, http.StatusOK, w.Code)
		require.True(t, payBody(t, w).Success)

		require.Len(t, ledger.entries, 1)
		entry := ledger.entries[0]
		require.Equal(t, models.TransactionTypeExpense, entry.Type)
		require.Equal(t, int64(-5000), entry.AmountCents)
		require.NotNil(t, entry.ReferenceID)
		require.Equal(t, ledger.expense.ID, *entry.ReferenceID)
		require.Equal(t, actor, entry.CreatedBy)
		require.Equal(t, []models.AuditAction{models.AuditExpensePaid}, auditor.actions)
	})

	t.Run("second pay is a conflict and writes nothing", func(t *testing.T) {
		ledger := &fakeLedger{expense: &models.Expense{
			ID: uuid.New(), ChapterID: chapter.ID, AmountCents: 5000,
			Status: models.ExpenseStatusApproved,
		}}
		r := newPayRouter(ledger, &fakeAuditor{}, chapter, actor)
		path := "/api/chapters/sigma/finance/expenses/" + ledger.expense.ID.String() + "/pay"

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, path, nil))
		require.Equal(t, http.StatusOK, w.Code)

		w = httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, path, nil))
		require.Equal(t, http.StatusConflict, w.Code)
		require.Equal(t, "expense already paid", payBody(t, w).Error)
		require.Len(t, ledger.entries, 1)
	})

	t.Run("unapproved expense is a conflict", func(t *testing.T) {
		ledger := &fakeLedger{expense: &models.Expense{
			ID: uuid.New(), ChapterID: chapter.ID, AmountCents: 5000,
			Status: models.ExpenseStatusPending,
		}}
		r := newPayRouter(ledger, &fakeAuditor{}, chapter, actor)

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost,
			"/api/chapters/sigma/finance/expenses/"+ledger.expense.ID.String()+"/pay", nil))
		require.Equal(t, http.StatusConflict, w.Code)
		require.Equal(t, "expense must be approved before payment", payBody(t, w).Error)
		require.Empty(t, ledger.entries)
	})

	t.Run("unknown expense is 404", func(t *testing.T) {
		ledger := &fakeLedger{}
		r := newPayRouter(ledger, &fakeAuditor{}, chapter, actor)

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost,
			"/api/chapters/sigma/finance/expenses/"+uuid.NewString()+"/pay", nil))
		require.Equal(t, http.StatusNotFound, w.Code)
		require.Empty(t, ledger.entries)
	})
}

func TestPayDues(t *testing.T) {
	chapter := &models.Chapter{ID: uuid.New(), Slug: "sigma"}
	actor := uuid.New()

	t.Run("unpaid dues writes one positive ledger entry", func(t *testing.T) {
		ledger := &fakeLedger{dues: &models.DuesPayment{
			ID: uuid.New(), ChapterID: chapter.ID, MembershipID: uuid.New(), AmountCents: 12500,
		}}
		auditor := &fakeAuditor{}
		r := newPayRouter(ledger, auditor, chapter, actor)

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost,
			"/api/chapters/sigma/finance/dues/"+ledger.dues.ID.String()+"/pay", nil))
		require.Equal(t, http.StatusOK, w.Code)

		require.Len(t, ledger.entries, 1)
		entry := ledger.entries[0]
		require.Equal(t, models.TransactionTypeDuesPayment, entry.Type)
		require.Equal(t, int64(12500), entry.AmountCents)
		require.NotNil(t, entry.ReferenceID)
		require.Equal(t, ledger.dues.ID, *entry.ReferenceID)
		require.Equal(t, []models.AuditAction{models.AuditDuesPaid}, auditor.actions)
	})

	t.Run("second pay is a conflict and writes nothing", func(t *testing.T) {
		ledger := &fakeLedger{dues: &models.DuesPayment{
			ID: uuid.New(), ChapterID: chapter.ID, MembershipID: uuid.New(), AmountCents: 12500,
		}}
		r := newPayRouter(ledger, &fakeAuditor{}, chapter, actor)
		path := "/api/chapters/sigma/finance/dues/" + ledger.dues.ID.String() + "/pay"

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, path, nil))
		require.Equal(t, http.StatusOK, w.Code)

		w = httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, path, nil))
		require.Equal(t, http.StatusConflict, w.Code)
		require.Equal(t, "dues charge already paid", payBody(t, w).Error)
		require.Len(t, ledger.entries, 1)
	})

	t.Run("unknown dues charge is 404", func(t *testing.T) {
		ledger := &fakeLedger{}
		r := newPayRouter(ledger, &fakeAuditor{}, chapter, actor)

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost,
			"/api/chapters/sigma/finance/dues/"+uuid.NewString()+"/pay", nil))
		require.Equal(t, http.StatusNotFound, w.Code)
		require.Empty(t, ledger.entries)
	})
}
