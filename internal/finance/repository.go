package finance

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cwbutler6/greekdash/internal/models"
)

// Repository handles budgets, expenses, dues and the transaction ledger.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a finance repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// --- budgets ---

const budgetColumns = `id, chapter_id, name, amount_cents, period, created_by, created_at, updated_at`

func scanBudget(row interface{ Scan(...any) error }) (*models.Budget, error) {
	var b models.Budget
	err := row.Scan(&b.ID, &b.ChapterID, &b.Name, &b.AmountCents, &b.Period,
		&b.CreatedBy, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// CreateBudget inserts a budget.
func (r *Repository) CreateBudget(ctx context.Context, b *models.Budget) error {
	const q = `INSERT INTO budgets (chapter_id, name, amount_cents, period, created_by)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, b.ChapterID, b.Name, b.AmountCents, b.Period, b.CreatedBy).
		Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)
}

// GetBudget returns a budget scoped to the chapter.
func (r *Repository) GetBudget(ctx context.Context, chapterID, budgetID uuid.UUID) (*models.Budget, error) {
	return scanBudget(r.pool.QueryRow(ctx,
		`SELECT `+budgetColumns+` FROM budgets WHERE id = $1 AND chapter_id = $2`, budgetID, chapterID))
}

// ListBudgets returns a chapter's budgets.
func (r *Repository) ListBudgets(ctx context.Context, chapterID uuid.UUID) ([]*models.Budget, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+budgetColumns+` FROM budgets WHERE chapter_id = $1 ORDER BY created_at DESC`, chapterID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Budget
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, b)
	}
	return list, rows.Err()
}

// UpdateBudget applies a partial update scoped to the chapter.
func (r *Repository) UpdateBudget(ctx context.Context, chapterID, budgetID uuid.UUID, name *string, amountCents *int64, period *models.BudgetPeriod) (*models.Budget, error) {
	const q = `UPDATE budgets SET
		name = COALESCE($3, name),
		amount_cents = COALESCE($4, amount_cents),
		period = COALESCE($5, period),
		updated_at = NOW()
		WHERE id = $1 AND chapter_id = $2
		RETURNING ` + budgetColumns
	return scanBudget(r.pool.QueryRow(ctx, q, budgetID, chapterID, name, amountCents, period))
}

// DeleteBudget removes a budget. Expenses keep their rows with budget_id nulled.
func (r *Repository) DeleteBudget(ctx context.Context, chapterID, budgetID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM budgets WHERE id = $1 AND chapter_id = $2`, budgetID, chapterID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// BudgetSpent returns the sum of paid expenses charged to a budget.
func (r *Repository) BudgetSpent(ctx context.Context, budgetID uuid.UUID) (int64, error) {
	var spent int64
	err := r.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(amount_cents), 0) FROM expenses WHERE budget_id = $1 AND status = 'paid'`,
		budgetID).Scan(&spent)
	return spent, err
}

// --- expenses ---

const expenseColumns = `id, chapter_id, budget_id, description, amount_cents, status, COALESCE(receipt_key,''), created_by, paid_at, created_at, updated_at`

func scanExpense(row interface{ Scan(...any) error }) (*models.Expense, error) {
	var e models.Expense
	err := row.Scan(&e.ID, &e.ChapterID, &e.BudgetID, &e.Description, &e.AmountCents,
		&e.Status, &e.ReceiptKey, &e.CreatedBy, &e.PaidAt, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// CreateExpense inserts an expense in pending status.
func (r *Repository) CreateExpense(ctx context.Context, e *models.Expense) error {
	const q = `INSERT INTO expenses (chapter_id, budget_id, description, amount_cents, status, created_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, e.ChapterID, e.BudgetID, e.Description, e.AmountCents, e.Status, e.CreatedBy).
		Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
}

// GetExpense returns an expense scoped to the chapter.
func (r *Repository) GetExpense(ctx context.Context, chapterID, expenseID uuid.UUID) (*models.Expense, error) {
	return scanExpense(r.pool.QueryRow(ctx,
		`SELECT `+expenseColumns+` FROM expenses WHERE id = $1 AND chapter_id = $2`, expenseID, chapterID))
}

// ListExpenses returns a chapter's expenses, optionally filtered by status.
func (r *Repository) ListExpenses(ctx context.Context, chapterID uuid.UUID, status models.ExpenseStatus) ([]*models.Expense, error) {
	const q = `SELECT ` + expenseColumns + ` FROM expenses
		WHERE chapter_id = $1 AND ($2 = '' OR status = $2)
		ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, q, chapterID, string(status))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, e)
	}
	return list, rows.Err()
}

// ApproveExpense moves a pending expense to approved. Returns pgx.ErrNoRows
// when the expense is missing or not pending.
func (r *Repository) ApproveExpense(ctx context.Context, chapterID, expenseID uuid.UUID) (*models.Expense, error) {
	const q = `UPDATE expenses SET status = 'approved', updated_at = NOW()
		WHERE id = $1 AND chapter_id = $2 AND status = 'pending'
		RETURNING ` + expenseColumns
	return scanExpense(r.pool.QueryRow(ctx, q, expenseID, chapterID))
}

// SetReceiptKey attaches an uploaded receipt to an expense.
func (r *Repository) SetReceiptKey(ctx context.Context, chapterID, expenseID uuid.UUID, key string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE expenses SET receipt_key = $3, updated_at = NOW() WHERE id = $1 AND chapter_id = $2`,
		expenseID, chapterID, key)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// PayExpenseTx marks an approved expense paid inside an existing transaction.
// The paid_at IS NULL guard makes paying idempotent at most once: a second
// concurrent pay sees zero rows and gets pgx.ErrNoRows.
func (r *Repository) PayExpenseTx(ctx context.Context, tx pgx.Tx, chapterID, expenseID uuid.UUID) (*models.Expense, error) {
	const q = `UPDATE expenses SET status = 'paid', paid_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND chapter_id = $2 AND status = 'approved' AND paid_at IS NULL
		RETURNING ` + expenseColumns
	return scanExpense(tx.QueryRow(ctx, q, expenseID, chapterID))
}

// --- dues ---

const duesColumns = `id, chapter_id, membership_id, amount_cents, due_date, paid_at, created_at, updated_at`

func scanDues(row interface{ Scan(...any) error }) (*models.DuesPayment, error) {
	var d models.DuesPayment
	err := row.Scan(&d.ID, &d.ChapterID, &d.MembershipID, &d.AmountCents,
		&d.DueDate, &d.PaidAt, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// CreateDues inserts one dues charge against a membership.
func (r *Repository) CreateDues(ctx context.Context, d *models.DuesPayment) error {
	const q = `INSERT INTO dues_payments (chapter_id, membership_id, amount_cents, due_date)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, d.ChapterID, d.MembershipID, d.AmountCents, d.DueDate).
		Scan(&d.ID, &d.CreatedAt, &d.UpdatedAt)
}

// GetDues returns a dues charge scoped to the chapter.
func (r *Repository) GetDues(ctx context.Context, chapterID, duesID uuid.UUID) (*models.DuesPayment, error) {
	return scanDues(r.pool.QueryRow(ctx,
		`SELECT `+duesColumns+` FROM dues_payments WHERE id = $1 AND chapter_id = $2`, duesID, chapterID))
}

// ListDues returns a chapter's dues charges, unpaid first then by due date.
func (r *Repository) ListDues(ctx context.Context, chapterID uuid.UUID) ([]*models.DuesPayment, error) {
	const q = `SELECT ` + duesColumns + ` FROM dues_payments
		WHERE chapter_id = $1
		ORDER BY paid_at IS NOT NULL, due_date ASC`
	rows, err := r.pool.Query(ctx, q, chapterID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.DuesPayment
	for rows.Next() {
		d, err := scanDues(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, d)
	}
	return list, rows.Err()
}

// PayDuesTx marks a dues charge paid inside an existing transaction. Same
// once-only guard as PayExpenseTx.
func (r *Repository) PayDuesTx(ctx context.Context, tx pgx.Tx, chapterID, duesID uuid.UUID) (*models.DuesPayment, error) {
	const q = `UPDATE dues_payments SET paid_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND chapter_id = $2 AND paid_at IS NULL
		RETURNING ` + duesColumns
	return scanDues(tx.QueryRow(ctx, q, duesID, chapterID))
}

// --- transactions ---

const txColumns = `id, chapter_id, type, amount_cents, reference_id, COALESCE(description,''), created_by, created_at`

func scanTransaction(row interface{ Scan(...any) error }) (*models.Transaction, error) {
	var t models.Transaction
	err := row.Scan(&t.ID, &t.ChapterID, &t.Type, &t.AmountCents,
		&t.ReferenceID, &t.Description, &t.CreatedBy, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// CreateTransactionTx appends one ledger entry inside an existing transaction.
func (r *Repository) CreateTransactionTx(ctx context.Context, tx pgx.Tx, t *models.Transaction) error {
	const q = `INSERT INTO transactions (chapter_id, type, amount_cents, reference_id, description, created_by)
		VALUES ($1, $2, $3, $4, NULLIF($5,''), $6)
		RETURNING id, created_at`
	return tx.QueryRow(ctx, q, t.ChapterID, t.Type, t.AmountCents, t.ReferenceID, t.Description, t.CreatedBy).
		Scan(&t.ID, &t.CreatedAt)
}

// CreateTransaction appends one ledger entry outside a transaction, used for
// manual adjustments.
func (r *Repository) CreateTransaction(ctx context.Context, t *models.Transaction) error {
	const q = `INSERT INTO transactions (chapter_id, type, amount_cents, reference_id, description, created_by)
		VALUES ($1, $2, $3, $4, NULLIF($5,''), $6)
		RETURNING id, created_at`
	return r.pool.QueryRow(ctx, q, t.ChapterID, t.Type, t.AmountCents, t.ReferenceID, t.Description, t.CreatedBy).
		Scan(&t.ID, &t.CreatedAt)
}

// ListTransactions returns the chapter ledger, newest first.
func (r *Repository) ListTransactions(ctx context.Context, chapterID uuid.UUID, limit int) ([]*models.Transaction, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+txColumns+` FROM transactions WHERE chapter_id = $1 ORDER BY created_at DESC LIMIT $2`,
		chapterID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, t)
	}
	return list, rows.Err()
}

// Summary aggregates the ledger. byType is populated only when requested
// (advanced reporting).
func (r *Repository) Summary(ctx context.Context, chapterID uuid.UUID, byType bool) (*models.FinanceSummary, error) {
	var s models.FinanceSummary
	err := r.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(amount_cents), 0), COUNT(*) FROM transactions WHERE chapter_id = $1`,
		chapterID).Scan(&s.BalanceCents, &s.TransactionCount)
	if err != nil {
		return nil, err
	}
	if !byType {
		return &s, nil
	}

	rows, err := r.pool.Query(ctx,
		`SELECT type, COALESCE(SUM(amount_cents), 0) FROM transactions WHERE chapter_id = $1 GROUP BY type`,
		chapterID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	s.ByType = make(map[string]int64)
	for rows.Next() {
		var typ string
		var sum int64
		if err := rows.Scan(&typ, &sum); err != nil {
			return nil, err
		}
		s.ByType[typ] = sum
	}
	return &s, rows.Err()
}
