package models

import (
	"time"

	"github.com/google/uuid"
)

// All monetary amounts are integer cents.

// BudgetPeriod is the budget's recurrence window.
type BudgetPeriod string

const (
	BudgetPeriodSemester BudgetPeriod = "semester"
	BudgetPeriodAnnual   BudgetPeriod = "annual"
)

// Budget is a named spending allocation for a chapter.
type Budget struct {
	ID          uuid.UUID    `json:"id"`
	ChapterID   uuid.UUID    `json:"chapter_id"`
	Name        string       `json:"name"`
	AmountCents int64        `json:"amount_cents"`
	Period      BudgetPeriod `json:"period"`
	CreatedBy   uuid.UUID    `json:"created_by"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// ExpenseStatus tracks an expense through approval and payment.
type ExpenseStatus string

const (
	ExpenseStatusPending  ExpenseStatus = "pending"
	ExpenseStatusApproved ExpenseStatus = "approved"
	ExpenseStatusPaid     ExpenseStatus = "paid"
)

// Expense is money going out of the chapter. Paying it writes exactly one
// negative Transaction.
type Expense struct {
	ID          uuid.UUID     `json:"id"`
	ChapterID   uuid.UUID     `json:"chapter_id"`
	BudgetID    *uuid.UUID    `json:"budget_id,omitempty"`
	Description string        `json:"description"`
	AmountCents int64         `json:"amount_cents"`
	Status      ExpenseStatus `json:"status"`
	ReceiptKey  string        `json:"receipt_key,omitempty"`
	CreatedBy   uuid.UUID     `json:"created_by"`
	PaidAt      *time.Time    `json:"paid_at,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// DuesPayment is money owed by a member. Marking it paid writes exactly one
// positive Transaction.
type DuesPayment struct {
	ID           uuid.UUID  `json:"id"`
	ChapterID    uuid.UUID  `json:"chapter_id"`
	MembershipID uuid.UUID  `json:"membership_id"`
	AmountCents  int64      `json:"amount_cents"`
	DueDate      time.Time  `json:"due_date"`
	PaidAt       *time.Time `json:"paid_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// TransactionType tags the source of a ledger entry.
type TransactionType string

const (
	TransactionTypeDuesPayment TransactionType = "dues_payment"
	TransactionTypeExpense     TransactionType = "expense"
	TransactionTypeManual      TransactionType = "manual"
)

// Transaction is one immutable ledger entry. Positive amounts increase the
// chapter balance, negative decrease it.
type Transaction struct {
	ID          uuid.UUID       `json:"id"`
	ChapterID   uuid.UUID       `json:"chapter_id"`
	Type        TransactionType `json:"type"`
	AmountCents int64           `json:"amount_cents"`
	ReferenceID *uuid.UUID      `json:"reference_id,omitempty"` // dues payment or expense id
	Description string          `json:"description,omitempty"`
	CreatedBy   uuid.UUID       `json:"created_by"`
	CreatedAt   time.Time       `json:"created_at"`
}

// FinanceSummary aggregates the chapter ledger.
type FinanceSummary struct {
	BalanceCents     int64            `json:"balance_cents"`
	TransactionCount int              `json:"transaction_count"`
	ByType           map[string]int64 `json:"by_type,omitempty"` // pro plan only
}
