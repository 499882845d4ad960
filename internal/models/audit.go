package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AuditAction identifies the audited operation.
type AuditAction string

const (
	AuditMemberApproved  AuditAction = "member.approved"
	AuditMemberDenied    AuditAction = "member.denied"
	AuditMemberRemoved   AuditAction = "member.removed"
	AuditMemberRoleSet   AuditAction = "member.role_set"
	AuditInviteCreated   AuditAction = "invite.created"
	AuditInviteRevoked   AuditAction = "invite.revoked"
	AuditInviteAccepted  AuditAction = "invite.accepted"
	AuditSettingsUpdated AuditAction = "chapter.settings_updated"
	AuditJoinCodeRotated AuditAction = "chapter.join_code_rotated"
	AuditEventCreated    AuditAction = "event.created"
	AuditEventDeleted    AuditAction = "event.deleted"
	AuditExpensePaid     AuditAction = "finance.expense_paid"
	AuditDuesPaid        AuditAction = "finance.dues_paid"
	AuditPlanChanged     AuditAction = "billing.plan_changed"
	AuditBroadcastSent   AuditAction = "broadcast.sent"
)

// AuditDetail is the closed set of per-action payload shapes. Each action's
// detail is one concrete struct, not an untyped blob.
type AuditDetail interface {
	auditDetail()
}

// MemberDetailPayload describes member lifecycle actions.
type MemberDetailPayload struct {
	MembershipID uuid.UUID `json:"membership_id"`
	UserID       uuid.UUID `json:"user_id"`
	Email        string    `json:"email,omitempty"`
	FromRole     Role      `json:"from_role,omitempty"`
	ToRole       Role      `json:"to_role,omitempty"`
}

// InviteDetailPayload describes invite lifecycle actions.
type InviteDetailPayload struct {
	InviteID uuid.UUID `json:"invite_id"`
	Email    string    `json:"email"`
	Role     Role      `json:"role"`
}

// SettingsDetailPayload describes chapter settings changes.
type SettingsDetailPayload struct {
	Fields []string `json:"fields"`
}

// EventDetailPayload describes event lifecycle actions.
type EventDetailPayload struct {
	EventID uuid.UUID `json:"event_id"`
	Title   string    `json:"title"`
}

// FinanceDetailPayload describes finance mutations.
type FinanceDetailPayload struct {
	ReferenceID   uuid.UUID `json:"reference_id"`
	TransactionID uuid.UUID `json:"transaction_id"`
	AmountCents   int64     `json:"amount_cents"`
}

// PlanDetailPayload describes billing plan changes.
type PlanDetailPayload struct {
	FromPlan Plan `json:"from_plan"`
	ToPlan   Plan `json:"to_plan"`
}

// BroadcastDetailPayload describes broadcast sends.
type BroadcastDetailPayload struct {
	Channel    string `json:"channel"`
	Subject    string `json:"subject,omitempty"`
	Recipients int    `json:"recipients"`
}

func (MemberDetailPayload) auditDetail()    {}
func (InviteDetailPayload) auditDetail()    {}
func (SettingsDetailPayload) auditDetail()  {}
func (EventDetailPayload) auditDetail()     {}
func (FinanceDetailPayload) auditDetail()   {}
func (PlanDetailPayload) auditDetail()      {}
func (BroadcastDetailPayload) auditDetail() {}

// detailShapes maps each action to its expected payload type for decoding.
var detailShapes = map[AuditAction]func() AuditDetail{
	AuditMemberApproved:  func() AuditDetail { return &MemberDetailPayload{} },
	AuditMemberDenied:    func() AuditDetail { return &MemberDetailPayload{} },
	AuditMemberRemoved:   func() AuditDetail { return &MemberDetailPayload{} },
	AuditMemberRoleSet:   func() AuditDetail { return &MemberDetailPayload{} },
	AuditInviteCreated:   func() AuditDetail { return &InviteDetailPayload{} },
	AuditInviteRevoked:   func() AuditDetail { return &InviteDetailPayload{} },
	AuditInviteAccepted:  func() AuditDetail { return &InviteDetailPayload{} },
	AuditSettingsUpdated: func() AuditDetail { return &SettingsDetailPayload{} },
	AuditJoinCodeRotated: func() AuditDetail { return &SettingsDetailPayload{} },
	AuditEventCreated:    func() AuditDetail { return &EventDetailPayload{} },
	AuditEventDeleted:    func() AuditDetail { return &EventDetailPayload{} },
	AuditExpensePaid:     func() AuditDetail { return &FinanceDetailPayload{} },
	AuditDuesPaid:        func() AuditDetail { return &FinanceDetailPayload{} },
	AuditPlanChanged:     func() AuditDetail { return &PlanDetailPayload{} },
	AuditBroadcastSent:   func() AuditDetail { return &BroadcastDetailPayload{} },
}

// DecodeAuditDetail decodes raw JSON into the payload shape for the action.
func DecodeAuditDetail(action AuditAction, raw []byte) (AuditDetail, error) {
	mk, ok := detailShapes[action]
	if !ok {
		return nil, fmt.Errorf("unknown audit action: %s", action)
	}
	detail := mk()
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, detail); err != nil {
			return nil, fmt.Errorf("decode audit detail: %w", err)
		}
	}
	return detail, nil
}

// AuditLog records one administrative action within a chapter.
type AuditLog struct {
	ID        uuid.UUID       `json:"id"`
	ChapterID uuid.UUID       `json:"chapter_id"`
	ActorID   uuid.UUID       `json:"actor_id"`
	Action    AuditAction     `json:"action"`
	Detail    json.RawMessage `json:"detail,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}
