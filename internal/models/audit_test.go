package models

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestDecodeAuditDetailRoundTrip(t *testing.T) {
	in := MemberDetailPayload{
		MembershipID: uuid.New(),
		UserID:       uuid.New(),
		FromRole:     RolePending,
		ToRole:       RoleMember,
	}
	raw, err := json.Marshal(in)
	require.NoError(t, err)

	got, err := DecodeAuditDetail(AuditMemberApproved, raw)
	require.NoError(t, err)

	payload, ok := got.(*MemberDetailPayload)
	require.True(t, ok, "expected *MemberDetailPayload, got %T", got)
	require.Equal(t, in.MembershipID, payload.MembershipID)
	require.Equal(t, RoleMember, payload.ToRole)
}

func TestDecodeAuditDetailShapePerAction(t *testing.T) {
	tests := []struct {
		action AuditAction
		want   AuditDetail
	}{
		{AuditInviteCreated, &InviteDetailPayload{}},
		{AuditSettingsUpdated, &SettingsDetailPayload{}},
		{AuditEventDeleted, &EventDetailPayload{}},
		{AuditExpensePaid, &FinanceDetailPayload{}},
		{AuditPlanChanged, &PlanDetailPayload{}},
		{AuditBroadcastSent, &BroadcastDetailPayload{}},
	}
	for _, tt := range tests {
		got, err := DecodeAuditDetail(tt.action, nil)
		require.NoError(t, err, "action %s", tt.action)
		require.IsType(t, tt.want, got, "action %s", tt.action)
	}
}

func TestDecodeAuditDetailUnknownAction(t *testing.T) {
	_, err := DecodeAuditDetail(AuditAction("member.teleported"), []byte(`{}`))
	require.Error(t, err)
}

func TestDecodeAuditDetailBadJSON(t *testing.T) {
	_, err := DecodeAuditDetail(AuditMemberApproved, []byte(`{not json`))
	require.Error(t, err)
}
