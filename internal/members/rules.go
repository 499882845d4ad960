package members

import (
	"errors"

	"github.com/google/uuid"

	"github.com/cwbutler6/greekdash/internal/models"
)

var (
	// ErrOwnerProtected rejects any remove or role change aimed at the OWNER
	// membership, regardless of caller role.
	ErrOwnerProtected = errors.New("the chapter owner cannot be modified")
	// ErrSelfAction rejects a caller acting on their own membership through
	// the admin member-management operations.
	ErrSelfAction = errors.New("cannot perform this action on your own membership")
	// ErrNotPending rejects approving a membership that is not pending.
	ErrNotPending = errors.New("membership is not pending approval")
	// ErrStillPending rejects role changes on a membership that has not been
	// approved yet.
	ErrStillPending = errors.New("membership is pending; approve it first")
	// ErrInvalidRole rejects role targets outside member/admin.
	ErrInvalidRole = errors.New("role must be member or admin")
)

// CanApprove validates the pending -> member transition.
func CanApprove(target *models.Membership) error {
	if target.Role != models.RolePending {
		return ErrNotPending
	}
	return nil
}

// CanRemove validates removing (or denying) a membership: the owner is
// untouchable and callers cannot remove themselves.
func CanRemove(target *models.Membership, callerMembershipID uuid.UUID) error {
	if target.Role == models.RoleOwner {
		return ErrOwnerProtected
	}
	if target.ID == callerMembershipID {
		return ErrSelfAction
	}
	return nil
}

// CanChangeRole validates promote/demote between member and admin. The owner
// role can be neither granted nor taken here, and callers cannot change their
// own role.
func CanChangeRole(target *models.Membership, callerMembershipID uuid.UUID, to models.Role) error {
	if to != models.RoleMember && to != models.RoleAdmin {
		return ErrInvalidRole
	}
	if target.Role == models.RoleOwner {
		return ErrOwnerProtected
	}
	if target.ID == callerMembershipID {
		return ErrSelfAction
	}
	if target.Role == models.RolePending {
		return ErrStillPending
	}
	return nil
}
