package members

import (
	"testing"

	"github.com/google/uuid"

	"github.com/cwbutler6/greekdash/internal/models"
)

func membershipWithRole(role models.Role) *models.Membership {
	return &models.Membership{ID: uuid.New(), UserID: uuid.New(), ChapterID: uuid.New(), Role: role}
}

func TestCanApprove(t *testing.T) {
	if err := CanApprove(membershipWithRole(models.RolePending)); err != nil {
		t.Fatalf("pending membership should be approvable: %v", err)
	}
	for _, role := range []models.Role{models.RoleMember, models.RoleAdmin, models.RoleOwner} {
		if err := CanApprove(membershipWithRole(role)); err != ErrNotPending {
			t.Errorf("approving %s: got %v, want ErrNotPending", role, err)
		}
	}
}

func TestCanRemove(t *testing.T) {
	caller := uuid.New()

	if err := CanRemove(membershipWithRole(models.RoleMember), caller); err != nil {
		t.Fatalf("removing a member should be allowed: %v", err)
	}
	if err := CanRemove(membershipWithRole(models.RolePending), caller); err != nil {
		t.Fatalf("denying a pending membership should be allowed: %v", err)
	}
	if err := CanRemove(membershipWithRole(models.RoleAdmin), caller); err != nil {
		t.Fatalf("removing an admin should be allowed: %v", err)
	}

	if err := CanRemove(membershipWithRole(models.RoleOwner), caller); err != ErrOwnerProtected {
		t.Errorf("removing the owner: got %v, want ErrOwnerProtected", err)
	}

	self := membershipWithRole(models.RoleAdmin)
	if err := CanRemove(self, self.ID); err != ErrSelfAction {
		t.Errorf("self removal: got %v, want ErrSelfAction", err)
	}

	// Owner protection wins even over a hypothetical self target.
	owner := membershipWithRole(models.RoleOwner)
	if err := CanRemove(owner, owner.ID); err != ErrOwnerProtected {
		t.Errorf("owner self removal: got %v, want ErrOwnerProtected", err)
	}
}

func TestCanChangeRole(t *testing.T) {
	caller := uuid.New()

	if err := CanChangeRole(membershipWithRole(models.RoleMember), caller, models.RoleAdmin); err != nil {
		t.Fatalf("promote member to admin: %v", err)
	}
	if err := CanChangeRole(membershipWithRole(models.RoleAdmin), caller, models.RoleMember); err != nil {
		t.Fatalf("demote admin to member: %v", err)
	}

	if err := CanChangeRole(membershipWithRole(models.RoleMember), caller, models.RoleOwner); err != ErrInvalidRole {
		t.Errorf("granting owner: got %v, want ErrInvalidRole", err)
	}
	if err := CanChangeRole(membershipWithRole(models.RoleMember), caller, models.RolePending); err != ErrInvalidRole {
		t.Errorf("setting pending: got %v, want ErrInvalidRole", err)
	}

	if err := CanChangeRole(membershipWithRole(models.RoleOwner), caller, models.RoleMember); err != ErrOwnerProtected {
		t.Errorf("demoting the owner: got %v, want ErrOwnerProtected", err)
	}

	self := membershipWithRole(models.RoleAdmin)
	if err := CanChangeRole(self, self.ID, models.RoleMember); err != ErrSelfAction {
		t.Errorf("changing own role: got %v, want ErrSelfAction", err)
	}

	if err := CanChangeRole(membershipWithRole(models.RolePending), caller, models.RoleMember); err != ErrStillPending {
		t.Errorf("role change on pending: got %v, want ErrStillPending", err)
	}
}
