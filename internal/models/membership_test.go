package models

import "testing"

func TestRoleAtLeast(t *testing.T) {
	tests := []struct {
		role      Role
		threshold Role
		want      bool
	}{
		{RoleOwner, RoleAdmin, true},
		{RoleOwner, RoleOwner, true},
		{RoleAdmin, RoleAdmin, true},
		{RoleAdmin, RoleOwner, false},
		{RoleMember, RoleAdmin, false},
		{RoleMember, RoleMember, true},
		{RolePending, RoleMember, false},
		{RolePending, RolePending, true},
		{Role("bogus"), RolePending, false},
	}
	for _, tt := range tests {
		if got := tt.role.AtLeast(tt.threshold); got != tt.want {
			t.Errorf("%s.AtLeast(%s) = %v, want %v", tt.role, tt.threshold, got, tt.want)
		}
	}
}

func TestRoleValid(t *testing.T) {
	for _, r := range []Role{RolePending, RoleMember, RoleAdmin, RoleOwner} {
		if !r.Valid() {
			t.Errorf("%s should be valid", r)
		}
	}
	if Role("superuser").Valid() {
		t.Error("unknown role should be invalid")
	}
}
