package model

import "testing"

func TestRoleAtLeast(t *testing.T) {
	tests := []struct {
		role Role
		min  Role
		want bool
	}{
		{RoleOwner, RoleOwner, true},
		{RoleOwner, RoleAdmin, true},
		{RoleOwner, RoleMember, true},
		{RoleAdmin, RoleOwner, false},
		{RoleAdmin, RoleAdmin, true},
		{RoleAdmin, RoleMember, true},
		{RoleMember, RoleAdmin, false},
		{RoleMember, RoleMember, true},
		{Role("guest"), RoleMember, false},
		{Role(""), Role(""), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.role)+">="+string(tt.min), func(t *testing.T) {
			if got := tt.role.AtLeast(tt.min); got != tt.want {
				t.Errorf("%q.AtLeast(%q) = %v, want %v", tt.role, tt.min, got, tt.want)
			}
		})
	}
}

func TestRoleValid(t *testing.T) {
	for _, r := range []Role{RoleOwner, RoleAdmin, RoleMember} {
		if !r.Valid() {
			t.Errorf("%q.Valid() = false, want true", r)
		}
	}
	if Role("viewer").Valid() {
		t.Error(`Role("viewer").Valid() = true, want false`)
	}
}

func TestBoardMemberRole(t *testing.T) {
	b := &Board{Members: []Member{
		{UserID: "alice", Role: RoleOwner},
		{UserID: "bob", Role: RoleMember},
	}}

	if role, ok := b.MemberRole("bob"); !ok || role != RoleMember {
		t.Errorf("MemberRole(bob) = (%q, %v), want (member, true)", role, ok)
	}
	if _, ok := b.MemberRole("carol"); ok {
		t.Error("MemberRole(carol) reported membership for a non-member")
	}
}
