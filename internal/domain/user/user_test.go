package user_test

import (
	"testing"

	"github.com/geocoder89/accounthub/internal/domain/user"
)

func TestSplitName(t *testing.T) {
	tests := []struct {
		in        string
		wantFirst string
		wantLast  string
	}{
		{"Jane Doe", "Jane", "Doe"},
		{"Jane", "Jane", ""},
		{"Mary Ann van Dyke", "Mary", "Ann van Dyke"},
		{"  Sam   Stone ", "Sam", "Stone"},
	}

	for _, tt := range tests {
		first, last := user.SplitName(tt.in)
		if first != tt.wantFirst || last != tt.wantLast {
			t.Fatalf("SplitName(%q) = (%q, %q), want (%q, %q)", tt.in, first, last, tt.wantFirst, tt.wantLast)
		}
	}
}

func TestNormalizeEmail(t *testing.T) {
	if got := user.NormalizeEmail("  Jane@X.COM "); got != "jane@x.com" {
		t.Fatalf("got %q", got)
	}
}

func TestIdentity_CanActOn(t *testing.T) {
	self := user.Identity{ID: "a", Role: user.RoleUser}
	admin := user.Identity{ID: "b", Role: user.RoleAdmin}
	mod := user.Identity{ID: "c", Role: user.RoleModerator}

	if !self.CanActOn("a") {
		t.Fatalf("user should act on own record")
	}
	if self.CanActOn("z") {
		t.Fatalf("user must not act on another record")
	}
	if !admin.CanActOn("z") {
		t.Fatalf("admin should act on any record")
	}
	if mod.CanActOn("z") {
		t.Fatalf("moderator has no elevated rights over other records")
	}
}

func TestUpdateRequest_PatchNormalizes(t *testing.T) {
	email := " New@Example.com"
	role := "admin"
	active := false

	req := user.UpdateRequest{Email: &email, Role: &role, IsActive: &active}

	if !req.TouchesPrivileges() {
		t.Fatalf("role/isActive changes should be privileged")
	}

	p := req.Patch()
	if p.Email == nil || *p.Email != "new@example.com" {
		t.Fatalf("email not normalized: %v", p.Email)
	}
	if p.Role == nil || *p.Role != user.RoleAdmin {
		t.Fatalf("role not carried: %v", p.Role)
	}

	if (user.UpdateRequest{}).TouchesPrivileges() {
		t.Fatalf("empty update must not be privileged")
	}
}

func TestUserPublicOmitsHash(t *testing.T) {
	u := user.User{ID: "1", Email: "a@b.c", PasswordHash: "secret", Role: user.RoleUser}
	p := u.Public()

	if p.ID != "1" || p.Email != "a@b.c" || p.Role != user.RoleUser {
		t.Fatalf("unexpected public projection %+v", p)
	}
}
