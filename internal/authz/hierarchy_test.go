package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanManageRolePairwise(t *testing.T) {
	roles := All()
	for _, actor := range roles {
		for _, target := range roles {
			want := actor.Level > target.Level
			got := CanManageRole(actor.Role, target.Role)
			assert.Equal(t, want, got, "actor=%s target=%s", actor.Role, target.Role)
		}
	}
}

func TestCanManageRoleNeverSelf(t *testing.T) {
	for _, info := range All() {
		assert.False(t, CanManageRole(info.Role, info.Role))
	}
}

func TestCanManageRoleUnknownFailsClosed(t *testing.T) {
	assert.False(t, CanManageRole(Role("owner"), RoleClient))
	assert.False(t, CanManageRole(RoleSuperAdmin, Role("owner")))
}

func TestManageableRoles(t *testing.T) {
	manageable := ManageableRoles(RoleManager)
	for _, info := range manageable {
		assert.True(t, CanManageRole(RoleManager, info.Role))
	}
	// A manager may assign agent and below, never manager or above.
	got := make([]Role, len(manageable))
	for i, info := range manageable {
		got[i] = info.Role
	}
	assert.Equal(t, []Role{RoleAgent, RoleEmployee, RoleClient}, got)

	assert.Empty(t, ManageableRoles(RoleClient))
}
