package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInfoRegisteredRoles(t *testing.T) {
	for _, info := range All() {
		got := Info(info.Role)
		assert.Equal(t, info.Role, got.Role)
		assert.NotEmpty(t, got.Name, "role %s must have a display name", info.Role)
		assert.NotEmpty(t, got.Permissions, "role %s must have a default permission set", info.Role)
		assert.GreaterOrEqual(t, got.Level, 0)
	}
}

func TestInfoUnknownRoleFailsClosed(t *testing.T) {
	got := Info(Role("chief_vibes_officer"))
	assert.Empty(t, got.Permissions)
	assert.Equal(t, -1, got.Level)
}

func TestInfoReturnsStablePermissionSet(t *testing.T) {
	first := Info(RoleManager)
	first.Permissions[0] = "tampered"
	second := Info(RoleManager)
	assert.NotContains(t, second.Permissions, "tampered")
}

func TestAllOrderedByDescendingLevel(t *testing.T) {
	roles := All()
	require.NotEmpty(t, roles)
	for i := 1; i < len(roles); i++ {
		assert.Greater(t, roles[i-1].Level, roles[i].Level)
	}
}

func TestParseRole(t *testing.T) {
	role, ok := ParseRole("agent")
	require.True(t, ok)
	assert.Equal(t, RoleAgent, role)

	_, ok = ParseRole("root")
	assert.False(t, ok)
}

func TestSuperAdminHoldsFullUniverse(t *testing.T) {
	info := Info(RoleSuperAdmin)
	assert.ElementsMatch(t, AllPermissions(), info.Permissions)
}
