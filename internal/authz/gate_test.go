package authz

import (
	"html/template"
	"testing"

	"github.com/stretchr/testify/assert"
)

func readySnapshot(p *Principal) Snapshot {
	return Snapshot{Principal: p, Ready: true}
}

func TestGateIndeterminateWhileLoading(t *testing.T) {
	d := Evaluate(Snapshot{}, GateRule{Permission: PermPropertiesRead})
	assert.Equal(t, Indeterminate, d)
}

func TestGateSinglePermission(t *testing.T) {
	manager := activePrincipal(RoleManager)
	assert.Equal(t, Granted, Evaluate(readySnapshot(manager), GateRule{Permission: PermPropertiesRead}))
	assert.Equal(t, Denied, Evaluate(readySnapshot(manager), GateRule{Permission: PermSystemSettings}))
}

func TestGateRequireAllPermissions(t *testing.T) {
	manager := activePrincipal(RoleManager)
	rule := GateRule{Permissions: []string{PermPropertiesRead, PermSystemSettings}}

	assert.Equal(t, Granted, Evaluate(readySnapshot(manager), rule), "any-of semantics by default")

	rule.RequireAll = true
	assert.Equal(t, Denied, Evaluate(readySnapshot(manager), rule))
}

func TestGateRoleAndPermissionAreANDed(t *testing.T) {
	manager := activePrincipal(RoleManager)
	rule := GateRule{Permission: PermPropertiesRead, Role: RoleAdmin}
	assert.Equal(t, Denied, Evaluate(readySnapshot(manager), rule))

	rule.Role = RoleManager
	assert.Equal(t, Granted, Evaluate(readySnapshot(manager), rule))
}

func TestGateEmptyRuleGrants(t *testing.T) {
	assert.Equal(t, Granted, Evaluate(readySnapshot(nil), GateRule{}))
}

func TestGateAnonymousDeniedPermissions(t *testing.T) {
	assert.Equal(t, Denied, Evaluate(readySnapshot(nil), GateRule{Permission: PermDashboardView}))
}

func TestChoose(t *testing.T) {
	granted := template.HTML("<button>Delete</button>")
	fallback := template.HTML("")
	loading := template.HTML(`<span class="spinner"></span>`)

	assert.Equal(t, granted, Choose(Granted, granted, fallback, loading))
	assert.Equal(t, fallback, Choose(Denied, granted, fallback, loading))
	assert.Equal(t, loading, Choose(Indeterminate, granted, fallback, loading))
}
