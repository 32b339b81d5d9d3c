package authz

import "html/template"

// GateRule declares the checks for a gated UI fragment. Unlike the route
// guard a gate never navigates; it only decides which fragment renders.
type GateRule struct {
	Permission  string
	Permissions []string
	Role        Role
	Roles       []Role
	// RequireAll switches multi-value lists from "any of" to "all of".
	RequireAll bool
}

// Evaluate resolves a gate rule against the current snapshot. When both a
// permission check and a role check are supplied the final decision is the
// logical AND of the two. Empty checks are vacuously satisfied.
func Evaluate(snap Snapshot, rule GateRule) Decision {
	if !snap.Ready {
		return Indeterminate
	}
	if gatePermissionsOK(snap.Principal, rule) && gateRolesOK(snap.Principal, rule) {
		return Granted
	}
	return Denied
}

func gatePermissionsOK(p *Principal, rule GateRule) bool {
	required := rule.Permissions
	if rule.Permission != "" {
		required = append([]string{rule.Permission}, required...)
	}
	if len(required) == 0 {
		return true
	}
	if rule.RequireAll {
		return HasAllPermissions(p, required)
	}
	return HasAnyPermission(p, required)
}

func gateRolesOK(p *Principal, rule GateRule) bool {
	required := rule.Roles
	if rule.Role != "" {
		required = append([]Role{rule.Role}, required...)
	}
	if len(required) == 0 {
		return true
	}
	if rule.RequireAll {
		return HasAllRoles(p, required)
	}
	return HasAnyRole(p, required)
}

// Choose maps a decision onto rendered content: the fragment when granted,
// the fallback when denied (default: nothing), and a loading marker while
// inputs have not settled.
func Choose(d Decision, granted, fallback, loading template.HTML) template.HTML {
	switch d {
	case Granted:
		return granted
	case Denied:
		return fallback
	default:
		return loading
	}
}
