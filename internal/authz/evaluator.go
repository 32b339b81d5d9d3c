package authz

// Principal is the resolved current user for authorization purposes. It is
// constructed by the identity resolver on each auth-state change and treated
// as read-only by every consumer.
type Principal struct {
	ID        int64
	Role      Role
	Active    bool
	Overrides []string
}

// Decision is the tri-state outcome of an access check. Indeterminate means
// the principal or its permission data has not settled yet; guards must not
// render it as a denial.
type Decision int

const (
	// Indeterminate means inputs are still loading.
	Indeterminate Decision = iota
	// Denied means the check completed and access is refused.
	Denied
	// Granted means the check completed and access is allowed.
	Granted
)

// Snapshot is the evaluator's view of the current principal. Ready is true
// only once both the session check and the permission fetch have settled; a
// nil Principal with Ready true means "resolved, unauthenticated".
type Snapshot struct {
	Principal *Principal
	Ready     bool
}

// HasPermission reports whether the principal holds the permission, either
// through its role's default set or a per-user override grant. Inactive
// principals hold no permissions regardless of role.
func HasPermission(p *Principal, permission string) bool {
	if p == nil || !p.Active || permission == "" {
		return false
	}
	for _, granted := range Info(p.Role).Permissions {
		if granted == permission {
			return true
		}
	}
	for _, granted := range p.Overrides {
		if granted == permission {
			return true
		}
	}
	return false
}

// HasRole reports an exact role match.
func HasRole(p *Principal, role Role) bool {
	return p != nil && p.Role == role
}

// HasAnyRole reports whether the principal's role matches at least one entry.
// An empty list is vacuously satisfied.
func HasAnyRole(p *Principal, roles []Role) bool {
	if len(roles) == 0 {
		return true
	}
	for _, role := range roles {
		if HasRole(p, role) {
			return true
		}
	}
	return false
}

// HasAllRoles reports whether the principal matches every entry. With more
// than one distinct role this can never hold; kept for RequireAll symmetry.
func HasAllRoles(p *Principal, roles []Role) bool {
	for _, role := range roles {
		if !HasRole(p, role) {
			return false
		}
	}
	return true
}

// HasAllPermissions reports whether every permission is held. An empty list
// is vacuously satisfied.
func HasAllPermissions(p *Principal, permissions []string) bool {
	for _, permission := range permissions {
		if !HasPermission(p, permission) {
			return false
		}
	}
	return true
}

// HasAnyPermission reports whether at least one permission is held. An empty
// list is vacuously satisfied.
func HasAnyPermission(p *Principal, permissions []string) bool {
	if len(permissions) == 0 {
		return true
	}
	for _, permission := range permissions {
		if HasPermission(p, permission) {
			return true
		}
	}
	return false
}
