package authz

// CanManageRole reports whether an actor may change a target's role. The
// actor's hierarchy level must be strictly greater than the target's: a role
// never manages itself or a peer, which rules out privilege self-escalation
// and lateral tampering. Unknown roles on either side fail closed.
func CanManageRole(actor, target Role) bool {
	actorInfo := Info(actor)
	targetInfo := Info(target)
	if actorInfo.Level < 0 || targetInfo.Level < 0 {
		return false
	}
	return actorInfo.Level > targetInfo.Level
}

// ManageableRoles lists the roles the actor may assign, ordered by descending
// level. Used to populate role selectors so the UI never offers an option the
// server would reject.
func ManageableRoles(actor Role) []RoleInfo {
	var out []RoleInfo
	for _, info := range All() {
		if CanManageRole(actor, info.Role) {
			out = append(out, info)
		}
	}
	return out
}
