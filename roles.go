package approvals

// AdminRole is the role bucket of an admin directory account
type AdminRole string

const (
	// RoleViewer can read tasks and the directory
	RoleViewer AdminRole = "Viewer"
	// RoleModerator can also approve and reject tasks
	RoleModerator AdminRole = "Moderator"
	// RoleAdmin can also manage the admin directory
	RoleAdmin AdminRole = "Admin"
)

// IsValid checks if the role is one of the predefined valid roles
func (r AdminRole) IsValid() bool {
	switch r {
	case RoleViewer, RoleModerator, RoleAdmin:
		return true
	default:
		return false
	}
}

// CanReviewTasks checks if this role can approve or reject tasks
func (r AdminRole) CanReviewTasks() bool {
	switch r {
	case RoleModerator, RoleAdmin:
		return true
	default:
		return false
	}
}

// CanManageDirectory checks if this role can mutate admin accounts
func (r AdminRole) CanManageDirectory() bool {
	return r == RoleAdmin
}

// IsAtLeast checks if this role meets the minimum required level
func (r AdminRole) IsAtLeast(minRole AdminRole) bool {
	roleHierarchy := map[AdminRole]int{
		RoleViewer:    0,
		RoleModerator: 1,
		RoleAdmin:     2,
	}

	currentLevel, exists := roleHierarchy[r]
	if !exists {
		return false
	}

	minLevel, exists := roleHierarchy[minRole]
	if !exists {
		return false
	}

	return currentLevel >= minLevel
}

// GetAllAdminRoles returns all predefined roles in hierarchical order
func GetAllAdminRoles() []AdminRole {
	return []AdminRole{
		RoleViewer,
		RoleModerator,
		RoleAdmin,
	}
}

// ParseAdminRole safely parses a string into an AdminRole
func ParseAdminRole(roleStr string) (AdminRole, bool) {
	role := AdminRole(roleStr)
	return role, role.IsValid()
}

func adminRoleNames() []any {
	roles := GetAllAdminRoles()
	out := make([]any, 0, len(roles))
	for _, r := range roles {
		out = append(out, string(r))
	}
	return out
}
