// Package authz implements the static role and permission model used by the
// route guard and component gate. Roles form a closed set declared at build
// time; permissions are plain "resource:action" strings compared by equality.
package authz

// Role identifies an authority level drawn from the registry.
type Role string

// Registered roles, highest authority first.
const (
	RoleSuperAdmin Role = "super_admin"
	RoleAdmin      Role = "admin"
	RoleManager    Role = "manager"
	RoleAgent      Role = "agent"
	RoleEmployee   Role = "employee"
	RoleClient     Role = "client"
)

// Permission tokens. The universe is fixed alongside the registry.
const (
	PermUsersRead   = "users:read"
	PermUsersWrite  = "users:write"
	PermUsersDelete = "users:delete"

	PermRolesManage = "roles:manage"

	PermPropertiesRead    = "properties:read"
	PermPropertiesWrite   = "properties:write"
	PermPropertiesDelete  = "properties:delete"
	PermPropertiesPublish = "properties:publish"

	PermRequestsRead   = "requests:read"
	PermRequestsWrite  = "requests:write"
	PermRequestsAssign = "requests:assign"

	PermClientsRead  = "clients:read"
	PermClientsWrite = "clients:write"

	PermNotificationsRead = "notifications:read"
	PermNotificationsSend = "notifications:send"

	PermFilesUpload = "files:upload"
	PermFilesDelete = "files:delete"

	PermReportsView   = "reports:view"
	PermReportsExport = "reports:export"

	PermDashboardView  = "dashboard:view"
	PermSystemSettings = "system:settings"
)

// RoleInfo carries registry metadata for a single role.
type RoleInfo struct {
	Role        Role
	Name        string
	Level       int
	Color       string
	Permissions []string
}

// registry is ordered by descending level so All() can feed role selectors
// and dashboards without re-sorting.
var registry = []RoleInfo{
	{
		Role:        RoleSuperAdmin,
		Name:        "Super Administrator",
		Level:       100,
		Color:       "purple",
		Permissions: AllPermissions(),
	},
	{
		Role:  RoleAdmin,
		Name:  "Administrator",
		Level: 80,
		Color: "red",
		Permissions: []string{
			PermUsersRead, PermUsersWrite, PermUsersDelete,
			PermRolesManage,
			PermPropertiesRead, PermPropertiesWrite, PermPropertiesDelete, PermPropertiesPublish,
			PermRequestsRead, PermRequestsWrite, PermRequestsAssign,
			PermClientsRead, PermClientsWrite,
			PermNotificationsRead, PermNotificationsSend,
			PermFilesUpload, PermFilesDelete,
			PermReportsView, PermReportsExport,
			PermDashboardView,
		},
	},
	{
		Role:  RoleManager,
		Name:  "Manager",
		Level: 60,
		Color: "orange",
		Permissions: []string{
			PermUsersRead,
			PermPropertiesRead, PermPropertiesWrite, PermPropertiesPublish,
			PermRequestsRead, PermRequestsWrite, PermRequestsAssign,
			PermClientsRead, PermClientsWrite,
			PermNotificationsRead, PermNotificationsSend,
			PermFilesUpload,
			PermReportsView, PermReportsExport,
			PermDashboardView,
		},
	},
	{
		Role:  RoleAgent,
		Name:  "Agent",
		Level: 40,
		Color: "blue",
		Permissions: []string{
			PermPropertiesRead, PermPropertiesWrite,
			PermRequestsRead, PermRequestsWrite,
			PermClientsRead, PermClientsWrite,
			PermNotificationsRead,
			PermFilesUpload,
			PermDashboardView,
		},
	},
	{
		Role:  RoleEmployee,
		Name:  "Employee",
		Level: 20,
		Color: "teal",
		Permissions: []string{
			PermPropertiesRead,
			PermRequestsRead,
			PermNotificationsRead,
			PermDashboardView,
		},
	},
	{
		Role:  RoleClient,
		Name:  "Client",
		Level: 10,
		Color: "gray",
		Permissions: []string{
			PermPropertiesRead,
			PermRequestsWrite,
			PermNotificationsRead,
		},
	},
}

var registryIndex = buildIndex()

func buildIndex() map[Role]RoleInfo {
	index := make(map[Role]RoleInfo, len(registry))
	for _, info := range registry {
		index[info.Role] = info
	}
	return index
}

// AllPermissions returns the complete permission universe.
func AllPermissions() []string {
	return []string{
		PermUsersRead, PermUsersWrite, PermUsersDelete,
		PermRolesManage,
		PermPropertiesRead, PermPropertiesWrite, PermPropertiesDelete, PermPropertiesPublish,
		PermRequestsRead, PermRequestsWrite, PermRequestsAssign,
		PermClientsRead, PermClientsWrite,
		PermNotificationsRead, PermNotificationsSend,
		PermFilesUpload, PermFilesDelete,
		PermReportsView, PermReportsExport,
		PermDashboardView, PermSystemSettings,
	}
}

// Info returns registry metadata for a role. Unknown roles fail closed: a
// zero-permission entry with Level -1, never a grant.
func Info(role Role) RoleInfo {
	if info, ok := registryIndex[role]; ok {
		perms := make([]string, len(info.Permissions))
		copy(perms, info.Permissions)
		info.Permissions = perms
		return info
	}
	return RoleInfo{Role: role, Name: "Unknown", Level: -1, Color: "gray"}
}

// All returns every registered role ordered by descending level.
func All() []RoleInfo {
	out := make([]RoleInfo, len(registry))
	for i, info := range registry {
		perms := make([]string, len(info.Permissions))
		copy(perms, info.Permissions)
		info.Permissions = perms
		out[i] = info
	}
	return out
}

// ParseRole maps a stored role string onto the registry.
func ParseRole(raw string) (Role, bool) {
	role := Role(raw)
	_, ok := registryIndex[role]
	return role, ok
}
