package auth

import "slices"

// Permission represents a named capability in the system.
type Permission string

// Permission constants.
const (
	PermDeviceRead    Permission = "device:read"
	PermDeviceCommand Permission = "device:command"
	PermLockOperate   Permission = "lock:operate"
	PermLockManage    Permission = "lock:manage"
	PermAuditRead     Permission = "audit:read"
	PermLogManage     Permission = "log:manage"
)

// rolePermissions maps each role to its granted permissions.
// This is the single source of truth for the authorisation model.
var rolePermissions = map[Role][]Permission{
	RoleViewer: {
		PermDeviceRead,
	},
	RoleOperator: {
		PermDeviceRead,
		PermDeviceCommand,
		PermLockOperate,
	},
	RoleAdmin: {
		PermDeviceRead,
		PermDeviceCommand,
		PermLockOperate,
		PermLockManage,
		PermAuditRead,
		PermLogManage,
	},
}

// HasPermission returns true if the given role has the specified permission.
func HasPermission(role Role, perm Permission) bool {
	return slices.Contains(rolePermissions[role], perm)
}

// PermissionsForRole returns all permissions granted to a role.
// Returns nil for unknown roles.
func PermissionsForRole(role Role) []Permission {
	perms := rolePermissions[role]
	if perms == nil {
		return nil
	}
	return slices.Clone(perms)
}
