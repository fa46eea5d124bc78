package auth

// Role is an authorisation tier.
type Role string

const (
	// RoleViewer may read run status.
	RoleViewer Role = "viewer"

	// RoleOperator may also pause, resume, stop and suspend the run.
	RoleOperator Role = "operator"
)

// Permission is a named capability.
type Permission string

const (
	PermStatusRead Permission = "status:read"
	PermRunControl Permission = "run:control"
)

var rolePermissions = map[Role][]Permission{
	RoleViewer:   {PermStatusRead},
	RoleOperator: {PermStatusRead, PermRunControl},
}

// ParseRole returns the role named s and whether it exists.
func ParseRole(s string) (Role, bool) {
	r := Role(s)
	_, ok := rolePermissions[r]
	return r, ok
}

// HasPermission reports whether role grants perm. Unknown roles grant nothing.
func HasPermission(role Role, perm Permission) bool {
	for _, p := range rolePermissions[role] {
		if p == perm {
			return true
		}
	}
	return false
}
