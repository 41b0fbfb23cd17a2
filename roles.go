package auth

import "strings"

// roleHierarchy maps a role to every role it is entitled to act as.
var roleHierarchy = map[Role][]Role{
	RoleAdmin:   {RoleAdmin, RoleManager, RoleSales},
	RoleManager: {RoleManager, RoleSales},
	RoleSales:   {RoleSales},
}

// IsValid checks if the role is one of the predefined valid roles
func (r Role) IsValid() bool {
	_, ok := roleHierarchy[r]
	return ok
}

// EntitledRoles returns the roles r may act as. Unknown roles get none.
func (r Role) EntitledRoles() []Role {
	roles := roleHierarchy[r]
	out := make([]Role, len(roles))
	copy(out, roles)
	return out
}

// Satisfies reports whether r is entitled to act as required.
func (r Role) Satisfies(required Role) bool {
	for _, e := range roleHierarchy[r] {
		if e == required {
			return true
		}
	}
	return false
}

// IsAtLeast checks if the role is at least the minimum required role
func (r Role) IsAtLeast(minRole Role) bool {
	return r.Satisfies(minRole)
}

// Authorize reports whether role may perform an operation requiring any
// of required. An empty requirement always allows.
func Authorize(role Role, required []Role) bool {
	if len(required) == 0 {
		return true
	}
	for _, req := range required {
		if role.Satisfies(req) {
			return true
		}
	}
	return false
}

// ParseRole converts a string to a Role.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.IsValid() {
		return "", false
	}
	return r, true
}

// GetAllRoles returns all valid roles, most privileged first.
func GetAllRoles() []Role {
	return []Role{RoleAdmin, RoleManager, RoleSales}
}
