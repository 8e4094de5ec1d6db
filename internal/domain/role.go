package domain

import "strings"

// Roles, lowest privilege last.
const (
	RoleAdmin  = "admin"
	RoleEditor = "editor"
	RoleUser   = "user"
)

// DefaultRole is assigned when registration names none.
const DefaultRole = RoleUser

// ValidRoles returns the role enumeration.
func ValidRoles() []string {
	return []string{RoleAdmin, RoleEditor, RoleUser}
}

// IsValidRole reports whether role is in the enumeration. Stored roles are
// lowercase, so the comparison is exact.
func IsValidRole(role string) bool {
	for _, r := range ValidRoles() {
		if r == role {
			return true
		}
	}
	return false
}

// HasRole compares case-insensitively.
func HasRole(role string, allowed ...string) bool {
	for _, a := range allowed {
		if strings.EqualFold(role, a) {
			return true
		}
	}
	return false
}
