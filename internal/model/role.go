package model

import (
	"fmt"
	"strings"
)

// Role is the authorization level attached to a dashboard user. The set is
// closed: anything outside it is rejected at the boundary.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleViewer Role = "viewer"
)

// Roles lists every valid role in display order.
var Roles = []Role{RoleAdmin, RoleViewer}

// ErrUnknownRole is returned by ParseRole for values outside the enum.
var ErrUnknownRole = fmt.Errorf("unknown role (valid: %s, %s)", RoleAdmin, RoleViewer)

// ParseRole converts a caller-supplied string into a Role. Surrounding
// whitespace is ignored; matching is case-sensitive.
func ParseRole(s string) (Role, error) {
	switch r := Role(strings.TrimSpace(s)); r {
	case RoleAdmin, RoleViewer:
		return r, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
	}
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleViewer
}

// IsAdmin reports whether r grants admin-only operations.
func (r Role) IsAdmin() bool {
	return r == RoleAdmin
}

func (r Role) String() string {
	return string(r)
}
