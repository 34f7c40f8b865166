package users

import (
	"errors"
	"strings"
)

type Role string

const (
	RoleUser       Role = "user"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "super_admin"
)

var ErrUnknownRole = errors.New("unknown role")

// AllRoles lists every role in display order.
var AllRoles = []Role{RoleUser, RoleAdmin, RoleSuperAdmin}

// ParseRole is the only place role spellings are normalized. It accepts any
// letter case and either '-' or '_' as separator ("SUPER-ADMIN", "Super_Admin").
func ParseRole(s string) (Role, error) {
	normalized := strings.ToLower(strings.TrimSpace(s))
	normalized = strings.ReplaceAll(normalized, "-", "_")

	role := Role(normalized)
	if !role.IsValid() {
		return "", ErrUnknownRole
	}
	return role, nil
}

func (r Role) IsValid() bool {
	return r.In(AllRoles...)
}

// RoleList renders AllRoles for client-facing messages, e.g. "user, admin, super_admin".
func RoleList() string {
	names := make([]string, len(AllRoles))
	for i, r := range AllRoles {
		names[i] = r.String()
	}
	return strings.Join(names, ", ")
}

func (r Role) String() string {
	return string(r)
}

// IsPrivileged reports whether the role may act on resources owned by others.
func (r Role) IsPrivileged() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

// In reports set membership; an empty set matches nothing.
func (r Role) In(roles ...Role) bool {
	for _, role := range roles {
		if r == role {
			return true
		}
	}
	return false
}
