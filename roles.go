package accounts

import "strings"

// Role is the user's role
type Role string

const (
	// RoleUser is the default role for new accounts
	RoleUser Role = "user"
	// RoleModerator can list accounts
	RoleModerator Role = "moderator"
	// RoleAdmin can manage every account
	RoleAdmin Role = "admin"
)

// Roles lists every supported role
var Roles = []Role{RoleUser, RoleModerator, RoleAdmin}

// IsValid checks if the role is one of the predefined valid roles
func (r Role) IsValid() bool {
	switch r {
	case RoleUser, RoleModerator, RoleAdmin:
		return true
	default:
		return false
	}
}

func (r Role) String() string {
	return string(r)
}

// ParseRole normalizes a role name, falling back to RoleUser
// when the value is empty.
func ParseRole(s string) (Role, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return RoleUser, true
	}
	r := Role(s)
	return r, r.IsValid()
}

// In reports whether the role is part of the given set
func (r Role) In(roles ...Role) bool {
	for _, candidate := range roles {
		if candidate == r {
			return true
		}
	}
	return false
}
