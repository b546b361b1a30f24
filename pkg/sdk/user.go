package sdk

import "strings"

// Role is the closed set of roles the client distinguishes.
type Role int

const (
	RoleUnknown Role = iota
	RoleResearcher
	RoleReviewer
	RoleAuditor
	RoleAdmin
)

var roleNames = map[Role]string{
	RoleUnknown:    "unknown",
	RoleResearcher: "researcher",
	RoleReviewer:   "reviewer",
	RoleAuditor:    "auditor",
	RoleAdmin:      "admin",
}

// ParseRole maps a backend role string onto a Role, ignoring case and
// surrounding whitespace. Unrecognised values yield RoleUnknown.
func ParseRole(s string) Role {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "admin":
		return RoleAdmin
	case "researcher":
		return RoleResearcher
	case "reviewer":
		return RoleReviewer
	case "auditor":
		return RoleAuditor
	default:
		return RoleUnknown
	}
}

func (r Role) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return roleNames[RoleUnknown]
}

// AssignableRoles lists the roles an administrator may grant.
func AssignableRoles() []Role {
	return []Role{RoleResearcher, RoleReviewer, RoleAuditor, RoleAdmin}
}

// User is the profile returned by GET /auth/me.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	RawRole   string    `json:"role"`
	IsActive  bool      `json:"is_active"`
	CreatedAt Timestamp `json:"created_at,omitzero"`
}

// Role returns the parsed role.
func (u *User) Role() Role {
	if u == nil {
		return RoleUnknown
	}
	return ParseRole(u.RawRole)
}
