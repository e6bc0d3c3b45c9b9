package models

// Role is the coarse-grained identity category of a user. The set is closed;
// anything outside it is rejected before it reaches storage.
type Role string

const (
	RoleUser      Role = "user"
	RoleAdmin     Role = "admin"
	RoleHR        Role = "hr"
	RoleCandidate Role = "candidate"
)

// Roles lists every valid role in display order.
var Roles = []Role{RoleUser, RoleAdmin, RoleHR, RoleCandidate}

func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAdmin, RoleHR, RoleCandidate:
		return true
	default:
		return false
	}
}

func (r Role) String() string { return string(r) }

// ParseRole converts a raw string into a Role.
func ParseRole(s string) (Role, bool) {
	r := Role(s)
	return r, r.Valid()
}
