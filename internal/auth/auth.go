// Package auth verifies operator tokens and maps them to an identity
// with one of three roles. Sessions authenticate with a signed JWT in
// their first frame; the subject claim yields the user id and the role
// claim yields the permission level.
package auth

// Role is the permission level carried in a verified token.
type Role string

const (
	RoleViewer   Role = "viewer"
	RoleOperator Role = "operator"
	RoleAdmin    Role = "admin"
)

// ValidRole reports whether r is a known role.
func ValidRole(r Role) bool {
	switch r {
	case RoleViewer, RoleOperator, RoleAdmin:
		return true
	}
	return false
}

// CanCommand reports whether the role may send actuation commands.
func (r Role) CanCommand() bool {
	return r == RoleOperator || r == RoleAdmin
}

// AtLeast reports whether r grants at least the permissions of other.
func (r Role) AtLeast(other Role) bool {
	return rank(r) >= rank(other)
}

func rank(r Role) int {
	switch r {
	case RoleAdmin:
		return 3
	case RoleOperator:
		return 2
	case RoleViewer:
		return 1
	}
	return 0
}

// Identity is an authenticated user.
type Identity struct {
	UserID string
	Role   Role
}
