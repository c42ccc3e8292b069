// Package auth - roles.go defines the role model consulted by the workflow
// access policy. Roles arrive in verified JWT claims; the server trusts the
// issuing identity service for role assignment.
package auth

// Role is an actor's privilege level
type Role string

const (
	// RoleAdmin may apply any mutation directly and decide workflow requests
	RoleAdmin Role = "admin"
	// RoleStaff may propose mutations; destructive ones always route through approval
	RoleStaff Role = "staff"
	// RoleViewer has read-only access
	RoleViewer Role = "viewer"
)

// ParseRole returns the Role for s, or RoleViewer for anything unrecognised.
// Unknown roles degrade to the least privilege rather than erroring, so a
// mis-issued token can never escalate.
func ParseRole(s string) Role {
	switch Role(s) {
	case RoleAdmin, RoleStaff, RoleViewer:
		return Role(s)
	}
	return RoleViewer
}

// CanReview reports whether the role may decide workflow requests
func (r Role) CanReview() bool {
	return r == RoleAdmin
}

// CanPropose reports whether the role may submit mutations at all
func (r Role) CanPropose() bool {
	return r == RoleAdmin || r == RoleStaff
}
