package domain

import dErrors "shamba/pkg/domain-errors"

// Role is the access-control role attached to every identity. The engine
// trusts the role handed to it by the identity collaborator and never
// re-derives it.
type Role string

const (
	RoleResident        Role = "resident"
	RoleCommunityMember Role = "community_member"
	RoleLocalLeader     Role = "local_leader"
	RoleLeader          Role = "leader"
	RoleAdmin           Role = "admin"
)

// validRoles is the single source of truth for supported roles.
var validRoles = map[Role]bool{
	RoleResident:        true,
	RoleCommunityMember: true,
	RoleLocalLeader:     true,
	RoleLeader:          true,
	RoleAdmin:           true,
}

// ParseRole constructs a Role from external input.
//
// Errors: CodeInvalidInput when the value is empty or unsupported.
func ParseRole(s string) (Role, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "role cannot be empty")
	}
	r := Role(s)
	if !validRoles[r] {
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "unsupported role %q", s)
	}
	return r, nil
}

// CanEndorse reports whether the role may endorse or reject claims.
// Jurisdiction is checked separately by the endorsement gate.
func (r Role) CanEndorse() bool {
	return r == RoleLocalLeader || r == RoleLeader
}

// CanAdjudicate reports whether the role may assign, resolve, or close disputes.
func (r Role) CanAdjudicate() bool {
	return r == RoleLocalLeader || r == RoleLeader || r == RoleAdmin
}

func (r Role) String() string { return string(r) }
