package auth

import "strings"

// Role is the closed set of portal roles carried in the session token.
type Role int

const (
	// RoleUnknown covers a missing, empty or unrecognised role claim.
	RoleUnknown Role = iota
	RoleAdministrator
	RoleParticipant
	RoleNGO
	RoleCollectionCenter
)

var roleNames = map[Role]string{
	RoleAdministrator:    "ADMINISTRADOR",
	RoleParticipant:      "PARTICIPANTE",
	RoleNGO:              "ONG",
	RoleCollectionCenter: "CENTRO_ACOPIO",
}

// ParseRole maps the wire value of a role claim onto a Role.
func ParseRole(s string) Role {
	s = strings.TrimSpace(s)
	for r, name := range roleNames {
		if name == s {
			return r
		}
	}
	return RoleUnknown
}

// String returns the wire value, or "" for RoleUnknown.
func (r Role) String() string {
	return roleNames[r]
}

// Known reports whether r is one of the enumerated roles.
func (r Role) Known() bool {
	_, ok := roleNames[r]
	return ok
}

// Roles lists every known role in declaration order.
func Roles() []Role {
	return []Role{RoleAdministrator, RoleParticipant, RoleNGO, RoleCollectionCenter}
}
