package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Role is the fixed set of account roles. It doubles as the "scope" claim of
// a session token.
type Role string

const (
	RoleAdmin    Role = "ADMIN"
	RoleOwner    Role = "OWNER"
	RoleAgent    Role = "AGENT"
	RolePainter  Role = "PAINTER"
	RoleFlighter Role = "FLIGHTER"
	RoleClient   Role = "CLIENT"
)

var ErrInvalidRole = errors.New("domain: invalid role")

// Roles lists every valid role in declaration order.
func Roles() []Role {
	return []Role{RoleAdmin, RoleOwner, RoleAgent, RolePainter, RoleFlighter, RoleClient}
}

// ParseRole accepts a role name in any case.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidRole, s)
	}
	return r, nil
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleOwner, RoleAgent, RolePainter, RoleFlighter, RoleClient:
		return true
	}
	return false
}

func (r Role) String() string { return string(r) }
