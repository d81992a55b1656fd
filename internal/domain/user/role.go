package user

import (
	"errors"
	"strings"
)

// Role is a user role carried in JWT claims.
type Role string

const (
	RoleRequester Role = "REQUESTER"
	RoleOperator  Role = "OPERATOR"
	RoleAdmin     Role = "ADMIN"
)

var ErrInvalidRole = errors.New("invalid role")

// ParseRole normalizes (uppercases+trims) and validates a role string.
func ParseRole(s string) (Role, error) {
	role := Role(strings.ToUpper(strings.TrimSpace(s)))
	if role.Valid() {
		return role, nil
	}
	return "", ErrInvalidRole
}

// Valid reports whether role is one of the allowed role constants.
func (role Role) Valid() bool {
	switch role {
	case RoleRequester, RoleOperator, RoleAdmin:
		return true
	default:
		return false
	}
}

// String returns the string representation of the Role.
func (role Role) String() string {
	return string(role)
}

// Convenience helpers.
func (role Role) IsRequester() bool { return role == RoleRequester }
func (role Role) IsOperator() bool  { return role == RoleOperator }
func (role Role) IsAdmin() bool     { return role == RoleAdmin }
