// Package auth holds dashboard principals, roles and password hashing.
package auth

import (
	"errors"
	"fmt"
	"strings"
)

const (
	RoleAdmin  = "admin"
	RoleViewer = "viewer"

	MethodPassword = "password"
	// MethodDisabled marks the principal used when AUTH_DISABLED is set.
	MethodDisabled = "disabled"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidRole        = errors.New("invalid role")
)

type Principal struct {
	UserID int64
	Email  string
	Role   string // "admin" or "viewer"
	Method string
}

func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// Anonymous is the principal for every request when authentication is off.
// It can trigger syncs like an admin.
func Anonymous() Principal {
	return Principal{Email: "local", Role: RoleAdmin, Method: MethodDisabled}
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ParseRole normalizes role and rejects unknown values.
func ParseRole(role string) (string, error) {
	switch r := strings.ToLower(strings.TrimSpace(role)); r {
	case RoleAdmin, RoleViewer:
		return r, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}
}
