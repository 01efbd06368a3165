package domain

import (
	"fmt"
	"strings"
	"time"
)

// Role enumerates the closed set of user roles.
type Role string

const (
	RoleSales  Role = "sales"
	RoleDoctor Role = "doctor"
	RoleAdmin  Role = "admin"
)

// ParseRole validates a raw role value.
func ParseRole(raw string) (Role, error) {
	role := Role(strings.ToLower(strings.TrimSpace(raw)))
	if !role.Valid() {
		return "", fmt.Errorf("unknown role %q", raw)
	}
	return role, nil
}

// Valid reports whether the role is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSales, RoleDoctor, RoleAdmin:
		return true
	}
	return false
}

// User is an identity record. Email is the natural key across the system.
type User struct {
	ID           int64
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
}

// NormalizeEmail trims and lowercases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
