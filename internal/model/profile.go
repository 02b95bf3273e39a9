package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// UserRole represents the role assigned to a profile.
type UserRole string

const (
	RoleAdmin   UserRole = "admin"
	RoleCreator UserRole = "creator"
	RoleClient  UserRole = "client"
)

// Profile represents an authenticated user identity.
type Profile struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	FullName     *string   `json:"full_name,omitempty"`
	AvatarURL    *string   `json:"avatar_url,omitempty"`
	Role         UserRole  `json:"role"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// RoleRank returns the numeric rank of a role (higher = more privileges).
// Only relative ordering matters; RoleAtLeast uses >= comparison.
func RoleRank(r UserRole) int {
	switch r {
	case RoleAdmin:
		return 3
	case RoleCreator:
		return 2
	case RoleClient:
		return 1
	default:
		return 0
	}
}

// RoleAtLeast returns true if role r has at least the privileges of minRole.
func RoleAtLeast(r, minRole UserRole) bool {
	return RoleRank(r) >= RoleRank(minRole)
}

// ValidRole reports whether r is one of the defined roles.
func ValidRole(r UserRole) bool {
	return r == RoleAdmin || r == RoleCreator || r == RoleClient
}

// ValidateEmail checks that an email address has a plausible shape.
// This is a cheap structural check, not RFC 5322 validation; the point is
// rejecting obvious garbage before it reaches the unique index on profiles.
func ValidateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("email is required")
	}
	if len(email) > 320 {
		return fmt.Errorf("email must be at most 320 characters")
	}
	at := strings.IndexByte(email, '@')
	if at <= 0 || at == len(email)-1 {
		return fmt.Errorf("invalid email address")
	}
	if strings.ContainsAny(email, " \t\r\n") {
		return fmt.Errorf("email must not contain whitespace")
	}
	return nil
}

// MinPasswordLen is the minimum accepted password length for signup.
const MinPasswordLen = 8

// ValidatePassword checks signup password requirements.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLen {
		return fmt.Errorf("password must be at least %d characters", MinPasswordLen)
	}
	if len(password) > 1024 {
		return fmt.Errorf("password must be at most 1024 characters")
	}
	return nil
}
