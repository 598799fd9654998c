package domain

import (
	"strings"
	"time"
)

const (
	RoleClient  = "client"
	RoleTrainer = "trainer"
	RoleAdmin   = "admin"
)

// ValidRole reports whether role is one of the roles the system knows about.
func ValidRole(role string) bool {
	switch role {
	case RoleClient, RoleTrainer, RoleAdmin:
		return true
	}
	return false
}

// User is the canonical identity every credential resolves to.
type User struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Phone        string     `json:"phone,omitempty"`
	Email        string     `json:"email"`
	Role         string     `json:"role"`
	PasswordHash string     `json:"-"`
	ExternalID   string     `json:"-"`
	IsVerified   bool       `json:"isVerified"`
	Gender       string     `json:"gender,omitempty"`
	DateOfBirth  *time.Time `json:"dateOfBirth,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// HasPassword reports whether the account can sign in with a local password.
func (u *User) HasPassword() bool {
	return u.PasswordHash != ""
}

// HasCredential reports whether at least one of password or external identity is set.
func (u *User) HasCredential() bool {
	return u.PasswordHash != "" || u.ExternalID != ""
}

// NormalizeEmail trims and lower-cases an address so lookups and the unique
// index see one canonical form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidBirthDate reports whether dob is not after today (UTC, date precision).
func ValidBirthDate(dob, now time.Time) bool {
	y, m, d := now.UTC().Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return !dob.UTC().After(today)
}
