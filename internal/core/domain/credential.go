package domain

import "time"

// Credential is one of LocalRegistration, LocalLogin or ExternalProfile.
type Credential interface {
	credential()
}

// LocalRegistration creates a password-backed account.
type LocalRegistration struct {
	Name        string
	Email       string
	Phone       string
	Role        string
	Password    string
	Gender      string
	DateOfBirth *time.Time
}

// LocalLogin authenticates an existing password-backed account.
type LocalLogin struct {
	Email    string
	Password string
}

// ExternalProfile is the verified identity returned by an external provider
// after it authenticated the caller.
type ExternalProfile struct {
	Provider    string
	ExternalID  string
	Email       string
	DisplayName string
	Gender      string
	DateOfBirth *time.Time
}

func (LocalRegistration) credential() {}
func (LocalLogin) credential()        {}
func (ExternalProfile) credential()   {}

// Outcome records which branch of identity resolution produced the user.
type Outcome string

const (
	OutcomeRegistered          Outcome = "registered"
	OutcomeAuthenticated       Outcome = "authenticated"
	OutcomeMatchedByExternalID Outcome = "matched_by_external_id"
	OutcomeLinkedByEmail       Outcome = "linked_by_email"
	OutcomeCreated             Outcome = "created"
)

// Resolution is the result of mapping a credential to a user.
type Resolution struct {
	User    *User
	Outcome Outcome
}
