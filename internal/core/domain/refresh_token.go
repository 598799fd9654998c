package domain

import "time"

// ClientContext is advisory metadata about the caller captured when a refresh
// token is issued. It is logged and stored, never compared on later use.
type ClientContext struct {
	IP        string
	UserAgent string
	Device    string
}

// RefreshToken is a stored, revocable bearer credential owned by a user.
type RefreshToken struct {
	ID        string
	UserID    string
	Token     string
	IP        string
	UserAgent string
	Device    string
	IssuedAt  time.Time
	ExpiresAt time.Time

	// User is populated by lookups that join the owning user.
	User *User
}

// Live reports whether the token can still be exchanged at now.
func (t *RefreshToken) Live(now time.Time) bool {
	return now.Before(t.ExpiresAt)
}

// TokenPair is what a caller receives after a successful authentication.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// AccessClaims are the verified contents of an access token.
type AccessClaims struct {
	Subject   string
	Email     string
	Role      string
	IssuedAt  time.Time
	ExpiresAt time.Time
}
