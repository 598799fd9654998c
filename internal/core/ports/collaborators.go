package ports

import (
	"context"
	"time"

	"github.com/trainhub/auth-service/internal/core/domain"
)

// PasswordHasher is a one-way hash with constant-time verification.
type PasswordHasher interface {
	Hash(password string) (string, error)
	// Verify returns false, nil on mismatch and an error only when the hash
	// itself cannot be checked.
	Verify(hash, password string) (bool, error)
}

// IdentityProvider runs the out-of-band part of an OAuth2 login.
type IdentityProvider interface {
	Name() string
	AuthCodeURL(state string) string
	// Exchange trades an authorization code for the caller's verified profile.
	Exchange(ctx context.Context, code string) (*domain.ExternalProfile, error)
}

// StateStore keeps single-use OAuth state values.
type StateStore interface {
	Save(ctx context.Context, state string, ttl time.Duration) error
	// Consume deletes state and reports whether it existed.
	Consume(ctx context.Context, state string) (bool, error)
}
