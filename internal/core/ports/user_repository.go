package ports

import (
	"context"

	"github.com/trainhub/auth-service/internal/core/domain"
)

// UserRepository persists users. Implementations must enforce unique email
// and unique (when present) external id, reporting violations as
// domain.ErrEmailTaken / domain.ErrExternalIDTaken.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByExternalID(ctx context.Context, externalID string) (*domain.User, error)
	// LinkExternalID sets external id and marks the user verified in a single
	// update. It only applies when the user has no external id or already has
	// this one; otherwise it returns domain.ErrUserNotFound.
	LinkExternalID(ctx context.Context, userID, externalID string) error
	// Delete removes the user and every refresh token it owns.
	Delete(ctx context.Context, id string) error
}
