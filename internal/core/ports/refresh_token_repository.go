package ports

import (
	"context"
	"time"

	"github.com/trainhub/auth-service/internal/core/domain"
)

// RefreshTokenRepository persists refresh tokens. The token value is unique.
type RefreshTokenRepository interface {
	Create(ctx context.Context, token *domain.RefreshToken) error
	// FindByToken returns the row for value with its owning user joined in,
	// or domain.ErrRefreshTokenNotFound.
	FindByToken(ctx context.Context, value string) (*domain.RefreshToken, error)
	// DeleteByToken reports whether a row was removed.
	DeleteByToken(ctx context.Context, value string) (bool, error)
	DeleteByUserID(ctx context.Context, userID string) (int64, error)
	// DeleteExpired removes rows with expires_at <= now.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
