package ports

import (
	"context"
	"time"

	"github.com/trainhub/auth-service/internal/core/domain"
)

// RegisterInput is the transport-neutral registration payload.
type RegisterInput struct {
	Name        string
	Email       string
	Phone       string
	Role        string
	Password    string
	Gender      string
	DateOfBirth *time.Time
}

// AuthResult is returned by every operation that issues tokens.
type AuthResult struct {
	User         *domain.User
	AccessToken  string
	RefreshToken string
	Outcome      domain.Outcome
}

// AuthService is the boundary the HTTP layer talks to.
type AuthService interface {
	Register(ctx context.Context, in RegisterInput, cc domain.ClientContext) (*AuthResult, error)
	Login(ctx context.Context, email, password string, cc domain.ClientContext) (*AuthResult, error)
	Refresh(ctx context.Context, refreshToken string, cc domain.ClientContext) (*AuthResult, error)
	Logout(ctx context.Context, refreshToken string) error
	LogoutAll(ctx context.Context, userID string) (int64, error)
	CompleteExternalLogin(ctx context.Context, profile domain.ExternalProfile, cc domain.ClientContext) (*AuthResult, error)
	VerifyAccessToken(token string) (*domain.AccessClaims, error)
	Profile(ctx context.Context, userID string) (*domain.User, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	DeleteUser(ctx context.Context, userID string) error
}
