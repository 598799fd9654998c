package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/trainhub/auth-service/internal/core/domain"
	"github.com/trainhub/auth-service/internal/core/ports"
)

// AuthService implements registration, login, external login, refresh and logout.
type AuthService struct {
	resolver *IdentityResolver
	refresh  *RefreshManager
	issuer   *TokenIssuer
	users    ports.UserRepository
	log      zerolog.Logger
}

func NewAuthService(
	resolver *IdentityResolver,
	refresh *RefreshManager,
	issuer *TokenIssuer,
	users ports.UserRepository,
	log zerolog.Logger,
) *AuthService {
	return &AuthService{
		resolver: resolver,
		refresh:  refresh,
		issuer:   issuer,
		users:    users,
		log:      log,
	}
}

var _ ports.AuthService = (*AuthService)(nil)

func (s *AuthService) Register(ctx context.Context, in ports.RegisterInput, cc domain.ClientContext) (*ports.AuthResult, error) {
	res, err := s.resolver.Resolve(ctx, domain.LocalRegistration{
		Name:        in.Name,
		Email:       in.Email,
		Phone:       in.Phone,
		Role:        in.Role,
		Password:    in.Password,
		Gender:      in.Gender,
		DateOfBirth: in.DateOfBirth,
	})
	if err != nil {
		return nil, err
	}
	return s.startSession(ctx, res, cc)
}

func (s *AuthService) Login(ctx context.Context, email, password string, cc domain.ClientContext) (*ports.AuthResult, error) {
	res, err := s.resolver.Resolve(ctx, domain.LocalLogin{Email: email, Password: password})
	if err != nil {
		return nil, err
	}
	return s.startSession(ctx, res, cc)
}

func (s *AuthService) CompleteExternalLogin(ctx context.Context, profile domain.ExternalProfile, cc domain.ClientContext) (*ports.AuthResult, error) {
	res, err := s.resolver.Resolve(ctx, profile)
	if err != nil {
		return nil, err
	}
	return s.startSession(ctx, res, cc)
}

// startSession drops every earlier refresh token of the user and issues a new pair.
func (s *AuthService) startSession(ctx context.Context, res *domain.Resolution, cc domain.ClientContext) (*ports.AuthResult, error) {
	revoked, err := s.refresh.RevokeAll(ctx, res.User.ID)
	if err != nil {
		return nil, err
	}

	pair, err := s.refresh.Issue(ctx, res.User, cc)
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("user_id", res.User.ID).
		Str("outcome", string(res.Outcome)).
		Int64("revoked_tokens", revoked).
		Str("ip", cc.IP).
		Msg("session started")

	return &ports.AuthResult{
		User:         res.User,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		Outcome:      res.Outcome,
	}, nil
}

func (s *AuthService) Refresh(ctx context.Context, refreshToken string, cc domain.ClientContext) (*ports.AuthResult, error) {
	rot, err := s.refresh.Rotate(ctx, refreshToken, cc)
	if err != nil {
		return nil, err
	}
	return &ports.AuthResult{
		User:         rot.User,
		AccessToken:  rot.Tokens.AccessToken,
		RefreshToken: rot.Tokens.RefreshToken,
	}, nil
}

func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	return s.refresh.Revoke(ctx, refreshToken)
}

func (s *AuthService) LogoutAll(ctx context.Context, userID string) (int64, error) {
	return s.refresh.RevokeAll(ctx, userID)
}

func (s *AuthService) VerifyAccessToken(token string) (*domain.AccessClaims, error) {
	return s.issuer.Verify(token)
}

// Profile returns the user behind a verified access token.
func (s *AuthService) Profile(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, fmt.Errorf("%w: user no longer exists", domain.ErrUnauthenticated)
		}
		return nil, domain.Internal("find user", err)
	}
	return user, nil
}

func (s *AuthService) EmailExists(ctx context.Context, email string) (bool, error) {
	email = domain.NormalizeEmail(email)
	if email == "" {
		return false, fmt.Errorf("%w: email is required", domain.ErrInvalidInput)
	}
	_, err := s.users.FindByEmail(ctx, email)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, domain.ErrUserNotFound):
		return false, nil
	default:
		return false, domain.Internal("find user by email", err)
	}
}

// DeleteUser removes the user; the store cascades to its refresh tokens.
func (s *AuthService) DeleteUser(ctx context.Context, userID string) error {
	if err := s.users.Delete(ctx, userID); err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return err
		}
		return domain.Internal("delete user", err)
	}
	s.log.Info().Str("user_id", userID).Msg("user deleted")
	return nil
}
