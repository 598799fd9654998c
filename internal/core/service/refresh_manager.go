package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/trainhub/auth-service/internal/core/domain"
	"github.com/trainhub/auth-service/internal/core/ports"
)

// Rotation is the result of exchanging a refresh token.
type Rotation struct {
	User   *domain.User
	Tokens domain.TokenPair
}

// RefreshManager owns the refresh-token table: issuance, single-use rotation,
// revocation and expiry sweeps.
type RefreshManager struct {
	tokens ports.RefreshTokenRepository
	issuer *TokenIssuer
	cfg    TokenConfig
	log    zerolog.Logger
}

func NewRefreshManager(tokens ports.RefreshTokenRepository, issuer *TokenIssuer, cfg TokenConfig, log zerolog.Logger) *RefreshManager {
	return &RefreshManager{
		tokens: tokens,
		issuer: issuer,
		cfg:    cfg.withDefaults(),
		log:    log,
	}
}

// Issue mints a token pair for user and persists the refresh row bound to cc.
func (m *RefreshManager) Issue(ctx context.Context, user *domain.User, cc domain.ClientContext) (domain.TokenPair, error) {
	pair, err := m.issuer.Issue(user)
	if err != nil {
		return domain.TokenPair{}, err
	}

	now := m.cfg.now()
	row := &domain.RefreshToken{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		Token:     pair.RefreshToken,
		IP:        cc.IP,
		UserAgent: cc.UserAgent,
		Device:    cc.Device,
		IssuedAt:  now,
		ExpiresAt: now.Add(m.cfg.RefreshTTL),
	}
	if err := m.tokens.Create(ctx, row); err != nil {
		return domain.TokenPair{}, domain.Internal("store refresh token", err)
	}
	return pair, nil
}

// Rotate exchanges value for a new pair. The presented row is removed with a
// compare-and-delete: when two callers race on one value only the caller that
// actually deleted the row gets new tokens.
func (m *RefreshManager) Rotate(ctx context.Context, value string, cc domain.ClientContext) (*Rotation, error) {
	if value == "" {
		return nil, domain.ErrTokenInvalid
	}

	row, err := m.tokens.FindByToken(ctx, value)
	if err != nil {
		if errors.Is(err, domain.ErrRefreshTokenNotFound) {
			return nil, domain.ErrTokenInvalid
		}
		return nil, domain.Internal("find refresh token", err)
	}
	if !row.Live(m.cfg.now()) {
		return nil, fmt.Errorf("%w: refresh token expired at %s", domain.ErrTokenInvalid, row.ExpiresAt.Format("2006-01-02T15:04:05Z07:00"))
	}
	if row.User == nil {
		return nil, domain.ErrTokenInvalid
	}

	deleted, err := m.tokens.DeleteByToken(ctx, value)
	if err != nil {
		return nil, domain.Internal("delete refresh token", err)
	}
	if !deleted {
		m.log.Warn().
			Str("user_id", row.UserID).
			Str("ip", cc.IP).
			Msg("refresh token already consumed by a concurrent request")
		return nil, domain.ErrTokenInvalid
	}

	pair, err := m.Issue(ctx, row.User, cc)
	if err != nil {
		return nil, err
	}

	m.log.Debug().
		Str("user_id", row.UserID).
		Str("issued_ip", row.IP).
		Str("ip", cc.IP).
		Str("user_agent", cc.UserAgent).
		Str("device", cc.Device).
		Msg("refresh token rotated")

	return &Rotation{User: row.User, Tokens: pair}, nil
}

// Revoke deletes one refresh token. A missing token is not an error.
func (m *RefreshManager) Revoke(ctx context.Context, value string) error {
	if value == "" {
		return nil
	}
	if _, err := m.tokens.DeleteByToken(ctx, value); err != nil {
		return domain.Internal("delete refresh token", err)
	}
	return nil
}

// RevokeAll deletes every refresh token owned by userID.
func (m *RefreshManager) RevokeAll(ctx context.Context, userID string) (int64, error) {
	n, err := m.tokens.DeleteByUserID(ctx, userID)
	if err != nil {
		return 0, domain.Internal("delete user refresh tokens", err)
	}
	return n, nil
}

// SweepExpired purges rows whose expiry is at or before now.
func (m *RefreshManager) SweepExpired(ctx context.Context) (int64, error) {
	n, err := m.tokens.DeleteExpired(ctx, m.cfg.now())
	if err != nil {
		return 0, domain.Internal("delete expired refresh tokens", err)
	}
	return n, nil
}
