package service

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/trainhub/auth-service/internal/core/domain"
)

const (
	defaultAccessTTL  = 15 * time.Minute
	defaultRefreshTTL = 15 * 24 * time.Hour
	refreshValueBytes = 32
)

// TokenConfig is built once at startup and shared read-only by the issuer and
// the refresh manager.
type TokenConfig struct {
	Secret     []byte
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	// Now defaults to time.Now.
	Now func() time.Time
}

func (c TokenConfig) withDefaults() TokenConfig {
	if c.AccessTTL <= 0 {
		c.AccessTTL = defaultAccessTTL
	}
	if c.RefreshTTL <= 0 {
		c.RefreshTTL = defaultRefreshTTL
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}

func (c TokenConfig) now() time.Time {
	return c.Now().UTC()
}

type accessClaims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// TokenIssuer mints signed access tokens and opaque refresh values.
type TokenIssuer struct {
	cfg TokenConfig
}

func NewTokenIssuer(cfg TokenConfig) (*TokenIssuer, error) {
	if len(cfg.Secret) == 0 {
		return nil, errors.New("token issuer: signing secret is required")
	}
	return &TokenIssuer{cfg: cfg.withDefaults()}, nil
}

// Issue mints a fresh access token and refresh value for user. Nothing is persisted.
func (i *TokenIssuer) Issue(user *domain.User) (domain.TokenPair, error) {
	access, err := i.AccessToken(user)
	if err != nil {
		return domain.TokenPair{}, err
	}
	refresh, err := newRefreshValue()
	if err != nil {
		return domain.TokenPair{}, domain.Internal("generate refresh token", err)
	}
	return domain.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// AccessToken signs {sub, email, role} with the configured secret and TTL.
func (i *TokenIssuer) AccessToken(user *domain.User) (string, error) {
	now := i.cfg.now()
	claims := accessClaims{
		Email: user.Email,
		Role:  user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			Issuer:    i.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.cfg.AccessTTL)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.cfg.Secret)
	if err != nil {
		return "", domain.Internal("sign access token", err)
	}
	return signed, nil
}

// Verify checks signature, algorithm, issuer and expiry without touching any store.
func (i *TokenIssuer) Verify(token string) (*domain.AccessClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.cfg.now),
	}
	if i.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(i.cfg.Issuer))
	}

	claims := &accessClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return i.cfg.Secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, domain.ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrTokenInvalid, err)
	}
	if !parsed.Valid || claims.Subject == "" {
		return nil, domain.ErrTokenInvalid
	}

	out := &domain.AccessClaims{
		Subject: claims.Subject,
		Email:   claims.Email,
		Role:    claims.Role,
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}

func newRefreshValue() (string, error) {
	b := make([]byte, refreshValueBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
