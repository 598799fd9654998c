package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/trainhub/auth-service/internal/core/domain"
	"github.com/trainhub/auth-service/internal/core/ports"
)

type RefreshTokenRepository struct {
	db *gorm.DB
}

var _ ports.RefreshTokenRepository = (*RefreshTokenRepository)(nil)

func NewRefreshTokenRepository(db *gorm.DB) *RefreshTokenRepository {
	return &RefreshTokenRepository{db: db}
}

func (r *RefreshTokenRepository) Create(ctx context.Context, t *domain.RefreshToken) error {
	m := &refreshTokenModel{
		ID:        t.ID,
		UserID:    t.UserID,
		Token:     t.Token,
		IP:        t.IP,
		UserAgent: t.UserAgent,
		Device:    t.Device,
		IssuedAt:  t.IssuedAt,
		ExpiresAt: t.ExpiresAt,
	}
	if err := r.db.WithContext(ctx).Omit("User").Create(m).Error; err != nil {
		if mapped := uniqueViolationError(err); mapped != err {
			return mapped
		}
		return fmt.Errorf("insert refresh token: %w", err)
	}
	return nil
}

func (r *RefreshTokenRepository) FindByToken(ctx context.Context, value string) (*domain.RefreshToken, error) {
	var m refreshTokenModel
	if err := r.db.WithContext(ctx).Preload("User").Where("token = ?", value).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrRefreshTokenNotFound
		}
		return nil, fmt.Errorf("find refresh token: %w", err)
	}

	t := &domain.RefreshToken{
		ID:        m.ID,
		UserID:    m.UserID,
		Token:     m.Token,
		IP:        m.IP,
		UserAgent: m.UserAgent,
		Device:    m.Device,
		IssuedAt:  m.IssuedAt.UTC(),
		ExpiresAt: m.ExpiresAt.UTC(),
	}
	if m.User.ID != "" {
		t.User = m.User.toDomain()
	}
	return t, nil
}

// DeleteByToken reports whether this call removed the row.
func (r *RefreshTokenRepository) DeleteByToken(ctx context.Context, value string) (bool, error) {
	n, err := r.delete(ctx, "token = ?", value)
	return n == 1, err
}

func (r *RefreshTokenRepository) DeleteByUserID(ctx context.Context, userID string) (int64, error) {
	return r.delete(ctx, "user_id = ?", userID)
}

func (r *RefreshTokenRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	return r.delete(ctx, "expires_at <= ?", now)
}

func (r *RefreshTokenRepository) delete(ctx context.Context, query string, arg any) (int64, error) {
	res := r.db.WithContext(ctx).Where(query, arg).Delete(&refreshTokenModel{})
	if res.Error != nil {
		return 0, fmt.Errorf("delete refresh tokens: %w", res.Error)
	}
	return res.RowsAffected, nil
}
