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

type UserRepository struct {
	db *gorm.DB
}

var _ ports.UserRepository = (*UserRepository)(nil)

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	m := toUserModel(user)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		if mapped := uniqueViolationError(err); mapped != err {
			return nil, mapped
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return m.toDomain(), nil
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.first(ctx, "email = ?", email)
}

func (r *UserRepository) FindByExternalID(ctx context.Context, externalID string) (*domain.User, error) {
	if externalID == "" {
		return nil, domain.ErrUserNotFound
	}
	return r.first(ctx, "external_id = ?", externalID)
}

func (r *UserRepository) first(ctx context.Context, query string, arg any) (*domain.User, error) {
	var m userModel
	if err := r.db.WithContext(ctx).Where(query, arg).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return m.toDomain(), nil
}

func (r *UserRepository) LinkExternalID(ctx context.Context, userID, externalID string) error {
	res := r.db.WithContext(ctx).
		Model(&userModel{}).
		Where("id = ? AND (external_id IS NULL OR external_id = ?)", userID, externalID).
		Updates(map[string]any{
			"external_id": externalID,
			"is_verified": true,
			"updated_at":  time.Now().UTC(),
		})
	if res.Error != nil {
		if mapped := uniqueViolationError(res.Error); mapped != res.Error {
			return mapped
		}
		return fmt.Errorf("link external id: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// Delete relies on the foreign key cascade to drop the user's refresh tokens.
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&userModel{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("delete user: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}
