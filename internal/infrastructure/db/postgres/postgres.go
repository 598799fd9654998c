// Package postgres persists users and refresh tokens through GORM.
package postgres

import (
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/trainhub/auth-service/internal/core/domain"
)

const (
	constraintUserEmail      = "idx_users_email"
	constraintUserExternalID = "idx_users_external_id"
	constraintTokenValue     = "idx_refresh_tokens_token"

	uniqueViolation = "23505"
)

type userModel struct {
	ID           string     `gorm:"type:uuid;primaryKey"`
	Name         string     `gorm:"type:varchar(255);not null"`
	Phone        string     `gorm:"type:varchar(32)"`
	Email        string     `gorm:"type:varchar(255);uniqueIndex:idx_users_email;not null"`
	Role         string     `gorm:"type:varchar(20);not null"`
	PasswordHash string     `gorm:"type:varchar(255)"`
	ExternalID   *string    `gorm:"type:varchar(255);uniqueIndex:idx_users_external_id"`
	IsVerified   bool       `gorm:"not null;default:false"`
	Gender       string     `gorm:"type:varchar(32)"`
	DateOfBirth  *time.Time `gorm:"type:date"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (userModel) TableName() string { return "users" }

type refreshTokenModel struct {
	ID        string    `gorm:"type:uuid;primaryKey"`
	UserID    string    `gorm:"type:uuid;not null;index"`
	User      userModel `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	Token     string    `gorm:"type:varchar(255);uniqueIndex:idx_refresh_tokens_token;not null"`
	IP        string    `gorm:"type:varchar(64)"`
	UserAgent string    `gorm:"type:text"`
	Device    string    `gorm:"type:varchar(255)"`
	IssuedAt  time.Time `gorm:"not null"`
	ExpiresAt time.Time `gorm:"not null;index"`
}

func (refreshTokenModel) TableName() string { return "refresh_tokens" }

// Open connects and migrates the credential schema.
func Open(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("postgres open: %w", err)
	}

	if err := db.AutoMigrate(&userModel{}, &refreshTokenModel{}); err != nil {
		return nil, fmt.Errorf("postgres migrate: %w", err)
	}
	return db, nil
}

// uniqueViolationError maps a unique constraint violation to the matching
// conflict; any other error is returned unchanged.
func uniqueViolationError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolation {
		return err
	}
	switch pgErr.ConstraintName {
	case constraintUserEmail:
		return domain.ErrEmailTaken
	case constraintUserExternalID:
		return domain.ErrExternalIDTaken
	default:
		return fmt.Errorf("%w: %s", domain.ErrConflict, pgErr.ConstraintName)
	}
}

func toUserModel(u *domain.User) *userModel {
	m := &userModel{
		ID:           u.ID,
		Name:         u.Name,
		Phone:        u.Phone,
		Email:        u.Email,
		Role:         u.Role,
		PasswordHash: u.PasswordHash,
		IsVerified:   u.IsVerified,
		Gender:       u.Gender,
		DateOfBirth:  u.DateOfBirth,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
	if u.ExternalID != "" {
		ext := u.ExternalID
		m.ExternalID = &ext
	}
	return m
}

func (m *userModel) toDomain() *domain.User {
	u := &domain.User{
		ID:           m.ID,
		Name:         m.Name,
		Phone:        m.Phone,
		Email:        m.Email,
		Role:         m.Role,
		PasswordHash: m.PasswordHash,
		IsVerified:   m.IsVerified,
		Gender:       m.Gender,
		CreatedAt:    m.CreatedAt.UTC(),
		UpdatedAt:    m.UpdatedAt.UTC(),
	}
	if m.ExternalID != nil {
		u.ExternalID = *m.ExternalID
	}
	if m.DateOfBirth != nil {
		dob := m.DateOfBirth.UTC()
		u.DateOfBirth = &dob
	}
	return u
}
