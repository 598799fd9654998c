package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/trainhub/auth-service/internal/core/domain"
	"github.com/trainhub/auth-service/internal/core/ports"
)

const (
	collectionUsers = "users"

	indexUserEmail      = "uniq_email"
	indexUserExternalID = "uniq_external_id"
)

type UserRepository struct {
	col    *mongo.Collection
	tokens *mongo.Collection
}

var _ ports.UserRepository = (*UserRepository)(nil)

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{
		col:    db.Collection(collectionUsers),
		tokens: db.Collection(collectionRefreshTokens),
	}
}

type mongoUser struct {
	ID           string     `bson:"_id"`
	Name         string     `bson:"name"`
	Phone        string     `bson:"phone,omitempty"`
	Email        string     `bson:"email"`
	Role         string     `bson:"role"`
	PasswordHash string     `bson:"password_hash,omitempty"`
	ExternalID   string     `bson:"external_id,omitempty"`
	IsVerified   bool       `bson:"is_verified"`
	Gender       string     `bson:"gender,omitempty"`
	DateOfBirth  *time.Time `bson:"date_of_birth,omitempty"`
	CreatedAt    time.Time  `bson:"created_at"`
	UpdatedAt    time.Time  `bson:"updated_at"`
}

func toMongoUser(u *domain.User) mongoUser {
	return mongoUser{
		ID:           u.ID,
		Name:         u.Name,
		Phone:        u.Phone,
		Email:        u.Email,
		Role:         u.Role,
		PasswordHash: u.PasswordHash,
		ExternalID:   u.ExternalID,
		IsVerified:   u.IsVerified,
		Gender:       u.Gender,
		DateOfBirth:  u.DateOfBirth,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func (mu mongoUser) toDomain() *domain.User {
	u := &domain.User{
		ID:           mu.ID,
		Name:         mu.Name,
		Phone:        mu.Phone,
		Email:        mu.Email,
		Role:         mu.Role,
		PasswordHash: mu.PasswordHash,
		ExternalID:   mu.ExternalID,
		IsVerified:   mu.IsVerified,
		Gender:       mu.Gender,
		CreatedAt:    mu.CreatedAt.UTC(),
		UpdatedAt:    mu.UpdatedAt.UTC(),
	}
	if mu.DateOfBirth != nil {
		dob := mu.DateOfBirth.UTC()
		u.DateOfBirth = &dob
	}
	return u
}

// duplicateKeyError maps a unique index violation to the matching conflict.
func duplicateKeyError(err error) error {
	if strings.Contains(err.Error(), indexUserExternalID) {
		return domain.ErrExternalIDTaken
	}
	return domain.ErrEmailTaken
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if _, err := r.col.InsertOne(ctx, toMongoUser(user)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, duplicateKeyError(err)
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	created := *user
	return &created, nil
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *UserRepository) FindByExternalID(ctx context.Context, externalID string) (*domain.User, error) {
	if externalID == "" {
		return nil, domain.ErrUserNotFound
	}
	return r.findOne(ctx, bson.M{"external_id": externalID})
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.M) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var mu mongoUser
	if err := r.col.FindOne(ctx, filter).Decode(&mu); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return mu.toDomain(), nil
}

// LinkExternalID sets the external id only while the row has none or already
// carries the same one.
func (r *UserRepository) LinkExternalID(ctx context.Context, userID, externalID string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{
		"_id": userID,
		"$or": bson.A{
			bson.M{"external_id": bson.M{"$exists": false}},
			bson.M{"external_id": externalID},
		},
	}
	update := bson.M{"$set": bson.M{
		"external_id": externalID,
		"is_verified": true,
		"updated_at":  time.Now().UTC(),
	}}

	res, err := r.col.UpdateOne(ctx, filter, update)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrExternalIDTaken
		}
		return fmt.Errorf("link external id: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// Delete removes the user and every refresh token it owns.
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrUserNotFound
	}
	if _, err := r.tokens.DeleteMany(ctx, bson.M{"user_id": id}); err != nil {
		return fmt.Errorf("delete user refresh tokens: %w", err)
	}
	return nil
}

// EnsureIndexes creates the unique indexes the resolver relies on.
func (r *UserRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetName(indexUserEmail).SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "external_id", Value: 1}},
			Options: options.Index().SetName(indexUserExternalID).SetUnique(true).SetSparse(true),
		},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}
