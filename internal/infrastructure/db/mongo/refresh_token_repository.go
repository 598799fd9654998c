package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/trainhub/auth-service/internal/core/domain"
	"github.com/trainhub/auth-service/internal/core/ports"
)

const collectionRefreshTokens = "refresh_tokens"

type RefreshTokenRepository struct {
	col *mongo.Collection
}

var _ ports.RefreshTokenRepository = (*RefreshTokenRepository)(nil)

func NewRefreshTokenRepository(db *mongo.Database) *RefreshTokenRepository {
	return &RefreshTokenRepository{col: db.Collection(collectionRefreshTokens)}
}

type mongoRefreshToken struct {
	ID        string    `bson:"_id"`
	UserID    string    `bson:"user_id"`
	Token     string    `bson:"token"`
	IP        string    `bson:"ip,omitempty"`
	UserAgent string    `bson:"user_agent,omitempty"`
	Device    string    `bson:"device,omitempty"`
	IssuedAt  time.Time `bson:"issued_at"`
	ExpiresAt time.Time `bson:"expires_at"`

	// Owners is filled by the $lookup in FindByToken.
	Owners []mongoUser `bson:"owners,omitempty"`
}

func (r *RefreshTokenRepository) Create(ctx context.Context, t *domain.RefreshToken) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := mongoRefreshToken{
		ID:        t.ID,
		UserID:    t.UserID,
		Token:     t.Token,
		IP:        t.IP,
		UserAgent: t.UserAgent,
		Device:    t.Device,
		IssuedAt:  t.IssuedAt,
		ExpiresAt: t.ExpiresAt,
	}
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: refresh token value already stored", domain.ErrConflict)
		}
		return fmt.Errorf("insert refresh token: %w", err)
	}
	return nil
}

// FindByToken returns the row joined with its owning user.
func (r *RefreshTokenRepository) FindByToken(ctx context.Context, value string) (*domain.RefreshToken, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"token": value}}},
		{{Key: "$limit", Value: 1}},
		{{Key: "$lookup", Value: bson.M{
			"from":         collectionUsers,
			"localField":   "user_id",
			"foreignField": "_id",
			"as":           "owners",
		}}},
	}

	cur, err := r.col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("find refresh token: %w", err)
	}
	defer cur.Close(ctx)

	if !cur.Next(ctx) {
		if err := cur.Err(); err != nil {
			return nil, fmt.Errorf("find refresh token: %w", err)
		}
		return nil, domain.ErrRefreshTokenNotFound
	}

	var doc mongoRefreshToken
	if err := cur.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode refresh token: %w", err)
	}

	t := &domain.RefreshToken{
		ID:        doc.ID,
		UserID:    doc.UserID,
		Token:     doc.Token,
		IP:        doc.IP,
		UserAgent: doc.UserAgent,
		Device:    doc.Device,
		IssuedAt:  doc.IssuedAt.UTC(),
		ExpiresAt: doc.ExpiresAt.UTC(),
	}
	if len(doc.Owners) > 0 {
		t.User = doc.Owners[0].toDomain()
	}
	return t, nil
}

// DeleteByToken reports whether this call removed the row.
func (r *RefreshTokenRepository) DeleteByToken(ctx context.Context, value string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.DeleteOne(ctx, bson.M{"token": value})
	if err != nil {
		return false, fmt.Errorf("delete refresh token: %w", err)
	}
	return res.DeletedCount == 1, nil
}

func (r *RefreshTokenRepository) DeleteByUserID(ctx context.Context, userID string) (int64, error) {
	return r.deleteMany(ctx, bson.M{"user_id": userID})
}

func (r *RefreshTokenRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	return r.deleteMany(ctx, bson.M{"expires_at": bson.M{"$lte": now}})
}

func (r *RefreshTokenRepository) deleteMany(ctx context.Context, filter bson.M) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.DeleteMany(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("delete refresh tokens: %w", err)
	}
	return res.DeletedCount, nil
}

func (r *RefreshTokenRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "token", Value: 1}},
			Options: options.Index().SetName("uniq_token").SetUnique(true),
		},
		{Keys: bson.D{{Key: "user_id", Value: 1}}},
		{Keys: bson.D{{Key: "expires_at", Value: 1}}},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}
