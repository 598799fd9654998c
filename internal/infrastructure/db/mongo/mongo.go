// Package mongo persists users and refresh tokens in MongoDB.
package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const defaultTimeout = 10 * time.Second

// Config captures the settings required to reach the credential database.
type Config struct {
	URI      string
	Database string
	Timeout  time.Duration
}

// Connect opens a client, pings it, and returns the selected database.
func Connect(ctx context.Context, cfg Config) (*mongo.Client, *mongo.Database, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.URI).SetAppName("auth-service"))
	if err != nil {
		return nil, nil, fmt.Errorf("mongo connect: %w", err)
	}

	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(connectCtx)
		return nil, nil, fmt.Errorf("mongo ping: %w", err)
	}

	return client, client.Database(cfg.Database), nil
}

// Repositories bundles both stores over one database.
type Repositories struct {
	Users         *UserRepository
	RefreshTokens *RefreshTokenRepository
}

// NewRepositories builds the stores and creates their unique indexes. The
// indexes are mandatory: without them concurrent writers can create duplicate
// accounts or token rows.
func NewRepositories(ctx context.Context, db *mongo.Database) (*Repositories, error) {
	repos := &Repositories{
		Users:         NewUserRepository(db),
		RefreshTokens: NewRefreshTokenRepository(db),
	}
	if err := repos.Users.EnsureIndexes(ctx); err != nil {
		return nil, fmt.Errorf("users indexes: %w", err)
	}
	if err := repos.RefreshTokens.EnsureIndexes(ctx); err != nil {
		return nil, fmt.Errorf("refresh token indexes: %w", err)
	}
	return repos, nil
}
