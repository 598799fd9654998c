package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/trainhub/auth-service/internal/core/ports"
)

// StateStore keeps OAuth state values until the provider redirects back.
// Key format: oauth_state:<state>
type StateStore struct {
	client *redis.Client
}

var _ ports.StateStore = (*StateStore)(nil)

func NewStateStore(client *redis.Client) *StateStore {
	return &StateStore{client: client}
}

func (s *StateStore) Save(ctx context.Context, state string, ttl time.Duration) error {
	if err := s.client.Set(ctx, s.key(state), "1", ttl).Err(); err != nil {
		return fmt.Errorf("save oauth state: %w", err)
	}
	return nil
}

// Consume deletes the state atomically, so a callback can be replayed at most once.
func (s *StateStore) Consume(ctx context.Context, state string) (bool, error) {
	if state == "" {
		return false, nil
	}
	err := s.client.GetDel(ctx, s.key(state)).Err()
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, redis.Nil):
		return false, nil
	default:
		return false, fmt.Errorf("consume oauth state: %w", err)
	}
}

func (s *StateStore) key(state string) string {
	return "oauth_state:" + state
}
