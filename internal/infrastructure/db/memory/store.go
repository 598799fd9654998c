// Package memory is a process-local credential store. It enforces the same
// uniqueness rules as the database stores and is used for development runs
// (STORE_DRIVER=memory) and service tests.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/trainhub/auth-service/internal/core/domain"
	"github.com/trainhub/auth-service/internal/core/ports"
)

// Store holds users and refresh tokens behind one lock so cascades are atomic.
type Store struct {
	mu     sync.RWMutex
	users  map[string]*domain.User
	tokens map[string]*domain.RefreshToken // keyed by token value
}

func NewStore() *Store {
	return &Store{
		users:  make(map[string]*domain.User),
		tokens: make(map[string]*domain.RefreshToken),
	}
}

// Users returns a ports.UserRepository view of the store.
func (s *Store) Users() *UserRepository {
	return &UserRepository{s: s}
}

// RefreshTokens returns a ports.RefreshTokenRepository view of the store.
func (s *Store) RefreshTokens() *RefreshTokenRepository {
	return &RefreshTokenRepository{s: s}
}

func cloneUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	c := *u
	if u.DateOfBirth != nil {
		dob := *u.DateOfBirth
		c.DateOfBirth = &dob
	}
	return &c
}

// UserRepository implements ports.UserRepository.
type UserRepository struct {
	s *Store
}

var _ ports.UserRepository = (*UserRepository)(nil)

func (r *UserRepository) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, u := range r.s.users {
		if u.Email == user.Email {
			return nil, domain.ErrEmailTaken
		}
		if user.ExternalID != "" && u.ExternalID == user.ExternalID {
			return nil, domain.ErrExternalIDTaken
		}
	}
	r.s.users[user.ID] = cloneUser(user)
	return cloneUser(user), nil
}

func (r *UserRepository) FindByID(_ context.Context, id string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (r *UserRepository) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	return r.findBy(func(u *domain.User) bool { return u.Email == email })
}

func (r *UserRepository) FindByExternalID(_ context.Context, externalID string) (*domain.User, error) {
	if externalID == "" {
		return nil, domain.ErrUserNotFound
	}
	return r.findBy(func(u *domain.User) bool { return u.ExternalID == externalID })
}

func (r *UserRepository) findBy(match func(*domain.User) bool) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, u := range r.s.users {
		if match(u) {
			return cloneUser(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *UserRepository) LinkExternalID(_ context.Context, userID, externalID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[userID]
	if !ok || (u.ExternalID != "" && u.ExternalID != externalID) {
		return domain.ErrUserNotFound
	}
	for id, other := range r.s.users {
		if id != userID && other.ExternalID == externalID {
			return domain.ErrExternalIDTaken
		}
	}
	u.ExternalID = externalID
	u.IsVerified = true
	u.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *UserRepository) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[id]; !ok {
		return domain.ErrUserNotFound
	}
	delete(r.s.users, id)
	for value, t := range r.s.tokens {
		if t.UserID == id {
			delete(r.s.tokens, value)
		}
	}
	return nil
}

// RefreshTokenRepository implements ports.RefreshTokenRepository.
type RefreshTokenRepository struct {
	s *Store
}

var _ ports.RefreshTokenRepository = (*RefreshTokenRepository)(nil)

func (r *RefreshTokenRepository) Create(_ context.Context, token *domain.RefreshToken) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, exists := r.s.tokens[token.Token]; exists {
		return domain.ErrConflict
	}
	if _, ok := r.s.users[token.UserID]; !ok {
		return domain.ErrUserNotFound
	}
	c := *token
	c.User = nil
	r.s.tokens[token.Token] = &c
	return nil
}

func (r *RefreshTokenRepository) FindByToken(_ context.Context, value string) (*domain.RefreshToken, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	t, ok := r.s.tokens[value]
	if !ok {
		return nil, domain.ErrRefreshTokenNotFound
	}
	c := *t
	c.User = cloneUser(r.s.users[t.UserID])
	return &c, nil
}

func (r *RefreshTokenRepository) DeleteByToken(_ context.Context, value string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.tokens[value]; !ok {
		return false, nil
	}
	delete(r.s.tokens, value)
	return true, nil
}

func (r *RefreshTokenRepository) DeleteByUserID(_ context.Context, userID string) (int64, error) {
	return r.deleteWhere(func(t *domain.RefreshToken) bool { return t.UserID == userID }), nil
}

func (r *RefreshTokenRepository) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	return r.deleteWhere(func(t *domain.RefreshToken) bool { return !t.ExpiresAt.After(now) }), nil
}

func (r *RefreshTokenRepository) deleteWhere(match func(*domain.RefreshToken) bool) int64 {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var n int64
	for value, t := range r.s.tokens {
		if match(t) {
			delete(r.s.tokens, value)
			n++
		}
	}
	return n
}

// Count returns the number of stored users and refresh tokens.
func (s *Store) Count() (users, tokens int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users), len(s.tokens)
}
