// Package hasher implements ports.PasswordHasher with bcrypt.
package hasher

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/trainhub/auth-service/internal/core/ports"
)

const DefaultCost = 12

type Bcrypt struct {
	cost int
}

var _ ports.PasswordHasher = (*Bcrypt)(nil)

// NewBcrypt falls back to DefaultCost when cost is outside bcrypt's range.
func NewBcrypt(cost int) *Bcrypt {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultCost
	}
	return &Bcrypt{cost: cost}
}

func (b *Bcrypt) Hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), b.cost)
	if err != nil {
		return "", fmt.Errorf("bcrypt hash: %w", err)
	}
	return string(hash), nil
}

func (b *Bcrypt) Verify(hash, password string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, fmt.Errorf("bcrypt verify: %w", err)
	}
}
