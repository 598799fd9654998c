package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/trainhub/auth-service/internal/core/domain"
	"github.com/trainhub/auth-service/internal/core/ports"
)

// IdentityResolver maps a credential to exactly one canonical user, creating
// or linking a row when needed. It never issues tokens.
type IdentityResolver struct {
	users  ports.UserRepository
	hasher ports.PasswordHasher
	log    zerolog.Logger
	now    func() time.Time
}

func NewIdentityResolver(users ports.UserRepository, hasher ports.PasswordHasher, log zerolog.Logger) *IdentityResolver {
	return &IdentityResolver{
		users:  users,
		hasher: hasher,
		log:    log,
		now:    time.Now,
	}
}

// Resolve dispatches on the credential variant.
func (r *IdentityResolver) Resolve(ctx context.Context, cred domain.Credential) (*domain.Resolution, error) {
	switch c := cred.(type) {
	case domain.LocalRegistration:
		return r.register(ctx, c)
	case domain.LocalLogin:
		return r.login(ctx, c)
	case domain.ExternalProfile:
		return r.external(ctx, c)
	default:
		return nil, fmt.Errorf("%w: unsupported credential %T", domain.ErrInvalidInput, cred)
	}
}

func (r *IdentityResolver) register(ctx context.Context, c domain.LocalRegistration) (*domain.Resolution, error) {
	email := domain.NormalizeEmail(c.Email)
	if email == "" || c.Password == "" {
		return nil, fmt.Errorf("%w: email and password are required", domain.ErrInvalidInput)
	}
	role := c.Role
	if role == "" {
		role = domain.RoleClient
	}
	if !domain.ValidRole(role) {
		return nil, domain.ErrInvalidRole
	}
	now := r.now().UTC()
	if c.DateOfBirth != nil && !domain.ValidBirthDate(*c.DateOfBirth, now) {
		return nil, domain.ErrFutureBirthDate
	}

	// Fast path; the unique index on email still decides concurrent registrations.
	_, err := r.users.FindByEmail(ctx, email)
	switch {
	case err == nil:
		return nil, domain.ErrEmailTaken
	case !errors.Is(err, domain.ErrUserNotFound):
		return nil, domain.Internal("find user by email", err)
	}

	hash, err := r.hasher.Hash(c.Password)
	if err != nil {
		return nil, domain.Internal("hash password", err)
	}

	created, err := r.users.Create(ctx, &domain.User{
		ID:           uuid.NewString(),
		Name:         strings.TrimSpace(c.Name),
		Phone:        c.Phone,
		Email:        email,
		Role:         role,
		PasswordHash: hash,
		Gender:       c.Gender,
		DateOfBirth:  c.DateOfBirth,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return nil, err
		}
		return nil, domain.Internal("create user", err)
	}

	return &domain.Resolution{User: created, Outcome: domain.OutcomeRegistered}, nil
}

func (r *IdentityResolver) login(ctx context.Context, c domain.LocalLogin) (*domain.Resolution, error) {
	user, err := r.users.FindByEmail(ctx, domain.NormalizeEmail(c.Email))
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, domain.Internal("find user by email", err)
	}

	if !user.HasPassword() {
		return nil, domain.ErrPasswordNotSet
	}

	ok, err := r.hasher.Verify(user.PasswordHash, c.Password)
	if err != nil {
		return nil, domain.Internal("verify password", err)
	}
	if !ok {
		return nil, domain.ErrInvalidCredentials
	}

	return &domain.Resolution{User: user, Outcome: domain.OutcomeAuthenticated}, nil
}

// external resolves a provider profile: external id first, then email (link),
// then create.
func (r *IdentityResolver) external(ctx context.Context, p domain.ExternalProfile) (*domain.Resolution, error) {
	email := domain.NormalizeEmail(p.Email)
	if p.ExternalID == "" || email == "" {
		return nil, domain.ErrMissingIdentity
	}

	user, err := r.users.FindByExternalID(ctx, p.ExternalID)
	switch {
	case err == nil:
		return &domain.Resolution{User: user, Outcome: domain.OutcomeMatchedByExternalID}, nil
	case !errors.Is(err, domain.ErrUserNotFound):
		return nil, domain.Internal("find user by external id", err)
	}

	existing, err := r.users.FindByEmail(ctx, email)
	switch {
	case err == nil:
		return r.link(ctx, existing, p)
	case !errors.Is(err, domain.ErrUserNotFound):
		return nil, domain.Internal("find user by email", err)
	}

	now := r.now().UTC()
	dob := p.DateOfBirth
	if dob != nil && !domain.ValidBirthDate(*dob, now) {
		r.log.Warn().Str("provider", p.Provider).Msg("ignoring future date of birth from provider")
		dob = nil
	}

	created, err := r.users.Create(ctx, &domain.User{
		ID:          uuid.NewString(),
		Name:        displayName(p),
		Email:       email,
		Role:        domain.RoleClient,
		ExternalID:  p.ExternalID,
		IsVerified:  true,
		Gender:      p.Gender,
		DateOfBirth: dob,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		if !errors.Is(err, domain.ErrConflict) {
			return nil, domain.Internal("create user", err)
		}
		// A concurrent first login for the same identity won the insert.
		if winner, ferr := r.users.FindByExternalID(ctx, p.ExternalID); ferr == nil {
			return &domain.Resolution{User: winner, Outcome: domain.OutcomeMatchedByExternalID}, nil
		}
		return nil, err
	}

	r.log.Info().Str("user_id", created.ID).Str("provider", p.Provider).Msg("user created from external profile")
	return &domain.Resolution{User: created, Outcome: domain.OutcomeCreated}, nil
}

func (r *IdentityResolver) link(ctx context.Context, existing *domain.User, p domain.ExternalProfile) (*domain.Resolution, error) {
	if existing.ExternalID != "" && existing.ExternalID != p.ExternalID {
		return nil, domain.ErrAccountLinked
	}

	if err := r.users.LinkExternalID(ctx, existing.ID, p.ExternalID); err != nil {
		switch {
		case errors.Is(err, domain.ErrConflict):
			return nil, err
		case errors.Is(err, domain.ErrUserNotFound):
			return nil, fmt.Errorf("%w: user changed while linking", domain.ErrConflict)
		default:
			return nil, domain.Internal("link external id", err)
		}
	}

	merged, err := r.users.FindByID(ctx, existing.ID)
	if err != nil {
		return nil, domain.Internal("reload linked user", err)
	}

	r.log.Info().Str("user_id", merged.ID).Str("provider", p.Provider).Msg("external identity linked by email")
	return &domain.Resolution{User: merged, Outcome: domain.OutcomeLinkedByEmail}, nil
}

func displayName(p domain.ExternalProfile) string {
	if name := strings.TrimSpace(p.DisplayName); name != "" {
		return name
	}
	local, _, _ := strings.Cut(p.Email, "@")
	return local
}
