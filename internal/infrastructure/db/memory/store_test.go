package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/trainhub/auth-service/internal/core/domain"
)

func seedUser(t *testing.T, s *Store, id, email, externalID string) {
	t.Helper()
	if _, err := s.Users().Create(context.Background(), &domain.User{ID: id, Email: email, ExternalID: externalID, Role: domain.RoleClient}); err != nil {
		t.Fatalf("seed user: %v", err)
	}
}

func TestUserRepository_UniqueEmailAndExternalID(t *testing.T) {
	s := NewStore()
	seedUser(t, s, "u1", "a@example.com", "g-1")

	_, err := s.Users().Create(context.Background(), &domain.User{ID: "u2", Email: "a@example.com"})
	if !errors.Is(err, domain.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
	_, err = s.Users().Create(context.Background(), &domain.User{ID: "u3", Email: "b@example.com", ExternalID: "g-1"})
	if !errors.Is(err, domain.ErrExternalIDTaken) {
		t.Fatalf("expected ErrExternalIDTaken, got %v", err)
	}
}

func TestUserRepository_LinkExternalID(t *testing.T) {
	s := NewStore()
	seedUser(t, s, "u1", "a@example.com", "")
	seedUser(t, s, "u2", "b@example.com", "g-2")
	repo := s.Users()

	if err := repo.LinkExternalID(context.Background(), "u1", "g-2"); !errors.Is(err, domain.ErrExternalIDTaken) {
		t.Fatalf("expected ErrExternalIDTaken, got %v", err)
	}
	if err := repo.LinkExternalID(context.Background(), "u1", "g-1"); err != nil {
		t.Fatalf("link failed: %v", err)
	}
	u, _ := repo.FindByID(context.Background(), "u1")
	if u.ExternalID != "g-1" || !u.IsVerified {
		t.Fatalf("link not applied: %+v", u)
	}
	if err := repo.LinkExternalID(context.Background(), "u1", "g-9"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected relink to a different id to be refused, got %v", err)
	}
}

func TestUserRepository_DeleteCascadesTokens(t *testing.T) {
	s := NewStore()
	seedUser(t, s, "u1", "a@example.com", "")
	seedUser(t, s, "u2", "b@example.com", "")
	tokens := s.RefreshTokens()
	now := time.Now()
	for _, tk := range []*domain.RefreshToken{
		{ID: "t1", UserID: "u1", Token: "v1", ExpiresAt: now.Add(time.Hour)},
		{ID: "t2", UserID: "u1", Token: "v2", ExpiresAt: now.Add(time.Hour)},
		{ID: "t3", UserID: "u2", Token: "v3", ExpiresAt: now.Add(time.Hour)},
	} {
		if err := tokens.Create(context.Background(), tk); err != nil {
			t.Fatalf("create token: %v", err)
		}
	}

	if err := s.Users().Delete(context.Background(), "u1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if users, n := s.Count(); users != 1 || n != 1 {
		t.Fatalf("expected 1 user and 1 token left, got %d/%d", users, n)
	}
}

func TestRefreshTokenRepository_CompareAndDelete(t *testing.T) {
	s := NewStore()
	seedUser(t, s, "u1", "a@example.com", "")
	tokens := s.RefreshTokens()
	_ = tokens.Create(context.Background(), &domain.RefreshToken{ID: "t1", UserID: "u1", Token: "v1", ExpiresAt: time.Now().Add(time.Hour)})

	found, err := tokens.FindByToken(context.Background(), "v1")
	if err != nil || found.User == nil || found.User.ID != "u1" {
		t.Fatalf("expected joined user, got %+v (%v)", found, err)
	}

	first, _ := tokens.DeleteByToken(context.Background(), "v1")
	second, _ := tokens.DeleteByToken(context.Background(), "v1")
	if !first || second {
		t.Fatalf("expected exactly one successful delete, got %v then %v", first, second)
	}
}

func TestRefreshTokenRepository_DeleteExpired(t *testing.T) {
	s := NewStore()
	seedUser(t, s, "u1", "a@example.com", "")
	tokens := s.RefreshTokens()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	_ = tokens.Create(context.Background(), &domain.RefreshToken{ID: "t1", UserID: "u1", Token: "past", ExpiresAt: now.Add(-time.Minute)})
	_ = tokens.Create(context.Background(), &domain.RefreshToken{ID: "t2", UserID: "u1", Token: "edge", ExpiresAt: now})
	_ = tokens.Create(context.Background(), &domain.RefreshToken{ID: "t3", UserID: "u1", Token: "live", ExpiresAt: now.Add(time.Minute)})

	n, err := tokens.DeleteExpired(context.Background(), now)
	if err != nil || n != 2 {
		t.Fatalf("expected 2 expired rows removed, got %d (%v)", n, err)
	}
	if _, err := tokens.FindByToken(context.Background(), "live"); err != nil {
		t.Fatalf("live token removed: %v", err)
	}
}
