package service

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/trainhub/auth-service/internal/core/domain"
	"github.com/trainhub/auth-service/internal/infrastructure/db/memory"
)

// ---------------------------------------------------------------------------
// Stubs
// ---------------------------------------------------------------------------

// plainHasher keeps tests fast; the bcrypt adapter has its own tests.
type plainHasher struct {
	hashErr error
}

func (h plainHasher) Hash(password string) (string, error) {
	if h.hashErr != nil {
		return "", h.hashErr
	}
	return "hashed:" + password, nil
}

func (plainHasher) Verify(hash, password string) (bool, error) {
	if !strings.HasPrefix(hash, "hashed:") {
		return false, nil
	}
	return hash == "hashed:"+password, nil
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// ---------------------------------------------------------------------------
// Helper: wire the full service over an in-memory store.
// ---------------------------------------------------------------------------

type harness struct {
	store    *memory.Store
	clock    *fakeClock
	cfg      TokenConfig
	issuer   *TokenIssuer
	refresh  *RefreshManager
	resolver *IdentityResolver
	svc      *AuthService
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	clock := newFakeClock()
	cfg := TokenConfig{
		Secret: []byte("test-secret"),
		Issuer: "auth-service-test",
		Now:    clock.Now,
	}
	issuer, err := NewTokenIssuer(cfg)
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}

	store := memory.NewStore()
	resolver := NewIdentityResolver(store.Users(), plainHasher{}, zerolog.Nop())
	resolver.now = clock.Now
	refresh := NewRefreshManager(store.RefreshTokens(), issuer, cfg, zerolog.Nop())

	return &harness{
		store:    store,
		clock:    clock,
		cfg:      cfg,
		issuer:   issuer,
		refresh:  refresh,
		resolver: resolver,
		svc:      NewAuthService(resolver, refresh, issuer, store.Users(), zerolog.Nop()),
	}
}

func datePtr(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func assertCode(t *testing.T, err error, want string) {
	t.Helper()
	if got := domain.Code(err); got != want {
		t.Fatalf("expected error code %q, got %q (%v)", want, got, err)
	}
}
