package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/trainhub/auth-service/internal/core/domain"
	"github.com/trainhub/auth-service/internal/core/ports"
)

// ---------------------------------------------------------------------------
// Stubs
// ---------------------------------------------------------------------------

type stubAuthService struct {
	registerFn  func(ctx context.Context, in ports.RegisterInput, cc domain.ClientContext) (*ports.AuthResult, error)
	loginFn     func(ctx context.Context, email, password string, cc domain.ClientContext) (*ports.AuthResult, error)
	refreshFn   func(ctx context.Context, token string, cc domain.ClientContext) (*ports.AuthResult, error)
	externalFn  func(ctx context.Context, p domain.ExternalProfile, cc domain.ClientContext) (*ports.AuthResult, error)
	profileFn   func(ctx context.Context, userID string) (*domain.User, error)
	deleteFn    func(ctx context.Context, userID string) error
	emailExists bool

	loggedOut []string
}

var _ ports.AuthService = (*stubAuthService)(nil)

func (s *stubAuthService) Register(ctx context.Context, in ports.RegisterInput, cc domain.ClientContext) (*ports.AuthResult, error) {
	return s.registerFn(ctx, in, cc)
}

func (s *stubAuthService) Login(ctx context.Context, email, password string, cc domain.ClientContext) (*ports.AuthResult, error) {
	return s.loginFn(ctx, email, password, cc)
}

func (s *stubAuthService) Refresh(ctx context.Context, token string, cc domain.ClientContext) (*ports.AuthResult, error) {
	return s.refreshFn(ctx, token, cc)
}

func (s *stubAuthService) Logout(_ context.Context, token string) error {
	s.loggedOut = append(s.loggedOut, token)
	return nil
}

func (s *stubAuthService) LogoutAll(context.Context, string) (int64, error) {
	return 3, nil
}

func (s *stubAuthService) CompleteExternalLogin(ctx context.Context, p domain.ExternalProfile, cc domain.ClientContext) (*ports.AuthResult, error) {
	return s.externalFn(ctx, p, cc)
}

func (s *stubAuthService) VerifyAccessToken(string) (*domain.AccessClaims, error) {
	return nil, domain.ErrTokenInvalid
}

func (s *stubAuthService) Profile(ctx context.Context, userID string) (*domain.User, error) {
	return s.profileFn(ctx, userID)
}

func (s *stubAuthService) EmailExists(context.Context, string) (bool, error) {
	return s.emailExists, nil
}

func (s *stubAuthService) DeleteUser(ctx context.Context, userID string) error {
	return s.deleteFn(ctx, userID)
}

type stubStateStore struct {
	mu     sync.Mutex
	states map[string]bool
}

func newStubStateStore() *stubStateStore {
	return &stubStateStore{states: map[string]bool{}}
}

func (s *stubStateStore) Save(_ context.Context, state string, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[state] = true
	return nil
}

func (s *stubStateStore) Consume(_ context.Context, state string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ok := s.states[state]
	delete(s.states, state)
	return ok, nil
}

type stubProvider struct {
	profile *domain.ExternalProfile
	err     error
}

func (p *stubProvider) Name() string { return "google" }

func (p *stubProvider) AuthCodeURL(state string) string {
	return "https://accounts.example.com/auth?state=" + state
}

func (p *stubProvider) Exchange(context.Context, string) (*domain.ExternalProfile, error) {
	return p.profile, p.err
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func newTestEcho() *echo.Echo {
	e := echo.New()
	e.Validator = NewValidator()
	return e
}

func jsonRequest(e *echo.Echo, method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func sampleResult(outcome domain.Outcome) *ports.AuthResult {
	return &ports.AuthResult{
		User:         &domain.User{ID: "u-1", Name: "Alice", Email: "alice@example.com", Role: domain.RoleClient, PasswordHash: "secret-hash"},
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
		Outcome:      outcome,
	}
}

func findCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == name {
			return ck
		}
	}
	return nil
}
