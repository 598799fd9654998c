package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/trainhub/auth-service/internal/core/domain"
)

type stubVerifier struct {
	claims *domain.AccessClaims
	err    error
	got    string
}

func (v *stubVerifier) VerifyAccessToken(token string) (*domain.AccessClaims, error) {
	v.got = token
	return v.claims, v.err
}

func runAuth(t *testing.T, header string, v *stubVerifier, next echo.HandlerFunc) (*httptest.ResponseRecorder, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set(echo.HeaderAuthorization, header)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	return rec, Auth(v)(next)(c)
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	v := &stubVerifier{claims: &domain.AccessClaims{Subject: "u-1", Email: "alice@example.com", Role: domain.RoleAdmin}}

	called := false
	rec, err := runAuth(t, "Bearer abc.def.ghi", v, func(c echo.Context) error {
		called = true
		if c.Get(ContextUserID) != "u-1" {
			t.Fatalf("user_id not set")
		}
		if c.Get(ContextEmail) != "alice@example.com" {
			t.Fatalf("email not set")
		}
		if c.Get(ContextRole) != domain.RoleAdmin {
			t.Fatalf("role not set")
		}
		return c.NoContent(http.StatusOK)
	})

	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !called {
		t.Fatalf("next not called")
	}
	if v.got != "abc.def.ghi" {
		t.Fatalf("verifier got %q", v.got)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestAuthMiddleware_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		header string
		verErr error
		want   error
	}{
		{"missing header", "", nil, domain.ErrUnauthenticated},
		{"wrong scheme", "Token abc", nil, domain.ErrUnauthenticated},
		{"empty token", "Bearer   ", nil, domain.ErrUnauthenticated},
		{"expired", "Bearer abc", domain.ErrTokenExpired, domain.ErrTokenExpired},
		{"invalid", "Bearer abc", domain.ErrTokenInvalid, domain.ErrTokenInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := &stubVerifier{err: tt.verErr}
			_, err := runAuth(t, tt.header, v, func(c echo.Context) error {
				t.Fatalf("should not reach next")
				return nil
			})
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}
