package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/trainhub/auth-service/internal/api/handler"
	"github.com/trainhub/auth-service/internal/core/service"
	"github.com/trainhub/auth-service/internal/infrastructure/db/memory"
	"github.com/trainhub/auth-service/internal/infrastructure/hasher"
)

type session struct {
	User struct {
		ID   string `json:"id"`
		Role string `json:"role"`
	} `json:"user"`
	Tokens struct {
		AccessToken  string `json:"accessToken"`
		RefreshToken string `json:"refreshToken"`
	} `json:"tokens"`
}

func newTestRouter(t *testing.T) (http.Handler, *memory.Store) {
	t.Helper()
	return newTestRouterWith(t, handler.RegistrationConfig{})
}

func newTestRouterWith(t *testing.T, registration handler.RegistrationConfig) (http.Handler, *memory.Store) {
	t.Helper()
	log := zerolog.Nop()
	store := memory.NewStore()

	cfg := service.TokenConfig{
		Secret:     []byte("router-test-secret"),
		Issuer:     "auth-service",
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 24 * time.Hour,
	}
	issuer, err := service.NewTokenIssuer(cfg)
	if err != nil {
		t.Fatalf("issuer: %v", err)
	}
	resolver := service.NewIdentityResolver(store.Users(), hasher.NewBcrypt(4), log)
	refresh := service.NewRefreshManager(store.RefreshTokens(), issuer, cfg, log)
	svc := service.NewAuthService(resolver, refresh, issuer, store.Users(), log)

	reg := prometheus.NewRegistry()
	e := NewRouter(Deps{
		AuthService:  svc,
		Cookie:       handler.CookieConfig{MaxAge: cfg.RefreshTTL},
		Registration: registration,
		ClientURL:    "http://localhost:3000",
		Log:          log,
		Registerer:   reg,
		Gatherer:     reg,
	})
	return e, store
}

func do(t *testing.T, h http.Handler, method, target, body, bearer string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeSession(t *testing.T, rec *httptest.ResponseRecorder) session {
	t.Helper()
	var s session
	if err := json.Unmarshal(rec.Body.Bytes(), &s); err != nil {
		t.Fatalf("invalid json %q: %v", rec.Body.String(), err)
	}
	return s
}

func TestRouter_SessionLifecycle(t *testing.T) {
	h, store := newTestRouter(t)

	rec := do(t, h, http.MethodPost, "/api/auth/register",
		`{"name":"Alice","email":"Alice@Example.com","password":"Sup3rSecret"}`, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	first := decodeSession(t, rec)

	rec = do(t, h, http.MethodGet, "/api/auth/profile", "", first.Tokens.AccessToken)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"email":"alice@example.com"`) {
		t.Fatalf("profile: %d %s", rec.Code, rec.Body.String())
	}

	rec = do(t, h, http.MethodPost, "/api/auth/refresh", `{"refreshToken":"`+first.Tokens.RefreshToken+`"}`, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("refresh: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	second := decodeSession(t, rec)
	if second.Tokens.RefreshToken == first.Tokens.RefreshToken {
		t.Fatal("refresh token was not rotated")
	}

	// The consumed value is rejected.
	rec = do(t, h, http.MethodPost, "/api/auth/refresh", `{"refreshToken":"`+first.Tokens.RefreshToken+`"}`, "")
	if rec.Code != http.StatusUnauthorized || !strings.Contains(rec.Body.String(), `"code":"token_invalid"`) {
		t.Fatalf("replayed refresh: %d %s", rec.Code, rec.Body.String())
	}

	rec = do(t, h, http.MethodPost, "/api/auth/logout-all", "", second.Tokens.AccessToken)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"revoked":1`) {
		t.Fatalf("logout-all: %d %s", rec.Code, rec.Body.String())
	}
	if _, tokens := store.Count(); tokens != 0 {
		t.Fatalf("expected no refresh tokens left, got %d", tokens)
	}
}

func TestRouter_ErrorEnvelope(t *testing.T) {
	h, _ := newTestRouter(t)

	body := `{"name":"Bob","email":"bob@example.com","password":"Sup3rSecret"}`
	if rec := do(t, h, http.MethodPost, "/api/auth/register", body, ""); rec.Code != http.StatusCreated {
		t.Fatalf("register: %d %s", rec.Code, rec.Body.String())
	}

	tests := []struct {
		name   string
		method string
		target string
		body   string
		bearer string
		status int
		code   string
	}{
		{"duplicate email", http.MethodPost, "/api/auth/register", body, "", http.StatusConflict, "conflict"},
		{"weak password", http.MethodPost, "/api/auth/register", `{"name":"Eve","email":"eve@example.com","password":"short"}`, "", http.StatusBadRequest, "invalid_input"},
		{"admin self-signup", http.MethodPost, "/api/auth/register", `{"name":"Mallory","email":"mallory@example.com","password":"Sup3rSecret","role":"admin"}`, "", http.StatusForbidden, "forbidden"},
		{"malformed refresh body", http.MethodPost, "/api/auth/refresh", `{"refreshToken":`, "", http.StatusBadRequest, "invalid_input"},
		{"malformed logout body", http.MethodPost, "/api/auth/logout", `{"refreshToken":`, "", http.StatusBadRequest, "invalid_input"},
		{"wrong password", http.MethodPost, "/api/auth/login", `{"email":"bob@example.com","password":"Wrong1234"}`, "", http.StatusUnauthorized, "unauthenticated"},
		{"no bearer", http.MethodGet, "/api/auth/profile", "", "", http.StatusUnauthorized, "unauthenticated"},
		{"garbage bearer", http.MethodGet, "/api/auth/profile", "", "not-a-jwt", http.StatusUnauthorized, "token_invalid"},
		{"unknown route", http.MethodGet, "/api/nope", "", "", http.StatusNotFound, "not_found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, tt.method, tt.target, tt.body, tt.bearer)
			if rec.Code != tt.status {
				t.Fatalf("expected %d, got %d: %s", tt.status, rec.Code, rec.Body.String())
			}
			if !strings.Contains(rec.Body.String(), `"code":"`+tt.code+`"`) {
				t.Fatalf("expected code %q in %s", tt.code, rec.Body.String())
			}
		})
	}
}

func TestRouter_AdminRoutesRequireRole(t *testing.T) {
	h, store := newTestRouterWith(t, handler.RegistrationConfig{AllowAdmin: true})

	client := decodeSession(t, do(t, h, http.MethodPost, "/api/auth/register",
		`{"name":"Carol","email":"carol@example.com","password":"Sup3rSecret"}`, ""))
	admin := decodeSession(t, do(t, h, http.MethodPost, "/api/auth/register",
		`{"name":"Root","email":"root@example.com","password":"Sup3rSecret","role":"admin"}`, ""))

	if rec := do(t, h, http.MethodDelete, "/api/admin/users/"+admin.User.ID, "", client.Tokens.AccessToken); rec.Code != http.StatusForbidden {
		t.Fatalf("client delete: expected 403, got %d", rec.Code)
	}
	if rec := do(t, h, http.MethodDelete, "/api/admin/users/"+client.User.ID, "", admin.Tokens.AccessToken); rec.Code != http.StatusNoContent {
		t.Fatalf("admin delete: expected 204, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec := do(t, h, http.MethodDelete, "/api/admin/users/"+client.User.ID, "", admin.Tokens.AccessToken); rec.Code != http.StatusNotFound {
		t.Fatalf("second delete: expected 404, got %d", rec.Code)
	}
	if users, tokens := store.Count(); users != 1 || tokens != 1 {
		t.Fatalf("expected 1 user and 1 token, got %d and %d", users, tokens)
	}
}

func TestRouter_HealthAndMetrics(t *testing.T) {
	h, _ := newTestRouter(t)

	for _, path := range []string{"/health", "/health/ready", "/api/auth/health"} {
		if rec := do(t, h, http.MethodGet, path, "", ""); rec.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", path, rec.Code)
		}
	}

	rec := do(t, h, http.MethodGet, "/metrics", "", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "auth_requests_total") {
		t.Fatalf("metrics: %d", rec.Code)
	}
}
