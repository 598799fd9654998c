package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/trainhub/auth-service/internal/core/domain"
)

func runErrorHandler(t *testing.T, err error, production bool) (*httptest.ResponseRecorder, errorResponse) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/auth/profile", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	NewHTTPErrorHandler(zerolog.Nop(), production)(err, c)

	var body errorResponse
	if jerr := json.Unmarshal(rec.Body.Bytes(), &body); jerr != nil {
		t.Fatalf("invalid json %q: %v", rec.Body.String(), jerr)
	}
	return rec, body
}

func TestHTTPErrorHandler_DomainErrors(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{domain.ErrEmailTaken, http.StatusConflict, "conflict"},
		{domain.ErrAccountLinked, http.StatusConflict, "conflict"},
		{domain.ErrInvalidCredentials, http.StatusUnauthorized, "unauthenticated"},
		{domain.ErrTokenExpired, http.StatusUnauthorized, "token_expired"},
		{fmt.Errorf("%w: signature mismatch", domain.ErrTokenInvalid), http.StatusUnauthorized, "token_invalid"},
		{domain.ErrFutureBirthDate, http.StatusBadRequest, "invalid_input"},
		{domain.ErrForbidden, http.StatusForbidden, "forbidden"},
		{domain.ErrUserNotFound, http.StatusNotFound, "not_found"},
	}
	for _, tt := range tests {
		t.Run(tt.code+"/"+tt.err.Error(), func(t *testing.T) {
			rec, body := runErrorHandler(t, tt.err, true)
			if rec.Code != tt.status {
				t.Fatalf("expected %d, got %d", tt.status, rec.Code)
			}
			if body.Code != tt.code {
				t.Fatalf("expected code %q, got %q", tt.code, body.Code)
			}
			if body.Error != tt.err.Error() {
				t.Fatalf("expected message %q, got %q", tt.err.Error(), body.Error)
			}
		})
	}
}

func TestHTTPErrorHandler_InternalDetail(t *testing.T) {
	cause := domain.Internal("find user", errors.New("mongo: connection reset"))

	_, body := runErrorHandler(t, cause, true)
	if body.Code != "internal" || body.Error != "internal server error" || body.Detail != "" {
		t.Fatalf("production must hide detail, got %+v", body)
	}

	_, body = runErrorHandler(t, cause, false)
	if !strings.Contains(body.Detail, "connection reset") {
		t.Fatalf("development should expose detail, got %+v", body)
	}

	rec, body := runErrorHandler(t, errors.New("boom"), true)
	if rec.Code != http.StatusInternalServerError || body.Code != "internal" {
		t.Fatalf("unclassified error: %d %+v", rec.Code, body)
	}
}

func TestHTTPErrorHandler_EchoErrors(t *testing.T) {
	rec, body := runErrorHandler(t, echo.NewHTTPError(http.StatusNotFound, "Not Found"), true)
	if rec.Code != http.StatusNotFound || body.Code != "not_found" || body.Error != "Not Found" {
		t.Fatalf("unexpected: %d %+v", rec.Code, body)
	}

	rec, body = runErrorHandler(t, echo.ErrMethodNotAllowed, true)
	if rec.Code != http.StatusMethodNotAllowed || body.Code != "method_not_allowed" {
		t.Fatalf("unexpected: %d %+v", rec.Code, body)
	}
}
