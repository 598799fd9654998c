package middleware

import (
	"fmt"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/trainhub/auth-service/internal/core/domain"
)

// Context keys set by Auth.
const (
	ContextUserID = "user_id"
	ContextEmail  = "email"
	ContextRole   = "role"
)

// TokenVerifier checks an access token without touching any store.
type TokenVerifier interface {
	VerifyAccessToken(token string) (*domain.AccessClaims, error)
}

// Auth validates the bearer access token and injects its claims into context.
func Auth(verifier TokenVerifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
			if authHeader == "" {
				return fmt.Errorf("%w: missing authorization header", domain.ErrUnauthenticated)
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
				return fmt.Errorf("%w: invalid authorization header", domain.ErrUnauthenticated)
			}

			claims, err := verifier.VerifyAccessToken(strings.TrimSpace(parts[1]))
			if err != nil {
				return err
			}

			c.Set(ContextUserID, claims.Subject)
			c.Set(ContextEmail, claims.Email)
			c.Set(ContextRole, claims.Role)

			return next(c)
		}
	}
}
