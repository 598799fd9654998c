package handler

import (
	"fmt"

	"github.com/labstack/echo/v4"

	"github.com/trainhub/auth-service/internal/api/middleware"
	"github.com/trainhub/auth-service/internal/core/domain"
)

// HeaderDeviceName lets clients label the session they are opening.
const HeaderDeviceName = "X-Device-Name"

// clientContext captures the advisory metadata stored with a refresh token.
func clientContext(c echo.Context) domain.ClientContext {
	req := c.Request()
	return domain.ClientContext{
		IP:        c.RealIP(),
		UserAgent: req.UserAgent(),
		Device:    req.Header.Get(HeaderDeviceName),
	}
}

// ctxUserID returns the subject injected by the Auth middleware. An empty
// value means the route was mounted without it.
func ctxUserID(c echo.Context) (string, error) {
	userID, _ := c.Get(middleware.ContextUserID).(string)
	if userID == "" {
		return "", fmt.Errorf("%w: missing authentication claims", domain.ErrUnauthenticated)
	}
	return userID, nil
}
