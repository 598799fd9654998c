package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

const refreshCookieName = "refreshToken"

// CookieConfig controls the HttpOnly cookie that carries the refresh token.
type CookieConfig struct {
	Secure bool
	MaxAge time.Duration
	Path   string
}

func (cc CookieConfig) set(c echo.Context, value string) {
	c.SetCookie(&http.Cookie{
		Name:     refreshCookieName,
		Value:    value,
		Path:     cc.path(),
		MaxAge:   int(cc.MaxAge.Seconds()),
		HttpOnly: true,
		Secure:   cc.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (cc CookieConfig) clear(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     refreshCookieName,
		Value:    "",
		Path:     cc.path(),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   cc.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (cc CookieConfig) path() string {
	if cc.Path == "" {
		return "/api/auth"
	}
	return cc.Path
}

// refreshTokenFrom prefers the cookie and falls back to the JSON body.
func refreshTokenFrom(c echo.Context, body string) string {
	if ck, err := c.Cookie(refreshCookieName); err == nil && ck.Value != "" {
		return ck.Value
	}
	return body
}
