package handler

import (
	"crypto/rand"
	"encoding/base64"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/trainhub/auth-service/internal/api/metrics"
	"github.com/trainhub/auth-service/internal/core/domain"
	"github.com/trainhub/auth-service/internal/core/ports"
)

const defaultStateTTL = 10 * time.Minute

// OAuthConfig holds the browser-facing settings of the OAuth flow.
type OAuthConfig struct {
	// ClientURL is the front-end origin users are sent back to.
	ClientURL string
	StateTTL  time.Duration
}

// OAuthHandler drives the authorization-code flow of one identity provider.
type OAuthHandler struct {
	provider    ports.IdentityProvider
	states      ports.StateStore
	authService ports.AuthService
	cfg         OAuthConfig
	cookie      CookieConfig
	log         zerolog.Logger
}

func NewOAuthHandler(
	provider ports.IdentityProvider,
	states ports.StateStore,
	authService ports.AuthService,
	cfg OAuthConfig,
	cookie CookieConfig,
	log zerolog.Logger,
) *OAuthHandler {
	if cfg.StateTTL <= 0 {
		cfg.StateTTL = defaultStateTTL
	}
	cfg.ClientURL = strings.TrimRight(cfg.ClientURL, "/")
	return &OAuthHandler{
		provider:    provider,
		states:      states,
		authService: authService,
		cfg:         cfg,
		cookie:      cookie,
		log:         log,
	}
}

// Start redirects the browser to the provider's consent screen.
//
// @Summary      Start Google sign-in
// @Tags         oauth
// @Success      302
// @Failure      500  {object}  errorResponse
// @Router       /api/auth/google [get]
func (h *OAuthHandler) Start(c echo.Context) error {
	state, err := newState()
	if err != nil {
		return domain.Internal("generate oauth state", err)
	}
	if err := h.states.Save(c.Request().Context(), state, h.cfg.StateTTL); err != nil {
		return domain.Internal("save oauth state", err)
	}
	return c.Redirect(http.StatusFound, h.provider.AuthCodeURL(state))
}

// Callback completes the flow and hands the tokens to the front end in the
// URL fragment, which browsers never send to a server.
//
// @Summary      Google sign-in callback
// @Tags         oauth
// @Param        state  query  string  true  "Opaque state issued by Start"
// @Param        code   query  string  true  "Authorization code"
// @Success      302
// @Router       /api/auth/google/callback [get]
func (h *OAuthHandler) Callback(c echo.Context) error {
	ctx := c.Request().Context()
	log := h.log.With().Str("provider", h.provider.Name()).Logger()

	if reason := c.QueryParam("error"); reason != "" {
		log.Warn().Str("reason", reason).Msg("provider returned an error")
		return h.fail(c, "provider_denied")
	}

	ok, err := h.states.Consume(ctx, c.QueryParam("state"))
	if err != nil {
		log.Error().Err(err).Msg("oauth state lookup failed")
		return h.fail(c, "internal")
	}
	if !ok {
		log.Warn().Str("ip", c.RealIP()).Msg("unknown or replayed oauth state")
		return h.fail(c, "invalid_state")
	}

	profile, err := h.provider.Exchange(ctx, c.QueryParam("code"))
	if err != nil {
		log.Warn().Err(err).Msg("oauth code exchange failed")
		return h.fail(c, domain.Code(err))
	}

	res, err := h.authService.CompleteExternalLogin(ctx, *profile, clientContext(c))
	if err != nil {
		log.Warn().Err(err).Msg("external login rejected")
		return h.fail(c, domain.Code(err))
	}

	metrics.SessionsStartedTotal.WithLabelValues(string(res.Outcome)).Inc()
	h.cookie.set(c, res.RefreshToken)

	fragment := url.Values{}
	fragment.Set("token", res.AccessToken)
	fragment.Set("refreshToken", res.RefreshToken)
	return c.Redirect(http.StatusFound, h.cfg.ClientURL+"/auth/callback#"+fragment.Encode())
}

func (h *OAuthHandler) fail(c echo.Context, code string) error {
	metrics.AuthFailuresTotal.WithLabelValues(h.provider.Name(), code).Inc()
	q := url.Values{}
	q.Set("reason", code)
	return c.Redirect(http.StatusFound, h.cfg.ClientURL+"/auth/error?"+q.Encode())
}

func newState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
