package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/trainhub/auth-service/internal/api/metrics"
	"github.com/trainhub/auth-service/internal/core/domain"
	"github.com/trainhub/auth-service/internal/core/ports"
)

// RegistrationConfig controls public sign-up.
type RegistrationConfig struct {
	// AllowAdmin lets POST /api/auth/register create admin accounts.
	AllowAdmin bool
}

type AuthHandler struct {
	authService  ports.AuthService
	cookie       CookieConfig
	registration RegistrationConfig
	log          zerolog.Logger
}

func NewAuthHandler(authService ports.AuthService, cookie CookieConfig, registration RegistrationConfig, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{authService: authService, cookie: cookie, registration: registration, log: log}
}

// bindOptional binds a body that may be absent. Only a body that was sent and
// cannot be decoded is an error.
func bindOptional(c echo.Context, v any) error {
	if err := c.Bind(v); err != nil && c.Request().ContentLength != 0 {
		return fmt.Errorf("%w: invalid payload", domain.ErrInvalidInput)
	}
	return nil
}

func failed(operation string, err error) error {
	metrics.AuthFailuresTotal.WithLabelValues(operation, domain.Code(err)).Inc()
	return err
}

// Register creates a local account and starts a session.
//
// @Summary      Register a new user
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      registerRequest  true  "User registration details"
// @Success      201   {object}  authResponse
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Failure      500   {object}  errorResponse
// @Router       /api/auth/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return fmt.Errorf("%w: invalid payload", domain.ErrInvalidInput)
	}
	if err := c.Validate(&req); err != nil {
		return failed("register", err)
	}
	if req.Role == domain.RoleAdmin && !h.registration.AllowAdmin {
		return failed("register", fmt.Errorf("%w: admin accounts cannot be self-registered", domain.ErrForbidden))
	}

	in := ports.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Phone:    req.Phone,
		Role:     req.Role,
		Password: req.Password,
		Gender:   req.Gender,
	}
	if req.DateOfBirth != "" {
		dob, err := time.Parse(time.DateOnly, req.DateOfBirth)
		if err != nil {
			return fmt.Errorf("%w: dateOfBirth must be YYYY-MM-DD", domain.ErrInvalidInput)
		}
		in.DateOfBirth = &dob
	}

	res, err := h.authService.Register(c.Request().Context(), in, clientContext(c))
	if err != nil {
		return failed("register", err)
	}
	return h.respondWithSession(c, http.StatusCreated, "User registered successfully", res)
}

// Login authenticates with email and password.
//
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  authResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Router       /api/auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return fmt.Errorf("%w: invalid payload", domain.ErrInvalidInput)
	}
	if err := c.Validate(&req); err != nil {
		return failed("login", err)
	}

	res, err := h.authService.Login(c.Request().Context(), req.Email, req.Password, clientContext(c))
	if err != nil {
		return failed("login", err)
	}
	return h.respondWithSession(c, http.StatusOK, "Login successful", res)
}

func (h *AuthHandler) respondWithSession(c echo.Context, status int, msg string, res *ports.AuthResult) error {
	metrics.SessionsStartedTotal.WithLabelValues(string(res.Outcome)).Inc()
	h.cookie.set(c, res.RefreshToken)
	return c.JSON(status, authResponse{
		Message: msg,
		User:    res.User,
		Tokens: tokensResponse{
			AccessToken:  res.AccessToken,
			RefreshToken: res.RefreshToken,
		},
	})
}

// Refresh exchanges a refresh token for a new pair. The presented token is
// consumed.
//
// @Summary      Rotate tokens
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      refreshRequest  false  "Refresh token when the cookie is not sent"
// @Success      200   {object}  authResponse
// @Failure      401   {object}  errorResponse
// @Router       /api/auth/refresh [post]
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshRequest
	if err := bindOptional(c, &req); err != nil {
		return failed("refresh", err)
	}

	token := refreshTokenFrom(c, req.RefreshToken)
	if token == "" {
		return failed("refresh", fmt.Errorf("%w: refresh token is required", domain.ErrTokenInvalid))
	}

	res, err := h.authService.Refresh(c.Request().Context(), token, clientContext(c))
	if err != nil {
		h.cookie.clear(c)
		return failed("refresh", err)
	}

	metrics.RefreshRotationsTotal.Inc()
	h.cookie.set(c, res.RefreshToken)
	return c.JSON(http.StatusOK, authResponse{
		Message: "Tokens refreshed successfully",
		Tokens: tokensResponse{
			AccessToken:  res.AccessToken,
			RefreshToken: res.RefreshToken,
		},
	})
}

// Logout revokes the presented refresh token. Unknown tokens are ignored.
//
// @Summary      Logout from this device
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      refreshRequest  false  "Refresh token when the cookie is not sent"
// @Success      200   {object}  messageResponse
// @Router       /api/auth/logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	var req refreshRequest
	if err := bindOptional(c, &req); err != nil {
		return err
	}

	if err := h.authService.Logout(c.Request().Context(), refreshTokenFrom(c, req.RefreshToken)); err != nil {
		return err
	}

	metrics.LogoutsTotal.WithLabelValues("device").Inc()
	h.cookie.clear(c)
	return c.JSON(http.StatusOK, messageResponse{Message: "Logged out successfully"})
}

// LogoutAll revokes every refresh token of the caller.
//
// @Summary      Logout from every device
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  logoutAllResponse
// @Failure      401  {object}  errorResponse
// @Router       /api/auth/logout-all [post]
func (h *AuthHandler) LogoutAll(c echo.Context) error {
	userID, err := ctxUserID(c)
	if err != nil {
		return err
	}

	n, err := h.authService.LogoutAll(c.Request().Context(), userID)
	if err != nil {
		return err
	}

	metrics.LogoutsTotal.WithLabelValues("all").Inc()
	h.cookie.clear(c)
	return c.JSON(http.StatusOK, logoutAllResponse{Message: "Logged out from all devices", Revoked: n})
}

// CheckEmail reports whether an account uses the email.
//
// @Summary      Check whether an email is registered
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      checkEmailRequest  true  "Email to check"
// @Success      200   {object}  checkEmailResponse
// @Failure      400   {object}  errorResponse
// @Router       /api/auth/check-email [post]
func (h *AuthHandler) CheckEmail(c echo.Context) error {
	var req checkEmailRequest
	if err := c.Bind(&req); err != nil {
		return fmt.Errorf("%w: invalid payload", domain.ErrInvalidInput)
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	exists, err := h.authService.EmailExists(c.Request().Context(), req.Email)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, checkEmailResponse{Exists: exists})
}

// Profile returns the authenticated user.
//
// @Summary      Current user
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  profileResponse
// @Failure      401  {object}  errorResponse
// @Router       /api/auth/profile [get]
func (h *AuthHandler) Profile(c echo.Context) error {
	userID, err := ctxUserID(c)
	if err != nil {
		return err
	}

	user, err := h.authService.Profile(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, profileResponse{User: user})
}

// DeleteAccount removes the caller's account and all of its sessions.
//
// @Summary      Delete own account
// @Tags         auth
// @Security     BearerAuth
// @Success      204
// @Failure      401  {object}  errorResponse
// @Router       /api/auth/account [delete]
func (h *AuthHandler) DeleteAccount(c echo.Context) error {
	userID, err := ctxUserID(c)
	if err != nil {
		return err
	}

	if err := h.authService.DeleteUser(c.Request().Context(), userID); err != nil {
		return err
	}
	h.cookie.clear(c)
	return c.NoContent(http.StatusNoContent)
}

// DeleteUser removes any account. Admin only.
//
// @Summary      Delete a user
// @Tags         admin
// @Security     BearerAuth
// @Param        id   path  string  true  "User ID"
// @Success      204
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /api/admin/users/{id} [delete]
func (h *AuthHandler) DeleteUser(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return fmt.Errorf("%w: user id is required", domain.ErrInvalidInput)
	}

	if err := h.authService.DeleteUser(c.Request().Context(), id); err != nil {
		return err
	}

	actor, _ := ctxUserID(c)
	h.log.Info().Str("user_id", id).Str("actor_id", actor).Msg("user deleted by admin")
	return c.NoContent(http.StatusNoContent)
}
