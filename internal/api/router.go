package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	"github.com/trainhub/auth-service/internal/api/handler"
	"github.com/trainhub/auth-service/internal/api/middleware"
	"github.com/trainhub/auth-service/internal/core/domain"
	"github.com/trainhub/auth-service/internal/core/ports"
)

const serviceName = "auth-service"

// Deps is everything the HTTP layer needs from main.
type Deps struct {
	AuthService ports.AuthService

	// Provider and States enable the OAuth routes; leave either nil to disable them.
	Provider ports.IdentityProvider
	States   ports.StateStore
	OAuth    handler.OAuthConfig

	Cookie       handler.CookieConfig
	Registration handler.RegistrationConfig
	Checks       map[string]handler.Check

	// ClientURL is the only origin allowed by CORS.
	ClientURL  string
	Production bool
	Log        zerolog.Logger

	// Registerer defaults to prometheus.DefaultRegisterer.
	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Deps) *echo.Echo {
	if d.Registerer == nil {
		d.Registerer = prometheus.DefaultRegisterer
	}
	if d.Gatherer == nil {
		d.Gatherer = prometheus.DefaultGatherer
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Log, d.Production)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(d.Log))
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins:     []string{d.ClientURL},
		AllowCredentials: true,
		AllowHeaders: []string{
			echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept,
			echo.HeaderAuthorization, handler.HeaderDeviceName,
		},
	}))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:                 "auth",
		Registerer:                d.Registerer,
		DoNotUseRequestPathFor404: true,
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/metrics"
		},
	}))

	// --- Operational endpoints ---
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: d.Gatherer}))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	healthHandler := handler.NewHealthHandler(serviceName)
	readinessHandler := handler.NewReadinessHandler(d.Checks)

	e.GET("/health", healthHandler.Liveness)            // liveness: is the process alive?
	e.GET("/health/ready", readinessHandler.Readiness) // readiness: are dependencies up?

	// --- Auth routes ---
	authHandler := handler.NewAuthHandler(d.AuthService, d.Cookie, d.Registration, d.Log)
	requireAuth := middleware.Auth(d.AuthService)

	auth := e.Group("/api/auth")
	auth.GET("/health", healthHandler.Liveness)
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)
	auth.POST("/logout", authHandler.Logout)
	auth.POST("/check-email", authHandler.CheckEmail)

	auth.POST("/logout-all", authHandler.LogoutAll, requireAuth)
	auth.GET("/profile", authHandler.Profile, requireAuth)
	auth.DELETE("/account", authHandler.DeleteAccount, requireAuth)

	if d.Provider != nil && d.States != nil {
		oauthHandler := handler.NewOAuthHandler(d.Provider, d.States, d.AuthService, d.OAuth, d.Cookie, d.Log)
		auth.GET("/"+d.Provider.Name(), oauthHandler.Start)
		auth.GET("/"+d.Provider.Name()+"/callback", oauthHandler.Callback)
	}

	// --- Admin routes ---
	admin := e.Group("/api/admin", requireAuth, middleware.RBAC(domain.RoleAdmin))
	admin.DELETE("/users/:id", authHandler.DeleteUser)

	return e
}

func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogRemoteIP:  true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(_ echo.Context, v echomiddleware.RequestLoggerValues) error {
			evt := log.Info()
			if v.Status >= 500 {
				evt = log.Error().Err(v.Error)
			}
			evt.
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Str("ip", v.RemoteIP).
				Msg("request")
			return nil
		},
	})
}
