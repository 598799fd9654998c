package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	_ "github.com/trainhub/auth-service/docs" // swagger docs
	"github.com/trainhub/auth-service/internal/api"
	"github.com/trainhub/auth-service/internal/api/handler"
	"github.com/trainhub/auth-service/internal/api/metrics"
	"github.com/trainhub/auth-service/internal/core/ports"
	"github.com/trainhub/auth-service/internal/core/service"
	"github.com/trainhub/auth-service/internal/infrastructure/db/memory"
	mongostore "github.com/trainhub/auth-service/internal/infrastructure/db/mongo"
	"github.com/trainhub/auth-service/internal/infrastructure/db/postgres"
	redisstore "github.com/trainhub/auth-service/internal/infrastructure/db/redis"
	"github.com/trainhub/auth-service/internal/infrastructure/hasher"
	"github.com/trainhub/auth-service/internal/infrastructure/oauth/google"
	"github.com/trainhub/auth-service/internal/infrastructure/worker"
	"github.com/trainhub/auth-service/internal/pkg/config"
	"github.com/trainhub/auth-service/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

// @title                       Auth Service API
// @version                     1.0
// @description                 Identity resolution and token lifecycle for the training platform.
// @host                        localhost:8080
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  !cfg.IsProduction(),
		Service: "auth-service",
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("auth service stopped")
	}
}

// store is the credential backend selected by STORE_DRIVER.
type store struct {
	users  ports.UserRepository
	tokens ports.RefreshTokenRepository
	check  handler.Check
	close  func(context.Context) error
}

func openStore(ctx context.Context, cfg *config.Config) (*store, error) {
	switch cfg.StoreDriver {
	case config.StoreMongo:
		client, db, err := mongostore.Connect(ctx, mongostore.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
		if err != nil {
			return nil, err
		}
		repos, err := mongostore.NewRepositories(ctx, db)
		if err != nil {
			_ = client.Disconnect(ctx)
			return nil, err
		}
		return &store{
			users:  repos.Users,
			tokens: repos.RefreshTokens,
			check:  func(ctx context.Context) error { return client.Ping(ctx, nil) },
			close:  client.Disconnect,
		}, nil

	case config.StorePostgres:
		db, err := postgres.Open(cfg.Postgres.DSN)
		if err != nil {
			return nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("postgres pool: %w", err)
		}
		return &store{
			users:  postgres.NewUserRepository(db),
			tokens: postgres.NewRefreshTokenRepository(db),
			check:  sqlDB.PingContext,
			close:  func(context.Context) error { return sqlDB.Close() },
		}, nil

	case config.StoreMemory:
		s := memory.NewStore()
		return &store{
			users:  s.Users(),
			tokens: s.RefreshTokens(),
			close:  func(context.Context) error { return nil },
		}, nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	st, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open %s store: %w", cfg.StoreDriver, err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := st.close(closeCtx); err != nil {
			log.Warn().Err(err).Msg("closing store")
		}
	}()
	log.Info().Str("driver", cfg.StoreDriver).Msg("credential store ready")

	checks := map[string]handler.Check{}
	if st.check != nil {
		checks[cfg.StoreDriver] = st.check
	}

	tokenCfg := service.TokenConfig{
		Secret:     []byte(cfg.Token.Secret),
		Issuer:     cfg.Token.Issuer,
		AccessTTL:  cfg.Token.AccessTTL,
		RefreshTTL: cfg.Token.RefreshTTL,
	}
	issuer, err := service.NewTokenIssuer(tokenCfg)
	if err != nil {
		return err
	}
	resolver := service.NewIdentityResolver(st.users, hasher.NewBcrypt(cfg.Password.BcryptCost), logger.Component("resolver"))
	refresh := service.NewRefreshManager(st.tokens, issuer, tokenCfg, logger.Component("refresh"))
	authService := service.NewAuthService(resolver, refresh, issuer, st.users, log)

	deps := api.Deps{
		AuthService: authService,
		OAuth:       handler.OAuthConfig{ClientURL: cfg.ClientURL, StateTTL: cfg.Google.StateTTL},
		Cookie: handler.CookieConfig{
			Secure: cfg.IsProduction(),
			MaxAge: cfg.Token.RefreshTTL,
		},
		Registration: handler.RegistrationConfig{AllowAdmin: cfg.AllowAdminSignup},
		Checks:       checks,
		ClientURL:    cfg.ClientURL,
		Production:   cfg.IsProduction(),
		Log:          logger.Component("http"),
	}

	if cfg.Google.Enabled() {
		rdb, err := redisstore.Connect(ctx, redisstore.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return fmt.Errorf("google sign-in needs redis: %w", err)
		}
		defer rdb.Close()

		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
		deps.States = redisstore.NewStateStore(rdb)
		deps.Provider = google.New(google.Config{
			ClientID:     cfg.Google.ClientID,
			ClientSecret: cfg.Google.ClientSecret,
			RedirectURL:  cfg.Google.CallbackURL,
		}, logger.Component("google"))
		log.Info().Msg("google sign-in enabled")
	} else {
		log.Warn().Msg("GOOGLE_CLIENT_ID or GOOGLE_CLIENT_SECRET not set, google sign-in disabled")
	}

	sweeper := worker.NewSweeper(refresh, cfg.Token.SweepInterval, metrics.SweepRecorder{}, logger.Component("sweeper"))
	sweepCtx, cancelSweep := context.WithCancel(ctx)
	defer cancelSweep()
	sweeper.Start(sweepCtx)

	e := api.NewRouter(deps)

	serverErr := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("auth service listening")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}

	cancelSweep()
	select {
	case <-sweeper.Done():
	case <-shutdownCtx.Done():
	}
	return nil
}
