package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

const (
	StoreMongo    = "mongo"
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

type Config struct {
	Port        string `env:"PORT,         default=8080"`
	Env         string `env:"ENV,          default=development"`
	LogLevel    string `env:"LOG_LEVEL,    default=info"`
	StoreDriver string `env:"STORE_DRIVER, default=mongo"`
	ClientURL   string `env:"CLIENT_URL,   default=http://localhost:3000"`

	// AllowAdminSignup lets the public register endpoint create admins.
	AllowAdminSignup bool `env:"ALLOW_ADMIN_SIGNUP, default=false"`

	Token    TokenConfig
	Password PasswordConfig
	Google   GoogleConfig
	Mongo    MongoConfig
	Postgres PostgresConfig
	Redis    RedisConfig
}

type TokenConfig struct {
	Secret        string        `env:"JWT_SECRET, required"`
	Issuer        string        `env:"JWT_ISSUER,             default=auth-service"`
	AccessTTL     time.Duration `env:"JWT_ACCESS_TTL,         default=15m"`
	RefreshTTL    time.Duration `env:"REFRESH_TOKEN_TTL,      default=360h"`
	SweepInterval time.Duration `env:"REFRESH_SWEEP_INTERVAL, default=1h"`
}

type PasswordConfig struct {
	BcryptCost int `env:"BCRYPT_COST, default=12"`
}

type GoogleConfig struct {
	ClientID     string        `env:"GOOGLE_CLIENT_ID"`
	ClientSecret string        `env:"GOOGLE_CLIENT_SECRET"`
	CallbackURL  string        `env:"GOOGLE_CALLBACK_URL, default=http://localhost:8080/api/auth/google/callback"`
	StateTTL     time.Duration `env:"OAUTH_STATE_TTL,     default=10m"`
}

// Enabled reports whether Google sign-in is configured.
func (g GoogleConfig) Enabled() bool {
	return g.ClientID != "" && g.ClientSecret != ""
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=auth_service"`
}

type PostgresConfig struct {
	DSN string `env:"POSTGRES_DSN"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR,     default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,       default=0"`
}

// IsProduction hides internal error detail and switches the logger to JSON.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

func (c *Config) validate() error {
	switch c.StoreDriver {
	case StoreMongo, StoreMemory:
	case StorePostgres:
		if c.Postgres.DSN == "" {
			return fmt.Errorf("POSTGRES_DSN is required when STORE_DRIVER=%s", StorePostgres)
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	if c.Token.AccessTTL <= 0 || c.Token.RefreshTTL <= 0 {
		return fmt.Errorf("token lifetimes must be positive")
	}
	return nil
}

// Load reads configuration from environment variables using go-envconfig.
func Load() *Config {
	cfg, err := LoadWith(context.Background(), envconfig.OsLookuper())
	if err != nil {
		panic(fmt.Sprintf("config: failed to load configuration: %v", err))
	}
	return cfg
}

// LoadWith reads configuration through l.
func LoadWith(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return nil, err
	}
	cfg.StoreDriver = strings.ToLower(strings.TrimSpace(cfg.StoreDriver))
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
