package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Provider holds the identity provider settings. All four values are
// required; the process must not start without them.
type Provider struct {
	Domain       string `env:"AUTH0_DOMAIN,notEmpty"`
	ClientID     string `env:"AUTH0_CLIENT_ID,notEmpty"`
	ClientSecret string `env:"AUTH0_CLIENT_SECRET,notEmpty"`
	CallbackURL  string `env:"AUTH0_CALLBACK_URL,notEmpty"`
}

// Issuer returns the expected issuer string for ID tokens minted by this
// provider. Auth0 issuers always carry a trailing slash.
func (p Provider) Issuer() string {
	return "https://" + p.Domain + "/"
}

// Config aggregates runtime configuration for the stackzero service.
type Config struct {
	Environment    string        `env:"APP_ENV" envDefault:"development"`
	HTTPPort       int           `env:"PORT" envDefault:"8080"`
	DataStore      string        `env:"DATA_STORE" envDefault:"memory"`
	DatabaseURL    string        `env:"DATABASE_URL"`
	SessionStore   string        `env:"SESSION_STORE" envDefault:"memory"`
	RedisURL       string        `env:"REDIS_URL"`
	SessionTTL     time.Duration `env:"SESSION_TTL" envDefault:"12h"`
	LogLevel       string        `env:"LOG_LEVEL" envDefault:"info"`
	AllowedOrigins []string      `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:8080"`

	Auth0 Provider
}

// Load reads configuration from environment variables. Absence of any
// provider value is a startup error, never a silently degraded mode.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}

	cfg.Environment = strings.ToLower(strings.TrimSpace(cfg.Environment))
	cfg.DataStore = strings.ToLower(cfg.DataStore)
	cfg.SessionStore = strings.ToLower(cfg.SessionStore)

	if cfg.DataStore != "memory" && cfg.DataStore != "postgres" {
		return Config{}, fmt.Errorf("config: unknown DATA_STORE %q", cfg.DataStore)
	}
	if cfg.SessionStore != "memory" && cfg.SessionStore != "redis" {
		return Config{}, fmt.Errorf("config: unknown SESSION_STORE %q", cfg.SessionStore)
	}
	if cfg.DataStore == "postgres" && cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("config: DATA_STORE is postgres but DATABASE_URL is not set")
	}
	if cfg.SessionStore == "redis" && cfg.RedisURL == "" {
		return Config{}, fmt.Errorf("config: SESSION_STORE is redis but REDIS_URL is not set")
	}
	if cfg.IsProduction() && cfg.DataStore == "memory" {
		return Config{}, fmt.Errorf("config: DATA_STORE memory is not allowed in production")
	}

	return cfg, nil
}

// HTTPAddress returns the address the HTTP server should bind to.
func (c Config) HTTPAddress() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

// IsProduction reports whether the service runs in the production environment.
func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

// UseInMemoryStore returns true if the in-memory user repository should be used.
func (c Config) UseInMemoryStore() bool {
	return c.DataStore == "memory"
}

// UseRedisSessions returns true if sessions live in the networked store.
func (c Config) UseRedisSessions() bool {
	return c.SessionStore == "redis"
}
