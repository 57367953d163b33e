package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// devSessionSecret is the SESSION_SECRET default. It is public, so it is
// refused in release mode where it would also sign guest cookies.
const devSessionSecret = "secret_key_change_me"

// Config holds everything the server reads from the environment.
type Config struct {
	Port           string        `env:"PORT" envDefault:"8080"`
	GinMode        string        `env:"GIN_MODE" envDefault:"debug"`
	DatabaseDriver string        `env:"DATABASE_DRIVER" envDefault:"postgres"`
	DatabaseURL    string        `env:"DATABASE_URL" envDefault:"host=localhost user=postgres password=postgres dbname=plaza port=5432 sslmode=disable"`
	SessionSecret  string        `env:"SESSION_SECRET" envDefault:"secret_key_change_me"`
	GuestCookieKey string        `env:"GUEST_COOKIE_HASH_KEY"`
	PostAuthoring  string        `env:"POST_AUTHORING" envDefault:"admin"`
	AdminEmails    []string      `env:"ADMIN_EMAILS" envSeparator:","`
	CORSOrigins    []string      `env:"CORS_ORIGINS" envSeparator:","`
	LogLevel       string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat      string        `env:"LOG_FORMAT" envDefault:"text"`
	ListCacheTTL   time.Duration `env:"LIST_CACHE_TTL" envDefault:"30s"`
}

// Load reads an optional .env file and parses the environment into a Config.
func Load() (*Config, error) {
	// .env is optional; the process environment wins either way
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.DatabaseDriver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported DATABASE_DRIVER %q", c.DatabaseDriver)
	}
	switch c.PostAuthoring {
	case "admin", "users":
	default:
		return fmt.Errorf("unsupported POST_AUTHORING %q (want admin or users)", c.PostAuthoring)
	}
	if len(c.SessionSecret) < 8 {
		return fmt.Errorf("SESSION_SECRET is too short")
	}
	if c.GinMode == "release" && c.SessionSecret == devSessionSecret {
		return fmt.Errorf("SESSION_SECRET must be set in release mode")
	}
	return nil
}

// GuestHashKey is the HMAC key for the guest cookie. It falls back to the
// session secret so a single secret is enough for local development.
func (c *Config) GuestHashKey() []byte {
	if c.GuestCookieKey != "" {
		return []byte(c.GuestCookieKey)
	}
	return []byte("guest:" + c.SessionSecret)
}

// IsAdminEmail reports whether new accounts with this email get the admin role.
func (c *Config) IsAdminEmail(email string) bool {
	for _, e := range c.AdminEmails {
		if strings.EqualFold(strings.TrimSpace(e), strings.TrimSpace(email)) {
			return true
		}
	}
	return false
}
