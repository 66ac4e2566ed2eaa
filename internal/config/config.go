// Package config reads the widget configuration from the environment and flags
package config

import (
	"errors"
	"flag"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

// Session store kinds
const (
	StoreBadger = "badger"
	StoreMemory = "memory"
)

type Config struct {
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8080"`

	APIBaseURL            string        `env:"API_BASE_URL" envDefault:"https://localhost:7191/api"`
	APITimeout            time.Duration `env:"API_TIMEOUT" envDefault:"10s"`
	APIInsecureSkipVerify bool          `env:"API_INSECURE_SKIP_VERIFY" envDefault:"false"`

	SessionStore  string        `env:"SESSION_STORE" envDefault:"badger"`
	DataDir       string        `env:"DATA_DIR" envDefault:"./data"`
	SessionTTL    time.Duration `env:"SESSION_TTL" envDefault:"24h"`
	SessionSecret string        `env:"SESSION_SECRET"`
	CookieSecure  bool          `env:"COOKIE_SECURE" envDefault:"false"`

	LogLevel      string `env:"LOG_LEVEL" envDefault:"info"`
	EnableMetrics bool   `env:"ENABLE_METRICS" envDefault:"true"`
}

// Load reads an optional .env file, then the environment, then args.
// A missing .env file is not an error.
func Load(args []string, envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, file := range envFiles {
		// godotenv never overrides variables that are already set
		_ = godotenv.Load(file)
	}

	config := Config{}
	if err := env.Parse(&config); err != nil {
		return nil, fmt.Errorf("read config error: %w", err)
	}

	fs := flag.NewFlagSet("exchange-rate-widget", flag.ContinueOnError)
	fs.StringVar(&config.HTTPAddr, "addr", config.HTTPAddr, "HTTP listen address")
	fs.StringVar(&config.APIBaseURL, "api-base-url", config.APIBaseURL, "Exchange rate API base URL")
	fs.DurationVar(&config.APITimeout, "api-timeout", config.APITimeout, "Exchange rate API request timeout")
	fs.BoolVar(&config.APIInsecureSkipVerify, "api-insecure-skip-verify",
		config.APIInsecureSkipVerify, "Skip TLS verification of the exchange rate API")
	fs.StringVar(&config.SessionStore, "session-store", config.SessionStore, "Session store (badger or memory)")
	fs.StringVar(&config.DataDir, "data-dir", config.DataDir, "Badger data directory")
	fs.DurationVar(&config.SessionTTL, "session-ttl", config.SessionTTL, "Lifetime of a stored widget session")
	fs.BoolVar(&config.CookieSecure, "cookie-secure", config.CookieSecure, "Mark the session cookie as secure")
	fs.StringVar(&config.LogLevel, "log-level", config.LogLevel, "Log level")
	fs.BoolVar(&config.EnableMetrics, "enable-metrics", config.EnableMetrics, "Expose Prometheus metrics")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("read flags error: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate checks the values that cannot be defaulted
func (c *Config) Validate() error {
	c.SessionStore = strings.ToLower(strings.TrimSpace(c.SessionStore))
	switch c.SessionStore {
	case StoreBadger, StoreMemory:
	default:
		return fmt.Errorf("unknown session store %q", c.SessionStore)
	}

	u, err := url.Parse(c.APIBaseURL)
	if err != nil {
		return fmt.Errorf("invalid API base URL %q: %w", c.APIBaseURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid API base URL %q", c.APIBaseURL)
	}

	if c.APITimeout <= 0 {
		return errors.New("API timeout must be positive")
	}
	if c.SessionTTL <= 0 {
		return errors.New("session TTL must be positive")
	}
	if c.SessionStore == StoreBadger && c.DataDir == "" {
		return errors.New("data directory is required for the badger session store")
	}

	return nil
}
