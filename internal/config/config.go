package config

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/layer-3/warden/core"
	"github.com/layer-3/warden/internal/logger"
)

const (
	defaultListenAddr = "localhost:9000"
	defaultLogLevel   = logger.LevelInfo
)

// Config for the warden service. Precedence: defaults < .env file <
// environment < flags.
type Config struct {
	// Address the HTTP server listens on
	ListenAddr string

	// Logging level (debug, info, warn, error)
	LogLevel string

	// Base URL of the remote credential service
	APIURL string

	// Client credentials identifying this deployment to the credential
	// service
	ClientID     string
	ClientSecret string

	// Secret signing the session artifact. Required, no default.
	AuthSecret string

	// Redis connection URL. Optional: without it the service falls back
	// to in-process locking and channel-local events.
	RedisURL string

	// Local token lifetime overriding the upstream expires_in
	TokenTTL time.Duration

	// Whether the session cookie carries the Secure attribute. Off by
	// default for plain-HTTP deployments; enable behind TLS.
	CookieSecure bool
}

// NewConfig returns a config populated with defaults
func NewConfig() *Config {
	return &Config{
		ListenAddr: defaultListenAddr,
		LogLevel:   defaultLogLevel,
		TokenTTL:   core.DefaultTokenTTL,
	}
}

// LoadDotEnv loads variables from a '.env' file in the working directory.
// A missing file is not an error.
func (c *Config) LoadDotEnv(getwd func() (string, error)) error {
	wd, err := getwd()
	if err != nil {
		return err
	}

	envMap, err := godotenv.Read(filepath.Join(wd, ".env"))

	switch {
	case err == nil:
		c.LoadEnv(func(key string) string {
			return envMap[key]
		})
		return nil
	case errors.Is(err, os.ErrNotExist):
		return nil
	default:
		return err
	}
}

// LoadEnv overrides config values from the given environment lookup
func (c *Config) LoadEnv(getenv func(string) string) {
	setString := func(o *string) func(value string) {
		return func(value string) {
			if value != "" {
				*o = value
			}
		}
	}
	setBool := func(o *bool) func(value string) {
		return func(value string) {
			if value != "" {
				*o = value == "true" || value == "1"
			}
		}
	}
	setDuration := func(o *time.Duration) func(value string) {
		return func(value string) {
			if d, err := time.ParseDuration(value); err == nil && d > 0 {
				*o = d
			}
		}
	}

	envMap := map[string]func(string){
		"LISTEN_ADDR":   setString(&c.ListenAddr),
		"LOG_LEVEL":     setString(&c.LogLevel),
		"API_URL":       setString(&c.APIURL),
		"CLIENT_ID":     setString(&c.ClientID),
		"CLIENT_SECRET": setString(&c.ClientSecret),
		"AUTH_SECRET":   setString(&c.AuthSecret),
		"REDIS_URL":     setString(&c.RedisURL),
		"TOKEN_TTL":     setDuration(&c.TokenTTL),
		"COOKIE_SECURE": setBool(&c.CookieSecure),
	}

	for key, parseFn := range envMap {
		parseFn(getenv(key))
	}
}

// ParseFlags overrides config values from command-line flags
func (c *Config) ParseFlags(args []string) error {
	fs := pflag.NewFlagSet("warden", pflag.ContinueOnError)

	fs.StringVarP(&c.ListenAddr, "address", "a", c.ListenAddr, "Server listen address")
	fs.StringVarP(&c.LogLevel, "log-level", "l", c.LogLevel, "Logging level (debug, info, warn, error)")
	fs.StringVar(&c.APIURL, "api-url", c.APIURL, "Credential service base URL")
	fs.StringVar(&c.ClientID, "client-id", c.ClientID, "Credential service client id")
	fs.StringVar(&c.ClientSecret, "client-secret", c.ClientSecret, "Credential service client secret")
	fs.StringVarP(&c.AuthSecret, "auth-secret", "s", c.AuthSecret, "Session signing secret")
	fs.StringVarP(&c.RedisURL, "redis", "r", c.RedisURL, "Redis connection URL")
	fs.DurationVar(&c.TokenTTL, "token-ttl", c.TokenTTL, "Local token lifetime")
	fs.BoolVar(&c.CookieSecure, "cookie-secure", c.CookieSecure, "Set the Secure attribute on session cookies")

	return fs.Parse(args)
}

// Validate checks that required values are present. The signing secret has
// no default on purpose: a deployment must provide its own.
func (c *Config) Validate() error {
	if c.AuthSecret == "" {
		return errors.New("AUTH_SECRET is required and has no default")
	}
	if c.APIURL == "" {
		return errors.New("API_URL is required")
	}

	return nil
}
