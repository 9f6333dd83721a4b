package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/malbeclabs/finagent/pkg/store"
)

const (
	DefaultHTTPAddr   = ":8080"
	DefaultSessionTTL = 30 * time.Minute
)

// Config holds the runtime configuration shared by all commands.
type Config struct {
	// Anthropic configuration
	AnthropicAPIKey  string
	AnthropicBaseURL string
	Model            string
	MaxTokens        int64

	// Query loop
	MaxRetries int

	// Store configuration
	DBDriver store.Driver
	DBDSN    string

	// Server configuration
	HTTPAddr   string
	SessionTTL time.Duration

	Verbose bool
}

// Flags carries command line values. Environment variables override them when set.
type Flags struct {
	DBDriver   string
	DBDSN      string
	Model      string
	MaxRetries int
	HTTPAddr   string
	SessionTTL time.Duration
	Verbose    bool
}

// LoadDotEnv loads variables from .env files without overriding the environment.
// Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// Load builds the configuration from flags and environment variables. requireLLM is set
// by commands that talk to the generation service.
func Load(flags Flags, requireLLM bool) (*Config, error) {
	cfg := &Config{
		Model:      flags.Model,
		MaxRetries: flags.MaxRetries,
		DBDSN:      flags.DBDSN,
		HTTPAddr:   flags.HTTPAddr,
		SessionTTL: flags.SessionTTL,
		Verbose:    flags.Verbose,
	}

	cfg.AnthropicAPIKey = os.Getenv("ANTHROPIC_API_KEY")
	if requireLLM && cfg.AnthropicAPIKey == "" {
		return nil, fmt.Errorf("ANTHROPIC_API_KEY is required")
	}
	cfg.AnthropicBaseURL = os.Getenv("ANTHROPIC_BASE_URL")

	if v := os.Getenv("FINAGENT_MODEL"); v != "" {
		cfg.Model = v
	}
	if v := os.Getenv("FINAGENT_MAX_TOKENS"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("FINAGENT_MAX_TOKENS must be a positive integer, got: %s", v)
		}
		cfg.MaxTokens = n
	}
	if v := os.Getenv("FINAGENT_MAX_RETRIES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("FINAGENT_MAX_RETRIES must be an integer, got: %s", v)
		}
		cfg.MaxRetries = n
	}

	driver := flags.DBDriver
	if v := os.Getenv("FINAGENT_DB_DRIVER"); v != "" {
		driver = v
	}
	d, err := store.ParseDriver(driver)
	if err != nil {
		return nil, err
	}
	cfg.DBDriver = d
	if v := os.Getenv("FINAGENT_DB_DSN"); v != "" {
		cfg.DBDSN = v
	}

	if v := os.Getenv("FINAGENT_HTTP_ADDR"); v != "" {
		cfg.HTTPAddr = v
	}
	if v := os.Getenv("FINAGENT_SESSION_TTL"); v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("FINAGENT_SESSION_TTL must be a duration, got: %s", v)
		}
		cfg.SessionTTL = ttl
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (cfg *Config) Validate() error {
	if cfg.MaxRetries < 0 {
		return fmt.Errorf("max retries must not be negative, got: %d", cfg.MaxRetries)
	}
	if cfg.DBDriver == store.DriverPostgres && cfg.DBDSN == "" {
		return fmt.Errorf("FINAGENT_DB_DSN is required for the postgres driver")
	}
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = DefaultHTTPAddr
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = DefaultSessionTTL
	}
	return nil
}
