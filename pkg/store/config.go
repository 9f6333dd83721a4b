package store

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverDuckDB   Driver = "duckdb"
	DriverPostgres Driver = "postgres"
)

var ErrUnsupportedDriver = errors.New("unsupported store driver")

// ParseDriver accepts the driver names used on the command line and in the environment.
func ParseDriver(s string) (Driver, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "sqlite", "sqlite3":
		return DriverSQLite, nil
	case "duckdb":
		return DriverDuckDB, nil
	case "postgres", "postgresql", "pgx":
		return DriverPostgres, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedDriver, s)
	}
}

type Config struct {
	Logger *slog.Logger
	Driver Driver
	DSN    string

	// Namespace introspected for duckdb and postgres.
	Schema string
}

func (cfg *Config) Validate() error {
	if cfg.Logger == nil {
		return fmt.Errorf("logger is required")
	}
	if cfg.Driver == "" {
		cfg.Driver = DriverSQLite
	}
	switch cfg.Driver {
	case DriverSQLite:
		if cfg.DSN == "" {
			cfg.DSN = "finance.db"
		}
	case DriverDuckDB:
		if cfg.DSN == "" {
			cfg.DSN = "finance.duckdb"
		}
		if cfg.Schema == "" {
			cfg.Schema = "main"
		}
	case DriverPostgres:
		if cfg.DSN == "" {
			return fmt.Errorf("dsn is required for the postgres driver")
		}
		if cfg.Schema == "" {
			cfg.Schema = "public"
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedDriver, cfg.Driver)
	}
	return nil
}
