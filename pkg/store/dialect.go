package store

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// openDB opens a handle for the configured driver. When readOnly is set the handle
// refuses writes at the engine level: sqlite opens the file with mode=ro, duckdb uses
// access_mode, postgres uses default_transaction_read_only. None of these can be
// switched back from within a query.
func openDB(cfg Config, readOnly bool) (*sql.DB, error) {
	switch cfg.Driver {
	case DriverSQLite:
		dsn := cfg.DSN
		if readOnly {
			dsn = sqliteReadOnlyDSN(dsn)
		}
		return sql.Open("sqlite", dsn)
	case DriverDuckDB:
		dsn := cfg.DSN
		if readOnly {
			dsn = appendParam(dsn, "access_mode=read_only")
		}
		return sql.Open("duckdb", dsn)
	case DriverPostgres:
		connCfg, err := pgx.ParseConfig(cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("failed to parse postgres dsn: %w", err)
		}
		if readOnly {
			if connCfg.RuntimeParams == nil {
				connCfg.RuntimeParams = map[string]string{}
			}
			connCfg.RuntimeParams["default_transaction_read_only"] = "on"
		}
		return stdlib.OpenDB(*connCfg), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, cfg.Driver)
	}
}

func appendParam(dsn, param string) string {
	if strings.Contains(dsn, "?") {
		return dsn + "&" + param
	}
	return dsn + "?" + param
}

// sqliteReadOnlyDSN rewrites dsn as a file: URI opened with mode=ro. The query_only
// pragma is kept as a second layer; on its own a query can turn it off.
func sqliteReadOnlyDSN(dsn string) string {
	path, query, _ := strings.Cut(dsn, "?")
	if !strings.HasPrefix(path, "file:") {
		path = "file:" + escapeURIPath(path)
	}
	uri := path
	if query != "" {
		uri += "?" + query
	}
	uri = appendParam(uri, "mode=ro")
	return appendParam(uri, "_pragma=query_only(1)")
}

func escapeURIPath(path string) string {
	return strings.NewReplacer("%", "%25", "?", "%3f", "#", "%23").Replace(path)
}

// placeholder returns the bind parameter marker for the n-th (1-based) argument.
func placeholder(driver Driver, n int) string {
	if driver == DriverPostgres {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

func columnType(driver Driver, kind columnKind) string {
	switch kind {
	case kindInteger:
		return "INTEGER"
	case kindBigInt:
		// sqlite only treats INTEGER PRIMARY KEY as a rowid alias; its INTEGER is already 64-bit.
		if driver == DriverSQLite {
			return "INTEGER"
		}
		return "BIGINT"
	case kindReal:
		switch driver {
		case DriverPostgres:
			return "DOUBLE PRECISION"
		case DriverDuckDB:
			return "DOUBLE"
		default:
			return "REAL"
		}
	default:
		if driver == DriverDuckDB {
			return "VARCHAR"
		}
		return "TEXT"
	}
}
