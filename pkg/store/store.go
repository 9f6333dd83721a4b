package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/malbeclabs/finagent/pkg/metrics"
)

// Row is a single result row keyed by column name.
type Row map[string]any

// RowSet is an ordered query result. Columns carries the column order since Row is unordered.
type RowSet struct {
	Columns []string
	Rows    []Row
}

func (r RowSet) Len() int {
	return len(r.Rows)
}

// ExecutionError is returned by ExecuteReadOnly for any failure to run a query.
// Its message is the driver diagnostic, suitable for feeding back into query synthesis.
type ExecutionError struct {
	Query string
	Err   error
}

func (e *ExecutionError) Error() string {
	return e.Err.Error()
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// Store is a read-only handle over the financial records database.
type Store struct {
	log *slog.Logger
	cfg Config
	db  *sql.DB
}

func Open(ctx context.Context, cfg Config) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("failed to validate store config: %w", err)
	}
	db, err := openDB(cfg, true)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", cfg.Driver, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping %s store: %w", cfg.Driver, err)
	}
	return NewWithDB(cfg, db)
}

// NewWithDB wraps an already opened handle. The caller is responsible for it being read-only.
func NewWithDB(cfg Config, db *sql.DB) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("failed to validate store config: %w", err)
	}
	return &Store{
		log: cfg.Logger,
		cfg: cfg,
		db:  db,
	}, nil
}

func (s *Store) Driver() Driver {
	return s.cfg.Driver
}

func (s *Store) Close() error {
	return s.db.Close()
}

// ExecuteReadOnly runs a fully bound query and returns its rows. Every failure, including
// a write rejected by the read-only handle, is reported as an *ExecutionError.
func (s *Store) ExecuteReadOnly(ctx context.Context, query string) (RowSet, error) {
	start := time.Now()
	rs, err := s.execute(ctx, query)
	metrics.StoreQueryDuration.WithLabelValues(string(s.cfg.Driver)).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.StoreQueriesTotal.WithLabelValues(string(s.cfg.Driver), "error").Inc()
		s.log.Info("store: query failed", "error", err, "duration", time.Since(start))
		return RowSet{}, &ExecutionError{Query: query, Err: err}
	}
	metrics.StoreQueriesTotal.WithLabelValues(string(s.cfg.Driver), "ok").Inc()
	s.log.Debug("store: query executed", "rows", rs.Len(), "duration", time.Since(start))
	return rs, nil
}

func (s *Store) execute(ctx context.Context, query string) (RowSet, error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return RowSet{}, fmt.Errorf("failed to get connection: %w", err)
	}
	defer conn.Close()

	if s.cfg.Driver == DriverPostgres {
		tx, err := conn.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
		if err != nil {
			return RowSet{}, fmt.Errorf("failed to begin read-only transaction: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		rows, err := tx.QueryContext(ctx, query)
		if err != nil {
			return RowSet{}, err
		}
		defer rows.Close()
		return scanRows(rows)
	}

	rows, err := conn.QueryContext(ctx, query)
	if err != nil {
		return RowSet{}, err
	}
	defer rows.Close()
	return scanRows(rows)
}

func scanRows(rows *sql.Rows) (RowSet, error) {
	columns, err := rows.Columns()
	if err != nil {
		return RowSet{}, fmt.Errorf("failed to get columns: %w", err)
	}

	result := RowSet{Columns: columns, Rows: []Row{}}
	for rows.Next() {
		values := make([]any, len(columns))
		valuePtrs := make([]any, len(columns))
		for i := range values {
			valuePtrs[i] = &values[i]
		}
		if err := rows.Scan(valuePtrs...); err != nil {
			return RowSet{}, fmt.Errorf("failed to scan row: %w", err)
		}

		row := make(Row, len(columns))
		for i, col := range columns {
			switch v := values[i].(type) {
			case []byte:
				row[col] = string(v)
			default:
				row[col] = v
			}
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return RowSet{}, err
	}
	return result, nil
}
