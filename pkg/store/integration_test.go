//go:build integration

package store_test

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/malbeclabs/finagent/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

func TestFinagent_Store_Postgres(t *testing.T) {
	ctx := context.Background()
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	pgContainer, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("finance"),
		postgres.WithUsername("finagent"),
		postgres.WithPassword("finagent"),
		postgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	defer func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to cleanup postgres container: %v", err)
		}
	}()

	host, err := pgContainer.Host(ctx)
	require.NoError(t, err)
	port, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	cfg := store.Config{
		Logger: log,
		Driver: store.DriverPostgres,
		DSN:    fmt.Sprintf("postgres://finagent:finagent@%s:%s/finance?sslmode=disable", host, port.Port()),
	}

	report, err := store.Bootstrap(ctx, cfg, store.DefaultSeed)
	require.NoError(t, err)
	require.True(t, report.Created)

	s, err := store.Open(ctx, cfg)
	require.NoError(t, err)
	defer s.Close()

	schema, err := s.IntrospectSchema(ctx)
	require.NoError(t, err)
	assert.Contains(t, schema, "Table: users\n  - user_id (INTEGER) PRIMARY KEY\n")
	assert.Contains(t, schema, "  - balance (DOUBLE PRECISION)\n")

	rs, err := s.ExecuteReadOnly(ctx, "SELECT balance FROM users WHERE user_id = 7")
	require.NoError(t, err)
	require.Equal(t, 1, rs.Len())
	assert.Equal(t, 1520.75, rs.Rows[0]["balance"])

	_, err = s.ExecuteReadOnly(ctx, "DELETE FROM deals WHERE user_id = 7")
	var execErr *store.ExecutionError
	require.True(t, errors.As(err, &execErr))
	assert.Contains(t, execErr.Error(), "read-only transaction")

	rs, err = s.ExecuteReadOnly(ctx, "SELECT COUNT(*) AS n FROM deals WHERE user_id = 7")
	require.NoError(t, err)
	assert.EqualValues(t, 7, rs.Rows[0]["n"])
}

func TestFinagent_Store_DuckDB(t *testing.T) {
	ctx := context.Background()
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	cfg := store.Config{
		Logger: log,
		Driver: store.DriverDuckDB,
		DSN:    filepath.Join(t.TempDir(), "finance.duckdb"),
	}

	report, err := store.Bootstrap(ctx, cfg, store.DefaultSeed)
	require.NoError(t, err)
	require.True(t, report.Created)

	s, err := store.Open(ctx, cfg)
	require.NoError(t, err)
	defer s.Close()

	schema, err := s.IntrospectSchema(ctx)
	require.NoError(t, err)
	assert.Contains(t, schema, "Table: users\n")
	assert.Contains(t, schema, "  - balance (DOUBLE)")

	rs, err := s.ExecuteReadOnly(ctx, "SELECT name FROM users WHERE user_id = 7")
	require.NoError(t, err)
	require.Equal(t, 1, rs.Len())
	assert.Equal(t, "Lena Fischer", rs.Rows[0]["name"])

	for _, query := range []string{
		"DELETE FROM deals WHERE user_id = 7",
		"SET access_mode = 'READ_WRITE'",
		"SET access_mode = 'READ_WRITE'; DELETE FROM deals",
		"SELECT 1; DELETE FROM deals WHERE user_id = 7",
	} {
		_, err = s.ExecuteReadOnly(ctx, query)
		var execErr *store.ExecutionError
		require.True(t, errors.As(err, &execErr), query)
	}

	rs, err = s.ExecuteReadOnly(ctx, "SELECT COUNT(*) AS n FROM deals")
	require.NoError(t, err)
	assert.EqualValues(t, 14, rs.Rows[0]["n"])
}
