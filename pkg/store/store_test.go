package store_test

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/malbeclabs/finagent/pkg/store"
	"github.com/malbeclabs/finagent/pkg/store/storetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFinagent_Store_ExecuteReadOnly_PreservesColumnOrder(t *testing.T) {
	t.Parallel()
	s := storetest.NewSQLite(t)

	rs, err := s.ExecuteReadOnly(context.Background(), "SELECT balance, name, user_id FROM users WHERE user_id = 7")
	require.NoError(t, err)

	assert.Equal(t, []string{"balance", "name", "user_id"}, rs.Columns)
	require.Equal(t, 1, rs.Len())
	assert.Equal(t, 1520.75, rs.Rows[0]["balance"])
	assert.Equal(t, "Lena Fischer", rs.Rows[0]["name"])
	assert.Equal(t, int64(7), rs.Rows[0]["user_id"])
}

func TestFinagent_Store_ExecuteReadOnly_EmptyResult(t *testing.T) {
	t.Parallel()
	s := storetest.NewSQLite(t)

	rs, err := s.ExecuteReadOnly(context.Background(), "SELECT id, profit FROM deals WHERE user_id = 9999")
	require.NoError(t, err)
	assert.Equal(t, 0, rs.Len())
	assert.Equal(t, []string{"id", "profit"}, rs.Columns)
}

func TestFinagent_Store_ExecuteReadOnly_NullValues(t *testing.T) {
	t.Parallel()
	s := storetest.NewSQLite(t)

	rs, err := s.ExecuteReadOnly(context.Background(), "SELECT symbol, profit FROM deals WHERE id = 1")
	require.NoError(t, err)
	require.Equal(t, 1, rs.Len())
	assert.Nil(t, rs.Rows[0]["symbol"])
	assert.Equal(t, 2000.0, rs.Rows[0]["profit"])
}

func TestFinagent_Store_ExecuteReadOnly_RejectsMutations(t *testing.T) {
	t.Parallel()
	s := storetest.NewSQLite(t)
	ctx := context.Background()

	for _, query := range []string{
		"DELETE FROM deals WHERE user_id = 7",
		"UPDATE users SET balance = 0 WHERE user_id = 7",
		"INSERT INTO symbols (symbol, asset_text, asset_type, contractsize) VALUES ('X', 'x', 'x', 1)",
		"DROP TABLE users",
		"PRAGMA query_only = 0; DELETE FROM deals",
		"PRAGMA query_only = OFF; UPDATE users SET balance = 0 WHERE user_id = 7",
	} {
		t.Run(query, func(t *testing.T) {
			_, err := s.ExecuteReadOnly(ctx, query)
			require.Error(t, err)
			var execErr *store.ExecutionError
			require.True(t, errors.As(err, &execErr))
			assert.Equal(t, query, execErr.Query)
		})
	}

	rs, err := s.ExecuteReadOnly(ctx, "SELECT COUNT(*) AS n FROM deals WHERE user_id = 7")
	require.NoError(t, err)
	assert.Equal(t, int64(7), rs.Rows[0]["n"])

	rs, err = s.ExecuteReadOnly(ctx, "SELECT COUNT(*) AS n FROM deals")
	require.NoError(t, err)
	assert.Equal(t, int64(14), rs.Rows[0]["n"])

	rs, err = s.ExecuteReadOnly(ctx, "SELECT balance FROM users WHERE user_id = 7")
	require.NoError(t, err)
	assert.Equal(t, 1520.75, rs.Rows[0]["balance"])
}

func TestFinagent_Store_ExecuteReadOnly_QueryOnlyPragmaCannotReenableWrites(t *testing.T) {
	t.Parallel()
	s := storetest.NewSQLite(t)
	ctx := context.Background()

	// Repeat so the pragma and the write land on the same pooled connection.
	for range 5 {
		_, _ = s.ExecuteReadOnly(ctx, "PRAGMA query_only = 0")

		_, err := s.ExecuteReadOnly(ctx, "DELETE FROM users WHERE user_id = 7 RETURNING user_id")
		var execErr *store.ExecutionError
		require.True(t, errors.As(err, &execErr))
		assert.Contains(t, execErr.Error(), "readonly")
	}

	rs, err := s.ExecuteReadOnly(ctx, "SELECT COUNT(*) AS n FROM users")
	require.NoError(t, err)
	assert.Equal(t, int64(3), rs.Rows[0]["n"])

	rs, err = s.ExecuteReadOnly(ctx, "SELECT COUNT(*) AS n FROM deals")
	require.NoError(t, err)
	assert.Equal(t, int64(14), rs.Rows[0]["n"])
}

func TestFinagent_Store_ExecuteReadOnly_DriverDiagnostic(t *testing.T) {
	t.Parallel()
	s := storetest.NewSQLite(t)

	_, err := s.ExecuteReadOnly(context.Background(), "SELECT profi FROM deals WHERE user_id = 7")
	var execErr *store.ExecutionError
	require.True(t, errors.As(err, &execErr))
	assert.Contains(t, execErr.Error(), "no such column: profi")
}

func TestFinagent_Store_IntrospectSchema_SQLite(t *testing.T) {
	t.Parallel()
	s := storetest.NewSQLite(t)
	ctx := context.Background()

	schema, err := s.IntrospectSchema(ctx)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(schema, "Table: deals\n  - id (INTEGER) PRIMARY KEY\n  - user_id (INTEGER)\n"))
	assert.Contains(t, schema, "Table: symbols\n  - symbol (TEXT) PRIMARY KEY\n  - asset_text (TEXT)\n  - asset_type (TEXT)\n  - contractsize (INTEGER)\n\n")
	assert.True(t, strings.HasSuffix(schema,
		"Table: users\n"+
			"  - user_id (INTEGER) PRIMARY KEY\n"+
			"  - last_access (INTEGER)\n"+
			"  - name (TEXT)\n"+
			"  - country (TEXT)\n"+
			"  - language (TEXT)\n"+
			"  - balance (REAL)\n\n"))
	assert.Less(t, strings.Index(schema, "Table: deals"), strings.Index(schema, "Table: symbols"))
	assert.Less(t, strings.Index(schema, "Table: symbols"), strings.Index(schema, "Table: users"))

	again, err := s.IntrospectSchema(ctx)
	require.NoError(t, err)
	assert.Equal(t, schema, again)
}

func TestFinagent_Store_IntrospectSchema_InformationSchema(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s, err := store.NewWithDB(store.Config{
		Logger: storetest.Logger(),
		Driver: store.DriverPostgres,
		DSN:    "postgres://finagent@localhost/finance",
	}, db)
	require.NoError(t, err)

	rows := sqlmock.NewRows([]string{"table_name", "column_name", "data_type", "is_primary_key"}).
		AddRow("deals", "id", "bigint", true).
		AddRow("deals", "user_id", "integer", false).
		AddRow("users", "user_id", "integer", true).
		AddRow("users", "balance", "double precision", false)
	mock.ExpectQuery(`FROM information_schema\.columns c`).
		WithArgs("public").
		WillReturnRows(rows)

	schema, err := s.IntrospectSchema(context.Background())
	require.NoError(t, err)
	assert.Equal(t,
		"Table: deals\n"+
			"  - id (BIGINT) PRIMARY KEY\n"+
			"  - user_id (INTEGER)\n"+
			"\n"+
			"Table: users\n"+
			"  - user_id (INTEGER) PRIMARY KEY\n"+
			"  - balance (DOUBLE PRECISION)\n"+
			"\n", schema)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFinagent_Store_ExecuteReadOnly_PostgresUsesReadOnlyTransaction(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s, err := store.NewWithDB(store.Config{
		Logger: storetest.Logger(),
		Driver: store.DriverPostgres,
		DSN:    "postgres://finagent@localhost/finance",
	}, db)
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT name FROM users WHERE user_id = 7`).
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow([]byte("Lena Fischer")))
	mock.ExpectRollback()

	rs, err := s.ExecuteReadOnly(context.Background(), "SELECT name FROM users WHERE user_id = 7")
	require.NoError(t, err)
	require.Equal(t, 1, rs.Len())
	assert.Equal(t, "Lena Fischer", rs.Rows[0]["name"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFinagent_Store_Bootstrap_ReportsExistingTables(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	cfg := store.Config{
		Logger: storetest.Logger(),
		Driver: store.DriverSQLite,
		DSN:    filepath.Join(t.TempDir(), "finance.db"),
	}

	first, err := store.Bootstrap(ctx, cfg, store.DefaultSeed)
	require.NoError(t, err)
	assert.True(t, first.Created)

	second, err := store.Bootstrap(ctx, cfg, store.DefaultSeed)
	require.NoError(t, err)
	assert.False(t, second.Created)
	assert.Equal(t, []store.TableCount{
		{Table: "deals", Rows: 14},
		{Table: "symbols", Rows: 5},
		{Table: "users", Rows: 3},
	}, second.Counts)
	assert.Equal(t, first.Counts, second.Counts)
}

func TestFinagent_Store_Open_MissingPostgresDSN(t *testing.T) {
	t.Parallel()

	_, err := store.Open(context.Background(), store.Config{Logger: storetest.Logger(), Driver: store.DriverPostgres})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dsn is required")
}

func TestFinagent_Store_ParseDriver(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    store.Driver
		wantErr bool
	}{
		{in: "", want: store.DriverSQLite},
		{in: "sqlite3", want: store.DriverSQLite},
		{in: "DuckDB", want: store.DriverDuckDB},
		{in: "postgresql", want: store.DriverPostgres},
		{in: "mysql", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := store.ParseDriver(tt.in)
			if tt.wantErr {
				require.ErrorIs(t, err, store.ErrUnsupportedDriver)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFinagent_Store_FieldCatalog(t *testing.T) {
	t.Parallel()

	catalog := store.FieldCatalog()
	for _, want := range []string{"## Table: users", "## Table: symbols", "## Table: deals", "deal_direction", "unix epoch milliseconds"} {
		assert.Contains(t, catalog, want)
	}
}
