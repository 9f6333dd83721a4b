// Package storetest provides seeded stores for tests.
package storetest

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/malbeclabs/finagent/pkg/store"
	"github.com/stretchr/testify/require"
)

// NewSQLite bootstraps a temporary sqlite database from store.DefaultSeed and returns a
// read-only store over it. The seed holds users 3, 7 and 12 with interleaved deals.
func NewSQLite(t *testing.T) *store.Store {
	t.Helper()
	return NewSQLiteAt(t, filepath.Join(t.TempDir(), "finance.db"))
}

func NewSQLiteAt(t *testing.T, path string) *store.Store {
	t.Helper()
	ctx := context.Background()
	cfg := store.Config{
		Logger: Logger(),
		Driver: store.DriverSQLite,
		DSN:    path,
	}

	_, err := store.Bootstrap(ctx, cfg, store.DefaultSeed)
	require.NoError(t, err)

	s, err := store.Open(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
