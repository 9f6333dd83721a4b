package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strconv"
	"strings"
)

//go:embed seed/*.csv
var seedFS embed.FS

// DefaultSeed holds a small multi-tenant data set with users.csv, symbols.csv and deals.csv.
var DefaultSeed fs.FS = mustSub(seedFS, "seed")

func mustSub(fsys fs.FS, dir string) fs.FS {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		panic(err)
	}
	return sub
}

type columnKind int

const (
	kindInteger columnKind = iota
	kindBigInt
	kindReal
	kindText
)

type columnDef struct {
	name       string
	kind       columnKind
	primaryKey bool
}

type tableDef struct {
	name    string
	columns []columnDef
}

var financeTables = []tableDef{
	{
		name: "deals",
		columns: []columnDef{
			{name: "id", kind: kindBigInt, primaryKey: true},
			{name: "user_id", kind: kindInteger},
			{name: "deal_direction", kind: kindInteger},
			{name: "deal_status", kind: kindInteger},
			{name: "deal_time_mcs", kind: kindBigInt},
			{name: "symbol", kind: kindText},
			{name: "price", kind: kindReal},
			{name: "requested_volume", kind: kindReal},
			{name: "profit", kind: kindReal},
			{name: "position_id", kind: kindBigInt},
			{name: "filled_volume", kind: kindReal},
			{name: "bid", kind: kindReal},
			{name: "ask", kind: kindReal},
		},
	},
	{
		name: "symbols",
		columns: []columnDef{
			{name: "symbol", kind: kindText, primaryKey: true},
			{name: "asset_text", kind: kindText},
			{name: "asset_type", kind: kindText},
			{name: "contractsize", kind: kindInteger},
		},
	},
	{
		name: "users",
		columns: []columnDef{
			{name: "user_id", kind: kindInteger, primaryKey: true},
			{name: "last_access", kind: kindBigInt},
			{name: "name", kind: kindText},
			{name: "country", kind: kindText},
			{name: "language", kind: kindText},
			{name: "balance", kind: kindReal},
		},
	},
}

type TableCount struct {
	Table string
	Rows  int64
}

type BootstrapReport struct {
	// Created is true when the tables did not exist and were created and loaded from the seed.
	Created bool
	Counts  []TableCount
}

// Bootstrap creates and loads the finance tables from seed when they do not exist yet.
// It opens its own writable handle; the handle used for answering questions stays read-only.
func Bootstrap(ctx context.Context, cfg Config, seed fs.FS) (BootstrapReport, error) {
	if err := cfg.Validate(); err != nil {
		return BootstrapReport{}, fmt.Errorf("failed to validate store config: %w", err)
	}
	db, err := openDB(cfg, false)
	if err != nil {
		return BootstrapReport{}, fmt.Errorf("failed to open %s store: %w", cfg.Driver, err)
	}
	defer db.Close()

	exists, err := tableExists(ctx, db, cfg, "users")
	if err != nil {
		return BootstrapReport{}, err
	}

	report := BootstrapReport{Created: !exists}
	if !exists {
		cfg.Logger.Info("store: initializing database", "driver", cfg.Driver)
		if err := createAndLoad(ctx, db, cfg, seed); err != nil {
			return BootstrapReport{}, err
		}
	}

	for _, t := range financeTables {
		var n int64
		if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+t.name).Scan(&n); err != nil {
			return BootstrapReport{}, fmt.Errorf("failed to count rows in %s: %w", t.name, err)
		}
		report.Counts = append(report.Counts, TableCount{Table: t.name, Rows: n})
	}
	return report, nil
}

func tableExists(ctx context.Context, db *sql.DB, cfg Config, name string) (bool, error) {
	var (
		n   int
		err error
	)
	if cfg.Driver == DriverSQLite {
		err = db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, name).Scan(&n)
	} else {
		query := fmt.Sprintf(`SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = %s AND table_name = %s`,
			placeholder(cfg.Driver, 1), placeholder(cfg.Driver, 2))
		err = db.QueryRowContext(ctx, query, cfg.Schema, name).Scan(&n)
	}
	if err != nil {
		return false, fmt.Errorf("failed to check for table %s: %w", name, err)
	}
	return n > 0, nil
}

func createAndLoad(ctx context.Context, db *sql.DB, cfg Config, seed fs.FS) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, t := range financeTables {
		if _, err := tx.ExecContext(ctx, createTableSQL(cfg.Driver, t)); err != nil {
			return fmt.Errorf("failed to create table %s: %w", t.name, err)
		}
		n, err := loadTable(ctx, tx, cfg.Driver, t, seed)
		if err != nil {
			return err
		}
		cfg.Logger.Info("store: loaded table", "table", t.name, "rows", n)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit bootstrap: %w", err)
	}
	return nil
}

func createTableSQL(driver Driver, t tableDef) string {
	defs := make([]string, 0, len(t.columns))
	for _, c := range t.columns {
		def := c.name + " " + columnType(driver, c.kind)
		if c.primaryKey {
			def += " PRIMARY KEY"
		}
		defs = append(defs, def)
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", t.name, strings.Join(defs, ", "))
}

func insertSQL(driver Driver, t tableDef) string {
	names := make([]string, 0, len(t.columns))
	marks := make([]string, 0, len(t.columns))
	for i, c := range t.columns {
		names = append(names, c.name)
		marks = append(marks, placeholder(driver, i+1))
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", t.name, strings.Join(names, ", "), strings.Join(marks, ", "))
}

func loadTable(ctx context.Context, tx *sql.Tx, driver Driver, t tableDef, seed fs.FS) (int, error) {
	f, err := seed.Open(t.name + ".csv")
	if err != nil {
		return 0, fmt.Errorf("failed to open seed for %s: %w", t.name, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = len(t.columns)
	if _, err := r.Read(); err != nil {
		return 0, fmt.Errorf("failed to read header of %s.csv: %w", t.name, err)
	}

	stmt, err := tx.PrepareContext(ctx, insertSQL(driver, t))
	if err != nil {
		return 0, fmt.Errorf("failed to prepare insert for %s: %w", t.name, err)
	}
	defer stmt.Close()

	n := 0
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return n, fmt.Errorf("failed to read %s.csv: %w", t.name, err)
		}
		args, err := parseRecord(t, record)
		if err != nil {
			return n, fmt.Errorf("%s.csv line %d: %w", t.name, n+2, err)
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return n, fmt.Errorf("failed to insert into %s: %w", t.name, err)
		}
		n++
	}
	return n, nil
}

func parseRecord(t tableDef, record []string) ([]any, error) {
	args := make([]any, len(t.columns))
	for i, c := range t.columns {
		v, err := parseCell(c.kind, strings.TrimSpace(record[i]))
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", c.name, err)
		}
		args[i] = v
	}
	return args, nil
}

func parseCell(kind columnKind, s string) (any, error) {
	if s == "" {
		return nil, nil
	}
	switch kind {
	case kindInteger, kindBigInt:
		return strconv.ParseInt(s, 10, 64)
	case kindReal:
		return strconv.ParseFloat(s, 64)
	default:
		return s, nil
	}
}
