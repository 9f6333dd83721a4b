package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

type Column struct {
	Name       string
	Type       string
	PrimaryKey bool
}

type Table struct {
	Name    string
	Columns []Column
}

const sqliteTablesQuery = `SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`

const sqliteColumnsQuery = `SELECT name, type, pk FROM pragma_table_info(?) ORDER BY cid`

const informationSchemaQuery = `
SELECT c.table_name, c.column_name, c.data_type,
       EXISTS (
           SELECT 1
           FROM information_schema.table_constraints tc
           JOIN information_schema.key_column_usage kcu
             ON kcu.constraint_name = tc.constraint_name
            AND kcu.table_schema = tc.table_schema
            AND kcu.table_name = tc.table_name
           WHERE tc.constraint_type = 'PRIMARY KEY'
             AND tc.table_schema = c.table_schema
             AND tc.table_name = c.table_name
             AND kcu.column_name = c.column_name
       ) AS is_primary_key
FROM information_schema.columns c
JOIN information_schema.tables t
  ON t.table_schema = c.table_schema AND t.table_name = c.table_name
WHERE c.table_schema = $1 AND t.table_type = 'BASE TABLE'
ORDER BY c.table_name, c.ordinal_position`

// Tables lists the user tables and their columns, ordered by table name and column position.
func (s *Store) Tables(ctx context.Context) ([]Table, error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get connection: %w", err)
	}
	defer conn.Close()

	if s.cfg.Driver == DriverSQLite {
		return sqliteTables(ctx, conn)
	}
	return informationSchemaTables(ctx, conn, s.cfg.Schema)
}

// IntrospectSchema renders the live schema as text for query synthesis and verification.
func (s *Store) IntrospectSchema(ctx context.Context) (string, error) {
	tables, err := s.Tables(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to introspect schema: %w", err)
	}
	return FormatSchema(tables), nil
}

// FormatSchema renders tables as
//
//	Table: deals
//	  - id (INTEGER) PRIMARY KEY
//	  - user_id (INTEGER)
//
// with a blank line after each table.
func FormatSchema(tables []Table) string {
	var sb strings.Builder
	for _, t := range tables {
		fmt.Fprintf(&sb, "Table: %s\n", t.Name)
		for _, c := range t.Columns {
			fmt.Fprintf(&sb, "  - %s (%s)", c.Name, c.Type)
			if c.PrimaryKey {
				sb.WriteString(" PRIMARY KEY")
			}
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func sqliteTables(ctx context.Context, conn *sql.Conn) ([]Table, error) {
	rows, err := conn.QueryContext(ctx, sqliteTablesQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan table name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("error iterating tables: %w", err)
	}
	rows.Close()

	tables := make([]Table, 0, len(names))
	for _, name := range names {
		cols, err := sqliteColumns(ctx, conn, name)
		if err != nil {
			return nil, err
		}
		tables = append(tables, Table{Name: name, Columns: cols})
	}
	return tables, nil
}

func sqliteColumns(ctx context.Context, conn *sql.Conn, table string) ([]Column, error) {
	rows, err := conn.QueryContext(ctx, sqliteColumnsQuery, table)
	if err != nil {
		return nil, fmt.Errorf("failed to describe table %s: %w", table, err)
	}
	defer rows.Close()

	var cols []Column
	for rows.Next() {
		var (
			c  Column
			pk int
		)
		if err := rows.Scan(&c.Name, &c.Type, &pk); err != nil {
			return nil, fmt.Errorf("failed to scan column of %s: %w", table, err)
		}
		c.PrimaryKey = pk > 0
		cols = append(cols, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating columns of %s: %w", table, err)
	}
	return cols, nil
}

func informationSchemaTables(ctx context.Context, conn *sql.Conn, schema string) ([]Table, error) {
	rows, err := conn.QueryContext(ctx, informationSchemaQuery, schema)
	if err != nil {
		return nil, fmt.Errorf("failed to query information_schema: %w", err)
	}
	defer rows.Close()

	var tables []Table
	for rows.Next() {
		var (
			tableName string
			c         Column
		)
		if err := rows.Scan(&tableName, &c.Name, &c.Type, &c.PrimaryKey); err != nil {
			return nil, fmt.Errorf("failed to scan column: %w", err)
		}
		c.Type = strings.ToUpper(c.Type)
		if len(tables) == 0 || tables[len(tables)-1].Name != tableName {
			tables = append(tables, Table{Name: tableName})
		}
		last := &tables[len(tables)-1]
		last.Columns = append(last.Columns, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating columns: %w", err)
	}
	return tables, nil
}
