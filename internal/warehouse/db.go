// Package warehouse provides Snowflake connectivity and cached
// execution of analyst-generated SQL.
package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	sf "github.com/snowflakedb/gosnowflake"
)

// Config holds Snowflake connection settings.
type Config struct {
	Account   string
	User      string
	Password  string
	Warehouse string
	Database  string
	Schema    string
	Role      string
}

// DB wraps the Snowflake connection. It is acquired once and reused for
// the lifetime of the hosting session.
type DB struct {
	db     *sql.DB
	logger *slog.Logger
}

// Connect opens and verifies a Snowflake connection.
func Connect(ctx context.Context, cfg Config, logger *slog.Logger) (*DB, error) {
	if logger == nil {
		logger = slog.Default()
	}

	dsn, err := sf.DSN(&sf.Config{
		Account:   cfg.Account,
		User:      cfg.User,
		Password:  cfg.Password,
		Warehouse: cfg.Warehouse,
		Database:  cfg.Database,
		Schema:    cfg.Schema,
		Role:      cfg.Role,
	})
	if err != nil {
		return nil, fmt.Errorf("build snowflake DSN: %w", err)
	}

	db, err := sql.Open("snowflake", dsn)
	if err != nil {
		return nil, fmt.Errorf("open snowflake connection: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping snowflake: %w", err)
	}

	logger.Info("snowflake connection established",
		"account", cfg.Account,
		"warehouse", cfg.Warehouse,
		"database", cfg.Database,
	)
	return &DB{db: db, logger: logger}, nil
}

// Close closes the Snowflake connection.
func (d *DB) Close() error {
	d.logger.Info("closing snowflake connection")
	return d.db.Close()
}

// Query runs a statement and normalizes the result set into a Table.
func (d *DB) Query(ctx context.Context, query string) (*Table, error) {
	rows, err := d.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("execute query: %w", err)
	}
	defer rows.Close()
	return scanTable(rows)
}

// QueryValue runs a query expected to yield a single string value, such
// as a SNOWFLAKE.CORTEX function call.
func (d *DB) QueryValue(ctx context.Context, query string, args ...any) (string, error) {
	var value sql.NullString
	if err := d.db.QueryRowContext(ctx, query, args...).Scan(&value); err != nil {
		return "", fmt.Errorf("query value: %w", err)
	}
	return value.String, nil
}

// Table is a normalized tabular query result. Values are rendered to
// strings so the display layer never deals with driver types.
type Table struct {
	Columns []string
	Rows    [][]string
}

// Empty reports whether the query returned no rows.
func (t *Table) Empty() bool {
	return len(t.Rows) == 0
}

func scanTable(rows *sql.Rows) (*Table, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read columns: %w", err)
	}

	table := &Table{Columns: cols}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}

		row := make([]string, len(cols))
		for i, v := range values {
			row[i] = formatValue(v)
		}
		table.Rows = append(table.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return table, nil
}

func formatValue(v any) string {
	switch v := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		return string(v)
	case time.Time:
		return v.Format(time.RFC3339)
	default:
		return fmt.Sprint(v)
	}
}
