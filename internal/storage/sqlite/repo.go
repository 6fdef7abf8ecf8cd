// Package sqlite implements a SQLite sink using database/sql. Datasets are
// appended with a prepared INSERT inside a single transaction; SQLite has no
// dedicated bulk-load API, but transactions keep performance acceptable for
// moderate volumes.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	// SQLite driver; replace with your preferred driver if desired.
	_ "modernc.org/sqlite" // alternative: github.com/mattn/go-sqlite3
)

// Config holds SQLite repository configuration.
type Config struct {
	// DSN is a SQLite connection string or file path, e.g.:
	//   "file:extract.db?cache=shared"
	//   "extract.db" (interpreted by the driver)
	DSN string

	// Table is the target table name for inserts.
	Table string
}

// Repository is a SQLite-backed storage.Repository.
type Repository struct {
	db  *sql.DB
	cfg Config
}

// NewRepository opens a SQLite connection and returns a Repository plus a
// Close function for cleanup.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, nil, fmt.Errorf("sqlite: DSN must not be empty")
	}

	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("sqlite: open: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("sqlite: ping: %w", err)
	}

	closeFn := func() { db.Close() }
	return &Repository{db: db, cfg: cfg}, closeFn, nil
}

// CopyFrom inserts the given rows into the configured table using a single
// transaction and a prepared INSERT statement. It returns the number of rows
// inserted; len(row) must equal len(columns) for every row.
func (r *Repository) CopyFrom(ctx context.Context, columns []string, rows [][]any) (int64, error) {
	if len(columns) == 0 {
		return 0, fmt.Errorf("sqlite: CopyFrom: columns must not be empty")
	}
	if len(rows) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("sqlite: begin tx: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, insertSQL(r.cfg.Table, columns))
	if err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("sqlite: prepare insert: %w", err)
	}
	defer stmt.Close()

	var inserted int64
	for _, row := range rows {
		if len(row) != len(columns) {
			_ = tx.Rollback()
			return 0, fmt.Errorf("sqlite: CopyFrom: row length %d != columns length %d", len(row), len(columns))
		}
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			_ = tx.Rollback()
			return 0, fmt.Errorf("sqlite: insert: %w", err)
		}
		inserted++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("sqlite: commit: %w", err)
	}
	return inserted, nil
}

// Exec executes an arbitrary SQL statement (typically DDL).
func (r *Repository) Exec(ctx context.Context, sql string) error {
	if strings.TrimSpace(sql) == "" {
		return nil
	}
	if _, err := r.db.ExecContext(ctx, sql); err != nil {
		return fmt.Errorf("sqlite: exec: %w", err)
	}
	return nil
}

// insertSQL builds INSERT INTO <table> (<cols>) VALUES (?, ?, ...).
func insertSQL(table string, columns []string) string {
	quoted := make([]string, len(columns))
	placeholders := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = quoteIdent(c)
		placeholders[i] = "?"
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteIdent(table), strings.Join(quoted, ", "), strings.Join(placeholders, ", "))
}

// createTableSQL builds CREATE TABLE IF NOT EXISTS DDL with one TEXT column
// per dataset column.
func createTableSQL(table string, columns []string) string {
	defs := make([]string, len(columns))
	for i, c := range columns {
		defs[i] = quoteIdent(c) + " TEXT"
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", quoteIdent(table), strings.Join(defs, ", "))
}

// quoteIdent quotes an identifier for SQLite.
func quoteIdent(id string) string { return `"` + strings.ReplaceAll(id, `"`, `""`) + `"` }
