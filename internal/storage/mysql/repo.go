// Package mysql implements a MySQL sink using database/sql with the
// go-sql-driver. Datasets are appended with multi-row INSERT statements,
// MySQL's practical bulk path short of LOAD DATA.
package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// Config holds MySQL repository configuration.
type Config struct {
	DSN   string // go-sql-driver DSN, e.g. "user:pass@tcp(host:3306)/db"
	Table string
}

// Repository is a MySQL-backed storage.Repository.
type Repository struct {
	db  *sql.DB
	cfg Config
}

// NewRepository opens a MySQL connection pool and returns a Repository plus
// a Close function for cleanup.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, nil, fmt.Errorf("mysql: DSN must not be empty")
	}

	db, err := sql.Open("mysql", cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("mysql: open: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("mysql: ping: %w", err)
	}

	closeFn := func() { db.Close() }
	return &Repository{db: db, cfg: cfg}, closeFn, nil
}

// CopyFrom appends rows with a single multi-row INSERT per call, inside a
// transaction so a failed batch leaves nothing behind.
func (r *Repository) CopyFrom(ctx context.Context, columns []string, rows [][]any) (int64, error) {
	if len(columns) == 0 {
		return 0, fmt.Errorf("mysql: CopyFrom: columns must not be empty")
	}
	if len(rows) == 0 {
		return 0, nil
	}

	stmtSQL, args, err := multiInsertSQL(r.cfg.Table, columns, rows)
	if err != nil {
		return 0, err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("mysql: begin tx: %w", err)
	}
	res, err := tx.ExecContext(ctx, stmtSQL, args...)
	if err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("mysql: insert: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("mysql: commit: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return int64(len(rows)), nil
	}
	return n, nil
}

// Exec executes an arbitrary SQL statement (typically DDL).
func (r *Repository) Exec(ctx context.Context, sql string) error {
	if strings.TrimSpace(sql) == "" {
		return nil
	}
	if _, err := r.db.ExecContext(ctx, sql); err != nil {
		return fmt.Errorf("mysql: exec: %w", err)
	}
	return nil
}

// multiInsertSQL builds INSERT INTO t (cols...) VALUES (?,...),(?,...) plus
// the flattened argument list.
func multiInsertSQL(table string, columns []string, rows [][]any) (string, []any, error) {
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = quoteIdent(c)
	}
	tuple := "(" + strings.TrimRight(strings.Repeat("?,", len(columns)), ",") + ")"

	var sb strings.Builder
	sb.WriteString("INSERT INTO ")
	sb.WriteString(quoteIdent(table))
	sb.WriteString(" (")
	sb.WriteString(strings.Join(quoted, ", "))
	sb.WriteString(") VALUES ")

	args := make([]any, 0, len(rows)*len(columns))
	for i, row := range rows {
		if len(row) != len(columns) {
			return "", nil, fmt.Errorf("mysql: row length %d != columns length %d", len(row), len(columns))
		}
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString(tuple)
		args = append(args, row...)
	}
	return sb.String(), args, nil
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

// quoteIdent quotes an identifier with MySQL backticks.
func quoteIdent(id string) string { return "`" + strings.ReplaceAll(id, "`", "``") + "`" }
