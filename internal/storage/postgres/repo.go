// Package postgres implements a Postgres sink using pgx v5. Datasets are
// appended with the COPY protocol, which is the fastest bulk path pgx offers.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Config holds Postgres repository configuration.
type Config struct {
	DSN   string // connection string for pgxpool
	Table string // possibly schema-qualified target, e.g. "public.mara_extract"
}

// Repository is a Postgres-backed storage.Repository.
type Repository struct {
	pool *pgxpool.Pool
	cfg  Config
}

// NewRepository constructs a Repository and returns a Close function for
// cleanup.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("pgxpool: %w", err)
	}
	closeFn := func() { pool.Close() }
	return &Repository{pool: pool, cfg: cfg}, closeFn, nil
}

// CopyFrom appends rows to the configured table via the COPY protocol.
func (r *Repository) CopyFrom(ctx context.Context, columns []string, rows [][]any) (int64, error) {
	n, err := r.pool.CopyFrom(ctx, splitFQN(r.cfg.Table), lowerAll(columns), pgx.CopyFromRows(rows))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Detail != "" {
			return n, fmt.Errorf("copy: %s (%s)", pgErr.Detail, pgErr.SQLState())
		}
		return n, fmt.Errorf("copy: %w", err)
	}
	return n, nil
}

// Exec runs an arbitrary SQL statement (typically DDL).
func (r *Repository) Exec(ctx context.Context, sql string) error {
	_, err := r.pool.Exec(ctx, sql)
	return err
}

// createTableSQL builds CREATE TABLE IF NOT EXISTS DDL with one text column
// per dataset column. Extraction output is untyped text; coercion is the
// consumer's concern.
func createTableSQL(table string, columns []string) string {
	defs := make([]string, len(columns))
	for i, c := range columns {
		defs[i] = pgIdent(strings.ToLower(c)) + " text"
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", pgFQN(table), strings.Join(defs, ", "))
}

// lowerAll folds column names to lower case so COPY targets the unquoted
// column names the bootstrapper created.
func lowerAll(cols []string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = strings.ToLower(c)
	}
	return out
}

// pgIdent safely quotes a single identifier segment for Postgres.
func pgIdent(id string) string { return `"` + strings.ReplaceAll(id, `"`, `""`) + `"` }

// pgFQN quotes a possibly schema-qualified name like "public.mara_extract"
// to "public"."mara_extract". If no dot is present, returns a single quoted
// ident.
func pgFQN(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = pgIdent(p)
	}
	return strings.Join(parts, ".")
}

// splitFQN converts "schema.table" into a pgx.Identifier {"schema","table"}.
// If no dot is present, returns {"table"}.
func splitFQN(fqn string) pgx.Identifier {
	parts := strings.Split(fqn, ".")
	id := make(pgx.Identifier, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			id = append(id, p)
		}
	}
	return id
}
