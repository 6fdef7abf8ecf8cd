// Package storage contains storage-agnostic contracts for the persistence
// sink plus a factory keyed by backend kind. Concrete backends (postgres,
// mysql, mssql, sqlite) register themselves at init time; callers obtain a
// Repository via New without importing any backend directly.
//
// The sink has append semantics only: extracted datasets are added to the
// target table, never merged or overwritten.
package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Config selects and configures a storage backend.
type Config struct {
	// Kind selects the backend implementation: "postgres", "mysql",
	// "mssql", or "sqlite".
	Kind string `json:"kind"`

	// DSN is the backend-specific connection string.
	DSN string `json:"dsn"`

	// Table is the target table name, possibly schema-qualified
	// (e.g. "public.mara_extract").
	Table string `json:"table"`

	// AutoCreateTable creates the target table (all-text columns matching
	// the dataset header) when it does not exist yet.
	AutoCreateTable bool `json:"auto_create_table"`
}

// Repository is the narrow contract every backend implements. CopyFrom
// appends rows aligned to columns order and reports how many were written;
// Exec runs backend-specific DDL; Close releases the connection.
type Repository interface {
	CopyFrom(ctx context.Context, columns []string, rows [][]any) (int64, error)
	Exec(ctx context.Context, sql string) error
	Close()
}

// Factory constructs a Repository for one backend kind.
type Factory func(ctx context.Context, cfg Config) (Repository, error)

// DDLBootstrapper creates the target table for one backend kind when it does
// not exist. Columns become text-typed; type coercion belongs to downstream
// consumers, not the extraction sink.
type DDLBootstrapper func(ctx context.Context, repo Repository, table string, columns []string) error

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
	ddlFns    = map[string]DDLBootstrapper{}
)

// Register registers (or replaces) the factory for a backend kind. It is
// called from backend packages' init functions.
func Register(kind string, fn Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[kind] = fn
}

// RegisterDDL registers (or replaces) the DDL bootstrapper for a backend
// kind.
func RegisterDDL(kind string, fn DDLBootstrapper) {
	mu.Lock()
	defer mu.Unlock()
	ddlFns[kind] = fn
}

// New opens a Repository for cfg.Kind. The caller owns the returned
// Repository and must Close it.
func New(ctx context.Context, cfg Config) (Repository, error) {
	mu.RLock()
	fn, ok := factories[cfg.Kind]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("storage: no backend registered for kind %q", cfg.Kind)
	}
	return fn(ctx, cfg)
}

// EnsureTable invokes the DDL bootstrapper registered for kind so callers
// stay backend-agnostic when auto-creating the target table.
func EnsureTable(ctx context.Context, kind string, repo Repository, table string, columns []string) error {
	mu.RLock()
	fn, ok := ddlFns[kind]
	mu.RUnlock()
	if !ok {
		return fmt.Errorf("storage: no DDL bootstrapper registered for kind %q", kind)
	}
	return fn(ctx, repo, table, columns)
}

// Kinds reports the registered backend kinds in sorted order, for config
// validation messages.
func Kinds() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
