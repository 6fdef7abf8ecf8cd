// This adapter wires the SQL Server backend into the storage-agnostic
// factory.
package mssql

import (
	"context"

	"saptab/internal/storage"
)

// newRepository is a test hook that points to NewRepository by default.
var newRepository = NewRepository

type wrappedRepo struct {
	*Repository
	closeFn func()
}

var _ storage.Repository = (*wrappedRepo)(nil)

func (w *wrappedRepo) Close() {
	if w.closeFn != nil {
		w.closeFn()
	}
}

func init() {
	storage.Register("mssql", func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		r, closeFn, err := newRepository(ctx, Config{DSN: cfg.DSN, Table: cfg.Table})
		if err != nil {
			return nil, err
		}
		return &wrappedRepo{Repository: r, closeFn: closeFn}, nil
	})

	storage.RegisterDDL("mssql",
		func(ctx context.Context, repo storage.Repository, table string, columns []string) error {
			return repo.Exec(ctx, createTableSQL(table, columns))
		})
}
