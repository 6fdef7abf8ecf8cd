package storage

import (
	"context"
	"errors"
	"testing"

	"saptab/internal/extract"
)

// fakeRepo records CopyFrom calls and can fail after a number of batches.
type fakeRepo struct {
	batches   [][][]any
	columns   []string
	execSQL   []string
	failAfter int // fail the Nth CopyFrom call (1-based); 0 = never
}

func (f *fakeRepo) CopyFrom(ctx context.Context, columns []string, rows [][]any) (int64, error) {
	f.columns = columns
	cp := make([][]any, len(rows))
	copy(cp, rows)
	f.batches = append(f.batches, cp)
	if f.failAfter > 0 && len(f.batches) >= f.failAfter {
		return 0, errors.New("copy failed")
	}
	return int64(len(rows)), nil
}

func (f *fakeRepo) Exec(ctx context.Context, sql string) error {
	f.execSQL = append(f.execSQL, sql)
	return nil
}

func (f *fakeRepo) Close() {}

func TestFactory_RegisterAndNew(t *testing.T) {
	repo := &fakeRepo{}
	Register("fake", func(ctx context.Context, cfg Config) (Repository, error) {
		if cfg.DSN != "dsn://x" {
			t.Fatalf("cfg.DSN = %q", cfg.DSN)
		}
		return repo, nil
	})

	got, err := New(context.Background(), Config{Kind: "fake", DSN: "dsn://x"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got != Repository(repo) {
		t.Fatalf("New returned unexpected repository")
	}
}

func TestFactory_UnknownKind(t *testing.T) {
	if _, err := New(context.Background(), Config{Kind: "nope"}); err == nil {
		t.Fatalf("New(nope) err = nil, want error")
	}
	if err := EnsureTable(context.Background(), "nope", &fakeRepo{}, "t", nil); err == nil {
		t.Fatalf("EnsureTable(nope) err = nil, want error")
	}
}

func TestEnsureTable_Dispatch(t *testing.T) {
	var gotTable string
	var gotCols []string
	RegisterDDL("fake-ddl", func(ctx context.Context, repo Repository, table string, columns []string) error {
		gotTable, gotCols = table, columns
		return nil
	})

	if err := EnsureTable(context.Background(), "fake-ddl", &fakeRepo{}, "t", []string{"A"}); err != nil {
		t.Fatalf("EnsureTable: %v", err)
	}
	if gotTable != "t" || len(gotCols) != 1 || gotCols[0] != "A" {
		t.Fatalf("dispatch got table=%q cols=%v", gotTable, gotCols)
	}
}

func newDataset(n int) *extract.Dataset {
	ds := &extract.Dataset{
		Columns:   []string{"A", "TIMESTAMP"},
		Timestamp: "2016-08-01 12:30:00",
	}
	for i := 0; i < n; i++ {
		ds.Rows = append(ds.Rows, []string{"x", ds.Timestamp})
	}
	return ds
}

func TestAppendDataset_Batches(t *testing.T) {
	t.Parallel()

	repo := &fakeRepo{}
	n, err := AppendDataset(context.Background(), repo, newDataset(5), 2)
	if err != nil {
		t.Fatalf("AppendDataset: %v", err)
	}
	if n != 5 {
		t.Fatalf("total = %d, want 5", n)
	}
	if len(repo.batches) != 3 {
		t.Fatalf("batches = %d, want 3 (2+2+1)", len(repo.batches))
	}
	if len(repo.columns) != 2 || repo.columns[0] != "A" {
		t.Fatalf("columns = %v", repo.columns)
	}
}

func TestAppendDataset_EmptyDataset(t *testing.T) {
	t.Parallel()

	repo := &fakeRepo{}
	n, err := AppendDataset(context.Background(), repo, newDataset(0), 100)
	if err != nil {
		t.Fatalf("AppendDataset: %v", err)
	}
	if n != 0 || len(repo.batches) != 0 {
		t.Fatalf("n=%d batches=%d, want 0/0", n, len(repo.batches))
	}
}

func TestAppendDataset_PropagatesCopyError(t *testing.T) {
	t.Parallel()

	repo := &fakeRepo{failAfter: 2}
	_, err := AppendDataset(context.Background(), repo, newDataset(5), 2)
	if err == nil {
		t.Fatalf("err = nil, want copy failure")
	}
}

func TestAppendDataset_InvalidBatchSize(t *testing.T) {
	t.Parallel()

	if _, err := AppendDataset(context.Background(), &fakeRepo{}, newDataset(1), 0); err == nil {
		t.Fatalf("err = nil, want batch size error")
	}
}
