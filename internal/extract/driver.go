package extract

import (
	"context"
	"errors"
	"log"
	"time"

	"saptab/internal/chunk"
)

// TimestampLayout is the format of the run timestamp appended to every
// assembled row.
const TimestampLayout = "2006-01-02 15:04:05"

// TimestampColumn is the name of the derived timestamp column appended to
// the dataset header.
const TimestampColumn = "TIMESTAMP"

// Dataset is the row-complete result of one extraction run. Columns is the
// flattened vchunk field order plus the timestamp column; every row carries
// the same run-scoped timestamp as its final cell.
type Dataset struct {
	Columns   []string
	Rows      [][]string
	Timestamp string
}

// Count reports the number of assembled rows.
func (d *Dataset) Count() int { return len(d.Rows) }

// SinkFunc hands a completed dataset to the persistence collaborator and
// reports how many rows it accepted. Sinks append, never overwrite.
type SinkFunc func(ctx context.Context, ds *Dataset) (int64, error)

// Driver orchestrates the assembler across row windows and aggregates the
// final dataset. Windows are processed strictly in increasing-offset order;
// no window is fetched before the prior window's outcome is known, since
// pagination termination depends on it.
type Driver struct {
	Assembler *Assembler

	// Sink receives the completed dataset. Nil means the caller only wants
	// the dataset inline; partial data is never forwarded either way.
	Sink SinkFunc

	// Now is an injectable clock for tests; time.Now when nil.
	Now func() time.Time
}

func (d *Driver) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

// Extract pages through row windows of windowSize rows starting at offset 0
// until the source reports no more rows, then stamps and persists the
// dataset. windowSize <= 0 fetches everything in a single unbounded window.
// A zero-row result is a valid, successful outcome.
func (d *Driver) Extract(ctx context.Context, vchunks []chunk.VChunk, windowSize int, where string) (*Dataset, error) {
	// One timestamp per run, captured up front and applied uniformly.
	stamp := d.now().UTC().Format(TimestampLayout)
	ds := &Dataset{
		Columns:   append(chunk.Flatten(vchunks), TimestampColumn),
		Timestamp: stamp,
	}

	// An empty plan has nothing to fetch; the run completes with zero rows.
	if len(vchunks) == 0 {
		if err := d.persist(ctx, ds); err != nil {
			return nil, err
		}
		return ds, nil
	}

	for offset := 0; ; offset += windowSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rows, err := d.Assembler.Assemble(ctx, vchunks, Window{Offset: offset, Count: windowSize}, where)
		if err != nil {
			if errors.Is(err, ErrNoMoreRows) {
				break
			}
			return nil, err
		}
		for _, row := range rows {
			ds.Rows = append(ds.Rows, append(row, stamp))
		}
		// An unbounded window drains the table in one pass.
		if windowSize <= 0 {
			break
		}
	}

	if err := d.persist(ctx, ds); err != nil {
		return nil, err
	}
	return ds, nil
}

// ExtractWindow assembles exactly one row window, stamps it, and persists
// the result. It serves callers that drive pagination themselves. A window
// past the end of the table yields an empty dataset, not an error.
func (d *Driver) ExtractWindow(ctx context.Context, vchunks []chunk.VChunk, w Window, where string) (*Dataset, error) {
	stamp := d.now().UTC().Format(TimestampLayout)
	ds := &Dataset{
		Columns:   append(chunk.Flatten(vchunks), TimestampColumn),
		Timestamp: stamp,
	}

	rows, err := d.Assembler.Assemble(ctx, vchunks, w, where)
	if err != nil && !errors.Is(err, ErrNoMoreRows) {
		return nil, err
	}
	for _, row := range rows {
		ds.Rows = append(ds.Rows, append(row, stamp))
	}

	if err := d.persist(ctx, ds); err != nil {
		return nil, err
	}
	return ds, nil
}

func (d *Driver) persist(ctx context.Context, ds *Dataset) error {
	if d.Sink == nil {
		return nil
	}
	n, err := d.Sink(ctx, ds)
	if err != nil {
		return err
	}
	log.Printf("extract: table=%s persisted rows=%d", d.Assembler.Fetcher.Table, n)
	return nil
}
