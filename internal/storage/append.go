package storage

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/dustin/go-humanize"

	"saptab/internal/extract"
)

// AppendDataset writes a completed dataset to repo in batches of batchSize
// rows and returns the total written. Progress is logged per flush with
// running totals and instantaneous rows/sec.
//
// The dataset is complete by construction (the driver never forwards partial
// windows), so a failure here aborts the run without leaving mixed state
// beyond whole batches already committed.
func AppendDataset(ctx context.Context, repo Repository, ds *extract.Dataset, batchSize int) (int64, error) {
	if batchSize <= 0 {
		return 0, fmt.Errorf("storage: batchSize must be > 0")
	}
	if ds.Count() == 0 {
		return 0, nil
	}

	var (
		total   int64
		batches int64
		start   = time.Now()
	)
	batch := make([][]any, 0, batchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		flushStart := time.Now()
		n, err := repo.CopyFrom(ctx, ds.Columns, batch)
		total += n
		batch = batch[:0]
		if err != nil {
			log.Printf("sink: append failed after=%d total=%d err=%v", n, total, err)
			return err
		}
		batches++
		elapsed := time.Since(flushStart)
		rps := float64(0)
		if elapsed > 0 {
			rps = float64(n) / elapsed.Seconds()
		}
		log.Printf("sink: batch #%d rows=%s total=%s rps=%.0f elapsed=%s",
			batches, humanize.Comma(n), humanize.Comma(total),
			rps, time.Since(start).Truncate(time.Millisecond))
		return nil
	}

	for _, row := range ds.Rows {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		vals := make([]any, len(row))
		for i, cell := range row {
			vals[i] = cell
		}
		batch = append(batch, vals)
		if len(batch) >= batchSize {
			if err := flush(); err != nil {
				return total, err
			}
		}
	}
	if err := flush(); err != nil {
		return total, err
	}
	return total, nil
}
