package extract

import (
	"context"
	"errors"

	"saptab/internal/chunk"
)

// Assembler merges the per-vchunk partial results of one row window into
// complete rows. Fetches happen strictly one at a time, in vchunk order:
// positional alignment across column groups depends on every read seeing the
// same underlying row sequence.
type Assembler struct {
	Fetcher *Fetcher
}

// Assemble fetches every vchunk for one window and merges the partial rows
// by row index, preserving vchunk-then-intra-chunk field order.
//
// The first vchunk establishes the row count; any later vchunk with a
// different count fails with *RowCountMismatchError. If the first vchunk
// reports ErrNoMoreRows the remaining vchunks are not fetched and
// ErrNoMoreRows propagates: there is nothing to merge.
func (a *Assembler) Assemble(ctx context.Context, vchunks []chunk.VChunk, w Window, where string) ([][]string, error) {
	var rows [][]string
	for i, vc := range vchunks {
		part, err := a.Fetcher.Fetch(ctx, vc, w, where)
		if err != nil {
			if errors.Is(err, ErrNoMoreRows) {
				if i == 0 {
					return nil, ErrNoMoreRows
				}
				// The first vchunk saw rows here; an empty later vchunk is a
				// pagination mismatch, not a clean end of data.
				return nil, &RowCountMismatchError{
					Table:  a.Fetcher.Table,
					Offset: w.Offset,
					Chunk:  i,
					Want:   len(rows),
					Got:    0,
				}
			}
			return nil, err
		}
		if i == 0 {
			rows = part
			continue
		}
		if len(part) != len(rows) {
			return nil, &RowCountMismatchError{
				Table:  a.Fetcher.Table,
				Offset: w.Offset,
				Chunk:  i,
				Want:   len(rows),
				Got:    len(part),
			}
		}
		for r, cells := range part {
			rows[r] = append(rows[r], cells...)
		}
	}
	return rows, nil
}
