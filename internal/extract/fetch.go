package extract

import (
	"context"
	"fmt"
	"strings"

	"saptab/internal/chunk"
)

// Fetcher performs one remote read per (vchunk, window) pair against a single
// table and splits the raw delimited rows into field-aligned string cells.
// It owns no retry logic; transport failures propagate to the caller wrapped
// with table and window context.
type Fetcher struct {
	Reader    TableReader
	Table     string
	Delimiter string // cell delimiter; DefaultDelimiter when empty
}

func (f *Fetcher) delimiter() string {
	if f.Delimiter == "" {
		return DefaultDelimiter
	}
	return f.Delimiter
}

// Fetch reads the vchunk's fields for one row window. Each returned row is a
// slice of trimmed cells aligned positionally to the vchunk's field order.
// Returns ErrNoMoreRows when the source reports no data for the window.
func (f *Fetcher) Fetch(ctx context.Context, vc chunk.VChunk, w Window, where string) ([][]string, error) {
	raw, err := f.Reader.ReadTable(ctx, ReadRequest{
		Table:     f.Table,
		Fields:    vc,
		Where:     where,
		Offset:    w.Offset,
		Count:     w.Count,
		Delimiter: f.delimiter(),
	})
	if err != nil {
		return nil, fmt.Errorf("extract: table %s offset %d fields %v: fetch failed: %w",
			f.Table, w.Offset, []string(vc), err)
	}
	if len(raw) == 0 {
		return nil, ErrNoMoreRows
	}

	delim := f.delimiter()
	rows := make([][]string, len(raw))
	for i, line := range raw {
		cells := strings.Split(line, delim)
		for j, c := range cells {
			cells[j] = strings.TrimSpace(c)
		}
		rows[i] = cells
	}
	return rows, nil
}
