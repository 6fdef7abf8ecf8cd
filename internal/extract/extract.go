// Package extract reassembles a row/column-constrained remote table into a
// complete dataset. The remote read function caps the total byte width of
// the columns one call may request, so a wide table is fetched as a series of
// column-groups (vchunks): for each row window, one remote call per vchunk,
// stitched back together positionally into full rows.
//
// Layering: Fetcher performs one remote read per (vchunk, window) pair and
// splits the raw delimited rows into cells; Assembler merges the per-vchunk
// partial results of one window; Driver pages windows until the source runs
// out of rows, stamps the run timestamp, and forwards the finished dataset to
// the persistence sink.
package extract

import (
	"context"
	"errors"
	"fmt"
)

// DefaultDelimiter separates cells inside the raw rows returned by the
// remote read function.
const DefaultDelimiter = "|"

// ErrNoMoreRows signals that the remote source has no data for the requested
// window. It terminates paging and is not an error outcome.
var ErrNoMoreRows = errors.New("extract: no more rows")

// ReadRequest describes one remote table read restricted to a field subset
// and a row window. Count 0 means "all remaining rows".
type ReadRequest struct {
	Table     string
	Fields    []string
	Where     string
	Offset    int
	Count     int
	Delimiter string
}

// TableReader is the sole boundary to the external data source. One call
// performs exactly one remote read and returns the raw delimited rows, or
// nil when the source reports no data for the window. Implementations live
// at the transport layer (internal/rfc).
type TableReader interface {
	ReadTable(ctx context.Context, req ReadRequest) ([]string, error)
}

// Window identifies one page of rows. Count 0 means "all remaining".
type Window struct {
	Offset int
	Count  int
}

// RowCountMismatchError reports inconsistent pagination across column groups:
// a non-first vchunk of the same window returned a different number of rows
// than the first. The window is unrecoverable.
type RowCountMismatchError struct {
	Table  string
	Offset int
	Chunk  int // index of the offending vchunk within the plan
	Want   int // row count established by the first vchunk
	Got    int
}

func (e *RowCountMismatchError) Error() string {
	return fmt.Sprintf("extract: table %s offset %d: vchunk %d returned %d rows, first vchunk returned %d",
		e.Table, e.Offset, e.Chunk, e.Got, e.Want)
}
