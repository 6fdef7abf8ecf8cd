// Package chunk partitions a table's field list into column-groups
// ("vchunks") whose summed byte widths fit the per-call budget of the remote
// table-read function. The plan is what allows wide tables to be extracted
// through an RPC that caps the total column width of a single call.
package chunk

import "fmt"

// VChunk is one column-group: an ordered, non-empty sequence of field names
// readable in a single remote call.
type VChunk []string

// WidthLookup resolves a field name (case-insensitively) to its byte width.
// *catalog.Catalog satisfies this.
type WidthLookup interface {
	Width(name string) (width int, ok bool)
}

// UnknownFieldError reports a requested field that is absent from the width
// catalog.
type UnknownFieldError struct {
	Name string
}

func (e *UnknownFieldError) Error() string {
	return fmt.Sprintf("chunk: unknown field %q", e.Name)
}

// Plan greedily groups fields into vchunks in a single order-preserving pass.
//
// A chunk is closed as soon as the next field would push its running width
// sum over budget; the field then opens the next chunk. A single field wider
// than the whole budget still gets its own chunk, it is never dropped or
// split. Concatenating the resulting vchunks reproduces the input field list
// exactly. An empty field list yields an empty plan.
func Plan(fields []string, widths WidthLookup, budget int) ([]VChunk, error) {
	if budget <= 0 {
		return nil, fmt.Errorf("chunk: budget must be positive, got %d", budget)
	}

	var (
		plan    []VChunk
		current VChunk
		sum     int
	)
	for _, name := range fields {
		w, ok := widths.Width(name)
		if !ok {
			return nil, &UnknownFieldError{Name: name}
		}
		if sum+w > budget && len(current) > 0 {
			plan = append(plan, current)
			current = VChunk{name}
			sum = w
			continue
		}
		current = append(current, name)
		sum += w
	}
	if len(current) > 0 {
		plan = append(plan, current)
	}
	return plan, nil
}

// Flatten concatenates the vchunks' field lists in plan order. The result is
// the canonical output field order of an extraction.
func Flatten(plan []VChunk) []string {
	n := 0
	for _, vc := range plan {
		n += len(vc)
	}
	out := make([]string, 0, n)
	for _, vc := range plan {
		out = append(out, vc...)
	}
	return out
}
