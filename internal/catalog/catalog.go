// Package catalog holds the fixed byte widths of a table's fields, as read
// from the source system's data dictionary. A Catalog is built once per
// metadata request and is immutable afterwards; the chunk planner consumes it
// to group fields under a per-call byte-width budget.
//
// Structural fields (width <= 0, e.g. .INCLUDE markers) are dropped during
// construction so that callers never see them.
package catalog

import (
	"errors"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ErrEmptyCatalog is returned when no usable fields remain after filtering
// out structural (zero-width) entries.
var ErrEmptyCatalog = errors.New("catalog: no usable fields after filtering")

// Field is one column of the source table as described by the data
// dictionary. Width is the fixed byte width of the column; Position is the
// column's position within the table and defines canonical output order.
type Field struct {
	Name     string `json:"name"`
	Width    int    `json:"width"`
	Position int    `json:"position"`

	// Descriptive attributes carried through for metadata responses; they
	// play no role in chunk planning.
	Key        bool   `json:"key,omitempty"`
	RollName   string `json:"rollname,omitempty"`
	CheckTable string `json:"checktable,omitempty"`
	IntType    string `json:"inttype,omitempty"`
}

// upper folds field names to their canonical upper-cased form. Field name
// matching is case-insensitive throughout.
var upper = cases.Upper(language.Und)

// Key returns the canonical lookup key for a field name.
func Key(name string) string { return upper.String(name) }

// Catalog maps upper-cased field names to byte widths while preserving the
// source's field ordering.
type Catalog struct {
	fields []Field
	widths map[string]int
}

// New builds a Catalog from raw dictionary records, dropping fields whose
// width is zero or negative. The input ordering is preserved. Returns
// ErrEmptyCatalog when nothing survives the filter.
func New(fields []Field) (*Catalog, error) {
	kept := make([]Field, 0, len(fields))
	widths := make(map[string]int, len(fields))
	for _, f := range fields {
		if f.Width <= 0 {
			continue
		}
		f.Name = Key(f.Name)
		kept = append(kept, f)
		widths[f.Name] = f.Width
	}
	if len(kept) == 0 {
		return nil, ErrEmptyCatalog
	}
	return &Catalog{fields: kept, widths: widths}, nil
}

// Width reports the byte width of the named field. The lookup is
// case-insensitive. ok is false when the field is not in the catalog.
func (c *Catalog) Width(name string) (width int, ok bool) {
	width, ok = c.widths[Key(name)]
	return width, ok
}

// Fields returns the filtered fields in source order. The returned slice is
// a copy; mutating it does not affect the catalog.
func (c *Catalog) Fields() []Field {
	out := make([]Field, len(c.fields))
	copy(out, c.fields)
	return out
}

// Names returns the filtered field names in source order.
func (c *Catalog) Names() []string {
	out := make([]string, len(c.fields))
	for i, f := range c.fields {
		out[i] = f.Name
	}
	return out
}

// Len reports the number of usable fields.
func (c *Catalog) Len() int { return len(c.fields) }
