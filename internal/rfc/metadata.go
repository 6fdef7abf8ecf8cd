package rfc

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"saptab/internal/catalog"
	"saptab/internal/extract"
)

// dictionaryTable is the data dictionary table describing every field of
// every table in the source system.
const dictionaryTable = "DD03L"

// dictionaryFields are the DD03L columns the metadata read requests, in the
// order the cells come back.
var dictionaryFields = []string{
	"FIELDNAME", "AS4LOCAL", "AS4VERS", "POSITION",
	"KEYFLAG", "ROLLNAME", "CHECKTABLE", "INTTYPE",
	"INTLEN", "LENG",
}

// Column indexes into a parsed dictionary row.
const (
	dictName = iota
	dictAS4Local
	dictAS4Vers
	dictPosition
	dictKeyFlag
	dictRollName
	dictCheckTable
	dictIntType
	dictIntLen
	dictLeng
)

// TableFields reads the data dictionary entries for table and returns one
// raw catalog record per field, in dictionary order. Structural fields are
// not filtered here; that is the catalog's job.
func (c *Client) TableFields(ctx context.Context, table string) ([]catalog.Field, error) {
	rows, err := c.ReadTable(ctx, extract.ReadRequest{
		Table:     dictionaryTable,
		Fields:    dictionaryFields,
		Where:     fmt.Sprintf("TABNAME = '%s'", strings.ToUpper(table)),
		Delimiter: extract.DefaultDelimiter,
	})
	if err != nil {
		return nil, fmt.Errorf("rfc: read metadata for %s: %w", table, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("rfc: table %s not found in %s", table, dictionaryTable)
	}

	fields := make([]catalog.Field, 0, len(rows))
	for _, raw := range rows {
		cells := strings.Split(raw, extract.DefaultDelimiter)
		if len(cells) != len(dictionaryFields) {
			return nil, fmt.Errorf("rfc: malformed %s row for %s: %q", dictionaryTable, table, raw)
		}
		for i := range cells {
			cells[i] = strings.TrimSpace(cells[i])
		}

		width, err := strconv.Atoi(cells[dictLeng])
		if err != nil {
			return nil, fmt.Errorf("rfc: field %s of %s: bad length %q: %w",
				cells[dictName], table, cells[dictLeng], err)
		}
		// POSITION is zero-padded numeric text, e.g. "0003".
		position, err := strconv.Atoi(cells[dictPosition])
		if err != nil {
			return nil, fmt.Errorf("rfc: field %s of %s: bad position %q: %w",
				cells[dictName], table, cells[dictPosition], err)
		}

		fields = append(fields, catalog.Field{
			Name:       cells[dictName],
			Width:      width,
			Position:   position,
			Key:        cells[dictKeyFlag] == "X",
			RollName:   cells[dictRollName],
			CheckTable: cells[dictCheckTable],
			IntType:    cells[dictIntType],
		})
	}
	return fields, nil
}
