package rfc

import (
	"context"

	"saptab/internal/extract"
)

// readTableFunction is the remote table-read function. The BBP_ variant
// accepts a larger per-call column width than plain RFC_READ_TABLE but still
// caps it, which is why extraction plans column-groups at all.
const readTableFunction = "BBP_RFC_READ_TABLE"

// Wire types mirror the remote function's parameter and result tables.
type (
	fieldParam struct {
		FieldName string `json:"FIELDNAME"`
	}
	optionParam struct {
		Text string `json:"TEXT"`
	}

	readTableParams struct {
		QueryTable string        `json:"QUERY_TABLE"`
		Delimiter  string        `json:"DELIMITER"`
		NoData     string        `json:"NO_DATA"`
		RowSkips   int           `json:"ROWSKIPS"`
		RowCount   int           `json:"ROWCOUNT"`
		Options    []optionParam `json:"OPTIONS"`
		Fields     []fieldParam  `json:"FIELDS"`
	}

	dataRow struct {
		WA string `json:"WA"`
	}

	readTableResult struct {
		Data   []dataRow    `json:"DATA"`
		Fields []fieldParam `json:"FIELDS"`
	}
)

// fieldParams wraps plain field names into the remote function's FIELDS
// table shape.
func fieldParams(names []string) []fieldParam {
	out := make([]fieldParam, len(names))
	for i, n := range names {
		out[i] = fieldParam{FieldName: n}
	}
	return out
}

// ReadTable performs one remote table read and returns the raw delimited
// rows, or nil when the source has no data for the window. It implements
// extract.TableReader.
func (c *Client) ReadTable(ctx context.Context, req extract.ReadRequest) ([]string, error) {
	params := readTableParams{
		QueryTable: req.Table,
		Delimiter:  req.Delimiter,
		NoData:     "",
		RowSkips:   req.Offset,
		RowCount:   req.Count,
		Fields:     fieldParams(req.Fields),
	}
	if req.Where != "" {
		params.Options = []optionParam{{Text: req.Where}}
	}

	var res readTableResult
	if err := c.Call(ctx, readTableFunction, params, &res); err != nil {
		return nil, err
	}
	if len(res.Data) == 0 {
		return nil, nil
	}
	rows := make([]string, len(res.Data))
	for i, d := range res.Data {
		rows[i] = d.WA
	}
	return rows, nil
}
