// Package xlsx implements the roster.Codec interface on top of Excel
// workbook files, the interchange format shared with the solver and the
// document generator.
package xlsx

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"roster-go/internal/roster"
)

// sheetName is the single sheet written on encode. Decode reads whatever
// the first sheet is called; the solver is not consistent about it.
const sheetName = "Planning"

// Codec reads and writes roster rows as single-sheet workbook files.
type Codec struct{}

// NewCodec returns a spreadsheet codec.
func NewCodec() *Codec {
	return &Codec{}
}

// Decode returns the first sheet's rows in file order, keyed by the header
// row. Cell values are typed by inference: integers, then floats, then
// strings. Empty cells produce no key at all, so a sparse sheet decodes
// into sparse rows rather than rows padded with empty strings.
func (c *Codec) Decode(path string) ([]*roster.Row, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: opening %s: %v", roster.ErrIO, path, err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: opening %s: %v", roster.ErrIO, path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: workbook %s has no sheets", roster.ErrFormat, path)
	}

	cells, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("%w: reading sheet %s: %v", roster.ErrIO, sheets[0], err)
	}
	if len(cells) == 0 {
		return nil, nil
	}

	header := cells[0]
	rows := make([]*roster.Row, 0, len(cells)-1)
	for _, record := range cells[1:] {
		row := roster.NewRow()
		for i, value := range record {
			if i >= len(header) || header[i] == "" || value == "" {
				continue
			}
			row.Set(header[i], inferValue(value))
		}
		if row.Len() > 0 {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

// Encode overwrites path wholesale with a single "Planning" sheet built
// from rows in the given order. Columns are the union of keys across all
// rows, ordered by first appearance.
func (c *Codec) Encode(rows []*roster.Row, path string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return fmt.Errorf("%w: naming sheet: %v", roster.ErrIO, err)
	}

	columns := columnOrder(rows)
	header := make([]any, len(columns))
	for i, col := range columns {
		header[i] = col
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return fmt.Errorf("%w: writing header: %v", roster.ErrIO, err)
	}

	// Cells are set individually so a row missing a column leaves that
	// cell unset instead of materializing it as an empty string.
	for i, row := range rows {
		for j, col := range columns {
			v, ok := row.Get(col)
			if !ok {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(j+1, i+2)
			if err != nil {
				return fmt.Errorf("%w: computing cell name: %v", roster.ErrIO, err)
			}
			if err := f.SetCellValue(sheetName, cell, v); err != nil {
				return fmt.Errorf("%w: writing row %d: %v", roster.ErrIO, i+2, err)
			}
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("%w: saving %s: %v", roster.ErrIO, path, err)
	}
	return nil
}

// columnOrder returns the union of keys across all rows, first-seen first.
func columnOrder(rows []*roster.Row) []string {
	var columns []string
	seen := make(map[string]struct{})
	for _, row := range rows {
		for _, key := range row.Keys() {
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			columns = append(columns, key)
		}
	}
	return columns
}

// inferValue types a cell: integral cells become ints, other numerics
// floats, everything else stays a string. Time-of-day strings like
// "08:30" fail both parses and pass through.
func inferValue(s string) any {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return s
	}
	if i, err := strconv.Atoi(trimmed); err == nil {
		return i
	}
	if fv, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return fv
	}
	return s
}

// Compile-time check that Codec implements roster.Codec.
var _ roster.Codec = (*Codec)(nil)
