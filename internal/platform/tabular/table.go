// Package tabular provides the in-memory table representation the mapping
// engine operates on, plus readers that parse CSV, ZIP-embedded CSV, and
// XLSX content into it. Cells are nullable: a nil cell is distinct from an
// empty string, which matters for unmatched-code rows and wide-format
// padding. Cell values are always strings -- clinical codes carry leading
// zeros and periods and must never be parsed as numbers.
package tabular

import "fmt"

// Table is an ordered collection of named columns and rows of nullable cells.
type Table struct {
	Columns []string    `json:"columns"`
	Rows    [][]*string `json:"rows"`
}

// New creates an empty table with the given column names.
func New(columns ...string) *Table {
	return &Table{Columns: columns}
}

// ColumnIndex returns the position of the named column, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// NumRows returns the number of rows.
func (t *Table) NumRows() int { return len(t.Rows) }

// AppendRow adds a row. Short rows are padded with nulls; long rows are an
// error because they would silently shift cells out of their columns.
func (t *Table) AppendRow(cells ...*string) error {
	if len(cells) > len(t.Columns) {
		return fmt.Errorf("tabular: row has %d cells, table has %d columns", len(cells), len(t.Columns))
	}
	row := make([]*string, len(t.Columns))
	copy(row, cells)
	t.Rows = append(t.Rows, row)
	return nil
}

// Cell returns the cell at (row, col), or nil when out of range.
func (t *Table) Cell(row, col int) *string {
	if row < 0 || row >= len(t.Rows) || col < 0 || col >= len(t.Rows[row]) {
		return nil
	}
	return t.Rows[row][col]
}

// Value returns the string value at (row, column name) and whether the cell
// is non-null.
func (t *Table) Value(row int, column string) (string, bool) {
	c := t.Cell(row, t.ColumnIndex(column))
	if c == nil {
		return "", false
	}
	return *c, true
}

// String returns a pointer to s, for building nullable rows.
func String(s string) *string { return &s }
