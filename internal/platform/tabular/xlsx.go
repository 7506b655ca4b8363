package tabular

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// SheetNames returns the sheet names of an XLSX workbook.
func SheetNames(data []byte) ([]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("tabular: open workbook: %w", err)
	}
	defer f.Close()
	return f.GetSheetList(), nil
}

// ReadWorkbookSheet parses one sheet of an XLSX workbook into a Table. The
// first row is the header. An empty sheet name selects the first sheet.
// Ragged rows, common in published report workbooks, are padded with nulls.
func ReadWorkbookSheet(data []byte, sheet string) (*Table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("tabular: open workbook: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("tabular: workbook has no sheets")
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("tabular: read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("tabular: sheet %q is empty", sheet)
	}

	t := New(rows[0]...)
	for _, rec := range rows[1:] {
		row := make([]*string, 0, len(t.Columns))
		for i := range t.Columns {
			if i < len(rec) {
				v := rec[i]
				row = append(row, &v)
			} else {
				row = append(row, nil)
			}
		}
		if err := t.AppendRow(row...); err != nil {
			return nil, err
		}
	}
	return t, nil
}
