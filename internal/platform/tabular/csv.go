package tabular

import (
	"archive/zip"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"path"
	"strings"
)

// ReadCSV parses CSV content into a Table. The first record is the header.
// Every parsed cell is non-null; CSV cannot represent missing values, so an
// empty field stays an empty string.
func ReadCSV(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("tabular: empty csv input")
	}
	if err != nil {
		return nil, fmt.Errorf("tabular: read csv header: %w", err)
	}

	t := New(header...)
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("tabular: read csv row %d: %w", t.NumRows()+2, err)
		}
		row := make([]*string, 0, len(header))
		for i := range header {
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

// WriteCSV renders a table as CSV. Null cells become empty fields; CSV has
// no way to mark them, and downstream spreadsheet use expects blanks.
func WriteCSV(w io.Writer, t *Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns); err != nil {
		return fmt.Errorf("tabular: write csv header: %w", err)
	}
	rec := make([]string, len(t.Columns))
	for rowIdx := range t.Rows {
		for i := range rec {
			rec[i] = ""
			if c := t.Cell(rowIdx, i); c != nil {
				rec[i] = *c
			}
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("tabular: write csv row %d: %w", rowIdx+1, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadZipCSV extracts a CSV member from ZIP content and parses it. When
// namePrefix is non-empty the first member whose base name starts with it
// (case-insensitive) is chosen; otherwise, and as a fallback, the largest
// .csv member wins. HCUP archives bundle the mapping CSV with user-guide
// PDFs and SAS programs, so picking by extension alone is not enough.
func ReadZipCSV(data []byte, namePrefix string) (*Table, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("tabular: open zip: %w", err)
	}

	var chosen *zip.File
	prefix := strings.ToLower(namePrefix)
	for _, f := range zr.File {
		base := strings.ToLower(path.Base(f.Name))
		if !strings.HasSuffix(base, ".csv") {
			continue
		}
		if prefix != "" && strings.HasPrefix(base, prefix) {
			chosen = f
			break
		}
		if chosen == nil || f.UncompressedSize64 > chosen.UncompressedSize64 {
			chosen = f
		}
	}
	if chosen == nil {
		return nil, fmt.Errorf("tabular: no csv member in zip archive")
	}

	rc, err := chosen.Open()
	if err != nil {
		return nil, fmt.Errorf("tabular: open zip member %s: %w", chosen.Name, err)
	}
	defer rc.Close()

	t, err := ReadCSV(rc)
	if err != nil {
		return nil, fmt.Errorf("tabular: parse zip member %s: %w", chosen.Name, err)
	}
	return t, nil
}
