package tabular

import (
	"testing"

	"github.com/xuri/excelize/v2"
)

func workbookBytes(t *testing.T, sheets map[string][][]interface{}) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	first := true
	for name, rows := range sheets {
		if first {
			if err := f.SetSheetName("Sheet1", name); err != nil {
				t.Fatalf("rename sheet: %v", err)
			}
			first = false
		} else {
			if _, err := f.NewSheet(name); err != nil {
				t.Fatalf("new sheet: %v", err)
			}
		}
		for i, row := range rows {
			cell, err := excelize.CoordinatesToCellName(1, i+1)
			if err != nil {
				t.Fatalf("cell name: %v", err)
			}
			if err := f.SetSheetRow(name, cell, &row); err != nil {
				t.Fatalf("set row: %v", err)
			}
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	return buf.Bytes()
}

func TestReadWorkbookSheet(t *testing.T) {
	data := workbookBytes(t, map[string][][]interface{}{
		"Summary": {
			{"CCSR Category", "Count"},
			{"END002", "120"},
			{"DIG001", "45"},
		},
	})
	tab, err := ReadWorkbookSheet(data, "Summary")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tab.Columns) != 2 || tab.Columns[0] != "CCSR Category" {
		t.Errorf("unexpected columns: %v", tab.Columns)
	}
	if tab.NumRows() != 2 {
		t.Fatalf("expected 2 rows, got %d", tab.NumRows())
	}
	if v, ok := tab.Value(1, "Count"); !ok || v != "45" {
		t.Errorf("cell (1,Count) = %q, %v", v, ok)
	}
}

func TestReadWorkbookSheetDefaultsToFirst(t *testing.T) {
	data := workbookBytes(t, map[string][][]interface{}{
		"Only": {
			{"a"},
			{"1"},
		},
	})
	tab, err := ReadWorkbookSheet(data, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tab.NumRows() != 1 {
		t.Errorf("expected 1 row, got %d", tab.NumRows())
	}
}

func TestReadWorkbookSheetRaggedRowsPadded(t *testing.T) {
	data := workbookBytes(t, map[string][][]interface{}{
		"Ragged": {
			{"a", "b", "c"},
			{"1"},
		},
	})
	tab, err := ReadWorkbookSheet(data, "Ragged")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := tab.Value(0, "c"); ok {
		t.Error("short row must pad with null")
	}
}

func TestReadWorkbookSheetMissingSheet(t *testing.T) {
	data := workbookBytes(t, map[string][][]interface{}{
		"Only": {{"a"}},
	})
	if _, err := ReadWorkbookSheet(data, "Nope"); err == nil {
		t.Error("expected error for missing sheet")
	}
}

func TestSheetNames(t *testing.T) {
	data := workbookBytes(t, map[string][][]interface{}{
		"First": {{"a"}},
	})
	names, err := SheetNames(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(names) != 1 || names[0] != "First" {
		t.Errorf("sheet names = %v", names)
	}
}
