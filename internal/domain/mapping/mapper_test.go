package mapping

import (
	"errors"
	"testing"

	"github.com/vikrant31/HCUPtools/internal/domain/version"
	"github.com/vikrant31/HCUPtools/internal/platform/tabular"
)

// dxTable is a small mapping table in the published DXCCSR shape. E11.9
// cross-classifies into two categories; the default flag marks END003.
func dxTable() *Table {
	return &Table{
		Family: version.FamilyDiagnosis,
		Data: tbl(
			[]string{"'ICD-10-CM CODE'", "'CCSR CATEGORY 1'", "'CCSR CATEGORY 1 DESCRIPTION'", "'DEFAULT CCSR CATEGORY IP'"},
			[]string{"'E119'", "END002", "Diabetes mellitus without complication", "0"},
			[]string{"'E119'", "END003", "Diabetes mellitus with complication", "1"},
			[]string{"'A000'", "DIG001", "Intestinal infection", "1"},
			[]string{"'0010'", "DIG001", "Intestinal infection", "1"},
		),
	}
}

func cellString(t *testing.T, table *tabular.Table, row int, column string) string {
	t.Helper()
	v, ok := table.Value(row, column)
	if !ok {
		t.Fatalf("cell (%d, %s) is null", row, column)
	}
	return v
}

func TestMapCodesLongFanOut(t *testing.T) {
	records := tbl([]string{"patient", "code"},
		[]string{"p1", "E119"},
		[]string{"p2", "A000"},
	)
	res, err := MapCodes(records, "code", dxTable(), Options{KeepAllColumns: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// One row per (record, mapping entry): E119 fans out into two rows.
	if res.Table.NumRows() != 3 {
		t.Fatalf("expected 3 rows, got %d", res.Table.NumRows())
	}
	if got := cellString(t, res.Table, 0, CategoryColumn); got != "END002" {
		t.Errorf("row 0 category = %q, want END002", got)
	}
	if got := cellString(t, res.Table, 1, CategoryColumn); got != "END003" {
		t.Errorf("row 1 category = %q, want END003", got)
	}
	if got := cellString(t, res.Table, 2, CategoryColumn); got != "DIG001" {
		t.Errorf("row 2 category = %q, want DIG001", got)
	}
	// Input columns survive with KeepAllColumns, and the fan-out repeats them.
	if got := cellString(t, res.Table, 0, "patient"); got != "p1" {
		t.Errorf("row 0 patient = %q", got)
	}
	if got := cellString(t, res.Table, 1, "patient"); got != "p1" {
		t.Errorf("row 1 patient = %q", got)
	}
	if res.Unmatched != 0 {
		t.Errorf("unmatched = %d, want 0", res.Unmatched)
	}
}

func TestMapCodesUnmatchedGetsNullRow(t *testing.T) {
	records := tbl([]string{"code"},
		[]string{"E119"},
		[]string{"Z999"},
	)
	res, err := MapCodes(records, "code", dxTable(), Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Unmatched != 1 {
		t.Errorf("unmatched = %d, want 1", res.Unmatched)
	}
	// The unmatched record is present, once, with a null category.
	if res.Table.NumRows() != 3 {
		t.Fatalf("expected 3 rows, got %d", res.Table.NumRows())
	}
	last := res.Table.NumRows() - 1
	if got := cellString(t, res.Table, last, "code"); got != "Z999" {
		t.Errorf("last row code = %q, want Z999", got)
	}
	if _, ok := res.Table.Value(last, CategoryColumn); ok {
		t.Error("unmatched row category must be null")
	}
}

func TestMapCodesNormalizesQuotedCodesAndKeepsLeadingZeros(t *testing.T) {
	records := tbl([]string{"code"},
		[]string{"'A000'"},
		[]string{"0010"},
	)
	res, err := MapCodes(records, "code", dxTable(), Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Unmatched != 0 {
		t.Fatalf("unmatched = %d, want 0 (codes are identifiers, not numbers)", res.Unmatched)
	}
	if got := cellString(t, res.Table, 0, CategoryColumn); got != "DIG001" {
		t.Errorf("quoted code category = %q", got)
	}
	if got := cellString(t, res.Table, 1, CategoryColumn); got != "DIG001" {
		t.Errorf("leading-zero code category = %q", got)
	}
}

func TestMapCodesDefaultOnlyFlagColumn(t *testing.T) {
	records := tbl([]string{"code"},
		[]string{"E119"},
	)
	res, err := MapCodes(records, "code", dxTable(), Options{DefaultOnly: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// The flag column narrows E119 to its single default entry; the category
	// value still comes from the category column.
	if res.Table.NumRows() != 1 {
		t.Fatalf("expected 1 row, got %d", res.Table.NumRows())
	}
	if got := cellString(t, res.Table, 0, CategoryColumn); got != "END003" {
		t.Errorf("default category = %q, want END003", got)
	}
	if res.Roles.Default == "" {
		t.Error("expected a resolved default column")
	}
}

func TestMapCodesDefaultOnlyValueColumn(t *testing.T) {
	// Default column carrying the category itself rather than a flag.
	mt := &Table{
		Family: version.FamilyDiagnosis,
		Data: tbl(
			[]string{"ICD-10-CM Code", "CCSR Category", "Default CCSR Category"},
			[]string{"E119", "END002", "."},
			[]string{"E119", "END003", "END003"},
		),
	}
	records := tbl([]string{"code"}, []string{"E119"})
	res, err := MapCodes(records, "code", mt, Options{DefaultOnly: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Table.NumRows() != 1 {
		t.Fatalf("expected 1 row, got %d", res.Table.NumRows())
	}
	if got := cellString(t, res.Table, 0, CategoryColumn); got != "END003" {
		t.Errorf("default category = %q, want END003", got)
	}
}

func TestMapCodesDefaultOnlyMultipleMarkedKeepsFirst(t *testing.T) {
	mt := &Table{
		Family: version.FamilyDiagnosis,
		Data: tbl(
			[]string{"ICD-10-CM Code", "CCSR Category", "Default CCSR Category"},
			[]string{"E119", "END002", "1"},
			[]string{"E119", "END003", "1"},
		),
	}
	records := tbl([]string{"code"}, []string{"E119"})
	res, err := MapCodes(records, "code", mt, Options{DefaultOnly: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Table.NumRows() != 1 {
		t.Fatalf("expected 1 row, got %d", res.Table.NumRows())
	}
	if got := cellString(t, res.Table, 0, CategoryColumn); got != "END002" {
		t.Errorf("category = %q, want first-marked END002", got)
	}
}

func TestMapCodesDefaultOnlyNoDefaultRowJoinsUnmatched(t *testing.T) {
	mt := &Table{
		Family: version.FamilyDiagnosis,
		Data: tbl(
			[]string{"ICD-10-CM Code", "CCSR Category", "Default CCSR Category"},
			[]string{"E119", "END002", "0"},
			[]string{"E119", "END003", "0"},
		),
	}
	records := tbl([]string{"code"}, []string{"E119"})
	res, err := MapCodes(records, "code", mt, Options{DefaultOnly: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Unmatched != 1 {
		t.Errorf("unmatched = %d, want 1", res.Unmatched)
	}
	if _, ok := res.Table.Value(0, CategoryColumn); ok {
		t.Error("code with no default entry must join with a null category")
	}
}

func TestMapCodesDefaultOnlyIgnoredWithoutDefaultColumn(t *testing.T) {
	mt := &Table{
		Family: version.FamilyDiagnosis,
		Data: tbl(
			[]string{"ICD-10-CM Code", "CCSR Category"},
			[]string{"E119", "END002"},
			[]string{"E119", "END003"},
		),
	}
	records := tbl([]string{"code"}, []string{"E119"})
	res, err := MapCodes(records, "code", mt, Options{DefaultOnly: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// No default column: the option degrades to a plain long join.
	if res.Table.NumRows() != 2 {
		t.Errorf("expected 2 rows, got %d", res.Table.NumRows())
	}
}

func TestMapCodesProjection(t *testing.T) {
	records := tbl([]string{"patient", "visit", "code"},
		[]string{"p1", "v1", "A000"},
	)
	res, err := MapCodes(records, "code", dxTable(), Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"code", CategoryColumn, DescriptionColumn}
	if len(res.Table.Columns) != len(want) {
		t.Fatalf("columns = %v, want %v", res.Table.Columns, want)
	}
	for i := range want {
		if res.Table.Columns[i] != want[i] {
			t.Errorf("columns[%d] = %q, want %q", i, res.Table.Columns[i], want[i])
		}
	}
	if got := cellString(t, res.Table, 0, DescriptionColumn); got != "Intestinal infection" {
		t.Errorf("description = %q", got)
	}
}

func TestMapCodesFamilyInferredFromTable(t *testing.T) {
	mt := &Table{Data: tbl(
		[]string{"ICD-10-PCS Code", "PRCCSR"},
		[]string{"0016070", "CAR004"},
	)}
	records := tbl([]string{"code"}, []string{"0016070"})
	res, err := MapCodes(records, "code", mt, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Family != version.FamilyProcedure {
		t.Errorf("family = %q, want pr", res.Family)
	}
	if res.FamilyDefaulted {
		t.Error("confident inference must not set FamilyDefaulted")
	}
}

func TestMapCodesFamilyDefaultedWhenIndeterminate(t *testing.T) {
	mt := &Table{Data: tbl(
		[]string{"code", "category"},
		[]string{"ABCD", "XXX001"},
	)}
	records := tbl([]string{"code"}, []string{"ABCD"})
	res, err := MapCodes(records, "code", mt, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Family != version.FamilyDiagnosis {
		t.Errorf("family = %q, want dx fallback", res.Family)
	}
	if !res.FamilyDefaulted {
		t.Error("indeterminate family must set FamilyDefaulted")
	}
}

func TestMapCodesErrors(t *testing.T) {
	records := tbl([]string{"code"}, []string{"E119"})

	if _, err := MapCodes(records, "code", dxTable(), Options{Format: "tall"}); !errors.Is(err, ErrInvalidOutputFormat) {
		t.Errorf("bad format: expected ErrInvalidOutputFormat, got %v", err)
	}

	var cnf *ColumnNotFoundError
	if _, err := MapCodes(records, "missing", dxTable(), Options{}); !errors.As(err, &cnf) || cnf.Role != RoleUserCode {
		t.Errorf("missing user code column: got %v", err)
	}

	if _, err := MapCodes(records, "code", &Table{}, Options{}); !errors.Is(err, ErrInvalidMapping) {
		t.Errorf("empty mapping table: expected ErrInvalidMapping, got %v", err)
	}
	if _, err := MapCodes(records, "code", nil, Options{}); !errors.Is(err, ErrInvalidMapping) {
		t.Errorf("nil mapping table: expected ErrInvalidMapping, got %v", err)
	}
}

func TestMapCodesEmptyInput(t *testing.T) {
	records := tbl([]string{"code"})
	res, err := MapCodes(records, "code", dxTable(), Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Table.NumRows() != 0 {
		t.Errorf("expected 0 rows, got %d", res.Table.NumRows())
	}
	if res.Unmatched != 0 {
		t.Errorf("unmatched = %d, want 0", res.Unmatched)
	}
}

func TestMapCodesInputCategoryColumnKept(t *testing.T) {
	// Input tables may already carry a "category" column of their own; the
	// joined category must land in a distinct column, not shadow it.
	records := tbl([]string{"category", "code"},
		[]string{"user-val", "A000"},
	)
	res, err := MapCodes(records, "code", dxTable(), Options{KeepAllColumns: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := cellString(t, res.Table, 0, "category"); got != "user-val" {
		t.Errorf("input category = %q, want user-val", got)
	}
	if got := cellString(t, res.Table, 0, "ccsr_category"); got != "DIG001" {
		t.Errorf("joined category = %q, want DIG001", got)
	}
}

func TestMapCodesInputCategoryColumnProjection(t *testing.T) {
	records := tbl([]string{"category", "code"},
		[]string{"user-val", "A000"},
	)
	res, err := MapCodes(records, "code", dxTable(), Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Projection keeps the code column plus what the mapping added; the
	// input's own category column is dropped like any other extra column.
	want := []string{"code", "ccsr_category", DescriptionColumn}
	if len(res.Table.Columns) != len(want) {
		t.Fatalf("columns = %v, want %v", res.Table.Columns, want)
	}
	for i, col := range want {
		if res.Table.Columns[i] != col {
			t.Fatalf("columns = %v, want %v", res.Table.Columns, want)
		}
	}
}

func TestMapCodesNullCodeCellIsUnmatched(t *testing.T) {
	records := tbl([]string{"code", "note"},
		[]string{"<nil>", "missing code"},
	)
	res, err := MapCodes(records, "code", dxTable(), Options{KeepAllColumns: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Unmatched != 1 {
		t.Errorf("unmatched = %d, want 1", res.Unmatched)
	}
	if _, ok := res.Table.Value(0, CategoryColumn); ok {
		t.Error("null code must not join")
	}
}
