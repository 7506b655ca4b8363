package mapping

import (
	"fmt"
	"strings"

	"github.com/vikrant31/HCUPtools/internal/domain/version"
	"github.com/vikrant31/HCUPtools/internal/platform/tabular"
)

// mappingEntry is one joinable row of the mapping table after role
// resolution and default narrowing.
type mappingEntry struct {
	code        string
	category    *string
	description *string
}

// falsyIndicators are default-column values that mean "not the default".
var falsyIndicators = map[string]bool{
	"": true, "0": true, "n": true, "no": true,
	"false": true, "none": true, "na": true, "n/a": true, ".": true,
}

// flagIndicators are default-column values that are pure flags rather than
// category identifiers. Mapping files use both conventions: a flag column
// (1/0, X/blank) alongside the category column, or a default-category
// column that holds the category value itself.
var flagIndicators = map[string]bool{
	"1": true, "x": true, "y": true, "yes": true, "true": true, "t": true,
}

// MapCodes joins a user table's code column against a mapping table and
// shapes the result. It is a pure transformation: both tables are already
// materialized, and no I/O happens here.
//
// Unmatched codes are never dropped; each produces exactly one output row
// with a null category, and the count is reported on the Result for the
// caller to surface as a warning.
func MapCodes(records *tabular.Table, codeColumn string, mt *Table, opts Options) (*Result, error) {
	format := opts.Format
	if format == "" {
		format = FormatLong
	}
	if format != FormatLong && format != FormatWide {
		return nil, ErrInvalidOutputFormat
	}

	if records == nil {
		return nil, ErrInvalidMapping
	}
	codeIdx := records.ColumnIndex(codeColumn)
	if codeIdx < 0 {
		return nil, &ColumnNotFoundError{Role: RoleUserCode}
	}
	if mt == nil || mt.Data == nil || len(mt.Data.Columns) == 0 {
		return nil, ErrInvalidMapping
	}

	family := opts.Family
	if family == "" {
		family = mt.Family
	}
	familyDefaulted := false
	if family == "" {
		var confident bool
		family, confident = InferFamily(mt.Data)
		familyDefaulted = !confident
	}

	roles, err := InferColumns(mt.Data, family, opts.DefaultOnly)
	if err != nil {
		return nil, err
	}

	entries, index := buildEntries(mt, family, roles, opts.DefaultOnly)

	// Input tables may carry arbitrary extra columns, including ones named
	// like the join outputs. The joined columns must stay distinct, or the
	// name lookups in projection and the wide pivot resolve to the caller's
	// data instead of the join results.
	hasDescription := roles.Description != ""
	catCol := joinedColumnName(records.Columns, CategoryColumn)
	joinedCols := make([]string, 0, len(records.Columns)+2)
	joinedCols = append(joinedCols, records.Columns...)
	joinedCols = append(joinedCols, catCol)
	descCol := ""
	if hasDescription {
		descCol = joinedColumnName(joinedCols, DescriptionColumn)
		joinedCols = append(joinedCols, descCol)
	}
	joined := tabular.New(joinedCols...)

	// Left outer join, preserving input order. Cross-classified rows for a
	// record stay contiguous and in mapping-table order.
	unmatched := 0
	for rowIdx := range records.Rows {
		code := ""
		if cell := records.Cell(rowIdx, codeIdx); cell != nil {
			code = NormalizeCode(*cell)
		}
		matches := index[code]
		if code == "" {
			matches = nil
		}
		if len(matches) == 0 {
			unmatched++
			appendJoinedRow(joined, records.Rows[rowIdx], nil, nil, hasDescription)
			continue
		}
		for _, ei := range matches {
			e := entries[ei]
			appendJoinedRow(joined, records.Rows[rowIdx], e.category, e.description, hasDescription)
		}
	}

	out := joined
	if format == FormatWide && !opts.DefaultOnly && family == version.FamilyDiagnosis {
		out, err = toWide(joined, codeColumn, catCol, descCol, opts.WideDescription)
		if err != nil {
			return nil, err
		}
	}

	if !opts.KeepAllColumns {
		out = projectMapped(out, codeColumn, records.Columns)
	}

	return &Result{
		Table:           out,
		Family:          family,
		Roles:           roles,
		Unmatched:       unmatched,
		FamilyDefaulted: familyDefaulted,
	}, nil
}

// buildEntries materializes the joinable entries in mapping-table order and
// an index from normalized code to entry positions.
//
// When default narrowing is active the table is filtered to rows whose
// default indicator is truthy, and the default column becomes the effective
// category source: if it carries a bare flag the category column supplies
// the value, otherwise the default cell itself is the category. A code with
// several rows marked default keeps the first occurrence only; a code with
// none simply disappears from the index and joins as unmatched.
func buildEntries(mt *Table, family version.Family, roles ColumnRoles, defaultOnly bool) ([]mappingEntry, map[string][]int) {
	data := mt.Data
	codeIdx := data.ColumnIndex(roles.Code)
	catIdx := data.ColumnIndex(roles.Category)
	defIdx := -1
	if roles.Default != "" {
		defIdx = data.ColumnIndex(roles.Default)
	}
	descIdx := -1
	if roles.Description != "" {
		descIdx = data.ColumnIndex(roles.Description)
	}

	narrow := defaultOnly && family == version.FamilyDiagnosis && defIdx >= 0

	var entries []mappingEntry
	index := make(map[string][]int)
	defaulted := make(map[string]bool)

	for rowIdx := range data.Rows {
		codeCell := data.Cell(rowIdx, codeIdx)
		if codeCell == nil {
			continue
		}
		code := NormalizeCode(*codeCell)
		if code == "" {
			continue
		}

		category := data.Cell(rowIdx, catIdx)
		if narrow {
			defCell := data.Cell(rowIdx, defIdx)
			if defCell == nil {
				continue
			}
			indicator := strings.ToLower(NormalizeCode(*defCell))
			if falsyIndicators[indicator] {
				continue
			}
			if defaulted[code] {
				continue
			}
			defaulted[code] = true
			if !flagIndicators[indicator] {
				v := NormalizeCode(*defCell)
				category = &v
			}
		}

		e := mappingEntry{code: code, category: category}
		if descIdx >= 0 {
			e.description = data.Cell(rowIdx, descIdx)
		}
		entries = append(entries, e)
		index[code] = append(index[code], len(entries)-1)
	}
	return entries, index
}

func appendJoinedRow(t *tabular.Table, record []*string, category, description *string, hasDescription bool) {
	row := make([]*string, 0, len(record)+2)
	row = append(row, record...)
	row = append(row, category)
	if hasDescription {
		row = append(row, description)
	}
	// Rows are built to the table's width, so AppendRow cannot fail.
	_ = t.AppendRow(row...)
}

// projectMapped drops every column except the user code column and the
// joined category/description columns (including the numbered wide-format
// category slots).
// projectMapped drops the input columns other than the user code column,
// leaving whichever columns the mapping added (category, description, the
// numbered wide slots). Join-time naming keeps the added columns distinct
// from the input header, so anything absent from it was added here.
func projectMapped(t *tabular.Table, codeColumn string, inputColumns []string) *tabular.Table {
	input := make(map[string]bool, len(inputColumns))
	for _, col := range inputColumns {
		input[col] = true
	}
	keep := make([]int, 0, len(t.Columns))
	var cols []string
	for i, col := range t.Columns {
		if col == codeColumn || !input[col] {
			keep = append(keep, i)
			cols = append(cols, col)
		}
	}
	out := tabular.New(cols...)
	for rowIdx := range t.Rows {
		row := make([]*string, 0, len(keep))
		for _, i := range keep {
			row = append(row, t.Cell(rowIdx, i))
		}
		_ = out.AppendRow(row...)
	}
	return out
}

// joinedColumnName returns name unless the table already owns it, in which
// case a ccsr-prefixed (then numbered) variant keeps the joined column
// distinct from the caller's data.
func joinedColumnName(taken []string, name string) string {
	has := func(candidate string) bool {
		for _, col := range taken {
			if col == candidate {
				return true
			}
		}
		return false
	}
	if !has(name) {
		return name
	}
	candidate := "ccsr_" + name
	for i := 2; has(candidate); i++ {
		candidate = fmt.Sprintf("ccsr_%s_%d", name, i)
	}
	return candidate
}
