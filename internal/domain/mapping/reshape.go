package mapping

import (
	"fmt"
	"strings"

	"github.com/vikrant31/HCUPtools/internal/platform/tabular"
)

// ToWide pivots a long-format joined table into wide format: one row per
// record, with the record's categories spread across numbered slots
// category_1..category_k. k is the maximum cross-classification count
// observed anywhere in the input; records with fewer categories get null in
// the remaining slots.
//
// Rows are grouped by full record identity -- every column except the
// category column -- so duplicate input records pivot independently of
// position. Groups appear in first-occurrence order and slots are assigned
// in row order within a group, which after a join is mapping-table order.
// The description column, when present, is dropped: it is per-category and
// has no slot in the wide shape. Slot names shift to a ccsr_ prefix when the
// key columns already use the plain numbered names.
func ToWide(joined *tabular.Table, userCodeColumn, categoryColumn string) (*tabular.Table, error) {
	return toWide(joined, userCodeColumn, categoryColumn, DescriptionColumn, false)
}

type wideGroup struct {
	key         []*string
	categories  []*string
	description *string
}

func toWide(joined *tabular.Table, userCodeColumn, categoryColumn, descriptionColumn string, keepDescription bool) (*tabular.Table, error) {
	if joined.ColumnIndex(userCodeColumn) < 0 {
		return nil, &ColumnNotFoundError{Role: RoleUserCode}
	}
	catIdx := joined.ColumnIndex(categoryColumn)
	if catIdx < 0 {
		return nil, &ColumnNotFoundError{Role: RoleCategory}
	}
	descIdx := -1
	if descriptionColumn != "" {
		descIdx = joined.ColumnIndex(descriptionColumn)
	}
	if descIdx == catIdx {
		descIdx = -1
	}

	keyIdx := make([]int, 0, len(joined.Columns))
	keyCols := make([]string, 0, len(joined.Columns))
	for i, col := range joined.Columns {
		if i == catIdx || i == descIdx {
			continue
		}
		keyIdx = append(keyIdx, i)
		keyCols = append(keyCols, col)
	}

	groups := make(map[string]*wideGroup)
	var order []*wideGroup
	for rowIdx := range joined.Rows {
		key := groupKey(joined, rowIdx, keyIdx)
		g, ok := groups[key]
		if !ok {
			cells := make([]*string, len(keyIdx))
			for i, ci := range keyIdx {
				cells[i] = joined.Cell(rowIdx, ci)
			}
			g = &wideGroup{key: cells}
			groups[key] = g
			order = append(order, g)
		}
		g.categories = append(g.categories, joined.Cell(rowIdx, catIdx))
		if descIdx >= 0 && g.description == nil {
			g.description = joined.Cell(rowIdx, descIdx)
		}
	}

	kMax := 0
	for _, g := range order {
		if n := countCategories(g); n > kMax {
			kMax = n
		}
	}

	// Key columns come from the input table and may themselves be named like
	// a slot, so the slot base shifts until no numbered name is taken.
	slotBase := categoryColumn
	for slotNameTaken(keyCols, slotBase, kMax) {
		slotBase = "ccsr_" + slotBase
	}

	cols := make([]string, 0, len(keyCols)+kMax+1)
	cols = append(cols, keyCols...)
	for i := 1; i <= kMax; i++ {
		cols = append(cols, fmt.Sprintf("%s_%d", slotBase, i))
	}
	if keepDescription && descIdx >= 0 {
		cols = append(cols, descriptionColumn)
	}

	out := tabular.New(cols...)
	for _, g := range order {
		row := make([]*string, 0, len(cols))
		row = append(row, g.key...)
		slot := 0
		for _, cat := range g.categories {
			if cat == nil {
				continue
			}
			row = append(row, cat)
			slot++
		}
		for ; slot < kMax; slot++ {
			row = append(row, nil)
		}
		if keepDescription && descIdx >= 0 {
			row = append(row, g.description)
		}
		if err := out.AppendRow(row...); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// slotNameTaken reports whether any numbered slot name built from base would
// collide with an existing key column.
func slotNameTaken(cols []string, base string, k int) bool {
	for i := 1; i <= k; i++ {
		name := fmt.Sprintf("%s_%d", base, i)
		for _, col := range cols {
			if col == name {
				return true
			}
		}
	}
	return false
}

// countCategories counts the non-null categories of a group. A group whose
// only row came from an unmatched join has zero and contributes no slots.
func countCategories(g *wideGroup) int {
	n := 0
	for _, c := range g.categories {
		if c != nil {
			n++
		}
	}
	return n
}

// groupKey renders a row's key cells into a map key, distinguishing null
// from empty and escaping the separator.
func groupKey(t *tabular.Table, row int, keyIdx []int) string {
	var b strings.Builder
	for _, ci := range keyIdx {
		cell := t.Cell(row, ci)
		if cell == nil {
			b.WriteString("\x00N")
		} else {
			b.WriteString("\x00V")
			b.WriteString(strings.ReplaceAll(*cell, "\x00", "\x00\x00"))
		}
	}
	return b.String()
}
