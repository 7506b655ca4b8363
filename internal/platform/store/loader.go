package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vikrant31/HCUPtools/internal/domain/mapping"
	"github.com/vikrant31/HCUPtools/internal/domain/version"
)

const mappingDDL = `
CREATE TABLE IF NOT EXISTS ccsr_mapping (
    family      text        NOT NULL,
    version     text        NOT NULL,
    code        text        NOT NULL,
    category    text,
    is_default  boolean,
    description text
);
CREATE INDEX IF NOT EXISTS ccsr_mapping_code_idx
    ON ccsr_mapping (family, version, code);
`

// LoadMapping materializes a mapping table into Postgres in normalized
// (long) form: one row per (code, category) pair, with the default indicator
// carried as a boolean. Any previously loaded copy of the same family and
// version is replaced. Returns the number of rows copied.
func LoadMapping(ctx context.Context, pool *pgxpool.Pool, tag version.Tag, mt *mapping.Table, roles mapping.ColumnRoles) (int64, error) {
	if _, err := pool.Exec(ctx, mappingDDL); err != nil {
		return 0, fmt.Errorf("create ccsr_mapping: %w", err)
	}

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
	if codeIdx < 0 || catIdx < 0 {
		return 0, fmt.Errorf("load mapping: unresolved code or category column")
	}

	rows := make([][]interface{}, 0, data.NumRows())
	for rowIdx := range data.Rows {
		codeCell := data.Cell(rowIdx, codeIdx)
		if codeCell == nil {
			continue
		}
		code := mapping.NormalizeCode(*codeCell)
		if code == "" {
			continue
		}

		var category, description interface{}
		if c := data.Cell(rowIdx, catIdx); c != nil {
			category = mapping.NormalizeCode(*c)
		}
		if descIdx >= 0 {
			if c := data.Cell(rowIdx, descIdx); c != nil {
				description = *c
			}
		}

		var isDefault interface{}
		if defIdx >= 0 {
			if c := data.Cell(rowIdx, defIdx); c != nil {
				v := strings.ToLower(mapping.NormalizeCode(*c))
				isDefault = v != "" && v != "0" && v != "n" && v != "no" && v != "false" && v != "."
			}
		}

		rows = append(rows, []interface{}{
			string(tag.Family), tag.String(), code, category, isDefault, description,
		})
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`DELETE FROM ccsr_mapping WHERE family = $1 AND version = $2`,
		string(tag.Family), tag.String(),
	); err != nil {
		return 0, fmt.Errorf("clear existing rows: %w", err)
	}

	copied, err := tx.CopyFrom(ctx,
		pgx.Identifier{"ccsr_mapping"},
		[]string{"family", "version", "code", "category", "is_default", "description"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return 0, fmt.Errorf("copy ccsr_mapping: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return copied, nil
}
