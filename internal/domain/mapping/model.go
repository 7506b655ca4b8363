// Package mapping implements the CCSR code-mapping engine: inferring which
// columns of a loaded mapping table play which role, joining a user table's
// code column against it, and reshaping the one-to-many code-to-category
// relationships into long or wide form.
package mapping

import (
	"errors"
	"fmt"
	"strings"

	"github.com/vikrant31/HCUPtools/internal/domain/version"
	"github.com/vikrant31/HCUPtools/internal/platform/tabular"
)

// Role names a logical column role inside a mapping operation.
type Role string

const (
	// RoleCode is the mapping table's code column.
	RoleCode Role = "code"
	// RoleCategory is the mapping table's category column.
	RoleCategory Role = "category"
	// RoleDefault is the diagnosis family's default-category column.
	RoleDefault Role = "default"
	// RoleDescription is the optional description column.
	RoleDescription Role = "description"
	// RoleUserCode is the code column of the caller's input table.
	RoleUserCode Role = "user_code"
)

// ColumnNotFoundError reports that no column could be resolved for a
// mandatory role. Optional roles (default, description) never produce it;
// their absence just disables the feature.
type ColumnNotFoundError struct {
	Role Role
}

func (e *ColumnNotFoundError) Error() string {
	return fmt.Sprintf("mapping: no column found for role %q", e.Role)
}

// ErrInvalidMapping reports a mapping table that cannot be joined against.
var ErrInvalidMapping = errors.New("mapping: invalid mapping table")

// ErrInvalidOutputFormat reports an output format other than long or wide.
var ErrInvalidOutputFormat = errors.New("mapping: invalid output format, want long or wide")

// OutputFormat selects the shape of the mapped result.
type OutputFormat string

const (
	// FormatLong emits one row per (record, mapping entry) pair.
	FormatLong OutputFormat = "long"
	// FormatWide emits one row per record with numbered category slots.
	FormatWide OutputFormat = "wide"
)

// Output column names added by the join. Wide format replaces CategoryColumn
// with numbered slots (category_1..category_k).
const (
	CategoryColumn    = "category"
	DescriptionColumn = "description"
)

// ColumnRoles is the resolved mapping of roles to concrete column names for
// one mapping-table instance. Optional roles are empty when absent. It is
// computed per operation and never persisted.
type ColumnRoles struct {
	Code        string `json:"code"`
	Category    string `json:"category"`
	Default     string `json:"default,omitempty"`
	Description string `json:"description,omitempty"`
}

// Table is a loaded mapping table: parsed rows tagged with the family that
// determines which inference pattern set applies. A zero Family means the
// family was not declared and must be inferred.
type Table struct {
	Family version.Family
	Data   *tabular.Table
}

// Options control a map operation.
type Options struct {
	// Format selects long or wide output. Empty means long.
	Format OutputFormat `json:"format"`
	// Family declares the code family. Empty triggers inference.
	Family version.Family `json:"family"`
	// DefaultOnly narrows diagnosis mappings to the entry marked default
	// per code. Ignored when the mapping table has no default column.
	DefaultOnly bool `json:"default_only"`
	// KeepAllColumns retains every input column in the output. When false
	// the result is projected down to the code column plus the joined
	// category (and description, if present).
	KeepAllColumns bool `json:"keep_all_columns"`
	// WideDescription retains one description per record in wide output,
	// taken from the record's first joined entry. Wide output otherwise
	// drops descriptions entirely.
	WideDescription bool `json:"wide_description"`
}

// Result is the outcome of a map operation.
type Result struct {
	// Table is the joined and reshaped output.
	Table *tabular.Table `json:"table"`
	// Family is the declared or inferred family the join used.
	Family version.Family `json:"family"`
	// Roles are the resolved mapping-table column roles.
	Roles ColumnRoles `json:"roles"`
	// Unmatched counts input rows whose code had no mapping entry. These
	// rows are present in the output with a null category; a non-zero
	// count is reported as a warning, never an error.
	Unmatched int `json:"unmatched"`
	// FamilyDefaulted is set when the family was neither declared nor
	// inferable and the diagnosis family was assumed. Callers should warn.
	FamilyDefaulted bool `json:"family_defaulted,omitempty"`
}

// NormalizeCode canonicalizes a code value for joining: surrounding quote
// characters are stripped and whitespace trimmed. Internal characters,
// punctuation and leading zeros are preserved exactly -- codes are
// identifiers, never numbers. CCSR CSV files wrap codes in single quotes
// ('A000') precisely to defeat spreadsheet numeric coercion.
func NormalizeCode(s string) string {
	s = strings.TrimSpace(s)
	for len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if (first == '\'' && last == '\'') || (first == '"' && last == '"') {
			s = strings.TrimSpace(s[1 : len(s)-1])
			continue
		}
		break
	}
	return s
}
