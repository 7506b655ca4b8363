package mapping

import (
	"regexp"
	"strings"

	"github.com/vikrant31/HCUPtools/internal/domain/version"
	"github.com/vikrant31/HCUPtools/internal/platform/tabular"
)

// Column identifiers in published mapping files drift across versions and
// families ('ICD-10-CM CODE', ICD10CM_Code, DX, prccsr, CCSR CATEGORY 1,
// Default CCSR CATEGORY IP, ...). Each role therefore carries an ordered
// list of matchers per family; the first pattern with a matching column
// wins, and pattern priority outranks column position. Adding a new naming
// convention is a one-line change to these tables.

type roleMatcher struct {
	pattern *regexp.Regexp
	// reject disqualifies columns that the pattern would otherwise claim,
	// e.g. a category matcher must not claim "CCSR Category Description"
	// and must not claim "Default CCSR Category".
	reject *regexp.Regexp
}

func m(pattern, reject string) roleMatcher {
	rm := roleMatcher{pattern: regexp.MustCompile(pattern)}
	if reject != "" {
		rm.reject = regexp.MustCompile(reject)
	}
	return rm
}

var roleMatchers = map[version.Family]map[Role][]roleMatcher{
	version.FamilyDiagnosis: {
		RoleCode: {
			m(`icd[ _-]?10[ _-]?cm.*code`, `desc`),
			m(`icd[ _-]?10.*code`, `desc`),
			m(`diagnosis[ _-]?code`, `desc`),
			m(`^code$`, ``),
			m(`^dx$`, ``),
		},
		RoleCategory: {
			m(`ccsr[ _-]?category`, `desc|default`),
			m(`^ccsr$`, ``),
			m(`category`, `desc|default`),
		},
		RoleDefault: {
			m(`default[ _-]?ccsr[ _-]?category`, `desc`),
			m(`default[ _-]?category`, `desc`),
			m(`default`, `desc`),
		},
		RoleDescription: {
			m(`categor.*desc`, ``),
			m(`desc`, ``),
		},
	},
	version.FamilyProcedure: {
		RoleCode: {
			m(`icd[ _-]?10[ _-]?pcs.*code`, `desc`),
			m(`icd[ _-]?10.*code`, `desc`),
			m(`procedure[ _-]?code`, `desc`),
			m(`^code$`, ``),
			m(`^pr$`, ``),
		},
		RoleCategory: {
			// The family acronym is tried first: it collides less with
			// generic "category" columns in user-augmented tables.
			m(`^prccsr$`, ``),
			m(`ccsr[ _-]?category`, `desc|default`),
			m(`^ccsr$`, ``),
			m(`category`, `desc|default`),
		},
		RoleDescription: {
			m(`categor.*desc`, ``),
			m(`desc`, ``),
		},
	},
}

// normalizeIdent canonicalizes a column identifier for matching: quotes
// stripped, trimmed, lowercased.
func normalizeIdent(s string) string {
	return strings.ToLower(NormalizeCode(s))
}

// findColumn returns the first column claimed by the ordered matcher list,
// or "" when none matches.
func findColumn(columns []string, matchers []roleMatcher) string {
	for _, rm := range matchers {
		for _, col := range columns {
			ident := normalizeIdent(col)
			if !rm.pattern.MatchString(ident) {
				continue
			}
			if rm.reject != nil && rm.reject.MatchString(ident) {
				continue
			}
			return col
		}
	}
	return ""
}

// InferColumns resolves the column roles of a mapping table for a declared
// family. Code and category are mandatory and fail with ColumnNotFoundError
// when no pattern matches. The default column is looked up only for the
// diagnosis family and only when wantDefault is set; its absence, like the
// description column's, is not an error -- the feature is simply
// unavailable.
func InferColumns(t *tabular.Table, family version.Family, wantDefault bool) (ColumnRoles, error) {
	matchers, ok := roleMatchers[family]
	if !ok {
		matchers = roleMatchers[version.FamilyDiagnosis]
	}

	var roles ColumnRoles
	if roles.Code = findColumn(t.Columns, matchers[RoleCode]); roles.Code == "" {
		return ColumnRoles{}, &ColumnNotFoundError{Role: RoleCode}
	}
	if roles.Category = findColumn(t.Columns, matchers[RoleCategory]); roles.Category == "" {
		return ColumnRoles{}, &ColumnNotFoundError{Role: RoleCategory}
	}
	if wantDefault && family == version.FamilyDiagnosis {
		roles.Default = findColumn(t.Columns, matchers[RoleDefault])
	}
	roles.Description = findColumn(t.Columns, matchers[RoleDescription])
	return roles, nil
}

// familySampleLimit bounds how many code values family inference examines.
const familySampleLimit = 100

var (
	dxColumnHint = regexp.MustCompile(`icd[ _-]?10[ _-]?cm|diagnosis|(^|[ _-])dx($|[ _-])`)
	prColumnHint = regexp.MustCompile(`icd[ _-]?10[ _-]?pcs|procedure|^prccsr$|(^|[ _-])pr($|[ _-])`)
)

// InferFamily guesses the family of an undeclared mapping table. Column
// identifiers are inspected for family-specific substrings first; when that
// is inconclusive, up to 100 non-null values from the best-guess code
// column are classified by lexical shape: a period separator implies the
// dotted diagnosis notation, a leading digit implies a procedure code. A
// table that defeats both checks defaults to diagnosis with ok=false, and
// the caller is expected to warn.
func InferFamily(t *tabular.Table) (version.Family, bool) {
	var dxHit, prHit bool
	for _, col := range t.Columns {
		ident := normalizeIdent(col)
		if dxColumnHint.MatchString(ident) {
			dxHit = true
		}
		if prColumnHint.MatchString(ident) {
			prHit = true
		}
	}
	if dxHit != prHit {
		if dxHit {
			return version.FamilyDiagnosis, true
		}
		return version.FamilyProcedure, true
	}

	codeCol := bestGuessCodeColumn(t)
	sampled := 0
	leadingDigit := false
	for row := 0; row < t.NumRows() && sampled < familySampleLimit; row++ {
		cell := t.Cell(row, codeCol)
		if cell == nil {
			continue
		}
		code := NormalizeCode(*cell)
		if code == "" {
			continue
		}
		sampled++
		if strings.Contains(code, ".") {
			return version.FamilyDiagnosis, true
		}
		if code[0] >= '0' && code[0] <= '9' {
			leadingDigit = true
		}
	}
	if sampled > 0 && leadingDigit {
		return version.FamilyProcedure, true
	}
	return version.FamilyDiagnosis, false
}

// bestGuessCodeColumn picks the column most likely to hold codes, for
// family inference only: either family's code matchers, else column zero.
func bestGuessCodeColumn(t *tabular.Table) int {
	for _, fam := range []version.Family{version.FamilyDiagnosis, version.FamilyProcedure} {
		if col := findColumn(t.Columns, roleMatchers[fam][RoleCode]); col != "" {
			return t.ColumnIndex(col)
		}
	}
	return 0
}
