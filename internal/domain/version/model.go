// Package version implements dataset version resolution for the CCSR code
// mapping files published by HCUP. There is no version-list endpoint
// upstream, so "latest" is discovered by probing candidate artifact URLs and
// scraping catalog pages, with a hard-coded synthesis as the final tier.
package version

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
)

// Family identifies one of the two parallel CCSR classification schemes.
type Family string

const (
	// FamilyDiagnosis is the ICD-10-CM diagnosis scheme (DXCCSR).
	FamilyDiagnosis Family = "dx"
	// FamilyProcedure is the ICD-10-PCS procedure scheme (PRCCSR).
	FamilyProcedure Family = "pr"
)

// ErrInvalidVersionFormat reports a version string that is not vYYYY.N,
// vYYYY-N or vYYYY_N.
var ErrInvalidVersionFormat = errors.New("version: invalid version format, want vYYYY.N")

// ErrUnknownFamily reports a family string that is neither diagnosis nor
// procedure.
var ErrUnknownFamily = errors.New("version: unknown family, want dx or pr")

// ParseFamily normalizes a family string. It accepts the short codes and the
// spelled-out names used in user-facing surfaces.
func ParseFamily(s string) (Family, error) {
	switch s {
	case "dx", "diagnosis", "DX":
		return FamilyDiagnosis, nil
	case "pr", "procedure", "PR":
		return FamilyProcedure, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFamily, s)
}

// Prefix returns the artifact filename prefix for the family.
func (f Family) Prefix() string {
	if f == FamilyProcedure {
		return "PRCCSR"
	}
	return "DXCCSR"
}

// CatalogPage returns the family's catalog page, relative to the base URL.
func (f Family) CatalogPage() string {
	if f == FamilyProcedure {
		return "prccsr.jsp"
	}
	return "dxccsr.jsp"
}

// ArchivePage is the combined archive catalog listing older releases of both
// families, relative to the base URL.
const ArchivePage = "ccsr_archive.jsp"

// procedureHyphenYear is the year the procedure family switched its artifact
// filename separator from underscore to hyphen. The diagnosis family has
// used hyphens for every published year. This is a fixed era rule of the
// upstream naming scheme, not something that can be inferred.
const procedureHyphenYear = 2021

// Tag identifies one dataset release: a (family, year, minor) triple.
type Tag struct {
	Family Family `json:"family"`
	Year   int    `json:"year"`
	Minor  int    `json:"minor"`
}

var tagRe = regexp.MustCompile(`^v(\d{4})[.\-_](\d{1,2})$`)

// Parse validates and parses an explicit version string for a family. No
// remote check is performed; a syntactically valid tag that was never
// published fails later at fetch time.
func Parse(family Family, s string) (Tag, error) {
	m := tagRe.FindStringSubmatch(s)
	if m == nil {
		return Tag{}, fmt.Errorf("%w: %q", ErrInvalidVersionFormat, s)
	}
	year, _ := strconv.Atoi(m[1])
	minor, _ := strconv.Atoi(m[2])
	if minor == 0 {
		return Tag{}, fmt.Errorf("%w: %q", ErrInvalidVersionFormat, s)
	}
	return Tag{Family: family, Year: year, Minor: minor}, nil
}

// String renders the canonical form, vYYYY.N.
func (t Tag) String() string {
	return fmt.Sprintf("v%d.%d", t.Year, t.Minor)
}

// separator returns the year/minor separator of the family's filename era.
func (t Tag) separator() string {
	if t.Family == FamilyProcedure && t.Year < procedureHyphenYear {
		return "_"
	}
	return "-"
}

// FileVersion renders the URL form of the tag, vYYYY-N or vYYYY_N depending
// on the family's era.
func (t Tag) FileVersion() string {
	return fmt.Sprintf("v%d%s%d", t.Year, t.separator(), t.Minor)
}

// ArchiveName returns the mapping-archive filename for the tag, e.g.
// DXCCSR_v2023-1.zip. The grammar must match the upstream naming exactly;
// it is the interoperability contract for both probing and download.
func (t Tag) ArchiveName() string {
	return fmt.Sprintf("%s_%s.zip", t.Family.Prefix(), t.FileVersion())
}

// ReferenceWorkbookName returns the statistical reference workbook filename
// for the tag, e.g. DXCCSR-Reference-File-v2023-1.xlsx.
func (t Tag) ReferenceWorkbookName() string {
	return fmt.Sprintf("%s-Reference-File-v%d-%d.xlsx", t.Family.Prefix(), t.Year, t.Minor)
}

// Newer reports whether t is a more recent release than o. Ordering is total
// within a family: year dominates, then minor. Minors are integers, never
// decimal fractions, so v2025.10 is newer than v2025.1.
func (t Tag) Newer(o Tag) bool {
	if t.Year != o.Year {
		return t.Year > o.Year
	}
	return t.Minor > o.Minor
}

// IsZero reports whether t is the zero Tag.
func (t Tag) IsZero() bool { return t.Year == 0 }
