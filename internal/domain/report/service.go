// Package report provides access to the versioned statistical reference
// workbooks published alongside each CCSR release.
package report

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/vikrant31/HCUPtools/internal/domain/mapping"
	"github.com/vikrant31/HCUPtools/internal/domain/version"
	"github.com/vikrant31/HCUPtools/internal/platform/tabular"
)

// Service fetches and parses report workbooks. It reuses the mapping
// fetcher's artifact download-and-cache path; workbooks live next to the
// mapping archives under the same version.
type Service struct {
	resolver *version.Resolver
	fetcher  *mapping.Fetcher
	log      zerolog.Logger
}

// NewService creates a report service.
func NewService(resolver *version.Resolver, fetcher *mapping.Fetcher, log zerolog.Logger) *Service {
	return &Service{resolver: resolver, fetcher: fetcher, log: log}
}

func (s *Service) workbook(ctx context.Context, family version.Family, requested string, force bool) ([]byte, version.Tag, error) {
	tag, err := s.resolver.Resolve(ctx, family, requested, force)
	if err != nil {
		return nil, version.Tag{}, err
	}
	data, err := s.fetcher.Artifact(ctx, tag, tag.ReferenceWorkbookName(), force)
	if err != nil {
		return nil, tag, err
	}
	return data, tag, nil
}

// Sheets lists the sheet names of the reference workbook for a version.
func (s *Service) Sheets(ctx context.Context, family version.Family, requested string, force bool) ([]string, version.Tag, error) {
	data, tag, err := s.workbook(ctx, family, requested, force)
	if err != nil {
		return nil, tag, err
	}
	sheets, err := tabular.SheetNames(data)
	if err != nil {
		return nil, tag, fmt.Errorf("report %s: %w", tag.ReferenceWorkbookName(), err)
	}
	return sheets, tag, nil
}

// Sheet parses one sheet of the reference workbook into a table. An empty
// sheet name selects the first sheet.
func (s *Service) Sheet(ctx context.Context, family version.Family, requested, sheet string, force bool) (*tabular.Table, version.Tag, error) {
	data, tag, err := s.workbook(ctx, family, requested, force)
	if err != nil {
		return nil, tag, err
	}
	t, err := tabular.ReadWorkbookSheet(data, sheet)
	if err != nil {
		return nil, tag, fmt.Errorf("report %s: %w", tag.ReferenceWorkbookName(), err)
	}
	return t, tag, nil
}
