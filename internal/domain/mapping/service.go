package mapping

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/vikrant31/HCUPtools/internal/domain/version"
	"github.com/vikrant31/HCUPtools/internal/platform/tabular"
)

// Service exposes the mapping engine to transport layers, adding artifact
// fetching and operational logging around the pure core.
type Service struct {
	fetcher *Fetcher
	log     zerolog.Logger
}

// NewService creates a mapping service. fetcher may be nil when only
// caller-supplied mapping tables are used.
func NewService(fetcher *Fetcher, log zerolog.Logger) *Service {
	return &Service{fetcher: fetcher, log: log}
}

// MapCodes joins records against a caller-supplied mapping table. Warnings
// (unmatched codes, defaulted family) are logged here; the core stays pure.
func (s *Service) MapCodes(records *tabular.Table, codeColumn string, mt *Table, opts Options) (*Result, error) {
	res, err := MapCodes(records, codeColumn, mt, opts)
	if err != nil {
		return nil, err
	}
	if res.FamilyDefaulted {
		s.log.Warn().Msg("code family could not be inferred; assuming diagnosis")
	}
	if res.Unmatched > 0 {
		s.log.Warn().
			Int("unmatched", res.Unmatched).
			Int("rows", records.NumRows()).
			Msg("input codes without mapping entries produced null categories")
	}
	return res, nil
}

// MapAgainstVersion fetches the mapping table for (family, requested
// version) and joins records against it.
func (s *Service) MapAgainstVersion(ctx context.Context, records *tabular.Table, codeColumn string, family version.Family, requested string, force bool, opts Options) (*Result, version.Tag, error) {
	mt, tag, err := s.fetcher.MappingTable(ctx, family, requested, force)
	if err != nil {
		return nil, tag, err
	}
	if opts.Family == "" {
		opts.Family = family
	}
	res, err := s.MapCodes(records, codeColumn, mt, opts)
	if err != nil {
		return nil, tag, err
	}
	return res, tag, nil
}

// InferColumns resolves mapping-table column roles without mapping.
func (s *Service) InferColumns(t *tabular.Table, family version.Family, wantDefault bool) (ColumnRoles, error) {
	return InferColumns(t, family, wantDefault)
}

// ToWide pivots an already-joined long table to wide format.
func (s *Service) ToWide(joined *tabular.Table, userCodeColumn, categoryColumn string) (*tabular.Table, error) {
	return ToWide(joined, userCodeColumn, categoryColumn)
}
