package version

import "context"

// Service exposes version resolution to the transport layers. It validates
// user-supplied family strings and delegates to the resolver.
type Service struct {
	resolver *Resolver
}

// NewService creates a version service.
func NewService(resolver *Resolver) *Service {
	return &Service{resolver: resolver}
}

// Resolve resolves a requested version ("latest", empty, or an explicit
// tag) for a family given by name.
func (s *Service) Resolve(ctx context.Context, family, requested string, force bool) (Tag, error) {
	f, err := ParseFamily(family)
	if err != nil {
		return Tag{}, err
	}
	return s.resolver.Resolve(ctx, f, requested, force)
}

// List enumerates the published versions of a family, newest first.
func (s *Service) List(ctx context.Context, family string, force bool) ([]Tag, error) {
	f, err := ParseFamily(family)
	if err != nil {
		return nil, err
	}
	return s.resolver.List(ctx, f, force)
}
