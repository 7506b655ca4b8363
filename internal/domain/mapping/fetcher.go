package mapping

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/vikrant31/HCUPtools/internal/domain/version"
	"github.com/vikrant31/HCUPtools/internal/platform/cache"
	"github.com/vikrant31/HCUPtools/internal/platform/tabular"
)

// Downloader pulls artifact bytes from the upstream site.
type Downloader interface {
	FetchBytes(ctx context.Context, url string) ([]byte, error)
}

// Fetcher resolves a (family, version) pair to a parsed mapping table,
// downloading and caching the ZIP artifact as needed. Artifacts are
// immutable once published, so cached copies never expire; force re-downloads
// anyway.
type Fetcher struct {
	resolver   *version.Resolver
	downloader Downloader
	store      cache.Store
	baseURL    string
	log        zerolog.Logger
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithFetcherBaseURL overrides the upstream base URL.
func WithFetcherBaseURL(u string) FetcherOption {
	return func(f *Fetcher) {
		if u != "" && u[len(u)-1] != '/' {
			u += "/"
		}
		f.baseURL = u
	}
}

// WithFetcherLogger sets the fetcher's logger.
func WithFetcherLogger(log zerolog.Logger) FetcherOption {
	return func(f *Fetcher) { f.log = log }
}

// NewFetcher creates a Fetcher.
func NewFetcher(resolver *version.Resolver, downloader Downloader, store cache.Store, opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		resolver:   resolver,
		downloader: downloader,
		store:      store,
		baseURL:    version.DefaultBaseURL,
		log:        zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// ArtifactKey returns the cache key for a tag's artifact, laid out as
// family/version/filename so the on-disk cache stays browsable.
func ArtifactKey(tag version.Tag, filename string) string {
	return fmt.Sprintf("%s/%s/%s", tag.Family, tag.String(), filename)
}

// Artifact returns the raw bytes of a named artifact for a tag, from cache
// or download.
func (f *Fetcher) Artifact(ctx context.Context, tag version.Tag, filename string, force bool) ([]byte, error) {
	key := ArtifactKey(tag, filename)
	if !force {
		if data, _, ok := f.store.Get(ctx, key); ok {
			return data, nil
		}
	}

	url := f.baseURL + filename
	data, err := f.downloader.FetchBytes(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", filename, err)
	}
	if err := f.store.Put(ctx, key, data); err != nil {
		// A failed cache write is not fatal; the download succeeded.
		f.log.Warn().Err(err).Str("key", key).Msg("failed to cache artifact")
	}
	f.log.Info().Str("url", url).Int("bytes", len(data)).Msg("downloaded artifact")
	return data, nil
}

// MappingTable resolves the requested version and returns the parsed
// mapping table for it.
func (f *Fetcher) MappingTable(ctx context.Context, family version.Family, requested string, force bool) (*Table, version.Tag, error) {
	tag, err := f.resolver.Resolve(ctx, family, requested, force)
	if err != nil {
		return nil, version.Tag{}, err
	}

	data, err := f.Artifact(ctx, tag, tag.ArchiveName(), force)
	if err != nil {
		return nil, tag, err
	}

	table, err := tabular.ReadZipCSV(data, family.Prefix())
	if err != nil {
		return nil, tag, fmt.Errorf("parse %s: %w", tag.ArchiveName(), err)
	}
	return &Table{Family: family, Data: table}, tag, nil
}
