package version

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/vikrant31/HCUPtools/internal/platform/clock"
)

// DefaultBaseURL is the upstream directory holding CCSR artifacts and
// catalog pages.
const DefaultBaseURL = "https://hcup-us.ahrq.gov/toolssoftware/ccsr/"

// Freshness windows for cached resolutions.
const (
	DefaultTagTTL  = 6 * time.Hour
	DefaultListTTL = 24 * time.Hour
)

// maxMinor bounds the minor numbers probed per candidate year. No family
// has ever published more than three releases in one year.
const maxMinor = 3

// earliestYear bounds the years accepted from scraped catalog text; earlier
// tokens are page cruft, not releases.
const earliestYear = 2015

// ErrNoVersionFound reports that catalog enumeration produced no versions.
// Latest resolution never returns it: the synthesis tier always succeeds.
var ErrNoVersionFound = errors.New("version: no versions found in catalog")

// Prober is the catalog-probing capability the resolver depends on. Both
// methods must honor ctx and return reachability failures as errors rather
// than blocking indefinitely.
type Prober interface {
	Exists(ctx context.Context, url string) (bool, error)
	FetchText(ctx context.Context, url string) (string, error)
}

// Resolver determines the canonical version of a dataset family. "latest"
// is resolved through three tiers: direct artifact probing, catalog-page
// scraping, and hard-coded synthesis. Tier failures are swallowed and the
// next tier is tried, so resolution degrades instead of failing.
type Resolver struct {
	prober  Prober
	cache   Cache
	clock   clock.Clock
	log     zerolog.Logger
	baseURL string
	tagTTL  time.Duration
	listTTL time.Duration
	group   singleflight.Group
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithClock injects a clock, for freshness-window tests.
func WithClock(clk clock.Clock) ResolverOption {
	return func(r *Resolver) { r.clock = clk }
}

// WithLogger sets the resolver's logger.
func WithLogger(log zerolog.Logger) ResolverOption {
	return func(r *Resolver) { r.log = log }
}

// WithBaseURL overrides the upstream base URL.
func WithBaseURL(u string) ResolverOption {
	return func(r *Resolver) {
		if u != "" && u[len(u)-1] != '/' {
			u += "/"
		}
		r.baseURL = u
	}
}

// WithTagTTL overrides the freshness window for single-version lookups.
func WithTagTTL(d time.Duration) ResolverOption {
	return func(r *Resolver) { r.tagTTL = d }
}

// WithListTTL overrides the freshness window for version-list enumeration.
func WithListTTL(d time.Duration) ResolverOption {
	return func(r *Resolver) { r.listTTL = d }
}

// NewResolver creates a Resolver. A nil cache gets a fresh MemoryCache.
func NewResolver(prober Prober, c Cache, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		prober:  prober,
		cache:   c,
		clock:   clock.System{},
		log:     zerolog.Nop(),
		baseURL: DefaultBaseURL,
		tagTTL:  DefaultTagTTL,
		listTTL: DefaultListTTL,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.cache == nil {
		r.cache = NewMemoryCache(r.clock)
	}
	return r
}

// Resolve returns the canonical tag for a requested version. An empty or
// "latest" request triggers discovery; an explicit tag is validated
// syntactically and returned without any remote check -- a tag that was
// never published fails later, at fetch time.
func (r *Resolver) Resolve(ctx context.Context, family Family, requested string, force bool) (Tag, error) {
	if requested == "" || requested == "latest" {
		return r.Latest(ctx, family, force)
	}
	return Parse(family, requested)
}

// Latest discovers the newest existing version for a family. Successful
// resolutions are cached for the tag freshness window; force invalidates
// the cache first. Concurrent calls for the same family collapse into one
// probe sequence.
func (r *Resolver) Latest(ctx context.Context, family Family, force bool) (Tag, error) {
	key := "latest/" + string(family)
	if force {
		r.cache.Delete(key)
	} else if tag, ok := r.freshTag(key); ok {
		return tag, nil
	}

	v, err, _ := r.group.Do(key, func() (interface{}, error) {
		// A waiter that queued behind the winning call can use its result.
		if !force {
			if tag, ok := r.freshTag(key); ok {
				return tag, nil
			}
		}
		tag := r.discoverLatest(ctx, family)
		r.cache.PutTag(key, tag)
		return tag, nil
	})
	if err != nil {
		return Tag{}, err
	}
	return v.(Tag), nil
}

// freshTag returns the cached tag if it is inside the freshness window. A
// cached tag whose year predates the current year is treated as stale even
// within the window, so a cache written in December cannot survive into
// January and mask a new year's release.
func (r *Resolver) freshTag(key string) (Tag, bool) {
	tag, at, ok := r.cache.GetTag(key)
	if !ok {
		return Tag{}, false
	}
	now := r.clock.Now()
	if now.Sub(at) >= r.tagTTL {
		return Tag{}, false
	}
	if tag.Year < now.Year() {
		return Tag{}, false
	}
	return tag, true
}

// discoverLatest runs the resolution tiers in order and returns the first
// success. The synthesis tier cannot fail, so a tag is always produced.
func (r *Resolver) discoverLatest(ctx context.Context, family Family) Tag {
	strategies := []func(context.Context, Family) (Tag, bool){
		r.probeDirect,
		r.scrapeCatalog,
		r.synthesize,
	}
	for _, strat := range strategies {
		if tag, ok := strat(ctx, family); ok {
			return tag
		}
	}
	// Unreachable: synthesize always succeeds.
	return Tag{Family: family, Year: r.clock.Now().Year(), Minor: 1}
}

// probeDirect constructs candidate artifact names for next, current and
// previous year and checks each for existence. Any hit in the next year
// wins immediately: a future or early release always outranks current-year
// candidates. Otherwise all hits across current and previous year are
// accumulated and the maximum by (year, minor) is returned. Minors are
// probed in descending order so the first next-year hit is that year's
// maximum.
func (r *Resolver) probeDirect(ctx context.Context, family Family) (Tag, bool) {
	nextYear := r.clock.Now().Year() + 1
	years := []int{nextYear, nextYear - 1, nextYear - 2}

	var best Tag
	for _, year := range years {
		for minor := maxMinor; minor >= 1; minor-- {
			if ctx.Err() != nil {
				return Tag{}, false
			}
			cand := Tag{Family: family, Year: year, Minor: minor}
			ok, err := r.prober.Exists(ctx, r.baseURL+cand.ArchiveName())
			if err != nil {
				r.log.Debug().Err(err).Str("candidate", cand.String()).Msg("probe failed")
				continue
			}
			if !ok {
				continue
			}
			if year == nextYear {
				return cand, true
			}
			if best.IsZero() || cand.Newer(best) {
				best = cand
			}
		}
	}
	return best, !best.IsZero()
}

// scrapeCatalog fetches the family's catalog page and the shared archive
// page, extracts version tokens from link targets and page text, and
// returns the maximum. Unreachable pages are skipped.
func (r *Resolver) scrapeCatalog(ctx context.Context, family Family) (Tag, bool) {
	var best Tag
	for _, page := range []string{family.CatalogPage(), ArchivePage} {
		if ctx.Err() != nil {
			break
		}
		text, err := r.prober.FetchText(ctx, r.baseURL+page)
		if err != nil {
			r.log.Debug().Err(err).Str("page", page).Msg("catalog page unreachable")
			continue
		}
		for _, tag := range r.extractTags(family, text) {
			if best.IsZero() || tag.Newer(best) {
				best = tag
			}
		}
	}
	return best, !best.IsZero()
}

// synthesize is the terminal tier: v{currentYear}.1, flagged as unverified.
func (r *Resolver) synthesize(_ context.Context, family Family) (Tag, bool) {
	tag := Tag{Family: family, Year: r.clock.Now().Year(), Minor: 1}
	r.log.Warn().
		Str("family", string(family)).
		Str("version", tag.String()).
		Msg("no version found by probing or catalog scrape; using unverified fallback")
	return tag, true
}

var genericTagRe = regexp.MustCompile(`(?i)\bv(\d{4})[-_.](\d{1,2})\b`)

// familyTagRe returns a pattern anchored to the family's artifact prefix, so
// that the shared archive page does not leak the other family's versions.
func familyTagRe(family Family) *regexp.Regexp {
	return regexp.MustCompile(`(?i)` + family.Prefix() + `[-_]v?(\d{4})[-_.](\d{1,2})`)
}

// extractTags pulls version tokens out of catalog text. Prefix-anchored
// tokens are preferred; the generic vYYYY-N shape is a fallback when a page
// mentions versions without artifact links. Separators are normalized and
// implausible years discarded.
func (r *Resolver) extractTags(family Family, text string) []Tag {
	matches := familyTagRe(family).FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		matches = genericTagRe.FindAllStringSubmatch(text, -1)
	}

	maxYear := r.clock.Now().Year() + 1
	seen := make(map[Tag]bool)
	var tags []Tag
	for _, m := range matches {
		year, _ := strconv.Atoi(m[1])
		minor, _ := strconv.Atoi(m[2])
		if year < earliestYear || year > maxYear || minor == 0 {
			continue
		}
		tag := Tag{Family: family, Year: year, Minor: minor}
		if !seen[tag] {
			seen[tag] = true
			tags = append(tags, tag)
		}
	}
	return tags
}

// List enumerates the published versions of a family from the catalog and
// archive pages, newest first. Results are cached for the list freshness
// window. Unlike Latest there is no synthesis tier: an empty enumeration is
// an error.
func (r *Resolver) List(ctx context.Context, family Family, force bool) ([]Tag, error) {
	key := "list/" + string(family)
	if force {
		r.cache.Delete(key)
	} else if tags, ok := r.freshList(key); ok {
		return tags, nil
	}

	v, err, _ := r.group.Do(key, func() (interface{}, error) {
		if !force {
			if tags, ok := r.freshList(key); ok {
				return tags, nil
			}
		}
		tags, err := r.enumerate(ctx, family)
		if err != nil {
			return nil, err
		}
		r.cache.PutList(key, tags)
		return tags, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]Tag), nil
}

func (r *Resolver) freshList(key string) ([]Tag, bool) {
	tags, at, ok := r.cache.GetList(key)
	if !ok || len(tags) == 0 {
		return nil, false
	}
	now := r.clock.Now()
	if now.Sub(at) >= r.listTTL {
		return nil, false
	}
	// Same new-year guard as single tags, applied to the newest entry.
	if tags[0].Year < now.Year() {
		return nil, false
	}
	return tags, true
}

func (r *Resolver) enumerate(ctx context.Context, family Family) ([]Tag, error) {
	seen := make(map[Tag]bool)
	var tags []Tag
	var lastErr error
	for _, page := range []string{family.CatalogPage(), ArchivePage} {
		text, err := r.prober.FetchText(ctx, r.baseURL+page)
		if err != nil {
			lastErr = err
			r.log.Debug().Err(err).Str("page", page).Msg("catalog page unreachable")
			continue
		}
		for _, tag := range r.extractTags(family, text) {
			if !seen[tag] {
				seen[tag] = true
				tags = append(tags, tag)
			}
		}
	}
	if len(tags) == 0 {
		if lastErr != nil {
			return nil, fmt.Errorf("%w: %v", ErrNoVersionFound, lastErr)
		}
		return nil, ErrNoVersionFound
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i].Newer(tags[j]) })
	return tags, nil
}
