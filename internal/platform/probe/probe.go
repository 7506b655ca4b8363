// Package probe implements the catalog-probing client used by version
// resolution and artifact download. The HCUP website has no machine-readable
// version API, so callers check whether candidate artifact URLs exist and
// scrape catalog pages for version tokens. Network failures are reported as
// unreachability, never as panics, so that resolution can degrade through
// its fallback tiers.
package probe

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

// Defaults for probe timeouts. Existence checks are cheap HEAD requests and
// get a short deadline; content fetches may pull multi-megabyte archives.
const (
	DefaultExistsTimeout = 4 * time.Second
	DefaultFetchTimeout  = 30 * time.Second
)

// Client issues existence checks and content fetches against the upstream
// catalog. It is safe for concurrent use.
type Client struct {
	head  *resty.Client
	fetch *resty.Client
}

// Option configures a Client.
type Option func(*Client)

// WithExistsTimeout overrides the per-request deadline for Exists calls.
func WithExistsTimeout(d time.Duration) Option {
	return func(c *Client) { c.head.SetTimeout(d) }
}

// WithFetchTimeout overrides the per-request deadline for FetchText and
// FetchBytes calls.
func WithFetchTimeout(d time.Duration) Option {
	return func(c *Client) { c.fetch.SetTimeout(d) }
}

// NewClient creates a probe client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		head: resty.New().
			SetTimeout(DefaultExistsTimeout).
			SetHeader("User-Agent", "hcuptools"),
		fetch: resty.New().
			SetTimeout(DefaultFetchTimeout).
			SetRetryCount(2).
			SetRetryWaitTime(500 * time.Millisecond).
			SetHeader("User-Agent", "hcuptools"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Exists reports whether url resolves to an existing resource. It issues a
// HEAD request, falling back to GET when the server rejects HEAD. A network
// error or timeout is returned as err with ok=false; callers treat it the
// same as "not found" when probing candidates.
func (c *Client) Exists(ctx context.Context, url string) (bool, error) {
	resp, err := c.head.R().SetContext(ctx).Head(url)
	if err != nil {
		return false, fmt.Errorf("probe %s: %w", url, err)
	}
	if resp.StatusCode() == http.StatusMethodNotAllowed {
		resp, err = c.head.R().SetContext(ctx).SetDoNotParseResponse(true).Get(url)
		if err != nil {
			return false, fmt.Errorf("probe %s: %w", url, err)
		}
		if body := resp.RawBody(); body != nil {
			body.Close()
		}
	}
	return resp.StatusCode() >= 200 && resp.StatusCode() < 300, nil
}

// FetchText retrieves url as text, typically a catalog or archive HTML page.
func (c *Client) FetchText(ctx context.Context, url string) (string, error) {
	resp, err := c.fetch.R().SetContext(ctx).Get(url)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", url, err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("fetch %s: unexpected status %d", url, resp.StatusCode())
	}
	return resp.String(), nil
}

// FetchBytes retrieves url as raw bytes, typically a ZIP or XLSX artifact.
func (c *Client) FetchBytes(ctx context.Context, url string) ([]byte, error) {
	resp, err := c.fetch.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("fetch %s: unexpected status %d", url, resp.StatusCode())
	}
	return resp.Body(), nil
}
