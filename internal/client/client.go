package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/time/rate"

	"github.com/JohnDeved/bookbar/internal/page"
)

const defaultUserAgent = "bookbar/1.0"

// Client fetches chapter pages.
type Client struct {
	http      *http.Client
	limiter   *rate.Limiter
	baseURL   string
	userAgent string
}

// New creates a client. A reqPerSec of zero or less leaves requests
// unthrottled; a timeout of zero means requests only end with their context.
func New(baseURL string, reqPerSec float64, timeout time.Duration) *Client {
	limit := rate.Inf
	burst := 1
	if reqPerSec > 0 {
		limit = rate.Limit(reqPerSec)
		burst = max(1, int(reqPerSec))
	}

	return &Client{
		http: &http.Client{
			Timeout: timeout,
		},
		limiter:   rate.NewLimiter(limit, burst),
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: defaultUserAgent,
	}
}

// SetUserAgent overrides the User-Agent header sent with every request.
func (c *Client) SetUserAgent(ua string) {
	if ua != "" {
		c.userAgent = ua
	}
}

// BaseURL returns the configured base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Resolve turns a page reference into an absolute URL. Absolute URLs are
// returned unchanged; anything else is taken relative to the base URL.
func (c *Client) Resolve(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", fmt.Errorf("empty page reference")
	}
	if u, err := url.Parse(ref); err == nil && u.Scheme != "" && u.Host != "" {
		return u.String(), nil
	}
	if c.baseURL == "" {
		return "", fmt.Errorf("relative reference %q needs a base_url", ref)
	}
	base, err := url.Parse(c.baseURL + "/")
	if err != nil {
		return "", fmt.Errorf("parsing base url: %w", err)
	}
	rel, err := url.Parse(strings.TrimPrefix(ref, "/"))
	if err != nil {
		return "", fmt.Errorf("parsing reference %q: %w", ref, err)
	}
	return base.ResolveReference(rel).String(), nil
}

// get performs a rate-limited GET for pageURL and returns the body of a 200
// response. The caller closes it.
func (c *Client) get(ctx context.Context, pageURL string) (io.ReadCloser, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/html")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", pageURL, err)
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("HTTP %d for %s", resp.StatusCode, pageURL)
	}
	return resp.Body, nil
}

// FetchDocument fetches and parses the HTML page at pageURL.
func (c *Client) FetchDocument(ctx context.Context, pageURL string) (*html.Node, error) {
	body, err := c.get(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	doc, err := html.Parse(body)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", pageURL, err)
	}
	return doc, nil
}

// FetchPage fetches pageURL as a chapter page.
func (c *Client) FetchPage(ctx context.Context, pageURL string) (*page.Document, error) {
	body, err := c.get(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	doc, err := page.Parse(body, pageURL)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", pageURL, err)
	}
	return doc, nil
}
