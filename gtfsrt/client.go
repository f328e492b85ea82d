package gtfsrt

import (
	"context"
	"io"
	"net/http"
	"time"
)

// Client is an HTTP client for fetching GTFS-RT feed data. One attempt
// per call, no retries; the caller decides whether a failure is fatal.
type Client struct {
	httpClient *http.Client
}

// NewClient creates a feed client. A zero timeout preserves the
// no-timeout behaviour of the underlying default client.
func NewClient(timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Fetch fetches a single feed from a URL and returns the raw bytes.
// Returns nil if url is empty (allows optional feeds). Cache-busting
// headers are sent so intermediaries never serve a stale feed.
func (c *Client) Fetch(ctx context.Context, url string) ([]byte, error) {
	if url == "" {
		return nil, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Pragma", "no-cache")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, &FetchError{URL: url, Status: resp.StatusCode}
	}

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}
	return b, nil
}

// FetchAndDecode fetches a feed and decodes it into the normalized
// representation. Returns nil for an empty URL.
func (c *Client) FetchAndDecode(ctx context.Context, url string) (*Feed, error) {
	b, err := c.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, nil
	}
	return Decode(b)
}
