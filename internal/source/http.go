package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// HTTPFetcher reads files relative to a base URL.
type HTTPFetcher struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPFetcher creates a fetcher for files under baseURL, which should end
// in a slash.
func NewHTTPFetcher(baseURL string, timeout time.Duration) *HTTPFetcher {
	return &HTTPFetcher{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Fetch issues a GET for baseURL+name. The caller closes the body.
func (f *HTTPFetcher) Fetch(ctx context.Context, name string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL+url.PathEscape(name), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("http get %s: status %d: %s", req.URL, resp.StatusCode, body)
	}
	return resp.Body, nil
}
