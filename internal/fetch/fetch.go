// Package fetch retrieves a feed's source page over HTTP, with a bounded
// response body and an optional on-disk conditional-request cache.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// defaultUserAgent identifies feedmill to the sites it polls.
const defaultUserAgent = "feedmill/1.0 (+https://github.com/feedmill/feedmill)"

// Error is the semantic "Fetch" error kind: a transport failure or a
// non-2xx response. It always aborts the feed's update cycle.
type Error struct {
	URL        string
	StatusCode int // 0 for a transport-level failure
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Fetcher performs bounded HTTP GETs, optionally backed by a Cache for
// conditional requests.
type Fetcher struct {
	Client      *http.Client
	UserAgent   string
	MaxBodySize int64 // bytes; 0 means fetch.DefaultMaxBodySize
	Cache       *Cache
}

// DefaultMaxBodySize bounds a fetched page body absent an explicit config
// override.
const DefaultMaxBodySize = 10 << 20 // 10 MiB

// New builds a Fetcher with the given timeout. Pass a zero Cache-less
// Fetcher{} directly when no options are needed beyond the zero values.
func New(timeout time.Duration) *Fetcher {
	return &Fetcher{Client: &http.Client{Timeout: timeout}}
}

// Fetch retrieves sourceURL's body. A 304 Not Modified response (only
// possible when f.Cache is set and has a prior entry for the URL) returns
// the cached body instead of an empty one.
func (f *Fetcher) Fetch(ctx context.Context, sourceURL *url.URL) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL.String(), nil)
	if err != nil {
		return nil, &Error{URL: sourceURL.String(), Err: err}
	}
	req.Header.Set("User-Agent", f.userAgent())

	var cached *cacheEntry
	if f.Cache != nil {
		cached, _ = f.Cache.load(sourceURL.String())
		if cached != nil {
			if cached.ETag != "" {
				req.Header.Set("If-None-Match", cached.ETag)
			}
			if cached.LastModified != "" {
				req.Header.Set("If-Modified-Since", cached.LastModified)
			}
		}
	}

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, &Error{URL: sourceURL.String(), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified && cached != nil {
		return cached.Body, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &Error{URL: sourceURL.String(), StatusCode: resp.StatusCode}
	}

	limit := f.MaxBodySize
	if limit <= 0 {
		limit = DefaultMaxBodySize
	}
	body, err := io.ReadAll(http.MaxBytesReader(nil, resp.Body, limit))
	if err != nil {
		return nil, &Error{URL: sourceURL.String(), Err: fmt.Errorf("reading body: %w", err)}
	}

	if f.Cache != nil {
		f.Cache.store(sourceURL.String(), &cacheEntry{
			Body:         body,
			ETag:         resp.Header.Get("ETag"),
			LastModified: resp.Header.Get("Last-Modified"),
			StatusCode:   resp.StatusCode,
		})
	}

	return body, nil
}

func (f *Fetcher) userAgent() string {
	if f.UserAgent != "" {
		return f.UserAgent
	}
	return defaultUserAgent
}
