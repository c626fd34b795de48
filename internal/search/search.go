// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package search is the HTTP client for the literature-review service. It
// sends a research question to the search endpoint, or a filter payload to
// the filters endpoint, and decodes the report and papers that come back.
// Ranking and report synthesis happen in the service; the client never
// reorders papers.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/time/rate"

	"github.com/pdiddy/litreview/internal/httputil"
	"github.com/pdiddy/litreview/pkg/types"
)

// maxErrorBody bounds how much of an error response is read for diagnostics.
const maxErrorBody = 64 << 10

// Client talks to one review service instance.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	cfg        types.BackendConfig
	searchURL  string
	filtersURL string
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLimiter sets the outbound rate limiter, replacing the one derived from
// cfg.RateLimit.
func WithLimiter(l *rate.Limiter) ClientOption {
	return func(c *Client) {
		c.limiter = l
	}
}

// NewClient builds a client for the service at cfg.BaseURL. Empty paths fall
// back to the service defaults.
func NewClient(cfg types.BackendConfig, opts ...ClientOption) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("backend base URL is not configured (set backend.base_url or LITREVIEW_BACKEND_BASE_URL)")
	}
	if cfg.SearchPath == "" {
		cfg.SearchPath = types.DefaultSearchPath
	}
	if cfg.FiltersPath == "" {
		cfg.FiltersPath = types.DefaultFiltersPath
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = types.DefaultUserAgent
	}

	searchURL, err := joinURL(cfg.BaseURL, cfg.SearchPath)
	if err != nil {
		return nil, err
	}
	filtersURL, err := joinURL(cfg.BaseURL, cfg.FiltersPath)
	if err != nil {
		return nil, err
	}

	c := &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		cfg:        cfg,
		searchURL:  searchURL,
		filtersURL: filtersURL,
	}
	if cfg.RateLimit > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// joinURL resolves path against base, keeping any path prefix base carries
// (e.g. "https://host/litreview" + "/api/search").
func joinURL(base, path string) (string, error) {
	u, err := url.Parse(strings.TrimRight(base, "/"))
	if err != nil {
		return "", fmt.Errorf("parsing backend base URL %q: %w", base, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("backend base URL %q: scheme must be http or https", base)
	}
	if u.Host == "" {
		return "", fmt.Errorf("backend base URL %q has no host", base)
	}
	return u.JoinPath(path).String(), nil
}

// SearchURL returns the resolved search endpoint.
func (c *Client) SearchURL() string { return c.searchURL }

// FiltersURL returns the resolved filters endpoint.
func (c *Client) FiltersURL() string { return c.filtersURL }

// Search sends query to the search endpoint. The query is trimmed; an empty
// query returns ErrEmptyQuery without any request.
func (c *Client) Search(ctx context.Context, query string) (*types.SearchResponse, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	var out types.SearchResponse
	if err := c.post(ctx, c.searchURL, types.SearchRequest{Query: query}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ApplyFilters sends an ad hoc filter payload to the filters endpoint.
func (c *Client) ApplyFilters(ctx context.Context, req types.FilterRequest) (*types.FilterResponse, error) {
	if req.IsEmpty() {
		return nil, ErrEmptyFilter
	}

	var out types.FilterResponse
	if err := c.post(ctx, c.filtersURL, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// post sends body as JSON to endpoint and decodes a 2xx reply into out.
func (c *Client) post(ctx context.Context, endpoint string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("%w: waiting for rate limiter: %w", ErrRequestFailed, err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := httputil.DoWithRetry(ctx, c.httpClient, req, c.cfg.MaxRetries)
	if err != nil {
		return fmt.Errorf("%w: POST %s: %w", ErrRequestFailed, endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newStatusError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decoding response from %s: %w", ErrInvalidResponse, endpoint, err)
	}
	return nil
}

// newStatusError builds a StatusError, pulling the service's error message
// out of the body when it is the usual {"error": "..."} shape.
func newStatusError(resp *http.Response) *StatusError {
	se := &StatusError{StatusCode: resp.StatusCode}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return se
	}
	var eb types.ErrorBody
	if json.Unmarshal(data, &eb) == nil && eb.Error != "" {
		se.Message = eb.Error
		return se
	}
	se.Message = strings.TrimSpace(string(data))
	return se
}
