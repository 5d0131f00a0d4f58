// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package client implements the ScienceDirect content API client: one
// connection pool, auth header injection, a concurrency bound on in-flight
// requests, and rate-limit-aware retries with a bounded cumulative wait.
package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/neurostuff/elsevier-coordinate-extractor/internal/ratelimit"
	"github.com/neurostuff/elsevier-coordinate-extractor/pkg/types"
)

const (
	// DefaultBaseURL is the Elsevier content API base.
	DefaultBaseURL = "https://api.elsevier.com/content"

	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultConcurrency bounds simultaneous in-flight requests.
	DefaultConcurrency = 4

	// DefaultMaxRetries bounds retries on recoverable statuses.
	DefaultMaxRetries = 3

	// DefaultUserAgent identifies this tool to the API.
	DefaultUserAgent = "elsevier-coordinate-extractor/0.1"

	// maxErrorBody caps how much of an error response body is retained.
	maxErrorBody = 2048
)

// Result is a fully-read HTTP response.
type Result struct {
	StatusCode  int
	Header      http.Header
	Body        []byte
	ContentType string

	// Scheme is the transport scheme of the request URL ("https").
	Scheme string

	// Snapshot holds the rate-limit headers observed on this response.
	Snapshot ratelimit.Snapshot
}

// StatusError reports a non-2xx HTTP status. It retains the response headers
// and a body excerpt so callers can diagnose the failure.
type StatusError struct {
	StatusCode int
	URL        string
	Header     http.Header
	Body       []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d from %s", e.StatusCode, e.URL)
}

// NotFound reports whether the error is a 404 status.
func (e *StatusError) NotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// RetryWaitError reports that the server asked for a retry delay that would
// push the cumulative wait past the configured ceiling. The client fails
// immediately instead of sleeping.
type RetryWaitError struct {
	Delay   time.Duration
	Waited  time.Duration
	Ceiling time.Duration
}

func (e *RetryWaitError) Error() string {
	return fmt.Sprintf("rate limit delay %v exceeds configured maximum wait %v (already waited %v)",
		e.Delay, e.Ceiling, e.Waited)
}

// Client is a concurrency-bounded, retrying HTTP client for the content API.
// It is safe for concurrent use.
type Client struct {
	httpClient *http.Client
	cfg        types.ClientConfig
	baseURL    string
	sem        chan struct{}
	limiter    *rate.Limiter
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient substitutes the underlying HTTP client, e.g. an
// httptest.Server client in tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// New creates a content API client from cfg, applying defaults for unset
// fields.
func New(cfg types.ClientConfig, opts ...Option) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}

	c := &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		cfg:        cfg,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		sem:        make(chan struct{}, cfg.Concurrency),
	}
	if cfg.RequestsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get performs a GET against the API path with the given query parameters,
// retrying on 429/500/503 per the server's suggested delay. The retry loop
// is bounded by MaxRetries and, when configured, by MaxRetryWait across all
// sleeps of this call.
func (c *Client) Get(ctx context.Context, path string, params url.Values, accept string) (*Result, error) {
	var waited time.Duration
	for attempt := 0; ; attempt++ {
		res, err := c.do(ctx, path, params, accept)
		if err != nil {
			return nil, err
		}

		if res.StatusCode >= 200 && res.StatusCode < 300 {
			return res, nil
		}

		statusErr := &StatusError{
			StatusCode: res.StatusCode,
			URL:        c.requestURL(path, params),
			Header:     res.Header,
			Body:       res.Body,
		}

		if !recoverable(res.StatusCode) || attempt >= c.cfg.MaxRetries {
			return nil, statusErr
		}

		delay, ok := ratelimit.RetryDelay(res.Header)
		if !ok {
			// No usable retry guidance from the server.
			return nil, statusErr
		}
		if c.cfg.MaxRetryWait > 0 && waited+delay > c.cfg.MaxRetryWait {
			return nil, &RetryWaitError{Delay: delay, Waited: waited, Ceiling: c.cfg.MaxRetryWait}
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
			waited += delay
		}
	}
}

// do executes a single request with the semaphore held and the body fully
// read, truncating bodies of error responses.
func (c *Client) do(ctx context.Context, path string, params url.Values, accept string) (*Result, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	select {
	case c.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-c.sem }()

	reqURL := c.requestURL(path, params)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("X-ELS-APIKey", c.cfg.APIKey)
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	if c.cfg.InstToken != "" {
		req.Header.Set("X-ELS-Insttoken", c.cfg.InstToken)
	}
	if accept != "" {
		req.Header.Set("Accept", accept)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request: %w", err)
	}
	defer resp.Body.Close()

	var body []byte
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		body, err = io.ReadAll(resp.Body)
	} else {
		body, err = io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		io.Copy(io.Discard, resp.Body)
	}
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	scheme := ""
	if resp.Request != nil && resp.Request.URL != nil {
		scheme = resp.Request.URL.Scheme
	}

	return &Result{
		StatusCode:  resp.StatusCode,
		Header:      resp.Header,
		Body:        body,
		ContentType: resp.Header.Get("Content-Type"),
		Scheme:      scheme,
		Snapshot:    ratelimit.FromHeader(resp.Header),
	}, nil
}

func (c *Client) requestURL(path string, params url.Values) string {
	u := c.baseURL + "/" + strings.TrimLeft(path, "/")
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	return u
}

func recoverable(status int) bool {
	switch status {
	case http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusServiceUnavailable:
		return true
	}
	return false
}
