// Package api is the client for the remote fake-news prediction service.
//
// Every call issues exactly one HTTP request. There is no retry, caching or
// client-imposed timeout; callers bound latency through the context.
package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ppiankov/newsguard/internal/model"
	"github.com/rs/zerolog"
)

// maxResponseBytes caps how much of a response body is read
const maxResponseBytes = 10 << 20

// Client talks to the prediction service. It is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	userAgent  string
	logger     zerolog.Logger
}

// Option customises a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithUserAgent sets the User-Agent header sent with every request
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// WithLogger sets the logger used for request tracing
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithProxy routes requests through explicit proxies.
// Empty values fall back to HTTP_PROXY / HTTPS_PROXY from the environment.
func WithProxy(httpProxy, httpsProxy string) Option {
	return func(c *Client) {
		c.httpClient = &http.Client{
			Transport: &http.Transport{
				Proxy: NewProxyFunc(httpProxy, httpsProxy),
			},
		}
	}
}

// New creates a client for the service at baseURL (model.DefaultBaseURL when empty)
func New(baseURL string, opts ...Option) *Client {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		baseURL = model.DefaultBaseURL
	}

	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{},
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the service root the client sends requests to
func (c *Client) BaseURL() string {
	return c.baseURL
}

// do sends a request and reads the whole (size-limited) body
func (c *Client) do(req *http.Request) (int, string, []byte, error) {
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug().Err(err).
			Str("method", req.Method).
			Str("path", req.URL.Path).
			Dur("took", time.Since(start)).
			Msg("request failed")
		return 0, "", nil, fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))

	c.logger.Debug().
		Str("method", req.Method).
		Str("path", req.URL.Path).
		Int("status", resp.StatusCode).
		Int("bytes", len(body)).
		Dur("took", time.Since(start)).
		Msg("request completed")

	if err != nil {
		return resp.StatusCode, resp.Status, nil, fmt.Errorf("read body: %w", err)
	}
	return resp.StatusCode, resp.Status, body, nil
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}

// errorDetail extracts a non-empty string "detail" from an error body.
// Structured details (e.g. validation error lists) are not usable.
func errorDetail(body []byte) (string, bool) {
	var payload struct {
		Detail any `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", false
	}
	detail, ok := payload.Detail.(string)
	if !ok || detail == "" {
		return "", false
	}
	return detail, true
}
