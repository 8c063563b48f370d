package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/aretw0/arbor/pkg/route"
)

// DefaultSubmitPath is the submit endpoint template; "{domain}" and
// "{route}" are filled from the datasource.
const DefaultSubmitPath = "data/{domain}"

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the default client (10s timeout).
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.http = hc }
}

// WithHeader adds a header to every request.
func WithHeader(key, value string) ClientOption {
	return func(c *Client) { c.headers.Set(key, value) }
}

// WithSubmitPath replaces DefaultSubmitPath.
func WithSubmitPath(p string) ClientOption {
	return func(c *Client) { c.submitPath = p }
}

// WithClientLogger sets the logger.
func WithClientLogger(l *slog.Logger) ClientOption {
	return func(c *Client) { c.logger = l }
}

// Client implements ports.Fetcher and ports.Submitter against a JSON backend.
// Locators are paths relative to the base URL; "{name}" blocks are filled
// from the request params.
type Client struct {
	base       string
	http       *http.Client
	headers    http.Header
	submitPath string
	logger     *slog.Logger
}

// NewClient creates a client for baseURL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		base:       strings.TrimRight(baseURL, "/"),
		http:       &http.Client{Timeout: 10 * time.Second},
		headers:    make(http.Header),
		submitPath: DefaultSubmitPath,
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) url(locator string) string {
	if strings.Contains(locator, "://") {
		return locator
	}
	return c.base + "/" + strings.TrimLeft(locator, "/")
}

// Get fetches and decodes the document at locator. 404 maps to
// domain.ErrNotFound.
func (c *Client) Get(ctx context.Context, locator string, params domain.Params) (any, error) {
	target := c.url(route.ReplaceParam(locator, params, ""))
	return c.do(ctx, http.MethodGet, target, nil)
}

// Submit posts {"source": ..., "data": payload} to the submit endpoint.
func (c *Client) Submit(ctx context.Context, source domain.DataSource, payload any) (any, error) {
	target := c.url(route.ReplaceParam(c.submitPath, map[string]any{
		"domain": route.DomainName(source.Source, false),
		"route":  route.AccessRoute(source.Source, ""),
	}, ""))

	body, err := json.Marshal(map[string]any{"source": source.Source, "data": payload})
	if err != nil {
		return nil, fmt.Errorf("failed to encode submission: %w", err)
	}
	return c.do(ctx, http.MethodPost, target, body)
}

func (c *Client) do(ctx context.Context, method, target string, body []byte) (any, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("invalid request %s %s: %w", method, target, err)
	}
	for k, v := range c.headers {
		req.Header[k] = v
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, target, err)
	}
	defer resp.Body.Close()
	c.logger.Debug("backend request", "method", method, "url", target, "status", resp.StatusCode, "duration", time.Since(start))

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, target)
	case resp.StatusCode >= 300:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%s %s: status %d: %s", method, target, resp.StatusCode, strings.TrimSpace(string(msg)))
	case resp.StatusCode == http.StatusNoContent:
		return nil, nil
	}

	var doc any
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to decode %s: %w", target, err)
	}
	return doc, nil
}

var (
	_ ports.Fetcher   = (*Client)(nil)
	_ ports.Submitter = (*Client)(nil)
)
