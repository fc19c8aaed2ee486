package marketdata

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"crypto_search/internal/domain"
)

const (
	// DefaultUserAgent is a browser-like user agent string to avoid bot detection
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	// maxBodyBytes caps a single listing response.
	maxBodyBytes = 8 << 20
)

// Client fetches one listing page from a provider and normalizes it.
type Client struct {
	url        string
	shape      Shape
	normalizer Normalizer
	httpClient *http.Client
	logger     *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a client for url, decoding responses as shape.
func NewClient(url string, shape Shape, opts ...ClientOption) (*Client, error) {
	normalizer, err := NewNormalizer(shape)
	if err != nil {
		return nil, err
	}

	c := &Client{
		url:        url,
		shape:      shape,
		normalizer: normalizer,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("module", "marketdata", "shape", string(shape))
	return c, nil
}

// Shape returns the configured response layout.
func (c *Client) Shape() Shape {
	return c.shape
}

// Fetch issues one GET and returns unranked records.
// Transport failures and non-2xx statuses are domain.NetworkError;
// undecodable bodies are domain.ParseError.
func (c *Client) Fetch(ctx context.Context) ([]domain.AssetRecord, error) {
	body, err := c.get(ctx)
	if err != nil {
		return nil, err
	}

	records, err := c.normalizer.Normalize(body)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("listing fetched", slog.Int("records", len(records)), slog.Int("bytes", len(body)))
	return records, nil
}

func (c *Client) get(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, domain.NewNetworkError("build request", err)
	}

	req.Header.Set("Accept", "application/json")
	// Add browser-like User-Agent to avoid bot detection
	req.Header.Set("User-Agent", DefaultUserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, domain.NewNetworkError("fetch", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, domain.NewNetworkError("fetch", fmt.Errorf("unexpected status code: %d", resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, domain.NewNetworkError("read body", err)
	}
	return body, nil
}
