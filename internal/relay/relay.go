// Package relay forwards one fixed listing request to an upstream provider so
// browser clients can read it without cross-origin restrictions.
package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"crypto_search/internal/domain"
	"crypto_search/internal/infra/marketdata"
	"crypto_search/internal/infra/web"
)

// Path is the only route the relay serves.
const Path = "/api/coins"

// FailureMessage is the fixed error body for any upstream problem.
const FailureMessage = "Failed to fetch data"

const maxBodyBytes = 8 << 20

// parseLabel names the relay in parse errors; the upstream layout is not known.
const parseLabel = "relay"

// Handler forwards GET /api/coins to the configured upstream.
// It does not retry or cache.
type Handler struct {
	upstreamURL string
	client      *http.Client
	logger      *slog.Logger
}

// Option configures a Handler.
type Option func(*Handler)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(h *Handler) {
		h.client = hc
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) {
		h.logger = logger
	}
}

// NewHandler creates a relay for upstreamURL with a bounded request timeout.
func NewHandler(upstreamURL string, timeout time.Duration, opts ...Option) *Handler {
	h := &Handler{
		upstreamURL: upstreamURL,
		client:      &http.Client{Timeout: timeout},
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.logger = h.logger.With("module", "relay")
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != Path {
		web.WriteError(w, http.StatusNotFound, "Not found")
		return
	}
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		web.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	body, err := h.forward(r.Context())
	if err != nil {
		h.logger.Warn("upstream request failed",
			slog.String("request_id", web.RequestID(r.Context())),
			slog.String("kind", domain.Kind(err)),
			slog.Any("error", err),
		)
		web.WriteError(w, http.StatusInternalServerError, FailureMessage)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

// forward performs the single outbound request.
func (h *Handler) forward(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.upstreamURL, nil)
	if err != nil {
		return nil, domain.NewNetworkError("build request", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", marketdata.DefaultUserAgent)

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, domain.NewNetworkError("relay", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return nil, domain.NewNetworkError("relay", fmt.Errorf("upstream status %s", resp.Status))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, domain.NewNetworkError("read body", err)
	}
	if !json.Valid(body) {
		return nil, &domain.ParseError{Shape: parseLabel, Err: errors.New("upstream body is not JSON")}
	}
	return body, nil
}

// NewServer wraps h with request ids, CORS and access logs.
func NewServer(addr string, h *Handler) *http.Server {
	var handler http.Handler = h
	handler = web.WithCORS("GET,OPTIONS", handler)
	handler = web.WithAccessLog(h.logger, handler)
	handler = web.WithRequestID(handler)

	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      h.client.Timeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
