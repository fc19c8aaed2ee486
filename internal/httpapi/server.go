// Package httpapi serves the search table over HTTP: a JSON view, a live
// websocket feed and the cached logos.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"crypto_search/internal/domain"
	"crypto_search/internal/infra"
	"crypto_search/internal/infra/web"
	"crypto_search/internal/service"
	"crypto_search/internal/view"
)

// StateSource is the refresh loop as seen by the HTTP layer.
type StateSource interface {
	State() service.State
	SubscribeState() (<-chan service.State, func())
}

// IconCatalog lists the logos cached on disk.
type IconCatalog interface {
	GetIcon(symbol string) (*domain.IconInfo, error)
	ListIcons() ([]domain.IconInfo, error)
}

// Server routes the presentation endpoints.
type Server struct {
	src     StateSource
	icons   IconCatalog
	metrics *infra.Metrics
	logger  *slog.Logger
	hub     *Hub
	mux     *http.ServeMux
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMetrics sets the metrics reported by /healthz.
func WithMetrics(m *infra.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithIconCatalog enables the icon routes.
func WithIconCatalog(c IconCatalog) Option {
	return func(s *Server) {
		s.icons = c
	}
}

// New builds the router for src.
func New(src StateSource, opts ...Option) *Server {
	s := &Server{
		src:     src,
		metrics: &infra.Metrics{},
		logger:  slog.Default(),
		mux:     http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("module", "httpapi")
	s.hub = newHub(src, s.metrics, s.logger)

	s.mux.HandleFunc("GET /api/assets", s.handleAssets)
	s.mux.HandleFunc("GET /api/assets/{id}", s.handleAsset)
	s.mux.HandleFunc("GET /api/icons", s.handleIcons)
	s.mux.HandleFunc("GET /icons/{file}", s.handleIconFile)
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	s.mux.HandleFunc("GET /ws", s.hub.serveWS)
	return s
}

// Hub returns the websocket hub. Run it to push publishes to clients.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Handler returns the router wrapped with request ids, CORS and access logs.
func (s *Server) Handler() http.Handler {
	var h http.Handler = s.mux
	h = web.WithCORS("GET,OPTIONS", h)
	h = web.WithAccessLog(s.logger, h)
	return web.WithRequestID(h)
}

// ListenAndServe serves on addr and runs the hub until ctx ends.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go s.hub.Run(ctx)
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info("http server listening", slog.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) handleAssets(w http.ResponseWriter, r *http.Request) {
	web.WriteJSON(w, http.StatusOK, view.Build(s.src.State(), r.URL.Query().Get("q")))
}

func (s *Server) handleAsset(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.src.State().Snapshot.Get(r.PathValue("id"))
	if !ok {
		web.WriteError(w, http.StatusNotFound, "asset not found")
		return
	}
	web.WriteJSON(w, http.StatusOK, view.NewRow(rec))
}

func (s *Server) handleIcons(w http.ResponseWriter, r *http.Request) {
	if s.icons == nil {
		web.WriteJSON(w, http.StatusOK, []domain.IconInfo{})
		return
	}
	icons, err := s.icons.ListIcons()
	if err != nil {
		s.logger.Error("failed to list icons", slog.Any("error", err))
		web.WriteError(w, http.StatusInternalServerError, "failed to list icons")
		return
	}
	web.WriteJSON(w, http.StatusOK, icons)
}

func (s *Server) handleIconFile(w http.ResponseWriter, r *http.Request) {
	symbol, ok := strings.CutSuffix(r.PathValue("file"), ".png")
	if !ok || s.icons == nil {
		http.NotFound(w, r)
		return
	}

	icon, err := s.icons.GetIcon(strings.ToUpper(symbol))
	if err != nil {
		s.logger.Error("icon lookup failed", slog.String("symbol", symbol), slog.Any("error", err))
		http.Error(w, "icon lookup failed", http.StatusInternalServerError)
		return
	}
	if icon == nil || icon.IconPath == "" {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Cache-Control", "public, max-age=86400")
	http.ServeFile(w, r, icon.IconPath)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	state := s.src.State()
	web.WriteJSON(w, http.StatusOK, map[string]any{
		"status":    view.Build(state, "").Status,
		"version":   state.Version,
		"last_kind": domain.Kind(state.Err),
		"metrics":   s.metrics.Snapshot(),
	})
}
