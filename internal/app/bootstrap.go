package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"crypto_search/internal/domain"
	"crypto_search/internal/infra"
	"crypto_search/internal/infra/marketdata"
	"crypto_search/internal/infra/storage"
	"crypto_search/internal/service"
)

// Options selects what Initialize loads.
type Options struct {
	Name       string // Binary name, used for the log file
	ConfigPath string
	EnvFile    string
	// FileLogOnly keeps logs off stdout (the TUI owns the terminal).
	FileLogOnly bool
}

// Bootstrap orchestrates the application startup sequence
type Bootstrap struct {
	Config     *infra.Config
	Logger     *slog.Logger
	Metrics    *infra.Metrics
	Loop       *service.RefreshLoop
	Catalog    *storage.IconCatalog
	Downloader *infra.IconDownloader
}

// NewBootstrap creates a new Bootstrap instance
func NewBootstrap() *Bootstrap {
	return &Bootstrap{Metrics: &infra.Metrics{}}
}

// Initialize loads the environment file, configuration and logger.
// A missing config file falls back to defaults plus environment overrides.
func (b *Bootstrap) Initialize(opts Options) error {
	if opts.EnvFile != "" {
		if err := infra.LoadEnvFile(opts.EnvFile); err != nil {
			return err
		}
	}

	cfg, err := infra.LoadConfig(opts.ConfigPath)
	missing := errors.Is(err, domain.ErrConfigNotFound)
	if missing {
		cfg, err = infra.LoadDefaultConfig()
	}
	if err != nil {
		return err
	}
	b.Config = cfg

	if opts.FileLogOnly {
		b.Logger = infra.NewFileLogger(cfg, opts.Name)
	} else {
		b.Logger = infra.NewLogger(cfg, opts.Name)
	}
	slog.SetDefault(b.Logger)

	if missing {
		b.Logger.Warn("config file not found, using defaults", slog.String("path", opts.ConfigPath))
	}
	b.Logger.Info("bootstrapping",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("source_shape", cfg.Source.Shape),
	)
	return nil
}

// InitRefresh builds the market data client and the refresh loop (stopped).
func (b *Bootstrap) InitRefresh() error {
	cfg := b.Config
	client, err := marketdata.NewClient(cfg.Source.URL, cfg.SourceShape(),
		marketdata.WithTimeout(cfg.RefreshTimeout()),
		marketdata.WithLogger(b.Logger),
	)
	if err != nil {
		return &domain.ConfigError{Field: "source", Err: err}
	}

	b.Logger.Info("market data source configured",
		slog.String("url", cfg.Source.URL),
		slog.String("shape", string(client.Shape())),
		slog.Duration("interval", cfg.Refresh.Interval),
	)

	b.Loop = service.NewRefreshLoop(client,
		service.RefreshConfig{Interval: cfg.Refresh.Interval, Timeout: cfg.RefreshTimeout()},
		service.WithLogger(b.Logger),
		service.WithMetrics(b.Metrics),
	)
	return nil
}

// InitIcons opens the icon catalog and prepares the downloader.
func (b *Bootstrap) InitIcons() error {
	catalog, err := storage.NewIconCatalog(b.Config.Icons.DBPath)
	if err != nil {
		return err
	}
	b.Catalog = catalog
	b.Logger.Info("icon catalog initialized", slog.String("path", b.Config.Icons.DBPath))

	downloader, err := infra.NewIconDownloader(b.Config.Icons.Dir)
	if err != nil {
		return err
	}
	b.Downloader = downloader
	return nil
}

// RunIconSync caches logos for every published snapshot until ctx ends.
func (b *Bootstrap) RunIconSync(ctx context.Context) {
	updates, unsubscribe := b.Loop.Subscribe()
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-updates:
			if !ok {
				return
			}
			b.SyncIcons(ctx, snap)
		}
	}
}

// SyncIcons downloads missing logos for snap with bounded concurrency and
// records them in the catalog.
func (b *Bootstrap) SyncIcons(ctx context.Context, snap *domain.Snapshot) {
	records := snap.Records()
	b.Logger.Debug("starting icon synchronization", slog.Int("records", len(records)))

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, b.Config.Icons.Concurrency) // Limit concurrent downloads
	var synced, failed int
	var mu sync.Mutex
	claimed := make(map[string]struct{})

	for _, rec := range records {
		if rec.ImageURL == "" || rec.Symbol == "" {
			continue
		}
		// One logo per cache file; records are in rank order so the
		// higher-ranked asset claims a shared symbol.
		if path, err := b.Downloader.IconPath(rec.Symbol); err == nil {
			if _, dup := claimed[path]; dup {
				continue
			}
			claimed[path] = struct{}{}
		}
		wg.Add(1)
		go func(rec domain.AssetRecord) {
			defer wg.Done()
			select {
			case <-ctx.Done():
				return
			case semaphore <- struct{}{}: // Acquire
			}
			defer func() { <-semaphore }() // Release

			err := b.syncIcon(ctx, rec)
			mu.Lock()
			if err != nil {
				failed++
			} else {
				synced++
			}
			mu.Unlock()
			if err != nil {
				b.Logger.Warn("failed to sync icon", slog.String("symbol", rec.Symbol), slog.Any("error", err))
			}
		}(rec)
	}

	wg.Wait()
	b.Logger.Info("icon synchronization completed", slog.Int("synced", synced), slog.Int("failed", failed))
}

func (b *Bootstrap) syncIcon(ctx context.Context, rec domain.AssetRecord) error {
	existing, err := b.Catalog.GetIcon(rec.Symbol)
	if err != nil {
		return err
	}

	// The cached file stays with the logo that was downloaded for it.
	if existing != nil && existing.SourceURL != rec.ImageURL {
		if _, err := os.Stat(existing.IconPath); err == nil {
			return nil
		}
	}

	path, err := b.Downloader.DownloadIcon(ctx, rec.Symbol, rec.ImageURL)
	if err != nil {
		return err
	}

	// Nothing changed since the last sync.
	if existing != nil && existing.IconPath == path && existing.SourceURL == rec.ImageURL {
		return nil
	}

	icon := &domain.IconInfo{
		Symbol:       rec.Symbol,
		SourceURL:    rec.ImageURL,
		IconPath:     path,
		LastSyncedAt: time.Now(),
	}
	if existing != nil {
		icon.CreatedAt = existing.CreatedAt
	}
	if err := b.Catalog.UpsertIcon(icon); err != nil {
		return fmt.Errorf("failed to record icon: %w", err)
	}
	return nil
}

// Close releases resources opened by the Init methods.
func (b *Bootstrap) Close() {
	if b.Loop != nil {
		b.Loop.Stop()
	}
	if b.Catalog != nil {
		if err := b.Catalog.Close(); err != nil {
			b.Logger.Warn("failed to close icon catalog", slog.Any("error", err))
		}
	}
}
