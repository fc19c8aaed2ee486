package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"crypto_search/internal/app"
	"crypto_search/internal/httpapi"

	"github.com/spf13/cobra"

	_ "net/http/pprof" // For pprof profiling
)

func main() {
	opts := app.Options{Name: "app"}
	var addr, pprofAddr string

	rootCmd := &cobra.Command{
		Use:          "crypto-search",
		Short:        "Polls market data and serves a searchable, ranked coin table",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(opts, addr, pprofAddr)
		},
	}
	rootCmd.Flags().StringVar(&opts.ConfigPath, "config", "configs/config.yaml", "config file location")
	rootCmd.Flags().StringVar(&opts.EnvFile, "env-file", ".env", "dotenv file loaded before the config")
	rootCmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides http.addr)")
	rootCmd.Flags().StringVar(&pprofAddr, "pprof", "localhost:6060", "pprof listen address, empty disables")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(opts app.Options, addr, pprofAddr string) error {
	// 1. System Bootstrapping
	bootstrap := app.NewBootstrap()
	if err := bootstrap.Initialize(opts); err != nil {
		slog.Error("❌ Bootstrapping failed", slog.Any("error", err))
		return err
	}
	defer bootstrap.Close()

	if err := bootstrap.InitRefresh(); err != nil {
		slog.Error("❌ Refresh loop setup failed", slog.Any("error", err))
		return err
	}
	if err := bootstrap.InitIcons(); err != nil {
		slog.Error("❌ Icon cache setup failed", slog.Any("error", err))
		return err
	}

	// 2. Pprof Server (for performance profiling)
	if pprofAddr != "" {
		go func() {
			slog.Info("🕵️ Pprof server started", slog.String("addr", pprofAddr))
			if err := http.ListenAndServe(pprofAddr, nil); err != nil {
				slog.Error("Pprof server failed", slog.Any("error", err))
			}
		}()
	}

	// 3. Graceful Shutdown Context
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 4. Refresh Loop + background icon sync
	if err := bootstrap.Loop.Start(ctx); err != nil {
		return err
	}
	go bootstrap.RunIconSync(ctx)

	// 5. HTTP surface
	if addr == "" {
		addr = bootstrap.Config.HTTP.Addr
	}
	server := httpapi.New(bootstrap.Loop,
		httpapi.WithLogger(bootstrap.Logger),
		httpapi.WithMetrics(bootstrap.Metrics),
		httpapi.WithIconCatalog(bootstrap.Catalog),
	)

	slog.InfoContext(ctx, "✨ Crypto Search operational. Press Ctrl+C to exit.")
	if err := server.ListenAndServe(ctx, addr); err != nil {
		slog.Error("HTTP server failed", slog.Any("error", err))
		return err
	}

	slog.Info("👋 Shutting down gracefully...")
	return nil
}
