package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"crypto_search/internal/app"
	"crypto_search/internal/relay"

	"github.com/spf13/cobra"
)

func main() {
	opts := app.Options{Name: "relay"}
	var addr string

	rootCmd := &cobra.Command{
		Use:          "relay",
		Short:        "Forwards GET /api/coins to the configured market data provider",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(opts, addr)
		},
	}
	rootCmd.Flags().StringVar(&opts.ConfigPath, "config", "configs/config.yaml", "config file location")
	rootCmd.Flags().StringVar(&opts.EnvFile, "env-file", ".env", "dotenv file loaded before the config")
	rootCmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides relay.addr)")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(opts app.Options, addr string) error {
	bootstrap := app.NewBootstrap()
	if err := bootstrap.Initialize(opts); err != nil {
		slog.Error("❌ Bootstrapping failed", slog.Any("error", err))
		return err
	}
	cfg := bootstrap.Config
	if addr == "" {
		addr = cfg.Relay.Addr
	}

	handler := relay.NewHandler(cfg.Relay.UpstreamURL, cfg.Relay.Timeout, relay.WithLogger(bootstrap.Logger))
	srv := relay.NewServer(addr, handler)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	slog.Info("Proxy server running", slog.String("addr", addr), slog.String("upstream", cfg.Relay.UpstreamURL))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Relay server failed", slog.Any("error", err))
		return err
	}

	slog.Info("👋 Relay stopped")
	return nil
}
