package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"crypto_search/internal/app"
	"crypto_search/internal/ui"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

func main() {
	opts := app.Options{Name: "tui", FileLogOnly: true}

	rootCmd := &cobra.Command{
		Use:          "crypto-search-tui",
		Short:        "Live, searchable coin table in the terminal",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(opts)
		},
	}
	rootCmd.Flags().StringVar(&opts.ConfigPath, "config", "configs/config.yaml", "config file location")
	rootCmd.Flags().StringVar(&opts.EnvFile, "env-file", ".env", "dotenv file loaded before the config")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(opts app.Options) error {
	bootstrap := app.NewBootstrap()
	if err := bootstrap.Initialize(opts); err != nil {
		return err
	}
	if err := bootstrap.InitRefresh(); err != nil {
		return err
	}
	defer bootstrap.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loop := bootstrap.Loop
	// Subscribe before Start so the first publish is not missed.
	model := ui.New(loop, loop.Stop)
	if err := loop.Start(ctx); err != nil {
		return err
	}

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}
