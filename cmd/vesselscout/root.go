package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/use-agent/vesselscout/config"
)

// errSilent marks a failure that was already reported on stdout.
var errSilent = errors.New("silent failure")

// cfg is loaded once before any subcommand runs.
var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:           "vesselscout",
	Short:         "vesselscout scrapes vessel positions from public tracking sites.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		// A missing .env is normal in CI and containers.
		if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load .env: %w", err)
		}
		c, err := config.Load(cmd.Context())
		if err != nil {
			return err
		}
		cfg = c
		initLogger(cfg.Log, os.Stderr)
		return nil
	},
}

func execute(ctx context.Context) int {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errSilent) {
			fmt.Fprintln(os.Stderr, err)
		}
		return 1
	}
	return 0
}

// initLogger configures slog based on the LogConfig.
func initLogger(c config.LogConfig, w io.Writer) {
	var level slog.Level
	switch c.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if c.Format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	slog.SetDefault(slog.New(handler))
}
