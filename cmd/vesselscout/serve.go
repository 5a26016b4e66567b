package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/use-agent/vesselscout/api"
	"github.com/use-agent/vesselscout/engine"
	"github.com/use-agent/vesselscout/scraper"
	"github.com/use-agent/vesselscout/store"
	"github.com/use-agent/vesselscout/trigger"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Starts the HTTP API.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		slog.Info("vesselscout starting",
			"host", cfg.Server.Host,
			"port", cfg.Server.Port,
			"mode", cfg.Server.Mode,
			"maxSessions", cfg.Browser.MaxSessions,
		)

		// ── 1. Initialise scraper (launches browser) ────────────────
		sc, err := scraper.New(cfg)
		if err != nil {
			return err
		}
		defer sc.Close()

		// ── 2. Store and trigger de-duplication ─────────────────────
		s, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer s.Close(context.Background())

		builder := newBuilder(cfg, s)
		deps := api.Deps{
			Sessions: sc,
			Runner:   engine.NewDispatcher(cfg, sc),
			Builder:  builder,
			Trigger:  trigger.NewClient(cfg.Trigger),
			Store:    s,
		}
		if cfg.Redis.Addr != "" && cfg.Trigger.DedupTTL > 0 {
			rc, err := store.ConnectRedis(ctx, cfg.Redis)
			if err != nil {
				return err
			}
			dedup := store.NewDedup(rc, cfg.Trigger.DedupTTL)
			defer dedup.Close()
			deps.Dedup = dedup
			slog.Info("trigger de-duplication enabled", "ttl", cfg.Trigger.DedupTTL)
		}

		// ── 3. Setup router ─────────────────────────────────────────
		router := api.NewRouter(ctx, cfg, deps, time.Now())

		// ── 4. Start HTTP server ────────────────────────────────────
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		srv := &http.Server{
			Addr:              addr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		}

		errc := make(chan error, 1)
		go func() {
			slog.Info("HTTP server listening", "addr", addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errc <- err
			}
			close(errc)
		}()

		// ── 5. Graceful shutdown ────────────────────────────────────
		select {
		case err := <-errc:
			return fmt.Errorf("HTTP server: %w", err)
		case <-ctx.Done():
			slog.Info("shutdown signal received")
		}

		// In-flight scrapes get the scrape timeout to finish.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Scraper.Timeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("HTTP server forced shutdown", "error", err)
		} else {
			slog.Info("HTTP server drained gracefully")
		}
		slog.Info("vesselscout stopped")
		return nil
	},
}
