package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/use-agent/threadscope/api"
	"github.com/use-agent/threadscope/cache"
	"github.com/use-agent/threadscope/models"
	"github.com/use-agent/threadscope/runner"
	"github.com/use-agent/threadscope/webhook"
)

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
	cmd.Flags().Bool("no-browser", false, "Serve only the http engine without launching Chromium")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg := loadConfig(cmd)
	initLogger(cfg.Log, os.Stdout)
	slog.Info("threadscope starting",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"mode", cfg.Server.Mode,
		"maxPages", cfg.Browser.MaxPages,
	)

	profiles, err := loadProfiles(cfg)
	if err != nil {
		return err
	}

	var (
		open  runner.OpenFunc
		stats func() models.PoolStats
	)
	if noBrowser, _ := cmd.Flags().GetBool("no-browser"); !noBrowser {
		sc, o, err := launch(cfg)
		if err != nil {
			return fmt.Errorf("initialise browser: %w", err)
		}
		// sc.Close drains the page pool and kills Chrome.
		defer sc.Close()
		open, stats = o, sc.Stats
	}

	rn := runner.New(profiles, open, newFetcher(cfg), cfg.Crawl, slog.Default())
	cc := cache.New(cfg.Cache.MaxEntries, cfg.Cache.TTL)
	defer cc.Close()
	wh := webhook.NewNotifier(cfg.Webhook.Timeout, slog.Default())

	router := api.NewRouter(rn, cc, wh, stats, cfg, time.Now())

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	errc := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		slog.Info("shutdown signal received", "signal", sig.String())
	case err := <-errc:
		return fmt.Errorf("http server: %w", err)
	}

	// Synchronous extractions may run for minutes; give them a short grace.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("HTTP server forced shutdown", "error", err)
	} else {
		slog.Info("HTTP server drained gracefully")
	}
	slog.Info("threadscope stopped")
	return nil
}
