package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/use-agent/threadscope/config"
	"github.com/use-agent/threadscope/crawl"
	"github.com/use-agent/threadscope/engine"
	"github.com/use-agent/threadscope/profile"
	"github.com/use-agent/threadscope/runner"
	"github.com/use-agent/threadscope/scraper"
)

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "threadscope",
		Short: "Extract posts and comment threads from dynamic forum pages",
		Long: `threadscope renders a forum page, expands every collapsed comment and
reply, and returns the post with its threads as structured data. Pages
are followed through the site's pagination until it runs out.

Configuration comes from THREADSCOPE_* environment variables. Site profiles
in $XDG_CONFIG_HOME/threadscope/profiles extend the built-in ones.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().String("profiles-dir", "", "Directory of site profile YAML files (overrides THREADSCOPE_PROFILES_DIR)")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewCrawlCmd())
	cmd.AddCommand(NewProfilesCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads the environment and applies persistent flag overrides.
func loadConfig(cmd *cobra.Command) *config.Config {
	cfg := config.Load()
	if dir, _ := cmd.Flags().GetString("profiles-dir"); dir != "" {
		cfg.Profiles.Dir = dir
	}
	return cfg
}

// loadProfiles returns the built-in profiles extended by the user directory.
func loadProfiles(cfg *config.Config) (*profile.Registry, error) {
	reg := profile.Default()
	n, err := reg.LoadDir(cfg.Profiles.Dir)
	if err != nil {
		return nil, fmt.Errorf("load profiles from %s: %w", cfg.Profiles.Dir, err)
	}
	if n > 0 {
		slog.Info("user profiles loaded", "dir", cfg.Profiles.Dir, "count", n)
	}
	return reg, nil
}

// launch starts the browser pool and returns it with the matching opener.
func launch(cfg *config.Config) (*scraper.Scraper, runner.OpenFunc, error) {
	sc, err := scraper.NewScraper(cfg.Browser, slog.Default())
	if err != nil {
		return nil, nil, err
	}
	open := func(ctx context.Context, p *profile.Profile) (crawl.Driver, func(bool), error) {
		ss, err := sc.Acquire(ctx, p)
		if err != nil {
			return nil, nil, err
		}
		return ss, ss.Release, nil
	}
	return sc, open, nil
}

// newFetcher returns the static HTML engine used by --engine http.
func newFetcher(cfg *config.Config) engine.Engine {
	return engine.NewHTTPEngine(cfg.Browser.DefaultProxy)
}

// initLogger configures slog based on the LogConfig.
func initLogger(cfg config.LogConfig, w io.Writer) {
	var level slog.Level
	switch cfg.Level {
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
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}

	slog.SetDefault(slog.New(handler))
}
