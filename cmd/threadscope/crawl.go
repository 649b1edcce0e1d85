package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/use-agent/threadscope/models"
	"github.com/use-agent/threadscope/report"
	"github.com/use-agent/threadscope/runner"
)

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl <url>",
		Short: "Extract one post and all its threads",
		Long: `Crawl opens the page, reveals every hidden comment and reply, and follows
the pagination until the site runs out of pages or --max-pages is reached.

Examples:
  # Render with Chromium and print JSON
  threadscope crawl https://www.dongchedi.com/ugc/article/7301234567890

  # Static fetch of a server-rendered forum, Markdown to a file
  threadscope crawl --engine http --format markdown -o thread.md \
      https://club.autohome.com.cn/bbs/thread/abc/123456-1.html`,
		Args: cobra.ExactArgs(1),
		RunE: runCrawl,
	}

	cmd.Flags().StringP("profile", "p", "", "Site profile name (default: chosen by host)")
	cmd.Flags().IntP("max-pages", "n", 0, "Maximum pages to follow (default: profile setting)")
	cmd.Flags().IntP("timeout", "t", 0, "Deadline for the whole crawl in seconds (default: 120)")
	cmd.Flags().StringP("engine", "e", runner.EngineBrowser, "Driver: browser or http")
	cmd.Flags().StringP("format", "f", report.FormatJSON, "Output format: json or markdown")
	cmd.Flags().StringP("output", "o", "", "Write the report to this file instead of stdout")
	cmd.Flags().BoolP("verbose", "v", false, "Log progress to stderr")

	return cmd
}

func runCrawl(cmd *cobra.Command, args []string) error {
	cfg := loadConfig(cmd)
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		cfg.Log.Level = "debug"
	} else if cfg.Log.Level == "info" {
		cfg.Log.Level = "warn"
	}
	cfg.Log.Format = "text"
	initLogger(cfg.Log, cmd.ErrOrStderr())

	req := &models.ExtractRequest{URL: args[0]}
	req.Profile, _ = cmd.Flags().GetString("profile")
	req.MaxPages, _ = cmd.Flags().GetInt("max-pages")
	req.Timeout, _ = cmd.Flags().GetInt("timeout")
	req.Engine, _ = cmd.Flags().GetString("engine")
	format, _ := cmd.Flags().GetString("format")
	output, _ := cmd.Flags().GetString("output")

	// Fail on a bad format before a browser is launched.
	if _, err := report.New(format, io.Discard); err != nil {
		return err
	}

	profiles, err := loadProfiles(cfg)
	if err != nil {
		return err
	}

	var open runner.OpenFunc
	if req.Engine != runner.EngineHTTP {
		sc, o, err := launch(cfg)
		if err != nil {
			return fmt.Errorf("initialise browser: %w", err)
		}
		defer sc.Close()
		open = o
	}
	rn := runner.New(profiles, open, newFetcher(cfg), cfg.Crawl, slog.Default())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, runErr := rn.Run(ctx, req)
	if res == nil {
		return runErr
	}

	out := cmd.OutOrStdout()
	if output != "" {
		if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	w, _ := report.New(format, out)
	if err := w.Write(res); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	if runErr != nil && len(res.Pages) == 0 {
		return runErr
	}
	return nil
}
