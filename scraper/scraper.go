// Package scraper owns the headless browser: it launches Chromium, pools
// tabs and hands them out as sessions that drive one crawl each.
package scraper

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"

	"github.com/use-agent/threadscope/config"
	"github.com/use-agent/threadscope/models"
)

// Scraper manages the global browser lifecycle and the page pool.
// It is safe for concurrent use.
type Scraper struct {
	browser     *rod.Browser
	pagePool    rod.Pool[rod.Page]
	cfg         config.BrowserConfig
	activePages atomic.Int32
	startTime   time.Time
	logger      *slog.Logger

	mu     sync.Mutex
	health map[*rod.Page]*pageHealth
}

// NewScraper launches a headless browser and initialises the reusable page pool.
func NewScraper(cfg config.BrowserConfig, logger *slog.Logger) (*Scraper, error) {
	if logger == nil {
		logger = slog.Default()
	}
	l := launcher.New().
		Headless(cfg.Headless).
		NoSandbox(cfg.NoSandbox)

	if cfg.BrowserBin != "" {
		l = l.Bin(cfg.BrowserBin)
	}
	if cfg.DefaultProxy != "" {
		l = l.Proxy(cfg.DefaultProxy)
	}

	// ── Stealth flags ────────────────────────────────────────────────
	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))
	l.Set(flags.Flag("disable-features"), "AudioServiceOutOfProcess,TranslateUI")
	l.Set(flags.Flag("disable-background-timer-throttling"))
	l.Set(flags.Flag("disable-backgrounding-occluded-windows"))
	l.Set(flags.Flag("disable-renderer-backgrounding"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("disable-extensions"))
	l.Set(flags.Flag("no-first-run"))
	l.Set(flags.Flag("lang"), "zh-CN")

	controlURL, err := l.Launch()
	if err != nil {
		return nil, models.NewCrawlError(models.ErrCodeBrowserCrash, "failed to launch browser", err)
	}
	logger.Info("browser launched", "controlURL", controlURL)

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, models.NewCrawlError(models.ErrCodeBrowserCrash, "failed to connect to browser", err)
	}

	maxPages := cfg.MaxPages
	if maxPages <= 0 {
		maxPages = 1
	}
	logger.Info("page pool created", "maxPages", maxPages)

	return &Scraper{
		browser:   browser,
		pagePool:  rod.NewPagePool(maxPages),
		cfg:       cfg,
		startTime: time.Now(),
		logger:    logger,
		health:    make(map[*rod.Page]*pageHealth),
	}, nil
}

// Stats returns a snapshot of the pool's current state.
func (s *Scraper) Stats() models.PoolStats {
	return models.PoolStats{
		MaxPages:    s.cfg.MaxPages,
		ActivePages: int(s.activePages.Load()),
	}
}

// Close drains the page pool and kills the browser process.
// Call this on graceful shutdown to prevent zombie Chrome processes.
func (s *Scraper) Close() {
	s.logger.Info("scraper shutting down: draining page pool")
	s.pagePool.Cleanup(func(p *rod.Page) {
		_ = p.Close()
	})
	s.logger.Info("scraper shutting down: closing browser")
	if err := s.browser.Close(); err != nil {
		s.logger.Warn("browser close failed", "error", err)
	}
}

// healthOf returns the tracking record for p, creating it on first use.
func (s *Scraper) healthOf(p *rod.Page) *pageHealth {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.health[p]
	if !ok {
		h = newPageHealth(time.Now())
		s.health[p] = h
	}
	return h
}

func (s *Scraper) forget(p *rod.Page) {
	s.mu.Lock()
	delete(s.health, p)
	s.mu.Unlock()
}
