// Package runner turns an extract request into one bounded crawl: it picks
// the site profile and the driver, applies the deadline and releases the
// browser tab afterwards.
package runner

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"time"

	"github.com/use-agent/threadscope/config"
	"github.com/use-agent/threadscope/crawl"
	"github.com/use-agent/threadscope/engine"
	"github.com/use-agent/threadscope/models"
	"github.com/use-agent/threadscope/profile"
)

// Engine names accepted in requests.
const (
	EngineBrowser = "browser"
	EngineHTTP    = "http"
)

// OpenFunc provides a browser driver prepared for p, and the function that
// hands it back. release receives whether the crawl failed.
type OpenFunc func(ctx context.Context, p *profile.Profile) (d crawl.Driver, release func(failed bool), err error)

// Runner is safe for concurrent use; each Run builds its own crawler.
type Runner struct {
	profiles *profile.Registry
	open     OpenFunc
	fetcher  engine.Engine
	cfg      config.CrawlConfig
	logger   *slog.Logger
}

// New returns a runner. open may be nil when no browser is available, in
// which case only the http engine works.
func New(profiles *profile.Registry, open OpenFunc, fetcher engine.Engine, cfg config.CrawlConfig, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{profiles: profiles, open: open, fetcher: fetcher, cfg: cfg, logger: logger}
}

// Profiles returns the registry requests are resolved against.
func (r *Runner) Profiles() *profile.Registry { return r.profiles }

// Run executes req. The result is nil only when the request is invalid or
// no driver could be prepared; otherwise it holds every page extracted
// before any failure.
func (r *Runner) Run(ctx context.Context, req *models.ExtractRequest) (*models.CrawlResult, error) {
	req.Defaults()
	if u, err := url.Parse(req.URL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, models.NewCrawlError(models.ErrCodeInvalidInput, "url must be an absolute http(s) URL", err)
	}
	p, err := r.profiles.Resolve(req.Profile, req.URL)
	if err != nil {
		return nil, err
	}

	timeout := time.Duration(req.Timeout) * time.Second
	if timeout <= 0 {
		timeout = r.cfg.DefaultTimeout
	}
	if r.cfg.MaxTimeout > 0 && timeout > r.cfg.MaxTimeout {
		timeout = r.cfg.MaxTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var (
		d       crawl.Driver
		release = func(bool) {}
		static  bool
	)
	switch req.Engine {
	case EngineHTTP:
		if r.fetcher == nil {
			return nil, models.NewCrawlError(models.ErrCodeInvalidInput, "http engine is not configured", nil)
		}
		d, static = engine.NewStaticDriver(r.fetcher, nil), true
	case EngineBrowser:
		if r.open == nil {
			return nil, models.NewCrawlError(models.ErrCodeBrowserCrash, "browser engine is not available", nil)
		}
		if d, release, err = r.open(ctx, p); err != nil {
			return nil, err
		}
	default:
		return nil, models.NewCrawlError(models.ErrCodeInvalidInput, "unknown engine "+req.Engine, nil)
	}

	c, err := crawl.New(d, p, crawl.Options{
		MaxPages:       req.MaxPages,
		NavTimeout:     r.cfg.NavigationTimeout,
		Retries:        r.cfg.NavRetries,
		RetryBase:      r.cfg.RetryBase,
		PagesPerSecond: r.cfg.PagesPerSecond,
		SkipReveal:     static,
	}, r.logger)
	if err != nil {
		release(true)
		return nil, models.NewCrawlError(models.ErrCodeInternal, "profile cannot be crawled", err)
	}

	start := time.Now()
	res, err := c.Crawl(ctx, req.URL)
	release(err != nil || crashed(res))

	r.logger.Info("crawl finished",
		"url", req.URL,
		"profile", p.Name,
		"engine", req.Engine,
		"pages", len(res.Pages),
		"threads", res.ThreadCount(),
		"replies", res.ReplyCount(),
		"stopReason", res.StopReason,
		"duration", time.Since(start).Round(time.Millisecond),
	)
	return res, err
}

// crashed reports whether the crawl ended on a failure that suggests the
// tab is unhealthy.
func crashed(res *models.CrawlResult) bool {
	return res != nil && res.Error != nil && res.Error.Code != models.ErrCodeTimeout
}

// CodeOf extracts the error code of err, defaulting to INTERNAL_ERROR.
func CodeOf(err error) string {
	var ce *models.CrawlError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return models.ErrCodeInternal
}

// DetailOf converts err to its wire form.
func DetailOf(err error) *models.ErrorDetail {
	var ce *models.CrawlError
	if errors.As(err, &ce) {
		return ce.ToDetail()
	}
	return &models.ErrorDetail{Code: models.ErrCodeInternal, Message: err.Error()}
}
