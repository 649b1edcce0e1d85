// Package crawl walks a paginated discussion: it reveals each page, extracts
// its threads and follows the profile's pagination style until the pages
// run out.
package crawl

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
	"golang.org/x/time/rate"

	"github.com/use-agent/threadscope/dom"
	"github.com/use-agent/threadscope/extract"
	"github.com/use-agent/threadscope/models"
	"github.com/use-agent/threadscope/profile"
	"github.com/use-agent/threadscope/reveal"
	"github.com/use-agent/threadscope/simhash"
)

// Driver is the page automation surface a crawl runs against.
type Driver interface {
	reveal.Scroller

	Navigate(ctx context.Context, url string, timeout time.Duration) error
	CurrentURL(ctx context.Context) (string, error)
	Root(ctx context.Context) (dom.Node, error)
	HTML(ctx context.Context) (string, error)
	WaitSettled(ctx context.Context) error
}

// repeatThreshold is the simhash distance at or below which two consecutive
// pages count as the same page.
const repeatThreshold = 3

// Options tune one Crawler.
type Options struct {
	MaxPages       int           // overrides the profile when > 0
	NavTimeout     time.Duration // per navigation attempt
	Retries        int           // extra navigation attempts on failure
	RetryBase      time.Duration // first retry delay, doubled each attempt
	PagesPerSecond float64       // navigation pacing; <= 0 disables it

	// SkipReveal extracts each page as loaded, for drivers without scrolling.
	SkipReveal bool

	// Sleep replaces the revelation delays; nil waits in real time.
	Sleep func(ctx context.Context, d time.Duration) error
	Now   func() time.Time
}

// Crawler runs one profile against one driver. It is not safe for
// concurrent use.
type Crawler struct {
	driver    Driver
	profile   *profile.Profile
	extractor *extract.Extractor
	pattern   *regexp.Regexp
	opts      Options
	limiter   *rate.Limiter
	logger    *slog.Logger
}

// New validates the pagination settings of p and prepares a crawler.
func New(d Driver, p *profile.Profile, opts Options, logger *slog.Logger) (*Crawler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	ex, err := extract.New(p, logger)
	if err != nil {
		return nil, err
	}
	c := &Crawler{
		driver:    d,
		profile:   p,
		extractor: ex,
		opts:      opts,
		logger:    logger.With("profile", p.Name),
	}
	if p.Pagination.Style == profile.PaginateIncrement {
		re, err := regexp.Compile(p.Pagination.PagePattern)
		if err != nil {
			return nil, fmt.Errorf("page pattern: %w", err)
		}
		c.pattern = re
	}
	if c.opts.Now == nil {
		c.opts.Now = time.Now
	}
	if c.opts.RetryBase <= 0 {
		c.opts.RetryBase = 500 * time.Millisecond
	}
	limit := rate.Inf
	if opts.PagesPerSecond > 0 {
		limit = rate.Limit(opts.PagesPerSecond)
	}
	c.limiter = rate.NewLimiter(limit, 1)
	return c, nil
}

func (c *Crawler) maxPages() int {
	if c.opts.MaxPages > 0 {
		return c.opts.MaxPages
	}
	if c.profile.Pagination.MaxPages > 0 {
		return c.profile.Pagination.MaxPages
	}
	return 1
}

// Crawl extracts startURL and every page reachable through the profile's
// pagination. The returned result is never nil. An error is returned only
// when the first page cannot be loaded; later failures end the crawl and
// are recorded on the result.
func (c *Crawler) Crawl(ctx context.Context, startURL string) (*models.CrawlResult, error) {
	res := &models.CrawlResult{
		StartURL: startURL,
		Profile:  c.profile.Name,
		Pages:    []models.PageResult{},
	}

	if err := c.navigate(ctx, startURL); err != nil {
		ce := categorizeError(err, models.ErrCodeNavigation, "failed to load "+startURL)
		res.StopReason = models.StopNavFailed
		res.Error = ce.ToDetail()
		return res, ce
	}

	limit := c.maxPages()
	current := startURL
	var (
		prevPrint uint64
		havePrev  bool
	)

	for {
		if err := ctx.Err(); err != nil {
			c.stop(res, models.StopCanceled, err)
			return res, nil
		}

		page := c.visit(ctx, current)
		if c.profile.Pagination.Style == profile.PaginateNext {
			fp, ok := fingerprint(page)
			if ok && havePrev && simhash.Similar(prevPrint, fp, repeatThreshold) {
				c.logger.Info("next control led back to the same page", "url", page.URL)
				res.StopReason = models.StopRepeatedPage
				return res, nil
			}
			prevPrint, havePrev = fp, ok
		}
		res.Pages = append(res.Pages, page)

		if page.Error != nil && ctx.Err() != nil {
			c.stop(res, models.StopCanceled, ctx.Err())
			return res, nil
		}
		if len(res.Pages) >= limit {
			res.StopReason = models.StopMaxPages
			return res, nil
		}

		switch c.profile.Pagination.Style {
		case profile.PaginateNext:
			ok, err := c.clickNext(ctx)
			if err != nil {
				c.stop(res, models.StopNavFailed, err)
				return res, nil
			}
			if !ok {
				res.StopReason = models.StopNoNext
				return res, nil
			}
			if u, err := c.driver.CurrentURL(ctx); err == nil && u != "" {
				current = u
			}

		case profile.PaginateIncrement:
			next, err := NextURL(current, c.pattern)
			if err != nil {
				c.logger.Debug("no page number in url", "url", current, "error", err)
				res.StopReason = models.StopNoNext
				return res, nil
			}
			if err := c.navigate(ctx, next); err != nil {
				c.stop(res, models.StopNavFailed, err)
				return res, nil
			}
			landed, err := c.driver.CurrentURL(ctx)
			if err != nil {
				c.stop(res, models.StopNavFailed, err)
				return res, nil
			}
			if !sameURL(landed, next) {
				c.logger.Info("page request bounced", "want", next, "got", landed)
				res.StopReason = models.StopBounced
				return res, nil
			}
			current = next

		default:
			res.StopReason = models.StopSinglePage
			return res, nil
		}
	}
}

// stop ends the crawl with reason and records err on the result.
func (c *Crawler) stop(res *models.CrawlResult, reason string, err error) {
	res.StopReason = reason
	ce := categorizeError(err, models.ErrCodeNavigation, "crawl stopped after "+strconv.Itoa(len(res.Pages))+" pages")
	res.Error = ce.ToDetail()
	c.logger.Warn("crawl stopped", "reason", reason, "pages", len(res.Pages), "error", err)
}

// navigate loads u with exponential retry, waiting for the pacing limiter
// first.
func (c *Crawler) navigate(ctx context.Context, u string) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	retries := c.opts.Retries
	if retries < 0 {
		retries = 0
	}
	b := retry.WithMaxRetries(uint64(retries), retry.NewExponential(c.opts.RetryBase))
	attempt := 0
	return retry.Do(ctx, b, func(ctx context.Context) error {
		attempt++
		err := c.driver.Navigate(ctx, u, c.opts.NavTimeout)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return err
		}
		c.logger.Debug("navigation failed", "url", u, "attempt", attempt, "error", err)
		return retry.RetryableError(err)
	})
}

// visit reveals and extracts the currently loaded page. Failures are
// recorded on the returned PageResult.
func (c *Crawler) visit(ctx context.Context, pageURL string) models.PageResult {
	pr := models.PageResult{URL: pageURL, Threads: []models.Thread{}}
	fail := func(err error) models.PageResult {
		pr.ExtractedAt = c.opts.Now().UTC().Format(time.RFC3339)
		pr.Error = categorizeError(err, models.ErrCodeEvaluation, "page evaluation failed").ToDetail()
		c.logger.Warn("page evaluation failed", "url", pageURL, "error", err)
		return pr
	}

	root, err := c.driver.Root(ctx)
	if err != nil {
		return fail(err)
	}

	if !c.opts.SkipReveal {
		exp := reveal.NewExpander(c.profile, c.logger)
		exp.Sleep = c.opts.Sleep
		ctrl := reveal.NewController(c.driver, exp, c.profile.Reveal, c.logger)
		ctrl.Sleep = c.opts.Sleep
		r, err := ctrl.Run(ctx, root)
		if err != nil {
			return fail(err)
		}
		c.logger.Debug("page revealed", "url", pageURL, "rounds", r.Rounds,
			"converged", r.Converged, "expanded", r.Expanded)
	}

	var html string
	if c.profile.Post.Readability {
		if html, err = c.driver.HTML(ctx); err != nil {
			c.logger.Debug("page html unavailable", "url", pageURL, "error", err)
		}
	}

	page, err := c.extractor.Extract(ctx, extract.Document{Root: root, URL: pageURL, HTML: html})
	if err != nil {
		return fail(err)
	}
	pr.ExtractedAt = c.opts.Now().UTC().Format(time.RFC3339)
	pr.Post = page.Post
	pr.Threads = page.Threads
	return pr
}

// clickNext activates the in-page next control. It reports false when the
// control is absent or hidden.
func (c *Crawler) clickNext(ctx context.Context) (bool, error) {
	root, err := c.driver.Root(ctx)
	if err != nil {
		return false, err
	}
	next := dom.First(root, c.profile.Pagination.Next)
	if next == nil || !next.Box().Visible() {
		return false, nil
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return false, err
	}
	if err := reveal.Activate(ctx, next); err != nil {
		if errors.Is(err, dom.ErrStatic) {
			c.logger.Debug("next control needs a live page", "selector", c.profile.Pagination.Next)
			return false, nil
		}
		return false, fmt.Errorf("click next control: %w", err)
	}
	if err := c.driver.WaitSettled(ctx); err != nil {
		return false, fmt.Errorf("wait after next: %w", err)
	}
	return true, nil
}

// NextURL strips the query and fragment from current and replaces the page
// number captured by the first group of pattern with its successor.
func NextURL(current string, pattern *regexp.Regexp) (string, error) {
	u, err := url.Parse(current)
	if err != nil {
		return "", err
	}
	u.RawQuery = ""
	u.ForceQuery = false
	u.Fragment = ""
	u.RawFragment = ""

	p := u.Path
	loc := pattern.FindStringSubmatchIndex(p)
	if len(loc) < 4 || loc[2] < 0 {
		return "", fmt.Errorf("no page number in %q", p)
	}
	n, err := strconv.Atoi(p[loc[2]:loc[3]])
	if err != nil {
		return "", fmt.Errorf("page number %q: %w", p[loc[2]:loc[3]], err)
	}
	u.Path = p[:loc[2]] + strconv.Itoa(n+1) + p[loc[3]:]
	u.RawPath = ""
	return u.String(), nil
}

// sameURL compares two URLs after parsing, ignoring a trailing fragment.
func sameURL(a, b string) bool {
	ua, errA := url.Parse(a)
	ub, errB := url.Parse(b)
	if errA != nil || errB != nil {
		return a == b
	}
	ua.Fragment, ub.Fragment = "", ""
	ua.RawFragment, ub.RawFragment = "", ""
	return strings.EqualFold(ua.Host, ub.Host) && ua.Scheme == ub.Scheme &&
		ua.EscapedPath() == ub.EscapedPath() && ua.RawQuery == ub.RawQuery
}

// fingerprint summarizes the comments of a page. The post is left out since
// in-page pagination repeats it on every page. ok is false for a page
// without comments, which has nothing to compare.
func fingerprint(p models.PageResult) (fp uint64, ok bool) {
	var b strings.Builder
	for _, t := range p.Threads {
		b.WriteString(t.Author)
		b.WriteByte(' ')
		b.WriteString(t.Content)
		b.WriteByte(' ')
		for _, r := range t.Replies {
			b.WriteString(r.Author)
			b.WriteByte(' ')
			b.WriteString(r.Content)
			b.WriteByte(' ')
		}
	}
	if b.Len() == 0 {
		return 0, false
	}
	return simhash.Fingerprint(b.String()), true
}

// categorizeError maps err to a coded error, keeping an existing code.
func categorizeError(err error, code, msg string) *models.CrawlError {
	var ce *models.CrawlError
	if errors.As(err, &ce) {
		return ce
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return models.NewCrawlError(models.ErrCodeTimeout, "crawl timed out", err)
	}
	return models.NewCrawlError(code, msg, err)
}
