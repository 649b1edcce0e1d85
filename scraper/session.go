package scraper

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/ysmood/gson"

	"github.com/use-agent/threadscope/dom"
	"github.com/use-agent/threadscope/models"
	"github.com/use-agent/threadscope/profile"
	"github.com/use-agent/threadscope/reveal"
)

// Session is one pooled tab bound to a crawl. It implements the crawler's
// driver surface. A Session is not safe for concurrent use.
type Session struct {
	sc     *Scraper
	page   *rod.Page
	router *rod.HijackRouter
	setup  []profile.Action
}

// Acquire borrows a tab from the pool and prepares it for p: stealth
// injection, extra headers and resource blocking all happen before the
// first navigation. Release must be called exactly once.
func (s *Scraper) Acquire(ctx context.Context, p *profile.Profile) (*Session, error) {
	s.activePages.Add(1)

	page, err := s.pagePool.Get(func() (*rod.Page, error) {
		return s.browser.Page(proto.TargetCreateTarget{})
	})
	if err != nil {
		s.activePages.Add(-1)
		return nil, models.NewCrawlError(models.ErrCodeBrowserCrash, "failed to acquire page from pool", err)
	}
	ss := &Session{sc: s, page: page, setup: p.Setup}

	if s.cfg.Stealth {
		if _, err := page.EvalOnNewDocument(stealth.JS); err != nil {
			s.logger.Warn("stealth injection failed, proceeding without stealth", "error", err)
		}
	}

	headers := proto.NetworkHeaders{"Accept-Language": gson.New("zh-CN,zh;q=0.9,en;q=0.8")}
	if len(p.Hosts) > 0 {
		headers["Referer"] = gson.New("https://www." + p.Hosts[0] + "/")
	}
	if err := (proto.NetworkSetExtraHTTPHeaders{Headers: headers}).Call(page); err != nil {
		s.logger.Debug("extra headers not set", "error", err)
	}

	ss.router = setupHijack(page, s.cfg.BlockedResourceTypes, s.cfg.BlockAds)
	return ss, nil
}

// Release returns the tab to the pool after clearing its DOM. Tabs that
// failed repeatedly or served many crawls are closed instead.
func (ss *Session) Release(failed bool) {
	s := ss.sc
	defer s.activePages.Add(-1)

	if ss.router != nil {
		_ = ss.router.Stop()
	}

	h := s.healthOf(ss.page)
	h.record(failed)
	if h.retire(time.Now()) {
		s.logger.Info("retiring browser tab", "failed", failed)
		s.forget(ss.page)
		_ = ss.page.Close()
		s.pagePool.Put(nil)
		return
	}

	// The original page reference carries no request context, so cleanup
	// succeeds even after the crawl deadline has passed.
	if err := ss.page.Navigate("about:blank"); err != nil {
		s.logger.Warn("cleanup: failed to navigate to about:blank", "error", err)
	}
	s.pagePool.Put(ss.page)
}

// Navigate loads rawURL, waits for the DOM to settle and runs the
// profile's setup actions.
func (ss *Session) Navigate(ctx context.Context, rawURL string, timeout time.Duration) error {
	if _, err := url.ParseRequestURI(rawURL); err != nil {
		return models.NewCrawlError(models.ErrCodeInvalidInput, "invalid url", err)
	}
	navCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		navCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	p := ss.page.Context(navCtx)
	if err := p.Navigate(rawURL); err != nil {
		return categorizeError(err, "navigation to "+rawURL+" failed")
	}
	if err := p.WaitLoad(); err != nil {
		ss.sc.logger.Debug("load event not observed", "url", rawURL, "error", err)
	}
	if err := ss.WaitSettled(navCtx); err != nil {
		return categorizeError(err, "page did not settle")
	}
	return ss.runSetup(ctx)
}

// Evaluate runs js, a function expression, in the page and returns its
// JSON value.
func (ss *Session) Evaluate(ctx context.Context, js string, args ...interface{}) (gson.JSON, error) {
	res, err := ss.page.Context(ctx).Eval(js, args...)
	if err != nil {
		return gson.JSON{}, categorizeEvalError(err)
	}
	return res.Value, nil
}

func (ss *Session) CurrentURL(ctx context.Context) (string, error) {
	info, err := ss.page.Context(ctx).Info()
	if err != nil {
		return "", categorizeEvalError(err)
	}
	return info.URL, nil
}

// Root returns the live document element.
func (ss *Session) Root(ctx context.Context) (dom.Node, error) {
	els, err := ss.page.Context(ctx).Elements("html")
	if err != nil {
		return nil, categorizeEvalError(err)
	}
	if len(els) == 0 {
		return nil, models.NewCrawlError(models.ErrCodeEvaluation, "document has no root element", nil)
	}
	return rodNode{el: els.First()}, nil
}

func (ss *Session) HTML(ctx context.Context) (string, error) {
	html, err := ss.page.Context(ctx).HTML()
	if err != nil {
		return "", categorizeEvalError(err)
	}
	return html, nil
}

// WaitSettled waits for the DOM to stop changing. Pages that never settle
// are used as they are unless ctx has ended.
func (ss *Session) WaitSettled(ctx context.Context) error {
	if err := ss.page.Context(ctx).WaitDOMStable(300*time.Millisecond, 0.1); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		ss.sc.logger.Debug("WaitDOMStable did not converge, proceeding with current DOM", "error", err)
	}
	return nil
}

func (ss *Session) ScrollBy(ctx context.Context, dy float64) error {
	_, err := ss.Evaluate(ctx, `(dy) => window.scrollBy(0, dy)`, dy)
	return err
}

func (ss *Session) ScrollToBottom(ctx context.Context) error {
	_, err := ss.Evaluate(ctx, `() => window.scrollTo(0, Math.max(document.body.scrollHeight, document.documentElement.scrollHeight))`)
	return err
}

const metricsJS = `() => {
	const h = Math.max(document.body ? document.body.scrollHeight : 0, document.documentElement.scrollHeight);
	return {h: h, b: window.scrollY + window.innerHeight, vh: window.innerHeight};
}`

func (ss *Session) Metrics(ctx context.Context) (reveal.Metrics, error) {
	v, err := ss.Evaluate(ctx, metricsJS)
	if err != nil {
		return reveal.Metrics{}, err
	}
	return reveal.Metrics{
		ScrollHeight:   v.Get("h").Num(),
		ViewportBottom: v.Get("b").Num(),
		ViewportHeight: v.Get("vh").Num(),
	}, nil
}

// categorizeError wraps raw navigation errors into coded errors so the API
// layer can map them to appropriate HTTP status codes.
func categorizeError(err error, msg string) *models.CrawlError {
	var ce *models.CrawlError
	switch {
	case errors.As(err, &ce):
		return ce
	case errors.Is(err, context.DeadlineExceeded):
		return models.NewCrawlError(models.ErrCodeTimeout, msg, err)
	case errors.Is(err, context.Canceled):
		return models.NewCrawlError(models.ErrCodeTimeout, "crawl canceled", err)
	default:
		return models.NewCrawlError(models.ErrCodeNavigation, msg, err)
	}
}

func categorizeEvalError(err error) *models.CrawlError {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return models.NewCrawlError(models.ErrCodeTimeout, "crawl timed out", err)
	}
	return models.NewCrawlError(models.ErrCodeEvaluation, fmt.Sprintf("page evaluation failed: %v", err), err)
}
