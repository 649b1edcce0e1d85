package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/use-agent/threadscope/dom"
	"github.com/use-agent/threadscope/reveal"
)

// ErrNoPage is returned when the driver is queried before a navigation.
var ErrNoPage = errors.New("engine: no page loaded")

// StaticDriver serves fetched HTML to the crawler. Pages cannot scroll or
// react to clicks, so crawls over it should skip revelation and rely on
// server-rendered markup and URL pagination.
type StaticDriver struct {
	engine  Engine
	headers map[string]string

	mu   sync.Mutex
	page *FetchResult
	root dom.Node
}

// NewStaticDriver returns a driver that loads pages through e.
func NewStaticDriver(e Engine, headers map[string]string) *StaticDriver {
	return &StaticDriver{engine: e, headers: headers}
}

func (d *StaticDriver) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	res, err := d.engine.Fetch(ctx, &FetchRequest{URL: url, Headers: d.headers, Timeout: timeout})
	if err != nil {
		return err
	}
	root, err := dom.ParseString(res.HTML)
	if err != nil {
		return err
	}
	d.mu.Lock()
	d.page, d.root = res, root
	d.mu.Unlock()
	return nil
}

func (d *StaticDriver) current() (*FetchResult, dom.Node, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.page == nil {
		return nil, nil, ErrNoPage
	}
	return d.page, d.root, nil
}

// CurrentURL reports the URL after redirects.
func (d *StaticDriver) CurrentURL(context.Context) (string, error) {
	p, _, err := d.current()
	if err != nil {
		return "", err
	}
	return p.FinalURL, nil
}

func (d *StaticDriver) Root(context.Context) (dom.Node, error) {
	_, root, err := d.current()
	return root, err
}

func (d *StaticDriver) HTML(context.Context) (string, error) {
	p, _, err := d.current()
	if err != nil {
		return "", err
	}
	return p.HTML, nil
}

func (d *StaticDriver) WaitSettled(context.Context) error { return nil }

func (d *StaticDriver) ScrollBy(context.Context, float64) error { return nil }

func (d *StaticDriver) ScrollToBottom(context.Context) error { return nil }

// Metrics reports a fixed viewport at the bottom of the document.
func (d *StaticDriver) Metrics(context.Context) (reveal.Metrics, error) {
	if _, _, err := d.current(); err != nil {
		return reveal.Metrics{}, err
	}
	return reveal.Metrics{ScrollHeight: 1, ViewportBottom: 1, ViewportHeight: 1}, nil
}
