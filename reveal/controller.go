package reveal

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/use-agent/threadscope/dom"
	"github.com/use-agent/threadscope/profile"
)

// Metrics is a measurement of the page's scroll extent.
type Metrics struct {
	ScrollHeight   float64
	ViewportBottom float64 // scrollY + innerHeight
	ViewportHeight float64
}

// Scroller is the scrolling surface of a live page.
type Scroller interface {
	ScrollBy(ctx context.Context, dy float64) error
	ScrollToBottom(ctx context.Context) error
	Metrics(ctx context.Context) (Metrics, error)
}

// Result reports how a revelation run ended. Reaching MaxRounds without
// converging is a normal outcome.
type Result struct {
	Rounds    int
	Converged bool
	Expanded  int
	Height    float64
}

// Controller scrolls a page until its height stops changing for
// StableRounds consecutive rounds, bounded by MaxRounds. Use a fresh
// Controller per page.
type Controller struct {
	scroller Scroller
	expander *Expander
	settings profile.RevealSettings
	logger   *slog.Logger

	// Sleep waits out the settle delay; nil uses the package Sleep.
	Sleep func(ctx context.Context, d time.Duration) error
}

// NewController returns a controller for one page. expander may be nil.
func NewController(s Scroller, e *Expander, settings profile.RevealSettings, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{scroller: s, expander: e, settings: settings, logger: logger}
}

// Run executes scroll rounds against the page, expanding under root every
// ExpandEvery rounds, then runs the final expansion passes.
func (c *Controller) Run(ctx context.Context, root dom.Node) (Result, error) {
	var res Result
	st := c.settings

	m, err := c.scroller.Metrics(ctx)
	if err != nil {
		return res, fmt.Errorf("measure page: %w", err)
	}

	var lastH float64
	stable := 0
	for round := 1; round <= st.MaxRounds; round++ {
		res.Rounds = round

		if err := c.scroll(ctx, m); err != nil {
			return res, fmt.Errorf("scroll round %d: %w", round, err)
		}
		if err := c.sleep(ctx, st.Pause); err != nil {
			return res, err
		}
		if c.expander != nil && st.ExpandEvery > 0 && round%st.ExpandEvery == 0 {
			res.Expanded += c.expander.Pass(ctx, root, st.ExpandLimit)
		}

		if m, err = c.scroller.Metrics(ctx); err != nil {
			return res, fmt.Errorf("measure round %d: %w", round, err)
		}
		if m.ScrollHeight == lastH {
			stable++
		} else {
			stable = 0
		}
		lastH = m.ScrollHeight
		res.Height = m.ScrollHeight

		nearBottom := st.BottomGap <= 0 || m.ViewportBottom >= m.ScrollHeight-float64(st.BottomGap)
		if stable >= st.StableRounds && nearBottom {
			res.Converged = true
			break
		}
	}

	if c.expander != nil && st.FinalRounds > 0 {
		res.Expanded += c.expander.ExpandAll(ctx, root, st.FinalRounds, st.FinalPerRound)
	}

	c.logger.Debug("revelation finished",
		"rounds", res.Rounds,
		"converged", res.Converged,
		"expanded", res.Expanded,
		"height", res.Height,
	)
	return res, ctx.Err()
}

func (c *Controller) scroll(ctx context.Context, m Metrics) error {
	if c.settings.Mode == profile.ScrollBottom {
		return c.scroller.ScrollToBottom(ctx)
	}
	step := math.Max(float64(c.settings.MinStep), m.ViewportHeight*c.settings.StepRatio)
	return c.scroller.ScrollBy(ctx, step)
}

func (c *Controller) sleep(ctx context.Context, d time.Duration) error {
	if c.Sleep != nil {
		return c.Sleep(ctx, d)
	}
	return Sleep(ctx, d)
}
