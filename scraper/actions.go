package scraper

import (
	"context"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/use-agent/threadscope/models"
	"github.com/use-agent/threadscope/profile"
	"github.com/use-agent/threadscope/reveal"
)

// actionTimeout is the per-action deadline.
const actionTimeout = 10 * time.Second

// runSetup executes the profile's setup actions in order. Optional
// failures are logged and skipped.
func (ss *Session) runSetup(ctx context.Context) error {
	for i, a := range ss.setup {
		if err := runAction(ctx, ss.page, a); err != nil {
			if a.Optional {
				ss.sc.logger.Debug("optional setup action failed", "index", i, "type", a.Type, "error", err)
				continue
			}
			return models.NewCrawlError(
				models.ErrCodeEvaluation,
				fmt.Sprintf("setup action %d (%s) failed after %d completed", i, a.Type, i),
				err,
			)
		}
	}
	return nil
}

// runAction dispatches a single action with its own timeout.
func runAction(ctx context.Context, page *rod.Page, a profile.Action) error {
	actionCtx, cancel := context.WithTimeout(ctx, actionTimeout)
	defer cancel()

	p := page.Context(actionCtx)

	switch a.Type {
	case profile.ActionWait:
		if a.Selector != "" {
			return p.WaitElementsMoreThan(a.Selector, 0)
		}
		return reveal.Sleep(actionCtx, a.Duration)
	case profile.ActionClick:
		el, err := p.Element(a.Selector)
		if err != nil {
			return fmt.Errorf("element %q not found: %w", a.Selector, err)
		}
		return el.Click(proto.InputMouseButtonLeft, 1)
	case profile.ActionScroll:
		return scrollViewports(actionCtx, p, a.Amount)
	case profile.ActionEval:
		_, err := p.Eval(a.Code)
		return err
	default:
		return fmt.Errorf("unknown action type: %s", a.Type)
	}
}

// scrollViewports scrolls down by amount viewports, pausing between steps
// so lazy loaders can fire.
func scrollViewports(ctx context.Context, p *rod.Page, amount int) error {
	if amount <= 0 {
		amount = 1
	}
	res, err := p.Eval(`() => window.innerHeight`)
	if err != nil {
		return fmt.Errorf("failed to get viewport height: %w", err)
	}
	vh := res.Value.Num()

	for i := 0; i < amount; i++ {
		if err := p.Mouse.Scroll(0, vh, 0); err != nil {
			return fmt.Errorf("scroll step %d failed: %w", i, err)
		}
		if err := reveal.Sleep(ctx, 100*time.Millisecond); err != nil {
			return err
		}
	}
	return nil
}
