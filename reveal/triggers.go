// Package reveal drives lazily loaded content into the tree: it scrolls the
// page until its height converges and activates "show more" controls.
package reveal

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/use-agent/threadscope/dom"
	"github.com/use-agent/threadscope/profile"
)

// keyLimit is the number of runes of outer HTML used as a trigger key when
// the node has no key attribute.
const keyLimit = 120

// FindTriggers returns the visible expand controls under root in match order
// then document order, each control at most once.
func FindTriggers(root dom.Node, matches []profile.TriggerMatch) []dom.Node {
	if root == nil {
		return nil
	}
	var out []dom.Node
	seen := make(map[string]struct{})
	for _, m := range matches {
		for _, n := range root.Find(m.Selector) {
			if !isTrigger(n, m) {
				continue
			}
			key := triggerKey(n, m.KeyAttr)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, n)
		}
	}
	return out
}

func isTrigger(n dom.Node, m profile.TriggerMatch) bool {
	text := n.Text()
	if containsAny(text, m.Collapse) {
		return false
	}
	if !m.AnyText && !containsAny(text, m.Expand) {
		return false
	}
	return n.Box().Visible()
}

func triggerKey(n dom.Node, attr string) string {
	if attr != "" {
		if v, ok := n.Attr(attr); ok && v != "" {
			return v
		}
	}
	return dom.Truncate(n.OuterHTML(), keyLimit)
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if m != "" && strings.Contains(s, m) {
			return true
		}
	}
	return false
}

// Expander activates triggers with a settle delay after each click.
type Expander struct {
	Matches    []profile.TriggerMatch
	ClickDelay time.Duration
	RoundDelay time.Duration
	Logger     *slog.Logger

	// Sleep waits between activations; nil uses a context-aware timer.
	Sleep func(ctx context.Context, d time.Duration) error
}

// NewExpander builds an Expander from a profile's trigger and timing settings.
func NewExpander(p *profile.Profile, logger *slog.Logger) *Expander {
	return &Expander{
		Matches:    p.Triggers,
		ClickDelay: p.Reveal.ClickDelay,
		RoundDelay: p.Reveal.RoundDelay,
		Logger:     logger,
	}
}

// ActivateAll clicks up to limit triggers (all of them when limit <= 0) and
// returns how many were activated. A trigger that fails twice is skipped.
func (e *Expander) ActivateAll(ctx context.Context, triggers []dom.Node, limit int) int {
	clicked := 0
	for _, t := range triggers {
		if limit > 0 && clicked >= limit {
			break
		}
		if ctx.Err() != nil {
			break
		}
		if err := Activate(ctx, t); err != nil {
			e.logger().Debug("expand trigger skipped", "error", err)
			continue
		}
		clicked++
		if err := e.sleep(ctx, e.ClickDelay); err != nil {
			break
		}
	}
	return clicked
}

// Activate clicks t, retrying once after scrolling it into view.
func Activate(ctx context.Context, t dom.Node) error {
	err := t.Click(ctx)
	if err == nil {
		return nil
	}
	if serr := t.ScrollIntoView(ctx); serr != nil {
		return errors.Join(err, serr)
	}
	return t.Click(ctx)
}

// Pass runs one bounded find-and-activate round.
func (e *Expander) Pass(ctx context.Context, root dom.Node, limit int) int {
	return e.ActivateAll(ctx, FindTriggers(root, e.Matches), limit)
}

// ExpandAll runs up to rounds passes, stopping early once a pass finds or
// activates nothing. It returns the total number of activations.
func (e *Expander) ExpandAll(ctx context.Context, root dom.Node, rounds, perRound int) int {
	total := 0
	for i := 0; i < rounds; i++ {
		triggers := FindTriggers(root, e.Matches)
		if len(triggers) == 0 {
			break
		}
		n := e.ActivateAll(ctx, triggers, perRound)
		total += n
		if n == 0 {
			break
		}
		if err := e.sleep(ctx, e.RoundDelay); err != nil {
			break
		}
	}
	return total
}

func (e *Expander) sleep(ctx context.Context, d time.Duration) error {
	if e.Sleep != nil {
		return e.Sleep(ctx, d)
	}
	return Sleep(ctx, d)
}

func (e *Expander) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.Default()
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil || d <= 0 {
		return err
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
