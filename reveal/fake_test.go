package reveal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/use-agent/threadscope/dom"
)

// fakeNode is a scriptable dom.Node. Clicking it hides it once it succeeds.
type fakeNode struct {
	id        int
	text      string
	attrs     map[string]string
	hidden    bool
	failClick int // clicks that fail before one succeeds
	scrollErr error

	clicks   int
	scrolled int
	children map[string][]dom.Node
}

var errClick = errors.New("element not interactable")

func (n *fakeNode) Find(sel string) []dom.Node     { return n.children[sel] }
func (n *fakeNode) Children(sel string) []dom.Node { return n.children[sel] }
func (n *fakeNode) Text() string                   { return n.text }
func (n *fakeNode) OuterHTML() string {
	return fmt.Sprintf("<button id=%d>%s</button>", n.id, n.text)
}

func (n *fakeNode) Attr(name string) (string, bool) {
	v, ok := n.attrs[name]
	return v, ok
}

func (n *fakeNode) Box() dom.Box {
	if n.hidden {
		return dom.Box{}
	}
	return dom.Box{Width: 10, Height: 10}
}

func (n *fakeNode) Click(context.Context) error {
	n.clicks++
	if n.failClick > 0 {
		n.failClick--
		return errClick
	}
	n.hidden = true
	return nil
}

func (n *fakeNode) ScrollIntoView(context.Context) error {
	n.scrolled++
	return n.scrollErr
}

func noSleep(context.Context, time.Duration) error { return nil }

// fakeScroller replays a fixed sequence of heights, repeating the last one.
type fakeScroller struct {
	heights  []float64
	viewport float64
	gap      float64 // distance between viewport bottom and page bottom

	measured int
	scrolls  []float64
	bottoms  int
}

func (s *fakeScroller) ScrollBy(_ context.Context, dy float64) error {
	s.scrolls = append(s.scrolls, dy)
	return nil
}

func (s *fakeScroller) ScrollToBottom(context.Context) error {
	s.bottoms++
	return nil
}

func (s *fakeScroller) Metrics(context.Context) (Metrics, error) {
	i := s.measured
	if i >= len(s.heights) {
		i = len(s.heights) - 1
	}
	s.measured++
	h := s.heights[i]
	return Metrics{ScrollHeight: h, ViewportHeight: s.viewport, ViewportBottom: h - s.gap}, nil
}
