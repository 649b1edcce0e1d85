package reveal

import (
	"context"
	"errors"
	"testing"

	"github.com/use-agent/threadscope/dom"
	"github.com/use-agent/threadscope/profile"
)

func newTestController(s Scroller, e *Expander, st profile.RevealSettings) *Controller {
	c := NewController(s, e, st, nil)
	c.Sleep = noSleep
	return c
}

func TestControllerHaltsAtKPlusStableRounds(t *testing.T) {
	for _, stable := range []int{1, 2, 5} {
		// Initial measurement, then heights stop changing after round 3.
		s := &fakeScroller{heights: []float64{50, 100, 200, 300}, viewport: 800}
		c := newTestController(s, nil, profile.RevealSettings{
			Mode: profile.ScrollStep, MinStep: 700, StepRatio: 0.9,
			MaxRounds: 50, StableRounds: stable,
		})
		res, err := c.Run(context.Background(), nil)
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		if !res.Converged || res.Rounds != 3+stable {
			t.Errorf("stable=%d: rounds=%d converged=%v, want %d true", stable, res.Rounds, res.Converged, 3+stable)
		}
		if res.Height != 300 {
			t.Errorf("height = %v", res.Height)
		}
	}
}

func TestControllerStepSize(t *testing.T) {
	s := &fakeScroller{heights: []float64{100}, viewport: 1000}
	c := newTestController(s, nil, profile.RevealSettings{
		Mode: profile.ScrollStep, MinStep: 700, StepRatio: 0.9, MaxRounds: 3, StableRounds: 10,
	})
	if _, err := c.Run(context.Background(), nil); err != nil {
		t.Fatal(err)
	}
	for _, dy := range s.scrolls {
		if dy != 900 {
			t.Errorf("step = %v, want 900", dy)
		}
	}

	s = &fakeScroller{heights: []float64{100}, viewport: 400}
	c = newTestController(s, nil, profile.RevealSettings{
		Mode: profile.ScrollStep, MinStep: 700, StepRatio: 0.9, MaxRounds: 1, StableRounds: 10,
	})
	_, _ = c.Run(context.Background(), nil)
	if len(s.scrolls) != 1 || s.scrolls[0] != 700 {
		t.Errorf("scrolls = %v, want [700]", s.scrolls)
	}
}

func TestControllerMaxRoundsIsSilent(t *testing.T) {
	heights := []float64{0}
	for i := 1; i <= 100; i++ {
		heights = append(heights, float64(i*100))
	}
	s := &fakeScroller{heights: heights}
	c := newTestController(s, nil, profile.RevealSettings{
		Mode: profile.ScrollBottom, MaxRounds: 7, StableRounds: 2,
	})
	res, err := c.Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("reaching the round bound must not be an error: %v", err)
	}
	if res.Converged || res.Rounds != 7 || s.bottoms != 7 {
		t.Errorf("res=%+v bottoms=%d, want 7 unconverged rounds", res, s.bottoms)
	}
}

func TestControllerBottomGap(t *testing.T) {
	far := &fakeScroller{heights: []float64{500}, gap: 5000}
	c := newTestController(far, nil, profile.RevealSettings{
		Mode: profile.ScrollBottom, MaxRounds: 6, StableRounds: 1, BottomGap: 1200,
	})
	if res, _ := c.Run(context.Background(), nil); res.Converged {
		t.Error("converged while the viewport is far from the bottom")
	}

	near := &fakeScroller{heights: []float64{500}, gap: 100}
	c = newTestController(near, nil, profile.RevealSettings{
		Mode: profile.ScrollBottom, MaxRounds: 6, StableRounds: 1, BottomGap: 1200,
	})
	if res, _ := c.Run(context.Background(), nil); !res.Converged || res.Rounds != 2 {
		t.Errorf("res = %+v, want convergence at round 2", res)
	}
}

func TestControllerExpandsEveryNthRound(t *testing.T) {
	var triggers []*fakeNode
	root := &fakeNode{children: map[string][]dom.Node{}}
	for i := 0; i < 4; i++ {
		n := &fakeNode{id: i, text: "更多"}
		triggers = append(triggers, n)
		root.children["button"] = append(root.children["button"], n)
	}
	e := &Expander{Matches: replyTriggers, Sleep: noSleep}
	s := &fakeScroller{heights: []float64{0, 10, 20, 30, 40, 50, 60}}
	c := newTestController(s, e, profile.RevealSettings{
		Mode: profile.ScrollBottom, MaxRounds: 6, StableRounds: 3,
		ExpandEvery: 3, ExpandLimit: 1,
	})
	res, err := c.Run(context.Background(), root)
	if err != nil {
		t.Fatal(err)
	}
	// Rounds 3 and 6 each activate one trigger.
	if res.Expanded != 2 {
		t.Errorf("expanded = %d, want 2", res.Expanded)
	}
	if triggers[0].clicks != 1 || triggers[1].clicks != 1 || triggers[2].clicks != 0 {
		t.Error("expansion passes did not respect the per-pass limit")
	}
}

func TestControllerFinalExpansion(t *testing.T) {
	root := &fakeNode{children: map[string][]dom.Node{
		"button": {&fakeNode{id: 1, text: "展开"}, &fakeNode{id: 2, text: "展开"}},
	}}
	e := &Expander{Matches: replyTriggers, Sleep: noSleep}
	s := &fakeScroller{heights: []float64{10}}
	c := newTestController(s, e, profile.RevealSettings{
		Mode: profile.ScrollBottom, MaxRounds: 5, StableRounds: 1,
		FinalRounds: 8, FinalPerRound: 40,
	})
	res, _ := c.Run(context.Background(), root)
	if res.Expanded != 2 {
		t.Errorf("expanded = %d, want 2", res.Expanded)
	}
}

func TestControllerCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := &fakeScroller{heights: []float64{10}}
	c := NewController(s, nil, profile.RevealSettings{MaxRounds: 5, StableRounds: 1, Pause: 1}, nil)
	if _, err := c.Run(ctx, nil); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
