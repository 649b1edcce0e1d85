package reveal

import (
	"context"
	"testing"
	"time"

	"github.com/use-agent/threadscope/dom"
	"github.com/use-agent/threadscope/profile"
)

var replyTriggers = []profile.TriggerMatch{{
	Selector: "button",
	Expand:   []string{"条回复", "展开", "更多"},
	Collapse: []string{"收起"},
	KeyAttr:  "data-log-view",
}}

func TestFindTriggers(t *testing.T) {
	open := &fakeNode{id: 1, text: "展开 3 条回复", attrs: map[string]string{"data-log-view": "a"}}
	dupAttr := &fakeNode{id: 2, text: "展开", attrs: map[string]string{"data-log-view": "a"}}
	collapse := &fakeNode{id: 3, text: "收起 回复"}
	collapseAndMore := &fakeNode{id: 4, text: "收起更多"}
	hidden := &fakeNode{id: 5, text: "更多", hidden: true}
	unrelated := &fakeNode{id: 6, text: "点赞"}
	plain := &fakeNode{id: 7, text: "查看更多"}
	samePlain := &fakeNode{id: 7, text: "查看更多"}

	root := &fakeNode{children: map[string][]dom.Node{
		"button": {open, dupAttr, collapse, collapseAndMore, hidden, unrelated, plain, samePlain},
	}}

	got := FindTriggers(root, replyTriggers)
	want := []dom.Node{open, plain}
	if len(got) != len(want) {
		t.Fatalf("FindTriggers returned %d nodes, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("trigger %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestFindTriggersAnyText(t *testing.T) {
	icon := &fakeNode{id: 1}
	root := &fakeNode{children: map[string][]dom.Node{"i.unfold": {icon}}}
	matches := []profile.TriggerMatch{{Selector: "i.unfold", AnyText: true, Collapse: []string{"收起"}}}
	if got := FindTriggers(root, matches); len(got) != 1 {
		t.Errorf("icon trigger not found: %v", got)
	}
	if got := FindTriggers(nil, matches); got != nil {
		t.Errorf("nil root = %v", got)
	}
}

func TestActivateAllRetriesAndSwallows(t *testing.T) {
	e := &Expander{Sleep: noSleep}
	ok := &fakeNode{id: 1}
	retried := &fakeNode{id: 2, failClick: 1}
	broken := &fakeNode{id: 3, failClick: 5}
	last := &fakeNode{id: 4}

	n := e.ActivateAll(context.Background(), []dom.Node{ok, retried, broken, last}, 0)
	if n != 3 {
		t.Errorf("activated %d, want 3", n)
	}
	if retried.clicks != 2 || retried.scrolled != 1 {
		t.Errorf("retry: clicks=%d scrolled=%d, want 2 and 1", retried.clicks, retried.scrolled)
	}
	if broken.clicks != 2 {
		t.Errorf("a failing trigger is retried exactly once, got %d clicks", broken.clicks)
	}
	if last.clicks != 1 {
		t.Error("the loop must continue past a failed trigger")
	}
}

func TestActivateAllLimit(t *testing.T) {
	e := &Expander{Sleep: noSleep}
	nodes := []dom.Node{&fakeNode{id: 1}, &fakeNode{id: 2}, &fakeNode{id: 3}}
	if n := e.ActivateAll(context.Background(), nodes, 2); n != 2 {
		t.Errorf("activated %d, want 2", n)
	}
	if nodes[2].(*fakeNode).clicks != 0 {
		t.Error("limit exceeded")
	}
}

func TestExpandAllStopsWhenNothingLeft(t *testing.T) {
	var sleeps int
	e := &Expander{
		Matches: replyTriggers,
		Sleep:   func(context.Context, time.Duration) error { sleeps++; return nil },
	}
	a := &fakeNode{id: 1, text: "更多"}
	b := &fakeNode{id: 2, text: "更多"}
	c := &fakeNode{id: 3, text: "更多"}
	root := &fakeNode{children: map[string][]dom.Node{"button": {a, b, c}}}

	// Two per round: round one clicks a and b, round two clicks c, round three finds nothing.
	total := e.ExpandAll(context.Background(), root, 8, 2)
	if total != 3 {
		t.Errorf("ExpandAll activated %d, want 3", total)
	}
	if a.clicks != 1 || b.clicks != 1 || c.clicks != 1 {
		t.Errorf("clicks a=%d b=%d c=%d, want one each", a.clicks, b.clicks, c.clicks)
	}
	// 3 click delays + 2 round delays.
	if sleeps != 5 {
		t.Errorf("sleeps = %d, want 5", sleeps)
	}
}
