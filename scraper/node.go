package scraper

import (
	"context"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/use-agent/threadscope/dom"
)

// clickTimeout bounds rod's wait for an element to become interactable.
const clickTimeout = 3 * time.Second

// rodNode exposes a live element as a dom.Node. Query errors read as an
// empty result, matching querySelectorAll on a detached element.
type rodNode struct {
	el *rod.Element
}

func wrap(els rod.Elements) []dom.Node {
	out := make([]dom.Node, len(els))
	for i, el := range els {
		out[i] = rodNode{el: el}
	}
	return out
}

func (n rodNode) Find(sel string) []dom.Node {
	els, err := n.el.Elements(sel)
	if err != nil {
		return nil
	}
	return wrap(els)
}

func (n rodNode) Children(sel string) []dom.Node {
	return n.Find(dom.ChildSelector(sel))
}

func (n rodNode) Attr(name string) (string, bool) {
	v, err := n.el.Attribute(name)
	if err != nil || v == nil {
		return "", false
	}
	return *v, true
}

func (n rodNode) Text() string {
	t, err := n.el.Text()
	if err != nil {
		return ""
	}
	return dom.NormalizeSpace(t)
}

func (n rodNode) OuterHTML() string {
	h, err := n.el.HTML()
	if err != nil {
		return ""
	}
	return h
}

const boxJS = `function() {
	const r = this.getBoundingClientRect();
	return {w: r.width, h: r.height};
}`

func (n rodNode) Box() dom.Box {
	res, err := n.el.Eval(boxJS)
	if err != nil {
		return dom.Box{}
	}
	return dom.Box{Width: res.Value.Get("w").Num(), Height: res.Value.Get("h").Num()}
}

func (n rodNode) Click(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, clickTimeout)
	defer cancel()
	return n.el.Context(ctx).Click(proto.InputMouseButtonLeft, 1)
}

func (n rodNode) ScrollIntoView(ctx context.Context) error {
	return n.el.Context(ctx).ScrollIntoView()
}
