package dom

import (
	"context"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// staticNode adapts a goquery selection of exactly one element to Node.
type staticNode struct {
	sel *goquery.Selection
}

// Parse reads an HTML document and returns its root as a static Node.
func Parse(r io.Reader) (Node, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, err
	}
	return staticNode{sel: doc.Selection}, nil
}

// ParseString is Parse over an in-memory document.
func ParseString(html string) (Node, error) {
	return Parse(strings.NewReader(html))
}

// FromSelection wraps the first element of a goquery selection.
func FromSelection(sel *goquery.Selection) Node {
	return staticNode{sel: sel.First()}
}

func wrapAll(sel *goquery.Selection) []Node {
	out := make([]Node, 0, sel.Length())
	sel.Each(func(_ int, s *goquery.Selection) {
		out = append(out, staticNode{sel: s})
	})
	return out
}

func (n staticNode) Find(selector string) []Node {
	return wrapAll(n.sel.Find(selector))
}

func (n staticNode) Children(selector string) []Node {
	return wrapAll(n.sel.ChildrenFiltered(selector))
}

func (n staticNode) Attr(name string) (string, bool) {
	return n.sel.Attr(name)
}

func (n staticNode) Text() string {
	return NormalizeSpace(n.sel.Text())
}

func (n staticNode) OuterHTML() string {
	h, err := goquery.OuterHtml(n.sel)
	if err != nil {
		return ""
	}
	return h
}

// Box has no layout to consult, so a node counts as displayed unless it or an
// ancestor is hidden through attributes or inline style.
func (n staticNode) Box() Box {
	for s := n.sel; s.Length() > 0; s = s.Parent() {
		if hiddenByMarkup(s) {
			return Box{}
		}
	}
	return Box{Width: 1, Height: 1}
}

func (n staticNode) Click(context.Context) error {
	return ErrStatic
}

func (n staticNode) ScrollIntoView(context.Context) error {
	return ErrStatic
}

func hiddenByMarkup(s *goquery.Selection) bool {
	if _, ok := s.Attr("hidden"); ok {
		return true
	}
	if v, _ := s.Attr("aria-hidden"); v == "true" {
		return true
	}
	style, _ := s.Attr("style")
	style = strings.ReplaceAll(strings.ToLower(style), " ", "")
	return strings.Contains(style, "display:none") || strings.Contains(style, "visibility:hidden")
}
