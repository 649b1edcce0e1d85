// Package dom defines the content-tree capability set the extractor and the
// revelation loop work against, plus a static implementation over parsed HTML.
package dom

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"
)

// ErrStatic is returned by interactions on nodes that have no live page behind them.
var ErrStatic = errors.New("dom: node is static and cannot be interacted with")

// Box is the rendered size of a node. A zero box means the node is not displayed.
type Box struct {
	Width  float64
	Height float64
}

// Visible reports whether the box has a non-zero rendered area.
func (b Box) Visible() bool {
	return b.Width > 0 && b.Height > 0
}

// Node is an opaque handle into a rendered content tree. Implementations are
// borrowed from a driver for the duration of one extraction pass.
type Node interface {
	// Find returns descendants matching selector in document order.
	Find(selector string) []Node

	// Children returns direct children matching selector in document order.
	Children(selector string) []Node

	Attr(name string) (string, bool)

	// Text returns the whitespace-normalized text content.
	Text() string

	OuterHTML() string
	Box() Box
	Click(ctx context.Context) error
	ScrollIntoView(ctx context.Context) error
}

// First returns the first match among selectors tried in priority order.
func First(n Node, selectors ...string) Node {
	for _, sel := range selectors {
		if sel == "" {
			continue
		}
		if found := n.Find(sel); len(found) > 0 {
			return found[0]
		}
	}
	return nil
}

// FirstText returns the text of the first match with non-empty text among
// selectors tried in priority order.
func FirstText(n Node, selectors ...string) string {
	for _, sel := range selectors {
		if sel == "" {
			continue
		}
		for _, m := range n.Find(sel) {
			if t := m.Text(); t != "" {
				return t
			}
		}
	}
	return ""
}

// Path follows a chain of direct-child selectors from n, e.g. ["ul", "li"].
func Path(n Node, steps []string) []Node {
	cur := []Node{n}
	for _, step := range steps {
		var next []Node
		for _, c := range cur {
			next = append(next, c.Children(step)...)
		}
		if len(next) == 0 {
			return nil
		}
		cur = next
	}
	return cur
}

// NormalizeSpace trims s and collapses internal whitespace runs to one space.
func NormalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}

// ChildSelector rewrites a selector group so every alternative only matches
// direct children of the scope element: "a, b" becomes ":scope > a, :scope > b".
func ChildSelector(sel string) string {
	parts := splitGroup(sel)
	for i, p := range parts {
		parts[i] = ":scope > " + p
	}
	return strings.Join(parts, ", ")
}

// splitGroup splits a selector group on top-level commas, ignoring commas
// inside parentheses, brackets and quoted strings.
func splitGroup(sel string) []string {
	var (
		parts []string
		depth int
		quote rune
		start int
	)
	for i, r := range sel {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '"' || r == '\'':
			quote = r
		case r == '(' || r == '[':
			depth++
		case r == ')' || r == ']':
			depth--
		case r == ',' && depth == 0:
			if p := strings.TrimSpace(sel[start:i]); p != "" {
				parts = append(parts, p)
			}
			start = i + 1
		}
	}
	if p := strings.TrimSpace(sel[start:]); p != "" {
		parts = append(parts, p)
	}
	return parts
}
