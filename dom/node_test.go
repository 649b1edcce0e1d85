package dom

import (
	"context"
	"errors"
	"testing"
)

const fixture = `<html><body>
<div id="root">
  <ul class="list">
    <li class="item">one <span>  first  </span></li>
    <li class="item"><ul><li class="item">nested</li></ul></li>
  </ul>
  <p class="empty"> </p>
  <p class="body">hello
     world</p>
  <button hidden>hidden</button>
  <div style="display: none"><button class="inner">inner</button></div>
  <button class="shown" data-k="7">shown</button>
</div>
</body></html>`

func mustParse(t *testing.T) Node {
	t.Helper()
	root, err := ParseString(fixture)
	if err != nil {
		t.Fatalf("ParseString: %v", err)
	}
	return root
}

func TestPathOnlyFollowsDirectChildren(t *testing.T) {
	root := mustParse(t)
	list := root.Find("#root")[0]

	got := Path(list, []string{"ul", "li"})
	if len(got) != 2 {
		t.Fatalf("Path returned %d nodes, want 2", len(got))
	}
	if n := len(list.Find("li")); n != 3 {
		t.Errorf("Find(li) = %d, want 3 (descendants)", n)
	}
	if Path(list, []string{"ol", "li"}) != nil {
		t.Error("Path on a missing step should return nil")
	}
}

func TestTextIsNormalized(t *testing.T) {
	root := mustParse(t)
	if got := FirstText(root, "p.empty", "p.body"); got != "hello world" {
		t.Errorf("FirstText = %q, want %q", got, "hello world")
	}
	if got := FirstText(root, "p.missing"); got != "" {
		t.Errorf("FirstText on missing selector = %q", got)
	}
}

func TestStaticVisibility(t *testing.T) {
	root := mustParse(t)
	cases := map[string]bool{
		"button[hidden]": false,
		"button.inner":   false,
		"button.shown":   true,
	}
	for sel, want := range cases {
		n := First(root, sel)
		if n == nil {
			t.Fatalf("%s not found", sel)
		}
		if got := n.Box().Visible(); got != want {
			t.Errorf("%s visible = %v, want %v", sel, got, want)
		}
	}
}

func TestStaticNodeRejectsInteraction(t *testing.T) {
	n := First(mustParse(t), "button.shown")
	if err := n.Click(context.Background()); !errors.Is(err, ErrStatic) {
		t.Errorf("Click err = %v, want ErrStatic", err)
	}
	if v, ok := n.Attr("data-k"); !ok || v != "7" {
		t.Errorf("Attr(data-k) = %q, %v", v, ok)
	}
}

func TestChildSelector(t *testing.T) {
	cases := map[string]string{
		"li":                         ":scope > li",
		"div.a, span.b":              ":scope > div.a, :scope > span.b",
		"a:has(i.x, i.y)":            ":scope > a:has(i.x, i.y)",
		`a[title="x,y"], b`:          `:scope > a[title="x,y"], :scope > b`,
		" section.card[data-v] , p ": ":scope > section.card[data-v], :scope > p",
	}
	for in, want := range cases {
		if got := ChildSelector(in); got != want {
			t.Errorf("ChildSelector(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestTruncateCountsRunes(t *testing.T) {
	if got := Truncate("评论发表于", 3); got != "评论发" {
		t.Errorf("Truncate = %q", got)
	}
	if got := Truncate("abc", 10); got != "abc" {
		t.Errorf("Truncate = %q", got)
	}
}
