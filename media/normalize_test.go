package media

import (
	"reflect"
	"testing"

	"github.com/use-agent/threadscope/dom"
)

func TestNormalizeProtocolRelative(t *testing.T) {
	p := Policy{AllowedExtensions: []string{"jpg"}, RejectDataURLs: true}
	got := Normalize([]string{"//img.example.com/a.jpg"}, "https://site.com", p)
	want := []string{"https://img.example.com/a.jpg"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Normalize = %v, want %v", got, want)
	}
}

func TestNormalizeFilters(t *testing.T) {
	p := Policy{
		AllowedExtensions: []string{"jpg", "png", "webp"},
		AllowedHosts:      []string{"toutiaoimg.com"},
		RejectDataURLs:    true,
		RejectSubstrings:  []string{"emoji", "topic-blank.png"},
	}
	raw := []string{
		"data:image/png;base64,AAAA",
		"https://p3.toutiaoimg.com/a.jpg",
		"https://p3.toutiaoimg.com/a.jpg",
		"https://p3.toutiaoimg.com/b.gif",
		"https://evil.com/c.jpg",
		"https://faketoutiaoimg.com/c.jpg",
		"https://p1.toutiaoimg.com/emoji/smile.png",
		"ftp://p1.toutiaoimg.com/d.jpg",
		"/relative/e.webp?x=1",
		"  ",
		"https://toutiaoimg.com/F.JPG",
	}
	got := Normalize(raw, "https://p9.toutiaoimg.com/page/1", p)
	want := []string{
		"https://p3.toutiaoimg.com/a.jpg",
		"https://p9.toutiaoimg.com/relative/e.webp?x=1",
		"https://toutiaoimg.com/F.JPG",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Normalize =\n %v\nwant\n %v", got, want)
	}
}

func TestNormalizeEmptyPolicyAcceptsHTTP(t *testing.T) {
	got := Normalize([]string{"b.png", "https://x.org/a", "mailto:a@b.c"}, "http://site.com/dir/", DefaultPolicy())
	want := []string{"http://site.com/dir/b.png", "https://x.org/a"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Normalize = %v, want %v", got, want)
	}
}

func TestNormalizeUnresolvablePassesThroughToFilters(t *testing.T) {
	// No usable base: the relative path is kept raw and then fails the scheme filter.
	if got := Normalize([]string{"a.jpg"}, "", DefaultPolicy()); len(got) != 0 {
		t.Errorf("Normalize = %v, want empty", got)
	}
}

func TestNormalizeRejectsHostlessURL(t *testing.T) {
	got := Normalize([]string{"http:/img/a.jpg"}, "https://site.com/t/1.html", Policy{AllowedExtensions: []string{"jpg"}})
	if len(got) != 0 {
		t.Errorf("Normalize = %v, want empty", got)
	}
}

func TestCollect(t *testing.T) {
	root, err := dom.ParseString(`<div class="c">
		<img src="" data-src="/lazy.jpg">
		<img data-original="/orig.jpg">
		<img src="/plain.jpg" data-src="/ignored.jpg">
		<video src="/v.mp4"></video>
		<video><source src="/s.mp4"></video>
	</div><div class="other"><img src="/out.jpg"></div>`)
	if err != nil {
		t.Fatal(err)
	}
	images, videos := Collect(root, "div.c")
	if want := []string{"/lazy.jpg", "/orig.jpg", "/plain.jpg"}; !reflect.DeepEqual(images, want) {
		t.Errorf("images = %v, want %v", images, want)
	}
	if want := []string{"/v.mp4", "/s.mp4"}; !reflect.DeepEqual(videos, want) {
		t.Errorf("videos = %v, want %v", videos, want)
	}
	if images, _ := Collect(root, "div.missing"); images != nil {
		t.Errorf("missing scope images = %v", images)
	}
}
