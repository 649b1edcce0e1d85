package profile

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/use-agent/threadscope/models"
)

func TestBuiltinsValidate(t *testing.T) {
	for _, p := range Builtins() {
		p.applyDefaults()
		if err := p.Validate(); err != nil {
			t.Errorf("builtin %s: %v", p.Name, err)
		}
	}
}

func TestMatchAndResolve(t *testing.T) {
	r := Default()

	cases := map[string]string{
		"https://www.dongchedi.com/ugc/article/123":         "dcd",
		"https://club.autohome.com.cn/bbs/thread/a/1-1.html": "autohome",
	}
	for u, want := range cases {
		p, err := r.Resolve("", u)
		if err != nil {
			t.Fatalf("Resolve(%s): %v", u, err)
		}
		if p.Name != want {
			t.Errorf("Resolve(%s) = %s, want %s", u, p.Name, want)
		}
	}

	if _, ok := r.Match("https://notdongchedi.com/x"); ok {
		t.Error("suffix match must respect label boundaries")
	}

	_, err := r.Resolve("", "https://example.com/")
	var ce *models.CrawlError
	if !errors.As(err, &ce) || ce.Code != models.ErrCodeUnknownProfile {
		t.Errorf("Resolve unknown host err = %v", err)
	}
	if _, err := r.Resolve("nope", ""); err == nil {
		t.Error("Resolve of unknown name should fail")
	}
}

func TestValidateRejectsBadProfiles(t *testing.T) {
	p := dcd()
	p.Threads.Root = "div[["
	p.Pagination = Pagination{Style: PaginateIncrement, PagePattern: `-\d+\.html$`}
	p.Setup = []Action{{Type: ActionClick}, {Type: "hover", Selector: "a"}}
	p.applyDefaults()

	err := p.Validate()
	if err == nil {
		t.Fatal("Validate accepted a broken profile")
	}
	msg := err.Error()
	for _, want := range []string{"div[[", "capture group", "click needs a selector", `unknown action type "hover"`} {
		if !strings.Contains(msg, want) {
			t.Errorf("error %q does not mention %q", msg, want)
		}
	}
}

func TestLoadDirExtendsBuiltin(t *testing.T) {
	dir := t.TempDir()
	doc := `name: dcd-mobile
extends: dcd
hosts: [m.dongchedi.com]
reveal:
  maxRounds: 5
  pause: 100ms
pagination:
  style: none
`
	if err := os.WriteFile(filepath.Join(dir, "dcd-mobile.yaml"), []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644); err != nil {
		t.Fatal(err)
	}

	r := Default()
	n, err := r.LoadDir(dir)
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	if n != 1 {
		t.Fatalf("loaded %d profiles, want 1", n)
	}

	p, ok := r.Get("dcd-mobile")
	if !ok {
		t.Fatal("dcd-mobile not registered")
	}
	if p.Reveal.MaxRounds != 5 || p.Reveal.Pause != 100*time.Millisecond {
		t.Errorf("reveal override not applied: %+v", p.Reveal)
	}
	if p.Reveal.StableRounds != 5 || p.Threads.OPMarker != "楼主" {
		t.Error("fields absent from the file should be inherited")
	}
	if p.Pagination.Style != PaginateNone {
		t.Errorf("pagination style = %q", p.Pagination.Style)
	}

	// The more specific host wins over the builtin.
	if m, _ := r.Match("https://m.dongchedi.com/article/1"); m.Name != "dcd-mobile" {
		t.Errorf("Match = %s, want dcd-mobile", m.Name)
	}
	if base, _ := r.Get("dcd"); base.Reveal.MaxRounds != 22 {
		t.Error("extending must not mutate the base profile")
	}
}

func TestLoadDirMissing(t *testing.T) {
	n, err := Default().LoadDir(filepath.Join(t.TempDir(), "absent"))
	if err != nil || n != 0 {
		t.Errorf("LoadDir(missing) = %d, %v", n, err)
	}
}

func TestDecodeUnknownBase(t *testing.T) {
	_, err := Default().Decode([]byte("name: x\nextends: nowhere\n"))
	if err == nil {
		t.Error("Decode should reject an unknown base profile")
	}
}
