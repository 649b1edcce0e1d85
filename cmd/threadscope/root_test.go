package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/use-agent/threadscope/models"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("THREADSCOPE_PAGES_PER_SECOND", "0")
	t.Setenv("THREADSCOPE_RETRY_BASE", "1ms")

	var out, errOut bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRootHasSubcommands(t *testing.T) {
	names := map[string]bool{}
	for _, c := range NewRootCmd().Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"serve", "crawl", "profiles"} {
		if !names[want] {
			t.Errorf("missing subcommand %q", want)
		}
	}
}

func TestProfilesListsUserProfiles(t *testing.T) {
	dir := t.TempDir()
	doc := "name: dcd-mobile\nextends: dcd\nhosts: [m.dongchedi.com]\npagination:\n  style: none\n"
	if err := os.WriteFile(filepath.Join(dir, "dcd-mobile.yaml"), []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, "profiles", "--profiles-dir", dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"NAME", "dcd", "autohome", "dcd-mobile", "m.dongchedi.com", "builtin"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func newForum(t *testing.T) *httptest.Server {
	t.Helper()
	page := `<html><body><ul>
<li class="js-reply-floor-container" data-reply-id="1">
  <div class="user-info"><a class="name" href="/u/1">Rider</a></div>
  <div class="reply"><div class="reply-main"><div class="reply-detail">brakes squeal when cold</div></div></div>
</li></ul></body></html>`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, page)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestCrawlHTTPEngineJSON(t *testing.T) {
	srv := newForum(t)
	out, err := execute(t, "crawl", "--profiles-dir", t.TempDir(),
		"--engine", "http", "--profile", "autohome", "--max-pages", "1",
		srv.URL+"/bbs/thread-1.html")
	if err != nil {
		t.Fatal(err)
	}
	var res models.CrawlResult
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("invalid json: %v\n%s", err, out)
	}
	if len(res.Pages) != 1 || res.Pages[0].Threads[0].Content != "brakes squeal when cold" {
		t.Errorf("result = %+v", res)
	}
}

func TestCrawlMarkdownToFile(t *testing.T) {
	srv := newForum(t)
	path := filepath.Join(t.TempDir(), "reports", "thread.md")
	if _, err := execute(t, "crawl", "--profiles-dir", t.TempDir(),
		"-e", "http", "-p", "autohome", "-n", "1", "-f", "markdown", "-o", path,
		srv.URL+"/bbs/thread-1.html"); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "# Threadscope Report") || !strings.Contains(string(data), "brakes squeal when cold") {
		t.Errorf("report:\n%s", data)
	}
}

func TestCrawlRejects(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"no url", []string{"crawl"}, "accepts 1 arg"},
		{"bad format", []string{"crawl", "-e", "http", "-f", "xml", "https://example.com/a"}, "unknown format"},
		{"unknown profile", []string{"crawl", "-e", "http", "https://example.com/a"}, models.ErrCodeUnknownProfile},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, append(tt.args, "--profiles-dir", t.TempDir())...)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want %q", err, tt.want)
			}
		})
	}
}
