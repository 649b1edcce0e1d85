// Package extract turns a revealed content tree into a post and a hierarchy
// of comment threads and replies, driven by a site profile.
package extract

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strings"

	"github.com/use-agent/threadscope/dom"
	"github.com/use-agent/threadscope/identity"
	"github.com/use-agent/threadscope/media"
	"github.com/use-agent/threadscope/models"
	"github.com/use-agent/threadscope/profile"
)

// Document is one revealed page handed to the extractor.
type Document struct {
	Root dom.Node
	URL  string

	// HTML is only read by the readability fallback for the post.
	HTML string
}

// Stats counts what happened to candidate nodes during one pass.
type Stats struct {
	Candidates int // thread roots that passed the structural test
	Duplicates int // threads and replies discarded by identity key
	Dropped    int // records missing author or content
	Skipped    int // nodes whose parsing failed
	Fallbacks  int // identities recovered by pattern extraction
}

// Page is the extraction output for one document.
type Page struct {
	Post    *models.Post
	Threads []models.Thread
	Stats   Stats
}

// Extractor is stateless between calls and safe for concurrent use.
type Extractor struct {
	profile *profile.Profile
	dateRe  *regexp.Regexp
	logger  *slog.Logger
}

// New compiles the profile's patterns.
func New(p *profile.Profile, logger *slog.Logger) (*Extractor, error) {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Extractor{profile: p, logger: logger.With("profile", p.Name)}
	if p.Post.DatePattern != "" {
		re, err := regexp.Compile(p.Post.DatePattern)
		if err != nil {
			return nil, fmt.Errorf("post date pattern: %w", err)
		}
		e.dateRe = re
	}
	return e, nil
}

// Extract parses the post and the threads of doc. Per-node failures only
// drop that node; an error is returned when doc has no root or ctx ends.
func (e *Extractor) Extract(ctx context.Context, doc Document) (Page, error) {
	if doc.Root == nil {
		return Page{Threads: []models.Thread{}}, fmt.Errorf("extract %s: document has no root", doc.URL)
	}
	var page Page
	page.Post = e.post(doc, &page.Stats)
	threads, err := e.threads(ctx, doc.Root, doc.URL, &page.Stats)
	page.Threads = threads

	e.logger.Debug("page extracted",
		"url", doc.URL,
		"post", page.Post != nil,
		"threads", len(page.Threads),
		"candidates", page.Stats.Candidates,
		"duplicates", page.Stats.Duplicates,
		"dropped", page.Stats.Dropped,
		"skipped", page.Stats.Skipped,
		"fallbacks", page.Stats.Fallbacks,
	)
	return page, err
}

// absURL resolves href against base, returning href unchanged on failure.
func absURL(href, base string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	b, err := url.Parse(base)
	if err != nil || !b.IsAbs() {
		return href
	}
	return b.ResolveReference(ref).String()
}

// author returns the first non-empty author text and the profile URL from
// the link selectors, or from the author node itself when none are set.
func author(scope dom.Node, names, links []string, base string) (string, string) {
	name := dom.FirstText(scope, names...)
	if len(links) == 0 {
		links = names
	}
	var href string
	if a := dom.First(scope, links...); a != nil {
		href, _ = a.Attr("href")
	}
	return name, absURL(href, base)
}

// timeText applies a TimeRule under scope.
func timeText(scope dom.Node, rule profile.TimeRule) string {
	if len(rule.Markers) == 0 {
		return dom.FirstText(scope, rule.Selectors...)
	}
	for _, sel := range rule.Selectors {
		for _, n := range scope.Find(sel) {
			if t := n.Text(); containsAny(t, rule.Markers) {
				return t
			}
		}
	}
	return ""
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if m != "" && strings.Contains(s, m) {
			return true
		}
	}
	return false
}

func (e *Extractor) mediaOf(n dom.Node, base string, scope []string) (images, videos []string) {
	imgs, vids := media.Collect(n, scope...)
	return media.Normalize(imgs, base, e.profile.Images), media.Normalize(vids, base, e.profile.Videos)
}

// resolveID reads the identity of a record from its metadata attribute and,
// failing that, from a plain id attribute.
func resolveID(meta dom.Node, metaAttr string, idNode dom.Node, idAttr string) identity.Result {
	var res identity.Result
	if metaAttr != "" && meta != nil {
		raw, _ := meta.Attr(metaAttr)
		res = identity.Resolve(raw)
	}
	if res.CommentID == "" && idAttr != "" {
		if v, ok := idNode.Attr(idAttr); ok {
			res.CommentID = strings.TrimSpace(v)
		}
	}
	return res
}
