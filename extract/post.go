package extract

import (
	"net/url"
	"strings"

	readability "github.com/go-shiori/go-readability"

	"github.com/use-agent/threadscope/dom"
	"github.com/use-agent/threadscope/models"
)

// post returns nil when no content node exists, unless the profile allows
// the readability fallback and it finds text.
func (e *Extractor) post(doc Document, stats *Stats) (p *models.Post) {
	defer func() {
		if r := recover(); r != nil {
			stats.Skipped++
			e.logger.Debug("post skipped", "url", doc.URL, "panic", r)
			p = nil
		}
	}()

	rules := e.profile.Post
	scope := doc.Root
	if len(rules.Container) > 0 {
		if scope = dom.First(doc.Root, rules.Container...); scope == nil {
			return e.readabilityPost(doc)
		}
	}
	if dom.First(scope, rules.Content...) == nil {
		return e.readabilityPost(doc)
	}

	p = &models.Post{Content: dom.FirstText(scope, rules.Content...)}
	p.Author, p.AuthorURL = author(scope, rules.Author, nil, doc.URL)
	p.Title = dom.FirstText(scope, rules.Title...)
	p.TimeRaw = timeText(scope, rules.Time)
	p.Date = e.date(p.TimeRaw)
	if tag := rules.PublishedToTag; tag != "" {
		if i := strings.Index(p.TimeRaw, tag); i >= 0 {
			p.PublishedTo = strings.TrimSpace(p.TimeRaw[i+len(tag):])
		}
	}
	p.Images, p.Videos = e.mediaOf(scope, doc.URL, rules.ImageScope)
	if len(rules.VideoScope) > 0 {
		_, p.Videos = e.mediaOf(scope, doc.URL, rules.VideoScope)
	}
	return p
}

func (e *Extractor) date(timeRaw string) string {
	if e.dateRe == nil || timeRaw == "" {
		return ""
	}
	if m := e.dateRe.FindStringSubmatch(timeRaw); len(m) > 1 {
		return m[1]
	} else if len(m) == 1 {
		return m[0]
	}
	return ""
}

func (e *Extractor) readabilityPost(doc Document) *models.Post {
	if !e.profile.Post.Readability || doc.HTML == "" {
		return nil
	}
	u, err := url.Parse(doc.URL)
	if err != nil {
		return nil
	}
	article, err := readability.FromReader(strings.NewReader(doc.HTML), u)
	if err != nil {
		e.logger.Debug("readability fallback failed", "url", doc.URL, "error", err)
		return nil
	}
	text := dom.NormalizeSpace(article.TextContent)
	if text == "" {
		return nil
	}
	return &models.Post{
		Author:  dom.NormalizeSpace(article.Byline),
		Title:   dom.NormalizeSpace(article.Title),
		Content: text,
		Images:  []string{},
		Videos:  []string{},
	}
}
