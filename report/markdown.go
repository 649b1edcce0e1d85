package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"

	"github.com/use-agent/threadscope/models"
)

// MarkdownWriter renders a result as a readable thread transcript.
type MarkdownWriter struct {
	output io.Writer
}

func (w *MarkdownWriter) Write(res *models.CrawlResult) error {
	md := markdown.NewMarkdown(w.output)
	writeSummary(md, res)
	for i := range res.Pages {
		writePage(md, i+1, &res.Pages[i])
	}
	return md.Build()
}

func writeSummary(md *markdown.Markdown, res *models.CrawlResult) {
	md.H1("Threadscope Report")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Start URL", res.StartURL},
			{"Profile", res.Profile},
			{"Pages", strconv.Itoa(len(res.Pages))},
			{"Threads", strconv.Itoa(res.ThreadCount())},
			{"Replies", strconv.Itoa(res.ReplyCount())},
			{"Stop Reason", res.StopReason},
		},
	})
	md.PlainText("")
	if res.Error != nil {
		md.Warningf("Crawl stopped early: %s (%s)", res.Error.Message, res.Error.Code)
		md.PlainText("")
	}
}

func writePage(md *markdown.Markdown, n int, p *models.PageResult) {
	md.H2(fmt.Sprintf("Page %d", n))
	md.PlainText("")
	md.PlainText(p.URL)
	md.PlainText("")
	if p.Error != nil {
		md.Cautionf("Page failed: %s (%s)", p.Error.Message, p.Error.Code)
		md.PlainText("")
		return
	}

	if p.Post != nil {
		writePost(md, p.Post)
	}

	md.H3(fmt.Sprintf("Threads (%d)", len(p.Threads)))
	md.PlainText("")
	for i := range p.Threads {
		writeThread(md, &p.Threads[i])
	}
}

func writePost(md *markdown.Markdown, post *models.Post) {
	title := "Post"
	if post.Title != "" {
		title = post.Title
	}
	md.H3(title)
	md.PlainText("")
	md.PlainText(byline(post.Author, post.TimeRaw))
	md.PlainText("")
	md.Blockquote(post.Content)
	md.PlainText("")
	writeMedia(md, post.Images, post.Videos)
}

func writeThread(md *markdown.Markdown, t *models.Thread) {
	head := byline(t.Author, t.TimeRaw)
	if t.IsOP {
		head += " [OP]"
	}
	md.H4(head)
	md.PlainText("")
	md.Blockquote(t.Content)
	md.PlainText("")
	writeMedia(md, t.Images, t.Videos)

	if len(t.Replies) == 0 {
		return
	}
	items := make([]string, 0, len(t.Replies))
	for _, r := range t.Replies {
		items = append(items, fmt.Sprintf("**%s**: %s", r.Author, oneLine(r.Content)))
	}
	md.BulletList(items...)
	md.PlainText("")
}

func writeMedia(md *markdown.Markdown, images, videos []string) {
	if len(images)+len(videos) == 0 {
		return
	}
	items := make([]string, 0, len(images)+len(videos))
	for _, u := range images {
		items = append(items, "image: "+u)
	}
	for _, u := range videos {
		items = append(items, "video: "+u)
	}
	md.BulletList(items...)
	md.PlainText("")
}

func byline(author, when string) string {
	if when == "" {
		return "**" + author + "**"
	}
	return "**" + author + "** · " + when
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
