// Package report renders crawl results for people and programs.
package report

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/use-agent/threadscope/models"
)

// Output formats.
const (
	FormatJSON     = "json"
	FormatMarkdown = "markdown"
)

// Writer outputs a crawl result.
type Writer interface {
	Write(res *models.CrawlResult) error
}

// New returns the writer for format.
func New(format string, w io.Writer) (Writer, error) {
	switch format {
	case FormatJSON, "":
		return &JSONWriter{output: w, indent: "  "}, nil
	case FormatMarkdown, "md":
		return &MarkdownWriter{output: w}, nil
	default:
		return nil, fmt.Errorf("unknown format %q (want json or markdown)", format)
	}
}

// JSONWriter outputs results in the wire format of the HTTP API.
type JSONWriter struct {
	output io.Writer
	indent string
}

func (w *JSONWriter) Write(res *models.CrawlResult) error {
	enc := json.NewEncoder(w.output)
	enc.SetEscapeHTML(false)
	if w.indent != "" {
		enc.SetIndent("", w.indent)
	}
	return enc.Encode(res)
}
