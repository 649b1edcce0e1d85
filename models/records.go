package models

// Post is the root content of a page. A page without a content node
// yields a nil *Post.
type Post struct {
	Author      string   `json:"author"`
	AuthorURL   string   `json:"authorUrl"`
	TimeRaw     string   `json:"timeRaw"`
	Date        string   `json:"date"`
	PublishedTo string   `json:"publishedTo,omitempty"`
	Title       string   `json:"title,omitempty"`
	Content     string   `json:"content"`
	Images      []string `json:"images"`
	Videos      []string `json:"videos"`
}

// Thread is a root-level comment and the replies nested under it.
type Thread struct {
	GroupID   string   `json:"groupId"`
	CommentID string   `json:"commentId"`
	IsOP      bool     `json:"isOP"`
	Author    string   `json:"author"`
	AuthorURL string   `json:"authorUrl"`
	TimeRaw   string   `json:"timeRaw"`
	Content   string   `json:"content"`
	Images    []string `json:"images"`
	Videos    []string `json:"videos"`
	Replies   []Reply  `json:"replies"`
}

// Reply belongs to exactly one Thread.
type Reply struct {
	CommentID string   `json:"commentId"`
	Author    string   `json:"author"`
	AuthorURL string   `json:"authorUrl"`
	TimeRaw   string   `json:"timeRaw"`
	Content   string   `json:"content"`
	Images    []string `json:"images"`
	Videos    []string `json:"videos"`
}

// PageResult is the extraction output of a single page visit.
type PageResult struct {
	URL         string       `json:"url"`
	ExtractedAt string       `json:"extractedAt"` // RFC 3339
	Post        *Post        `json:"post"`
	Threads     []Thread     `json:"threads"`
	Error       *ErrorDetail `json:"error,omitempty"`
}

// Stop reasons reported on a CrawlResult.
const (
	StopNoNext       = "no_next"
	StopBounced      = "bounced"
	StopRepeatedPage = "repeated_page"
	StopMaxPages     = "max_pages"
	StopSinglePage   = "single_page"
	StopNavFailed    = "navigation_failed"
	StopCanceled     = "canceled"
)

// CrawlResult is the full output of one crawl call.
type CrawlResult struct {
	StartURL   string       `json:"startUrl"`
	Profile    string       `json:"profile"`
	Pages      []PageResult `json:"pages"`
	StopReason string       `json:"stopReason"`
	Error      *ErrorDetail `json:"error,omitempty"`
}

// ThreadCount sums the threads across all pages.
func (r *CrawlResult) ThreadCount() int {
	n := 0
	for _, p := range r.Pages {
		n += len(p.Threads)
	}
	return n
}

// ReplyCount sums the replies across all threads of all pages.
func (r *CrawlResult) ReplyCount() int {
	n := 0
	for _, p := range r.Pages {
		for _, t := range p.Threads {
			n += len(t.Replies)
		}
	}
	return n
}
