package models

// Job statuses.
const (
	JobProcessing = "processing"
	JobCompleted  = "completed"
	JobFailed     = "failed"
)

// CrawlResponse is the immediate response for POST /api/v1/crawl.
type CrawlResponse struct {
	Success bool   `json:"success"`
	ID      string `json:"id"`
}

// CrawlStatusResponse is the response for GET /api/v1/crawl/:id.
type CrawlStatusResponse struct {
	ID      string       `json:"id"`
	Status  string       `json:"status"`
	Pages   int          `json:"pages"`
	Result  *CrawlResult `json:"result,omitempty"`
	Error   *ErrorDetail `json:"error,omitempty"`
	Created int64        `json:"created"`
}

// CrawlJob tracks an asynchronous crawl.
type CrawlJob struct {
	ID            string
	Status        string
	Result        *CrawlResult
	Error         *ErrorDetail
	CreatedAt     int64 // unix timestamp
	WebhookURL    string
	WebhookSecret string
}
