package models

// ExtractRequest is the payload for POST /api/v1/extract.
type ExtractRequest struct {
	// URL is the first page to extract. Required.
	URL string `json:"url" binding:"required,url"`

	// Profile names the site profile. Empty selects by host.
	Profile string `json:"profile,omitempty"`

	// MaxPages bounds pagination. Default: profile setting. Max: 50.
	MaxPages int `json:"maxPages,omitempty" binding:"omitempty,min=1,max=50"`

	// Timeout is the deadline in seconds for the whole call.
	// Default: 120. Max: 600.
	Timeout int `json:"timeout,omitempty" binding:"omitempty,min=1,max=600"`

	// Engine selects the driver: "browser" (default) renders with Chromium,
	// "http" fetches static HTML and skips revelation.
	Engine string `json:"engine,omitempty" binding:"omitempty,oneof=browser http"`

	// MaxAge is the maximum cache age in milliseconds. 0 disables the cache.
	MaxAge int64 `json:"maxAge,omitempty" binding:"omitempty,min=0"`
}

// Defaults applies default values to unset fields.
func (r *ExtractRequest) Defaults() {
	if r.Timeout == 0 {
		r.Timeout = 120
	}
	if r.Engine == "" {
		r.Engine = "browser"
	}
}

// CrawlRequest is the payload for POST /api/v1/crawl.
type CrawlRequest struct {
	ExtractRequest

	WebhookURL    string `json:"webhookUrl,omitempty" binding:"omitempty,url"`
	WebhookSecret string `json:"webhookSecret,omitempty"`
}
