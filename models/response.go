package models

// ExtractResponse is the response for POST /api/v1/extract.
type ExtractResponse struct {
	Success bool         `json:"success"`
	Result  *CrawlResult `json:"result,omitempty"`

	// CacheStatus is "hit", "miss", or empty when caching was not requested
	// or the crawl ended with an error.
	CacheStatus string `json:"cacheStatus,omitempty"`

	// DurationMs is the wall time of the crawl.
	DurationMs int64 `json:"durationMs"`

	Error *ErrorDetail `json:"error,omitempty"`
}

// HealthResponse is the response for GET /api/v1/health.
type HealthResponse struct {
	Status    string    `json:"status"` // "healthy" or "degraded"
	Uptime    string    `json:"uptime"`
	PoolStats PoolStats `json:"poolStats"`
	Profiles  int       `json:"profiles"`
	Version   string    `json:"version"`
}

// PoolStats reports the state of the browser page pool.
type PoolStats struct {
	MaxPages    int `json:"maxPages"`
	ActivePages int `json:"activePages"`
}

// ProfileInfo summarises a loaded site profile for GET /api/v1/profiles.
type ProfileInfo struct {
	Name       string   `json:"name"`
	Hosts      []string `json:"hosts"`
	Pagination string   `json:"pagination"`
	Source     string   `json:"source"`
}
