// Package engine fetches pages without a browser and exposes them to the
// crawler as a static driver.
package engine

import (
	"context"
	"net/http"
	"time"
)

// Engine retrieves the HTML of a page.
type Engine interface {
	// Name returns the engine identifier (e.g. "http").
	Name() string

	Fetch(ctx context.Context, req *FetchRequest) (*FetchResult, error)
}

// FetchRequest contains everything an engine needs to fetch a page.
type FetchRequest struct {
	URL     string
	Headers map[string]string
	Cookies []http.Cookie
	Timeout time.Duration
}

// FetchResult is the output of a successful fetch.
type FetchResult struct {
	HTML       string
	StatusCode int
	FinalURL   string
	EngineName string
}
