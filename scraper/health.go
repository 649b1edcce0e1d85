package scraper

import (
	"math"
	"sync"
	"time"
)

// Retirement thresholds for pooled tabs. Long crawls accumulate listeners
// and detached nodes, so tabs are recycled after heavy use.
const (
	maxErrScore = 3.0
	maxUses     = 50
	maxAge      = 50 * time.Minute
)

// pageHealth tracks how a pooled tab has behaved across sessions.
// Success lowers the error score by 0.5 (min 0); failure raises it by 1.
type pageHealth struct {
	mu       sync.Mutex
	errScore float64
	uses     int
	created  time.Time
}

func newPageHealth(now time.Time) *pageHealth {
	return &pageHealth{created: now}
}

func (h *pageHealth) record(failed bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.uses++
	if failed {
		h.errScore++
		return
	}
	h.errScore = math.Max(0, h.errScore-0.5)
}

// retire reports whether the tab should be closed instead of pooled.
func (h *pageHealth) retire(now time.Time) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.errScore >= maxErrScore || h.uses >= maxUses || now.Sub(h.created) >= maxAge
}
