package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"sync"
	"time"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/use-agent/threadscope/models"
)

// entry holds a cached result with its creation timestamp.
type entry struct {
	result    *models.CrawlResult
	createdAt time.Time
}

// Cache is an in-memory cache for crawl results, evicting the oldest entry
// when full. It is safe for concurrent use.
type Cache struct {
	mu         sync.Mutex
	store      *orderedmap.OrderedMap[string, *entry]
	maxEntries int
	ttl        time.Duration
	now        func() time.Time
	done       chan struct{}
	closeOnce  sync.Once
}

// New creates a Cache. A background goroutine evicts entries older than
// ttl every five minutes until Close is called.
func New(maxEntries int, ttl time.Duration) *Cache {
	c := &Cache{
		store:      orderedmap.New[string, *entry](),
		maxEntries: maxEntries,
		ttl:        ttl,
		now:        time.Now,
		done:       make(chan struct{}),
	}
	go c.cleanupLoop()
	return c
}

// Key identifies a crawl by everything that changes its result.
func Key(req *models.ExtractRequest) string {
	h := sha256.New()
	h.Write([]byte(req.URL))
	h.Write([]byte("|"))
	h.Write([]byte(req.Profile))
	h.Write([]byte("|"))
	h.Write([]byte(strconv.Itoa(req.MaxPages)))
	h.Write([]byte("|"))
	h.Write([]byte(req.Engine))
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns a cached result younger than maxAge and the cache TTL.
// maxAge <= 0 skips the lookup.
func (c *Cache) Get(key string, maxAge time.Duration) (*models.CrawlResult, bool) {
	if maxAge <= 0 {
		return nil, false
	}
	if c.ttl > 0 && maxAge > c.ttl {
		maxAge = c.ttl
	}

	c.mu.Lock()
	e, ok := c.store.Get(key)
	c.mu.Unlock()

	if !ok || c.now().Sub(e.createdAt) > maxAge {
		return nil, false
	}
	return e.result, true
}

// Set stores a result, replacing any entry for key. Results that ended on
// an error are not cached.
func (c *Cache) Set(key string, res *models.CrawlResult) {
	if res == nil || res.Error != nil || c.maxEntries <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.store.Delete(key)
	for c.store.Len() >= c.maxEntries {
		oldest := c.store.Oldest()
		c.store.Delete(oldest.Key)
	}
	c.store.Set(key, &entry{result: res, createdAt: c.now()})
}

// Len returns the number of cached results.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.Len()
}

// Close stops the cleanup goroutine.
func (c *Cache) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}

// evictExpired drops entries older than the TTL. Entries are kept in
// insertion order, so the scan stops at the first fresh one.
func (c *Cache) evictExpired() {
	if c.ttl <= 0 {
		return
	}
	cutoff := c.now().Add(-c.ttl)
	c.mu.Lock()
	defer c.mu.Unlock()
	for pair := c.store.Oldest(); pair != nil; {
		if !pair.Value.createdAt.Before(cutoff) {
			return
		}
		next := pair.Next()
		c.store.Delete(pair.Key)
		pair = next
	}
}

func (c *Cache) cleanupLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.evictExpired()
		case <-c.done:
			return
		}
	}
}
