package cache

import (
	"testing"
	"time"

	"github.com/use-agent/threadscope/models"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newTestCache(max int, ttl time.Duration) (*Cache, *clock) {
	clk := &clock{t: time.Date(2024, 3, 9, 10, 0, 0, 0, time.UTC)}
	c := New(max, ttl)
	c.now = clk.now
	return c, clk
}

func result(url string) *models.CrawlResult {
	return &models.CrawlResult{StartURL: url, StopReason: models.StopSinglePage}
}

func TestKeyDependsOnRequest(t *testing.T) {
	base := models.ExtractRequest{URL: "https://a.com/1", Profile: "dcd", MaxPages: 2, Engine: "browser"}
	k := Key(&base)

	variants := []models.ExtractRequest{base, base, base, base}
	variants[0].URL = "https://a.com/2"
	variants[1].Profile = "autohome"
	variants[2].MaxPages = 3
	variants[3].Engine = "http"
	for i := range variants {
		if Key(&variants[i]) == k {
			t.Errorf("variant %d shares the key", i)
		}
	}

	same := base
	same.Timeout = 30
	if Key(&same) != k {
		t.Error("timeout must not change the key")
	}
}

func TestGetHonorsMaxAge(t *testing.T) {
	c, clk := newTestCache(10, time.Hour)
	defer c.Close()

	c.Set("k", result("a"))
	if _, ok := c.Get("k", 0); ok {
		t.Error("maxAge 0 must skip the cache")
	}
	clk.t = clk.t.Add(30 * time.Second)
	if got, ok := c.Get("k", time.Minute); !ok || got.StartURL != "a" {
		t.Errorf("Get = %v, %v", got, ok)
	}
	if _, ok := c.Get("k", 10*time.Second); ok {
		t.Error("entry older than maxAge returned")
	}
}

func TestTTLCapsMaxAge(t *testing.T) {
	c, clk := newTestCache(10, time.Minute)
	defer c.Close()

	c.Set("k", result("a"))
	clk.t = clk.t.Add(2 * time.Minute)
	if _, ok := c.Get("k", time.Hour); ok {
		t.Error("entry older than the TTL returned")
	}
	c.evictExpired()
	if c.Len() != 0 {
		t.Errorf("len = %d after eviction", c.Len())
	}
}

func TestSetEvictsOldest(t *testing.T) {
	c, _ := newTestCache(2, time.Hour)
	defer c.Close()

	c.Set("a", result("a"))
	c.Set("b", result("b"))
	c.Set("a", result("a2"))
	c.Set("c", result("c"))

	if _, ok := c.Get("b", time.Hour); ok {
		t.Error("b should have been evicted")
	}
	if got, ok := c.Get("a", time.Hour); !ok || got.StartURL != "a2" {
		t.Errorf("a = %v, %v", got, ok)
	}
	if c.Len() != 2 {
		t.Errorf("len = %d", c.Len())
	}
}

func TestFailedResultsAreNotCached(t *testing.T) {
	c, _ := newTestCache(2, time.Hour)
	defer c.Close()

	res := result("a")
	res.Error = &models.ErrorDetail{Code: models.ErrCodeNavigation}
	c.Set("a", res)
	if c.Len() != 0 {
		t.Error("failed crawl was cached")
	}
}
