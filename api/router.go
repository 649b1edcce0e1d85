package api

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/threadscope/api/handler"
	"github.com/use-agent/threadscope/api/middleware"
	"github.com/use-agent/threadscope/cache"
	"github.com/use-agent/threadscope/config"
	"github.com/use-agent/threadscope/models"
	"github.com/use-agent/threadscope/runner"
	"github.com/use-agent/threadscope/webhook"
)

// NewRouter creates a configured Gin engine with all routes and middleware.
// stats reports the browser pool and may be nil when only the http engine
// is available.
//
// Middleware chain:
//
//	Global:  Recovery → Logger
//	API:     Auth (if enabled) → RateLimit
//
// Health endpoint stays outside auth so monitoring probes always work.
func NewRouter(rn *runner.Runner, cc *cache.Cache, wh *webhook.Notifier, stats func() models.PoolStats, cfg *config.Config, startTime time.Time) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())

	v1 := r.Group("/api/v1")

	v1.GET("/health", handler.Health(stats, rn.Profiles(), startTime))

	protected := v1.Group("")
	if cfg.Auth.Enabled {
		protected.Use(middleware.Auth(cfg.Auth.APIKeys))
	}
	protected.Use(middleware.RateLimit(cfg.RateLimit))

	// Synchronous extraction.
	protected.POST("/extract", handler.Extract(rn, cc))

	// Asynchronous crawl jobs.
	protected.POST("/crawl", handler.PostCrawl(rn, wh))
	protected.GET("/crawl/:id", handler.GetCrawl())

	protected.GET("/profiles", handler.Profiles(rn.Profiles()))

	return r
}
