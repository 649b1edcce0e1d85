package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/threadscope/cache"
	"github.com/use-agent/threadscope/models"
	"github.com/use-agent/threadscope/runner"
)

// Extract returns a handler for POST /api/v1/extract.
//
// Flow:
//  1. Parse & validate ExtractRequest, apply defaults.
//  2. Serve from the cache when maxAge allows it.
//  3. Run the crawl, synchronously.
//  4. Cache a clean result and respond.
//
// A crawl that extracted some pages before failing still answers 200 with
// the partial result and its error; one that extracted nothing answers with
// the status of its error.
func Extract(rn *runner.Runner, cc *cache.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		var req models.ExtractRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.ExtractResponse{
				Success: false,
				Error: &models.ErrorDetail{
					Code:    models.ErrCodeInvalidInput,
					Message: err.Error(),
				},
			})
			return
		}
		req.Defaults()

		maxAge := time.Duration(req.MaxAge) * time.Millisecond
		key := cache.Key(&req)
		if cc != nil && maxAge > 0 {
			if cached, hit := cc.Get(key, maxAge); hit {
				c.JSON(http.StatusOK, models.ExtractResponse{
					Success:     true,
					Result:      cached,
					CacheStatus: "hit",
					DurationMs:  time.Since(start).Milliseconds(),
				})
				return
			}
		}

		res, err := rn.Run(c.Request.Context(), &req)
		elapsed := time.Since(start).Milliseconds()
		if res == nil || (err != nil && len(res.Pages) == 0) {
			respondError(c, err, elapsed)
			return
		}

		resp := models.ExtractResponse{
			Success:    res.Error == nil,
			Result:     res,
			Error:      res.Error,
			DurationMs: elapsed,
		}
		if cc != nil && maxAge > 0 && res.Error == nil {
			cc.Set(key, res)
			resp.CacheStatus = "miss"
		}
		c.JSON(http.StatusOK, resp)
	}
}
