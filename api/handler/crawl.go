package handler

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/threadscope/models"
	"github.com/use-agent/threadscope/runner"
	"github.com/use-agent/threadscope/webhook"
)

// jobTTL is how long finished and running jobs stay queryable.
const jobTTL = time.Hour

// crawlStore holds all in-flight and completed crawl jobs, keyed by ID.
var crawlStore sync.Map

func init() {
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			cutoff := time.Now().Add(-jobTTL).Unix()
			crawlStore.Range(func(key, value any) bool {
				if value.(*jobEntry).snapshot().CreatedAt < cutoff {
					crawlStore.Delete(key)
				}
				return true
			})
		}
	}()
}

// jobEntry guards a job that a background crawl updates while clients poll it.
type jobEntry struct {
	mu  sync.Mutex
	job models.CrawlJob
}

func (e *jobEntry) snapshot() models.CrawlJob {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.job
}

func (e *jobEntry) finish(res *models.CrawlResult, err error) models.CrawlJob {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.job.Result = res
	switch {
	case res == nil || (err != nil && len(res.Pages) == 0):
		e.job.Status = models.JobFailed
		e.job.Error = runner.DetailOf(err)
	default:
		e.job.Status = models.JobCompleted
		e.job.Error = res.Error
	}
	return e.job
}

// PostCrawl returns a handler for POST /api/v1/crawl. The crawl runs in the
// background; its result is polled with GetCrawl or pushed to the webhook.
func PostCrawl(rn *runner.Runner, wh *webhook.Notifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.CrawlRequest
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

		id := "crawl-" + randomID()
		entry := &jobEntry{job: models.CrawlJob{
			ID:            id,
			Status:        models.JobProcessing,
			CreatedAt:     time.Now().Unix(),
			WebhookURL:    req.WebhookURL,
			WebhookSecret: req.WebhookSecret,
		}}
		crawlStore.Store(id, entry)

		go runCrawl(rn, wh, entry, req.ExtractRequest)

		c.JSON(http.StatusAccepted, models.CrawlResponse{
			Success: true,
			ID:      id,
		})
	}
}

// GetCrawl returns a handler for GET /api/v1/crawl/:id.
func GetCrawl() gin.HandlerFunc {
	return func(c *gin.Context) {
		val, ok := crawlStore.Load(c.Param("id"))
		if !ok {
			c.JSON(http.StatusNotFound, models.ExtractResponse{
				Success: false,
				Error: &models.ErrorDetail{
					Code:    models.ErrCodeJobNotFound,
					Message: "crawl job not found",
				},
			})
			return
		}
		c.JSON(http.StatusOK, statusOf(val.(*jobEntry).snapshot()))
	}
}

func statusOf(job models.CrawlJob) models.CrawlStatusResponse {
	resp := models.CrawlStatusResponse{
		ID:      job.ID,
		Status:  job.Status,
		Result:  job.Result,
		Error:   job.Error,
		Created: job.CreatedAt,
	}
	if job.Result != nil {
		resp.Pages = len(job.Result.Pages)
	}
	return resp
}

// runCrawl executes the job detached from the request that created it.
func runCrawl(rn *runner.Runner, wh *webhook.Notifier, entry *jobEntry, req models.ExtractRequest) {
	res, err := rn.Run(context.Background(), &req)
	job := entry.finish(res, err)

	slog.Info("crawl job finished",
		"id", job.ID,
		"status", job.Status,
		"url", req.URL,
	)

	if job.WebhookURL == "" || wh == nil {
		return
	}
	event := webhook.EventCrawlCompleted
	if job.Status == models.JobFailed {
		event = webhook.EventCrawlFailed
	}
	wh.SendAsync(job.WebhookURL, job.WebhookSecret, &webhook.Event{
		Type:      event,
		JobID:     job.ID,
		Timestamp: time.Now().Unix(),
		Data:      statusOf(job),
	})
}

func randomID() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
