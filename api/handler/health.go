package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/threadscope/models"
	"github.com/use-agent/threadscope/profile"
)

// Version is reported by the health endpoint.
const Version = "0.1.0"

// Health returns a handler for GET /api/v1/health.
//
// Reports pool utilisation and degrades status when > 80% of tabs are busy.
// stats is nil when the server runs without a browser.
func Health(stats func() models.PoolStats, profiles *profile.Registry, startTime time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		var ps models.PoolStats
		if stats != nil {
			ps = stats()
		}

		status := "healthy"
		if ps.MaxPages > 0 && ps.ActivePages > int(float64(ps.MaxPages)*0.8) {
			status = "degraded"
		}

		c.JSON(http.StatusOK, models.HealthResponse{
			Status:    status,
			Uptime:    time.Since(startTime).Round(time.Second).String(),
			PoolStats: ps,
			Profiles:  profiles.Len(),
			Version:   Version,
		})
	}
}

// Profiles returns a handler for GET /api/v1/profiles.
func Profiles(profiles *profile.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		list := profiles.List()
		infos := make([]models.ProfileInfo, 0, len(list))
		for _, p := range list {
			infos = append(infos, models.ProfileInfo{
				Name:       p.Name,
				Hosts:      p.Hosts,
				Pagination: p.Pagination.Style,
				Source:     p.Source,
			})
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "profiles": infos})
	}
}
