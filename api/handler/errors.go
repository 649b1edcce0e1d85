package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/threadscope/models"
	"github.com/use-agent/threadscope/runner"
)

// respondError writes err as a failed ExtractResponse with the matching
// HTTP status.
func respondError(c *gin.Context, err error, durationMs int64) {
	detail := runner.DetailOf(err)
	c.JSON(mapErrorToStatus(detail.Code), models.ExtractResponse{
		Success:    false,
		Error:      detail,
		DurationMs: durationMs,
	})
}

// mapErrorToStatus translates error codes to HTTP status codes.
func mapErrorToStatus(code string) int {
	switch code {
	case models.ErrCodeTimeout:
		return http.StatusGatewayTimeout // 504
	case models.ErrCodeNavigation, models.ErrCodeEvaluation:
		return http.StatusBadGateway // 502
	case models.ErrCodeBrowserCrash:
		return http.StatusServiceUnavailable // 503
	case models.ErrCodeInvalidInput, models.ErrCodeUnknownProfile:
		return http.StatusBadRequest // 400
	case models.ErrCodeRateLimited:
		return http.StatusTooManyRequests // 429
	case models.ErrCodeUnauthorized:
		return http.StatusUnauthorized // 401
	case models.ErrCodeJobNotFound:
		return http.StatusNotFound // 404
	default:
		return http.StatusInternalServerError // 500
	}
}
