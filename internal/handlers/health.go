package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/insyd/insyd/internal/monitoring"
	apperrors "github.com/insyd/insyd/pkg/errors"
	"github.com/insyd/insyd/pkg/response"
)

// Health reports readiness from the registered dependency probes. Only a failed
// critical probe (the database) turns the response into a 503.
func Health(health *monitoring.Health) gin.HandlerFunc {
	return func(c *gin.Context) {
		report := health.Evaluate(requestContext(c))
		now := time.Now().UTC()

		if !report.Healthy() {
			c.JSON(http.StatusServiceUnavailable, response.Response{
				Success: false,
				Data:    gin.H{"status": "unhealthy", "timestamp": now, "checks": report.Checks},
				Error:   &response.ErrorInfo{Code: apperrors.ErrServiceUnavailable.Code, Message: "Database unavailable"},
			})
			return
		}
		response.Success(c, http.StatusOK, gin.H{"status": "healthy", "timestamp": now, "checks": report.Checks})
	}
}
