package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/insyd/insyd/pkg/metrics"
)

// unmatchedRoute labels requests that hit no registered route, keeping probe
// traffic against random paths from creating a series per URL.
const unmatchedRoute = "unmatched"

// Metrics records latency by route template and tracks in-flight requests.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		metrics.HTTPInFlight.Inc()
		defer metrics.HTTPInFlight.Dec()

		start := time.Now()
		c.Next()

		metrics.APILatency.
			WithLabelValues(c.Request.Method, routeLabel(c), strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}

func routeLabel(c *gin.Context) string {
	if path := c.FullPath(); path != "" {
		return path
	}
	return unmatchedRoute
}
