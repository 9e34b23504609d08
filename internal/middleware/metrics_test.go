package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/insyd/insyd/pkg/metrics"
)

func TestMetricsUsesRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Metrics())
	r.GET("/api/blogs/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	before := testutil.CollectAndCount(metrics.APILatency)

	for _, path := range []string{"/api/blogs/a", "/api/blogs/b"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusNoContent, w.Code)
	}

	// Both requests share one series.
	require.Equal(t, before+1, testutil.CollectAndCount(metrics.APILatency))
	require.Zero(t, testutil.ToFloat64(metrics.HTTPInFlight))
}

func TestMetricsCollapsesUnmatchedPaths(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Metrics())

	before := testutil.CollectAndCount(metrics.APILatency)

	for _, path := range []string{"/wp-login.php", "/.env", "/admin"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusNotFound, w.Code)
	}

	require.Equal(t, before+1, testutil.CollectAndCount(metrics.APILatency))
}
