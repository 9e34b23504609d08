package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/insyd/insyd/pkg/response"
)

func TestRateLimitMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := NewMemoryRateStore()
	t.Cleanup(store.Close)

	r := gin.New()
	r.Use(RateLimit(store, 2, 100*time.Millisecond))
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	require.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	require.NotEmpty(t, w.Header().Get("Retry-After"))

	var payload response.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	require.Equal(t, "RATE_LIMIT_EXCEEDED", payload.Error.Code)

	time.Sleep(120 * time.Millisecond)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	require.Equal(t, http.StatusOK, w.Code)
}

type fakeCounterCache struct {
	calls int64
	err   error
	keys  []string
}

func (f *fakeCounterCache) IncrementWithTTL(_ context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	f.keys = append(f.keys, key)
	if f.err != nil {
		return 0, 0, f.err
	}
	f.calls++
	return f.calls, window, nil
}

func TestRateLimitWithSharedStore(t *testing.T) {
	gin.SetMode(gin.TestMode)
	counters := &fakeCounterCache{}

	r := gin.New()
	r.Use(RateLimit(NewRedisRateStore(counters), 1, time.Minute))
	r.GET("/api/blogs", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/blogs", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "60", w.Header().Get("X-RateLimit-Reset"))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/blogs", nil))
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	require.Contains(t, counters.keys[0], "GET /api/blogs")
}

func TestRateLimitFailsOpen(t *testing.T) {
	gin.SetMode(gin.TestMode)
	counters := &fakeCounterCache{err: errors.New("redis down")}

	r := gin.New()
	r.Use(RateLimit(NewRedisRateStore(counters), 1, time.Minute))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
		require.Equal(t, http.StatusOK, w.Code)
	}
}

func TestRateLimitDisabled(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RateLimit(nil, 1, time.Minute))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
		require.Equal(t, http.StatusOK, w.Code)
	}
}
