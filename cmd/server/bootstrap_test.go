package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/insyd/insyd/internal/app"
)

func testConfig() *app.Config {
	cfg := &app.Config{}
	cfg.App.Name = "Insyd"
	cfg.App.PublicURL = "http://localhost:3000"
	cfg.Database.Driver = "sqlite"
	cfg.Database.Path = "memory:" + uuid.NewString()
	cfg.Database.MaxOpenConns = 1
	cfg.Email.Queue.Driver = "memory"
	cfg.Email.Queue.Workers = 1
	cfg.Notifications.Audience = "followers"
	cfg.Notifications.LikePolicy = "toggle"
	cfg.Notifications.Retention = 0
	cfg.Monitoring.Health.Enabled = true
	return cfg
}

func TestBootstrapRuntimeServesRequests(t *testing.T) {
	cfg := testConfig()
	log := zap.NewNop()

	stack, err := bootstrapRuntime(context.Background(), cfg, log)
	require.NoError(t, err)
	t.Cleanup(func() { stack.Shutdown(context.Background(), log) })

	require.NotNil(t, stack.DB)
	require.Nil(t, stack.Redis)
	require.NotNil(t, stack.RateStore)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	stack.Router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/auth/register", bytes.NewBufferString(`{"email":"boot@example.com"}`))
	req.Header.Set("Content-Type", "application/json")
	stack.Router.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
}

func TestBootstrapRuntimeRejectsRedisQueueWithoutRedis(t *testing.T) {
	cfg := testConfig()
	cfg.Email.Queue.Driver = "redis"

	_, err := bootstrapRuntime(context.Background(), cfg, zap.NewNop())
	require.Error(t, err)
}

func TestLoadApplicationConfigMissingPath(t *testing.T) {
	_, err := loadApplicationConfig("/does/not/exist")
	require.Error(t, err)
}
