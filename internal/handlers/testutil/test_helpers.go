package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/insyd/insyd/internal/api"
	"github.com/insyd/insyd/internal/app"
	sharedtestutil "github.com/insyd/insyd/internal/database/testutil"
	"github.com/insyd/insyd/internal/middleware"
	"github.com/insyd/insyd/internal/notify"
	"github.com/insyd/insyd/internal/services"
	"github.com/insyd/insyd/pkg/mail"
	"github.com/insyd/insyd/pkg/response"
)

// Mailbox records email queued by fan-out instead of delivering it.
type Mailbox struct {
	mu       sync.Mutex
	messages []mail.Message
}

func (m *Mailbox) Enqueue(_ context.Context, msg mail.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, msg)
	return nil
}

// Messages returns a copy of everything queued so far.
func (m *Mailbox) Messages() []mail.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]mail.Message(nil), m.messages...)
}

// Env encapsulates a fully-wired API instance backed by an in-memory database for handler tests.
type Env struct {
	T       *testing.T
	DB      *gorm.DB
	Router  *gin.Engine
	Mailbox *Mailbox
	Config  *app.Config
}

// Option adjusts the configuration used by NewEnv.
type Option func(*app.Config)

// WithLikePolicy selects the like policy.
func WithLikePolicy(policy string) Option {
	return func(cfg *app.Config) { cfg.Notifications.LikePolicy = policy }
}

// WithRateLimit enables rate limiting with the given budget per window.
func WithRateLimit(requests int, window time.Duration) Option {
	return func(cfg *app.Config) {
		cfg.Server.RateLimit = app.RateLimitConfig{Enabled: true, Requests: requests, Window: window}
	}
}

// NewEnv provisions a fresh handler test environment with migrations applied.
func NewEnv(t *testing.T, opts ...Option) *Env {
	t.Helper()

	gin.SetMode(gin.TestMode)

	db := sharedtestutil.MustOpenTestDB(t, sharedtestutil.WithAutoMigrate())

	cfg := &app.Config{}
	cfg.App.Name = "Insyd"
	cfg.Notifications.Audience = string(notify.AudienceFollowers)
	cfg.Notifications.LikePolicy = string(services.LikeToggle)
	cfg.Notifications.InboxLimit = 20
	cfg.Monitoring.Health.Enabled = true
	cfg.Monitoring.Prometheus.Enabled = true
	for _, opt := range opts {
		opt(cfg)
	}

	likePolicy, err := services.ParseLikePolicy(cfg.Notifications.LikePolicy)
	require.NoError(t, err)

	mailbox := &Mailbox{}
	engine, err := notify.NewEngine(db,
		notify.WithMailbox(mailbox),
		notify.WithRenderer(notify.NewRenderer(cfg.App.Name, cfg.App.PublicURL)),
	)
	require.NoError(t, err)

	contentOpts := services.ContentOptions{LikePolicy: likePolicy, NotifyOnDelete: cfg.Notifications.NotifyOnDelete}
	users, err := services.NewUserService(db, engine)
	require.NoError(t, err)
	follows, err := services.NewFollowService(db, engine)
	require.NoError(t, err)
	blogs, err := services.NewBlogService(db, engine, contentOpts)
	require.NoError(t, err)
	jobs, err := services.NewJobService(db, engine, contentOpts)
	require.NoError(t, err)
	inbox, err := services.NewNotificationService(db, cfg.Notifications.InboxLimit)
	require.NoError(t, err)

	var rateStore middleware.RateStore
	if cfg.Server.RateLimit.Enabled {
		memStore := middleware.NewMemoryRateStore()
		t.Cleanup(memStore.Close)
		rateStore = memStore
	}

	router, err := api.NewRouter(db, api.Services{
		Users:         users,
		Follows:       follows,
		Blogs:         blogs,
		Jobs:          jobs,
		Notifications: inbox,
	}, cfg, rateStore)
	require.NoError(t, err)

	return &Env{
		T:       t,
		DB:      db,
		Router:  router,
		Mailbox: mailbox,
		Config:  cfg,
	}
}

// APIResponse represents the canonical API envelope returned by handlers.
type APIResponse struct {
	Success bool                `json:"success"`
	Data    json.RawMessage     `json:"data"`
	Error   *response.ErrorInfo `json:"error"`
}

// DecodeResponse parses the standard API response object from a recorder.
func DecodeResponse(t *testing.T, w *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

// DecodeInto unmarshals the data payload into the provided destination.
func DecodeInto[T any](t *testing.T, raw json.RawMessage, dest *T) {
	t.Helper()
	if dest == nil {
		t.Fatal("destination must not be nil")
	}
	require.NoError(t, json.Unmarshal(raw, dest))
}

// Request executes an HTTP request against the test router, JSON encoding body when present.
func (e *Env) Request(method, path string, body any) *httptest.ResponseRecorder {
	e.T.Helper()

	var buf *bytes.Buffer
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(e.T, err)
		buf = bytes.NewBuffer(data)
	} else {
		buf = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequest(method, path, buf)
	require.NoError(e.T, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	w := httptest.NewRecorder()
	e.Router.ServeHTTP(w, req)
	return w
}

// Register creates a user through the API and returns its id.
func (e *Env) Register(email string) string {
	e.T.Helper()

	w := e.Request(http.MethodPost, "/api/auth/register", map[string]string{"email": email})
	require.Contains(e.T, []int{http.StatusOK, http.StatusCreated}, w.Code, w.Body.String())

	var payload struct {
		User struct {
			ID string `json:"id"`
		} `json:"user"`
	}
	DecodeInto(e.T, DecodeResponse(e.T, w).Data, &payload)
	require.NotEmpty(e.T, payload.User.ID)
	// Keep created_at ordering deterministic on coarse clocks.
	time.Sleep(time.Millisecond)
	return payload.User.ID
}
