package api

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/insyd/insyd/internal/app"
	"github.com/insyd/insyd/internal/handlers"
	"github.com/insyd/insyd/internal/middleware"
	"github.com/insyd/insyd/internal/monitoring"
	"github.com/insyd/insyd/internal/services"
)

// Services groups the domain services the HTTP surface exposes.
type Services struct {
	Users         *services.UserService
	Follows       *services.FollowService
	Blogs         *services.BlogService
	Jobs          *services.JobService
	Notifications *services.NotificationService

	// Health is optional; without it /health probes only the database.
	Health *monitoring.Health
}

func (s Services) validate() error {
	switch {
	case s.Users == nil:
		return fmt.Errorf("user service must be provided")
	case s.Follows == nil:
		return fmt.Errorf("follow service must be provided")
	case s.Blogs == nil:
		return fmt.Errorf("blog service must be provided")
	case s.Jobs == nil:
		return fmt.Errorf("job service must be provided")
	case s.Notifications == nil:
		return fmt.Errorf("notification service must be provided")
	}
	return nil
}

// NewRouter builds the Gin engine, wires middleware and registers routes.
// rateStore may be nil, which disables rate limiting.
func NewRouter(db *gorm.DB, svc Services, cfg *app.Config, rateStore middleware.RateStore) (*gin.Engine, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle must be provided")
	}
	if cfg == nil {
		return nil, fmt.Errorf("config must be provided")
	}
	if err := svc.validate(); err != nil {
		return nil, err
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowedOrigins))
	if cfg.Server.RateLimit.Enabled {
		r.Use(middleware.RateLimit(rateStore, cfg.Server.RateLimit.Requests, cfg.Server.RateLimit.Window))
	}

	registerHealthRoutes(r, db, svc.Health, cfg)
	registerMetricsRoutes(r, cfg)

	api := r.Group("/api")
	registerAuthRoutes(api, handlers.NewAuthHandler(svc.Users))
	registerUserRoutes(api, handlers.NewUserHandler(svc.Users, svc.Follows))
	registerFollowRoutes(api, handlers.NewFollowHandler(svc.Follows))
	registerBlogRoutes(api, handlers.NewBlogHandler(svc.Blogs))
	registerJobRoutes(api, handlers.NewJobHandler(svc.Jobs))
	registerNotificationRoutes(api, handlers.NewNotificationHandler(svc.Notifications))

	r.NoRoute(middleware.NotFoundHandler)

	return r, nil
}

func registerMetricsRoutes(r *gin.Engine, cfg *app.Config) {
	if !cfg.Monitoring.Prometheus.Enabled {
		return
	}
	endpoint := cfg.Monitoring.Prometheus.Endpoint
	if endpoint == "" {
		endpoint = "/metrics"
	}
	r.GET(endpoint, gin.WrapH(promhttp.Handler()))
}
