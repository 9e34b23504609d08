package main

import (
	"context"
	"fmt"
	"os"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/insyd/insyd/internal/api"
	"github.com/insyd/insyd/internal/app"
	"github.com/insyd/insyd/internal/app/maintenance"
	"github.com/insyd/insyd/internal/cache"
	"github.com/insyd/insyd/internal/database"
	"github.com/insyd/insyd/internal/events"
	"github.com/insyd/insyd/internal/middleware"
	"github.com/insyd/insyd/internal/monitoring"
	"github.com/insyd/insyd/internal/monitoring/checks"
	"github.com/insyd/insyd/internal/notify"
	"github.com/insyd/insyd/internal/services"
	"github.com/insyd/insyd/pkg/logger"
	"github.com/insyd/insyd/pkg/mail"
)

// runtimeStack bundles long-lived services used by the HTTP server.
type runtimeStack struct {
	DB         *gorm.DB
	Redis      *cache.RedisClient
	Publisher  events.Publisher
	Dispatcher *notify.Dispatcher
	Engine     *notify.Engine
	Services   api.Services
	Cleaner    *maintenance.Cleaner
	RateStore  middleware.RateStore
	Router     *gin.Engine

	memRateStore *middleware.MemoryRateStore
}

// bootstrapRuntime initialises the database, optional backends, services and the HTTP router.
func bootstrapRuntime(ctx context.Context, cfg *app.Config, log *zap.Logger) (*runtimeStack, error) {
	stack := &runtimeStack{}
	var err error
	success := false

	defer func() {
		if !success {
			stack.Shutdown(context.Background(), log)
		}
	}()

	// enable gin debug mode
	if debug, _ := os.LookupEnv("GIN_DEBUG"); debug != "true" {
		gin.SetMode(gin.ReleaseMode)
	}

	stack.DB, err = initialiseDatabase(cfg)
	if err != nil {
		return nil, err
	}

	if cfg.Cache.Redis.Enabled {
		if stack.Redis, err = cache.NewRedisClient(ctx, cfg.Cache.RedisClientConfig()); err != nil {
			if cfg.Email.Queue.Driver == "redis" {
				return nil, fmt.Errorf("connect redis: %w", err)
			}
			log.Warn("redis unavailable; falling back to in-process state", zap.Error(err))
			stack.Redis = nil
		} else {
			log.Info("redis connected", zap.String("addr", cfg.Cache.Redis.Address))
		}
	}

	stack.Publisher, err = initialisePublisher(cfg)
	if err != nil {
		return nil, err
	}

	stack.Dispatcher, err = initialiseDispatcher(cfg, stack.Redis)
	if err != nil {
		return nil, err
	}
	stack.Dispatcher.Start(context.Background())

	policy, err := notify.ParseAudiencePolicy(cfg.Notifications.Audience)
	if err != nil {
		return nil, err
	}

	stack.Engine, err = notify.NewEngine(stack.DB,
		notify.WithPolicy(policy),
		notify.WithRenderer(notify.NewRenderer(cfg.App.Name, cfg.App.PublicURL)),
		notify.WithMailbox(stack.Dispatcher),
		notify.WithPublisher(stack.Publisher),
	)
	if err != nil {
		return nil, fmt.Errorf("initialise notification engine: %w", err)
	}

	stack.Services, err = initialiseServices(stack.DB, stack.Engine, cfg)
	if err != nil {
		return nil, err
	}

	stack.Services.Health = monitoring.NewHealth(0)
	stack.Services.Health.Register(checks.Database(stack.DB))
	if cfg.Cache.Redis.Enabled {
		var pinger checks.RedisPinger
		if stack.Redis != nil {
			pinger = stack.Redis
		}
		stack.Services.Health.Register(checks.Redis(pinger))
	}

	stack.Cleaner = maintenance.NewCleaner(stack.DB, stack.Services.Notifications,
		maintenance.WithRetention(cfg.Notifications.Retention),
		maintenance.WithPruneSchedule(cfg.Notifications.PruneSchedule),
		maintenance.WithKeepaliveSchedule(cfg.Notifications.KeepaliveSchedule),
	)
	if err := stack.Cleaner.Start(); err != nil {
		return nil, fmt.Errorf("start maintenance jobs: %w", err)
	}

	if stack.Redis != nil {
		stack.RateStore = middleware.NewRedisRateStore(stack.Redis)
	} else {
		stack.memRateStore = middleware.NewMemoryRateStore()
		stack.RateStore = stack.memRateStore
	}

	stack.Router, err = api.NewRouter(stack.DB, stack.Services, cfg, stack.RateStore)
	if err != nil {
		return nil, fmt.Errorf("build api router: %w", err)
	}

	success = true
	return stack, nil
}

// Shutdown stops background workers and releases resources. Queued email is
// drained before the stores it depends on are closed.
func (s *runtimeStack) Shutdown(ctx context.Context, log *zap.Logger) {
	if s == nil {
		return
	}

	if s.Cleaner != nil {
		<-s.Cleaner.Stop().Done()
	}

	if s.Dispatcher != nil {
		if err := s.Dispatcher.Stop(ctx); err != nil {
			log.Warn("email dispatcher shutdown", zap.Error(err))
		}
	}

	if s.Publisher != nil {
		if err := s.Publisher.Close(); err != nil {
			log.Warn("event publisher shutdown", zap.Error(err))
		}
	}

	if s.memRateStore != nil {
		s.memRateStore.Close()
	}

	if s.Redis != nil {
		if err := s.Redis.Close(); err != nil {
			log.Warn("redis shutdown", zap.Error(err))
		}
	}

	if s.DB != nil {
		closeDatabase(s.DB, log)
	}
}

func initialiseDatabase(cfg *app.Config) (*gorm.DB, error) {
	dbCfg := cfg.Database.ConnectionConfig()
	db, err := database.Open(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := database.AutoMigrateAndSeed(db); err != nil {
		_ = database.Close(db)
		return nil, fmt.Errorf("auto-migrate database: %w", err)
	}

	log := logger.WithModule("database")
	log.Info("database connected", zap.String("driver", dbCfg.Driver))

	return db, nil
}

func initialisePublisher(cfg *app.Config) (events.Publisher, error) {
	if !cfg.Events.Kafka.Enabled {
		return events.NoopPublisher{}, nil
	}

	publisher, err := events.NewKafkaPublisher(cfg.Events.Kafka.PublisherConfig())
	if err != nil {
		return nil, fmt.Errorf("initialise kafka publisher: %w", err)
	}
	return publisher, nil
}

func initialiseDispatcher(cfg *app.Config, redis *cache.RedisClient) (*notify.Dispatcher, error) {
	mailer, err := mail.NewSMTPMailer(cfg.Email.SMTPSettings())
	if err != nil {
		return nil, fmt.Errorf("initialise mailer: %w", err)
	}

	var queue notify.Queue
	switch cfg.Email.Queue.Driver {
	case "redis":
		if redis == nil {
			return nil, fmt.Errorf("email queue: redis driver selected but redis is not connected")
		}
		queue = notify.NewRedisQueue(redis, cfg.Email.Queue.RedisKey)
	default:
		queue = notify.NewMemoryQueue(cfg.Email.Queue.Buffer)
	}

	dispatcher, err := notify.NewDispatcher(mailer, queue, notify.WithWorkers(cfg.Email.Queue.Workers))
	if err != nil {
		return nil, fmt.Errorf("initialise email dispatcher: %w", err)
	}
	return dispatcher, nil
}

func initialiseServices(db *gorm.DB, engine *notify.Engine, cfg *app.Config) (api.Services, error) {
	likePolicy, err := services.ParseLikePolicy(cfg.Notifications.LikePolicy)
	if err != nil {
		return api.Services{}, err
	}
	contentOpts := services.ContentOptions{
		LikePolicy:     likePolicy,
		NotifyOnDelete: cfg.Notifications.NotifyOnDelete,
	}

	var svc api.Services
	if svc.Users, err = services.NewUserService(db, engine); err != nil {
		return api.Services{}, fmt.Errorf("initialise user service: %w", err)
	}
	if svc.Follows, err = services.NewFollowService(db, engine); err != nil {
		return api.Services{}, fmt.Errorf("initialise follow service: %w", err)
	}
	if svc.Blogs, err = services.NewBlogService(db, engine, contentOpts); err != nil {
		return api.Services{}, fmt.Errorf("initialise blog service: %w", err)
	}
	if svc.Jobs, err = services.NewJobService(db, engine, contentOpts); err != nil {
		return api.Services{}, fmt.Errorf("initialise job service: %w", err)
	}
	if svc.Notifications, err = services.NewNotificationService(db, cfg.Notifications.InboxLimit); err != nil {
		return api.Services{}, fmt.Errorf("initialise notification service: %w", err)
	}
	return svc, nil
}

func closeDatabase(db *gorm.DB, log *zap.Logger) {
	if err := database.Close(db); err != nil {
		log.Warn("failed to close database", zap.Error(err))
	}
}
