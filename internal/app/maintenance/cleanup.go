package maintenance

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/insyd/insyd/internal/database"
	"github.com/insyd/insyd/internal/services"
	"github.com/insyd/insyd/pkg/logger"
	"github.com/insyd/insyd/pkg/metrics"
)

const (
	defaultRetention     = 30 * 24 * time.Hour
	defaultPruneSpec     = "@daily"
	defaultKeepaliveSpec = "@every 5m"
	keepaliveTimeout     = 5 * time.Second

	jobPrune     = "prune_notifications"
	jobKeepalive = "db_keepalive"
)

// Cleaner coordinates background housekeeping: pruning read notifications past the
// retention window and pinging the database so idle pools stay warm.
type Cleaner struct {
	db        *gorm.DB
	inbox     *services.NotificationService
	cron      *cron.Cron
	now       func() time.Time
	log       *zap.Logger
	retention time.Duration

	pruneSchedule     string
	keepaliveSchedule string
}

// Option customises the Cleaner.
type Option func(*Cleaner)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(cleaner *Cleaner) {
		if c != nil {
			cleaner.cron = c
		}
	}
}

// WithNow overrides the clock used to compute the prune cutoff.
func WithNow(now func() time.Time) Option {
	return func(cleaner *Cleaner) {
		if now != nil {
			cleaner.now = now
		}
	}
}

// WithRetention adjusts how long read notifications are kept. Zero or negative disables pruning.
func WithRetention(d time.Duration) Option {
	return func(cleaner *Cleaner) {
		cleaner.retention = d
	}
}

// WithPruneSchedule overrides the cron specification for notification pruning.
func WithPruneSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.pruneSchedule = spec
		}
	}
}

// WithKeepaliveSchedule overrides the cron specification for the database keepalive.
func WithKeepaliveSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.keepaliveSchedule = spec
		}
	}
}

// NewCleaner constructs a Cleaner. A nil dependency skips the job that needs it.
func NewCleaner(db *gorm.DB, inbox *services.NotificationService, opts ...Option) *Cleaner {
	cleaner := &Cleaner{
		db:                db,
		inbox:             inbox,
		now:               time.Now,
		retention:         defaultRetention,
		pruneSchedule:     defaultPruneSpec,
		keepaliveSchedule: defaultKeepaliveSpec,
		log:               logger.WithModule("maintenance"),
	}

	for _, opt := range opts {
		opt(cleaner)
	}

	if cleaner.cron == nil {
		cleaner.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}

	return cleaner
}

func (c *Cleaner) pruneEnabled() bool {
	return c.inbox != nil && c.retention > 0
}

// Start registers the enabled jobs and launches the scheduler.
func (c *Cleaner) Start() error {
	if !c.pruneEnabled() && c.db == nil {
		return nil
	}

	if c.pruneEnabled() {
		if _, err := c.cron.AddFunc(c.pruneSchedule, func() {
			if _, err := c.Prune(context.Background()); err != nil {
				c.log.Warn("notification prune failed", zap.Error(err))
			}
		}); err != nil {
			return err
		}
	}

	if c.db != nil {
		if _, err := c.cron.AddFunc(c.keepaliveSchedule, func() {
			if err := c.Keepalive(context.Background()); err != nil {
				c.log.Warn("database keepalive failed", zap.Error(err))
			}
		}); err != nil {
			return err
		}
	}

	c.cron.Start()
	return nil
}

// Stop halts the scheduler. The returned context is done once running jobs finish.
func (c *Cleaner) Stop() context.Context {
	if c.cron == nil {
		return context.Background()
	}
	return c.cron.Stop()
}

// Prune deletes read notifications older than the retention window.
func (c *Cleaner) Prune(ctx context.Context) (int64, error) {
	if !c.pruneEnabled() {
		return 0, nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	cutoff := c.now().Add(-c.retention)
	removed, err := c.inbox.PruneRead(ctx, cutoff)
	record(jobPrune, err)
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		c.log.Info("pruned read notifications", zap.Int64("removed", removed), zap.Time("cutoff", cutoff))
	}
	return removed, nil
}

// Keepalive pings the database.
func (c *Cleaner) Keepalive(ctx context.Context) error {
	if c.db == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	ctx, cancel := context.WithTimeout(ctx, keepaliveTimeout)
	defer cancel()

	err := database.Ping(ctx, c.db)
	record(jobKeepalive, err)
	return err
}

// RunOnce executes every enabled job sequentially. Used in tests and on shutdown.
func (c *Cleaner) RunOnce(ctx context.Context) error {
	var errs error
	if _, err := c.Prune(ctx); err != nil {
		errs = multierr.Append(errs, err)
	}
	if err := c.Keepalive(ctx); err != nil {
		errs = multierr.Append(errs, err)
	}
	return errs
}

func record(job string, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	metrics.MaintenanceRuns.WithLabelValues(job, result).Inc()
}
