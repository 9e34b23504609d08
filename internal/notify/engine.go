package notify

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/insyd/insyd/internal/events"
	"github.com/insyd/insyd/internal/models"
	"github.com/insyd/insyd/pkg/logger"
	"github.com/insyd/insyd/pkg/mail"
	"github.com/insyd/insyd/pkg/metrics"
)

const insertBatchSize = 100

// Mailbox accepts outbound email for later delivery.
type Mailbox interface {
	Enqueue(ctx context.Context, msg mail.Message) error
}

// Engine performs fan-out for domain events.
type Engine struct {
	db        *gorm.DB
	policy    AudiencePolicy
	directory Directory
	renderer  *Renderer
	mailbox   Mailbox
	publisher events.Publisher
	log       *zap.Logger
	now       func() time.Time
}

// Option customises the Engine.
type Option func(*Engine)

// WithPolicy selects the audience policy for content creation events.
func WithPolicy(policy AudiencePolicy) Option {
	return func(e *Engine) {
		if policy != "" {
			e.policy = policy
		}
	}
}

// WithDirectory overrides audience lookups.
func WithDirectory(dir Directory) Option {
	return func(e *Engine) {
		if dir != nil {
			e.directory = dir
		}
	}
}

// WithRenderer overrides notification and email rendering.
func WithRenderer(r *Renderer) Option {
	return func(e *Engine) {
		if r != nil {
			e.renderer = r
		}
	}
}

// WithMailbox sets where rendered email is queued. Without one no email is sent.
func WithMailbox(m Mailbox) Option {
	return func(e *Engine) {
		e.mailbox = m
	}
}

// WithPublisher sets the activity publisher.
func WithPublisher(p events.Publisher) Option {
	return func(e *Engine) {
		if p != nil {
			e.publisher = p
		}
	}
}

// WithLogger overrides the engine logger.
func WithLogger(log *zap.Logger) Option {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}

// WithClock overrides the clock used for activity timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// NewEngine constructs an Engine writing notifications to db.
func NewEngine(db *gorm.DB, opts ...Option) (*Engine, error) {
	if db == nil {
		return nil, errors.New("notify: db is required")
	}

	e := &Engine{
		db:        db,
		policy:    AudienceFollowers,
		directory: NewStoreDirectory(db),
		renderer:  NewRenderer("Insyd", ""),
		publisher: events.NoopPublisher{},
		log:       logger.WithModule("fanout"),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Policy reports the configured audience policy.
func (e *Engine) Policy() AudiencePolicy {
	return e.policy
}

// Publish fans ev out to its audience. It never fails: every error is logged
// and the returned Result reports how many inbox rows were written.
func (e *Engine) Publish(ctx context.Context, ev Event) Result {
	// The triggering mutation has committed; side effects outlive the request.
	ctx = context.WithoutCancel(ctx)
	log := e.log.With(
		zap.String("type", ev.Type),
		zap.String("actor_id", ev.Actor.ID),
		zap.String("subject_id", ev.Subject.ID),
	)

	recipients, err := Resolve(ctx, e.policy, e.directory, ev)
	if err != nil {
		log.Error("resolve audience", zap.Error(err))
		return Result{}
	}
	metrics.FanoutAudience.WithLabelValues(ev.Type).Observe(float64(len(recipients)))

	result := Result{Audience: len(recipients)}
	if len(recipients) == 0 {
		return result
	}

	rows := e.buildRows(ev, recipients, log)
	result.Written = e.persist(ctx, ev.Type, rows, log)

	scope := e.policy.ScopeFor(ev.Type)
	for _, recipient := range recipients {
		e.enqueue(ctx, e.renderer.Email(ev, recipient, scope), log)
	}

	e.publish(ctx, ev, recipients, result.Written, log)
	return result
}

// Welcome queues the first-registration email for user.
func (e *Engine) Welcome(ctx context.Context, user models.User) {
	e.enqueue(context.WithoutCancel(ctx), e.renderer.Welcome(user), e.log.With(zap.String("user_id", user.ID)))
}

func (e *Engine) buildRows(ev Event, recipients []models.User, log *zap.Logger) []models.Notification {
	title, message := e.renderer.Notification(ev)

	var metadata datatypes.JSON
	if data, err := json.Marshal(eventMetadata(ev)); err == nil {
		metadata = datatypes.JSON(data)
	} else {
		log.Warn("encode notification metadata", zap.Error(err))
	}

	var actorID, subjectID *string
	if ev.Actor.ID != "" {
		id := ev.Actor.ID
		actorID = &id
	}
	if ev.Subject.ID != "" {
		id := ev.Subject.ID
		subjectID = &id
	}

	rows := make([]models.Notification, 0, len(recipients))
	for _, recipient := range recipients {
		rows = append(rows, models.Notification{
			UserID:      recipient.ID,
			ActorID:     actorID,
			Type:        ev.Type,
			Title:       title,
			Message:     message,
			SubjectType: ev.Subject.Kind,
			SubjectID:   subjectID,
			Metadata:    metadata,
		})
	}
	return rows
}

// persist writes rows in batches, falling back to row-by-row inserts when a
// batch fails so one bad recipient does not cost the others their notification.
func (e *Engine) persist(ctx context.Context, eventType string, rows []models.Notification, log *zap.Logger) int {
	err := e.db.WithContext(ctx).CreateInBatches(&rows, insertBatchSize).Error
	if err == nil {
		metrics.NotificationsWritten.WithLabelValues(eventType, "ok").Add(float64(len(rows)))
		return len(rows)
	}
	log.Warn("batch notification insert failed, retrying individually", zap.Int("rows", len(rows)), zap.Error(err))

	written := 0
	for i := range rows {
		row := rows[i]
		row.ID = ""
		if err := e.db.WithContext(ctx).Create(&row).Error; err != nil {
			metrics.NotificationsWritten.WithLabelValues(eventType, "error").Inc()
			log.Error("write notification", zap.String("recipient_id", row.UserID), zap.Error(err))
			continue
		}
		metrics.NotificationsWritten.WithLabelValues(eventType, "ok").Inc()
		written++
	}
	return written
}

func (e *Engine) enqueue(ctx context.Context, msg mail.Message, log *zap.Logger) {
	if e.mailbox == nil {
		return
	}
	if err := e.mailbox.Enqueue(ctx, msg); err != nil {
		log.Debug("enqueue email", zap.Strings("to", msg.To), zap.Error(err))
	}
}

func (e *Engine) publish(ctx context.Context, ev Event, recipients []models.User, written int, log *zap.Logger) {
	ids := make([]string, 0, len(recipients))
	for _, recipient := range recipients {
		ids = append(ids, recipient.ID)
	}

	activity := events.Activity{
		Type:        ev.Type,
		ActorID:     ev.Actor.ID,
		SubjectType: ev.Subject.Kind,
		SubjectID:   ev.Subject.ID,
		Recipients:  ids,
		Notified:    written,
		OccurredAt:  e.now().UTC(),
	}
	if err := e.publisher.Publish(ctx, activity); err != nil {
		log.Warn("publish activity", zap.Error(err))
	}
}

func eventMetadata(ev Event) map[string]any {
	meta := map[string]any{
		"actorEmail": ev.Actor.Email,
	}
	if ev.Subject.Title != "" {
		meta["subjectTitle"] = ev.Subject.Title
	}
	if ev.Subject.Company != "" {
		meta["company"] = ev.Subject.Company
	}
	return meta
}
