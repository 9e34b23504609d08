// Package events publishes activity records describing completed fan-outs to
// downstream consumers. Publishing is best-effort and never blocks a request.
package events

import (
	"context"
	"time"
)

// Activity describes one fan-out: who acted, on what, and who was told.
type Activity struct {
	Type        string    `json:"type"`
	ActorID     string    `json:"actorId"`
	SubjectType string    `json:"subjectType,omitempty"`
	SubjectID   string    `json:"subjectId,omitempty"`
	Recipients  []string  `json:"recipients"`
	Notified    int       `json:"notified"`
	OccurredAt  time.Time `json:"occurredAt"`
}

// Publisher emits activity records.
type Publisher interface {
	Publish(ctx context.Context, activity Activity) error
	Close() error
}

// NoopPublisher discards every activity.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, Activity) error { return nil }

func (NoopPublisher) Close() error { return nil }
