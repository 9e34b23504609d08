// Package notify turns domain events into inbox rows and best-effort email.
//
// The engine computes an audience for every event, writes one notification per
// recipient, enqueues one email per recipient and emits an activity record.
// None of these side effects report failure to the caller: the triggering
// mutation has already committed and is reported as successful regardless.
package notify

import "github.com/insyd/insyd/internal/models"

// Subject identifies the content or user an event is about.
type Subject struct {
	Kind    string
	ID      string
	Title   string
	Company string
	Content string
}

// Event is a single fan-out trigger.
type Event struct {
	Type    string
	Actor   models.User
	Subject Subject

	// Counterparty receives interaction events (like, application, follow).
	Counterparty *models.User
	// Recipients is the explicit audience for removal notices.
	Recipients []models.User
}

// Result summarises a fan-out.
type Result struct {
	Audience int
	Written  int
}
