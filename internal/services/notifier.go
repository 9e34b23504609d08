package services

import (
	"context"

	"github.com/insyd/insyd/internal/models"
	"github.com/insyd/insyd/internal/notify"
)

// Notifier receives domain events after their mutation has committed.
// Implementations must not fail the caller; *notify.Engine is the production one.
type Notifier interface {
	Publish(ctx context.Context, ev notify.Event) notify.Result
	Welcome(ctx context.Context, user models.User)
}

type noopNotifier struct{}

func (noopNotifier) Publish(context.Context, notify.Event) notify.Result { return notify.Result{} }

func (noopNotifier) Welcome(context.Context, models.User) {}

func notifierOrNoop(n Notifier) Notifier {
	if n == nil {
		return noopNotifier{}
	}
	return n
}
