package checks

import (
	"context"
	"errors"

	"github.com/insyd/insyd/internal/monitoring"
)

// RedisPinger represents the minimal interface required to probe a redis connection.
type RedisPinger interface {
	Ping(ctx context.Context) error
}

// Redis returns an optional probe for the shared cache. Rate limiting and the
// email queue keep working (or fail open) without it, so an outage only degrades.
func Redis(client RedisPinger) monitoring.Check {
	return monitoring.Check{
		Name:  "redis",
		Probe: func(ctx context.Context) error {
			if client == nil {
				return errors.New("redis unavailable")
			}
			return client.Ping(ctx)
		},
	}
}
