package cache

import (
	"context"
	"time"
)

// Store represents the shared counter cache used by rate limiting.
type Store interface {
	IncrementWithTTL(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
}

// ListStore is a FIFO list keyed by name, used as a durable work queue.
type ListStore interface {
	Push(ctx context.Context, key string, payload []byte) error
	PopBlocking(ctx context.Context, key string, wait time.Duration) ([]byte, bool, error)
	Len(ctx context.Context, key string) (int64, error)
}
