package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/insyd/insyd/internal/cache"
	"github.com/insyd/insyd/pkg/mail"
	"github.com/insyd/insyd/pkg/metrics"
)

var (
	// ErrQueueFull reports that a message was rejected because the buffer is full.
	ErrQueueFull = errors.New("notify: email queue full")
	// ErrQueueClosed reports that the queue no longer accepts or yields work.
	ErrQueueClosed = errors.New("notify: email queue closed")
)

// Queue buffers outbound email between fan-out and delivery workers.
type Queue interface {
	// Enqueue must not block the caller.
	Enqueue(ctx context.Context, msg mail.Message) error
	// Dequeue blocks until a message is available, the queue is closed, or ctx ends.
	Dequeue(ctx context.Context) (mail.Message, error)
	Close() error
}

// MemoryQueue is a bounded in-process queue. Messages still buffered when the
// process exits are lost.
type MemoryQueue struct {
	mu     sync.RWMutex
	ch     chan mail.Message
	closed bool
}

// NewMemoryQueue builds a queue holding at most size messages.
func NewMemoryQueue(size int) *MemoryQueue {
	if size <= 0 {
		size = 256
	}
	return &MemoryQueue{ch: make(chan mail.Message, size)}
}

func (q *MemoryQueue) Enqueue(_ context.Context, msg mail.Message) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return ErrQueueClosed
	}
	select {
	case q.ch <- msg:
		metrics.EmailQueueDepth.Inc()
		return nil
	default:
		return ErrQueueFull
	}
}

func (q *MemoryQueue) Dequeue(ctx context.Context) (mail.Message, error) {
	select {
	case msg, ok := <-q.ch:
		if !ok {
			return mail.Message{}, ErrQueueClosed
		}
		metrics.EmailQueueDepth.Dec()
		return msg, nil
	case <-ctx.Done():
		return mail.Message{}, ctx.Err()
	}
}

// Close stops intake. Buffered messages remain available to Dequeue.
func (q *MemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.closed {
		q.closed = true
		close(q.ch)
	}
	return nil
}

// Len reports the number of buffered messages.
func (q *MemoryQueue) Len() int {
	return len(q.ch)
}

// RedisQueue stores messages in a Redis list so they survive restarts and can
// be drained by any instance.
type RedisQueue struct {
	store  cache.ListStore
	key    string
	poll   time.Duration
	closed atomic.Bool
}

// NewRedisQueue builds a queue over the list stored at key.
func NewRedisQueue(store cache.ListStore, key string) *RedisQueue {
	if key == "" {
		key = "email:queue"
	}
	return &RedisQueue{store: store, key: key, poll: time.Second}
}

func (q *RedisQueue) Enqueue(ctx context.Context, msg mail.Message) error {
	if q.closed.Load() {
		return ErrQueueClosed
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("notify: encode email: %w", err)
	}
	return q.store.Push(ctx, q.key, payload)
}

func (q *RedisQueue) Dequeue(ctx context.Context) (mail.Message, error) {
	for {
		if q.closed.Load() {
			return mail.Message{}, ErrQueueClosed
		}
		if err := ctx.Err(); err != nil {
			return mail.Message{}, err
		}

		payload, ok, err := q.store.PopBlocking(ctx, q.key, q.poll)
		if err != nil {
			if ctx.Err() != nil {
				return mail.Message{}, ctx.Err()
			}
			return mail.Message{}, err
		}
		if !ok {
			continue
		}

		var msg mail.Message
		if err := json.Unmarshal(payload, &msg); err != nil {
			return mail.Message{}, fmt.Errorf("notify: decode email: %w", err)
		}
		return msg, nil
	}
}

// Close stops intake and hands-off. Undelivered messages stay in Redis.
func (q *RedisQueue) Close() error {
	q.closed.Store(true)
	return nil
}
