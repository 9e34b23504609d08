package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sourcegraph/conc"
	"go.uber.org/zap"

	"github.com/insyd/insyd/pkg/logger"
	"github.com/insyd/insyd/pkg/mail"
	"github.com/insyd/insyd/pkg/metrics"
)

const (
	defaultWorkers    = 4
	defaultRetryDelay = 100 * time.Millisecond
	defaultRetryMax   = 5 * time.Second
)

// Dispatcher delivers queued email with a fixed pool of workers. Each message
// gets exactly one delivery attempt; failures are logged and counted.
type Dispatcher struct {
	mailer  mail.Mailer
	queue   Queue
	workers int
	log     *zap.Logger

	retryDelay time.Duration
	retryMax   time.Duration

	mu      sync.Mutex
	wg      conc.WaitGroup
	cancel  context.CancelFunc
	started bool
}

// DispatcherOption customises the Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithWorkers sets the number of concurrent delivery workers.
func WithWorkers(n int) DispatcherOption {
	return func(d *Dispatcher) {
		if n > 0 {
			d.workers = n
		}
	}
}

// WithRetryBackoff sets the initial and maximum wait after a failed dequeue.
func WithRetryBackoff(initial, ceiling time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		if initial > 0 {
			d.retryDelay = initial
		}
		if ceiling >= initial && ceiling > 0 {
			d.retryMax = ceiling
		}
	}
}

// WithDispatcherLogger overrides the dispatcher logger.
func WithDispatcherLogger(log *zap.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		if log != nil {
			d.log = log
		}
	}
}

// NewDispatcher constructs a Dispatcher. Call Start to begin delivering.
func NewDispatcher(mailer mail.Mailer, queue Queue, opts ...DispatcherOption) (*Dispatcher, error) {
	if mailer == nil {
		return nil, errors.New("notify: mailer is required")
	}
	if queue == nil {
		return nil, errors.New("notify: queue is required")
	}

	d := &Dispatcher{
		mailer:  mailer,
		queue:   queue,
		workers:    defaultWorkers,
		log:        logger.WithModule("mail-dispatch"),
		retryDelay: defaultRetryDelay,
		retryMax:   defaultRetryMax,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.retryMax < d.retryDelay {
		d.retryMax = d.retryDelay
	}
	return d, nil
}

// Start launches the worker pool. Workers stop when ctx ends or Stop is called.
func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.started {
		return
	}
	d.started = true

	ctx, d.cancel = context.WithCancel(ctx)
	for i := 0; i < d.workers; i++ {
		d.wg.Go(func() {
			d.work(ctx)
		})
	}
	d.log.Info("email dispatcher started", zap.Int("workers", d.workers))
}

// Enqueue hands msg to the queue without blocking. Rejected messages are
// dropped and logged.
func (d *Dispatcher) Enqueue(ctx context.Context, msg mail.Message) error {
	if err := d.queue.Enqueue(ctx, msg); err != nil {
		metrics.EmailDeliveries.WithLabelValues("dropped").Inc()
		d.log.Warn("email dropped", zap.Strings("to", msg.To), zap.String("subject", msg.Subject), zap.Error(err))
		return err
	}
	return nil
}

// Stop closes the queue, lets workers drain what is buffered, and cancels
// in-flight work if ctx expires first.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	started := d.started
	cancel := d.cancel
	d.mu.Unlock()

	if err := d.queue.Close(); err != nil {
		d.log.Warn("close email queue", zap.Error(err))
	}
	if !started {
		return nil
	}

	done := make(chan struct{})
	go func() {
		if recovered := d.wg.WaitAndRecover(); recovered != nil {
			d.log.Error("email worker panicked", zap.String("panic", recovered.String()))
		}
		close(done)
	}()

	select {
	case <-done:
		cancel()
		return nil
	case <-ctx.Done():
		cancel()
		<-done
		return fmt.Errorf("notify: dispatcher drain: %w", ctx.Err())
	}
}

func (d *Dispatcher) work(ctx context.Context) {
	backoff := d.retryDelay
	for {
		msg, err := d.queue.Dequeue(ctx)
		if err != nil {
			if errors.Is(err, ErrQueueClosed) || ctx.Err() != nil {
				return
			}
			d.log.Warn("dequeue email", zap.Duration("retry_in", backoff), zap.Error(err))

			timer := time.NewTimer(backoff)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return
			}
			backoff = min(backoff*2, d.retryMax)
			continue
		}
		backoff = d.retryDelay
		d.deliver(ctx, msg)
	}
}

func (d *Dispatcher) deliver(ctx context.Context, msg mail.Message) {
	defer func() {
		if r := recover(); r != nil {
			metrics.EmailDeliveries.WithLabelValues("failed").Inc()
			d.log.Error("email delivery panicked", zap.Strings("to", msg.To), zap.Any("panic", r))
		}
	}()

	err := d.mailer.Send(ctx, msg)
	switch {
	case err == nil:
		metrics.EmailDeliveries.WithLabelValues("sent").Inc()
		d.log.Debug("email sent", zap.Strings("to", msg.To), zap.String("subject", msg.Subject))
	case errors.Is(err, mail.ErrSMTPDisabled):
		metrics.EmailDeliveries.WithLabelValues("disabled").Inc()
		d.log.Debug("email skipped, smtp disabled", zap.Strings("to", msg.To), zap.String("subject", msg.Subject))
	default:
		metrics.EmailDeliveries.WithLabelValues("failed").Inc()
		d.log.Warn("email delivery failed", zap.Strings("to", msg.To), zap.String("subject", msg.Subject), zap.Error(err))
	}
}
