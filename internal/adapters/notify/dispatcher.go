package notify

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"velvetden/internal/domain"
)

const defaultDeliverTimeout = 30 * time.Second

// Dispatcher is a Notifier that hands notifications to a sink on a background worker.
// Notify never blocks: when the queue is full the notification is dropped and logged.
type Dispatcher struct {
	sink    domain.NotificationSink
	logger  *slog.Logger
	queue   chan domain.Notification
	timeout time.Duration

	closeOnce sync.Once
	stopped   atomic.Bool
	quit      chan struct{}
	done      chan struct{}
}

// NewDispatcher creates a Dispatcher with a queue of the given size. Call Start to run the worker.
func NewDispatcher(sink domain.NotificationSink, queueSize int, logger *slog.Logger) *Dispatcher {
	if queueSize <= 0 {
		queueSize = 100
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		sink:    sink,
		logger:  logger,
		queue:   make(chan domain.Notification, queueSize),
		timeout: defaultDeliverTimeout,
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Start runs the delivery worker until Close is called.
func (d *Dispatcher) Start() {
	go func() {
		defer close(d.done)
		for {
			select {
			case n := <-d.queue:
				d.deliver(n)
			case <-d.quit:
				d.drain()
				return
			}
		}
	}()
}

// drain delivers whatever is still queued when Close is called.
func (d *Dispatcher) drain() {
	for {
		select {
		case n := <-d.queue:
			d.deliver(n)
		default:
			return
		}
	}
}

func (d *Dispatcher) deliver(n domain.Notification) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("notification sink panicked", "kind", n.Kind, "user_id", n.User.ID, "panic", r)
		}
	}()
	if err := d.sink.Deliver(ctx, n); err != nil {
		d.logger.Error("notification delivery failed", "kind", n.Kind, "user_id", n.User.ID, "err", err)
		return
	}
	d.logger.Debug("notification delivered", "kind", n.Kind, "user_id", n.User.ID)
}

// Notify queues n for delivery. After Close it logs and drops n. The queue
// channel is never closed.
func (d *Dispatcher) Notify(n domain.Notification) {
	if d.stopped.Load() {
		d.logger.Warn("dispatcher closed, dropping notification", "kind", n.Kind, "user_id", n.User.ID)
		return
	}
	select {
	case d.queue <- n:
	default:
		d.logger.Warn("notification queue full, dropping", "kind", n.Kind, "user_id", n.User.ID)
	}
}

// Close stops accepting work, drains the queue and waits for the worker or ctx.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.closeOnce.Do(func() {
		d.stopped.Store(true)
		close(d.quit)
	})
	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
