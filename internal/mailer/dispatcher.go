package mailer

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// DefaultSendTimeout bounds one delivery attempt made by a queue worker.
const DefaultSendTimeout = 30 * time.Second

var (
	ErrQueueFull   = errors.New("mail queue is full")
	ErrQueueClosed = errors.New("mail queue is closed")
)

// Dispatcher is an in-process Queue: a bounded channel drained by a fixed
// number of workers. Enqueue never blocks; when the buffer is full the
// message is dropped.
type Dispatcher struct {
	sender      Sender
	queue       chan Message
	workers     int
	sendTimeout time.Duration
	wg          sync.WaitGroup
	mu      sync.RWMutex
	closed  bool
}

func NewDispatcher(sender Sender, size int, workers int, sendTimeout time.Duration) *Dispatcher {
	if size <= 0 {
		size = 100
	}
	if workers <= 0 {
		workers = 1
	}
	if sendTimeout <= 0 {
		sendTimeout = DefaultSendTimeout
	}

	return &Dispatcher{
		sender:      sender,
		queue:       make(chan Message, size),
		workers:     workers,
		sendTimeout: sendTimeout,
	}
}

func (d *Dispatcher) Enqueue(ctx context.Context, msg Message) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return ErrQueueClosed
	}

	select {
	case d.queue <- msg:
		return nil
	default:
		slog.WarnContext(ctx, "mail queue full, dropping message", "kind", msg.Kind, "to", msg.To)
		return ErrQueueFull
	}
}

func (d *Dispatcher) Start(ctx context.Context) {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			d.run(ctx)
		}()
	}
}

// Close stops accepting work and waits for workers to drain the buffer.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	d.wg.Wait()
}

func (d *Dispatcher) run(ctx context.Context) {
	for msg := range d.queue {
		deliver(ctx, d.sender, msg, d.sendTimeout)
	}
}

// deliver sends once within timeout. Failures are logged and dropped, never
// retried. Shutdown does not cancel an attempt already in flight.
func deliver(ctx context.Context, sender Sender, msg Message, timeout time.Duration) {
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	if err := sender.Send(sendCtx, msg); err != nil {
		slog.ErrorContext(ctx, "mail delivery failed", "kind", msg.Kind, "to", msg.To, "error", err)
		return
	}
	slog.DebugContext(ctx, "mail delivered", "kind", msg.Kind, "to", msg.To)
}
