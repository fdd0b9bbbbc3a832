package notify

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

var (
	ErrQueueFull = errors.New("notify: queue full")
	ErrStopped   = errors.New("notify: dispatcher stopped")
)

const (
	DefaultWorkers     = 2
	DefaultQueueSize   = 256
	defaultSendTimeout = 30 * time.Second
)

// Dispatcher sends messages asynchronously through a bounded queue drained
// by a fixed pool of workers.
type Dispatcher struct {
	Notifier Notifier
	Logger   *slog.Logger
	Workers  int

	queue   chan Message
	wg      sync.WaitGroup
	mu      sync.RWMutex
	started bool
	stopped bool
}

// NewDispatcher creates a dispatcher. Non-positive sizes fall back to the
// defaults.
func NewDispatcher(n Notifier, logger *slog.Logger, workers, queueSize int) *Dispatcher {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Dispatcher{
		Notifier: n,
		Logger:   logger,
		Workers:  workers,
		queue:    make(chan Message, queueSize),
	}
}

// Start launches the workers. Calling it twice is a no-op.
func (d *Dispatcher) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started || d.stopped {
		return
	}
	d.started = true

	for i := 0; i < d.Workers; i++ {
		d.wg.Add(1)
		go d.work(i)
	}
	d.Logger.Info("notification dispatcher started", slog.Int("workers", d.Workers), slog.Int("queue_size", cap(d.queue)))
}

// Enqueue never blocks. It fails with ErrQueueFull when the queue is
// saturated and ErrStopped after Stop.
func (d *Dispatcher) Enqueue(msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.stopped {
		return ErrStopped
	}

	select {
	case d.queue <- msg:
		return nil
	default:
		return ErrQueueFull
	}
}

// Stop closes the queue and waits for the workers to drain it, or for ctx
// to expire.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return nil
	}
	d.stopped = true
	started := d.started
	close(d.queue)
	d.mu.Unlock()

	if !started {
		return nil
	}

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.Logger.Info("notification dispatcher stopped")
		return nil
	case <-ctx.Done():
		d.Logger.Warn("notification dispatcher stop timed out", slog.Int("pending", len(d.queue)))
		return ctx.Err()
	}
}

// Pending is the number of queued, unsent messages.
func (d *Dispatcher) Pending() int { return len(d.queue) }

func (d *Dispatcher) work(id int) {
	defer d.wg.Done()

	for msg := range d.queue {
		ctx, cancel := context.WithTimeout(context.Background(), defaultSendTimeout)
		err := d.Notifier.Send(ctx, msg)
		cancel()

		if err != nil {
			d.Logger.Error("notification send failed",
				slog.Int("worker", id),
				slog.String("to", msg.To),
				slog.String("kind", string(msg.Kind)),
				slog.Any("error", err),
			)
			continue
		}
		d.Logger.Debug("notification sent",
			slog.Int("worker", id),
			slog.String("to", msg.To),
			slog.String("kind", string(msg.Kind)),
		)
	}
}
