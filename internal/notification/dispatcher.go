package notification

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	DefaultQueueSize   = 256
	DefaultSendTimeout = 5 * time.Second
)

// Dispatcher hands notifications to a Sender on a background worker so
// callers never wait on delivery. Failed deliveries are logged and dropped.
type Dispatcher struct {
	sender      Sender
	queue       chan Notification
	sendTimeout time.Duration
	logger      zerolog.Logger

	mu        sync.RWMutex
	closed    bool
	done      chan struct{}
	closeOnce sync.Once
	closeErr  error
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithQueueSize sets how many notifications may wait for delivery.
func WithQueueSize(n int) DispatcherOption {
	return func(d *Dispatcher) {
		if n > 0 {
			d.queue = make(chan Notification, n)
		}
	}
}

// WithSendTimeout bounds a single delivery attempt.
func WithSendTimeout(timeout time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		d.sendTimeout = timeout
	}
}

// NewDispatcher starts the delivery worker. Close must be called to stop it.
func NewDispatcher(sender Sender, logger zerolog.Logger, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		sender:      sender,
		queue:       make(chan Notification, DefaultQueueSize),
		sendTimeout: DefaultSendTimeout,
		logger:      logger.With().Str("component", "dispatcher").Logger(),
		done:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}

	go d.run()
	return d
}

// Dispatch queues n for delivery. It never blocks: when the queue is full
// or the dispatcher is closed the notification is dropped and false returned.
func (d *Dispatcher) Dispatch(n Notification) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.logger.Warn().Str("kind", string(n.Kind)).Msg("dispatcher closed, notification dropped")
		return false
	}

	select {
	case d.queue <- n:
		return true
	default:
		d.logger.Warn().Str("kind", string(n.Kind)).Str("key", n.Key()).Msg("notification queue full, notification dropped")
		return false
	}
}

// Close stops accepting notifications, delivers what is queued, then
// closes the sender. It returns early with ctx's error if ctx ends first.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.closeOnce.Do(func() {
		d.mu.Lock()
		d.closed = true
		close(d.queue)
		d.mu.Unlock()
	})

	select {
	case <-d.done:
	case <-ctx.Done():
		return ctx.Err()
	}

	return d.closeErr
}

func (d *Dispatcher) run() {
	defer close(d.done)

	for n := range d.queue {
		d.deliver(n)
	}

	if err := d.sender.Close(); err != nil {
		d.logger.Error().Err(err).Msg("failed to close notification sender")
		d.closeErr = err
	}
}

func (d *Dispatcher) deliver(n Notification) {
	ctx, cancel := context.WithTimeout(context.Background(), d.sendTimeout)
	defer cancel()

	if err := d.sender.Send(ctx, n); err != nil {
		d.logger.Error().Err(err).Str("kind", string(n.Kind)).Str("key", n.Key()).Msg("failed to deliver notification")
	}
}
