package notify

import (
	"context"
	"sync"
	"time"

	"github.com/cortexbuild/cortex/internal/logging"
)

// DefaultQueueSize bounds the Async backlog.
const DefaultQueueSize = 256

// AsyncOption configures an Async notifier.
type AsyncOption func(*asyncConfig)

type asyncConfig struct {
	queueSize int
	timeout   time.Duration
	onDropped func(count int)
	onError   func(err error)
}

// WithQueueSize sets the maximum number of queued batches.
func WithQueueSize(size int) AsyncOption {
	return func(c *asyncConfig) {
		if size > 0 {
			c.queueSize = size
		}
	}
}

// WithDeliveryTimeout bounds each delivery to the inner notifier.
func WithDeliveryTimeout(d time.Duration) AsyncOption {
	return func(c *asyncConfig) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithOnDropped is called when a batch is dropped because the queue is full.
func WithOnDropped(fn func(count int)) AsyncOption {
	return func(c *asyncConfig) { c.onDropped = fn }
}

// WithOnError is called when the inner notifier fails.
func WithOnError(fn func(err error)) AsyncOption {
	return func(c *asyncConfig) { c.onError = fn }
}

// Async queues notification batches and delivers them in the background.
// Notify never blocks; when the queue is full the oldest batch is dropped.
type Async struct {
	inner     Notifier
	queue     chan []Notification
	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
	mu        sync.Mutex
	closed    bool
	cfg       asyncConfig
	logger    *logging.Logger
}

// NewAsync wraps inner with a bounded queue.
func NewAsync(inner Notifier, opts ...AsyncOption) *Async {
	cfg := asyncConfig{queueSize: DefaultQueueSize, timeout: 10 * time.Second}
	for _, opt := range opts {
		opt(&cfg)
	}

	a := &Async{
		inner:  inner,
		queue:  make(chan []Notification, cfg.queueSize),
		done:   make(chan struct{}),
		cfg:    cfg,
		logger: logging.GetLogger("notify.async"),
	}
	a.wg.Add(1)
	go a.loop()
	return a
}

func (a *Async) loop() {
	defer a.wg.Done()
	for {
		select {
		case batch := <-a.queue:
			a.deliver(batch)
		case <-a.done:
			for {
				select {
				case batch := <-a.queue:
					a.deliver(batch)
				default:
					return
				}
			}
		}
	}
}

func (a *Async) deliver(batch []Notification) {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.timeout)
	defer cancel()
	if err := a.inner.Notify(ctx, batch); err != nil {
		a.logger.Warn("notification delivery failed: %v", err)
		if a.cfg.onError != nil {
			a.cfg.onError(err)
		}
	}
}

// Notify enqueues notifications and returns immediately. The caller's
// context does not bound delivery.
func (a *Async) Notify(_ context.Context, notifications []Notification) error {
	if len(notifications) == 0 {
		return nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return ErrClosed
	}

	batch := make([]Notification, len(notifications))
	copy(batch, notifications)

	select {
	case a.queue <- batch:
		return nil
	default:
	}

	select {
	case <-a.queue:
		a.dropped()
	default:
	}
	select {
	case a.queue <- batch:
	default:
		a.dropped()
	}
	return nil
}

func (a *Async) dropped() {
	a.logger.Warn("notification queue full, dropping oldest batch")
	if a.cfg.onDropped != nil {
		a.cfg.onDropped(1)
	}
}

// Close drains queued batches and closes the inner notifier.
func (a *Async) Close() error {
	a.closeOnce.Do(func() {
		a.mu.Lock()
		a.closed = true
		a.mu.Unlock()

		close(a.done)
		a.wg.Wait()
	})
	return a.inner.Close()
}
