package telemetry

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/parakeetchat/parakeet/internal/log"
)

// Batcher defaults.
const (
	DefaultBatchSize     = 10
	DefaultFlushInterval = 5 * time.Second
	DefaultMaxBacklog    = 100
)

// ErrBatcherClosed indicates Track was called after Close.
var ErrBatcherClosed = errors.New("batcher closed")

// Sender delivers event batches. The HTTP implementation posts them to the
// gateway's events endpoint.
type Sender interface {
	Send(ctx context.Context, events []Event) error
}

// BatcherConfig configures a Batcher. Zero values take defaults.
type BatcherConfig struct {
	// BatchSize triggers an immediate flush when the queue reaches it.
	BatchSize int
	// FlushInterval is the periodic flush cadence.
	FlushInterval time.Duration
	// MaxBacklog caps queued events; beyond it the oldest are dropped.
	MaxBacklog int
	Logger     log.Logger
}

func (c *BatcherConfig) applyDefaults() {
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.FlushInterval <= 0 {
		c.FlushInterval = DefaultFlushInterval
	}
	if c.MaxBacklog <= 0 {
		c.MaxBacklog = DefaultMaxBacklog
	}
	if c.Logger == nil {
		c.Logger = log.NewNop()
	}
}

// Batcher queues events and delivers them in batches: when the queue
// reaches BatchSize, on every FlushInterval tick, and on Close.
//
// Delivery failures re-queue the batch at the front of the backlog so order
// is preserved; the backlog is capped at MaxBacklog with the oldest events
// dropped first. Telemetry is best-effort by design: a full backlog loses
// data rather than blocking the caller.
//
// Batcher is safe for concurrent use by multiple goroutines.
type Batcher struct {
	sender Sender
	cfg    BatcherConfig
	logger log.Logger

	mu     sync.Mutex
	queue  []Event
	closed bool

	kick chan struct{}
	stop chan struct{}
	done chan struct{}
}

// NewBatcher creates and starts a batcher.
func NewBatcher(sender Sender, cfg BatcherConfig) *Batcher {
	cfg.applyDefaults()

	b := &Batcher{
		sender: sender,
		cfg:    cfg,
		logger: cfg.Logger,
		kick:   make(chan struct{}, 1),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	go b.run()
	return b
}

// Track queues one event. It never blocks on delivery.
func (b *Batcher) Track(ev Event) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrBatcherClosed
	}
	if len(b.queue) >= b.cfg.MaxBacklog {
		dropped := len(b.queue) - b.cfg.MaxBacklog + 1
		b.queue = b.queue[dropped:]
		b.logger.Warn("telemetry backlog full, dropping oldest events", "dropped", dropped)
	}
	b.queue = append(b.queue, ev)
	full := len(b.queue) >= b.cfg.BatchSize
	b.mu.Unlock()

	if full {
		select {
		case b.kick <- struct{}{}:
		default:
		}
	}
	return nil
}

// Flush sends one pending batch synchronously. A failed send re-queues the
// batch at the front of the backlog.
func (b *Batcher) Flush(ctx context.Context) error {
	b.mu.Lock()
	if len(b.queue) == 0 {
		b.mu.Unlock()
		return nil
	}
	n := min(b.cfg.BatchSize, len(b.queue))
	batch := make([]Event, n)
	copy(batch, b.queue[:n])
	b.queue = b.queue[n:]
	b.mu.Unlock()

	if err := b.sender.Send(ctx, batch); err != nil {
		b.requeue(batch)
		return err
	}
	return nil
}

// drain flushes batch by batch until the backlog is empty or a send fails.
// A failed send stops the drain; the batch is already re-queued by Flush.
func (b *Batcher) drain(ctx context.Context) error {
	for {
		b.mu.Lock()
		pending := len(b.queue)
		b.mu.Unlock()
		if pending == 0 {
			return nil
		}
		if err := b.Flush(ctx); err != nil {
			return err
		}
	}
}

// requeue puts a failed batch back at the front of the backlog, dropping
// the oldest events when the cap is exceeded.
func (b *Batcher) requeue(batch []Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.queue = append(batch, b.queue...)
	if overflow := len(b.queue) - b.cfg.MaxBacklog; overflow > 0 {
		b.queue = b.queue[overflow:]
		b.logger.Warn("telemetry backlog full after failed send, dropping oldest events",
			"dropped", overflow)
	}
}

// Close drains the queue and stops the background flusher. Events that still
// fail to send on the final drain are lost.
func (b *Batcher) Close(ctx context.Context) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()

	close(b.stop)
	<-b.done

	// Final drain: one attempt per pending batch.
	if err := b.drain(ctx); err != nil {
		b.mu.Lock()
		lost := len(b.queue)
		b.queue = nil
		b.mu.Unlock()
		b.logger.Warn("discarding telemetry on close", "lost", lost, "error", err)
		return err
	}
	return nil
}

func (b *Batcher) run() {
	defer close(b.done)

	ticker := time.NewTicker(b.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			// A tick empties the whole backlog, not just one batch, so a
			// burst larger than BatchSize clears in one interval.
			if err := b.drain(context.Background()); err != nil {
				b.logger.Debug("periodic telemetry flush failed", "error", err)
			}
		case <-b.kick:
			if err := b.Flush(context.Background()); err != nil {
				b.logger.Debug("telemetry flush failed", "error", err)
			}
		case <-b.stop:
			return
		}
	}
}
