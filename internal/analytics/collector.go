package analytics

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/word-finder/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/word-finder/pkg/resilience"
)

// Publisher writes a batch of events. *kafka.Producer implements it.
type Publisher interface {
	PublishBatch(ctx context.Context, events []kafka.Event) error
}

// CollectorConfig sizes the collector. Zero values take defaults.
type CollectorConfig struct {
	BufferSize    int
	BatchSize     int
	FlushInterval time.Duration
	// OnDrop is called for every event lost to a full buffer or a failed
	// publish.
	OnDrop  func(n int)
	Breaker *resilience.CircuitBreaker
}

// Collector buffers FindEvents and publishes them in batches from one
// background goroutine. Track never blocks the request path.
type Collector struct {
	publisher Publisher
	cfg       CollectorConfig
	breaker   *resilience.CircuitBreaker
	eventCh   chan FindEvent
	done      chan struct{}
	logger    *slog.Logger

	mu     sync.RWMutex
	closed bool
}

func NewCollector(publisher Publisher, cfg CollectorConfig) *Collector {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 10000
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = time.Second
	}
	breaker := cfg.Breaker
	if breaker == nil {
		breaker = resilience.NewCircuitBreaker("analytics-publish", resilience.CircuitBreakerConfig{})
	}
	return &Collector{
		publisher: publisher,
		cfg:       cfg,
		breaker:   breaker,
		eventCh:   make(chan FindEvent, cfg.BufferSize),
		done:      make(chan struct{}),
		logger:    slog.Default().With("component", "analytics-collector"),
	}
}

// Start launches the publish loop. It stops when Close is called; ctx only
// bounds individual publishes.
func (c *Collector) Start(ctx context.Context) {
	go c.loop(ctx)
	c.logger.Info("analytics collector started",
		"buffer_size", c.cfg.BufferSize,
		"batch_size", c.cfg.BatchSize,
		"flush_interval", c.cfg.FlushInterval,
	)
}

// Track queues event for publishing, dropping it when the buffer is full or
// the collector is closed.
func (c *Collector) Track(event FindEvent) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		c.drop(1)
		return
	}
	if event.Type == "" {
		event.Type = EventFind
	}
	select {
	case c.eventCh <- event:
	default:
		c.drop(1)
		c.logger.Warn("analytics event dropped (buffer full)")
	}
}

// Close stops accepting events, publishes what is buffered and waits for the
// loop to exit. Start must have been called.
func (c *Collector) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.eventCh)
	c.mu.Unlock()
	<-c.done
}

func (c *Collector) loop(ctx context.Context) {
	defer close(c.done)
	ticker := time.NewTicker(c.cfg.FlushInterval)
	defer ticker.Stop()

	batch := make([]kafka.Event, 0, c.cfg.BatchSize)
	for {
		select {
		case event, ok := <-c.eventCh:
			if !ok {
				flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
				c.flush(flushCtx, batch)
				cancel()
				return
			}
			batch = append(batch, kafka.Event{Key: event.Strategy, Value: event})
			if len(batch) >= c.cfg.BatchSize {
				c.flush(ctx, batch)
				batch = make([]kafka.Event, 0, c.cfg.BatchSize)
			}
		case <-ticker.C:
			if len(batch) > 0 {
				c.flush(ctx, batch)
				batch = make([]kafka.Event, 0, c.cfg.BatchSize)
			}
		}
	}
}

func (c *Collector) flush(ctx context.Context, batch []kafka.Event) {
	if len(batch) == 0 {
		return
	}
	err := c.breaker.Execute(func() error {
		return c.publisher.PublishBatch(ctx, batch)
	})
	if err != nil {
		c.drop(len(batch))
		c.logger.Error("failed to publish analytics batch", "count", len(batch), "error", err)
		return
	}
	c.logger.Debug("analytics batch published", "count", len(batch))
}

func (c *Collector) drop(n int) {
	if c.cfg.OnDrop != nil {
		c.cfg.OnDrop(n)
	}
}
