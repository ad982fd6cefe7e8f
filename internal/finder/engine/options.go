package engine

import (
	"fmt"
	"log/slog"

	"github.com/panjf2000/ants/v2"
)

const (
	DefaultMaxDimension = 64
	DefaultWorkers      = 4
)

// Option configures an Engine.
type Option func(*Engine) error

// WithMaxDimension sets the largest accepted row count and row length.
// Default is DefaultMaxDimension.
func WithMaxDimension(n int) Option {
	return func(e *Engine) error {
		if n < 1 {
			return fmt.Errorf("max dimension must be positive, got %d", n)
		}
		e.maxDimension = n
		return nil
	}
}

// WithWorkers sets the width of the engine's own worker pool and the number
// of shards used to build the position index. Default is DefaultWorkers.
func WithWorkers(n int) Option {
	return func(e *Engine) error {
		if n < 1 {
			return fmt.Errorf("workers must be positive, got %d", n)
		}
		e.workers = n
		return nil
	}
}

// WithPool runs search tasks on a pool owned by the caller. The engine will
// not release it.
func WithPool(pool *ants.Pool) Option {
	return func(e *Engine) error {
		if pool == nil {
			return fmt.Errorf("pool is nil")
		}
		e.pool = pool
		e.ownsPool = false
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default() tagged with the engine component.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) error {
		if logger == nil {
			logger = slog.Default()
		}
		e.logger = logger
		return nil
	}
}
