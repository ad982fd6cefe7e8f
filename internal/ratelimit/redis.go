package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

const keyPrefix = "ratelimit:find:"

// WindowCounter increments a counter that expires after window.
// *redis.Client from pkg/redis implements it.
type WindowCounter interface {
	IncrWindow(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
}

// RedisLimiter allows requests calls per fixed window per key, counted in
// Redis so every replica shares the budget.
type RedisLimiter struct {
	counter  WindowCounter
	requests int64
	window   time.Duration
	logger   *slog.Logger
}

func NewRedis(counter WindowCounter, requests int, window time.Duration) (*RedisLimiter, error) {
	if requests < 1 || window <= 0 {
		return nil, fmt.Errorf("invalid rate limit %d per %v", requests, window)
	}
	return &RedisLimiter{
		counter:  counter,
		requests: int64(requests),
		window:   window,
		logger:   slog.Default().With("component", "redis-rate-limiter"),
	}, nil
}

// Allow counts one request for key in the current window.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	n, ttl, err := l.counter.IncrWindow(ctx, keyPrefix+key, l.window)
	if err != nil {
		return false, fmt.Errorf("rate limit check for %s: %w", key, err)
	}
	if n > l.requests {
		l.logger.Debug("rate limit exceeded", "client", key, "count", n, "resets_in", ttl)
		return false, nil
	}
	return true, nil
}
