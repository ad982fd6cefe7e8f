// Package snapshot persists aggregated find statistics to PostgreSQL at a
// fixed interval so totals survive restarts of the finder service.
package snapshot

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/word-finder/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/word-finder/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/word-finder/pkg/resilience"
)

const schema = `
CREATE TABLE IF NOT EXISTS find_stats_snapshots (
    id          BIGSERIAL PRIMARY KEY,
    total_finds BIGINT      NOT NULL,
    data        JSONB       NOT NULL,
    captured_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS find_stats_snapshots_captured_at_idx
    ON find_stats_snapshots (captured_at DESC);`

// Source supplies the stats to persist. *analytics.Aggregator implements it.
type Source interface {
	Stats() analytics.Stats
}

// Store reads and writes find_stats_snapshots.
type Store struct {
	db     *postgres.Client
	retry  resilience.RetryConfig
	logger *slog.Logger
}

func NewStore(db *postgres.Client) *Store {
	return &Store{
		db: db,
		retry: resilience.RetryConfig{
			MaxAttempts:  3,
			InitialDelay: 200 * time.Millisecond,
		},
		logger: slog.Default().With("component", "analytics-store"),
	}
}

// EnsureSchema creates the snapshot table if it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	return s.db.InTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, schema); err != nil {
			return fmt.Errorf("creating snapshot schema: %w", err)
		}
		return nil
	})
}

// Save persists stats, retrying transient failures.
func (s *Store) Save(ctx context.Context, stats analytics.Stats) error {
	data, err := encode(stats)
	if err != nil {
		return err
	}
	err = resilience.Retry(ctx, "save-snapshot", s.retry, func() error {
		_, err := s.db.DB.ExecContext(ctx,
			`INSERT INTO find_stats_snapshots (total_finds, data, captured_at) VALUES ($1, $2, $3)`,
			stats.TotalFinds, data, time.Now().UTC(),
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("saving analytics snapshot: %w", err)
	}
	s.logger.Debug("analytics snapshot saved", "total_finds", stats.TotalFinds)
	return nil
}

// Latest returns the newest snapshot, or nil when none exists.
func (s *Store) Latest(ctx context.Context) (*analytics.Snapshot, error) {
	var (
		snap analytics.Snapshot
		data []byte
	)
	err := s.db.DB.QueryRowContext(ctx,
		`SELECT id, captured_at, data FROM find_stats_snapshots ORDER BY captured_at DESC LIMIT 1`,
	).Scan(&snap.ID, &snap.CapturedAt, &data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying latest snapshot: %w", err)
	}
	if snap.Stats, err = decode(data); err != nil {
		return nil, err
	}
	return &snap, nil
}

// List returns up to limit snapshots, newest first. Rows that fail to decode
// are skipped.
func (s *Store) List(ctx context.Context, limit int) ([]analytics.Snapshot, error) {
	rows, err := s.db.DB.QueryContext(ctx,
		`SELECT id, captured_at, data FROM find_stats_snapshots ORDER BY captured_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}
	defer rows.Close()

	snapshots := make([]analytics.Snapshot, 0, limit)
	for rows.Next() {
		var (
			snap analytics.Snapshot
			data []byte
		)
		if err := rows.Scan(&snap.ID, &snap.CapturedAt, &data); err != nil {
			return nil, fmt.Errorf("scanning snapshot row: %w", err)
		}
		if snap.Stats, err = decode(data); err != nil {
			s.logger.Warn("skipping corrupt snapshot", "id", snap.ID, "error", err)
			continue
		}
		snapshots = append(snapshots, snap)
	}
	return snapshots, rows.Err()
}

// StartPeriodic saves src every interval and once more when ctx is done.
// The returned channel is closed after the final save.
func (s *Store) StartPeriodic(ctx context.Context, src Source, interval time.Duration) <-chan struct{} {
	return runPeriodic(ctx, src, interval, s.Save, s.logger)
}

type saveFunc func(ctx context.Context, stats analytics.Stats) error

func runPeriodic(ctx context.Context, src Source, interval time.Duration, save saveFunc, logger *slog.Logger) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := save(ctx, src.Stats()); err != nil {
					logger.Error("periodic snapshot failed", "error", err)
				}
			case <-ctx.Done():
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				if err := save(shutdownCtx, src.Stats()); err != nil {
					logger.Error("final snapshot failed", "error", err)
				}
				cancel()
				return
			}
		}
	}()
	logger.Info("periodic snapshot started", "interval", interval)
	return done
}

func encode(stats analytics.Stats) ([]byte, error) {
	data, err := json.Marshal(stats)
	if err != nil {
		return nil, fmt.Errorf("marshaling stats: %w", err)
	}
	return data, nil
}

func decode(data []byte) (analytics.Stats, error) {
	var stats analytics.Stats
	if err := json.Unmarshal(data, &stats); err != nil {
		return stats, fmt.Errorf("unmarshaling snapshot: %w", err)
	}
	return stats, nil
}
