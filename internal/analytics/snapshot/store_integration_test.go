//go:build integration

package snapshot

import (
	"context"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/word-finder/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/word-finder/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/word-finder/pkg/postgres"
)

// Run with:
//
//	go test -tags=integration ./internal/analytics/snapshot/...

func skipIfNoPostgres(t *testing.T) *postgres.Client {
	t.Helper()
	port, _ := strconv.Atoi(envOrDefault("TEST_POSTGRES_PORT", "5432"))
	db, err := postgres.New(config.PostgresConfig{
		Host:            envOrDefault("TEST_POSTGRES_HOST", "localhost"),
		Port:            port,
		Database:        envOrDefault("TEST_POSTGRES_DB", "wordfinder_test"),
		User:            envOrDefault("TEST_POSTGRES_USER", "wordfinder"),
		Password:        envOrDefault("TEST_POSTGRES_PASSWORD", "localdev"),
		SSLMode:         "disable",
		MaxOpenConns:    5,
		MaxIdleConns:    2,
		ConnMaxLifetime: 5 * time.Minute,
	})
	if err != nil {
		t.Skipf("skipping integration test: postgres unavailable: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func TestStoreRoundTrip(t *testing.T) {
	db := skipIfNoPostgres(t)
	ctx := context.Background()
	store := NewStore(db)
	require.NoError(t, store.EnsureSchema(ctx))
	require.NoError(t, store.EnsureSchema(ctx), "schema creation is idempotent")
	_, err := db.DB.ExecContext(ctx, `TRUNCATE find_stats_snapshots`)
	require.NoError(t, err)

	latest, err := store.Latest(ctx)
	require.NoError(t, err)
	assert.Nil(t, latest)

	for i := 1; i <= 3; i++ {
		require.NoError(t, store.Save(ctx, analytics.Stats{
			TotalFinds: int64(i),
			ByStrategy: map[string]int64{"range": int64(i)},
			TopWords:   []analytics.WordCount{{Word: "sol", Count: int64(i)}},
		}))
		time.Sleep(5 * time.Millisecond)
	}

	latest, err = store.Latest(ctx)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, int64(3), latest.Stats.TotalFinds)
	assert.Equal(t, "sol", latest.Stats.TopWords[0].Word)

	list, err := store.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, int64(3), list[0].Stats.TotalFinds)
	assert.Equal(t, int64(2), list[1].Stats.TotalFinds)
}
