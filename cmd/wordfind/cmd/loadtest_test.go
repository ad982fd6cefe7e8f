package cmd

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/word-finder/pkg/proto"
)

func TestLoadtestCmd(t *testing.T) {
	var (
		mu         sync.Mutex
		strategies = make(map[string]int)
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/find", r.URL.Path)
		var req proto.FindRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		mu.Lock()
		strategies[req.Strategy]++
		mu.Unlock()
		if req.Strategy == "index" {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		json.NewEncoder(w).Encode(proto.FindResponse{Words: []string{"sol"}, Strategy: req.Strategy})
	}))
	defer srv.Close()

	out, _, err := execute(t, "", "loadtest",
		"--url", srv.URL,
		"--grid", "testdata/sample_grid.txt",
		"--words", "sol,maxi",
		"--strategies", "range,index",
		"--concurrency", "2",
		"--duration", "100ms",
	)
	require.NoError(t, err)
	assert.Contains(t, out, "requests=")
	assert.Contains(t, out, "status 200:")
	assert.Contains(t, out, "status 429:")

	mu.Lock()
	defer mu.Unlock()
	assert.Positive(t, strategies["range"])
	assert.Positive(t, strategies["index"])
}

func TestLoadtestCmdNoService(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	out, _, err := execute(t, "", "loadtest",
		"--url", url,
		"--grid", "testdata/sample_grid.txt",
		"--words", "sol",
		"--concurrency", "1",
		"--duration", "50ms",
	)
	assert.Contains(t, out, "failed=")
	if err != nil {
		assert.Contains(t, err.Error(), "no requests completed")
	}
}

func TestPercentile(t *testing.T) {
	sorted := []time.Duration{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	assert.Equal(t, time.Duration(5), percentile(sorted, 50))
	assert.Equal(t, time.Duration(10), percentile(sorted, 99))
	assert.Equal(t, time.Duration(1), percentile(sorted, 0))
	assert.Equal(t, time.Duration(0), percentile(nil, 50))
}

func TestLoadStatsRecord(t *testing.T) {
	s := newLoadStats()
	s.record(time.Millisecond, 200, nil)
	s.record(2*time.Millisecond, 504, nil)
	s.record(0, 0, assert.AnError)

	assert.Equal(t, int64(3), s.total.Load())
	assert.Equal(t, int64(1), s.success.Load())
	assert.Equal(t, int64(2), s.failed.Load())
	assert.Len(t, s.latencies, 2)
	assert.Equal(t, map[int]int64{200: 1, 504: 1}, s.codes)
}
