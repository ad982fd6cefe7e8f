package analytics

import (
	"cmp"
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/word-finder/pkg/kafka"
)

// latencyWindow is the number of most recent latencies kept for percentiles.
const latencyWindow = 10000

// Stats is a point-in-time view of the aggregated find events.
type Stats struct {
	TotalFinds      int64            `json:"total_finds"`
	ByStrategy      map[string]int64 `json:"by_strategy"`
	ByOutcome       map[string]int64 `json:"by_outcome"`
	ZeroResultFinds int64            `json:"zero_result_finds"`
	CoalescedFinds  int64            `json:"coalesced_finds"`
	TotalHits       int64            `json:"total_hits"`
	AvgLatencyMs    float64          `json:"avg_latency_ms"`
	P50LatencyMs    int64            `json:"p50_latency_ms"`
	P95LatencyMs    int64            `json:"p95_latency_ms"`
	P99LatencyMs    int64            `json:"p99_latency_ms"`
	TopWords        []WordCount      `json:"top_words"`
	FindsPerMinute  float64          `json:"finds_per_minute"`
	Since           time.Time        `json:"since"`
}

// Snapshot is one persisted Stats value.
type Snapshot struct {
	ID         int64     `json:"id"`
	CapturedAt time.Time `json:"captured_at"`
	Stats      Stats     `json:"stats"`
}

// WordCount is how many finds returned Word.
type WordCount struct {
	Word  string `json:"word"`
	Count int64  `json:"count"`
}

// Consumer feeds messages to a handler until ctx is done.
type Consumer interface {
	Start(ctx context.Context) error
}

// Aggregator keeps running totals over FindEvents.
type Aggregator struct {
	mu         sync.RWMutex
	total      int64
	zero       int64
	coalesced  int64
	hits       int64
	byStrategy map[string]int64
	byOutcome  map[string]int64
	wordCounts map[string]int64
	latencies  []int64
	next       int
	topWords   int
	startTime  time.Time
	now        func() time.Time
	logger     *slog.Logger
}

// NewAggregator returns an empty aggregator reporting topWords words.
func NewAggregator(topWords int) *Aggregator {
	if topWords <= 0 {
		topWords = 10
	}
	return &Aggregator{
		byStrategy: make(map[string]int64),
		byOutcome:  make(map[string]int64),
		wordCounts: make(map[string]int64),
		latencies:  make([]int64, 0, 1024),
		topWords:   topWords,
		startTime:  time.Now(),
		now:        time.Now,
		logger:     slog.Default().With("component", "analytics-aggregator"),
	}
}

// Run consumes events until ctx is cancelled.
func (a *Aggregator) Run(ctx context.Context, consumer Consumer) error {
	a.logger.Info("analytics aggregator starting")
	return consumer.Start(ctx)
}

// HandleEvent decodes Kafka messages into FindEvents. Undecodable messages
// are logged and skipped so they do not block the partition.
func (a *Aggregator) HandleEvent() kafka.MessageHandler {
	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := kafka.DecodeJSON[FindEvent](value)
		if err != nil {
			a.logger.Error("failed to decode analytics event", "key", string(key), "error", err)
			return nil
		}
		if event.Type != EventFind {
			a.logger.Debug("skipping analytics event", "type", event.Type)
			return nil
		}
		a.Record(event)
		return nil
	}
}

// Record adds one event to the totals.
func (a *Aggregator) Record(event FindEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.total++
	a.byStrategy[event.Strategy]++
	a.byOutcome[string(event.Outcome)]++
	if event.Outcome == OutcomeEmpty {
		a.zero++
	}
	if event.Coalesced {
		a.coalesced++
	}
	a.hits += int64(event.TotalHits)
	for _, w := range event.Found {
		a.wordCounts[w]++
	}

	if len(a.latencies) < latencyWindow {
		a.latencies = append(a.latencies, event.LatencyMs)
	} else {
		a.latencies[a.next] = event.LatencyMs
		a.next = (a.next + 1) % latencyWindow
	}
}

// Stats snapshots the current totals.
func (a *Aggregator) Stats() Stats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	stats := Stats{
		TotalFinds:      a.total,
		ByStrategy:      cloneCounts(a.byStrategy),
		ByOutcome:       cloneCounts(a.byOutcome),
		ZeroResultFinds: a.zero,
		CoalescedFinds:  a.coalesced,
		TotalHits:       a.hits,
		TopWords:        topN(a.wordCounts, a.topWords),
		Since:           a.startTime.UTC(),
	}
	if len(a.latencies) > 0 {
		sorted := slices.Clone(a.latencies)
		slices.Sort(sorted)
		var sum int64
		for _, l := range sorted {
			sum += l
		}
		stats.AvgLatencyMs = float64(sum) / float64(len(sorted))
		stats.P50LatencyMs = percentile(sorted, 50)
		stats.P95LatencyMs = percentile(sorted, 95)
		stats.P99LatencyMs = percentile(sorted, 99)
	}
	if elapsed := a.now().Sub(a.startTime).Minutes(); elapsed > 0 {
		stats.FindsPerMinute = float64(a.total) / elapsed
	}
	return stats
}

func percentile(sorted []int64, pct int) int64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (pct * len(sorted)) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// topN orders by count descending, then word ascending.
func topN(counts map[string]int64, n int) []WordCount {
	result := make([]WordCount, 0, len(counts))
	for word, count := range counts {
		result = append(result, WordCount{Word: word, Count: count})
	}
	slices.SortFunc(result, func(a, b WordCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Word, b.Word)
	})
	if len(result) > n {
		result = result[:n]
	}
	return result
}

func cloneCounts(m map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
