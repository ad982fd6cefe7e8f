package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/word-finder/pkg/proto"
)

type loadtestOptions struct {
	url         string
	grid        string
	words       []string
	strategies  []string
	concurrency int
	duration    time.Duration
}

// loadStats is safe for concurrent record calls.
type loadStats struct {
	total     atomic.Int64
	success   atomic.Int64
	failed    atomic.Int64
	mu        sync.Mutex
	latencies []time.Duration
	codes     map[int]int64
}

func newLoadStats() *loadStats {
	return &loadStats{
		latencies: make([]time.Duration, 0, 4096),
		codes:     make(map[int]int64),
	}
}

func (s *loadStats) record(latency time.Duration, status int, err error) {
	s.total.Add(1)
	if err != nil {
		s.failed.Add(1)
		return
	}
	if status >= 200 && status < 300 {
		s.success.Add(1)
	} else {
		s.failed.Add(1)
	}
	s.mu.Lock()
	s.latencies = append(s.latencies, latency)
	s.codes[status]++
	s.mu.Unlock()
}

func newLoadtestCmd() *cobra.Command {
	var opts loadtestOptions

	cmd := &cobra.Command{
		Use:   "loadtest",
		Short: "Drive a running finder service with concurrent find requests",
		Long: `Loadtest posts the same grid to /api/v1/find from several workers for a
fixed duration, rotating through the given strategies, and reports
throughput, latency percentiles and status codes.

Examples:
  wordfind loadtest --grid grid.txt --words sol,maxi --duration 10s
  wordfind loadtest --grid grid.txt --words sol --strategies index --concurrency 32`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rows, err := readFields(cmd.InOrStdin(), opts.grid)
			if err != nil {
				return fmt.Errorf("reading grid: %w", err)
			}
			if len(opts.words) == 0 {
				return errors.New("no words given (use --words)")
			}
			if opts.concurrency < 1 {
				return fmt.Errorf("concurrency must be positive, got %d", opts.concurrency)
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), opts.duration)
			defer cancel()
			client := &http.Client{
				Timeout: 10 * time.Second,
				Transport: &http.Transport{
					MaxIdleConns:        opts.concurrency * 2,
					MaxIdleConnsPerHost: opts.concurrency * 2,
					IdleConnTimeout:     90 * time.Second,
				},
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "target=%s concurrency=%d duration=%s strategies=%v\n",
				opts.url, opts.concurrency, opts.duration, opts.strategies)

			start := time.Now()
			stats := runLoad(ctx, client, opts, rows)
			report(out, stats, time.Since(start))
			if stats.total.Load() == 0 {
				return errors.New("no requests completed; is the service running?")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.url, "url", "http://localhost:8080", "Base URL of the finder service")
	cmd.Flags().StringVarP(&opts.grid, "grid", "g", "", "Grid file, one row per line (- for stdin)")
	cmd.Flags().StringSliceVarP(&opts.words, "words", "w", nil, "Comma-separated words to search for")
	cmd.Flags().StringSliceVar(&opts.strategies, "strategies", []string{"recursive", "range", "index"}, "Strategies to rotate through")
	cmd.Flags().IntVarP(&opts.concurrency, "concurrency", "c", 10, "Number of concurrent workers")
	cmd.Flags().DurationVarP(&opts.duration, "duration", "d", 30*time.Second, "Test duration")
	_ = cmd.MarkFlagRequired("grid")

	return cmd
}

// runLoad sends requests until ctx ends. Requests cut short by ctx are not
// counted.
func runLoad(ctx context.Context, client *http.Client, opts loadtestOptions, rows []string) *loadStats {
	stats := newLoadStats()
	bodies := make([][]byte, 0, len(opts.strategies))
	for _, strategy := range opts.strategies {
		body, _ := json.Marshal(proto.FindRequest{Matrix: rows, Wordstream: opts.words, Strategy: strategy})
		bodies = append(bodies, body)
	}
	if len(bodies) == 0 {
		body, _ := json.Marshal(proto.FindRequest{Matrix: rows, Wordstream: opts.words})
		bodies = append(bodies, body)
	}

	var wg sync.WaitGroup
	for w := 0; w < opts.concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := w; ctx.Err() == nil; i++ {
				req, err := http.NewRequestWithContext(ctx, http.MethodPost,
					opts.url+"/api/v1/find", bytes.NewReader(bodies[i%len(bodies)]))
				if err != nil {
					stats.record(0, 0, err)
					return
				}
				req.Header.Set("Content-Type", "application/json")

				start := time.Now()
				resp, err := client.Do(req)
				latency := time.Since(start)
				if err != nil {
					if ctx.Err() == nil {
						stats.record(latency, 0, err)
					}
					continue
				}
				io.Copy(io.Discard, resp.Body)
				resp.Body.Close()
				stats.record(latency, resp.StatusCode, nil)
			}
		}()
	}
	wg.Wait()
	return stats
}

func report(w io.Writer, stats *loadStats, elapsed time.Duration) {
	total := stats.total.Load()
	failed := stats.failed.Load()
	fmt.Fprintf(w, "requests=%d success=%d failed=%d", total, stats.success.Load(), failed)
	if total > 0 && elapsed > 0 {
		fmt.Fprintf(w, " error_rate=%.2f%% rps=%.2f", float64(failed)/float64(total)*100, float64(total)/elapsed.Seconds())
	}
	fmt.Fprintln(w)

	stats.mu.Lock()
	latencies := slices.Clone(stats.latencies)
	codes := make([]int, 0, len(stats.codes))
	for code := range stats.codes {
		codes = append(codes, code)
	}
	counts := make(map[int]int64, len(stats.codes))
	for code, n := range stats.codes {
		counts[code] = n
	}
	stats.mu.Unlock()

	if len(latencies) > 0 {
		slices.Sort(latencies)
		var sum time.Duration
		for _, l := range latencies {
			sum += l
		}
		avg := sum / time.Duration(len(latencies))
		var sq float64
		for _, l := range latencies {
			d := float64(l - avg)
			sq += d * d
		}
		fmt.Fprintf(w, "latency min=%s avg=%s p50=%s p90=%s p95=%s p99=%s max=%s stddev=%s\n",
			latencies[0], avg,
			percentile(latencies, 50), percentile(latencies, 90),
			percentile(latencies, 95), percentile(latencies, 99),
			latencies[len(latencies)-1],
			time.Duration(math.Sqrt(sq/float64(len(latencies)))),
		)
	}

	slices.Sort(codes)
	for _, code := range codes {
		fmt.Fprintf(w, "status %d: %d\n", code, counts[code])
	}
}

// percentile uses the nearest-rank method on sorted.
func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	return sorted[max(0, min(idx, len(sorted)-1))]
}
