package coalesce

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/word-finder/internal/finder/engine"
)

func TestKeyDistinguishesInputs(t *testing.T) {
	base := Key([]string{"ab", "cd"}, []string{"a"}, engine.Range, 64)
	assert.Len(t, base, 32)
	assert.Equal(t, base, Key([]string{"ab", "cd"}, []string{"a"}, engine.Range, 64))

	others := []string{
		Key([]string{"a", "bcd"}, []string{"a"}, engine.Range, 64),
		Key([]string{"ab", "cd"}, []string{"a"}, engine.Index, 64),
		Key([]string{"ab", "cd"}, []string{"a"}, engine.Range, 32),
		Key([]string{"ab", "cd"}, []string{"a", "a"}, engine.Range, 64),
		Key([]string{"ab"}, []string{"cd", "a"}, engine.Range, 64),
	}
	for i, k := range others {
		assert.NotEqual(t, base, k, "case %d", i)
	}
}

func TestDoSharesConcurrentRuns(t *testing.T) {
	g := New()
	var runs atomic.Int32
	release := make(chan struct{})

	const callers = 5
	var wg sync.WaitGroup
	results := make([]Result, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, _, err := g.Do(context.Background(), "k", func() (Result, error) {
				runs.Add(1)
				<-release
				return Result{Words: []string{"sol", "maxi"}}, nil
			})
			assert.NoError(t, err)
			results[i] = res
		}()
	}

	assert.Eventually(t, func() bool { calls, _ := g.Counts(); return calls == callers }, time.Second, time.Millisecond)
	// Let the last callers reach DoChan before the run finishes.
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), runs.Load())
	for _, res := range results {
		assert.Equal(t, []string{"sol", "maxi"}, res.Words)
	}
	results[0].Words[0] = "mutated"
	assert.Equal(t, "sol", results[1].Words[0], "callers get independent slices")
	_, shared := g.Counts()
	assert.Equal(t, int64(callers), shared)
}

func TestDoDoesNotRemember(t *testing.T) {
	g := New()
	var runs int
	fn := func() (Result, error) {
		runs++
		return Result{Words: []string{"x"}}, nil
	}
	for i := 0; i < 3; i++ {
		_, shared, err := g.Do(context.Background(), "k", fn)
		require.NoError(t, err)
		assert.False(t, shared)
	}
	assert.Equal(t, 3, runs)
}

func TestDoPropagatesError(t *testing.T) {
	g := New()
	boom := errors.New("boom")
	_, _, err := g.Do(context.Background(), "k", func() (Result, error) { return Result{}, boom })
	assert.ErrorIs(t, err, boom)
}

func TestDoStopsWaitingOnCancel(t *testing.T) {
	g := New()
	release := make(chan struct{})
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, _, err := g.Do(ctx, "slow", func() (Result, error) {
		<-release
		return Result{}, nil
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
