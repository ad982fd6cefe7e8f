// Package engine runs word searches over a grid. It removes duplicate query
// words, fans the search out over a bounded worker pool, merges the
// per-task hit tallies after every task has finished and ranks the words by
// how often they were found.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/Adithya-Monish-Kumar-K/word-finder/internal/finder/grid"
	"github.com/Adithya-Monish-Kumar-K/word-finder/internal/finder/index"
	"github.com/Adithya-Monish-Kumar-K/word-finder/internal/finder/merger"
	"github.com/Adithya-Monish-Kumar-K/word-finder/internal/finder/probe"
	"github.com/Adithya-Monish-Kumar-K/word-finder/internal/finder/ranker"
	apperrors "github.com/Adithya-Monish-Kumar-K/word-finder/pkg/errors"
)

// candidateChunk is the number of index candidates probed by one task.
const candidateChunk = 64

var ErrEmptyOrBlankWord = fmt.Errorf("%w: query words must not be empty or blank", apperrors.ErrInvalidInput)

// Stats describes one Find call.
type Stats struct {
	Strategy     Strategy      `json:"strategy"`
	UniqueWords  int           `json:"unique_words"`
	Tasks        int           `json:"tasks"`
	Probes       int           `json:"probes"`
	IndexedCells int           `json:"indexed_cells"`
	Found        int           `json:"found"`
	TotalHits    int           `json:"total_hits"`
	Elapsed      time.Duration `json:"elapsed"`
}

// Engine owns one validated grid. It is safe for concurrent Find calls.
type Engine struct {
	grid         *grid.Grid
	pool         *ants.Pool
	ownsPool     bool
	maxDimension int
	workers      int
	logger       *slog.Logger
}

// New validates rows into a grid and prepares the worker pool.
func New(rows []string, opts ...Option) (*Engine, error) {
	e := &Engine{
		maxDimension: DefaultMaxDimension,
		workers:      DefaultWorkers,
		ownsPool:     true,
		logger:       slog.Default().With("component", "finder-engine"),
	}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}

	g, err := grid.Build(rows, e.maxDimension)
	if err != nil {
		return nil, err
	}
	e.grid = g

	if e.pool == nil {
		pool, err := ants.NewPool(e.workers)
		if err != nil {
			return nil, fmt.Errorf("creating worker pool: %w", err)
		}
		e.pool = pool
		e.ownsPool = true
	}
	return e, nil
}

// Grid returns the engine's grid.
func (e *Engine) Grid() *grid.Grid {
	return e.grid
}

// Release frees the worker pool if the engine created it. The engine must
// not be used afterwards.
func (e *Engine) Release() {
	if e.ownsPool && e.pool != nil {
		e.pool.Release()
	}
}

// Find returns up to ten distinct words from words, most frequently found
// first. Ties keep the order in which the words first appear in words.
// Words that never occur are left out.
func (e *Engine) Find(words []string, strategy Strategy) ([]string, error) {
	found, _, err := e.FindWithStats(words, strategy)
	return found, err
}

// FindWithStats is Find plus counters describing the work done.
func (e *Engine) FindWithStats(words []string, strategy Strategy) ([]string, Stats, error) {
	start := time.Now()
	stats := Stats{Strategy: strategy}

	q, err := prepare(words)
	if err != nil {
		return nil, stats, err
	}
	stats.UniqueWords = len(q.unique)

	var tasks []searchTask
	switch strategy {
	case Recursive, Range:
		tasks = e.scanTasks(q, strategy)
	case Index:
		idx, err := index.Build(context.Background(), e.grid, q.firstLetters(), e.workers)
		if err != nil {
			return nil, stats, fmt.Errorf("%w: %w", apperrors.ErrInternal, err)
		}
		stats.IndexedCells = idx.Size()
		tasks = e.indexTasks(q, idx)
	default:
		return nil, stats, fmt.Errorf("%w: %v", ErrUnknownStrategy, strategy)
	}
	stats.Tasks = len(tasks)

	tallies, probes, err := e.run(tasks)
	if err != nil {
		return nil, stats, err
	}
	stats.Probes = probes

	counts := merger.Merge(tallies)
	for _, n := range counts {
		stats.TotalHits += n
	}
	stats.Found = len(counts)
	ranked := ranker.Rank(counts, q.first, ranker.DefaultLimit)
	stats.Elapsed = time.Since(start)

	e.logger.Debug("find completed",
		"strategy", strategy.String(),
		"unique_words", stats.UniqueWords,
		"tasks", stats.Tasks,
		"probes", stats.Probes,
		"found", stats.Found,
		"elapsed", stats.Elapsed,
	)
	return ranker.Words(ranked), stats, nil
}

// query is the deduplicated form of the caller's word list.
type query struct {
	unique []string
	runes  [][]rune
	first  map[string]int
}

func prepare(words []string) (*query, error) {
	if len(words) == 0 {
		return nil, fmt.Errorf("%w: no words given", ErrEmptyOrBlankWord)
	}
	q := &query{first: make(map[string]int, len(words))}
	for i, w := range words {
		if strings.TrimSpace(w) == "" {
			return nil, fmt.Errorf("%w: word %d", ErrEmptyOrBlankWord, i)
		}
		if _, seen := q.first[w]; seen {
			continue
		}
		q.first[w] = i
		q.unique = append(q.unique, w)
		q.runes = append(q.runes, []rune(w))
	}
	return q, nil
}

func (q *query) firstLetters() map[rune]struct{} {
	letters := make(map[rune]struct{}, len(q.runes))
	for _, w := range q.runes {
		letters[w[0]] = struct{}{}
	}
	return letters
}

// searchTask fills its tally and reports how many cells it probed.
type searchTask func(t merger.Tally) (probes int)

func (e *Engine) scanTasks(q *query, strategy Strategy) []searchTask {
	tasks := make([]searchTask, 0, len(q.unique))
	for i, word := range q.unique {
		runes := q.runes[i]
		tasks = append(tasks, func(t merger.Tally) int {
			probes := 0
			var walker *probe.Walker
			if strategy == Recursive {
				walker = probe.NewWalker(e.grid, runes)
			}
			e.grid.Each(func(c grid.Coordinate, r rune) {
				if r != runes[0] {
					return
				}
				probes++
				if strategy == Recursive {
					if walker.From(c.Row, c.Col) {
						t.Add(word, 1)
					}
					return
				}
				_, n := probe.Range(e.grid, c.Row, c.Col, runes)
				t.Add(word, n)
			})
			return probes
		})
	}
	return tasks
}

func (e *Engine) indexTasks(q *query, idx *index.PositionIndex) []searchTask {
	var tasks []searchTask
	for i, word := range q.unique {
		runes := q.runes[i]
		candidates := idx.Lookup(runes[0])
		for from := 0; from < len(candidates); from += candidateChunk {
			chunk := candidates[from:min(from+candidateChunk, len(candidates))]
			tasks = append(tasks, func(t merger.Tally) int {
				for _, c := range chunk {
					_, n := probe.Range(e.grid, c.Row, c.Col, runes)
					t.Add(word, n)
				}
				return len(chunk)
			})
		}
	}
	return tasks
}

// run executes tasks on the pool and waits for all of them. Each task writes
// only its own slot, so collection needs no lock.
func (e *Engine) run(tasks []searchTask) ([]merger.Tally, int, error) {
	tallies := make([]merger.Tally, len(tasks))
	probes := make([]int, len(tasks))

	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
	)
	fail := func(err error) {
		errOnce.Do(func() { firstErr = err })
	}

	for i, task := range tasks {
		wg.Add(1)
		err := e.pool.Submit(func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					fail(fmt.Errorf("%w: search task %d panicked: %v", apperrors.ErrInternal, i, r))
				}
			}()
			local := make(merger.Tally)
			probes[i] = task(local)
			tallies[i] = local
		})
		if err != nil {
			wg.Done()
			fail(fmt.Errorf("%w: submitting search task: %w", apperrors.ErrInternal, err))
			break
		}
	}
	wg.Wait()
	if firstErr != nil {
		return nil, 0, firstErr
	}

	total := 0
	for _, p := range probes {
		total += p
	}
	return tallies, total, nil
}
