// Package index builds the first-letter position index used by the Index
// strategy to skip cells that cannot start any query word.
package index

import (
	"context"
	"fmt"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/word-finder/internal/finder/grid"
)

// PositionIndex maps a rune to every coordinate holding it. Only the runes
// requested at build time are indexed.
type PositionIndex struct {
	buckets map[rune][]grid.Coordinate
	size    int
}

// Build scans g once. Rows are split into at most workers shards; each shard
// fills its own map and the shards are merged after all of them finish.
// Buckets are sorted row-major so repeated builds are identical.
func Build(ctx context.Context, g *grid.Grid, firstLetters map[rune]struct{}, workers int) (*PositionIndex, error) {
	if workers < 1 {
		workers = 1
	}
	idx := &PositionIndex{buckets: make(map[rune][]grid.Coordinate, len(firstLetters))}
	if len(firstLetters) == 0 {
		return idx, nil
	}

	rows := g.RowCount()
	shardCount := min(workers, rows)
	shardRows := (rows + shardCount - 1) / shardCount
	shards := make([]map[rune][]grid.Coordinate, shardCount)

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)
	for s := range shardCount {
		from, to := s*shardRows, min((s+1)*shardRows, rows)
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			local := make(map[rune][]grid.Coordinate)
			g.EachInRows(from, to, func(c grid.Coordinate, r rune) {
				if _, ok := firstLetters[r]; ok {
					local[r] = append(local[r], c)
				}
			})
			shards[s] = local
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, fmt.Errorf("building position index: %w", err)
	}

	for _, shard := range shards {
		for r, coords := range shard {
			idx.buckets[r] = append(idx.buckets[r], coords...)
			idx.size += len(coords)
		}
	}
	for _, coords := range idx.buckets {
		slices.SortFunc(coords, compareCoordinates)
	}
	return idx, nil
}

// Lookup returns the coordinates recorded for r. The slice must not be
// modified.
func (p *PositionIndex) Lookup(r rune) []grid.Coordinate {
	return p.buckets[r]
}

// Letters is the number of non-empty buckets.
func (p *PositionIndex) Letters() int {
	return len(p.buckets)
}

// Size is the total number of indexed coordinates.
func (p *PositionIndex) Size() int {
	return p.size
}

func compareCoordinates(a, b grid.Coordinate) int {
	if a.Row != b.Row {
		return a.Row - b.Row
	}
	return a.Col - b.Col
}
