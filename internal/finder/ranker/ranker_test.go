package ranker

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRank(t *testing.T) {
	counts := map[string]int{"maximo": 1, "maxi": 2, "sol": 3, "marian": 2}
	first := map[string]int{"maximo": 0, "laura": 1, "maxi": 2, "sol": 3, "marian": 4, "sole": 5}

	ranked := Rank(counts, first, 0)
	assert.Equal(t, []string{"sol", "maxi", "marian", "maximo"}, Words(ranked))
	assert.Equal(t, RankedWord{Word: "sol", Count: 3, First: 3}, ranked[0])
}

func TestRankTieBreakFollowsQueryOrder(t *testing.T) {
	counts := map[string]int{"c": 1, "a": 1, "b": 1}
	assert.Equal(t, []string{"b", "c", "a"}, Words(Rank(counts, map[string]int{"b": 0, "c": 1, "a": 2}, 0)))
	assert.Equal(t, []string{"a", "b", "c"}, Words(Rank(counts, map[string]int{"a": 0, "b": 1, "c": 2}, 0)))
}

func TestRankTruncates(t *testing.T) {
	counts := make(map[string]int)
	first := make(map[string]int)
	for i := 0; i < 25; i++ {
		w := fmt.Sprintf("w%02d", i)
		counts[w] = i % 3
		first[w] = i
	}

	ranked := Rank(counts, first, 0)
	assert.Len(t, ranked, DefaultLimit)
	seen := make(map[string]bool)
	for i, r := range ranked {
		assert.False(t, seen[r.Word], "duplicate %s", r.Word)
		seen[r.Word] = true
		if i > 0 {
			assert.GreaterOrEqual(t, ranked[i-1].Count, r.Count)
		}
	}
	assert.Len(t, Rank(counts, first, 3), 3)
}

func TestRankDropsZeroAndUnknownWords(t *testing.T) {
	counts := map[string]int{"a": 0, "b": 2, "ghost": 5}
	ranked := Rank(counts, map[string]int{"a": 0, "b": 1}, 0)
	assert.Equal(t, []string{"b"}, Words(ranked))
}
