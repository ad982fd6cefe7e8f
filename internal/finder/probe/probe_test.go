package probe

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/word-finder/internal/finder/grid"
)

func mustGrid(t *testing.T, rows ...string) *grid.Grid {
	t.Helper()
	g, err := grid.Build(rows, 64)
	require.NoError(t, err)
	return g
}

func TestRecursive(t *testing.T) {
	g := mustGrid(t,
		"cold",
		"axxx",
		"txxx",
	)
	tests := []struct {
		name     string
		row, col int
		word     string
		want     bool
	}{
		{"rightward", 0, 0, "cold", true},
		{"downward", 0, 0, "cat", true},
		{"ends on last column", 0, 2, "ld", true},
		{"ends on last row", 1, 0, "at", true},
		{"wrong start", 0, 1, "cold", false},
		{"runs off the row", 0, 2, "ldq", false},
		{"runs off the column", 1, 0, "atq", false},
		{"outside grid", 3, 0, "t", false},
		{"backward not allowed", 0, 3, "dl", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Recursive(g, tt.row, tt.col, []rune(tt.word), 0))
		})
	}
}

func TestRecursiveFollowsTurningPaths(t *testing.T) {
	g := mustGrid(t,
		"abx",
		"xcd",
	)
	assert.True(t, Recursive(g, 0, 0, []rune("abcd"), 0))
	_, count := Range(g, 0, 0, []rune("abcd"))
	assert.Zero(t, count)
}

func TestRange(t *testing.T) {
	g := mustGrid(t,
		"sol",
		"oxx",
		"lxx",
	)
	tests := []struct {
		name      string
		row, col  int
		word      string
		wantFound bool
		wantCount int
	}{
		{"both directions", 0, 0, "sol", true, 2},
		{"vertical only", 0, 1, "ox", true, 1},
		{"horizontal only", 1, 0, "ox", true, 1},
		{"does not fit horizontally", 0, 1, "olx", false, 0},
		{"does not fit vertically", 1, 0, "olx", false, 0},
		{"no match", 1, 1, "sol", false, 0},
		{"out of bounds", 3, 3, "x", false, 0},
		{"single letter counts both ways", 2, 2, "x", true, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			found, count := Range(g, tt.row, tt.col, []rune(tt.word))
			assert.Equal(t, tt.wantFound, found)
			assert.Equal(t, tt.wantCount, count)
		})
	}
}

func TestRecursiveCountsOncePerCell(t *testing.T) {
	g := mustGrid(t,
		"sol",
		"oxx",
		"lxx",
	)
	assert.True(t, Recursive(g, 0, 0, []rune("sol"), 0))
	_, count := Range(g, 0, 0, []rune("sol"))
	assert.Equal(t, 2, count)
}

func repeatedGrid(t *testing.T, size int, r string) *grid.Grid {
	t.Helper()
	rows := make([]string, size)
	for i := range rows {
		rows[i] = strings.Repeat(r, size)
	}
	return mustGrid(t, rows...)
}

func TestRecursiveOnRepetitiveGridFinishesQuickly(t *testing.T) {
	g := repeatedGrid(t, 64, "a")
	for _, n := range []int{27, 40, 126} {
		word := []rune(strings.Repeat("a", n) + "b")
		done := make(chan int, 1)
		go func() {
			w := NewWalker(g, word)
			hits := 0
			for row := 0; row < g.RowCount(); row++ {
				for col := 0; col < g.ColCount(); col++ {
					if w.From(row, col) {
						hits++
					}
				}
			}
			done <- hits
		}()
		select {
		case hits := <-done:
			assert.Zero(t, hits, "word of length %d", n+1)
		case <-time.After(5 * time.Second):
			t.Fatalf("word of length %d did not finish", n+1)
		}
	}
	assert.False(t, Recursive(g, 0, 0, []rune(strings.Repeat("a", 40)+"b"), 0))
}

func TestWalkerMatchesRecursiveFromEveryCell(t *testing.T) {
	g := mustGrid(t,
		"abab",
		"babx",
		"abba",
		"xbab",
	)
	for _, word := range []string{"ab", "aba", "abab", "abba", "bab", "ax", "abababa", "q"} {
		runes := []rune(word)
		w := NewWalker(g, runes)
		for row := 0; row < g.RowCount(); row++ {
			for col := 0; col < g.ColCount(); col++ {
				want := naiveRecursive(g, row, col, runes, 0)
				assert.Equal(t, want, w.From(row, col), "%q at (%d,%d)", word, row, col)
				assert.Equal(t, want, Recursive(g, row, col, runes, 0), "%q at (%d,%d)", word, row, col)
			}
		}
	}
}

func TestRecursiveResumesMidWord(t *testing.T) {
	g := mustGrid(t,
		"cold",
		"axxx",
		"txxx",
	)
	assert.True(t, Recursive(g, 0, 1, []rune("cold"), 1))
	assert.True(t, Recursive(g, 5, 5, []rune("cold"), 4))
	assert.False(t, Recursive(g, 0, 1, []rune("cold"), 2))
}

func naiveRecursive(g *grid.Grid, row, col int, word []rune, matched int) bool {
	if matched == len(word) {
		return true
	}
	r, ok := g.CharAt(row, col)
	if !ok || r != word[matched] {
		return false
	}
	return naiveRecursive(g, row, col+1, word, matched+1) ||
		naiveRecursive(g, row+1, col, word, matched+1)
}
