// Package probe implements the matching rules used to test whether a word
// starts at a given grid cell. Words are read rightward and downward only.
package probe

import (
	"slices"

	"github.com/Adithya-Monish-Kumar-K/word-finder/internal/finder/grid"
)

// Recursive walks the grid one character at a time. After each matched
// character it continues either one cell right or one cell down, so a match
// may turn corners. It reports a single boolean per starting cell even when
// several paths complete the word.
func Recursive(g *grid.Grid, row, col int, word []rune, matched int) bool {
	if matched >= len(word) {
		return true
	}
	return NewWalker(g, word[matched:]).From(row, col)
}

const (
	unvisited uint8 = iota
	dead
	live
)

// Walker runs the Recursive rule for one word from many starting cells.
// Whether the rest of the word can be read from a cell depends only on the
// cell and how much of the word is already matched, so each such state is
// resolved once and reused across starts. A Walker is not safe for
// concurrent use.
type Walker struct {
	g     *grid.Grid
	word  []rune
	state []uint8
}

func NewWalker(g *grid.Grid, word []rune) *Walker {
	w := &Walker{g: g, word: word}
	// A right/down path visits at most rows+cols-1 cells.
	if len(word) <= g.RowCount()+g.ColCount()-1 {
		w.state = make([]uint8, g.RowCount()*g.ColCount()*len(word))
	}
	return w
}

// From reports whether the word can be read starting at (row, col).
func (w *Walker) From(row, col int) bool {
	return w.walk(row, col, 0)
}

func (w *Walker) walk(row, col, matched int) bool {
	if matched == len(w.word) {
		return true
	}
	if w.state == nil {
		return false
	}
	r, ok := w.g.CharAt(row, col)
	if !ok || r != w.word[matched] {
		return false
	}
	slot := (row*w.g.ColCount()+col)*len(w.word) + matched
	switch w.state[slot] {
	case dead:
		return false
	case live:
		return true
	}
	found := w.walk(row, col+1, matched+1) || w.walk(row+1, col, matched+1)
	if found {
		w.state[slot] = live
	} else {
		w.state[slot] = dead
	}
	return found
}

// Range compares the word against the straight horizontal and vertical runs
// starting at (row, col). count is the number of directions that matched.
func Range(g *grid.Grid, row, col int, word []rune) (found bool, count int) {
	n := len(word)
	if n == 0 || !g.InBounds(row, col) {
		return false, 0
	}
	if col+n <= g.ColCount() && slices.Equal(g.Row(row)[col:col+n], word) {
		count++
	}
	if row+n <= g.RowCount() && slices.Equal(g.Column(col)[row:row+n], word) {
		count++
	}
	return count > 0, count
}
