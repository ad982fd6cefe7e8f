// Package grid holds the immutable character matrix searched by the finder.
// Rows are measured in runes, so multi-byte letters count as one cell.
package grid

import (
	"fmt"
	"unicode/utf8"

	apperrors "github.com/Adithya-Monish-Kumar-K/word-finder/pkg/errors"
)

var (
	ErrEmptyInput         = fmt.Errorf("%w: grid has no rows", apperrors.ErrInvalidInput)
	ErrOversizedDimension = fmt.Errorf("%w: grid exceeds the maximum dimension", apperrors.ErrInvalidInput)
	ErrRaggedRows         = fmt.Errorf("%w: grid rows differ in length", apperrors.ErrInvalidInput)
)

// Coordinate addresses one cell. Row is the vertical index, Col the
// horizontal one.
type Coordinate struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// Grid is a rectangular rune buffer. It is never mutated after Build.
type Grid struct {
	cells [][]rune
	rows  int
	cols  int
}

// Build validates rows and copies them into a Grid. Checks run in a fixed
// order: empty input, then dimension limits, then ragged rows.
func Build(rows []string, maxDimension int) (*Grid, error) {
	if len(rows) == 0 {
		return nil, ErrEmptyInput
	}
	if len(rows) > maxDimension {
		return nil, fmt.Errorf("%w: %d rows, limit %d", ErrOversizedDimension, len(rows), maxDimension)
	}
	width := utf8.RuneCountInString(rows[0])
	for i, row := range rows {
		n := utf8.RuneCountInString(row)
		if n > maxDimension {
			return nil, fmt.Errorf("%w: row %d has %d columns, limit %d", ErrOversizedDimension, i, n, maxDimension)
		}
	}
	for i, row := range rows {
		if n := utf8.RuneCountInString(row); n != width {
			return nil, fmt.Errorf("%w: row %d has %d columns, expected %d", ErrRaggedRows, i, n, width)
		}
	}
	if width == 0 {
		return nil, ErrEmptyInput
	}

	cells := make([][]rune, len(rows))
	for i, row := range rows {
		cells[i] = []rune(row)
	}
	return &Grid{cells: cells, rows: len(rows), cols: width}, nil
}

func (g *Grid) RowCount() int { return g.rows }

func (g *Grid) ColCount() int { return g.cols }

// InBounds reports whether (row, col) addresses a cell.
func (g *Grid) InBounds(row, col int) bool {
	return row >= 0 && row < g.rows && col >= 0 && col < g.cols
}

// CharAt returns the rune at (row, col); ok is false outside the grid.
func (g *Grid) CharAt(row, col int) (r rune, ok bool) {
	if !g.InBounds(row, col) {
		return 0, false
	}
	return g.cells[row][col], true
}

// Row returns a copy of one horizontal line, or nil when out of range.
func (g *Grid) Row(row int) []rune {
	if row < 0 || row >= g.rows {
		return nil
	}
	out := make([]rune, g.cols)
	copy(out, g.cells[row])
	return out
}

// Column materializes a vertical line by reading col from every row.
func (g *Grid) Column(col int) []rune {
	if col < 0 || col >= g.cols {
		return nil
	}
	out := make([]rune, g.rows)
	for i := range g.cells {
		out[i] = g.cells[i][col]
	}
	return out
}

// Each calls fn for every cell in row-major order.
func (g *Grid) Each(fn func(c Coordinate, r rune)) {
	for i, line := range g.cells {
		for j, r := range line {
			fn(Coordinate{Row: i, Col: j}, r)
		}
	}
}

// EachInRows is Each restricted to rows [from, to).
func (g *Grid) EachInRows(from, to int, fn func(c Coordinate, r rune)) {
	from = max(from, 0)
	to = min(to, g.rows)
	for i := from; i < to; i++ {
		for j, r := range g.cells[i] {
			fn(Coordinate{Row: i, Col: j}, r)
		}
	}
}
