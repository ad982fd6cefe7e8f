package index

import (
	"context"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/word-finder/internal/finder/grid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func letters(rs ...rune) map[rune]struct{} {
	m := make(map[rune]struct{}, len(rs))
	for _, r := range rs {
		m[r] = struct{}{}
	}
	return m
}

func TestBuild(t *testing.T) {
	g, err := grid.Build([]string{
		"smx",
		"xsm",
		"mxs",
	}, 64)
	require.NoError(t, err)

	idx, err := Build(context.Background(), g, letters('s', 'm', 'q'), 4)
	require.NoError(t, err)

	assert.Equal(t, []grid.Coordinate{{Row: 0, Col: 0}, {Row: 1, Col: 1}, {Row: 2, Col: 2}}, idx.Lookup('s'))
	assert.Equal(t, []grid.Coordinate{{Row: 0, Col: 1}, {Row: 1, Col: 2}, {Row: 2, Col: 0}}, idx.Lookup('m'))
	assert.Empty(t, idx.Lookup('q'))
	assert.Empty(t, idx.Lookup('x'), "unrequested letters are not indexed")
	assert.Equal(t, 2, idx.Letters())
	assert.Equal(t, 6, idx.Size())
}

func TestBuildIsIndependentOfShardCount(t *testing.T) {
	rows := []string{
		"enmcsolrdsgi",
		"bwaeqvplcoxp",
		"smxmaximolmq",
		"exiofrxbzqwu",
		"tnitljbyzxdl",
		"ytamqsagqzsl",
		"ctpmarianaob",
		"marianellaln",
	}
	g, err := grid.Build(rows, 64)
	require.NoError(t, err)
	want := letters('m', 's', 'l')

	base, err := Build(context.Background(), g, want, 1)
	require.NoError(t, err)
	for _, workers := range []int{0, 2, 3, 8, 32} {
		idx, err := Build(context.Background(), g, want, workers)
		require.NoError(t, err)
		for r := range want {
			assert.Equal(t, base.Lookup(r), idx.Lookup(r), "workers=%d letter=%c", workers, r)
		}
		assert.Equal(t, base.Size(), idx.Size())
	}
}

func TestBuildWithoutLetters(t *testing.T) {
	g, err := grid.Build([]string{"ab"}, 64)
	require.NoError(t, err)

	idx, err := Build(context.Background(), g, nil, 4)
	require.NoError(t, err)
	assert.Zero(t, idx.Size())
	assert.Zero(t, idx.Letters())
}

func TestBuildCancelled(t *testing.T) {
	g, err := grid.Build([]string{"ab", "cd"}, 64)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Build(ctx, g, letters('a'), 2)
	assert.ErrorIs(t, err, context.Canceled)
}
