package engine

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Adithya-Monish-Kumar-K/word-finder/pkg/errors"
)

func TestParseStrategy(t *testing.T) {
	tests := []struct {
		in   string
		want Strategy
	}{
		{"recursive", Recursive},
		{"sequential", Recursive},
		{"secuential", Recursive},
		{" Range ", Range},
		{"INDEX", Index},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseStrategy(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseStrategyUnknown(t *testing.T) {
	for _, in := range []string{"", "parallel", "idx"} {
		_, err := ParseStrategy(in)
		assert.ErrorIs(t, err, ErrUnknownStrategy, in)
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput, in)
	}
}

func TestStrategyStringRoundTrip(t *testing.T) {
	for _, s := range Strategies() {
		got, err := ParseStrategy(s.String())
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}
	assert.Equal(t, "strategy(9)", Strategy(9).String())
}

func TestStrategyJSON(t *testing.T) {
	data, err := json.Marshal(Stats{Strategy: Index})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"strategy":"index"`)

	var s Strategy
	require.NoError(t, json.Unmarshal([]byte(`"secuential"`), &s))
	assert.Equal(t, Recursive, s)
	assert.ErrorIs(t, json.Unmarshal([]byte(`"bfs"`), &s), ErrUnknownStrategy)

	_, err = json.Marshal(Strategy(9))
	assert.Error(t, err)
}
