package kafka

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Strategy string   `json:"strategy"`
	Words    []string `json:"words"`
}

func TestEncode(t *testing.T) {
	messages, err := encode([]Event{
		{Key: "range", Value: payload{Strategy: "range", Words: []string{"sol"}}},
		{Key: "index", Value: map[string]int{"n": 1}},
	})
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "range", string(messages[0].Key))
	assert.JSONEq(t, `{"strategy":"range","words":["sol"]}`, string(messages[0].Value))
}

func TestEncodeRejectsUnmarshalable(t *testing.T) {
	_, err := encode([]Event{{Key: "bad", Value: make(chan int)}})
	assert.Error(t, err)
}

func TestDecodeJSON(t *testing.T) {
	got, err := DecodeJSON[payload]([]byte(`{"strategy":"index","words":["a","b"]}`))
	require.NoError(t, err)
	assert.Equal(t, payload{Strategy: "index", Words: []string{"a", "b"}}, got)

	_, err = DecodeJSON[payload]([]byte(`not json`))
	assert.Error(t, err)
}
