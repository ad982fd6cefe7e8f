package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Adithya-Monish-Kumar-K/word-finder/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/word-finder/pkg/proto"
	"github.com/Adithya-Monish-Kumar-K/word-finder/pkg/rpc"
)

func execute(t *testing.T, stdin string, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	cmd := NewRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err = cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestFindCmd_Text(t *testing.T) {
	for _, strategy := range []string{"recursive", "range", "index", "secuential"} {
		t.Run(strategy, func(t *testing.T) {
			out, _, err := execute(t, "", "find",
				"--grid", "testdata/sample_grid.txt",
				"--words", "maximo,laura,maxi,sol,marian,sole",
				"--strategy", strategy,
			)
			require.NoError(t, err)
			assert.Equal(t, "sol\nmaxi\nmarian\nmaximo\n", out)
		})
	}
}

func TestFindCmd_WordsFileAndJSON(t *testing.T) {
	out, _, err := execute(t, "", "find",
		"--grid", "testdata/sample_grid.txt",
		"--words-file", "testdata/sample_words.txt",
		"--format", "json",
		"--stats",
	)
	require.NoError(t, err)

	var result struct {
		Words    []string `json:"words"`
		Strategy string   `json:"strategy"`
		Stats    struct {
			UniqueWords int `json:"unique_words"`
			TotalHits   int `json:"total_hits"`
		} `json:"stats"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, []string{"sol", "maxi", "marian", "maximo"}, result.Words)
	assert.Equal(t, "range", result.Strategy)
	assert.Equal(t, 6, result.Stats.UniqueWords)
	assert.Equal(t, 8, result.Stats.TotalHits)
}

func TestFindCmd_GridFromStdin(t *testing.T) {
	grid, err := os.ReadFile("testdata/sample_grid.txt")
	require.NoError(t, err)

	out, stderr, err := execute(t, string(grid), "find", "--grid", "-", "--words", "sol,zzz", "--stats")
	require.NoError(t, err)
	assert.Equal(t, "sol\n", out)
	assert.Contains(t, stderr, "strategy=range")
	assert.Contains(t, stderr, "total_hits=3")
}

func TestFindCmd_Errors(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"missing grid flag", []string{"find", "--words", "sol"}, `"grid" not set`},
		{"no words", []string{"find", "--grid", "testdata/sample_grid.txt"}, "no words given"},
		{"unknown strategy", []string{"find", "--grid", "testdata/sample_grid.txt", "--words", "sol", "--strategy", "bfs"}, "unknown search strategy"},
		{"unknown format", []string{"find", "--grid", "testdata/sample_grid.txt", "--words", "sol", "--format", "xml"}, "unknown format"},
		{"missing file", []string{"find", "--grid", "testdata/nope.txt", "--words", "sol"}, "reading grid"},
		{"grid too large", []string{"find", "--grid", "testdata/sample_grid.txt", "--words", "sol", "--max-dimension", "4"}, "maximum dimension"},
		{"blank word", []string{"find", "--grid", "testdata/sample_grid.txt", "--words", "sol, "}, "empty or blank"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := execute(t, "", tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestStrategiesCmd(t *testing.T) {
	out, _, err := execute(t, "", "strategies")
	require.NoError(t, err)
	assert.Equal(t, "recursive\nrange\nindex\n", out)
}

func startFinderRPC(t *testing.T, handle func(proto.FindRequest) (*proto.FindResponse, error)) string {
	t.Helper()
	server := rpc.NewServer(time.Second)
	server.Register(proto.FindMethod, func(_ context.Context, params json.RawMessage) (any, error) {
		var req proto.FindRequest
		if err := json.Unmarshal(params, &req); err != nil {
			return nil, err
		}
		return handle(req)
	})
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go server.Serve(ln)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		server.Shutdown(ctx)
	})
	return ln.Addr().String()
}

func TestFindCmd_Remote(t *testing.T) {
	received := make(chan proto.FindRequest, 1)
	addr := startFinderRPC(t, func(req proto.FindRequest) (*proto.FindResponse, error) {
		received <- req
		return &proto.FindResponse{Words: []string{"sol", "maxi"}, Strategy: "index"}, nil
	})

	out, _, err := execute(t, "", "find",
		"--grid", "testdata/sample_grid.txt",
		"--words", "maxi,sol",
		"--strategy", "index",
		"--remote", addr,
	)
	require.NoError(t, err)
	assert.Equal(t, "sol\nmaxi\n", out)
	got := <-received
	assert.Len(t, got.Matrix, 8)
	assert.Equal(t, []string{"maxi", "sol"}, got.Wordstream)
	assert.Equal(t, "index", got.Strategy)
}

func TestFindCmd_RemoteError(t *testing.T) {
	addr := startFinderRPC(t, func(proto.FindRequest) (*proto.FindResponse, error) {
		return nil, fmt.Errorf("%w: grid exceeds the maximum dimension", apperrors.ErrInvalidInput)
	})

	_, _, err := execute(t, "", "find", "--grid", "testdata/sample_grid.txt", "--words", "sol", "--remote", addr)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	_, _, err = execute(t, "", "find", "--grid", "testdata/sample_grid.txt", "--words", "sol", "--remote", addr, "--stats")
	assert.ErrorContains(t, err, "only available for local searches")
}
