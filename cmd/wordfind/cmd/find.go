package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/word-finder/internal/finder/engine"
	"github.com/Adithya-Monish-Kumar-K/word-finder/pkg/proto"
	"github.com/Adithya-Monish-Kumar-K/word-finder/pkg/rpc"
)

// findOptions holds CLI flags for find.
type findOptions struct {
	grid         string
	words        []string
	wordsFile    string
	strategy     string
	maxDimension int
	workers      int
	format       string
	stats        bool
	remote       string
	timeout      time.Duration
}

type findOutput struct {
	Words    []string      `json:"words"`
	Strategy string        `json:"strategy"`
	Stats    *engine.Stats `json:"stats,omitempty"`
}

func (o findOutput) write(w io.Writer, format string) error {
	if o.Words == nil {
		o.Words = []string{}
	}
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(o)
	}
	for _, word := range o.Words {
		fmt.Fprintln(w, word)
	}
	return nil
}

func newFindCmd() *cobra.Command {
	var opts findOptions

	cmd := &cobra.Command{
		Use:   "find",
		Short: "Find the most frequent words in a grid",
		Long: `Find searches the grid for every word and prints up to ten of them,
most frequently found first.

The grid file holds one row per line; "-" reads it from stdin.

Examples:
  wordfind find --grid grid.txt --words sol,maxi,marian
  wordfind find --grid grid.txt --words-file names.txt --strategy index
  cat grid.txt | wordfind find --grid - --words sol --format json --stats
  wordfind find --grid grid.txt --words sol --remote localhost:9000`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runFind(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.grid, "grid", "g", "", "Grid file, one row per line (- for stdin)")
	cmd.Flags().StringSliceVarP(&opts.words, "words", "w", nil, "Comma-separated words to search for")
	cmd.Flags().StringVar(&opts.wordsFile, "words-file", "", "File of whitespace-separated words to search for")
	cmd.Flags().StringVarP(&opts.strategy, "strategy", "s", "range", "Search strategy: recursive, range, index")
	cmd.Flags().IntVar(&opts.maxDimension, "max-dimension", engine.DefaultMaxDimension, "Largest accepted row count and row length")
	cmd.Flags().IntVar(&opts.workers, "workers", engine.DefaultWorkers, "Worker pool size")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")
	cmd.Flags().BoolVar(&opts.stats, "stats", false, "Include search counters in the output")
	cmd.Flags().StringVar(&opts.remote, "remote", "", "Send the search to a finder service's RPC address instead of running it locally")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 10*time.Second, "Deadline for a remote search")
	_ = cmd.MarkFlagRequired("grid")

	return cmd
}

func runFind(cmd *cobra.Command, opts findOptions) error {
	if opts.format != "text" && opts.format != "json" {
		return fmt.Errorf("unknown format %q (use text or json)", opts.format)
	}
	strategy, err := engine.ParseStrategy(opts.strategy)
	if err != nil {
		return err
	}

	rows, err := readFields(cmd.InOrStdin(), opts.grid)
	if err != nil {
		return fmt.Errorf("reading grid: %w", err)
	}
	words := opts.words
	if opts.wordsFile != "" {
		more, err := readFields(cmd.InOrStdin(), opts.wordsFile)
		if err != nil {
			return fmt.Errorf("reading words: %w", err)
		}
		words = append(words, more...)
	}
	if len(words) == 0 {
		return errors.New("no words given (use --words or --words-file)")
	}

	if opts.remote != "" {
		if opts.stats {
			return errors.New("--stats is only available for local searches")
		}
		return runRemote(cmd, opts, rows, words)
	}

	eng, err := engine.New(rows,
		engine.WithMaxDimension(opts.maxDimension),
		engine.WithWorkers(opts.workers),
	)
	if err != nil {
		return err
	}
	defer eng.Release()

	found, stats, err := eng.FindWithStats(words, strategy)
	if err != nil {
		return err
	}

	result := findOutput{Words: found, Strategy: strategy.String()}
	if opts.stats && opts.format == "json" {
		result.Stats = &stats
	}
	if err := result.write(cmd.OutOrStdout(), opts.format); err != nil {
		return err
	}
	if opts.stats && opts.format == "text" {
		fmt.Fprintf(cmd.ErrOrStderr(),
			"strategy=%s unique_words=%d tasks=%d probes=%d indexed_cells=%d found=%d total_hits=%d elapsed=%s\n",
			stats.Strategy, stats.UniqueWords, stats.Tasks, stats.Probes,
			stats.IndexedCells, stats.Found, stats.TotalHits, stats.Elapsed,
		)
	}
	return nil
}

func runRemote(cmd *cobra.Command, opts findOptions, rows, words []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
	defer cancel()

	client, err := rpc.Dial(ctx, opts.remote)
	if err != nil {
		return err
	}
	defer client.Close()

	var resp proto.FindResponse
	err = client.Call(ctx, proto.FindMethod, proto.FindRequest{
		Matrix:     rows,
		Wordstream: words,
		Strategy:   opts.strategy,
	}, &resp)
	if err != nil {
		return err
	}
	return findOutput{Words: resp.Words, Strategy: resp.Strategy}.write(cmd.OutOrStdout(), opts.format)
}

// readFields reads path (or stdin for "-") and splits it on whitespace.
func readFields(stdin io.Reader, path string) ([]string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, err
	}
	return strings.Fields(string(data)), nil
}
