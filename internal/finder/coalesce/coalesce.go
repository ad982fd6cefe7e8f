// Package coalesce collapses identical find requests that are in flight at
// the same time into one engine run. Nothing is kept once the run returns.
package coalesce

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"hash"
	"log/slog"
	"slices"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/word-finder/internal/finder/engine"
)

// Result is what one engine run produced.
type Result struct {
	Words []string
	Stats engine.Stats
}

// Group deduplicates concurrent calls by request key.
type Group struct {
	group  singleflight.Group
	calls  atomic.Int64
	shared atomic.Int64
	logger *slog.Logger
}

func New() *Group {
	return &Group{logger: slog.Default().With("component", "find-coalescer")}
}

// Do runs fn once per key among concurrent callers. shared reports whether
// the result came from another caller's run. Each caller gets its own copy
// of Words. A caller whose ctx ends stops waiting; the run itself continues
// for the others.
func (g *Group) Do(ctx context.Context, key string, fn func() (Result, error)) (res Result, shared bool, err error) {
	g.calls.Add(1)
	ch := g.group.DoChan(key, func() (any, error) {
		return fn()
	})
	select {
	case r := <-ch:
		if r.Shared {
			g.shared.Add(1)
			g.logger.Debug("find coalesced", "key", key)
		}
		if r.Err != nil {
			return Result{}, r.Shared, r.Err
		}
		out := r.Val.(Result)
		out.Words = slices.Clone(out.Words)
		return out, r.Shared, nil
	case <-ctx.Done():
		return Result{}, false, ctx.Err()
	}
}

// Counts returns the number of calls and how many of them shared a run.
func (g *Group) Counts() (calls, shared int64) {
	return g.calls.Load(), g.shared.Load()
}

// Key identifies a request by its grid, words, strategy and grid limit.
func Key(rows, words []string, strategy engine.Strategy, maxDimension int) string {
	h := sha256.New()
	writeInt(h, int64(strategy))
	writeInt(h, int64(maxDimension))
	writeStrings(h, rows)
	writeStrings(h, words)
	sum := h.Sum(nil)
	return hex.EncodeToString(sum[:16])
}

// writeStrings length-prefixes every element so ["ab","c"] and ["a","bc"]
// hash differently.
func writeStrings(h hash.Hash, ss []string) {
	writeInt(h, int64(len(ss)))
	for _, s := range ss {
		writeInt(h, int64(len(s)))
		h.Write([]byte(s))
	}
}

func writeInt(h hash.Hash, n int64) {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(n))
	h.Write(buf[:])
}
