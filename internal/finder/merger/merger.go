package merger

// Tally counts occurrences per word. Each search task fills its own Tally so
// that no map is shared between goroutines.
type Tally map[string]int

// Add records n occurrences of word. Zero and negative n are ignored so a
// word with no hits never gets an entry.
func (t Tally) Add(word string, n int) {
	if n > 0 {
		t[word] += n
	}
}

// Merge sums per-task tallies into one. Addition is commutative, so the
// order of shards does not matter. Nil shards are skipped.
func Merge(shards []Tally) Tally {
	size := 0
	for _, s := range shards {
		size = max(size, len(s))
	}
	merged := make(Tally, size)
	for _, s := range shards {
		for word, n := range s {
			merged[word] += n
		}
	}
	return merged
}
