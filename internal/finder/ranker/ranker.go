package ranker

import (
	"slices"
)

// DefaultLimit is the number of words returned by a find.
const DefaultLimit = 10

type RankedWord struct {
	Word  string `json:"word"`
	Count int    `json:"count"`
	// First is the word's first position in the original query.
	First int `json:"first"`
}

// Rank orders the words of counts by descending count. Ties go to the word
// that appeared first in the query (firstSeen). Words with a zero count and
// words missing from firstSeen are dropped. limit <= 0 means DefaultLimit.
func Rank(counts map[string]int, firstSeen map[string]int, limit int) []RankedWord {
	if limit <= 0 {
		limit = DefaultLimit
	}
	result := make([]RankedWord, 0, len(counts))
	for word, n := range counts {
		first, ok := firstSeen[word]
		if !ok || n <= 0 {
			continue
		}
		result = append(result, RankedWord{Word: word, Count: n, First: first})
	}
	slices.SortFunc(result, func(a, b RankedWord) int {
		if a.Count != b.Count {
			return b.Count - a.Count
		}
		return a.First - b.First
	})
	if len(result) > limit {
		result = result[:limit]
	}
	return result
}

// Words strips the counts from a ranked list.
func Words(ranked []RankedWord) []string {
	words := make([]string, len(ranked))
	for i, r := range ranked {
		words[i] = r.Word
	}
	return words
}
