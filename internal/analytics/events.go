// Package analytics records what the finder service is asked and what it
// finds. The Collector ships FindEvents to Kafka in batches; the Aggregator
// consumes them and keeps running totals served by Handler.
package analytics

import "time"

type EventType string

const (
	EventFind EventType = "find"
)

// Outcome classifies how a find request ended.
type Outcome string

const (
	OutcomeOK       Outcome = "ok"
	OutcomeEmpty    Outcome = "empty"
	OutcomeInvalid  Outcome = "invalid"
	OutcomeTimeout  Outcome = "timeout"
	OutcomeCanceled Outcome = "canceled"
	OutcomeError    Outcome = "error"
)

// FindEvent describes one handled find request.
type FindEvent struct {
	Type        EventType `json:"type"`
	RequestID   string    `json:"request_id,omitempty"`
	Strategy    string    `json:"strategy"`
	Outcome     Outcome   `json:"outcome"`
	Rows        int       `json:"rows"`
	Cols        int       `json:"cols"`
	QueryWords  int       `json:"query_words"`
	UniqueWords int       `json:"unique_words"`
	Found       []string  `json:"found,omitempty"`
	TotalHits   int       `json:"total_hits"`
	Probes      int       `json:"probes"`
	Coalesced   bool      `json:"coalesced"`
	LatencyMs   int64     `json:"latency_ms"`
	Timestamp   time.Time `json:"timestamp"`
}
