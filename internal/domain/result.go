package domain

import "time"

// PairResult is the published per-pair output of one cycle: aggregate
// statistics, depth report, and (when the market allows one) a
// competitive quote. It is written to the result cache as a whole, so
// concurrent readers always see a complete, consistent value.
//
// Quote is nil and QuoteError set when the pricing engine refused to
// quote (for example a crossed market). A consumer must treat
// IsStale=true and "pair absent" as first-class states.
type PairResult struct {
	Pair       Pair              `json:"pair"`
	CycleID    string            `json:"cycle_id"`
	FetchedAt  time.Time         `json:"fetched_at"`
	ComputedAt time.Time         `json:"computed_at"`
	IsStale    bool              `json:"is_stale"`
	Aggregate  MarketAggregate   `json:"aggregate"`
	Depth      DepthReport       `json:"depth"`
	Quote      *CompetitiveQuote `json:"quote,omitempty"`
	QuoteError string            `json:"quote_error,omitempty"`
}

// CycleReport summarises one orchestrator cycle for logging and the
// pipeline status endpoint.
type CycleReport struct {
	CycleID     string        `json:"cycle_id"`
	StartedAt   time.Time     `json:"started_at"`
	Duration    time.Duration `json:"duration"`
	Attempted   int           `json:"attempted"`
	Fresh       int           `json:"fresh"`
	Stale       int           `json:"stale"`
	Failed      int           `json:"failed"`
	FailedPairs []string      `json:"failed_pairs,omitempty"`
}
