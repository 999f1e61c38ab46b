package domain

import (
	"context"
	"time"
)

// ResultCache holds the latest fully-computed PairResult per pair for
// the dashboard and notification collaborators. Writes replace the whole
// value; readers never observe a partially written result.
type ResultCache interface {
	SetResult(ctx context.Context, res *PairResult) error
	// GetResult returns ErrNotFound when no result has been published.
	GetResult(ctx context.Context, pair Pair) (*PairResult, error)
	ListResults(ctx context.Context, pairs []Pair) ([]*PairResult, error)
}

// Publisher announces published results to interested consumers
// (for example the WebSocket hub) without coupling the pipeline to them.
type Publisher interface {
	PublishResult(ctx context.Context, res *PairResult) error
	PublishCycle(ctx context.Context, report *CycleReport) error
}

// LockManager provides distributed locks so two process instances never
// run a refresh cycle for the same universe concurrently.
type LockManager interface {
	// Acquire returns an unlock function, or ErrLockHeld when another
	// holder owns the lock.
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error)
}
