package domain

import (
	"context"
	"time"
)

// SnapshotStore persists timestamped order book snapshots. The core only
// ever writes new rows and reads the latest one per pair; archival moves
// old rows to cold storage.
type SnapshotStore interface {
	// Insert appends one snapshot row.
	Insert(ctx context.Context, snap *OrderBookSnapshot) error

	// Latest returns the most recent snapshot for the pair.
	// Returns ErrNotFound when the pair has never been stored.
	Latest(ctx context.Context, pair Pair) (*OrderBookSnapshot, error)

	// ListOlderThan returns up to limit snapshots fetched before cutoff,
	// oldest first.
	ListOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]*OrderBookSnapshot, error)

	// DeleteByIDs removes exactly the given rows and returns the number
	// deleted. Archival deletes pages by id so a row is only ever
	// removed after its page was uploaded.
	DeleteByIDs(ctx context.Context, ids []int64) (int64, error)
}

// QuoteStore persists the quote recommended each cycle, giving operators
// a history of what the engine would have published.
type QuoteStore interface {
	Insert(ctx context.Context, cycleID string, q *CompetitiveQuote, at time.Time) error
}
