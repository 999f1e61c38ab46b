package domain

import "time"

// Side is the advertised direction of a P2P listing.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// RawOrder is a single P2P listing as fetched from the marketplace.
// Price is in fiat per asset unit; Amount is the advertised available
// amount in asset units. Immutable once fetched.
type RawOrder struct {
	Price  float64 `json:"price"`
	Amount float64 `json:"available_amount"`
	Side   Side    `json:"side"`
}

// OrderBookSnapshot holds every listing fetched for one pair in one
// refresh cycle. Bids are sorted price-descending, asks price-ascending.
// The snapshot is owned by the snapshot cache between cycles; consumers
// receive it read-only and must branch on IsStale.
type OrderBookSnapshot struct {
	// ID is the store row id, zero until persisted.
	ID        int64      `json:"-"`
	Pair      Pair       `json:"pair"`
	FetchedAt time.Time  `json:"fetched_at"`
	Bids      []RawOrder `json:"bids"`
	Asks      []RawOrder `json:"asks"`
	IsStale   bool       `json:"is_stale"`
}

// NumOrders returns the total listing count across both sides.
func (s *OrderBookSnapshot) NumOrders() int {
	return len(s.Bids) + len(s.Asks)
}

// Clone returns a deep copy of the snapshot. The cache hands out clones
// so a later Put can never mutate a snapshot a reader still holds.
func (s *OrderBookSnapshot) Clone() *OrderBookSnapshot {
	out := *s
	out.Bids = make([]RawOrder, len(s.Bids))
	copy(out.Bids, s.Bids)
	out.Asks = make([]RawOrder, len(s.Asks))
	copy(out.Asks, s.Asks)
	return &out
}
