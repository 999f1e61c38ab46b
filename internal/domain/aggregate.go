package domain

// SideAggregate holds the per-side statistics computed from one snapshot.
type SideAggregate struct {
	AveragePrice float64 `json:"average_price"`
	VWAP         float64 `json:"vwap"`
	MedianPrice  float64 `json:"median_price"`
	TotalVolume  float64 `json:"total_volume"`
	NumOrders    int     `json:"num_orders"`
}

// CombinedStats are computed over the union of bid and ask prices.
type CombinedStats struct {
	SimpleAverage float64 `json:"simple_average"`
	VWAP          float64 `json:"vwap"`
	Median        float64 `json:"median"`
	P25           float64 `json:"p25"`
	P75           float64 `json:"p75"`
}

// Spread is the distance between the best ask and the best bid.
// Percentage is relative to the mid price.
type Spread struct {
	Absolute   float64 `json:"absolute"`
	Percentage float64 `json:"percentage"`
}

// MarketAggregate is the full per-pair statistical view derived from one
// snapshot. Undefined (never produced) when either side is empty.
type MarketAggregate struct {
	Pair     Pair          `json:"pair"`
	BidSide  SideAggregate `json:"bid_side"`
	AskSide  SideAggregate `json:"ask_side"`
	Combined CombinedStats `json:"combined"`
	Spread   Spread        `json:"spread"`
}

// DepthSignal classifies the bid/ask volume imbalance.
type DepthSignal string

const (
	SignalBullish DepthSignal = "BULLISH"
	SignalBearish DepthSignal = "BEARISH"
	SignalNeutral DepthSignal = "NEUTRAL"
)

// DepthReport describes the liquidity shape of one pair's book.
// ImbalanceRatio = (bid_vol - ask_vol) / (bid_vol + ask_vol), clamped to
// [-1, 1]. LiquidityScore is 0-100, monotone up in volume and order
// count, down in spread percentage.
type DepthReport struct {
	Pair            Pair        `json:"pair"`
	BestBid         float64     `json:"best_bid"`
	BestAsk         float64     `json:"best_ask"`
	BidTotalVolume  float64     `json:"bid_total_volume"`
	AskTotalVolume  float64     `json:"ask_total_volume"`
	ImbalanceRatio  float64     `json:"imbalance_ratio"`
	Signal          DepthSignal `json:"signal"`
	LiquidityScore  float64     `json:"liquidity_score"`
	LiquidityRating string      `json:"liquidity_rating"`
}
