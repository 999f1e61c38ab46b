package analytics

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/YoelDevSoft1/ProyectoP2P-sub002/internal/domain"
)

func testConfig() Config {
	return Config{
		ImbalanceThreshold: 0.2,
		WeightVolume:       0.4,
		WeightOrders:       0.3,
		WeightSpread:       0.3,
		VolumeNorm:         100,
		OrdersNorm:         10,
		SpreadNormPct:      5,
	}
}

func testSnapshot() *domain.OrderBookSnapshot {
	return &domain.OrderBookSnapshot{
		Pair:      domain.NewPair("USDT", "VES"),
		FetchedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Bids: []domain.RawOrder{
			{Price: 4000, Amount: 10, Side: domain.SideBuy},
			{Price: 3995, Amount: 20, Side: domain.SideBuy},
			{Price: 3990, Amount: 10, Side: domain.SideBuy},
		},
		Asks: []domain.RawOrder{
			{Price: 4050, Amount: 10, Side: domain.SideSell},
			{Price: 4060, Amount: 5, Side: domain.SideSell},
		},
	}
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestAggregateEmptySide(t *testing.T) {
	a := New(testConfig())

	tests := []struct {
		name string
		snap *domain.OrderBookSnapshot
	}{
		{"no bids", &domain.OrderBookSnapshot{
			Pair: domain.NewPair("USDT", "VES"),
			Asks: []domain.RawOrder{{Price: 4050, Amount: 1}},
		}},
		{"no asks", &domain.OrderBookSnapshot{
			Pair: domain.NewPair("USDT", "VES"),
			Bids: []domain.RawOrder{{Price: 4000, Amount: 1}},
		}},
		{"both empty", &domain.OrderBookSnapshot{
			Pair: domain.NewPair("USDT", "VES"),
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := a.Aggregate(tt.snap)
			if !errors.Is(err, domain.ErrEmptySide) {
				t.Fatalf("Aggregate() error = %v, want ErrEmptySide", err)
			}
		})
	}
}

func TestAggregateStatistics(t *testing.T) {
	a := New(testConfig())

	agg, _, err := a.Aggregate(testSnapshot())
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}

	// Bid side: prices 4000/3990/3995, volumes 10/20/10.
	if got, want := agg.BidSide.AveragePrice, 3995.0; !almostEqual(got, want) {
		t.Errorf("bid average = %v, want %v", got, want)
	}
	if got, want := agg.BidSide.VWAP, 3995.0; !almostEqual(got, want) {
		t.Errorf("bid vwap = %v, want %v", got, want)
	}
	if got, want := agg.BidSide.MedianPrice, 3995.0; !almostEqual(got, want) {
		t.Errorf("bid median = %v, want %v", got, want)
	}
	if got, want := agg.BidSide.TotalVolume, 40.0; !almostEqual(got, want) {
		t.Errorf("bid volume = %v, want %v", got, want)
	}
	if got, want := agg.BidSide.NumOrders, 3; got != want {
		t.Errorf("bid orders = %v, want %v", got, want)
	}

	// Ask side: (4050*10 + 4060*5) / 15.
	if got, want := agg.AskSide.VWAP, 60800.0/15; !almostEqual(got, want) {
		t.Errorf("ask vwap = %v, want %v", got, want)
	}
	if got, want := agg.AskSide.MedianPrice, 4055.0; !almostEqual(got, want) {
		t.Errorf("ask median = %v, want %v", got, want)
	}

	// Combined over [3990 3995 4000 4050 4060].
	if got, want := agg.Combined.SimpleAverage, 4019.0; !almostEqual(got, want) {
		t.Errorf("combined average = %v, want %v", got, want)
	}
	if got, want := agg.Combined.VWAP, 220600.0/55; !almostEqual(got, want) {
		t.Errorf("combined vwap = %v, want %v", got, want)
	}
	if got, want := agg.Combined.Median, 4000.0; !almostEqual(got, want) {
		t.Errorf("combined median = %v, want %v", got, want)
	}
	if got, want := agg.Combined.P25, 3995.0; !almostEqual(got, want) {
		t.Errorf("combined p25 = %v, want %v", got, want)
	}
	if got, want := agg.Combined.P75, 4050.0; !almostEqual(got, want) {
		t.Errorf("combined p75 = %v, want %v", got, want)
	}

	// Spread: best bid 4000, best ask 4050, mid 4025.
	if got, want := agg.Spread.Absolute, 50.0; !almostEqual(got, want) {
		t.Errorf("spread abs = %v, want %v", got, want)
	}
	if got, want := agg.Spread.Percentage, 50.0/4025*100; !almostEqual(got, want) {
		t.Errorf("spread pct = %v, want %v", got, want)
	}
}

func TestAggregateDepthReport(t *testing.T) {
	a := New(testConfig())

	_, depth, err := a.Aggregate(testSnapshot())
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}

	if got, want := depth.BestBid, 4000.0; !almostEqual(got, want) {
		t.Errorf("best bid = %v, want %v", got, want)
	}
	if got, want := depth.BestAsk, 4050.0; !almostEqual(got, want) {
		t.Errorf("best ask = %v, want %v", got, want)
	}
	if got, want := depth.ImbalanceRatio, 25.0/55; !almostEqual(got, want) {
		t.Errorf("imbalance = %v, want %v", got, want)
	}
	if depth.Signal != domain.SignalBullish {
		t.Errorf("signal = %v, want BULLISH", depth.Signal)
	}

	// nv=0.55, no=0.5, ns=1-spread%/5 with the test weights.
	spreadPct := 50.0 / 4025 * 100
	want := 100 * (0.4*0.55 + 0.3*0.5 + 0.3*(1-spreadPct/5))
	if !almostEqual(depth.LiquidityScore, want) {
		t.Errorf("liquidity score = %v, want %v", depth.LiquidityScore, want)
	}
	if depth.LiquidityRating != "GOOD" {
		t.Errorf("liquidity rating = %v, want GOOD", depth.LiquidityRating)
	}
}

func TestAggregateRecomputesBestPrices(t *testing.T) {
	// Bids arrive ascending and asks descending; the best prices must
	// not trust the upstream order.
	a := New(testConfig())
	snap := &domain.OrderBookSnapshot{
		Pair: domain.NewPair("USDT", "COP"),
		Bids: []domain.RawOrder{
			{Price: 3990, Amount: 1},
			{Price: 4000, Amount: 1},
		},
		Asks: []domain.RawOrder{
			{Price: 4060, Amount: 1},
			{Price: 4050, Amount: 1},
		},
	}

	_, depth, err := a.Aggregate(snap)
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}
	if depth.BestBid != 4000 || depth.BestAsk != 4050 {
		t.Errorf("best prices = %v/%v, want 4000/4050", depth.BestBid, depth.BestAsk)
	}
}

func TestSideAggregateZeroVolumeFallsBackToMean(t *testing.T) {
	side := sideAggregate([]domain.RawOrder{
		{Price: 100, Amount: 0},
		{Price: 200, Amount: 0},
	})
	if !almostEqual(side.VWAP, 150) {
		t.Errorf("vwap = %v, want the mean 150", side.VWAP)
	}
}

func TestPercentile(t *testing.T) {
	tests := []struct {
		name   string
		sorted []float64
		p      float64
		want   float64
	}{
		{"empty", nil, 0.5, 0},
		{"single", []float64{7}, 0.9, 7},
		{"p0", []float64{1, 2, 3, 4}, 0, 1},
		{"p25 interpolated", []float64{1, 2, 3, 4}, 0.25, 1.75},
		{"median even", []float64{1, 2, 3, 4}, 0.5, 2.5},
		{"median odd", []float64{1, 2, 3}, 0.5, 2},
		{"p100", []float64{1, 2, 3, 4}, 1, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := percentile(tt.sorted, tt.p); !almostEqual(got, tt.want) {
				t.Errorf("percentile(%v, %v) = %v, want %v", tt.sorted, tt.p, got, tt.want)
			}
		})
	}
}

func TestDepthSignalThresholds(t *testing.T) {
	a := New(testConfig())

	tests := []struct {
		name   string
		bidVol float64
		askVol float64
		want   domain.DepthSignal
	}{
		{"balanced", 50, 50, domain.SignalNeutral},
		{"slightly bid heavy", 55, 45, domain.SignalNeutral},
		{"at threshold bullish", 60, 40, domain.SignalBullish},
		{"bid heavy", 90, 10, domain.SignalBullish},
		{"at threshold bearish", 40, 60, domain.SignalBearish},
		{"ask heavy", 10, 90, domain.SignalBearish},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := &domain.OrderBookSnapshot{
				Pair: domain.NewPair("USDT", "VES"),
				Bids: []domain.RawOrder{{Price: 4000, Amount: tt.bidVol}},
				Asks: []domain.RawOrder{{Price: 4050, Amount: tt.askVol}},
			}
			_, depth, err := a.Aggregate(snap)
			if err != nil {
				t.Fatalf("Aggregate() error = %v", err)
			}
			if depth.Signal != tt.want {
				t.Errorf("signal = %v, want %v (imbalance %v)", depth.Signal, tt.want, depth.ImbalanceRatio)
			}
		})
	}
}

func TestLiquidityScoreMonotonicity(t *testing.T) {
	a := New(testConfig())

	base := a.liquidityScore(50, 5, 1)

	if more := a.liquidityScore(80, 5, 1); more < base {
		t.Errorf("score decreased with more volume: %v -> %v", base, more)
	}
	if more := a.liquidityScore(50, 8, 1); more < base {
		t.Errorf("score decreased with more orders: %v -> %v", base, more)
	}
	if wider := a.liquidityScore(50, 5, 3); wider > base {
		t.Errorf("score increased with wider spread: %v -> %v", base, wider)
	}

	// Saturated book with a zero spread pins the score at 100.
	if got := a.liquidityScore(1000, 100, 0); !almostEqual(got, 100) {
		t.Errorf("saturated score = %v, want 100", got)
	}
	// Past the saturation points extra depth changes nothing.
	if got := a.liquidityScore(5000, 500, 0); !almostEqual(got, 100) {
		t.Errorf("oversaturated score = %v, want 100", got)
	}
}

func TestLiquidityRating(t *testing.T) {
	tests := []struct {
		score float64
		want  string
	}{
		{100, "EXCELLENT"},
		{75, "EXCELLENT"},
		{74.9, "GOOD"},
		{50, "GOOD"},
		{49.9, "FAIR"},
		{25, "FAIR"},
		{24.9, "POOR"},
		{0, "POOR"},
	}

	for _, tt := range tests {
		if got := liquidityRating(tt.score); got != tt.want {
			t.Errorf("liquidityRating(%v) = %v, want %v", tt.score, got, tt.want)
		}
	}
}

// splitOrders replaces every order with two same-price orders whose
// volumes sum to the original. Volume-weighted statistics must not
// notice the difference.
func splitOrders(orders []domain.RawOrder) []domain.RawOrder {
	out := make([]domain.RawOrder, 0, 2*len(orders))
	for _, o := range orders {
		a, b := o, o
		a.Amount = o.Amount * 0.25
		b.Amount = o.Amount * 0.75
		out = append(out, a, b)
	}
	return out
}

func TestVWAPInvariantUnderOrderSplit(t *testing.T) {
	a := New(testConfig())

	whole := testSnapshot()
	split := testSnapshot()
	split.Bids = splitOrders(split.Bids)
	split.Asks = splitOrders(split.Asks)

	aggWhole, _, err := a.Aggregate(whole)
	if err != nil {
		t.Fatalf("Aggregate(whole) error = %v", err)
	}
	aggSplit, _, err := a.Aggregate(split)
	if err != nil {
		t.Fatalf("Aggregate(split) error = %v", err)
	}

	if !almostEqual(aggSplit.BidSide.VWAP, aggWhole.BidSide.VWAP) {
		t.Errorf("bid vwap changed under split: %v -> %v", aggWhole.BidSide.VWAP, aggSplit.BidSide.VWAP)
	}
	if !almostEqual(aggSplit.AskSide.VWAP, aggWhole.AskSide.VWAP) {
		t.Errorf("ask vwap changed under split: %v -> %v", aggWhole.AskSide.VWAP, aggSplit.AskSide.VWAP)
	}
	if !almostEqual(aggSplit.Combined.VWAP, aggWhole.Combined.VWAP) {
		t.Errorf("combined vwap changed under split: %v -> %v", aggWhole.Combined.VWAP, aggSplit.Combined.VWAP)
	}

	// Total volume and the spread are split-invariant too.
	if !almostEqual(aggSplit.BidSide.TotalVolume, aggWhole.BidSide.TotalVolume) {
		t.Errorf("bid volume changed under split: %v -> %v", aggWhole.BidSide.TotalVolume, aggSplit.BidSide.TotalVolume)
	}
	if !almostEqual(aggSplit.Spread.Percentage, aggWhole.Spread.Percentage) {
		t.Errorf("spread changed under split: %v -> %v", aggWhole.Spread.Percentage, aggSplit.Spread.Percentage)
	}
}

func TestAggregateReferenceBook(t *testing.T) {
	a := New(testConfig())

	agg, _, err := a.Aggregate(&domain.OrderBookSnapshot{
		Pair: domain.NewPair("USDT", "VES"),
		Bids: []domain.RawOrder{
			{Price: 4000, Amount: 100, Side: domain.SideBuy},
			{Price: 3995, Amount: 50, Side: domain.SideBuy},
		},
		Asks: []domain.RawOrder{
			{Price: 4050, Amount: 80, Side: domain.SideSell},
			{Price: 4060, Amount: 40, Side: domain.SideSell},
		},
	})
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}

	// (4000*100 + 3995*50) / 150 and (4050*80 + 4060*40) / 120.
	if got, want := agg.BidSide.VWAP, 599750.0/150; !almostEqual(got, want) {
		t.Errorf("bid vwap = %v, want %v", got, want)
	}
	if got, want := agg.AskSide.VWAP, 486400.0/120; !almostEqual(got, want) {
		t.Errorf("ask vwap = %v, want %v", got, want)
	}
	if got, want := agg.Spread.Absolute, 50.0; !almostEqual(got, want) {
		t.Errorf("spread = %v, want %v", got, want)
	}
	if got, want := agg.Spread.Percentage, 50.0/4025*100; !almostEqual(got, want) {
		t.Errorf("spread pct = %v, want %v", got, want)
	}
}
