// Package analytics turns raw order book snapshots into market-wide
// statistics: per-side aggregates, combined percentiles, spread, and a
// depth report with an imbalance signal and liquidity score. Everything
// here is pure and deterministic; no I/O, no shared state.
package analytics

import (
	"fmt"
	"math"
	"sort"

	"github.com/YoelDevSoft1/ProyectoP2P-sub002/internal/domain"
)

// Config holds the tunable coefficients of the depth report. The
// monotonicity directions of the liquidity score are a hard contract;
// the exact weights and normalisation points are operator tuning.
type Config struct {
	// ImbalanceThreshold is the |imbalance ratio| beyond which the
	// signal flips from NEUTRAL to BULLISH/BEARISH.
	ImbalanceThreshold float64

	// Liquidity score blend weights.
	WeightVolume float64
	WeightOrders float64
	WeightSpread float64

	// Saturation points for the normalised components.
	VolumeNorm    float64
	OrdersNorm    float64
	SpreadNormPct float64
}

// Analyzer computes aggregates from snapshots.
type Analyzer struct {
	cfg Config
}

// New creates an Analyzer with the given coefficients.
func New(cfg Config) *Analyzer {
	return &Analyzer{cfg: cfg}
}

// Aggregate derives the market aggregate and depth report for one
// snapshot. It fails with domain.ErrEmptySide when either side has no
// listings: statistics over an empty side are undefined, never zero.
func (a *Analyzer) Aggregate(snap *domain.OrderBookSnapshot) (domain.MarketAggregate, domain.DepthReport, error) {
	if len(snap.Bids) == 0 {
		return domain.MarketAggregate{}, domain.DepthReport{}, fmt.Errorf("aggregate %s: bid side: %w", snap.Pair, domain.ErrEmptySide)
	}
	if len(snap.Asks) == 0 {
		return domain.MarketAggregate{}, domain.DepthReport{}, fmt.Errorf("aggregate %s: ask side: %w", snap.Pair, domain.ErrEmptySide)
	}

	bidSide := sideAggregate(snap.Bids)
	askSide := sideAggregate(snap.Asks)

	// Best prices: bids are sorted price-descending, asks ascending,
	// but recompute rather than trust upstream ordering.
	bestBid := maxPrice(snap.Bids)
	bestAsk := minPrice(snap.Asks)

	spreadAbs := bestAsk - bestBid
	mid := (bestBid + bestAsk) / 2
	spread := domain.Spread{
		Absolute:   spreadAbs,
		Percentage: spreadAbs / mid * 100,
	}

	agg := domain.MarketAggregate{
		Pair:     snap.Pair,
		BidSide:  bidSide,
		AskSide:  askSide,
		Combined: combinedStats(snap.Bids, snap.Asks),
		Spread:   spread,
	}

	depth := a.depthReport(snap, bidSide, askSide, bestBid, bestAsk, spread)

	return agg, depth, nil
}

// sideAggregate computes the statistics for one non-empty side.
func sideAggregate(orders []domain.RawOrder) domain.SideAggregate {
	var priceSum, volumeSum, weightedSum float64
	prices := make([]float64, len(orders))
	for i, o := range orders {
		priceSum += o.Price
		volumeSum += o.Amount
		weightedSum += o.Price * o.Amount
		prices[i] = o.Price
	}
	sort.Float64s(prices)

	vwap := 0.0
	if volumeSum > 0 {
		vwap = weightedSum / volumeSum
	} else {
		// All listings empty of volume: fall back to the count-weighted
		// mean so the VWAP stays inside the price range.
		vwap = priceSum / float64(len(orders))
	}

	return domain.SideAggregate{
		AveragePrice: priceSum / float64(len(orders)),
		VWAP:         vwap,
		MedianPrice:  percentile(prices, 0.50),
		TotalVolume:  volumeSum,
		NumOrders:    len(orders),
	}
}

// combinedStats computes statistics over the union of both sides'
// prices. Percentiles use one sample per order, not volume-weighted.
func combinedStats(bids, asks []domain.RawOrder) domain.CombinedStats {
	n := len(bids) + len(asks)
	prices := make([]float64, 0, n)
	var priceSum, volumeSum, weightedSum float64
	for _, o := range bids {
		prices = append(prices, o.Price)
		priceSum += o.Price
		volumeSum += o.Amount
		weightedSum += o.Price * o.Amount
	}
	for _, o := range asks {
		prices = append(prices, o.Price)
		priceSum += o.Price
		volumeSum += o.Amount
		weightedSum += o.Price * o.Amount
	}
	sort.Float64s(prices)

	vwap := 0.0
	if volumeSum > 0 {
		vwap = weightedSum / volumeSum
	} else {
		vwap = priceSum / float64(n)
	}

	return domain.CombinedStats{
		SimpleAverage: priceSum / float64(n),
		VWAP:          vwap,
		Median:        percentile(prices, 0.50),
		P25:           percentile(prices, 0.25),
		P75:           percentile(prices, 0.75),
	}
}

// depthReport derives the liquidity shape of the book.
func (a *Analyzer) depthReport(
	snap *domain.OrderBookSnapshot,
	bidSide, askSide domain.SideAggregate,
	bestBid, bestAsk float64,
	spread domain.Spread,
) domain.DepthReport {
	bidVol := bidSide.TotalVolume
	askVol := askSide.TotalVolume

	imbalance := 0.0
	if total := bidVol + askVol; total > 0 {
		imbalance = clamp((bidVol-askVol)/total, -1, 1)
	}

	signal := domain.SignalNeutral
	switch {
	case imbalance >= a.cfg.ImbalanceThreshold:
		signal = domain.SignalBullish
	case imbalance <= -a.cfg.ImbalanceThreshold:
		signal = domain.SignalBearish
	}

	score := a.liquidityScore(bidVol+askVol, snap.NumOrders(), spread.Percentage)

	return domain.DepthReport{
		Pair:            snap.Pair,
		BestBid:         bestBid,
		BestAsk:         bestAsk,
		BidTotalVolume:  bidVol,
		AskTotalVolume:  askVol,
		ImbalanceRatio:  imbalance,
		Signal:          signal,
		LiquidityScore:  score,
		LiquidityRating: liquidityRating(score),
	}
}

// liquidityScore blends normalised total volume, order count, and the
// inverted spread percentage into a 0-100 score. Non-decreasing in
// volume and order count, non-increasing in spread%.
func (a *Analyzer) liquidityScore(totalVolume float64, numOrders int, spreadPct float64) float64 {
	nv := math.Min(1, totalVolume/a.cfg.VolumeNorm)
	no := math.Min(1, float64(numOrders)/a.cfg.OrdersNorm)
	ns := 1 - math.Min(1, math.Max(0, spreadPct)/a.cfg.SpreadNormPct)

	weightSum := a.cfg.WeightVolume + a.cfg.WeightOrders + a.cfg.WeightSpread
	score := 100 * (a.cfg.WeightVolume*nv + a.cfg.WeightOrders*no + a.cfg.WeightSpread*ns) / weightSum
	return clamp(score, 0, 100)
}

// liquidityRating buckets the score into an operator-facing label.
func liquidityRating(score float64) string {
	switch {
	case score >= 75:
		return "EXCELLENT"
	case score >= 50:
		return "GOOD"
	case score >= 25:
		return "FAIR"
	default:
		return "POOR"
	}
}

// percentile uses linear interpolation between ranks.
// sorted must be pre-sorted ascending; p is in [0,1].
func percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return sorted[0]
	}

	idx := p * float64(n-1)
	lower := int(idx)
	upper := lower + 1
	if upper >= n {
		return sorted[n-1]
	}

	frac := idx - float64(lower)
	return sorted[lower] + frac*(sorted[upper]-sorted[lower])
}

func maxPrice(orders []domain.RawOrder) float64 {
	best := orders[0].Price
	for _, o := range orders[1:] {
		if o.Price > best {
			best = o.Price
		}
	}
	return best
}

func minPrice(orders []domain.RawOrder) float64 {
	best := orders[0].Price
	for _, o := range orders[1:] {
		if o.Price < best {
			best = o.Price
		}
	}
	return best
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
