// Package strategy contains the pricing strategy engine: the pure
// function that turns a market aggregate plus fee and margin
// configuration into a recommended two-sided quote.
package strategy

import (
	"fmt"

	"github.com/YoelDevSoft1/ProyectoP2P-sub002/internal/domain"
)

// Config holds the pricing engine parameters. All percentages are in
// percent, not fractions.
type Config struct {
	// UndercutBuyPct is how far above the bid-side VWAP our buy price
	// goes to out-bid competing buyers.
	UndercutBuyPct float64
	// UndercutSellPct is how far below the ask-side VWAP our sell price
	// goes to undercut competing sellers.
	UndercutSellPct float64
	// MaxUndercutPct caps both undercuts so a noisy VWAP can never pull
	// the quote arbitrarily far from the market.
	MaxUndercutPct float64
	// FeesPct is the round-trip marketplace fee deducted from the gross
	// margin.
	FeesPct float64
	// MinMarginPct is the minimum acceptable net margin; it floors the
	// advantage-to-score mapping.
	MinMarginPct float64
}

// Engine derives competitive quotes from market aggregates.
type Engine struct {
	cfg Config
}

// NewEngine creates a pricing Engine.
func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

// Quote computes the recommended two-sided quote for one pair.
//
// The buy price beats the bid-side VWAP by the configured undercut, the
// sell price beats the ask-side VWAP symmetrically, and both undercuts
// are capped at MaxUndercutPct so the quote never diverges from the
// market beyond the configured bound.
//
// Quote never returns a quote with a negative gross margin: a crossed
// market (ask-side VWAP at or below bid-side VWAP), or an undercut pair
// that would cross our own prices, fails with
// domain.ErrUnprofitableMarket and leaves suppression to the caller.
func (e *Engine) Quote(agg domain.MarketAggregate) (*domain.CompetitiveQuote, error) {
	marketBuyVWAP := agg.BidSide.VWAP
	marketSellVWAP := agg.AskSide.VWAP

	if marketBuyVWAP <= 0 || marketSellVWAP <= 0 {
		return nil, fmt.Errorf("quote %s: non-positive market VWAP: %w", agg.Pair, domain.ErrUnprofitableMarket)
	}
	if marketSellVWAP <= marketBuyVWAP {
		return nil, fmt.Errorf("quote %s: crossed market (sell vwap %.4f <= buy vwap %.4f): %w",
			agg.Pair, marketSellVWAP, marketBuyVWAP, domain.ErrUnprofitableMarket)
	}

	buyUndercut := capPct(e.cfg.UndercutBuyPct, e.cfg.MaxUndercutPct)
	sellUndercut := capPct(e.cfg.UndercutSellPct, e.cfg.MaxUndercutPct)

	ourBuy := marketBuyVWAP * (1 + buyUndercut/100)
	ourSell := marketSellVWAP * (1 - sellUndercut/100)

	grossMargin := (ourSell - ourBuy) / ourBuy * 100
	if grossMargin < 0 {
		return nil, fmt.Errorf("quote %s: undercuts cross the book (buy %.4f, sell %.4f): %w",
			agg.Pair, ourBuy, ourSell, domain.ErrUnprofitableMarket)
	}

	netMargin := grossMargin - e.cfg.FeesPct

	buyAdvantage := (ourBuy - marketBuyVWAP) / marketBuyVWAP * 100
	sellAdvantage := (marketSellVWAP - ourSell) / marketSellVWAP * 100

	score := e.overallScore(buyAdvantage, sellAdvantage)

	return &domain.CompetitiveQuote{
		Pair:             agg.Pair,
		OurBuyPrice:      ourBuy,
		OurSellPrice:     ourSell,
		MarketBuyVWAP:    marketBuyVWAP,
		MarketSellVWAP:   marketSellVWAP,
		BuyAdvantagePct:  buyAdvantage,
		SellAdvantagePct: sellAdvantage,
		OverallScore:     score,
		Rating:           scoreRating(score),
		GrossMarginPct:   grossMargin,
		FeesPct:          e.cfg.FeesPct,
		NetMarginPct:     netMargin,
		IsProfitable:     netMargin > 0,
	}, nil
}

// overallScore maps the mean advantage onto 0-100 with a bounded linear
// function: the minimum acceptable margin scores 0, the maximum
// undercut scores 100. The exact shape is tuning, the monotone mapping
// is the contract.
func (e *Engine) overallScore(buyAdvantage, sellAdvantage float64) float64 {
	avg := (buyAdvantage + sellAdvantage) / 2

	floor := e.cfg.MinMarginPct
	ceil := e.cfg.MaxUndercutPct
	if ceil <= floor {
		if avg >= floor {
			return 100
		}
		return 0
	}

	score := (avg - floor) / (ceil - floor) * 100
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// scoreRating buckets the overall score into an operator-facing label.
func scoreRating(score float64) string {
	switch {
	case score >= 75:
		return "EXCELLENT"
	case score >= 50:
		return "COMPETITIVE"
	case score >= 25:
		return "MARGINAL"
	default:
		return "WEAK"
	}
}

func capPct(v, max float64) float64 {
	if v > max {
		return max
	}
	return v
}
