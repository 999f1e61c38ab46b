package strategy

import (
	"errors"
	"math"
	"testing"

	"github.com/YoelDevSoft1/ProyectoP2P-sub002/internal/domain"
)

func testConfig() Config {
	return Config{
		UndercutBuyPct:  0.5,
		UndercutSellPct: 0.5,
		MaxUndercutPct:  2.0,
		FeesPct:         0.35,
		MinMarginPct:    0.2,
	}
}

func aggWith(buyVWAP, sellVWAP float64) domain.MarketAggregate {
	return domain.MarketAggregate{
		Pair:    domain.NewPair("USDT", "VES"),
		BidSide: domain.SideAggregate{VWAP: buyVWAP},
		AskSide: domain.SideAggregate{VWAP: sellVWAP},
	}
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestQuoteHappyPath(t *testing.T) {
	e := NewEngine(testConfig())

	q, err := e.Quote(aggWith(4000, 4100))
	if err != nil {
		t.Fatalf("Quote() error = %v", err)
	}

	if got, want := q.OurBuyPrice, 4020.0; !almostEqual(got, want) {
		t.Errorf("our buy = %v, want %v", got, want)
	}
	if got, want := q.OurSellPrice, 4079.5; !almostEqual(got, want) {
		t.Errorf("our sell = %v, want %v", got, want)
	}
	if got, want := q.GrossMarginPct, (4079.5-4020)/4020*100; !almostEqual(got, want) {
		t.Errorf("gross margin = %v, want %v", got, want)
	}
	if got, want := q.NetMarginPct, q.GrossMarginPct-0.35; !almostEqual(got, want) {
		t.Errorf("net margin = %v, want %v", got, want)
	}
	if !q.IsProfitable {
		t.Error("IsProfitable = false, want true")
	}
	if !almostEqual(q.BuyAdvantagePct, 0.5) || !almostEqual(q.SellAdvantagePct, 0.5) {
		t.Errorf("advantages = %v/%v, want 0.5/0.5", q.BuyAdvantagePct, q.SellAdvantagePct)
	}

	// avg advantage 0.5 on a 0.2..2.0 scale.
	if got, want := q.OverallScore, (0.5-0.2)/(2.0-0.2)*100; !almostEqual(got, want) {
		t.Errorf("score = %v, want %v", got, want)
	}
	if q.Rating != "WEAK" {
		t.Errorf("rating = %v, want WEAK", q.Rating)
	}
}

func TestQuoteRejectsBadMarkets(t *testing.T) {
	e := NewEngine(testConfig())

	tests := []struct {
		name string
		agg  domain.MarketAggregate
	}{
		{"crossed market", aggWith(4100, 4000)},
		{"flat market", aggWith(4000, 4000)},
		{"zero buy vwap", aggWith(0, 4000)},
		{"negative sell vwap", aggWith(4000, -1)},
		// Spread narrower than the undercuts: our own prices would cross.
		{"undercuts cross", aggWith(4000, 4001)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := e.Quote(tt.agg)
			if !errors.Is(err, domain.ErrUnprofitableMarket) {
				t.Fatalf("Quote() error = %v, want ErrUnprofitableMarket", err)
			}
			if q != nil {
				t.Errorf("Quote() = %+v, want nil", q)
			}
		})
	}
}

func TestQuoteNeverReturnsNegativeGrossMargin(t *testing.T) {
	e := NewEngine(testConfig())

	for sell := 4001.0; sell <= 4300; sell += 7 {
		q, err := e.Quote(aggWith(4000, sell))
		if err != nil {
			if !errors.Is(err, domain.ErrUnprofitableMarket) {
				t.Fatalf("sell %v: error = %v, want ErrUnprofitableMarket", sell, err)
			}
			continue
		}
		if q.GrossMarginPct < 0 {
			t.Fatalf("sell %v: negative gross margin %v", sell, q.GrossMarginPct)
		}
	}
}

func TestQuoteCapsUndercuts(t *testing.T) {
	e := NewEngine(Config{
		UndercutBuyPct:  5,
		UndercutSellPct: 5,
		MaxUndercutPct:  2,
		FeesPct:         0.35,
		MinMarginPct:    0.2,
	})

	q, err := e.Quote(aggWith(100, 110))
	if err != nil {
		t.Fatalf("Quote() error = %v", err)
	}
	if got, want := q.OurBuyPrice, 102.0; !almostEqual(got, want) {
		t.Errorf("our buy = %v, want %v (undercut capped at 2%%)", got, want)
	}
	if got, want := q.OurSellPrice, 107.8; !almostEqual(got, want) {
		t.Errorf("our sell = %v, want %v (undercut capped at 2%%)", got, want)
	}

	// Both advantages sit at the cap, so the score tops out.
	if !almostEqual(q.OverallScore, 100) {
		t.Errorf("score = %v, want 100", q.OverallScore)
	}
	if q.Rating != "EXCELLENT" {
		t.Errorf("rating = %v, want EXCELLENT", q.Rating)
	}
}

func TestQuoteUnprofitableAfterFees(t *testing.T) {
	// Gross margin around 1.48% with a 5% fee: quoted, but flagged.
	cfg := testConfig()
	cfg.FeesPct = 5
	e := NewEngine(cfg)

	q, err := e.Quote(aggWith(4000, 4100))
	if err != nil {
		t.Fatalf("Quote() error = %v", err)
	}
	if q.NetMarginPct >= 0 {
		t.Fatalf("net margin = %v, want negative", q.NetMarginPct)
	}
	if q.IsProfitable {
		t.Error("IsProfitable = true, want false")
	}
}

func TestOverallScoreDegenerateScale(t *testing.T) {
	// When the cap does not exceed the margin floor the linear scale
	// collapses to a step function.
	e := NewEngine(Config{MinMarginPct: 1, MaxUndercutPct: 1})

	if got := e.overallScore(0.4, 0.4); got != 0 {
		t.Errorf("score below floor = %v, want 0", got)
	}
	if got := e.overallScore(1, 1); got != 100 {
		t.Errorf("score at floor = %v, want 100", got)
	}
	if got := e.overallScore(3, 3); got != 100 {
		t.Errorf("score above floor = %v, want 100", got)
	}
}

func TestOverallScoreBounds(t *testing.T) {
	e := NewEngine(testConfig())

	if got := e.overallScore(0, 0); got != 0 {
		t.Errorf("score for zero advantage = %v, want 0", got)
	}
	if got := e.overallScore(10, 10); got != 100 {
		t.Errorf("score past the cap = %v, want 100", got)
	}

	// Monotone in the mean advantage.
	prev := -1.0
	for avg := 0.0; avg <= 3; avg += 0.1 {
		got := e.overallScore(avg, avg)
		if got < prev {
			t.Fatalf("score not monotone at avg %v: %v < %v", avg, got, prev)
		}
		prev = got
	}
}

func TestScoreRating(t *testing.T) {
	tests := []struct {
		score float64
		want  string
	}{
		{100, "EXCELLENT"},
		{75, "EXCELLENT"},
		{74.9, "COMPETITIVE"},
		{50, "COMPETITIVE"},
		{49.9, "MARGINAL"},
		{25, "MARGINAL"},
		{24.9, "WEAK"},
		{0, "WEAK"},
	}

	for _, tt := range tests {
		if got := scoreRating(tt.score); got != tt.want {
			t.Errorf("scoreRating(%v) = %v, want %v", tt.score, got, tt.want)
		}
	}
}
