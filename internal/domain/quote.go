package domain

// CompetitiveQuote is the two-sided quote the pricing engine recommends
// for one pair, recomputed fresh every cycle and never mutated.
//
// OurBuyPrice undercuts the market bid-side VWAP (we pay slightly more
// than competing buyers); OurSellPrice undercuts the ask-side VWAP (we
// charge slightly less than competing sellers). Margins are quoted in
// percent; IsProfitable means the net margin after fees is positive.
type CompetitiveQuote struct {
	Pair             Pair    `json:"pair"`
	OurBuyPrice      float64 `json:"our_buy_price"`
	OurSellPrice     float64 `json:"our_sell_price"`
	MarketBuyVWAP    float64 `json:"market_buy_vwap"`
	MarketSellVWAP   float64 `json:"market_sell_vwap"`
	BuyAdvantagePct  float64 `json:"buy_advantage_pct"`
	SellAdvantagePct float64 `json:"sell_advantage_pct"`
	OverallScore     float64 `json:"overall_score"`
	Rating           string  `json:"rating"`
	GrossMarginPct   float64 `json:"gross_margin_pct"`
	FeesPct          float64 `json:"fees_pct"`
	NetMarginPct     float64 `json:"net_margin_pct"`
	IsProfitable     bool    `json:"is_profitable"`
}
