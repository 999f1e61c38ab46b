package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/YoelDevSoft1/ProyectoP2P-sub002/internal/domain"
)

// QuoteStore records every published competitive quote so pricing
// behaviour can be audited after the fact.
type QuoteStore struct {
	pool *pgxpool.Pool
}

func NewQuoteStore(pool *pgxpool.Pool) *QuoteStore {
	return &QuoteStore{pool: pool}
}

// Insert appends one quote row for the given cycle.
func (s *QuoteStore) Insert(ctx context.Context, cycleID string, q *domain.CompetitiveQuote, at time.Time) error {
	const query = `
		INSERT INTO p2p_quotes (
			cycle_id, asset, fiat, computed_at,
			market_buy_vwap, market_sell_vwap,
			our_buy_price, our_sell_price,
			gross_margin_pct, net_margin_pct,
			overall_score, is_profitable
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := s.pool.Exec(ctx, query,
		cycleID, q.Pair.Asset, q.Pair.Fiat, at,
		q.MarketBuyVWAP, q.MarketSellVWAP,
		q.OurBuyPrice, q.OurSellPrice,
		q.GrossMarginPct, q.NetMarginPct,
		q.OverallScore, q.IsProfitable,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert quote %s: %w", q.Pair, err)
	}
	return nil
}

var _ domain.QuoteStore = (*QuoteStore)(nil)
