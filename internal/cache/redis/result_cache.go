package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/YoelDevSoft1/ProyectoP2P-sub002/internal/domain"
)

// ResultCache implements domain.ResultCache. Each pair's latest
// published result is stored as one JSON value at "result:{pair}", so a
// write replaces the whole result atomically and readers can never see a
// half-updated mix of aggregate and quote.
type ResultCache struct {
	rdb *redis.Client
}

// NewResultCache creates a ResultCache backed by the given Client.
func NewResultCache(c *Client) *ResultCache {
	return &ResultCache{rdb: c.Underlying()}
}

func resultKey(pair domain.Pair) string {
	return "result:" + pair.Key()
}

// SetResult stores the result as the pair's latest.
func (rc *ResultCache) SetResult(ctx context.Context, res *domain.PairResult) error {
	payload, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("redis: encode result %s: %w", res.Pair, err)
	}
	if err := rc.rdb.Set(ctx, resultKey(res.Pair), payload, 0).Err(); err != nil {
		return fmt.Errorf("redis: set result %s: %w", res.Pair, err)
	}
	return nil
}

// GetResult returns the latest published result for the pair, or
// domain.ErrNotFound when none has been published yet.
func (rc *ResultCache) GetResult(ctx context.Context, pair domain.Pair) (*domain.PairResult, error) {
	payload, err := rc.rdb.Get(ctx, resultKey(pair)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("redis: get result %s: %w", pair, err)
	}

	var res domain.PairResult
	if err := json.Unmarshal(payload, &res); err != nil {
		return nil, fmt.Errorf("redis: decode result %s: %w", pair, err)
	}
	return &res, nil
}

// ListResults returns the latest results for the given pairs, skipping
// pairs that have none. The single MGET keeps the read consistent
// enough for the dashboard without cross-pair locking.
func (rc *ResultCache) ListResults(ctx context.Context, pairs []domain.Pair) ([]*domain.PairResult, error) {
	if len(pairs) == 0 {
		return nil, nil
	}

	keys := make([]string, len(pairs))
	for i, p := range pairs {
		keys[i] = resultKey(p)
	}

	vals, err := rc.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: list results: %w", err)
	}

	out := make([]*domain.PairResult, 0, len(vals))
	for i, v := range vals {
		if v == nil {
			continue
		}
		s, ok := v.(string)
		if !ok {
			continue
		}
		var res domain.PairResult
		if err := json.Unmarshal([]byte(s), &res); err != nil {
			return nil, fmt.Errorf("redis: decode result %s: %w", pairs[i], err)
		}
		out = append(out, &res)
	}
	return out, nil
}

// Compile-time interface check.
var _ domain.ResultCache = (*ResultCache)(nil)
