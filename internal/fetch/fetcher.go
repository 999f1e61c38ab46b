package fetch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/YoelDevSoft1/ProyectoP2P-sub002/internal/domain"
)

// SideLister retrieves one side of the listings for a pair from the
// upstream marketplace.
type SideLister interface {
	FetchSide(ctx context.Context, pair domain.Pair, side domain.Side) ([]domain.RawOrder, error)
}

// Fetcher fetches full order book snapshots through the pacing gate,
// retrying transient failures with exponential backoff. Each attempt
// acquires fresh permits; the backoff sleep never holds one, so a
// backing-off pair does not block other callers.
type Fetcher struct {
	gate        *Gate
	client      SideLister
	maxRetries  int
	backoffBase time.Duration
	logger      *slog.Logger

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewFetcher creates a Fetcher. maxRetries is the number of retries
// after the first attempt; backoffBase is the first retry delay, doubled
// on each subsequent retry.
func NewFetcher(gate *Gate, client SideLister, maxRetries int, backoffBase time.Duration, logger *slog.Logger) *Fetcher {
	return &Fetcher{
		gate:        gate,
		client:      client,
		maxRetries:  maxRetries,
		backoffBase: backoffBase,
		logger:      logger.With(slog.String("component", "fetcher")),
		now:         time.Now,
		sleep:       sleepCtx,
	}
}

// Fetch retrieves both sides of the pair's book and assembles a fresh
// snapshot. RateLimited and Unavailable failures are retried up to the
// configured budget; Malformed responses fail immediately as
// data-integrity errors. When the budget is exhausted the last error is
// wrapped in a *domain.FetchExhaustedError.
func (f *Fetcher) Fetch(ctx context.Context, pair domain.Pair) (*domain.OrderBookSnapshot, error) {
	var lastErr error

	for attempt := 0; attempt <= f.maxRetries; attempt++ {
		if attempt > 0 {
			delay := f.backoffBase << (attempt - 1)
			f.logger.WarnContext(ctx, "retrying fetch",
				slog.String("pair", pair.String()),
				slog.Int("attempt", attempt+1),
				slog.Duration("backoff", delay),
				slog.String("error", lastErr.Error()),
			)
			if err := f.sleep(ctx, delay); err != nil {
				return nil, fmt.Errorf("fetch %s: %w", pair, err)
			}
		}

		snap, err := f.fetchOnce(ctx, pair)
		if err == nil {
			return snap, nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		if !domain.IsTransient(err) {
			return nil, err
		}
		lastErr = err
	}

	return nil, &domain.FetchExhaustedError{
		Pair:     pair,
		Attempts: f.maxRetries + 1,
		Err:      lastErr,
	}
}

// fetchOnce performs a single attempt: one gated request per side.
func (f *Fetcher) fetchOnce(ctx context.Context, pair domain.Pair) (*domain.OrderBookSnapshot, error) {
	bids, err := f.fetchSide(ctx, pair, domain.SideBuy)
	if err != nil {
		return nil, err
	}

	asks, err := f.fetchSide(ctx, pair, domain.SideSell)
	if err != nil {
		return nil, err
	}

	return &domain.OrderBookSnapshot{
		Pair:      pair,
		FetchedAt: f.now().UTC(),
		Bids:      bids,
		Asks:      asks,
	}, nil
}

// fetchSide issues one upstream request under a gate permit. The permit
// is held only for the duration of the request itself.
func (f *Fetcher) fetchSide(ctx context.Context, pair domain.Pair, side domain.Side) ([]domain.RawOrder, error) {
	permit, err := f.gate.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch %s %s: acquire permit: %w", pair, side, err)
	}
	defer permit.Release()

	return f.client.FetchSide(ctx, pair, side)
}

// sleepCtx sleeps for d, honouring context cancellation.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
