// Package pipeline coordinates the refresh cycle: fetching order books
// for the configured pair universe, aggregating them, pricing them, and
// publishing the per-pair results.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/YoelDevSoft1/ProyectoP2P-sub002/internal/domain"
)

// Orchestrator states as reported by State.
const (
	StateIdle     = "idle"
	StateRunning  = "running"
	StateSleeping = "sleeping"
)

// cycleLockKey is the distributed lock key guarding the refresh cycle.
const cycleLockKey = "cycle"

// SnapshotFetcher retrieves a fresh order book snapshot for one pair.
type SnapshotFetcher interface {
	Fetch(ctx context.Context, pair domain.Pair) (*domain.OrderBookSnapshot, error)
}

// SnapshotCache provides the latest snapshot per pair with a freshness
// flag. The in-memory cache satisfies this.
type SnapshotCache interface {
	Put(pair domain.Pair, snap *domain.OrderBookSnapshot)
	Get(pair domain.Pair) (*domain.OrderBookSnapshot, error)
	IsExpired(pair domain.Pair) bool
}

// Aggregator folds a snapshot into aggregate statistics and a depth
// report.
type Aggregator interface {
	Aggregate(snap *domain.OrderBookSnapshot) (domain.MarketAggregate, domain.DepthReport, error)
}

// Quoter derives a competitive quote from aggregate statistics.
type Quoter interface {
	Quote(agg domain.MarketAggregate) (*domain.CompetitiveQuote, error)
}

// Config tunes the orchestrator cadence.
type Config struct {
	Pairs         []domain.Pair
	CycleInterval time.Duration
	BatchSize     int
	BatchGap      time.Duration
}

// Orchestrator runs the refresh cycle over the configured pair universe.
// Pairs are fetched in batches; every pair inside a batch is processed
// concurrently and failures are isolated, so one broken pair never
// cancels its siblings. At most one cycle runs at a time per process,
// and the optional lock manager extends that guarantee across processes.
type Orchestrator struct {
	cfg      Config
	fetcher  SnapshotFetcher
	cache    SnapshotCache
	analyzer Aggregator
	engine   Quoter
	results  domain.ResultCache
	pub      domain.Publisher
	logger   *slog.Logger

	// Optional collaborators; nil disables the concern.
	locks     domain.LockManager
	snapshots domain.SnapshotStore
	quotes    domain.QuoteStore
	archiver  *Archiver

	running atomic.Bool
	state   atomic.Value

	mu         sync.RWMutex
	lastReport *domain.CycleReport

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewOrchestrator wires the cycle collaborators together. locks,
// snapshots, quotes, and archiver may be nil.
func NewOrchestrator(
	cfg Config,
	fetcher SnapshotFetcher,
	cache SnapshotCache,
	analyzer Aggregator,
	engine Quoter,
	results domain.ResultCache,
	pub domain.Publisher,
	logger *slog.Logger,
) *Orchestrator {
	o := &Orchestrator{
		cfg:      cfg,
		fetcher:  fetcher,
		cache:    cache,
		analyzer: analyzer,
		engine:   engine,
		results:  results,
		pub:      pub,
		logger:   logger.With(slog.String("component", "orchestrator")),
		now:      time.Now,
		sleep:    sleepCtx,
	}
	o.state.Store(StateIdle)
	return o
}

// WithLockManager enables the cross-process cycle lock.
func (o *Orchestrator) WithLockManager(locks domain.LockManager) *Orchestrator {
	o.locks = locks
	return o
}

// WithStores enables snapshot and quote history persistence.
func (o *Orchestrator) WithStores(snapshots domain.SnapshotStore, quotes domain.QuoteStore) *Orchestrator {
	o.snapshots = snapshots
	o.quotes = quotes
	return o
}

// WithArchiver attaches the cold-storage archiver to Run's schedule.
func (o *Orchestrator) WithArchiver(a *Archiver) *Orchestrator {
	o.archiver = a
	return o
}

// State returns the orchestrator's current lifecycle state.
func (o *Orchestrator) State() string {
	return o.state.Load().(string)
}

// LastReport returns the report of the most recently completed cycle,
// or nil when no cycle has run yet.
func (o *Orchestrator) LastReport() *domain.CycleReport {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.lastReport
}

// Run executes refresh cycles on the configured interval until ctx is
// cancelled. The first cycle starts immediately. When an archiver is
// attached it runs on its own cron schedule alongside the cycle loop.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.logger.Info("orchestrator starting",
		slog.Int("pairs", len(o.cfg.Pairs)),
		slog.Duration("cycle_interval", o.cfg.CycleInterval),
		slog.Int("batch_size", o.cfg.BatchSize),
	)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := o.runLoop(ctx)
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("cycle loop: %w", err)
	})

	if o.archiver != nil {
		g.Go(func() error {
			err := o.archiver.RunCron(ctx)
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("archiver: %w", err)
		})
	}

	err := g.Wait()
	o.state.Store(StateIdle)
	if err != nil {
		o.logger.Error("orchestrator stopped with error", slog.String("error", err.Error()))
		return err
	}
	o.logger.Info("orchestrator stopped cleanly")
	return nil
}

// runLoop alternates cycles with sleeps. A failed cycle is logged and
// the loop carries on; only context cancellation stops it.
func (o *Orchestrator) runLoop(ctx context.Context) error {
	for {
		if _, err := o.RunCycle(ctx); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return ctx.Err()
			}
			o.logger.Error("cycle failed", slog.String("error", err.Error()))
		}

		o.state.Store(StateSleeping)
		if err := o.sleep(ctx, o.cfg.CycleInterval); err != nil {
			return err
		}
	}
}

// RunCycle executes one full refresh cycle and returns its report.
// A second call while a cycle is in flight returns ErrCycleRunning
// without touching any state.
func (o *Orchestrator) RunCycle(ctx context.Context) (*domain.CycleReport, error) {
	if !o.running.CompareAndSwap(false, true) {
		return nil, domain.ErrCycleRunning
	}
	defer o.running.Store(false)

	return o.runCycle(ctx)
}

// TriggerCycle starts one cycle in the background, for the manual
// pipeline endpoint. The in-flight check happens synchronously so the
// caller can report a conflict; the cycle itself detaches from the
// request context.
func (o *Orchestrator) TriggerCycle() error {
	if !o.running.CompareAndSwap(false, true) {
		return domain.ErrCycleRunning
	}

	go func() {
		defer o.running.Store(false)
		if _, err := o.runCycle(context.Background()); err != nil {
			o.logger.Error("triggered cycle failed", slog.String("error", err.Error()))
		}
	}()
	return nil
}

// runCycle is the cycle body. The caller holds the running flag.
func (o *Orchestrator) runCycle(ctx context.Context) (*domain.CycleReport, error) {
	if o.locks != nil {
		unlock, err := o.locks.Acquire(ctx, cycleLockKey, o.cfg.CycleInterval)
		if err != nil {
			if errors.Is(err, domain.ErrLockHeld) {
				return nil, fmt.Errorf("cycle lock: %w", domain.ErrCycleRunning)
			}
			return nil, fmt.Errorf("cycle lock: %w", err)
		}
		defer unlock()
	}

	prev := o.State()
	o.state.Store(StateRunning)
	defer o.state.Store(prev)

	started := o.now().UTC()
	report := &domain.CycleReport{
		CycleID:   uuid.NewString(),
		StartedAt: started,
	}

	o.logger.Info("cycle starting",
		slog.String("cycle_id", report.CycleID),
		slog.Int("pairs", len(o.cfg.Pairs)),
	)

	for start := 0; start < len(o.cfg.Pairs); start += o.cfg.BatchSize {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		end := start + o.cfg.BatchSize
		if end > len(o.cfg.Pairs) {
			end = len(o.cfg.Pairs)
		}
		o.runBatch(ctx, report, o.cfg.Pairs[start:end])

		if end < len(o.cfg.Pairs) && o.cfg.BatchGap > 0 {
			if err := o.sleep(ctx, o.cfg.BatchGap); err != nil {
				return nil, err
			}
		}
	}

	report.Duration = o.now().UTC().Sub(started)

	o.mu.Lock()
	o.lastReport = report
	o.mu.Unlock()

	if err := o.pub.PublishCycle(ctx, report); err != nil {
		o.logger.Warn("publish cycle report", slog.String("error", err.Error()))
	}

	o.logger.Info("cycle complete",
		slog.String("cycle_id", report.CycleID),
		slog.Duration("duration", report.Duration),
		slog.Int("fresh", report.Fresh),
		slog.Int("stale", report.Stale),
		slog.Int("failed", report.Failed),
	)

	return report, nil
}

// pairOutcome is the per-pair result collected from a batch.
type pairOutcome struct {
	pair  domain.Pair
	stale bool
	err   error
}

// runBatch processes one batch of pairs concurrently and folds the
// outcomes into the report. plain WaitGroup rather than errgroup: a
// failing pair must not cancel the rest of the batch.
func (o *Orchestrator) runBatch(ctx context.Context, report *domain.CycleReport, pairs []domain.Pair) {
	outcomes := make(chan pairOutcome, len(pairs))

	var wg sync.WaitGroup
	for _, pair := range pairs {
		wg.Add(1)
		go func(pair domain.Pair) {
			defer wg.Done()
			stale, err := o.processPair(ctx, report.CycleID, pair)
			outcomes <- pairOutcome{pair: pair, stale: stale, err: err}
		}(pair)
	}
	wg.Wait()
	close(outcomes)

	for out := range outcomes {
		report.Attempted++
		switch {
		case out.err != nil:
			report.Failed++
			report.FailedPairs = append(report.FailedPairs, out.pair.String())
			o.logger.Warn("pair failed",
				slog.String("cycle_id", report.CycleID),
				slog.String("pair", out.pair.String()),
				slog.String("error", out.err.Error()),
			)
		case out.stale:
			report.Stale++
		default:
			report.Fresh++
		}
	}
}

// processPair refreshes a single pair: fetch, fall back to the cached
// snapshot on failure, aggregate, price, persist, and publish. The
// returned bool reports whether the published result was stale.
func (o *Orchestrator) processPair(ctx context.Context, cycleID string, pair domain.Pair) (bool, error) {
	snap, stale, err := o.refreshSnapshot(ctx, pair)
	if err != nil {
		return false, err
	}

	agg, depth, err := o.analyzer.Aggregate(snap)
	if err != nil {
		return false, fmt.Errorf("aggregate %s: %w", pair, err)
	}

	res := &domain.PairResult{
		Pair:       pair,
		CycleID:    cycleID,
		FetchedAt:  snap.FetchedAt,
		ComputedAt: o.now().UTC(),
		IsStale:    stale,
		Aggregate:  agg,
		Depth:      depth,
	}

	quote, err := o.engine.Quote(agg)
	switch {
	case err == nil:
		res.Quote = quote
	case errors.Is(err, domain.ErrUnprofitableMarket):
		res.QuoteError = err.Error()
		o.logger.Debug("no quote for pair",
			slog.String("pair", pair.String()),
			slog.String("reason", err.Error()),
		)
	default:
		return false, fmt.Errorf("quote %s: %w", pair, err)
	}

	if err := o.results.SetResult(ctx, res); err != nil {
		return false, fmt.Errorf("store result %s: %w", pair, err)
	}
	if err := o.pub.PublishResult(ctx, res); err != nil {
		o.logger.Warn("publish result",
			slog.String("pair", pair.String()),
			slog.String("error", err.Error()),
		)
	}
	if o.quotes != nil && res.Quote != nil {
		if err := o.quotes.Insert(ctx, cycleID, res.Quote, res.ComputedAt); err != nil {
			o.logger.Warn("persist quote",
				slog.String("pair", pair.String()),
				slog.String("error", err.Error()),
			)
		}
	}

	return stale, nil
}

// refreshSnapshot fetches a fresh snapshot for the pair, falling back to
// the cached one when the fetch fails. The fallback is flagged stale
// only once it is past its TTL. A pair with no cached snapshot at all
// fails outright.
func (o *Orchestrator) refreshSnapshot(ctx context.Context, pair domain.Pair) (*domain.OrderBookSnapshot, bool, error) {
	snap, err := o.fetcher.Fetch(ctx, pair)
	if err == nil {
		o.cache.Put(pair, snap)
		if o.snapshots != nil {
			if serr := o.snapshots.Insert(ctx, snap); serr != nil {
				o.logger.Warn("persist snapshot",
					slog.String("pair", pair.String()),
					slog.String("error", serr.Error()),
				)
			}
		}
		return snap, false, nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil, false, err
	}

	cached, cacheErr := o.cache.Get(pair)
	if cacheErr != nil {
		return nil, false, fmt.Errorf("fetch %s with no cached fallback: %w", pair, err)
	}

	expired := o.cache.IsExpired(pair)
	o.logger.Warn("serving cached snapshot after fetch failure",
		slog.String("pair", pair.String()),
		slog.Bool("expired", expired),
		slog.String("error", err.Error()),
	)
	cached.IsStale = expired
	return cached, expired, nil
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
