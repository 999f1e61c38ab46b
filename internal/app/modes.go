package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/YoelDevSoft1/ProyectoP2P-sub002/internal/analytics"
	"github.com/YoelDevSoft1/ProyectoP2P-sub002/internal/cache/memory"
	"github.com/YoelDevSoft1/ProyectoP2P-sub002/internal/fetch"
	"github.com/YoelDevSoft1/ProyectoP2P-sub002/internal/pipeline"
	"github.com/YoelDevSoft1/ProyectoP2P-sub002/internal/platform/binance"
	"github.com/YoelDevSoft1/ProyectoP2P-sub002/internal/server"
	"github.com/YoelDevSoft1/ProyectoP2P-sub002/internal/server/handler"
	"github.com/YoelDevSoft1/ProyectoP2P-sub002/internal/server/ws"
	"github.com/YoelDevSoft1/ProyectoP2P-sub002/internal/strategy"
)

// RunMode runs the full service: the refresh cycle loop plus the HTTP
// and WebSocket API.
func (a *App) RunMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting run mode")

	orch, err := a.buildOrchestrator(deps)
	if err != nil {
		return fmt.Errorf("run mode: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return orch.Run(ctx)
	})

	a.startAPIServer(ctx, g, deps, orch)

	return g.Wait()
}

// PipelineMode runs the refresh cycle loop headless, without the API.
func (a *App) PipelineMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting pipeline mode")

	orch, err := a.buildOrchestrator(deps)
	if err != nil {
		return fmt.Errorf("pipeline mode: %w", err)
	}
	return orch.Run(ctx)
}

// OnceMode runs a single refresh cycle and exits. Useful for cron jobs
// and smoke tests.
func (a *App) OnceMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting once mode")

	orch, err := a.buildOrchestrator(deps)
	if err != nil {
		return fmt.Errorf("once mode: %w", err)
	}

	report, err := orch.RunCycle(ctx)
	if err != nil {
		return fmt.Errorf("once mode: %w", err)
	}

	a.logger.InfoContext(ctx, "cycle finished",
		slog.String("cycle_id", report.CycleID),
		slog.Duration("duration", report.Duration),
		slog.Int("fresh", report.Fresh),
		slog.Int("stale", report.Stale),
		slog.Int("failed", report.Failed),
	)
	return nil
}

// ServerMode serves the API over previously published results without
// running the cycle loop. Manual cycle triggers still work.
func (a *App) ServerMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting server mode")

	orch, err := a.buildOrchestrator(deps)
	if err != nil {
		return fmt.Errorf("server mode: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)
	a.startAPIServer(ctx, g, deps, orch)
	return g.Wait()
}

// buildOrchestrator assembles the fetch, analytics, and pricing stack
// behind the cycle orchestrator.
func (a *App) buildOrchestrator(deps *Dependencies) (*pipeline.Orchestrator, error) {
	pairs, err := a.cfg.Market.ParsedPairs()
	if err != nil {
		return nil, err
	}

	client := binance.NewClient(
		a.cfg.Marketplace.BaseURL,
		a.cfg.Marketplace.UserAgent,
		a.cfg.Market.RowsPerPage,
		time.Duration(a.cfg.Fetch.RequestTimeoutS)*time.Second,
	)

	gate := fetch.NewGate(
		a.cfg.Gate.MaxInflight,
		time.Duration(a.cfg.Gate.MinIntervalMs)*time.Millisecond,
	)
	fetcher := fetch.NewFetcher(
		gate,
		client,
		a.cfg.Fetch.MaxRetries,
		time.Duration(a.cfg.Fetch.BackoffBaseMs)*time.Millisecond,
		a.logger,
	)

	snapCache := memory.NewSnapshotCache(time.Duration(a.cfg.Market.CacheTTLS) * time.Second)

	analyzer := analytics.New(analytics.Config{
		ImbalanceThreshold: a.cfg.Analytics.ImbalanceThreshold,
		WeightVolume:       a.cfg.Analytics.WeightVolume,
		WeightOrders:       a.cfg.Analytics.WeightOrders,
		WeightSpread:       a.cfg.Analytics.WeightSpread,
		VolumeNorm:         a.cfg.Analytics.VolumeNorm,
		OrdersNorm:         a.cfg.Analytics.OrdersNorm,
		SpreadNormPct:      a.cfg.Analytics.SpreadNormPct,
	})

	engine := strategy.NewEngine(strategy.Config{
		UndercutBuyPct:  a.cfg.Pricing.UndercutBuyPct,
		UndercutSellPct: a.cfg.Pricing.UndercutSellPct,
		MaxUndercutPct:  a.cfg.Pricing.MaxUndercutPct,
		FeesPct:         a.cfg.Pricing.FeesPct,
		MinMarginPct:    a.cfg.Pricing.MinMarginPct,
	})

	orch := pipeline.NewOrchestrator(
		pipeline.Config{
			Pairs:         pairs,
			CycleInterval: time.Duration(a.cfg.Market.CycleIntervalS) * time.Second,
			BatchSize:     a.cfg.Market.BatchSize,
			BatchGap:      time.Duration(a.cfg.Market.BatchGapMs) * time.Millisecond,
		},
		fetcher,
		snapCache,
		analyzer,
		engine,
		deps.Results,
		deps.Publisher,
		a.logger,
	).WithLockManager(deps.Locks)

	if deps.Snapshots != nil {
		orch.WithStores(deps.Snapshots, deps.Quotes)
	}
	if a.cfg.Archive.Enabled && deps.Snapshots != nil && deps.BlobWriter != nil {
		orch.WithArchiver(pipeline.NewArchiver(
			deps.Snapshots,
			deps.BlobWriter,
			a.cfg.Archive.Cron,
			a.cfg.Archive.RetentionDays,
			a.logger,
		))
	}

	return orch, nil
}

// startAPIServer adds the HTTP server and WebSocket hub goroutines to
// the errgroup, with graceful shutdown on context cancellation.
func (a *App) startAPIServer(ctx context.Context, g *errgroup.Group, deps *Dependencies, orch *pipeline.Orchestrator) {
	pairs, err := a.cfg.Market.ParsedPairs()
	if err != nil {
		// Validated at load time; an error here means Wire was handed an
		// unvalidated config.
		pairs = nil
	}

	health := handler.NewHealthHandler(a.logger)
	health.AddCheck("redis", deps.Redis.Ping)
	if deps.Postgres != nil {
		health.AddCheck("postgres", func(ctx context.Context) error {
			return deps.Postgres.Pool().Ping(ctx)
		})
	}

	var history *handler.HistoryHandler
	if deps.Snapshots != nil || deps.BlobReader != nil {
		history = handler.NewHistoryHandler(deps.Snapshots, deps.BlobReader, a.logger)
	}

	hub := ws.NewHub(deps.Publisher, a.cfg.Mode, a.logger)
	g.Go(func() error {
		err := hub.Run(ctx)
		if ctx.Err() != nil {
			return nil
		}
		return err
	})

	srv := server.NewServer(
		server.Config{
			Port:            a.cfg.Server.Port,
			CORSOrigins:     a.cfg.Server.CORSOrigins,
			APIKey:          a.cfg.Server.APIKey,
			RateLimitPerMin: a.cfg.Server.RateLimitPerMin,
		},
		server.Handlers{
			Health:   health,
			Results:  handler.NewResultsHandler(deps.Results, pairs, a.logger),
			Pipeline: handler.NewPipelineHandler(orch, a.logger),
			History:  history,
		},
		hub,
		deps.RateLimiter,
		a.logger,
	)

	g.Go(srv.Start)
	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})
}

var _ handler.CycleRunner = (*pipeline.Orchestrator)(nil)
