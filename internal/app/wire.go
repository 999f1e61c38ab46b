package app

import (
	"context"
	"fmt"
	"log/slog"

	s3blob "github.com/YoelDevSoft1/ProyectoP2P-sub002/internal/blob/s3"
	"github.com/YoelDevSoft1/ProyectoP2P-sub002/internal/cache/redis"
	"github.com/YoelDevSoft1/ProyectoP2P-sub002/internal/config"
	"github.com/YoelDevSoft1/ProyectoP2P-sub002/internal/domain"
	"github.com/YoelDevSoft1/ProyectoP2P-sub002/internal/store/postgres"
)

// Dependencies bundles the external collaborators the operating modes
// need. It is constructed by Wire and torn down by the returned cleanup
// function.
type Dependencies struct {
	// Redis-backed collaborators, always present.
	Redis       *redis.Client
	Results     domain.ResultCache
	Publisher   *redis.Publisher
	Locks       domain.LockManager
	RateLimiter *redis.RateLimiter

	// History stores; nil when the mode runs without PostgreSQL.
	Postgres  *postgres.Client
	Snapshots domain.SnapshotStore
	Quotes    domain.QuoteStore

	// Cold storage; nil unless S3 is enabled.
	BlobWriter domain.BlobWriter
	BlobReader domain.BlobReader
}

// needsPostgres reports whether the mode persists history.
func needsPostgres(mode string) bool {
	switch mode {
	case "run", "pipeline", "once":
		return true
	default:
		return false
	}
}

// Wire constructs the concrete dependency implementations for the
// configured mode, returning them with a cleanup function.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- Redis ---
	redisClient, err := redis.New(ctx, redis.ClientConfig{
		Addr:       cfg.Redis.Addr,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		PoolSize:   cfg.Redis.PoolSize,
		MaxRetries: cfg.Redis.MaxRetries,
		TLSEnabled: cfg.Redis.TLSEnabled,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: redis: %w", err)
	}
	closers = append(closers, func() { _ = redisClient.Close() })

	deps.Redis = redisClient
	deps.Results = redis.NewResultCache(redisClient)
	deps.Publisher = redis.NewPublisher(redisClient)
	deps.Locks = redis.NewLockManager(redisClient)
	deps.RateLimiter = redis.NewRateLimiter(redisClient)

	// --- PostgreSQL ---
	if needsPostgres(cfg.Mode) {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Database.DSN,
			Host:     cfg.Database.Host,
			Port:     cfg.Database.Port,
			Database: cfg.Database.Database,
			User:     cfg.Database.User,
			Password: cfg.Database.Password,
			SSLMode:  cfg.Database.SSLMode,
			MaxConns: cfg.Database.PoolMaxConns,
			MinConns: cfg.Database.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Database.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}

		pool := pgClient.Pool()
		deps.Postgres = pgClient
		deps.Snapshots = postgres.NewSnapshotStore(pool)
		deps.Quotes = postgres.NewQuoteStore(pool)
	}

	// --- S3 cold storage ---
	if cfg.S3.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}

		deps.BlobWriter = s3blob.NewWriter(s3Client)
		deps.BlobReader = s3blob.NewReader(s3Client)

		if err := s3Client.Health(ctx); err != nil {
			logger.WarnContext(ctx, "s3 health check failed, archival may not work",
				slog.String("error", err.Error()),
			)
		}
	}

	return deps, cleanup, nil
}
