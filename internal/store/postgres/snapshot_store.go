package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/YoelDevSoft1/ProyectoP2P-sub002/internal/domain"
)

// SnapshotStore implements domain.SnapshotStore using PostgreSQL. Bids
// and asks are serialised to JSONB; the core only appends rows and reads
// the latest one per pair, so no updates ever happen.
type SnapshotStore struct {
	pool *pgxpool.Pool
}

// NewSnapshotStore creates a SnapshotStore backed by the given pool.
func NewSnapshotStore(pool *pgxpool.Pool) *SnapshotStore {
	return &SnapshotStore{pool: pool}
}

// Insert appends one snapshot row.
func (s *SnapshotStore) Insert(ctx context.Context, snap *domain.OrderBookSnapshot) error {
	bids, err := json.Marshal(snap.Bids)
	if err != nil {
		return fmt.Errorf("postgres: encode bids %s: %w", snap.Pair, err)
	}
	asks, err := json.Marshal(snap.Asks)
	if err != nil {
		return fmt.Errorf("postgres: encode asks %s: %w", snap.Pair, err)
	}

	const query = `
		INSERT INTO p2p_snapshots (asset, fiat, fetched_at, bids, asks)
		VALUES ($1, $2, $3, $4, $5)`

	_, err = s.pool.Exec(ctx, query, snap.Pair.Asset, snap.Pair.Fiat, snap.FetchedAt, bids, asks)
	if err != nil {
		return fmt.Errorf("postgres: insert snapshot %s: %w", snap.Pair, err)
	}
	return nil
}

// Latest returns the most recent snapshot for the pair.
func (s *SnapshotStore) Latest(ctx context.Context, pair domain.Pair) (*domain.OrderBookSnapshot, error) {
	const query = `
		SELECT id, asset, fiat, fetched_at, bids, asks
		FROM p2p_snapshots
		WHERE asset = $1 AND fiat = $2
		ORDER BY fetched_at DESC
		LIMIT 1`

	row := s.pool.QueryRow(ctx, query, pair.Asset, pair.Fiat)
	snap, err := scanSnapshot(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("postgres: latest snapshot %s: %w", pair, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("postgres: latest snapshot %s: %w", pair, err)
	}
	return snap, nil
}

// ListOlderThan returns up to limit snapshots fetched before cutoff,
// oldest first. The archiver drains history in these pages.
func (s *SnapshotStore) ListOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]*domain.OrderBookSnapshot, error) {
	const query = `
		SELECT id, asset, fiat, fetched_at, bids, asks
		FROM p2p_snapshots
		WHERE fetched_at < $1
		ORDER BY fetched_at ASC, id ASC
		LIMIT $2`

	rows, err := s.pool.Query(ctx, query, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list snapshots before %v: %w", cutoff, err)
	}
	defer rows.Close()

	var out []*domain.OrderBookSnapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan snapshot: %w", err)
		}
		out = append(out, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list snapshots: %w", err)
	}
	return out, nil
}

// DeleteByIDs removes exactly the given rows.
func (s *SnapshotStore) DeleteByIDs(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM p2p_snapshots WHERE id = ANY($1)`, ids)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete %d snapshots: %w", len(ids), err)
	}
	return tag.RowsAffected(), nil
}

// scanSnapshot reads one snapshot row.
func scanSnapshot(row pgx.Row) (*domain.OrderBookSnapshot, error) {
	var (
		id          int64
		asset, fiat string
		fetchedAt   time.Time
		bids, asks  []byte
	)
	if err := row.Scan(&id, &asset, &fiat, &fetchedAt, &bids, &asks); err != nil {
		return nil, err
	}

	snap := &domain.OrderBookSnapshot{
		ID:        id,
		Pair:      domain.NewPair(asset, fiat),
		FetchedAt: fetchedAt,
	}
	if err := json.Unmarshal(bids, &snap.Bids); err != nil {
		return nil, fmt.Errorf("decode bids: %w", err)
	}
	if err := json.Unmarshal(asks, &snap.Asks); err != nil {
		return nil, fmt.Errorf("decode asks: %w", err)
	}
	return snap, nil
}

// Compile-time interface check.
var _ domain.SnapshotStore = (*SnapshotStore)(nil)
