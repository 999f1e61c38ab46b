// Package memory holds the in-process snapshot cache. The latest
// snapshot per pair lives here between cycles; Redis carries only the
// derived, published results.
package memory

import (
	"sync"
	"time"

	"github.com/YoelDevSoft1/ProyectoP2P-sub002/internal/domain"
)

// SnapshotCache keeps the latest successful order book snapshot per
// pair. Get always returns the latest snapshot even when it is older
// than the TTL; callers that need freshness must check IsExpired and
// flag the snapshot stale. Entries are independent: no operation ever
// locks more than one pair.
type SnapshotCache struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.RWMutex
	entries map[domain.Pair]*entry
}

type entry struct {
	mu       sync.RWMutex
	snap     *domain.OrderBookSnapshot
	storedAt time.Time
}

// NewSnapshotCache creates a cache with the given freshness TTL.
func NewSnapshotCache(ttl time.Duration) *SnapshotCache {
	return &SnapshotCache{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[domain.Pair]*entry),
	}
}

// Put stores the snapshot as the pair's latest and resets its age clock.
func (c *SnapshotCache) Put(pair domain.Pair, snap *domain.OrderBookSnapshot) {
	e := c.entryFor(pair)
	e.mu.Lock()
	e.snap = snap.Clone()
	e.storedAt = c.now()
	e.mu.Unlock()
}

// Get returns a copy of the latest snapshot for the pair, however old.
// Returns domain.ErrNoSnapshot when the pair has never been stored.
func (c *SnapshotCache) Get(pair domain.Pair) (*domain.OrderBookSnapshot, error) {
	c.mu.RLock()
	e, ok := c.entries[pair]
	c.mu.RUnlock()
	if !ok {
		return nil, domain.ErrNoSnapshot
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.snap == nil {
		return nil, domain.ErrNoSnapshot
	}
	return e.snap.Clone(), nil
}

// IsExpired reports whether the pair's snapshot is older than the TTL.
// A pair that has never been stored is expired by definition.
func (c *SnapshotCache) IsExpired(pair domain.Pair) bool {
	c.mu.RLock()
	e, ok := c.entries[pair]
	c.mu.RUnlock()
	if !ok {
		return true
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.snap == nil {
		return true
	}
	return c.now().Sub(e.storedAt) > c.ttl
}

// Age returns how long ago the pair's snapshot was stored, and whether
// one exists at all.
func (c *SnapshotCache) Age(pair domain.Pair) (time.Duration, bool) {
	c.mu.RLock()
	e, ok := c.entries[pair]
	c.mu.RUnlock()
	if !ok {
		return 0, false
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.snap == nil {
		return 0, false
	}
	return c.now().Sub(e.storedAt), true
}

// entryFor returns the pair's entry, creating it on first use.
func (c *SnapshotCache) entryFor(pair domain.Pair) *entry {
	c.mu.RLock()
	e, ok := c.entries[pair]
	c.mu.RUnlock()
	if ok {
		return e
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok = c.entries[pair]; ok {
		return e
	}
	e = &entry{}
	c.entries[pair] = e
	return e
}
