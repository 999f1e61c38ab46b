// Package fetch contains the rate-controlled fetch layer: a pacing gate
// that bounds concurrency and request rate against the marketplace, and
// a fetcher that retries transient failures with exponential backoff.
package fetch

import (
	"context"
	"sync"
	"time"
)

// Gate bounds the number of in-flight marketplace requests and the rate
// at which new ones may start. Acquire blocks until fewer than
// maxInflight permits are outstanding and at least minInterval has
// elapsed since the last grant. Grants are strictly FIFO so no caller
// starves.
type Gate struct {
	maxInflight int
	minInterval time.Duration

	mu         sync.Mutex
	inflight   int
	lastGrant  time.Time
	queue      []*waiter
	timerArmed bool

	now       func() time.Time
	afterFunc func(d time.Duration, f func()) *time.Timer
}

type waiter struct {
	ready   chan struct{}
	granted bool
}

// NewGate creates a Gate allowing maxInflight concurrent permits with at
// least minInterval between grants.
func NewGate(maxInflight int, minInterval time.Duration) *Gate {
	if maxInflight < 1 {
		maxInflight = 1
	}
	return &Gate{
		maxInflight: maxInflight,
		minInterval: minInterval,
		now:         time.Now,
		afterFunc:   time.AfterFunc,
	}
}

// Permit represents one granted slot. Release returns the slot to the
// gate; it is safe to call more than once.
type Permit struct {
	g    *Gate
	once sync.Once
}

// Release frees the permit's slot and lets the next queued caller in.
func (p *Permit) Release() {
	p.once.Do(func() {
		p.g.mu.Lock()
		p.g.inflight--
		p.g.dispatchLocked()
		p.g.mu.Unlock()
	})
}

// Acquire blocks until a permit is granted or ctx is cancelled. A
// cancelled caller never holds a slot: if cancellation races with the
// grant, the slot is returned to the gate before Acquire returns.
func (g *Gate) Acquire(ctx context.Context) (*Permit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	w := &waiter{ready: make(chan struct{}, 1)}

	g.mu.Lock()
	g.queue = append(g.queue, w)
	g.dispatchLocked()
	g.mu.Unlock()

	select {
	case <-w.ready:
		return &Permit{g: g}, nil
	case <-ctx.Done():
		g.mu.Lock()
		if w.granted {
			// The grant won the race; give the slot back.
			g.inflight--
		} else {
			g.removeLocked(w)
		}
		g.dispatchLocked()
		g.mu.Unlock()
		return nil, ctx.Err()
	}
}

// dispatchLocked grants permits to queued waiters, oldest first, while a
// slot is free and the pacing interval has elapsed. When only the
// interval is blocking, a timer re-runs dispatch. Callers must hold mu.
func (g *Gate) dispatchLocked() {
	for len(g.queue) > 0 && g.inflight < g.maxInflight {
		now := g.now()
		if wait := g.minInterval - now.Sub(g.lastGrant); wait > 0 {
			if !g.timerArmed {
				g.timerArmed = true
				g.afterFunc(wait, func() {
					g.mu.Lock()
					g.timerArmed = false
					g.dispatchLocked()
					g.mu.Unlock()
				})
			}
			return
		}

		w := g.queue[0]
		g.queue = g.queue[1:]
		g.inflight++
		g.lastGrant = now
		w.granted = true
		w.ready <- struct{}{}
	}
}

// removeLocked drops a waiter that gave up before being granted.
func (g *Gate) removeLocked(target *waiter) {
	for i, w := range g.queue {
		if w == target {
			g.queue = append(g.queue[:i], g.queue[i+1:]...)
			return
		}
	}
}
