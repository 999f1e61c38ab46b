package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrRateLimited        = errors.New("rate limited")
	ErrUnavailable        = errors.New("upstream unavailable")
	ErrMalformed          = errors.New("malformed upstream response")
	ErrEmptySide          = errors.New("order book side is empty")
	ErrUnprofitableMarket = errors.New("unprofitable market")
	ErrCycleRunning       = errors.New("refresh cycle already running")
	ErrLockHeld           = errors.New("lock already held")
	ErrNoSnapshot         = errors.New("no snapshot available")
)

// IsTransient reports whether err is a fetch failure worth retrying.
// Malformed responses are data-integrity failures and are never retried.
func IsTransient(err error) bool {
	return errors.Is(err, ErrRateLimited) || errors.Is(err, ErrUnavailable)
}

// FetchExhaustedError is returned when the fetcher has used its full
// retry budget for one pair. The last underlying error is preserved so
// the orchestrator can log the root cause.
type FetchExhaustedError struct {
	Pair     Pair
	Attempts int
	Err      error
}

func (e *FetchExhaustedError) Error() string {
	return fmt.Sprintf("fetch exhausted for %s after %d attempts: %v", e.Pair, e.Attempts, e.Err)
}

func (e *FetchExhaustedError) Unwrap() error { return e.Err }
