package domain

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"rate limited", ErrRateLimited, true},
		{"unavailable", ErrUnavailable, true},
		{"wrapped transient", fmt.Errorf("search USDT/VES: %w", ErrRateLimited), true},
		{"malformed", ErrMalformed, false},
		{"empty side", ErrEmptySide, false},
		{"context canceled", context.Canceled, false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTransient(tt.err); got != tt.want {
				t.Errorf("IsTransient(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestFetchExhaustedErrorUnwraps(t *testing.T) {
	cause := fmt.Errorf("HTTP 429: %w", ErrRateLimited)
	err := error(&FetchExhaustedError{
		Pair:     NewPair("USDT", "VES"),
		Attempts: 4,
		Err:      cause,
	})

	if !errors.Is(err, ErrRateLimited) {
		t.Error("exhausted error does not unwrap to its cause")
	}

	var exhausted *FetchExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatal("errors.As failed")
	}
	if exhausted.Attempts != 4 {
		t.Errorf("Attempts = %d, want 4", exhausted.Attempts)
	}
}
