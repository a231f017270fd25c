package internal

import (
	"context"
	"time"
)

const DefaultStoreTimeout = 5 * time.Second

// WithTimeout bounds a store call. Zero or negative durations fall back to
// DefaultStoreTimeout so no repository call can block indefinitely.
func WithTimeout(ctx context.Context, duration time.Duration) (context.Context, context.CancelFunc) {
	if duration <= 0 {
		duration = DefaultStoreTimeout
	}
	return context.WithTimeout(ctx, duration)
}
