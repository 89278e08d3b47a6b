package providers

import (
	"context"
	"time"
)

// RateLimiter counts calls per key within a fixed window
type RateLimiter interface {
	// Allow records a call for key and reports whether it is within limit
	// for the current window
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}
