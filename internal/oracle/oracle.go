// Package oracle fronts the external randomness provider. The gateway
// batches requests by block height so that nearby callers share one
// upstream request, caches verified results so a request is answered
// exactly once upstream, and drives one distribution tick per new batch.
package oracle

import (
	"context"
	"time"
)

// RequestID identifies one upstream randomness request.
type RequestID string

// Client is the upstream randomness provider.
type Client interface {
	// RequestRandomNumber opens a new randomness request.
	RequestRandomNumber(ctx context.Context) (RequestID, error)

	// GetVerifiedRandomNumber fetches the verified result for a request.
	// Returns ErrNotReady until the provider has produced and proven it.
	GetVerifiedRandomNumber(ctx context.Context, id RequestID) (uint64, error)
}

// Cache persists resolved randomness across restarts. Implementations live
// in internal/database/redis.
type Cache interface {
	GetResolvedRandom(ctx context.Context, id string) (uint64, bool, error)
	SetResolvedRandom(ctx context.Context, id string, value uint64) error
}

// Limiter bounds how many requests a caller may open within a window.
// Implementations live in internal/database/redis.
type Limiter interface {
	CheckRateLimit(ctx context.Context, key string, limit int64, window time.Duration) (bool, error)
}

// Distributor receives one tick per new request batch.
type Distributor interface {
	Distribute(ctx context.Context) error
}
