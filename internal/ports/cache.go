package ports

import (
	"context"
	"time"
)

// IssuanceLockStore serializes the existence-check-then-write sequence per
// (participant, event) key. Two concurrent issuance requests for the same pair
// must not both pass the check; the store's unique index remains the backstop if
// a lock expires mid-flight.
type IssuanceLockStore interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

// VerifyThrottle rate-limits the public, unauthenticated verification endpoint
// per origin address.
type VerifyThrottle interface {
	Allow(ctx context.Context, key string, threshold int, window time.Duration) (bool, error)
}
