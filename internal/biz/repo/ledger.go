package repo

import (
	"context"
	"time"
)

// LedgerRepo is a key-value store with per-entry expiry
// Used by the idempotency guard; implementations cap the number of entries
type LedgerRepo interface {
	// Get returns the value and whether an unexpired entry exists
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value under key for ttl
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// LedgerPurger removes expired entries
type LedgerPurger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}
