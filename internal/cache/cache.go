// Package cache provides the fast-path revocation set consulted on every
// JWT resolution. The durable blacklist lives in the store; the cache
// keeps hot lookups off the database. Deployments without a CACHE_URL get
// a process-local LRU.
package cache

import (
	"context"
	"time"
)

// RevocationSet tracks blacklisted token ids until their natural expiry.
type RevocationSet interface {
	// Revoke marks a jti revoked for ttl. A non-positive ttl is a no-op
	// since the token is already expired.
	Revoke(ctx context.Context, jti string, ttl time.Duration) error

	// IsRevoked reports whether a jti is currently revoked.
	IsRevoked(ctx context.Context, jti string) (bool, error)

	Close() error
}

// NewRevocationSet selects a backend from the cache URL. Empty URL means
// process-local.
func NewRevocationSet(cacheURL string) (RevocationSet, error) {
	if cacheURL == "" {
		return NewMemoryRevocationSet(defaultMemoryEntries), nil
	}
	return NewRedisRevocationSet(cacheURL)
}
