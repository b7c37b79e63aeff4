package cache

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

const defaultMemoryEntries = 16384

// MemoryRevocationSet is a size-bounded in-process revocation set. Values
// hold the revocation deadline; reads past the deadline count as not
// revoked even before eviction.
type MemoryRevocationSet struct {
	entries *lru.Cache[string, time.Time]
}

// NewMemoryRevocationSet builds a revocation set bounded to size entries.
func NewMemoryRevocationSet(size int) *MemoryRevocationSet {
	if size <= 0 {
		size = defaultMemoryEntries
	}
	entries, err := lru.New[string, time.Time](size)
	if err != nil {
		// lru.New only fails on size <= 0.
		panic(err)
	}
	return &MemoryRevocationSet{entries: entries}
}

// Revoke records the jti until its expiry.
func (m *MemoryRevocationSet) Revoke(_ context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	m.entries.Add(jti, time.Now().Add(ttl))
	return nil
}

// IsRevoked reports whether the jti is revoked and not yet expired.
func (m *MemoryRevocationSet) IsRevoked(_ context.Context, jti string) (bool, error) {
	deadline, ok := m.entries.Get(jti)
	if !ok {
		return false, nil
	}
	if time.Now().After(deadline) {
		m.entries.Remove(jti)
		return false, nil
	}
	return true, nil
}

// Close releases nothing for the in-memory backend.
func (m *MemoryRevocationSet) Close() error {
	return nil
}
