package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const revocationKeyPrefix = "revoked_jti:"

// RedisRevocationSet shares the revocation set across replicas through
// Redis key TTLs.
type RedisRevocationSet struct {
	client *redis.Client
}

// NewRedisRevocationSet connects to the Redis instance named by the URL.
func NewRedisRevocationSet(cacheURL string) (*RedisRevocationSet, error) {
	opts, err := redis.ParseURL(cacheURL)
	if err != nil {
		return nil, fmt.Errorf("parse cache url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(context.Background()).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping cache: %w", err)
	}
	return &RedisRevocationSet{client: client}, nil
}

// Revoke records the jti with the remaining token lifetime as TTL.
func (r *RedisRevocationSet) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := r.client.Set(ctx, revocationKeyPrefix+jti, "1", ttl).Err(); err != nil {
		return fmt.Errorf("revoke jti in cache: %w", err)
	}
	return nil
}

// IsRevoked reports whether the jti key still exists.
func (r *RedisRevocationSet) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := r.client.Exists(ctx, revocationKeyPrefix+jti).Result()
	if err != nil {
		return false, fmt.Errorf("check jti in cache: %w", err)
	}
	return n > 0, nil
}

// Close releases the Redis connection.
func (r *RedisRevocationSet) Close() error {
	return r.client.Close()
}
