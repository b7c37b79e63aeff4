package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRevocationSet(t *testing.T) {
	t.Parallel()

	set := NewMemoryRevocationSet(8)
	ctx := context.Background()

	require.NoError(t, set.Revoke(ctx, "jti-1", time.Minute))

	revoked, err := set.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = set.IsRevoked(ctx, "jti-other")
	require.NoError(t, err)
	assert.False(t, revoked)

	t.Run("expired entry reads as not revoked", func(t *testing.T) {
		require.NoError(t, set.Revoke(ctx, "jti-short", time.Nanosecond))
		time.Sleep(5 * time.Millisecond)
		revoked, err := set.IsRevoked(ctx, "jti-short")
		require.NoError(t, err)
		assert.False(t, revoked)
	})

	t.Run("non-positive ttl is a no-op", func(t *testing.T) {
		require.NoError(t, set.Revoke(ctx, "jti-dead", -time.Second))
		revoked, err := set.IsRevoked(ctx, "jti-dead")
		require.NoError(t, err)
		assert.False(t, revoked)
	})
}

func TestRedisRevocationSet(t *testing.T) {
	t.Parallel()

	srv := miniredis.RunT(t)
	set, err := NewRedisRevocationSet("redis://" + srv.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { set.Close() })

	ctx := context.Background()
	require.NoError(t, set.Revoke(ctx, "jti-1", time.Minute))

	revoked, err := set.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	t.Run("ttl expiry clears the entry", func(t *testing.T) {
		require.NoError(t, set.Revoke(ctx, "jti-fast", time.Second))
		srv.FastForward(2 * time.Second)
		revoked, err := set.IsRevoked(ctx, "jti-fast")
		require.NoError(t, err)
		assert.False(t, revoked)
	})
}

func TestNewRevocationSet(t *testing.T) {
	t.Parallel()

	set, err := NewRevocationSet("")
	require.NoError(t, err)
	_, ok := set.(*MemoryRevocationSet)
	assert.True(t, ok)
}
