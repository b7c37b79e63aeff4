package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opentrusty/opentrusty/internal/apperr"
	"github.com/opentrusty/opentrusty/internal/db/bunx"
	"github.com/opentrusty/opentrusty/internal/db/models"
)

func newTestCode(code string) *models.AuthorizationCode {
	now := time.Now()
	return &models.AuthorizationCode{
		Code:        code,
		ClientID:    "client-1",
		RedirectURI: "https://app.example.com/cb",
		Scope:       "openid profile",
		UserID:      bunx.NewUUIDv7(),
		AuthTime:    now,
		ExpiresAt:   now.Add(10 * time.Minute),
	}
}

func TestBunAuthorizationCodeRepository_Consume(t *testing.T) {
	db := setupTestDB(t)
	repo := NewBunAuthorizationCodeRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newTestCode("code-once")))

	require.NoError(t, repo.Consume(ctx, "code-once"))

	got, err := repo.Get(ctx, "code-once")
	require.NoError(t, err)
	assert.True(t, got.Used)

	t.Run("second consume is conflict", func(t *testing.T) {
		err := repo.Consume(ctx, "code-once")
		assert.True(t, apperr.IsKind(err, apperr.KindConflict))
	})

	t.Run("unknown code is conflict", func(t *testing.T) {
		err := repo.Consume(ctx, "never-issued")
		assert.True(t, apperr.IsKind(err, apperr.KindConflict))
	})
}

// Exactly one of N racing consumers may win; the conditional UPDATE is
// the only arbiter.
func TestBunAuthorizationCodeRepository_ConsumeRace(t *testing.T) {
	db := setupTestDB(t)
	repo := NewBunAuthorizationCodeRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newTestCode("code-race")))

	const racers = 8
	var wg sync.WaitGroup
	results := make(chan error, racers)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- repo.Consume(ctx, "code-race")
		}()
	}
	wg.Wait()
	close(results)

	wins, losses := 0, 0
	for err := range results {
		if err == nil {
			wins++
		} else {
			assert.True(t, apperr.IsKind(err, apperr.KindConflict))
			losses++
		}
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, racers-1, losses)
}

func TestBunAuthorizationCodeRepository_DeleteExpired(t *testing.T) {
	db := setupTestDB(t)
	repo := NewBunAuthorizationCodeRepository(db)
	ctx := context.Background()

	stale := newTestCode("code-stale")
	stale.ExpiresAt = time.Now().Add(-time.Minute)
	require.NoError(t, repo.Create(ctx, stale))
	require.NoError(t, repo.Create(ctx, newTestCode("code-live")))

	n, err := repo.DeleteExpired(ctx, time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = repo.Get(ctx, "code-stale")
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
	_, err = repo.Get(ctx, "code-live")
	assert.NoError(t, err)
}
