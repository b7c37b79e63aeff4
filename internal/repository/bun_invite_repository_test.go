package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opentrusty/opentrusty/internal/apperr"
	"github.com/opentrusty/opentrusty/internal/db/bunx"
	"github.com/opentrusty/opentrusty/internal/db/models"
)

func newTestInvite(email, resourceID string) *models.Invite {
	return &models.Invite{
		ID:             bunx.NewUUIDv7(),
		ResourceID:     resourceID,
		Email:          email,
		InvitedBy:      bunx.NewUUIDv7(),
		TemporaryToken: "tok-" + bunx.NewUUIDv7(),
		ExpiresAt:      time.Now().Add(72 * time.Hour),
	}
}

func TestBunInviteRepository_Lookups(t *testing.T) {
	db := setupTestDB(t)
	repo := NewBunInviteRepository(db)
	ctx := context.Background()

	inv := newTestInvite("a@example.com", "prj-1")
	require.NoError(t, repo.Create(ctx, inv))

	got, err := repo.GetByToken(ctx, inv.TemporaryToken)
	require.NoError(t, err)
	assert.Equal(t, inv.ID, got.ID)

	got, err = repo.GetByEmailAndResource(ctx, "a@example.com", "prj-1")
	require.NoError(t, err)
	assert.Equal(t, inv.ID, got.ID)

	_, err = repo.GetByEmailAndResource(ctx, "a@example.com", "prj-2")
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}

func TestBunInviteRepository_DeleteAndExpiry(t *testing.T) {
	db := setupTestDB(t)
	repo := NewBunInviteRepository(db)
	ctx := context.Background()

	inv := newTestInvite("b@example.com", "org-1")
	require.NoError(t, repo.Create(ctx, inv))
	require.NoError(t, repo.Delete(ctx, inv.ID))
	assert.True(t, apperr.IsKind(repo.Delete(ctx, inv.ID), apperr.KindNotFound))

	stale := newTestInvite("c@example.com", "org-1")
	stale.ExpiresAt = time.Now().Add(-time.Hour)
	require.NoError(t, repo.Create(ctx, stale))

	n, err := repo.DeleteExpired(ctx, time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
