package iam

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun/migrate"

	"github.com/opentrusty/opentrusty/internal/auth"
	"github.com/opentrusty/opentrusty/internal/cache"
	"github.com/opentrusty/opentrusty/internal/config"
	"github.com/opentrusty/opentrusty/internal/db/bunx"
	"github.com/opentrusty/opentrusty/internal/migrations"
	"github.com/opentrusty/opentrusty/internal/repository"
)

// setupService builds the IAM stack over in-memory SQLite with the
// in-process revocation cache.
func setupService(t *testing.T) (*Service, *repository.Store, *auth.Signer) {
	t.Helper()

	db, err := bunx.NewDB(":memory:", 1)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	migrator := migrate.NewMigrator(db, migrations.Migrations)
	require.NoError(t, migrator.Init(ctx))
	_, err = migrator.Migrate(ctx)
	require.NoError(t, err)

	signer, err := auth.NewSigner(config.JWTConfig{
		Algorithm: "HS256",
		SecretKey: "iam-test-secret",
	}, "https://iam.test")
	require.NoError(t, err)

	revocations, err := cache.NewRevocationSet("")
	require.NoError(t, err)
	t.Cleanup(func() { revocations.Close() })

	store := repository.NewStore(db)
	svc := NewService(store, signer, revocations, 15*time.Minute, 7*24*time.Hour)
	return svc, store, signer
}
