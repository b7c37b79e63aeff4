package invite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun/migrate"

	"github.com/opentrusty/opentrusty/internal/apperr"
	"github.com/opentrusty/opentrusty/internal/db/bunx"
	"github.com/opentrusty/opentrusty/internal/db/models"
	"github.com/opentrusty/opentrusty/internal/mail"
	"github.com/opentrusty/opentrusty/internal/migrations"
	"github.com/opentrusty/opentrusty/internal/permissions"
	"github.com/opentrusty/opentrusty/internal/repository"
)

// recordingMailer captures dispatched messages for assertions.
type recordingMailer struct {
	sent []mail.Message
}

func (m *recordingMailer) Send(_ context.Context, msg mail.Message) error {
	m.sent = append(m.sent, msg)
	return nil
}

type fixture struct {
	svc    *Service
	store  *repository.Store
	mailer *recordingMailer

	inviter *models.User
	invitee *models.User
	org     *models.Organization
	project *models.Project
}

func setup(t *testing.T) *fixture {
	t.Helper()

	db, err := bunx.NewDB(":memory:", 1)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	migrator := migrate.NewMigrator(db, migrations.Migrations)
	require.NoError(t, migrator.Init(ctx))
	_, err = migrator.Migrate(ctx)
	require.NoError(t, err)

	store := repository.NewStore(db)
	mailer := &recordingMailer{}
	f := &fixture{
		svc:    NewService(store, mailer, "https://iam.test"),
		store:  store,
		mailer: mailer,
	}

	f.inviter = &models.User{ID: bunx.NewUUIDv7(), Username: "inviter", HashedPassword: "$2a$10$notarealhash"}
	require.NoError(t, store.Users.Create(ctx, f.inviter))
	f.invitee = &models.User{ID: bunx.NewUUIDv7(), Username: "invitee", HashedPassword: "$2a$10$notarealhash"}
	require.NoError(t, store.Users.Create(ctx, f.invitee))

	f.org = &models.Organization{ID: bunx.NewUUIDv7(), Name: "acme"}
	require.NoError(t, store.Organizations.Create(ctx, f.org))
	f.project = &models.Project{ID: bunx.NewUUIDv7(), OrganizationID: f.org.ID, Name: "rockets"}
	require.NoError(t, store.Projects.Create(ctx, f.project))

	return f
}

func (f *fixture) createInvite(t *testing.T, resourceID, email string) *models.Invite {
	t.Helper()
	inv, err := f.svc.Create(context.Background(), CreateInput{
		ResourceID: resourceID,
		Email:      email,
		InvitedBy:  f.inviter.ID,
	})
	require.NoError(t, err)
	return inv
}

func TestCreateInvite(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	inv := f.createInvite(t, f.project.ID, "new@example.com")
	assert.NotEmpty(t, inv.TemporaryToken)
	assert.WithinDuration(t, time.Now().Add(InviteTTL), inv.ExpiresAt, 5*time.Second)
	require.Len(t, f.mailer.sent, 1)
	assert.Equal(t, "new@example.com", f.mailer.sent[0].To)
	assert.Contains(t, f.mailer.sent[0].Body, inv.TemporaryToken)

	t.Run("live invite is reused", func(t *testing.T) {
		again := f.createInvite(t, f.project.ID, "new@example.com")
		assert.Equal(t, inv.ID, again.ID)
		assert.Equal(t, inv.TemporaryToken, again.TemporaryToken)
	})

	t.Run("expired invite is replaced", func(t *testing.T) {
		expired := &models.Invite{
			ID:             bunx.NewUUIDv7(),
			ResourceID:     f.org.ID,
			Email:          "late@example.com",
			InvitedBy:      f.inviter.ID,
			TemporaryToken: "stale-token",
			ExpiresAt:      time.Now().Add(-time.Minute),
		}
		require.NoError(t, f.store.Invites.Create(ctx, expired))

		fresh := f.createInvite(t, f.org.ID, "late@example.com")
		assert.NotEqual(t, expired.ID, fresh.ID)
		assert.NotEqual(t, "stale-token", fresh.TemporaryToken)

		_, err := f.store.Invites.GetByToken(ctx, "stale-token")
		assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
	})

	t.Run("unknown resource", func(t *testing.T) {
		_, err := f.svc.Create(ctx, CreateInput{
			ResourceID: bunx.NewUUIDv7(),
			Email:      "x@example.com",
			InvitedBy:  f.inviter.ID,
		})
		assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
	})

	t.Run("bad email", func(t *testing.T) {
		_, err := f.svc.Create(ctx, CreateInput{
			ResourceID: f.project.ID,
			Email:      "not-an-email",
			InvitedBy:  f.inviter.ID,
		})
		assert.True(t, apperr.IsKind(err, apperr.KindValidation))
	})
}

func TestAcceptInvite(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	t.Run("project invite grants project viewer", func(t *testing.T) {
		inv := f.createInvite(t, f.project.ID, "a@example.com")

		member, err := f.svc.Accept(ctx, AcceptInput{
			Token:  inv.TemporaryToken,
			UserID: f.invitee.ID,
			Email:  "a@example.com",
		})
		require.NoError(t, err)
		assert.Equal(t, f.project.ID, member.ResourceID)

		stored, err := f.store.Members.Get(ctx, f.project.ID, f.invitee.ID)
		require.NoError(t, err)
		assert.Equal(t, member.ID, stored.ID)

		viewer, err := f.store.Roles.GetByName(ctx, permissions.RoleProjectViewer)
		require.NoError(t, err)
		assignments, err := f.store.RoleAssignments.ListByTarget(ctx, f.invitee.ID)
		require.NoError(t, err)
		require.Len(t, assignments, 1)
		assert.Equal(t, viewer.ID, assignments[0].RoleID)
		assert.Equal(t, f.project.ID, assignments[0].ResourceID)
		assert.Equal(t, f.inviter.ID, assignments[0].AssignedBy)

		_, err = f.store.Invites.GetByToken(ctx, inv.TemporaryToken)
		assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
	})

	t.Run("organization invite grants organization viewer", func(t *testing.T) {
		other := &models.User{ID: bunx.NewUUIDv7(), Username: "invitee2", HashedPassword: "$2a$10$notarealhash"}
		require.NoError(t, f.store.Users.Create(ctx, other))
		inv := f.createInvite(t, f.org.ID, "b@example.com")

		_, err := f.svc.Accept(ctx, AcceptInput{Token: inv.TemporaryToken, UserID: other.ID})
		require.NoError(t, err)

		viewer, err := f.store.Roles.GetByName(ctx, permissions.RoleOrganizationViewer)
		require.NoError(t, err)
		assignments, err := f.store.RoleAssignments.ListByTarget(ctx, other.ID)
		require.NoError(t, err)
		require.Len(t, assignments, 1)
		assert.Equal(t, viewer.ID, assignments[0].RoleID)
	})

	t.Run("email mismatch", func(t *testing.T) {
		inv := f.createInvite(t, f.project.ID, "right@example.com")
		_, err := f.svc.Accept(ctx, AcceptInput{
			Token:  inv.TemporaryToken,
			UserID: f.invitee.ID,
			Email:  "wrong@example.com",
		})
		assert.True(t, apperr.IsKind(err, apperr.KindForbidden))
	})

	t.Run("expired invite", func(t *testing.T) {
		expired := &models.Invite{
			ID:             bunx.NewUUIDv7(),
			ResourceID:     f.project.ID,
			Email:          "c@example.com",
			InvitedBy:      f.inviter.ID,
			TemporaryToken: "expired-token",
			ExpiresAt:      time.Now().Add(-time.Minute),
		}
		require.NoError(t, f.store.Invites.Create(ctx, expired))

		_, err := f.svc.Accept(ctx, AcceptInput{Token: "expired-token", UserID: f.invitee.ID})
		assert.True(t, apperr.IsKind(err, apperr.KindExpired))
	})

	t.Run("unknown token", func(t *testing.T) {
		_, err := f.svc.Accept(ctx, AcceptInput{Token: "no-such-token", UserID: f.invitee.ID})
		assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
	})
}

// A failure after the membership insert must roll the whole acceptance
// back, leaving no membership and the invite still redeemable.
func TestAcceptRollbackKeepsInvite(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	user := &models.User{ID: bunx.NewUUIDv7(), Username: "retrier", HashedPassword: "$2a$10$notarealhash"}
	require.NoError(t, f.store.Users.Create(ctx, user))

	// Pre-existing duplicate makes the role-assignment insert fail inside
	// the acceptance transaction.
	viewer, err := f.store.Roles.GetByName(ctx, permissions.RoleProjectViewer)
	require.NoError(t, err)
	require.NoError(t, f.store.RoleAssignments.Create(ctx, &models.RoleAssignment{
		ID:         bunx.NewUUIDv7(),
		TargetID:   user.ID,
		RoleID:     viewer.ID,
		ResourceID: f.project.ID,
		AssignedAt: time.Now(),
	}))

	inv := f.createInvite(t, f.project.ID, "retry@example.com")

	_, err = f.svc.Accept(ctx, AcceptInput{Token: inv.TemporaryToken, UserID: user.ID})
	require.Error(t, err)

	_, err = f.store.Members.Get(ctx, f.project.ID, user.ID)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound), "membership must be rolled back")

	kept, err := f.store.Invites.GetByToken(ctx, inv.TemporaryToken)
	require.NoError(t, err, "invite must survive a failed acceptance")
	assert.Equal(t, inv.ID, kept.ID)
}
