package rbac

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opentrusty/opentrusty/internal/apperr"
	"github.com/opentrusty/opentrusty/internal/db/models"
	"github.com/opentrusty/opentrusty/internal/permissions"
)

func TestEvaluator_HierarchyWalk(t *testing.T) {
	svc, store := setupService(t)
	ctx := context.Background()

	user := mustCreateUser(t, store, "walker")
	orgA := mustCreateOrg(t, store, "org-a")
	orgB := mustCreateOrg(t, store, "org-b")
	prj1 := mustCreateProject(t, store, orgA.ID, "prj-1")
	prj2 := mustCreateProject(t, store, orgB.ID, "prj-2")

	editor := mustRoleByName(t, store, permissions.RoleOrganizationEditor)
	mustAssign(t, store, user.ID, editor.ID, orgA.ID)

	subject := Subject{ID: user.ID}
	eval := svc.Evaluator()

	t.Run("org assignment reaches child project", func(t *testing.T) {
		d, err := eval.Evaluate(ctx, subject, prj1.ID, []string{permissions.ProjectUpdate})
		require.NoError(t, err)
		assert.True(t, d.Allowed)
	})

	t.Run("sibling org project is denied", func(t *testing.T) {
		d, err := eval.Evaluate(ctx, subject, prj2.ID, []string{permissions.ProjectUpdate})
		require.NoError(t, err)
		assert.False(t, d.Allowed)
	})

	t.Run("platform assignment reaches everything", func(t *testing.T) {
		admin := mustCreateUser(t, store, "platform-root")
		platformAdmin := mustRoleByName(t, store, permissions.RolePlatformAdmin)
		mustAssign(t, store, admin.ID, platformAdmin.ID, models.PlatformResourceID)

		d, err := eval.Evaluate(ctx, Subject{ID: admin.ID}, prj2.ID, []string{permissions.ProjectUpdate})
		require.NoError(t, err)
		assert.True(t, d.Allowed)
	})

	t.Run("unknown resource is not_found", func(t *testing.T) {
		_, err := eval.Evaluate(ctx, subject, "no-such-resource", []string{permissions.ProjectGet})
		assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
	})

	t.Run("empty requirement allows", func(t *testing.T) {
		d, err := eval.Evaluate(ctx, subject, prj1.ID, nil)
		require.NoError(t, err)
		assert.True(t, d.Allowed)
	})
}

// Every permission reachable through expansion must evaluate to Allow at
// the assignment's own resource.
func TestEvaluator_PermissionMonotonicity(t *testing.T) {
	svc, store := setupService(t)
	ctx := context.Background()

	user := mustCreateUser(t, store, "monotone")
	org := mustCreateOrg(t, store, "org-m")
	admin := mustRoleByName(t, store, permissions.RoleOrganizationAdmin)
	mustAssign(t, store, user.ID, admin.ID, org.ID)

	expanded, err := svc.Graph().Expand(ctx, []string{admin.ID})
	require.NoError(t, err)

	subject := Subject{ID: user.ID}
	for perm := range PermissionUnion(expanded) {
		d, err := svc.Evaluator().Evaluate(ctx, subject, org.ID, []string{perm})
		require.NoError(t, err)
		assert.True(t, d.Allowed, "permission %s should be allowed", perm)
	}
}

func TestEvaluator_APIKeyScopeIsolation(t *testing.T) {
	svc, store := setupService(t)
	ctx := context.Background()

	creator := mustCreateUser(t, store, "key-owner")
	org := mustCreateOrg(t, store, "org-keys")
	prj1 := mustCreateProject(t, store, org.ID, "prj-k1")
	prj2 := mustCreateProject(t, store, org.ID, "prj-k2")

	key := &models.APIKey{
		ID:         "0198b7a0-0000-7000-8000-000000000001",
		UserID:     creator.ID,
		ResourceID: prj1.ID,
		Prefix:     "abcdefgh",
		Salt:       "00",
		HashedKey:  "00",
		Decorator:  "ot",
	}
	require.NoError(t, store.APIKeys.Create(ctx, key))

	viewer := mustRoleByName(t, store, permissions.RoleProjectViewer)
	mustAssign(t, store, key.ID, viewer.ID, prj1.ID)

	subject := Subject{ID: key.ID, IsAPIKey: true, KeyResourceID: prj1.ID}
	eval := svc.Evaluator()

	t.Run("allowed inside own scope", func(t *testing.T) {
		d, err := eval.Evaluate(ctx, subject, prj1.ID, []string{permissions.ProjectGet})
		require.NoError(t, err)
		assert.True(t, d.Allowed)
	})

	t.Run("denied at sibling project even with assignment", func(t *testing.T) {
		mustAssign(t, store, key.ID, viewer.ID, prj2.ID)
		d, err := eval.Evaluate(ctx, subject, prj2.ID, []string{permissions.ProjectGet})
		require.NoError(t, err)
		assert.False(t, d.Allowed)
		assert.Equal(t, "resource outside api key scope", d.Reason)
	})
}

func TestEvaluator_ScopePermissionCap(t *testing.T) {
	svc, store := setupService(t)
	ctx := context.Background()

	user := mustCreateUser(t, store, "capped")
	org := mustCreateOrg(t, store, "org-cap")
	admin := mustRoleByName(t, store, permissions.RoleOrganizationAdmin)
	mustAssign(t, store, user.ID, admin.ID, org.ID)

	capped := Subject{ID: user.ID, ScopePermissions: []string{permissions.OrganizationGet}}

	d, err := svc.Evaluator().Evaluate(ctx, capped, org.ID, []string{permissions.OrganizationGet})
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	d, err = svc.Evaluator().Evaluate(ctx, capped, org.ID, []string{permissions.OrganizationUpdate})
	require.NoError(t, err)
	assert.False(t, d.Allowed)
}

func TestService_AssignmentLegality(t *testing.T) {
	svc, store := setupService(t)
	ctx := context.Background()

	orgAdminUser := mustCreateUser(t, store, "org-admin")
	target := mustCreateUser(t, store, "new-hire")
	org := mustCreateOrg(t, store, "org-legal")
	prj := mustCreateProject(t, store, org.ID, "prj-legal")

	orgAdmin := mustRoleByName(t, store, permissions.RoleOrganizationAdmin)
	platformAdmin := mustRoleByName(t, store, permissions.RolePlatformAdmin)
	projectViewer := mustRoleByName(t, store, permissions.RoleProjectViewer)
	mustAssign(t, store, orgAdminUser.ID, orgAdmin.ID, org.ID)

	caller := Subject{ID: orgAdminUser.ID}

	t.Run("descendant role can be granted", func(t *testing.T) {
		a, err := svc.CreateAssignment(ctx, caller, target.ID, projectViewer.ID, prj.ID)
		require.NoError(t, err)
		assert.Equal(t, orgAdminUser.ID, a.AssignedBy)
	})

	t.Run("stronger role cannot be granted", func(t *testing.T) {
		_, err := svc.CreateAssignment(ctx, caller, target.ID, platformAdmin.ID, org.ID)
		assert.True(t, apperr.IsKind(err, apperr.KindForbidden))
	})

	t.Run("caller without setPolicy is forbidden", func(t *testing.T) {
		nobody := mustCreateUser(t, store, "bystander")
		_, err := svc.CreateAssignment(ctx, Subject{ID: nobody.ID}, target.ID, projectViewer.ID, prj.ID)
		assert.True(t, apperr.IsKind(err, apperr.KindForbidden))
	})

	t.Run("duplicate assignment is conflict", func(t *testing.T) {
		_, err := svc.CreateAssignment(ctx, caller, target.ID, projectViewer.ID, prj.ID)
		assert.True(t, apperr.IsKind(err, apperr.KindConflict))
	})
}
