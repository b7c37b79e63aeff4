package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun/migrate"

	"github.com/opentrusty/opentrusty/internal/auth"
	"github.com/opentrusty/opentrusty/internal/cache"
	"github.com/opentrusty/opentrusty/internal/config"
	"github.com/opentrusty/opentrusty/internal/db/bunx"
	"github.com/opentrusty/opentrusty/internal/db/models"
	"github.com/opentrusty/opentrusty/internal/mail"
	"github.com/opentrusty/opentrusty/internal/migrations"
	"github.com/opentrusty/opentrusty/internal/permissions"
	"github.com/opentrusty/opentrusty/internal/repository"
	"github.com/opentrusty/opentrusty/internal/services/iam"
	"github.com/opentrusty/opentrusty/internal/services/invite"
	oauth2svc "github.com/opentrusty/opentrusty/internal/services/oauth2"
	"github.com/opentrusty/opentrusty/internal/services/rbac"
)

const (
	testServerURL     = "https://iam.test"
	testAdminPassword = "Adm1n-pass!"
	testUserPassword  = "Us3r-pass!"
)

// fixture spins up the full HTTP surface over in-memory SQLite with one
// platform admin and one unprivileged user seeded.
type fixture struct {
	handler http.Handler
	store   *repository.Store
	iam     *iam.Service
	signer  *auth.Signer
	mailer  *recordingMailer

	admin *models.User
	user  *models.User
}

// recordingMailer captures outbound invite mail.
type recordingMailer struct {
	sent []mail.Message
}

func (m *recordingMailer) Send(_ context.Context, msg mail.Message) error {
	m.sent = append(m.sent, msg)
	return nil
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

	signer, err := auth.NewSigner(config.JWTConfig{
		Algorithm: "HS256",
		SecretKey: "server-test-secret",
	}, testServerURL)
	require.NoError(t, err)

	revocations, err := cache.NewRevocationSet("")
	require.NoError(t, err)
	t.Cleanup(func() { revocations.Close() })

	store := repository.NewStore(db)
	registry := permissions.MustLoad()
	graph := rbac.NewGraph(store.Roles)
	eval := rbac.NewEvaluator(store, graph)
	rbacSvc := rbac.NewService(store, graph, eval, registry)
	iamSvc := iam.NewService(store, signer, revocations, 15*time.Minute, 7*24*time.Hour)
	mailer := &recordingMailer{}
	inviteSvc := invite.NewService(store, mailer, testServerURL)
	oauthSvc := oauth2svc.NewService(store, signer, registry, revocations, 15*time.Minute, 7*24*time.Hour)

	cfg := &config.Config{
		Environment: config.EnvTest,
		ServerAddr:  "localhost:0",
		ServerURL:   testServerURL,
	}
	f := &fixture{
		handler: NewRouter(Options{
			Cfg:         cfg,
			DB:          db,
			Store:       store,
			Signer:      signer,
			Registry:    registry,
			IAM:         iamSvc,
			RBAC:        rbacSvc,
			Invites:     inviteSvc,
			OAuth:       oauthSvc,
			Revocations: revocations,
		}),
		store:  store,
		iam:    iamSvc,
		signer: signer,
		mailer: mailer,
	}

	f.admin, err = iamSvc.Register(ctx, iam.RegisterInput{
		Username: "rootadmin",
		Email:    "admin@iam.test",
		Password: testAdminPassword,
	})
	require.NoError(t, err)
	f.grantRole(t, f.admin.ID, permissions.RolePlatformAdmin, models.PlatformResourceID)

	f.user, err = iamSvc.Register(ctx, iam.RegisterInput{
		Username: "plainuser",
		Email:    "user@iam.test",
		Password: testUserPassword,
	})
	require.NoError(t, err)

	return f
}

// grantRole assigns a built-in role directly through the store,
// bypassing the legality check for seeding.
func (f *fixture) grantRole(t *testing.T, targetID, roleName, resourceID string) {
	t.Helper()
	role, err := f.store.Roles.GetByName(context.Background(), roleName)
	require.NoError(t, err)
	require.NoError(t, f.store.RoleAssignments.Create(context.Background(), &models.RoleAssignment{
		ID:         bunx.NewUUIDv7(),
		TargetID:   targetID,
		RoleID:     role.ID,
		ResourceID: resourceID,
		AssignedAt: time.Now(),
		AssignedBy: targetID,
	}))
}

// do runs a request through the router. A non-nil body is JSON encoded
// unless it is already an io.Reader.
func (f *fixture) do(t *testing.T, method, path string, body any, mutate ...func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case io.Reader:
		reader = b
	default:
		buf, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(buf)
	}
	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, m := range mutate {
		m(req)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func asBearer(token string) func(*http.Request) {
	return func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+token)
	}
}

func asForm(r *http.Request) {
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
}

// login runs the login endpoint and returns the token pair plus the
// session cookie.
func (f *fixture) login(t *testing.T, identifier, password string) (loginResponse, *http.Cookie) {
	t.Helper()
	rec := f.do(t, http.MethodPost, "/v1/auth/login", loginRequest{
		Identifier: identifier,
		Password:   password,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp loginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	var session *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == auth.SessionCookieName {
			session = c
		}
	}
	require.NotNil(t, session)
	return resp, session
}

// decode unmarshals a response body into v, failing loudly on errors.
func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
}

func registerInputFor(username string) iam.RegisterInput {
	return iam.RegisterInput{
		Username: username,
		Email:    username + "@iam.test",
		Password: testUserPassword,
	}
}

func (f *fixture) createOrganization(t *testing.T, token, name string) models.Organization {
	t.Helper()
	rec := f.do(t, http.MethodPost, "/v1/organizations", createOrganizationRequest{Name: name}, asBearer(token))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var org models.Organization
	decode(t, rec, &org)
	return org
}

func (f *fixture) createProject(t *testing.T, token, orgID, name string) models.Project {
	t.Helper()
	rec := f.do(t, http.MethodPost, "/v1/organizations/"+orgID+"/projects", createProjectRequest{Name: name}, asBearer(token))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var project models.Project
	decode(t, rec, &project)
	return project
}
