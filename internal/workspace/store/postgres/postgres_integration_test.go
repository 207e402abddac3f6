//go:build integration

package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"emailscore/internal/workspace/models"
	"emailscore/internal/workspace/store/postgres"
	"emailscore/pkg/domain"
	"emailscore/pkg/platform/sentinel"
	"emailscore/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *postgres.Store
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = postgres.New(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "api_keys", "users", "workspaces"))
}

func (s *PostgresStoreSuite) TestWorkspaceUserAndKeyRoundTrip() {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	ws, err := models.NewWorkspace(domain.WorkspaceID(uuid.New()), "Acme", now)
	s.Require().NoError(err)
	s.Require().NoError(s.store.CreateWorkspace(ctx, ws))

	user := &models.User{ID: domain.UserID(uuid.New()), WorkspaceID: ws.ID, Email: "owner@acme.test", CreatedAt: now}
	s.Require().NoError(s.store.CreateUser(ctx, user))

	key := &models.APIKey{Prefix: "abc123", SecretHash: "hash", WorkspaceID: ws.ID, UserID: user.ID, CreatedAt: now}
	s.Require().NoError(s.store.CreateAPIKey(ctx, key))

	gotWS, err := s.store.FindWorkspace(ctx, ws.ID)
	s.Require().NoError(err)
	s.Equal("Acme", gotWS.Name)

	gotUser, err := s.store.FindUser(ctx, user.ID)
	s.Require().NoError(err)
	s.Equal(ws.ID, gotUser.WorkspaceID)
	s.Equal("owner@acme.test", gotUser.Email)

	gotKey, err := s.store.FindAPIKey(ctx, "abc123")
	s.Require().NoError(err)
	s.Equal(user.ID, gotKey.UserID)
	s.False(gotKey.IsRevoked())
}

func (s *PostgresStoreSuite) TestKeyWithoutUser() {
	ctx := context.Background()
	ws, err := models.NewWorkspace(domain.WorkspaceID(uuid.New()), "Solo", time.Now())
	s.Require().NoError(err)
	s.Require().NoError(s.store.CreateWorkspace(ctx, ws))
	s.Require().NoError(s.store.CreateAPIKey(ctx, &models.APIKey{
		Prefix: "nouser", SecretHash: "hash", WorkspaceID: ws.ID, CreatedAt: time.Now(),
	}))

	got, err := s.store.FindAPIKey(ctx, "nouser")
	s.Require().NoError(err)
	s.True(got.UserID.IsNil())
}

func (s *PostgresStoreSuite) TestNotFound() {
	ctx := context.Background()

	_, err := s.store.FindWorkspace(ctx, domain.WorkspaceID(uuid.New()))
	s.ErrorIs(err, sentinel.ErrNotFound)
	_, err = s.store.FindUser(ctx, domain.UserID(uuid.New()))
	s.ErrorIs(err, sentinel.ErrNotFound)
	_, err = s.store.FindAPIKey(ctx, "missing")
	s.ErrorIs(err, sentinel.ErrNotFound)
}
